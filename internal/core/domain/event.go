package domain

import "time"

// AuthEventType names an entry in the auth audit trail.
type AuthEventType string

const (
	EventLoginSucceeded AuthEventType = "login_succeeded"
	EventLoginFailed    AuthEventType = "login_failed"
	EventLogout         AuthEventType = "logout"
	EventGuardRedirect  AuthEventType = "guard_redirect"
)

// AuthEvent records a session lifecycle transition.
type AuthEvent struct {
	Type       AuthEventType `json:"type" bson:"type"`
	SessionID  string        `json:"session_id" bson:"session_id"`
	Email      string        `json:"email,omitempty" bson:"email,omitempty"`
	Role       Role          `json:"role,omitempty" bson:"role,omitempty"`
	Target     string        `json:"target,omitempty" bson:"target,omitempty"`
	Reason     string        `json:"reason,omitempty" bson:"reason,omitempty"`
	OccurredAt time.Time     `json:"occurred_at" bson:"occurred_at"`
}
