package domain

// User is the portal's cached copy of the backend user record.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt Timestamp `json:"created_at"`
}

// Session pairs a bearer token with the user it was issued for. A Session is
// either complete (both set) or empty; the store never holds one half.
type Session struct {
	Token string
	User  *User
}

// Authenticated reports whether both halves of the pair are present.
func (s Session) Authenticated() bool {
	return s.Token != "" && s.User != nil
}
