// Package guard implements the per-page authorization state machine.
//
// A page starts LOADING. Once the session has loaded it moves to AUTHORIZED
// or REDIRECTING, and REDIRECTING is terminal for that page instance. The
// decision is a pure function of (loading, user); the Machine only adds the
// guarantee that a redirect fires once per change of input.
package guard

import (
	"github.com/projecthub/portal/internal/core/domain"
)

type State int

const (
	StateLoading State = iota
	StateAuthorized
	StateRedirecting
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateAuthorized:
		return "authorized"
	case StateRedirecting:
		return "redirecting"
	default:
		return "invalid"
	}
}

// Input is the slice of session state a guard looks at.
type Input struct {
	Loading bool
	User    *domain.User
}

// Policy is the admission rule of a guard.
type Policy struct {
	name    string
	anyRole bool
	allowed map[domain.Role]struct{}
}

// Authenticated admits any logged-in user.
func Authenticated() Policy {
	return Policy{name: "require_auth", anyRole: true}
}

// Roles admits logged-in users whose routing role is in roles.
func Roles(roles ...domain.Role) Policy {
	allowed := make(map[domain.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return Policy{name: "require_role", allowed: allowed}
}

func (p Policy) Name() string { return p.name }

// Allows reports whether role passes the policy. Unknown roles are judged
// as members so they land on the fallback dashboard and stay there.
func (p Policy) Allows(role domain.Role) bool {
	if p.anyRole {
		return true
	}
	_, ok := p.allowed[role.Routing()]
	return ok
}

// Decision is the outcome of evaluating a policy.
type Decision struct {
	State      State
	RedirectTo string
	Reason     string
}

// Evaluate is the pure guard function.
func Evaluate(p Policy, in Input) Decision {
	switch {
	case in.Loading:
		return Decision{State: StateLoading}
	case in.User == nil:
		return Decision{State: StateRedirecting, RedirectTo: domain.LoginRoute, Reason: "unauthenticated"}
	case !p.Allows(in.User.Role):
		return Decision{State: StateRedirecting, RedirectTo: in.User.Role.DashboardRoute(), Reason: "role_not_allowed"}
	default:
		return Decision{State: StateAuthorized}
	}
}

type inputKey struct {
	loading bool
	userID  string
	role    domain.Role
	present bool
}

func keyOf(in Input) inputKey {
	k := inputKey{loading: in.Loading}
	if in.User != nil {
		k.present = true
		k.userID = in.User.ID
		k.role = in.User.Role
	}
	return k
}

// Machine tracks one guarded page instance.
type Machine struct {
	policy    Policy
	decision  Decision
	last      inputKey
	evaluated bool
}

func NewMachine(p Policy) *Machine {
	return &Machine{policy: p, decision: Decision{State: StateLoading}}
}

// Update feeds a new session observation to the machine. The returned bool
// is true only on the transition into REDIRECTING; callers perform the
// redirect exactly when it is true.
func (m *Machine) Update(in Input) (Decision, bool) {
	if m.decision.State == StateRedirecting {
		return m.decision, false
	}

	key := keyOf(in)
	if m.evaluated && key == m.last {
		return m.decision, false
	}
	m.last = key
	m.evaluated = true
	m.decision = Evaluate(m.policy, in)

	return m.decision, m.decision.State == StateRedirecting
}
