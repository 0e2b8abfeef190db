package auth

import "agentmarket/internal/models"

// State is the session manager's view of the current identity.
type State int

const (
	// StateLoading holds until the session restored at start-up resolves.
	// It does not mean no one is signed in.
	StateLoading State = iota
	StateUnauthenticated
	StateAuthenticating
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// EventKind classifies manager events.
type EventKind int

const (
	// EventNavigate asks the UI to move to Path.
	EventNavigate EventKind = iota
	// EventNotice carries a transient user-facing message.
	EventNotice
	// EventStateChange reports a new State and the identity, if any.
	EventStateChange
)

// NoticeLevel is the severity of a notice.
type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
)

// Event is published to every subscriber of a Manager.
type Event struct {
	Kind EventKind

	// EventNavigate
	Path string

	// EventNotice
	Level   NoticeLevel
	Message string

	// EventStateChange
	State State
	User  *models.User
}

// Routing destinations.
const (
	PathHome             = "/"
	PathAdmin            = "/admin"
	PathCreatorDashboard = "/creator/dashboard"
	PathDashboard        = "/dashboard"
)

// Destination returns where a freshly signed-in identity with role lands.
func Destination(role models.Role) string {
	switch role {
	case models.RoleAdmin:
		return PathAdmin
	case models.RoleCreator:
		return PathCreatorDashboard
	default:
		return PathDashboard
	}
}

// User-facing notices.
const (
	msgSignedIn     = "Signed in successfully!"
	msgSignedUp     = "Account created successfully! Please check your email to verify your account."
	msgSignedOut    = "Signed out successfully!"
	msgResetSent    = "Password reset email sent! Check your inbox."
	msgSignInFailed = "Failed to sign in"
	msgSignUpFailed = "Failed to create account"
	msgSignOutFail  = "Failed to sign out"
	msgResetFailed  = "Failed to send reset email"
)
