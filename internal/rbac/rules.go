package rbac

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

const (
	PermQuizView      = "quiz:view"
	PermQuizListAdmin = "quiz:list-admin"
	PermQuizCreate    = "quiz:create"
	PermQuizEdit      = "quiz:edit"
	PermQuizDelete    = "quiz:delete"
	PermSessionStart  = "session:start"
	PermSessionPlay   = "session:play"
	PermResultsOwn    = "results:view-own"
	PermResultsStats  = "results:stats"
	PermEventsView    = "events:view"
)

// RolePermissions is the default policy. Stats are also open to the quiz
// creator; that check lives in the handler.
var RolePermissions = map[string][]string{
	RoleUser: {
		PermQuizView,
		"session:*",
		PermResultsOwn,
	},
	RoleAdmin: {
		"*",
	},
}
