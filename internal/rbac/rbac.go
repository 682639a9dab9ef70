package rbac

type Role string
type Action string

const (
	RoleVisitor Role = "visitor"
	RoleAdmin   Role = "admin"
)

const (
	ActionReadContent     Action = "content:read"
	ActionSubmitContact   Action = "contact:submit"
	ActionListSubmissions Action = "contact:list"
	ActionManageContent   Action = "content:manage"
)

func Can(role Role, action Action) bool {
	switch role {
	case RoleAdmin:
		return true
	case RoleVisitor:
		return action == ActionReadContent || action == ActionSubmitContact
	default:
		return false
	}
}

func Normalize(role string) Role {
	switch Role(role) {
	case RoleVisitor, RoleAdmin:
		return Role(role)
	default:
		return RoleVisitor
	}
}
