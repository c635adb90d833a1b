package rbac

// Role names. Keep these stable; they are part of the token contract.
const (
	RoleViewer   = "viewer"
	RoleOperator = "operator"
	RoleAdmin    = "admin"
)

var rank = map[string]int{
	RoleViewer:   1,
	RoleOperator: 2,
	RoleAdmin:    3,
}

func IsKnownRole(role string) bool {
	_, ok := rank[role]
	return ok
}

// Allows reports whether role grants at least the rights of min.
func Allows(role, min string) bool {
	r, ok := rank[role]
	if !ok {
		return false
	}
	return r >= rank[min]
}
