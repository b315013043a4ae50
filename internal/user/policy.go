package user

// AssignRole decides the role of a new account. An admin account is granted
// when the caller is an admin, or when no admin exists yet (bootstrap).
// Everything else becomes a regular user.
func AssignRole(requested string, adminCount int, callerIsAdmin bool) string {
	if requested != RoleAdmin {
		return RoleUser
	}
	if callerIsAdmin || adminCount == 0 {
		return RoleAdmin
	}
	return RoleUser
}
