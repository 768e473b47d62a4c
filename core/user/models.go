package user

import "sort"

// Roles
const (
	// Admin
	RoleAdmin          = "admin:"
	RoleAdminOwner     = "admin:owner"
	RoleAdminPrincipal = "admin:principal"

	// Teacher
	RoleTeacher = "teacher:"

	// Student
	RoleStudent = "student:"
)

var (
	AdminRoles   = []string{RoleAdmin, RoleAdminOwner, RoleAdminPrincipal}
	TeacherRoles = []string{RoleTeacher}
	StudentRoles = []string{RoleStudent}
)

// User is the caller identity, as carried by a verified token.
// Accounts themselves live in the identity provider.
type User struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Roles    []string `json:"roles"`
}

func (u User) hasAnyRole(roles []string) bool {
	owned := append([]string(nil), u.Roles...)
	sort.Strings(owned)
	for _, role := range roles {
		if i := sort.SearchStrings(owned, role); i < len(owned) && owned[i] == role {
			return true
		}
	}
	return false
}

func (u User) IsAdmin() bool   { return u.hasAnyRole(AdminRoles) }
func (u User) IsTeacher() bool { return u.hasAnyRole(TeacherRoles) }
func (u User) IsStudent() bool { return u.hasAnyRole(StudentRoles) }
