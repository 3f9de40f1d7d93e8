package staging

import "strings"

const RoleAdmin = "admin"

// Permissions is injected into every store; nothing reads roles from globals.
type Permissions struct {
	CanDelete  bool
	CanArchive bool
	CanRestore bool
}

var FullAccess = Permissions{CanDelete: true, CanArchive: true, CanRestore: true}

// PermissionsForRole maps a caller role to permissions. Admins may hard
// delete and restore; everyone else may only archive.
func PermissionsForRole(role string) Permissions {
	if strings.EqualFold(strings.TrimSpace(role), RoleAdmin) {
		return FullAccess
	}
	return Permissions{CanArchive: true}
}
