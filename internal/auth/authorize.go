package auth

// roleDefaults is the static role to default-action-set table. Roles missing
// from it (and any unknown role value) contribute no actions.
var roleDefaults = map[Role][]string{
	RoleManager:         {ActionRead, ActionCreate, ActionUpdate, ActionDelete},
	RoleAccountant:      {ActionRead, ActionCreate, ActionUpdate},
	RoleDataEntry:       {ActionRead, ActionCreate},
	RoleWarehouseKeeper: {ActionRead, ActionCreate, ActionUpdate},
	RoleViewer:          {ActionRead},
}

// Authorize decides whether identity may perform action on resource. It is
// pure: it never touches storage and operates only on the resolved Identity.
//
// The store owner bypasses all checks. Everyone else is allowed when either
// the per-user grant for the resource or the role's default action set
// contains the action. Explicit grants can only add to the role defaults,
// never revoke them.
func Authorize(identity Identity, resource, action string) bool {
	if identity.Role == RoleStoreOwner {
		return true
	}
	if identity.Permissions.Allows(resource, action) {
		return true
	}
	for _, a := range roleDefaults[identity.Role] {
		if a == action {
			return true
		}
	}
	return false
}
