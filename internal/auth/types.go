package auth

import "time"

// Role is the coarse permission template assigned to every user.
type Role string

const (
	RoleStoreOwner      Role = "store_owner"
	RoleManager         Role = "manager"
	RoleAccountant      Role = "accountant"
	RoleDataEntry       Role = "data_entry"
	RoleWarehouseKeeper Role = "warehouse_keeper"
	RoleViewer          Role = "viewer"
)

// Actions checked by the permission evaluator.
const (
	ActionRead   = "read"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// PermissionMap is the per-user sparse grant table: resource name to the set
// of actions explicitly allowed on it. Grants are additive on top of the role
// defaults; an absent resource entry means "no override".
type PermissionMap map[string][]string

// Allows reports whether the map explicitly grants action on resource.
func (m PermissionMap) Allows(resource, action string) bool {
	for _, a := range m[resource] {
		if a == action {
			return true
		}
	}
	return false
}

// Store is a tenant: an isolated merchant account owning all business data.
type Store struct {
	ID                    string     `json:"id"`
	Name                  string     `json:"name"`
	Active                bool       `json:"is_active"`
	SubscriptionExpiresAt *time.Time `json:"subscription_expires_at,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// User belongs to exactly one store. Usernames are unique across stores.
type User struct {
	ID                    string        `json:"id"`
	StoreID               string        `json:"store_id"`
	Username              string        `json:"username"`
	PasswordHash          string        `json:"-"`
	FullName              string        `json:"full_name"`
	Role                  Role          `json:"role"`
	Permissions           PermissionMap `json:"permissions,omitempty"`
	Active                bool          `json:"is_active"`
	SubscriptionExpiresAt *time.Time    `json:"subscription_expires_at,omitempty"`
	Locale                string        `json:"locale"`
	DarkMode              bool          `json:"dark_mode"`
	CreatedAt             time.Time     `json:"created_at"`
	UpdatedAt             time.Time     `json:"updated_at"`
}

// Identity is the resolved representation of the caller after the gate has
// accepted a request. It is the only vocabulary downstream handlers see; raw
// token claims are never exposed past this package.
type Identity struct {
	UserID      string        `json:"user_id"`
	StoreID     string        `json:"store_id"`
	Username    string        `json:"username"`
	Role        Role          `json:"role"`
	Permissions PermissionMap `json:"permissions,omitempty"`
	FullName    string        `json:"full_name"`
}

// RevokedToken is a server-side denylist entry for a refresh token. Rows past
// ExpiresAt are dead weight and can be purged.
type RevokedToken struct {
	JTI       string
	UserID    string
	ExpiresAt time.Time
	RevokedAt time.Time
}

// TokenPair carries the credentials minted at login.
type TokenPair struct {
	AccessToken      string    `json:"accessToken"`
	RefreshToken     string    `json:"refreshToken"`
	AccessExpiresAt  time.Time `json:"-"`
	RefreshExpiresAt time.Time `json:"-"`
}
