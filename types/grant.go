package types

import "time"

// Grant records the permissions a user holds directly on one resource.
// At most one grant exists per user and resource: granting again replaces it.
type Grant struct {
	UserID      string     `json:"user_id"`
	Resource    Resource   `json:"resource"`
	Permissions Permission `json:"permissions"`
	GrantedBy   string     `json:"granted_by,omitempty"`
	GrantedAt   time.Time  `json:"granted_at"`
}
