package model

import "time"

// ユーザーロール
const (
	RoleClient = "client"
	RoleStaff  = "staff"
)

// User is a profile consumed (never owned) by this core: the engagement
// workflow reads identity, email and role, and writes nothing back.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"` // "client" | "staff"
	CreatedAt time.Time `json:"created_at"`
}

// IsStaff returns true if the user holds the staff capability.
func (u *User) IsStaff() bool {
	return u.Role == RoleStaff
}
