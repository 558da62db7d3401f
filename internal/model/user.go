package model

import "time"

// User roles.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User represents a registered citizen or staff member.
type User struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	Username    string `json:"username" gorm:"uniqueIndex;size:100;not null"`
	FullName    string `json:"full_name" gorm:"size:255;not null"`
	Email       string `json:"email" gorm:"uniqueIndex;size:255;not null"`
	Address     string `json:"address" gorm:"size:500"`
	PhoneNumber string `json:"phone_number" gorm:"size:50"`
	Avatar      string `json:"avatar,omitempty" gorm:"size:500"`
	Role        string `json:"role" gorm:"size:50;default:'user'"`

	// PasswordHash and RefreshTokenHash are credential material: never
	// serialized and excluded from queries unless explicitly selected.
	PasswordHash     string `json:"-" gorm:"size:255;not null"`
	RefreshTokenHash string `json:"-" gorm:"size:255"`

	MemberSince time.Time  `json:"member_since"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// IsAdmin reports whether the user carries the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
