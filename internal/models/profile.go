package models

import "time"

// Account roles recognised across the platform.
const (
	RoleStudent       = "student"
	RoleGuest         = "guest"
	RoleUniversity    = "university"
	RoleSoftwareHouse = "software_house"
	RoleAdmin         = "admin"
)

// Review states shared by profiles and internships.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Profile describes a platform account and its marketplace role.
type Profile struct {
	BaseModel

	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Password string `gorm:"not null" json:"-"`
	FullName string `gorm:"type:varchar(255)" json:"full_name"`

	Role   string `gorm:"type:varchar(32);not null;index" json:"role"`
	Status string `gorm:"type:varchar(32);default:'pending';index" json:"status"`

	// Company/institution name for software_house and university accounts.
	Organization string `gorm:"type:varchar(255)" json:"organization,omitempty"`

	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// KnownRole reports whether the supplied role is part of the fixed enumeration.
func KnownRole(role string) bool {
	switch role {
	case RoleStudent, RoleGuest, RoleUniversity, RoleSoftwareHouse, RoleAdmin:
		return true
	}
	return false
}
