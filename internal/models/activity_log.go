package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ActivityLog records a user-visible action for analytics aggregation.
// Rows are append-only; end users never mutate them.
type ActivityLog struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID    *string   `gorm:"type:uuid;index" json:"user_id"`
	User      *Profile  `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Action    string    `gorm:"not null;index" json:"action"`
	Resource  string    `gorm:"index" json:"resource"`
	Metadata  string    `gorm:"type:json" json:"metadata"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (a *ActivityLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// AdminLog records privileged review decisions (account and internship
// approvals, bulk moderation). Appended only by admin actions.
type AdminLog struct {
	ID         string    `gorm:"primaryKey;type:uuid" json:"id"`
	AdminID    string    `gorm:"type:uuid;not null;index" json:"admin_id"`
	Admin      *Profile  `gorm:"foreignKey:AdminID" json:"admin,omitempty"`
	Action     string    `gorm:"not null;index" json:"action"`
	TargetType string    `gorm:"type:varchar(64);index" json:"target_type"`
	TargetID   string    `gorm:"type:uuid" json:"target_id"`
	Details    string    `gorm:"type:json" json:"details"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}

func (a *AdminLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
