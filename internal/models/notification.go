package models

import (
	"time"

	"gorm.io/datatypes"
)

// Notification types tracked by the marketplace. The set is fixed; server-side
// actions are the only producers.
const (
	NotificationUserApproval       = "user_approval"
	NotificationInternshipApproval = "internship_approval"
	NotificationApplicationStatus  = "application_status"
	NotificationNewApplication     = "new_application"
)

// MetadataStatusKey is the metadata field carrying the review status for
// internship_approval notifications.
const MetadataStatusKey = "status"

// Notification represents an in-app notification owned by exactly one account.
type Notification struct {
	BaseModel

	UserID   string         `gorm:"type:uuid;not null;index" json:"user_id"`
	Type     string         `gorm:"type:varchar(64);not null;index" json:"type"`
	Title    string         `gorm:"type:varchar(255);not null" json:"title"`
	Message  string         `gorm:"type:text" json:"message"`
	Metadata datatypes.JSON `json:"metadata"`

	IsRead bool       `gorm:"default:false;index" json:"is_read"`
	ReadAt *time.Time `json:"read_at"`
}

// KnownNotificationType reports whether the supplied type belongs to the fixed enumeration.
func KnownNotificationType(t string) bool {
	switch t {
	case NotificationUserApproval, NotificationInternshipApproval,
		NotificationApplicationStatus, NotificationNewApplication:
		return true
	}
	return false
}
