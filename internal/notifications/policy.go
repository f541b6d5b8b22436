// Package notifications implements the role-scoped visibility rules applied
// to every notification before it reaches a dashboard.
package notifications

import (
	"encoding/json"

	"github.com/internhq/internhub/internal/models"
)

// AllowedTypes returns the notification types a role may see. Unknown roles
// map to the empty set: visibility fails closed.
func AllowedTypes(role string) []string {
	switch role {
	case models.RoleAdmin:
		return []string{models.NotificationUserApproval, models.NotificationInternshipApproval}
	case models.RoleSoftwareHouse:
		return []string{models.NotificationInternshipApproval, models.NotificationNewApplication}
	case models.RoleStudent, models.RoleGuest:
		return []string{models.NotificationApplicationStatus}
	default:
		return nil
	}
}

// TypeAllowed reports whether the type passes the role's membership check.
func TypeAllowed(role, notificationType string) bool {
	for _, allowed := range AllowedTypes(role) {
		if allowed == notificationType {
			return true
		}
	}
	return false
}

// IsVisible applies the full visibility rule: type membership for the role,
// then the per-type status refinement for internship approvals. Admins see
// only reviews still pending; software houses see only resolved ones.
func IsVisible(n models.Notification, role string) bool {
	if !TypeAllowed(role, n.Type) {
		return false
	}

	if n.Type != models.NotificationInternshipApproval {
		return true
	}

	status := metadataStatus(n)
	switch role {
	case models.RoleAdmin:
		return status == models.StatusPending
	case models.RoleSoftwareHouse:
		return status == models.StatusApproved || status == models.StatusRejected
	default:
		return false
	}
}

// FilterVisible returns the subset of rows visible to the role, preserving order.
func FilterVisible(rows []models.Notification, role string) []models.Notification {
	visible := make([]models.Notification, 0, len(rows))
	for _, row := range rows {
		if IsVisible(row, role) {
			visible = append(visible, row)
		}
	}
	return visible
}

func metadataStatus(n models.Notification) string {
	if len(n.Metadata) == 0 {
		return ""
	}

	var meta map[string]any
	if err := json.Unmarshal(n.Metadata, &meta); err != nil {
		return ""
	}

	status, _ := meta[models.MetadataStatusKey].(string)
	return status
}
