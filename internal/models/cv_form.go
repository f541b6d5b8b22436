package models

import "gorm.io/datatypes"

// CVForm holds the structured CV a student builds in the dashboard.
// One row per student, upserted on save.
type CVForm struct {
	BaseModel

	StudentID string   `gorm:"type:uuid;uniqueIndex;not null" json:"student_id"`
	Student   *Profile `gorm:"foreignKey:StudentID" json:"student,omitempty"`

	Summary    string         `gorm:"type:text" json:"summary"`
	Education  datatypes.JSON `json:"education"`
	Experience datatypes.JSON `json:"experience"`
	Skills     datatypes.JSON `json:"skills"`
}
