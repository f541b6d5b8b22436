package models

import "time"

// Application states for internship applications.
const (
	ApplicationPending   = "pending"
	ApplicationAccepted  = "accepted"
	ApplicationRejected  = "rejected"
	ApplicationWithdrawn = "withdrawn"
)

// Internship is a posting owned by a software house, subject to admin review.
type Internship struct {
	BaseModel

	CompanyID string   `gorm:"type:uuid;not null;index" json:"company_id"`
	Company   *Profile `gorm:"foreignKey:CompanyID" json:"company,omitempty"`

	Title       string `gorm:"type:varchar(255);not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	Field       string `gorm:"type:varchar(128);index" json:"field"`
	Location    string `gorm:"type:varchar(255)" json:"location"`
	Paid        bool   `gorm:"default:false" json:"paid"`
	Slots       int    `gorm:"default:1" json:"slots"`

	Status     string     `gorm:"type:varchar(32);default:'pending';index" json:"status"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`
	ReviewedBy *string    `gorm:"type:uuid" json:"reviewed_by,omitempty"`
}

// Application links a student to an internship posting.
type Application struct {
	BaseModel

	InternshipID string      `gorm:"type:uuid;not null;index" json:"internship_id"`
	Internship   *Internship `gorm:"foreignKey:InternshipID" json:"internship,omitempty"`

	StudentID string   `gorm:"type:uuid;not null;index" json:"student_id"`
	Student   *Profile `gorm:"foreignKey:StudentID" json:"student,omitempty"`

	CoverLetter string `gorm:"type:text" json:"cover_letter"`
	CVURL       string `gorm:"type:text" json:"cv_url,omitempty"`

	Status    string     `gorm:"type:varchar(32);default:'pending';index" json:"status"`
	DecidedAt *time.Time `json:"decided_at,omitempty"`
}
