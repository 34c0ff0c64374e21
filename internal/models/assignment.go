package models

import "time"

// Assignment is graded work attached to a course. Deleting the course
// deletes its assignments and their submissions.
type Assignment struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	CourseID     uint       `gorm:"not null;index" json:"course_id"`
	Title        string     `gorm:"size:255;not null" json:"title"`
	Description  string     `gorm:"type:text" json:"description"`
	Instructions string     `gorm:"type:text" json:"instructions"`
	MaxScore     int        `gorm:"not null;default:100" json:"max_score"`
	DueDate      *time.Time `json:"due_date"`
	IsRequired   bool       `gorm:"not null;default:true" json:"is_required"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	Course      Course       `json:"-"`
	Submissions []Submission `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// IsPastDue reports whether the deadline has passed. Assignments without a
// due date never expire.
func (a Assignment) IsPastDue(reference time.Time) bool {
	return a.DueDate != nil && reference.After(*a.DueDate)
}
