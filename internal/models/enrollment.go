package models

import "time"

// EnrollmentStatus tracks a learner's standing in a course.
type EnrollmentStatus string

const (
	// EnrollmentStatusActive is the default standing after enrolling.
	EnrollmentStatusActive EnrollmentStatus = "active"
	// EnrollmentStatusCompleted marks a finished course.
	EnrollmentStatusCompleted EnrollmentStatus = "completed"
	// EnrollmentStatusDropped marks a withdrawn learner.
	EnrollmentStatusDropped EnrollmentStatus = "dropped"
)

// Enrollment links a user to a course. At most one row exists per
// (user, course) pair; the composite unique index backs the gate check.
type Enrollment struct {
	ID                 uint             `gorm:"primaryKey" json:"id"`
	UserID             uint             `gorm:"not null;uniqueIndex:idx_enrollment_user_course" json:"user_id"`
	CourseID           uint             `gorm:"not null;uniqueIndex:idx_enrollment_user_course" json:"course_id"`
	Status             EnrollmentStatus `gorm:"size:32;not null;default:active" json:"status"`
	ProgressPercentage int              `gorm:"not null;default:0" json:"progress_percentage"`
	EnrolledAt         time.Time        `gorm:"autoCreateTime" json:"enrolled_at"`
	CompletedAt        *time.Time       `json:"completed_at"`

	Course Course `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}
