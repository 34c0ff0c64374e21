package models

import (
	"fmt"
	"strings"
	"time"
)

// SubmissionStatus is the lifecycle state of submitted work.
type SubmissionStatus string

const (
	// SubmissionStatusPending is a draft the student is still editing.
	SubmissionStatusPending SubmissionStatus = "pending"
	// SubmissionStatusSubmitted is finalized work awaiting review.
	SubmissionStatusSubmitted SubmissionStatus = "submitted"
	// SubmissionStatusReviewed marks work a grader has looked at.
	SubmissionStatusReviewed SubmissionStatus = "reviewed"
	// SubmissionStatusApproved marks accepted work.
	SubmissionStatusApproved SubmissionStatus = "approved"
	// SubmissionStatusRejected marks declined work.
	SubmissionStatusRejected SubmissionStatus = "rejected"
)

// ParseSubmissionStatus validates a raw submission status string.
func ParseSubmissionStatus(value string) (SubmissionStatus, error) {
	status := SubmissionStatus(strings.ToLower(strings.TrimSpace(value)))
	switch status {
	case SubmissionStatusPending, SubmissionStatusSubmitted, SubmissionStatusReviewed,
		SubmissionStatusApproved, SubmissionStatusRejected:
		return status, nil
	default:
		return "", fmt.Errorf("unknown submission status %q", value)
	}
}

// Submission is a student's work for one assignment. The composite unique
// index guarantees a single row per (assignment, student) pair even under
// concurrent creates.
type Submission struct {
	ID           uint             `gorm:"primaryKey" json:"id"`
	AssignmentID uint             `gorm:"not null;uniqueIndex:idx_submission_assignment_student" json:"assignment_id"`
	StudentID    uint             `gorm:"not null;uniqueIndex:idx_submission_assignment_student" json:"student_id"`
	Content      string           `gorm:"type:text" json:"content"`
	FileURL      string           `gorm:"size:500" json:"file_url"`
	FileName     string           `gorm:"size:255" json:"file_name"`
	Status       SubmissionStatus `gorm:"size:32;not null;default:pending" json:"status"`
	Score        *int             `json:"score"`
	Feedback     string           `gorm:"type:text" json:"feedback"`
	SubmittedAt  time.Time        `gorm:"autoCreateTime" json:"submitted_at"`
	ReviewedAt   *time.Time       `json:"reviewed_at"`
	UpdatedAt    time.Time        `json:"updated_at"`

	Assignment Assignment `json:"-"`
	Student    User       `gorm:"foreignKey:StudentID" json:"-"`
}

// Editable reports whether the student may still change the content field.
// Once work leaves pending it is frozen for the student.
func (s Submission) Editable() bool {
	return s.Status == SubmissionStatusPending
}

// Reviewed reports whether a grading action has touched this submission.
func (s Submission) Reviewed() bool {
	return s.ReviewedAt != nil
}
