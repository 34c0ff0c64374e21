package dto

import (
	"time"

	"github.com/innotech/lms-api/internal/models"
)

// StudentDashboardResponse aggregates a student's standing across all
// assignments in their enrolled courses.
type StudentDashboardResponse struct {
	Summary     ProgressSummary      `json:"summary"`
	Assignments []AssignmentProgress `json:"assignments"`
}

// ProgressSummary captures aggregated statistics for the dashboard.
type ProgressSummary struct {
	TotalAssignments int     `json:"total_assignments"`
	Submitted        int     `json:"submitted"`
	Reviewed         int     `json:"reviewed"`
	Pending          int     `json:"pending"`
	Overdue          int     `json:"overdue"`
	AverageScore     float64 `json:"average_score"`
	CompletionRate   float64 `json:"completion_rate"`
}

// AssignmentProgress describes one assignment relative to the student.
type AssignmentProgress struct {
	AssignmentID uint                    `json:"assignment_id"`
	CourseID     uint                    `json:"course_id"`
	Title        string                  `json:"title"`
	DueDate      *time.Time              `json:"due_date"`
	Status       models.SubmissionStatus `json:"status"`
	SubmissionID *uint                   `json:"submission_id"`
	Score        *int                    `json:"score"`
	Feedback     string                  `json:"feedback"`
	Overdue      bool                    `json:"overdue"`
}
