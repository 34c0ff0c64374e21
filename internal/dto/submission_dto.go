package dto

import (
	"time"

	"github.com/innotech/lms-api/internal/models"
)

// SubmissionCreateRequest describes the multipart payload for handing in
// work. Content may be empty when a file accompanies the request.
type SubmissionCreateRequest struct {
	AssignmentID uint   `form:"assignment_id" validate:"required,gt=0"`
	Content      string `form:"content"`
}

// SubmissionUpdateRequest is the student's edit payload. Only content is
// mutable, and only while the submission is pending.
type SubmissionUpdateRequest struct {
	Content *string `json:"content"`
}

// GradeRequest is the trainer/admin grading payload. Any combination of the
// three fields may be set; touching any of them stamps reviewed_at.
type GradeRequest struct {
	Score    *int    `json:"score" validate:"omitempty,gte=0"`
	Feedback *string `json:"feedback"`
	Status   *string `json:"status" validate:"omitempty,oneof=pending submitted reviewed approved rejected"`
}

// SubmissionFilter describes query string filters for listing submissions.
type SubmissionFilter struct {
	AssignmentID *uint   `query:"assignment_id"`
	StudentID    *uint   `query:"student_id"`
	Status       *string `query:"status" validate:"omitempty,oneof=pending submitted reviewed approved rejected"`
}

// SubmissionResponse is returned to API clients when viewing submissions.
type SubmissionResponse struct {
	ID           uint                    `json:"id"`
	AssignmentID uint                    `json:"assignment_id"`
	StudentID    uint                    `json:"student_id"`
	Content      string                  `json:"content"`
	FileURL      string                  `json:"file_url"`
	FileName     string                  `json:"file_name"`
	Status       models.SubmissionStatus `json:"status"`
	Score        *int                    `json:"score"`
	Feedback     string                  `json:"feedback"`
	SubmittedAt  time.Time               `json:"submitted_at"`
	ReviewedAt   *time.Time              `json:"reviewed_at"`
	Assignment   AssignmentLite          `json:"assignment"`
	Student      UserLite                `json:"student"`
}

// AssignmentLite summarizes an assignment in submission responses.
type AssignmentLite struct {
	ID       uint       `json:"id"`
	CourseID uint       `json:"course_id"`
	Title    string     `json:"title"`
	MaxScore int        `json:"max_score"`
	DueDate  *time.Time `json:"due_date"`
}

// UserLite summarizes a user without exposing full profile data.
type UserLite struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// NewSubmissionResponse converts a Submission model into a DTO.
func NewSubmissionResponse(model models.Submission) SubmissionResponse {
	response := SubmissionResponse{
		ID:           model.ID,
		AssignmentID: model.AssignmentID,
		StudentID:    model.StudentID,
		Content:      model.Content,
		FileURL:      model.FileURL,
		FileName:     model.FileName,
		Status:       model.Status,
		Score:        model.Score,
		Feedback:     model.Feedback,
		SubmittedAt:  model.SubmittedAt,
		ReviewedAt:   model.ReviewedAt,
	}

	if model.Assignment.ID != 0 {
		response.Assignment = AssignmentLite{
			ID:       model.Assignment.ID,
			CourseID: model.Assignment.CourseID,
			Title:    model.Assignment.Title,
			MaxScore: model.Assignment.MaxScore,
			DueDate:  model.Assignment.DueDate,
		}
	}

	if model.Student.ID != 0 {
		response.Student = UserLite{
			ID:    model.Student.ID,
			Name:  model.Student.FullName(),
			Email: model.Student.Email,
		}
	}

	return response
}

// NewSubmissionResponseSlice converts submission models into DTOs.
func NewSubmissionResponseSlice(submissions []models.Submission) []SubmissionResponse {
	responses := make([]SubmissionResponse, 0, len(submissions))
	for _, submission := range submissions {
		responses = append(responses, NewSubmissionResponse(submission))
	}
	return responses
}
