package dto

import (
	"time"

	"github.com/innotech/lms-api/internal/models"
)

// AssignmentCreateRequest is the payload for creating an assignment.
type AssignmentCreateRequest struct {
	CourseID     uint    `json:"course_id" validate:"required,gt=0"`
	Title        string  `json:"title" validate:"required,max=255"`
	Description  string  `json:"description"`
	Instructions string  `json:"instructions"`
	MaxScore     int     `json:"max_score" validate:"omitempty,gt=0"`
	DueDate      *string `json:"due_date" validate:"omitempty"`
	IsRequired   *bool   `json:"is_required"`
}

// AssignmentUpdateRequest carries partial assignment changes.
type AssignmentUpdateRequest struct {
	Title        *string `json:"title" validate:"omitempty,max=255"`
	Description  *string `json:"description"`
	Instructions *string `json:"instructions"`
	MaxScore     *int    `json:"max_score" validate:"omitempty,gt=0"`
	DueDate      *string `json:"due_date"`
	IsRequired   *bool   `json:"is_required"`
}

// AssignmentFilter narrows assignment listings.
type AssignmentFilter struct {
	CourseID *uint `query:"course_id"`
	Page     int   `query:"page" validate:"omitempty,gte=1"`
	PageSize int   `query:"page_size" validate:"omitempty,gte=1,lte=100"`
}

// AssignmentResponse is the API view of an assignment.
type AssignmentResponse struct {
	ID               uint       `json:"id"`
	CourseID         uint       `json:"course_id"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	Instructions     string     `json:"instructions"`
	MaxScore         int        `json:"max_score"`
	DueDate          *time.Time `json:"due_date"`
	IsRequired       bool       `json:"is_required"`
	SubmissionsCount int64      `json:"submissions_count"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// AssignmentDetailResponse is an assignment with the submissions the caller
// is allowed to see. Non-owning trainers get an empty slice, students get
// only their own entry.
type AssignmentDetailResponse struct {
	AssignmentResponse
	Submissions []SubmissionResponse `json:"submissions"`
}

// NewAssignmentResponse converts an Assignment model into a DTO.
func NewAssignmentResponse(model models.Assignment) AssignmentResponse {
	return AssignmentResponse{
		ID:           model.ID,
		CourseID:     model.CourseID,
		Title:        model.Title,
		Description:  model.Description,
		Instructions: model.Instructions,
		MaxScore:     model.MaxScore,
		DueDate:      model.DueDate,
		IsRequired:   model.IsRequired,
		CreatedAt:    model.CreatedAt,
		UpdatedAt:    model.UpdatedAt,
	}
}

// NewAssignmentResponseSlice converts assignment models into DTOs.
func NewAssignmentResponseSlice(assignments []models.Assignment) []AssignmentResponse {
	responses := make([]AssignmentResponse, 0, len(assignments))
	for _, assignment := range assignments {
		responses = append(responses, NewAssignmentResponse(assignment))
	}
	return responses
}
