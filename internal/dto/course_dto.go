package dto

import (
	"time"

	"github.com/innotech/lms-api/internal/models"
)

// CourseCreateRequest is the payload for opening a new course.
type CourseCreateRequest struct {
	Title            string `json:"title" validate:"required,max=255"`
	Description      string `json:"description"`
	ShortDescription string `json:"short_description" validate:"omitempty,max=500"`
	ThumbnailURL     string `json:"thumbnail_url" validate:"omitempty,url,max=500"`
	Status           string `json:"status" validate:"omitempty,oneof=draft published archived"`
	DurationHours    int    `json:"duration_hours" validate:"omitempty,gte=0"`
}

// CourseUpdateRequest carries partial course changes.
type CourseUpdateRequest struct {
	Title            *string `json:"title" validate:"omitempty,max=255"`
	Description      *string `json:"description"`
	ShortDescription *string `json:"short_description" validate:"omitempty,max=500"`
	ThumbnailURL     *string `json:"thumbnail_url" validate:"omitempty,url,max=500"`
	Status           *string `json:"status" validate:"omitempty,oneof=draft published archived"`
	DurationHours    *int    `json:"duration_hours" validate:"omitempty,gte=0"`
}

// CourseFilter narrows catalog listings.
type CourseFilter struct {
	Status   *string `query:"status" validate:"omitempty,oneof=draft published archived"`
	Page     int     `query:"page" validate:"omitempty,gte=1"`
	PageSize int     `query:"page_size" validate:"omitempty,gte=1,lte=100"`
}

// CourseResponse is the API view of a course.
type CourseResponse struct {
	ID               uint                `json:"id"`
	Title            string              `json:"title"`
	Description      string              `json:"description"`
	ShortDescription string              `json:"short_description"`
	ThumbnailURL     string              `json:"thumbnail_url"`
	InstructorID     uint                `json:"instructor_id"`
	Status           models.CourseStatus `json:"status"`
	DurationHours    int                 `json:"duration_hours"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

// NewCourseResponse converts a Course model into a DTO.
func NewCourseResponse(model models.Course) CourseResponse {
	return CourseResponse{
		ID:               model.ID,
		Title:            model.Title,
		Description:      model.Description,
		ShortDescription: model.ShortDescription,
		ThumbnailURL:     model.ThumbnailURL,
		InstructorID:     model.InstructorID,
		Status:           model.Status,
		DurationHours:    model.DurationHours,
		CreatedAt:        model.CreatedAt,
		UpdatedAt:        model.UpdatedAt,
	}
}

// NewCourseResponseSlice converts course models into DTOs.
func NewCourseResponseSlice(courses []models.Course) []CourseResponse {
	responses := make([]CourseResponse, 0, len(courses))
	for _, course := range courses {
		responses = append(responses, NewCourseResponse(course))
	}
	return responses
}

// ModuleCreateRequest is the payload for adding course content.
type ModuleCreateRequest struct {
	Title           string `json:"title" validate:"required,max=255"`
	Description     string `json:"description"`
	Content         string `json:"content"`
	VideoURL        string `json:"video_url" validate:"omitempty,url,max=500"`
	OrderIndex      int    `json:"order_index" validate:"omitempty,gte=0"`
	DurationMinutes int    `json:"duration_minutes" validate:"omitempty,gte=0"`
	IsPublished     bool   `json:"is_published"`
}

// ModuleResponse is the API view of a module.
type ModuleResponse struct {
	ID              uint      `json:"id"`
	CourseID        uint      `json:"course_id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Content         string    `json:"content"`
	VideoURL        string    `json:"video_url"`
	OrderIndex      int       `json:"order_index"`
	DurationMinutes int       `json:"duration_minutes"`
	IsPublished     bool      `json:"is_published"`
	CreatedAt       time.Time `json:"created_at"`
}

// NewModuleResponse converts a Module model into a DTO.
func NewModuleResponse(model models.Module) ModuleResponse {
	return ModuleResponse{
		ID:              model.ID,
		CourseID:        model.CourseID,
		Title:           model.Title,
		Description:     model.Description,
		Content:         model.Content,
		VideoURL:        model.VideoURL,
		OrderIndex:      model.OrderIndex,
		DurationMinutes: model.DurationMinutes,
		IsPublished:     model.IsPublished,
		CreatedAt:       model.CreatedAt,
	}
}

// NewModuleResponseSlice converts module models into DTOs.
func NewModuleResponseSlice(modules []models.Module) []ModuleResponse {
	responses := make([]ModuleResponse, 0, len(modules))
	for _, module := range modules {
		responses = append(responses, NewModuleResponse(module))
	}
	return responses
}

// EnrollmentResponse is the API view of an enrollment.
type EnrollmentResponse struct {
	ID                 uint                    `json:"id"`
	UserID             uint                    `json:"user_id"`
	CourseID           uint                    `json:"course_id"`
	Status             models.EnrollmentStatus `json:"status"`
	ProgressPercentage int                     `json:"progress_percentage"`
	EnrolledAt         time.Time               `json:"enrolled_at"`
	CompletedAt        *time.Time              `json:"completed_at"`
}

// NewEnrollmentResponse converts an Enrollment model into a DTO.
func NewEnrollmentResponse(model models.Enrollment) EnrollmentResponse {
	return EnrollmentResponse{
		ID:                 model.ID,
		UserID:             model.UserID,
		CourseID:           model.CourseID,
		Status:             model.Status,
		ProgressPercentage: model.ProgressPercentage,
		EnrolledAt:         model.EnrolledAt,
		CompletedAt:        model.CompletedAt,
	}
}

// NewEnrollmentResponseSlice converts enrollment models into DTOs.
func NewEnrollmentResponseSlice(enrollments []models.Enrollment) []EnrollmentResponse {
	responses := make([]EnrollmentResponse, 0, len(enrollments))
	for _, enrollment := range enrollments {
		responses = append(responses, NewEnrollmentResponse(enrollment))
	}
	return responses
}
