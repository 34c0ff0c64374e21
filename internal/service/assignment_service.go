package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/innotech/lms-api/internal/apperr"
	"github.com/innotech/lms-api/internal/authz"
	"github.com/innotech/lms-api/internal/dto"
	"github.com/innotech/lms-api/internal/models"
	"github.com/innotech/lms-api/internal/repository"
)

const defaultMaxScore = 100

// AssignmentService handles assignment CRUD and the per-role detail view.
type AssignmentService interface {
	List(ctx context.Context, actor authz.Actor, filter dto.AssignmentFilter) ([]dto.AssignmentResponse, error)
	Get(ctx context.Context, actor authz.Actor, id uint) (dto.AssignmentDetailResponse, error)
	Create(ctx context.Context, actor authz.Actor, payload dto.AssignmentCreateRequest) (dto.AssignmentResponse, error)
	Update(ctx context.Context, actor authz.Actor, id uint, payload dto.AssignmentUpdateRequest) (dto.AssignmentResponse, error)
	Delete(ctx context.Context, actor authz.Actor, id uint) error
}

type assignmentService struct {
	assignments repository.AssignmentRepository
	courses     repository.CourseRepository
	submissions repository.SubmissionRepository
	validator   *validator.Validate
	activity    ActivityRecorder
	logger      zerolog.Logger
	now         func() time.Time
}

// NewAssignmentService constructs the assignment service.
func NewAssignmentService(
	assignments repository.AssignmentRepository,
	courses repository.CourseRepository,
	submissions repository.SubmissionRepository,
	validate *validator.Validate,
	activity ActivityRecorder,
	logger zerolog.Logger,
) AssignmentService {
	return &assignmentService{
		assignments: assignments,
		courses:     courses,
		submissions: submissions,
		validator:   validate,
		activity:    activity,
		logger:      logger.With().Str("component", "assignment_service").Logger(),
		now:         time.Now,
	}
}

func (s *assignmentService) List(ctx context.Context, actor authz.Actor, filter dto.AssignmentFilter) ([]dto.AssignmentResponse, error) {
	if err := s.validator.Struct(filter); err != nil {
		return nil, err
	}

	assignments, err := s.assignments.List(ctx, repository.AssignmentFilter{
		CourseID: filter.CourseID,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	})
	if err != nil {
		return nil, apperr.StorageUnavailable("failed to list assignments", err)
	}

	responses := dto.NewAssignmentResponseSlice(assignments)
	for i := range responses {
		count, err := s.assignments.CountSubmissions(ctx, responses[i].ID)
		if err != nil {
			return nil, apperr.StorageUnavailable("failed to count submissions", err)
		}
		responses[i].SubmissionsCount = count
	}

	return responses, nil
}

// Get returns the assignment together with the submissions the caller may
// see. Ownership failures on the submission side degrade the view instead of
// denying it: a non-owning trainer receives the assignment with an empty
// submissions slice, a student sees only their own entry.
func (s *assignmentService) Get(ctx context.Context, actor authz.Actor, id uint) (dto.AssignmentDetailResponse, error) {
	assignment, err := s.loadAssignment(ctx, id)
	if err != nil {
		return dto.AssignmentDetailResponse{}, err
	}

	if decision := authz.Authorize(actor, authz.ActionReadAssignment, authz.Target{}); !decision.Allowed {
		return dto.AssignmentDetailResponse{}, apperr.Forbidden(decision.Reason)
	}

	detail := dto.AssignmentDetailResponse{
		AssignmentResponse: dto.NewAssignmentResponse(assignment),
		Submissions:        []dto.SubmissionResponse{},
	}

	count, err := s.assignments.CountSubmissions(ctx, id)
	if err != nil {
		return dto.AssignmentDetailResponse{}, apperr.StorageUnavailable("failed to count submissions", err)
	}
	detail.SubmissionsCount = count

	target := authz.Target{
		InstructorID: assignment.Course.InstructorID,
		StudentID:    actor.ID,
	}

	if decision := authz.Authorize(actor, authz.ActionReadSubmission, target); decision.Allowed {
		filter := repository.SubmissionFilter{AssignmentID: &assignment.ID}
		if actor.Role == models.RoleStudent {
			filter.StudentID = &actor.ID
		}

		submissions, err := s.submissions.List(ctx, filter)
		if err != nil {
			return dto.AssignmentDetailResponse{}, apperr.StorageUnavailable("failed to list submissions", err)
		}
		detail.Submissions = dto.NewSubmissionResponseSlice(submissions)
	}

	return detail, nil
}

func (s *assignmentService) Create(ctx context.Context, actor authz.Actor, payload dto.AssignmentCreateRequest) (dto.AssignmentResponse, error) {
	// Role precedes existence: a student probing course IDs is refused
	// before the course lookup runs.
	if decision := authz.Authorize(actor, authz.ActionCreateAssignment, authz.Target{InstructorID: actor.ID}); !decision.Allowed {
		return dto.AssignmentResponse{}, apperr.Forbidden(decision.Reason)
	}

	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, err
	}

	course, err := s.courses.GetByID(ctx, payload.CourseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AssignmentResponse{}, apperr.NotFound("course not found")
		}
		return dto.AssignmentResponse{}, apperr.StorageUnavailable("failed to load course", err)
	}

	if decision := authz.Authorize(actor, authz.ActionCreateAssignment, authz.Target{InstructorID: course.InstructorID}); !decision.Allowed {
		return dto.AssignmentResponse{}, apperr.Forbidden(decision.Reason)
	}

	dueDate, err := parseDueDate(payload.DueDate)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	maxScore := payload.MaxScore
	if maxScore == 0 {
		maxScore = defaultMaxScore
	}

	isRequired := true
	if payload.IsRequired != nil {
		isRequired = *payload.IsRequired
	}

	assignment := models.Assignment{
		CourseID:     payload.CourseID,
		Title:        payload.Title,
		Description:  payload.Description,
		Instructions: payload.Instructions,
		MaxScore:     maxScore,
		DueDate:      dueDate,
		IsRequired:   isRequired,
	}

	if err := s.assignments.Create(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, apperr.StorageUnavailable("failed to create assignment", err)
	}

	s.record(ctx, actor, "assignment_created", assignment.ID, map[string]interface{}{"course_id": assignment.CourseID})
	s.logger.Info().Uint("assignment_id", assignment.ID).Uint("course_id", assignment.CourseID).Msg("assignment created")

	return dto.NewAssignmentResponse(assignment), nil
}

func (s *assignmentService) Update(ctx context.Context, actor authz.Actor, id uint, payload dto.AssignmentUpdateRequest) (dto.AssignmentResponse, error) {
	if decision := authz.Authorize(actor, authz.ActionUpdateAssignment, authz.Target{InstructorID: actor.ID}); !decision.Allowed {
		return dto.AssignmentResponse{}, apperr.Forbidden(decision.Reason)
	}

	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, err
	}

	assignment, err := s.loadAssignment(ctx, id)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	if decision := authz.Authorize(actor, authz.ActionUpdateAssignment, authz.Target{InstructorID: assignment.Course.InstructorID}); !decision.Allowed {
		return dto.AssignmentResponse{}, apperr.Forbidden(decision.Reason)
	}

	if payload.Title != nil {
		assignment.Title = *payload.Title
	}
	if payload.Description != nil {
		assignment.Description = *payload.Description
	}
	if payload.Instructions != nil {
		assignment.Instructions = *payload.Instructions
	}
	if payload.MaxScore != nil {
		assignment.MaxScore = *payload.MaxScore
	}
	if payload.IsRequired != nil {
		assignment.IsRequired = *payload.IsRequired
	}
	if payload.DueDate != nil {
		if *payload.DueDate == "" {
			assignment.DueDate = nil
		} else {
			dueDate, err := parseDueDate(payload.DueDate)
			if err != nil {
				return dto.AssignmentResponse{}, err
			}
			assignment.DueDate = dueDate
		}
	}

	if err := s.assignments.Update(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, apperr.StorageUnavailable("failed to update assignment", err)
	}

	s.record(ctx, actor, "assignment_updated", assignment.ID, nil)

	return dto.NewAssignmentResponse(assignment), nil
}

func (s *assignmentService) Delete(ctx context.Context, actor authz.Actor, id uint) error {
	if decision := authz.Authorize(actor, authz.ActionDeleteAssignment, authz.Target{InstructorID: actor.ID}); !decision.Allowed {
		return apperr.Forbidden(decision.Reason)
	}

	assignment, err := s.loadAssignment(ctx, id)
	if err != nil {
		return err
	}

	if decision := authz.Authorize(actor, authz.ActionDeleteAssignment, authz.Target{InstructorID: assignment.Course.InstructorID}); !decision.Allowed {
		return apperr.Forbidden(decision.Reason)
	}

	if err := s.assignments.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("assignment not found")
		}
		return apperr.StorageUnavailable("failed to delete assignment", err)
	}

	s.record(ctx, actor, "assignment_deleted", id, map[string]interface{}{"title": assignment.Title})
	s.logger.Info().Uint("assignment_id", id).Msg("assignment deleted")

	return nil
}

func (s *assignmentService) loadAssignment(ctx context.Context, id uint) (models.Assignment, error) {
	assignment, err := s.assignments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Assignment{}, apperr.NotFound("assignment not found")
		}
		return models.Assignment{}, apperr.StorageUnavailable("failed to load assignment", err)
	}
	return assignment, nil
}

func (s *assignmentService) record(ctx context.Context, actor authz.Actor, action string, entityID uint, metadata map[string]interface{}) {
	if s.activity == nil {
		return
	}

	id := entityID
	s.activity.Record(ctx, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     action,
		EntityType: "assignment",
		EntityID:   &id,
		Metadata:   metadata,
	})
}

func parseDueDate(value *string) (*time.Time, error) {
	if value == nil || *value == "" {
		return nil, nil
	}

	parsed, err := time.Parse(time.RFC3339, *value)
	if err != nil {
		return nil, apperr.Validation("due_date must be an RFC 3339 timestamp")
	}

	return &parsed, nil
}
