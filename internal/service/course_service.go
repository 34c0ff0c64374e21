package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/innotech/lms-api/internal/apperr"
	"github.com/innotech/lms-api/internal/authz"
	"github.com/innotech/lms-api/internal/dto"
	"github.com/innotech/lms-api/internal/models"
	"github.com/innotech/lms-api/internal/repository"
)

// CourseService handles the course catalog, enrollments and course modules.
type CourseService interface {
	List(ctx context.Context, actor authz.Actor, filter dto.CourseFilter) ([]dto.CourseResponse, int64, error)
	Get(ctx context.Context, actor authz.Actor, id uint) (dto.CourseResponse, error)
	Create(ctx context.Context, actor authz.Actor, payload dto.CourseCreateRequest) (dto.CourseResponse, error)
	Update(ctx context.Context, actor authz.Actor, id uint, payload dto.CourseUpdateRequest) (dto.CourseResponse, error)
	Delete(ctx context.Context, actor authz.Actor, id uint) error

	Enroll(ctx context.Context, actor authz.Actor, courseID uint) (dto.EnrollmentResponse, error)
	MyEnrollments(ctx context.Context, actor authz.Actor) ([]dto.EnrollmentResponse, error)

	CreateModule(ctx context.Context, actor authz.Actor, courseID uint, payload dto.ModuleCreateRequest) (dto.ModuleResponse, error)
	ListModules(ctx context.Context, actor authz.Actor, courseID uint) ([]dto.ModuleResponse, error)
}

type courseService struct {
	courses     repository.CourseRepository
	enrollments repository.EnrollmentRepository
	validator   *validator.Validate
	sanitizer   *bluemonday.Policy
	activity    ActivityRecorder
	logger      zerolog.Logger
	now         func() time.Time
}

// NewCourseService constructs the course service. Module content passes
// through a UGC sanitizer before it is stored.
func NewCourseService(
	courses repository.CourseRepository,
	enrollments repository.EnrollmentRepository,
	validate *validator.Validate,
	activity ActivityRecorder,
	logger zerolog.Logger,
) CourseService {
	return &courseService{
		courses:     courses,
		enrollments: enrollments,
		validator:   validate,
		sanitizer:   bluemonday.UGCPolicy(),
		activity:    activity,
		logger:      logger.With().Str("component", "course_service").Logger(),
		now:         time.Now,
	}
}

func (s *courseService) List(ctx context.Context, actor authz.Actor, filter dto.CourseFilter) ([]dto.CourseResponse, int64, error) {
	if err := s.validator.Struct(filter); err != nil {
		return nil, 0, err
	}

	repoFilter := repository.CourseFilter{Page: filter.Page, PageSize: filter.PageSize}

	if actor.Role == models.RoleAdmin {
		if filter.Status != nil {
			status, err := models.ParseCourseStatus(*filter.Status)
			if err != nil {
				return nil, 0, apperr.Validation(err.Error())
			}
			repoFilter.Status = &status
		}
	} else {
		// The catalog only shows published courses to non-admins; trainers
		// reach their own drafts through the detail endpoint.
		published := models.CourseStatusPublished
		repoFilter.Status = &published
	}

	courses, total, err := s.courses.List(ctx, repoFilter)
	if err != nil {
		return nil, 0, apperr.StorageUnavailable("failed to list courses", err)
	}

	return dto.NewCourseResponseSlice(courses), total, nil
}

func (s *courseService) Get(ctx context.Context, actor authz.Actor, id uint) (dto.CourseResponse, error) {
	course, err := s.loadCourse(ctx, id)
	if err != nil {
		return dto.CourseResponse{}, err
	}

	if !course.IsPublished() && !course.OwnedBy(actor.ID) && actor.Role != models.RoleAdmin {
		// Unpublished courses do not exist for outsiders.
		return dto.CourseResponse{}, apperr.NotFound("course not found")
	}

	return dto.NewCourseResponse(course), nil
}

func (s *courseService) Create(ctx context.Context, actor authz.Actor, payload dto.CourseCreateRequest) (dto.CourseResponse, error) {
	if decision := authz.Authorize(actor, authz.ActionCreateCourse, authz.Target{}); !decision.Allowed {
		return dto.CourseResponse{}, apperr.Forbidden(decision.Reason)
	}

	if err := s.validator.Struct(payload); err != nil {
		return dto.CourseResponse{}, err
	}

	status := models.CourseStatusDraft
	if payload.Status != "" {
		parsed, err := models.ParseCourseStatus(payload.Status)
		if err != nil {
			return dto.CourseResponse{}, apperr.Validation(err.Error())
		}
		status = parsed
	}

	course := models.Course{
		Title:            payload.Title,
		Description:      payload.Description,
		ShortDescription: payload.ShortDescription,
		ThumbnailURL:     payload.ThumbnailURL,
		InstructorID:     actor.ID,
		Status:           status,
		DurationHours:    payload.DurationHours,
	}

	if err := s.courses.Create(ctx, &course); err != nil {
		return dto.CourseResponse{}, apperr.StorageUnavailable("failed to create course", err)
	}

	s.record(ctx, actor, "course_created", "course", course.ID, map[string]interface{}{"title": course.Title})
	s.logger.Info().Uint("course_id", course.ID).Uint("instructor_id", actor.ID).Msg("course created")

	return dto.NewCourseResponse(course), nil
}

func (s *courseService) Update(ctx context.Context, actor authz.Actor, id uint, payload dto.CourseUpdateRequest) (dto.CourseResponse, error) {
	// A student is refused for lack of role before the course is even looked
	// up, so probing IDs leaks nothing.
	if decision := authz.Authorize(actor, authz.ActionUpdateCourse, authz.Target{InstructorID: actor.ID}); !decision.Allowed {
		return dto.CourseResponse{}, apperr.Forbidden(decision.Reason)
	}

	if err := s.validator.Struct(payload); err != nil {
		return dto.CourseResponse{}, err
	}

	course, err := s.loadCourse(ctx, id)
	if err != nil {
		return dto.CourseResponse{}, err
	}

	if decision := authz.Authorize(actor, authz.ActionUpdateCourse, authz.Target{InstructorID: course.InstructorID}); !decision.Allowed {
		return dto.CourseResponse{}, apperr.Forbidden(decision.Reason)
	}

	if payload.Title != nil {
		course.Title = *payload.Title
	}
	if payload.Description != nil {
		course.Description = *payload.Description
	}
	if payload.ShortDescription != nil {
		course.ShortDescription = *payload.ShortDescription
	}
	if payload.ThumbnailURL != nil {
		course.ThumbnailURL = *payload.ThumbnailURL
	}
	if payload.DurationHours != nil {
		course.DurationHours = *payload.DurationHours
	}
	if payload.Status != nil {
		status, err := models.ParseCourseStatus(*payload.Status)
		if err != nil {
			return dto.CourseResponse{}, apperr.Validation(err.Error())
		}
		course.Status = status
	}

	if err := s.courses.Update(ctx, &course); err != nil {
		return dto.CourseResponse{}, apperr.StorageUnavailable("failed to update course", err)
	}

	s.record(ctx, actor, "course_updated", "course", course.ID, nil)

	return dto.NewCourseResponse(course), nil
}

func (s *courseService) Delete(ctx context.Context, actor authz.Actor, id uint) error {
	if decision := authz.Authorize(actor, authz.ActionDeleteCourse, authz.Target{InstructorID: actor.ID}); !decision.Allowed {
		return apperr.Forbidden(decision.Reason)
	}

	course, err := s.loadCourse(ctx, id)
	if err != nil {
		return err
	}

	if decision := authz.Authorize(actor, authz.ActionDeleteCourse, authz.Target{InstructorID: course.InstructorID}); !decision.Allowed {
		return apperr.Forbidden(decision.Reason)
	}

	if err := s.courses.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("course not found")
		}
		return apperr.StorageUnavailable("failed to delete course", err)
	}

	s.record(ctx, actor, "course_deleted", "course", id, map[string]interface{}{"title": course.Title})
	s.logger.Info().Uint("course_id", id).Msg("course deleted")

	return nil
}

func (s *courseService) Enroll(ctx context.Context, actor authz.Actor, courseID uint) (dto.EnrollmentResponse, error) {
	if decision := authz.Authorize(actor, authz.ActionEnroll, authz.Target{}); !decision.Allowed {
		return dto.EnrollmentResponse{}, apperr.Forbidden(decision.Reason)
	}

	course, err := s.loadCourse(ctx, courseID)
	if err != nil {
		return dto.EnrollmentResponse{}, err
	}

	if !course.IsPublished() {
		return dto.EnrollmentResponse{}, apperr.Validation("course is not open for enrollment")
	}

	enrollment := models.Enrollment{
		UserID:   actor.ID,
		CourseID: courseID,
		Status:   models.EnrollmentStatusActive,
	}

	if err := s.enrollments.Create(ctx, &enrollment); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return dto.EnrollmentResponse{}, apperr.Conflict("already enrolled in this course")
		}
		return dto.EnrollmentResponse{}, apperr.StorageUnavailable("failed to enroll", err)
	}

	s.record(ctx, actor, "course_enrolled", "course", courseID, nil)
	s.logger.Info().Uint("course_id", courseID).Uint("user_id", actor.ID).Msg("user enrolled")

	return dto.NewEnrollmentResponse(enrollment), nil
}

func (s *courseService) MyEnrollments(ctx context.Context, actor authz.Actor) ([]dto.EnrollmentResponse, error) {
	enrollments, err := s.enrollments.ListByUser(ctx, actor.ID)
	if err != nil {
		return nil, apperr.StorageUnavailable("failed to list enrollments", err)
	}
	return dto.NewEnrollmentResponseSlice(enrollments), nil
}

func (s *courseService) CreateModule(ctx context.Context, actor authz.Actor, courseID uint, payload dto.ModuleCreateRequest) (dto.ModuleResponse, error) {
	if decision := authz.Authorize(actor, authz.ActionCreateModule, authz.Target{InstructorID: actor.ID}); !decision.Allowed {
		return dto.ModuleResponse{}, apperr.Forbidden(decision.Reason)
	}

	if err := s.validator.Struct(payload); err != nil {
		return dto.ModuleResponse{}, err
	}

	course, err := s.loadCourse(ctx, courseID)
	if err != nil {
		return dto.ModuleResponse{}, err
	}

	if decision := authz.Authorize(actor, authz.ActionCreateModule, authz.Target{InstructorID: course.InstructorID}); !decision.Allowed {
		return dto.ModuleResponse{}, apperr.Forbidden(decision.Reason)
	}

	module := models.Module{
		CourseID:        courseID,
		Title:           payload.Title,
		Description:     payload.Description,
		Content:         s.sanitizer.Sanitize(payload.Content),
		VideoURL:        payload.VideoURL,
		OrderIndex:      payload.OrderIndex,
		DurationMinutes: payload.DurationMinutes,
		IsPublished:     payload.IsPublished,
	}

	if err := s.courses.CreateModule(ctx, &module); err != nil {
		return dto.ModuleResponse{}, apperr.StorageUnavailable("failed to create module", err)
	}

	s.record(ctx, actor, "module_created", "module", module.ID, map[string]interface{}{"course_id": courseID})

	return dto.NewModuleResponse(module), nil
}

func (s *courseService) ListModules(ctx context.Context, actor authz.Actor, courseID uint) ([]dto.ModuleResponse, error) {
	course, err := s.loadCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	enrolled, err := s.enrollments.Exists(ctx, actor.ID, courseID)
	if err != nil {
		return nil, apperr.StorageUnavailable("failed to check enrollment", err)
	}

	// The enrollment gate holds for trainers too: owning a course does not
	// substitute for an enrollment when browsing module content.
	if !authz.CanViewModules(actor, enrolled) {
		return nil, apperr.Forbidden("you are not enrolled in this course")
	}

	publishedOnly := actor.Role != models.RoleAdmin && !course.OwnedBy(actor.ID)

	modules, err := s.courses.ListModules(ctx, courseID, publishedOnly)
	if err != nil {
		return nil, apperr.StorageUnavailable("failed to list modules", err)
	}

	return dto.NewModuleResponseSlice(modules), nil
}

func (s *courseService) loadCourse(ctx context.Context, id uint) (models.Course, error) {
	course, err := s.courses.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Course{}, apperr.NotFound("course not found")
		}
		return models.Course{}, apperr.StorageUnavailable("failed to load course", err)
	}
	return course, nil
}

func (s *courseService) record(ctx context.Context, actor authz.Actor, action, entityType string, entityID uint, metadata map[string]interface{}) {
	if s.activity == nil {
		return
	}

	id := entityID
	s.activity.Record(ctx, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     action,
		EntityType: entityType,
		EntityID:   &id,
		Metadata:   metadata,
	})
}
