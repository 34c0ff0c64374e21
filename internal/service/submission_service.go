package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/innotech/lms-api/internal/apperr"
	"github.com/innotech/lms-api/internal/authz"
	"github.com/innotech/lms-api/internal/dto"
	"github.com/innotech/lms-api/internal/models"
	"github.com/innotech/lms-api/internal/repository"
)

// maxUploadBytes caps submission attachments at 10 MiB.
const maxUploadBytes = 10 << 20

var allowedUploadExts = map[string]struct{}{
	".pdf": {}, ".doc": {}, ".docx": {}, ".txt": {}, ".zip": {},
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {},
}

// FileStore abstracts the blob backend for submission attachments. Delete is
// idempotent: removing an absent object reports false without an error.
type FileStore interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
	Delete(ctx context.Context, name string) (bool, error)
}

// SubmissionService handles the submission lifecycle: hand-in, the student
// edit window, grading and role-scoped reads.
type SubmissionService interface {
	List(ctx context.Context, actor authz.Actor, filter dto.SubmissionFilter) ([]dto.SubmissionResponse, error)
	Get(ctx context.Context, actor authz.Actor, id uint) (dto.SubmissionResponse, error)
	Create(ctx context.Context, actor authz.Actor, payload dto.SubmissionCreateRequest, file *multipart.FileHeader) (dto.SubmissionResponse, error)
	Update(ctx context.Context, actor authz.Actor, id uint, payload dto.SubmissionUpdateRequest) (dto.SubmissionResponse, error)
	Grade(ctx context.Context, actor authz.Actor, id uint, payload dto.GradeRequest) (dto.SubmissionResponse, error)
}

type submissionService struct {
	submissions repository.SubmissionRepository
	assignments repository.AssignmentRepository
	files       FileStore
	validator   *validator.Validate
	sanitizer   *bluemonday.Policy
	activity    ActivityRecorder
	tracer      trace.Tracer
	logger      zerolog.Logger
	now         func() time.Time
}

// NewSubmissionService constructs the submission service. The file store is
// optional; without it uploads are rejected.
func NewSubmissionService(
	submissions repository.SubmissionRepository,
	assignments repository.AssignmentRepository,
	files FileStore,
	validate *validator.Validate,
	activity ActivityRecorder,
	logger zerolog.Logger,
) SubmissionService {
	return &submissionService{
		submissions: submissions,
		assignments: assignments,
		files:       files,
		validator:   validate,
		sanitizer:   bluemonday.StrictPolicy(),
		activity:    activity,
		tracer:      otel.Tracer("lms/submission"),
		logger:      logger.With().Str("component", "submission_service").Logger(),
		now:         time.Now,
	}
}

func (s *submissionService) List(ctx context.Context, actor authz.Actor, filter dto.SubmissionFilter) ([]dto.SubmissionResponse, error) {
	if err := s.validator.Struct(filter); err != nil {
		return nil, err
	}

	repoFilter := repository.SubmissionFilter{AssignmentID: filter.AssignmentID}
	if filter.Status != nil {
		status, err := models.ParseSubmissionStatus(*filter.Status)
		if err != nil {
			return nil, apperr.Validation(err.Error())
		}
		repoFilter.Status = &status
	}

	switch actor.Role {
	case models.RoleStudent:
		// Students only ever see their own submissions, whatever the filter
		// claims.
		repoFilter.StudentID = &actor.ID

	case models.RoleTrainer:
		if filter.AssignmentID == nil {
			return nil, apperr.Validation("assignment_id is required")
		}

		assignment, err := s.loadAssignment(ctx, *filter.AssignmentID)
		if err != nil {
			return nil, err
		}

		target := authz.Target{InstructorID: assignment.Course.InstructorID}
		if decision := authz.Authorize(actor, authz.ActionReadSubmission, target); !decision.Allowed {
			// Non-owning trainers get a degraded, empty view rather than an
			// error.
			return []dto.SubmissionResponse{}, nil
		}

	case models.RoleAdmin:
		repoFilter.StudentID = filter.StudentID

	default:
		return nil, apperr.Forbidden(authz.ReasonRole)
	}

	submissions, err := s.submissions.List(ctx, repoFilter)
	if err != nil {
		return nil, apperr.StorageUnavailable("failed to list submissions", err)
	}

	return dto.NewSubmissionResponseSlice(submissions), nil
}

func (s *submissionService) Get(ctx context.Context, actor authz.Actor, id uint) (dto.SubmissionResponse, error) {
	submission, err := s.loadSubmission(ctx, id)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	target := authz.Target{
		InstructorID: submission.Assignment.Course.InstructorID,
		StudentID:    submission.StudentID,
	}
	if decision := authz.Authorize(actor, authz.ActionReadSubmission, target); !decision.Allowed {
		return dto.SubmissionResponse{}, apperr.Forbidden(decision.Reason)
	}

	return dto.NewSubmissionResponse(submission), nil
}

func (s *submissionService) Create(ctx context.Context, actor authz.Actor, payload dto.SubmissionCreateRequest, file *multipart.FileHeader) (dto.SubmissionResponse, error) {
	if decision := authz.Authorize(actor, authz.ActionCreateSubmission, authz.Target{StudentID: actor.ID}); !decision.Allowed {
		return dto.SubmissionResponse{}, apperr.Forbidden(decision.Reason)
	}

	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}

	content := strings.TrimSpace(payload.Content)
	if content == "" && file == nil {
		return dto.SubmissionResponse{}, apperr.Validation("must provide content or file")
	}

	assignment, err := s.loadAssignment(ctx, payload.AssignmentID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	submission := models.Submission{
		AssignmentID: assignment.ID,
		StudentID:    actor.ID,
		Content:      s.sanitizer.Sanitize(content),
		Status:       models.SubmissionStatusSubmitted,
	}

	var objectName string
	if file != nil {
		url, name, err := s.storeUpload(ctx, assignment.ID, actor.ID, file)
		if err != nil {
			return dto.SubmissionResponse{}, err
		}
		submission.FileURL = url
		submission.FileName = file.Filename
		objectName = name
	}

	if err := s.submissions.Create(ctx, &submission); err != nil {
		if objectName != "" {
			// The row never landed, so the blob is orphaned; best effort.
			if _, delErr := s.files.Delete(ctx, objectName); delErr != nil {
				s.logger.Warn().Err(delErr).Str("object", objectName).Msg("failed to clean up orphaned upload")
			}
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return dto.SubmissionResponse{}, apperr.Conflict("already submitted")
		}
		return dto.SubmissionResponse{}, apperr.StorageUnavailable("failed to create submission", err)
	}

	s.record(ctx, actor, "submission_created", submission.ID, map[string]interface{}{
		"assignment_id": assignment.ID,
	})
	s.logger.Info().
		Uint("submission_id", submission.ID).
		Uint("assignment_id", assignment.ID).
		Uint("student_id", actor.ID).
		Msg("submission created")

	return s.reload(ctx, submission.ID)
}

// Update is the student edit window: only the content field, only while the
// submission is still pending.
func (s *submissionService) Update(ctx context.Context, actor authz.Actor, id uint, payload dto.SubmissionUpdateRequest) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}

	submission, err := s.loadSubmission(ctx, id)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	target := authz.Target{
		InstructorID: submission.Assignment.Course.InstructorID,
		StudentID:    submission.StudentID,
	}
	if decision := authz.Authorize(actor, authz.ActionUpdateSubmission, target); !decision.Allowed {
		return dto.SubmissionResponse{}, apperr.Forbidden(decision.Reason)
	}

	if !submission.Editable() {
		return dto.SubmissionResponse{}, apperr.Conflict("cannot update submitted assignment")
	}

	if payload.Content == nil {
		return dto.SubmissionResponse{}, apperr.Validation("content is required")
	}

	content := s.sanitizer.Sanitize(strings.TrimSpace(*payload.Content))
	if err := s.submissions.UpdateContent(ctx, id, content); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, apperr.NotFound("submission not found")
		}
		return dto.SubmissionResponse{}, apperr.StorageUnavailable("failed to update submission", err)
	}

	return s.reload(ctx, id)
}

// Grade applies score, feedback and/or status in one write. Touching any
// grading field stamps reviewed_at; a score by itself never moves the status.
func (s *submissionService) Grade(ctx context.Context, actor authz.Actor, id uint, payload dto.GradeRequest) (dto.SubmissionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "submission.grade",
		trace.WithAttributes(attribute.Int("submission.id", int(id))))
	defer span.End()

	if decision := authz.Authorize(actor, authz.ActionGradeSubmission, authz.Target{InstructorID: actor.ID}); !decision.Allowed {
		return dto.SubmissionResponse{}, apperr.Forbidden(decision.Reason)
	}

	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}

	if payload.Score == nil && payload.Feedback == nil && payload.Status == nil {
		return dto.SubmissionResponse{}, apperr.Validation("must provide score, feedback or status")
	}

	submission, err := s.loadSubmission(ctx, id)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	target := authz.Target{InstructorID: submission.Assignment.Course.InstructorID}
	if decision := authz.Authorize(actor, authz.ActionGradeSubmission, target); !decision.Allowed {
		return dto.SubmissionResponse{}, apperr.Forbidden(decision.Reason)
	}

	fields := map[string]interface{}{"reviewed_at": s.now()}

	if payload.Score != nil {
		if *payload.Score > submission.Assignment.MaxScore {
			return dto.SubmissionResponse{}, apperr.Validation(
				fmt.Sprintf("score cannot exceed the assignment maximum of %d", submission.Assignment.MaxScore))
		}
		fields["score"] = *payload.Score
	}

	if payload.Feedback != nil {
		fields["feedback"] = *payload.Feedback
	}

	if payload.Status != nil {
		status, err := models.ParseSubmissionStatus(*payload.Status)
		if err != nil {
			return dto.SubmissionResponse{}, apperr.Validation(err.Error())
		}
		fields["status"] = status
	}

	if err := s.submissions.ApplyGrade(ctx, id, fields); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, apperr.NotFound("submission not found")
		}
		return dto.SubmissionResponse{}, apperr.StorageUnavailable("failed to grade submission", err)
	}

	span.SetAttributes(attribute.Int("grader.id", int(actor.ID)))

	s.record(ctx, actor, "submission_graded", id, map[string]interface{}{
		"assignment_id": submission.AssignmentID,
		"student_id":    submission.StudentID,
	})
	s.logger.Info().
		Uint("submission_id", id).
		Uint("grader_id", actor.ID).
		Msg("submission graded")

	return s.reload(ctx, id)
}

// storeUpload validates the attachment and writes it to the blob store under
// a collision-free object name.
func (s *submissionService) storeUpload(ctx context.Context, assignmentID, studentID uint, file *multipart.FileHeader) (url, objectName string, err error) {
	if s.files == nil {
		return "", "", apperr.Validation("file uploads are not enabled")
	}

	if file.Size > maxUploadBytes {
		return "", "", apperr.Validation("file exceeds the 10 MiB limit")
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if _, ok := allowedUploadExts[ext]; !ok {
		return "", "", apperr.Validation(fmt.Sprintf("file type %q is not allowed", ext))
	}

	src, err := file.Open()
	if err != nil {
		return "", "", apperr.Validation("unable to read uploaded file")
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, maxUploadBytes+1))
	if err != nil {
		return "", "", apperr.Validation("unable to read uploaded file")
	}
	if len(data) > maxUploadBytes {
		return "", "", apperr.Validation("file exceeds the 10 MiB limit")
	}

	detected := mimetype.Detect(data)
	objectName = fmt.Sprintf("%d_%d_%s%s", assignmentID, studentID, uuid.NewString()[:8], ext)

	url, err = s.files.Upload(ctx, objectName, bytes.NewReader(data))
	if err != nil {
		return "", "", apperr.StorageUnavailable("failed to store uploaded file", err)
	}

	s.logger.Debug().
		Str("object", objectName).
		Str("mime", detected.String()).
		Int("bytes", len(data)).
		Msg("submission file stored")

	return url, objectName, nil
}

func (s *submissionService) loadSubmission(ctx context.Context, id uint) (models.Submission, error) {
	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Submission{}, apperr.NotFound("submission not found")
		}
		return models.Submission{}, apperr.StorageUnavailable("failed to load submission", err)
	}
	return submission, nil
}

func (s *submissionService) loadAssignment(ctx context.Context, id uint) (models.Assignment, error) {
	assignment, err := s.assignments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Assignment{}, apperr.NotFound("assignment not found")
		}
		return models.Assignment{}, apperr.StorageUnavailable("failed to load assignment", err)
	}
	return assignment, nil
}

func (s *submissionService) reload(ctx context.Context, id uint) (dto.SubmissionResponse, error) {
	submission, err := s.loadSubmission(ctx, id)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}
	return dto.NewSubmissionResponse(submission), nil
}

func (s *submissionService) record(ctx context.Context, actor authz.Actor, action string, entityID uint, metadata map[string]interface{}) {
	if s.activity == nil {
		return
	}

	id := entityID
	s.activity.Record(ctx, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     action,
		EntityType: "submission",
		EntityID:   &id,
		Metadata:   metadata,
	})
}
