package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/innotech/lms-api/internal/apperr"
	"github.com/innotech/lms-api/internal/authz"
	"github.com/innotech/lms-api/internal/dto"
	"github.com/innotech/lms-api/internal/models"
	"github.com/innotech/lms-api/internal/repository"
)

// DashboardService produces the student's aggregated progress view.
type DashboardService interface {
	StudentDashboard(ctx context.Context, actor authz.Actor) (dto.StudentDashboardResponse, error)
}

type dashboardService struct {
	enrollments repository.EnrollmentRepository
	assignments repository.AssignmentRepository
	submissions repository.SubmissionRepository
	cache       *redis.Client
	cacheTTL    time.Duration
	logger      zerolog.Logger
	now         func() time.Time
}

// NewDashboardService builds the dashboard aggregator. The redis client is
// optional; without it every request recomputes.
func NewDashboardService(
	enrollments repository.EnrollmentRepository,
	assignments repository.AssignmentRepository,
	submissions repository.SubmissionRepository,
	cache *redis.Client,
	ttl time.Duration,
	logger zerolog.Logger,
) DashboardService {
	return &dashboardService{
		enrollments: enrollments,
		assignments: assignments,
		submissions: submissions,
		cache:       cache,
		cacheTTL:    ttl,
		logger:      logger.With().Str("component", "dashboard_service").Logger(),
		now:         time.Now,
	}
}

func (s *dashboardService) StudentDashboard(ctx context.Context, actor authz.Actor) (dto.StudentDashboardResponse, error) {
	if !actor.Active {
		return dto.StudentDashboardResponse{}, apperr.Forbidden(authz.ReasonInactive)
	}

	cacheKey := fmt.Sprintf("dashboard:student:%d", actor.ID)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var response dto.StudentDashboardResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				s.logger.Debug().Uint("student_id", actor.ID).Msg("dashboard cache hit")
				return response, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read dashboard cache")
		}
	}

	enrollments, err := s.enrollments.ListByUser(ctx, actor.ID)
	if err != nil {
		return dto.StudentDashboardResponse{}, apperr.StorageUnavailable("failed to list enrollments", err)
	}

	var assignments []models.Assignment
	for _, enrollment := range enrollments {
		courseID := enrollment.CourseID
		batch, err := s.assignments.List(ctx, repository.AssignmentFilter{CourseID: &courseID})
		if err != nil {
			return dto.StudentDashboardResponse{}, apperr.StorageUnavailable("failed to list assignments", err)
		}
		assignments = append(assignments, batch...)
	}

	submissions, err := s.submissions.List(ctx, repository.SubmissionFilter{StudentID: &actor.ID})
	if err != nil {
		return dto.StudentDashboardResponse{}, apperr.StorageUnavailable("failed to list submissions", err)
	}

	response := s.buildResponse(assignments, submissions)

	if s.cache != nil {
		if payload, err := json.Marshal(response); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store dashboard cache")
			}
		}
	}

	return response, nil
}

func (s *dashboardService) buildResponse(assignments []models.Assignment, submissions []models.Submission) dto.StudentDashboardResponse {
	now := s.now()

	submissionByAssignment := map[uint]models.Submission{}
	for _, submission := range submissions {
		if _, exists := submissionByAssignment[submission.AssignmentID]; !exists {
			submissionByAssignment[submission.AssignmentID] = submission
		}
	}

	summary := dto.ProgressSummary{}
	progress := make([]dto.AssignmentProgress, 0, len(assignments))
	var scoreTotal float64
	var scoredCount int

	for _, assignment := range assignments {
		summary.TotalAssignments++
		submission, submitted := submissionByAssignment[assignment.ID]
		pastDue := assignment.IsPastDue(now)

		entry := dto.AssignmentProgress{
			AssignmentID: assignment.ID,
			CourseID:     assignment.CourseID,
			Title:        assignment.Title,
			DueDate:      assignment.DueDate,
			Status:       models.SubmissionStatusPending,
		}

		if submitted {
			summary.Submitted++
			entry.Status = submission.Status
			entry.SubmissionID = &submission.ID
			entry.Score = submission.Score
			entry.Feedback = submission.Feedback

			if submission.Reviewed() {
				summary.Reviewed++
				if submission.Score != nil {
					scoreTotal += float64(*submission.Score)
					scoredCount++
				}
			}

			entry.Overdue = pastDue && !submission.Reviewed()
		} else {
			summary.Pending++
			entry.Overdue = pastDue
		}

		if entry.Overdue {
			summary.Overdue++
		}

		progress = append(progress, entry)
	}

	if scoredCount > 0 {
		summary.AverageScore = scoreTotal / float64(scoredCount)
	}

	if summary.TotalAssignments > 0 {
		summary.CompletionRate = float64(summary.Reviewed) / float64(summary.TotalAssignments) * 100
	}

	return dto.StudentDashboardResponse{
		Summary:     summary,
		Assignments: progress,
	}
}
