package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/innotech/lms-api/internal/models"
	"github.com/innotech/lms-api/internal/repository"
)

func newDashboardService(t *testing.T, db *gorm.DB, cache *redis.Client) DashboardService {
	t.Helper()

	return NewDashboardService(
		repository.NewEnrollmentRepository(db),
		repository.NewAssignmentRepository(db),
		repository.NewSubmissionRepository(db),
		cache,
		time.Minute,
		testLogger(),
	)
}

func TestStudentDashboardAggregates(t *testing.T) {
	db := newTestDB(t)
	svc := newDashboardService(t, db, nil)
	ctx := context.Background()

	trainer := createUser(t, db, "trainer@example.com", models.RoleTrainer)
	student := createUser(t, db, "student@example.com", models.RoleStudent)
	course := createCourse(t, db, trainer.ID, models.CourseStatusPublished)
	createEnrollment(t, db, student.ID, course.ID)

	// Assignments in courses the student has not joined stay invisible.
	otherCourse := createCourse(t, db, trainer.ID, models.CourseStatusPublished)
	createAssignment(t, db, otherCourse.ID, 100)

	graded := createAssignment(t, db, course.ID, 100)
	submittedOnly := createAssignment(t, db, course.ID, 100)
	createAssignment(t, db, course.ID, 100)

	pastDue := time.Now().Add(-48 * time.Hour)
	overdueAssignment := models.Assignment{CourseID: course.ID, Title: "Late", MaxScore: 100, DueDate: &pastDue}
	require.NoError(t, db.Create(&overdueAssignment).Error)

	reviewedAt := time.Now()
	score := 80
	require.NoError(t, db.Create(&models.Submission{
		AssignmentID: graded.ID, StudentID: student.ID, Content: "done",
		Status: models.SubmissionStatusReviewed, Score: &score, ReviewedAt: &reviewedAt,
	}).Error)
	require.NoError(t, db.Create(&models.Submission{
		AssignmentID: submittedOnly.ID, StudentID: student.ID, Content: "waiting",
		Status: models.SubmissionStatusSubmitted,
	}).Error)

	response, err := svc.StudentDashboard(ctx, actorFor(student))
	require.NoError(t, err)

	require.Equal(t, 4, response.Summary.TotalAssignments)
	require.Equal(t, 2, response.Summary.Submitted)
	require.Equal(t, 1, response.Summary.Reviewed)
	require.Equal(t, 2, response.Summary.Pending)
	require.Equal(t, 1, response.Summary.Overdue)
	require.InDelta(t, 80.0, response.Summary.AverageScore, 0.01)
	require.InDelta(t, 25.0, response.Summary.CompletionRate, 0.01)
	require.Len(t, response.Assignments, 4)
}

func TestStudentDashboardServesFromCache(t *testing.T) {
	db := newTestDB(t)

	srv := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = cache.Close() })

	svc := newDashboardService(t, db, cache)
	ctx := context.Background()

	trainer := createUser(t, db, "trainer@example.com", models.RoleTrainer)
	student := createUser(t, db, "student@example.com", models.RoleStudent)
	course := createCourse(t, db, trainer.ID, models.CourseStatusPublished)
	createEnrollment(t, db, student.ID, course.ID)
	createAssignment(t, db, course.ID, 100)

	first, err := svc.StudentDashboard(ctx, actorFor(student))
	require.NoError(t, err)
	require.Equal(t, 1, first.Summary.TotalAssignments)

	// New rows do not appear until the cached entry expires.
	createAssignment(t, db, course.ID, 100)

	second, err := svc.StudentDashboard(ctx, actorFor(student))
	require.NoError(t, err)
	require.Equal(t, 1, second.Summary.TotalAssignments)

	srv.FastForward(2 * time.Minute)

	third, err := svc.StudentDashboard(ctx, actorFor(student))
	require.NoError(t, err)
	require.Equal(t, 2, third.Summary.TotalAssignments)
}
