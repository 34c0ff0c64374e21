package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/innotech/lms-api/internal/apperr"
	"github.com/innotech/lms-api/internal/dto"
	"github.com/innotech/lms-api/internal/models"
	"github.com/innotech/lms-api/internal/repository"
)

type assignmentFixture struct {
	db       *gorm.DB
	service  AssignmentService
	recorder *recorderStub

	trainerA models.User
	trainerB models.User
	student  models.User
	admin    models.User
	course   models.Course
}

func newAssignmentFixture(t *testing.T) assignmentFixture {
	t.Helper()

	db := newTestDB(t)
	recorder := &recorderStub{}

	trainerA := createUser(t, db, "trainer-a@example.com", models.RoleTrainer)

	svc := NewAssignmentService(
		repository.NewAssignmentRepository(db),
		repository.NewCourseRepository(db),
		repository.NewSubmissionRepository(db),
		newTestValidator(),
		recorder,
		testLogger(),
	)

	return assignmentFixture{
		db:       db,
		service:  svc,
		recorder: recorder,
		trainerA: trainerA,
		trainerB: createUser(t, db, "trainer-b@example.com", models.RoleTrainer),
		student:  createUser(t, db, "student@example.com", models.RoleStudent),
		admin:    createUser(t, db, "admin@example.com", models.RoleAdmin),
		course:   createCourse(t, db, trainerA.ID, models.CourseStatusPublished),
	}
}

func TestAssignmentCreate(t *testing.T) {
	f := newAssignmentFixture(t)
	ctx := context.Background()

	due := time.Now().Add(72 * time.Hour).UTC().Format(time.RFC3339)
	created, err := f.service.Create(ctx, actorFor(f.trainerA), dto.AssignmentCreateRequest{
		CourseID: f.course.ID,
		Title:    "Project milestone",
		DueDate:  &due,
	})
	require.NoError(t, err)
	require.Equal(t, 100, created.MaxScore)
	require.True(t, created.IsRequired)
	require.NotNil(t, created.DueDate)
	require.Contains(t, f.recorder.actions(), "assignment_created")
}

func TestAssignmentCreateOwnershipAndRolePrecedence(t *testing.T) {
	f := newAssignmentFixture(t)
	ctx := context.Background()

	_, err := f.service.Create(ctx, actorFor(f.trainerB), dto.AssignmentCreateRequest{
		CourseID: f.course.ID,
		Title:    "Nope",
	})
	require.True(t, apperr.IsKind(err, apperr.KindForbidden))
	require.Contains(t, err.Error(), "not owning instructor")

	// Students are refused by role before the course lookup, so a bogus
	// course ID yields the same denial, not a 404.
	_, err = f.service.Create(ctx, actorFor(f.student), dto.AssignmentCreateRequest{
		CourseID: 9999,
		Title:    "Nope",
	})
	require.True(t, apperr.IsKind(err, apperr.KindForbidden))
	require.Contains(t, err.Error(), "role not permitted")

	_, err = f.service.Create(ctx, actorFor(f.trainerA), dto.AssignmentCreateRequest{
		CourseID: 9999,
		Title:    "Nope",
	})
	require.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestAssignmentCreateRejectsBadDueDate(t *testing.T) {
	f := newAssignmentFixture(t)

	due := "next tuesday"
	_, err := f.service.Create(context.Background(), actorFor(f.trainerA), dto.AssignmentCreateRequest{
		CourseID: f.course.ID,
		Title:    "Worksheet",
		DueDate:  &due,
	})
	require.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestAssignmentDetailDegradesForNonOwningTrainer(t *testing.T) {
	f := newAssignmentFixture(t)
	ctx := context.Background()

	assignment := createAssignment(t, f.db, f.course.ID, 100)
	peer := createUser(t, f.db, "peer@example.com", models.RoleStudent)
	require.NoError(t, f.db.Create(&models.Submission{
		AssignmentID: assignment.ID, StudentID: f.student.ID, Content: "mine", Status: models.SubmissionStatusSubmitted,
	}).Error)
	require.NoError(t, f.db.Create(&models.Submission{
		AssignmentID: assignment.ID, StudentID: peer.ID, Content: "theirs", Status: models.SubmissionStatusSubmitted,
	}).Error)

	// Non-owning trainer still sees the assignment, with submissions
	// emptied and the count intact.
	detail, err := f.service.Get(ctx, actorFor(f.trainerB), assignment.ID)
	require.NoError(t, err)
	require.Equal(t, assignment.ID, detail.ID)
	require.Empty(t, detail.Submissions)
	require.EqualValues(t, 2, detail.SubmissionsCount)

	// Owning trainer sees everything.
	detail, err = f.service.Get(ctx, actorFor(f.trainerA), assignment.ID)
	require.NoError(t, err)
	require.Len(t, detail.Submissions, 2)

	// Students see only their own entry.
	detail, err = f.service.Get(ctx, actorFor(f.student), assignment.ID)
	require.NoError(t, err)
	require.Len(t, detail.Submissions, 1)
	require.Equal(t, f.student.ID, detail.Submissions[0].StudentID)

	// Admin sees everything.
	detail, err = f.service.Get(ctx, actorFor(f.admin), assignment.ID)
	require.NoError(t, err)
	require.Len(t, detail.Submissions, 2)
}

func TestAssignmentUpdate(t *testing.T) {
	f := newAssignmentFixture(t)
	ctx := context.Background()

	assignment := createAssignment(t, f.db, f.course.ID, 100)

	title := "Revised milestone"
	maxScore := 50
	updated, err := f.service.Update(ctx, actorFor(f.trainerA), assignment.ID, dto.AssignmentUpdateRequest{
		Title:    &title,
		MaxScore: &maxScore,
	})
	require.NoError(t, err)
	require.Equal(t, "Revised milestone", updated.Title)
	require.Equal(t, 50, updated.MaxScore)

	_, err = f.service.Update(ctx, actorFor(f.trainerB), assignment.ID, dto.AssignmentUpdateRequest{Title: &title})
	require.True(t, apperr.IsKind(err, apperr.KindForbidden))
}

func TestAssignmentUpdateClearsDueDate(t *testing.T) {
	f := newAssignmentFixture(t)
	ctx := context.Background()

	due := time.Now().Add(24 * time.Hour)
	assignment := models.Assignment{CourseID: f.course.ID, Title: "Timed", MaxScore: 100, DueDate: &due}
	require.NoError(t, f.db.Create(&assignment).Error)

	empty := ""
	updated, err := f.service.Update(ctx, actorFor(f.trainerA), assignment.ID, dto.AssignmentUpdateRequest{DueDate: &empty})
	require.NoError(t, err)
	require.Nil(t, updated.DueDate)
}

func TestAssignmentDelete(t *testing.T) {
	f := newAssignmentFixture(t)
	ctx := context.Background()

	assignment := createAssignment(t, f.db, f.course.ID, 100)
	require.NoError(t, f.db.Create(&models.Submission{
		AssignmentID: assignment.ID, StudentID: f.student.ID, Content: "work", Status: models.SubmissionStatusSubmitted,
	}).Error)

	require.NoError(t, f.service.Delete(ctx, actorFor(f.trainerA), assignment.ID))

	var count int64
	require.NoError(t, f.db.Model(&models.Submission{}).Count(&count).Error)
	require.Zero(t, count)

	err := f.service.Delete(ctx, actorFor(f.trainerA), assignment.ID)
	require.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestAssignmentListCountsSubmissions(t *testing.T) {
	f := newAssignmentFixture(t)
	ctx := context.Background()

	assignment := createAssignment(t, f.db, f.course.ID, 100)
	require.NoError(t, f.db.Create(&models.Submission{
		AssignmentID: assignment.ID, StudentID: f.student.ID, Content: "work", Status: models.SubmissionStatusSubmitted,
	}).Error)

	listed, err := f.service.List(ctx, actorFor(f.student), dto.AssignmentFilter{CourseID: &f.course.ID})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.EqualValues(t, 1, listed[0].SubmissionsCount)
}
