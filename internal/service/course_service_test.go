package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/innotech/lms-api/internal/apperr"
	"github.com/innotech/lms-api/internal/dto"
	"github.com/innotech/lms-api/internal/models"
	"github.com/innotech/lms-api/internal/repository"
)

type courseFixture struct {
	db       *gorm.DB
	service  CourseService
	recorder *recorderStub

	trainerA models.User
	trainerB models.User
	student  models.User
	admin    models.User
}

func newCourseFixture(t *testing.T) courseFixture {
	t.Helper()

	db := newTestDB(t)
	recorder := &recorderStub{}

	svc := NewCourseService(
		repository.NewCourseRepository(db),
		repository.NewEnrollmentRepository(db),
		newTestValidator(),
		recorder,
		testLogger(),
	)

	return courseFixture{
		db:       db,
		service:  svc,
		recorder: recorder,
		trainerA: createUser(t, db, "trainer-a@example.com", models.RoleTrainer),
		trainerB: createUser(t, db, "trainer-b@example.com", models.RoleTrainer),
		student:  createUser(t, db, "student@example.com", models.RoleStudent),
		admin:    createUser(t, db, "admin@example.com", models.RoleAdmin),
	}
}

func TestCourseCreateTrainerOnly(t *testing.T) {
	f := newCourseFixture(t)
	ctx := context.Background()

	created, err := f.service.Create(ctx, actorFor(f.trainerA), dto.CourseCreateRequest{Title: "Go Basics"})
	require.NoError(t, err)
	require.Equal(t, f.trainerA.ID, created.InstructorID)
	require.Equal(t, models.CourseStatusDraft, created.Status)

	_, err = f.service.Create(ctx, actorFor(f.student), dto.CourseCreateRequest{Title: "Nope"})
	require.True(t, apperr.IsKind(err, apperr.KindForbidden))
}

func TestCourseUpdateOwnership(t *testing.T) {
	f := newCourseFixture(t)
	ctx := context.Background()

	course := createCourse(t, f.db, f.trainerA.ID, models.CourseStatusDraft)

	title := "Renamed"
	updated, err := f.service.Update(ctx, actorFor(f.trainerA), course.ID, dto.CourseUpdateRequest{Title: &title})
	require.NoError(t, err)
	require.Equal(t, "Renamed", updated.Title)

	_, err = f.service.Update(ctx, actorFor(f.trainerB), course.ID, dto.CourseUpdateRequest{Title: &title})
	require.True(t, apperr.IsKind(err, apperr.KindForbidden))

	// Admin bypasses ownership.
	status := "published"
	published, err := f.service.Update(ctx, actorFor(f.admin), course.ID, dto.CourseUpdateRequest{Status: &status})
	require.NoError(t, err)
	require.Equal(t, models.CourseStatusPublished, published.Status)
}

// Students are refused for lack of role before the course is looked up, so
// missing and existing IDs are indistinguishable to them.
func TestCourseUpdateRoleDenialPrecedesLookup(t *testing.T) {
	f := newCourseFixture(t)

	title := "x"
	_, err := f.service.Update(context.Background(), actorFor(f.student), 9999, dto.CourseUpdateRequest{Title: &title})
	require.True(t, apperr.IsKind(err, apperr.KindForbidden))
	require.Contains(t, err.Error(), "role not permitted")
}

func TestCourseGetHidesDraftsFromOutsiders(t *testing.T) {
	f := newCourseFixture(t)
	ctx := context.Background()

	draft := createCourse(t, f.db, f.trainerA.ID, models.CourseStatusDraft)

	_, err := f.service.Get(ctx, actorFor(f.student), draft.ID)
	require.True(t, apperr.IsKind(err, apperr.KindNotFound))

	_, err = f.service.Get(ctx, actorFor(f.trainerB), draft.ID)
	require.True(t, apperr.IsKind(err, apperr.KindNotFound))

	got, err := f.service.Get(ctx, actorFor(f.trainerA), draft.ID)
	require.NoError(t, err)
	require.Equal(t, draft.ID, got.ID)

	_, err = f.service.Get(ctx, actorFor(f.admin), draft.ID)
	require.NoError(t, err)
}

func TestCourseListForcesPublishedForNonAdmins(t *testing.T) {
	f := newCourseFixture(t)
	ctx := context.Background()

	createCourse(t, f.db, f.trainerA.ID, models.CourseStatusDraft)
	published := createCourse(t, f.db, f.trainerA.ID, models.CourseStatusPublished)

	courses, total, err := f.service.List(ctx, actorFor(f.student), dto.CourseFilter{})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Len(t, courses, 1)
	require.Equal(t, published.ID, courses[0].ID)

	_, total, err = f.service.List(ctx, actorFor(f.admin), dto.CourseFilter{})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
}

func TestEnroll(t *testing.T) {
	f := newCourseFixture(t)
	ctx := context.Background()

	course := createCourse(t, f.db, f.trainerA.ID, models.CourseStatusPublished)

	enrollment, err := f.service.Enroll(ctx, actorFor(f.student), course.ID)
	require.NoError(t, err)
	require.Equal(t, f.student.ID, enrollment.UserID)
	require.Equal(t, models.EnrollmentStatusActive, enrollment.Status)
	require.Contains(t, f.recorder.actions(), "course_enrolled")

	_, err = f.service.Enroll(ctx, actorFor(f.student), course.ID)
	require.True(t, apperr.IsKind(err, apperr.KindConflict))
	require.Contains(t, err.Error(), "already enrolled")
}

func TestEnrollRejectsUnpublishedCourse(t *testing.T) {
	f := newCourseFixture(t)

	draft := createCourse(t, f.db, f.trainerA.ID, models.CourseStatusDraft)

	_, err := f.service.Enroll(context.Background(), actorFor(f.student), draft.ID)
	require.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestListModulesEnrollmentGate(t *testing.T) {
	f := newCourseFixture(t)
	ctx := context.Background()

	course := createCourse(t, f.db, f.trainerA.ID, models.CourseStatusPublished)
	require.NoError(t, f.db.Create(&models.Module{CourseID: course.ID, Title: "Intro", IsPublished: true}).Error)
	require.NoError(t, f.db.Create(&models.Module{CourseID: course.ID, Title: "Draft notes", IsPublished: false}).Error)

	_, err := f.service.ListModules(ctx, actorFor(f.student), course.ID)
	require.True(t, apperr.IsKind(err, apperr.KindForbidden))
	require.Contains(t, err.Error(), "not enrolled")

	createEnrollment(t, f.db, f.student.ID, course.ID)
	modules, err := f.service.ListModules(ctx, actorFor(f.student), course.ID)
	require.NoError(t, err)
	require.Len(t, modules, 1)
	require.Equal(t, "Intro", modules[0].Title)

	// Owning the course does not substitute for an enrollment.
	_, err = f.service.ListModules(ctx, actorFor(f.trainerA), course.ID)
	require.True(t, apperr.IsKind(err, apperr.KindForbidden))

	// Enrolled owner sees drafts too.
	createEnrollment(t, f.db, f.trainerA.ID, course.ID)
	all, err := f.service.ListModules(ctx, actorFor(f.trainerA), course.ID)
	require.NoError(t, err)
	require.Len(t, all, 2)

	// Admin passes the gate without enrolling.
	adminView, err := f.service.ListModules(ctx, actorFor(f.admin), course.ID)
	require.NoError(t, err)
	require.Len(t, adminView, 2)
}

func TestCreateModuleSanitizesContent(t *testing.T) {
	f := newCourseFixture(t)
	ctx := context.Background()

	course := createCourse(t, f.db, f.trainerA.ID, models.CourseStatusPublished)

	module, err := f.service.CreateModule(ctx, actorFor(f.trainerA), course.ID, dto.ModuleCreateRequest{
		Title:   "Lesson",
		Content: `<p>hello</p><script>alert("x")</script>`,
	})
	require.NoError(t, err)
	require.Contains(t, module.Content, "<p>hello</p>")
	require.NotContains(t, module.Content, "<script>")

	_, err = f.service.CreateModule(ctx, actorFor(f.trainerB), course.ID, dto.ModuleCreateRequest{Title: "Nope"})
	require.True(t, apperr.IsKind(err, apperr.KindForbidden))
}

func TestCourseDeleteCascades(t *testing.T) {
	f := newCourseFixture(t)
	ctx := context.Background()

	course := createCourse(t, f.db, f.trainerA.ID, models.CourseStatusPublished)
	assignment := createAssignment(t, f.db, course.ID, 100)
	require.NoError(t, f.db.Create(&models.Submission{
		AssignmentID: assignment.ID, StudentID: f.student.ID, Content: "work", Status: models.SubmissionStatusSubmitted,
	}).Error)

	require.NoError(t, f.service.Delete(ctx, actorFor(f.trainerA), course.ID))

	var count int64
	require.NoError(t, f.db.Model(&models.Submission{}).Count(&count).Error)
	require.Zero(t, count)
	require.NoError(t, f.db.Model(&models.Assignment{}).Count(&count).Error)
	require.Zero(t, count)

	err := f.service.Delete(ctx, actorFor(f.trainerA), course.ID)
	require.True(t, apperr.IsKind(err, apperr.KindNotFound))
}
