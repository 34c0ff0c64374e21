package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/innotech/lms-api/internal/config"
	"github.com/innotech/lms-api/internal/dto"
	"github.com/innotech/lms-api/internal/handler"
	"github.com/innotech/lms-api/internal/models"
	"github.com/innotech/lms-api/internal/repository"
	"github.com/innotech/lms-api/internal/router"
	"github.com/innotech/lms-api/internal/service"
)

// session drives the stubbed auth middleware so tests can switch the acting
// user between requests.
type session struct {
	id     uint
	role   models.Role
	active bool
}

func (s *session) as(user models.User) {
	s.id = user.ID
	s.role = user.Role
	s.active = user.IsActive
}

type fakeFileStore struct{}

func (f *fakeFileStore) Upload(_ context.Context, name string, _ io.Reader) (string, error) {
	return "https://files.test/" + name, nil
}

func (f *fakeFileStore) Delete(_ context.Context, _ string) (bool, error) {
	return true, nil
}

func setupApp(t *testing.T) (*fiber.App, *gorm.DB, *session) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Course{},
		&models.Module{},
		&models.Enrollment{},
		&models.Assignment{},
		&models.Submission{},
		&models.ActivityLog{},
	))

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)

	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	recorder := service.NewActivityService(activityRepo, nil, "lms.events", logger)
	courseService := service.NewCourseService(courseRepo, enrollmentRepo, validate, recorder, logger)
	assignmentService := service.NewAssignmentService(assignmentRepo, courseRepo, submissionRepo, validate, recorder, logger)
	submissionService := service.NewSubmissionService(submissionRepo, assignmentRepo, &fakeFileStore{}, validate, recorder, logger)

	app := fiber.New()
	current := &session{}
	router.Register(app, config.Config{AppName: "lms-test"}, router.Dependencies{
		CourseHandler:     handler.NewCourseHandler(courseService, logger),
		AssignmentHandler: handler.NewAssignmentHandler(assignmentService, logger),
		SubmissionHandler: handler.NewSubmissionHandler(submissionService, logger),
		JWTMiddleware: func(c *fiber.Ctx) error {
			c.Locals("user_id", current.id)
			c.Locals("user_role", string(current.role))
			c.Locals("user_active", current.active)
			return c.Next()
		},
	})

	return app, db, current
}

func seedUser(t *testing.T, db *gorm.DB, email string, role models.Role) models.User {
	t.Helper()

	user := models.User{
		Email:        email,
		PasswordHash: "x",
		FirstName:    "Test",
		LastName:     "User",
		Role:         role,
		IsActive:     true,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()

	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}

func multipartSubmission(t *testing.T, assignmentID uint, content, filename string) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	require.NoError(t, writer.WriteField("assignment_id", strconv.FormatUint(uint64(assignmentID), 10)))
	if content != "" {
		require.NoError(t, writer.WriteField("content", content))
	}
	if filename != "" {
		part, err := writer.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write([]byte("report body"))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	return body, writer.FormDataContentType()
}

func TestSubmissionLifecycle(t *testing.T) {
	app, db, current := setupApp(t)

	trainer := seedUser(t, db, "trainer@example.com", models.RoleTrainer)
	otherTrainer := seedUser(t, db, "other@example.com", models.RoleTrainer)
	student := seedUser(t, db, "student@example.com", models.RoleStudent)

	course := models.Course{Title: "Go 101", InstructorID: trainer.ID, Status: models.CourseStatusPublished}
	require.NoError(t, db.Create(&course).Error)
	assignment := models.Assignment{CourseID: course.ID, Title: "Lab 1", MaxScore: 100}
	require.NoError(t, db.Create(&assignment).Error)

	current.as(student)
	body, contentType := multipartSubmission(t, assignment.ID, "my answer", "report.pdf")
	req := httptest.NewRequest("POST", "/api/v1/submissions", body)
	req.Header.Set("Content-Type", contentType)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var created struct {
		Success bool                   `json:"success"`
		Data    dto.SubmissionResponse `json:"data"`
		Message string                 `json:"message"`
	}
	decodeResponse(t, resp, &created)
	require.True(t, created.Success)
	require.Equal(t, models.SubmissionStatusSubmitted, created.Data.Status)
	require.Contains(t, created.Data.FileURL, "https://files.test/")
	require.Equal(t, "report.pdf", created.Data.FileName)
	require.Equal(t, assignment.ID, created.Data.Assignment.ID)

	// A second hand-in for the same assignment is refused.
	body, contentType = multipartSubmission(t, assignment.ID, "again", "")
	req = httptest.NewRequest("POST", "/api/v1/submissions", body)
	req.Header.Set("Content-Type", contentType)
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)

	submissionPath := "/api/v1/submissions/" + strconv.FormatUint(uint64(created.Data.ID), 10)

	// A trainer without the course cannot grade it.
	current.as(otherTrainer)
	gradeBody, err := json.Marshal(map[string]interface{}{"score": 80})
	require.NoError(t, err)
	req = httptest.NewRequest("POST", submissionPath+"/grade", bytes.NewReader(gradeBody))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	current.as(trainer)
	gradeBody, err = json.Marshal(map[string]interface{}{"score": 80, "feedback": "solid work"})
	require.NoError(t, err)
	req = httptest.NewRequest("POST", submissionPath+"/grade", bytes.NewReader(gradeBody))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var graded struct {
		Success bool                   `json:"success"`
		Data    dto.SubmissionResponse `json:"data"`
	}
	decodeResponse(t, resp, &graded)
	require.NotNil(t, graded.Data.Score)
	require.Equal(t, 80, *graded.Data.Score)
	require.Equal(t, "solid work", graded.Data.Feedback)
	require.NotNil(t, graded.Data.ReviewedAt)

	// The student reads the result back.
	current.as(student)
	req = httptest.NewRequest("GET", "/api/v1/submissions", nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var listed struct {
		Success bool                     `json:"success"`
		Data    []dto.SubmissionResponse `json:"data"`
	}
	decodeResponse(t, resp, &listed)
	require.Len(t, listed.Data, 1)
	require.Equal(t, "solid work", listed.Data[0].Feedback)

	// The flow leaves an audit trail behind.
	var auditCount int64
	require.NoError(t, db.Model(&models.ActivityLog{}).Count(&auditCount).Error)
	require.NotZero(t, auditCount)
}

func TestSubmissionCreateRequiresContentOrFile(t *testing.T) {
	app, db, current := setupApp(t)

	trainer := seedUser(t, db, "trainer@example.com", models.RoleTrainer)
	student := seedUser(t, db, "student@example.com", models.RoleStudent)

	course := models.Course{Title: "Go 101", InstructorID: trainer.ID, Status: models.CourseStatusPublished}
	require.NoError(t, db.Create(&course).Error)
	assignment := models.Assignment{CourseID: course.ID, Title: "Lab 1", MaxScore: 100}
	require.NoError(t, db.Create(&assignment).Error)

	current.as(student)
	body, contentType := multipartSubmission(t, assignment.ID, "", "")
	req := httptest.NewRequest("POST", "/api/v1/submissions", body)
	req.Header.Set("Content-Type", contentType)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestSubmissionGradeByStudentForbidden(t *testing.T) {
	app, db, current := setupApp(t)

	trainer := seedUser(t, db, "trainer@example.com", models.RoleTrainer)
	student := seedUser(t, db, "student@example.com", models.RoleStudent)

	course := models.Course{Title: "Go 101", InstructorID: trainer.ID, Status: models.CourseStatusPublished}
	require.NoError(t, db.Create(&course).Error)
	assignment := models.Assignment{CourseID: course.ID, Title: "Lab 1", MaxScore: 100}
	require.NoError(t, db.Create(&assignment).Error)
	submission := models.Submission{
		AssignmentID: assignment.ID, StudentID: student.ID, Content: "work", Status: models.SubmissionStatusSubmitted,
	}
	require.NoError(t, db.Create(&submission).Error)

	current.as(student)
	gradeBody, err := json.Marshal(map[string]interface{}{"score": 100})
	require.NoError(t, err)
	req := httptest.NewRequest("POST", "/api/v1/submissions/"+strconv.FormatUint(uint64(submission.ID), 10)+"/grade", bytes.NewReader(gradeBody))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}
