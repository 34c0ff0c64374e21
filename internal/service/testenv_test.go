package service

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/innotech/lms-api/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
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

	return db
}

func newTestValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func createUser(t *testing.T, db *gorm.DB, email string, role models.Role) models.User {
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

func createCourse(t *testing.T, db *gorm.DB, instructorID uint, status models.CourseStatus) models.Course {
	t.Helper()

	course := models.Course{
		Title:        "Distributed Systems",
		InstructorID: instructorID,
		Status:       status,
	}
	require.NoError(t, db.Create(&course).Error)
	return course
}

func createAssignment(t *testing.T, db *gorm.DB, courseID uint, maxScore int) models.Assignment {
	t.Helper()

	assignment := models.Assignment{
		CourseID:   courseID,
		Title:      "Worksheet",
		MaxScore:   maxScore,
		IsRequired: true,
	}
	require.NoError(t, db.Create(&assignment).Error)
	return assignment
}

func createEnrollment(t *testing.T, db *gorm.DB, userID, courseID uint) models.Enrollment {
	t.Helper()

	enrollment := models.Enrollment{
		UserID:   userID,
		CourseID: courseID,
		Status:   models.EnrollmentStatusActive,
	}
	require.NoError(t, db.Create(&enrollment).Error)
	return enrollment
}

// recorderStub captures activity entries for assertions.
type recorderStub struct {
	mu      sync.Mutex
	entries []ActivityEntry
}

func (r *recorderStub) Record(_ context.Context, entry ActivityEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
}

func (r *recorderStub) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	actions := make([]string, 0, len(r.entries))
	for _, entry := range r.entries {
		actions = append(actions, entry.Action)
	}
	return actions
}
