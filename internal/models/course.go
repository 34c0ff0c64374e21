package models

import (
	"fmt"
	"strings"
	"time"
)

// CourseStatus is the publication state of a course.
type CourseStatus string

const (
	// CourseStatusDraft hides the course from the public catalog.
	CourseStatusDraft CourseStatus = "draft"
	// CourseStatusPublished makes the course visible and enrollable.
	CourseStatusPublished CourseStatus = "published"
	// CourseStatusArchived removes the course from enrollment without deleting it.
	CourseStatusArchived CourseStatus = "archived"
)

// ParseCourseStatus validates a raw course status string.
func ParseCourseStatus(value string) (CourseStatus, error) {
	status := CourseStatus(strings.ToLower(strings.TrimSpace(value)))
	switch status {
	case CourseStatusDraft, CourseStatusPublished, CourseStatusArchived:
		return status, nil
	default:
		return "", fmt.Errorf("unknown course status %q", value)
	}
}

// Course is owned by exactly one trainer via InstructorID. Modules and
// assignments live and die with the course.
type Course struct {
	ID               uint         `gorm:"primaryKey" json:"id"`
	Title            string       `gorm:"size:255;not null" json:"title"`
	Description      string       `gorm:"type:text" json:"description"`
	ShortDescription string       `gorm:"size:500" json:"short_description"`
	ThumbnailURL     string       `gorm:"size:500" json:"thumbnail_url"`
	InstructorID     uint         `gorm:"not null;index" json:"instructor_id"`
	Status           CourseStatus `gorm:"size:32;not null;default:draft" json:"status"`
	DurationHours    int          `json:"duration_hours"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`

	Instructor  User         `gorm:"foreignKey:InstructorID" json:"-"`
	Modules     []Module     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Assignments []Assignment `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// IsPublished reports whether the course is visible to non-owners.
func (c Course) IsPublished() bool {
	return c.Status == CourseStatusPublished
}

// OwnedBy reports whether the given user is the owning instructor.
func (c Course) OwnedBy(userID uint) bool {
	return c.InstructorID == userID
}

// Module is a unit of course content. Visibility to students requires an
// enrollment and is_published; the owning instructor sees drafts too.
type Module struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	CourseID        uint      `gorm:"not null;index" json:"course_id"`
	Title           string    `gorm:"size:255;not null" json:"title"`
	Description     string    `gorm:"type:text" json:"description"`
	Content         string    `gorm:"type:text" json:"content"`
	VideoURL        string    `gorm:"size:500" json:"video_url"`
	OrderIndex      int       `gorm:"not null;default:0" json:"order_index"`
	DurationMinutes int       `json:"duration_minutes"`
	IsPublished     bool      `gorm:"not null;default:false" json:"is_published"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
