package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/innotech/lms-api/internal/models"
)

// CourseFilter narrows catalog queries.
type CourseFilter struct {
	Status       *models.CourseStatus
	InstructorID *uint
	Page         int
	PageSize     int
}

// CourseRepository defines persistence operations for courses and modules.
type CourseRepository interface {
	List(ctx context.Context, filter CourseFilter) ([]models.Course, int64, error)
	GetByID(ctx context.Context, id uint) (models.Course, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id uint) error

	CreateModule(ctx context.Context, module *models.Module) error
	ListModules(ctx context.Context, courseID uint, publishedOnly bool) ([]models.Module, error)
}

type courseRepository struct {
	db *gorm.DB
}

// NewCourseRepository instantiates a GORM-backed repository.
func NewCourseRepository(db *gorm.DB) CourseRepository {
	return &courseRepository{db: db}
}

func (r *courseRepository) List(ctx context.Context, filter CourseFilter) ([]models.Course, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Course{})

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	if filter.InstructorID != nil {
		query = query.Where("instructor_id = ?", *filter.InstructorID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var courses []models.Course
	if err := query.Order("created_at DESC").Find(&courses).Error; err != nil {
		return nil, 0, err
	}

	return courses, total, nil
}

func (r *courseRepository) GetByID(ctx context.Context, id uint) (models.Course, error) {
	var course models.Course
	if err := r.db.WithContext(ctx).First(&course, id).Error; err != nil {
		return models.Course{}, err
	}
	return course, nil
}

func (r *courseRepository) Create(ctx context.Context, course *models.Course) error {
	return r.db.WithContext(ctx).Create(course).Error
}

func (r *courseRepository) Update(ctx context.Context, course *models.Course) error {
	return r.db.WithContext(ctx).Save(course).Error
}

// Delete removes the course and, in the same transaction, the modules,
// assignments and submissions it owns.
func (r *courseRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var assignmentIDs []uint
		if err := tx.Model(&models.Assignment{}).Where("course_id = ?", id).Pluck("id", &assignmentIDs).Error; err != nil {
			return err
		}

		if len(assignmentIDs) > 0 {
			if err := tx.Where("assignment_id IN ?", assignmentIDs).Delete(&models.Submission{}).Error; err != nil {
				return err
			}
		}

		if err := tx.Where("course_id = ?", id).Delete(&models.Assignment{}).Error; err != nil {
			return err
		}

		if err := tx.Where("course_id = ?", id).Delete(&models.Module{}).Error; err != nil {
			return err
		}

		result := tx.Delete(&models.Course{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *courseRepository) CreateModule(ctx context.Context, module *models.Module) error {
	return r.db.WithContext(ctx).Create(module).Error
}

func (r *courseRepository) ListModules(ctx context.Context, courseID uint, publishedOnly bool) ([]models.Module, error) {
	query := r.db.WithContext(ctx).Where("course_id = ?", courseID)
	if publishedOnly {
		query = query.Where("is_published = ?", true)
	}

	var modules []models.Module
	if err := query.Order("order_index ASC").Find(&modules).Error; err != nil {
		return nil, err
	}
	return modules, nil
}
