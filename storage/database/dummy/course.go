package dummydb

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/innoaccess/backend/core/course"
)

type courseRepository struct {
	db *courseTable
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db.course}
}

func (repo *courseRepository) query() []course.Course {
	courses := make([]course.Course, 0, len(repo.db.table))
	for _, c := range repo.db.table {
		courses = append(courses, *c)
	}
	return courses
}

func (repo *courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	crs.ID = uuid.New().String()
	repo.db.table[crs.ID] = &crs
	return crs, nil
}

func (repo *courseRepository) GetCourseByID(ctx context.Context, id string) (course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if crs, ok := repo.db.table[id]; ok {
		return *crs, nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) QueryCourses(ctx context.Context, filter course.QueryFilter) ([]course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	courses := repo.query()

	if filter.Search != "" {
		var filtered []course.Course
		kw := strings.ToLower(filter.Search)
		for _, c := range courses {
			if strings.Contains(strings.ToLower(c.Title), kw) ||
				strings.Contains(strings.ToLower(c.Description), kw) {
				filtered = append(filtered, c)
			}
		}
		courses = filtered
	}
	if filter.Type != "" {
		var filtered []course.Course
		for _, c := range courses {
			if c.Type == filter.Type {
				filtered = append(filtered, c)
			}
		}
		courses = filtered
	}
	if filter.OwnerID != "" {
		var filtered []course.Course
		for _, c := range courses {
			if c.OwnerID == filter.OwnerID {
				filtered = append(filtered, c)
			}
		}
		courses = filtered
	}
	if filter.PublishedOnly {
		var filtered []course.Course
		for _, c := range courses {
			if c.Published {
				filtered = append(filtered, c)
			}
		}
		courses = filtered
	}

	return courses, nil
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[crs.ID]
	if !ok {
		return course.Course{}, course.ErrNotFound
	}
	crs.EnrolledCount = orig.EnrolledCount
	crs.CreatedAt = orig.CreatedAt
	repo.db.table[crs.ID] = &crs
	return crs, nil
}

func (repo *courseRepository) IncrementEnrolledCount(ctx context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	crs, ok := repo.db.table[id]
	if !ok {
		return course.ErrNotFound
	}
	crs.EnrolledCount++
	return nil
}

func (repo *courseRepository) FindSessionsDue(ctx context.Context, from, to time.Time) ([]course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var due []course.Course
	for _, c := range repo.query() {
		if !c.IsLive() || !c.Published {
			continue
		}
		st := c.Session.StartTime
		if st.Before(from) || st.After(to) {
			continue
		}
		if c.Session.RemindedStartTime.Valid && c.Session.RemindedStartTime.Time.Equal(st) {
			continue
		}
		due = append(due, c)
	}
	return due, nil
}

func (repo *courseRepository) MarkSessionReminded(ctx context.Context, id string, startTime, sentAt time.Time) (bool, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	crs, ok := repo.db.table[id]
	if !ok {
		return false, nil
	}
	if !crs.Session.StartTime.Equal(startTime) {
		return false, nil
	}
	if crs.Session.RemindedStartTime.Valid && crs.Session.RemindedStartTime.Time.Equal(startTime) {
		return false, nil
	}
	crs.Session.LastReminderSentAt = null.TimeFrom(sentAt)
	crs.Session.RemindedStartTime = null.TimeFrom(startTime)
	return true, nil
}
