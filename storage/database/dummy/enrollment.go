package dummydb

import (
	"context"

	"github.com/google/uuid"

	"github.com/innoaccess/backend/core/enroll"
	"github.com/innoaccess/backend/core/user"
)

type enrollmentRepository struct {
	db    *enrollmentTable
	users *userTable
}

var _ enroll.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db *DB) *enrollmentRepository {
	return &enrollmentRepository{db: db.enrollment, users: db.user}
}

func (repo *enrollmentRepository) query() []enroll.Enrollment {
	enrollments := make([]enroll.Enrollment, 0, len(repo.db.table))
	for _, e := range repo.db.table {
		enrollments = append(enrollments, *e)
	}
	return enrollments
}

func (repo *enrollmentRepository) CreateEnrollment(ctx context.Context, enr enroll.Enrollment) (enroll.Enrollment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, e := range repo.db.table {
		if e.UserID == enr.UserID && e.CourseID == enr.CourseID {
			return enroll.Enrollment{}, enroll.ErrAlreadyEnrolled
		}
	}

	if enr.ID == "" {
		enr.ID = uuid.New().String()
	}
	if enr.Progress == nil {
		enr.Progress = []string{}
	}
	repo.db.table[enr.ID] = &enr
	return enr, nil
}

func (repo *enrollmentRepository) GetEnrollment(ctx context.Context, userID, courseID string) (enroll.Enrollment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, e := range repo.query() {
		if e.UserID == userID && e.CourseID == courseID {
			return e, nil
		}
	}
	return enroll.Enrollment{}, enroll.ErrNotFound
}

func (repo *enrollmentRepository) QueryUserEnrollments(ctx context.Context, userID string) ([]enroll.Enrollment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var enrollments []enroll.Enrollment
	for _, e := range repo.query() {
		if e.UserID == userID {
			enrollments = append(enrollments, e)
		}
	}
	return enrollments, nil
}

func (repo *enrollmentRepository) QueryCourseParticipants(ctx context.Context, courseID string) ([]enroll.Participant, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	repo.users.RLock()
	defer repo.users.RUnlock()

	var participants []enroll.Participant
	for _, e := range repo.query() {
		if e.CourseID != courseID {
			continue
		}
		p := enroll.Participant{UserID: e.UserID}
		if usr, ok := repo.users.table[e.UserID]; ok {
			p.Name = usr.Name
			p.Email = usr.Email
		}
		participants = append(participants, p)
	}
	return participants, nil
}

func (repo *enrollmentRepository) UpdateEnrollmentProgress(ctx context.Context, id string, progress []string) (enroll.Enrollment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	enr, ok := repo.db.table[id]
	if !ok {
		return enroll.Enrollment{}, enroll.ErrNotFound
	}
	enr.Progress = progress
	return *enr, nil
}

// SeedUser inserts a user directly, bypassing the user repository. Handy for
// wiring participants in tests.
func (repo *enrollmentRepository) SeedUser(usr user.User) {
	repo.users.Lock()
	defer repo.users.Unlock()
	repo.users.table[usr.ID] = &usr
}
