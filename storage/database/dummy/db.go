// Package dummydb provides in-memory repositories backing the test suites.
// The conditional-update semantics mirror the postgres implementations so
// concurrency behaviour can be exercised without a live database.
package dummydb

import (
	"sync"

	"github.com/innoaccess/backend/core/course"
	"github.com/innoaccess/backend/core/enroll"
	"github.com/innoaccess/backend/core/order"
	"github.com/innoaccess/backend/core/user"
)

type (
	DB struct {
		user       *userTable
		course     *courseTable
		enrollment *enrollmentTable
		order      *orderTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	courseTable struct {
		sync.RWMutex
		table map[string]*course.Course
	}

	enrollmentTable struct {
		sync.RWMutex
		table map[string]*enroll.Enrollment
	}

	orderTable struct {
		sync.RWMutex
		table map[string]*order.Order
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:       &userTable{table: make(map[string]*user.User)},
		course:     &courseTable{table: make(map[string]*course.Course)},
		enrollment: &enrollmentTable{table: make(map[string]*enroll.Enrollment)},
		order:      &orderTable{table: make(map[string]*order.Order)},
	}
	return db, nil
}
