package inmemdb

import (
	"sync"

	"github.com/acevedod1974/gradebook/core/course"
)

type (
	// DB is the process-wide in-memory store: one course table and one
	// credential table. There is a single logical writer; the mutexes only
	// guard against concurrent readers (stats, exports).
	DB struct {
		course *courseTable
		cred   *credentialTable
	}

	courseTable struct {
		sync.RWMutex
		table map[string]*course.Course
		order []string // insertion order
	}

	credentialTable struct {
		sync.RWMutex
		table map[string]string // email -> password
	}
)

func Open() (*DB, error) {
	db := &DB{
		course: &courseTable{table: make(map[string]*course.Course)},
		cred:   &credentialTable{table: make(map[string]string)},
	}
	return db, nil
}
