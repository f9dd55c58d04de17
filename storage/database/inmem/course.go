package inmemdb

import (
	"github.com/google/uuid"

	"github.com/acevedod1974/gradebook/core/course"
)

type courseRepository struct {
	db *courseTable
}

var _ course.Repository = (*courseRepository)(nil)

func NewCourseRepository(db *DB) course.Repository {
	return &courseRepository{db: db.course}
}

func (repo *courseRepository) CreateCourse(crs course.Course) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if crs.ID == "" {
		crs.ID = uuid.New().String()
	}
	cp := copyCourse(crs)
	repo.db.table[crs.ID] = &cp
	repo.db.order = append(repo.db.order, crs.ID)
	return crs, nil
}

func (repo *courseRepository) GetCourseByID(id string) (course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	crs, ok := repo.db.table[id]
	if !ok {
		return course.Course{}, course.ErrCourseNotFound
	}
	return copyCourse(*crs), nil
}

func (repo *courseRepository) QueryAllCourses() ([]course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	courses := make([]course.Course, 0, len(repo.db.order))
	for _, id := range repo.db.order {
		courses = append(courses, copyCourse(*repo.db.table[id]))
	}
	return courses, nil
}

func (repo *courseRepository) UpdateCourse(crs course.Course) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[crs.ID]; !ok {
		return course.Course{}, course.ErrCourseNotFound
	}
	cp := copyCourse(crs)
	repo.db.table[crs.ID] = &cp
	return crs, nil
}

func (repo *courseRepository) DeleteCoursesByID(ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, id := range ids {
		if _, ok := repo.db.table[id]; !ok {
			return course.ErrCourseNotFound
		}
		delete(repo.db.table, id)
		for i, ordID := range repo.db.order {
			if ordID == id {
				repo.db.order = append(repo.db.order[:i], repo.db.order[i+1:]...)
				break
			}
		}
	}
	return nil
}

func (repo *courseRepository) ReplaceAllCourses(courses []course.Course) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.table = make(map[string]*course.Course, len(courses))
	repo.db.order = make([]string, 0, len(courses))
	for _, crs := range courses {
		if crs.ID == "" {
			crs.ID = uuid.New().String()
		}
		cp := copyCourse(crs)
		repo.db.table[crs.ID] = &cp
		repo.db.order = append(repo.db.order, crs.ID)
	}
	return nil
}

// copyCourse deep-copies so callers never alias table-owned slices.
func copyCourse(crs course.Course) course.Course {
	cp := crs
	cp.Exams = append([]string(nil), crs.Exams...)
	cp.Students = make([]course.Student, len(crs.Students))
	for i, std := range crs.Students {
		sp := std
		sp.Grades = append([]course.Grade(nil), std.Grades...)
		if std.PerformanceMetrics != nil {
			pm := *std.PerformanceMetrics
			sp.PerformanceMetrics = &pm
		}
		cp.Students[i] = sp
	}
	return cp
}
