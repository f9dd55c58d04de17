package course

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/acevedod1974/gradebook/core"
)

var (
	// errors
	ErrCourseNotFound  = core.NewNotFoundError("course")
	ErrStudentNotFound = core.NewNotFoundError("student")
	ErrGradeNotFound   = core.NewNotFoundError("grade")
	ErrExamNotFound    = core.NewNotFoundError("exam")

	errScoreNotFinite = errors.New("score must be a finite number")
)

type (
	// Grade is one exam score slot in a student's ledger.
	Grade struct {
		ID       string  `json:"id"`
		ExamName string  `json:"examName"`
		Score    float64 `json:"score"`
	}

	PerformanceMetrics struct {
		Attendance    float64 `json:"attendance"`    // 0 - 100
		Participation float64 `json:"participation"` // 0 - 100
	}

	// Student is course-scoped; its grade list always has one entry per
	// course exam, in exam order, and FinalGrade is the unweighted sum of
	// all scores (a 5-exam course maxes out at 500, not 100).
	Student struct {
		ID                 string              `json:"id"`
		FirstName          string              `json:"firstName"`
		LastName           string              `json:"lastName"`
		Email              string              `json:"email"`
		Grades             []Grade             `json:"grades"`
		FinalGrade         float64             `json:"finalGrade"`
		PerformanceMetrics *PerformanceMetrics `json:"performanceMetrics,omitempty"`
	}

	Course struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		Exams     []string  `json:"exams"` // exam order defines the grade-slot index
		Students  []Student `json:"students"`
		CreatedAt time.Time `json:"createdAt"` // UTC
		UpdatedAt time.Time `json:"updatedAt"` // UTC
	}
)

// NewGrade creates a zero-score slot for examName.
func NewGrade(examName string) Grade {
	return Grade{
		ID:       "grade-" + uuid.New().String(),
		ExamName: examName,
	}
}

func sumScores(grades []Grade) float64 {
	var sum float64
	for _, g := range grades {
		sum += g.Score
	}
	return sum
}

// RecalcFinalGrade recomputes FinalGrade from the current grade list.
func (s *Student) RecalcFinalGrade() {
	s.FinalGrade = sumScores(s.Grades)
}

// SetScore replaces the score of the grade matching gradeID and recomputes
// FinalGrade. The ledger itself places no bound on the score besides it being
// finite; range checks are the caller's contract.
func (s *Student) SetScore(gradeID string, score float64) error {
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return core.NewValidationError(errScoreNotFinite, core.FieldError{Field: "score", Error: errScoreNotFinite.Error()})
	}
	for i := range s.Grades {
		if s.Grades[i].ID == gradeID {
			s.Grades[i].Score = score
			s.RecalcFinalGrade()
			return nil
		}
	}
	return ErrGradeNotFound
}

// AppendGradeSlot appends a zero-score slot for examName.
// FinalGrade is unchanged: adding 0 does not change the sum.
func (s *Student) AppendGradeSlot(examName string) {
	s.Grades = append(s.Grades, NewGrade(examName))
}

// RemoveGradeSlot removes the grade at index and recomputes FinalGrade.
func (s *Student) RemoveGradeSlot(index int) error {
	if index < 0 || index >= len(s.Grades) {
		return ErrGradeNotFound
	}
	s.Grades = append(s.Grades[:index], s.Grades[index+1:]...)
	s.RecalcFinalGrade()
	return nil
}

// RenameGradeSlot renames the exam on the grade at index; scores and
// FinalGrade are untouched.
func (s *Student) RenameGradeSlot(index int, newName string) error {
	if index < 0 || index >= len(s.Grades) {
		return ErrGradeNotFound
	}
	s.Grades[index].ExamName = newName
	return nil
}

func (c *Course) student(id string) (*Student, error) {
	for i := range c.Students {
		if c.Students[i].ID == id {
			return &c.Students[i], nil
		}
	}
	return nil, ErrStudentNotFound
}
