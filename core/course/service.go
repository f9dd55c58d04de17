package course

import (
	"fmt"
	"net/mail"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/acevedod1974/gradebook/core"
)

type (
	Repository interface {
		CreateCourse(course Course) (Course, error)
		GetCourseByID(id string) (Course, error)
		QueryAllCourses() ([]Course, error)
		// UpdateCourse replaces the stored course wholesale; multi-student
		// mutations (exam add/delete) therefore apply atomically.
		UpdateCourse(course Course) (Course, error)
		DeleteCoursesByID(ids ...string) error
		// ReplaceAllCourses swaps the whole collection; used by backup restore.
		ReplaceAllCourses(courses []Course) error
	}

	// CredentialSetter records a student's initial password on creation.
	CredentialSetter interface {
		SetPassword(email, password string) error
		DeletePassword(email string) error
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
		creds    CredentialSetter
		mailSvc  core.EmailService
		nowFunc  func() time.Time
	}
)

func NewService(repo Repository, validate *validator.Validate, creds CredentialSetter, mailSvc core.EmailService) *Service {
	return &Service{
		repo:     repo,
		validate: validate,
		creds:    creds,
		mailSvc:  mailSvc,
		nowFunc:  time.Now,
	}
}

func (svc *Service) Create(nc NewCourse) (Course, error) {
	if err := nc.Validate(svc.validate); err != nil {
		return Course{}, err
	}
	now := svc.nowFunc().UTC()
	crs := Course{
		Name:      core.CleanString(nc.Name),
		Exams:     append([]string(nil), nc.Exams...),
		Students:  []Student{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateCourse(crs)
}

func (svc *Service) QueryAll() ([]Course, error) {
	return svc.repo.QueryAllCourses()
}

func (svc *Service) GetByID(id string) (Course, error) {
	return svc.repo.GetCourseByID(id)
}

func (svc *Service) Rename(id, name string) (Course, error) {
	name = core.CleanString(name)
	if name == "" {
		return Course{}, core.NewValidationError(nil, core.FieldError{Field: "name", Error: "this field is required"})
	}
	crs, err := svc.repo.GetCourseByID(id)
	if err != nil {
		return Course{}, err
	}
	crs.Name = name
	return svc.update(crs)
}

func (svc *Service) Delete(ids ...string) error {
	return svc.repo.DeleteCoursesByID(ids...)
}

// AddStudent creates a student with one zero-score grade slot per existing
// course exam, in exam order. An initial password is recorded in the
// credential store and mailed to the student when services are configured.
func (svc *Service) AddStudent(courseID string, ns NewStudent) (Student, error) {
	if err := ns.Validate(svc.validate); err != nil {
		return Student{}, err
	}

	crs, err := svc.repo.GetCourseByID(courseID)
	if err != nil {
		return Student{}, err
	}

	grades := make([]Grade, 0, len(crs.Exams))
	for _, exam := range crs.Exams {
		grades = append(grades, NewGrade(exam))
	}
	std := Student{
		ID:        newStudentID(),
		FirstName: core.CleanString(ns.FirstName),
		LastName:  core.CleanString(ns.LastName),
		Email:     core.CleanString(ns.Email, true /* lower */),
		Grades:    grades,
	}
	crs.Students = append(crs.Students, std)
	if _, err = svc.update(crs); err != nil {
		return Student{}, err
	}

	if svc.creds != nil {
		pwd := core.RandomPassword(10)
		if err = svc.creds.SetPassword(std.Email, pwd); err != nil {
			return Student{}, errors.Wrap(err, "recording initial password")
		}
		svc.sendWelcomeEmail(std, crs.Name, pwd)
	}
	return std, nil
}

func (svc *Service) UpdateStudent(courseID, studentID string, us UpdateStudent) (Student, error) {
	if err := us.Validate(svc.validate); err != nil {
		return Student{}, err
	}

	crs, err := svc.repo.GetCourseByID(courseID)
	if err != nil {
		return Student{}, err
	}
	std, err := crs.student(studentID)
	if err != nil {
		return Student{}, err
	}

	// shallow merge; grades are never touched here
	if us.FirstName != "" {
		std.FirstName = core.CleanString(us.FirstName)
	}
	if us.LastName != "" {
		std.LastName = core.CleanString(us.LastName)
	}
	if us.Email != "" {
		std.Email = core.CleanString(us.Email, true /* lower */)
	}

	updated := *std
	if _, err = svc.update(crs); err != nil {
		return Student{}, err
	}
	return updated, nil
}

func (svc *Service) DeleteStudent(courseID, studentID string) error {
	crs, err := svc.repo.GetCourseByID(courseID)
	if err != nil {
		return err
	}

	var email string
	found := false
	for i := range crs.Students {
		if crs.Students[i].ID == studentID {
			email = crs.Students[i].Email
			crs.Students = append(crs.Students[:i], crs.Students[i+1:]...)
			found = true
			break
		}
	}
	if !found {
		return ErrStudentNotFound
	}
	if _, err = svc.update(crs); err != nil {
		return err
	}

	if svc.creds != nil {
		if err = svc.creds.DeletePassword(email); err != nil && !core.IsNotFound(err) {
			return errors.Wrap(err, "deleting credentials")
		}
	}
	return nil
}

// UpdateGrade delegates to the student's grade ledger.
func (svc *Service) UpdateGrade(courseID, studentID, gradeID string, score float64) (Student, error) {
	crs, err := svc.repo.GetCourseByID(courseID)
	if err != nil {
		return Student{}, err
	}
	std, err := crs.student(studentID)
	if err != nil {
		return Student{}, err
	}
	if err = std.SetScore(gradeID, score); err != nil {
		return Student{}, err
	}

	updated := *std
	if _, err = svc.update(crs); err != nil {
		return Student{}, err
	}
	return updated, nil
}

// AddExam appends examName to the course and a matching zero-score slot to
// every student. The course is stored back in one write: no reader can ever
// observe a partially applied exam list.
func (svc *Service) AddExam(courseID, examName string) error {
	examName = core.CleanString(examName)
	if examName == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "examName", Error: "this field is required"})
	}

	crs, err := svc.repo.GetCourseByID(courseID)
	if err != nil {
		return err
	}
	crs.Exams = append(crs.Exams, examName)
	for i := range crs.Students {
		crs.Students[i].AppendGradeSlot(examName)
	}
	_, err = svc.update(crs)
	return err
}

// DeleteExam removes the exam at examIndex and the grade at the same index
// from every student, recomputing final grades.
func (svc *Service) DeleteExam(courseID string, examIndex int) error {
	crs, err := svc.repo.GetCourseByID(courseID)
	if err != nil {
		return err
	}
	if examIndex < 0 || examIndex >= len(crs.Exams) {
		return ErrExamNotFound
	}
	crs.Exams = append(crs.Exams[:examIndex], crs.Exams[examIndex+1:]...)
	for i := range crs.Students {
		if err = crs.Students[i].RemoveGradeSlot(examIndex); err != nil {
			return err
		}
	}
	_, err = svc.update(crs)
	return err
}

// RenameExam renames the exam at examIndex and the matching grade slot on
// every student; scores are preserved.
func (svc *Service) RenameExam(courseID string, examIndex int, newName string) error {
	newName = core.CleanString(newName)
	if newName == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "examName", Error: "this field is required"})
	}

	crs, err := svc.repo.GetCourseByID(courseID)
	if err != nil {
		return err
	}
	if examIndex < 0 || examIndex >= len(crs.Exams) {
		return ErrExamNotFound
	}
	crs.Exams[examIndex] = newName
	for i := range crs.Students {
		if err = crs.Students[i].RenameGradeSlot(examIndex, newName); err != nil {
			return err
		}
	}
	_, err = svc.update(crs)
	return err
}

func (svc *Service) UpdatePerformanceMetrics(courseID, studentID string, pm PerformanceMetrics) error {
	if err := svc.validate.Struct(metricsUpdate{Attendance: pm.Attendance, Participation: pm.Participation}); err != nil {
		return err
	}

	crs, err := svc.repo.GetCourseByID(courseID)
	if err != nil {
		return err
	}
	std, err := crs.student(studentID)
	if err != nil {
		return err
	}
	std.PerformanceMetrics = &PerformanceMetrics{Attendance: pm.Attendance, Participation: pm.Participation}
	_, err = svc.update(crs)
	return err
}

// update bumps UpdatedAt and stores the course back.
func (svc *Service) update(crs Course) (Course, error) {
	crs.UpdatedAt = svc.nowFunc().UTC()
	return svc.repo.UpdateCourse(crs)
}

func (svc *Service) sendWelcomeEmail(std Student, courseName, pwd string) {
	if svc.mailSvc == nil {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: std.FirstName + " " + std.LastName, Address: std.Email}},
		Subject: "Welcome to " + courseName,
		Body: fmt.Sprintf(
			"Hi %s,\n\nYou have been enrolled in %s.\nYour initial password is: %s\n\nPlease change it after your first login.",
			std.FirstName, courseName, pwd,
		),
	})
}
