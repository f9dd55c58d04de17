package backup

import (
	"context"
	"io/ioutil"
	"log"
	"sort"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/acevedod1974/gradebook/core"
	"github.com/acevedod1974/gradebook/core/course"
)

type fakeRepository struct {
	courses []course.Course
}

func (r *fakeRepository) CreateCourse(crs course.Course) (course.Course, error) {
	r.courses = append(r.courses, crs)
	return crs, nil
}
func (r *fakeRepository) GetCourseByID(id string) (course.Course, error) {
	for _, crs := range r.courses {
		if crs.ID == id {
			return crs, nil
		}
	}
	return course.Course{}, course.ErrCourseNotFound
}
func (r *fakeRepository) QueryAllCourses() ([]course.Course, error) {
	return append([]course.Course(nil), r.courses...), nil
}
func (r *fakeRepository) UpdateCourse(crs course.Course) (course.Course, error) {
	for i := range r.courses {
		if r.courses[i].ID == crs.ID {
			r.courses[i] = crs
			return crs, nil
		}
	}
	return course.Course{}, course.ErrCourseNotFound
}
func (r *fakeRepository) DeleteCoursesByID(ids ...string) error { return nil }
func (r *fakeRepository) ReplaceAllCourses(courses []course.Course) error {
	r.courses = append([]course.Course(nil), courses...)
	return nil
}

type fakeCredStore struct {
	passwords map[string]string
}

func (c *fakeCredStore) SetPassword(email, password string) error {
	c.passwords[email] = password
	return nil
}
func (c *fakeCredStore) GetPassword(email string) (string, error) {
	pwd, ok := c.passwords[email]
	if !ok {
		return "", core.NewNotFoundError("credential")
	}
	return pwd, nil
}
func (c *fakeCredStore) DeletePassword(email string) error {
	delete(c.passwords, email)
	return nil
}
func (c *fakeCredStore) AllPasswords() (map[string]string, error) {
	all := make(map[string]string, len(c.passwords))
	for email, pwd := range c.passwords {
		all[email] = pwd
	}
	return all, nil
}
func (c *fakeCredStore) ReplaceAll(passwords map[string]string) error {
	c.passwords = make(map[string]string, len(passwords))
	for email, pwd := range passwords {
		c.passwords[email] = pwd
	}
	return nil
}

type fakeStorage struct {
	blobs map[string][]byte
	err   error
}

func (s *fakeStorage) Put(_ context.Context, name string, data []byte) error {
	if s.err != nil {
		return s.err
	}
	if s.blobs == nil {
		s.blobs = make(map[string][]byte)
	}
	s.blobs[name] = data
	return nil
}
func (s *fakeStorage) Get(_ context.Context, name string) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	data, ok := s.blobs[name]
	if !ok {
		return nil, core.NewNotFoundError("backup")
	}
	return data, nil
}
func (s *fakeStorage) List(_ context.Context) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	names := make([]string, 0, len(s.blobs))
	for name := range s.blobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func setupService(t *testing.T, sinks map[string]Storage) (*Service, *fakeRepository, *fakeCredStore) {
	t.Helper()
	repo := &fakeRepository{courses: testCourses()}
	creds := &fakeCredStore{passwords: map[string]string{"ana@test.test": "pwd12345"}}
	logger := core.NewStdLogger(log.New(ioutil.Discard, "", 0))
	svc := NewService(repo, creds, logger, sinks)
	svc.nowFunc = func() time.Time { return time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC) }
	return svc, repo, creds
}

func TestService_Export(t *testing.T) {
	svc, _, _ := setupService(t, nil)

	env, err := svc.Export()
	if err != nil {
		t.Fatalf("Export() unexpected error = %v", err)
	}
	if env.Version != Version || len(env.Courses) != 1 {
		t.Errorf("Export() = %+v", env)
	}
	if env.StudentPasswords["ana@test.test"] != "pwd12345" {
		t.Errorf("Export() passwords = %+v", env.StudentPasswords)
	}
}

func TestService_Import(t *testing.T) {
	svc, repo, creds := setupService(t, nil)

	data, err := svc.ExportJSON()
	if err != nil {
		t.Fatalf("ExportJSON() unexpected error = %v", err)
	}

	// wipe then import the snapshot back
	repo.courses = nil
	creds.passwords = map[string]string{}
	if err = svc.Import(data); err != nil {
		t.Fatalf("Import() unexpected error = %v", err)
	}
	if len(repo.courses) != 1 || repo.courses[0].ID != "crs1" {
		t.Errorf("courses after import = %+v", repo.courses)
	}
	if creds.passwords["ana@test.test"] != "pwd12345" {
		t.Errorf("passwords after import = %+v", creds.passwords)
	}
}

// a rejected payload must leave state exactly as it was
func TestService_Import_invalidLeavesStateUntouched(t *testing.T) {
	svc, repo, creds := setupService(t, nil)

	for _, raw := range []string{
		"lol not json",
		`{"courses": []}`,
		`{"version": "9.9", "courses": [], "studentPasswords": {}}`,
	} {
		if err := svc.Import([]byte(raw)); err == nil {
			t.Errorf("Import(%q) expected error", raw)
		}
	}
	if len(repo.courses) != 1 {
		t.Errorf("courses mutated by failed import: %+v", repo.courses)
	}
	if creds.passwords["ana@test.test"] != "pwd12345" {
		t.Errorf("passwords mutated by failed import: %+v", creds.passwords)
	}
}

func TestService_SaveRestoreList(t *testing.T) {
	store := &fakeStorage{}
	svc, repo, _ := setupService(t, map[string]Storage{"mem": store})

	name, err := svc.Save(context.Background(), "mem")
	if err != nil {
		t.Fatalf("Save() unexpected error = %v", err)
	}
	if name != "gradebook-backup-2024-06-01.json" {
		t.Errorf("Save() name = %q", name)
	}
	if _, ok := store.blobs[name]; !ok {
		t.Fatalf("Save() blob not stored; have %v", store.blobs)
	}

	names, err := svc.List(context.Background(), "mem")
	if err != nil {
		t.Fatalf("List() unexpected error = %v", err)
	}
	if len(names) != 1 || names[0] != name {
		t.Errorf("List() = %v", names)
	}

	repo.courses = nil
	if err = svc.Restore(context.Background(), "mem", name); err != nil {
		t.Fatalf("Restore() unexpected error = %v", err)
	}
	if len(repo.courses) != 1 {
		t.Errorf("courses after restore = %+v", repo.courses)
	}
}

func TestService_unknownSink(t *testing.T) {
	svc, _, _ := setupService(t, nil)
	ctx := context.Background()

	if _, err := svc.Save(ctx, "nope"); err != ErrUnknownSink {
		t.Errorf("Save() error = %v, want ErrUnknownSink", err)
	}
	if err := svc.Restore(ctx, "nope", "x"); err != ErrUnknownSink {
		t.Errorf("Restore() error = %v, want ErrUnknownSink", err)
	}
	if _, err := svc.List(ctx, "nope"); err != ErrUnknownSink {
		t.Errorf("List() error = %v, want ErrUnknownSink", err)
	}
}

func TestService_storageErrors(t *testing.T) {
	store := &fakeStorage{err: errors.New("boom")}
	svc, _, _ := setupService(t, map[string]Storage{"mem": store})
	ctx := context.Background()

	if _, err := svc.Save(ctx, "mem"); err == nil {
		t.Error("Save() expected storage error")
	} else if serr, ok := err.(*StorageError); !ok || serr.Op != "put" || serr.Sink != "mem" {
		t.Errorf("Save() error = %#v", err)
	}
	if err := svc.Restore(ctx, "mem", "x"); err == nil {
		t.Error("Restore() expected storage error")
	} else if serr, ok := err.(*StorageError); !ok || serr.Op != "get" {
		t.Errorf("Restore() error = %#v", err)
	}
	if _, err := svc.List(ctx, "mem"); err == nil {
		t.Error("List() expected storage error")
	} else if serr, ok := err.(*StorageError); !ok || serr.Op != "list" {
		t.Errorf("List() error = %#v", err)
	}
}

func TestService_Sinks(t *testing.T) {
	svc, _, _ := setupService(t, map[string]Storage{"redis": &fakeStorage{}, "local": &fakeStorage{}})
	got := svc.Sinks()
	if len(got) != 2 || got[0] != "local" || got[1] != "redis" {
		t.Errorf("Sinks() = %v, want sorted names", got)
	}
}
