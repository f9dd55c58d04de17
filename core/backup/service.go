package backup

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/acevedod1974/gradebook/core"
	"github.com/acevedod1974/gradebook/core/auth"
	"github.com/acevedod1974/gradebook/core/course"
)

var ErrUnknownSink = core.NewNotFoundError("storage sink")

type (
	// Storage is an opaque blob sink/source. Implementations own their
	// timeout and retry policy; the service only wraps their failures.
	Storage interface {
		Put(ctx context.Context, name string, data []byte) error
		Get(ctx context.Context, name string) ([]byte, error)
		List(ctx context.Context) ([]string, error)
	}

	// StorageError surfaces a sink failure; it is never retried here.
	StorageError struct {
		Op   string
		Sink string
		Err  error
	}

	Service struct {
		repo    course.Repository
		creds   auth.CredentialStore
		sinks   map[string]Storage
		logger  core.Logger
		nowFunc func() time.Time
	}
)

func (err StorageError) Error() string {
	return err.Op + " on sink " + err.Sink + ": " + err.Err.Error()
}

func (err StorageError) Unwrap() error { return err.Err }

func NewService(repo course.Repository, creds auth.CredentialStore, logger core.Logger, sinks map[string]Storage) *Service {
	return &Service{
		repo:    repo,
		creds:   creds,
		sinks:   sinks,
		logger:  logger,
		nowFunc: time.Now,
	}
}

// Export snapshots the repository and credential map into an envelope.
func (svc *Service) Export() (Envelope, error) {
	courses, err := svc.repo.QueryAllCourses()
	if err != nil {
		return Envelope{}, errors.Wrap(err, "querying courses")
	}
	passwords, err := svc.creds.AllPasswords()
	if err != nil {
		return Envelope{}, errors.Wrap(err, "querying passwords")
	}
	return Encode(courses, passwords, svc.nowFunc()), nil
}

// ExportJSON renders the current state as a downloadable backup file.
func (svc *Service) ExportJSON() ([]byte, error) {
	env, err := svc.Export()
	if err != nil {
		return nil, err
	}
	return Marshal(env)
}

// Import validates raw backup bytes and, only if fully valid, adopts the
// courses and credential map wholesale. Any error leaves state untouched.
func (svc *Service) Import(raw []byte) error {
	env, err := Decode(raw)
	if err != nil {
		return err
	}

	courses := make([]course.Course, 0, len(env.Courses))
	for _, crs := range env.Courses {
		courses = append(courses, crs.Course)
	}
	if err = svc.repo.ReplaceAllCourses(courses); err != nil {
		return errors.Wrap(err, "replacing courses")
	}
	if err = svc.creds.ReplaceAll(env.StudentPasswords); err != nil {
		return errors.Wrap(err, "replacing passwords")
	}
	svc.logger.Info("backup imported", map[string]interface{}{"courses": len(courses)})
	return nil
}

// Save exports the current state to the named sink and returns the blob name.
func (svc *Service) Save(ctx context.Context, sink string) (string, error) {
	store, ok := svc.sinks[sink]
	if !ok {
		return "", ErrUnknownSink
	}
	data, err := svc.ExportJSON()
	if err != nil {
		return "", err
	}
	name := svc.blobName()
	if err = store.Put(ctx, name, data); err != nil {
		return "", &StorageError{Op: "put", Sink: sink, Err: err}
	}
	svc.logger.Info("backup saved", map[string]interface{}{"sink": sink, "name": name})
	return name, nil
}

// Restore fetches the named blob from the sink and imports it.
func (svc *Service) Restore(ctx context.Context, sink, name string) error {
	store, ok := svc.sinks[sink]
	if !ok {
		return ErrUnknownSink
	}
	data, err := store.Get(ctx, name)
	if err != nil {
		return &StorageError{Op: "get", Sink: sink, Err: err}
	}
	return svc.Import(data)
}

// List returns the sink's blob names, most recent first.
func (svc *Service) List(ctx context.Context, sink string) ([]string, error) {
	store, ok := svc.sinks[sink]
	if !ok {
		return nil, ErrUnknownSink
	}
	names, err := store.List(ctx)
	if err != nil {
		return nil, &StorageError{Op: "list", Sink: sink, Err: err}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

// Sinks lists the configured sink names.
func (svc *Service) Sinks() []string {
	names := make([]string, 0, len(svc.sinks))
	for name := range svc.sinks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (svc *Service) blobName() string {
	return "gradebook-backup-" + svc.nowFunc().UTC().Format("2006-01-02") + ".json"
}
