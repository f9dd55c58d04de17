package backup

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/acevedod1974/gradebook/core/course"
)

// Version is the only envelope version this codec reads and writes.
const Version = "1.0"

type (
	// Envelope is the versioned on-disk/on-wire backup format: the whole
	// course collection plus the student credential map.
	Envelope struct {
		Version          string            `json:"version"`
		Timestamp        string            `json:"timestamp"` // ISO-8601
		Courses          []Course          `json:"courses"`
		StudentPasswords map[string]string `json:"studentPasswords"`
	}

	// Course annotates a course with its computed average on the way out;
	// the annotation is informational and ignored on import.
	Course struct {
		course.Course
		CourseAverage float64 `json:"courseAverage"`
	}

	// MalformedError means the payload is not parseable JSON at all.
	MalformedError struct {
		Err error
	}

	// InvalidError means the JSON parsed but the envelope shape is wrong.
	InvalidError struct {
		Reason string
	}
)

func (err MalformedError) Error() string {
	return "malformed backup: " + err.Err.Error()
}

func (err InvalidError) Error() string {
	return "invalid backup: " + err.Reason
}

// Encode builds an envelope from the current state. Pure: writing the result
// anywhere is the caller's job.
func Encode(courses []course.Course, studentPasswords map[string]string, now time.Time) Envelope {
	annotated := make([]Course, 0, len(courses))
	for _, crs := range courses {
		annotated = append(annotated, Course{Course: crs, CourseAverage: course.CourseAverage(crs)})
	}
	if studentPasswords == nil {
		studentPasswords = map[string]string{}
	}
	return Envelope{
		Version:          Version,
		Timestamp:        now.UTC().Format(time.RFC3339),
		Courses:          annotated,
		StudentPasswords: studentPasswords,
	}
}

// Marshal renders the envelope the way the export file is written.
func Marshal(env Envelope) ([]byte, error) {
	return json.MarshalIndent(env, "", "  ")
}

// envelopeShape distinguishes absent keys from present-but-empty values:
// a present `"studentPasswords": {}` is valid, a missing or null one is not.
type envelopeShape struct {
	Version          *string            `json:"version"`
	Timestamp        string             `json:"timestamp"`
	Courses          *[]Course          `json:"courses"`
	StudentPasswords *map[string]string `json:"studentPasswords"`
}

// Decode parses and validates raw backup bytes. It returns MalformedError for
// unparsable JSON and InvalidError for a wrong shape; it never mutates any
// state, so a failed decode leaves the caller exactly where it was.
func Decode(raw []byte) (Envelope, error) {
	var shape envelopeShape
	if err := json.Unmarshal(raw, &shape); err != nil {
		return Envelope{}, &MalformedError{Err: err}
	}

	var missing []string
	if shape.Courses == nil {
		missing = append(missing, "courses")
	}
	if shape.StudentPasswords == nil {
		missing = append(missing, "studentPasswords")
	}
	if shape.Version == nil {
		missing = append(missing, "version")
	}
	if len(missing) > 0 {
		return Envelope{}, &InvalidError{Reason: "missing required key(s): " + strings.Join(missing, ", ")}
	}
	if *shape.Version != Version {
		return Envelope{}, &InvalidError{Reason: "unsupported version " + *shape.Version}
	}

	return Envelope{
		Version:          *shape.Version,
		Timestamp:        shape.Timestamp,
		Courses:          *shape.Courses,
		StudentPasswords: *shape.StudentPasswords,
	}, nil
}

// IsMalformed reports whether err is a MalformedError.
func IsMalformed(err error) bool {
	_, ok := err.(*MalformedError)
	return ok
}

// IsInvalid reports whether err is an InvalidError.
func IsInvalid(err error) bool {
	_, ok := err.(*InvalidError)
	return ok
}
