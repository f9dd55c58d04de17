package auth

import (
	"github.com/acevedod1974/gradebook/core"
	"github.com/acevedod1974/gradebook/core/course"
)

// Roles
const (
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

var ErrCredentialNotFound = core.NewNotFoundError("credential")

// Identity is the current actor as supplied by the hosting application.
// It is a pass-through filter, not an auth mechanism.
type Identity struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (id Identity) IsTeacher() bool {
	return id.Role == RoleTeacher
}

// VisibleCourses filters courses down to what the actor may see: teachers see
// everything, students only the courses that list their email.
func VisibleCourses(id Identity, courses []course.Course) []course.Course {
	if id.IsTeacher() {
		return courses
	}
	visible := make([]course.Course, 0, len(courses))
	for _, crs := range courses {
		for _, std := range crs.Students {
			if std.Email == id.Email {
				visible = append(visible, crs)
				break
			}
		}
	}
	return visible
}
