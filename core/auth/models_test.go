package auth

import (
	"testing"

	"github.com/acevedod1974/gradebook/core/course"
)

func TestIdentity_IsTeacher(t *testing.T) {
	if !(Identity{Email: "t@test.test", Role: RoleTeacher}).IsTeacher() {
		t.Error("teacher role not recognized")
	}
	if (Identity{Email: "s@test.test", Role: RoleStudent}).IsTeacher() {
		t.Error("student role treated as teacher")
	}
	if (Identity{}).IsTeacher() {
		t.Error("empty role treated as teacher")
	}
}

func TestVisibleCourses(t *testing.T) {
	courses := []course.Course{
		{ID: "crs1", Students: []course.Student{{ID: "std1", Email: "ana@test.test"}}},
		{ID: "crs2", Students: []course.Student{{ID: "std2", Email: "juan@test.test"}}},
		{ID: "crs3", Students: []course.Student{
			{ID: "std3", Email: "ana@test.test"},
			{ID: "std4", Email: "juan@test.test"},
		}},
	}

	tests := []struct {
		name string
		id   Identity
		want []string
	}{
		{name: "teacher sees all", id: Identity{Email: "t@test.test", Role: RoleTeacher}, want: []string{"crs1", "crs2", "crs3"}},
		{name: "student sees own courses", id: Identity{Email: "ana@test.test", Role: RoleStudent}, want: []string{"crs1", "crs3"}},
		{name: "unknown student sees none", id: Identity{Email: "nobody@test.test", Role: RoleStudent}, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := VisibleCourses(tt.id, courses)
			if len(got) != len(tt.want) {
				t.Fatalf("VisibleCourses() len = %d, want %d", len(got), len(tt.want))
			}
			for i, crs := range got {
				if crs.ID != tt.want[i] {
					t.Errorf("VisibleCourses()[%d] = %s, want %s", i, crs.ID, tt.want[i])
				}
			}
		})
	}
}
