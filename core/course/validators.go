package course

import (
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type (
	NewCourse struct {
		Name  string   `json:"name" validate:"required"`
		Exams []string `json:"exams" validate:"dive,required"`
	}

	NewStudent struct {
		FirstName string `json:"firstName" validate:"required"`
		LastName  string `json:"lastName" validate:"required"`
		Email     string `json:"email" validate:"required,email"`
	}

	// UpdateStudent fields are shallow-merged; empty fields are left as is.
	UpdateStudent struct {
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
		Email     string `json:"email" validate:"omitempty,email"`
	}

	metricsUpdate struct {
		Attendance    float64 `json:"attendance" validate:"gte=0,lte=100"`
		Participation float64 `json:"participation" validate:"gte=0,lte=100"`
	}
)

func (nc NewCourse) Validate(validate *validator.Validate) error {
	return validate.Struct(nc)
}

func (ns NewStudent) Validate(validate *validator.Validate) error {
	return validate.Struct(ns)
}

func (us UpdateStudent) Validate(validate *validator.Validate) error {
	return validate.Struct(us)
}

func newStudentID() string {
	return uuid.New().String()
}
