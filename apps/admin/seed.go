package main

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/acevedod1974/gradebook/core/course"
)

var (
	seedExams      = []string{"Examen 1", "Examen 2", "Examen 3", "Examen 4", "Examen 5"}
	seedFirstNames = []string{"Juan", "María", "Carlos", "Ana", "Pedro"}
	seedLastNames  = []string{"García", "Rodríguez", "Martínez", "López", "González"}
)

// seed loads two demo courses with five students each and random scores.
func (cli *commandLine) seed() error {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	for _, name := range []string{"PROCESOS DE FABRICACION 1", "PROCESOS DE FABRICACION 2"} {
		if err := cli.seedCourse(name, rng); err != nil {
			return err
		}
	}
	if err := cli.snapshot(); err != nil {
		return err
	}
	fmt.Println("demo data loaded")
	return nil
}

func (cli *commandLine) seedCourse(name string, rng *rand.Rand) error {
	crs, err := cli.courseSvc.Create(course.NewCourse{Name: name, Exams: seedExams})
	if err != nil {
		return err
	}

	for i := range seedFirstNames {
		std, err := cli.courseSvc.AddStudent(crs.ID, course.NewStudent{
			FirstName: seedFirstNames[i],
			LastName:  seedLastNames[i],
			Email:     fmt.Sprintf("student%d@universidad.edu", i+1),
		})
		if err != nil {
			return err
		}
		for _, grd := range std.Grades {
			if _, err = cli.courseSvc.UpdateGrade(crs.ID, std.ID, grd.ID, float64(rng.Intn(100))); err != nil {
				return err
			}
		}
	}
	return nil
}
