package echoapi

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/acevedod1974/gradebook/core"
	"github.com/acevedod1974/gradebook/core/auth"
	"github.com/acevedod1974/gradebook/core/backup"
	"github.com/acevedod1974/gradebook/core/course"
	"github.com/acevedod1974/gradebook/storage/blob/fsblob"
	"github.com/acevedod1974/gradebook/storage/database/inmem"
)

const (
	teacherEmail = "teacher@test.test"
	teacherPwd   = "t0psecret!"
)

type testApp struct {
	server    Server
	conf      *core.Config
	courseSvc *course.Service
	backupSvc *backup.Service
}

func setup(t *testing.T) *testApp {
	t.Helper()

	conf := &core.Config{
		TestMode:           true,
		AppName:            "Gradebook",
		SecretKey:          "secret",
		JWTExpirationDelta: 10 * time.Minute,
		Teacher:            core.TeacherConfig{Email: teacherEmail, Password: teacherPwd},
		Grading:            core.GradingConfig{PassingThreshold: 250, ExamPassingScore: 60},
	}

	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	repo := inmemdb.NewCourseRepository(db)
	creds := inmemdb.NewCredentialStore(db)
	validate, translator := core.NewValidator()
	logger := core.NewStdLogger(log.New(ioutil.Discard, "", 0))

	local, err := fsblob.New(t.TempDir())
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}

	courseSvc := course.NewService(repo, validate, creds, nil)
	app := &testApp{
		conf:      conf,
		courseSvc: courseSvc,
		backupSvc: backup.NewService(repo, creds, logger, map[string]backup.Storage{"local": local}),
	}
	app.server = NewServer(&Options{
		Conf:           conf,
		Logger:         logger,
		DisableReqLogs: true,
		CourseSvc:      courseSvc,
		AuthSvc:        auth.NewService(creds, conf),
		BackupSvc:      app.backupSvc,
		Validate:       validate,
		Translator:     translator,
	})
	return app
}

func (app *testApp) request(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding body failed: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echoHeaderContentType, "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.server.ServeHTTP(rec, req)
	return rec
}

const echoHeaderContentType = "Content-Type"

func (app *testApp) login(t *testing.T, email, pwd string) string {
	t.Helper()
	rec := app.request(t, http.MethodPost, "/v1/auth/login", "", LoginRequest{Email: email, Password: pwd})
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", rec.Code, rec.Body.String())
	}
	var resp LoginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding login response failed: %v", err)
	}
	return resp.Token
}

func decodeCourse(t *testing.T, rec *httptest.ResponseRecorder) course.Course {
	t.Helper()
	var crs course.Course
	if err := json.Unmarshal(rec.Body.Bytes(), &crs); err != nil {
		t.Fatalf("decoding course failed: %v", err)
	}
	return crs
}

func Test_authApi_login(t *testing.T) {
	app := setup(t)

	tests := []struct {
		name     string
		body     interface{}
		wantCode int
	}{
		{name: "teacher ok", body: LoginRequest{Email: teacherEmail, Password: teacherPwd}, wantCode: http.StatusOK},
		{name: "wrong password", body: LoginRequest{Email: teacherEmail, Password: "nope"}, wantCode: http.StatusBadRequest},
		{name: "unknown email", body: LoginRequest{Email: "nobody@test.test", Password: "x"}, wantCode: http.StatusBadRequest},
		{name: "missing fields", body: LoginRequest{}, wantCode: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.request(t, http.MethodPost, "/v1/auth/login", "", tt.body)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
		})
	}
}

func Test_api_requiresToken(t *testing.T) {
	app := setup(t)

	for _, path := range []string{"/v1/courses", "/v1/backup/sinks", "/v1/auth/analysis"} {
		rec := app.request(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func Test_courseApi_teacherFlow(t *testing.T) {
	app := setup(t)
	token := app.login(t, teacherEmail, teacherPwd)

	// create
	rec := app.request(t, http.MethodPost, "/v1/courses", token, course.NewCourse{
		Name:  "Procesos 1",
		Exams: []string{"Examen 1", "Examen 2"},
	})
	if !assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String()) {
		t.FailNow()
	}
	crs := decodeCourse(t, rec)

	// add student: one zero slot per exam
	rec = app.request(t, http.MethodPost, "/v1/courses/"+crs.ID+"/students", token, course.NewStudent{
		FirstName: "Ana", LastName: "López", Email: "ana@test.test",
	})
	if !assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String()) {
		t.FailNow()
	}
	var std course.Student
	if err := json.Unmarshal(rec.Body.Bytes(), &std); err != nil {
		t.Fatalf("decoding student failed: %v", err)
	}
	assert.Len(t, std.Grades, 2)
	assert.Equal(t, 0.0, std.FinalGrade)

	// grade updates recompute the final grade
	rec = app.request(t, http.MethodPut, "/v1/courses/"+crs.ID+"/students/"+std.ID+"/grades/"+std.Grades[0].ID, token, ScoreRequest{Score: 80})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = app.request(t, http.MethodPut, "/v1/courses/"+crs.ID+"/students/"+std.ID+"/grades/"+std.Grades[1].ID, token, ScoreRequest{Score: 90})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = app.request(t, http.MethodGet, "/v1/courses/"+crs.ID, token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	got := decodeCourse(t, rec)
	assert.Equal(t, 170.0, got.Students[0].FinalGrade)

	// exam ops apply in lockstep
	rec = app.request(t, http.MethodPost, "/v1/courses/"+crs.ID+"/exams", token, ExamRequest{ExamName: "Examen 3"})
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = app.request(t, http.MethodPut, "/v1/courses/"+crs.ID+"/exams/0", token, ExamRequest{ExamName: "Parcial 1"})
	assert.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
	rec = app.request(t, http.MethodDelete, "/v1/courses/"+crs.ID+"/exams/1", token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = app.request(t, http.MethodGet, "/v1/courses/"+crs.ID, token, nil)
	got = decodeCourse(t, rec)
	assert.Equal(t, []string{"Parcial 1", "Examen 3"}, got.Exams)
	assert.Len(t, got.Students[0].Grades, 2)
	assert.Equal(t, 80.0, got.Students[0].FinalGrade)

	// stats
	rec = app.request(t, http.MethodGet, "/v1/courses/"+crs.ID+"/stats", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	var stats CourseStatsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decoding stats failed: %v", err)
	}
	assert.Equal(t, 80.0, stats.CourseAverage)
	assert.Equal(t, 80.0, stats.HighestGrade)
	assert.Equal(t, 0, stats.PassingRate.Passing)
	assert.Equal(t, 1, stats.PassingRate.Total)

	// bad exam index
	rec = app.request(t, http.MethodDelete, "/v1/courses/"+crs.ID+"/exams/lol", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = app.request(t, http.MethodDelete, "/v1/courses/"+crs.ID+"/exams/9", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// unknown course 404s
	rec = app.request(t, http.MethodGet, "/v1/courses/nope", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// destroy
	rec = app.request(t, http.MethodDelete, "/v1/courses/"+crs.ID, token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func Test_courseApi_studentVisibility(t *testing.T) {
	app := setup(t)
	teacherToken := app.login(t, teacherEmail, teacherPwd)

	rec := app.request(t, http.MethodPost, "/v1/courses", teacherToken, course.NewCourse{Name: "Procesos 1", Exams: []string{"Examen 1"}})
	mine := decodeCourse(t, rec)
	rec = app.request(t, http.MethodPost, "/v1/courses", teacherToken, course.NewCourse{Name: "Procesos 2", Exams: []string{"Examen 1"}})
	other := decodeCourse(t, rec)

	rec = app.request(t, http.MethodPost, "/v1/courses/"+mine.ID+"/students", teacherToken, course.NewStudent{
		FirstName: "Ana", LastName: "López", Email: "ana@test.test",
	})
	if !assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String()) {
		t.FailNow()
	}

	// a student logs in with the password recorded at enrollment;
	// fetch the generated password via an export
	env, err := app.backupSvc.Export()
	if err != nil {
		t.Fatalf("Export() failed: %v", err)
	}
	pwd := env.StudentPasswords["ana@test.test"]
	if pwd == "" {
		t.Fatal("no password recorded for student")
	}
	studentToken := app.login(t, "ana@test.test", pwd)

	// list shows only the student's course
	rec = app.request(t, http.MethodGet, "/v1/courses", studentToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	var visible []course.Course
	if err := json.Unmarshal(rec.Body.Bytes(), &visible); err != nil {
		t.Fatalf("decoding courses failed: %v", err)
	}
	if assert.Len(t, visible, 1) {
		assert.Equal(t, mine.ID, visible[0].ID)
	}

	// detail of a foreign course 404s rather than 403s
	rec = app.request(t, http.MethodGet, "/v1/courses/"+other.ID, studentToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// mutations are teacher-only
	rec = app.request(t, http.MethodPost, "/v1/courses", studentToken, course.NewCourse{Name: "x", Exams: nil})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = app.request(t, http.MethodDelete, "/v1/courses/"+mine.ID, studentToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = app.request(t, http.MethodGet, "/v1/backup/sinks", studentToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = app.request(t, http.MethodGet, "/v1/auth/analysis", studentToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func Test_backupApi_exportImport(t *testing.T) {
	app := setup(t)
	token := app.login(t, teacherEmail, teacherPwd)

	rec := app.request(t, http.MethodPost, "/v1/courses", token, course.NewCourse{Name: "Procesos 1", Exams: []string{"Examen 1"}})
	crs := decodeCourse(t, rec)

	// export carries the versioned envelope
	rec = app.request(t, http.MethodGet, "/v1/backup/export", token, nil)
	if !assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String()) {
		t.FailNow()
	}
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	exported := rec.Body.Bytes()

	var env backup.Envelope
	if err := json.Unmarshal(exported, &env); err != nil {
		t.Fatalf("decoding envelope failed: %v", err)
	}
	assert.Equal(t, backup.Version, env.Version)
	assert.Len(t, env.Courses, 1)

	// wipe, then import restores it
	rec = app.request(t, http.MethodDelete, "/v1/courses/"+crs.ID, token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/v1/backup/import", bytes.NewReader(exported))
	req.Header.Set(echoHeaderContentType, "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	imp := httptest.NewRecorder()
	app.server.ServeHTTP(imp, req)
	assert.Equal(t, http.StatusOK, imp.Code, imp.Body.String())

	rec = app.request(t, http.MethodGet, "/v1/courses/"+crs.ID, token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// malformed and invalid payloads 400
	for _, raw := range []string{"lol not json", `{"courses": []}`} {
		req := httptest.NewRequest(http.MethodPost, "/v1/backup/import", bytes.NewReader([]byte(raw)))
		req.Header.Set(echoHeaderContentType, "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		app.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, raw)
	}
}

func Test_backupApi_sinks(t *testing.T) {
	app := setup(t)
	token := app.login(t, teacherEmail, teacherPwd)

	rec := app.request(t, http.MethodGet, "/v1/backup/sinks", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `["local"]`, rec.Body.String())

	// save, list, restore round-trip
	rec = app.request(t, http.MethodPost, "/v1/backup/sinks/local", token, nil)
	if !assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String()) {
		t.FailNow()
	}
	var saved SaveResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &saved); err != nil {
		t.Fatalf("decoding save response failed: %v", err)
	}
	assert.Contains(t, saved.Name, "gradebook-backup-")

	rec = app.request(t, http.MethodGet, "/v1/backup/sinks/local", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), saved.Name)

	rec = app.request(t, http.MethodPost, "/v1/backup/sinks/local/"+saved.Name+"/restore", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// unknown sink 404s
	rec = app.request(t, http.MethodPost, "/v1/backup/sinks/nope", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func Test_authApi_changePassword(t *testing.T) {
	app := setup(t)
	teacherToken := app.login(t, teacherEmail, teacherPwd)

	rec := app.request(t, http.MethodPost, "/v1/courses", teacherToken, course.NewCourse{Name: "Procesos 1", Exams: nil})
	crs := decodeCourse(t, rec)
	rec = app.request(t, http.MethodPost, "/v1/courses/"+crs.ID+"/students", teacherToken, course.NewStudent{
		FirstName: "Ana", LastName: "López", Email: "ana@test.test",
	})
	if !assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String()) {
		t.FailNow()
	}

	env, err := app.backupSvc.Export()
	if err != nil {
		t.Fatalf("Export() failed: %v", err)
	}
	studentToken := app.login(t, "ana@test.test", env.StudentPasswords["ana@test.test"])

	rec = app.request(t, http.MethodPut, "/v1/auth/password", studentToken, ChangePasswordRequest{Password: "n3w pass!"})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// the new password works, the old one does not
	app.login(t, "ana@test.test", "n3w pass!")
	rec = app.request(t, http.MethodPost, "/v1/auth/login", "", LoginRequest{Email: "ana@test.test", Password: env.StudentPasswords["ana@test.test"]})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// policy failures are 400s with field errors
	rec = app.request(t, http.MethodPut, "/v1/auth/password", studentToken, ChangePasswordRequest{Password: "short"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
