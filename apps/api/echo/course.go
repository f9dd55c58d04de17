package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/acevedod1974/gradebook/core"
	"github.com/acevedod1974/gradebook/core/auth"
	"github.com/acevedod1974/gradebook/core/course"
)

type (
	courseApi struct {
		svc  *course.Service
		conf *core.Config
	}

	RenameRequest struct {
		Name string `json:"name"`
	}

	ExamRequest struct {
		ExamName string `json:"examName"`
	}

	ScoreRequest struct {
		Score float64 `json:"score"`
	}

	CourseStatsResponse struct {
		CourseAverage float64                  `json:"courseAverage"`
		HighestGrade  float64                  `json:"highestGrade"`
		PassingRate   course.PassingRateResult `json:"passingRate"`
	}
)

func registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *course.Service, conf *core.Config) {
	api := courseApi{
		svc:  svc,
		conf: conf,
	}

	cg := g.Group("/courses", jwt)

	cg.GET("", api.query)
	cg.POST("", api.create, teacherMiddleware())

	// detail endpoints
	dg := cg.Group("/:id")
	dg.GET("", api.retrieve)
	dg.PUT("", api.rename, teacherMiddleware())
	dg.DELETE("", api.destroy, teacherMiddleware())

	// students & grades
	dg.POST("/students", api.addStudent, teacherMiddleware())
	dg.PUT("/students/:sid", api.updateStudent, teacherMiddleware())
	dg.DELETE("/students/:sid", api.deleteStudent, teacherMiddleware())
	dg.PUT("/students/:sid/grades/:gid", api.updateGrade, teacherMiddleware())
	dg.PUT("/students/:sid/metrics", api.updateMetrics, teacherMiddleware())

	// exams
	dg.POST("/exams", api.addExam, teacherMiddleware())
	dg.PUT("/exams/:index", api.renameExam, teacherMiddleware())
	dg.DELETE("/exams/:index", api.deleteExam, teacherMiddleware())

	// aggregates
	dg.GET("/stats", api.stats)
	dg.GET("/stats/exams", api.examStats)
	dg.GET("/stats/ranking", api.ranking)
	dg.GET("/stats/distribution", api.distribution)
}

// Handlers

func (api *courseApi) query(ctx echo.Context) error {
	id, err := getContextIdentity(ctx)
	if err != nil {
		return err
	}
	courses, err := api.svc.QueryAll()
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	return ctx.JSON(http.StatusOK, auth.VisibleCourses(id, courses))
}

func (api *courseApi) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	crs, err := api.svc.Create(data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, crs)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	crs, err := api.getVisibleCourse(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) rename(ctx echo.Context) error {
	var data RenameRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RenameRequest")
	}
	crs, err := api.svc.Rename(ctx.Param("id"), data.Name)
	if err != nil {
		return errors.Wrap(err, "renaming course")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) addStudent(ctx echo.Context) error {
	var data course.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	std, err := api.svc.AddStudent(ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "adding student")
	}
	return ctx.JSON(http.StatusCreated, std)
}

func (api *courseApi) updateStudent(ctx echo.Context) error {
	var data course.UpdateStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}
	std, err := api.svc.UpdateStudent(ctx.Param("id"), ctx.Param("sid"), data)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	return ctx.JSON(http.StatusOK, std)
}

func (api *courseApi) deleteStudent(ctx echo.Context) error {
	if err := api.svc.DeleteStudent(ctx.Param("id"), ctx.Param("sid")); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) updateGrade(ctx echo.Context) error {
	var data ScoreRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ScoreRequest")
	}
	std, err := api.svc.UpdateGrade(ctx.Param("id"), ctx.Param("sid"), ctx.Param("gid"), data.Score)
	if err != nil {
		return errors.Wrap(err, "updating grade")
	}
	return ctx.JSON(http.StatusOK, std)
}

func (api *courseApi) updateMetrics(ctx echo.Context) error {
	var data course.PerformanceMetrics
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PerformanceMetrics")
	}
	if err := api.svc.UpdatePerformanceMetrics(ctx.Param("id"), ctx.Param("sid"), data); err != nil {
		return errors.Wrap(err, "updating performance metrics")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) addExam(ctx echo.Context) error {
	var data ExamRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ExamRequest")
	}
	if err := api.svc.AddExam(ctx.Param("id"), data.ExamName); err != nil {
		return errors.Wrap(err, "adding exam")
	}
	return ctx.NoContent(http.StatusCreated)
}

func (api *courseApi) renameExam(ctx echo.Context) error {
	index, err := examIndex(ctx)
	if err != nil {
		return err
	}
	var data ExamRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ExamRequest")
	}
	if err = api.svc.RenameExam(ctx.Param("id"), index, data.ExamName); err != nil {
		return errors.Wrap(err, "renaming exam")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) deleteExam(ctx echo.Context) error {
	index, err := examIndex(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteExam(ctx.Param("id"), index); err != nil {
		return errors.Wrap(err, "deleting exam")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) stats(ctx echo.Context) error {
	crs, err := api.getVisibleCourse(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, CourseStatsResponse{
		CourseAverage: course.CourseAverage(crs),
		HighestGrade:  course.HighestGrade(crs),
		PassingRate:   course.PassingRate(crs, api.conf.Grading.PassingThreshold),
	})
}

func (api *courseApi) examStats(ctx echo.Context) error {
	crs, err := api.getVisibleCourse(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, course.ExamStatistics(crs, api.conf.Grading.ExamPassingScore))
}

func (api *courseApi) ranking(ctx echo.Context) error {
	crs, err := api.getVisibleCourse(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, course.Ranking(crs))
}

func (api *courseApi) distribution(ctx echo.Context) error {
	crs, err := api.getVisibleCourse(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, course.GradeDistribution(crs, course.DefaultBuckets()))
}

// getVisibleCourse resolves :id and enforces the actor's visibility:
// a student can only see courses they are enrolled in.
func (api *courseApi) getVisibleCourse(ctx echo.Context) (course.Course, error) {
	id, err := getContextIdentity(ctx)
	if err != nil {
		return course.Course{}, err
	}
	crs, err := api.svc.GetByID(ctx.Param("id"))
	if err != nil {
		return course.Course{}, errors.Wrap(err, "getting course")
	}
	if len(auth.VisibleCourses(id, []course.Course{crs})) == 0 {
		return course.Course{}, errHttpNotFound
	}
	return crs, nil
}

func examIndex(ctx echo.Context) (int, error) {
	index, err := strconv.Atoi(ctx.Param("index"))
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid exam index")
	}
	return index, nil
}
