package echoapi

import (
	"io/ioutil"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/acevedod1974/gradebook/core/backup"
)

type (
	backupApi struct {
		svc *backup.Service
	}

	SaveResponse struct {
		Name string `json:"name"`
	}
)

func registerBackupAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *backup.Service) {
	api := backupApi{svc: svc}

	bg := g.Group("/backup", jwt, teacherMiddleware())
	bg.GET("/export", api.export)
	bg.POST("/import", api.restore)
	bg.GET("/sinks", api.sinks)
	bg.GET("/sinks/:sink", api.list)
	bg.POST("/sinks/:sink", api.save)
	bg.POST("/sinks/:sink/:name/restore", api.restoreFromSink)
}

// export streams the current state as a downloadable backup file.
func (api *backupApi) export(ctx echo.Context) error {
	data, err := api.svc.ExportJSON()
	if err != nil {
		return errors.Wrap(err, "exporting backup")
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="gradebook-backup.json"`)
	return ctx.Blob(http.StatusOK, echo.MIMEApplicationJSON, data)
}

// restore imports an uploaded backup wholesale.
func (api *backupApi) restore(ctx echo.Context) error {
	raw, err := ioutil.ReadAll(ctx.Request().Body)
	if err != nil {
		return errors.Wrap(err, "reading request body")
	}

	if err = api.svc.Import(raw); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Backup restored."})
}

func (api *backupApi) sinks(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.svc.Sinks())
}

func (api *backupApi) list(ctx echo.Context) error {
	names, err := api.svc.List(ctx.Request().Context(), ctx.Param("sink"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, names)
}

func (api *backupApi) save(ctx echo.Context) error {
	name, err := api.svc.Save(ctx.Request().Context(), ctx.Param("sink"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, SaveResponse{Name: name})
}

func (api *backupApi) restoreFromSink(ctx echo.Context) error {
	if err := api.svc.Restore(ctx.Request().Context(), ctx.Param("sink"), ctx.Param("name")); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Backup restored."})
}
