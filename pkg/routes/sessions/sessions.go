// Package sessions exposes the editor session lifecycle: open, inspect,
// drive the canvas, save and close.
package sessions

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/dahlia/pkg/errors"
	"github.com/Ramsey-B/dahlia/pkg/middleware"
	"github.com/Ramsey-B/dahlia/pkg/models"
	"github.com/Ramsey-B/dahlia/pkg/session"
	"github.com/Ramsey-B/dahlia/pkg/tracing"
	"github.com/Ramsey-B/dahlia/pkg/utils"
)

// Register registers session routes
func Register(g *echo.Group) {
	g.POST("", OpenSession)
	g.GET("/:id", GetSession)
	g.DELETE("/:id", CloseSession)
	g.POST("/:id/pointer", PointerEvent, middleware.RequireEdit())
	g.POST("/:id/tool", SelectTool, middleware.RequireEdit())
	g.POST("/:id/canvas", SetCanvasSize)
	g.POST("/:id/save", SaveSession, middleware.RequireEdit())
}

func toHTTP(err error) error {
	if editorErr, ok := err.(*errors.EditorError); ok {
		return editorErr.ToHTTPError()
	}
	return err
}

// OpenSession opens an editor session on a template
func OpenSession(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "sessions.OpenSession")
	defer span.End()

	req, err := utils.BindRequest[models.OpenSessionRequest](c)
	if err != nil {
		return err
	}

	ctx, manager, err := ectoinject.GetContext[*session.Manager](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	sess, err := manager.Open(ctx, req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, sess.Snapshot())
}

// GetSession returns the session state
func GetSession(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "sessions.GetSession")
	defer span.End()

	ctx, manager, err := ectoinject.GetContext[*session.Manager](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	sess, err := manager.Get(c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, sess.Snapshot())
}

// CloseSession ends a session and releases its edit lock
func CloseSession(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "sessions.CloseSession")
	defer span.End()

	ctx, manager, err := ectoinject.GetContext[*session.Manager](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if err := manager.Close(ctx, c.Param("id")); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

// PointerEvent feeds one pointer event into the session's canvas engine
func PointerEvent(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "sessions.PointerEvent")
	defer span.End()

	req, err := utils.BindRequest[models.PointerEventRequest](c)
	if err != nil {
		return err
	}

	ctx, manager, err := ectoinject.GetContext[*session.Manager](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	sess, err := manager.Get(c.Param("id"))
	if err != nil {
		return err
	}

	resp, err := sess.ApplyPointer(req)
	if err != nil {
		return toHTTP(err)
	}

	return c.JSON(http.StatusOK, resp)
}

// SelectTool switches the session's active drawing tool
func SelectTool(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "sessions.SelectTool")
	defer span.End()

	req, err := utils.BindRequest[models.SelectToolRequest](c)
	if err != nil {
		return err
	}

	ctx, manager, err := ectoinject.GetContext[*session.Manager](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	sess, err := manager.Get(c.Param("id"))
	if err != nil {
		return err
	}

	if err := sess.SelectTool(req.Tool); err != nil {
		return toHTTP(err)
	}

	return c.NoContent(http.StatusNoContent)
}

// SetCanvasSize records the live canvas pixel dimensions
func SetCanvasSize(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "sessions.SetCanvasSize")
	defer span.End()

	req, err := utils.BindRequest[models.CanvasSizeRequest](c)
	if err != nil {
		return err
	}

	ctx, manager, err := ectoinject.GetContext[*session.Manager](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	sess, err := manager.Get(c.Param("id"))
	if err != nil {
		return err
	}

	sess.SetCanvasSize(req)
	return c.NoContent(http.StatusNoContent)
}

// SaveSession flushes the session's fields to the template service
func SaveSession(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "sessions.SaveSession")
	defer span.End()

	ctx, manager, err := ectoinject.GetContext[*session.Manager](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	resp, err := manager.Save(ctx, c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, resp)
}
