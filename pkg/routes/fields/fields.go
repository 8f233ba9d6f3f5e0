// Package fields exposes per-field operations within an editor session:
// listing, editing, geometry manipulation, duplication and deletion.
package fields

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

// Register registers field routes; the group is scoped to a session
func Register(g *echo.Group) {
	g.GET("", ListFields)
	g.PATCH("/:temp_id", UpdateField, middleware.RequireEdit())
	g.DELETE("/:temp_id", DeleteField, middleware.RequireEdit())
	g.POST("/:temp_id/select", SelectField)
	g.POST("/:temp_id/duplicate", DuplicateField, middleware.RequireEdit())
	g.POST("/:temp_id/drag", DragField, middleware.RequireEdit())
	g.POST("/:temp_id/resize", ResizeField, middleware.RequireEdit())
	g.POST("/:temp_id/columns", ColumnHandle, middleware.RequireEdit())
}

func getSession(c echo.Context) (*session.Session, error) {
	ctx := c.Request().Context()

	_, manager, err := ectoinject.GetContext[*session.Manager](ctx)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	return manager.Get(c.Param("id"))
}

func toHTTP(err error) error {
	if editorErr, ok := err.(*errors.EditorError); ok {
		return editorErr.ToHTTPError()
	}
	return err
}

// ListFields lists the session's active fields
func ListFields(c echo.Context) error {
	_, span := tracing.StartSpan(c.Request().Context(), "fields.ListFields")
	defer span.End()

	sess, err := getSession(c)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, models.FieldListResponse{Fields: sess.Fields()})
}

// UpdateField merges a partial update into a field
func UpdateField(c echo.Context) error {
	_, span := tracing.StartSpan(c.Request().Context(), "fields.UpdateField")
	defer span.End()

	req, err := utils.BindRequest[models.UpdateFieldRequest](c)
	if err != nil {
		return err
	}

	sess, err := getSession(c)
	if err != nil {
		return err
	}

	field, err := sess.UpdateField(c.Param("temp_id"), req)
	if err != nil {
		return toHTTP(err)
	}

	return c.JSON(http.StatusOK, field)
}

// DeleteField removes a field from the session
func DeleteField(c echo.Context) error {
	_, span := tracing.StartSpan(c.Request().Context(), "fields.DeleteField")
	defer span.End()

	sess, err := getSession(c)
	if err != nil {
		return err
	}

	if err := sess.DeleteField(c.Param("temp_id")); err != nil {
		return toHTTP(err)
	}

	return c.NoContent(http.StatusNoContent)
}

// SelectField marks a field as selected
func SelectField(c echo.Context) error {
	_, span := tracing.StartSpan(c.Request().Context(), "fields.SelectField")
	defer span.End()

	sess, err := getSession(c)
	if err != nil {
		return err
	}

	if err := sess.SelectField(c.Param("temp_id")); err != nil {
		return toHTTP(err)
	}

	return c.NoContent(http.StatusNoContent)
}

// DuplicateField copies a field under a fresh identity
func DuplicateField(c echo.Context) error {
	_, span := tracing.StartSpan(c.Request().Context(), "fields.DuplicateField")
	defer span.End()

	sess, err := getSession(c)
	if err != nil {
		return err
	}

	dup, err := sess.DuplicateField(c.Param("temp_id"))
	if err != nil {
		return toHTTP(err)
	}

	return c.JSON(http.StatusCreated, dup)
}

// DragField moves a field to a new pixel position
func DragField(c echo.Context) error {
	_, span := tracing.StartSpan(c.Request().Context(), "fields.DragField")
	defer span.End()

	req, err := utils.BindRequest[models.DragFieldRequest](c)
	if err != nil {
		return err
	}

	sess, err := getSession(c)
	if err != nil {
		return err
	}

	field, err := sess.DragField(c.Param("temp_id"), req.X, req.Y)
	if err != nil {
		return toHTTP(err)
	}

	return c.JSON(http.StatusOK, field)
}

// ResizeField resizes a field via its manipulation handles
func ResizeField(c echo.Context) error {
	_, span := tracing.StartSpan(c.Request().Context(), "fields.ResizeField")
	defer span.End()

	req, err := utils.BindRequest[models.ResizeFieldRequest](c)
	if err != nil {
		return err
	}

	sess, err := getSession(c)
	if err != nil {
		return err
	}

	field, err := sess.ResizeField(c.Param("temp_id"), req)
	if err != nil {
		return toHTTP(err)
	}

	return c.JSON(http.StatusOK, field)
}

// ColumnHandle applies a cells field's column-split handle position
func ColumnHandle(c echo.Context) error {
	_, span := tracing.StartSpan(c.Request().Context(), "fields.ColumnHandle")
	defer span.End()

	req, err := utils.BindRequest[models.ColumnHandleRequest](c)
	if err != nil {
		return err
	}

	sess, err := getSession(c)
	if err != nil {
		return err
	}

	field, err := sess.SetColumnRatio(c.Param("temp_id"), req.Ratio)
	if err != nil {
		return toHTTP(err)
	}

	return c.JSON(http.StatusOK, field)
}
