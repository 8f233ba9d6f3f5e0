// Package partners exposes the signing-party roster of an editor session,
// including the cascading partner mutations.
package partners

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

// Register registers partner routes; the group is scoped to a session
func Register(g *echo.Group) {
	g.GET("", ListPartners)
	g.POST("", AddPartner, middleware.RequireEdit())
	g.PUT("/:name", RenamePartner, middleware.RequireEdit())
	g.DELETE("/:name", RemovePartner, middleware.RequireEdit())
	g.POST("/current", SetCurrentPartner, middleware.RequireEdit())
	g.POST("/auto-assign", AutoAssignOrphans, middleware.RequireEdit())
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

// ListPartners lists the registry with its color coding
func ListPartners(c echo.Context) error {
	_, span := tracing.StartSpan(c.Request().Context(), "partners.ListPartners")
	defer span.End()

	sess, err := getSession(c)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, sess.Partners())
}

// AddPartner registers a signing party
func AddPartner(c echo.Context) error {
	_, span := tracing.StartSpan(c.Request().Context(), "partners.AddPartner")
	defer span.End()

	req, err := utils.BindRequest[models.AddPartnerRequest](c)
	if err != nil {
		return err
	}

	sess, err := getSession(c)
	if err != nil {
		return err
	}

	resp, err := sess.AddPartner(req.Name)
	if err != nil {
		return toHTTP(err)
	}

	return c.JSON(http.StatusCreated, resp)
}

// RenamePartner renames a partner on the registry and on every field that
// references it
func RenamePartner(c echo.Context) error {
	_, span := tracing.StartSpan(c.Request().Context(), "partners.RenamePartner")
	defer span.End()

	req, err := utils.BindRequest[models.RenamePartnerRequest](c)
	if err != nil {
		return err
	}

	sess, err := getSession(c)
	if err != nil {
		return err
	}

	resp, err := sess.RenamePartner(c.Param("name"), req.NewName)
	if err != nil {
		return toHTTP(err)
	}

	return c.JSON(http.StatusOK, resp)
}

// RemovePartner removes a partner, cascading deletion to its fields.
// Goes through the manager so the lifecycle event is published.
func RemovePartner(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "partners.RemovePartner")
	defer span.End()

	ctx, manager, err := ectoinject.GetContext[*session.Manager](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	resp, err := manager.RemovePartner(ctx, c.Param("id"), c.Param("name"))
	if err != nil {
		return toHTTP(err)
	}

	return c.JSON(http.StatusOK, resp)
}

// SetCurrentPartner selects the default assignment target for new fields
func SetCurrentPartner(c echo.Context) error {
	_, span := tracing.StartSpan(c.Request().Context(), "partners.SetCurrentPartner")
	defer span.End()

	req, err := utils.BindRequest[models.CurrentPartnerRequest](c)
	if err != nil {
		return err
	}

	sess, err := getSession(c)
	if err != nil {
		return err
	}

	if err := sess.SetCurrentPartner(req.Name); err != nil {
		return toHTTP(err)
	}

	return c.NoContent(http.StatusNoContent)
}

// AutoAssignOrphans assigns fields with unregistered partners to the
// first registry entry
func AutoAssignOrphans(c echo.Context) error {
	_, span := tracing.StartSpan(c.Request().Context(), "partners.AutoAssignOrphans")
	defer span.End()

	sess, err := getSession(c)
	if err != nil {
		return err
	}

	resp, err := sess.AutoAssignOrphans()
	if err != nil {
		return toHTTP(err)
	}

	return c.JSON(http.StatusOK, resp)
}
