package middleware

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/dahlia/pkg/context"
)

// RequireEdit rejects requests whose permission verdict is anything other
// than "edit". Read-only callers still see the session through GET routes;
// they just cannot reach the mutating ones.
func RequireEdit() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !context.CanEdit(c.Request().Context()) {
				return httperror.NewHTTPError(http.StatusForbidden, "template is read-only for this caller")
			}

			return next(c)
		}
	}
}
