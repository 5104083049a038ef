package middleware

import (
	revsense "github.com/Henil-Prajapati/RevSense"
	"github.com/labstack/echo/v4"
)

// Echo returns echo middleware for g. A denied request ends the chain with
// a nil error since the response is already written.
func Echo(g *revsense.Gate) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req, ok := g.Serve(c.Response(), c.Request())
			if !ok {
				return nil
			}
			c.SetRequest(req)
			return next(c)
		}
	}
}
