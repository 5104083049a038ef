package middleware

import (
	revsense "github.com/Henil-Prajapati/RevSense"
	"github.com/gin-gonic/gin"
)

// Gin returns gin middleware for g. Denied requests are aborted after the
// gate writes its challenge.
func Gin(g *revsense.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, ok := g.Serve(c.Writer, c.Request)
		if !ok {
			c.Abort()
			return
		}
		c.Request = req
		c.Next()
	}
}
