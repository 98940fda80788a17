package middleware

import (
	"net/http"

	"github.com/arencloud/stackdeck/internal/models"

	"github.com/gin-gonic/gin"
)

const instanceKey = "stackdeck.instance"

// CurrentSource reports the active instance.
type CurrentSource interface {
	Current() (models.Instance, bool)
}

// RequireInstance resolves the active instance once per request and stores
// it in the context. With no instance selected the request ends with 409.
func RequireInstance(src CurrentSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		inst, ok := src.Current()
		if !ok {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "no instance selected"})
			return
		}
		c.Set(instanceKey, inst)
		c.Next()
	}
}

// Instance returns the instance stored by RequireInstance.
func Instance(c *gin.Context) (models.Instance, bool) {
	v, ok := c.Get(instanceKey)
	if !ok {
		return models.Instance{}, false
	}
	inst, ok := v.(models.Instance)
	return inst, ok
}
