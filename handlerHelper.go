package main

import (
	"net/http"
	"strconv"

	"bitbucket.org/mmdatafocus/payables_backend/utils"
	"github.com/gin-gonic/gin"
)

// respondError writes {"error": ...} with the status for err's kind.
// Store failures are attached to the gin context so customErrorLogger records the cause.
func respondError(c *gin.Context, err error) {
	status := utils.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": utils.PublicMessage(err)})
}

// bindInput binds a JSON or form body into obj.
func bindInput(c *gin.Context, obj any) bool {
	if err := c.ShouldBind(obj); err != nil {
		respondError(c, utils.BindingError(err))
		return false
	}
	return true
}

func pathId(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		respondError(c, utils.ValidationError("invalid id %q", c.Param("id")))
		return 0, false
	}
	return id, true
}
