package middlewares

import (
	"net/http"

	"bitbucket.org/mmdatafocus/payables_backend/config"
	"bitbucket.org/mmdatafocus/payables_backend/models"
	"bitbucket.org/mmdatafocus/payables_backend/utils"
	"github.com/gin-gonic/gin"
)

const tokenCookie = "token"

// sessionToken reads the token header, falling back to the cookie set at login.
func sessionToken(c *gin.Context) (token string, fromCookie bool) {
	if header := c.Request.Header.Get("token"); header != "" {
		return header, false
	}
	token, err := c.Cookie(tokenCookie)
	if err != nil {
		return "", false
	}
	return token, token != ""
}

// ClearSessionCookie expires the token cookie set at login.
func ClearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(tokenCookie, "", -1, "/", "", config.IsProduction(), true)
}

// SessionMiddleware puts the session user into the request context.
// Requests without a token pass through anonymous. A header token that doesn't
// resolve is rejected; a stale cookie is cleared and the request goes on anonymous.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, fromCookie := sessionToken(c)
		if token == "" {
			c.Next()
			return
		}
		user, err := models.GetSessionUser(c.Request.Context(), token)
		if err != nil {
			if utils.ErrorKindOf(err) == utils.KindStore {
				config.LogError(config.GetLogger(), "middlewares", "SessionMiddleware", "resolving session", nil, err)
			}
			if fromCookie && utils.ErrorKindOf(err) == utils.KindAuth {
				ClearSessionCookie(c)
				c.Next()
				return
			}
			abortWithError(c, err)
			return
		}

		ctx := utils.SetTokenInContext(c.Request.Context(), token)
		ctx = utils.SetUsernameInContext(ctx, user.Username)
		ctx = utils.SetUserIdInContext(ctx, user.ID)
		ctx = utils.SetRoleInContext(ctx, string(user.Role))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func abortWithError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(utils.HTTPStatus(err), gin.H{"error": utils.PublicMessage(err)})
}

func unauthorized(c *gin.Context) {
	abortWithError(c, utils.AuthError("unauthorized"))
}
