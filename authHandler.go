package main

import (
	"net/http"

	"bitbucket.org/mmdatafocus/payables_backend/config"
	"bitbucket.org/mmdatafocus/payables_backend/middlewares"
	"bitbucket.org/mmdatafocus/payables_backend/models"
	"bitbucket.org/mmdatafocus/payables_backend/utils"
	"github.com/gin-gonic/gin"
)

func loginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.LoginInput
		if !bindInput(c, &input) {
			return
		}
		info, err := models.Login(c.Request.Context(), input.Username, input.Password)
		if err != nil {
			respondError(c, err)
			return
		}
		maxAge := int(config.TokenLifespan().Seconds())
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie("token", info.Token, maxAge, "/", "", config.IsProduction(), true)
		c.JSON(http.StatusOK, gin.H{
			"message":  "login successful",
			"token":    info.Token,
			"username": info.Username,
			"role":     info.Role,
		})
	}
}

func logoutHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := models.Logout(c.Request.Context()); err != nil {
			respondError(c, err)
			return
		}
		middlewares.ClearSessionCookie(c)
		c.JSON(http.StatusOK, gin.H{"message": "logged out"})
	}
}

func indexHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		id, _ := utils.GetUserIdFromContext(ctx)
		username, _ := utils.GetUsernameFromContext(ctx)
		role, _ := utils.GetRoleFromContext(ctx)
		c.JSON(http.StatusOK, gin.H{
			"id":       id,
			"username": username,
			"role":     role,
			"admin":    models.UserRole(role) == models.UserRoleAdmin,
		})
	}
}
