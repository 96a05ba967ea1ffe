package main

import (
	"net/http"
	"time"

	"bitbucket.org/mmdatafocus/payables_backend/models/reports"
	"github.com/gin-gonic/gin"
)

func reportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input reports.ReportInput
		if !bindInput(c, &input) {
			return
		}
		export, err := reports.ExportReport(c.Request.Context(), &input, time.Now().UTC())
		if err != nil {
			respondError(c, err)
			return
		}
		c.Header("Content-Disposition", "attachment; filename="+export.Filename)
		c.Data(http.StatusOK, export.ContentType, export.Data)
	}
}
