package main

import (
	"net/http"

	"bitbucket.org/mmdatafocus/payables_backend/models"
	"bitbucket.org/mmdatafocus/payables_backend/utils"
	"github.com/gin-gonic/gin"
)

func listTransactionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var filter models.TransactionFilter
		if err := c.ShouldBindQuery(&filter); err != nil {
			respondError(c, utils.BindingError(err))
			return
		}
		transactions, err := models.ListTransactions(c.Request.Context(), &filter)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"transactions": transactions})
	}
}

func getTransactionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		transaction, err := models.GetTransaction(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"transaction": transaction})
	}
}

func createTransactionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewTransaction
		if !bindInput(c, &input) {
			return
		}
		transaction, err := models.CreateTransaction(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		message := "transaction added"
		if transaction.SettledInvoiceId != nil {
			message = "transaction added and matching invoice settled"
		}
		c.JSON(http.StatusCreated, gin.H{"message": message, "transaction": transaction})
	}
}

func updateTransactionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var input models.NewTransaction
		if !bindInput(c, &input) {
			return
		}
		transaction, err := models.UpdateTransaction(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "transaction updated", "transaction": transaction})
	}
}

func deleteTransactionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		transaction, err := models.DeleteTransaction(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "transaction deleted", "transaction": transaction})
	}
}
