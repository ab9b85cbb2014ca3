package controllers

import (
	"net/http"
	"strconv"

	"bitbucket.org/mmdatafocus/shopledger_backend/models"
	"github.com/gin-gonic/gin"
)

func GetInvoice(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	invoice, err := models.GetInvoice(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}

func GetInvoices(c *gin.Context) {
	var customerId *int
	if v := c.Query("customer"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"kind": "validation", "message": "invalid customer id"}})
			return
		}
		customerId = &id
	}
	invoices, err := models.GetInvoices(c.Request.Context(), customerId)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoices)
}

func ToggleInvoicePaid(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	invoice, err := models.ToggleInvoicePaid(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}
