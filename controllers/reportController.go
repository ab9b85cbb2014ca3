package controllers

import (
	"net/http"
	"strconv"

	"bitbucket.org/mmdatafocus/shopledger_backend/models/reports"
	"github.com/gin-gonic/gin"
)

// GetSalesSummary rolls up all-time when no from/to params are given.
func GetSalesSummary(c *gin.Context) {
	fromDate, toDate, ok := queryOptionalDates(c)
	if !ok {
		return
	}
	summary, err := reports.GetSalesSummary(c.Request.Context(), fromDate, toDate)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func GetDailySeries(c *gin.Context) {
	days := 30
	if v := c.Query("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 366 {
			c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"kind": "validation", "message": "invalid days"}})
			return
		}
		days = n
	}
	series, err := reports.GetDailySeries(c.Request.Context(), days)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, series)
}

func GetOrderCounts(c *gin.Context) {
	counts, err := reports.GetOrderCounts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, counts)
}

func GetExpenseSummary(c *gin.Context) {
	fromDate, toDate, ok := queryOptionalDates(c)
	if !ok {
		return
	}
	summary, err := reports.GetExpenseSummary(c.Request.Context(), fromDate, toDate)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
