package controllers

import (
	"net/http"

	"bitbucket.org/mmdatafocus/shopledger_backend/models"
	"github.com/gin-gonic/gin"
)

func CreateExpense(c *gin.Context) {
	var input models.NewExpense
	if !bindJSON(c, &input) {
		return
	}
	expense, err := models.CreateExpense(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, expense)
}

func GetExpenses(c *gin.Context) {
	fromDate, toDate, ok := queryOptionalDates(c)
	if !ok {
		return
	}
	expenses, err := models.GetExpenses(c.Request.Context(), fromDate, toDate)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, expenses)
}

func DeleteExpense(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	expense, err := models.DeleteExpense(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, expense)
}
