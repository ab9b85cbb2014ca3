package controllers

import (
	"net/http"

	"bitbucket.org/mmdatafocus/shopledger_backend/models"
	"bitbucket.org/mmdatafocus/shopledger_backend/workflow"
	"github.com/gin-gonic/gin"
)

func CreateSale(c *gin.Context) {
	var input workflow.NewSale
	if !bindJSON(c, &input) {
		return
	}
	result, err := workflow.CreateSale(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func GetSales(c *gin.Context) {
	fromDate, toDate, ok := queryOptionalDates(c)
	if !ok {
		return
	}
	sales, err := models.GetSales(c.Request.Context(), fromDate, toDate)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sales)
}

func GetSale(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	sale, err := models.GetSale(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sale)
}

func DeleteSale(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	if err := workflow.DeleteSale(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "sale deleted"})
}

func CreatePurchase(c *gin.Context) {
	var input workflow.NewPurchase
	if !bindJSON(c, &input) {
		return
	}
	result, err := workflow.CreatePurchase(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}
