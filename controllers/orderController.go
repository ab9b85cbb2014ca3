package controllers

import (
	"net/http"

	"bitbucket.org/mmdatafocus/shopledger_backend/models"
	"github.com/gin-gonic/gin"
)

func CreateOrder(c *gin.Context) {
	var input models.NewOrder
	if !bindJSON(c, &input) {
		return
	}
	order, err := models.CreateOrder(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func GetOrders(c *gin.Context) {
	orders, err := models.GetOrders(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func GetOrderCount(c *gin.Context) {
	count, err := models.CountOrders(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

func GetPendingOrderCount(c *gin.Context) {
	count, err := models.CountPendingOrders(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

func ToggleOrderDone(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	order, err := models.ToggleOrderDone(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func DeleteOrder(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	order, err := models.DeleteOrder(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}
