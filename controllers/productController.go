package controllers

import (
	"net/http"

	"bitbucket.org/mmdatafocus/shopledger_backend/models"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type stockAdjustRequest struct {
	Delta       decimal.Decimal `json:"delta" binding:"required"`
	Description string          `json:"description"`
}

func CreateProduct(c *gin.Context) {
	var input models.NewProduct
	if !bindJSON(c, &input) {
		return
	}
	product, err := models.CreateProduct(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func UpdateProduct(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input models.NewProduct
	if !bindJSON(c, &input) {
		return
	}
	product, err := models.UpdateProduct(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func DeleteProduct(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	product, err := models.DeleteProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func GetProduct(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	product, err := models.GetProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func GetProducts(c *gin.Context) {
	var name *string
	if v := c.Query("name"); v != "" {
		name = &v
	}
	products, err := models.GetProducts(c.Request.Context(), name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

// AdjustStock applies a manual stock correction. Negative deltas fail if they
// would take remaining stock below zero.
func AdjustStock(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var req stockAdjustRequest
	if !bindJSON(c, &req) {
		return
	}
	closingQty, err := models.AdjustProductStockManual(c.Request.Context(), id, req.Delta, req.Description)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stock_remain": closingQty})
}

func GetStockHistory(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	history, err := models.GetStockHistory(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}
