package controllers

import (
	"net/http"

	"bitbucket.org/mmdatafocus/shopledger_backend/models"
	"bitbucket.org/mmdatafocus/shopledger_backend/workflow"
	"github.com/gin-gonic/gin"
)

func CreateCustomer(c *gin.Context) {
	var input models.NewCustomer
	if !bindJSON(c, &input) {
		return
	}
	customer, err := models.CreateCustomer(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, customer)
}

func UpdateCustomer(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input models.NewCustomer
	if !bindJSON(c, &input) {
		return
	}
	customer, err := models.UpdateCustomer(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

func DeleteCustomer(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	customer, err := models.DeleteCustomer(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

func GetCustomer(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	customer, err := models.GetCustomer(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

func GetCustomers(c *gin.Context) {
	var name *string
	if v := c.Query("name"); v != "" {
		name = &v
	}
	customers, err := models.GetCustomers(c.Request.Context(), name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, customers)
}

// GetCustomerTransactions returns the append-only statement for one customer,
// oldest first, each row carrying the balance after it was applied.
func GetCustomerTransactions(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	fromDate, toDate, ok := queryOptionalDates(c)
	if !ok {
		return
	}
	transactions, err := models.GetContactTransactions(c.Request.Context(), models.ContactTypeCustomer, id, fromDate, toDate)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, transactions)
}

func RecordCustomerPayment(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input workflow.NewContactPayment
	if !bindJSON(c, &input) {
		return
	}
	transaction, err := workflow.RecordCustomerPayment(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, transaction)
}
