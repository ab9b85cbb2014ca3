package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"bitbucket.org/mmdatafocus/shopledger_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// respondError maps the domain error taxonomy onto HTTP statuses. Anything
// without a kind is an internal error and the message is not leaked.
func respondError(c *gin.Context, err error) {
	var domainErr *utils.DomainError
	if errors.As(err, &domainErr) {
		status := http.StatusInternalServerError
		switch domainErr.Kind {
		case utils.ErrorKindValidation:
			status = http.StatusBadRequest
		case utils.ErrorKindNotFound:
			status = http.StatusNotFound
		case utils.ErrorKindInsufficientStock, utils.ErrorKindConflict:
			status = http.StatusConflict
		case utils.ErrorKindUnauthorized:
			status = http.StatusUnauthorized
		}
		c.JSON(status, gin.H{"error": gin.H{"kind": string(domainErr.Kind), "message": domainErr.Message}})
		return
	}

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"kind": "validation", "message": validationErrs.Error()}})
		return
	}

	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"kind": "internal", "message": "internal server error"}})
}

func bindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"kind": "validation", "message": err.Error()}})
		return false
	}
	return true
}

func pathId(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"kind": "validation", "message": "invalid id"}})
		return 0, false
	}
	return id, true
}

// queryOptionalDates reads optional from/to query params (2006-01-02) and
// leaves a bound nil when the caller did not give one. The to date is
// inclusive on the wire.
func queryOptionalDates(c *gin.Context) (*time.Time, *time.Time, bool) {
	var fromDate, toDate *time.Time
	if v := c.Query("from"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"kind": "validation", "message": "invalid from date"}})
			return nil, nil, false
		}
		fromDate = &parsed
	}
	if v := c.Query("to"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"kind": "validation", "message": "invalid to date"}})
			return nil, nil, false
		}
		end := parsed.AddDate(0, 0, 1)
		toDate = &end
	}
	return fromDate, toDate, true
}

