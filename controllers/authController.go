package controllers

import (
	"net/http"
	"os"
	"strconv"
	"time"

	"bitbucket.org/mmdatafocus/shopledger_backend/config"
	"bitbucket.org/mmdatafocus/shopledger_backend/middlewares"
	"bitbucket.org/mmdatafocus/shopledger_backend/models"
	"bitbucket.org/mmdatafocus/shopledger_backend/utils"
	"github.com/gin-gonic/gin"
)

type registerRequest struct {
	Business models.NewBusiness `json:"business" binding:"required"`
	User     models.NewUser     `json:"user" binding:"required"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func sessionLifespan() time.Duration {
	hours := 24
	if v := os.Getenv("TOKEN_HOUR_LIFESPAN"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			hours = n
		}
	}
	return time.Duration(hours) * time.Hour
}

// Register creates a business together with its first user.
func Register(c *gin.Context) {
	var req registerRequest
	if !bindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()

	business, user, err := models.RegisterBusiness(ctx, &req.Business, &req.User)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"business": business, "user": user})
}

// Login validates credentials, issues a JWT and stores the server-side
// session that SessionMiddleware resolves on later requests.
func Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()

	user, err := models.GetUserByUsername(ctx, req.Username)
	if err != nil {
		respondError(c, utils.NewUnauthorizedError("invalid username or password"))
		return
	}
	if user.IsActive != nil && !*user.IsActive {
		respondError(c, utils.NewUnauthorizedError("account is disabled"))
		return
	}
	if err := utils.ComparePassword(user.Password, req.Password); err != nil {
		respondError(c, utils.NewUnauthorizedError("invalid username or password"))
		return
	}

	token, err := utils.JwtGenerate(user.ID, user.BusinessId)
	if err != nil {
		respondError(c, err)
		return
	}

	session := middlewares.Session{
		UserId:     user.ID,
		BusinessId: user.BusinessId,
		Username:   user.Username,
	}
	if err := config.SetRedisObject("Token:"+token, &session, sessionLifespan()); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

func Logout(c *gin.Context) {
	token, ok := utils.GetTokenFromContext(c.Request.Context())
	if ok && token != "" {
		_ = config.RemoveRedisKey("Token:" + token)
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}
