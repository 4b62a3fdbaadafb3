package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stocklane/inventory_backend/models"
	"github.com/stocklane/inventory_backend/utils"
)

func Register(c *gin.Context) {
	var input models.NewUser
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindingError(c, err)
		return
	}

	user, err := models.CreateUser(c.Request.Context(), &input)
	if err != nil {
		respondError(c, "auth_handler.go", "Register", err)
		return
	}

	token, err := utils.JwtGenerate(user.ID, string(user.Role))
	if err != nil {
		respondError(c, "auth_handler.go", "Register", utils.OperationFailed(err))
		return
	}

	respondData(c, http.StatusCreated, gin.H{"user": user, "token": token})
}

func Login(c *gin.Context) {
	var creds models.Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		respondBindingError(c, err)
		return
	}

	user, err := models.Authenticate(c.Request.Context(), &creds)
	if err != nil {
		respondError(c, "auth_handler.go", "Login", err)
		return
	}

	token, err := utils.JwtGenerate(user.ID, string(user.Role))
	if err != nil {
		respondError(c, "auth_handler.go", "Login", utils.OperationFailed(err))
		return
	}

	respondData(c, http.StatusOK, gin.H{"user": user, "token": token})
}
