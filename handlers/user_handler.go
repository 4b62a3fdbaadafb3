package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stocklane/inventory_backend/models"
	"github.com/stocklane/inventory_backend/utils"
)

func GetUsers(c *gin.Context) {
	users, err := models.GetUsers(c.Request.Context())
	if err != nil {
		respondError(c, "user_handler.go", "GetUsers", err)
		return
	}
	respondData(c, http.StatusOK, users)
}

type updateUserRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

func UpdateUserRole(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var req updateUserRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}
	role, err := models.ParseRole(req.Role)
	if err != nil {
		respondError(c, "user_handler.go", "UpdateUserRole", utils.ValidationErrorf("%v", err))
		return
	}
	user, err := models.UpdateUserRole(c.Request.Context(), id, role)
	if err != nil {
		respondError(c, "user_handler.go", "UpdateUserRole", err)
		return
	}
	respondData(c, http.StatusOK, user)
}
