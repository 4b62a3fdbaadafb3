package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stocklane/inventory_backend/models"
)

func GetSuppliers(c *gin.Context) {
	suppliers, err := models.GetSuppliers(c.Request.Context())
	if err != nil {
		respondError(c, "supplier_handler.go", "GetSuppliers", err)
		return
	}
	respondData(c, http.StatusOK, suppliers)
}

func CreateSupplier(c *gin.Context) {
	var input models.NewSupplier
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindingError(c, err)
		return
	}
	supplier, err := models.CreateSupplier(c.Request.Context(), &input)
	if err != nil {
		respondError(c, "supplier_handler.go", "CreateSupplier", err)
		return
	}
	respondData(c, http.StatusCreated, supplier)
}

func UpdateSupplier(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input models.NewSupplier
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindingError(c, err)
		return
	}
	supplier, err := models.UpdateSupplier(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, "supplier_handler.go", "UpdateSupplier", err)
		return
	}
	respondData(c, http.StatusOK, supplier)
}

func DeleteSupplier(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	if err := models.DeleteSupplier(c.Request.Context(), id); err != nil {
		respondError(c, "supplier_handler.go", "DeleteSupplier", err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"deleted": id})
}
