package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/stocklane/inventory_backend/models"
)

func pathId(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid id"})
		return 0, false
	}
	return id, true
}

func GetProducts(c *gin.Context) {
	products, err := models.GetProducts(c.Request.Context())
	if err != nil {
		respondError(c, "product_handler.go", "GetProducts", err)
		return
	}
	respondData(c, http.StatusOK, products)
}

func CreateProduct(c *gin.Context) {
	var input models.NewProduct
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindingError(c, err)
		return
	}
	product, err := models.CreateProduct(c.Request.Context(), &input)
	if err != nil {
		respondError(c, "product_handler.go", "CreateProduct", err)
		return
	}
	respondData(c, http.StatusCreated, product)
}

func UpdateProduct(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input models.UpdateProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindingError(c, err)
		return
	}
	product, err := models.UpdateProduct(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, "product_handler.go", "UpdateProduct", err)
		return
	}
	respondData(c, http.StatusOK, product)
}

func DeleteProduct(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	if err := models.DeleteProduct(c.Request.Context(), id); err != nil {
		respondError(c, "product_handler.go", "DeleteProduct", err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"deleted": id})
}

func GetVariants(c *gin.Context) {
	variants, err := models.GetProductVariants(c.Request.Context())
	if err != nil {
		respondError(c, "product_handler.go", "GetVariants", err)
		return
	}
	respondData(c, http.StatusOK, variants)
}

func CreateVariant(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input models.NewProductVariant
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindingError(c, err)
		return
	}
	variant, err := models.CreateProductVariant(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, "product_handler.go", "CreateVariant", err)
		return
	}
	respondData(c, http.StatusCreated, variant)
}

func UpdateVariant(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input models.UpdateProductVariantInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindingError(c, err)
		return
	}
	variant, err := models.UpdateProductVariant(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, "product_handler.go", "UpdateVariant", err)
		return
	}
	respondData(c, http.StatusOK, variant)
}

func DeleteVariant(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	if err := models.DeleteProductVariant(c.Request.Context(), id); err != nil {
		respondError(c, "product_handler.go", "DeleteVariant", err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"deleted": id})
}

func AdjustStock(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input models.StockAdjustmentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindingError(c, err)
		return
	}
	variant, err := models.AdjustStock(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, "product_handler.go", "AdjustStock", err)
		return
	}
	respondData(c, http.StatusOK, variant)
}

func GetStockLedger(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	entries, err := models.GetStockLedger(c.Request.Context(), id)
	if err != nil {
		respondError(c, "product_handler.go", "GetStockLedger", err)
		return
	}
	respondData(c, http.StatusOK, entries)
}
