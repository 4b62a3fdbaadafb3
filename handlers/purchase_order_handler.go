package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stocklane/inventory_backend/models"
)

func GetPurchaseOrders(c *gin.Context) {
	orders, err := models.GetPurchaseOrders(c.Request.Context())
	if err != nil {
		respondError(c, "purchase_order_handler.go", "GetPurchaseOrders", err)
		return
	}
	respondData(c, http.StatusOK, orders)
}

func GetPurchaseOrder(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	po, err := models.GetPurchaseOrderById(c.Request.Context(), id)
	if err != nil {
		respondError(c, "purchase_order_handler.go", "GetPurchaseOrder", err)
		return
	}
	respondData(c, http.StatusOK, po)
}

func CreatePurchaseOrder(c *gin.Context) {
	var input models.NewPurchaseOrder
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindingError(c, err)
		return
	}
	po, err := models.CreatePurchaseOrder(c.Request.Context(), &input)
	if err != nil {
		respondError(c, "purchase_order_handler.go", "CreatePurchaseOrder", err)
		return
	}
	respondData(c, http.StatusCreated, po)
}

func ConfirmPurchaseOrder(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	po, err := models.ConfirmPurchaseOrder(c.Request.Context(), id)
	if err != nil {
		respondError(c, "purchase_order_handler.go", "ConfirmPurchaseOrder", err)
		return
	}
	respondData(c, http.StatusOK, po)
}

type receivePurchaseOrderRequest struct {
	ReceivedItems []models.ReceiptItem `json:"receivedItems" binding:"required,min=1,dive"`
}

func ReceivePurchaseOrder(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var req receivePurchaseOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}
	po, err := models.ReceivePurchaseOrder(c.Request.Context(), id, req.ReceivedItems)
	if err != nil {
		respondError(c, "purchase_order_handler.go", "ReceivePurchaseOrder", err)
		return
	}
	respondData(c, http.StatusOK, po)
}
