package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stocklane/inventory_backend/models"
)

func GetOrders(c *gin.Context) {
	orders, err := models.GetSalesOrders(c.Request.Context())
	if err != nil {
		respondError(c, "order_handler.go", "GetOrders", err)
		return
	}
	respondData(c, http.StatusOK, orders)
}

func GetOrder(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	order, err := models.GetSalesOrderById(c.Request.Context(), id)
	if err != nil {
		respondError(c, "order_handler.go", "GetOrder", err)
		return
	}
	respondData(c, http.StatusOK, order)
}

func CreateOrder(c *gin.Context) {
	var input models.NewSalesOrder
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindingError(c, err)
		return
	}
	order, err := models.CreateSalesOrder(c.Request.Context(), &input)
	if err != nil {
		respondError(c, "order_handler.go", "CreateOrder", err)
		return
	}
	respondData(c, http.StatusCreated, order)
}

// fulfillOrderRequest wraps the optional per-line quantities. An empty body
// (or one without fulfillmentData.items) means Full mode: fulfill every
// remaining unit on the order.
type fulfillOrderRequest struct {
	FulfillmentData *struct {
		Items []models.FulfillmentItem `json:"items"`
	} `json:"fulfillmentData"`
}

func FulfillOrder(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}

	var req fulfillOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
		respondBindingError(c, err)
		return
	}

	var items []models.FulfillmentItem
	if req.FulfillmentData != nil {
		items = req.FulfillmentData.Items
	}

	order, err := models.FulfillSalesOrder(c.Request.Context(), id, items)
	if err != nil {
		respondError(c, "order_handler.go", "FulfillOrder", err)
		return
	}
	respondData(c, http.StatusOK, order)
}

func CancelOrder(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	order, err := models.CancelSalesOrder(c.Request.Context(), id)
	if err != nil {
		respondError(c, "order_handler.go", "CancelOrder", err)
		return
	}
	respondData(c, http.StatusOK, order)
}
