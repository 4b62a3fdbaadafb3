package models

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stocklane/inventory_backend/config"
	"github.com/stocklane/inventory_backend/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SalesOrder struct {
	ID            int              `gorm:"primary_key" json:"id"`
	OrderNumber   string           `gorm:"size:50;uniqueIndex;not null" json:"order_number"`
	SequenceNo    int64            `gorm:"not null" json:"sequence_no"`
	CustomerName  string           `gorm:"size:255" json:"customer_name"`
	CustomerEmail string           `gorm:"size:255" json:"customer_email"`
	// TotalAmount is a price snapshot taken at creation; later price edits
	// never change it.
	TotalAmount decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
	Status      SalesOrderStatus `gorm:"type:enum('Pending','Partially Fulfilled','Fulfilled','Cancelled');default:Pending" json:"status"`
	Items       []SalesOrderItem `json:"items"`
	CreatedAt   time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

type SalesOrderItem struct {
	ID                int             `gorm:"primary_key" json:"id"`
	SalesOrderId      int             `gorm:"index;not null" json:"sales_order_id"`
	VariantId         int             `gorm:"index;not null" json:"variant_id"`
	OrderedQuantity   int             `gorm:"not null" json:"ordered_quantity"`
	FulfilledQuantity int             `gorm:"not null;default:0" json:"fulfilled_quantity"`
	UnitPrice         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_price"`
}

type NewSalesOrder struct {
	Items         []NewSalesOrderItem `json:"items" binding:"required,min=1,dive"`
	CustomerName  string              `json:"customer_name"`
	CustomerEmail string              `json:"customer_email" binding:"omitempty,email"`
}

type NewSalesOrderItem struct {
	VariantId int `json:"variant_id" binding:"required"`
	Quantity  int `json:"quantity" binding:"required,gt=0"`
}

// FulfillmentItem carries one line's fulfilled-quantity INCREMENT for a
// partial fulfillment request.
type FulfillmentItem struct {
	ItemId            int `json:"item_id" binding:"required"`
	FulfilledQuantity int `json:"fulfilled_quantity" binding:"gte=0"`
}

// CreateSalesOrder places an order. Stock is deliberately NOT reserved or
// checked here; sufficiency is enforced at fulfillment time, so orders
// always start Pending regardless of current stock.
func CreateSalesOrder(ctx context.Context, input *NewSalesOrder) (*SalesOrder, error) {
	db := config.GetDB()

	if len(input.Items) == 0 {
		return nil, utils.ValidationErrorf("order needs at least one item")
	}

	totalAmount := decimal.Zero
	items := make([]SalesOrderItem, 0, len(input.Items))
	for _, item := range input.Items {
		if item.Quantity <= 0 {
			return nil, utils.ValidationErrorf("quantity must be positive")
		}
		variant, err := GetProductVariantById(ctx, item.VariantId)
		if err != nil {
			if errors.Is(err, utils.ErrRecordNotFound) {
				return nil, utils.ValidationErrorf("variant %d not found", item.VariantId)
			}
			return nil, err
		}
		lineAmount := variant.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		totalAmount = totalAmount.Add(lineAmount)
		items = append(items, SalesOrderItem{
			VariantId:       item.VariantId,
			OrderedQuantity: item.Quantity,
			UnitPrice:       variant.Price,
		})
	}

	seqNo, err := utils.GetSequence[SalesOrder](ctx)
	if err != nil {
		return nil, utils.OperationFailed(err)
	}

	order := SalesOrder{
		OrderNumber:   fmt.Sprintf("SO-%06d", seqNo),
		SequenceNo:    seqNo,
		CustomerName:  input.CustomerName,
		CustomerEmail: input.CustomerEmail,
		TotalAmount:   totalAmount,
		Status:        SalesOrderStatusPending,
		Items:         items,
	}
	if err := db.WithContext(ctx).Create(&order).Error; err != nil {
		return nil, utils.OperationFailed(err)
	}
	return &order, nil
}

func GetSalesOrders(ctx context.Context) ([]*SalesOrder, error) {
	db := config.GetDB()

	var orders []*SalesOrder
	if err := db.WithContext(ctx).Preload("Items").Order("id DESC").Find(&orders).Error; err != nil {
		return nil, utils.OperationFailed(err)
	}
	return orders, nil
}

func GetSalesOrderById(ctx context.Context, id int) (*SalesOrder, error) {
	db := config.GetDB()

	var order SalesOrder
	if err := db.WithContext(ctx).Preload("Items").First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrRecordNotFound
		}
		return nil, utils.OperationFailed(err)
	}
	return &order, nil
}

// fulfillmentLine is one planned stock decrement.
type fulfillmentLine struct {
	itemId    int
	variantId int
	increment int
}

// buildFulfillmentPlan validates a fulfillment request against the order and
// returns the per-line increments. A nil request means Full mode: every
// remaining unit on every line. Pure function; DB-free.
func buildFulfillmentPlan(order *SalesOrder, items []FulfillmentItem) ([]fulfillmentLine, error) {
	var plan []fulfillmentLine

	if items == nil {
		for _, line := range order.Items {
			remaining := line.OrderedQuantity - line.FulfilledQuantity
			if remaining > 0 {
				plan = append(plan, fulfillmentLine{itemId: line.ID, variantId: line.VariantId, increment: remaining})
			}
		}
		if len(plan) == 0 {
			return nil, utils.ValidationErrorf("nothing left to fulfill")
		}
		return plan, nil
	}

	lineById := make(map[int]*SalesOrderItem, len(order.Items))
	for i := range order.Items {
		lineById[order.Items[i].ID] = &order.Items[i]
	}

	seen := make(map[int]bool, len(items))
	total := 0
	for _, req := range items {
		line, ok := lineById[req.ItemId]
		if !ok {
			return nil, utils.ValidationErrorf("item %d does not belong to order %d", req.ItemId, order.ID)
		}
		if seen[req.ItemId] {
			return nil, utils.ValidationErrorf("item %d listed twice", req.ItemId)
		}
		seen[req.ItemId] = true

		remaining := line.OrderedQuantity - line.FulfilledQuantity
		if req.FulfilledQuantity < 0 || req.FulfilledQuantity > remaining {
			return nil, utils.ValidationErrorf(
				"item %d: fulfilled quantity %d out of range (0..%d)", req.ItemId, req.FulfilledQuantity, remaining)
		}
		if req.FulfilledQuantity == 0 {
			continue
		}
		total += req.FulfilledQuantity
		plan = append(plan, fulfillmentLine{itemId: line.ID, variantId: line.VariantId, increment: req.FulfilledQuantity})
	}
	if total == 0 {
		return nil, utils.ValidationErrorf("nothing to fulfill")
	}
	return plan, nil
}

// salesOrderStatusFor derives the order status from its lines. Pure.
func salesOrderStatusFor(items []SalesOrderItem, current SalesOrderStatus) SalesOrderStatus {
	allFulfilled := true
	anyFulfilled := false
	for _, line := range items {
		if line.FulfilledQuantity > 0 {
			anyFulfilled = true
		}
		if line.FulfilledQuantity < line.OrderedQuantity {
			allFulfilled = false
		}
	}
	switch {
	case allFulfilled && len(items) > 0:
		return SalesOrderStatusFulfilled
	case anyFulfilled:
		return SalesOrderStatusPartiallyFulfilled
	default:
		return current
	}
}

// FulfillSalesOrder ships quantity against an order. items == nil means Full
// mode. All affected lines decrement stock inside ONE transaction: if any
// line lacks stock the whole call fails with ErrInsufficientStock and no
// ledger entry survives.
func FulfillSalesOrder(ctx context.Context, orderId int, items []FulfillmentItem) (*SalesOrder, error) {
	db := config.GetDB()

	// Best-effort coarse lock; the row locks below are the real guarantee.
	release, err := utils.StockLock(ctx, "stock", "salesOrder.go", "FulfillSalesOrder")
	if err != nil {
		return nil, utils.OperationFailed(err)
	}
	defer release()

	tx := db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	var order SalesOrder
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&order, orderId).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrRecordNotFound
		}
		return nil, utils.OperationFailed(err)
	}
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("sales_order_id = ?", orderId).Order("id").Find(&order.Items).Error; err != nil {
		tx.Rollback()
		return nil, utils.OperationFailed(err)
	}

	if !order.Status.CanFulfill() {
		tx.Rollback()
		return nil, utils.InvalidStateTransitionErrorf("cannot fulfill order in status %s", order.Status)
	}

	plan, err := buildFulfillmentPlan(&order, items)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	// Ascending variant id keeps concurrent multi-line calls deadlock-free.
	sort.Slice(plan, func(i, j int) bool { return plan[i].variantId < plan[j].variantId })

	events := make([]StockUpdateEvent, 0, len(plan))
	for _, line := range plan {
		_, event, err := ApplyStockDelta(tx, line.variantId, -line.increment, StockReasonSale, StockReferenceTypeSalesOrder, order.ID)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		events = append(events, event)
	}

	for _, line := range plan {
		if err := tx.Model(&SalesOrderItem{}).
			Where("id = ?", line.itemId).
			Update("fulfilled_quantity", gorm.Expr("fulfilled_quantity + ?", line.increment)).Error; err != nil {
			tx.Rollback()
			return nil, utils.OperationFailed(err)
		}
		for i := range order.Items {
			if order.Items[i].ID == line.itemId {
				order.Items[i].FulfilledQuantity += line.increment
			}
		}
	}

	newStatus := salesOrderStatusFor(order.Items, order.Status)
	if newStatus != order.Status {
		if err := tx.Model(&SalesOrder{}).Where("id = ?", order.ID).
			Update("status", newStatus).Error; err != nil {
			tx.Rollback()
			return nil, utils.OperationFailed(err)
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, utils.OperationFailed(err)
	}

	// Publish only after the transaction is durably committed.
	NotifyStockUpdates(ctx, events)

	return GetSalesOrderById(ctx, orderId)
}

// CancelSalesOrder cancels a Pending order. Cancelled is terminal; fulfilled
// quantities are never reversed here, which is why only Pending qualifies.
func CancelSalesOrder(ctx context.Context, orderId int) (*SalesOrder, error) {
	db := config.GetDB()

	tx := db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	var order SalesOrder
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&order, orderId).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrRecordNotFound
		}
		return nil, utils.OperationFailed(err)
	}

	if !order.Status.CanCancel() {
		tx.Rollback()
		return nil, utils.InvalidStateTransitionErrorf("cannot cancel order in status %s", order.Status)
	}

	if err := tx.Model(&SalesOrder{}).Where("id = ?", order.ID).
		Update("status", SalesOrderStatusCancelled).Error; err != nil {
		tx.Rollback()
		return nil, utils.OperationFailed(err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, utils.OperationFailed(err)
	}
	return GetSalesOrderById(ctx, orderId)
}
