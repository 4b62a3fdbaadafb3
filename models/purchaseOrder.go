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

type PurchaseOrder struct {
	ID          int                 `gorm:"primary_key" json:"id"`
	OrderNumber string              `gorm:"size:50;uniqueIndex;not null" json:"order_number"`
	SequenceNo  int64               `gorm:"not null" json:"sequence_no"`
	SupplierId  int                 `gorm:"index;not null" json:"supplier_id"`
	Notes       string              `gorm:"type:text" json:"notes"`
	TotalAmount decimal.Decimal     `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
	Status      PurchaseOrderStatus `gorm:"type:enum('Pending','Confirmed','Partially Received','Received');default:Pending" json:"status"`
	Items       []PurchaseOrderItem `json:"items"`
	CreatedAt   time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
}

type PurchaseOrderItem struct {
	ID               int             `gorm:"primary_key" json:"id"`
	PurchaseOrderId  int             `gorm:"index;not null" json:"purchase_order_id"`
	VariantId        int             `gorm:"index;not null" json:"variant_id"`
	OrderedQuantity  int             `gorm:"not null" json:"ordered_quantity"`
	ReceivedQuantity int             `gorm:"not null;default:0" json:"received_quantity"`
	ExpectedPrice    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"expected_price"`
	// ActualPrice is set at receipt when the supplier's invoice price differs
	// from the expected one; cost reporting prefers it when present.
	ActualPrice *decimal.Decimal `gorm:"type:decimal(20,4)" json:"actual_price"`
}

type NewPurchaseOrder struct {
	SupplierId int                    `json:"supplier_id" binding:"required"`
	Notes      string                 `json:"notes"`
	Items      []NewPurchaseOrderItem `json:"items" binding:"required,min=1,dive"`
}

type NewPurchaseOrderItem struct {
	VariantId     int             `json:"variant_id" binding:"required"`
	Quantity      int             `json:"quantity" binding:"required,gt=0"`
	ExpectedPrice decimal.Decimal `json:"expected_price"`
}

// ReceiptItem carries one line's received-quantity INCREMENT plus the
// optional invoiced price.
type ReceiptItem struct {
	ItemId           int              `json:"item_id" binding:"required"`
	ReceivedQuantity int              `json:"received_quantity" binding:"gte=0"`
	ActualPrice      *decimal.Decimal `json:"actual_price"`
}

func CreatePurchaseOrder(ctx context.Context, input *NewPurchaseOrder) (*PurchaseOrder, error) {
	db := config.GetDB()

	if err := utils.ValidateResourceId[Supplier](ctx, input.SupplierId); err != nil {
		return nil, utils.ValidationErrorf("supplier not found")
	}
	if len(input.Items) == 0 {
		return nil, utils.ValidationErrorf("purchase order needs at least one item")
	}

	totalAmount := decimal.Zero
	items := make([]PurchaseOrderItem, 0, len(input.Items))
	for _, item := range input.Items {
		if item.Quantity <= 0 {
			return nil, utils.ValidationErrorf("quantity must be positive")
		}
		if item.ExpectedPrice.IsNegative() {
			return nil, utils.ValidationErrorf("expected price cannot be negative")
		}
		if err := utils.ValidateResourceId[ProductVariant](ctx, item.VariantId); err != nil {
			return nil, utils.ValidationErrorf("variant %d not found", item.VariantId)
		}
		totalAmount = totalAmount.Add(item.ExpectedPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
		items = append(items, PurchaseOrderItem{
			VariantId:       item.VariantId,
			OrderedQuantity: item.Quantity,
			ExpectedPrice:   item.ExpectedPrice,
		})
	}

	seqNo, err := utils.GetSequence[PurchaseOrder](ctx)
	if err != nil {
		return nil, utils.OperationFailed(err)
	}

	po := PurchaseOrder{
		OrderNumber: fmt.Sprintf("PO-%06d", seqNo),
		SequenceNo:  seqNo,
		SupplierId:  input.SupplierId,
		Notes:       input.Notes,
		TotalAmount: totalAmount,
		Status:      PurchaseOrderStatusPending,
		Items:       items,
	}
	if err := db.WithContext(ctx).Create(&po).Error; err != nil {
		return nil, utils.OperationFailed(err)
	}
	return &po, nil
}

func GetPurchaseOrders(ctx context.Context) ([]*PurchaseOrder, error) {
	db := config.GetDB()

	var orders []*PurchaseOrder
	if err := db.WithContext(ctx).Preload("Items").Order("id DESC").Find(&orders).Error; err != nil {
		return nil, utils.OperationFailed(err)
	}
	return orders, nil
}

func GetPurchaseOrderById(ctx context.Context, id int) (*PurchaseOrder, error) {
	db := config.GetDB()

	var po PurchaseOrder
	if err := db.WithContext(ctx).Preload("Items").First(&po, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrRecordNotFound
		}
		return nil, utils.OperationFailed(err)
	}
	return &po, nil
}

// ConfirmPurchaseOrder marks a Pending PO as placed with the supplier.
func ConfirmPurchaseOrder(ctx context.Context, poId int) (*PurchaseOrder, error) {
	db := config.GetDB()

	tx := db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	var po PurchaseOrder
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&po, poId).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrRecordNotFound
		}
		return nil, utils.OperationFailed(err)
	}

	if po.Status != PurchaseOrderStatusPending {
		tx.Rollback()
		return nil, utils.InvalidStateTransitionErrorf("cannot confirm purchase order in status %s", po.Status)
	}

	if err := tx.Model(&PurchaseOrder{}).Where("id = ?", po.ID).
		Update("status", PurchaseOrderStatusConfirmed).Error; err != nil {
		tx.Rollback()
		return nil, utils.OperationFailed(err)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, utils.OperationFailed(err)
	}
	return GetPurchaseOrderById(ctx, poId)
}

// receiptLine is one planned stock increment.
type receiptLine struct {
	itemId      int
	variantId   int
	increment   int
	actualPrice *decimal.Decimal
}

// buildReceiptPlan validates a receiving request against the PO and returns
// the per-line increments. Pure function; DB-free.
func buildReceiptPlan(po *PurchaseOrder, items []ReceiptItem) ([]receiptLine, error) {
	if len(items) == 0 {
		return nil, utils.ValidationErrorf("nothing to receive")
	}

	lineById := make(map[int]*PurchaseOrderItem, len(po.Items))
	for i := range po.Items {
		lineById[po.Items[i].ID] = &po.Items[i]
	}

	var plan []receiptLine
	seen := make(map[int]bool, len(items))
	total := 0
	for _, req := range items {
		line, ok := lineById[req.ItemId]
		if !ok {
			return nil, utils.ValidationErrorf("item %d does not belong to purchase order %d", req.ItemId, po.ID)
		}
		if seen[req.ItemId] {
			return nil, utils.ValidationErrorf("item %d listed twice", req.ItemId)
		}
		seen[req.ItemId] = true

		remaining := line.OrderedQuantity - line.ReceivedQuantity
		if req.ReceivedQuantity < 0 || req.ReceivedQuantity > remaining {
			return nil, utils.ValidationErrorf(
				"item %d: received quantity %d out of range (0..%d)", req.ItemId, req.ReceivedQuantity, remaining)
		}
		if req.ActualPrice != nil && req.ActualPrice.IsNegative() {
			return nil, utils.ValidationErrorf("item %d: actual price cannot be negative", req.ItemId)
		}
		if req.ReceivedQuantity == 0 && req.ActualPrice == nil {
			continue
		}
		total += req.ReceivedQuantity
		plan = append(plan, receiptLine{
			itemId:      line.ID,
			variantId:   line.VariantId,
			increment:   req.ReceivedQuantity,
			actualPrice: req.ActualPrice,
		})
	}
	if total == 0 {
		return nil, utils.ValidationErrorf("nothing to receive")
	}
	return plan, nil
}

// purchaseOrderStatusFor derives the PO status from its lines. Pure.
func purchaseOrderStatusFor(items []PurchaseOrderItem, current PurchaseOrderStatus) PurchaseOrderStatus {
	allReceived := true
	anyReceived := false
	for _, line := range items {
		if line.ReceivedQuantity > 0 {
			anyReceived = true
		}
		if line.ReceivedQuantity < line.OrderedQuantity {
			allReceived = false
		}
	}
	switch {
	case allReceived && len(items) > 0:
		return PurchaseOrderStatusReceived
	case anyReceived:
		return PurchaseOrderStatusPartiallyReceived
	default:
		return current
	}
}

// ReceivePurchaseOrder accepts delivered quantity against a PO. All affected
// lines increment stock inside ONE transaction; increments cannot fail on
// sufficiency, only on bounds.
func ReceivePurchaseOrder(ctx context.Context, poId int, items []ReceiptItem) (*PurchaseOrder, error) {
	db := config.GetDB()

	release, err := utils.StockLock(ctx, "stock", "purchaseOrder.go", "ReceivePurchaseOrder")
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

	var po PurchaseOrder
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&po, poId).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrRecordNotFound
		}
		return nil, utils.OperationFailed(err)
	}
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("purchase_order_id = ?", poId).Order("id").Find(&po.Items).Error; err != nil {
		tx.Rollback()
		return nil, utils.OperationFailed(err)
	}

	if !po.Status.CanReceive() {
		tx.Rollback()
		return nil, utils.InvalidStateTransitionErrorf("cannot receive purchase order in status %s", po.Status)
	}

	plan, err := buildReceiptPlan(&po, items)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	// Ascending variant id keeps concurrent multi-line calls deadlock-free.
	sort.Slice(plan, func(i, j int) bool { return plan[i].variantId < plan[j].variantId })

	events := make([]StockUpdateEvent, 0, len(plan))
	for _, line := range plan {
		if line.increment == 0 {
			continue
		}
		_, event, err := ApplyStockDelta(tx, line.variantId, line.increment, StockReasonPurchase, StockReferenceTypePurchaseOrder, po.ID)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		events = append(events, event)
	}

	for _, line := range plan {
		updates := map[string]interface{}{}
		if line.increment > 0 {
			updates["received_quantity"] = gorm.Expr("received_quantity + ?", line.increment)
		}
		if line.actualPrice != nil {
			updates["actual_price"] = *line.actualPrice
		}
		if len(updates) == 0 {
			continue
		}
		if err := tx.Model(&PurchaseOrderItem{}).
			Where("id = ?", line.itemId).
			Updates(updates).Error; err != nil {
			tx.Rollback()
			return nil, utils.OperationFailed(err)
		}
		for i := range po.Items {
			if po.Items[i].ID == line.itemId {
				po.Items[i].ReceivedQuantity += line.increment
			}
		}
	}

	newStatus := purchaseOrderStatusFor(po.Items, po.Status)
	if newStatus != po.Status {
		if err := tx.Model(&PurchaseOrder{}).Where("id = ?", po.ID).
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

	return GetPurchaseOrderById(ctx, poId)
}
