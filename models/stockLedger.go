package models

import (
	"context"
	"errors"
	"time"

	"github.com/stocklane/inventory_backend/config"
	"github.com/stocklane/inventory_backend/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StockLedgerEntry is an immutable audit record of one stock mutation.
// Append-only: rows are never updated or deleted, and for every variant
// SUM(delta) must equal product_variants.stock (reconciliation invariant).
type StockLedgerEntry struct {
	ID            int                `gorm:"primary_key" json:"id"`
	VariantId     int                `gorm:"index;not null" json:"variant_id"`
	Delta         int                `gorm:"not null" json:"delta"`
	Reason        StockReason        `gorm:"type:enum('Purchase','Sale','Return','Adjustment','Cancellation');not null;index" json:"reason"`
	ReferenceType StockReferenceType `gorm:"type:enum('SO','PO','ADJ')" json:"reference_type"`
	ReferenceId   int                `json:"reference_id"`
	CreatedAt     time.Time          `gorm:"autoCreateTime;index" json:"created_at"`
}

// ApplyStockDelta is the single authority for mutating a variant's on-hand
// quantity. It row-locks the variant, checks the resulting stock stays
// non-negative, writes the new quantity and appends one ledger entry, all
// inside the caller's transaction, so a rollback leaves no partial state.
//
// The row lock serializes concurrent mutations per variant; operations on
// disjoint variants proceed independently. Multi-line callers must apply
// their deltas in ascending variant id order to stay deadlock-free.
func ApplyStockDelta(tx *gorm.DB, variantId int, delta int, reason StockReason, refType StockReferenceType, refId int) (int, StockUpdateEvent, error) {
	var variant ProductVariant
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&variant, variantId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, StockUpdateEvent{}, utils.ValidationErrorf("variant %d not found", variantId)
		}
		return 0, StockUpdateEvent{}, utils.OperationFailed(err)
	}

	newStock := variant.Stock + delta
	if newStock < 0 {
		return 0, StockUpdateEvent{}, utils.InsufficientStockErrorf(
			"variant %s has %d in stock, cannot apply %d", variant.Sku, variant.Stock, delta)
	}

	if err := tx.Model(&ProductVariant{}).Where("id = ?", variantId).
		Update("stock", newStock).Error; err != nil {
		return 0, StockUpdateEvent{}, utils.OperationFailed(err)
	}

	entry := StockLedgerEntry{
		VariantId:     variantId,
		Delta:         delta,
		Reason:        reason,
		ReferenceType: refType,
		ReferenceId:   refId,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return 0, StockUpdateEvent{}, utils.OperationFailed(err)
	}

	event := StockUpdateEvent{
		VariantId: variantId,
		Sku:       variant.Sku,
		NewStock:  newStock,
		Reason:    reason,
	}
	return newStock, event, nil
}

type StockAdjustmentInput struct {
	Delta  int    `json:"delta" binding:"required"`
	Reason string `json:"reason" binding:"required"`
}

// AdjustStock applies a manual stock correction (or return) outside the
// order/PO protocols. Sale and Purchase are reserved for their lifecycles.
func AdjustStock(ctx context.Context, variantId int, input *StockAdjustmentInput) (*ProductVariant, error) {
	db := config.GetDB()

	reason, err := ParseStockReason(input.Reason)
	if err != nil {
		return nil, utils.ValidationErrorf("%v", err)
	}
	if reason == StockReasonSale || reason == StockReasonPurchase {
		return nil, utils.ValidationErrorf("reason %s is reserved for order processing", reason)
	}
	if input.Delta == 0 {
		return nil, utils.ValidationErrorf("delta cannot be zero")
	}

	tx := db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	_, event, err := ApplyStockDelta(tx, variantId, input.Delta, reason, StockReferenceTypeAdjustment, 0)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, utils.OperationFailed(err)
	}

	// Publish only after the mutation is durably committed.
	NotifyStockUpdates(ctx, []StockUpdateEvent{event})

	return GetProductVariantById(ctx, variantId)
}

// GetStockLedger returns a variant's entries, newest first.
func GetStockLedger(ctx context.Context, variantId int) ([]*StockLedgerEntry, error) {
	db := config.GetDB()

	if err := utils.ValidateResourceId[ProductVariant](ctx, variantId); err != nil {
		return nil, utils.ErrRecordNotFound
	}

	var entries []*StockLedgerEntry
	if err := db.WithContext(ctx).
		Where("variant_id = ?", variantId).
		Order("id DESC").
		Find(&entries).Error; err != nil {
		return nil, utils.OperationFailed(err)
	}
	return entries, nil
}

// ReconcileVariantStock recomputes SUM(delta) for a variant and compares it
// to the cached quantity. Used by ops tooling and the regression suite.
func ReconcileVariantStock(ctx context.Context, variantId int) (ledgerSum int, cached int, err error) {
	db := config.GetDB()

	variant, err := GetProductVariantById(ctx, variantId)
	if err != nil {
		return 0, 0, err
	}

	var sum *int
	if err := db.WithContext(ctx).Model(&StockLedgerEntry{}).
		Select("SUM(delta)").
		Where("variant_id = ?", variantId).
		Scan(&sum).Error; err != nil {
		return 0, 0, utils.OperationFailed(err)
	}
	if sum != nil {
		ledgerSum = *sum
	}
	return ledgerSum, variant.Stock, nil
}
