package models

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stocklane/inventory_backend/config"
	"github.com/stocklane/inventory_backend/utils"
	"gorm.io/gorm"
)

// ProductVariant is the sellable SKU-level unit. Stock is never written
// directly: every change goes through ApplyStockDelta so the ledger and the
// cached quantity cannot drift.
type ProductVariant struct {
	ID           int               `gorm:"primary_key" json:"id"`
	ProductId    int               `gorm:"index;not null" json:"product_id"`
	Sku          string            `gorm:"size:100;uniqueIndex;not null" json:"sku"`
	Attributes   map[string]string `gorm:"serializer:json" json:"attributes"`
	Price        decimal.Decimal   `gorm:"type:decimal(20,4);default:0" json:"price"`
	MinimumStock int               `gorm:"not null;default:0" json:"minimum_stock"`
	Stock        int               `gorm:"not null;default:0" json:"stock"`
	CreatedAt    time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewProductVariant struct {
	Sku          string            `json:"sku" binding:"required"`
	Attributes   map[string]string `json:"attributes"`
	Price        decimal.Decimal   `json:"price"`
	MinimumStock int               `json:"minimum_stock" binding:"omitempty,gte=0"`
}

type UpdateProductVariantInput struct {
	Sku          string            `json:"sku" binding:"required"`
	Attributes   map[string]string `json:"attributes"`
	Price        decimal.Decimal   `json:"price"`
	MinimumStock int               `json:"minimum_stock" binding:"omitempty,gte=0"`
}

func CreateProductVariant(ctx context.Context, productId int, input *NewProductVariant) (*ProductVariant, error) {
	db := config.GetDB()

	if err := utils.ValidateResourceId[Product](ctx, productId); err != nil {
		return nil, utils.ValidationErrorf("product not found")
	}
	if err := utils.ValidateUnique[ProductVariant](ctx, "sku", input.Sku, 0); err != nil {
		return nil, err
	}
	if input.Price.IsNegative() {
		return nil, utils.ValidationErrorf("price cannot be negative")
	}

	variant := ProductVariant{
		ProductId:    productId,
		Sku:          input.Sku,
		Attributes:   input.Attributes,
		Price:        input.Price,
		MinimumStock: input.MinimumStock,
	}
	if err := db.WithContext(ctx).Create(&variant).Error; err != nil {
		return nil, utils.OperationFailed(err)
	}
	return &variant, nil
}

func GetProductVariants(ctx context.Context) ([]*ProductVariant, error) {
	db := config.GetDB()

	var variants []*ProductVariant
	if err := db.WithContext(ctx).Order("id").Find(&variants).Error; err != nil {
		return nil, utils.OperationFailed(err)
	}
	return variants, nil
}

func GetProductVariantById(ctx context.Context, id int) (*ProductVariant, error) {
	db := config.GetDB()

	var variant ProductVariant
	if err := db.WithContext(ctx).First(&variant, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrRecordNotFound
		}
		return nil, utils.OperationFailed(err)
	}
	return &variant, nil
}

// UpdateProductVariant edits catalog attributes only. Stock is off-limits
// here; use AdjustStock so the change lands in the ledger.
func UpdateProductVariant(ctx context.Context, id int, input *UpdateProductVariantInput) (*ProductVariant, error) {
	db := config.GetDB()

	variant, err := GetProductVariantById(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.Sku != variant.Sku {
		if err := utils.ValidateUnique[ProductVariant](ctx, "sku", input.Sku, id); err != nil {
			return nil, err
		}
	}
	if input.Price.IsNegative() {
		return nil, utils.ValidationErrorf("price cannot be negative")
	}

	variant.Sku = input.Sku
	variant.Attributes = input.Attributes
	variant.Price = input.Price
	variant.MinimumStock = input.MinimumStock
	if err := db.WithContext(ctx).Model(variant).
		Select("sku", "attributes", "price", "minimum_stock").
		Updates(variant).Error; err != nil {
		return nil, utils.OperationFailed(err)
	}
	return GetProductVariantById(ctx, id)
}

func DeleteProductVariant(ctx context.Context, id int) error {
	db := config.GetDB()

	if err := utils.ValidateResourceId[ProductVariant](ctx, id); err != nil {
		return utils.ErrRecordNotFound
	}
	count, err := utils.ResourceCountWhere[StockLedgerEntry](ctx, "variant_id = ?", id)
	if err != nil {
		return utils.OperationFailed(err)
	}
	if count > 0 {
		return utils.ValidationErrorf("variant has stock history and cannot be deleted")
	}

	if err := db.WithContext(ctx).Delete(&ProductVariant{}, id).Error; err != nil {
		return utils.OperationFailed(err)
	}
	return nil
}
