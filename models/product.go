package models

import (
	"context"
	"errors"
	"time"

	"github.com/stocklane/inventory_backend/config"
	"github.com/stocklane/inventory_backend/utils"
	"gorm.io/gorm"
)

type Product struct {
	ID          int              `gorm:"primary_key" json:"id"`
	Name        string           `gorm:"size:255;not null" json:"name"`
	Description string           `gorm:"type:text" json:"description"`
	Variants    []ProductVariant `json:"variants"`
	CreatedAt   time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewProduct struct {
	Name        string              `json:"name" binding:"required"`
	Description string              `json:"description"`
	Variants    []NewProductVariant `json:"variants" binding:"omitempty,dive"`
}

type UpdateProductInput struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

func CreateProduct(ctx context.Context, input *NewProduct) (*Product, error) {
	db := config.GetDB()

	variants := make([]ProductVariant, 0, len(input.Variants))
	for _, v := range input.Variants {
		if err := utils.ValidateUnique[ProductVariant](ctx, "sku", v.Sku, 0); err != nil {
			return nil, err
		}
		variants = append(variants, ProductVariant{
			Sku:          v.Sku,
			Attributes:   v.Attributes,
			Price:        v.Price,
			MinimumStock: v.MinimumStock,
		})
	}

	product := Product{
		Name:        input.Name,
		Description: input.Description,
		Variants:    variants,
	}
	if err := db.WithContext(ctx).Create(&product).Error; err != nil {
		return nil, utils.OperationFailed(err)
	}
	return &product, nil
}

func GetProducts(ctx context.Context) ([]*Product, error) {
	db := config.GetDB()

	var products []*Product
	if err := db.WithContext(ctx).Preload("Variants").Order("id").Find(&products).Error; err != nil {
		return nil, utils.OperationFailed(err)
	}
	return products, nil
}

func GetProductById(ctx context.Context, id int) (*Product, error) {
	db := config.GetDB()

	var product Product
	if err := db.WithContext(ctx).Preload("Variants").First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrRecordNotFound
		}
		return nil, utils.OperationFailed(err)
	}
	return &product, nil
}

func UpdateProduct(ctx context.Context, id int, input *UpdateProductInput) (*Product, error) {
	db := config.GetDB()

	product, err := GetProductById(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Model(product).Updates(map[string]interface{}{
		"name":        input.Name,
		"description": input.Description,
	}).Error; err != nil {
		return nil, utils.OperationFailed(err)
	}
	return GetProductById(ctx, id)
}

// DeleteProduct removes a product and its variants. Refused once any variant
// has ledger history: the audit trail must keep resolving its references.
func DeleteProduct(ctx context.Context, id int) error {
	db := config.GetDB()

	product, err := GetProductById(ctx, id)
	if err != nil {
		return err
	}

	for _, v := range product.Variants {
		count, err := utils.ResourceCountWhere[StockLedgerEntry](ctx, "variant_id = ?", v.ID)
		if err != nil {
			return utils.OperationFailed(err)
		}
		if count > 0 {
			return utils.ValidationErrorf("variant %s has stock history and cannot be deleted", v.Sku)
		}
	}

	tx := db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()
	if err := tx.Where("product_id = ?", id).Delete(&ProductVariant{}).Error; err != nil {
		tx.Rollback()
		return utils.OperationFailed(err)
	}
	if err := tx.Delete(&Product{}, id).Error; err != nil {
		tx.Rollback()
		return utils.OperationFailed(err)
	}
	if err := tx.Commit().Error; err != nil {
		return utils.OperationFailed(err)
	}
	return nil
}
