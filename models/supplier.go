package models

import (
	"context"
	"errors"
	"time"

	"github.com/stocklane/inventory_backend/config"
	"github.com/stocklane/inventory_backend/utils"
	"gorm.io/gorm"
)

type Supplier struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Email     string    `gorm:"size:255" json:"email"`
	Phone     string    `gorm:"size:50" json:"phone"`
	Address   string    `gorm:"type:text" json:"address"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewSupplier struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"omitempty,email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

func CreateSupplier(ctx context.Context, input *NewSupplier) (*Supplier, error) {
	db := config.GetDB()

	supplier := Supplier{
		Name:    input.Name,
		Email:   input.Email,
		Phone:   input.Phone,
		Address: input.Address,
	}
	if err := db.WithContext(ctx).Create(&supplier).Error; err != nil {
		return nil, utils.OperationFailed(err)
	}
	return &supplier, nil
}

func GetSuppliers(ctx context.Context) ([]*Supplier, error) {
	db := config.GetDB()

	var suppliers []*Supplier
	if err := db.WithContext(ctx).Order("id").Find(&suppliers).Error; err != nil {
		return nil, utils.OperationFailed(err)
	}
	return suppliers, nil
}

func GetSupplierById(ctx context.Context, id int) (*Supplier, error) {
	db := config.GetDB()

	var supplier Supplier
	if err := db.WithContext(ctx).First(&supplier, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrRecordNotFound
		}
		return nil, utils.OperationFailed(err)
	}
	return &supplier, nil
}

func UpdateSupplier(ctx context.Context, id int, input *NewSupplier) (*Supplier, error) {
	db := config.GetDB()

	supplier, err := GetSupplierById(ctx, id)
	if err != nil {
		return nil, err
	}
	supplier.Name = input.Name
	supplier.Email = input.Email
	supplier.Phone = input.Phone
	supplier.Address = input.Address
	if err := db.WithContext(ctx).Model(supplier).
		Select("name", "email", "phone", "address").
		Updates(supplier).Error; err != nil {
		return nil, utils.OperationFailed(err)
	}
	return supplier, nil
}

// DeleteSupplier refuses while purchase orders still reference the supplier.
func DeleteSupplier(ctx context.Context, id int) error {
	db := config.GetDB()

	if err := utils.ValidateResourceId[Supplier](ctx, id); err != nil {
		return utils.ErrRecordNotFound
	}
	count, err := utils.ResourceCountWhere[PurchaseOrder](ctx, "supplier_id = ?", id)
	if err != nil {
		return utils.OperationFailed(err)
	}
	if count > 0 {
		return utils.ValidationErrorf("supplier has purchase orders and cannot be deleted")
	}

	if err := db.WithContext(ctx).Delete(&Supplier{}, id).Error; err != nil {
		return utils.OperationFailed(err)
	}
	return nil
}
