package models

import (
	"context"
	"errors"
	"time"

	"github.com/stocklane/inventory_backend/config"
	"github.com/stocklane/inventory_backend/utils"
	"gorm.io/gorm"
)

type User struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Email     string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Password  string    `gorm:"size:255;not null" json:"-"`
	Role      Role      `gorm:"type:enum('Owner','Manager','Staff');default:Staff" json:"role"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewUser struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type Credentials struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// CreateUser registers a user. The very first account becomes Owner so a
// fresh install can bootstrap itself; everyone after that starts as Staff.
func CreateUser(ctx context.Context, input *NewUser) (*User, error) {
	db := config.GetDB()

	if err := utils.ValidateUnique[User](ctx, "email", input.Email, 0); err != nil {
		return nil, err
	}

	hashed, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, utils.OperationFailed(err)
	}

	var count int64
	if err := db.WithContext(ctx).Model(&User{}).Count(&count).Error; err != nil {
		return nil, utils.OperationFailed(err)
	}
	role := RoleStaff
	if count == 0 {
		role = RoleOwner
	}

	user := User{
		Name:     input.Name,
		Email:    input.Email,
		Password: string(hashed),
		Role:     role,
	}
	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, utils.OperationFailed(err)
	}
	return &user, nil
}

// Authenticate resolves credentials to a user or ErrUnauthorized. The same
// error covers unknown email and wrong password on purpose.
func Authenticate(ctx context.Context, creds *Credentials) (*User, error) {
	db := config.GetDB()

	var user User
	if err := db.WithContext(ctx).Where("email = ?", creds.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrUnauthorized
		}
		return nil, utils.OperationFailed(err)
	}
	if err := utils.ComparePassword(user.Password, creds.Password); err != nil {
		return nil, utils.ErrUnauthorized
	}
	return &user, nil
}

func GetUsers(ctx context.Context) ([]*User, error) {
	db := config.GetDB()

	var users []*User
	if err := db.WithContext(ctx).Order("id").Find(&users).Error; err != nil {
		return nil, utils.OperationFailed(err)
	}
	return users, nil
}

func GetUserById(ctx context.Context, id int) (*User, error) {
	db := config.GetDB()

	var user User
	if err := db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrRecordNotFound
		}
		return nil, utils.OperationFailed(err)
	}
	return &user, nil
}

// UpdateUserRole changes a user's role. The last Owner cannot be demoted;
// somebody has to keep the keys.
func UpdateUserRole(ctx context.Context, userId int, role Role) (*User, error) {
	db := config.GetDB()

	user, err := GetUserById(ctx, userId)
	if err != nil {
		return nil, err
	}

	if user.Role == RoleOwner && role != RoleOwner {
		var owners int64
		if err := db.WithContext(ctx).Model(&User{}).Where("role = ?", RoleOwner).Count(&owners).Error; err != nil {
			return nil, utils.OperationFailed(err)
		}
		if owners <= 1 {
			return nil, utils.ValidationErrorf("cannot demote the last owner")
		}
	}

	if err := db.WithContext(ctx).Model(user).Update("role", role).Error; err != nil {
		return nil, utils.OperationFailed(err)
	}
	user.Role = role
	return user, nil
}
