package repository

// reference_repo.go — read-mostly master data the engine only references:
// currencies and payment types.

import (
	"context"

	"paylog/internal/model"

	"gorm.io/gorm"
)

type CurrencyRepository interface {
	FindByID(ctx context.Context, id uint) (*model.Currency, error)
	List(ctx context.Context) ([]model.Currency, error)
}

type currencyRepo struct{ db *gorm.DB }

func NewCurrencyRepository(db *gorm.DB) CurrencyRepository { return &currencyRepo{db: db} }

func (r *currencyRepo) FindByID(ctx context.Context, id uint) (*model.Currency, error) {
	var c model.Currency
	err := r.db.WithContext(ctx).First(&c, id).Error
	return &c, err
}

func (r *currencyRepo) List(ctx context.Context) ([]model.Currency, error) {
	var currencies []model.Currency
	err := r.db.WithContext(ctx).Order("code ASC").Find(&currencies).Error
	return currencies, err
}

type PaymentTypeRepository interface {
	FindByID(ctx context.Context, id uint) (*model.PaymentType, error)
	List(ctx context.Context) ([]model.PaymentType, error)
}

type paymentTypeRepo struct{ db *gorm.DB }

func NewPaymentTypeRepository(db *gorm.DB) PaymentTypeRepository { return &paymentTypeRepo{db: db} }

func (r *paymentTypeRepo) FindByID(ctx context.Context, id uint) (*model.PaymentType, error) {
	var pt model.PaymentType
	err := r.db.WithContext(ctx).First(&pt, id).Error
	return &pt, err
}

func (r *paymentTypeRepo) List(ctx context.Context) ([]model.PaymentType, error) {
	var types []model.PaymentType
	err := r.db.WithContext(ctx).Where("active = true").Order("name ASC").Find(&types).Error
	return types, err
}
