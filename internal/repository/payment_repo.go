package repository

import (
	"context"

	"paylog/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PaymentRepository interface {
	CreateTx(tx *gorm.DB, p *model.Payment) error
	FindByID(ctx context.Context, id uint) (*model.Payment, error)
	FindByIDForUpdateTx(tx *gorm.DB, id uint) (*model.Payment, error)
	UpdateTx(tx *gorm.DB, p *model.Payment) error
	ListByInvoice(ctx context.Context, invoiceID uint) ([]model.Payment, error)
	// SumApproved totals approved payments for an invoice outside any
	// transaction (read-only callers: listings, exports).
	SumApproved(ctx context.Context, invoiceID uint) (decimal.Decimal, error)
	// SumApprovedTx runs the same aggregate on tx. Status recomputation MUST
	// use this variant so the sum is read under the invoice row lock of the
	// mutating transaction, never from an earlier snapshot.
	SumApprovedTx(tx *gorm.DB, invoiceID uint) (decimal.Decimal, error)
}

type paymentRepo struct{ db *gorm.DB }

func NewPaymentRepository(db *gorm.DB) PaymentRepository { return &paymentRepo{db: db} }

func (r *paymentRepo) CreateTx(tx *gorm.DB, p *model.Payment) error {
	return tx.Create(p).Error
}

func (r *paymentRepo) FindByID(ctx context.Context, id uint) (*model.Payment, error) {
	var p model.Payment
	err := r.db.WithContext(ctx).First(&p, id).Error
	return &p, err
}

func (r *paymentRepo) FindByIDForUpdateTx(tx *gorm.DB, id uint) (*model.Payment, error) {
	var p model.Payment
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, id).Error
	return &p, err
}

func (r *paymentRepo) UpdateTx(tx *gorm.DB, p *model.Payment) error {
	return tx.Save(p).Error
}

func (r *paymentRepo) ListByInvoice(ctx context.Context, invoiceID uint) ([]model.Payment, error) {
	var payments []model.Payment
	err := r.db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("payment_date ASC, id ASC").
		Find(&payments).Error
	return payments, err
}

func (r *paymentRepo) SumApproved(ctx context.Context, invoiceID uint) (decimal.Decimal, error) {
	return sumApproved(r.db.WithContext(ctx), invoiceID)
}

func (r *paymentRepo) SumApprovedTx(tx *gorm.DB, invoiceID uint) (decimal.Decimal, error) {
	return sumApproved(tx, invoiceID)
}

func sumApproved(db *gorm.DB, invoiceID uint) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := db.Model(&model.Payment{}).
		Where("invoice_id = ? AND status = ?", invoiceID, model.PaymentApproved).
		Select("COALESCE(SUM(amount_paid), 0)").
		Scan(&total).Error
	return total, err
}
