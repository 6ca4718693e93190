package repository

import (
	"context"
	"time"

	"paylog/internal/dto"
	"paylog/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InvoiceRepository interface {
	Create(ctx context.Context, inv *model.Invoice) error
	FindByID(ctx context.Context, id uint) (*model.Invoice, error)
	// FindByIDForUpdateTx loads the invoice row with a FOR UPDATE lock so
	// concurrent mutations on the same invoice serialize at the row level.
	FindByIDForUpdateTx(tx *gorm.DB, id uint) (*model.Invoice, error)
	UpdateTx(tx *gorm.DB, inv *model.Invoice) error
	SetHidden(ctx context.Context, id uint, hidden bool) error
	List(ctx context.Context, filter dto.InvoiceFilter) ([]model.Invoice, int64, error)
	// ListOverdueCandidates returns unpaid invoices whose due date passed,
	// for the overdue sweep.
	ListOverdueCandidates(ctx context.Context, asOf time.Time, limit int) ([]model.Invoice, error)
	DB() *gorm.DB // exposes the DB for transaction creation in service layer
}

type invoiceRepo struct{ db *gorm.DB }

func NewInvoiceRepository(db *gorm.DB) InvoiceRepository { return &invoiceRepo{db: db} }

func (r *invoiceRepo) DB() *gorm.DB { return r.db }

func (r *invoiceRepo) Create(ctx context.Context, inv *model.Invoice) error {
	return r.db.WithContext(ctx).Create(inv).Error
}

func (r *invoiceRepo) FindByID(ctx context.Context, id uint) (*model.Invoice, error) {
	var inv model.Invoice
	err := r.db.WithContext(ctx).Preload("Vendor").Preload("Payments").First(&inv, id).Error
	return &inv, err
}

func (r *invoiceRepo) FindByIDForUpdateTx(tx *gorm.DB, id uint) (*model.Invoice, error) {
	var inv model.Invoice
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&inv, id).Error
	return &inv, err
}

func (r *invoiceRepo) UpdateTx(tx *gorm.DB, inv *model.Invoice) error {
	return tx.Save(inv).Error
}

func (r *invoiceRepo) SetHidden(ctx context.Context, id uint, hidden bool) error {
	res := r.db.WithContext(ctx).Model(&model.Invoice{}).Where("id = ?", id).Update("is_hidden", hidden)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *invoiceRepo) List(ctx context.Context, filter dto.InvoiceFilter) ([]model.Invoice, int64, error) {
	var invoices []model.Invoice
	var total int64
	offset := (filter.Page - 1) * filter.Limit

	q := r.db.WithContext(ctx).Model(&model.Invoice{})

	if filter.Status != "" && filter.Status != "all" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.VendorID != 0 {
		q = q.Where("vendor_id = ?", filter.VendorID)
	}
	if !filter.IncludeHidden {
		q = q.Where("is_hidden = false")
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := q.Preload("Vendor").
		Order("created_at DESC").
		Offset(offset).Limit(filter.Limit).
		Find(&invoices).Error

	return invoices, total, err
}

func (r *invoiceRepo) ListOverdueCandidates(ctx context.Context, asOf time.Time, limit int) ([]model.Invoice, error) {
	var invoices []model.Invoice
	err := r.db.WithContext(ctx).
		Where("status = ? AND due_date IS NOT NULL AND due_date < ?", model.StatusUnpaid, asOf).
		Order("due_date ASC").
		Limit(limit).
		Find(&invoices).Error
	return invoices, err
}
