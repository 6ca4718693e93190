package service

// Shared in-memory repository stubs for the service tests. Tx methods accept
// a nil *gorm.DB (runTx falls through to direct execution when no DB is
// wired). Find methods hand out copies and Update methods store copies, so a
// failed operation leaves the stored state untouched.

import (
	"context"
	"errors"
	"sync"
	"time"

	"paylog/internal/dto"
	"paylog/internal/model"
	"paylog/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ── Invoice repo stub ─────────────────────────────────────────────────────────

type stubInvoiceRepo struct {
	mu       sync.Mutex
	invoices map[uint]*model.Invoice
	nextID   uint
}

func newStubInvoiceRepo() *stubInvoiceRepo {
	return &stubInvoiceRepo{invoices: make(map[uint]*model.Invoice)}
}

func (r *stubInvoiceRepo) Create(_ context.Context, inv *model.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if inv.ID == 0 {
		r.nextID++
		inv.ID = r.nextID
	}
	cp := *inv
	r.invoices[inv.ID] = &cp
	return nil
}

func (r *stubInvoiceRepo) FindByID(_ context.Context, id uint) (*model.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.get(id)
}

func (r *stubInvoiceRepo) FindByIDForUpdateTx(_ *gorm.DB, id uint) (*model.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.get(id)
}

func (r *stubInvoiceRepo) get(id uint) (*model.Invoice, error) {
	inv, ok := r.invoices[id]
	if !ok {
		return nil, errors.New("not found")
	}
	cp := *inv
	return &cp, nil
}

func (r *stubInvoiceRepo) UpdateTx(_ *gorm.DB, inv *model.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.invoices[inv.ID]; !ok {
		return errors.New("not found")
	}
	cp := *inv
	r.invoices[inv.ID] = &cp
	return nil
}

func (r *stubInvoiceRepo) SetHidden(_ context.Context, id uint, hidden bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invoices[id]
	if !ok {
		return errors.New("not found")
	}
	inv.IsHidden = hidden
	return nil
}

func (r *stubInvoiceRepo) List(_ context.Context, filter dto.InvoiceFilter) ([]model.Invoice, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Invoice
	for _, inv := range r.invoices {
		if filter.Status != "" && filter.Status != "all" && inv.Status != filter.Status {
			continue
		}
		if !filter.IncludeHidden && inv.IsHidden {
			continue
		}
		out = append(out, *inv)
	}
	return out, int64(len(out)), nil
}

func (r *stubInvoiceRepo) ListOverdueCandidates(_ context.Context, asOf time.Time, limit int) ([]model.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Invoice
	for _, inv := range r.invoices {
		if inv.Status == model.StatusUnpaid && inv.DueDate != nil && inv.DueDate.Before(asOf) {
			out = append(out, *inv)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (r *stubInvoiceRepo) DB() *gorm.DB { return nil }

var _ repository.InvoiceRepository = (*stubInvoiceRepo)(nil)

// ── Payment repo stub ─────────────────────────────────────────────────────────

type stubPaymentRepo struct {
	mu       sync.Mutex
	payments map[uint]*model.Payment
	nextID   uint
}

func newStubPaymentRepo() *stubPaymentRepo {
	return &stubPaymentRepo{payments: make(map[uint]*model.Payment)}
}

func (r *stubPaymentRepo) CreateTx(_ *gorm.DB, p *model.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == 0 {
		r.nextID++
		p.ID = r.nextID
	}
	cp := *p
	r.payments[p.ID] = &cp
	return nil
}

func (r *stubPaymentRepo) FindByID(_ context.Context, id uint) (*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.get(id)
}

func (r *stubPaymentRepo) FindByIDForUpdateTx(_ *gorm.DB, id uint) (*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.get(id)
}

func (r *stubPaymentRepo) get(id uint) (*model.Payment, error) {
	p, ok := r.payments[id]
	if !ok {
		return nil, errors.New("not found")
	}
	cp := *p
	return &cp, nil
}

func (r *stubPaymentRepo) UpdateTx(_ *gorm.DB, p *model.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.payments[p.ID]; !ok {
		return errors.New("not found")
	}
	cp := *p
	r.payments[p.ID] = &cp
	return nil
}

func (r *stubPaymentRepo) ListByInvoice(_ context.Context, invoiceID uint) ([]model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Payment
	for id := uint(1); id <= r.nextID; id++ {
		if p, ok := r.payments[id]; ok && p.InvoiceID == invoiceID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *stubPaymentRepo) SumApproved(_ context.Context, invoiceID uint) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sum(invoiceID), nil
}

func (r *stubPaymentRepo) SumApprovedTx(_ *gorm.DB, invoiceID uint) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sum(invoiceID), nil
}

func (r *stubPaymentRepo) sum(invoiceID uint) decimal.Decimal {
	total := decimal.Zero
	for _, p := range r.payments {
		if p.InvoiceID == invoiceID && p.Status == model.PaymentApproved {
			total = total.Add(p.AmountPaid)
		}
	}
	return total
}

var _ repository.PaymentRepository = (*stubPaymentRepo)(nil)

// ── Master data stubs ─────────────────────────────────────────────────────────

type stubVendorRepo struct {
	vendors map[uint]*model.Vendor
}

func newStubVendorRepo() *stubVendorRepo {
	return &stubVendorRepo{vendors: map[uint]*model.Vendor{
		1: {ID: 1, Name: "Acme Supplies", TaxID: "ACME-1", Active: true},
	}}
}

func (r *stubVendorRepo) Create(_ context.Context, v *model.Vendor) error {
	v.ID = uint(len(r.vendors) + 1)
	r.vendors[v.ID] = v
	return nil
}

func (r *stubVendorRepo) FindByID(_ context.Context, id uint) (*model.Vendor, error) {
	v, ok := r.vendors[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return v, nil
}

func (r *stubVendorRepo) List(_ context.Context, _ bool) ([]model.Vendor, error) { return nil, nil }
func (r *stubVendorRepo) Update(_ context.Context, _ *model.Vendor) error        { return nil }
func (r *stubVendorRepo) Deactivate(_ context.Context, _ uint) error             { return nil }

var _ repository.VendorRepository = (*stubVendorRepo)(nil)

type stubCategoryRepo struct{}

func (r *stubCategoryRepo) Create(_ context.Context, _ *model.Category) error { return nil }
func (r *stubCategoryRepo) FindByID(_ context.Context, id uint) (*model.Category, error) {
	return &model.Category{ID: id, Name: "services", Active: true}, nil
}
func (r *stubCategoryRepo) List(_ context.Context) ([]model.Category, error) { return nil, nil }
func (r *stubCategoryRepo) Update(_ context.Context, _ *model.Category) error { return nil }
func (r *stubCategoryRepo) Deactivate(_ context.Context, _ uint) error        { return nil }

var _ repository.CategoryRepository = (*stubCategoryRepo)(nil)

type stubCurrencyRepo struct{}

func (r *stubCurrencyRepo) FindByID(_ context.Context, id uint) (*model.Currency, error) {
	return &model.Currency{ID: id, Code: "INR", Name: "Indian Rupee", Symbol: "₹"}, nil
}
func (r *stubCurrencyRepo) List(_ context.Context) ([]model.Currency, error) { return nil, nil }

var _ repository.CurrencyRepository = (*stubCurrencyRepo)(nil)

type stubPaymentTypeRepo struct{}

func (r *stubPaymentTypeRepo) FindByID(_ context.Context, id uint) (*model.PaymentType, error) {
	return &model.PaymentType{ID: id, Name: "bank transfer", Active: true}, nil
}
func (r *stubPaymentTypeRepo) List(_ context.Context) ([]model.PaymentType, error) { return nil, nil }

var _ repository.PaymentTypeRepository = (*stubPaymentTypeRepo)(nil)

// ── Service factories and fixtures ───────────────────────────────────────────

var (
	adminActor     = Actor{ID: uuid.New(), Role: RoleAdmin}
	superActor     = Actor{ID: uuid.New(), Role: RoleSuperAdmin}
	associateActor = Actor{ID: uuid.New(), Role: RoleAssociate}
)

func buildServices() (InvoiceService, PaymentService, *stubInvoiceRepo, *stubPaymentRepo) {
	invoiceRepo := newStubInvoiceRepo()
	paymentRepo := newStubPaymentRepo()
	invoiceSvc := NewInvoiceService(invoiceRepo, paymentRepo, newStubVendorRepo(), &stubCategoryRepo{}, &stubCurrencyRepo{}, nil)
	paymentSvc := NewPaymentService(invoiceRepo, paymentRepo, &stubPaymentTypeRepo{}, nil)
	return invoiceSvc, paymentSvc, invoiceRepo, paymentRepo
}

// seedInvoice inserts an invoice directly into the stub in the given status.
func seedInvoice(repo *stubInvoiceRepo, status string, amount string, mutate ...func(*model.Invoice)) *model.Invoice {
	inv := &model.Invoice{
		InvoiceNumber:   "INV-" + uuid.NewString()[:8],
		VendorID:        1,
		Status:          status,
		InvoiceAmount:   decimal.RequireFromString(amount),
		TDSRoundingMode: model.RoundingExact,
		CreatedBy:       associateActor.ID,
	}
	for _, fn := range mutate {
		fn(inv)
	}
	_ = repo.Create(context.Background(), inv)
	return inv
}

func decStr(s string) decimal.Decimal { return decimal.RequireFromString(s) }
