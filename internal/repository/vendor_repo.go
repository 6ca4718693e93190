package repository

import (
	"context"

	"paylog/internal/model"

	"gorm.io/gorm"
)

type VendorRepository interface {
	Create(ctx context.Context, v *model.Vendor) error
	FindByID(ctx context.Context, id uint) (*model.Vendor, error)
	List(ctx context.Context, includeInactive bool) ([]model.Vendor, error)
	Update(ctx context.Context, v *model.Vendor) error
	Deactivate(ctx context.Context, id uint) error
}

type vendorRepo struct{ db *gorm.DB }

func NewVendorRepository(db *gorm.DB) VendorRepository { return &vendorRepo{db: db} }

func (r *vendorRepo) Create(ctx context.Context, v *model.Vendor) error {
	return r.db.WithContext(ctx).Create(v).Error
}

func (r *vendorRepo) FindByID(ctx context.Context, id uint) (*model.Vendor, error) {
	var v model.Vendor
	err := r.db.WithContext(ctx).First(&v, id).Error
	return &v, err
}

func (r *vendorRepo) List(ctx context.Context, includeInactive bool) ([]model.Vendor, error) {
	var vendors []model.Vendor
	q := r.db.WithContext(ctx)
	if !includeInactive {
		q = q.Where("active = true")
	}
	err := q.Order("name ASC").Find(&vendors).Error
	return vendors, err
}

func (r *vendorRepo) Update(ctx context.Context, v *model.Vendor) error {
	return r.db.WithContext(ctx).Save(v).Error
}

func (r *vendorRepo) Deactivate(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&model.Vendor{}).Where("id = ?", id).Update("active", false).Error
}
