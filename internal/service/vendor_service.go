package service

import (
	"context"
	"fmt"

	"paylog/internal/dto"
	"paylog/internal/model"
	"paylog/internal/repository"
)

type VendorService interface {
	Create(ctx context.Context, req dto.CreateVendorRequest) (*dto.VendorResponse, error)
	Get(ctx context.Context, id uint) (*dto.VendorResponse, error)
	List(ctx context.Context, includeInactive bool) ([]dto.VendorResponse, error)
	Update(ctx context.Context, id uint, req dto.UpdateVendorRequest) (*dto.VendorResponse, error)
	Deactivate(ctx context.Context, id uint) error
}

type vendorService struct {
	repo repository.VendorRepository
}

func NewVendorService(repo repository.VendorRepository) VendorService {
	return &vendorService{repo: repo}
}

func (s *vendorService) Create(ctx context.Context, req dto.CreateVendorRequest) (*dto.VendorResponse, error) {
	v := &model.Vendor{
		Name:        req.Name,
		TaxID:       req.TaxID,
		Email:       req.Email,
		Phone:       req.Phone,
		Address:     req.Address,
		PaymentTerm: req.PaymentTerm,
		Active:      true,
	}
	if err := s.repo.Create(ctx, v); err != nil {
		return nil, fmt.Errorf("create vendor: %w", err)
	}
	return toVendorResponse(v), nil
}

func (s *vendorService) Get(ctx context.Context, id uint) (*dto.VendorResponse, error) {
	v, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, domainErr(CodeNotFound, fmt.Sprintf("vendor %d not found", id))
	}
	return toVendorResponse(v), nil
}

func (s *vendorService) List(ctx context.Context, includeInactive bool) ([]dto.VendorResponse, error) {
	vendors, err := s.repo.List(ctx, includeInactive)
	if err != nil {
		return nil, fmt.Errorf("list vendors: %w", err)
	}
	out := make([]dto.VendorResponse, 0, len(vendors))
	for i := range vendors {
		out = append(out, *toVendorResponse(&vendors[i]))
	}
	return out, nil
}

func (s *vendorService) Update(ctx context.Context, id uint, req dto.UpdateVendorRequest) (*dto.VendorResponse, error) {
	v, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, domainErr(CodeNotFound, fmt.Sprintf("vendor %d not found", id))
	}
	if req.Name != nil {
		v.Name = *req.Name
	}
	if req.Email != nil {
		v.Email = req.Email
	}
	if req.Phone != nil {
		v.Phone = req.Phone
	}
	if req.Address != nil {
		v.Address = req.Address
	}
	if req.PaymentTerm != nil {
		v.PaymentTerm = req.PaymentTerm
	}
	if err := s.repo.Update(ctx, v); err != nil {
		return nil, fmt.Errorf("update vendor: %w", err)
	}
	return toVendorResponse(v), nil
}

func (s *vendorService) Deactivate(ctx context.Context, id uint) error {
	return s.repo.Deactivate(ctx, id)
}

func toVendorResponse(v *model.Vendor) *dto.VendorResponse {
	return &dto.VendorResponse{
		ID:          v.ID,
		Name:        v.Name,
		TaxID:       v.TaxID,
		Email:       v.Email,
		Phone:       v.Phone,
		Address:     v.Address,
		PaymentTerm: v.PaymentTerm,
		Active:      v.Active,
	}
}
