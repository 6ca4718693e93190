package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"paylog/internal/dto"
	"paylog/internal/model"
	"paylog/internal/repository"
)

// bulkWorkers bounds the fan-out across invoice ids. Items parallelize across
// invoices, never within one — each id's transition is its own atomic unit.
const bulkWorkers = 4

type BulkService interface {
	BulkApprove(ctx context.Context, actor Actor, ids []uint) (*dto.BulkResult, error)
	BulkReject(ctx context.Context, actor Actor, ids []uint, reason string) (*dto.BulkResult, error)
	Export(ctx context.Context, ids []uint, columns []string) (string, error)
}

type bulkService struct {
	invoiceSvc InvoiceService
	invoices   repository.InvoiceRepository
	payments   repository.PaymentRepository
}

func NewBulkService(invoiceSvc InvoiceService, invoices repository.InvoiceRepository, payments repository.PaymentRepository) BulkService {
	return &bulkService{invoiceSvc: invoiceSvc, invoices: invoices, payments: payments}
}

func (s *bulkService) BulkApprove(ctx context.Context, actor Actor, ids []uint) (*dto.BulkResult, error) {
	return s.forEach(ctx, ids, func(id uint) error {
		_, err := s.invoiceSvc.Approve(ctx, actor, id)
		return err
	})
}

func (s *bulkService) BulkReject(ctx context.Context, actor Actor, ids []uint, reason string) (*dto.BulkResult, error) {
	return s.forEach(ctx, ids, func(id uint) error {
		_, err := s.invoiceSvc.Reject(ctx, actor, id, reason)
		return err
	})
}

// forEach runs op per invoice id with bounded parallelism. One id's failure
// never aborts the batch; it lands in the failures list with its domain code
// so callers can tell partial from total success.
func (s *bulkService) forEach(ctx context.Context, ids []uint, op func(id uint) error) (*dto.BulkResult, error) {
	type outcome struct {
		id  uint
		err error
	}
	results := make([]outcome, len(ids))

	var wg sync.WaitGroup
	sem := make(chan struct{}, bulkWorkers)
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id uint) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = outcome{id: id, err: op(id)}
		}(i, id)
	}
	wg.Wait()

	res := &dto.BulkResult{Failures: []dto.BulkFailure{}}
	for _, r := range results {
		if r.err == nil {
			res.SuccessCount++
			continue
		}
		reason := CodeOf(r.err)
		if reason == "" {
			reason = r.err.Error()
		}
		res.Failures = append(res.Failures, dto.BulkFailure{ID: r.id, Reason: reason})
	}
	return res, nil
}

// ── Export ───────────────────────────────────────────────────────────────────

// exportColumns maps a requested column name to its projection. Derived
// columns (net_payable, total_approved, remaining) take the approved sum as
// second argument.
var exportColumns = map[string]func(*model.Invoice, reconciliation) string{
	"id":               func(i *model.Invoice, _ reconciliation) string { return strconv.FormatUint(uint64(i.ID), 10) },
	"invoice_number":   func(i *model.Invoice, _ reconciliation) string { return i.InvoiceNumber },
	"vendor": func(i *model.Invoice, _ reconciliation) string {
		if i.Vendor == nil {
			return ""
		}
		return i.Vendor.Name
	},
	"status":           func(i *model.Invoice, _ reconciliation) string { return i.Status },
	"invoice_amount":   func(i *model.Invoice, _ reconciliation) string { return i.InvoiceAmount.StringFixed(2) },
	"tds_amount":       func(_ *model.Invoice, r reconciliation) string { return r.TDSAmount.StringFixed(2) },
	"net_payable":      func(_ *model.Invoice, r reconciliation) string { return r.NetPayable.StringFixed(2) },
	"total_approved":   func(_ *model.Invoice, r reconciliation) string { return r.TotalApproved.StringFixed(2) },
	"remaining":        func(_ *model.Invoice, r reconciliation) string { return r.Remaining.StringFixed(2) },
	"submission_count": func(i *model.Invoice, _ reconciliation) string { return strconv.Itoa(i.SubmissionCount) },
	"due_date": func(i *model.Invoice, _ reconciliation) string {
		if i.DueDate == nil {
			return ""
		}
		return i.DueDate.Format("2006-01-02")
	},
	"created_at": func(i *model.Invoice, _ reconciliation) string { return i.CreatedAt.Format("2006-01-02") },
}

// ExportableColumns lists the column names Export accepts, sorted.
func ExportableColumns() []string {
	names := make([]string, 0, len(exportColumns))
	for name := range exportColumns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Export projects the requested columns for each invoice into CSV text.
// Read-only: one row's failure (missing invoice, unreadable aggregate) emits
// placeholder cells and the export continues.
func (s *bulkService) Export(ctx context.Context, ids []uint, columns []string) (string, error) {
	for _, col := range columns {
		if _, ok := exportColumns[col]; !ok {
			return "", domainErr(CodeValidation,
				fmt.Sprintf("unknown export column %q (available: %s)", col, strings.Join(ExportableColumns(), ", ")))
		}
	}

	var sb strings.Builder
	w := csv.NewWriter(&sb)
	if err := w.Write(columns); err != nil {
		return "", fmt.Errorf("write export header: %w", err)
	}

	empty := make([]string, len(columns))
	for _, id := range ids {
		inv, err := s.invoices.FindByID(ctx, id)
		if err != nil {
			row := make([]string, len(columns))
			for c, col := range columns {
				if col == "id" {
					row[c] = strconv.FormatUint(uint64(id), 10)
				}
			}
			_ = w.Write(row)
			continue
		}
		total, err := s.payments.SumApproved(ctx, id)
		if err != nil {
			_ = w.Write(empty)
			continue
		}
		rec := buildReconciliation(inv, total)
		row := make([]string, len(columns))
		for c, col := range columns {
			row[c] = exportColumns[col](inv, rec)
		}
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("write export row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush export: %w", err)
	}
	return sb.String(), nil
}
