package infra

// pdf.go — invoice statement PDF generation using go-pdf/fpdf.
// Generates an A4 statement with:
//   - Invoice header (number, vendor, status)
//   - Amount block (gross, TDS withheld, net payable)
//   - Approved-payment table (date, amount, status)
//   - Remaining balance line
//
// The output file is saved to storagePath/statement_{invoice_number}.pdf.

import (
	"fmt"
	"os"
	"path/filepath"

	"paylog/internal/model"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

// GenerateStatementPDF renders the reconciliation statement for an invoice.
// storagePath is the directory where the PDF will be written (created if
// needed). Returns the absolute path to the generated file.
func GenerateStatementPDF(inv *model.Invoice, vendorName string, payments []model.Payment, storagePath string) (string, error) {
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}

	fileName := fmt.Sprintf("statement_%s.pdf", inv.InvoiceNumber)
	filePath := filepath.Join(storagePath, fileName)

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 30

	// Header
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(contentW, 10, "Invoice Statement", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(contentW, 6, fmt.Sprintf("Invoice %s", inv.InvoiceNumber), "", 1, "C", false, 0, "")
	if vendorName != "" {
		pdf.CellFormat(contentW, 6, fmt.Sprintf("Vendor: %s", vendorName), "", 1, "C", false, 0, "")
	}
	pdf.CellFormat(contentW, 6, fmt.Sprintf("Status: %s", inv.Status), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	// Amount block
	tds := decimal.Zero
	if inv.TDSApplicable && inv.TDSPercentage != nil {
		exact := inv.InvoiceAmount.Mul(*inv.TDSPercentage).Div(decimal.NewFromInt(100))
		if inv.TDSRoundingMode == model.RoundingRoundUp {
			tds = exact.Ceil()
		} else {
			tds = exact.Round(2)
		}
	}
	net := inv.InvoiceAmount.Sub(tds)

	pdf.SetFont("Helvetica", "", 10)
	amountRow := func(label string, value decimal.Decimal, bold bool) {
		if bold {
			pdf.SetFont("Helvetica", "B", 10)
		}
		pdf.CellFormat(contentW*0.7, 6, label, "", 0, "L", false, 0, "")
		pdf.CellFormat(contentW*0.3, 6, value.StringFixed(2), "", 1, "R", false, 0, "")
		if bold {
			pdf.SetFont("Helvetica", "", 10)
		}
	}
	amountRow("Invoice amount (gross)", inv.InvoiceAmount, false)
	if inv.TDSApplicable {
		amountRow(fmt.Sprintf("TDS withheld (%s%%, %s)", tdsPercentString(inv), inv.TDSRoundingMode), tds.Neg(), false)
	}
	amountRow("Net payable", net, true)
	pdf.Ln(4)

	// Payment table
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(contentW*0.4, 7, "Payment date", "B", 0, "L", false, 0, "")
	pdf.CellFormat(contentW*0.3, 7, "Status", "B", 0, "L", false, 0, "")
	pdf.CellFormat(contentW*0.3, 7, "Amount", "B", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)

	totalApproved := decimal.Zero
	for i := range payments {
		p := &payments[i]
		pdf.CellFormat(contentW*0.4, 6, p.PaymentDate.Format("2006-01-02"), "", 0, "L", false, 0, "")
		pdf.CellFormat(contentW*0.3, 6, p.Status, "", 0, "L", false, 0, "")
		pdf.CellFormat(contentW*0.3, 6, p.AmountPaid.StringFixed(2), "", 1, "R", false, 0, "")
		if p.Status == model.PaymentApproved {
			totalApproved = totalApproved.Add(p.AmountPaid)
		}
	}
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(contentW*0.7, 6, "Total approved", "T", 0, "L", false, 0, "")
	pdf.CellFormat(contentW*0.3, 6, totalApproved.StringFixed(2), "T", 1, "R", false, 0, "")
	remaining := net.Sub(totalApproved)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	pdf.CellFormat(contentW*0.7, 6, "Remaining balance", "", 0, "L", false, 0, "")
	pdf.CellFormat(contentW*0.3, 6, remaining.StringFixed(2), "", 1, "R", false, 0, "")

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", fmt.Errorf("pdf: write %s: %w", filePath, err)
	}
	return filePath, nil
}

func tdsPercentString(inv *model.Invoice) string {
	if inv.TDSPercentage == nil {
		return "0"
	}
	return inv.TDSPercentage.String()
}
