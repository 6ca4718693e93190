package service

import (
	"context"
	"testing"
	"time"

	"paylog/internal/dto"
	"paylog/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateInvoice_StartsPendingApproval(t *testing.T) {
	invoiceSvc, _, _, _ := buildServices()

	resp, err := invoiceSvc.Create(context.Background(), associateActor, dto.CreateInvoiceRequest{
		InvoiceNumber: "INV-1001",
		VendorID:      1,
		InvoiceAmount: decStr("1500.00"),
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusPendingApproval, resp.Status)
	assert.Equal(t, 0, resp.SubmissionCount)
	assert.True(t, resp.NetPayable.Equal(decStr("1500.00")))
	assert.True(t, resp.Remaining.Equal(decStr("1500.00")))
	assert.Equal(t, model.RoundingExact, resp.TDSRoundingMode)
}

func TestCreateInvoice_TDSValidation(t *testing.T) {
	invoiceSvc, _, _, _ := buildServices()

	pct := decStr("110")
	_, err := invoiceSvc.Create(context.Background(), associateActor, dto.CreateInvoiceRequest{
		InvoiceNumber: "INV-1002",
		VendorID:      1,
		InvoiceAmount: decStr("100.00"),
		TDSApplicable: true,
		TDSPercentage: &pct,
	})
	assert.Equal(t, CodeValidation, CodeOf(err))

	// tds_applicable without a percentage is rejected too
	_, err = invoiceSvc.Create(context.Background(), associateActor, dto.CreateInvoiceRequest{
		InvoiceNumber: "INV-1003",
		VendorID:      1,
		InvoiceAmount: decStr("100.00"),
		TDSApplicable: true,
	})
	assert.Equal(t, CodeValidation, CodeOf(err))
}

func TestApprove_FromPendingBecomesUnpaid(t *testing.T) {
	invoiceSvc, _, invoiceRepo, _ := buildServices()
	inv := seedInvoice(invoiceRepo, model.StatusPendingApproval, "250.00")

	resp, err := invoiceSvc.Approve(context.Background(), adminActor, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusUnpaid, resp.Status)
}

func TestApprove_RequiresAdminTier(t *testing.T) {
	invoiceSvc, _, invoiceRepo, _ := buildServices()
	inv := seedInvoice(invoiceRepo, model.StatusPendingApproval, "250.00")

	_, err := invoiceSvc.Approve(context.Background(), associateActor, inv.ID)
	assert.Equal(t, CodeForbidden, CodeOf(err))

	// Status untouched
	stored, _ := invoiceRepo.FindByID(context.Background(), inv.ID)
	assert.Equal(t, model.StatusPendingApproval, stored.Status)
}

func TestApprove_WrongSourceStateIsInvalidTransition(t *testing.T) {
	invoiceSvc, _, invoiceRepo, _ := buildServices()
	inv := seedInvoice(invoiceRepo, model.StatusPaid, "250.00")

	_, err := invoiceSvc.Approve(context.Background(), adminActor, inv.ID)
	assert.Equal(t, CodeInvalidTransition, CodeOf(err))
}

func TestReject_ShortReasonIsValidationError(t *testing.T) {
	invoiceSvc, _, invoiceRepo, _ := buildServices()
	inv := seedInvoice(invoiceRepo, model.StatusPendingApproval, "250.00")

	_, err := invoiceSvc.Reject(context.Background(), adminActor, inv.ID, "no")
	assert.Equal(t, CodeValidation, CodeOf(err))

	// Whitespace does not count toward the minimum
	_, err = invoiceSvc.Reject(context.Background(), adminActor, inv.ID, "   short    ")
	assert.Equal(t, CodeValidation, CodeOf(err))

	stored, _ := invoiceRepo.FindByID(context.Background(), inv.ID)
	assert.Equal(t, model.StatusPendingApproval, stored.Status, "invoice status must be unchanged")
}

func TestReject_StoresReasonTriple(t *testing.T) {
	invoiceSvc, _, invoiceRepo, _ := buildServices()
	inv := seedInvoice(invoiceRepo, model.StatusPendingApproval, "250.00")

	resp, err := invoiceSvc.Reject(context.Background(), adminActor, inv.ID, "duplicate vendor charge")
	require.NoError(t, err)
	assert.Equal(t, model.StatusRejected, resp.Status)
	require.NotNil(t, resp.RejectionReason)
	assert.Equal(t, "duplicate vendor charge", *resp.RejectionReason)
	assert.NotNil(t, resp.RejectedBy)
	assert.NotNil(t, resp.RejectedAt)
}

func TestHoldAndRelease_RoundTripRestoresDerivedStatus(t *testing.T) {
	invoiceSvc, paymentSvc, invoiceRepo, _ := buildServices()
	inv := seedInvoice(invoiceRepo, model.StatusUnpaid, "100.00")

	// Partial payment first, then hold
	_, err := paymentSvc.Record(context.Background(), adminActor, dto.RecordPaymentRequest{
		InvoiceID: inv.ID, Amount: decStr("40.00"), PaymentDate: "2026-08-01",
	})
	require.NoError(t, err)

	held, err := invoiceSvc.Hold(context.Background(), adminActor, inv.ID, "vendor dispute open")
	require.NoError(t, err)
	assert.Equal(t, model.StatusOnHold, held.Status)
	require.NotNil(t, held.HoldReason)

	// Payments are blocked while held
	_, err = paymentSvc.Record(context.Background(), adminActor, dto.RecordPaymentRequest{
		InvoiceID: inv.ID, Amount: decStr("10.00"), PaymentDate: "2026-08-02",
	})
	assert.Equal(t, CodeNotPayable, CodeOf(err))

	released, err := invoiceSvc.Release(context.Background(), adminActor, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPartial, released.Status, "release must re-derive from the ledger")
	assert.Nil(t, released.HoldReason)
	assert.True(t, released.Remaining.Equal(decStr("60.00")))
}

func TestHold_OnlyFromPayableStates(t *testing.T) {
	invoiceSvc, _, invoiceRepo, _ := buildServices()
	inv := seedInvoice(invoiceRepo, model.StatusPendingApproval, "100.00")

	_, err := invoiceSvc.Hold(context.Background(), adminActor, inv.ID, "checking")
	assert.Equal(t, CodeInvalidTransition, CodeOf(err))
}

func TestResubmit_BoundedToThreeAttempts(t *testing.T) {
	invoiceSvc, _, invoiceRepo, _ := buildServices()
	inv := seedInvoice(invoiceRepo, model.StatusRejected, "100.00", func(i *model.Invoice) {
		reason := "missing purchase order"
		i.RejectionReason = &reason
	})

	for attempt := 1; attempt <= model.MaxSubmissions; attempt++ {
		resub, err := invoiceSvc.Resubmit(context.Background(), associateActor, inv.ID)
		require.NoError(t, err, "attempt %d should pass", attempt)
		assert.Equal(t, model.StatusPendingApproval, resub.Status)
		assert.Equal(t, attempt, resub.SubmissionCount)
		assert.Nil(t, resub.RejectionReason, "rejection triple must clear on resubmit")

		// Back to rejected for the next loop iteration
		_, err = invoiceSvc.Reject(context.Background(), adminActor, inv.ID, "still not acceptable")
		require.NoError(t, err)
	}

	// 4th attempt is rejected, not silently capped
	_, err := invoiceSvc.Resubmit(context.Background(), associateActor, inv.ID)
	assert.Equal(t, CodeResubmissionLimit, CodeOf(err))

	stored, _ := invoiceRepo.FindByID(context.Background(), inv.ID)
	assert.Equal(t, model.MaxSubmissions, stored.SubmissionCount, "count never exceeds the cap")
}

func TestResubmit_OnlySubmitterOrAdmin(t *testing.T) {
	invoiceSvc, _, invoiceRepo, _ := buildServices()
	inv := seedInvoice(invoiceRepo, model.StatusRejected, "100.00")

	stranger := Actor{ID: adminActor.ID, Role: RoleAssociate}
	_, err := invoiceSvc.Resubmit(context.Background(), stranger, inv.ID)
	assert.Equal(t, CodeForbidden, CodeOf(err))
}

func TestApproveAfterResubmit_RecomputesFromExistingPayments(t *testing.T) {
	invoiceSvc, paymentSvc, invoiceRepo, _ := buildServices()
	inv := seedInvoice(invoiceRepo, model.StatusUnpaid, "100.00")

	_, err := paymentSvc.Record(context.Background(), adminActor, dto.RecordPaymentRequest{
		InvoiceID: inv.ID, Amount: decStr("100.00"), PaymentDate: "2026-08-01",
	})
	require.NoError(t, err)

	// Force the invoice through rejected → pending_approval with its payment intact
	stored, _ := invoiceRepo.FindByID(context.Background(), inv.ID)
	stored.Status = model.StatusPendingApproval
	require.NoError(t, invoiceRepo.UpdateTx(nil, stored))

	resp, err := invoiceSvc.Approve(context.Background(), adminActor, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPaid, resp.Status, "approval must derive status from the ledger, not assume unpaid")
}

func TestSetHidden_IsOrthogonalToStatus(t *testing.T) {
	invoiceSvc, _, invoiceRepo, _ := buildServices()
	inv := seedInvoice(invoiceRepo, model.StatusPartial, "100.00")

	require.NoError(t, invoiceSvc.SetHidden(context.Background(), adminActor, inv.ID, true))
	stored, _ := invoiceRepo.FindByID(context.Background(), inv.ID)
	assert.True(t, stored.IsHidden)
	assert.Equal(t, model.StatusPartial, stored.Status)

	require.NoError(t, invoiceSvc.SetHidden(context.Background(), adminActor, inv.ID, false))
	stored, _ = invoiceRepo.FindByID(context.Background(), inv.ID)
	assert.False(t, stored.IsHidden)
}

func TestDeriveStatus_OverdueOnlyWhenNoMoneyArrived(t *testing.T) {
	past := time.Now().Add(-48 * time.Hour)
	inv := &model.Invoice{InvoiceAmount: decStr("100.00"), DueDate: &past}

	rec := buildReconciliation(inv, decStr("0"))
	assert.Equal(t, model.StatusOverdue, deriveStatus(inv, rec, time.Now()))

	// Past-due with approved money stays partial: the partial-iff-money
	// invariant outranks due-date exposure.
	rec = buildReconciliation(inv, decStr("40"))
	assert.Equal(t, model.StatusPartial, deriveStatus(inv, rec, time.Now()))

	rec = buildReconciliation(inv, decStr("100"))
	assert.Equal(t, model.StatusPaid, deriveStatus(inv, rec, time.Now()))
}

func TestOverdueSweep_CandidatesExcludePartiallyPaid(t *testing.T) {
	_, paymentSvc, invoiceRepo, _ := buildServices()
	past := time.Now().Add(-48 * time.Hour)

	unpaidDue := seedInvoice(invoiceRepo, model.StatusUnpaid, "100.00", func(i *model.Invoice) {
		i.DueDate = &past
	})
	partialDue := seedInvoice(invoiceRepo, model.StatusUnpaid, "100.00", func(i *model.Invoice) {
		i.DueDate = &past
	})
	_, err := paymentSvc.Record(context.Background(), adminActor, dto.RecordPaymentRequest{
		InvoiceID: partialDue.ID, Amount: decStr("40.00"), PaymentDate: "2026-08-01",
	})
	require.NoError(t, err)

	candidates, err := invoiceRepo.ListOverdueCandidates(context.Background(), time.Now(), 50)
	require.NoError(t, err)
	require.Len(t, candidates, 1, "only the unpaid past-due invoice is sweepable")
	assert.Equal(t, unpaidDue.ID, candidates[0].ID)

	stored, _ := invoiceRepo.FindByID(context.Background(), partialDue.ID)
	assert.Equal(t, model.StatusPartial, stored.Status)
}

func TestOverdue_FoldsBackAsMoneyArrives(t *testing.T) {
	invoiceSvc, paymentSvc, invoiceRepo, _ := buildServices()
	past := time.Now().Add(-48 * time.Hour)

	// Releasing a past-due hold with no payments derives overdue
	inv := seedInvoice(invoiceRepo, model.StatusOnHold, "100.00", func(i *model.Invoice) {
		i.DueDate = &past
		reason := "pricing dispute"
		i.HoldReason = &reason
	})
	released, err := invoiceSvc.Release(context.Background(), adminActor, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusOverdue, released.Status)

	// Overdue accepts payments and folds to partial, then paid
	res, err := paymentSvc.Record(context.Background(), adminActor, dto.RecordPaymentRequest{
		InvoiceID: inv.ID, Amount: decStr("40.00"), PaymentDate: "2026-08-01",
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusPartial, res.Invoice.Status)

	res, err = paymentSvc.Record(context.Background(), adminActor, dto.RecordPaymentRequest{
		InvoiceID: inv.ID, Amount: decStr("60.00"), PaymentDate: "2026-08-02",
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusPaid, res.Invoice.Status)
}

func TestReject_ReasonLengthCountsRunes(t *testing.T) {
	invoiceSvc, _, invoiceRepo, _ := buildServices()
	inv := seedInvoice(invoiceRepo, model.StatusPendingApproval, "250.00")

	// 4 characters but 12 bytes — must still be too short
	_, err := invoiceSvc.Reject(context.Background(), adminActor, inv.ID, "坏账核销")
	assert.Equal(t, CodeValidation, CodeOf(err))

	// Exactly 10 characters of multibyte text is acceptable
	resp, err := invoiceSvc.Reject(context.Background(), adminActor, inv.ID, "重复的供应商收费记录")
	require.NoError(t, err)
	assert.Equal(t, model.StatusRejected, resp.Status)
}
