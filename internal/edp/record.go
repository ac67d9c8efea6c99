package edp

import (
	"time"

	"github.com/shopspring/decimal"
)

// Stage buckets a record along the payment cycle.
type Stage string

const (
	StageIssued    Stage = "issued"
	StageInReview  Stage = "in_review"
	StageApproved  Stage = "approved"
	StageConformed Stage = "conformed"
	StageCollected Stage = "collected"
)

// Record is a normalized payment certificate ("Estado de Pago").
// Zero dates mean the value is absent.
type Record struct {
	ID      int64  `json:"id"`
	Number  string `json:"number"`
	Project string `json:"project"`
	Client  string `json:"client"`
	Manager string `json:"manager"`
	Month   string `json:"month"`

	ProposedAmount decimal.NullDecimal `json:"proposed_amount"`
	ApprovedAmount decimal.NullDecimal `json:"approved_amount"`

	EmittedAt          time.Time `json:"emitted_at"`
	SentAt             time.Time `json:"sent_at"`
	EstimatedPaymentAt time.Time `json:"estimated_payment_at"`
	ConformedAt        time.Time `json:"conformed_at"`
	RegisteredAt       time.Time `json:"registered_at"`

	Status          Status `json:"status"`
	StatusText      string `json:"status_text"`
	DetailedStatus  string `json:"detailed_status"`
	RejectionReason string `json:"rejection_reason"`
	FailureType     string `json:"failure_type"`
	ConformanceSent bool   `json:"conformance_sent"`

	WaitingDays         *int  `json:"waiting_days"`
	BusinessWaitingDays *int  `json:"business_waiting_days"`
	Critical            bool  `json:"critical"`
	Validated           bool  `json:"validated"`
	Stage               Stage `json:"stage"`
}

// Approved returns the approved amount or zero when absent.
func (r Record) Approved() decimal.Decimal {
	if r.ApprovedAmount.Valid {
		return r.ApprovedAmount.Decimal
	}
	return decimal.Zero
}

// Proposed returns the proposed amount or zero when absent.
func (r Record) Proposed() decimal.Decimal {
	if r.ProposedAmount.Valid {
		return r.ProposedAmount.Decimal
	}
	return decimal.Zero
}

// HasWaiting reports whether waiting days could be computed.
func (r Record) HasWaiting() bool {
	return r.WaitingDays != nil
}

// Waiting returns the calendar waiting days, zero when unknown.
func (r Record) Waiting() int {
	if r.WaitingDays == nil {
		return 0
	}
	return *r.WaitingDays
}

// Row renders the record back into a raw row using canonical column keys.
// Derived fields are not emitted.
func (r Record) Row() map[string]any {
	row := map[string]any{
		colID:              r.ID,
		colNumber:          r.Number,
		colProject:         r.Project,
		colClient:          r.Client,
		colManager:         r.Manager,
		colMonth:           r.Month,
		colProposed:        nullDecimalValue(r.ProposedAmount),
		colApproved:        nullDecimalValue(r.ApprovedAmount),
		colEmitted:         dateValue(r.EmittedAt),
		colSent:            dateValue(r.SentAt),
		colEstimated:       dateValue(r.EstimatedPaymentAt),
		colConformed:       dateValue(r.ConformedAt),
		colRegistered:      dateValue(r.RegisteredAt),
		colDetailedStatus:  r.DetailedStatus,
		colRejection:       r.RejectionReason,
		colFailureType:     r.FailureType,
		colConformanceSent: r.ConformanceSent,
	}
	if r.StatusText != "" {
		row[colStatus] = r.StatusText
	} else {
		row[colStatus] = nil
	}
	return row
}

func nullDecimalValue(d decimal.NullDecimal) any {
	if !d.Valid {
		return nil
	}
	return d.Decimal
}

func dateValue(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
