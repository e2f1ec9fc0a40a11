package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// SplitPolicy describes how a shared expense is divided between the participants.
type SplitPolicy string

// Split policies.
const (
	SplitEqual  SplitPolicy = "equal"
	SplitCustom SplitPolicy = "custom"
)

// Recurrence describes whether an expense repeats.
type Recurrence string

// Recurrence values.
const (
	RecurrenceOneOff  Recurrence = "unica"
	RecurrenceMonthly Recurrence = "mensal"
)

// DateLayout is the calendar date format used on the wire.
const DateLayout = "2006-01-02"

// Draft is a structured, not yet persisted transaction proposal.
// A Draft is built fresh for every inbound message and is never mutated
// after it leaves the pipeline.
type Draft struct {
	OccurredOn       time.Time
	TotalAmount      decimal.Decimal // full bill amount, never one person's share
	ShareA           decimal.Decimal // only meaningful for SplitCustom
	ShareB           decimal.Decimal // only meaningful for SplitCustom
	CorrectionID     string          // empty means a new transaction
	Name             string
	Category         Category
	Payer            Payer
	SplitPolicy      SplitPolicy
	Recurrence       Recurrence
	SourceText       string
	InstallmentCount int
	Shared           bool
}

var (
	// ErrNonPositiveTotal is returned when a draft total is zero or negative.
	ErrNonPositiveTotal = errors.New("total amount must be positive")
	// ErrSharesMismatch is returned when custom shares do not add up to the total.
	ErrSharesMismatch = errors.New("custom shares do not add up to total")
)

// IsCorrection reports whether the draft amends an earlier transaction.
func (d *Draft) IsCorrection() bool {
	return d.CorrectionID != ""
}

// EffectiveShares returns the amount owed by participant A and participant B.
// Equal splits are not stored, so they are derived from the total.
func (d *Draft) EffectiveShares() (decimal.Decimal, decimal.Decimal) {
	if d.SplitPolicy == SplitCustom {
		return d.ShareA, d.ShareB
	}
	half := d.TotalAmount.Div(decimal.NewFromInt(2))
	return half, half
}

// Validate checks the draft invariants.
func (d *Draft) Validate() error {
	if d.Category == "" {
		return fmt.Errorf("draft %q has no category", d.Name)
	}
	if !d.TotalAmount.IsPositive() {
		return fmt.Errorf("draft %q: %w", d.Name, ErrNonPositiveTotal)
	}
	if d.SplitPolicy == SplitCustom && !d.ShareA.Add(d.ShareB).Equal(d.TotalAmount) {
		return fmt.Errorf("draft %q: %s + %s != %s: %w",
			d.Name, d.ShareA, d.ShareB, d.TotalAmount, ErrSharesMismatch)
	}
	if d.InstallmentCount < 1 {
		return fmt.Errorf("draft %q has invalid installment count %d", d.Name, d.InstallmentCount)
	}
	return nil
}

// DateOnly truncates t to a calendar date in UTC, keeping its local year, month and day.
func DateOnly(t time.Time) time.Time {
	y, m, day := t.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}
