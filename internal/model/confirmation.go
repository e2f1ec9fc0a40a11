package model

import (
	"fmt"
	"strings"
)

// DefaultName labels drafts that arrive without a usable name.
const DefaultName = "Gasto"

// ConfirmationMessage renders the deterministic confirmation sentence for a draft.
func ConfirmationMessage(d *Draft, participants Participants) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Entendi! Registrando %s de R$ %s em %s, pago por %s.",
		d.Name, FormatAmount(d.TotalAmount), d.Category, d.Payer)

	switch {
	case d.SplitPolicy == SplitCustom && d.Shared:
		fmt.Fprintf(&b, " Divisão: %s R$ %s / %s R$ %s.",
			participants.A, FormatAmount(d.ShareA),
			participants.B, FormatAmount(d.ShareB))
	case !d.Shared:
		b.WriteString(" Gasto individual, sem divisão.")
	default:
		b.WriteString(" Dividido meio a meio.")
	}

	if d.InstallmentCount > 1 {
		fmt.Fprintf(&b, " Em %d parcelas.", d.InstallmentCount)
	}
	if d.Recurrence == RecurrenceMonthly {
		b.WriteString(" Recorrência mensal.")
	}
	b.WriteString(" Confere?")
	return b.String()
}
