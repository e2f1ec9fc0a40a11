package model

import "encoding/json"

// Response is the outbound payload returned to the chat front end.
type Response struct {
	Transaction  *DraftDTO        `json:"transaction,omitempty"`
	Cancellation *CancellationDTO `json:"cancellation,omitempty"`
	Action       Action           `json:"action"`
	Message      string           `json:"message"`
}

// CancellationDTO is the wire form of a Cancellation.
type CancellationDTO struct {
	Name string `json:"name"`
}

// DraftDTO is the canonical wire form of a Draft. Its field names are the
// canonical names recognised by the response normalizer, so a DraftDTO fed
// back through normalization yields the same draft.
type DraftDTO struct {
	ID           *string      `json:"id"`
	ShareA       *json.Number `json:"share_a,omitempty"`
	ShareB       *json.Number `json:"share_b,omitempty"`
	Name         string       `json:"nome"`
	Amount       json.Number  `json:"valor"`
	Date         string       `json:"data"`
	Category     Category     `json:"categoria"`
	Payer        Payer        `json:"pagador"`
	SplitType    SplitPolicy  `json:"split_type"`
	Recurrence   Recurrence   `json:"periodicidade"`
	SourceText   string       `json:"raw_input,omitempty"`
	Installments int          `json:"parcelas"`
	Shared       bool         `json:"compartilhado"`
}

// ToDTO converts a draft to its wire form.
func ToDTO(d *Draft) *DraftDTO {
	dto := &DraftDTO{
		Name:         d.Name,
		Amount:       json.Number(d.TotalAmount.String()),
		Date:         d.OccurredOn.Format(DateLayout),
		Category:     d.Category,
		Payer:        d.Payer,
		Shared:       d.Shared,
		SplitType:    d.SplitPolicy,
		Installments: d.InstallmentCount,
		Recurrence:   d.Recurrence,
		SourceText:   d.SourceText,
	}
	if d.CorrectionID != "" {
		id := d.CorrectionID
		dto.ID = &id
	}
	if d.SplitPolicy == SplitCustom {
		a := json.Number(d.ShareA.String())
		b := json.Number(d.ShareB.String())
		dto.ShareA, dto.ShareB = &a, &b
	}
	return dto
}

// ToResponse converts a pipeline result to the outbound payload.
func ToResponse(r Result) Response {
	resp := Response{Action: r.Action, Message: r.Message}
	if r.Draft != nil {
		resp.Transaction = ToDTO(r.Draft)
	}
	if r.Cancellation != nil {
		resp.Cancellation = &CancellationDTO{Name: r.Cancellation.Name}
	}
	return resp
}
