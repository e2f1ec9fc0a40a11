package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/spice-split/internal/engine"
	"github.com/Veraticus/spice-split/internal/llm"
	"github.com/Veraticus/spice-split/internal/model"
	"github.com/Veraticus/spice-split/internal/storage"
)

// RenderOutcome renders a pipeline outcome for the terminal.
func RenderOutcome(out engine.Outcome, participants model.Participants) string {
	var parts []string

	switch out.Result.Action {
	case model.ActionTransaction:
		parts = append(parts, SuccessStyle.Render(BotIcon+" "+out.Result.Message))
		if out.Result.Draft != nil {
			parts = append(parts, RenderDraft(out.Result.Draft, participants))
		}
	case model.ActionCancelRecurrence:
		parts = append(parts, WarningStyle.Render(BotIcon+" "+out.Result.Message))
	default:
		parts = append(parts, InfoStyle.Render(BotIcon+" "+out.Result.Message))
	}

	parts = append(parts, SubtleStyle.Render(stageLine(out)))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func stageLine(out engine.Outcome) string {
	line := "via " + string(out.Stage)
	if out.Model != "" {
		line += " (" + out.Model + ")"
	}
	if out.Attempts > 0 {
		line += fmt.Sprintf(", %d chamada(s) a provedores", out.Attempts)
	}
	return line
}

// RenderDraft renders the fields of a draft in a box.
func RenderDraft(d *model.Draft, participants model.Participants) string {
	rows := [][2]string{
		{"Nome", d.Name},
		{"Valor", "R$ " + model.FormatAmount(d.TotalAmount)},
		{"Categoria", string(d.Category)},
		{"Pagador", string(d.Payer)},
		{"Data", d.OccurredOn.Format("02/01/2006")},
		{"Divisão", splitLabel(d, participants)},
	}
	if d.InstallmentCount > 1 {
		rows = append(rows, [2]string{"Parcelas", fmt.Sprintf("%dx", d.InstallmentCount)})
	}
	if d.Recurrence == model.RecurrenceMonthly {
		rows = append(rows, [2]string{"Recorrência", "mensal"})
	}
	if d.IsCorrection() {
		rows = append(rows, [2]string{"Corrige", d.CorrectionID})
	}

	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, LabelStyle.Render(r[0])+r[1])
	}
	return BoxStyle.Render(strings.Join(lines, "\n"))
}

func splitLabel(d *model.Draft, participants model.Participants) string {
	if !d.Shared {
		return "individual"
	}
	a, b := d.EffectiveShares()
	return fmt.Sprintf("%s R$ %s / %s R$ %s",
		participants.A, model.FormatAmount(a), participants.B, model.FormatAmount(b))
}

// RenderAudit renders journal entries one per line, newest first.
func RenderAudit(entries []storage.Entry, loc *time.Location) string {
	if len(entries) == 0 {
		return SubtleStyle.Render("Nenhuma mensagem registrada.")
	}
	if loc == nil {
		loc = time.UTC
	}

	lines := make([]string, 0, len(entries)+1)
	lines = append(lines, TitleStyle.Render(fmt.Sprintf("%-16s  %-10s  %-17s  %s", "QUANDO", "ETAPA", "AÇÃO", "MENSAGEM")))
	for _, e := range entries {
		style := InfoStyle
		if e.Action == string(model.ActionTransaction) {
			style = SuccessStyle
		}
		lines = append(lines, fmt.Sprintf("%-16s  %-10s  %s  %s",
			e.CreatedAt.In(loc).Format("02/01/2006 15:04"),
			e.Stage,
			style.Render(fmt.Sprintf("%-17s", e.Action)),
			e.Message))
	}
	return strings.Join(lines, "\n")
}

// RenderProbe renders the outcome of probing model variants.
func RenderProbe(attempts []llm.ProbeAttempt, winner string) string {
	lines := make([]string, 0, len(attempts)+1)
	for _, a := range attempts {
		if a.Err != nil {
			lines = append(lines, FormatError(fmt.Sprintf("%s: %v", a.Model, a.Err)))
			continue
		}
		lines = append(lines, FormatSuccess(fmt.Sprintf("%s respondeu %q em %s",
			a.Model, strings.TrimSpace(a.Reply), a.Latency.Round(time.Millisecond))))
	}
	if winner == "" {
		lines = append(lines, FormatWarning("Nenhum modelo respondeu."))
	} else {
		lines = append(lines, TitleStyle.Render("Usar: "+winner))
	}
	return strings.Join(lines, "\n")
}
