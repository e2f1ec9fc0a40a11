package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/spice-split/internal/cli"
	"github.com/Veraticus/spice-split/internal/common"
	"github.com/Veraticus/spice-split/internal/engine"
	"github.com/Veraticus/spice-split/internal/model"
	"github.com/Veraticus/spice-split/internal/storage"
)

func processCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process <message>",
		Short: "Process one chat message",
		Long: `Run a single message through the provider cascade and print the
resulting reply or expense draft.

Examples:
  spice process "Mercado 350"
  spice process --user Lara "Uber 45 ontem"
  spice process --correction last.json "na verdade foi 50"`,
		Args: cobra.MinimumNArgs(1),
		RunE: runProcess,
	}

	cmd.Flags().String("user", "", "current user (a household participant)")
	cmd.Flags().String("date", "", "today's date as YYYY-MM-DD (default: now in the configured timezone)")
	cmd.Flags().String("correction", "", "JSON file with the previous transaction, for corrections")
	cmd.Flags().Bool("json", false, "print the wire response as JSON")

	return cmd
}

func runProcess(cmd *cobra.Command, args []string) error {
	user, _ := cmd.Flags().GetString("user")
	date, _ := cmd.Flags().GetString("date")
	correctionPath, _ := cmd.Flags().GetString("correction")
	asJSON, _ := cmd.Flags().GetBool("json")

	ctx := cmd.Context()
	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.close()

	req := engine.Request{
		Message:     strings.TrimSpace(strings.Join(args, " ")),
		CurrentUser: user,
	}
	if err := engine.Validate(req); err != nil {
		return common.NewUserError("A mensagem está vazia", err)
	}

	if date != "" {
		d, err := time.ParseInLocation(model.DateLayout, date, a.cfg.Location)
		if err != nil {
			return common.NewUserError("Data inválida, use AAAA-MM-DD", err)
		}
		req.CurrentDate = model.DateOnly(d)
	}

	if correctionPath != "" {
		raw, err := os.ReadFile(correctionPath)
		if err != nil {
			return fmt.Errorf("failed to read correction file: %w", err)
		}
		if req.Correction, err = a.normalizer.ParseDraft(raw); err != nil {
			return common.NewUserError("Transação anterior ilegível", err)
		}
	}

	start := time.Now()
	out := a.pipeline.Process(ctx, req)
	resp := model.ToResponse(out.Result)

	if a.journal != nil {
		recordOutcome(cmd, a.journal, req, out, resp, time.Since(start))
	}

	w := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(map[string]any{"success": true, "data": resp})
	}
	_, err = fmt.Fprintln(w, cli.RenderOutcome(out, a.cfg.Household.Participants))
	return err
}

func recordOutcome(cmd *cobra.Command, j *storage.Journal, req engine.Request, out engine.Outcome, resp model.Response, latency time.Duration) {
	payload, err := json.Marshal(resp)
	if err != nil {
		return
	}
	err = j.Record(cmd.Context(), &storage.Entry{
		Message:     req.Message,
		CurrentUser: req.CurrentUser,
		Stage:       string(out.Stage),
		Action:      string(out.Result.Action),
		Model:       out.Model,
		Response:    payload,
		Attempts:    out.Attempts,
		Latency:     latency,
	})
	if err != nil {
		logger().Warn("failed to record audit entry", "error", err)
	}
}
