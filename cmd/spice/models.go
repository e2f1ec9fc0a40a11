package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/spice-split/internal/cli"
	"github.com/Veraticus/spice-split/internal/common"
	"github.com/Veraticus/spice-split/internal/llm"
)

func modelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Inspect the completion provider's model variants",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "probe",
		Short: "Find the first configured model that answers",
		Args:  cobra.NoArgs,
		RunE:  runModelsProbe,
	})
	return cmd
}

func runModelsProbe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.SecondaryEnabled() {
		return common.NewUserError(
			fmt.Sprintf("Nenhuma chave de API para o provedor %s (defina llm.api_key ou a variável de ambiente)", cfg.LLM.Provider),
			common.ErrMissingConfig)
	}

	llmCfg := cfg.CompleterConfig()
	llmCfg.CacheTTL = 0
	completer, err := llm.NewCompleter(cmd.Context(), llmCfg)
	if err != nil {
		return err
	}
	defer func() { _ = llm.Close(completer) }()

	attempts, winner, err := llm.Probe(cmd.Context(), completer, cfg.LLM.Models, cfg.LLM.Timeout)
	fmt.Fprintln(cmd.OutOrStdout(), cli.RenderProbe(attempts, winner))
	if errors.Is(err, common.ErrProviderUnavailable) {
		return common.NewUserError("Nenhum modelo disponível", err)
	}
	return err
}
