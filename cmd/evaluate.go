package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/octoslots/app"
	"github.com/kilianp07/octoslots/config"
	"github.com/kilianp07/octoslots/infra/source"
)

var (
	snapshotPath string
	evaluateAt   string
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Derive the state tree for one snapshot file and print it as JSON",
	RunE:  evaluate,
}

func init() {
	evaluateCmd.Flags().StringVarP(&snapshotPath, "snapshot", "s", "", "snapshot JSON file")
	evaluateCmd.Flags().StringVar(&evaluateAt, "at", "", "evaluation instant (RFC3339), defaults to now")
	_ = evaluateCmd.MarkFlagRequired("snapshot")
}

func evaluate(cmd *cobra.Command, _ []string) error {
	cfg := &config.Config{}
	if cmd.Flags().Changed("config") {
		loaded, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	} else {
		cfg.SetDefaults()
		if err := cfg.Tariff.Validate(); err != nil {
			return err
		}
	}

	at := time.Now()
	if evaluateAt != "" {
		t, err := time.Parse(time.RFC3339, evaluateAt)
		if err != nil {
			return fmt.Errorf("--at: %w", err)
		}
		at = t
	}

	b, err := os.ReadFile(snapshotPath)
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}
	snap, err := source.Decode(b)
	if err != nil {
		return err
	}

	st := app.Evaluate(cfg, snap, at.UTC())
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(st)
}
