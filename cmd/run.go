package main

import (
	"encoding/json"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/contact-enricher/internal/model"
	"github.com/sells-group/contact-enricher/internal/pipeline"
)

var runOrg model.Organization

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Enrich a single organization",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx, "run")
		if err != nil {
			return err
		}
		defer env.Close()

		opts := []pipeline.RunnerOption{pipeline.WithMetrics(env.Metrics)}
		if env.Store != nil {
			opts = append(opts, pipeline.WithStore(env.Store))
		}
		runner := pipeline.NewRunner(env.Orchestrator, opts...)

		runID := uuid.New().String()
		rec := runner.Run(ctx, runID, []model.Organization{runOrg}, 0)[0]

		zap.L().Info("enrichment complete",
			zap.String("organization", rec.Name),
			zap.Bool("failed", rec.ProcessingMetadata.Failed),
			zap.Int("errors", rec.ProcessingMetadata.ErrorCount),
		)
		env.logUsage()

		// Print result JSON to stdout
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	},
}

func init() {
	runCmd.Flags().StringVar(&runOrg.Name, "name", "", "organization name (required)")
	runCmd.Flags().StringVar(&runOrg.Category, "category", "", "organization category")
	runCmd.Flags().StringVar(&runOrg.Homepage, "homepage", "", "known homepage URL")
	runCmd.Flags().StringVar(&runOrg.Phone, "phone", "", "known phone number")
	runCmd.Flags().StringVar(&runOrg.Fax, "fax", "", "known fax number")
	runCmd.Flags().StringVar(&runOrg.Email, "email", "", "known email address")
	runCmd.Flags().StringVar(&runOrg.Address, "address", "", "known address")
	_ = runCmd.MarkFlagRequired("name")
	rootCmd.AddCommand(runCmd)
}
