package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/contact-enricher/internal/model"
	"github.com/sells-group/contact-enricher/internal/pipeline"
)

var (
	batchInput  string
	batchOutput string
	batchLimit  int
	batchShards int
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Enrich organizations from a JSON file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if batchShards > 0 {
			cfg.Batch.Shards = batchShards
		}

		env, err := initPipeline(ctx, "batch")
		if err != nil {
			return err
		}
		defer env.Close()

		orgs, err := readOrganizationsFile(batchInput)
		if err != nil {
			return err
		}
		if batchLimit > 0 && len(orgs) > batchLimit {
			orgs = orgs[:batchLimit]
		}

		recs, summary, err := processBatch(ctx, env, orgs, cfg.Batch.Shards)
		if err != nil {
			return err
		}
		env.logUsage()

		if err := env.Metrics.WriteTextfile(cfg.Metrics.TextfilePath); err != nil {
			zap.L().Warn("write metrics textfile", zap.Error(err))
		}

		zap.L().Info("batch complete",
			zap.Int("total", summary.Total),
			zap.Int("succeeded", summary.Succeeded),
			zap.Int("failed", summary.Failed),
			zap.Float64("duration_secs", summary.Duration),
		)

		return writeRecordsFile(batchOutput, recs)
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchInput, "input", "", "JSON file with an array of organizations (required)")
	batchCmd.Flags().StringVar(&batchOutput, "output", "", "output JSON file (default stdout)")
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "max number of organizations to process (0 = all)")
	batchCmd.Flags().IntVar(&batchShards, "shards", 0, "parallel sequential runners (overrides batch.shards)")
	_ = batchCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(batchCmd)
}

// processBatch runs orgs through shards runners over env's orchestrator,
// recording the run in the store when one is configured.
func processBatch(ctx context.Context, env *pipelineEnv, orgs []model.Organization, shards int) ([]model.OutputRecord, *model.RunSummary, error) {
	runID := uuid.New().String()
	if env.Store != nil {
		if _, err := env.Store.CreateRun(ctx, runID); err != nil {
			return nil, nil, eris.Wrap(err, "create run")
		}
	}

	if shards < 1 {
		shards = 1
	}
	zap.L().Info("processing batch",
		zap.String("run_id", runID),
		zap.Int("organizations", len(orgs)),
		zap.Int("shards", shards),
	)

	events := make(chan pipeline.Event, shards)
	done := make(chan struct{})
	go func() {
		defer close(done)
		logEvents(events, len(orgs))
	}()

	runners := make([]*pipeline.Runner, shards)
	for i := range runners {
		opts := []pipeline.RunnerOption{
			pipeline.WithMetrics(env.Metrics),
			pipeline.WithEvents(events),
		}
		if env.Store != nil {
			opts = append(opts, pipeline.WithStore(env.Store))
		}
		runners[i] = pipeline.NewRunner(env.Orchestrator, opts...)
	}

	start := time.Now()
	recs, stats := pipeline.RunShards(ctx, runID, runners, orgs)
	close(events)
	<-done

	summary := stats.Summary(time.Since(start))
	if env.Store != nil {
		status := model.RunStatusComplete
		if ctx.Err() != nil {
			status = model.RunStatusFailed
		}
		if err := env.Store.CompleteRun(context.WithoutCancel(ctx), runID, status, summary); err != nil {
			zap.L().Error("complete run", zap.String("run_id", runID), zap.Error(err))
		}
	}
	logAgentStats(summary)
	return recs, summary, nil
}

// logEvents drains progress events until the channel is closed.
func logEvents(events <-chan pipeline.Event, total int) {
	finished := 0
	for ev := range events {
		switch ev.Kind {
		case pipeline.EventStarted:
			zap.L().Debug("organization started", zap.Int("index", ev.Index), zap.String("organization", ev.Name))
		case pipeline.EventCompleted, pipeline.EventFailed:
			finished++
			zap.L().Info("organization finished",
				zap.String("outcome", string(ev.Kind)),
				zap.String("organization", ev.Name),
				zap.Int("done", finished),
				zap.Int("total", total),
				zap.String("error", ev.Err),
			)
		}
	}
}

func logAgentStats(s *model.RunSummary) {
	for name, c := range s.Agents {
		zap.L().Info("agent stats",
			zap.String("agent", name),
			zap.Int("executions", c.Executions),
			zap.Int("successes", c.Successes),
			zap.Int("skips", c.Skips),
		)
	}
}

// readOrganizationsFile reads a JSON array of organizations from path, or
// from stdin when path is "-".
func readOrganizationsFile(path string) ([]model.Organization, error) {
	if path == "-" {
		return readOrganizations(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "open input")
	}
	defer f.Close() //nolint:errcheck
	return readOrganizations(f)
}

func readOrganizations(r io.Reader) ([]model.Organization, error) {
	var orgs []model.Organization
	if err := json.NewDecoder(r).Decode(&orgs); err != nil {
		return nil, eris.Wrap(err, "decode input")
	}
	return orgs, nil
}

// writeRecordsFile writes records as a JSON array to path, or to stdout when
// path is empty.
func writeRecordsFile(path string, recs []model.OutputRecord) error {
	if path == "" {
		return writeRecords(os.Stdout, recs)
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "create output")
	}
	if err := writeRecords(f, recs); err != nil {
		_ = f.Close()
		return err
	}
	return eris.Wrap(f.Close(), "close output")
}

func writeRecords(w io.Writer, recs []model.OutputRecord) error {
	if recs == nil {
		recs = []model.OutputRecord{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return eris.Wrap(enc.Encode(recs), "encode output")
}
