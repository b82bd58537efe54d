package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/contact-enricher/internal/model"
	"github.com/sells-group/contact-enricher/internal/resilience"
	"github.com/sells-group/contact-enricher/internal/store"
)

// EventKind classifies a progress event.
type EventKind string

const (
	EventStarted   EventKind = "started"
	EventCompleted EventKind = "completed"
	EventFailed    EventKind = "failed"
)

// Event reports progress on one organization of a batch.
type Event struct {
	Kind   EventKind
	RunID  string
	Index  int
	Name   string
	Record *model.OutputRecord
	Err    string
}

// Runner processes organizations one at a time through an orchestrator.
// A failure on one organization never stops the batch: the input record is
// returned unchanged with failure metadata.
type Runner struct {
	orch    *Orchestrator
	stats   *Stats
	store   store.Store
	metrics *Metrics
	events  chan<- Event
	now     func() time.Time
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithStore persists records and dead letter entries.
func WithStore(st store.Store) RunnerOption {
	return func(r *Runner) { r.store = st }
}

// WithMetrics records per-record metrics.
func WithMetrics(m *Metrics) RunnerOption {
	return func(r *Runner) { r.metrics = m }
}

// WithEvents sends progress events to ch. The caller must drain it; sends
// are abandoned once the run context is done.
func WithEvents(ch chan<- Event) RunnerOption {
	return func(r *Runner) { r.events = ch }
}

// NewRunner creates a Runner with its own Stats.
func NewRunner(orch *Orchestrator, opts ...RunnerOption) *Runner {
	r := &Runner{
		orch:  orch,
		stats: NewStats(),
		now:   time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Stats returns the runner's aggregator.
func (r *Runner) Stats() *Stats { return r.stats }

// Run processes orgs in order and returns one output record per input.
// offset is the position of orgs[0] in the whole batch, used in events.
func (r *Runner) Run(ctx context.Context, runID string, orgs []model.Organization, offset int) []model.OutputRecord {
	out := make([]model.OutputRecord, len(orgs))
	for i, org := range orgs {
		out[i] = r.process(ctx, runID, offset+i, org)
	}
	return out
}

func (r *Runner) process(ctx context.Context, runID string, idx int, org model.Organization) (rec model.OutputRecord) {
	log := zap.L().With(zap.String("run_id", runID), zap.Int("index", idx), zap.String("organization", org.Name))
	r.emit(ctx, Event{Kind: EventStarted, RunID: runID, Index: idx, Name: org.Name})

	var cc *model.CrawlingContext
	defer func() {
		if p := recover(); p != nil {
			stage := model.StageInitialization
			if cc != nil {
				stage = cc.CurrentStage
			}
			log.Error("pipeline: record panic", zap.Any("panic", p))
			rec = r.fail(ctx, runID, idx, org, stage, fmt.Sprintf("panic: %v", p), resilience.KindPermanent)
		}
	}()

	if err := ctx.Err(); err != nil {
		return r.fail(ctx, runID, idx, org, model.StageInitialization, "cancelled: "+err.Error(), resilience.KindTransient)
	}
	if err := ValidateOrganization(org); err != nil {
		return r.fail(ctx, runID, idx, org, model.StageInitialization, err.Error(), resilience.KindPermanent)
	}

	start := time.Now()
	cc = model.NewCrawlingContext(org)
	r.orch.Run(ctx, cc, r.stats)
	if err := ctx.Err(); err != nil {
		return r.fail(ctx, runID, idx, org, cc.CurrentStage, "cancelled: "+err.Error(), resilience.KindTransient)
	}
	cc.Finish()
	rec = cc.Output(r.now())

	r.stats.record(true)
	r.metrics.record("completed", time.Since(start), presentFields(rec))
	r.save(ctx, runID, rec)
	log.Info("pipeline: record completed",
		zap.Int("errors", rec.ProcessingMetadata.ErrorCount),
		zap.Duration("elapsed", time.Since(start)),
	)
	r.emit(ctx, Event{Kind: EventCompleted, RunID: runID, Index: idx, Name: org.Name, Record: &rec})
	return rec
}

// fail returns the input unchanged with failure metadata and records a dead
// letter entry.
func (r *Runner) fail(ctx context.Context, runID string, idx int, org model.Organization, stage model.Stage, reason, kind string) model.OutputRecord {
	rec := org.Passthrough(reason, r.now())
	r.stats.record(false)
	r.metrics.record("failed", 0, nil)
	zap.L().Warn("pipeline: record failed",
		zap.String("run_id", runID),
		zap.Int("index", idx),
		zap.String("organization", org.Name),
		zap.String("stage", string(stage)),
		zap.String("reason", reason),
	)

	if r.store != nil {
		entry := resilience.DLQEntry{
			ID:           uuid.New().String(),
			RunID:        runID,
			Organization: org,
			Error:        reason,
			Kind:         kind,
			Stage:        stage,
			CreatedAt:    r.now(),
		}
		if err := r.store.EnqueueDLQ(context.WithoutCancel(ctx), entry); err != nil {
			zap.L().Error("pipeline: enqueue dlq", zap.String("organization", org.Name), zap.Error(err))
		}
	}
	r.save(ctx, runID, rec)
	r.emit(ctx, Event{Kind: EventFailed, RunID: runID, Index: idx, Name: org.Name, Record: &rec, Err: reason})
	return rec
}

func (r *Runner) save(ctx context.Context, runID string, rec model.OutputRecord) {
	if r.store == nil {
		return
	}
	if err := r.store.SaveRecord(context.WithoutCancel(ctx), runID, rec); err != nil {
		zap.L().Error("pipeline: save record", zap.String("organization", rec.Name), zap.Error(err))
	}
}

func (r *Runner) emit(ctx context.Context, ev Event) {
	if r.events == nil {
		return
	}
	select {
	case r.events <- ev:
	case <-ctx.Done():
	}
}

// ValidateOrganization checks an input record before it enters the
// pipeline.
func ValidateOrganization(org model.Organization) error {
	if err := validate.Struct(org); err != nil {
		var msgs []string
		if errs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range errs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
			}
		} else {
			msgs = append(msgs, err.Error())
		}
		return eris.Errorf("invalid input: %s", strings.Join(msgs, ", "))
	}
	if strings.TrimSpace(org.Name) == "" {
		return eris.New("invalid input: name is blank")
	}
	return nil
}

func presentFields(rec model.OutputRecord) []string {
	var out []string
	for f, v := range map[model.Field]string{
		model.FieldHomepage: rec.Homepage,
		model.FieldPhone:    rec.Phone,
		model.FieldFax:      rec.Fax,
		model.FieldEmail:    rec.Email,
		model.FieldAddress:  rec.Address,
	} {
		if v != "" {
			out = append(out, string(f))
		}
	}
	return out
}
