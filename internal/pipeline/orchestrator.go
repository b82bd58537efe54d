package pipeline

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/contact-enricher/internal/model"
)

// Orchestrator runs agents over a context in their declared order.
type Orchestrator struct {
	agents  []Agent
	metrics *Metrics
}

// NewOrchestrator creates an orchestrator over agents. metrics may be nil.
func NewOrchestrator(agents []Agent, metrics *Metrics) *Orchestrator {
	return &Orchestrator{agents: agents, metrics: metrics}
}

// Agents returns the agent names in execution order.
func (o *Orchestrator) Agents() []string {
	names := make([]string, len(o.agents))
	for i, a := range o.agents {
		names[i] = a.Name()
	}
	return names
}

// Run executes every applicable agent on cc. Errors and panics are recorded
// in cc's error log as "<Agent> error: <message>" and the next agent runs
// regardless. stats may be nil.
func (o *Orchestrator) Run(ctx context.Context, cc *model.CrawlingContext, stats *Stats) {
	log := zap.L().With(zap.String("organization", cc.Organization.Name))

	for _, a := range o.agents {
		name := a.Name()
		if !o.shouldExecute(a, cc) {
			log.Debug("pipeline: agent skipped", zap.String("agent", name))
			if stats != nil {
				stats.skipped(name)
			}
			o.metrics.agent(name, "skipped")
			continue
		}

		before := len(cc.ErrorLog)
		start := time.Now()
		if err := o.execute(ctx, a, cc); err != nil {
			cc.LogError(fmt.Sprintf("%s error: %s", name, err.Error()))
			log.Warn("pipeline: agent failed", zap.String("agent", name), zap.Error(err))
		}
		ok := len(cc.ErrorLog) == before

		log.Debug("pipeline: agent finished",
			zap.String("agent", name),
			zap.Bool("ok", ok),
			zap.Duration("elapsed", time.Since(start)),
		)
		if stats != nil {
			stats.executed(name, ok)
		}
		if ok {
			o.metrics.agent(name, "success")
		} else {
			o.metrics.agent(name, "error")
		}
	}
}

// shouldExecute treats a panicking precondition as false.
func (o *Orchestrator) shouldExecute(a Agent, cc *model.CrawlingContext) (run bool) {
	defer func() {
		if r := recover(); r != nil {
			cc.LogError(fmt.Sprintf("%s error: precondition panic: %v", a.Name(), r))
			run = false
		}
	}()
	return a.ShouldExecute(cc)
}

func (o *Orchestrator) execute(ctx context.Context, a Agent, cc *model.CrawlingContext) (err error) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("pipeline: agent panic",
				zap.String("agent", a.Name()),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
			err = eris.Errorf("panic: %v", r)
		}
	}()
	return a.Execute(ctx, cc)
}
