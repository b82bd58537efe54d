package pipeline

import (
	"sort"
	"sync"
	"time"

	"github.com/sells-group/contact-enricher/internal/model"
)

// Stats tallies agent and record outcomes for one runner. It is owned by the
// runner and handed only to the orchestrator.
type Stats struct {
	mu        sync.Mutex
	agents    map[string]*model.AgentCounters
	total     int
	succeeded int
	failed    int
}

// NewStats creates an empty aggregator.
func NewStats() *Stats {
	return &Stats{agents: make(map[string]*model.AgentCounters)}
}

func (s *Stats) counters(agent string) *model.AgentCounters {
	c, ok := s.agents[agent]
	if !ok {
		c = &model.AgentCounters{}
		s.agents[agent] = c
	}
	return c
}

func (s *Stats) skipped(agent string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters(agent).Skips++
}

func (s *Stats) executed(agent string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.counters(agent)
	c.Executions++
	if ok {
		c.Successes++
	}
}

func (s *Stats) record(ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total++
	if ok {
		s.succeeded++
	} else {
		s.failed++
	}
}

// Agent returns the counters for one agent.
func (s *Stats) Agent(name string) model.AgentCounters {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.agents[name]; ok {
		return *c
	}
	return model.AgentCounters{}
}

// AgentNames returns the agents seen so far, sorted.
func (s *Stats) AgentNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.agents))
	for n := range s.agents {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Merge adds other's counts into s.
func (s *Stats) Merge(other *Stats) {
	if other == nil || other == s {
		return
	}
	other.mu.Lock()
	agents := make(map[string]model.AgentCounters, len(other.agents))
	for n, c := range other.agents {
		agents[n] = *c
	}
	total, succeeded, failed := other.total, other.succeeded, other.failed
	other.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	for n, c := range agents {
		dst := s.counters(n)
		dst.Executions += c.Executions
		dst.Successes += c.Successes
		dst.Skips += c.Skips
	}
	s.total += total
	s.succeeded += succeeded
	s.failed += failed
}

// Summary converts the tallies into a run summary.
func (s *Stats) Summary(elapsed time.Duration) *model.RunSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	agents := make(map[string]model.AgentCounters, len(s.agents))
	for n, c := range s.agents {
		agents[n] = *c
	}
	return &model.RunSummary{
		Total:     s.total,
		Succeeded: s.succeeded,
		Failed:    s.failed,
		Duration:  elapsed.Seconds(),
		Agents:    agents,
	}
}
