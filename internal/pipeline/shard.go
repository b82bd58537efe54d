package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/sells-group/contact-enricher/internal/model"
)

// RunShards splits orgs into contiguous shards, one per runner, and runs
// them concurrently. Each runner stays sequential. Records come back in
// input order; the returned Stats merges every runner's tallies.
func RunShards(ctx context.Context, runID string, runners []*Runner, orgs []model.Organization) ([]model.OutputRecord, *Stats) {
	out := make([]model.OutputRecord, len(orgs))
	total := NewStats()
	if len(runners) == 0 || len(orgs) == 0 {
		return out, total
	}

	shards := Split(len(orgs), len(runners))
	g, gCtx := errgroup.WithContext(ctx)
	for i, s := range shards {
		r := runners[i]
		g.Go(func() error {
			recs := r.Run(gCtx, runID, orgs[s.Start:s.End], s.Start)
			copy(out[s.Start:s.End], recs)
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range runners {
		total.Merge(r.Stats())
	}
	return out, total
}

// Shard is a half-open index range [Start, End).
type Shard struct {
	Start, End int
}

// Split divides n items into at most k contiguous shards whose sizes differ
// by at most one. Empty shards are omitted.
func Split(n, k int) []Shard {
	if n <= 0 {
		return nil
	}
	if k <= 0 {
		k = 1
	}
	if k > n {
		k = n
	}
	shards := make([]Shard, 0, k)
	size, rem := n/k, n%k
	start := 0
	for i := 0; i < k; i++ {
		end := start + size
		if i < rem {
			end++
		}
		shards = append(shards, Shard{Start: start, End: end})
		start = end
	}
	return shards
}
