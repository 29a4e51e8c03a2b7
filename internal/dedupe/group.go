package dedupe

import (
	"cmp"
	"context"
	"log/slog"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/contactlyapp/contactly-server/internal/domain"
	domainerrors "github.com/contactlyapp/contactly-server/internal/errors"
)

// PairScore is the similarity of an unordered record pair. A < B.
type PairScore struct {
	A     string  `json:"a"`
	B     string  `json:"b"`
	Score float64 `json:"score"`
}

// DuplicateGroup is a connected component of records linked by
// above-threshold pair scores. IDs are only meaningful within one scan.
type DuplicateGroup struct {
	RecordIDs         []string    `json:"record_ids"`
	Pairs             []PairScore `json:"pairs"`
	SuggestedMasterID string      `json:"suggested_master_id"`
	ID                int         `json:"id"`
	Score             float64     `json:"score"` // minimum retained pair score in the group
}

// GroupOptions bounds a single grouping run.
type GroupOptions struct {
	// Number of concurrent scoring workers. Defaults to runtime.NumCPU().
	Workers int

	// Largest snapshot accepted. Zero means unbounded.
	MaxRecords int
}

// Grouper clusters records into duplicate groups.
type Grouper struct {
	logger     *slog.Logger
	thresholds Thresholds
}

// NewGrouper creates a grouper using the given thresholds.
func NewGrouper(logger *slog.Logger, thresholds Thresholds) *Grouper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Grouper{logger: logger, thresholds: thresholds}
}

// Threshold returns the minimum pair score kept at sensitivity s.
func (g *Grouper) Threshold(s Sensitivity) float64 {
	return g.thresholds.For(s)
}

// Group scores every unordered record pair, keeps pairs at or above the
// sensitivity threshold, and returns the connected components of size two
// or more. Groups are ordered by score descending, then by smallest member ID.
//
// Pair scoring fans out across workers; component building runs on the
// calling goroutine so the result is identical for identical input.
// Cancelling ctx aborts the run with a ScanCanceled error.
func (g *Grouper) Group(ctx context.Context, records []domain.Record, fields FieldSet, s Sensitivity, opts GroupOptions) ([]DuplicateGroup, error) {
	if len(fields) == 0 {
		return nil, domainerrors.EmptyFieldSet()
	}
	if opts.MaxRecords > 0 && len(records) > opts.MaxRecords {
		return nil, domainerrors.Validationf("scan batch has %d records, limit is %d", len(records), opts.MaxRecords)
	}
	if err := checkUniqueIDs(records); err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []DuplicateGroup{}, nil
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	normalized := make([][]string, len(records))
	for i := range records {
		normalized[i] = make([]string, len(fields))
		for k, f := range fields {
			normalized[i][k] = Normalize(f, records[i].Field(f), s)
		}
	}

	threshold := g.Threshold(s)
	edges, err := scorePairs(ctx, normalized, s, threshold, workers)
	if err != nil {
		return nil, err
	}

	groups := buildGroups(records, edges)
	g.logger.Debug("grouped duplicates",
		"records", len(records),
		"fields", len(fields),
		"sensitivity", s,
		"threshold", threshold,
		"groups", len(groups),
	)
	return groups, nil
}

// Group runs a Grouper with default thresholds and options.
func Group(ctx context.Context, records []domain.Record, fields FieldSet, s Sensitivity) ([]DuplicateGroup, error) {
	return NewGrouper(nil, DefaultThresholds()).Group(ctx, records, fields, s, GroupOptions{})
}

func checkUniqueIDs(records []domain.Record) error {
	seen := make(map[string]bool, len(records))
	for i := range records {
		id := records[i].ID
		if id == "" {
			return domainerrors.Validation("record without id in scan snapshot")
		}
		if seen[id] {
			return domainerrors.Validationf("record %s appears twice in scan snapshot", id)
		}
		seen[id] = true
	}
	return nil
}

// edge links record indexes i < j.
type edge struct {
	i, j  int
	score float64
}

// scorePairs returns retained edges in row-major order. Each worker owns one
// row slot, so no locking is needed.
func scorePairs(ctx context.Context, normalized [][]string, s Sensitivity, threshold float64, workers int) ([]edge, error) {
	n := len(normalized)
	rows := make([][]edge, n)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)

	for i := 0; i < n-1; i++ {
		if egCtx.Err() != nil {
			break
		}
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			var row []edge
			for j := i + 1; j < n; j++ {
				score := scoreNormalized(normalized[i], normalized[j], s)
				if score >= threshold {
					row = append(row, edge{i: i, j: j, score: score})
				}
			}
			rows[i] = row
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, domainerrors.ScanCanceled(err)
	}
	if err := ctx.Err(); err != nil {
		return nil, domainerrors.ScanCanceled(err)
	}

	var edges []edge
	for _, row := range rows {
		edges = append(edges, row...)
	}
	return edges, nil
}

// buildGroups unions retained edges and turns components into groups.
func buildGroups(records []domain.Record, edges []edge) []DuplicateGroup {
	uf := newUnionFind(len(records))
	for _, e := range edges {
		uf.union(e.i, e.j)
	}

	type component struct {
		members []int
		edges   []edge
	}
	components := make(map[int]*component)
	for _, e := range edges {
		root := uf.find(e.i)
		c, ok := components[root]
		if !ok {
			c = &component{}
			components[root] = c
		}
		c.edges = append(c.edges, e)
	}
	for i := range records {
		if c, ok := components[uf.find(i)]; ok {
			c.members = append(c.members, i)
		}
	}

	groups := make([]DuplicateGroup, 0, len(components))
	for _, c := range components {
		group := DuplicateGroup{
			RecordIDs: make([]string, 0, len(c.members)),
			Pairs:     make([]PairScore, 0, len(c.edges)),
			Score:     1,
		}
		members := make([]*domain.Record, 0, len(c.members))
		for _, idx := range c.members {
			group.RecordIDs = append(group.RecordIDs, records[idx].ID)
			members = append(members, &records[idx])
		}
		slices.Sort(group.RecordIDs)

		for _, e := range c.edges {
			group.Score = min(group.Score, e.score)
			a, b := records[e.i].ID, records[e.j].ID
			if b < a {
				a, b = b, a
			}
			group.Pairs = append(group.Pairs, PairScore{A: a, B: b, Score: e.score})
		}
		slices.SortFunc(group.Pairs, func(x, y PairScore) int {
			return cmp.Or(cmp.Compare(x.A, y.A), cmp.Compare(x.B, y.B))
		})
		group.SuggestedMasterID = SuggestMaster(members)
		groups = append(groups, group)
	}

	slices.SortFunc(groups, func(x, y DuplicateGroup) int {
		return cmp.Or(
			cmp.Compare(y.Score, x.Score),
			cmp.Compare(x.RecordIDs[0], y.RecordIDs[0]),
		)
	})
	for i := range groups {
		groups[i].ID = i + 1
	}
	return groups
}

// SuggestMaster picks the record most worth keeping: the one with the most
// filled fields, then the oldest, then the smallest ID.
func SuggestMaster(records []*domain.Record) string {
	if len(records) == 0 {
		return ""
	}
	best := records[0]
	for _, r := range records[1:] {
		if betterMaster(r, best) {
			best = r
		}
	}
	return best.ID
}

func betterMaster(r, best *domain.Record) bool {
	if rc, bc := r.FilledFieldCount(), best.FilledFieldCount(); rc != bc {
		return rc > bc
	}
	if !r.CreatedAt.Equal(best.CreatedAt) {
		switch {
		case r.CreatedAt.IsZero():
			return false
		case best.CreatedAt.IsZero():
			return true
		default:
			return r.CreatedAt.Before(best.CreatedAt)
		}
	}
	return r.ID < best.ID
}

type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n), rank: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	switch {
	case u.rank[ra] < u.rank[rb]:
		u.parent[ra] = rb
	case u.rank[ra] > u.rank[rb]:
		u.parent[rb] = ra
	default:
		u.parent[rb] = ra
		u.rank[ra]++
	}
}
