package indices

import (
	"context"
	"fmt"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/aristath/playground/internal/domain"
)

// Group is one node of the partition tree: a named set of tickers.
type Group struct {
	Kind    Kind
	Name    string
	Tickers []string
}

// Partition splits companies by sector or region. Every ticker lands in
// exactly one group. Groups are ordered by name.
func Partition(companies []domain.CompanySnapshot, kind Kind) []Group {
	if kind == KindWorld {
		all := Group{Kind: KindWorld, Name: string(KindWorld)}
		for _, c := range companies {
			all.Tickers = append(all.Tickers, c.Ticker)
		}
		sort.Strings(all.Tickers)
		return []Group{all}
	}

	byName := make(map[string][]string)
	for _, c := range companies {
		name := c.Sector
		if kind == KindRegion {
			name = c.Region
		}
		byName[name] = append(byName[name], c.Ticker)
	}

	groups := make([]Group, 0, len(byName))
	for name, tickers := range byName {
		sort.Strings(tickers)
		groups = append(groups, Group{Kind: kind, Name: name, Tickers: tickers})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })
	return groups
}

// BuildGroup weights and builds the index of one group independently of
// every other group.
func BuildGroup(p *Panel, caps map[string][]float64, g Group) *Index {
	sub := p.Subset(g.Tickers)
	weights := Weights(caps, sub.Tickers, sub.Len())
	return Build(g.Kind, g.Name, sub, weights)
}

// Market holds the world index and every sector and region index.
type Market struct {
	World   *Index
	Sectors map[string]*Index
	Regions map[string]*Index
	Panel   *Panel
	Caps    map[string][]float64
	// Skipped lists tickers left out for lack of history, in input order.
	Skipped []string
}

// Index returns the index stored under key.
func (m *Market) Index(key string) (*Index, bool) {
	for _, ix := range m.All() {
		if ix.Key() == key {
			return ix, true
		}
	}
	return nil, false
}

// All returns world, sectors then regions, each group ordered by name.
func (m *Market) All() []*Index {
	out := []*Index{m.World}
	out = append(out, sortedIndices(m.Sectors)...)
	return append(out, sortedIndices(m.Regions)...)
}

func sortedIndices(in map[string]*Index) []*Index {
	names := make([]string, 0, len(in))
	for n := range in {
		names = append(names, n)
	}
	sort.Strings(names)
	out := make([]*Index, len(names))
	for i, n := range names {
		out[i] = in[n]
	}
	return out
}

// BuildAll builds the world, sector and region indices of companies from
// their histories. A company without history is skipped and contributes
// nothing; the build fails only when no company has history. Groups share
// read-only inputs and are built concurrently; each writes only its own slot
// so the result equals a serial build.
func BuildAll(ctx context.Context, companies []domain.CompanySnapshot, histories map[string]domain.SecurityHistory) (*Market, error) {
	selected := make(map[string]domain.SecurityHistory, len(companies))
	shares := make(map[string]float64, len(companies))
	usable := make([]domain.CompanySnapshot, 0, len(companies))
	var skipped []string
	for _, c := range companies {
		h, ok := histories[c.Ticker]
		if !ok || len(h.Bars) == 0 {
			skipped = append(skipped, c.Ticker)
			continue
		}
		selected[c.Ticker] = h
		shares[c.Ticker] = c.SharesOutstanding
		usable = append(usable, c)
	}
	if len(usable) == 0 {
		return nil, fmt.Errorf("no company with history: %w", domain.ErrDataUnavailable)
	}
	companies = usable

	panel := NewPanel(selected)
	caps := MarketCaps(panel, shares)

	var groups []Group
	groups = append(groups, Partition(companies, KindWorld)...)
	groups = append(groups, Partition(companies, KindSector)...)
	groups = append(groups, Partition(companies, KindRegion)...)

	built := make([]*Index, len(groups))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, grp := range groups {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			built[i] = BuildGroup(panel, caps, grp)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	m := &Market{
		Sectors: make(map[string]*Index),
		Regions: make(map[string]*Index),
		Panel:   panel,
		Caps:    caps,
		Skipped: skipped,
	}
	for _, ix := range built {
		switch ix.Kind {
		case KindWorld:
			m.World = ix
		case KindSector:
			m.Sectors[ix.Name] = ix
		case KindRegion:
			m.Regions[ix.Name] = ix
		}
	}
	return m, nil
}
