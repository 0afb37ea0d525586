package universe

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/playground/internal/domain"
	"github.com/aristath/playground/internal/utils"
)

// historyEpoch asks the provider for the full available history.
var historyEpoch = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)

// Builder turns a ticker list into the start-date universe.
type Builder struct {
	provider Provider
	store    Store
	log      zerolog.Logger
}

// NewBuilder creates a builder. store is optional.
func NewBuilder(provider Provider, store Store, log zerolog.Logger) *Builder {
	return &Builder{
		provider: provider,
		store:    store,
		log:      log.With().Str("service", "universe_builder").Logger(),
	}
}

// Build derives every company of entries for startDate. Tickers the provider
// has no data for are skipped with a warning.
func (b *Builder) Build(ctx context.Context, entries []Entry, startDate time.Time) (*Universe, error) {
	defer utils.Track("universe_build", 30*time.Second, b.log)()

	startDate = domain.Day(startDate)
	u := &Universe{
		StartDate: startDate,
		Histories: make(map[string]domain.SecurityHistory, len(entries)),
	}

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		c, h, err := b.company(ctx, e, startDate)
		if errors.Is(err, domain.ErrDataUnavailable) {
			b.log.Warn().Err(err).Str("ticker", e.Symbol).Msg("Skipping ticker")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to build %s: %w", e.Symbol, err)
		}

		u.Companies = append(u.Companies, c)
		u.Histories[c.Ticker] = h
	}

	if len(u.Companies) == 0 {
		return nil, fmt.Errorf("no ticker has data: %w", domain.ErrDataUnavailable)
	}

	sort.Slice(u.Companies, func(i, j int) bool { return u.Companies[i].Ticker < u.Companies[j].Ticker })
	AssignPopularity(u.Companies)

	b.log.Info().
		Int("companies", len(u.Companies)).
		Int("skipped", len(entries)-len(u.Companies)).
		Float64("total_market_cap", u.TotalMarketCap()).
		Str("start_date", startDate.Format(dateLayout)).
		Msg("Universe built")

	return u, nil
}

func (b *Builder) company(ctx context.Context, e Entry, startDate time.Time) (domain.CompanySnapshot, domain.SecurityHistory, error) {
	if b.store != nil {
		c, okC, err := b.store.LoadCompany(e.Symbol, startDate)
		if err != nil {
			return domain.CompanySnapshot{}, domain.SecurityHistory{}, err
		}
		h, okH, err := b.store.LoadHistory(e.Symbol)
		if err != nil {
			return domain.CompanySnapshot{}, domain.SecurityHistory{}, err
		}
		if okC && okH {
			b.log.Debug().Str("ticker", e.Symbol).Msg("Loaded company from store")
			return c, h, nil
		}
		if okC != okH {
			b.log.Debug().Str("ticker", e.Symbol).Msg("Stored data does not match start date, refetching")
		}
	}

	f, err := b.provider.GetFundamentals(ctx, e.Symbol)
	if err != nil {
		return domain.CompanySnapshot{}, domain.SecurityHistory{}, err
	}
	f.Ticker = e.Symbol
	e.Apply(&f)

	h, err := b.provider.GetHistory(ctx, e.Symbol, historyEpoch)
	if err != nil {
		return domain.CompanySnapshot{}, domain.SecurityHistory{}, err
	}

	c, err := Derive(f, h, startDate)
	if err != nil {
		return domain.CompanySnapshot{}, domain.SecurityHistory{}, err
	}

	if b.store != nil {
		if err := b.store.SaveHistory(h); err != nil {
			return domain.CompanySnapshot{}, domain.SecurityHistory{}, err
		}
		if err := b.store.SaveCompany(c); err != nil {
			return domain.CompanySnapshot{}, domain.SecurityHistory{}, err
		}
	}
	return c, h, nil
}
