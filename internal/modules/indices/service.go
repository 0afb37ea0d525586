package indices

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/playground/internal/modules/universe"
)

// Service builds the market of a universe and optionally persists it.
type Service struct {
	repo *Repository
	log  zerolog.Logger
}

// NewService creates an index service. repo is optional.
func NewService(repo *Repository, log zerolog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With().Str("service", "indices").Logger(),
	}
}

// Build builds world, sector and region indices for u.
func (s *Service) Build(ctx context.Context, u *universe.Universe) (*Market, error) {
	started := time.Now()
	m, err := BuildAll(ctx, u.Companies, u.Histories)
	if err != nil {
		return nil, fmt.Errorf("failed to build indices: %w", err)
	}
	if len(m.Skipped) > 0 {
		s.log.Warn().Strs("tickers", m.Skipped).Msg("Skipped companies without history")
	}

	for _, ix := range m.All() {
		if !ix.Valid() {
			s.log.Warn().Str("index", ix.Key()).Msg("Index level never positive")
			continue
		}
		s.log.Debug().
			Str("index", ix.Key()).
			Int("days", len(ix.Dates)-ix.T0).
			Float64("min_change", ix.Distribution.Min()).
			Float64("max_change", ix.Distribution.Max()).
			Msg("Built index")
	}

	if s.repo != nil {
		if err := s.repo.SaveMarket(m); err != nil {
			return nil, err
		}
	}

	s.log.Info().
		Int("sectors", len(m.Sectors)).
		Int("regions", len(m.Regions)).
		Int("days", m.Panel.Len()).
		Dur("took", time.Since(started)).
		Msg("Indices built")
	return m, nil
}
