// Package scheduler runs the periodic background refresh of external job
// sources so the aggregated feed stays warm between user queries.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/recruiter-solutions/match-engine/internal/aggregator"
)

// Scheduler wraps robfig/cron around the aggregator's refresh loop.
type Scheduler struct {
	cron    *cron.Cron
	agg     *aggregator.Aggregator
	log     *zap.Logger
	spec    string
	queries []string
	timeout time.Duration
}

// New creates a Scheduler firing every interval. Each tick refreshes the
// aggregator once per configured query.
func New(agg *aggregator.Aggregator, interval time.Duration, queries []string, log *zap.Logger) *Scheduler {
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	if len(queries) == 0 {
		queries = []string{""}
	}
	return &Scheduler{
		cron:    cron.New(),
		agg:     agg,
		log:     log,
		spec:    fmt.Sprintf("@every %s", interval),
		queries: queries,
		timeout: 2 * time.Minute,
	}
}

// Start registers the refresh job and starts the cron loop. One refresh runs
// immediately so the feed is populated without waiting for the first tick.
func (s *Scheduler) Start() error {
	if !s.agg.HasSources() {
		s.log.Info("no external sources configured, scheduler idle")
		return nil
	}

	if _, err := s.cron.AddFunc(s.spec, s.runRefresh); err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	s.log.Info("refresh scheduler started", zap.String("spec", s.spec))

	go s.runRefresh()

	return nil
}

// Stop halts the cron loop. Running jobs finish on their own deadline.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.log.Info("refresh scheduler stopped")
}

func (s *Scheduler) runRefresh() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	s.log.Info("refresh cycle started", zap.Int("queries", len(s.queries)))
	for _, q := range s.queries {
		s.agg.Refresh(ctx, q, "")
	}
	s.log.Info("refresh cycle complete")
}
