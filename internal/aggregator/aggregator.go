// Package aggregator pulls job listings from independent external providers,
// normalizes them to the engine's shape, and persists them append-only. One
// failing source never prevents the others from contributing.
package aggregator

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/recruiter-solutions/match-engine/internal/model"
)

// Source fetches listings from one external provider. Implementations return
// (nil, nil) when unconfigured and an error only for transport or provider
// failures; the aggregator absorbs those errors per source.
type Source interface {
	Name() string
	Fetch(ctx context.Context, query, region string) ([]model.ExternalListing, error)
}

// Store persists aggregated listings. InsertExternalListing reports false
// when the (source, external_id) pair already exists; existing rows are never
// overwritten.
type Store interface {
	InsertExternalListing(ctx context.Context, l model.ExternalListing) (bool, error)
	ListExternalListings(ctx context.Context, limit int) ([]model.ExternalListing, error)
}

// Aggregator coordinates all configured sources against the shared store.
type Aggregator struct {
	sources []Source
	store   Store
	logger  *zap.Logger
}

// New creates an Aggregator over the given sources.
func New(store Store, sources []Source, log *zap.Logger) *Aggregator {
	return &Aggregator{sources: sources, store: store, logger: log}
}

// HasSources reports whether any external provider is configured.
func (a *Aggregator) HasSources() bool {
	return len(a.sources) > 0
}

// Refresh fetches from every source concurrently and inserts listings whose
// (source, external_id) pair is new. Per-source failures are logged and
// absorbed.
func (a *Aggregator) Refresh(ctx context.Context, query, region string) {
	g, gctx := errgroup.WithContext(ctx)

	for _, src := range a.sources {
		g.Go(func() error {
			listings, err := src.Fetch(gctx, query, region)
			if err != nil {
				a.logger.Warn("source fetch failed",
					zap.String("source", src.Name()), zap.Error(err))
				return nil
			}
			if len(listings) == 0 {
				return nil
			}

			inserted, duplicates := a.insertAll(gctx, listings)
			a.logger.Info("source refresh complete",
				zap.String("source", src.Name()),
				zap.Int("fetched", len(listings)),
				zap.Int("inserted", inserted),
				zap.Int("duplicates", duplicates),
			)
			return nil
		})
	}

	_ = g.Wait()
}

// Listings returns the most recently fetched listings from the store. A
// non-empty query triggers a refresh first: the caller is asking to go fetch
// more, not just browse what we have.
func (a *Aggregator) Listings(ctx context.Context, limit int, query string) ([]model.ExternalListing, error) {
	if query = strings.TrimSpace(query); query != "" && a.HasSources() {
		if len(query) > 100 {
			query = query[:100]
		}
		a.Refresh(ctx, query, "")
	}

	return a.store.ListExternalListings(ctx, limit)
}

func (a *Aggregator) insertAll(ctx context.Context, listings []model.ExternalListing) (inserted, duplicates int) {
	for _, l := range listings {
		ok, err := a.store.InsertExternalListing(ctx, l)
		if err != nil {
			a.logger.Warn("external listing insert failed",
				zap.String("source", l.Source),
				zap.String("external_id", l.ExternalID),
				zap.Error(err),
			)
			continue
		}
		if ok {
			inserted++
		} else {
			duplicates++
		}
	}
	return inserted, duplicates
}

// synthesizeID builds a stable external id from whatever raw identifier the
// provider exposes, salted by source name so the same upstream job is not
// duplicated across repeated fetches.
func synthesizeID(source, raw string) string {
	sum := sha256.Sum256([]byte(source + ":" + raw))
	return fmt.Sprintf("%s_%x", source, sum[:12])
}
