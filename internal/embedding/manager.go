// Package embedding manages the lifecycle of candidate and listing
// embeddings: lazily computed on first need, refreshed after mutations,
// always best-effort. Absence of an embedding never blocks anything; it only
// routes scoring through the fallback path.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/recruiter-solutions/match-engine/internal/ai"
	"github.com/recruiter-solutions/match-engine/internal/model"
	"github.com/recruiter-solutions/match-engine/internal/projection"
)

const defaultRefreshTimeout = 30 * time.Second

// Store is the persistence surface the manager writes embeddings through.
type Store interface {
	GetCandidate(ctx context.Context, id uuid.UUID) (*model.CandidateProfile, error)
	GetInternalListing(ctx context.Context, id uuid.UUID) (*model.InternalListing, error)
	SetCandidateEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error
	SetListingEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error
}

// Manager computes and persists embeddings. A nil embedder means the
// provider is unconfigured; every operation then reports unavailable without
// failing its caller.
type Manager struct {
	embedder ai.Embedder
	store    Store
	logger   *zap.Logger
	timeout  time.Duration
}

// NewManager creates a Manager. embedder may be nil.
func NewManager(embedder ai.Embedder, store Store, log *zap.Logger) *Manager {
	return &Manager{
		embedder: embedder,
		store:    store,
		logger:   log,
		timeout:  defaultRefreshTimeout,
	}
}

// EnsureCandidate returns the candidate's embedding, computing and persisting
// one when absent. Returns ai.ErrUnavailable when the provider cannot serve.
func (m *Manager) EnsureCandidate(ctx context.Context, p *model.CandidateProfile) ([]float32, error) {
	if p == nil {
		return nil, errors.New("candidate is required")
	}
	if len(p.Embedding) > 0 {
		return p.Embedding, nil
	}

	vector, err := m.embed(ctx, projection.Candidate(p))
	if err != nil {
		return nil, err
	}

	if err := m.store.SetCandidateEmbedding(ctx, p.ID, vector); err != nil {
		// The embedding is still usable for this request; only persistence
		// is lost.
		m.logger.Warn("persisting candidate embedding failed",
			zap.String("candidate_id", p.ID.String()), zap.Error(err))
	}

	return vector, nil
}

// EnsureListing returns the listing's embedding, computing and persisting one
// when absent.
func (m *Manager) EnsureListing(ctx context.Context, l *model.InternalListing) ([]float32, error) {
	if l == nil {
		return nil, errors.New("listing is required")
	}
	if len(l.Embedding) > 0 {
		return l.Embedding, nil
	}

	vector, err := m.embed(ctx, projection.InternalListing(l))
	if err != nil {
		return nil, err
	}

	if err := m.store.SetListingEmbedding(ctx, l.ID, vector); err != nil {
		m.logger.Warn("persisting listing embedding failed",
			zap.String("listing_id", l.ID.String()), zap.Error(err))
	}

	return vector, nil
}

// RefreshCandidate recomputes the embedding from the candidate's current
// text state, regardless of whether one exists. Concurrent refreshes for the
// same candidate race benignly: last write wins and embeddings are always
// derivable from current text.
func (m *Manager) RefreshCandidate(ctx context.Context, id uuid.UUID) error {
	p, err := m.store.GetCandidate(ctx, id)
	if err != nil {
		return fmt.Errorf("load candidate: %w", err)
	}

	vector, err := m.embed(ctx, projection.Candidate(p))
	if err != nil {
		return err
	}

	return m.store.SetCandidateEmbedding(ctx, id, vector)
}

// RefreshListing recomputes the embedding from the listing's current fields.
func (m *Manager) RefreshListing(ctx context.Context, id uuid.UUID) error {
	l, err := m.store.GetInternalListing(ctx, id)
	if err != nil {
		return fmt.Errorf("load listing: %w", err)
	}

	vector, err := m.embed(ctx, projection.InternalListing(l))
	if err != nil {
		return err
	}

	return m.store.SetListingEmbedding(ctx, id, vector)
}

// SpawnCandidateRefresh recomputes the candidate's embedding off the critical
// path of the mutation that triggered it. The caller's request returns before
// this completes; failures are logged and swallowed.
func (m *Manager) SpawnCandidateRefresh(id uuid.UUID) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()

		if err := m.RefreshCandidate(ctx, id); err != nil {
			m.logRefreshFailure("candidate", id, err)
		}
	}()
}

// SpawnListingRefresh recomputes the listing's embedding off the critical
// path.
func (m *Manager) SpawnListingRefresh(id uuid.UUID) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()

		if err := m.RefreshListing(ctx, id); err != nil {
			m.logRefreshFailure("listing", id, err)
		}
	}()
}

func (m *Manager) embed(ctx context.Context, text string) ([]float32, error) {
	if m.embedder == nil {
		return nil, fmt.Errorf("%w: no embedding provider configured", ai.ErrUnavailable)
	}

	vector, err := m.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if len(vector) != m.embedder.Dimensions() {
		return nil, fmt.Errorf("%w: embedding has %d dimensions, want %d",
			ai.ErrUnavailable, len(vector), m.embedder.Dimensions())
	}

	return vector, nil
}

func (m *Manager) logRefreshFailure(kind string, id uuid.UUID, err error) {
	if errors.Is(err, ai.ErrUnavailable) {
		m.logger.Debug("embedding refresh skipped",
			zap.String("entity", kind), zap.String("id", id.String()), zap.Error(err))
		return
	}
	m.logger.Warn("embedding refresh failed",
		zap.String("entity", kind), zap.String("id", id.String()), zap.Error(err))
}
