// Package server exposes the match engine over HTTP: ranked recommendations,
// filtered browse, the aggregated external feed, and the change hooks that
// keep embeddings fresh.
package server

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/recruiter-solutions/match-engine/internal/aggregator"
	"github.com/recruiter-solutions/match-engine/internal/embedding"
	"github.com/recruiter-solutions/match-engine/internal/matching"
	"github.com/recruiter-solutions/match-engine/internal/model"
	"github.com/recruiter-solutions/match-engine/internal/store"
)

// CandidateResolver maps an authenticated user to their candidate profile,
// letting callers pass user_id instead of candidate_id.
type CandidateResolver interface {
	GetCandidateByUserID(ctx context.Context, userID uuid.UUID) (*model.CandidateProfile, error)
}

// Server holds the HTTP handlers and their collaborators.
type Server struct {
	coordinator *matching.Coordinator
	embeddings  *embedding.Manager
	aggregator  *aggregator.Aggregator
	candidates  CandidateResolver
	log         *zap.Logger
}

// New creates a Server. The embedding manager, aggregator, and candidate
// resolver may be nil when the corresponding collaborators are not
// configured; their routes then respond with empty or accepted-but-noop
// results.
func New(coordinator *matching.Coordinator, embeddings *embedding.Manager, agg *aggregator.Aggregator, candidates CandidateResolver, log *zap.Logger) *Server {
	return &Server{
		coordinator: coordinator,
		embeddings:  embeddings,
		aggregator:  agg,
		candidates:  candidates,
		log:         log,
	}
}

// App builds the fiber application with all routes registered.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		ErrorHandler: s.errorHandler,
	})

	app.Use(recover.New())
	app.Use(s.requestLogger)

	app.Get("/health", s.handleHealth)
	app.Get("/matching/recommended", s.handleRecommended)
	app.Get("/matching/browse", s.handleBrowse)
	app.Get("/external-jobs", s.handleExternalJobs)
	app.Post("/hooks/candidates/:id/changed", s.handleCandidateChanged)
	app.Post("/hooks/listings/:id/changed", s.handleListingChanged)

	return app
}

func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

func (s *Server) requestLogger(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	s.log.Debug("request",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Int("status", c.Response().StatusCode()),
		zap.Duration("duration", time.Since(start)),
	)
	return err
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) handleRecommended(c *fiber.Ctx) error {
	candidateID, err := s.resolveCandidateID(c)
	if err != nil {
		return err
	}

	results, err := s.coordinator.Recommend(c.Context(), candidateID, c.QueryInt("limit"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "candidate not found")
		}
		s.log.Error("recommend failed", zap.String("candidate_id", candidateID.String()), zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "recommendation failed")
	}

	return c.JSON(fiber.Map{"jobs": results, "count": len(results)})
}

// resolveCandidateID accepts either candidate_id or, when a resolver is
// wired, user_id.
func (s *Server) resolveCandidateID(c *fiber.Ctx) (uuid.UUID, error) {
	if raw := c.Query("candidate_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid candidate_id")
		}
		return id, nil
	}

	if raw := c.Query("user_id"); raw != "" && s.candidates != nil {
		userID, err := uuid.Parse(raw)
		if err != nil {
			return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid user_id")
		}
		cand, err := s.candidates.GetCandidateByUserID(c.Context(), userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return uuid.Nil, fiber.NewError(fiber.StatusNotFound, "candidate not found")
			}
			s.log.Error("candidate lookup by user failed", zap.String("user_id", userID.String()), zap.Error(err))
			return uuid.Nil, fiber.NewError(fiber.StatusInternalServerError, "candidate lookup failed")
		}
		return cand.ID, nil
	}

	return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid candidate_id")
}

func (s *Server) handleBrowse(c *fiber.Ctx) error {
	q := matching.BrowseQuery{
		Query:           c.Query("q"),
		Location:        c.Query("location"),
		RemoteOnly:      c.QueryBool("remote_only"),
		IncludeExternal: c.QueryBool("include_external", true),
		Limit:           c.QueryInt("limit"),
	}

	if raw := c.Query("candidate_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid candidate_id")
		}
		q.CandidateID = &id
	}

	results, err := s.coordinator.Browse(c.Context(), q)
	if err != nil {
		s.log.Error("browse failed", zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "browse failed")
	}

	return c.JSON(fiber.Map{"jobs": results, "count": len(results)})
}

func (s *Server) handleExternalJobs(c *fiber.Ctx) error {
	if s.aggregator == nil {
		return c.JSON(fiber.Map{"jobs": []any{}, "count": 0})
	}

	query := c.Query("q")
	if c.QueryBool("refresh") && query == "" {
		// An explicit refresh without a query still forces a fetch cycle.
		s.aggregator.Refresh(c.Context(), "", "")
	}

	listings, err := s.aggregator.Listings(c.Context(), c.QueryInt("limit"), query)
	if err != nil {
		s.log.Error("listing external jobs failed", zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "external jobs unavailable")
	}

	return c.JSON(fiber.Map{"jobs": listings, "count": len(listings)})
}

func (s *Server) handleCandidateChanged(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid candidate id")
	}

	if s.embeddings != nil {
		s.embeddings.SpawnCandidateRefresh(id)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "refresh scheduled"})
}

func (s *Server) handleListingChanged(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid listing id")
	}

	if s.embeddings != nil {
		s.embeddings.SpawnListingRefresh(id)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "refresh scheduled"})
}
