// Package lifecycle generates match candidates for a company and moves
// matches through approval and deletion.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"groundmatch/server/config"
	"groundmatch/server/internal/apperrors"
	"groundmatch/server/internal/database"
	"groundmatch/server/internal/matching"
	"groundmatch/server/internal/metrics"
	"groundmatch/server/internal/models"
	"groundmatch/server/internal/staging"
)

// ClientSource lists a company's clients that have preferences.
type ClientSource interface {
	ClientsWithPreferences(ctx context.Context, companyID uint) ([]models.Client, error)
}

// PlotSource lists the grounds a company may match against.
type PlotSource interface {
	VisiblePlots(ctx context.Context, companyID uint) ([]models.Ground, error)
}

// MatchStore persists matches. Implementations enforce one row per
// client/ground pair and check company ownership inside their transactions.
type MatchStore interface {
	MatchesForCompany(ctx context.Context, companyID uint) ([]models.Match, error)
	SavePending(ctx context.Context, companyID uint, candidates []models.Candidate) (database.SaveResult, error)
	ApproveMatches(ctx context.Context, companyID uint, ids []uint) (int, error)
	ApproveStaged(ctx context.Context, companyID uint, candidates []models.Candidate) (int, error)
	DeleteMatch(ctx context.Context, companyID, id uint) error
}

type Options struct {
	Persistence string
	MinScore    float64
}

type Manager struct {
	clients  ClientSource
	plots    PlotSource
	matches  MatchStore
	sessions staging.Store
	opts     Options
	logger   *logrus.Logger
}

func NewManager(clients ClientSource, plots PlotSource, matches MatchStore, sessions staging.Store, opts Options, logger *logrus.Logger) *Manager {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	if opts.Persistence == "" {
		opts.Persistence = config.PersistenceStaged
	}
	return &Manager{
		clients:  clients,
		plots:    plots,
		matches:  matches,
		sessions: sessions,
		opts:     opts,
		logger:   logger,
	}
}

func (m *Manager) Persistence() string {
	return m.opts.Persistence
}

// Generate computes the company's candidate set. In staged mode the
// candidates replace the content of the given session, which is then
// saved; in immediate mode they are written as pending matches in one
// transaction, pending matches that are no longer candidates are dropped
// and the session is ignored.
func (m *Manager) Generate(ctx context.Context, companyID uint, session *staging.Session) ([]models.Candidate, error) {
	start := time.Now()
	mode := m.opts.Persistence

	switch mode {
	case config.PersistenceStaged:
		if session == nil {
			return nil, apperrors.ErrSessionRequired
		}
		if session.CompanyID != companyID {
			m.denied("generate", companyID, logrus.Fields{"session_id": session.ID})
			return nil, apperrors.ErrAccessDenied
		}
		if session.Submitted {
			return nil, apperrors.ErrSessionClosed
		}
	case config.PersistenceImmediate:
	default:
		return nil, fmt.Errorf("%w: %q", apperrors.ErrInvalidPersistence, mode)
	}

	candidates, err := m.Candidates(ctx, companyID)
	if err != nil {
		return nil, err
	}

	fields := logrus.Fields{
		"company_id": companyID,
		"mode":       mode,
		"candidates": len(candidates),
	}

	if mode == config.PersistenceStaged {
		if err := session.Replace(candidates); err != nil {
			return nil, err
		}
		if err := m.sessions.Save(ctx, session); err != nil {
			return nil, err
		}
		fields["session_id"] = session.ID
	} else {
		result, err := m.matches.SavePending(ctx, companyID, candidates)
		if err != nil {
			return nil, fmt.Errorf("failed to persist candidates for company %d: %w", companyID, err)
		}
		metrics.DuplicateConflicts.Add(float64(result.Conflicts))
		if err := m.attachMatchIDs(ctx, companyID, candidates); err != nil {
			return nil, err
		}
		fields["inserted"] = result.Inserted
		fields["refreshed"] = result.Refreshed
		fields["frozen"] = result.Frozen
		fields["conflicts"] = result.Conflicts
		fields["removed"] = result.Removed
	}

	metrics.CandidatesGenerated.WithLabelValues(mode).Add(float64(len(candidates)))
	metrics.GenerationDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	m.logger.WithFields(fields).Info("Generated match candidates")

	return candidates, nil
}

// Candidates scores every client with preferences against every visible
// plot without writing anything. Pairs with an approved match are
// skipped, as are pairs below the minimum aggregate score. The result is
// ordered by client, then aggregate descending, then ground.
func (m *Manager) Candidates(ctx context.Context, companyID uint) ([]models.Candidate, error) {
	clients, err := m.clients.ClientsWithPreferences(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if len(clients) == 0 {
		return []models.Candidate{}, nil
	}

	plots, err := m.plots.VisiblePlots(ctx, companyID)
	if err != nil {
		return nil, err
	}
	plots = m.validPlots(plots)
	if len(plots) == 0 {
		return []models.Candidate{}, nil
	}

	existing, err := m.matches.MatchesForCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	frozen := make(map[models.Pair]bool)
	pending := make(map[models.Pair]uint)
	for _, match := range existing {
		if match.IsApproved() {
			frozen[match.Pair()] = true
		} else {
			pending[match.Pair()] = match.ID
		}
	}

	candidates := make([]models.Candidate, 0, len(clients)*len(plots))
	for _, client := range clients {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if client.Preferences == nil {
			continue
		}
		if err := matching.ValidatePreferences(*client.Preferences); err != nil {
			m.logger.WithFields(logrus.Fields{
				"company_id": companyID,
				"client_id":  client.ID,
			}).WithError(err).Warn("Skipping client with invalid preferences")
			continue
		}

		for _, plot := range plots {
			pair := models.Pair{ClientID: client.ID, GroundID: plot.ID}
			if frozen[pair] {
				continue
			}
			scores := matching.Score(plot, *client.Preferences)
			if scores.Aggregate() < m.opts.MinScore {
				continue
			}
			candidates = append(candidates, models.Candidate{
				ClientID: client.ID,
				GroundID: plot.ID,
				Scores:   scores,
				MatchID:  pending[pair],
			})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.ClientID != b.ClientID {
			return a.ClientID < b.ClientID
		}
		if aggA, aggB := a.Scores.Aggregate(), b.Scores.Aggregate(); aggA != aggB {
			return aggA > aggB
		}
		return a.GroundID < b.GroundID
	})
	return candidates, nil
}

// Approve flips persisted matches to approved. A single foreign or
// unknown ID rejects the whole request.
func (m *Manager) Approve(ctx context.Context, companyID uint, ids []uint) (int, error) {
	n, err := m.matches.ApproveMatches(ctx, companyID, ids)
	if err != nil {
		if errors.Is(err, apperrors.ErrAccessDenied) {
			m.denied("approve", companyID, logrus.Fields{"match_ids": ids})
		}
		return 0, err
	}

	metrics.MatchesApproved.WithLabelValues("persisted").Add(float64(n))
	m.logger.WithFields(logrus.Fields{
		"company_id": companyID,
		"requested":  len(ids),
		"approved":   n,
	}).Info("Approved matches")
	return n, nil
}

// ApproveStaged persists the selected candidates of a review session as
// approved matches and discards the session. No pairs approves every
// candidate in the session.
func (m *Manager) ApproveStaged(ctx context.Context, companyID uint, session *staging.Session, pairs []models.Pair) (int, error) {
	if session == nil {
		return 0, apperrors.ErrSessionNotFound
	}
	if session.CompanyID != companyID {
		m.denied("approve_staged", companyID, logrus.Fields{"session_id": session.ID})
		return 0, apperrors.ErrAccessDenied
	}

	selected, err := session.Select(pairs)
	if err != nil {
		return 0, err
	}

	n, err := m.matches.ApproveStaged(ctx, companyID, selected)
	if err != nil {
		if errors.Is(err, apperrors.ErrAccessDenied) {
			m.denied("approve_staged", companyID, logrus.Fields{"session_id": session.ID})
		}
		return 0, err
	}

	session.MarkSubmitted()
	if err := m.sessions.Delete(ctx, session.ID); err != nil {
		m.logger.WithField("session_id", session.ID).WithError(err).Warn("Failed to discard review session")
	}

	metrics.MatchesApproved.WithLabelValues("staged").Add(float64(n))
	m.logger.WithFields(logrus.Fields{
		"company_id": companyID,
		"session_id": session.ID,
		"selected":   len(selected),
		"approved":   n,
	}).Info("Approved staged matches")
	return n, nil
}

// Delete removes one of the company's matches, approved or not.
func (m *Manager) Delete(ctx context.Context, companyID, matchID uint) error {
	if err := m.matches.DeleteMatch(ctx, companyID, matchID); err != nil {
		if errors.Is(err, apperrors.ErrAccessDenied) {
			m.denied("delete", companyID, logrus.Fields{"match_id": matchID})
		}
		return err
	}

	metrics.MatchesDeleted.Inc()
	m.logger.WithFields(logrus.Fields{
		"company_id": companyID,
		"match_id":   matchID,
	}).Info("Deleted match")
	return nil
}

func (m *Manager) attachMatchIDs(ctx context.Context, companyID uint, candidates []models.Candidate) error {
	if len(candidates) == 0 {
		return nil
	}
	existing, err := m.matches.MatchesForCompany(ctx, companyID)
	if err != nil {
		return err
	}
	ids := make(map[models.Pair]uint, len(existing))
	for _, match := range existing {
		ids[match.Pair()] = match.ID
	}
	for i := range candidates {
		candidates[i].MatchID = ids[candidates[i].Pair()]
	}
	return nil
}

func (m *Manager) validPlots(plots []models.Ground) []models.Ground {
	valid := plots[:0:0]
	for _, plot := range plots {
		if err := matching.ValidatePlot(plot); err != nil {
			m.logger.WithField("ground_id", plot.ID).WithError(err).Warn("Skipping invalid ground")
			continue
		}
		valid = append(valid, plot)
	}
	return valid
}

func (m *Manager) denied(operation string, companyID uint, fields logrus.Fields) {
	metrics.AccessDenied.WithLabelValues(operation).Inc()
	m.logger.WithFields(fields).WithFields(logrus.Fields{
		"company_id": companyID,
		"operation":  operation,
	}).Warn("Access denied")
}
