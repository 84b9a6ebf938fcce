// Package staging holds computed match candidates for a review session
// until the reviewer approves a subset of them.
package staging

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"groundmatch/server/internal/apperrors"
	"groundmatch/server/internal/models"
)

// Session is one review of generated candidates for a company. It is owned
// by the request flow that created it and discarded after approval.
type Session struct {
	ID         string             `json:"id"`
	CompanyID  uint               `json:"company_id"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
	Submitted  bool               `json:"submitted"`
	Candidates []models.Candidate `json:"candidates"`
}

func NewSession(companyID uint) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        uuid.NewString(),
		CompanyID: companyID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Replace swaps the session content for a fresh candidate set.
func (s *Session) Replace(candidates []models.Candidate) error {
	if s.Submitted {
		return apperrors.ErrSessionClosed
	}
	s.Candidates = append([]models.Candidate(nil), candidates...)
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// Select returns the staged candidates for the given pairs, in the order
// asked for. No pairs selects every candidate.
func (s *Session) Select(pairs []models.Pair) ([]models.Candidate, error) {
	if s.Submitted {
		return nil, apperrors.ErrSessionClosed
	}
	if len(pairs) == 0 {
		return append([]models.Candidate(nil), s.Candidates...), nil
	}

	index := make(map[models.Pair]models.Candidate, len(s.Candidates))
	for _, c := range s.Candidates {
		index[c.Pair()] = c
	}

	selected := make([]models.Candidate, 0, len(pairs))
	seen := make(map[models.Pair]bool, len(pairs))
	for _, p := range pairs {
		if seen[p] {
			continue
		}
		c, ok := index[p]
		if !ok {
			return nil, fmt.Errorf("client %d ground %d: %w", p.ClientID, p.GroundID, apperrors.ErrCandidateNotFound)
		}
		seen[p] = true
		selected = append(selected, c)
	}
	return selected, nil
}

func (s *Session) MarkSubmitted() {
	s.Submitted = true
	s.UpdatedAt = time.Now().UTC()
}
