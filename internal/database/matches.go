package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"groundmatch/server/internal/apperrors"
	"groundmatch/server/internal/models"
)

var pairColumns = []clause.Column{{Name: "client_id"}, {Name: "ground_id"}}

// SaveResult counts what happened to each candidate of a batch, and how
// many stale pending rows were dropped.
type SaveResult struct {
	Inserted  int
	Refreshed int
	Frozen    int
	Conflicts int
	Removed   int
}

type ownedMatch struct {
	ID        uint
	CompanyID uint
}

type pendingPair struct {
	ID       uint
	ClientID uint
	GroundID uint
}

// MatchesForCompany returns every persisted match of the company's clients.
func (d *Database) MatchesForCompany(ctx context.Context, companyID uint) ([]models.Match, error) {
	var matches []models.Match
	err := d.db.WithContext(ctx).
		Select("matches.*").
		Joins("JOIN clients ON clients.id = matches.client_id").
		Where("clients.company_id = ?", companyID).
		Order("matches.id").
		Find(&matches).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load matches for company %d: %w", companyID, err)
	}
	return matches, nil
}

// ListMatches returns the company's matches with client and ground loaded,
// optionally filtered by status.
func (d *Database) ListMatches(ctx context.Context, companyID uint, status models.MatchStatus) ([]models.Match, error) {
	query := d.db.WithContext(ctx).
		Select("matches.*").
		Joins("JOIN clients ON clients.id = matches.client_id").
		Where("clients.company_id = ?", companyID).
		Preload("Client").
		Preload("Ground").
		Order("matches.client_id, matches.id")
	if status != "" {
		query = query.Where("matches.status = ?", status)
	}

	var matches []models.Match
	if err := query.Find(&matches).Error; err != nil {
		return nil, fmt.Errorf("failed to list matches for company %d: %w", companyID, err)
	}
	return matches, nil
}

// SavePending persists a generation batch for the company in one
// transaction. New pairs are inserted as pending, pending pairs get fresh
// scores and approved pairs are left untouched. Pending rows of the
// company whose pair is no longer a candidate are deleted. A pair inserted
// concurrently by another writer counts as a conflict, not an error.
func (d *Database) SavePending(ctx context.Context, companyID uint, candidates []models.Candidate) (SaveResult, error) {
	var result SaveResult
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result = SaveResult{}
		for _, c := range candidates {
			match := models.Match{
				ClientID: c.ClientID,
				GroundID: c.GroundID,
				Scores:   c.Scores,
				Status:   models.MatchStatusPending,
			}

			res := tx.Clauses(clause.OnConflict{Columns: pairColumns, DoNothing: true}).Create(&match)
			if res.Error != nil {
				if IsUniqueViolation(res.Error) {
					result.Conflicts++
					continue
				}
				return fmt.Errorf("failed to insert match for client %d ground %d: %w", c.ClientID, c.GroundID, res.Error)
			}
			if res.RowsAffected == 1 {
				result.Inserted++
				continue
			}

			res = tx.Model(&models.Match{}).
				Where("client_id = ? AND ground_id = ?", c.ClientID, c.GroundID).
				Where("status <> ?", models.MatchStatusApproved).
				Updates(scoreColumns(c.Scores))
			if res.Error != nil {
				return fmt.Errorf("failed to refresh match for client %d ground %d: %w", c.ClientID, c.GroundID, res.Error)
			}
			if res.RowsAffected > 0 {
				result.Refreshed++
			} else {
				result.Frozen++
			}
		}

		removed, err := removeStalePending(tx, companyID, candidates)
		if err != nil {
			return err
		}
		result.Removed = removed
		return nil
	})
	return result, err
}

// removeStalePending deletes the company's pending matches whose pair is
// missing from candidates.
func removeStalePending(tx *gorm.DB, companyID uint, candidates []models.Candidate) (int, error) {
	var pending []pendingPair
	err := tx.Model(&models.Match{}).
		Select("matches.id AS id, matches.client_id AS client_id, matches.ground_id AS ground_id").
		Joins("JOIN clients ON clients.id = matches.client_id").
		Where("clients.company_id = ?", companyID).
		Where("matches.status <> ?", models.MatchStatusApproved).
		Scan(&pending).Error
	if err != nil {
		return 0, fmt.Errorf("failed to load pending matches for company %d: %w", companyID, err)
	}

	current := make(map[models.Pair]bool, len(candidates))
	for _, c := range candidates {
		current[c.Pair()] = true
	}
	var stale []uint
	for _, p := range pending {
		if !current[models.Pair{ClientID: p.ClientID, GroundID: p.GroundID}] {
			stale = append(stale, p.ID)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}

	res := tx.Where("id IN ?", stale).
		Where("status <> ?", models.MatchStatusApproved).
		Delete(&models.Match{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to remove stale matches for company %d: %w", companyID, res.Error)
	}
	return int(res.RowsAffected), nil
}

// ApproveStaged persists staged candidates as approved on behalf of the
// company. Pending rows for the same pair are overwritten; already approved
// rows keep their scores. Any client outside the company rejects the whole
// batch.
func (d *Database) ApproveStaged(ctx context.Context, companyID uint, candidates []models.Candidate) (int, error) {
	if len(candidates) == 0 {
		return 0, nil
	}

	approved := 0
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		approved = 0
		if err := checkClientsOwned(tx, companyID, candidates); err != nil {
			return err
		}

		for _, c := range candidates {
			updates := scoreColumns(c.Scores)
			updates["status"] = models.MatchStatusApproved

			res := tx.Model(&models.Match{}).
				Where("client_id = ? AND ground_id = ?", c.ClientID, c.GroundID).
				Where("status <> ?", models.MatchStatusApproved).
				Updates(updates)
			if res.Error != nil {
				return fmt.Errorf("failed to approve match for client %d ground %d: %w", c.ClientID, c.GroundID, res.Error)
			}
			if res.RowsAffected > 0 {
				approved++
				continue
			}

			match := models.Match{
				ClientID: c.ClientID,
				GroundID: c.GroundID,
				Scores:   c.Scores,
				Status:   models.MatchStatusApproved,
			}
			res = tx.Clauses(clause.OnConflict{Columns: pairColumns, DoNothing: true}).Create(&match)
			if res.Error != nil && !IsUniqueViolation(res.Error) {
				return fmt.Errorf("failed to insert approved match for client %d ground %d: %w", c.ClientID, c.GroundID, res.Error)
			}
			if res.Error == nil && res.RowsAffected == 1 {
				approved++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return approved, nil
}

// ApproveMatches flips persisted matches to approved. Unknown IDs fail with
// ErrMatchNotFound and foreign ones with ErrAccessDenied; either way
// nothing is changed.
func (d *Database) ApproveMatches(ctx context.Context, companyID uint, ids []uint) (int, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return 0, nil
	}

	var approved int64
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkMatchesOwned(tx, companyID, ids); err != nil {
			return err
		}

		res := tx.Model(&models.Match{}).
			Where("id IN ?", ids).
			Where("status <> ?", models.MatchStatusApproved).
			Update("status", models.MatchStatusApproved)
		if res.Error != nil {
			return fmt.Errorf("failed to approve matches: %w", res.Error)
		}
		approved = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return int(approved), nil
}

// DeleteMatch removes one of the company's matches.
func (d *Database) DeleteMatch(ctx context.Context, companyID, id uint) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkMatchesOwned(tx, companyID, []uint{id}); err != nil {
			return err
		}
		if err := tx.Delete(&models.Match{}, id).Error; err != nil {
			return fmt.Errorf("failed to delete match %d: %w", id, err)
		}
		return nil
	})
}

func checkMatchesOwned(tx *gorm.DB, companyID uint, ids []uint) error {
	var owned []ownedMatch
	err := tx.Model(&models.Match{}).
		Select("matches.id AS id, clients.company_id AS company_id").
		Joins("JOIN clients ON clients.id = matches.client_id").
		Where("matches.id IN ?", ids).
		Scan(&owned).Error
	if err != nil {
		return fmt.Errorf("failed to check match ownership: %w", err)
	}

	if len(owned) != len(ids) {
		return apperrors.ErrMatchNotFound
	}
	for _, m := range owned {
		if m.CompanyID != companyID {
			return fmt.Errorf("match %d: %w", m.ID, apperrors.ErrAccessDenied)
		}
	}
	return nil
}

func checkClientsOwned(tx *gorm.DB, companyID uint, candidates []models.Candidate) error {
	clientIDs := make([]uint, 0, len(candidates))
	for _, c := range candidates {
		clientIDs = append(clientIDs, c.ClientID)
	}
	clientIDs = uniqueIDs(clientIDs)

	var count int64
	err := tx.Model(&models.Client{}).
		Where("id IN ? AND company_id = ?", clientIDs, companyID).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("failed to check client ownership: %w", err)
	}
	if int(count) != len(clientIDs) {
		return apperrors.ErrAccessDenied
	}
	return nil
}

func scoreColumns(s models.Scores) map[string]interface{} {
	return map[string]interface{}{
		"m2_score":       s.Area,
		"budget_score":   s.Budget,
		"location_score": s.Location,
		"type_score":     s.Type,
	}
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
