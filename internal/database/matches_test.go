package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"groundmatch/server/internal/apperrors"
	"groundmatch/server/internal/models"
)

type matchFixture struct {
	company *models.Company
	other   *models.Company
	client  *models.Client
	foreign *models.Client
	grounds []*models.Ground
}

func setupMatchFixture(t *testing.T, d *Database) matchFixture {
	t.Helper()
	f := matchFixture{
		company: seedCompany(t, d, "noord"),
		other:   seedCompany(t, d, "zuid"),
	}
	f.client = seedClient(t, d, f.company.ID, "An", &models.Preferences{})
	f.foreign = seedClient(t, d, f.other.ID, "Chris", &models.Preferences{})
	f.grounds = []*models.Ground{
		seedGround(t, d, "Gent", ""),
		seedGround(t, d, "Brugge", ""),
	}
	return f
}

func candidate(clientID, groundID uint, score float64) models.Candidate {
	return models.Candidate{
		ClientID: clientID,
		GroundID: groundID,
		Scores:   models.Scores{Area: score, Budget: score, Location: score, Type: score},
	}
}

func countMatches(t *testing.T, d *Database) int64 {
	t.Helper()
	var count int64
	require.NoError(t, d.GetDB().Model(&models.Match{}).Count(&count).Error)
	return count
}

func TestMatchPairIsUnique(t *testing.T) {
	d := setupTestDatabase(t)
	f := setupMatchFixture(t, d)

	first := models.Match{ClientID: f.client.ID, GroundID: f.grounds[0].ID, Status: models.MatchStatusPending}
	require.NoError(t, d.GetDB().Create(&first).Error)

	dup := models.Match{ClientID: f.client.ID, GroundID: f.grounds[0].ID, Status: models.MatchStatusPending}
	err := d.GetDB().Create(&dup).Error
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
	assert.False(t, IsUniqueViolation(apperrors.ErrMatchNotFound))
	assert.False(t, IsUniqueViolation(nil))
}

func TestSavePending_Idempotent(t *testing.T) {
	d := setupTestDatabase(t)
	f := setupMatchFixture(t, d)
	ctx := context.Background()

	batch := []models.Candidate{
		candidate(f.client.ID, f.grounds[0].ID, 80),
		candidate(f.client.ID, f.grounds[1].ID, 60),
	}

	first, err := d.SavePending(ctx, f.company.ID, batch)
	require.NoError(t, err)
	assert.Equal(t, SaveResult{Inserted: 2}, first)

	second, err := d.SavePending(ctx, f.company.ID, batch)
	require.NoError(t, err)
	assert.Equal(t, SaveResult{Refreshed: 2}, second)
	assert.Equal(t, int64(2), countMatches(t, d))

	matches, err := d.MatchesForCompany(ctx, f.company.ID)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	for _, m := range matches {
		assert.Equal(t, models.MatchStatusPending, m.Status)
	}
}

func TestSavePending_RefreshesPendingScores(t *testing.T) {
	d := setupTestDatabase(t)
	f := setupMatchFixture(t, d)
	ctx := context.Background()

	_, err := d.SavePending(ctx, f.company.ID, []models.Candidate{candidate(f.client.ID, f.grounds[0].ID, 50)})
	require.NoError(t, err)
	_, err = d.SavePending(ctx, f.company.ID, []models.Candidate{candidate(f.client.ID, f.grounds[0].ID, 90)})
	require.NoError(t, err)

	matches, err := d.MatchesForCompany(ctx, f.company.ID)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, 90.0, matches[0].Scores.Aggregate())
}

func TestSavePending_LeavesApprovedUntouched(t *testing.T) {
	d := setupTestDatabase(t)
	f := setupMatchFixture(t, d)
	ctx := context.Background()

	_, err := d.SavePending(ctx, f.company.ID, []models.Candidate{candidate(f.client.ID, f.grounds[0].ID, 50)})
	require.NoError(t, err)
	matches, err := d.MatchesForCompany(ctx, f.company.ID)
	require.NoError(t, err)
	_, err = d.ApproveMatches(ctx, f.company.ID, []uint{matches[0].ID})
	require.NoError(t, err)

	result, err := d.SavePending(ctx, f.company.ID, []models.Candidate{candidate(f.client.ID, f.grounds[0].ID, 95)})
	require.NoError(t, err)
	assert.Equal(t, SaveResult{Frozen: 1}, result)

	matches, err = d.MatchesForCompany(ctx, f.company.ID)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, models.MatchStatusApproved, matches[0].Status)
	assert.Equal(t, 50.0, matches[0].Scores.Aggregate())
}

func TestSavePending_RemovesStalePending(t *testing.T) {
	d := setupTestDatabase(t)
	f := setupMatchFixture(t, d)
	ctx := context.Background()

	_, err := d.SavePending(ctx, f.company.ID, []models.Candidate{
		candidate(f.client.ID, f.grounds[0].ID, 80),
		candidate(f.client.ID, f.grounds[1].ID, 60),
	})
	require.NoError(t, err)
	_, err = d.SavePending(ctx, f.other.ID, []models.Candidate{candidate(f.foreign.ID, f.grounds[0].ID, 70)})
	require.NoError(t, err)

	matches, err := d.MatchesForCompany(ctx, f.company.ID)
	require.NoError(t, err)
	_, err = d.ApproveMatches(ctx, f.company.ID, []uint{matches[0].ID})
	require.NoError(t, err)

	result, err := d.SavePending(ctx, f.company.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, SaveResult{Removed: 1}, result)

	own, err := d.MatchesForCompany(ctx, f.company.ID)
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, models.MatchStatusApproved, own[0].Status)

	foreign, err := d.MatchesForCompany(ctx, f.other.ID)
	require.NoError(t, err)
	assert.Len(t, foreign, 1)
}

func TestApproveMatches(t *testing.T) {
	d := setupTestDatabase(t)
	f := setupMatchFixture(t, d)
	ctx := context.Background()

	_, err := d.SavePending(ctx, f.company.ID, []models.Candidate{
		candidate(f.client.ID, f.grounds[0].ID, 50),
		candidate(f.client.ID, f.grounds[1].ID, 60),
		candidate(f.foreign.ID, f.grounds[0].ID, 70),
	})
	require.NoError(t, err)

	own, err := d.MatchesForCompany(ctx, f.company.ID)
	require.NoError(t, err)
	require.Len(t, own, 2)
	foreign, err := d.MatchesForCompany(ctx, f.other.ID)
	require.NoError(t, err)
	require.Len(t, foreign, 1)

	t.Run("foreign id rejects the whole batch", func(t *testing.T) {
		_, err := d.ApproveMatches(ctx, f.company.ID, []uint{own[0].ID, foreign[0].ID})
		assert.ErrorIs(t, err, apperrors.ErrAccessDenied)

		pending, err := d.ListMatches(ctx, f.company.ID, models.MatchStatusApproved)
		require.NoError(t, err)
		assert.Empty(t, pending)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := d.ApproveMatches(ctx, f.company.ID, []uint{own[0].ID, 9999})
		assert.ErrorIs(t, err, apperrors.ErrMatchNotFound)
	})

	t.Run("approves owned matches", func(t *testing.T) {
		n, err := d.ApproveMatches(ctx, f.company.ID, []uint{own[0].ID, own[1].ID, own[0].ID})
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		n, err = d.ApproveMatches(ctx, f.company.ID, []uint{own[0].ID})
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})
}

func TestApproveStaged(t *testing.T) {
	d := setupTestDatabase(t)
	f := setupMatchFixture(t, d)
	ctx := context.Background()

	_, err := d.SavePending(ctx, f.company.ID, []models.Candidate{candidate(f.client.ID, f.grounds[0].ID, 40)})
	require.NoError(t, err)

	n, err := d.ApproveStaged(ctx, f.company.ID, []models.Candidate{
		candidate(f.client.ID, f.grounds[0].ID, 80),
		candidate(f.client.ID, f.grounds[1].ID, 90),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, int64(2), countMatches(t, d))

	approved, err := d.ListMatches(ctx, f.company.ID, models.MatchStatusApproved)
	require.NoError(t, err)
	require.Len(t, approved, 2)
	assert.Equal(t, 80.0, approved[0].Scores.Aggregate())
	require.NotNil(t, approved[0].Ground)
	assert.Equal(t, "Gent", approved[0].Ground.Location)

	n, err = d.ApproveStaged(ctx, f.company.ID, []models.Candidate{candidate(f.client.ID, f.grounds[0].ID, 10)})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestApproveStaged_ForeignClient(t *testing.T) {
	d := setupTestDatabase(t)
	f := setupMatchFixture(t, d)

	_, err := d.ApproveStaged(context.Background(), f.company.ID, []models.Candidate{
		candidate(f.client.ID, f.grounds[0].ID, 80),
		candidate(f.foreign.ID, f.grounds[1].ID, 80),
	})
	assert.ErrorIs(t, err, apperrors.ErrAccessDenied)
	assert.Equal(t, int64(0), countMatches(t, d))
}

func TestDeleteMatch(t *testing.T) {
	d := setupTestDatabase(t)
	f := setupMatchFixture(t, d)
	ctx := context.Background()

	_, err := d.SavePending(ctx, f.company.ID, []models.Candidate{candidate(f.client.ID, f.grounds[0].ID, 40)})
	require.NoError(t, err)
	matches, err := d.MatchesForCompany(ctx, f.company.ID)
	require.NoError(t, err)
	id := matches[0].ID

	assert.ErrorIs(t, d.DeleteMatch(ctx, f.other.ID, id), apperrors.ErrAccessDenied)
	assert.Equal(t, int64(1), countMatches(t, d))

	require.NoError(t, d.DeleteMatch(ctx, f.company.ID, id))
	assert.Equal(t, int64(0), countMatches(t, d))

	assert.ErrorIs(t, d.DeleteMatch(ctx, f.company.ID, id), apperrors.ErrMatchNotFound)
}

func TestMatchesCascadeOnDelete(t *testing.T) {
	d := setupTestDatabase(t)
	f := setupMatchFixture(t, d)
	ctx := context.Background()

	_, err := d.SavePending(ctx, f.company.ID, []models.Candidate{
		candidate(f.client.ID, f.grounds[0].ID, 40),
		candidate(f.client.ID, f.grounds[1].ID, 40),
		candidate(f.foreign.ID, f.grounds[1].ID, 40),
	})
	require.NoError(t, err)

	require.NoError(t, d.DeleteGround(ctx, f.grounds[0].ID))
	assert.Equal(t, int64(2), countMatches(t, d))

	require.NoError(t, d.DeleteClient(ctx, f.client.ID))
	assert.Equal(t, int64(1), countMatches(t, d))
}
