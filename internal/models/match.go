package models

import "time"

type MatchStatus string

const (
	MatchStatusPending  MatchStatus = "pending"
	MatchStatusApproved MatchStatus = "approved"
)

// Scores are the four dimension scores on a 0-100 scale.
type Scores struct {
	Area     float64 `gorm:"column:m2_score;not null;default:0" json:"area_score"`
	Budget   float64 `gorm:"column:budget_score;not null;default:0" json:"budget_score"`
	Location float64 `gorm:"column:location_score;not null;default:0" json:"location_score"`
	Type     float64 `gorm:"column:type_score;not null;default:0" json:"type_score"`
}

// Aggregate is the mean of the four dimension scores.
func (s Scores) Aggregate() float64 {
	return (s.Area + s.Budget + s.Location + s.Type) / 4
}

// Pair identifies a client/ground combination.
type Pair struct {
	ClientID uint `json:"client_id"`
	GroundID uint `json:"ground_id"`
}

// Match is the persisted pairing of a client and a ground. At most one row
// exists per pair.
type Match struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	ClientID  uint        `gorm:"not null;uniqueIndex:idx_match_pair" json:"client_id"`
	Client    *Client     `gorm:"constraint:OnDelete:CASCADE" json:"client,omitempty"`
	GroundID  uint        `gorm:"not null;uniqueIndex:idx_match_pair" json:"ground_id"`
	Ground    *Ground     `gorm:"constraint:OnDelete:CASCADE" json:"ground,omitempty"`
	Scores    Scores      `gorm:"embedded" json:"scores"`
	Status    MatchStatus `gorm:"size:20;not null;default:pending;index" json:"status"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

func (m Match) Pair() Pair {
	return Pair{ClientID: m.ClientID, GroundID: m.GroundID}
}

func (m Match) IsApproved() bool {
	return m.Status == MatchStatusApproved
}

// Candidate is a computed match that has not necessarily been persisted.
// MatchID is set when a row for the pair exists.
type Candidate struct {
	ClientID uint   `json:"client_id"`
	GroundID uint   `json:"ground_id"`
	Scores   Scores `json:"scores"`
	MatchID  uint   `json:"match_id,omitempty"`
}

func (c Candidate) Pair() Pair {
	return Pair{ClientID: c.ClientID, GroundID: c.GroundID}
}
