package repositories

import (
	"context"
	"fmt"

	"github.com/SamSjosten/FitChallenge-sub003/internal/models/entities"

	"github.com/jmoiron/sqlx"
)

type ChallengeRepository struct {
	db *sqlx.DB
}

func NewChallengeRepository(db *sqlx.DB) *ChallengeRepository {
	return &ChallengeRepository{
		db: db,
	}
}

// GetActiveSnapshots reads the active challenges the user participates in
func (repo *ChallengeRepository) GetActiveSnapshots(ctx context.Context, userID string) ([]entities.ChallengeSnapshot, error) {
	query := repo.db.Rebind(`
		SELECT c.id AS challenge_id,
		       c.challenge_type,
		       c.start_date,
		       c.end_date,
		       c.goal_value,
		       cp.current_progress
		FROM challenges c
		JOIN challenge_participants cp ON cp.challenge_id = c.id
		WHERE cp.user_id = ?
		  AND c.is_active = ?
		ORDER BY c.end_date, c.start_date, c.id
	`)

	snapshots := []entities.ChallengeSnapshot{}
	if err := repo.db.SelectContext(ctx, &snapshots, query, userID, true); err != nil {
		return nil, fmt.Errorf("get active challenge snapshots: %w", err)
	}
	return snapshots, nil
}
