package entities

import (
	"time"

	"github.com/SamSjosten/FitChallenge-sub003/internal/constants"
)

// ChallengeSnapshot is a read-only view of an active challenge the user takes part in.
// It is read once per sync cycle and not refreshed mid-cycle.
type ChallengeSnapshot struct {
	ChallengeID     string                 `db:"challenge_id" json:"challenge_id"`
	ChallengeType   constants.ActivityType `db:"challenge_type" json:"challenge_type"`
	StartDate       time.Time              `db:"start_date" json:"start_date"`
	EndDate         time.Time              `db:"end_date" json:"end_date"`
	GoalValue       int64                  `db:"goal_value" json:"goal_value"`
	CurrentProgress int64                  `db:"current_progress" json:"current_progress"`
}

// Contains reports whether t falls inside the challenge window, bounds included
func (c ChallengeSnapshot) Contains(t time.Time) bool {
	return !t.Before(c.StartDate) && !t.After(c.EndDate)
}
