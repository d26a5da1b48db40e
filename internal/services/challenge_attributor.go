package services

import (
	"sort"

	"github.com/SamSjosten/FitChallenge-sub003/internal/constants"
	"github.com/SamSjosten/FitChallenge-sub003/internal/models/entities"
	"github.com/SamSjosten/FitChallenge-sub003/internal/models/gorm"
)

// ChallengeAttributor assigns at most one challenge to each record.
// Snapshots are copied and frozen at construction.
type ChallengeAttributor struct {
	byType map[constants.ActivityType][]entities.ChallengeSnapshot
}

// NewChallengeAttributor orders candidates by end date, then start date, then id,
// so the first window match is always the winner.
func NewChallengeAttributor(snapshots []entities.ChallengeSnapshot) *ChallengeAttributor {
	byType := make(map[constants.ActivityType][]entities.ChallengeSnapshot)
	for _, s := range snapshots {
		byType[s.ChallengeType] = append(byType[s.ChallengeType], s)
	}

	for _, group := range byType {
		sort.SliceStable(group, func(i, j int) bool {
			a, b := group[i], group[j]
			if !a.EndDate.Equal(b.EndDate) {
				return a.EndDate.Before(b.EndDate)
			}
			if !a.StartDate.Equal(b.StartDate) {
				return a.StartDate.Before(b.StartDate)
			}
			return a.ChallengeID < b.ChallengeID
		})
	}

	return &ChallengeAttributor{byType: byType}
}

// Attribute returns the winning challenge id, or nil when no challenge matches
func (a *ChallengeAttributor) Attribute(record gorm.ActivityRecord) *string {
	for _, candidate := range a.byType[record.ActivityType] {
		if candidate.Contains(record.RecordedAt) {
			id := candidate.ChallengeID
			return &id
		}
	}
	return nil
}

// AttributeAll sets ChallengeID on every record in place and returns how many were attributed
func (a *ChallengeAttributor) AttributeAll(records []gorm.ActivityRecord) int {
	attributed := 0
	for i := range records {
		records[i].ChallengeID = a.Attribute(records[i])
		if records[i].ChallengeID != nil {
			attributed++
		}
	}
	return attributed
}
