package gorm

import "github.com/google/uuid"

// newID fills an empty primary key with a random uuid
func newID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

// AllModels lists every table the health sync service owns, in dependency order
func AllModels() []interface{} {
	return []interface{}{
		&Challenge{},
		&ChallengeParticipant{},
		&HealthConnection{},
		&HealthSyncLog{},
		&ActivityRecord{},
	}
}
