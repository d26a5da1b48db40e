package gorm

import (
	"time"

	"github.com/SamSjosten/FitChallenge-sub003/internal/constants"
	gormlib "gorm.io/gorm"
)

// Challenge is a time-boxed competition over one activity type.
// The challenge service owns these rows; sync only reads them.
type Challenge struct {
	ID            string                 `gorm:"column:id;primaryKey;type:uuid"`
	Title         string                 `gorm:"column:title;not null"`
	ChallengeType constants.ActivityType `gorm:"column:challenge_type;type:varchar(32);not null"`
	GoalValue     int64                  `gorm:"column:goal_value;not null"`
	StartDate     time.Time              `gorm:"column:start_date;not null"`
	EndDate       time.Time              `gorm:"column:end_date;not null"`
	IsActive      bool                   `gorm:"column:is_active;not null"`
	CreatedAt     time.Time              `gorm:"column:created_at;autoCreateTime"`

	// Relationships
	Participants []ChallengeParticipant `gorm:"foreignKey:ChallengeID"`
}

// TableName specifies the table name for GORM
func (Challenge) TableName() string {
	return "challenges"
}

func (c *Challenge) BeforeCreate(tx *gormlib.DB) error {
	newID(&c.ID)
	return nil
}

type ChallengeParticipant struct {
	ID              string    `gorm:"column:id;primaryKey;type:uuid"`
	ChallengeID     string    `gorm:"column:challenge_id;type:uuid;not null;uniqueIndex:idx_challenge_participants_pair,priority:1"`
	UserID          string    `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_challenge_participants_pair,priority:2"`
	CurrentProgress int64     `gorm:"column:current_progress;not null;default:0"`
	JoinedAt        time.Time `gorm:"column:joined_at;autoCreateTime"`
}

// TableName specifies the table name for GORM
func (ChallengeParticipant) TableName() string {
	return "challenge_participants"
}

func (p *ChallengeParticipant) BeforeCreate(tx *gormlib.DB) error {
	newID(&p.ID)
	return nil
}
