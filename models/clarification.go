package models

import (
	"time"

	"gorm.io/gorm"
)

// Clarification dialogue states.
const (
	ClarificationCreated      = "CREATED"
	ClarificationAwaitingUser = "AWAITING_USER_RESPONSE"
	ClarificationResolved     = "RESOLVED"
	ClarificationAbandoned    = "ABANDONED"
)

// ClarificationSession is the persisted state machine behind the multi-turn
// disambiguation flow. All state lives here so each turn is a plain
// request/response pair with nothing held in process between turns.
type ClarificationSession struct {
	ID               string `gorm:"type:varchar(36);primaryKey" json:"id"`
	CaptureSessionID string `gorm:"type:varchar(36);index" json:"capture_session_id"`
	UserID           uint   `gorm:"index" json:"-"`
	State            string `gorm:"type:varchar(32);not null" json:"state"`
	Question         string `json:"question"`
	OptionsJSON      string `gorm:"type:text" json:"-"` // quick-reply options, JSON array
	CandidatesJSON   string `gorm:"type:text" json:"-"` // DishCandidates snapshot from stage 1
	EstimateJSON     string `gorm:"type:text" json:"-"` // NutritionEstimate snapshot (fallback)
	LabelJSON        string `gorm:"type:text" json:"-"` // NutritionLabelExtraction snapshot
	MaxTurns         int    `json:"max_turns"`
	Turns            []ClarificationTurn `gorm:"foreignKey:SessionID" json:"turns"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"-"`
	DeletedAt        gorm.DeletedAt      `gorm:"index" json:"-"`
}

// One question/reply exchange within a clarification session.
type ClarificationTurn struct {
	gorm.Model `json:"-"`
	SessionID  string `gorm:"type:varchar(36);index" json:"-"`
	Position   int    `json:"position"`
	Question   string `json:"question"`
	UserReply  string `json:"user_reply"`
}
