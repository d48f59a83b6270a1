package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Proposal statuses
const (
	ProposalPending    = "pending"
	ProposalApproved   = "approved"
	ProposalDeclined   = "declined"
	ProposalSuperseded = "superseded"
)

// Proposal kinds
const (
	ProposalCreate = "create"
	ProposalUpdate = "update"
)

// Game publication statuses
const (
	GameActive   = "active"
	GameDisabled = "disabled"
)

// Game processing statuses
const (
	ProcessingNone       = "none"
	ProcessingPending    = "pending"
	ProcessingInProgress = "processing"
	ProcessingFailed     = "failed"
	ProcessingReady      = "ready"
)

// User roles
const (
	RoleEditor = "editor"
	RoleAdmin  = "admin"
)

// JSONMap is a string-keyed JSON column. Proposal snapshots are opaque to
// the lifecycle code; only the catalog layer picks fields out of them.
type JSONMap map[string]interface{}

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func (m *JSONMap) Scan(src interface{}) error {
	if src == nil {
		*m = JSONMap{}
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("jsonmap: unsupported source %T", src)
	}
	if len(raw) == 0 {
		*m = JSONMap{}
		return nil
	}
	return json.Unmarshal(raw, m)
}

// Str returns the snapshot field as a string, "" when absent.
func (m JSONMap) Str(key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// Users (editors and admins)
type User struct {
	ID           string `gorm:"primaryKey;size:36"`
	Email        string `gorm:"size:256;uniqueIndex;not null"`
	PasswordHash string `gorm:"size:128;not null"`
	Role         string `gorm:"size:16;not null;default:editor"`
	CreatedAt    time.Time
}

// Catalog entries
type Game struct {
	ID               string  `gorm:"primaryKey;size:36"`
	Slug             string  `gorm:"size:255;uniqueIndex;not null"`
	Title            string  `gorm:"size:255;not null"`
	Description      string  `gorm:"type:text"`
	Metadata         JSONMap `gorm:"type:json"`
	Status           string  `gorm:"size:16;not null;default:active"`
	ProcessingStatus string  `gorm:"size:16;not null;default:none"`
	AssetKey         string  `gorm:"size:512"`
	CreatedByID      string  `gorm:"size:36;index"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Content change proposals against the catalog
type GameProposal struct {
	ID                 string  `gorm:"primaryKey;size:36"`
	Kind               string  `gorm:"size:8;not null"`
	GameID             *string `gorm:"size:36;index"`
	EditorID           string  `gorm:"size:36;index;not null"`
	Status             string  `gorm:"size:16;index;not null;default:pending"`
	PreviousProposalID *string `gorm:"size:36;index"`
	ProposedData       JSONMap `gorm:"type:json;not null"`
	AdminFeedback      string  `gorm:"type:text"`
	ReviewedBy         *string `gorm:"size:36"`
	FeedbackAckedAt    *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Pending job deliveries, written in the same transaction as the state
// change they belong to and deleted by the relay after the stream ack.
type OutboxJob struct {
	ID             uint64  `gorm:"primaryKey"`
	IdempotencyKey string  `gorm:"size:36;uniqueIndex;not null"`
	Stream         string  `gorm:"size:64;not null"`
	Payload        JSONMap `gorm:"type:json;not null"`
	Attempts       int     `gorm:"default:0"`
	CreatedAt      time.Time
}
