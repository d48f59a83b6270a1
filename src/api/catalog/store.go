package catalog

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/playforge/catalog/src/api/types"
)

// ErrNotFound reports an unknown game id.
var ErrNotFound = errors.New("game not found")

// Store persists catalog entries. The proposal coordinator drives it inside
// its own transaction via WithTx; it owns no lifecycle beyond field writes.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// WithTx returns a store bound to an open transaction.
func (s *Store) WithTx(tx *gorm.DB) *Store {
	return &Store{db: tx}
}

func (s *Store) Get(id string) (*types.Game, error) {
	var game types.Game
	if err := s.db.First(&game, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get game: %w", err)
	}
	return &game, nil
}

// CreateFromSnapshot builds a new entry from a proposal snapshot. The slug
// is derived from the title and de-collided before insert.
func (s *Store) CreateFromSnapshot(snap types.JSONMap, createdBy string) (*types.Game, error) {
	slug, err := UniqueSlug(s.db, snap.Str("title"))
	if err != nil {
		return nil, fmt.Errorf("slug: %w", err)
	}

	game := &types.Game{
		ID:               uuid.NewString(),
		Slug:             slug,
		Status:           types.GameActive,
		ProcessingStatus: types.ProcessingNone,
		CreatedByID:      createdBy,
		Metadata:         types.JSONMap{},
	}
	mergeSnapshot(game, snap)
	if err := s.db.Create(game).Error; err != nil {
		return nil, fmt.Errorf("create game: %w", err)
	}
	return game, nil
}

// ApplySnapshot merges a proposal snapshot onto an existing entry and saves.
func (s *Store) ApplySnapshot(game *types.Game, snap types.JSONMap) error {
	mergeSnapshot(game, snap)
	game.UpdatedAt = time.Now()
	if err := s.db.Save(game).Error; err != nil {
		return fmt.Errorf("update game: %w", err)
	}
	return nil
}

// HoldForProcessing hides the entry and flags its asset for the worker.
func (s *Store) HoldForProcessing(id, assetKey string) error {
	res := s.db.Model(&types.Game{}).Where("id = ?", id).Updates(map[string]interface{}{
		"processing_status": types.ProcessingPending,
		"status":            types.GameDisabled,
		"asset_key":         assetKey,
	})
	if res.Error != nil {
		return fmt.Errorf("hold for processing: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkProcessing is the worker claiming a job. The status guard keeps a
// redelivered job from re-processing a finished entry.
func (s *Store) MarkProcessing(id string) (bool, error) {
	res := s.db.Model(&types.Game{}).
		Where("id = ? AND processing_status = ?", id, types.ProcessingPending).
		Update("processing_status", types.ProcessingInProgress)
	if res.Error != nil {
		return false, fmt.Errorf("mark processing: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// MarkReady publishes a processed entry.
func (s *Store) MarkReady(id, permanentKey string) error {
	return s.db.Model(&types.Game{}).Where("id = ?", id).Updates(map[string]interface{}{
		"processing_status": types.ProcessingReady,
		"status":            types.GameActive,
		"asset_key":         permanentKey,
	}).Error
}

func (s *Store) MarkFailed(id string) error {
	return s.db.Model(&types.Game{}).Where("id = ?", id).
		Update("processing_status", types.ProcessingFailed).Error
}

// mergeSnapshot copies the snapshot onto entry columns. Known fields map to
// columns; everything else lands in Metadata so catalog schema growth never
// touches the proposal pipeline.
func mergeSnapshot(game *types.Game, snap types.JSONMap) {
	if game.Metadata == nil {
		game.Metadata = types.JSONMap{}
	}
	for key, val := range snap {
		switch key {
		case "title":
			if t, ok := val.(string); ok && t != "" {
				game.Title = t
			}
		case "description":
			if d, ok := val.(string); ok {
				game.Description = d
			}
		case "status":
			if st, ok := val.(string); ok && (st == types.GameActive || st == types.GameDisabled) {
				game.Status = st
			}
		case "gameFileKey":
			// consumed by the approval path, not a column merge
		default:
			game.Metadata[key] = val
		}
	}
}
