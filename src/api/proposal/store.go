package proposal

import (
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/playforge/catalog/src/api/types"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// Store is the proposal query surface. Role checks on reads belong to the
// caller; the store only guards writes that carry lifecycle meaning.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Submit creates a PENDING proposal. UPDATE proposals must name an existing
// target entry; CREATE proposals get theirs at approval time.
func (s *Store) Submit(kind string, gameID *string, editorID string, snap types.JSONMap) (*types.GameProposal, error) {
	if kind != types.ProposalCreate && kind != types.ProposalUpdate {
		return nil, fmt.Errorf("unknown proposal kind %q", kind)
	}
	if snap == nil {
		snap = types.JSONMap{}
	}

	if kind == types.ProposalUpdate {
		if gameID == nil || *gameID == "" {
			return nil, ErrTargetMissing
		}
		var count int64
		if err := s.db.Model(&types.Game{}).Where("id = ?", *gameID).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("check target: %w", err)
		}
		if count == 0 {
			return nil, ErrTargetMissing
		}
	} else {
		gameID = nil
	}

	p := &types.GameProposal{
		ID:           uuid.NewString(),
		Kind:         kind,
		GameID:       gameID,
		EditorID:     editorID,
		Status:       types.ProposalPending,
		ProposedData: snap,
	}
	if err := s.db.Create(p).Error; err != nil {
		return nil, fmt.Errorf("create proposal: %w", err)
	}
	return p, nil
}

func (s *Store) Get(id string) (*types.GameProposal, error) {
	var p types.GameProposal
	if err := s.db.First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get proposal: %w", err)
	}
	return &p, nil
}

// ListMine returns an editor's proposals, newest first.
func (s *Store) ListMine(editorID, status string, offset, limit int) ([]types.GameProposal, error) {
	q := s.db.Where("editor_id = ?", editorID)
	return s.list(q, status, offset, limit)
}

// ListAll is the reviewer view across all editors.
func (s *Store) ListAll(status string, offset, limit int) ([]types.GameProposal, error) {
	return s.list(s.db, status, offset, limit)
}

func (s *Store) list(q *gorm.DB, status string, offset, limit int) ([]types.GameProposal, error) {
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}
	if offset < 0 {
		offset = 0
	}
	var out []types.GameProposal
	err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list proposals: %w", err)
	}
	return out, nil
}

// UpdateSnapshot merges a patch onto an owned PENDING proposal's snapshot.
// The WHERE status guard keeps the snapshot frozen once review has acted,
// even against a concurrent decline.
func (s *Store) UpdateSnapshot(id, editorID string, patch types.JSONMap) (*types.GameProposal, error) {
	p, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if p.EditorID != editorID {
		return nil, ErrNotOwner
	}
	if p.Status != types.ProposalPending {
		return nil, &InvalidTransitionError{Status: p.Status, Event: "edit"}
	}

	merged := types.JSONMap{}
	for k, v := range p.ProposedData {
		merged[k] = v
	}
	for k, v := range patch {
		merged[k] = v
	}

	res := s.db.Model(&types.GameProposal{}).
		Where("id = ? AND status = ?", id, types.ProposalPending).
		Update("proposed_data", merged)
	if res.Error != nil {
		return nil, fmt.Errorf("update snapshot: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, &InvalidTransitionError{Status: p.Status, Event: "edit"}
	}
	p.ProposedData = merged
	return p, nil
}

// Delete removes a proposal. Editors may drop their own PENDING or DECLINED
// proposals; admins may remove anything, which gets an audit line.
func (s *Store) Delete(id string, actor Actor) error {
	p, err := s.Get(id)
	if err != nil {
		return err
	}
	if _, err := Next(Record{Status: p.Status, EditorID: p.EditorID}, EventDelete, actor, ""); err != nil {
		return err
	}
	if actor.Admin && actor.ID != p.EditorID {
		log.Printf("audit: admin %s deleted proposal %s (status %s, editor %s)",
			actor.ID, p.ID, p.Status, p.EditorID)
	}
	if err := s.db.Delete(&types.GameProposal{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("delete proposal: %w", err)
	}
	return nil
}
