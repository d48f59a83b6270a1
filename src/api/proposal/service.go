package proposal

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/playforge/catalog/src/api/catalog"
	"github.com/playforge/catalog/src/api/data"
	"github.com/playforge/catalog/src/api/types"
)

// GameStore is the slice of the catalog the coordinator mutates.
type GameStore interface {
	Get(id string) (*types.Game, error)
	CreateFromSnapshot(snap types.JSONMap, createdBy string) (*types.Game, error)
	ApplySnapshot(game *types.Game, snap types.JSONMap) error
	HoldForProcessing(id, assetKey string) error
}

// Coordinator runs the review decisions. Approval is one transaction: the
// entry mutation, the outbox job row and the proposal status flip commit or
// roll back together.
type Coordinator struct {
	db    *gorm.DB
	rdb   *redis.Client
	games func(tx *gorm.DB) GameStore
}

func NewCoordinator(db *gorm.DB, rdb *redis.Client) *Coordinator {
	return &Coordinator{
		db:  db,
		rdb: rdb,
		games: func(tx *gorm.DB) GameStore {
			return catalog.NewStore(tx)
		},
	}
}

// Approve materializes a PENDING proposal into the live catalog and returns
// the entry id. Concurrent approvals race on the conditional status update;
// the loser's transaction rolls back, so at most one entry is ever created.
func (c *Coordinator) Approve(ctx context.Context, proposalID string, reviewer Actor, feedback string) (string, error) {
	var entryID, kind, editorID string

	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p types.GameProposal
		if err := tx.First(&p, "id = ?", proposalID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("load proposal: %w", err)
		}

		rec := Record{Status: p.Status, EditorID: p.EditorID}
		if _, err := Next(rec, EventApprove, reviewer, feedback); err != nil {
			return err
		}

		kind, editorID = p.Kind, p.EditorID
		games := c.games(tx)
		snap := p.ProposedData

		switch p.Kind {
		case types.ProposalCreate:
			game, err := games.CreateFromSnapshot(snap, p.EditorID)
			if err != nil {
				return err
			}
			entryID = game.ID
			p.GameID = &game.ID
		case types.ProposalUpdate:
			if p.GameID == nil {
				return ErrTargetMissing
			}
			game, err := games.Get(*p.GameID)
			if err != nil {
				if errors.Is(err, catalog.ErrNotFound) {
					return ErrTargetMissing
				}
				return err
			}
			if err := games.ApplySnapshot(game, snap); err != nil {
				return err
			}
			entryID = game.ID
		default:
			return fmt.Errorf("unknown proposal kind %q", p.Kind)
		}

		// A fresh asset means the entry hides while the worker reprocesses
		// it. The job row rides the same transaction; the relay delivers it
		// after commit.
		if assetKey := snap.Str("gameFileKey"); assetKey != "" {
			if err := games.HoldForProcessing(entryID, assetKey); err != nil {
				return err
			}
			job := &types.OutboxJob{
				IdempotencyKey: uuid.NewString(),
				Stream:         data.StreamJobs,
				Payload: types.JSONMap{
					"gameId":      entryID,
					"gameFileKey": assetKey,
					"editorId":    p.EditorID,
				},
			}
			if err := tx.Create(job).Error; err != nil {
				return fmt.Errorf("enqueue job: %w", err)
			}
		}

		res := tx.Model(&types.GameProposal{}).
			Where("id = ? AND status = ?", proposalID, types.ProposalPending).
			Updates(map[string]interface{}{
				"status":         types.ProposalApproved,
				"reviewed_by":    reviewer.ID,
				"admin_feedback": feedback,
				"game_id":        p.GameID,
			})
		if res.Error != nil {
			return fmt.Errorf("approve proposal: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			// Lost the race: some other reviewer got here first.
			return ErrInvalidState
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	data.PublishEvent(ctx, c.rdb, map[string]interface{}{
		"event":      "proposal.approved",
		"proposalId": proposalID,
		"gameId":     entryID,
		"kind":       kind,
		"editorId":   editorID,
		"reviewerId": reviewer.ID,
	})
	return entryID, nil
}

// Decline records the rejection and the mandatory feedback. A single
// conditional update; no cross-entity writes.
func (c *Coordinator) Decline(ctx context.Context, proposalID string, reviewer Actor, feedback string) error {
	var p types.GameProposal
	if err := c.db.WithContext(ctx).First(&p, "id = ?", proposalID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("load proposal: %w", err)
	}

	rec := Record{Status: p.Status, EditorID: p.EditorID}
	if _, err := Next(rec, EventDecline, reviewer, feedback); err != nil {
		return err
	}

	res := c.db.WithContext(ctx).Model(&types.GameProposal{}).
		Where("id = ? AND status = ?", proposalID, types.ProposalPending).
		Updates(map[string]interface{}{
			"status":         types.ProposalDeclined,
			"reviewed_by":    reviewer.ID,
			"admin_feedback": feedback,
		})
	if res.Error != nil {
		return fmt.Errorf("decline proposal: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrInvalidState
	}

	data.PublishEvent(ctx, c.rdb, map[string]interface{}{
		"event":      "proposal.declined",
		"proposalId": proposalID,
		"editorId":   p.EditorID,
		"reviewerId": reviewer.ID,
	})
	return nil
}
