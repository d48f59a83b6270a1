package proposal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/playforge/catalog/src/api/types"
)

// Chains manages decline→revise revision chains and feedback receipts.
type Chains struct {
	db *gorm.DB
}

func NewChains(db *gorm.DB) *Chains {
	return &Chains{db: db}
}

// Revise spawns the successor of a DECLINED proposal. The source flips to
// SUPERSEDED and the successor is created in the same transaction, so a
// chain never holds a declined proposal with a live successor, nor a
// successor with an un-superseded source. The conditional update on the
// source is the serialization point when two revises race: the loser sees
// zero affected rows.
func (r *Chains) Revise(ctx context.Context, proposalID string, editor Actor, newSnap types.JSONMap) (*types.GameProposal, error) {
	var successor *types.GameProposal

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p types.GameProposal
		if err := tx.First(&p, "id = ?", proposalID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("load proposal: %w", err)
		}

		rec := Record{Status: p.Status, EditorID: p.EditorID}
		if _, err := Next(rec, EventRevise, editor, ""); err != nil {
			return err
		}

		if err := r.checkNoSuccessor(tx, proposalID); err != nil {
			return err
		}

		res := tx.Model(&types.GameProposal{}).
			Where("id = ? AND status = ?", proposalID, types.ProposalDeclined).
			Update("status", types.ProposalSuperseded)
		if res.Error != nil {
			return fmt.Errorf("supersede proposal: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			// Raced with another revise; by now the source is superseded.
			if err := r.checkNoSuccessor(tx, proposalID); err != nil {
				return err
			}
			return ErrInvalidState
		}

		snap := newSnap
		if snap == nil {
			snap = types.JSONMap{}
			for k, v := range p.ProposedData {
				snap[k] = v
			}
		}

		successor = &types.GameProposal{
			ID:                 uuid.NewString(),
			Kind:               p.Kind,
			GameID:             p.GameID,
			EditorID:           p.EditorID,
			Status:             types.ProposalPending,
			PreviousProposalID: &p.ID,
			ProposedData:       snap,
		}
		if err := tx.Create(successor).Error; err != nil {
			return fmt.Errorf("create revision: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return successor, nil
}

func (r *Chains) checkNoSuccessor(tx *gorm.DB, proposalID string) error {
	var count int64
	if err := tx.Model(&types.GameProposal{}).
		Where("previous_proposal_id = ?", proposalID).Count(&count).Error; err != nil {
		return fmt.Errorf("check successor: %w", err)
	}
	if count > 0 {
		return ErrSuccessorExists
	}
	return nil
}

// AcknowledgeFeedback stamps the one-way receipt on a declined proposal.
func (r *Chains) AcknowledgeFeedback(ctx context.Context, proposalID string, editor Actor) error {
	var p types.GameProposal
	if err := r.db.WithContext(ctx).First(&p, "id = ?", proposalID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("load proposal: %w", err)
	}

	rec := Record{
		Status:        p.Status,
		EditorID:      p.EditorID,
		FeedbackAcked: p.FeedbackAckedAt != nil,
	}
	if _, err := Next(rec, EventAcknowledge, editor, ""); err != nil {
		return err
	}

	res := r.db.WithContext(ctx).Model(&types.GameProposal{}).
		Where("id = ? AND status = ? AND feedback_acked_at IS NULL",
			proposalID, types.ProposalDeclined).
		Update("feedback_acked_at", time.Now())
	if res.Error != nil {
		return fmt.Errorf("acknowledge feedback: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrAlreadyAcknowledged
	}
	return nil
}
