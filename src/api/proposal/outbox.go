package proposal

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/playforge/catalog/src/api/data"
	"github.com/playforge/catalog/src/api/types"
)

const relayBatchSize = 50

// Relay drains outbox_jobs onto their redis streams. A row is deleted only
// after the stream write is acknowledged, so delivery is at-least-once and
// consumers dedupe on the idempotency key.
type Relay struct {
	db       *gorm.DB
	rdb      *redis.Client
	interval time.Duration
	timeout  time.Duration
}

func NewRelay(db *gorm.DB, rdb *redis.Client, interval, timeout time.Duration) *Relay {
	return &Relay{db: db, rdb: rdb, interval: interval, timeout: timeout}
}

func (r *Relay) Start(ctx context.Context) {
	log.Println("Starting outbox relay")
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Stopping outbox relay")
			return
		case <-ticker.C:
			if err := r.Sweep(ctx); err != nil {
				log.Printf("outbox sweep: %v", err)
			}
		}
	}
}

// Sweep delivers one batch of pending rows, oldest first.
func (r *Relay) Sweep(ctx context.Context) error {
	var jobs []types.OutboxJob
	err := r.db.WithContext(ctx).Order("id ASC").Limit(relayBatchSize).Find(&jobs).Error
	if err != nil {
		return err
	}

	for _, job := range jobs {
		if err := r.deliver(ctx, job); err != nil {
			log.Printf("outbox deliver %s: %v", job.IdempotencyKey, err)
			_ = r.db.Model(&types.OutboxJob{}).Where("id = ?", job.ID).
				Update("attempts", gorm.Expr("attempts + 1")).Error
			continue
		}
		if err := r.db.Delete(&types.OutboxJob{}, "id = ?", job.ID).Error; err != nil {
			// Next sweep redelivers; the consumer's dedupe absorbs it.
			log.Printf("outbox cleanup %s: %v", job.IdempotencyKey, err)
		}
	}
	return nil
}

func (r *Relay) deliver(ctx context.Context, job types.OutboxJob) error {
	values := map[string]interface{}{"idempotencyKey": job.IdempotencyKey}
	for k, v := range job.Payload {
		values[k] = v
	}

	dctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return data.Publish(dctx, r.rdb, job.Stream, values)
}
