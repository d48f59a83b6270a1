package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/playforge/catalog/src/api/catalog"
	"github.com/playforge/catalog/src/api/config"
	"github.com/playforge/catalog/src/api/data"
)

const dedupeTTL = 24 * time.Hour

type job struct {
	IdempotencyKey string
	GameID         string
	GameFileKey    string
	EditorID       string
}

type worker struct {
	db      *gorm.DB
	rdb     *redis.Client
	streams streamReader
	games   *catalog.Store
	storage Storage
}

func main() {
	cfg := config.Load()

	db := data.MustMySQL(cfg.MySQLDSN)
	rdb := data.MustRedis(cfg.RedisURL)

	root := os.Getenv("ASSET_ROOT")
	if root == "" {
		root = "/var/lib/catalog"
	}

	w := &worker{
		db:      db,
		rdb:     rdb,
		streams: rdb,
		games:   catalog.NewStore(db),
		storage: NewDiskStorage(root),
	}

	ctx, cancel := context.WithCancel(context.Background())
	go w.listen(ctx)
	log.Printf("Asset worker consuming %s", data.StreamJobs)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	cancel()
}

type streamReader interface {
	XRead(ctx context.Context, a *redis.XReadArgs) *redis.XStreamSliceCmd
}

// readBatch does one blocking read at the given anchor and returns the
// messages plus the anchor for the next call.
func readBatch(ctx context.Context, rdb streamReader, stream, lastID string) ([]redis.XMessage, string, error) {
	streams, err := rdb.XRead(ctx, &redis.XReadArgs{
		Streams: []string{stream, lastID},
		Count:   10,
		Block:   5 * time.Second,
	}).Result()
	if err != nil {
		return nil, lastID, err
	}

	var msgs []redis.XMessage
	for _, s := range streams {
		msgs = append(msgs, s.Messages...)
	}
	if len(msgs) > 0 {
		lastID = msgs[len(msgs)-1].ID
	}
	return msgs, lastID, nil
}

func (w *worker) listen(ctx context.Context) {
	// Start from the beginning of the stream so jobs delivered while the
	// worker was down are still picked up. The idempotency-key claim and
	// the processing CAS make replaying old entries a no-op.
	lastID := "0"

	for {
		select {
		case <-ctx.Done():
			return
		default:
			msgs, next, err := readBatch(ctx, w.streams, data.StreamJobs, lastID)
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					log.Printf("Error reading stream: %v", err)
				}
				continue
			}
			lastID = next

			for _, msg := range msgs {
				j := parseJob(msg.Values)
				if j.GameID == "" || j.GameFileKey == "" {
					log.Printf("Skipping malformed job %s", msg.ID)
					continue
				}
				if !w.claim(ctx, j.IdempotencyKey) {
					log.Printf("Skipping duplicate job %s", j.IdempotencyKey)
					continue
				}
				if err := w.process(j); err != nil {
					log.Printf("Job %s for game %s failed: %v", j.IdempotencyKey, j.GameID, err)
				}
			}
		}
	}
}

func parseJob(values map[string]interface{}) job {
	var j job
	if v, ok := values["idempotencyKey"].(string); ok {
		j.IdempotencyKey = v
	}
	if v, ok := values["gameId"].(string); ok {
		j.GameID = v
	}
	if v, ok := values["gameFileKey"].(string); ok {
		j.GameFileKey = v
	}
	if v, ok := values["editorId"].(string); ok {
		j.EditorID = v
	}
	return j
}

// claim dedupes relay redeliveries via SETNX on the idempotency key.
func (w *worker) claim(ctx context.Context, key string) bool {
	if key == "" {
		return true
	}
	ok, err := w.rdb.SetNX(ctx, "job:"+key, "1", dedupeTTL).Result()
	if err != nil {
		log.Printf("dedupe check: %v", err)
		return true
	}
	return ok
}

// process promotes the uploaded asset and re-enables the entry. The entry
// stays disabled on failure so a broken build never goes live.
func (w *worker) process(j job) error {
	claimed, err := w.games.MarkProcessing(j.GameID)
	if err != nil {
		return err
	}
	if !claimed {
		// Already processed or not awaiting processing.
		log.Printf("Game %s not pending, job %s ignored", j.GameID, j.IdempotencyKey)
		return nil
	}

	permanentKey, err := w.storage.Promote(j.GameFileKey)
	if err != nil {
		if markErr := w.games.MarkFailed(j.GameID); markErr != nil {
			log.Printf("mark failed: %v", markErr)
		}
		return err
	}

	if err := w.games.MarkReady(j.GameID, permanentKey); err != nil {
		return err
	}
	log.Printf("Processed asset for game %s (%s -> %s)", j.GameID, j.GameFileKey, permanentKey)
	return nil
}
