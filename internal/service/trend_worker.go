package service

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ancient666-pro/askit-dark-feed/internal/repository"
)

// TrendWorker listens for PostgreSQL NOTIFY on the 'vote_changes' channel and
// batches trend-score recalculations: a poll hit by fifty votes inside one
// window is recomputed once. Read-path ranking stays fresh regardless; the
// persisted score feeds stats and dashboards.
type TrendWorker struct {
	pool    *pgxpool.Pool
	repo    *repository.PollRepo
	cache   *CacheService
	batchMs time.Duration

	mu      sync.Mutex
	pending map[string]struct{} // poll IDs waiting for recalculation
}

// NewTrendWorker creates a trend recalculation worker.
func NewTrendWorker(pool *pgxpool.Pool, repo *repository.PollRepo, cache *CacheService) *TrendWorker {
	return &TrendWorker{
		pool:    pool,
		repo:    repo,
		cache:   cache,
		batchMs: 5 * time.Second,
		pending: make(map[string]struct{}),
	}
}

// Start begins listening for vote_changes notifications and processing
// batches. Blocks until the context is cancelled.
func (w *TrendWorker) Start(ctx context.Context) {
	log.Printf("trend-worker: starting (batch window=%s)", w.batchMs)

	for {
		if err := w.listenLoop(ctx); err != nil {
			if ctx.Err() != nil {
				log.Println("trend-worker: stopping (context cancelled)")
				return
			}
			log.Printf("trend-worker: listen error, reconnecting in 5s: %v", err)
			select {
			case <-time.After(5 * time.Second):
			case <-ctx.Done():
				log.Println("trend-worker: stopping (context cancelled)")
				return
			}
		}
	}
}

// listenLoop acquires a dedicated connection, LISTENs on vote_changes, and
// collects notified poll ids for the flush loop.
func (w *TrendWorker) listenLoop(ctx context.Context) error {
	conn, err := w.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN vote_changes"); err != nil {
		return err
	}
	log.Println("trend-worker: listening on vote_changes")

	flushCtx, flushCancel := context.WithCancel(ctx)
	defer flushCancel()
	go w.flushLoop(flushCtx)

	for {
		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}

		pollID := notification.Payload
		if pollID == "" {
			continue
		}

		w.mu.Lock()
		w.pending[pollID] = struct{}{}
		w.mu.Unlock()
	}
}

// flushLoop periodically drains the pending set.
func (w *TrendWorker) flushLoop(ctx context.Context) {
	ticker := time.NewTicker(w.batchMs)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.flush(ctx)
		case <-ctx.Done():
			// Final flush before exit
			w.flush(context.Background())
			return
		}
	}
}

// flush recomputes the trend score of every pending poll and drops its cache
// entry so the next read sees fresh counts.
func (w *TrendWorker) flush(ctx context.Context) {
	w.mu.Lock()
	if len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	batch := w.pending
	w.pending = make(map[string]struct{})
	w.mu.Unlock()

	now := time.Now()
	recalculated := 0
	for pollID := range batch {
		poll, err := w.repo.FindByID(ctx, pollID)
		if err != nil {
			log.Printf("trend-worker: load error for %s: %v", pollID, err)
			continue
		}

		score := TrendScore(poll.TotalVotes, poll.CreatedAt, now)
		if err := w.repo.UpdateTrendScore(ctx, pollID, score); err != nil {
			log.Printf("trend-worker: update error for %s: %v", pollID, err)
			continue
		}

		if w.cache != nil {
			if err := w.cache.InvalidatePoll(ctx, pollID); err != nil {
				log.Printf("trend-worker: cache invalidate error for %s: %v", pollID, err)
			}
		}
		recalculated++
	}

	if recalculated > 0 {
		if w.cache != nil {
			if err := w.cache.InvalidateFeed(ctx); err != nil {
				log.Printf("trend-worker: feed invalidate error: %v", err)
			}
		}
		log.Printf("trend-worker: batch complete — %d polls recalculated (from %d notifications)",
			recalculated, len(batch))
	}
}
