package sqlpool

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

const sweepTimeout = 30 * time.Second

// Sweeper periodically deletes expired session rows. Reads already hide
// expired rows, so sweeping only reclaims space.
type Sweeper struct {
	pool *Pool
	cron *cron.Cron
}

// NewSweeper schedules Sweep on pool using a standard cron spec or a
// descriptor such as "@every 5m".
func NewSweeper(pool *Pool, schedule string) (*Sweeper, error) {
	s := &Sweeper{pool: pool, cron: cron.New()}
	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return nil, fmt.Errorf("sqlpool: sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start begins the schedule in its own goroutine.
func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Sweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	n, err := s.Sweep(ctx)
	if err != nil {
		s.pool.log.Error().Err(err).Str("op", "sweep").Msg("session sweep failed")
		return
	}
	s.pool.log.Debug().Int64("removed", n).Str("op", "sweep").Msg("session sweep finished")
}

// Sweep deletes every expired record and its fields, returning the number of
// records removed.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	p := s.pool
	now := p.nowMillis()

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, p.dialect.rebind(qSweepFields), now); err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, p.dialect.rebind(qSweepRecords), now)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return n, nil
}
