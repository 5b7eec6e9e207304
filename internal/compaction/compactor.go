package compaction

import (
	"context"

	"github.com/vernedeng/risingwave/internal/logging"
	"github.com/vernedeng/risingwave/internal/manifest"
	"github.com/vernedeng/risingwave/internal/metrics"
	"github.com/vernedeng/risingwave/internal/objstore"
	"github.com/vernedeng/risingwave/internal/table"
)

// Compactor runs one background goroutine that reacts to a coalescing
// notify channel after every write (spec §2, §4.6, §5): pin the current
// Version, pick a plan, run a Job, and loop. A dedicated stop channel
// ends the loop; any in-flight job is abandoned on stop (spec §5
// Cancellation).
type Compactor struct {
	manager   *manifest.Manager
	picker    *Picker
	store     objstore.Store
	remoteDir string
	opts      table.BuilderOptions
	tableSize int
	logger    logging.Logger
	metrics   *metrics.Registry

	nextTableID    func() uint64
	minPinnedEpoch func() uint64

	notifyCh chan struct{}
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewCompactor builds a Compactor. nextTableID must hand out unique,
// increasing ids; minPinnedEpoch should report the snapshot registry's
// floor (or the current high-water epoch when nothing is pinned).
func NewCompactor(
	manager *manifest.Manager,
	picker *Picker,
	store objstore.Store,
	remoteDir string,
	opts table.BuilderOptions,
	tableSize int,
	logger logging.Logger,
	reg *metrics.Registry,
	nextTableID func() uint64,
	minPinnedEpoch func() uint64,
) *Compactor {
	return &Compactor{
		manager:        manager,
		picker:         picker,
		store:          store,
		remoteDir:      remoteDir,
		opts:           opts,
		tableSize:      tableSize,
		logger:         logger,
		metrics:        reg,
		nextTableID:    nextTableID,
		minPinnedEpoch: minPinnedEpoch,
		notifyCh:       make(chan struct{}, 1),
		stopCh:         make(chan struct{}),
		doneCh:         make(chan struct{}),
	}
}

// Notify wakes the compactor loop if it is idle. It never blocks: a
// pending notification already queued is sufficient, since the loop
// always re-picks against the latest Version (spec §2 "the Compactor
// reacts to a notification after each write").
func (c *Compactor) Notify() {
	select {
	case c.notifyCh <- struct{}{}:
	default:
	}
}

// Stop signals the loop to exit and blocks until it has. Any job in
// flight when Stop is called is abandoned; its uploaded outputs, if any,
// are left as garbage for a future compaction to supersede.
func (c *Compactor) Stop() {
	close(c.stopCh)
	<-c.doneCh
}

// Run drives the compactor loop until Stop is called or ctx is done.
// Callers typically invoke Run in its own goroutine at startup.
func (c *Compactor) Run(ctx context.Context) {
	defer close(c.doneCh)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-c.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case <-c.notifyCh:
			c.drain(ctx)
		}
	}
}

// drain runs compaction jobs back to back until the picker finds nothing
// left to do or a stop is requested.
func (c *Compactor) drain(ctx context.Context) {
	for {
		select {
		case <-c.stopCh:
			return
		default:
		}

		v := c.manager.Pin()
		plan := c.picker.Pick(v)
		if plan == nil {
			c.manager.Unpin(v)
			return
		}

		job := &Job{
			Plan:           plan,
			Store:          c.store,
			RemoteDir:      c.remoteDir,
			Manager:        c.manager,
			Opts:           c.opts,
			TableSize:      c.tableSize,
			NextTableID:    c.nextTableID,
			MinPinnedEpoch: c.minPinnedEpoch,
			Metrics:        c.metrics,
		}
		_, err := job.Run(ctx)
		c.manager.Unpin(v)

		switch {
		case err == nil:
			if c.metrics != nil {
				c.metrics.IncCompactionsCommitted()
			}
		case err == manifest.ErrVersionConflict:
			// Swallowed; retry against the now-current Version (spec §7
			// "the compactor logs and swallows VersionConflict and
			// retries on next wake").
			if c.logger != nil {
				c.logger.Debugf("compaction: version conflict, retrying: %v", err)
			}
		default:
			if c.logger != nil {
				c.logger.Errorf("compaction: job aborted: %v", err)
			}
			return
		}
	}
}
