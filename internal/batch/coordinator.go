// Package batch measures many files concurrently and keeps a running
// aggregate over the successful ones.
package batch

import (
	"context"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"drmeter/internal/codec"
	"drmeter/internal/logging"
	"drmeter/pkg/audioengine"
)

// Observer receives a snapshot after every status change. Calls are
// serialized and may call Coordinator.Snapshot.
type Observer func(State)

// Coordinator owns the item table of one batch.
type Coordinator struct {
	workers  int
	open     codec.Opener
	analyzer *audioengine.Analyzer
	log      logging.Logger
	observer Observer
	digest   func(path string) (string, error)

	mu         sync.Mutex
	items      []Item
	index      map[string]int
	overall    audioengine.Result
	hasOverall bool
	seq        uint64

	publishMu sync.Mutex
	published uint64
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithWorkers bounds the number of files analyzed at once. Values below one
// select runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithOpener replaces codec.Open.
func WithOpener(open codec.Opener) Option {
	return func(c *Coordinator) {
		if open != nil {
			c.open = open
		}
	}
}

// WithAnalyzer replaces the default-config analyzer.
func WithAnalyzer(a *audioengine.Analyzer) Option {
	return func(c *Coordinator) {
		if a != nil {
			c.analyzer = a
		}
	}
}

func WithLogger(l logging.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.log = l
		}
	}
}

func WithObserver(o Observer) Option {
	return func(c *Coordinator) { c.observer = o }
}

// WithDigest fingerprints every analyzed file with fn.
func WithDigest(fn func(path string) (string, error)) Option {
	return func(c *Coordinator) { c.digest = fn }
}

// New returns an empty coordinator.
func New(opts ...Option) *Coordinator {
	analyzer, err := audioengine.NewAnalyzer(audioengine.DefaultConfig())
	if err != nil {
		panic(err)
	}
	c := &Coordinator{
		workers:  runtime.NumCPU(),
		open:     codec.Open,
		analyzer: analyzer,
		log:      logging.GetGlobalLogger(),
		index:    make(map[string]int),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.WithFields(logging.Fields{"component": "batch"})
	return c
}

// Submit adds one pending item per path. Paths already submitted are ignored.
func (c *Coordinator) Submit(paths ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range paths {
		key := filepath.Clean(p)
		if _, dup := c.index[key]; dup {
			continue
		}
		c.index[key] = len(c.items)
		c.items = append(c.items, Item{Path: p, Status: StatusPending})
	}
}

// Snapshot returns the current state.
func (c *Coordinator) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Run analyzes every pending item and returns once all of them are terminal.
// Per-file failures are recorded on the item, never returned. When ctx is
// cancelled no new file is started, files in flight finish, the rest are
// marked skipped and ctx.Err() is returned.
func (c *Coordinator) Run(ctx context.Context) error {
	pending := c.claimPending()
	c.log.Info("batch started", logging.Fields{"files": len(pending), "workers": c.workers})
	start := time.Now()

	g := new(errgroup.Group)
	g.SetLimit(c.workers)
	for _, i := range pending {
		if ctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			c.analyze(i)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		c.skip(pending)
		c.log.Warn("batch cancelled", logging.Fields{"error": err.Error()})
		return err
	}

	st := c.Snapshot()
	c.log.Info("batch finished", logging.Fields{
		"completed": st.Completed,
		"failed":    st.Failed,
		"elapsed":   time.Since(start).Round(time.Millisecond).String(),
	})
	return nil
}

// claimPending returns the indexes of pending items not yet claimed by a
// Run. They stay pending until a worker picks them up.
func (c *Coordinator) claimPending() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []int
	for i, it := range c.items {
		if it.Status == StatusPending && !it.claimed {
			out = append(out, i)
			c.items[i].claimed = true
		}
	}
	return out
}

func (c *Coordinator) analyze(i int) {
	path := c.update(i, func(it *Item) { it.Status = StatusRunning })
	log := c.log.WithFields(logging.Fields{"path": path})

	res, err := c.measure(path, log)

	var digest string
	if err == nil && c.digest != nil {
		var derr error
		if digest, derr = c.digest(path); derr != nil {
			log.Warn("digest failed", logging.Fields{"error": derr.Error()})
		}
	}

	c.update(i, func(it *Item) {
		if err != nil {
			it.Status, it.Err = StatusFailed, err
			return
		}
		it.Status, it.Result, it.Digest = StatusCompleted, res, digest
	})

	if err != nil {
		log.Warn("analysis failed", logging.Fields{"error": err.Error()})
		return
	}
	log.Debug("analysis done", logging.Fields{
		"dr":      res.OverallDRScore(),
		"peak_db": res.OverallPeakDB(),
		"rms_db":  res.OverallRMSDB(),
	})
}

// measure owns the source for exactly one analysis.
func (c *Coordinator) measure(path string, log logging.Logger) (audioengine.Result, error) {
	src, err := c.open(path)
	if err != nil {
		return audioengine.Result{}, err
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			log.Debug("close failed", logging.Fields{"error": cerr.Error()})
		}
	}()
	return c.analyzer.Analyze(src)
}

// skip marks the given items skipped if they never started.
func (c *Coordinator) skip(indexes []int) {
	c.mu.Lock()
	changed := false
	for _, i := range indexes {
		if c.items[i].Status == StatusPending {
			c.items[i].Status = StatusSkipped
			changed = true
		}
	}
	if !changed {
		c.mu.Unlock()
		return
	}
	st := c.commitLocked()
	c.mu.Unlock()
	c.publish(st)
}

// update applies fn to item i, recomputes the aggregate and publishes the
// resulting snapshot. It returns the item path.
func (c *Coordinator) update(i int, fn func(*Item)) string {
	c.mu.Lock()
	fn(&c.items[i])
	path := c.items[i].Path
	st := c.commitLocked()
	c.mu.Unlock()

	c.publish(st)
	return path
}

// commitLocked recomputes Overall over the completed items and builds the
// next snapshot.
func (c *Coordinator) commitLocked() State {
	results := make([]audioengine.Result, 0, len(c.items))
	for _, it := range c.items {
		if it.Status == StatusCompleted {
			results = append(results, it.Result)
		}
	}
	c.overall, c.hasOverall = audioengine.Combine(results)
	c.seq++
	return c.snapshotLocked()
}

func (c *Coordinator) snapshotLocked() State {
	st := State{
		Items:      append([]Item(nil), c.items...),
		Overall:    c.overall,
		HasOverall: c.hasOverall,
		Total:      len(c.items),
		seq:        c.seq,
	}
	for _, it := range c.items {
		switch it.Status {
		case StatusCompleted:
			st.Completed++
		case StatusFailed:
			st.Failed++
		case StatusSkipped:
			st.Skipped++
		}
	}
	return st
}

// publish delivers st unless a newer snapshot was delivered already, so the
// observer sees states in the order they were built.
func (c *Coordinator) publish(st State) {
	if c.observer == nil {
		return
	}
	c.publishMu.Lock()
	defer c.publishMu.Unlock()
	if st.seq <= c.published {
		return
	}
	c.published = st.seq
	c.observer(st)
}
