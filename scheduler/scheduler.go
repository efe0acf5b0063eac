package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TaskFn is the function signature for scheduled tasks. ctx is cancelled
// when the task is removed or the scheduler stops.
type TaskFn func(ctx context.Context) error

// TaskInfo is a snapshot of one task for the metrics endpoint.
type TaskInfo struct {
	Name      string        `json:"name"`
	Interval  time.Duration `json:"interval"`
	Runs      int64         `json:"runs"`
	Failures  int64         `json:"failures"`
	LastRun   time.Time     `json:"last_run,omitempty"`
	LastError string        `json:"last_error,omitempty"`
}

// Scheduler runs named periodic tasks. A task never overlaps with itself.
type Scheduler struct {
	mu      sync.Mutex
	tickers map[string]*tickerEntry
	logger  *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

type tickerEntry struct {
	cancel context.CancelFunc

	mu   sync.Mutex
	info TaskInfo
}

// New creates a new Scheduler.
func New(logger *zap.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		tickers: make(map[string]*tickerEntry),
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// AddTicker registers a task to run on a fixed interval.
// If a task with the same name exists, it is replaced.
func (s *Scheduler) AddTicker(name string, interval time.Duration, fn TaskFn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx.Err() != nil {
		return
	}
	if old, ok := s.tickers[name]; ok {
		old.cancel()
		delete(s.tickers, name)
	}

	ctx, cancel := context.WithCancel(s.ctx)
	entry := &tickerEntry{cancel: cancel, info: TaskInfo{Name: name, Interval: interval}}
	s.tickers[name] = entry

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.run(ctx, entry, fn)
			case <-ctx.Done():
				return
			}
		}
	}()
	s.logger.Info("scheduler task registered", zap.String("name", name), zap.Duration("interval", interval))
}

func (s *Scheduler) run(ctx context.Context, entry *tickerEntry, fn TaskFn) {
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return fn(ctx)
	}()

	entry.mu.Lock()
	entry.info.Runs++
	entry.info.LastRun = time.Now()
	entry.info.LastError = ""
	if err != nil {
		entry.info.Failures++
		entry.info.LastError = err.Error()
	}
	name := entry.info.Name
	entry.mu.Unlock()

	if err != nil && ctx.Err() == nil {
		s.logger.Error("scheduler task failed", zap.String("task", name), zap.Error(err))
	}
}

// Remove stops and removes a task by name.
func (s *Scheduler) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.tickers[name]; ok {
		entry.cancel()
		delete(s.tickers, name)
	}
}

// Stop cancels every task and waits for running ones to return.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

// ListTickers returns the names of all registered tasks, sorted.
func (s *Scheduler) ListTickers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.tickers))
	for name := range s.tickers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Tasks returns a snapshot of every registered task, sorted by name.
func (s *Scheduler) Tasks() []TaskInfo {
	s.mu.Lock()
	entries := make([]*tickerEntry, 0, len(s.tickers))
	for _, e := range s.tickers {
		entries = append(entries, e)
	}
	s.mu.Unlock()

	out := make([]TaskInfo, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, e.info)
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
