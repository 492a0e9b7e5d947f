// Package schedule switches the panel on cron schedules.
package schedule

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/robfig/cron/v3"

	"flatpanel/host/panel"
)

// Entry is a configured schedule
type Entry struct {
	ID      int    `yaml:"-"`
	Spec    string `yaml:"spec"`
	Command string `yaml:"command"`
}

// Scheduler runs panel commands on cron specs
type Scheduler struct {
	cron    *cron.Cron
	dev     panel.Device
	scripts ScriptRunner
	timeout time.Duration

	mu    sync.RWMutex
	store map[cron.EntryID]Entry

	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler creates a stopped scheduler. scripts may be nil, in which case
// "run" entries fail when they fire. timeout bounds each execution (0 means
// none).
func NewScheduler(dev panel.Device, scripts ScriptRunner, timeout time.Duration) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:    cron.New(),
		dev:     dev,
		scripts: scripts,
		timeout: timeout,
		store:   make(map[cron.EntryID]Entry),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Load adds every entry, stopping at the first invalid one
func (s *Scheduler) Load(entries []Entry) error {
	for _, entry := range entries {
		if _, err := s.Add(entry.Spec, entry.Command); err != nil {
			return err
		}
	}
	return nil
}

// Add validates command and schedules it
func (s *Scheduler) Add(spec, command string) (int, error) {
	act, err := parseCommand(command)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.cron.AddFunc(spec, func() { s.execute(command, act) })
	if err != nil {
		return 0, fmt.Errorf("schedule %q: %w", spec, err)
	}
	s.store[id] = Entry{ID: int(id), Spec: spec, Command: command}
	glog.Infof("added schedule %d: %s -> %s", id, spec, command)
	return int(id), nil
}

// Remove deletes a schedule. Unknown IDs are ignored.
func (s *Scheduler) Remove(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entryID := cron.EntryID(id)
	s.cron.Remove(entryID)
	delete(s.store, entryID)
	glog.Infof("removed schedule %d", id)
}

// Entries returns the schedules ordered by ID
func (s *Scheduler) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]Entry, 0, len(s.store))
	for _, e := range s.store {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries
}

// Next returns when a schedule fires next, zero if it is unknown or the
// scheduler is not running
func (s *Scheduler) Next(id int) time.Time {
	return s.cron.Entry(cron.EntryID(id)).Next
}

// Start begins firing schedules
func (s *Scheduler) Start() {
	s.cron.Start()
	glog.Info("scheduler started")
}

// Stop halts the scheduler, cancels running commands and waits for them
func (s *Scheduler) Stop() {
	done := s.cron.Stop()
	s.cancel()
	<-done.Done()
	glog.Info("scheduler stopped")
}

func (s *Scheduler) execute(command string, act action) {
	ctx := s.ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	glog.Infof("running scheduled command: %s", command)
	if err := act(ctx, s.dev, s.scripts); err != nil {
		glog.Errorf("scheduled command %q failed: %v", command, err)
	}
}
