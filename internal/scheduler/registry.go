package scheduler

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"
)

// DefaultInterval is the prediction cadence of a subscriber.
const DefaultInterval = "@every 15m"

// Registry tracks one repeating prediction job per subscribed chat.
// Subscribing again replaces the existing job.
type Registry struct {
	mu       sync.Mutex
	cron     *cron.Cron
	interval string
	run      func(chatID int64)
	jobs     map[int64]cron.EntryID
}

func NewRegistry(c *cron.Cron, interval string, run func(chatID int64)) *Registry {
	if interval == "" {
		interval = DefaultInterval
	}
	return &Registry{cron: c, interval: interval, run: run, jobs: make(map[int64]cron.EntryID)}
}

// Interval returns the schedule in human form, "15m" for "@every 15m".
func (r *Registry) Interval() string {
	return strings.TrimPrefix(r.interval, "@every ")
}

// Subscribe schedules chatID and fires its first run immediately.
func (r *Registry) Subscribe(chatID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, err := r.cron.AddFunc(r.interval, func() { r.run(chatID) })
	if err != nil {
		return fmt.Errorf("schedule chat %d: %w", chatID, err)
	}
	if old, ok := r.jobs[chatID]; ok {
		r.cron.Remove(old)
	}
	r.jobs[chatID] = id
	go r.run(chatID)
	return nil
}

// Unsubscribe removes the job of chatID and reports whether one existed.
func (r *Registry) Unsubscribe(chatID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.jobs[chatID]
	if !ok {
		return false
	}
	r.cron.Remove(id)
	delete(r.jobs, chatID)
	return true
}

func (r *Registry) IsActive(chatID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.jobs[chatID]
	return ok
}

// Active returns the subscribed chats in ascending order.
func (r *Registry) Active() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int64, 0, len(r.jobs))
	for id := range r.jobs {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
