package metrics

import (
	"sort"
	"sync"
	"time"
)

// Collector aggregates anonymous runtime counters for action dispatch and
// session health.
type Collector struct {
	mu      sync.RWMutex
	enabled bool
	started time.Time
	actions map[string]*ActionMetrics
	counts  Counters
}

// ActionMetrics captures per-action counters tracked by the collector.
type ActionMetrics struct {
	Action     string    `json:"action"`
	Dispatched uint64    `json:"dispatched"`
	Failed     uint64    `json:"failed"`
	LastRun    time.Time `json:"lastRun,omitempty"`
	LastFailed time.Time `json:"lastFailed,omitempty"`
}

// Counters are the session-wide totals outside action dispatch.
type Counters struct {
	RuleMatches    uint64 `json:"ruleMatches"`
	ClientsManaged uint64 `json:"clientsManaged"`
	BlockFailures  uint64 `json:"blockFailures"`
	ReloadsOK      uint64 `json:"reloadsOk"`
	ReloadsFailed  uint64 `json:"reloadsFailed"`
}

// Totals aggregates counters across all actions in a snapshot.
type Totals struct {
	Dispatched uint64 `json:"dispatched"`
	Failed     uint64 `json:"failed"`
}

// Snapshot is the serializable view of the current metrics state.
type Snapshot struct {
	Enabled  bool            `json:"enabled"`
	Started  time.Time       `json:"started,omitempty"`
	Totals   Totals          `json:"totals"`
	Counters Counters        `json:"counters"`
	Actions  []ActionMetrics `json:"actions,omitempty"`
}

// NewCollector returns a collector with the provided opt-in state.
func NewCollector(enabled bool) *Collector {
	c := &Collector{}
	c.SetEnabled(enabled)
	return c
}

// Enabled reports whether collection is currently active.
func (c *Collector) Enabled() bool {
	if c == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.enabled
}

// SetEnabled toggles collection, resetting counters when enabling.
func (c *Collector) SetEnabled(enabled bool) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.enabled == enabled {
		return
	}
	c.enabled = enabled
	if !enabled {
		c.actions = nil
		c.counts = Counters{}
		c.started = time.Time{}
		return
	}
	c.started = time.Now()
	c.actions = make(map[string]*ActionMetrics)
}

// RecordDispatch increments the dispatched counter for an action.
func (c *Collector) RecordDispatch(action string) {
	c.updateAction(action, func(m *ActionMetrics, now time.Time) {
		m.Dispatched++
		m.LastRun = now
	})
}

// RecordFailure increments the failed counter for an action.
func (c *Collector) RecordFailure(action string) {
	c.updateAction(action, func(m *ActionMetrics, now time.Time) {
		m.Failed++
		m.LastFailed = now
	})
}

// RecordRuleMatch counts one placement rule hit.
func (c *Collector) RecordRuleMatch() {
	c.updateCounters(func(counts *Counters) { counts.RuleMatches++ })
}

// RecordManaged counts one newly managed client.
func (c *Collector) RecordManaged() {
	c.updateCounters(func(counts *Counters) { counts.ClientsManaged++ })
}

// RecordBlockFailure counts one status block refresh error.
func (c *Collector) RecordBlockFailure() {
	c.updateCounters(func(counts *Counters) { counts.BlockFailures++ })
}

// RecordReload counts one configuration reload attempt.
func (c *Collector) RecordReload(ok bool) {
	c.updateCounters(func(counts *Counters) {
		if ok {
			counts.ReloadsOK++
		} else {
			counts.ReloadsFailed++
		}
	})
}

func (c *Collector) updateCounters(mutate func(*Counters)) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled {
		return
	}
	mutate(&c.counts)
}

func (c *Collector) updateAction(action string, mutate func(*ActionMetrics, time.Time)) {
	if c == nil || mutate == nil {
		return
	}
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled {
		return
	}
	if c.actions == nil {
		c.actions = make(map[string]*ActionMetrics)
	}
	m, exists := c.actions[action]
	if !exists {
		m = &ActionMetrics{Action: action}
		c.actions[action] = m
	}
	mutate(m, now)
}

// Snapshot returns the current counters for serialization or display.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap := Snapshot{Enabled: c.enabled}
	if !c.enabled {
		return snap
	}
	snap.Started = c.started
	snap.Counters = c.counts
	if len(c.actions) == 0 {
		return snap
	}
	snap.Actions = make([]ActionMetrics, 0, len(c.actions))
	for _, m := range c.actions {
		if m == nil {
			continue
		}
		clone := *m
		snap.Actions = append(snap.Actions, clone)
		snap.Totals.Dispatched += clone.Dispatched
		snap.Totals.Failed += clone.Failed
	}
	sort.Slice(snap.Actions, func(i, j int) bool {
		return snap.Actions[i].Action < snap.Actions[j].Action
	})
	return snap
}
