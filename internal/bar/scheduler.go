package bar

import (
	"context"
	"sync"
	"time"

	"github.com/zafkar/oxwm/internal/config"
)

// failedText is rendered in place of a block whose source errored.
const failedText = "n/a"

// Segment is one rendered block, ready for drawing.
type Segment struct {
	Text         string
	Color        config.Color
	Underline    bool
	ClickCommand string
}

type entry struct {
	cfg      config.Block
	src      Source
	async    bool
	next     time.Time
	text     string
	failed   bool
	inflight bool
}

// Scheduler refreshes blocks on their individual cadences. Tick runs from
// the event loop; shell blocks refresh on worker goroutines and report
// back through the Updates channel.
type Scheduler struct {
	mu      sync.Mutex
	entries []*entry
	updates chan struct{}
	clock   func() time.Time

	// OnError, when set, observes block failures. Called with the block's
	// position and the error, possibly from a worker goroutine.
	OnError func(index int, err error)
}

// NewScheduler builds a scheduler over the configured blocks. Every block
// is due immediately.
func NewScheduler(blocks []config.Block) (*Scheduler, error) {
	s := &Scheduler{
		updates: make(chan struct{}, 1),
		clock:   time.Now,
	}
	for _, blk := range blocks {
		src, err := NewSource(blk)
		if err != nil {
			return nil, err
		}
		s.entries = append(s.entries, &entry{
			cfg:   blk,
			src:   src,
			async: blk.Kind == config.BlockShell,
		})
	}
	return s, nil
}

// Updates signals that an asynchronous refresh finished and the bar should
// redraw.
func (s *Scheduler) Updates() <-chan struct{} {
	return s.updates
}

// NextDue returns the earliest time any block wants a refresh; ok is false
// when no block refreshes on a timer.
func (s *Scheduler) NextDue() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due time.Time
	found := false
	for _, e := range s.entries {
		if oneShot(e.cfg) && !e.next.IsZero() {
			continue
		}
		if !found || e.next.Before(due) {
			due, found = e.next, true
		}
	}
	return due, found
}

// Tick refreshes every due block. Synchronous sources run inline; shell
// sources run on a goroutine and signal Updates when done.
func (s *Scheduler) Tick(ctx context.Context) {
	now := s.clock()
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.entries {
		if e.next.After(now) {
			continue
		}
		if oneShot(e.cfg) && !e.next.IsZero() {
			continue
		}
		e.next = now.Add(e.cfg.Interval)
		if e.async {
			if e.inflight {
				continue
			}
			e.inflight = true
			go s.refreshAsync(ctx, i, e)
			continue
		}
		text, err := e.src.Read(ctx)
		s.store(i, e, text, err)
	}
}

// oneShot blocks carry no interval and refresh only once.
func oneShot(blk config.Block) bool {
	return blk.Kind == config.BlockStatic || blk.Kind == config.BlockButton
}

func (s *Scheduler) refreshAsync(ctx context.Context, i int, e *entry) {
	text, err := e.src.Read(ctx)
	s.mu.Lock()
	e.inflight = false
	s.store(i, e, text, err)
	s.mu.Unlock()
	select {
	case s.updates <- struct{}{}:
	default:
	}
}

// store records a refresh result; the caller holds s.mu.
func (s *Scheduler) store(i int, e *entry, text string, err error) {
	if err != nil {
		e.failed = true
		if s.OnError != nil {
			s.OnError(i, err)
		}
		return
	}
	e.failed = false
	e.text = text
}

// Segments returns the current bar content in block order.
func (s *Scheduler) Segments() []Segment {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Segment, 0, len(s.entries))
	for _, e := range s.entries {
		text := e.text
		if e.failed {
			text = failedText
		}
		out = append(out, Segment{
			Text:         text,
			Color:        e.cfg.Color,
			Underline:    e.cfg.Underline,
			ClickCommand: e.cfg.ClickCommand,
		})
	}
	return out
}
