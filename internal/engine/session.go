package engine

import (
	"context"
	"errors"
	"time"

	"github.com/zafkar/oxwm/internal/state"
	"github.com/zafkar/oxwm/internal/store"
)

const storeTimeout = 3 * time.Second

// persist writes the session before a restart and clears it on a normal
// exit, so a fresh start never inherits stale window ids.
func (e *Engine) persist(save bool) {
	if e.sessions == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if !save {
		if err := e.sessions.Clear(ctx); err != nil {
			e.logger.Warnf("session: clear: %v", err)
		}
		return
	}
	if err := e.sessions.SaveSession(ctx, e.snapshotSession()); err != nil {
		e.logger.Warnf("session: save: %v", err)
	}
}

func (e *Engine) snapshotSession() store.Session {
	var sess store.Session
	for _, c := range e.world.Clients {
		sess.Clients = append(sess.Clients, store.ClientRow{
			Window:     c.Window,
			Tags:       uint32(c.Tags),
			Monitor:    c.Monitor,
			Floating:   c.Floating,
			Fullscreen: c.Fullscreen,
		})
	}
	for _, mon := range e.world.Monitors {
		sess.Monitors = append(sess.Monitors, store.MonitorRow{
			Index:   mon.Index,
			Tagset:  [2]uint32{uint32(mon.Tagset[0]), uint32(mon.Tagset[1])},
			SelTags: mon.SelTags,
			ShowBar: mon.ShowBar,
		})
		for tag, ts := range mon.Tags {
			sess.TagStates = append(sess.TagStates, store.TagStateRow{
				Monitor:      mon.Index,
				Tag:          tag,
				Layout:       ts.Layout,
				MasterFactor: ts.MasterFactor,
				NumMaster:    ts.NumMaster,
				ScrollOffset: ts.ScrollOffset,
			})
		}
	}
	return sess
}

// restoreSession loads the previous incarnation's state, applies monitor
// and tag settings, and returns the per-window rows for adoption.
func (e *Engine) restoreSession(ctx context.Context) map[uint32]store.ClientRow {
	if e.sessions == nil {
		return nil
	}
	loadCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	sess, err := e.sessions.LoadSession(loadCtx)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			e.logger.Warnf("session: load: %v", err)
		}
		return nil
	}
	e.logger.Infof("session: restoring %d clients across %d monitors", len(sess.Clients), len(sess.Monitors))

	for _, row := range sess.Monitors {
		if row.Index < 0 || row.Index >= len(e.world.Monitors) {
			continue
		}
		mon := e.world.Monitors[row.Index]
		if row.Tagset[0] != 0 {
			mon.Tagset[0] = state.TagMask(row.Tagset[0])
		}
		if row.Tagset[1] != 0 {
			mon.Tagset[1] = state.TagMask(row.Tagset[1])
		}
		if row.SelTags == 0 || row.SelTags == 1 {
			mon.SelTags = row.SelTags
		}
		mon.ShowBar = row.ShowBar
	}
	for _, row := range sess.TagStates {
		if row.Monitor < 0 || row.Monitor >= len(e.world.Monitors) {
			continue
		}
		mon := e.world.Monitors[row.Monitor]
		if row.Tag < 0 || row.Tag >= len(mon.Tags) {
			continue
		}
		mon.Tags[row.Tag] = state.TagState{
			Layout:       row.Layout,
			MasterFactor: row.MasterFactor,
			NumMaster:    row.NumMaster,
			ScrollOffset: row.ScrollOffset,
		}
	}

	rows := make(map[uint32]store.ClientRow, len(sess.Clients))
	for _, row := range sess.Clients {
		rows[row.Window] = row
	}
	return rows
}

// adoptExisting manages windows that were already mapped when the manager
// started, typically after an in-place restart.
func (e *Engine) adoptExisting(restored map[uint32]store.ClientRow) {
	wins, err := e.conn.Existing()
	if err != nil {
		e.logger.Warnf("engine: query existing windows: %v", err)
		return
	}
	for _, win := range wins {
		var row *store.ClientRow
		if r, ok := restored[win]; ok {
			row = &r
		}
		e.manage(win, row)
	}
}
