package main

import (
	"fmt"
	"os"
	"sync"

	"github.com/zafkar/oxwm/internal/config"
	"github.com/zafkar/oxwm/internal/metrics"
	"github.com/zafkar/oxwm/internal/util"
)

// applier is the engine surface the reloader needs.
type applier interface {
	Apply(cfg *config.Config) error
}

// configReloader re-reads the config file on demand. A file that fails to
// parse is rejected with a diff against the last good one, and the running
// configuration stays in place.
type configReloader struct {
	path    string
	logger  *util.Logger
	engine  applier
	metrics *metrics.Collector

	mu             sync.Mutex
	lastSerialized []byte
}

func newConfigReloader(path string, logger *util.Logger, eng applier, collector *metrics.Collector, cfg *config.Config, serialized []byte) *configReloader {
	return &configReloader{
		path:           path,
		logger:         logger,
		engine:         eng,
		metrics:        collector,
		lastSerialized: append([]byte(nil), serialized...),
	}
}

// Reload loads and applies the config file. Called from the main loop and
// from control server connections.
func (r *configReloader) Reload(reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Infof("%s, reloading config", reason)
	raw, err := os.ReadFile(r.path)
	if err != nil {
		r.metrics.RecordReload(false)
		return fmt.Errorf("read config: %w", err)
	}
	cfg, err := config.Parse(raw)
	if err != nil {
		r.metrics.RecordReload(false)
		r.logDiff(raw)
		return err
	}
	if err := r.engine.Apply(cfg); err != nil {
		r.logDiff(raw)
		return fmt.Errorf("apply config: %w", err)
	}
	r.lastSerialized = append([]byte(nil), raw...)
	r.logger.Infof("config reloaded")
	return nil
}

func (r *configReloader) logDiff(current []byte) {
	diff := config.DiffSerialized(r.lastSerialized, current)
	if diff == "" {
		r.logger.Warnf("config change rejected; unable to compute diff vs last valid config")
		return
	}
	r.logger.Warnf("config change rejected; diff vs last valid config:\n%s", diff)
}
