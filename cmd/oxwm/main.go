package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sys/unix"

	"github.com/zafkar/oxwm/internal/config"
	"github.com/zafkar/oxwm/internal/control"
	"github.com/zafkar/oxwm/internal/engine"
	"github.com/zafkar/oxwm/internal/metrics"
	"github.com/zafkar/oxwm/internal/store"
	"github.com/zafkar/oxwm/internal/util"
	"github.com/zafkar/oxwm/internal/x11"
)

func main() {
	home, _ := os.UserHomeDir()
	defaultConfig := filepath.Join(home, ".config", "oxwm", "config.yaml")

	cfgPath := flag.String("config", defaultConfig, "path to YAML config")
	logLevel := flag.String("log-level", "info", "log level (trace|debug|info|warn|error)")
	barHeight := flag.Int("bar-height", 20, "minimum bar height in pixels")
	noSession := flag.Bool("no-session", false, "do not persist the session across restarts")
	enableMetrics := flag.Bool("metrics", true, "collect action metrics")
	flag.Parse()

	logger := util.NewLogger(util.ParseLogLevel(*logLevel))

	cfg, serialized, err := loadConfig(*cfgPath, logger)
	if err != nil {
		exitErr(err)
	}
	cfgFullPath, err := filepath.Abs(*cfgPath)
	if err != nil {
		exitErr(fmt.Errorf("resolve config path: %w", err))
	}
	cfgFullPath = filepath.Clean(cfgFullPath)

	conn, err := x11.Dial(logger, *barHeight)
	if err != nil {
		exitErr(fmt.Errorf("connect to display: %w", err))
	}

	collector := metrics.NewCollector(*enableMetrics)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var sessions *store.Store
	if !*noSession {
		sessions, err = store.Open(ctx, sessionPath())
		if err != nil {
			logger.Warnf("session store unavailable, restarts will not restore state: %v", err)
			sessions = nil
		} else {
			defer sessions.Close()
		}
	}

	engine.ReapChildren()
	eng := engine.New(conn, logger, collector, sessions, cfg, conn.BarHeight())
	reloader := newConfigReloader(cfgFullPath, logger, eng, collector, cfg, serialized)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		exitErr(fmt.Errorf("watch config: %w", err))
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(cfgFullPath)); err != nil {
		logger.Warnf("unable to watch config dir: %v", err)
	}
	if err := watcher.Add(cfgFullPath); err != nil {
		logger.Debugf("unable to watch config file directly: %v", err)
	}
	reloadRequests := make(chan string, 1)
	go watchConfig(logger, watcher, cfgFullPath, reloadRequests)

	ctrlSrv, err := control.NewServer(eng, logger, reloader.Reload)
	if err != nil {
		exitErr(fmt.Errorf("start control server: %w", err))
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, unix.SIGTERM, unix.SIGHUP)

	errs := make(chan error, 2)
	go func() {
		errs <- eng.Run(ctx)
	}()
	go func() {
		errs <- ctrlSrv.Serve(ctx)
	}()

	for {
		select {
		case err := <-errs:
			switch {
			case errors.Is(err, engine.ErrRestart):
				cancel()
				// Release the display and the redirect claim before
				// the next incarnation dials.
				conn.Close()
				if sessions != nil {
					sessions.Close()
				}
				restartInPlace(logger)
			case err != nil && !errors.Is(err, context.Canceled):
				conn.Close()
				logger.Errorf("exited: %v", err)
				os.Exit(1)
			}
			conn.Close()
			logger.Infof("stopped")
			return
		case reason := <-reloadRequests:
			if err := reloader.Reload(reason); err != nil {
				logger.Errorf("reload failed: %v", err)
			}
		case sig := <-sigs:
			switch sig {
			case unix.SIGHUP:
				if err := reloader.Reload("received SIGHUP"); err != nil {
					logger.Errorf("reload failed: %v", err)
				}
			default:
				logger.Infof("received %s, shutting down", sig)
				cancel()
			}
		}
	}
}

// loadConfig reads the file at path, falling back to the built-in defaults
// when it does not exist.
func loadConfig(path string, logger *util.Logger) (*config.Config, []byte, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		logger.Infof("no config at %s, using defaults", path)
		cfg, err := config.NewBuilder().Build()
		return cfg, nil, err
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := config.Parse(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, raw, nil
}

// sessionPath places the session database under the user data dir.
func sessionPath() string {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		home, _ := os.UserHomeDir()
		base = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(base, "oxwm", "session.db")
}

// restartInPlace re-executes the current binary with the same arguments.
// The X connection is gone by now; managed clients keep running and are
// adopted back from the saved session.
func restartInPlace(logger *util.Logger) {
	exe, err := os.Executable()
	if err != nil {
		logger.Errorf("restart: resolve executable: %v", err)
		os.Exit(1)
	}
	logger.Infof("restarting in place")
	if err := unix.Exec(exe, os.Args, os.Environ()); err != nil {
		logger.Errorf("restart: exec: %v", err)
		os.Exit(1)
	}
}

func watchConfig(logger *util.Logger, watcher *fsnotify.Watcher, target string, reloadRequests chan<- string) {
	const debounceWindow = 250 * time.Millisecond
	var (
		timer   *time.Timer
		timerCh <-chan time.Time
	)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounceWindow)
				timerCh = timer.C
			} else {
				if !timer.Stop() {
					<-timerCh
				}
				timer.Reset(debounceWindow)
			}
		case <-timerCh:
			timer = nil
			timerCh = nil
			select {
			case reloadRequests <- "config file updated":
			default:
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warnf("config watcher error: %v", err)
		}
	}
}

func exitErr(err error) {
	fmt.Fprintln(os.Stderr, "oxwm:", err)
	os.Exit(1)
}
