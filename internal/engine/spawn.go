package engine

import (
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"golang.org/x/sys/unix"
)

// spawn starts a command detached in its own session. Exit status is
// collected by the SIGCHLD reaper, so the engine never blocks on children.
func (e *Engine) spawn(argv []string) {
	if len(argv) == 0 {
		return
	}
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	if err := cmd.Start(); err != nil {
		e.logger.Warnf("spawn %v: %v", argv, err)
		return
	}
	e.logger.Debugf("spawned %v pid=%d", argv, cmd.Process.Pid)
	if err := cmd.Process.Release(); err != nil {
		e.logger.Debugf("spawn: release pid %d: %v", cmd.Process.Pid, err)
	}
}

// spawnShell runs a command line through the shell, for bar click commands.
func (e *Engine) spawnShell(command string) {
	e.spawn([]string{"sh", "-c", command})
}

// ReapChildren collects exited children for the life of the process. Run
// it once, from main, before the engine starts spawning.
func ReapChildren() {
	ch := make(chan os.Signal, 16)
	signal.Notify(ch, unix.SIGCHLD)
	go func() {
		for range ch {
			for {
				pid, err := unix.Wait4(-1, nil, unix.WNOHANG, nil)
				if pid <= 0 || err != nil {
					break
				}
			}
		}
	}()
}
