//go:build linux

// Package restart terminates the current process in favor of a
// supervisor-relaunched one running with the newly persisted video
// settings. The capture loop must have released its device first: the
// camera file descriptor has to be closed before a new process claims
// it.
package restart

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"

	"github.com/instance-id/hypercalibrate/internal/logging"
)

var log = logging.L("restart")

// ServiceName is the systemd unit this daemon expects to be managed
// under, when run as a service.
const ServiceName = "hypercalibrated"

// Restart asks systemd to restart the unit; if that fails (not running
// under systemd, or the unit is unmanaged) it falls back to re-executing
// the current binary in place with the same argv/env via syscall.Exec,
// which replaces this process image without forking. Callers must have
// already confirmed the camera device is released before calling this.
func Restart() error {
	if err := restartSystemd(); err == nil {
		log.Info("restarted via systemd", "unit", ServiceName)
		return nil
	}
	return restartExec()
}

func restartSystemd() error {
	cmd := exec.Command("systemctl", "restart", ServiceName)
	return cmd.Run()
}

func restartExec() error {
	binary, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}
	binary, err = filepath.EvalSymlinks(binary)
	if err != nil {
		return fmt.Errorf("resolve symlinks: %w", err)
	}

	log.Info("re-executing binary in place", "binary", binary)
	args := append([]string{binary}, os.Args[1:]...)
	return syscall.Exec(binary, args, os.Environ())
}
