package main

import (
	"fmt"
	"os/exec"
	"runtime"
)

// openPath opens a file with the platform's default application.
func openPath(path string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", "", path)
	case "darwin":
		cmd = exec.Command("open", path)
	default:
		cmd = exec.Command("xdg-open", path)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	return nil
}

// revealPath shows the file in the platform's file manager where the platform
// supports it, falling back to a plain open.
func revealPath(path string) error {
	if runtime.GOOS == "darwin" {
		if err := exec.Command("open", "-R", path).Start(); err == nil {
			return nil
		}
	}
	return openPath(path)
}
