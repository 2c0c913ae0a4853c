//go:build linux

package probe

import (
	"bytes"
	"os/exec"
	"strings"
)

func activeWindowTitle() string {
	cmd := exec.Command("xdotool", "getwindowfocus", "getwindowname")
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return ""
	}
	return strings.TrimSpace(out.String())
}
