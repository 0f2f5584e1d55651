package browser

import (
	"fmt"
	"os/exec"
	"time"
)

// xvfbScreen is the virtual framebuffer geometry. Captures render at the
// page's own dimensions, so the screen only needs to be large enough for
// the browser window.
const xvfbScreen = "1920x1080x24"

// startXvfb brings up the virtual display that headful captures run on.
// It is a no-op when a display is already up.
func (m *Manager) startXvfb() error {
	if m.xvfb != nil {
		return nil
	}
	if _, err := exec.LookPath("Xvfb"); err != nil {
		return fmt.Errorf("browser: xvfb not installed: %w", err)
	}

	cmd := exec.Command("Xvfb", m.cfg.XvfbDisplay, "-screen", "0", xvfbScreen, "-ac")
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("browser: start xvfb: %w", err)
	}
	m.xvfb = cmd

	// No readiness signal from Xvfb; a short pause before the browser
	// connects is enough in practice.
	time.Sleep(500 * time.Millisecond)

	m.cfg.Logger.Info("browser: virtual display up",
		"display", m.cfg.XvfbDisplay, "pid", cmd.Process.Pid)
	return nil
}

// stopXvfb tears the virtual display down, reaping the process.
func (m *Manager) stopXvfb() {
	if m.xvfb == nil {
		return
	}
	if m.xvfb.Process != nil {
		m.xvfb.Process.Kill()
		m.xvfb.Wait()
	}
	m.cfg.Logger.Info("browser: virtual display stopped")
	m.xvfb = nil
}
