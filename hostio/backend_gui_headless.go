//go:build headless

// backend_gui_headless.go - placeholder so cmd/kxn can reference
// NewGUIBackend regardless of build tag, mirroring the teacher's
// gui_frontend_headless.go stand-in pattern.

package hostio

import "fmt"

// NewGUIBackend is unavailable in headless builds (no ebiten/oto/
// clipboard linkage); callers should fall back to -backend=terminal or
// -backend=headless.
func NewGUIBackend() (Backend, error) {
	return nil, fmt.Errorf("hostio: gui backend unavailable in headless build")
}
