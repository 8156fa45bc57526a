// backend_headless.go - in-memory Backend used by tests and
// `kxn -backend=headless`. Grounded on the teacher's
// video_backend_headless.go test-double pattern.

package hostio

import (
	"bytes"
	"sync/atomic"
)

// HeadlessBackend records framebuffer writes into a Framebuffer and lets
// tests feed synthetic keyboard/mouse events without a real window.
type HeadlessBackend struct {
	FB Framebuffer

	Stdout bytes.Buffer

	refreshCount uint64

	pendingKeys []byte
	mouseX      uint16
	mouseY      uint16
	mouseBtn    byte
	mousePending bool

	shutdown bool
}

// NewHeadlessBackend returns a ready-to-use headless backend.
func NewHeadlessBackend() *HeadlessBackend {
	return &HeadlessBackend{}
}

// FeedKey queues a key byte to be returned by the next PollKey call.
func (h *HeadlessBackend) FeedKey(b byte) {
	h.pendingKeys = append(h.pendingKeys, b)
}

// FeedMouse sets the mouse state to be latched by the next PollMouse call.
func (h *HeadlessBackend) FeedMouse(x, y uint16, buttons byte) {
	h.mouseX, h.mouseY, h.mouseBtn = x, y, buttons
	h.mousePending = true
}

// RequestShutdown makes the next PumpEvents call report shutdown, as if a
// window close event had arrived.
func (h *HeadlessBackend) RequestShutdown() {
	h.shutdown = true
}

func (h *HeadlessBackend) PumpEvents() bool {
	return !h.shutdown
}

func (h *HeadlessBackend) PollKey() (byte, bool) {
	if len(h.pendingKeys) == 0 {
		return 0, false
	}
	b := h.pendingKeys[0]
	h.pendingKeys = h.pendingKeys[1:]
	return b, true
}

func (h *HeadlessBackend) PollMouse() (uint16, uint16, byte, bool) {
	if !h.mousePending {
		return 0, 0, 0, false
	}
	h.mousePending = false
	return h.mouseX, h.mouseY, h.mouseBtn, true
}

func (h *HeadlessBackend) DrawPixel(x, y int, color byte) {
	h.FB.SetPixel(x, y, color)
}

func (h *HeadlessBackend) DrawLine(x1, y1, x2, y2 int, color byte) {
	h.FB.DrawLine(x1, y1, x2, y2, color)
}

func (h *HeadlessBackend) FillRect(x, y, w, h2 int, color byte) {
	h.FB.FillRect(x, y, w, h2, color)
}

func (h *HeadlessBackend) Refresh() {
	atomic.AddUint64(&h.refreshCount, 1)
}

func (h *HeadlessBackend) RefreshCount() uint64 {
	return atomic.LoadUint64(&h.refreshCount)
}

func (h *HeadlessBackend) PrintChar(c byte) {
	h.Stdout.WriteByte(c)
}

func (h *HeadlessBackend) Tone(freqHz, durationMs int) {
	// No audio device in the headless backend; accepted and ignored.
}

var _ Backend = (*HeadlessBackend)(nil)
