//go:build !headless

// backend_ebiten.go - ebiten-backed GUI Backend: opens the logical
// 320x240 window (scaled x2 per spec.md §6), services DRAW_*/REFRESH,
// keyboard -> POLL_KEY/GET_KEY, mouse -> POLL_MOUSE/GET_MOUSE_*, and
// Ctrl+Shift+V clipboard paste into the same key queue. Grounded on the
// teacher's video_backend_ebiten.go end to end.

package hostio

import (
	"image"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"golang.design/x/clipboard"
	"golang.org/x/image/draw"
)

const windowScale = 2

// EbitenBackend renders KXN's 320x240 greyscale framebuffer into a
// window scaled up by windowScale, and turns keyboard/mouse/clipboard
// input into the byte-granular events the host-I/O dispatcher expects.
type EbitenBackend struct {
	fb Framebuffer

	mu     sync.RWMutex
	rgba   *image.RGBA // logical-size (320x240) source, rebuilt each frame
	window *ebiten.Image

	keys chan byte

	mouseX, mouseY uint16
	mouseButtons   byte
	mouseChanged   bool

	ready   chan struct{}
	readyOnce sync.Once
	running bool

	clipboardOnce sync.Once
	clipboardOK   bool

	tone toneDevice
}

// NewGUIBackend opens the KXN display window; it is the build-tag-
// independent entry point cmd/kxn calls for -backend=gui.
func NewGUIBackend() (Backend, error) {
	return NewEbitenBackend()
}

// NewEbitenBackend opens the KXN display window and starts the ebiten
// run loop in the background, returning once the first frame has drawn.
func NewEbitenBackend() (*EbitenBackend, error) {
	eb := &EbitenBackend{
		rgba:  image.NewRGBA(image.Rect(0, 0, FramebufferWidth, FramebufferHeight)),
		keys:  make(chan byte, 256),
		ready: make(chan struct{}),
	}
	eb.tone = newOtoTone()

	ebiten.SetWindowSize(FramebufferWidth*windowScale, FramebufferHeight*windowScale)
	ebiten.SetWindowTitle("KXN")
	ebiten.SetWindowResizable(true)
	ebiten.SetRunnableOnUnfocused(true)

	eb.running = true
	go func() {
		_ = ebiten.RunGame(eb)
		eb.running = false
	}()
	<-eb.ready
	return eb, nil
}

func (eb *EbitenBackend) PumpEvents() bool {
	return eb.running
}

func (eb *EbitenBackend) PollKey() (byte, bool) {
	select {
	case b := <-eb.keys:
		return b, true
	default:
		return 0, false
	}
}

func (eb *EbitenBackend) PollMouse() (uint16, uint16, byte, bool) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	if !eb.mouseChanged {
		return 0, 0, 0, false
	}
	eb.mouseChanged = false
	return eb.mouseX, eb.mouseY, eb.mouseButtons, true
}

func (eb *EbitenBackend) DrawPixel(x, y int, color byte) {
	eb.mu.Lock()
	eb.fb.SetPixel(x, y, color)
	eb.mu.Unlock()
}

func (eb *EbitenBackend) DrawLine(x1, y1, x2, y2 int, color byte) {
	eb.mu.Lock()
	eb.fb.DrawLine(x1, y1, x2, y2, color)
	eb.mu.Unlock()
}

func (eb *EbitenBackend) FillRect(x, y, w, h int, color byte) {
	eb.mu.Lock()
	eb.fb.FillRect(x, y, w, h, color)
	eb.mu.Unlock()
}

// Refresh is a no-op here: the ebiten run loop already redraws the
// window from the current framebuffer contents every tick. REFRESH's
// contract (flush framebuffer to display) is satisfied continuously.
func (eb *EbitenBackend) Refresh() {}

func (eb *EbitenBackend) PrintChar(c byte) {
	// The GUI backend has no console; PRINT_CHAR is only meaningful on
	// the terminal backend. Accepted and ignored here.
}

func (eb *EbitenBackend) Tone(freqHz, durationMs int) {
	eb.tone.Play(freqHz, durationMs)
}

// Close stops the run loop and calls the tone device's Close, which for
// the oto device releases nothing (the oto context stays open).
func (eb *EbitenBackend) Close() error {
	eb.running = false
	return eb.tone.Close()
}

// --- ebiten.Game implementation ---

func (eb *EbitenBackend) Update() error {
	if ebiten.IsWindowBeingClosed() || !eb.running {
		return ebiten.Termination
	}

	for _, r := range ebiten.AppendInputChars(nil) {
		if r > 0 && r <= 0xFF {
			eb.emitKey(byte(r))
		}
	}
	for key, b := range specialKeyBytes {
		if inpututil.IsKeyJustPressed(key) {
			eb.emitKey(b)
		}
	}

	ctrl := ebiten.IsKeyPressed(ebiten.KeyControlLeft) || ebiten.IsKeyPressed(ebiten.KeyControlRight)
	shift := ebiten.IsKeyPressed(ebiten.KeyShiftLeft) || ebiten.IsKeyPressed(ebiten.KeyShiftRight)
	if ctrl && shift && inpututil.IsKeyJustPressed(ebiten.KeyV) {
		eb.pasteClipboard()
	}

	cx, cy := ebiten.CursorPosition()
	lx, ly := cx/windowScale, cy/windowScale
	var buttons byte
	if ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) {
		buttons |= 0x01
	}
	if ebiten.IsMouseButtonPressed(ebiten.MouseButtonRight) {
		buttons |= 0x02
	}
	if ebiten.IsMouseButtonPressed(ebiten.MouseButtonMiddle) {
		buttons |= 0x04
	}
	eb.mu.Lock()
	nx, ny := uint16(clampInt(lx, 0, FramebufferWidth-1)), uint16(clampInt(ly, 0, FramebufferHeight-1))
	if nx != eb.mouseX || ny != eb.mouseY || buttons != eb.mouseButtons {
		eb.mouseX, eb.mouseY, eb.mouseButtons = nx, ny, buttons
		eb.mouseChanged = true
	}
	eb.mu.Unlock()

	return nil
}

func (eb *EbitenBackend) emitKey(b byte) {
	select {
	case eb.keys <- b:
	default:
	}
}

var specialKeyBytes = map[ebiten.Key]byte{
	ebiten.KeyEnter:      '\n',
	ebiten.KeyNumpadEnter: '\n',
	ebiten.KeyBackspace:  0x08,
	ebiten.KeyTab:        '\t',
	ebiten.KeyEscape:     0x1B,
}

func (eb *EbitenBackend) pasteClipboard() {
	eb.clipboardOnce.Do(func() {
		eb.clipboardOK = clipboard.Init() == nil
	})
	if !eb.clipboardOK {
		return
	}
	data := clipboard.Read(clipboard.FmtText)
	if len(data) > 4096 {
		data = data[:4096]
	}
	for _, b := range data {
		eb.emitKey(b)
	}
}

func (eb *EbitenBackend) Draw(screen *ebiten.Image) {
	eb.mu.Lock()
	for i, grey := range eb.fb.Pixels {
		rgba := Greyscale(grey)
		off := i * 4
		eb.rgba.Pix[off+0] = byte(rgba >> 16)
		eb.rgba.Pix[off+1] = byte(rgba >> 8)
		eb.rgba.Pix[off+2] = byte(rgba)
		eb.rgba.Pix[off+3] = byte(rgba >> 24)
	}
	eb.mu.Unlock()

	if eb.window == nil {
		eb.window = ebiten.NewImage(screen.Bounds().Dx(), screen.Bounds().Dy())
	}
	dst := image.NewRGBA(eb.window.Bounds())
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), eb.rgba, eb.rgba.Bounds(), draw.Over, nil)
	eb.window.WritePixels(dst.Pix)
	screen.DrawImage(eb.window, nil)

	eb.readyOnce.Do(func() { close(eb.ready) })
}

func (eb *EbitenBackend) Layout(outsideWidth, outsideHeight int) (int, int) {
	return FramebufferWidth * windowScale, FramebufferHeight * windowScale
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

var _ Backend = (*EbitenBackend)(nil)
