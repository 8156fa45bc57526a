package hostio

import (
	"testing"

	"github.com/ked1108/KXN/vm"
)

func newTestEngine() (*vm.Engine, *HeadlessBackend, *Dispatcher) {
	e := vm.NewEngine()
	e.Init(nil)
	backend := NewHeadlessBackend()
	d := NewDispatcher(backend)
	return e, backend, d
}

func TestPrintCharDispatch(t *testing.T) {
	e, backend, d := newTestEngine()
	e.Push('K')
	if fault := d.HandleIO(e, OpPrintChar); fault != vm.OK {
		t.Fatalf("want OK, got %v", fault)
	}
	if backend.Stdout.String() != "K" {
		t.Fatalf("want stdout %q, got %q", "K", backend.Stdout.String())
	}
}

func TestReadCharBlocksThenLatches(t *testing.T) {
	e, backend, d := newTestEngine()
	e.PC = 10 // arbitrary; readChar rewinds it by 2 on first blocking dispatch

	if fault := d.HandleIO(e, OpReadChar); fault != vm.OK {
		t.Fatalf("want OK, got %v", fault)
	}
	if !d.IsWaitingForInput() {
		t.Fatal("want waitingForInput after first call with no key")
	}
	if e.PC != 8 {
		t.Fatalf("want PC rewound to 8, got %d", e.PC)
	}

	// A second dispatch with still no key must not rewind PC again.
	if fault := d.HandleIO(e, OpReadChar); fault != vm.OK {
		t.Fatalf("want OK, got %v", fault)
	}
	if e.PC != 8 {
		t.Fatalf("want PC to stay at 8 on repeated wait, got %d", e.PC)
	}

	backend.FeedKey('Q')
	d.ProcessEvents()
	if fault := d.HandleIO(e, OpReadChar); fault != vm.OK {
		t.Fatalf("want OK, got %v", fault)
	}
	if d.IsWaitingForInput() {
		t.Fatal("want waitingForInput cleared once a key arrives")
	}
	v, ok := e.Pop()
	if !ok || v != 'Q' {
		t.Fatalf("want 'Q' pushed, got %d ok=%v", v, ok)
	}
}

func TestDrawPixelPopOrder(t *testing.T) {
	e, backend, d := newTestEngine()
	// HandleIO pops color, y, x in that order, so push x, y, color.
	e.Push(10)  // x
	e.Push(20)  // y
	e.Push(0x7) // color
	if fault := d.HandleIO(e, OpDrawPixel); fault != vm.OK {
		t.Fatalf("want OK, got %v", fault)
	}
	idx := 20*FramebufferWidth + 10
	if backend.FB.Pixels[idx] != 0x7 {
		t.Fatalf("want pixel (10,20)=0x7, got 0x%X", backend.FB.Pixels[idx])
	}
}

func TestFillRectClipsSilently(t *testing.T) {
	e, backend, d := newTestEngine()
	e.Push(uint16ToByte(FramebufferWidth - 2)) // x
	e.Push(0)                                  // y
	e.Push(10)                                 // w (runs past right edge)
	e.Push(10)                                 // h
	e.Push(0xFF)                                // color
	if fault := d.HandleIO(e, OpFillRect); fault != vm.OK {
		t.Fatalf("want OK, got %v", fault)
	}
	// in-bounds pixel near the clipped edge should still be set
	idx := 0*FramebufferWidth + (FramebufferWidth - 1)
	if backend.FB.Pixels[idx] != 0xFF {
		t.Fatalf("want edge pixel filled, got 0x%X", backend.FB.Pixels[idx])
	}
}

func uint16ToByte(v int) byte { return byte(v) }

func TestPollKeyAndGetKey(t *testing.T) {
	e, backend, d := newTestEngine()
	backend.FeedKey('Z')
	d.ProcessEvents()

	if fault := d.HandleIO(e, OpPollKey); fault != vm.OK {
		t.Fatalf("want OK, got %v", fault)
	}
	v, _ := e.Pop()
	if v != 1 {
		t.Fatalf("want POLL_KEY to push 1 when a key is available, got %d", v)
	}

	if fault := d.HandleIO(e, OpGetKey); fault != vm.OK {
		t.Fatalf("want OK, got %v", fault)
	}
	v, _ = e.Pop()
	if v != 'Z' {
		t.Fatalf("want GET_KEY to push 'Z', got %d", v)
	}

	if fault := d.HandleIO(e, OpPollKey); fault != vm.OK {
		t.Fatalf("want OK, got %v", fault)
	}
	v, _ = e.Pop()
	if v != 0 {
		t.Fatalf("want POLL_KEY to push 0 once the key is consumed, got %d", v)
	}
}

func TestGetMouseXYByteOrder(t *testing.T) {
	e, backend, d := newTestEngine()
	backend.FeedMouse(0x0102, 0x0304, 0x01)
	d.ProcessEvents()

	if fault := d.HandleIO(e, OpGetMouseX); fault != vm.OK {
		t.Fatalf("want OK, got %v", fault)
	}
	hi, _ := e.Pop()
	lo, _ := e.Pop()
	if hi != 0x01 || lo != 0x02 {
		t.Fatalf("want mouse x hi=0x01 lo=0x02, got hi=0x%X lo=0x%X", hi, lo)
	}
}

func TestExitRequestsHalt(t *testing.T) {
	e, _, d := newTestEngine()
	if fault := d.HandleIO(e, OpExit); fault != vm.OK {
		t.Fatalf("want OK from HandleIO itself, got %v", fault)
	}
	// The engine (not the dispatcher) is responsible for forcing HALT on
	// opID==0x00; that contract is exercised in vm's own IO dispatch test.
}

func TestUnknownOpIsHostIOFault(t *testing.T) {
	e, _, d := newTestEngine()
	if fault := d.HandleIO(e, 0x99); fault != vm.HOST_IO {
		t.Fatalf("want HOST_IO for an unrecognised op id, got %v", fault)
	}
}

// delayedKeyBackend reveals a key only after a number of PumpEvents calls,
// modelling a real backend where a keypress arrives several Run iterations
// after a blocking READ_CHAR starts waiting. It forces a shutdown past
// maxCalls so a regression of the READ_CHAR/IsWaitingForInput deadlock
// fails the test instead of hanging it.
type delayedKeyBackend struct {
	calls       int
	revealAfter int
	maxCalls    int
	key         byte
	fed         bool
	printed     []byte
}

func (b *delayedKeyBackend) PumpEvents() bool {
	b.calls++
	return b.calls <= b.maxCalls
}

func (b *delayedKeyBackend) PollKey() (byte, bool) {
	if !b.fed && b.calls >= b.revealAfter {
		b.fed = true
		return b.key, true
	}
	return 0, false
}

func (b *delayedKeyBackend) PollMouse() (uint16, uint16, byte, bool) { return 0, 0, 0, false }
func (b *delayedKeyBackend) DrawPixel(x, y int, color byte)          {}
func (b *delayedKeyBackend) DrawLine(x1, y1, x2, y2 int, color byte) {}
func (b *delayedKeyBackend) FillRect(x, y, w, h int, color byte)     {}
func (b *delayedKeyBackend) Refresh()                                {}
func (b *delayedKeyBackend) Tone(freqHz, durationMs int)             {}
func (b *delayedKeyBackend) PrintChar(c byte) {
	b.printed = append(b.printed, c)
}

var _ Backend = (*delayedKeyBackend)(nil)

// TestReadCharThroughRun drives a real SYS READ_CHAR/PRINT_CHAR/EXIT
// program through Engine.Run with a Dispatcher, proving the blocking-read
// protocol resumes fetching and consumes the key once it latches instead
// of spinning forever in Run's IsWaitingForInput gate (vm/engine.go).
func TestReadCharThroughRun(t *testing.T) {
	backend := &delayedKeyBackend{revealAfter: 5, maxCalls: 1000, key: 'Q'}
	d := NewDispatcher(backend)

	img := []byte{
		byte(vm.IO), OpReadChar,
		byte(vm.IO), OpPrintChar,
		byte(vm.IO), OpExit,
	}
	e := vm.NewEngine()
	e.Init(img)

	fault := e.Run(d)
	if fault != vm.HALT {
		t.Fatalf("want HALT, got %v (backend saw %d PumpEvents calls)", fault, backend.calls)
	}
	if string(backend.printed) != "Q" {
		t.Fatalf("want printed %q, got %q", "Q", backend.printed)
	}
	if backend.calls < 5 {
		t.Fatalf("want the run to have actually waited across iterations, got %d PumpEvents calls", backend.calls)
	}
	if d.IsWaitingForInput() {
		t.Fatal("want waitingForInput cleared once the program has moved on")
	}
}
