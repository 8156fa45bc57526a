// hostio.go - the host-I/O dispatcher that bridges the pure engine to a
// framebuffer/input backend through a narrow opaque handle. spec.md §4.2.

package hostio

import "github.com/ked1108/KXN/vm"

// Host-I/O operation ids (the op8 operand of opcode IO/SYS). spec.md §4.2.
const (
	OpExit       = 0x00
	OpPrintChar  = 0x01
	OpReadChar   = 0x02
	OpDrawPixel  = 0x10
	OpDrawLine   = 0x11
	OpFillRect   = 0x12
	OpRefresh    = 0x13
	OpPollKey    = 0x20
	OpGetKey     = 0x21
	OpPollMouse  = 0x22
	OpGetMouseX  = 0x23
	OpGetMouseY  = 0x24
	OpGetMouseB  = 0x25
	OpTone       = 0x30 // SPEC_FULL.md §5 supplemental op
)

var _ vm.HostContext = (*Dispatcher)(nil)

// Backend is the concrete driver a Dispatcher wraps: a GUI window, a raw
// terminal, or an in-memory test double. It knows nothing of the engine's
// stack or opcodes — only how to pump its own events and render/read.
type Backend interface {
	// PumpEvents services the backend's event source. It returns false
	// to request shutdown (e.g. window close).
	PumpEvents() bool
	// PollKey returns a newly latched key byte, if any, since the last
	// call. Backends with no keyboard input always return ok=false.
	PollKey() (b byte, ok bool)
	// PollMouse returns the current mouse position/buttons if they
	// changed since the last call.
	PollMouse() (x, y uint16, buttons byte, changed bool)
	DrawPixel(x, y int, color byte)
	DrawLine(x1, y1, x2, y2 int, color byte)
	FillRect(x, y, w, h int, color byte)
	Refresh()
	PrintChar(c byte)
	// Tone plays (or silently ignores, on backends with no audio
	// device) a square wave at freqHz for durationMs.
	Tone(freqHz, durationMs int)
}

// Dispatcher implements vm.HostContext, holding the host-I/O context
// state spec.md §3 describes (latest key + availability, mouse x/y/
// buttons + event flag, waiting-for-input) on top of a pluggable Backend.
type Dispatcher struct {
	backend Backend

	lastKey      byte
	keyAvailable bool

	mouseX, mouseY  uint16
	mouseButtons    byte
	mouseEventLatch bool

	waitingForInput bool
}

// NewDispatcher wraps backend in a Dispatcher ready to drive an Engine.
func NewDispatcher(backend Backend) *Dispatcher {
	return &Dispatcher{backend: backend}
}

// ProcessEvents satisfies vm.HostContext: pumps the backend, then latches
// any newly available key or mouse state into the dispatcher's own
// context fields, per spec.md §5's ordering guarantees (input latches
// are visible by the iteration following their arrival).
func (d *Dispatcher) ProcessEvents() bool {
	if !d.backend.PumpEvents() {
		return false
	}
	if b, ok := d.backend.PollKey(); ok {
		d.lastKey = b
		d.keyAvailable = true
	}
	if x, y, buttons, changed := d.backend.PollMouse(); changed {
		d.mouseX, d.mouseY, d.mouseButtons = x, y, buttons
		d.mouseEventLatch = true
	}
	return true
}

// IsWaitingForInput satisfies vm.HostContext. Once a key has latched, this
// must report false even though readChar hasn't cleared waitingForInput
// yet — otherwise Run's "skip fetch while waiting" gate (vm/engine.go)
// never lets the engine re-enter READ_CHAR to consume the key, and
// waitingForInput itself never gets cleared. spec.md §4.2 step 3 requires
// the next iteration to re-enter READ_CHAR once a key is available.
func (d *Dispatcher) IsWaitingForInput() bool {
	return d.waitingForInput && !d.keyAvailable
}

// HandleIO satisfies vm.HostContext, servicing opID against the engine's
// operand stack per the op table in spec.md §4.2 and SPEC_FULL.md §5.
func (d *Dispatcher) HandleIO(e *vm.Engine, opID byte) vm.Fault {
	switch opID {
	case OpExit:
		// The engine forces HALT for op8==0x00 regardless of our
		// return value (spec.md §4.1's IO dispatch rule), so there is
		// nothing to do here beyond letting the engine see a clean
		// result.
		return vm.OK

	case OpPrintChar:
		c, ok := e.Pop()
		if !ok {
			return e.Fault
		}
		d.backend.PrintChar(c)
		return vm.OK

	case OpReadChar:
		return d.readChar(e)

	case OpDrawPixel:
		color, ok := e.Pop()
		if !ok {
			return e.Fault
		}
		y, ok := e.Pop()
		if !ok {
			return e.Fault
		}
		x, ok := e.Pop()
		if !ok {
			return e.Fault
		}
		d.backend.DrawPixel(int(x), int(y), color)
		return vm.OK

	case OpDrawLine:
		color, ok := e.Pop()
		if !ok {
			return e.Fault
		}
		y2, ok := e.Pop()
		if !ok {
			return e.Fault
		}
		x2, ok := e.Pop()
		if !ok {
			return e.Fault
		}
		y1, ok := e.Pop()
		if !ok {
			return e.Fault
		}
		x1, ok := e.Pop()
		if !ok {
			return e.Fault
		}
		d.backend.DrawLine(int(x1), int(y1), int(x2), int(y2), color)
		return vm.OK

	case OpFillRect:
		color, ok := e.Pop()
		if !ok {
			return e.Fault
		}
		h, ok := e.Pop()
		if !ok {
			return e.Fault
		}
		w, ok := e.Pop()
		if !ok {
			return e.Fault
		}
		y, ok := e.Pop()
		if !ok {
			return e.Fault
		}
		x, ok := e.Pop()
		if !ok {
			return e.Fault
		}
		d.backend.FillRect(int(x), int(y), int(w), int(h), color)
		return vm.OK

	case OpRefresh:
		d.backend.Refresh()
		return vm.OK

	case OpPollKey:
		if d.keyAvailable {
			e.Push(1)
		} else {
			e.Push(0)
		}
		return vm.OK

	case OpGetKey:
		e.Push(d.lastKey)
		d.keyAvailable = false
		return vm.OK

	case OpPollMouse:
		if d.mouseEventLatch {
			e.Push(1)
		} else {
			e.Push(0)
		}
		return vm.OK

	case OpGetMouseX:
		e.Push(byte(d.mouseX))      // lo
		e.Push(byte(d.mouseX >> 8)) // hi
		return vm.OK

	case OpGetMouseY:
		e.Push(byte(d.mouseY))
		e.Push(byte(d.mouseY >> 8))
		return vm.OK

	case OpGetMouseB:
		e.Push(d.mouseButtons)
		d.mouseEventLatch = false
		return vm.OK

	case OpTone:
		durationTicks, ok := e.Pop()
		if !ok {
			return e.Fault
		}
		freqLo, ok := e.Pop()
		if !ok {
			return e.Fault
		}
		d.backend.Tone(int(freqLo)*10, int(durationTicks)*16)
		return vm.OK

	default:
		return vm.HOST_IO
	}
}

// readChar implements the cooperative blocking-read protocol from
// spec.md §4.2: on first dispatch with no key available, latch
// waiting-for-input and rewind PC by one instruction (the IO opcode plus
// its 1-byte op id) so the engine re-enters this same instruction next
// iteration instead of fetching past it.
func (d *Dispatcher) readChar(e *vm.Engine) vm.Fault {
	if !d.keyAvailable {
		if !d.waitingForInput {
			d.waitingForInput = true
			e.PC -= 2
		}
		return vm.OK
	}
	e.Push(d.lastKey)
	d.keyAvailable = false
	d.waitingForInput = false
	return vm.OK
}
