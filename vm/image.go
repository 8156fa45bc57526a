// image.go - the 64 KiB byte-addressable machine image

package vm

const MemorySize = 1 << 16 // 65536 bytes, addresses 0x0000..0xFFFF

// Image is the machine's flat memory: code, data, and the operand stack
// all live in this one array, per spec.md §3.
type Image [MemorySize]byte

// Load zeroes the image and copies prog to offset 0. A prog longer than
// MemorySize is truncated to its first MemorySize bytes; neither
// asm.Assemble nor cmd/kxn checks the length before Load.
func (m *Image) Load(prog []byte) {
	for i := range m {
		m[i] = 0
	}
	copy(m[:], prog)
}

// ReadByte returns memory[addr] and true, or false if addr is out of bounds.
func (m *Image) ReadByte(addr uint32) (byte, bool) {
	if addr >= MemorySize {
		return 0, false
	}
	return m[addr], true
}

// WriteByte writes memory[addr] = value, or returns false if out of bounds.
func (m *Image) WriteByte(addr uint32, value byte) bool {
	if addr >= MemorySize {
		return false
	}
	m[addr] = value
	return true
}

// ReadWord reads a little-endian 16-bit value at addr. Both addr and
// addr+1 must be in bounds, per spec.md §7's INVALID_ADDRESS rule for
// straddling reads. Used by the engine's operand fetch; no opcode writes a
// 16-bit word directly (STORE/STORE_IND are single-byte), so there is no
// WriteWord counterpart.
func (m *Image) ReadWord(addr uint32) (uint16, bool) {
	if addr+1 >= MemorySize {
		return 0, false
	}
	return uint16(m[addr]) | uint16(m[addr+1])<<8, true
}
