// disasm.go - opcode-table-driven disassembler, the inverse of
// Assemble for the assemble/disassemble round-trip property
// (spec.md §8 Property 5). Grounded on the teacher's
// debug_disasm_ie32.go table-driven mnemonic lookup.

package asm

import (
	"fmt"
	"strings"

	"github.com/ked1108/KXN/vm"
)

// Instruction is one decoded instruction: its address, opcode, and
// (if any) operand value.
type Instruction struct {
	Addr    uint16
	Op      vm.Opcode
	Operand uint16 // meaningful only when Op.OperandWidth() > 0
	Size    int
}

// Text renders an Instruction as one assembler source line, using a
// hex literal for any operand (round-tripping through Assemble yields
// the identical bytes, per spec.md §8 Property 5).
func (ins Instruction) Text() string {
	if ins.Op.OperandWidth() == 0 {
		return ins.Op.Name()
	}
	return fmt.Sprintf("%s 0x%X", ins.Op.Name(), ins.Operand)
}

// Disassemble walks image from address 0, decoding one instruction at a
// time until it runs out of bytes or hits an unrecognised opcode. It
// never executes anything: it is a static, linear decode, so a JMP
// target reached only through control flow still shows up on the next
// line in source order (the same limitation the teacher's own linear
// disassembler has).
func Disassemble(image []byte) []Instruction {
	var out []Instruction
	pos := 0
	for pos < len(image) {
		op := vm.Opcode(image[pos])
		if !op.Valid() {
			break
		}
		width := op.OperandWidth()
		if pos+1+width > len(image) {
			break
		}
		ins := Instruction{Addr: uint16(pos), Op: op, Size: 1 + width}
		switch width {
		case 1:
			ins.Operand = uint16(image[pos+1])
		case 2:
			ins.Operand = uint16(image[pos+1]) | uint16(image[pos+2])<<8
		}
		out = append(out, ins)
		pos += ins.Size
	}
	return out
}

// Listing renders a full disassembly as "addr: mnemonic operand" lines,
// one per instruction, for the kxn-asm -dis CLI flag.
func Listing(image []byte) string {
	var b strings.Builder
	for _, ins := range Disassemble(image) {
		fmt.Fprintf(&b, "%04X: %s\n", ins.Addr, ins.Text())
	}
	return b.String()
}
