package asm

import (
	"bytes"
	"testing"

	"github.com/ked1108/KXN/vm"
)

func TestAssembleSimpleProgram(t *testing.T) {
	src := `
; push two numbers and add them
PUSH 7
PUSH 5
ADD
HALT
`
	image, diags, err := Assemble(src)
	if err != nil {
		t.Fatalf("unexpected error: %v, diags=%v", err, diags)
	}
	want := []byte{
		byte(vm.PUSH), 7,
		byte(vm.PUSH), 5,
		byte(vm.ADD),
		byte(vm.HALT),
	}
	if !bytes.Equal(image, want) {
		t.Fatalf("want %v, got %v", want, image)
	}
}

func TestAssembleHexLiteral(t *testing.T) {
	src := "PUSH 0xFF\nHALT\n"
	image, _, err := Assemble(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if image[1] != 0xFF {
		t.Fatalf("want 0xFF immediate, got 0x%X", image[1])
	}
}

func TestAssembleForwardLabelReference(t *testing.T) {
	src := `
JMP done
PUSH 1
done:
HALT
`
	image, _, err := Assemble(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// JMP is at offset 0, operand at 1-2, target is the HALT after the
	// skipped PUSH: offset 3(JMP) + 2(PUSH imm) = 5.
	wantTarget := uint16(5)
	gotTarget := uint16(image[1]) | uint16(image[2])<<8
	if gotTarget != wantTarget {
		t.Fatalf("want patched JMP target %d, got %d", wantTarget, gotTarget)
	}
	if vm.Opcode(image[5]) != vm.HALT {
		t.Fatalf("want HALT at patched target, got opcode 0x%X", image[5])
	}
}

func TestAssembleBackwardLabelReference(t *testing.T) {
	src := `
loop:
PUSH 1
JNZ loop
HALT
`
	image, _, err := Assemble(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// loop: at address 0. PUSH 1 is 2 bytes (0,1). JNZ is at address 2,
	// its 2-byte operand should point back to 0.
	target := uint16(image[3]) | uint16(image[4])<<8
	if target != 0 {
		t.Fatalf("want JNZ to patch back to address 0, got %d", target)
	}
}

func TestAssembleUndefinedLabelIsFatal(t *testing.T) {
	src := "JMP nowhere\nHALT\n"
	_, diags, err := Assemble(src)
	if err == nil {
		t.Fatal("want an error for an undefined label")
	}
	found := false
	for _, d := range diags {
		if d.Fatal {
			found = true
		}
	}
	if !found {
		t.Fatalf("want a fatal diagnostic, got %v", diags)
	}
}

func TestAssembleUnknownMnemonicWarns(t *testing.T) {
	src := "FROBNICATE\nHALT\n"
	_, diags, err := Assemble(src)
	if err != nil {
		t.Fatalf("an unknown-mnemonic line alone should not be fatal, got %v", err)
	}
	if len(diags) == 0 {
		t.Fatal("want a diagnostic for the unknown mnemonic")
	}
}

func TestSysIsAliasForIO(t *testing.T) {
	src := "SYS 0x01\nHALT\n"
	image, _, err := Assemble(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vm.Opcode(image[0]) != vm.IO {
		t.Fatalf("want SYS to assemble to the IO opcode, got 0x%X", image[0])
	}
}

func TestCommentsAndBlankLinesIgnored(t *testing.T) {
	src := "\n; a comment\n\nHALT ; trailing comment\n\n"
	image, _, err := Assemble(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(image, []byte{byte(vm.HALT)}) {
		t.Fatalf("want just HALT, got %v", image)
	}
}

func TestDisassembleRoundTrip(t *testing.T) {
	src := "PUSH 7\nPUSH 5\nADD\nHALT\n"
	image, _, err := Assemble(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	instrs := Disassemble(image)
	if len(instrs) != 4 {
		t.Fatalf("want 4 decoded instructions, got %d", len(instrs))
	}

	reassembled, _, err := Assemble(instrsToSource(instrs))
	if err != nil {
		t.Fatalf("unexpected error reassembling: %v", err)
	}
	if !bytes.Equal(reassembled, image) {
		t.Fatalf("round-trip mismatch: want %v, got %v", image, reassembled)
	}
}

func instrsToSource(instrs []Instruction) string {
	var b bytes.Buffer
	for _, ins := range instrs {
		b.WriteString(ins.Text())
		b.WriteByte('\n')
	}
	return b.String()
}
