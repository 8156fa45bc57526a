// assembler.go - two-pass label-resolving assembler for KXN mnemonic
// source. Grounded on the teacher's assembler/ie32asm.go (two-pass
// structure, per-line diagnostics) and assembler/ie64asm.go (cleaner
// separate label-collection vs. code-generation passes).
//
// An Assembler value is constructed fresh per invocation — no package-
// level symbol tables, per spec.md §9's "scope it to an Assembler value"
// guidance.

package asm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ked1108/KXN/vm"
)

const maxLabelLen = 63

// patchRef is one pending two-byte address patch, recorded during
// emission and resolved in pass two. spec.md §3's "reference list".
type patchRef struct {
	label string
	pos   uint16
	line  int
}

// Diagnostic is one per-line warning or error produced during assembly.
type Diagnostic struct {
	Line    int
	Message string
	Fatal   bool // unresolved or over-long label / malformed instruction vs. a warning
}

func (d Diagnostic) String() string {
	kind := "warning"
	if d.Fatal {
		kind = "error"
	}
	return fmt.Sprintf("line %d: %s: %s", d.Line, kind, d.Message)
}

// Assembler holds the per-run symbol table, reference list, and output
// buffer described in spec.md §3's Assembler state.
type Assembler struct {
	labels    map[string]uint16
	refs      []patchRef
	out       []byte
	mnemonics map[string]vm.Opcode
	diags     []Diagnostic
}

// New returns a fresh Assembler ready to assemble one source text.
func New() *Assembler {
	return &Assembler{
		labels:    make(map[string]uint16),
		mnemonics: vm.Mnemonics(),
	}
}

// Assemble runs both passes over source and returns the resulting image
// bytes plus any diagnostics. A non-nil error means at least one
// unresolved or over-long label or malformed line was found; an unknown
// mnemonic is only a warning (spec.md §4.3's "best
// effort output, non-zero exit" behaviour: the returned bytes are still
// the best-effort image with zero placeholders left in place).
func Assemble(source string) ([]byte, []Diagnostic, error) {
	a := New()
	return a.assemble(source)
}

func (a *Assembler) assemble(source string) ([]byte, []Diagnostic, error) {
	lines := strings.Split(source, "\n")

	// Pass one: collect label addresses by walking the source computing
	// instruction sizes without emitting bytes.
	pos := uint16(0)
	for i, raw := range lines {
		lineNo := i + 1
		stmt, label, ok := a.splitLabel(stripComment(raw))
		if !ok {
			continue
		}
		if label != "" {
			if len(label) > maxLabelLen {
				a.diag(lineNo, fmt.Sprintf("label %q exceeds %d characters", label, maxLabelLen), true)
			}
			a.labels[label] = pos
		}
		if stmt == "" {
			continue
		}
		size, err := a.instructionSize(stmt)
		if err != nil {
			a.diag(lineNo, err.Error(), false)
			continue
		}
		pos += size
	}

	// Pass two: re-walk, emitting real bytes and recording patches for
	// label operands.
	a.out = a.out[:0]
	a.refs = a.refs[:0]
	for i, raw := range lines {
		lineNo := i + 1
		stmt, _, ok := a.splitLabel(stripComment(raw))
		if !ok || stmt == "" {
			continue
		}
		if err := a.emit(lineNo, stmt); err != nil {
			// Pass one already warned about an unknown mnemonic; any
			// other emit failure is a malformed instruction and fatal.
			mnemonic, _ := splitMnemonic(stmt)
			if _, known := a.mnemonics[strings.ToUpper(mnemonic)]; known {
				a.diag(lineNo, err.Error(), true)
			}
		}
	}

	// Patch pass: resolve every recorded label reference.
	fatal := false
	for _, ref := range a.refs {
		addr, found := a.labels[ref.label]
		if !found {
			a.diag(ref.line, fmt.Sprintf("undefined label %q", ref.label), true)
			fatal = true
			continue
		}
		a.patchWord(ref.pos, addr)
	}
	for _, d := range a.diags {
		if d.Fatal {
			fatal = true
		}
	}

	if fatal {
		return a.out, a.diags, fmt.Errorf("assembly failed: see error diagnostics")
	}
	return a.out, a.diags, nil
}

func (a *Assembler) diag(line int, msg string, fatal bool) {
	a.diags = append(a.diags, Diagnostic{Line: line, Message: msg, Fatal: fatal})
}

// stripComment truncates raw at the first ';' and trims surrounding
// whitespace, per spec.md §4.3/§6.
func stripComment(raw string) string {
	if i := strings.IndexByte(raw, ';'); i >= 0 {
		raw = raw[:i]
	}
	return strings.TrimSpace(raw)
}

// splitLabel detects a leading "label:" token and returns the remaining
// instruction text (possibly empty), the label name (possibly empty),
// and whether this line has anything at all to process.
func (a *Assembler) splitLabel(line string) (stmt, label string, ok bool) {
	if line == "" {
		return "", "", false
	}
	fields := strings.Fields(line)
	first := fields[0]
	if strings.HasSuffix(first, ":") && isLabelName(first[:len(first)-1]) {
		label = first[:len(first)-1]
		rest := strings.TrimSpace(line[len(first):])
		return rest, label, true
	}
	return line, "", true
}

func isLabelName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z'):
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// instructionSize returns the byte length (opcode + operand) of a
// parsed, not-yet-emitted instruction line, for pass one's address
// bookkeeping.
func (a *Assembler) instructionSize(stmt string) (uint16, error) {
	mnemonic, _ := splitMnemonic(stmt)
	op, ok := a.mnemonics[strings.ToUpper(mnemonic)]
	if !ok {
		return 0, fmt.Errorf("unknown mnemonic %q", mnemonic)
	}
	return uint16(1 + op.OperandWidth()), nil
}

func splitMnemonic(stmt string) (mnemonic, operand string) {
	fields := strings.SplitN(stmt, " ", 2)
	mnemonic = fields[0]
	if len(fields) == 2 {
		operand = strings.TrimSpace(fields[1])
	}
	return
}

// emit appends the real bytes for one instruction line to a.out,
// recording a patch reference for any label operand.
func (a *Assembler) emit(line int, stmt string) error {
	mnemonicText, operandText := splitMnemonic(stmt)
	mnemonic := strings.ToUpper(mnemonicText)
	op, ok := a.mnemonics[mnemonic]
	if !ok {
		return fmt.Errorf("unknown mnemonic %q", mnemonicText)
	}

	a.out = append(a.out, byte(op))
	width := op.OperandWidth()
	if width == 0 {
		if operandText != "" {
			return fmt.Errorf("%s takes no operand", mnemonic)
		}
		return nil
	}
	if operandText == "" {
		return fmt.Errorf("%s requires an operand", mnemonic)
	}

	switch width {
	case 1:
		v, err := parseImmediate(operandText)
		if err != nil {
			return fmt.Errorf("%s: %w", mnemonic, err)
		}
		a.out = append(a.out, byte(v))
	case 2:
		if isOperandLabel(operandText) {
			pos := uint16(len(a.out))
			a.out = append(a.out, 0, 0)
			a.refs = append(a.refs, patchRef{label: operandText, pos: pos, line: line})
		} else {
			v, err := parseAddress(operandText)
			if err != nil {
				return fmt.Errorf("%s: %w", mnemonic, err)
			}
			a.out = append(a.out, byte(v), byte(v>>8))
		}
	}
	return nil
}

// isOperandLabel reports whether operand names a label reference: its
// first character is a letter or an underscore.
func isOperandLabel(operand string) bool {
	if operand == "" {
		return false
	}
	r := operand[0]
	return (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || r == '_'
}

func parseImmediate(text string) (uint8, error) {
	v, err := parseNumber(text)
	if err != nil {
		return 0, err
	}
	if v > 0xFF {
		return 0, fmt.Errorf("immediate %q out of 8-bit range", text)
	}
	return uint8(v), nil
}

func parseAddress(text string) (uint16, error) {
	v, err := parseNumber(text)
	if err != nil {
		return 0, err
	}
	if v > 0xFFFF {
		return 0, fmt.Errorf("address %q out of 16-bit range", text)
	}
	return uint16(v), nil
}

// parseNumber parses a 0x-prefixed hex literal or a decimal literal,
// per spec.md §4.3.
func parseNumber(text string) (uint64, error) {
	if strings.HasPrefix(text, "0x") || strings.HasPrefix(text, "0X") {
		return strconv.ParseUint(text[2:], 16, 32)
	}
	return strconv.ParseUint(text, 10, 32)
}

// patchWord overwrites the two bytes at pos with addr, low byte first,
// per spec.md §4.3's pass-two patching rule.
func (a *Assembler) patchWord(pos, addr uint16) {
	a.out[pos] = byte(addr)
	a.out[pos+1] = byte(addr >> 8)
}
