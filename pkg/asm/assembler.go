package asm

import (
	"fmt"

	"github.com/hackchain/scriptvm/pkg/vm"
)

// Assembler accumulates a 16-bit instruction stream word by word. Its
// methods are meant to be called directly from Go in the order the
// instructions should appear — there is no intermediate text syntax.
type Assembler struct {
	words   []vm.Word
	errs    []error
	labels  []*Label
	pending map[*Label][]patchSite
}

// New creates an empty Assembler.
func New() *Assembler {
	return &Assembler{pending: make(map[*Label][]patchSite)}
}

func (a *Assembler) fail(err error) {
	a.errs = append(a.errs, err)
}

func (a *Assembler) checkReg(r int) bool {
	if r < 0 || r > 7 {
		a.fail(fmt.Errorf("%w: r%d", ErrUnknownRegister, r))
		return false
	}
	return true
}

func (a *Assembler) checkImm7(imm int32) bool {
	if !signed7Range(imm) {
		a.fail(fmt.Errorf("%w: %d does not fit in 7 signed bits", ErrImmediateOutOfRange, imm))
		return false
	}
	return true
}

func signed7Range(v int32) bool {
	return vm.Signed7Range(v)
}

// --- raw instruction encoders, shared with labels.go's patch path ---

func encodeRRR(op vm.Opcode, ra, rb, rc int) vm.Word {
	return vm.Word(op)<<13 | vm.Word(ra)<<10 | vm.Word(rb)<<7 | vm.Word(rc)&0b111
}

func encodeRRI(op vm.Opcode, ra, rb int, imm7 int32) vm.Word {
	return vm.Word(op)<<13 | vm.Word(ra)<<10 | vm.Word(rb)<<7 | vm.EncodeImm7(imm7)
}

func encodeAdd(ra, rb, rc int) vm.Word   { return encodeRRR(vm.OpAdd, ra, rb, rc) }
func encodeNand(ra, rb, rc int) vm.Word  { return encodeRRR(vm.OpNand, ra, rb, rc) }
func encodeAddi(ra, rb int, i7 int32) vm.Word { return encodeRRI(vm.OpAddi, ra, rb, i7) }
func encodeSw(ra, rb int, i7 int32) vm.Word   { return encodeRRI(vm.OpSw, ra, rb, i7) }
func encodeLw(ra, rb int, i7 int32) vm.Word   { return encodeRRI(vm.OpLw, ra, rb, i7) }
func encodeBeq(ra, rb int, i7 int32) vm.Word  { return encodeRRI(vm.OpBeq, ra, rb, i7) }

func encodeLui(ra int, imm10 uint16) vm.Word {
	return vm.Word(vm.OpLui)<<13 | vm.Word(ra)<<10 | vm.Word(imm10)&0x3FF
}

func encodeJalr(ra, rb int) vm.Word {
	return vm.Word(vm.OpJalr)<<13 | vm.Word(ra)<<10 | vm.Word(rb)<<7
}

func encodeIrq(kind vm.IRQKind) vm.Word {
	return vm.Word(vm.OpJalr)<<13 | vm.Word(kind)<<7 | 0b0000001
}

// --- public emitters ---

// Add emits `add ra, rb, rc`: R[ra] <- R[rb] + R[rc].
func (a *Assembler) Add(ra, rb, rc int) {
	if !a.checkReg(ra) || !a.checkReg(rb) || !a.checkReg(rc) {
		return
	}
	a.words = append(a.words, encodeAdd(ra, rb, rc))
}

// Addi emits `addi ra, rb, imm7`: R[ra] <- R[rb] + sext(imm7).
func (a *Assembler) Addi(ra, rb int, imm7 int32) {
	if !a.checkReg(ra) || !a.checkReg(rb) || !a.checkImm7(imm7) {
		return
	}
	a.words = append(a.words, encodeAddi(ra, rb, imm7))
}

// Nand emits `nand ra, rb, rc`: R[ra] <- ~(R[rb] & R[rc]).
func (a *Assembler) Nand(ra, rb, rc int) {
	if !a.checkReg(ra) || !a.checkReg(rb) || !a.checkReg(rc) {
		return
	}
	a.words = append(a.words, encodeNand(ra, rb, rc))
}

// Lui emits `lui ra, imm10`: R[ra] <- imm10 << 6.
func (a *Assembler) Lui(ra int, imm10 uint16) {
	if !a.checkReg(ra) {
		return
	}
	if imm10 > 0x3FF {
		a.fail(fmt.Errorf("%w: lui immediate %d exceeds 10 bits", ErrImmediateOutOfRange, imm10))
		return
	}
	a.words = append(a.words, encodeLui(ra, imm10))
}

// Sw emits `sw ra, rb, imm7`: mem[R[rb] + sext(imm7)] <- R[ra].
func (a *Assembler) Sw(ra, rb int, imm7 int32) {
	if !a.checkReg(ra) || !a.checkReg(rb) || !a.checkImm7(imm7) {
		return
	}
	a.words = append(a.words, encodeSw(ra, rb, imm7))
}

// Lw emits `lw ra, rb, imm7`: R[ra] <- mem[R[rb] + sext(imm7)].
func (a *Assembler) Lw(ra, rb int, imm7 int32) {
	if !a.checkReg(ra) || !a.checkReg(rb) || !a.checkImm7(imm7) {
		return
	}
	a.words = append(a.words, encodeLw(ra, rb, imm7))
}

// Beq emits a direct (already-resolved-offset) `beq ra, rb, imm7`. Use
// Jmp for a symbolic unconditional short jump instead.
func (a *Assembler) Beq(ra, rb int, imm7 int32) {
	if !a.checkReg(ra) || !a.checkReg(rb) || !a.checkImm7(imm7) {
		return
	}
	a.words = append(a.words, encodeBeq(ra, rb, imm7))
}

// Jalr emits `jalr ra, rb`: R[ra] <- PC+1; PC <- R[rb]. Passing ra=0
// discards the return address, giving an unconditional indirect jump.
func (a *Assembler) Jalr(ra, rb int) {
	if !a.checkReg(ra) || !a.checkReg(rb) {
		return
	}
	a.words = append(a.words, encodeJalr(ra, rb))
}

// Irq emits the irq pseudo-instruction for the given kind, suspending
// the executing thread with that terminal interrupt.
func (a *Assembler) Irq(kind vm.IRQKind) {
	switch kind {
	case vm.IRQSuccess, vm.IRQYield, vm.IRQFailure:
		a.words = append(a.words, encodeIrq(kind))
	default:
		a.fail(fmt.Errorf("%w: %d", ErrUnknownIRQKind, kind))
	}
}

// Movi emits the two-instruction `lui; addi` sequence that loads the
// full 16-bit immediate imm16 into ra: `lui ra, imm16>>6` followed by
// `addi ra, ra, imm16&0x3f`.
func (a *Assembler) Movi(ra int, imm16 uint16) {
	if !a.checkReg(ra) {
		return
	}
	hi, lo := splitImm16(imm16)
	a.words = append(a.words, encodeLui(ra, hi), encodeAddi(ra, ra, int32(lo)))
}

// Nop emits `add r0, r0, r0`, a genuine no-op since r0 discards writes.
func (a *Assembler) Nop() {
	a.words = append(a.words, encodeAdd(0, 0, 0))
}

// Bytes renders the assembled program as a big-endian byte stream. It
// fails if any label created via NewLabel was never bound, or if any
// emitter call recorded an error.
func (a *Assembler) Bytes() ([]byte, error) {
	for _, l := range a.labels {
		if !l.bound {
			a.fail(ErrLabelUnbound)
		}
	}
	if len(a.words) > vm.OutputMaxWords {
		a.fail(fmt.Errorf("%w: %d words exceeds the %d-word script region", ErrTooManyInstructions, len(a.words), vm.OutputMaxWords))
	}
	if len(a.errs) > 0 {
		return nil, fmt.Errorf("asm: assembly failed with %d error(s): %w", len(a.errs), a.errs[0])
	}
	out := make([]byte, 0, len(a.words)*2)
	for _, w := range a.words {
		out = append(out, byte(w>>8), byte(w))
	}
	return out, nil
}

// Words exposes the raw emitted words, mainly for tests and for
// round-tripping through vm.Disassemble without a byte-slice hop.
func (a *Assembler) Words() []vm.Word {
	return append([]vm.Word(nil), a.words...)
}

// Len reports the number of words emitted so far — the PC the next
// emitted instruction would receive.
func (a *Assembler) Len() int {
	return len(a.words)
}
