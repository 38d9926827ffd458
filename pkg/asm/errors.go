// Package asm implements the streaming assembler for the 16-bit script
// VM in github.com/hackchain/scriptvm/pkg/vm.
//
// Unlike a text assembler, the input here is a sequence of Go method
// calls made in source order — there is no higher-level syntax above
// the raw instruction encoder. Labels are resolved as they are bound:
// a forward reference reserves a placeholder word (or, for a far jump,
// three) and records a patch site; binding the label walks its patch
// sites and overwrites the reserved words in place. There is no cyclic
// ownership between labels and the buffer they patch — the buffer is a
// plain slice indexed by position, and each label owns a list of
// positions into it.
package asm

import "errors"

// All assembler errors are fatal to assembly: none of them can reach
// the VM.
var (
	// ErrImmediateOutOfRange is returned when an immediate does not fit
	// the field width of the instruction being encoded (addi/sw/lw/beq:
	// 7 bits signed; lui/movi: 10 or 16 bits unsigned).
	ErrImmediateOutOfRange = errors.New("asm: immediate out of range")

	// ErrUnknownRegister is returned for a register index outside r0..r7.
	ErrUnknownRegister = errors.New("asm: unknown register")

	// ErrUnknownIRQKind is returned for an irq kind outside {success,
	// yield, failure}.
	ErrUnknownIRQKind = errors.New("asm: unknown irq kind")

	// ErrShortJumpOutOfRange is returned when a label binds too far
	// from a pending jmp() site for the resulting beq delta to fit in
	// 7 signed bits.
	ErrShortJumpOutOfRange = errors.New("asm: short jump delta out of range")

	// ErrLabelUnbound is returned by Bytes if any label created via
	// NewLabel was never bound.
	ErrLabelUnbound = errors.New("asm: label never bound")

	// ErrTooManyInstructions is returned by Bytes if the program has
	// more than vm.OutputMaxWords words, the size of one script region.
	ErrTooManyInstructions = errors.New("asm: too many instructions")
)
