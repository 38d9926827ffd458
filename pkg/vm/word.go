// Package vm implements the 16-bit script virtual machine.
//
// The architecture is a fixed-width register machine closely related to
// the RiSC-16 teaching ISA: eight 16-bit registers per thread (r0 hard
// wired to zero), a flat 128 KiB memory shared by two cooperating
// threads, and eight opcodes packed into a single 16-bit instruction
// word. There are no decode faults: every 16-bit pattern is a legal
// instruction, and the only way a script "fails" is by raising a
// failure interrupt or by running out of its tick budget.
//
// Instruction format
//
// Every instruction is one 16-bit word. The top 3 bits are the
// opcode; the remaining 13 bits are format dependent:
//
//	add  a,b,c    000 AAA BBB 0000 CCC
//	addi a,b,i7   001 AAA BBB IIIIIII
//	nand a,b,c    010 AAA BBB 0000 CCC
//	lui  a,i10    011 AAA IIIIIIIIII
//	sw   a,b,i7   100 AAA BBB IIIIIII
//	lw   a,b,i7   101 AAA BBB IIIIIII
//	beq  a,b,i7   110 AAA BBB IIIIIII
//	jalr a,b      111 AAA BBB 0000000
//	irq  kind     111 000 KKK 0000001
//
// irq shares its opcode with jalr; it is distinguished by the low 7
// bits being exactly 0b0000001 *and* the destination field being
// 0b000. Any other word with opcode 0b111 is a regular jalr, even one
// whose low bit happens to be set for other reasons.
package vm

// Word is the VM's 16-bit atomic unit: registers, memory cells, and
// instructions are all one Word wide. Arithmetic on Word wraps modulo
// 2^16 by virtue of Go's uint16 overflow semantics.
type Word uint16

// SignExtend7 sign-extends the low 7 bits of v, treating bit 6 as the
// sign bit, and returns the result as a Word (i.e. wrapped mod 2^16).
func SignExtend7(v Word) Word {
	v &= 0x7F
	if v&0x40 != 0 {
		v |= 0xFF80
	}
	return v
}

// Signed7Range reports whether delta fits in a 7-bit two's complement
// immediate, i.e. delta in [-64, 63].
func Signed7Range(delta int32) bool {
	return delta >= -64 && delta <= 63
}

// EncodeImm7 packs a signed value known to satisfy Signed7Range into
// the low 7 bits of a Word (bits 6..0).
func EncodeImm7(delta int32) Word {
	return Word(delta) & 0x7F
}
