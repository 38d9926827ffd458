package vm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackchain/scriptvm/pkg/vm"
)

func irqWord(kind vm.IRQKind) vm.Word {
	return vm.Word(0b111<<13) | vm.Word(kind)<<7 | 0b0000001
}

func beqWord(ra, rb int, imm7 int32) vm.Word {
	return vm.Word(vm.OpBeq)<<13 | vm.Word(ra)<<10 | vm.Word(rb)<<7 | vm.EncodeImm7(imm7)
}

func TestScenario1ImmediateSuccess(t *testing.T) {
	out := wordsToBytes(irqWord(vm.IRQSuccess))
	m := vm.NewVM([32]byte{}, out)
	verdict := m.Run(nil)
	assert.True(t, verdict)
	assert.True(t, m.T[0].State.IsSuccess())
	assert.Equal(t, vm.StateRunning, m.T[1].State, "T1 must never run when T0 finishes in pre-run")
}

func TestScenario2ImmediateFailure(t *testing.T) {
	out := wordsToBytes(irqWord(vm.IRQFailure))
	m := vm.NewVM([32]byte{}, out)
	verdict := m.Run(nil)
	assert.False(t, verdict)
	assert.Equal(t, vm.StateHaltedFailure, m.T[0].State)
}

func TestScenario3YieldIsALoss(t *testing.T) {
	out := wordsToBytes(irqWord(vm.IRQYield), irqWord(vm.IRQSuccess))
	m := vm.NewVM([32]byte{}, out)
	verdict := m.Run(nil)
	assert.False(t, verdict, "a yielded thread 0 is done but never a winner")
	assert.Equal(t, vm.StateYielded, m.T[0].State)
	assert.True(t, m.T[0].State.IsDone())
	assert.False(t, m.T[0].State.IsSuccess())
}

func TestScenario4TickExhaustion(t *testing.T) {
	// beq r0, r0, -1 at the output entry point: an infinite self-loop.
	out := wordsToBytes(beqWord(0, 0, -1))
	m := vm.NewVM([32]byte{}, out)
	verdict := m.Run(nil)
	assert.False(t, verdict)
	assert.Equal(t, vm.StateRunning, m.T[0].State, "never reaches a terminal state")
}

func TestScenario5IrqSuccessWordShape(t *testing.T) {
	// The opcode table pins kind to the rb (second register) field
	// with the low 7 bits fixed at 0b0000001 for every irq regardless
	// of kind; success (kind 0) therefore has rb == 0, giving word
	// 0xE001, while yield (kind 1) gives 0xE081 and failure (kind 2)
	// gives 0xE101.
	w := irqWord(vm.IRQSuccess)
	require.True(t, vm.IsIRQ(w))
	assert.Equal(t, vm.IRQSuccess, vm.IRQKindOf(w))
	assert.Equal(t, vm.Word(0xE001), w)

	wYield := irqWord(vm.IRQYield)
	assert.Equal(t, vm.Word(0xE081), wYield)

	wFailure := irqWord(vm.IRQFailure)
	assert.Equal(t, vm.Word(0xE101), wFailure)
}

func TestIRQDisambiguationFromJalr(t *testing.T) {
	// jalr r1, r2: opcode 111, ra=1 (nonzero), low7 = 0 -> not an irq.
	jalr := vm.Word(0b111<<13) | 1<<10 | 2<<7
	assert.False(t, vm.IsIRQ(jalr))

	// A jalr-format word whose low bit happens to be 1 but whose
	// destination field is nonzero must still not be mistaken for irq:
	// IsIRQ must check both the low 7 bits AND ra == 0.
	weirdJalr := vm.Word(0b111<<13) | 1<<10 | 0<<7 | 0b0000001
	assert.False(t, vm.IsIRQ(weirdJalr), "nonzero destination disqualifies irq even with low7 == 1")
}

func TestRegisterZeroIsHardWired(t *testing.T) {
	var th vm.Thread
	th.SetReg(0, 0xBEEF)
	assert.Equal(t, vm.Word(0), th.Reg(0))
}

func TestDeterminism(t *testing.T) {
	out := wordsToBytes(irqWord(vm.IRQYield), irqWord(vm.IRQSuccess))
	in := wordsToBytes(irqWord(vm.IRQSuccess))
	var hash [32]byte
	copy(hash[:], []byte("determinism-fixture"))

	first := vm.NewVM(hash, out).Run(in)
	second := vm.NewVM(hash, out).Run(in)
	assert.Equal(t, first, second)
}

func TestAddWrapsModulo16Bits(t *testing.T) {
	m := vm.NewVM([32]byte{}, nil)
	m.T[0].SetReg(1, 0xFFFF)
	m.T[0].SetReg(2, 2)
	// add r3, r1, r2 at the output entry point.
	word := vm.Word(vm.OpAdd)<<13 | 3<<10 | 1<<7 | 2
	m.Mem.Store(vm.OutputBase, word)
	_ = m.Step(0)
	assert.Equal(t, vm.Word(1), m.T[0].Reg(3), "0xFFFF + 2 wraps to 1")
}

func wordsToBytes(words ...vm.Word) []byte {
	out := make([]byte, 0, len(words)*2)
	for _, w := range words {
		out = append(out, byte(w>>8), byte(w))
	}
	return out
}
