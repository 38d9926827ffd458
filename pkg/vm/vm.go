package vm

// Tick budgets from the verification protocol. MaxInitTicks bounds the
// pre-run phase in which only thread 0 (the output/defender script)
// executes; MaxTicks bounds the co-run phase in which both threads are
// interleaved.
const (
	MaxInitTicks = 100 * 1024
	MaxTicks     = 1024 * 1024
)

// VM is one execution instance: a shared memory and the two threads
// that cooperate over it. A VM is created fresh per verification job
// and discarded afterward; nothing about it is reused across jobs.
type VM struct {
	Mem   Memory
	T     [2]Thread
	Trace TraceSink // optional, non-consensus (see trace.go)

	tick uint64
}

// NewVM builds a VM with the transaction hash and output script loaded
// and thread 0 positioned at the output script's entry point. The
// input script is deliberately not loaded yet: it is only written once
// the pre-run phase determines thread 0 did not finish on its own (see
// Run).
func NewVM(hash [32]byte, output []byte) *VM {
	m := &VM{}
	m.Mem.LoadHash(hash)
	m.Mem.LoadOutput(output)
	m.T[0] = NewThread(0, OutputBase)
	m.T[1] = NewThread(1, InputBase)
	return m
}

// LoadInput writes the input (attacker) script at its conventional
// address. Called once, at the pre-run/co-run boundary.
func (vm *VM) LoadInput(input []byte) {
	vm.Mem.LoadInput(input)
}

// Step executes exactly one tick on the given thread: fetch, decode,
// execute, and advance the program counter (unless the instruction
// overrides it). Step is a no-op if the thread is already done. The
// error return always comes back nil: every word is a legal
// instruction and the only outcomes are "still running", "yielded", or
// "halted" — see the package doc.
func (vm *VM) Step(threadIdx int) error {
	t := &vm.T[threadIdx]
	if t.State.IsDone() {
		return nil
	}
	w := vm.Mem.Fetch(t.PC)
	vm.execute(t, w)
	return nil
}

func (vm *VM) execute(t *Thread, w Word) {
	op := DecodeOpcode(w)
	ra, rb := DecodeRA(w), DecodeRB(w)

	switch op {
	case OpAdd:
		rc := DecodeRC(w)
		t.SetReg(ra, t.Reg(rb)+t.Reg(rc))
		t.PC++
	case OpAddi:
		imm := DecodeImm7(w)
		t.SetReg(ra, t.Reg(rb)+imm)
		t.PC++
	case OpNand:
		rc := DecodeRC(w)
		t.SetReg(ra, ^(t.Reg(rb) & t.Reg(rc)))
		t.PC++
	case OpLui:
		imm := DecodeImm10(w)
		t.SetReg(ra, imm<<6)
		t.PC++
	case OpSw:
		imm := DecodeImm7(w)
		addr := t.Reg(rb) + imm
		vm.Mem.Store(addr, t.Reg(ra))
		t.PC++
	case OpLw:
		imm := DecodeImm7(w)
		addr := t.Reg(rb) + imm
		t.SetReg(ra, vm.Mem.Fetch(addr))
		t.PC++
	case OpBeq:
		imm := DecodeImm7(w)
		if t.Reg(ra) == t.Reg(rb) {
			t.PC = t.PC + 1 + imm
		} else {
			t.PC++
		}
	case OpJalr:
		if IsIRQ(w) {
			switch IRQKindOf(w) {
			case IRQSuccess:
				t.State = StateHaltedSuccess
			case IRQFailure:
				t.State = StateHaltedFailure
			default: // IRQYield and any other kind value
				t.State = StateYielded
			}
			return // terminal: PC does not advance further
		}
		link := t.PC + 1
		target := t.Reg(rb)
		t.SetReg(ra, link)
		t.PC = target
	}
}

// Run drives the full two-phase schedule described by the
// verification protocol and returns thread 0's verdict: true iff it
// terminated via `irq success`.
//
// Phase 1 (pre-run): thread 0 alone, for up to MaxInitTicks ticks. If
// it finishes within budget, its verdict is immediate and thread 1
// never runs — the input script is never loaded.
//
// Phase 2 (co-run): if thread 0 is still running after the pre-run
// budget, the input script is loaded and both threads are stepped in
// lockstep for up to MaxTicks global ticks: thread 0 always steps
// first, so its writes within a tick are visible to thread 1's step in
// the very same tick. The job ends the instant thread 0 is done;
// thread 1's state never affects the verdict.
func (vm *VM) Run(input []byte) bool {
	for i := 0; i < MaxInitTicks; i++ {
		vm.emitTrace(0)
		_ = vm.Step(0)
		if vm.T[0].State.IsDone() {
			return vm.T[0].State.IsSuccess()
		}
	}

	vm.LoadInput(input)

	for i := 0; i < MaxTicks; i++ {
		vm.emitTrace(0)
		_ = vm.Step(0)
		if vm.T[0].State.IsDone() {
			return vm.T[0].State.IsSuccess()
		}
		if !vm.T[1].State.IsDone() {
			vm.emitTrace(1)
			_ = vm.Step(1)
		}
	}
	return false
}

func (vm *VM) emitTrace(threadIdx int) {
	if vm.Trace == nil {
		return
	}
	t := &vm.T[threadIdx]
	vm.Trace.Event(threadIdx, vm.tick, t.PC, vm.Mem.Fetch(t.PC))
	vm.tick++
}
