package pool

import "github.com/hackchain/scriptvm/pkg/vm"

// Job is one unit of work submitted to a Pool: the transaction hash
// loaded at the bottom of VM memory, the output script thread 0 runs,
// and the input script thread 1 runs if thread 0 is still running when
// its pre-run ticks are used up.
type Job struct {
	Hash   [32]byte
	Output []byte
	Input  []byte
}

// Callback receives a Job's outcome: true if the run ended in irq
// success within the tick budget, false otherwise (failure, yield, or
// tick exhaustion). err is non-nil only for pool-level
// failures — a malformed worker reply or the job itself being rejected —
// never for a VM reaching a failing verdict, which is a normal false.
type Callback func(success bool, err error)

// validate enforces the wire size bounds a worker's memory image can
// actually hold: the output segment fits the fixed OutputMaxWords
// region and the input segment fits InputMaxWords, both in bytes.
func (j Job) validate() error {
	if len(j.Output) > vm.OutputMaxWords*2 {
		return ErrJobTooLarge
	}
	if len(j.Input) > vm.InputMaxWords*2 {
		return ErrJobTooLarge
	}
	return nil
}
