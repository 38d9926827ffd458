package pool

import (
	"io"

	"github.com/hackchain/scriptvm/pkg/vm"
)

// RunWorkerLoop is the subprocess-side half of the protocol: it reads
// one Request frame at a time, runs it to completion on a fresh VM, and
// writes back a Reply frame, until the host closes its end of r (read
// as io.EOF, reported to the caller as a clean exit) or a frame fails
// to write (the host's stdin is presumed gone). It never returns early
// on a job that merely fails — only on transport failure.
func RunWorkerLoop(r io.Reader, w io.Writer) error {
	for {
		var req Request
		if err := readFrame(r, &req); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		reply := handleRequest(req)
		if err := writeFrame(w, &reply); err != nil {
			return err
		}
	}
}

func handleRequest(req Request) Reply {
	job, err := requestToJob(req)
	if err != nil {
		return Reply{Error: err.Error()}
	}
	if err := job.validate(); err != nil {
		return Reply{Error: err.Error()}
	}
	machine := vm.NewVM(job.Hash, job.Output)
	success := machine.Run(job.Input)
	return Reply{Result: success}
}
