package pool

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/google/uuid"
)

// WorkerConn abstracts one worker's half-duplex request/reply channel,
// letting Pool be driven either by real subprocesses or, in tests, by an
// in-memory fake that can be told to die mid-job.
type WorkerConn interface {
	Send(req Request) error
	Recv() (Reply, error)
	Close() error

	// ID returns a stable identifier for this worker instance, used to
	// correlate respawn log lines across the process's lifetime.
	ID() string
}

// SpawnFunc creates a new, ready-to-use worker. Pool calls it once per
// slot at construction time and again, for the same slot, every time a
// worker dies.
type SpawnFunc func(ctx context.Context) (WorkerConn, error)

// execWorker runs the pool's own binary re-invoked with the hidden
// "worker" subcommand, isolating one script's execution in its own OS
// process: a VM bug (an infinite loop that somehow evades the tick
// budget, a panic from a future opcode) cannot take the host process
// down with it, only the one job in flight.
type execWorker struct {
	id     uuid.UUID
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
}

// NewExecSpawner returns a SpawnFunc that launches binaryPath with the
// given hidden subcommand args (typically just "worker") for each new
// worker process.
func NewExecSpawner(binaryPath string, args ...string) SpawnFunc {
	return func(ctx context.Context) (WorkerConn, error) {
		cmd := exec.CommandContext(ctx, binaryPath, args...)
		cmd.Stderr = os.Stderr

		stdin, err := cmd.StdinPipe()
		if err != nil {
			return nil, fmt.Errorf("pool: stdin pipe: %w", err)
		}
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			return nil, fmt.Errorf("pool: stdout pipe: %w", err)
		}
		if err := cmd.Start(); err != nil {
			return nil, fmt.Errorf("pool: spawn worker: %w", err)
		}
		return &execWorker{id: uuid.New(), cmd: cmd, stdin: stdin, stdout: stdout}, nil
	}
}

func (w *execWorker) ID() string {
	return w.id.String()
}

func (w *execWorker) Send(req Request) error {
	return writeFrame(w.stdin, &req)
}

func (w *execWorker) Recv() (Reply, error) {
	var reply Reply
	err := readFrame(w.stdout, &reply)
	return reply, err
}

func (w *execWorker) Close() error {
	_ = w.stdin.Close()
	if w.cmd.Process != nil {
		_ = w.cmd.Process.Kill()
	}
	return w.cmd.Wait()
}
