package vm

import (
	"encoding/json"
	"log"
	"net"
)

// TraceSink observes per-tick VM activity. It is purely observational:
// nothing it does feeds back into the verdict, and a VM with a nil
// Trace behaves identically to one with tracing compiled out.
type TraceSink interface {
	Event(threadIdx int, tick uint64, pc Word, word Word)
}

// TraceEvent is the JSON shape emitted by NetTraceSink, one per line.
type TraceEvent struct {
	Thread int    `json:"thread"`
	Tick   uint64 `json:"tick"`
	PC     Word   `json:"pc"`
	Word   Word   `json:"word"`
	Asm    string `json:"asm"`
}

// NetTraceSink streams trace events as newline-delimited JSON to a
// single attached TCP client: accept one controlling connection and
// use it as a debug telemetry channel for the host-side VM runner.
type NetTraceSink struct {
	conn net.Conn
	enc  *json.Encoder
}

// ListenTrace opens a TCP listener on addr and blocks until a debugging
// client attaches, returning a sink bound to that connection. Intended
// for interactive/CLI use (cmd/scriptvm run --trace-addr), never on
// the hot verification path.
func ListenTrace(addr string) (*NetTraceSink, error) {
	nl, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	log.Printf("vm: waiting for trace client to attach on %s...", nl.Addr())
	conn, err := nl.Accept()
	if err != nil {
		nl.Close()
		return nil, err
	}
	nl.Close()
	return &NetTraceSink{conn: conn, enc: json.NewEncoder(conn)}, nil
}

// Close closes the underlying connection.
func (s *NetTraceSink) Close() error {
	return s.conn.Close()
}

// Event implements TraceSink. Encoding errors are swallowed: a
// disconnected trace client must never affect, slow down, or abort
// verification.
func (s *NetTraceSink) Event(threadIdx int, tick uint64, pc Word, word Word) {
	_ = s.enc.Encode(TraceEvent{
		Thread: threadIdx,
		Tick:   tick,
		PC:     pc,
		Word:   word,
		Asm:    Disassemble(word),
	})
}

var _ TraceSink = &NetTraceSink{}
