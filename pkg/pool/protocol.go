package pool

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
)

// maxFrameBytes bounds a single length-prefixed frame. A job's hash,
// output, and input are each hex-doubled and wrapped in a small JSON
// envelope, so this comfortably covers the largest legal Job with room
// to spare for malformed-input rejection rather than unbounded reads.
const maxFrameBytes = 1 << 20

// Request is the wire form of a Job: hash and payloads hex-encoded so
// the frame is a plain JSON document.
type Request struct {
	HashHex   string `json:"hash"`
	OutputHex string `json:"output"`
	InputHex  string `json:"input"`
}

// Reply is the wire form of a Job's outcome.
type Reply struct {
	Result bool   `json:"result"`
	Error  string `json:"error,omitempty"`
}

func jobToRequest(j Job) Request {
	return Request{
		HashHex:   hex.EncodeToString(j.Hash[:]),
		OutputHex: hex.EncodeToString(j.Output),
		InputHex:  hex.EncodeToString(j.Input),
	}
}

func requestToJob(r Request) (Job, error) {
	var j Job
	hash, err := hex.DecodeString(r.HashHex)
	if err != nil || len(hash) != len(j.Hash) {
		return Job{}, fmt.Errorf("%w: bad hash", ErrMalformedReply)
	}
	copy(j.Hash[:], hash)
	if j.Output, err = hex.DecodeString(r.OutputHex); err != nil {
		return Job{}, fmt.Errorf("%w: bad output", ErrMalformedReply)
	}
	if j.Input, err = hex.DecodeString(r.InputHex); err != nil {
		return Job{}, fmt.Errorf("%w: bad input", ErrMalformedReply)
	}
	return j, nil
}

// writeFrame writes a 4-byte big-endian length prefix followed by v's
// JSON encoding.
func writeFrame(w io.Writer, v interface{}) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if len(body) > maxFrameBytes {
		return ErrFrameTooLarge
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(body)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err = w.Write(body)
	return err
}

// readFrame reads one length-prefixed JSON frame into v.
func readFrame(r io.Reader, v interface{}) error {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n > maxFrameBytes {
		return ErrFrameTooLarge
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return err
	}
	return json.Unmarshal(body, v)
}
