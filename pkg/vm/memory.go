package vm

// MemWords is the size of VM memory in 16-bit words: 2^16 words, i.e.
// 128 KiB. Memory is addressed by word internally (lw/sw) and by byte
// externally (image loading); word A occupies bytes 2A and 2A+1 in
// big-endian order.
const MemWords = 1 << 16

// Conventional load addresses (word-addressed). These are software
// conventions, not hardware-enforced segments: both threads share the
// same physical memory and nothing stops either one from reading or
// writing outside its "own" region.
const (
	HashBase   Word = 0x0000 // transaction hash, zero-padded
	ReservedBase Word = 0x1000
	OutputBase Word = 0x2000 // output (defender) script image
	InputBase  Word = 0x4000 // input (attacker) script image

	// OutputMaxWords and InputMaxWords bound how many words of a
	// loaded script may occupy their conventional region; this mirrors
	// the 8192-byte (4096-word) per-script cap on wire jobs.
	OutputMaxWords = 0x1000
	InputMaxWords  = 0x1000
)

// Memory is the VM's flat, shared address space.
type Memory [MemWords]Word

// LoadHash zero-pads and writes the 32-byte transaction hash starting
// at HashBase.
func (m *Memory) LoadHash(hash [32]byte) {
	loadBytes(m, HashBase, hash[:])
}

// LoadOutput writes the output (defender) script image at OutputBase.
// The caller is responsible for ensuring len(output) does not exceed
// 2*OutputMaxWords bytes; the VM layer itself performs no validation
// (see pkg/pool for the size check applied before a job reaches here).
func (m *Memory) LoadOutput(output []byte) {
	loadBytes(m, OutputBase, output)
}

// LoadInput writes the input (attacker) script image at InputBase. It
// is called only once the pre-run phase has determined T0 did not
// finish on its own, per the co-run schedule.
func (m *Memory) LoadInput(input []byte) {
	loadBytes(m, InputBase, input)
}

// loadBytes decodes big-endian word pairs from data and writes them
// starting at word address base. An odd trailing byte is padded with
// a zero low byte.
func loadBytes(m *Memory, base Word, data []byte) {
	addr := base
	for i := 0; i < len(data); i += 2 {
		hi := data[i]
		var lo byte
		if i+1 < len(data) {
			lo = data[i+1]
		}
		m[addr] = Word(hi)<<8 | Word(lo)
		addr++
	}
}

// Fetch reads the word at the given word address, wrapping mod 2^16.
func (m *Memory) Fetch(addr Word) Word {
	return m[addr]
}

// Store writes the word at the given word address, wrapping mod 2^16.
func (m *Memory) Store(addr Word, v Word) {
	m[addr] = v
}
