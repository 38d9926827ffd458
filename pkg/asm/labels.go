package asm

// Label is a symbolic, eventually-resolved position in the emitted
// instruction stream. A Label has two states: unbound (pc is
// meaningless, there may be pending patch sites waiting on it) and
// bound (pc is final, and any patch sites have already been resolved —
// further references use the immediate path directly).
type Label struct {
	bound bool
	pc    int
}

// Bound reports whether the label has been bound to a PC yet.
func (l *Label) Bound() bool {
	return l.bound
}

type patchKind int

const (
	patchShort patchKind = iota // one beq word, §4.3 jmp()
	patchFar                    // lui; addi; jalr r0, reg triplet, §4.3 farjmp()
)

type patchSite struct {
	pos int // word index of the first reserved word
	kind patchKind
	reg  int // destination register, only meaningful for patchFar
}

// NewLabel creates a fresh unbound label.
func (a *Assembler) NewLabel() *Label {
	l := &Label{}
	a.labels = append(a.labels, l)
	return l
}

// BindLabel fixes l's PC to the current end of the emitted stream and
// resolves every pending patch site registered against it. After this
// call, subsequent Jmp/FarJmp calls targeting l take the immediate
// path instead of queuing another patch site.
func (a *Assembler) BindLabel(l *Label) {
	l.pc = len(a.words)
	l.bound = true
	sites := a.pending[l]
	delete(a.pending, l)
	for _, site := range sites {
		a.patch(site, l.pc)
	}
}

func (a *Assembler) patch(site patchSite, targetPC int) {
	switch site.kind {
	case patchShort:
		delta := int32(targetPC - (site.pos + 1))
		if !signed7Range(delta) {
			a.fail(ErrShortJumpOutOfRange)
			return
		}
		a.words[site.pos] = encodeBeq(0, 0, delta)
	case patchFar:
		hi, lo := splitImm16(uint16(targetPC))
		a.words[site.pos] = encodeLui(site.reg, hi)
		a.words[site.pos+1] = encodeAddi(site.reg, site.reg, int32(lo))
		a.words[site.pos+2] = encodeJalr(0, site.reg)
	}
}

// Jmp emits a short, unconditional jump to l (`beq r0, r0, delta`). If
// l is already bound the delta is computed and range-checked
// immediately; otherwise one placeholder word is reserved and patched
// when l is later bound via BindLabel.
func (a *Assembler) Jmp(l *Label) {
	if l.bound {
		delta := int32(l.pc - (len(a.words) + 1))
		if !signed7Range(delta) {
			a.fail(ErrShortJumpOutOfRange)
			return
		}
		a.words = append(a.words, encodeBeq(0, 0, delta))
		return
	}
	pos := len(a.words)
	a.words = append(a.words, 0) // placeholder, backfilled on bind
	a.pending[l] = append(a.pending[l], patchSite{pos: pos, kind: patchShort})
}

// FarJmp emits a three-instruction absolute jump through reg: `lui
// reg, hi; addi reg, reg, lo; jalr r0, reg`, loading l's word address
// into reg and jumping through it. Used when a bound beq delta would
// not fit in 7 bits. If l is unbound, three placeholder words are
// reserved and patched when l is later bound.
func (a *Assembler) FarJmp(reg int, l *Label) {
	if !a.checkReg(reg) {
		return
	}
	if l.bound {
		hi, lo := splitImm16(uint16(l.pc))
		a.words = append(a.words, encodeLui(reg, hi), encodeAddi(reg, reg, int32(lo)), encodeJalr(0, reg))
		return
	}
	pos := len(a.words)
	a.words = append(a.words, 0, 0, 0)
	a.pending[l] = append(a.pending[l], patchSite{pos: pos, kind: patchFar, reg: reg})
}

// splitImm16 splits a 16-bit absolute PC into the (hi10, lo6) pair fed
// to lui/addi by both Movi and FarJmp's patch path.
func splitImm16(v uint16) (hi uint16, lo uint16) {
	return v >> 6, v & 0x3F
}
