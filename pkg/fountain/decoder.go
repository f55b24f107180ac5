package fountain

import (
	"errors"
	"fmt"
	"sort"
)

// Decoder errors, matching the ingest contract.
var (
	ErrMetadataMismatch     = errors.New("fountain: packet metadata does not match decoder")
	ErrInvalidPayloadLen    = errors.New("fountain: payload length does not match block_len")
	ErrEmptyIndices         = errors.New("fountain: packet has no block indices")
	ErrIndexOutOfRange      = errors.New("fountain: block index out of range")
	ErrConflictingSolution  = errors.New("fountain: conflicting solution for block index")
	ErrInconsistentEquation = errors.New("fountain: equation collapsed to zero indices with nonzero payload")
)

type equation struct {
	indices []int
	payload []byte
}

// Decoder is the peeling/substitution solver over XOR equations. It
// ingests packets (in any order, with duplicates tolerated) until all k
// blocks are solved.
type Decoder struct {
	meta      Metadata
	solutions [][]byte // nil until solved
	solved    int
	equations []*equation
	queue     []int // newly solved indices awaiting substitution
}

// NewDecoder constructs a decoder expecting packets matching meta.
func NewDecoder(meta Metadata) *Decoder {
	return &Decoder{
		meta:      meta,
		solutions: make([][]byte, meta.K),
	}
}

// Done reports whether every block has been solved.
func (d *Decoder) Done() bool {
	return d.solved == d.meta.K
}

// CheckMetadata reports ErrMetadataMismatch when m does not describe the
// same stream this decoder was constructed for. Receivers that can see
// more than one metadata frame call this before ingesting packets framed
// under m.
func (d *Decoder) CheckMetadata(m Metadata) error {
	if m != d.meta {
		return ErrMetadataMismatch
	}
	return nil
}

// Receive ingests one packet. A malformed packet (bad length, empty or
// out-of-range indices) is reported as an error and must be treated as
// fatal only for that ingest call, not for the stream as a whole.
func (d *Decoder) Receive(p Packet) error {
	if len(p.Body) != d.meta.BlockLen {
		return ErrInvalidPayloadLen
	}
	if len(p.IDs) == 0 {
		return ErrEmptyIndices
	}

	indices := uniqueSorted(p.IDs)
	for _, id := range indices {
		if id < 0 || id >= d.meta.K {
			return ErrIndexOutOfRange
		}
	}

	payload := make([]byte, len(p.Body))
	copy(payload, p.Body)

	remaining := indices[:0:0]
	for _, id := range indices {
		if d.solutions[id] != nil {
			xorInto(payload, d.solutions[id])
			continue
		}
		remaining = append(remaining, id)
	}

	return d.ingestEquation(remaining, payload)
}

func (d *Decoder) ingestEquation(indices []int, payload []byte) error {
	switch len(indices) {
	case 0:
		if !isZero(payload) {
			return ErrInconsistentEquation
		}
	case 1:
		if err := d.setSolution(indices[0], payload); err != nil {
			return err
		}
	default:
		d.equations = append(d.equations, &equation{indices: indices, payload: payload})
	}
	return d.settle()
}

// setSolution records a solved block and queues it for substitution. It
// never touches the pending equations itself, so it is safe to call while
// a pass over them is in progress; the queued index is substituted by the
// next propagate drain.
func (d *Decoder) setSolution(idx int, payload []byte) error {
	if existing := d.solutions[idx]; existing != nil {
		if !bytesEqual(existing, payload) {
			return ErrConflictingSolution
		}
		return nil
	}
	d.solutions[idx] = payload
	d.solved++
	d.queue = append(d.queue, idx)
	return nil
}

// settle drains the substitution queue, then re-sweeps the surviving
// equations until neither pass makes progress, so chains of solves
// exposed by earlier substitutions are always caught.
func (d *Decoder) settle() error {
	for {
		if err := d.propagate(); err != nil {
			return err
		}
		progressed, err := d.sweepOnce()
		if err != nil {
			return err
		}
		if !progressed {
			return nil
		}
	}
}

// propagate substitutes each queued newly-solved index into every pending
// equation. Equations that collapse to a single unknown enqueue further
// solutions; the loop runs until the queue is empty. Each pass rebuilds
// the equation list into a fresh slice, never aliasing the one being
// ranged over.
func (d *Decoder) propagate() error {
	for len(d.queue) > 0 {
		idx := d.queue[0]
		d.queue = d.queue[1:]
		value := d.solutions[idx]

		remaining := make([]*equation, 0, len(d.equations))
		for _, eq := range d.equations {
			pos := indexOf(eq.indices, idx)
			if pos < 0 {
				remaining = append(remaining, eq)
				continue
			}
			xorInto(eq.payload, value)
			eq.indices = append(eq.indices[:pos], eq.indices[pos+1:]...)

			switch len(eq.indices) {
			case 0:
				if !isZero(eq.payload) {
					return ErrInconsistentEquation
				}
			case 1:
				if err := d.setSolution(eq.indices[0], eq.payload); err != nil {
					return err
				}
			default:
				remaining = append(remaining, eq)
			}
		}
		d.equations = remaining
	}
	return nil
}

// sweepOnce re-reduces every pending equation against the full solution
// set and reports whether anything changed. Solves found here are only
// queued; the caller drains them with propagate.
func (d *Decoder) sweepOnce() (bool, error) {
	progressed := false
	remaining := make([]*equation, 0, len(d.equations))
	for _, eq := range d.equations {
		filtered := eq.indices[:0]
		for _, id := range eq.indices {
			if d.solutions[id] != nil {
				xorInto(eq.payload, d.solutions[id])
				progressed = true
				continue
			}
			filtered = append(filtered, id)
		}
		eq.indices = filtered

		switch len(eq.indices) {
		case 0:
			if !isZero(eq.payload) {
				return false, ErrInconsistentEquation
			}
		case 1:
			if err := d.setSolution(eq.indices[0], eq.payload); err != nil {
				return false, err
			}
			progressed = true
		default:
			remaining = append(remaining, eq)
		}
	}
	d.equations = remaining
	return progressed, nil
}

// Finalize concatenates all solved blocks in index order and truncates to
// CtLen. It returns an error if not all blocks are solved yet.
func (d *Decoder) Finalize() ([]byte, error) {
	if !d.Done() {
		return nil, fmt.Errorf("fountain: decoder not done: %d/%d blocks solved", d.solved, d.meta.K)
	}
	out := make([]byte, 0, d.meta.K*d.meta.BlockLen)
	for _, b := range d.solutions {
		out = append(out, b...)
	}
	if d.meta.CtLen <= len(out) {
		out = out[:d.meta.CtLen]
	}
	return out, nil
}

func uniqueSorted(ids []int) []int {
	out := append([]int(nil), ids...)
	sort.Ints(out)
	dedup := out[:0]
	for i, id := range out {
		if i == 0 || id != out[i-1] {
			dedup = append(dedup, id)
		}
	}
	return dedup
}

func indexOf(s []int, v int) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}

func isZero(b []byte) bool {
	for _, x := range b {
		if x != 0 {
			return false
		}
	}
	return true
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
