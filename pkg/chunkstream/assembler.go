package chunkstream

import (
	"bytes"
	"encoding/hex"
	"sort"

	"lukechampine.com/blake3"
)

const (
	// maxBufferedFrames bounds the reorder buffer; on overflow the oldest
	// half is dropped rather than stalling the stream.
	maxBufferedFrames = 100

	// largeGap is the sequence distance at which the assembler stops
	// waiting for missing frames and skips ahead.
	largeGap = 50

	// Credit flow control: a large initial grant, then topped up every
	// other frame to keep the sender transmitting.
	initialCredits  = 64
	creditInterval  = 2
	creditsPerGrant = 2
)

// Stats describes what the assembler observed during one transfer.
type Stats struct {
	Frames    int // data frames accepted (including buffered)
	CRCErrors int // frames whose payload failed the checksum
	Dropped   int // buffered frames discarded on overflow or skip
	Skips     int // forced jumps over missing sequence ranges
}

// Assembler restores the in-order byte stream from frames that may arrive
// duplicated, reordered or corrupted. It is an explicit state machine over
// the expected-sequence cursor and a bounded reorder buffer; it is not safe
// for concurrent use.
type Assembler struct {
	buf      bytes.Buffer
	expected uint32
	pending  map[uint32][]byte
	done     bool
	stats    Stats

	sinceGrant int
	grant      func(credits int)
}

// Option configures an Assembler.
type AssemblerOption func(*Assembler)

// WithCreditFunc installs the callback used to grant flow-control credits to
// the sender. Without it, credit accounting is skipped.
func WithCreditFunc(grant func(credits int)) AssemblerOption {
	return func(a *Assembler) { a.grant = grant }
}

// NewAssembler creates an assembler and issues the initial credit grant.
func NewAssembler(opts ...AssemblerOption) *Assembler {
	a := &Assembler{pending: make(map[uint32][]byte)}
	for _, opt := range opts {
		opt(a)
	}
	if a.grant != nil {
		a.grant(initialCredits)
	}
	return a
}

// Offer parses raw frame bytes and feeds them to the assembler. Parse errors
// surface to the caller; protocol-level anomalies (duplicates, gaps, CRC
// mismatches) are absorbed and counted.
func (a *Assembler) Offer(data []byte) error {
	frame, err := ParseFrame(data)
	if err != nil {
		return err
	}
	a.Ingest(frame)
	return nil
}

// OfferStream walks a buffer holding back-to-back frames and ingests each
// one. Used when a whole transfer arrives in a single request body.
func (a *Assembler) OfferStream(data []byte) error {
	for len(data) > 0 {
		frame, err := ParseFrame(data)
		if err != nil {
			return err
		}
		a.Ingest(frame)
		data = data[HeaderSize+len(frame.Payload):]
	}
	return nil
}

// Ingest advances the state machine by one frame. Frames after EOF are
// ignored.
func (a *Assembler) Ingest(frame Frame) {
	if a.done {
		return
	}
	if frame.EOF() {
		a.done = true
		return
	}

	// A corrupt payload is still used: the device retransmits nothing, so
	// dropping it would hole the stream permanently.
	if CRC16CCITT(frame.Payload) != frame.CRC {
		a.stats.CRCErrors++
	}

	switch {
	case frame.Seq < a.expected:
		// Duplicate or stale retransmission.
		return

	case frame.Seq == a.expected:
		a.stats.Frames++
		a.buf.Write(frame.Payload)
		a.expected++
		a.drainPending()

	default:
		if _, buffered := a.pending[frame.Seq]; buffered {
			return
		}
		a.stats.Frames++
		a.pending[frame.Seq] = append([]byte(nil), frame.Payload...)
		if frame.Seq-a.expected > largeGap {
			a.skipToBuffered()
		}
		a.evictOverflow()
	}

	a.sinceGrant++
	if a.grant != nil && a.sinceGrant >= creditInterval {
		a.sinceGrant = 0
		a.grant(creditsPerGrant)
	}
}

// drainPending appends buffered frames that are now in order.
func (a *Assembler) drainPending() {
	for {
		payload, ok := a.pending[a.expected]
		if !ok {
			return
		}
		delete(a.pending, a.expected)
		a.buf.Write(payload)
		a.expected++
	}
}

// skipToBuffered gives up on a missing range and resumes at the lowest
// buffered sequence, so one lost frame cannot stall the whole transfer.
func (a *Assembler) skipToBuffered() {
	next, ok := a.lowestPending()
	if !ok {
		return
	}
	a.stats.Skips++
	a.expected = next
	a.drainPending()
}

// evictOverflow drops the oldest half of the reorder buffer once it exceeds
// its cap.
func (a *Assembler) evictOverflow() {
	if len(a.pending) <= maxBufferedFrames {
		return
	}
	seqs := make([]uint32, 0, len(a.pending))
	for seq := range a.pending {
		seqs = append(seqs, seq)
	}
	sort.Slice(seqs, func(i, j int) bool { return seqs[i] < seqs[j] })
	for _, seq := range seqs[:len(seqs)-maxBufferedFrames/2] {
		delete(a.pending, seq)
		a.stats.Dropped++
	}
}

func (a *Assembler) lowestPending() (uint32, bool) {
	var lowest uint32
	found := false
	for seq := range a.pending {
		if seq < a.expected {
			continue
		}
		if !found || seq < lowest {
			lowest = seq
			found = true
		}
	}
	return lowest, found
}

// Done reports whether the EOF frame was received.
func (a *Assembler) Done() bool { return a.done }

// Len returns the number of in-order bytes assembled so far.
func (a *Assembler) Len() int { return a.buf.Len() }

// Stats returns transfer counters for logging and diagnostics.
func (a *Assembler) Stats() Stats { return a.stats }

// Finalize returns the assembled bytes together with their blake3 content
// hash, used to deduplicate re-uploads of the same recording.
func (a *Assembler) Finalize() ([]byte, string) {
	data := a.buf.Bytes()
	sum := blake3.Sum256(data)
	return data, hex.EncodeToString(sum[:])
}
