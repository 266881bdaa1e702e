package chunkstream

import "testing"

func frameBytes(seq uint32, payload string) []byte {
	return AppendFrame(nil, seq, []byte(payload))
}

func TestParseFrameRoundTrip(t *testing.T) {
	raw := frameBytes(7, "hello")
	f, err := ParseFrame(raw)
	if err != nil {
		t.Fatalf("ParseFrame: %v", err)
	}
	if f.Seq != 7 {
		t.Errorf("Seq = %d, want 7", f.Seq)
	}
	if string(f.Payload) != "hello" {
		t.Errorf("Payload = %q, want hello", f.Payload)
	}
	if f.CRC != CRC16CCITT([]byte("hello")) {
		t.Errorf("CRC = %#04x, want matching checksum", f.CRC)
	}
	if f.EOF() {
		t.Error("data frame reported EOF")
	}
}

func TestParseFrameErrors(t *testing.T) {
	if _, err := ParseFrame([]byte{1, 2, 3}); err != ErrShortFrame {
		t.Errorf("short frame error = %v, want ErrShortFrame", err)
	}

	// Header claims more payload than the frame carries.
	raw := frameBytes(0, "abc")
	if _, err := ParseFrame(raw[:HeaderSize+1]); err == nil {
		t.Error("expected error for truncated payload")
	}
}

func TestParseFrameEOF(t *testing.T) {
	f, err := ParseFrame(AppendEOF(nil, 42))
	if err != nil {
		t.Fatalf("ParseFrame: %v", err)
	}
	if !f.EOF() {
		t.Error("EOF frame not recognized")
	}
}

func TestCRC16CCITT(t *testing.T) {
	// Standard check value for CRC16-CCITT (false) over "123456789".
	if got := CRC16CCITT([]byte("123456789")); got != 0x29B1 {
		t.Errorf("CRC16CCITT = %#04x, want 0x29b1", got)
	}
	if got := CRC16CCITT(nil); got != 0xFFFF {
		t.Errorf("CRC16CCITT(nil) = %#04x, want init value", got)
	}
}

func TestAssemblerInOrder(t *testing.T) {
	a := NewAssembler()
	for i, part := range []string{"one", "two", "three"} {
		if err := a.Offer(frameBytes(uint32(i), part)); err != nil {
			t.Fatalf("Offer: %v", err)
		}
	}
	a.Ingest(Frame{Seq: 3})

	if !a.Done() {
		t.Fatal("assembler not done after EOF")
	}
	data, hash := a.Finalize()
	if string(data) != "onetwothree" {
		t.Errorf("data = %q, want onetwothree", data)
	}
	if hash == "" {
		t.Error("empty content hash")
	}
}

func TestAssemblerOfferStream(t *testing.T) {
	var raw []byte
	raw = AppendFrame(raw, 0, []byte("alpha"))
	raw = AppendFrame(raw, 1, []byte("beta"))
	raw = AppendEOF(raw, 2)

	a := NewAssembler()
	if err := a.OfferStream(raw); err != nil {
		t.Fatalf("OfferStream: %v", err)
	}
	if !a.Done() {
		t.Fatal("assembler not done after streamed EOF")
	}
	data, _ := a.Finalize()
	if string(data) != "alphabeta" {
		t.Errorf("data = %q, want alphabeta", data)
	}

	if err := NewAssembler().OfferStream([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for truncated stream")
	}
}

func TestAssemblerReorders(t *testing.T) {
	a := NewAssembler()
	a.Ingest(mustFrame(t, frameBytes(0, "a")))
	a.Ingest(mustFrame(t, frameBytes(2, "c")))
	a.Ingest(mustFrame(t, frameBytes(1, "b")))
	a.Ingest(mustFrame(t, frameBytes(3, "d")))

	data, _ := a.Finalize()
	if string(data) != "abcd" {
		t.Errorf("data = %q, want abcd", data)
	}
}

func TestAssemblerDropsDuplicates(t *testing.T) {
	a := NewAssembler()
	a.Ingest(mustFrame(t, frameBytes(0, "x")))
	a.Ingest(mustFrame(t, frameBytes(0, "x")))
	a.Ingest(mustFrame(t, frameBytes(1, "y")))
	a.Ingest(mustFrame(t, frameBytes(1, "y")))

	data, _ := a.Finalize()
	if string(data) != "xy" {
		t.Errorf("data = %q, want xy", data)
	}
	if got := a.Stats().Frames; got != 2 {
		t.Errorf("Frames = %d, want 2", got)
	}
}

func TestAssemblerCRCMismatchCounted(t *testing.T) {
	a := NewAssembler()
	a.Ingest(Frame{Seq: 0, CRC: 0xBEEF, Payload: []byte("data")})

	if got := a.Stats().CRCErrors; got != 1 {
		t.Errorf("CRCErrors = %d, want 1", got)
	}
	// The payload is still used; the device never retransmits.
	data, _ := a.Finalize()
	if string(data) != "data" {
		t.Errorf("data = %q, want data", data)
	}
}

func TestAssemblerSkipsLargeGap(t *testing.T) {
	a := NewAssembler()
	a.Ingest(mustFrame(t, frameBytes(0, "start")))
	// Frame far ahead of the expected sequence forces a skip.
	a.Ingest(mustFrame(t, frameBytes(60, "end")))

	data, _ := a.Finalize()
	if string(data) != "startend" {
		t.Errorf("data = %q, want startend", data)
	}
	if got := a.Stats().Skips; got != 1 {
		t.Errorf("Skips = %d, want 1", got)
	}
}

func TestAssemblerIgnoresFramesAfterEOF(t *testing.T) {
	a := NewAssembler()
	a.Ingest(mustFrame(t, frameBytes(0, "only")))
	a.Ingest(Frame{Seq: 1})
	a.Ingest(mustFrame(t, frameBytes(1, "late")))

	data, _ := a.Finalize()
	if string(data) != "only" {
		t.Errorf("data = %q, want only", data)
	}
}

func TestAssemblerCredits(t *testing.T) {
	var grants []int
	a := NewAssembler(WithCreditFunc(func(n int) { grants = append(grants, n) }))

	for i := 0; i < 4; i++ {
		a.Ingest(mustFrame(t, frameBytes(uint32(i), "p")))
	}

	if len(grants) != 3 {
		t.Fatalf("grants = %v, want initial grant plus one per two frames", grants)
	}
	if grants[0] != initialCredits {
		t.Errorf("initial grant = %d, want %d", grants[0], initialCredits)
	}
	for _, g := range grants[1:] {
		if g != creditsPerGrant {
			t.Errorf("grant = %d, want %d", g, creditsPerGrant)
		}
	}
}

func TestAssemblerEvictsOnOverflow(t *testing.T) {
	// The overflow guard is defensive: the large-gap skip keeps the buffer
	// small in practice, so exercise eviction on a constructed state.
	a := NewAssembler()
	for i := 1; i <= maxBufferedFrames+1; i++ {
		a.pending[uint32(1000+i)] = []byte{0}
	}
	a.evictOverflow()

	if got := a.Stats().Dropped; got == 0 {
		t.Error("expected buffered frames to be dropped on overflow")
	}
	if len(a.pending) > maxBufferedFrames {
		t.Errorf("pending = %d frames, want <= %d", len(a.pending), maxBufferedFrames)
	}
	// The oldest sequences go first.
	if _, ok := a.pending[1001]; ok {
		t.Error("lowest buffered sequence survived eviction")
	}
}

func TestFinalizeHashStable(t *testing.T) {
	build := func() string {
		a := NewAssembler()
		a.Ingest(mustFrame(t, frameBytes(0, "same content")))
		a.Ingest(Frame{Seq: 1})
		_, hash := a.Finalize()
		return hash
	}
	if build() != build() {
		t.Error("content hash differs for identical content")
	}
}

func mustFrame(t *testing.T, raw []byte) Frame {
	t.Helper()
	f, err := ParseFrame(raw)
	if err != nil {
		t.Fatalf("ParseFrame: %v", err)
	}
	return f
}
