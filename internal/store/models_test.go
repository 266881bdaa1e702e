package store

import "testing"

func TestSpeakersJSONScan(t *testing.T) {
	var s SpeakersJSON
	if err := s.Scan([]byte(`{"SPEAKER_00":"Speaker 1"}`)); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if s["SPEAKER_00"] != "Speaker 1" {
		t.Errorf("scanned map = %v", s)
	}

	// Unknown source types degrade to an empty map, not an error.
	var empty SpeakersJSON
	if err := empty.Scan(42); err != nil {
		t.Fatalf("Scan(int): %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("map = %v, want empty", empty)
	}
}

func TestSpeakersJSONValueNil(t *testing.T) {
	var s SpeakersJSON
	v, err := s.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}
	if string(v.([]byte)) != "{}" {
		t.Errorf("value = %s, want {}", v)
	}
}
