package transcript

import (
	"reflect"
	"testing"
)

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "terminal punctuation with whitespace",
			in:   "First one. Second one! Third one?",
			want: []string{"First one.", "Second one!", "Third one?"},
		},
		{
			name: "no terminal punctuation",
			in:   "just a fragment",
			want: []string{"just a fragment"},
		},
		{
			name: "period inside a number does not split",
			in:   "It costs 3.50 today. Cheap.",
			want: []string{"It costs 3.50 today.", "Cheap."},
		},
		{
			name: "empty",
			in:   "",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := splitSentences(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("splitSentences(%q) = %#v, want %#v", tt.in, got, tt.want)
			}
		})
	}
}

func TestDedupeSentences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "exact repeat dropped",
			in:   "The meeting starts at 3pm. The meeting starts at 3pm. Bring your laptop.",
			want: []string{"The meeting starts at 3pm.", "Bring your laptop."},
		},
		{
			name: "first occurrence casing kept",
			in:   "Hello There. hello there!",
			want: []string{"Hello There."},
		},
		{
			name: "short fragments exempt",
			in:   "No. No. No.",
			want: []string{"No.", "No.", "No."},
		},
		{
			name: "order preserved",
			in:   "Alpha. Beta. Alpha. Gamma.",
			want: []string{"Alpha.", "Beta.", "Gamma."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := dedupeSentences(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("dedupeSentences(%q) = %#v, want %#v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeSentence(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  Hello There!  ", "hello there"},
		{"Done...", "done"},
		{"no punctuation", "no punctuation"},
	}
	for _, tt := range tests {
		if got := normalizeSentence(tt.in); got != tt.want {
			t.Errorf("normalizeSentence(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
