package types

import "testing"

func TestSeqDiff(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b int
		want int
	}{
		{"equal", 7, 7, 0},
		{"simple newer", 10, 3, 7},
		{"simple older", 3, 10, -7},
		{"wraparound newer", 5, 1020, 9},
		{"wraparound older", 1020, 5, -9},
		{"half space", 512, 0, -512},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SeqDiff(tt.a, tt.b); got != tt.want {
				t.Errorf("SeqDiff(%d, %d) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestSeqDiffAntisymmetric(t *testing.T) {
	t.Parallel()

	for a := 0; a < MaxGameSequence; a += 37 {
		for b := 0; b < MaxGameSequence; b += 41 {
			d := SeqDiff(a, b)
			if d == -halfGameSequence {
				continue
			}
			if SeqDiff(b, a) != -d {
				t.Fatalf("SeqDiff(%d,%d)=%d but SeqDiff(%d,%d)=%d", a, b, d, b, a, SeqDiff(b, a))
			}
		}
	}
}

func TestNextSeqWraps(t *testing.T) {
	if got := NextSeq(1023); got != 0 {
		t.Errorf("NextSeq(1023) = %d, want 0", got)
	}
	if got := NextSeq(41); got != 42 {
		t.Errorf("NextSeq(41) = %d, want 42", got)
	}
}
