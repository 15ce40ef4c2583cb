package splitters

import (
	"strings"
	"testing"
)

func TestNewCharSplitter_Validation(t *testing.T) {
	if _, err := NewCharSplitter(0, 0); err == nil {
		t.Error("expected error for zero chunk size")
	}
	if _, err := NewCharSplitter(100, 100); err == nil {
		t.Error("expected error for overlap equal to chunk size")
	}
	if _, err := NewCharSplitter(100, -1); err == nil {
		t.Error("expected error for negative overlap")
	}
}

func TestSplit_EmptyPage(t *testing.T) {
	s, err := NewCharSplitter(100, 20)
	if err != nil {
		t.Fatalf("NewCharSplitter() error = %v", err)
	}

	for _, text := range []string{"", "   ", "\n\t  \n"} {
		if got := s.Split("doc.pdf", 1, text); len(got) != 0 {
			t.Errorf("Split(%q) returned %d chunks, want 0", text, len(got))
		}
	}
}

func TestSplit_BoundAndOverlap(t *testing.T) {
	s, err := NewCharSplitter(100, 20)
	if err != nil {
		t.Fatalf("NewCharSplitter() error = %v", err)
	}

	// 1000 runes of space-separated words.
	text := strings.Repeat("lorem ipsum dolor sit amet consectetur adipiscing ", 20)
	chunks := s.Split("policy.pdf", 3, text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	for i, c := range chunks {
		if n := len([]rune(c.Text)); n > 100 {
			t.Errorf("chunk %d has %d runes, exceeds max size", i, n)
		}
		if c.DocumentID != "policy.pdf" || c.Page != 3 || c.Seq != i {
			t.Errorf("chunk %d has wrong provenance: %+v", i, c)
		}
	}

	// Consecutive chunks share exactly the configured overlap.
	for i := 0; i < len(chunks)-1; i++ {
		prev := []rune(chunks[i].Text)
		next := []rune(chunks[i+1].Text)
		tail := string(prev[len(prev)-20:])
		head := string(next[:20])
		if tail != head {
			t.Errorf("chunks %d/%d overlap mismatch: %q vs %q", i, i+1, tail, head)
		}
	}
}

func TestSplit_WordBoundary(t *testing.T) {
	s, err := NewCharSplitter(50, 10)
	if err != nil {
		t.Fatalf("NewCharSplitter() error = %v", err)
	}

	text := strings.Repeat("boundary check words here ", 10)
	chunks := s.Split("doc.pdf", 1, text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	// Each non-final chunk must end at a word boundary because the text has
	// a space within the lookback window of every cut point. The cut is a
	// boundary when the chunk's last rune or the rune right after the cut
	// (index 10 of the next chunk, past the overlap) is a space.
	for i := 0; i < len(chunks)-1; i++ {
		r := []rune(chunks[i].Text)
		n := []rune(chunks[i+1].Text)
		if r[len(r)-1] == ' ' {
			continue
		}
		if len(n) > 10 && n[10] == ' ' {
			continue
		}
		t.Errorf("chunk %d split mid-word: ends with %q", i, string(r[len(r)-1]))
	}
}

func TestSplit_NoBoundaryWithinLookback(t *testing.T) {
	s, err := NewCharSplitter(50, 10)
	if err != nil {
		t.Fatalf("NewCharSplitter() error = %v", err)
	}

	// A single unbroken run of letters has no word boundary anywhere, so the
	// splitter must fall back to hard cuts and still make progress.
	text := strings.Repeat("x", 200)
	chunks := s.Split("doc.pdf", 1, text)
	if len(chunks) == 0 {
		t.Fatal("expected chunks for unbroken text")
	}
	for i, c := range chunks {
		if n := len([]rune(c.Text)); n > 50 {
			t.Errorf("chunk %d has %d runes, exceeds max size", i, n)
		}
	}
}

func TestSplit_DeterministicIDs(t *testing.T) {
	s, err := NewCharSplitter(100, 20)
	if err != nil {
		t.Fatalf("NewCharSplitter() error = %v", err)
	}

	text := strings.Repeat("stable ids for replacement ", 20)
	first := s.Split("doc.pdf", 2, text)
	second := s.Split("doc.pdf", 2, text)
	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("chunk %d ID not deterministic: %q vs %q", i, first[i].ID, second[i].ID)
		}
	}
	if first[0].ID != "doc.pdf:p2:c0" {
		t.Errorf("unexpected ID format: %q", first[0].ID)
	}
}
