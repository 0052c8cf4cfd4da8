package chunker

import (
	"errors"
	"strings"
	"testing"
)

func TestNew_Bounds(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
		wantErr bool
	}{
		{"valid", 1000, 200, false},
		{"zero overlap", 100, 0, false},
		{"zero size", 0, 0, true},
		{"negative overlap", 100, -1, true},
		{"overlap equals size", 100, 100, true},
		{"overlap exceeds size", 100, 150, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.size, tt.overlap)
			if (err != nil) != tt.wantErr {
				t.Errorf("New(%d, %d) error = %v, wantErr %v", tt.size, tt.overlap, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidBounds) {
				t.Errorf("error %v does not wrap ErrInvalidBounds", err)
			}
		})
	}
}

func TestSplit_EmptyAndWhitespace(t *testing.T) {
	s, err := New(100, 20)
	if err != nil {
		t.Fatal(err)
	}
	if got := s.Split(""); got != nil {
		t.Errorf("Split(\"\") = %v, want nil", got)
	}
	if got := s.Split("   \n\t  "); got != nil {
		t.Errorf("Split(whitespace) = %v, want nil", got)
	}
}

func TestSplit_ShortTextSingleChunk(t *testing.T) {
	s, _ := New(1000, 200)
	chunks := s.Split("Bonjour, ceci est un court document.")
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if chunks[0].Content != "Bonjour, ceci est un court document." {
		t.Errorf("content = %q", chunks[0].Content)
	}
	if chunks[0].Index != 0 || chunks[0].Start != 0 {
		t.Errorf("positions = index %d start %d", chunks[0].Index, chunks[0].Start)
	}
}

func TestSplit_ExactOverlap(t *testing.T) {
	s, _ := New(1000, 200)
	// Uniform text with no separators forces hard cuts at exactly size.
	text := strings.Repeat("x", 3000)

	chunks := s.Split(text)
	if len(chunks) != 4 {
		t.Fatalf("got %d chunks, want 4", len(chunks))
	}

	wantEnds := []int{1000, 1800, 2600, 3000}
	for i, c := range chunks {
		if c.End != wantEnds[i] {
			t.Errorf("chunk %d end = %d, want %d", i, c.End, wantEnds[i])
		}
		if i > 0 {
			prev := chunks[i-1]
			if c.Start != prev.End-200 {
				t.Errorf("chunk %d start = %d, want %d", i, c.Start, prev.End-200)
			}
			overlapFromPrev := prev.Content[len(prev.Content)-200:]
			if !strings.HasPrefix(c.Content, overlapFromPrev) {
				t.Errorf("chunk %d does not begin with previous chunk's tail", i)
			}
		}
	}
}

func TestSplit_PrefersParagraphBoundary(t *testing.T) {
	s, _ := New(100, 20)
	para1 := strings.Repeat("a", 60)
	para2 := strings.Repeat("b", 120)
	text := para1 + "\n\n" + para2

	chunks := s.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want at least 2", len(chunks))
	}
	// The first cut should land just after the paragraph break, not at
	// the hard size limit.
	if chunks[0].End != 62 {
		t.Errorf("first chunk end = %d, want 62 (after paragraph break)", chunks[0].End)
	}
	if !strings.HasSuffix(chunks[0].Content, "\n\n") {
		t.Errorf("first chunk should end with paragraph break, got %q", chunks[0].Content)
	}
}

func TestSplit_SentenceBoundaryFallback(t *testing.T) {
	s, _ := New(50, 10)
	text := "Première phrase courte. Deuxième phrase un peu plus longue pour dépasser la fenêtre."

	chunks := s.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want at least 2", len(chunks))
	}
	if !strings.HasSuffix(chunks[0].Content, ". ") {
		t.Errorf("first chunk should end at sentence boundary, got %q", chunks[0].Content)
	}
}

func TestSplit_LosslessReconstruction(t *testing.T) {
	s, _ := New(80, 15)
	text := "Le régime de sécurité sociale couvre les salariés du secteur privé. " +
		"Les cotisations sont versées mensuellement par l'employeur.\n\n" +
		"Les prestations familiales sont servies sous conditions de ressources. " +
		"Le plafond est révisé chaque année par décret."

	chunks := s.Split(text)
	runes := []rune(text)

	// Reconstruct by dropping each chunk's overlap prefix.
	var b strings.Builder
	for i, c := range chunks {
		content := []rune(c.Content)
		if i == 0 {
			b.WriteString(c.Content)
			continue
		}
		skip := chunks[i-1].End - c.Start
		b.WriteString(string(content[skip:]))
	}
	if b.String() != text {
		t.Errorf("reconstruction mismatch:\n got %q\nwant %q", b.String(), text)
	}

	// Offsets must match the content they claim to cover.
	for i, c := range chunks {
		if string(runes[c.Start:c.End]) != c.Content {
			t.Errorf("chunk %d offsets do not match content", i)
		}
	}
}

func TestSplit_MultibyteRunesNotCut(t *testing.T) {
	s, _ := New(10, 2)
	text := strings.Repeat("é", 25)

	chunks := s.Split(text)
	for i, c := range chunks {
		for _, r := range c.Content {
			if r != 'é' {
				t.Fatalf("chunk %d contains corrupted rune %q", i, r)
			}
		}
	}
}

func TestSplit_ZeroOverlap(t *testing.T) {
	s, _ := New(10, 0)
	text := strings.Repeat("y", 25)

	chunks := s.Split(text)
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	total := 0
	for _, c := range chunks {
		total += len([]rune(c.Content))
	}
	if total != 25 {
		t.Errorf("total runes = %d, want 25 with zero overlap", total)
	}
}
