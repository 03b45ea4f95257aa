package watcher

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCompletePair(t *testing.T) {
	dir := t.TempDir()
	media := filepath.Join(dir, "lecture01.mp4")
	deck := filepath.Join(dir, "lecture01.pdf")
	for _, p := range []string{media, deck} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	w := &implWatcher{claimed: make(map[string]bool)}

	// deck arrives last and completes the pair
	gotMedia, gotDeck, ok := w.completePair(deck)
	if !ok {
		t.Fatal("completePair() = false, want pair")
	}
	if gotMedia != media || gotDeck != deck {
		t.Errorf("pair = (%s, %s), want (%s, %s)", gotMedia, gotDeck, media, deck)
	}

	// the stem is claimed, the media half must not launch a second job
	if _, _, ok := w.completePair(media); ok {
		t.Error("claimed stem matched again")
	}
}

func TestCompletePairWaitsForCounterpart(t *testing.T) {
	dir := t.TempDir()
	media := filepath.Join(dir, "lecture02.mp4")
	if err := os.WriteFile(media, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	w := &implWatcher{claimed: make(map[string]bool)}

	if _, _, ok := w.completePair(media); ok {
		t.Error("pair reported complete without a deck file")
	}

	// deck shows up later; now the pair completes
	deck := filepath.Join(dir, "lecture02.pptx")
	if err := os.WriteFile(deck, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	gotMedia, gotDeck, ok := w.completePair(deck)
	if !ok || gotMedia != media || gotDeck != deck {
		t.Errorf("pair = (%s, %s, %v)", gotMedia, gotDeck, ok)
	}
}

func TestCompletePairIgnoresUnrelatedFiles(t *testing.T) {
	w := &implWatcher{claimed: make(map[string]bool)}
	if _, _, ok := w.completePair("notes.txt"); ok {
		t.Error("unrelated file treated as pair half")
	}
}

func TestReleaseAllowsRetry(t *testing.T) {
	dir := t.TempDir()
	media := filepath.Join(dir, "lecture03.mov")
	deck := filepath.Join(dir, "lecture03.pdf")
	for _, p := range []string{media, deck} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	w := &implWatcher{claimed: make(map[string]bool)}
	if _, _, ok := w.completePair(deck); !ok {
		t.Fatal("pair should complete")
	}

	w.release(media)

	if _, _, ok := w.completePair(media); !ok {
		t.Error("released stem should pair again")
	}
}
