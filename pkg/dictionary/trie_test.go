package dictionary

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/tchap/go-patricia/v2/patricia"
)

func buildTrie(words ...string) *Trie {
	t := NewTrie(0)
	pt := patricia.NewTrie()
	for _, w := range words {
		pt.Insert(patricia.Prefix(w), struct{}{})
	}
	t.replace(pt, len(words))
	return t
}

func TestExactMatch(t *testing.T) {
	trie := buildTrie("алма", "ана", "ата")

	if !trie.ExactMatch("алма") {
		t.Error("алма should match")
	}
	if trie.ExactMatch("ал") {
		t.Error("prefix should not match exactly")
	}
	if trie.ExactMatch("жоқ") {
		t.Error("absent word matched")
	}
	if trie.ExactMatch("") {
		t.Error("empty word matched")
	}
}

func TestExactMatchUnloaded(t *testing.T) {
	trie := NewTrie(0)
	if trie.ExactMatch("алма") {
		t.Error("unloaded trie matched")
	}
	if trie.Loaded() {
		t.Error("empty trie reports loaded")
	}
	if got := trie.PrefixEnumerate("а", 10); got != nil {
		t.Errorf("unloaded enumerate = %v", got)
	}
}

func TestPrefixEnumerate(t *testing.T) {
	trie := buildTrie("алма", "алмас", "ана", "ата")

	got := trie.PrefixEnumerate("ал", 10)
	want := []string{"алма", "алмас"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestPrefixEnumerateSkipsExact(t *testing.T) {
	trie := buildTrie("алма", "алмас")
	got := trie.PrefixEnumerate("алма", 10)
	if len(got) != 1 || got[0] != "алмас" {
		t.Errorf("got %v, want [алмас]", got)
	}
}

func TestPrefixEnumerateBounded(t *testing.T) {
	trie := buildTrie("аа", "аб", "ав", "аг", "ад")
	got := trie.PrefixEnumerate("а", 3)
	if len(got) != 3 {
		t.Errorf("got %d results, want 3", len(got))
	}
}

func TestNegativeSetClearedOnReplace(t *testing.T) {
	trie := buildTrie("алма")
	if trie.ExactMatch("жаңа") {
		t.Fatal("unexpected match")
	}
	// Now the word enters the dictionary via reload; the stale negative
	// entry must not shadow it.
	pt := patricia.NewTrie()
	pt.Insert(patricia.Prefix("жаңа"), struct{}{})
	trie.replace(pt, 1)
	if !trie.ExactMatch("жаңа") {
		t.Error("reload did not clear negative set")
	}
}

func TestLoadTextFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "unigram.txt")
	content := "алма\nалмас\n\n# comment\nана\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	trie := NewTrie(0)
	if err := Load(trie, path); err != nil {
		t.Fatal(err)
	}
	if trie.KeyCount() != 3 {
		t.Errorf("key count = %d, want 3", trie.KeyCount())
	}
	if !trie.ExactMatch("ана") {
		t.Error("ана missing after load")
	}
}

func TestLoadBinaryFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "unigram.bin")

	words := []string{"сіз қалай", "сіз қайда"}
	var buf []byte
	buf = binary.LittleEndian.AppendUint32(buf, fileMagic)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(words)))
	for _, w := range words {
		buf = binary.LittleEndian.AppendUint16(buf, uint16(len(w)))
		buf = append(buf, w...)
	}
	if err := os.WriteFile(path, buf, 0644); err != nil {
		t.Fatal(err)
	}

	trie := NewTrie(0)
	if err := Load(trie, path); err != nil {
		t.Fatal(err)
	}
	if !trie.ExactMatch("сіз қалай") {
		t.Error("bigram key missing")
	}
	got := trie.PrefixEnumerate("сіз қа", 5)
	if len(got) != 2 {
		t.Errorf("enumerate = %v, want both bigram keys", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	trie := NewTrie(0)
	if err := Load(trie, "/nonexistent/unigram.txt"); err == nil {
		t.Error("expected error for missing file")
	}
	if trie.Loaded() {
		t.Error("trie loaded after failed load")
	}
}
