package userdict

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/qazboard/sozdik/pkg/config"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func newDict(t *testing.T) *Dict {
	t.Helper()
	d := New(nil)
	t.Cleanup(d.Shutdown)
	return d
}

func TestAddAndSearchPrefix(t *testing.T) {
	d := newDict(t)

	if !d.Add("қотақба", 1) {
		t.Fatal("Add failed")
	}

	// Before the builder publishes, an empty result is legitimate; after
	// a grace period the word must be visible.
	if !waitFor(t, time.Second, func() bool {
		got := d.SearchPrefix("қот", 5)
		return len(got) == 1 && got[0] == "қотақба"
	}) {
		t.Errorf("SearchPrefix never surfaced the added word: %v", d.SearchPrefix("қот", 5))
	}
}

func TestAddDuplicateNormalizedIncrements(t *testing.T) {
	d := newDict(t)

	d.Add("Алма", 2)
	d.Add("алма", 3)

	if !waitFor(t, time.Second, func() bool { return d.WordCount() == 1 }) {
		t.Fatalf("word count = %d, want 1", d.WordCount())
	}
	if !waitFor(t, time.Second, func() bool { return d.TotalFrequency() == 5 }) {
		t.Errorf("total frequency = %d, want 5", d.TotalFrequency())
	}
	// the original typing of the first add is preserved
	got := d.SearchPrefix("алм", 5)
	if len(got) != 1 || got[0] != "Алма" {
		t.Errorf("SearchPrefix = %v, want [Алма]", got)
	}
}

func TestContains(t *testing.T) {
	d := newDict(t)
	d.Add("сәлем", 1)
	if !waitFor(t, time.Second, func() bool { return d.Contains("СӘЛЕМ") }) {
		t.Error("Contains should match by normalized form")
	}
	if d.Contains("жоқ") {
		t.Error("Contains matched an absent word")
	}
}

func TestRemove(t *testing.T) {
	d := newDict(t)
	d.Add("алма", 2)
	waitFor(t, time.Second, func() bool { return d.Contains("алма") })

	if !d.Remove("алма") {
		t.Fatal("Remove failed")
	}
	if d.Remove("алма") {
		t.Error("second Remove should fail")
	}
	if !waitFor(t, time.Second, func() bool { return !d.Contains("алма") }) {
		t.Error("word still visible after Remove")
	}
	if !waitFor(t, time.Second, func() bool { return len(d.SearchPrefix("ал", 5)) == 0 }) {
		t.Errorf("SearchPrefix after remove = %v", d.SearchPrefix("ал", 5))
	}
}

func TestUpdateFrequency(t *testing.T) {
	d := newDict(t)
	d.Add("алма", 2)

	if !d.UpdateFrequency("алма", 3) {
		t.Fatal("UpdateFrequency failed")
	}
	if !waitFor(t, time.Second, func() bool { return d.TotalFrequency() == 5 }) {
		t.Errorf("total frequency = %d, want 5", d.TotalFrequency())
	}

	// dropping to zero removes the word
	if !d.UpdateFrequency("алма", -5) {
		t.Fatal("UpdateFrequency to zero failed")
	}
	if !waitFor(t, time.Second, func() bool { return d.WordCount() == 0 }) {
		t.Errorf("word count = %d after removal", d.WordCount())
	}

	if d.UpdateFrequency("жоқ", 1) {
		t.Error("UpdateFrequency on absent word succeeded")
	}
}

func TestSearchWithContext(t *testing.T) {
	d := newDict(t)
	d.AddWithContext("қалайсың", "Сәлем", 1)
	d.AddWithContext("достым", "сәлем", 1)
	d.Add("басқа", 1)

	if !waitFor(t, time.Second, func() bool {
		return len(d.SearchWithContext("сәлем", "", 10)) == 2
	}) {
		t.Fatalf("context search = %v", d.SearchWithContext("сәлем", "", 10))
	}

	got := d.SearchWithContext("сәлем", "қал", 10)
	if len(got) != 1 || got[0] != "қалайсың" {
		t.Errorf("filtered context search = %v, want [қалайсың]", got)
	}
}

func TestContextDeduplicated(t *testing.T) {
	d := newDict(t)
	d.AddWithContext("барамын", "мен", 1)
	d.AddWithContext("барамын", "мен", 1)

	waitFor(t, time.Second, func() bool { return d.Contains("барамын") })

	d.mu.RLock()
	entry := d.ws.byNormalized["барамын"]
	d.mu.RUnlock()
	if entry == nil {
		t.Fatal("entry missing")
	}
	if len(entry.Contexts) != 1 {
		t.Errorf("contexts = %v, want exactly one", entry.Contexts)
	}
	if entry.Frequency != 2 {
		t.Errorf("frequency = %d, want 2", entry.Frequency)
	}
}

func TestRankingByFrequencyThenRecency(t *testing.T) {
	d := newDict(t)
	d.Add("алма", 1)
	d.Add("алмұрт", 5)
	d.Add("алғыс", 5)
	// equal frequency resolves to most recently used
	time.Sleep(3 * time.Millisecond)
	d.UpdateFrequency("алғыс", 1)
	time.Sleep(3 * time.Millisecond)
	d.UpdateFrequency("алмұрт", 1)

	waitFor(t, time.Second, func() bool { return d.WordCount() == 3 })

	if !waitFor(t, time.Second, func() bool {
		got := d.SearchPrefix("ал", 2)
		return len(got) == 2 && got[0] == "алмұрт" && got[1] == "алғыс"
	}) {
		t.Errorf("ranking = %v, want [алмұрт алғыс]", d.SearchPrefix("ал", 2))
	}
}

func TestImport(t *testing.T) {
	d := newDict(t)
	if !d.Import([]string{"бір", "екі", "үш", ""}) {
		t.Fatal("Import failed")
	}
	if !waitFor(t, time.Second, func() bool { return d.WordCount() == 3 }) {
		t.Errorf("word count = %d, want 3", d.WordCount())
	}
}

func TestLearn(t *testing.T) {
	d := newDict(t)
	d.Learn("жақсы", "")
	d.Learn("жақсы", "өте")
	if !waitFor(t, time.Second, func() bool { return d.TotalFrequency() == 2 }) {
		t.Errorf("total frequency = %d, want 2", d.TotalFrequency())
	}
	got := d.SearchWithContext("өте", "жақ", 5)
	if len(got) != 1 || got[0] != "жақсы" {
		t.Errorf("learned context search = %v", got)
	}
}

func TestClear(t *testing.T) {
	d := newDict(t)
	d.Add("алма", 1)
	waitFor(t, time.Second, func() bool { return d.WordCount() == 1 })

	d.Clear()
	if !waitFor(t, time.Second, func() bool { return d.WordCount() == 0 }) {
		t.Errorf("word count after clear = %d", d.WordCount())
	}
}

func TestDecayWindowFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.UserDict.DecayDays = 1

	d := New(cfg)
	t.Cleanup(d.Shutdown)

	past := uint64(time.Now().UnixMilli()) - 2*24*60*60*1000
	d.now = func() uint64 { return past }

	d.Add("кеше", 3)
	waitFor(t, time.Second, func() bool { return d.WordCount() == 1 })

	d.now = func() uint64 { return uint64(time.Now().UnixMilli()) }
	d.DecayOld()

	// two days idle exceeds the configured one-day window
	if !waitFor(t, time.Second, func() bool { return d.TotalFrequency() == 2 }) {
		t.Errorf("total frequency = %d, want 2", d.TotalFrequency())
	}
}

func TestDecayOld(t *testing.T) {
	d := newDict(t)

	past := uint64(time.Now().UnixMilli()) - 31*24*60*60*1000
	d.now = func() uint64 { return past }

	d.Add("ескі", 3)
	d.Add("көне", 1)
	waitFor(t, time.Second, func() bool { return d.WordCount() == 2 })

	d.now = func() uint64 { return uint64(time.Now().UnixMilli()) }
	d.DecayOld()

	// ескі 3→2; көне stays at 1
	if !waitFor(t, time.Second, func() bool { return d.TotalFrequency() == 3 }) {
		t.Errorf("total frequency after decay = %d, want 3", d.TotalFrequency())
	}

	// a second decay keeps eroding only entries above 1
	d.DecayOld()
	if !waitFor(t, time.Second, func() bool { return d.TotalFrequency() == 2 }) {
		t.Errorf("total frequency after second decay = %d, want 2", d.TotalFrequency())
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user.dict")

	d := newDict(t)
	d.Add("Алма", 4)
	d.AddWithContext("қалайсың", "сәлем", 2)
	if err := d.Save(path); err != nil {
		t.Fatal(err)
	}

	loaded := newDict(t)
	if err := loaded.Load(path); err != nil {
		t.Fatal(err)
	}

	loaded.mu.RLock()
	defer loaded.mu.RUnlock()
	if len(loaded.ws.byNormalized) != 2 {
		t.Fatalf("loaded %d entries, want 2", len(loaded.ws.byNormalized))
	}

	alma := loaded.ws.byNormalized["алма"]
	if alma == nil || alma.Word != "Алма" || alma.Frequency != 4 {
		t.Errorf("алма entry = %+v", alma)
	}

	qalai := loaded.ws.byNormalized["қалайсың"]
	if qalai == nil || qalai.Frequency != 2 {
		t.Fatalf("қалайсың entry = %+v", qalai)
	}
	if len(qalai.Contexts) != 1 || qalai.Contexts[0] != "сәлем" {
		t.Errorf("contexts = %v, want [сәлем]", qalai.Contexts)
	}

	orig := func() *Entry {
		d.mu.RLock()
		defer d.mu.RUnlock()
		return d.ws.byNormalized["алма"]
	}()
	if alma.CreatedMS != orig.CreatedMS || alma.LastUsedMS != orig.LastUsedMS {
		t.Error("timestamps not preserved across save/load")
	}

	if loaded.ws.dirty {
		t.Error("freshly loaded set marked dirty")
	}
}

func TestLoadMissingFile(t *testing.T) {
	d := newDict(t)
	if err := d.Load(filepath.Join(t.TempDir(), "absent.dict")); err != nil {
		t.Fatalf("missing file should load as empty: %v", err)
	}
	if d.WordCount() != 0 {
		t.Errorf("word count = %d", d.WordCount())
	}
}

func TestLoadVersionMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.dict")
	buf := binary.LittleEndian.AppendUint32(nil, 2) // stale version
	buf = binary.LittleEndian.AppendUint32(buf, 0)
	if err := os.WriteFile(path, buf, 0644); err != nil {
		t.Fatal(err)
	}

	d := newDict(t)
	if err := d.Load(path); err != nil {
		t.Fatalf("version mismatch should load as empty: %v", err)
	}
	if d.WordCount() != 0 {
		t.Errorf("word count = %d", d.WordCount())
	}
}

func TestLoadTruncatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cut.dict")
	buf := binary.LittleEndian.AppendUint32(nil, FileFormatVersion)
	buf = binary.LittleEndian.AppendUint32(buf, 5) // claims 5 entries, has none
	if err := os.WriteFile(path, buf, 0644); err != nil {
		t.Fatal(err)
	}

	d := newDict(t)
	if err := d.Load(path); err != nil {
		t.Fatalf("truncated file should load as empty: %v", err)
	}
	if d.WordCount() != 0 {
		t.Errorf("word count = %d", d.WordCount())
	}
}

func TestSnapshotSafetyUnderConcurrency(t *testing.T) {
	if testing.Short() {
		t.Skip("concurrency soak")
	}
	d := newDict(t)

	const writers = 4
	const readers = 4
	const opsPerWriter = 500

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < opsPerWriter; i++ {
				word := fmt.Sprintf("сөз%d", (w*opsPerWriter+i)%800)
				if i%7 == 0 {
					d.AddWithContext(word, "мен", 1)
				} else {
					d.Add(word, 1)
				}
			}
		}(w)
	}

	stop := make(chan struct{})
	var readerWg sync.WaitGroup
	for r := 0; r < readers; r++ {
		readerWg.Add(1)
		go func() {
			defer readerWg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				for _, got := range d.SearchPrefix("сөз", 20) {
					if got == "" {
						t.Error("search returned empty word")
						return
					}
				}
				d.SearchWithContext("мен", "сөз", 10)
				d.Contains("сөз1")
			}
		}()
	}

	wg.Wait()
	close(stop)
	readerWg.Wait()

	// every distinct normalized word must appear in the final snapshot
	if !waitFor(t, 2*time.Second, func() bool { return d.WordCount() == 800 }) {
		t.Errorf("final word count = %d, want 800", d.WordCount())
	}
}

func TestStats(t *testing.T) {
	d := newDict(t)
	d.Add("алма", 1)
	waitFor(t, time.Second, func() bool { return d.WordCount() == 1 })
	stats := d.Stats()
	if stats == "" {
		t.Fatal("empty stats")
	}
}
