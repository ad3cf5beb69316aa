package userdict

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/qazboard/sozdik/pkg/config"
	"github.com/qazboard/sozdik/pkg/textutil"
)

// workingSet is the mutable state owned exclusively by the writer. The
// snapshot builder reads it under the shared side of the lock.
type workingSet struct {
	root           *trieNode
	byNormalized   map[string]*Entry
	byWord         map[string]*Entry
	byContext      map[string][]*Entry
	wordCount      int
	totalFrequency int
	dirty          bool
}

func newWorkingSet() *workingSet {
	return &workingSet{
		root:         newTrieNode(),
		byNormalized: make(map[string]*Entry),
		byWord:       make(map[string]*Entry),
		byContext:    make(map[string][]*Entry),
	}
}

type perfStats struct {
	snapshotBuilds   int
	mergedUpdates    int
	requestedUpdates int
	snapshotReads    int
	writeOps         int
	lastBuildMS      int64
}

// Dict is the user dictionary: one writer-locked working set, one
// atomically published snapshot, one background builder goroutine.
type Dict struct {
	mu sync.RWMutex
	ws *workingSet

	snapshot atomic.Pointer[Snapshot]
	version  atomic.Uint64
	pending  atomic.Int64
	notify   chan struct{}
	shutdown chan struct{}
	done     chan struct{}
	closed   atomic.Bool

	pathMu   sync.Mutex
	lastPath string

	statsMu sync.Mutex
	stats   perfStats

	// decayWindowMS is how long an entry may go unused before DecayOld
	// starts eroding its frequency.
	decayWindowMS uint64
	builderWait   time.Duration

	// now is the millisecond clock, replaceable in tests.
	now func() uint64
}

// New creates an empty dictionary tuned by cfg and starts its snapshot
// builder. A nil cfg means the built-in defaults.
func New(cfg *config.Config) *Dict {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	cfg = cfg.Sanitized()

	d := &Dict{
		ws:            newWorkingSet(),
		notify:        make(chan struct{}, 1),
		shutdown:      make(chan struct{}),
		done:          make(chan struct{}),
		decayWindowMS: uint64(cfg.UserDict.DecayDays) * 24 * 60 * 60 * 1000,
		builderWait:   time.Duration(cfg.UserDict.SnapshotWaitMS) * time.Millisecond,
		now:           func() uint64 { return uint64(time.Now().UnixMilli()) },
	}
	d.snapshot.Store(emptySnapshot(d.now()))
	go d.builderLoop()
	return d
}

// requestUpdate records one pending mutation and pokes the builder.
func (d *Dict) requestUpdate() {
	d.pending.Add(1)
	select {
	case d.notify <- struct{}{}:
	default:
	}
	d.statsMu.Lock()
	d.stats.requestedUpdates++
	d.statsMu.Unlock()
}

func (d *Dict) countWrite() {
	d.statsMu.Lock()
	d.stats.writeOps++
	d.statsMu.Unlock()
}

// normalizeOrFail is the writer-side normalization; a word that cannot be
// normalized cannot be stored.
func normalizeOrFail(word string) (string, bool) {
	normalized, err := textutil.NormalizeString(word)
	if err != nil {
		log.Warnf("user dict: cannot normalize %q: %v", word, err)
		return "", false
	}
	return normalized, true
}

// addLocked inserts or bumps a word. Caller holds the write lock.
func (d *Dict) addLocked(word string, frequency int) bool {
	normalized, ok := normalizeOrFail(word)
	if !ok {
		return false
	}

	if existing, found := d.ws.byNormalized[normalized]; found {
		existing.Frequency += frequency
		existing.LastUsedMS = d.now()
		d.ws.totalFrequency += frequency
		d.ws.dirty = true
		return true
	}

	now := d.now()
	entry := &Entry{
		Word:       word,
		Normalized: normalized,
		Frequency:  frequency,
		CreatedMS:  now,
		LastUsedMS: now,
	}

	units, err := textutil.Decode(normalized)
	if err != nil {
		log.Warnf("user dict: cannot key %q: %v", normalized, err)
		return false
	}
	node := d.ws.root.findOrCreate(units)
	node.terminal = true
	node.entries = append(node.entries, entry)

	d.ws.byNormalized[normalized] = entry
	d.ws.byWord[word] = entry
	d.ws.wordCount++
	d.ws.totalFrequency += frequency
	d.ws.dirty = true
	return true
}

// attachContextLocked links a normalized context word to an existing entry.
func (d *Dict) attachContextLocked(entry *Entry, normalizedCtx string) {
	if entry.hasContext(normalizedCtx) {
		return
	}
	entry.Contexts = append(entry.Contexts, normalizedCtx)
	d.ws.byContext[normalizedCtx] = append(d.ws.byContext[normalizedCtx], entry)
	d.ws.dirty = true
}

// removeLocked drops a word and detaches it from trie and context lists.
func (d *Dict) removeLocked(word string) bool {
	normalized, ok := normalizeOrFail(word)
	if !ok {
		return false
	}
	entry, found := d.ws.byNormalized[normalized]
	if !found {
		return false
	}

	if units, err := textutil.Decode(normalized); err == nil {
		if node := d.ws.root.descend(units); node != nil {
			kept := node.entries[:0]
			for _, e := range node.entries {
				if e.Normalized != normalized {
					kept = append(kept, e)
				}
			}
			node.entries = kept
			if len(node.entries) == 0 {
				node.terminal = false
			}
		}
	}

	for _, ctx := range entry.Contexts {
		list := d.ws.byContext[ctx]
		kept := list[:0]
		for _, e := range list {
			if e.Normalized != normalized {
				kept = append(kept, e)
			}
		}
		if len(kept) == 0 {
			delete(d.ws.byContext, ctx)
		} else {
			d.ws.byContext[ctx] = kept
		}
	}

	delete(d.ws.byWord, entry.Word)
	delete(d.ws.byNormalized, normalized)
	d.ws.wordCount--
	d.ws.totalFrequency -= entry.Frequency
	d.ws.dirty = true
	return true
}

// Add inserts word with the given frequency, or bumps an existing entry
// with the same normalized form.
func (d *Dict) Add(word string, frequency int) bool {
	if word == "" || frequency <= 0 {
		return false
	}
	d.mu.Lock()
	ok := d.addLocked(word, frequency)
	d.mu.Unlock()
	if ok {
		d.countWrite()
		d.requestUpdate()
	}
	return ok
}

// AddWithContext adds word and records the preceding word as a context.
func (d *Dict) AddWithContext(word, context string, frequency int) bool {
	if word == "" || context == "" || frequency <= 0 {
		return false
	}
	normalizedCtx, ok := normalizeOrFail(context)
	if !ok {
		return false
	}

	d.mu.Lock()
	added := d.addLocked(word, frequency)
	if added {
		normalized, _ := normalizeOrFail(word)
		if entry, found := d.ws.byNormalized[normalized]; found {
			d.attachContextLocked(entry, normalizedCtx)
		}
	}
	d.mu.Unlock()

	if added {
		d.countWrite()
		d.requestUpdate()
	}
	return added
}

// Remove deletes word entirely.
func (d *Dict) Remove(word string) bool {
	if word == "" {
		return false
	}
	d.mu.Lock()
	ok := d.removeLocked(word)
	d.mu.Unlock()
	if ok {
		d.countWrite()
		d.requestUpdate()
	}
	return ok
}

// UpdateFrequency shifts a word's frequency by delta; a result at or
// below zero removes the word.
func (d *Dict) UpdateFrequency(word string, delta int) bool {
	if word == "" {
		return false
	}
	normalized, ok := normalizeOrFail(word)
	if !ok {
		return false
	}

	d.mu.Lock()
	entry, found := d.ws.byNormalized[normalized]
	if !found {
		d.mu.Unlock()
		return false
	}
	if entry.Frequency+delta <= 0 {
		removed := d.removeLocked(word)
		d.mu.Unlock()
		if removed {
			d.countWrite()
			d.requestUpdate()
		}
		return removed
	}
	entry.Frequency += delta
	entry.LastUsedMS = d.now()
	d.ws.totalFrequency += delta
	d.ws.dirty = true
	d.mu.Unlock()

	d.countWrite()
	d.requestUpdate()
	return true
}

// Learn records one use of word, optionally with its preceding word.
func (d *Dict) Learn(word, context string) {
	if word == "" {
		return
	}
	if context == "" {
		d.Add(word, 1)
		return
	}
	d.AddWithContext(word, context, 1)
}

// Import adds every word with frequency 1.
func (d *Dict) Import(words []string) bool {
	d.mu.Lock()
	ok := true
	added := false
	for _, w := range words {
		if w == "" {
			continue
		}
		if d.addLocked(w, 1) {
			added = true
		} else {
			ok = false
		}
	}
	d.mu.Unlock()

	if added {
		d.countWrite()
		d.requestUpdate()
	}
	return ok
}

// DecayOld subtracts 1 from the frequency of every entry unused for the
// decay window, never below 1.
func (d *Dict) DecayOld() {
	cutoff := d.now() - d.decayWindowMS

	d.mu.Lock()
	changed := false
	for _, entry := range d.ws.byNormalized {
		if entry.LastUsedMS < cutoff && entry.Frequency > 1 {
			entry.Frequency--
			d.ws.totalFrequency--
			changed = true
		}
	}
	if changed {
		d.ws.dirty = true
	}
	d.mu.Unlock()

	if changed {
		d.countWrite()
		d.requestUpdate()
	}
}

// Clear empties the dictionary. The fresh working set starts dirty so a
// shutdown save persists the wipe.
func (d *Dict) Clear() bool {
	d.mu.Lock()
	d.ws = newWorkingSet()
	d.ws.dirty = true
	d.mu.Unlock()
	d.countWrite()
	d.requestUpdate()
	return true
}

// Contains reports whether word is present, by normalized form, in the
// current snapshot.
func (d *Dict) Contains(word string) bool {
	if word == "" {
		return false
	}
	normalized, err := textutil.NormalizeString(word)
	if err != nil {
		return false
	}
	snap := d.snapshot.Load()
	_, found := snap.byNormalized[normalized]
	return found
}

// WordCount reports the number of distinct normalized words in the
// current snapshot.
func (d *Dict) WordCount() int {
	return d.snapshot.Load().WordCount
}

// TotalFrequency reports the summed frequency in the current snapshot.
func (d *Dict) TotalFrequency() int {
	return d.snapshot.Load().TotalFrequency
}

// SearchPrefix returns up to max words whose normalized form starts with
// prefix, best ranked first. The walk touches only the snapshot.
func (d *Dict) SearchPrefix(prefix string, max int) []string {
	if prefix == "" || max <= 0 {
		return nil
	}
	normalized, err := textutil.NormalizeString(prefix)
	if err != nil {
		log.Debugf("search prefix: cannot normalize %q: %v", prefix, err)
		return nil
	}

	snap := d.snapshot.Load()
	d.countRead()
	return entryWords(snap.searchPrefix(normalized, max))
}

// SearchWithContext returns up to max words learned after prev whose
// normalized form starts with curPrefix.
func (d *Dict) SearchWithContext(prev, curPrefix string, max int) []string {
	if prev == "" || max <= 0 {
		return nil
	}
	normalizedPrev, err := textutil.NormalizeString(prev)
	if err != nil {
		return nil
	}
	normalizedCur, err := textutil.NormalizeString(curPrefix)
	if err != nil {
		return nil
	}

	snap := d.snapshot.Load()
	d.countRead()
	return entryWords(snap.searchWithContext(normalizedPrev, normalizedCur, max))
}

func (d *Dict) countRead() {
	d.statsMu.Lock()
	d.stats.snapshotReads++
	d.statsMu.Unlock()
}

func entryWords(entries []*Entry) []string {
	if len(entries) == 0 {
		return nil
	}
	words := make([]string, len(entries))
	for i, e := range entries {
		words[i] = e.Word
	}
	return words
}

// Stats returns a human-readable report over the current snapshot and the
// lifetime counters.
func (d *Dict) Stats() string {
	snap := d.snapshot.Load()

	d.statsMu.Lock()
	stats := d.stats
	d.statsMu.Unlock()

	var b strings.Builder
	b.WriteString("=== User Dictionary ===\n")
	fmt.Fprintf(&b, "snapshot version: %d\n", snap.Version)
	fmt.Fprintf(&b, "snapshot timestamp: %d\n", snap.TimestampMS)
	fmt.Fprintf(&b, "words: %d\n", snap.WordCount)
	fmt.Fprintf(&b, "total frequency: %d\n", snap.TotalFrequency)
	fmt.Fprintf(&b, "snapshot builds: %d\n", stats.snapshotBuilds)
	fmt.Fprintf(&b, "merged updates: %d\n", stats.mergedUpdates)
	fmt.Fprintf(&b, "requested updates: %d\n", stats.requestedUpdates)
	fmt.Fprintf(&b, "snapshot reads: %d\n", stats.snapshotReads)
	fmt.Fprintf(&b, "write ops: %d\n", stats.writeOps)
	fmt.Fprintf(&b, "last build: %d ms\n", stats.lastBuildMS)
	return b.String()
}

// Shutdown stops the builder and, when a file path is known and the
// working set is dirty, saves one final time. Safe to call twice.
func (d *Dict) Shutdown() {
	if d.closed.Swap(true) {
		return
	}
	close(d.shutdown)
	<-d.done

	d.pathMu.Lock()
	path := d.lastPath
	d.pathMu.Unlock()

	d.mu.RLock()
	dirty := d.ws.dirty
	d.mu.RUnlock()

	if path != "" && dirty {
		if err := d.Save(path); err != nil {
			log.Errorf("final user dict save failed: %v", err)
		}
	}
}
