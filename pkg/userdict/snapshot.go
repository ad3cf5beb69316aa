package userdict

import (
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/qazboard/sozdik/pkg/textutil"
)

// bfsNodeLimit caps the trie walk of a prefix search that misses the
// precomputed prefix map.
const bfsNodeLimit = 200

// Snapshot is an immutable read view of the dictionary. Once published it
// is never mutated; readers traverse it without any lock.
type Snapshot struct {
	root         *trieNode
	byNormalized map[string]*Entry
	byWord       map[string]*Entry
	byContext    map[string][]*Entry

	// prefixMap buckets entries under every proper prefix of their
	// normalized word.
	prefixMap map[string][]*Entry

	WordCount      int
	TotalFrequency int
	Version        uint64
	TimestampMS    uint64
}

func emptySnapshot(now uint64) *Snapshot {
	return &Snapshot{
		root:         newTrieNode(),
		byNormalized: make(map[string]*Entry),
		byWord:       make(map[string]*Entry),
		byContext:    make(map[string][]*Entry),
		prefixMap:    make(map[string][]*Entry),
		TimestampMS:  now,
	}
}

// builderLoop wakes on notification or every builderWait and folds all
// pending updates into one snapshot build. Two builds never overlap.
func (d *Dict) builderLoop() {
	defer close(d.done)

	timer := time.NewTimer(d.builderWait)
	defer timer.Stop()

	for {
		select {
		case <-d.shutdown:
			return
		case <-d.notify:
		case <-timer.C:
		}

		if pending := d.pending.Swap(0); pending > 0 {
			d.buildAndPublish(int(pending))
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(d.builderWait)
	}
}

// buildAndPublish deep-copies the working set under the shared lock and
// swaps in a fresh snapshot.
func (d *Dict) buildAndPublish(coalesced int) {
	start := time.Now()

	snap := emptySnapshot(d.now())

	d.mu.RLock()
	snap.WordCount = d.ws.wordCount
	snap.TotalFrequency = d.ws.totalFrequency

	for normalized, entry := range d.ws.byNormalized {
		cloned := entry.clone()
		snap.byNormalized[normalized] = cloned
		snap.byWord[cloned.Word] = cloned
	}
	for ctx, list := range d.ws.byContext {
		entries := make([]*Entry, 0, len(list))
		for _, e := range list {
			if mapped, ok := snap.byNormalized[e.Normalized]; ok {
				entries = append(entries, mapped)
			}
		}
		if len(entries) > 0 {
			snap.byContext[ctx] = entries
		}
	}
	snap.root = d.ws.root.cloneRemap(snap.byNormalized)
	d.mu.RUnlock()

	snap.populatePrefixMap()
	snap.TimestampMS = d.now()
	snap.Version = d.version.Add(1)

	d.snapshot.Store(snap)

	elapsed := time.Since(start)
	d.statsMu.Lock()
	d.stats.snapshotBuilds++
	d.stats.mergedUpdates += coalesced
	d.stats.lastBuildMS = elapsed.Milliseconds()
	d.statsMu.Unlock()

	log.Debugf("published user dict snapshot v%d (%d words, %d coalesced, %v)",
		snap.Version, snap.WordCount, coalesced, elapsed)
}

// populatePrefixMap buckets every entry under each proper prefix of its
// normalized word, measured in UTF-16 code units like the trie keys.
func (s *Snapshot) populatePrefixMap() {
	for normalized, entry := range s.byNormalized {
		units, err := textutil.Decode(normalized)
		if err != nil {
			continue
		}
		for length := 1; length < len(units); length++ {
			prefix, err := textutil.Encode(units[:length])
			if err != nil {
				continue
			}
			s.prefixMap[prefix] = append(s.prefixMap[prefix], entry)
		}
	}
}

// rankEntries orders by frequency descending, then most recently used,
// and truncates to max.
func rankEntries(entries []*Entry, max int) []*Entry {
	ranked := make([]*Entry, len(entries))
	copy(ranked, entries)
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Frequency != ranked[j].Frequency {
			return ranked[i].Frequency > ranked[j].Frequency
		}
		return ranked[i].LastUsedMS > ranked[j].LastUsedMS
	})
	if len(ranked) > max {
		ranked = ranked[:max]
	}
	return ranked
}

// searchPrefix finds entries under a normalized prefix: first the
// precomputed prefix map, then a bounded breadth-first trie walk.
func (s *Snapshot) searchPrefix(normalizedPrefix string, max int) []*Entry {
	if bucket, ok := s.prefixMap[normalizedPrefix]; ok {
		return rankEntries(bucket, max)
	}

	units, err := textutil.Decode(normalizedPrefix)
	if err != nil {
		return nil
	}
	node := s.root.descend(units)
	if node == nil {
		return nil
	}

	var found []*Entry
	queue := []*trieNode{node}
	visited := 0
	for len(queue) > 0 && visited < bfsNodeLimit {
		current := queue[0]
		queue = queue[1:]
		visited++

		if current.terminal {
			found = append(found, current.entries...)
		}
		for _, child := range current.children {
			queue = append(queue, child)
		}
	}

	return rankEntries(found, max)
}

// searchWithContext filters the context bucket of prev by the current
// normalized prefix.
func (s *Snapshot) searchWithContext(normalizedPrev, normalizedCur string, max int) []*Entry {
	bucket, ok := s.byContext[normalizedPrev]
	if !ok {
		return nil
	}

	filtered := make([]*Entry, 0, len(bucket))
	for _, e := range bucket {
		if normalizedCur == "" || strings.HasPrefix(e.Normalized, normalizedCur) {
			filtered = append(filtered, e)
		}
	}
	return rankEntries(filtered, max)
}
