/*
Package dictionary wraps the static, precompiled word tries. A Trie is a
thread-safe façade over one prefix-iterating patricia trie: exact membership
and bounded prefix enumeration, serialized through the trie's own mutex.

The unigram trie holds plain words; the bigram trie holds keys of the form
"previous next" joined by a single space. Both are read-only after load and
replaced atomically by an explicit reload.
*/
package dictionary

import (
	"errors"
	"sync"

	"github.com/tchap/go-patricia/v2/patricia"
)

// ErrNotLoaded reports a trie operation before a successful Load.
var ErrNotLoaded = errors.New("dictionary not loaded")

// errStop aborts a subtree visit once enough keys are collected.
var errStop = errors.New("stop iteration")

// defaultNegativeCap bounds the session's negative-lookup set when the
// caller does not size it.
const defaultNegativeCap = 10000

// Trie is the façade over one static trie.
type Trie struct {
	mu     sync.Mutex
	trie   *patricia.Trie
	loaded bool
	keys   int

	// negative remembers words the trie reported absent this session,
	// short-circuiting repeat misses from the candidate checker.
	negMu       sync.Mutex
	negative    map[string]struct{}
	negativeCap int
}

// NewTrie returns an empty, unloaded façade whose negative-lookup set
// holds at most negativeCap words; zero or negative means the default.
func NewTrie(negativeCap int) *Trie {
	if negativeCap <= 0 {
		negativeCap = defaultNegativeCap
	}
	return &Trie{
		negative:    make(map[string]struct{}),
		negativeCap: negativeCap,
	}
}

// replace installs a freshly built trie, resetting the negative set.
// Used by the loader and by Clear.
func (t *Trie) replace(trie *patricia.Trie, keys int) {
	t.mu.Lock()
	t.trie = trie
	t.loaded = trie != nil
	t.keys = keys
	t.mu.Unlock()

	t.negMu.Lock()
	t.negative = make(map[string]struct{})
	t.negMu.Unlock()
}

// Clear unloads the trie.
func (t *Trie) Clear() {
	t.replace(nil, 0)
}

// Loaded reports whether a dictionary has been installed.
func (t *Trie) Loaded() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.loaded
}

// KeyCount returns the number of keys installed at load time.
func (t *Trie) KeyCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.keys
}

// ExactMatch reports whether word is a key. An unloaded trie matches
// nothing. Misses are remembered in the bounded negative set.
func (t *Trie) ExactMatch(word string) bool {
	if word == "" {
		return false
	}

	t.negMu.Lock()
	_, rejected := t.negative[word]
	t.negMu.Unlock()
	if rejected {
		return false
	}

	t.mu.Lock()
	found := t.loaded && t.trie.Match(patricia.Prefix(word))
	t.mu.Unlock()

	if !found {
		t.negMu.Lock()
		if len(t.negative) < t.negativeCap {
			t.negative[word] = struct{}{}
		}
		t.negMu.Unlock()
	}
	return found
}

// PrefixEnumerate returns up to max keys beginning with prefix, in the
// trie's iteration order, skipping a key equal to the prefix itself.
func (t *Trie) PrefixEnumerate(prefix string, max int) []string {
	if prefix == "" || max <= 0 {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.loaded {
		return nil
	}

	var results []string
	err := t.trie.VisitSubtree(patricia.Prefix(prefix), func(p patricia.Prefix, _ patricia.Item) error {
		key := string(p)
		if key == prefix {
			return nil
		}
		results = append(results, key)
		if len(results) >= max {
			return errStop
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStop) {
		return nil
	}
	return results
}
