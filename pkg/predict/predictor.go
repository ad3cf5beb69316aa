/*
Package predict implements the tiered completion and correction pipeline
over the static unigram and bigram tries.

Stage 1 is plain prefix completion answered from an LRU or one bounded trie
iteration. Stage 2 is synchronous keyboard/phonetic correction for short
inputs. Stage 3 is the full candidate sweep, dispatched to a single-worker
task queue and guarded by a generation counter so that only the most recent
submission may ever invoke its callback.
*/
package predict

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/qazboard/sozdik/pkg/cache"
	"github.com/qazboard/sozdik/pkg/config"
	"github.com/qazboard/sozdik/pkg/dictionary"
	"github.com/qazboard/sozdik/pkg/spell"
	"github.com/qazboard/sozdik/pkg/taskqueue"
	"github.com/qazboard/sozdik/pkg/textutil"
)

const (
	heavyPriority   = 10
	heavyTagPrefix  = "heavy:"
	heavyMaxResults = 10
)

// prewarmPrefixes are the most common Kazakh initial letters, run through
// Stage-1 after a unigram load to warm the prefix cache.
var prewarmPrefixes = []string{"а", "б", "қ", "с", "м", "о", "т", "ү", "і", "ә"}

// Predictor is the tiered prediction engine over the two static tries.
type Predictor struct {
	unigram *dictionary.Trie
	bigram  *dictionary.Trie

	prefixCache  *cache.Cache[[]string]
	spellCache   *cache.Cache[[]string]
	contextCache *cache.Cache[[]string]
	utf32Cache   *cache.Cache[[]rune]

	// Stage-2 refuses inputs longer than maxSpellInputLen code points.
	maxSpellInputLen int
	fastDistanceMax  int
	fullDistanceMax  int
	heavyWait        time.Duration

	queue      *taskqueue.Queue
	generation atomic.Int64
	lastInput  atomic.Int64

	lastMu   sync.Mutex
	lastWord string
}

// New returns a predictor with empty tries and a running worker, tuned by
// cfg. A nil cfg means the built-in defaults.
func New(cfg *config.Config) *Predictor {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	cfg = cfg.Sanitized()

	p := &Predictor{
		unigram:          dictionary.NewTrie(cfg.Cache.NegativeSize),
		bigram:           dictionary.NewTrie(cfg.Cache.NegativeSize),
		queue:            taskqueue.New(),
		maxSpellInputLen: cfg.Spell.MaxInputLen,
		fastDistanceMax:  cfg.Spell.FastDistanceMax,
		fullDistanceMax:  cfg.Spell.FullDistanceMax,
		heavyWait:        time.Duration(cfg.Engine.HeavyWaitMS) * time.Millisecond,
	}
	p.prefixCache, _ = cache.New[[]string](cfg.Cache.PrefixSize)
	p.spellCache, _ = cache.New[[]string](cfg.Cache.SpellSize)
	p.contextCache, _ = cache.New[[]string](cfg.Cache.ContextSize)
	p.utf32Cache, _ = cache.New[[]rune](cfg.Cache.Utf32Size)
	return p
}

// LoadUnigram loads the unigram dictionary, draining every stage cache
// first so no result from the previous dictionary survives the reload.
func (p *Predictor) LoadUnigram(path string) error {
	p.dropCaches()
	if err := dictionary.Load(p.unigram, path); err != nil {
		return err
	}
	go p.prewarm()
	return nil
}

// LoadBigram loads the bigram dictionary.
func (p *Predictor) LoadBigram(path string) error {
	p.dropCaches()
	return dictionary.Load(p.bigram, path)
}

// IsUnigramLoaded reports whether the unigram trie is available.
func (p *Predictor) IsUnigramLoaded() bool { return p.unigram.Loaded() }

// IsBigramLoaded reports whether the bigram trie is available.
func (p *Predictor) IsBigramLoaded() bool { return p.bigram.Loaded() }

// ExactMatch reports whether word is in the unigram dictionary. Before
// load it is simply false, never a crash.
func (p *Predictor) ExactMatch(word string) bool {
	return p.unigram.ExactMatch(word)
}

func (p *Predictor) dropCaches() {
	p.prefixCache.Clear()
	p.spellCache.Clear()
	p.contextCache.Clear()
}

// prewarm fills the prefix cache through the internal Stage-1 path, so
// synthetic lookups never count as user input.
func (p *Predictor) prewarm() {
	for _, prefix := range prewarmPrefixes {
		p.fastPredict(prefix, 3)
	}
	log.Debugf("prefix cache prewarmed with %d prefixes", len(prewarmPrefixes))
}

func (p *Predictor) touchInput() {
	p.lastInput.Store(time.Now().UnixMilli())
}

func cacheKey(kind, key string, max int) string {
	return fmt.Sprintf("%s:%s:%d", kind, key, max)
}

// runesFor returns the cached UTF-32 form of word.
func (p *Predictor) runesFor(word string) ([]rune, error) {
	if cached, ok := p.utf32Cache.Get(word); ok {
		return cached, nil
	}
	runes, err := textutil.DecodeRunes(word)
	if err != nil {
		return nil, err
	}
	p.utf32Cache.Put(word, runes)
	return runes, nil
}

// FastPredict is Stage-1: prefix completion in trie iteration order.
func (p *Predictor) FastPredict(prefix string, max int) []string {
	p.touchInput()
	return p.fastPredict(prefix, max)
}

func (p *Predictor) fastPredict(prefix string, max int) []string {
	if prefix == "" || max <= 0 || !p.unigram.Loaded() {
		return nil
	}

	key := cacheKey("prefix", prefix, max)
	if cached, ok := p.prefixCache.Get(key); ok {
		return cached
	}

	results := p.unigram.PrefixEnumerate(prefix, max)
	p.prefixCache.Put(key, results)
	return results
}

// SpellCorrect is Stage-2: fast keyboard/phonetic correction. Inputs
// longer than the configured gate (ten code points by default) are
// refused outright to hold the latency budget.
func (p *Predictor) SpellCorrect(input string, max int) []string {
	if input == "" || max <= 0 || !p.unigram.Loaded() {
		return nil
	}
	p.touchInput()

	key := cacheKey("keyboard", input, max)
	if cached, ok := p.spellCache.Get(key); ok {
		return cached
	}

	runes, err := p.runesFor(input)
	if err != nil {
		log.Warnf("spell correct: undecodable input: %v", err)
		return nil
	}
	if len(runes) > p.maxSpellInputLen {
		return nil
	}

	candidates := spell.Generate(runes, max, spell.Fast, nil)
	results := p.scoreCandidates(runes, candidates, p.fastDistanceMax, max, nil)

	p.spellCache.Put(key, results)
	return results
}

// scoreCandidates keeps the candidates present in the unigram trie within
// maxDist of the input, ordered by ascending distance with ties in key
// order, truncated to max. A nil cancelled never aborts.
func (p *Predictor) scoreCandidates(input []rune, candidates []string, maxDist, max int, cancelled func() bool) []string {
	type scored struct {
		word string
		dist int
	}
	kept := make([]scored, 0, len(candidates))

	for _, candidate := range candidates {
		if cancelled != nil && cancelled() {
			return nil
		}
		if !p.unigram.ExactMatch(candidate) {
			continue
		}
		candRunes, err := p.runesFor(candidate)
		if err != nil {
			log.Debugf("skipping undecodable candidate %q: %v", candidate, err)
			continue
		}
		if d := spell.BoundedDistance(input, candRunes, maxDist); d <= maxDist {
			kept = append(kept, scored{word: candidate, dist: d})
		}
	}

	sort.Slice(kept, func(i, j int) bool {
		if kept[i].dist != kept[j].dist {
			return kept[i].dist < kept[j].dist
		}
		return kept[i].word < kept[j].word
	})
	if len(kept) > max {
		kept = kept[:max]
	}

	results := make([]string, len(kept))
	for i, s := range kept {
		results[i] = s.word
	}
	return results
}

// SmartPredict returns the prefix itself when it is a word, otherwise
// Stage-1 completions topped up with Stage-2 corrections.
func (p *Predictor) SmartPredict(prefix string, max int) []string {
	if prefix == "" || max <= 0 {
		return nil
	}
	if p.unigram.ExactMatch(prefix) {
		return []string{prefix}
	}

	results := p.FastPredict(prefix, max)
	if len(results) >= max {
		return results[:max]
	}
	return topUp(results, p.SpellCorrect(prefix, max-len(results)), max)
}

// ContextPredict returns likely next words for prev followed by the
// current prefix, from the bigram trie, topped up with Stage-1.
func (p *Predictor) ContextPredict(prev, curPrefix string, max int) []string {
	if max <= 0 {
		return nil
	}
	p.touchInput()
	if prev == "" || !p.bigram.Loaded() {
		return p.fastPredict(curPrefix, max)
	}

	key := cacheKey("context", prev+"|"+curPrefix, max)
	if cached, ok := p.contextCache.Get(key); ok {
		return cached
	}

	searchPrefix := prev + " " + curPrefix
	keys := p.bigram.PrefixEnumerate(searchPrefix, 2*max)

	results := make([]string, 0, max)
	for _, k := range keys {
		next, ok := strings.CutPrefix(k, prev+" ")
		if !ok || next == "" {
			continue
		}
		results = append(results, next)
		if len(results) >= max {
			break
		}
	}

	if len(results) < max {
		results = topUp(results, p.fastPredict(curPrefix, max-len(results)), max)
	}

	p.contextCache.Put(key, results)
	return results
}

// PureContextPredict returns bigram continuations of prev with no prefix
// constraint and no Stage-1 top-up.
func (p *Predictor) PureContextPredict(prev string, max int) []string {
	if prev == "" || max <= 0 || !p.bigram.Loaded() {
		return nil
	}

	keys := p.bigram.PrefixEnumerate(prev+" ", max)
	results := make([]string, 0, len(keys))
	for _, k := range keys {
		if next, ok := strings.CutPrefix(k, prev+" "); ok && next != "" {
			results = append(results, next)
		}
	}
	return results
}

// HeavySpellCorrectAsync is Stage-3. The submission bumps the generation
// counter and cancels every pending heavy task, so at most the newest
// generation can reach its callback; a stale generation is discarded
// silently at the worker's checkpoints. Delivery additionally re-checks
// the last-input timestamp, so results for input the user has already
// typed past are dropped even within one generation. Result retrieval is
// bounded by the configured wait — on timeout no callback fires.
func (p *Predictor) HeavySpellCorrectAsync(input string, callback func([]string)) {
	if input == "" || callback == nil || !p.unigram.Loaded() {
		return
	}
	p.touchInput()
	inputAt := p.lastInput.Load()

	gen := p.generation.Add(1)
	p.queue.Cancel(heavyTagPrefix)

	resultCh := make(chan []string, 1)
	tag := fmt.Sprintf("%s%d", heavyTagPrefix, gen)

	submitted := p.queue.Submit(func() {
		if p.generation.Load() != gen {
			log.Debugf("heavy correct generation %d stale before start", gen)
			return
		}
		stale := func() bool { return p.generation.Load() != gen }
		results := p.heavyCorrect(input, heavyMaxResults, p.fullDistanceMax, stale)
		if p.generation.Load() != gen {
			log.Debugf("heavy correct generation %d stale after work", gen)
			return
		}
		resultCh <- results
	}, heavyPriority, tag)
	if !submitted {
		return
	}

	go func() {
		select {
		case results := <-resultCh:
			if p.generation.Load() != gen {
				log.Debugf("heavy correct generation %d stale at delivery", gen)
				return
			}
			if p.lastInput.Load() != inputAt {
				log.Debugf("heavy correct generation %d outdated by newer input", gen)
				return
			}
			callback(results)
		case <-time.After(p.heavyWait):
			log.Debugf("heavy correct generation %d timed out", gen)
		}
	}()
}

// heavyCorrect runs the full candidate sweep on the worker.
func (p *Predictor) heavyCorrect(input string, max, maxDist int, cancelled func() bool) []string {
	key := cacheKey("heavy", input, max)
	if cached, ok := p.spellCache.Get(key); ok {
		return cached
	}

	runes, err := p.runesFor(input)
	if err != nil {
		log.Warnf("heavy correct: undecodable input: %v", err)
		return nil
	}

	candidates := spell.Generate(runes, max, spell.Full, cancelled)
	if candidates == nil {
		return nil
	}
	results := p.scoreCandidates(runes, candidates, maxDist, max, cancelled)
	if results == nil {
		return nil
	}

	p.spellCache.Put(key, results)
	return results
}

// ProcessWordSubmission records the confirmed word for bigram callers.
// It never mutates the tries.
func (p *Predictor) ProcessWordSubmission(word string) {
	p.lastMu.Lock()
	p.lastWord = word
	p.lastMu.Unlock()
}

// LastWord returns the most recently confirmed word.
func (p *Predictor) LastWord() string {
	p.lastMu.Lock()
	defer p.lastMu.Unlock()
	return p.lastWord
}

// topUp appends extras to results, dropping duplicates and keeping the
// earliest-stage position, until max entries.
func topUp(results, extras []string, max int) []string {
	seen := make(map[string]struct{}, len(results))
	for _, r := range results {
		seen[r] = struct{}{}
	}
	for _, e := range extras {
		if len(results) >= max {
			break
		}
		if _, dup := seen[e]; dup {
			continue
		}
		seen[e] = struct{}{}
		results = append(results, e)
	}
	return results
}

// Info returns a human-readable status report.
func (p *Predictor) Info() string {
	var b strings.Builder
	b.WriteString("=== Kazakh Predictor ===\n")
	fmt.Fprintf(&b, "unigram loaded: %v", p.unigram.Loaded())
	if p.unigram.Loaded() {
		fmt.Fprintf(&b, " (%d keys)", p.unigram.KeyCount())
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "bigram loaded: %v", p.bigram.Loaded())
	if p.bigram.Loaded() {
		fmt.Fprintf(&b, " (%d keys)", p.bigram.KeyCount())
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "prefix cache: %d entries\n", p.prefixCache.Size())
	fmt.Fprintf(&b, "spell cache: %d entries\n", p.spellCache.Size())
	fmt.Fprintf(&b, "context cache: %d entries\n", p.contextCache.Size())
	fmt.Fprintf(&b, "utf32 cache: %d entries\n", p.utf32Cache.Size())
	fmt.Fprintf(&b, "heavy generation: %d\n", p.generation.Load())
	fmt.Fprintf(&b, "last input: %d\n", p.lastInput.Load())
	return b.String()
}

// Clear unloads both tries and drops every cache. In-flight heavy work is
// retired by the generation bump.
func (p *Predictor) Clear() {
	p.generation.Add(1)
	p.queue.Cancel(heavyTagPrefix)
	p.unigram.Clear()
	p.bigram.Clear()
	p.dropCaches()
	p.utf32Cache.Clear()
	p.ProcessWordSubmission("")
}

// Close shuts down the worker, discarding pending tasks.
func (p *Predictor) Close() {
	p.generation.Add(1)
	p.queue.Shutdown(false)
}
