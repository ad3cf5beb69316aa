/*
Package session owns the whole engine: the tiered predictor over the static
tries and the user dictionary, constructed together and torn down together.
It is the single entry point hosts talk to; there is no global state.
*/
package session

import (
	"github.com/charmbracelet/log"

	"github.com/qazboard/sozdik/pkg/config"
	"github.com/qazboard/sozdik/pkg/predict"
	"github.com/qazboard/sozdik/pkg/userdict"
)

// Default result limits for the façade operations.
const (
	DefaultPrefixLimit      = 20
	DefaultContextLimit     = 15
	DefaultPureContextLimit = 10
	DefaultFastLimit        = 10
	DefaultSpellLimit       = 10
	DefaultSmartLimit       = 15
	DefaultUserPrefixLimit  = 20
	DefaultUserContextLimit = 15
)

// Session binds one predictor and one user dictionary.
type Session struct {
	predictor *predict.Predictor
	userDict  *userdict.Dict
}

// New constructs an empty session tuned by cfg; nil means the built-in
// defaults. Dictionaries are loaded explicitly.
func New(cfg *config.Config) *Session {
	return &Session{
		predictor: predict.New(cfg),
		userDict:  userdict.New(cfg),
	}
}

// ---- static-dictionary façade ----

// LoadUnigram loads the unigram trie from path.
func (s *Session) LoadUnigram(path string) error {
	return s.predictor.LoadUnigram(path)
}

// LoadBigram loads the bigram trie from path.
func (s *Session) LoadBigram(path string) error {
	return s.predictor.LoadBigram(path)
}

// IsUnigramLoaded reports unigram availability.
func (s *Session) IsUnigramLoaded() bool { return s.predictor.IsUnigramLoaded() }

// IsBigramLoaded reports bigram availability.
func (s *Session) IsBigramLoaded() bool { return s.predictor.IsBigramLoaded() }

// ExactMatch reports static dictionary membership.
func (s *Session) ExactMatch(word string) bool {
	return s.predictor.ExactMatch(word)
}

// PrefixSearch lists completions of prefix in trie order.
func (s *Session) PrefixSearch(prefix string, max int) []string {
	if max <= 0 {
		max = DefaultPrefixLimit
	}
	return s.predictor.FastPredict(prefix, max)
}

// ContextPredict lists likely next words given the previous word.
func (s *Session) ContextPredict(prev, curPrefix string, max int) []string {
	if max <= 0 {
		max = DefaultContextLimit
	}
	return s.predictor.ContextPredict(prev, curPrefix, max)
}

// PureContextPredict lists bigram continuations of prev only.
func (s *Session) PureContextPredict(prev string, max int) []string {
	if max <= 0 {
		max = DefaultPureContextLimit
	}
	return s.predictor.PureContextPredict(prev, max)
}

// FastPredict is the Stage-1 completion path.
func (s *Session) FastPredict(prefix string, max int) []string {
	if max <= 0 {
		max = DefaultFastLimit
	}
	return s.predictor.FastPredict(prefix, max)
}

// SpellCorrect is the synchronous Stage-2 correction path.
func (s *Session) SpellCorrect(input string, max int) []string {
	if max <= 0 {
		max = DefaultSpellLimit
	}
	return s.predictor.SpellCorrect(input, max)
}

// SmartPredict blends exact match, Stage-1 and Stage-2.
func (s *Session) SmartPredict(prefix string, max int) []string {
	if max <= 0 {
		max = DefaultSmartLimit
	}
	return s.predictor.SmartPredict(prefix, max)
}

// HeavySpellCorrectAsync schedules the Stage-3 sweep; only the most
// recent submission may reach its callback.
func (s *Session) HeavySpellCorrectAsync(input string, callback func([]string)) {
	s.predictor.HeavySpellCorrectAsync(input, callback)
}

// ProcessWordSubmission records the confirmed word.
func (s *Session) ProcessWordSubmission(word string) {
	s.predictor.ProcessWordSubmission(word)
}

// Info reports predictor state.
func (s *Session) Info() string {
	return s.predictor.Info()
}

// ---- user-dictionary façade ----

// UserLoad reads the user dictionary file; a missing or unusable file
// yields an empty dictionary.
func (s *Session) UserLoad(path string) error {
	return s.userDict.Load(path)
}

// UserSave persists the user dictionary to path.
func (s *Session) UserSave(path string) error {
	return s.userDict.Save(path)
}

// UserClear empties the user dictionary.
func (s *Session) UserClear() bool { return s.userDict.Clear() }

// UserAdd inserts or bumps a word.
func (s *Session) UserAdd(word string, frequency int) bool {
	if frequency <= 0 {
		frequency = 1
	}
	return s.userDict.Add(word, frequency)
}

// UserAddWithContext inserts a word with its preceding word.
func (s *Session) UserAddWithContext(word, context string, frequency int) bool {
	if frequency <= 0 {
		frequency = 1
	}
	return s.userDict.AddWithContext(word, context, frequency)
}

// UserRemove deletes a word.
func (s *Session) UserRemove(word string) bool { return s.userDict.Remove(word) }

// UserUpdateFrequency shifts a word's frequency.
func (s *Session) UserUpdateFrequency(word string, delta int) bool {
	return s.userDict.UpdateFrequency(word, delta)
}

// UserSearchPrefix searches learned words by prefix.
func (s *Session) UserSearchPrefix(prefix string, max int) []string {
	if max <= 0 {
		max = DefaultUserPrefixLimit
	}
	return s.userDict.SearchPrefix(prefix, max)
}

// UserSearchWithContext searches learned words by preceding word.
func (s *Session) UserSearchWithContext(prev, curPrefix string, max int) []string {
	if max <= 0 {
		max = DefaultUserContextLimit
	}
	return s.userDict.SearchWithContext(prev, curPrefix, max)
}

// UserContains reports learned-word membership by normalized form.
func (s *Session) UserContains(word string) bool { return s.userDict.Contains(word) }

// UserImport adds a batch of words with frequency 1.
func (s *Session) UserImport(words []string) bool { return s.userDict.Import(words) }

// UserExport writes the dictionary to path.
func (s *Session) UserExport(path string) bool { return s.userDict.Export(path) }

// UserLearn records one confirmed use of word, optionally in context.
func (s *Session) UserLearn(word, context string) { s.userDict.Learn(word, context) }

// UserDecayOld erodes the frequency of long-unused words.
func (s *Session) UserDecayOld() { s.userDict.DecayOld() }

// UserWordCount reports distinct learned words.
func (s *Session) UserWordCount() int { return s.userDict.WordCount() }

// UserStats reports user dictionary state.
func (s *Session) UserStats() string { return s.userDict.Stats() }

// Close stops the predictor's task queue, discarding pending tasks, and
// shuts the user dictionary down, saving it when dirty and a path is known.
func (s *Session) Close() {
	log.Debug("closing session")
	s.predictor.Close()
	s.userDict.Shutdown()
}
