package server

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/qazboard/sozdik/pkg/config"
	"github.com/qazboard/sozdik/pkg/session"
)

// heavyWait bounds how long a heavy-correction request holds the wire.
const heavyWait = 150 * time.Millisecond

// Server handles the IPC for prediction and user-dictionary operations.
type Server struct {
	session *session.Session
	cfg     *config.Config
	decoder *msgpack.Decoder

	writeMu sync.Mutex
	encoder *msgpack.Encoder
}

// NewServer creates a server speaking msgpack over the given stream pair.
// Result limits for requests that omit one come from cfg.
func NewServer(sess *session.Session, cfg *config.Config, in io.Reader, out io.Writer) *Server {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Server{
		session: sess,
		cfg:     cfg,
		decoder: msgpack.NewDecoder(in),
		encoder: msgpack.NewEncoder(out),
	}
}

func limitOr(requested, fallback int) int {
	if requested > 0 {
		return requested
	}
	return fallback
}

// Start processes requests until the input stream closes.
func (s *Server) Start() error {
	log.Debug("starting IPC server")
	s.send(StatusResponse{OK: true, Detail: "ready"})

	for {
		var request Request
		if err := s.decoder.Decode(&request); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			log.Errorf("decoding request: %v", err)
			s.send(ErrorResponse{Error: "invalid request", Code: 400})
			continue
		}
		s.handle(request)
	}
}

func (s *Server) send(response interface{}) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.encoder.Encode(response); err != nil {
		log.Errorf("encoding response: %v", err)
	}
}

func (s *Server) sendWords(id string, words []string, start time.Time) {
	s.send(WordsResponse{
		ID:        id,
		Words:     words,
		Count:     len(words),
		TimeTaken: time.Since(start).Microseconds(),
	})
}

func (s *Server) sendStatus(id string, ok bool, detail string) {
	s.send(StatusResponse{ID: id, OK: ok, Detail: detail})
}

func (s *Server) handle(request Request) {
	start := time.Now()

	switch request.Op {
	case "health":
		s.sendStatus(request.ID, true, "ok")

	// static dictionary
	case "load_unigram":
		err := s.session.LoadUnigram(request.Path)
		s.sendStatus(request.ID, err == nil, errDetail(err))
	case "load_bigram":
		err := s.session.LoadBigram(request.Path)
		s.sendStatus(request.ID, err == nil, errDetail(err))
	case "is_unigram_loaded":
		s.sendStatus(request.ID, s.session.IsUnigramLoaded(), "")
	case "is_bigram_loaded":
		s.sendStatus(request.ID, s.session.IsBigramLoaded(), "")
	case "exact_match":
		s.sendStatus(request.ID, s.session.ExactMatch(request.Input), "")
	case "prefix_search":
		s.sendWords(request.ID, s.session.PrefixSearch(request.Input, request.Limit), start)
	case "fast_predict":
		s.sendWords(request.ID, s.session.FastPredict(request.Input, limitOr(request.Limit, s.cfg.Engine.FastLimit)), start)
	case "spell_correct":
		s.sendWords(request.ID, s.session.SpellCorrect(request.Input, limitOr(request.Limit, s.cfg.Spell.SpellLimit)), start)
	case "smart_predict":
		s.sendWords(request.ID, s.session.SmartPredict(request.Input, limitOr(request.Limit, s.cfg.Engine.SmartLimit)), start)
	case "context_predict":
		s.sendWords(request.ID, s.session.ContextPredict(request.Prev, request.Input, limitOr(request.Limit, s.cfg.Engine.ContextLimit)), start)
	case "pure_context_predict":
		s.sendWords(request.ID, s.session.PureContextPredict(request.Prev, request.Limit), start)
	case "heavy_spell_correct":
		s.handleHeavy(request, start)
	case "process_word_submission":
		s.session.ProcessWordSubmission(request.Input)
		s.sendStatus(request.ID, true, "")
	case "info":
		s.sendStatus(request.ID, true, s.session.Info())

	// user dictionary
	case "ud_load":
		err := s.session.UserLoad(request.Path)
		s.sendStatus(request.ID, err == nil, errDetail(err))
	case "ud_save":
		err := s.session.UserSave(request.Path)
		s.sendStatus(request.ID, err == nil, errDetail(err))
	case "ud_clear":
		s.sendStatus(request.ID, s.session.UserClear(), "")
	case "ud_add":
		s.sendStatus(request.ID, s.session.UserAdd(request.Input, request.Freq), "")
	case "ud_add_with_context":
		s.sendStatus(request.ID, s.session.UserAddWithContext(request.Input, request.Context, request.Freq), "")
	case "ud_remove":
		s.sendStatus(request.ID, s.session.UserRemove(request.Input), "")
	case "ud_update_frequency":
		s.sendStatus(request.ID, s.session.UserUpdateFrequency(request.Input, request.Delta), "")
	case "ud_search_prefix":
		s.sendWords(request.ID, s.session.UserSearchPrefix(request.Input, limitOr(request.Limit, s.cfg.UserDict.SearchLimit)), start)
	case "ud_search_with_context":
		s.sendWords(request.ID, s.session.UserSearchWithContext(request.Prev, request.Input, limitOr(request.Limit, s.cfg.UserDict.ContextLimit)), start)
	case "ud_contains":
		s.sendStatus(request.ID, s.session.UserContains(request.Input), "")
	case "ud_import":
		s.sendStatus(request.ID, s.session.UserImport(request.Words), "")
	case "ud_export":
		s.sendStatus(request.ID, s.session.UserExport(request.Path), "")
	case "ud_learn":
		s.session.UserLearn(request.Input, request.Context)
		s.sendStatus(request.ID, true, "")
	case "ud_decay":
		s.session.UserDecayOld()
		s.sendStatus(request.ID, true, "")
	case "ud_stats":
		s.sendStatus(request.ID, true, s.session.UserStats())

	default:
		s.send(ErrorResponse{ID: request.ID, Error: fmt.Sprintf("unknown op: %s", request.Op), Code: 400})
	}
}

// handleHeavy bridges the asynchronous Stage-3 path onto the synchronous
// wire. A superseded or slow correction answers with the timeout flag.
func (s *Server) handleHeavy(request Request, start time.Time) {
	results := make(chan []string, 1)
	s.session.HeavySpellCorrectAsync(request.Input, func(words []string) {
		results <- words
	})

	select {
	case words := <-results:
		s.sendWords(request.ID, words, start)
	case <-time.After(heavyWait):
		s.send(WordsResponse{
			ID:        request.ID,
			TimeTaken: time.Since(start).Microseconds(),
			TimedOut:  true,
		})
	}
}

func errDetail(err error) string {
	if err != nil {
		return err.Error()
	}
	return ""
}
