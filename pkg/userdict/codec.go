package userdict

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/qazboard/sozdik/pkg/textutil"
)

// FileFormatVersion is the on-disk format revision. Anything else loads
// as an empty dictionary rather than guessing at a layout.
const FileFormatVersion = 3

// Codec error taxonomy. FileMissing, FileCorrupt and VersionMismatch all
// downgrade to an empty working set on load: the user must never lose the
// ability to type over a bad dictionary file.
var (
	ErrFileMissing     = errors.New("user dict file missing")
	ErrFileCorrupt     = errors.New("user dict file corrupt")
	ErrVersionMismatch = errors.New("user dict version mismatch")
	ErrIO              = errors.New("user dict io failure")
)

// Load reads the dictionary file into the working set. A missing, empty,
// corrupt or version-mismatched file yields an empty working set and
// success; only genuine I/O failures are reported.
func (d *Dict) Load(path string) error {
	ws, err := loadWorkingSet(path, d.now)
	if err != nil {
		return err
	}

	d.mu.Lock()
	d.ws = ws
	d.mu.Unlock()

	d.pathMu.Lock()
	d.lastPath = path
	d.pathMu.Unlock()

	d.requestUpdate()
	return nil
}

func loadWorkingSet(path string, now func() uint64) (*workingSet, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		log.Debugf("user dict %s missing, starting empty", path)
		return newWorkingSet(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: stat %s: %v", ErrIO, path, err)
	}
	if info.Size() == 0 {
		log.Debugf("user dict %s empty, starting empty", path)
		return newWorkingSet(), nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrIO, path, err)
	}
	defer file.Close()

	ws, err := decodeWorkingSet(bufio.NewReader(file))
	if err != nil {
		if errors.Is(err, ErrVersionMismatch) || errors.Is(err, ErrFileCorrupt) {
			log.Warnf("user dict %s unusable (%v), starting empty", path, err)
			return newWorkingSet(), nil
		}
		return nil, err
	}
	return ws, nil
}

func decodeWorkingSet(r io.Reader) (*workingSet, error) {
	var version uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrFileCorrupt, err)
	}
	if version != FileFormatVersion {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrVersionMismatch, version, FileFormatVersion)
	}

	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("%w: entry count: %v", ErrFileCorrupt, err)
	}

	ws := newWorkingSet()
	for i := uint32(0); i < count; i++ {
		entry, err := decodeEntry(r)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d: %v", ErrFileCorrupt, i, err)
		}

		if _, dup := ws.byNormalized[entry.Normalized]; dup {
			continue
		}
		insertLoaded(ws, entry)
	}
	return ws, nil
}

func decodeEntry(r io.Reader) (*Entry, error) {
	word, err := readString(r)
	if err != nil {
		return nil, err
	}
	normalized, err := readString(r)
	if err != nil {
		return nil, err
	}

	var frequency int32
	if err := binary.Read(r, binary.LittleEndian, &frequency); err != nil {
		return nil, err
	}
	var created, lastUsed uint64
	if err := binary.Read(r, binary.LittleEndian, &created); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &lastUsed); err != nil {
		return nil, err
	}

	var ctxCount uint32
	if err := binary.Read(r, binary.LittleEndian, &ctxCount); err != nil {
		return nil, err
	}
	contexts := make([]string, 0, ctxCount)
	for j := uint32(0); j < ctxCount; j++ {
		ctx, err := readString(r)
		if err != nil {
			return nil, err
		}
		contexts = append(contexts, ctx)
	}

	return &Entry{
		Word:       word,
		Normalized: normalized,
		Frequency:  int(frequency),
		Contexts:   contexts,
		CreatedMS:  created,
		LastUsedMS: lastUsed,
	}, nil
}

func readString(r io.Reader) (string, error) {
	var length uint32
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return "", err
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// insertLoaded wires a decoded entry into a fresh working set, including
// the trie and context index.
func insertLoaded(ws *workingSet, entry *Entry) {
	units, err := textutil.Decode(entry.Normalized)
	if err != nil {
		log.Warnf("user dict: dropping unkeyable entry %q: %v", entry.Word, err)
		return
	}
	node := ws.root.findOrCreate(units)
	node.terminal = true
	node.entries = append(node.entries, entry)

	ws.byNormalized[entry.Normalized] = entry
	ws.byWord[entry.Word] = entry
	ws.wordCount++
	ws.totalFrequency += entry.Frequency

	for _, ctx := range entry.Contexts {
		ws.byContext[ctx] = append(ws.byContext[ctx], entry)
	}
}

// Save writes the whole working set, fsyncs and clears the dirty flag.
func (d *Dict) Save(path string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: create %s: %v", ErrIO, path, err)
	}

	w := bufio.NewWriter(file)
	if err := encodeWorkingSet(w, d.ws); err != nil {
		file.Close()
		return fmt.Errorf("%w: write %s: %v", ErrIO, path, err)
	}
	if err := w.Flush(); err != nil {
		file.Close()
		return fmt.Errorf("%w: flush %s: %v", ErrIO, path, err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return fmt.Errorf("%w: sync %s: %v", ErrIO, path, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", ErrIO, path, err)
	}

	d.ws.dirty = false
	d.pathMu.Lock()
	d.lastPath = path
	d.pathMu.Unlock()

	log.Debugf("saved user dict to %s (%d entries)", path, d.ws.wordCount)
	return nil
}

// Export writes the dictionary to path without touching the dirty flag's
// remembered save location semantics beyond Save's.
func (d *Dict) Export(path string) bool {
	if err := d.Save(path); err != nil {
		log.Errorf("export user dict: %v", err)
		return false
	}
	return true
}

func encodeWorkingSet(w io.Writer, ws *workingSet) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(FileFormatVersion)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(ws.byWord))); err != nil {
		return err
	}
	for _, entry := range ws.byWord {
		if err := encodeEntry(w, entry); err != nil {
			return err
		}
	}
	return nil
}

func encodeEntry(w io.Writer, entry *Entry) error {
	if err := writeString(w, entry.Word); err != nil {
		return err
	}
	if err := writeString(w, entry.Normalized); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, int32(entry.Frequency)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, entry.CreatedMS); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, entry.LastUsedMS); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(entry.Contexts))); err != nil {
		return err
	}
	for _, ctx := range entry.Contexts {
		if err := writeString(w, ctx); err != nil {
			return err
		}
	}
	return nil
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}
