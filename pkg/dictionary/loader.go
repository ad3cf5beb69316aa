package dictionary

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/tchap/go-patricia/v2/patricia"
)

// fileMagic identifies the engine's binary key-list format:
// u32 magic, u32 key count, then u16-length-prefixed UTF-8 keys.
const fileMagic = 0x4B445A53 // "SZDK" little-endian

// Load reads a dictionary file and installs it into the façade, replacing
// whatever was loaded before. Binary files are detected by magic; anything
// else is treated as a text key list, one key per line.
func Load(t *Trie, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open dictionary %s: %w", path, err)
	}
	defer file.Close()

	reader := bufio.NewReader(file)

	head, err := reader.Peek(4)
	if err == nil && binary.LittleEndian.Uint32(head) == fileMagic {
		trie, count, err := loadBinary(reader)
		if err != nil {
			return fmt.Errorf("load binary dictionary %s: %w", path, err)
		}
		t.replace(trie, count)
		log.Debugf("loaded %d keys from %s (binary)", count, path)
		return nil
	}

	trie, count, err := loadText(reader)
	if err != nil {
		return fmt.Errorf("load text dictionary %s: %w", path, err)
	}
	t.replace(trie, count)
	log.Debugf("loaded %d keys from %s (text)", count, path)
	return nil
}

func loadBinary(reader *bufio.Reader) (*patricia.Trie, int, error) {
	var magic, total uint32
	if err := binary.Read(reader, binary.LittleEndian, &magic); err != nil {
		return nil, 0, fmt.Errorf("read header: %w", err)
	}
	if err := binary.Read(reader, binary.LittleEndian, &total); err != nil {
		return nil, 0, fmt.Errorf("read key count: %w", err)
	}

	trie := patricia.NewTrie()
	count := 0
	for count < int(total) {
		var keyLen uint16
		if err := binary.Read(reader, binary.LittleEndian, &keyLen); err != nil {
			if err == io.EOF {
				return nil, 0, fmt.Errorf("short file: %d of %d keys", count, total)
			}
			return nil, 0, fmt.Errorf("read key length: %w", err)
		}
		keyBytes := make([]byte, keyLen)
		if _, err := io.ReadFull(reader, keyBytes); err != nil {
			return nil, 0, fmt.Errorf("read key: %w", err)
		}
		trie.Insert(patricia.Prefix(keyBytes), struct{}{})
		count++
	}
	return trie, count, nil
}

func loadText(reader *bufio.Reader) (*patricia.Trie, int, error) {
	trie := patricia.NewTrie()
	count := 0

	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		trie.Insert(patricia.Prefix(line), struct{}{})
		count++
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, err
	}
	return trie, count, nil
}
