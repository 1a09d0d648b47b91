package replay

import (
	"bufio"
	"encoding/json"
	"os"

	"github.com/klauspost/compress/zstd"
)

// ReadAll decodes every JSONL entry of a replay file into raw messages.
func ReadAll(path string) ([]json.RawMessage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var entries []json.RawMessage
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		entry := make(json.RawMessage, len(line))
		copy(entry, line)
		entries = append(entries, entry)
	}
	return entries, sc.Err()
}
