package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
)

// Verify walks the journal and checks the hash chain. It returns the
// number of entries verified, or an error naming the first broken line.
func Verify(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("audit: open journal: %w", err)
	}
	defer f.Close()

	prevHash := GenesisHash
	count := 0

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var entry Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			return count, fmt.Errorf("audit: line %d: invalid JSON: %w", count+1, err)
		}
		if entry.PrevHash != prevHash {
			return count, fmt.Errorf("audit: line %d: chain broken (prev_hash %s, expected %s)", count+1, entry.PrevHash, prevHash)
		}

		prevHash = HashLine(append([]byte(nil), line...))
		count++
	}
	if err := scanner.Err(); err != nil {
		return count, fmt.Errorf("audit: scan journal: %w", err)
	}
	return count, nil
}
