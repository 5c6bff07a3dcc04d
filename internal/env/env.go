// Package env loads KEY=VALUE files (".env") into the process environment so the
// MARBLES_* overrides can live next to the binary.
package env

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// DefaultPath is the file the CLI loads before reading configuration.
const DefaultPath = ".env"

// Load sets an environment variable for each KEY=VALUE line of path and returns how many
// it set. Variables already present in the environment win over the file. Blank lines,
// # comments and a leading "export " are tolerated. A missing file is not an error.
func Load(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	defer f.Close()

	set := 0
	scanner := bufio.NewScanner(f)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		key, value, ok := parseLine(scanner.Text())
		if !ok {
			continue
		}
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return set, fmt.Errorf("env: %s:%d: %w", path, lineNo, err)
		}
		set++
	}
	return set, scanner.Err()
}

func parseLine(line string) (key, value string, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", "", false
	}
	line = strings.TrimPrefix(line, "export ")
	key, value, found := strings.Cut(line, "=")
	key = strings.TrimSpace(key)
	if !found || key == "" {
		return "", "", false
	}
	value = strings.TrimSpace(value)
	if len(value) >= 2 && (value[0] == '"' && value[len(value)-1] == '"' || value[0] == '\'' && value[len(value)-1] == '\'') {
		value = value[1 : len(value)-1]
	}
	return key, value, true
}
