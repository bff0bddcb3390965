package config

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// DefaultEnvFile is read from the working directory when no other path is given.
const DefaultEnvFile = ".env"

// LoadDotEnv copies KEY=VALUE lines from path into the process environment.
// Variables that are already set keep their value, so the real environment
// always wins over the file. A missing file is not an error. It returns the
// number of variables it set.
func LoadDotEnv(path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("error opening %s: %w", path, err)
	}
	defer file.Close()

	applied := 0
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key, value := strings.TrimSpace(parts[0]), unquote(strings.TrimSpace(parts[1]))
		if key == "" {
			continue
		}
		if _, ok := os.LookupEnv(key); ok {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return applied, fmt.Errorf("error setting %s: %w", key, err)
		}
		applied++
	}

	if err := scanner.Err(); err != nil {
		return applied, fmt.Errorf("error reading %s: %w", path, err)
	}

	return applied, nil
}

func unquote(v string) string {
	if len(v) >= 2 {
		if (v[0] == '"' && v[len(v)-1] == '"') || (v[0] == '\'' && v[len(v)-1] == '\'') {
			return v[1 : len(v)-1]
		}
	}
	return v
}
