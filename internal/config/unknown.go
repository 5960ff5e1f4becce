package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
)

// maxLevenshteinDistance is the maximum edit distance for "did you mean?"
// suggestions when unknown config keys are detected.
const maxLevenshteinDistance = 3

// knownKeys lists the valid keys of each section. Lists are sorted for
// deterministic suggestions when two candidates tie.
var knownKeys = map[string][]string{
	"server": {
		"host", "idle_timeout", "max_upload_size", "port",
		"read_timeout", "shutdown_timeout", "write_timeout",
	},
	"drive":       {"endpoint", "page_size", "scopes", "token_url", "upload_chunk_size"},
	"upload":      {"workers"},
	"logging":     {"log_format", "log_level"},
	"credentials": {"token_ttl"},
}

// knownSections is the sorted list of section names.
var knownSections = func() []string {
	s := make([]string, 0, len(knownKeys))
	for k := range knownKeys {
		s = append(s, k)
	}

	slices.Sort(s)

	return s
}()

// checkUnknownKeys inspects TOML metadata for undecoded keys and returns
// an error with "did you mean?" suggestions for each unknown key. An
// unknown top-level name is reported once, not once per key beneath it.
func checkUnknownKeys(md *toml.MetaData) error {
	var errs []error

	reported := make(map[string]bool)

	for _, key := range md.Undecoded() {
		top := key[0]

		keys, ok := knownKeys[top]
		if !ok {
			if !reported[top] {
				reported[top] = true
				errs = append(errs, suggest(fmt.Sprintf("unknown config key %q", top), top, knownSections))
			}

			continue
		}

		if len(key) > 1 {
			errs = append(errs, suggest(fmt.Sprintf("unknown config key %q in [%s]", key[1], top), key[1], keys))
		}
	}

	return errors.Join(errs...)
}

func suggest(msg, unknown string, known []string) error {
	if s := closestMatch(unknown, known); s != "" {
		return fmt.Errorf("%s: did you mean %q?", msg, s)
	}

	return errors.New(msg)
}

// closestMatch finds the closest known key by Levenshtein distance.
// Returns empty string if no match is within maxLevenshteinDistance.
func closestMatch(unknown string, known []string) string {
	best := ""
	bestDist := maxLevenshteinDistance + 1

	for _, k := range known {
		if d := levenshtein(strings.ToLower(unknown), k); d < bestDist {
			bestDist = d
			best = k
		}
	}

	return best
}

// levenshtein computes the edit distance between two strings using two
// rolling rows.
func levenshtein(a, b string) int {
	if a == "" {
		return len(b)
	}

	if b == "" {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for j := range prev {
		prev[j] = j
	}

	for i := range len(a) {
		curr[0] = i + 1

		for j := range len(b) {
			cost := 1
			if a[i] == b[j] {
				cost = 0
			}

			curr[j+1] = min(curr[j]+1, prev[j+1]+1, prev[j]+cost)
		}

		prev, curr = curr, prev
	}

	return prev[len(b)]
}
