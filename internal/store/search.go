package store

import (
	"database/sql/driver"
	"fmt"
	"regexp"
	"sync"

	"modernc.org/sqlite"
)

// SQLite has no native general regex support, so the derived-view layer
// relies on a registered scalar function
//
//	search(pattern, text, flags) -> 0 | 1
//
// backed by Go's regexp engine. flags is a bitmask; only searchFlagNoCase is
// defined. The function is deterministic, which lets SQLite cache results
// within a statement. It runs synchronously inside row evaluation and may be
// slow on pathological patterns; that is accepted for bounded dataset sizes.
const searchFlagNoCase = 1

var (
	registerOnce sync.Once
	registerErr  error

	patternMu    sync.Mutex
	patternCache = map[string]*regexp.Regexp{}
)

// registerSearch registers the search() function with the sqlite driver.
// Registration is process-wide, applies to connections opened afterwards,
// and must happen before the first query that uses it — Open calls this
// before touching the database.
func registerSearch() error {
	registerOnce.Do(func() {
		registerErr = sqlite.RegisterDeterministicScalarFunction("search", 3, sqlSearch)
	})
	return registerErr
}

func sqlSearch(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	pattern, ok := textArg(args[0])
	if !ok {
		return nil, fmt.Errorf("search: pattern is not text: %T", args[0])
	}
	text, ok := textArg(args[1])
	if !ok {
		// NULL text (e.g. a flow with no comment) matches nothing.
		return int64(0), nil
	}
	flags, _ := args[2].(int64)

	re, err := compilePattern(pattern, flags)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	if re.MatchString(text) {
		return int64(1), nil
	}
	return int64(0), nil
}

func textArg(v driver.Value) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case []byte:
		return string(t), true
	case int64:
		return fmt.Sprintf("%d", t), true
	case float64:
		return fmt.Sprintf("%g", t), true
	default:
		return "", false
	}
}

// compilePattern returns a cached compiled regex for (pattern, flags).
// The cache is unbounded; operators enter a handful of distinct filter
// patterns per session, not an adversarial stream.
func compilePattern(pattern string, flags int64) (*regexp.Regexp, error) {
	expr := pattern
	if flags&searchFlagNoCase != 0 {
		expr = "(?i)" + expr
	}

	patternMu.Lock()
	defer patternMu.Unlock()
	if re, ok := patternCache[expr]; ok {
		return re, nil
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}
	patternCache[expr] = re
	return re, nil
}
