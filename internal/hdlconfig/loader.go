package hdlconfig

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/cespare/xxhash/v2"
	"github.com/hbollon/go-edlib"

	"github.com/suoto/hdl-checker/internal/hdlerrors"
	"github.com/suoto/hdl-checker/internal/types"
)

var knownParameters = []string{
	string(ScopeSingle), string(ScopeBatch), string(ScopeGlobal), "builder", "target_dir",
}

var deprecatedParameters = map[string]bool{"target_dir": true}

var (
	commentRe = regexp.MustCompile(`#.*$`)
	paramRe   = regexp.MustCompile(`(?i)^\s*(\w+)(?:\[(vhdl|verilog|systemverilog)\])?\s*=\s*(.*?)\s*$`)
	sourceRe  = regexp.MustCompile(`(?i)^\s*(vhdl|verilog|systemverilog)\s+(\w+)\s+(\S+)\s*(.*?)\s*$`)
)

// Loader re-parses a project configuration file only when its mtime has
// advanced, per spec §4.2.
type Loader struct {
	path      types.Path
	timestamp time.Time
	cached    *Config
}

// NewLoader creates a loader bound to the given config file path.
func NewLoader(path string) *Loader {
	return &Loader{path: types.NewPath(path)}
}

// Load parses the configuration if it hasn't been parsed yet or the file
// changed since the last call, and returns the (possibly cached) result.
func (l *Loader) Load() (*Config, error) {
	mtime := l.path.ModTime()
	if l.cached != nil && !mtime.After(l.timestamp) {
		return l.cached, nil
	}

	cfg, err := parseFile(l.path)
	if err != nil {
		return nil, err
	}

	l.timestamp = mtime
	l.cached = cfg
	return cfg, nil
}

func parseFile(path types.Path) (*Config, error) {
	raw, err := os.ReadFile(path.String())
	if err != nil {
		return nil, err
	}

	cfg := newConfig()
	baseDir := path.Dir().String()

	scanner := bufio.NewScanner(bytes.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := commentRe.ReplaceAllString(scanner.Text(), "")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if err := parseLine(cfg, baseDir, line); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	cfg.Hash = fingerprint(cfg)
	return cfg, nil
}

// parseLine dispatches a line to the parameter-assignment or
// source-declaration production. The grammar (spec §4.2) makes the two
// unambiguous: only the parameter form contains "=".
func parseLine(cfg *Config, baseDir, line string) error {
	if m := paramRe.FindStringSubmatch(line); m != nil {
		return handleParameter(cfg, m[1], types.FileType(strings.ToLower(m[2])), m[3])
	}
	if m := sourceRe.FindStringSubmatch(line); m != nil {
		return handleSource(cfg, baseDir, types.FileType(strings.ToLower(m[1])), m[2], m[3], m[4])
	}
	return nil
}

func handleParameter(cfg *Config, param string, lang types.FileType, value string) error {
	switch {
	case deprecatedParameters[strings.ToLower(param)]:
		return nil
	case strings.EqualFold(param, "builder"):
		b, ok := builderFromString(strings.ToLower(value))
		if !ok {
			cfg.Builder = BuilderFallback
			return nil
		}
		cfg.Builder = b
		return nil
	case FlagScope(strings.ToLower(param)) == ScopeSingle,
		FlagScope(strings.ToLower(param)) == ScopeBatch,
		FlagScope(strings.ToLower(param)) == ScopeGlobal:
		scope := FlagScope(strings.ToLower(param))
		if lang == "" {
			return nil
		}
		cfg.Flags[scope][lang] = splitFlags(value)
		return nil
	default:
		return &hdlerrors.UnknownParameter{
			Parameter:  param,
			Suggestion: suggestParameter(param),
		}
	}
}

func handleSource(cfg *Config, baseDir string, lang types.FileType, library, rawPath, rawFlags string) error {
	flags := splitFlags(rawFlags)

	for _, resolved := range expandPath(baseDir, rawPath) {
		if types.IsHeader(resolved) {
			dir := filepath.Dir(resolved)
			cfg.IncludeDirs[lang] = appendUnique(cfg.IncludeDirs[lang], dir)
			continue
		}
		cfg.Sources = append(cfg.Sources, SourceSpec{
			Path:    types.NewPath(resolved),
			Library: library,
			Lang:    lang,
			Flags:   flags,
		})
	}
	return nil
}

func expandPath(baseDir, rawPath string) []string {
	path := os.ExpandEnv(rawPath)
	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}
	path = filepath.Clean(path)

	matches, err := doublestar.FilepathGlob(path)
	if err != nil || len(matches) == 0 {
		return []string{path}
	}
	sort.Strings(matches)
	return matches
}

func splitFlags(s string) []string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil
	}
	return fields
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}

// suggestParameter returns the nearest known parameter name by edit
// distance, or "" if nothing is close enough to be useful (SPEC_FULL.md
// §3, "did you mean" ergonomics).
func suggestParameter(param string) string {
	best := ""
	bestScore := 0.0
	for _, known := range knownParameters {
		score, err := edlib.StringsSimilarity(strings.ToLower(param), known, edlib.Levenshtein)
		if err != nil {
			continue
		}
		if score > bestScore {
			bestScore = score
			best = known
		}
	}
	if bestScore < 0.5 {
		return ""
	}
	return best
}

func fingerprint(cfg *Config) uint64 {
	h := xxhash.New()
	sources := append([]SourceSpec(nil), cfg.Sources...)
	sort.Slice(sources, func(i, j int) bool {
		return sources[i].Path.String() < sources[j].Path.String()
	})
	for _, s := range sources {
		fmt.Fprintf(h, "%s\x00%s\x00%s\x00%s\n", s.Path.String(), s.Library, s.Lang, strings.Join(s.Flags, " "))
	}
	fmt.Fprintf(h, "builder=%s\n", cfg.Builder)
	for _, scope := range allScopes {
		for _, lang := range allLangs {
			fmt.Fprintf(h, "%s[%s]=%s\n", scope, lang, strings.Join(cfg.Flags[scope][lang], " "))
		}
	}
	return h.Sum64()
}
