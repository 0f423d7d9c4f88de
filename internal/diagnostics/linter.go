package diagnostics

import (
	"regexp"
	"strings"

	"github.com/suoto/hdl-checker/internal/types"
)

const staticChecker = "HDL Code Checker/static"

// zone is the syntactic region the region-aware scanner is currently in.
type zone int

const (
	zoneNone zone = iota
	zoneEntity
	zoneArchitecture
	zonePackage
	zonePackageBody
)

var (
	lineCommentRe = regexp.MustCompile(`--.*$`)

	areaEntityRe  = regexp.MustCompile(`(?i)^\s*entity\s+\w+\s+is\b`)
	areaArchRe    = regexp.MustCompile(`(?i)^\s*architecture\s+\w+\s+of\s+\w+`)
	areaPkgRe     = regexp.MustCompile(`(?i)^\s*package\s+\w+\s+is\b`)
	areaPkgBodyRe = regexp.MustCompile(`(?i)^\s*package\s+body\s+\w+\s+is\b`)

	noAreaLibraryRe  = regexp.MustCompile(`(?i)^\s*library\s+([\w\s,]+)`)
	noAreaAttributeRe = regexp.MustCompile(`(?i)^\s*attribute\s+([\w\s,]+)\s*:`)

	entityPortRe    = regexp.MustCompile(`(?i)^\s*([\w\s,]+)\s*:\s*(?:in|out|inout|buffer|linkage)\s+\w+`)
	entityGenericRe = regexp.MustCompile(`(?i)^\s*([\w\s,]+)\s*:\s*\w+`)

	archConstantRe       = regexp.MustCompile(`(?i)^\s*constant\s+([\w\s,]+)\s*:`)
	archSignalRe         = regexp.MustCompile(`(?i)^\s*signal\s+([\w\s,]+)\s*:`)
	archTypeRe           = regexp.MustCompile(`(?i)^\s*type\s+(\w+)\s*:`)
	archSharedVariableRe = regexp.MustCompile(`(?i)^\s*shared\s+variable\s+([\w\s,]+)\s*:`)

	endOfScanRe = regexp.MustCompile(`(?i)\bport\s+map\b|\bgenerate\b|\w+\s*:\s*entity\b|\bprocess\b`)

	wordRe = regexp.MustCompile(`\w+`)

	commentTagRe = regexp.MustCompile(`(?i)--\s*(TODO|FIXME|XXX)\s*:?\s*(.*)`)
)

type declaredObject struct {
	name     string
	kind     string
	line     int // 1-based
	column   int // 1-based
}

// LintVHDL runs the purely textual style linter (spec §4.6) over a VHDL
// source's content: unused-object detection plus TODO/FIXME/XXX comment
// tags. It never needs a compiler and always emits style-severity
// diagnostics.
func LintVHDL(path types.Path, content string) []Diagnostic {
	lines := strings.Split(content, "\n")

	objects := findDeclaredObjects(lines)
	var out []Diagnostic

	fullText := strings.Join(lines, " ")
	for _, obj := range objects {
		if countWordOccurrences(fullText, obj.name) > 1 {
			continue
		}
		out = append(out, Diagnostic{
			Checker:   staticChecker,
			Path:      PathPtr(path),
			Line:      IntPtr(obj.line),
			Column:    IntPtr(obj.column),
			Severity:  StyleWarning,
			ErrorCode: "0",
			Text:      obj.kind + " '" + obj.name + "' is never used",
		})
	}

	out = append(out, commentTags(path, lines)...)
	return out
}

func findDeclaredObjects(lines []string) []declaredObject {
	var objects []declaredObject
	seen := map[string]bool{}
	current := zoneNone

	for i, raw := range lines {
		line := lineCommentRe.ReplaceAllString(raw, "")
		lineNo := i + 1

		switch {
		case areaEntityRe.MatchString(line):
			current = zoneEntity
		case areaArchRe.MatchString(line):
			current = zoneArchitecture
		case areaPkgBodyRe.MatchString(line):
			current = zonePackageBody
		case areaPkgRe.MatchString(line):
			current = zonePackage
		}

		var matches []declMatch
		switch current {
		case zoneNone:
			matches = append(matches, scanGroup(line, noAreaLibraryRe, "library")...)
			matches = append(matches, scanGroup(line, noAreaAttributeRe, "attribute")...)
		case zoneEntity:
			matches = append(matches, scanGroup(line, entityPortRe, "port")...)
			matches = append(matches, scanGroup(line, entityGenericRe, "generic")...)
		case zoneArchitecture:
			matches = append(matches, scanGroup(line, archConstantRe, "constant")...)
			matches = append(matches, scanGroup(line, archSignalRe, "signal")...)
			matches = append(matches, scanGroup(line, archTypeRe, "type")...)
			matches = append(matches, scanGroup(line, archSharedVariableRe, "shared variable")...)
		}

		for _, m := range matches {
			for _, word := range wordRe.FindAllString(m.names, -1) {
				key := strings.ToLower(word)
				if seen[key] {
					continue
				}
				seen[key] = true
				objects = append(objects, declaredObject{
					name:   word,
					kind:   m.kind,
					line:   lineNo,
					column: m.column + 1,
				})
			}
		}

		if endOfScanRe.MatchString(line) {
			break
		}
	}
	return objects
}

type declMatch struct {
	names  string
	kind   string
	column int
}

func scanGroup(line string, re *regexp.Regexp, kind string) []declMatch {
	loc := re.FindStringSubmatchIndex(line)
	if loc == nil {
		return nil
	}
	// Group 1 is always the capturing group holding the declared names.
	if len(loc) < 4 || loc[2] < 0 {
		return nil
	}
	return []declMatch{{names: line[loc[2]:loc[3]], kind: kind, column: loc[2]}}
}

func countWordOccurrences(text, word string) int {
	re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(word) + `\b`)
	return len(re.FindAllString(text, -1))
}

func commentTags(path types.Path, lines []string) []Diagnostic {
	var out []Diagnostic
	for i, line := range lines {
		lower := strings.ToLower(line)
		if !strings.Contains(lower, "todo") && !strings.Contains(lower, "fixme") && !strings.Contains(lower, "xxx") {
			continue
		}
		m := commentTagRe.FindStringSubmatchIndex(line)
		if m == nil {
			continue
		}
		tag := strings.ToUpper(line[m[2]:m[3]])
		text := strings.TrimSpace(line[m[4]:m[5]])
		out = append(out, Diagnostic{
			Checker:   staticChecker,
			Path:      PathPtr(path),
			Line:      IntPtr(i + 1),
			Column:    IntPtr(m[0] + 1),
			Severity:  StyleWarning,
			ErrorCode: "0",
			Text:      tag + ": " + text,
		})
	}
	return out
}
