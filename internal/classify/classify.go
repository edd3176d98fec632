// Package classify assigns a coarse domain category to a source-code record
// from import statements, path keywords, and content patterns. The category
// tables are data; one evaluation routine enforces weighting, tie-breaking,
// and the minimum-evidence threshold.
package classify

import (
	"regexp"
	"strings"
)

// CodeType is a coarse category label for a record's apparent domain.
type CodeType string

// Known categories, in evaluation order.
const (
	TypeGUI             CodeType = "GUI"
	TypeAIML            CodeType = "AI/ML"
	TypeDataProcessing  CodeType = "Data Processing"
	TypeImageProcessing CodeType = "Image Processing"
	TypeWebAPI          CodeType = "Web/API"
	TypeDatabase        CodeType = "Database"
	TypeAlgorithm       CodeType = "Algorithm"
	TypeTesting         CodeType = "Testing"
	TypeNetworking      CodeType = "Networking"
	TypeAutomation      CodeType = "Automation/Scripting"

	// TypeUnclassified is returned when no category reaches the minimum
	// evidence threshold, including for empty or non-source content.
	TypeUnclassified CodeType = "Unclassified"
)

// Evidence weights and the minimum aggregate weight a category must reach.
const (
	weightImport  = 3
	weightPath    = 2
	weightContent = 1

	minScore = 1
)

// evidence ranks break exact weight ties: import analysis outranks path
// keywords, which outrank content patterns.
type evidence int

const (
	evidenceNone evidence = iota
	evidenceContent
	evidencePath
	evidenceImport
)

// importStmtRE matches Python-style import statements at line start.
// Group 1 captures the module of a "from X import ..." form, group 2 the
// comma-separated modules of a plain "import X, Y" form.
var importStmtRE = regexp.MustCompile(`(?m)^\s*(?:from\s+([\w.]+)\s+import|import\s+([\w., ]+))`)

// Classify returns the best-matching category for the given path and content.
// It is total: any input, including empty strings, yields a valid category.
func Classify(path, content string) CodeType {
	imports := extractImports(content)
	lowerPath := strings.ToLower(path)
	lowerContent := strings.ToLower(content)

	best := TypeUnclassified
	bestScore := 0
	bestRank := evidenceNone

	for _, cat := range categories {
		total, rank := scoreCategory(cat, imports, lowerPath, lowerContent)
		if total < minScore {
			continue
		}

		if total > bestScore || (total == bestScore && rank > bestRank) {
			best = cat
			bestScore = total
			bestRank = rank
		}
	}

	return best
}

// scoreCategory aggregates evidence weight for one category and reports the
// strongest evidence kind that contributed.
func scoreCategory(cat CodeType, imports map[string]struct{}, lowerPath, lowerContent string) (int, evidence) {
	rules := ruleTable[cat]
	total := 0
	rank := evidenceNone

	for _, mod := range rules.Imports {
		if matchImport(imports, mod) {
			total += weightImport

			if rank < evidenceImport {
				rank = evidenceImport
			}
		}
	}

	for _, kw := range rules.PathKeywords {
		if strings.Contains(lowerPath, kw) {
			total += weightPath

			if rank < evidencePath {
				rank = evidencePath
			}
		}
	}

	for _, pat := range rules.ContentPatterns {
		if strings.Contains(lowerContent, pat) {
			total += weightContent

			if rank < evidenceContent {
				rank = evidenceContent
			}
		}
	}

	return total, rank
}

// extractImports collects the top-level module names referenced by import
// statements, lowercased.
func extractImports(content string) map[string]struct{} {
	out := make(map[string]struct{})

	for _, m := range importStmtRE.FindAllStringSubmatch(content, -1) {
		if m[1] != "" {
			addModule(out, m[1])
			continue
		}

		for _, mod := range strings.Split(m[2], ",") {
			addModule(out, mod)
		}
	}

	return out
}

func addModule(set map[string]struct{}, raw string) {
	mod := strings.TrimSpace(raw)
	if mod == "" {
		return
	}

	// "os.path" counts as "os"; "x as y" counts as "x".
	if i := strings.IndexByte(mod, '.'); i >= 0 {
		mod = mod[:i]
	}

	if i := strings.Index(mod, " as "); i >= 0 {
		mod = mod[:i]
	}

	set[strings.ToLower(strings.TrimSpace(mod))] = struct{}{}
}

// matchImport reports whether any extracted module matches the table keyword.
// Table keywords are matched as prefixes so "scikit-learn" style entries and
// versioned module names still hit.
func matchImport(imports map[string]struct{}, keyword string) bool {
	if _, ok := imports[keyword]; ok {
		return true
	}

	for mod := range imports {
		if strings.HasPrefix(mod, keyword) {
			return true
		}
	}

	return false
}
