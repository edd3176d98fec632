// Package score computes an itemized quality score for source content from
// twelve independent line-pattern heuristics. Evaluation is total: any
// input, including empty or unparseable text, produces a bounded result.
package score

import (
	"regexp"
	"strings"
)

// MaxPoints is the sum of all metric weights.
const MaxPoints = 62

// Grade thresholds as percentages of MaxPoints.
const (
	gradeHighPct     = 70
	gradeModeratePct = 40
)

// Grade is the coarse quality tier derived from the score percentage.
type Grade string

// Quality tiers.
const (
	GradeHigh     Grade = "High"
	GradeModerate Grade = "Moderate"
	GradeBasic    Grade = "Basic"
)

// Item is one metric's outcome in the ordered breakdown.
type Item struct {
	Metric   string
	Awarded  int
	Possible int
}

// Result is the itemized quality score for one content input.
type Result struct {
	Total int
	Items []Item
}

// Percent converts a point total to an integer percentage of MaxPoints.
func Percent(points int) int {
	return points * 100 / MaxPoints
}

// GradeFor maps a point total to its quality tier.
func GradeFor(points int) Grade {
	pct := Percent(points)

	switch {
	case pct >= gradeHighPct:
		return GradeHigh
	case pct >= gradeModeratePct:
		return GradeModerate
	default:
		return GradeBasic
	}
}

// Percent returns the result's score percentage.
func (r Result) Percent() int { return Percent(r.Total) }

// Grade returns the result's quality tier.
func (r Result) Grade() Grade { return GradeFor(r.Total) }

// metric couples a breakdown label and weight with its evaluation rule.
type metric struct {
	name   string
	points int
	eval   func(in *input) bool
}

// Metric weights. Their sum is MaxPoints.
const (
	pointsDocstrings       = 10
	pointsTypeHints        = 8
	pointsCommentRatio     = 7
	pointsLineLength       = 5
	pointsNoWildcard       = 5
	pointsFunctionsClasses = 5
	pointsNaming           = 5
	pointsNoBareExcept     = 4
	pointsNoEvalExec       = 4
	pointsNesting          = 4
	pointsExceptionUse     = 3
	pointsNoMagicNumbers   = 2
)

// Heuristic thresholds.
const (
	commentRatioMin  = 0.05
	commentRatioMax  = 0.4
	maxLineLength    = 120
	longLineFraction = 0.1
	goodNameFraction = 0.8
	maxNestingDepth  = 5
	indentUnit       = 4
	magicNumberLimit = 5
)

var (
	typeHintRE   = regexp.MustCompile(`def \w+\([^)]*:\s*\w+`)
	identifierRE = regexp.MustCompile(`(?i)\b([a-z_][a-z0-9_]*)\b`)
	magicNumRE   = regexp.MustCompile(`[^0-9_]([2-9]\d{2,}|[1-9]\d{3,})[^0-9_]`)
)

// shortNames are conventional single-letter identifiers that do not count
// against naming quality.
var shortNames = map[string]struct{}{
	"i": {}, "j": {}, "k": {}, "x": {}, "y": {}, "n": {},
}

// metrics is the ordered rule table; breakdown order follows it.
var metrics = []metric{
	{"Docstrings present", pointsDocstrings, hasDocstrings},
	{"Type hints", pointsTypeHints, hasTypeHints},
	{"Comment ratio", pointsCommentRatio, goodCommentRatio},
	{"Line length", pointsLineLength, reasonableLineLength},
	{"No wildcard imports", pointsNoWildcard, noWildcardImports},
	{"Functions/classes present", pointsFunctionsClasses, hasFunctionsOrClasses},
	{"Naming quality", pointsNaming, goodNaming},
	{"No bare exception handlers", pointsNoBareExcept, noBareExcept},
	{"No dynamic code execution", pointsNoEvalExec, noEvalExec},
	{"Reasonable nesting depth", pointsNesting, reasonableNesting},
	{"Exception handling present", pointsExceptionUse, hasExceptionHandling},
	{"Low magic-number density", pointsNoMagicNumbers, fewMagicNumbers},
}

// input is the shared evaluation context so each metric does not re-split.
type input struct {
	content string
	lines   []string
}

// Score evaluates all metrics over the content. Each metric is independent;
// one that cannot be evaluated scores zero rather than aborting the rest.
func Score(content string) Result {
	in := &input{content: content}
	if content != "" {
		in.lines = strings.Split(content, "\n")
	}

	res := Result{Items: make([]Item, 0, len(metrics))}

	for _, m := range metrics {
		awarded := 0
		if content != "" && safeEval(m.eval, in) {
			awarded = m.points
		}

		res.Total += awarded
		res.Items = append(res.Items, Item{Metric: m.name, Awarded: awarded, Possible: m.points})
	}

	return res
}

// safeEval shields the scorer from a panicking rule; a failed metric scores
// zero per the totality contract.
func safeEval(eval func(*input) bool, in *input) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()

	return eval(in)
}

func hasDocstrings(in *input) bool {
	return strings.Contains(in.content, `"""`) || strings.Contains(in.content, "'''")
}

func hasTypeHints(in *input) bool {
	return typeHintRE.MatchString(in.content) || strings.Contains(in.content, "->")
}

func goodCommentRatio(in *input) bool {
	commentLines := 0
	codeLines := 0

	for _, l := range in.lines {
		t := strings.TrimSpace(l)
		if t == "" {
			continue
		}

		if strings.HasPrefix(t, "#") {
			commentLines++
		} else {
			codeLines++
		}
	}

	if codeLines == 0 {
		return false
	}

	ratio := float64(commentLines) / float64(codeLines)

	return ratio >= commentRatioMin && ratio <= commentRatioMax
}

func reasonableLineLength(in *input) bool {
	long := 0

	for _, l := range in.lines {
		if len(l) > maxLineLength {
			long++
		}
	}

	return float64(long) < float64(len(in.lines))*longLineFraction
}

func noWildcardImports(in *input) bool {
	return !strings.Contains(in.content, "import *")
}

func hasFunctionsOrClasses(in *input) bool {
	return strings.Contains(in.content, "def ") || strings.Contains(in.content, "class ")
}

func goodNaming(in *input) bool {
	ids := identifierRE.FindAllString(in.content, -1)
	if len(ids) == 0 {
		return true
	}

	good := 0

	for _, id := range ids {
		if len(id) > 1 {
			good++
			continue
		}

		if _, ok := shortNames[strings.ToLower(id)]; ok {
			good++
		}
	}

	return float64(good)/float64(len(ids)) > goodNameFraction
}

func noBareExcept(in *input) bool {
	return !strings.Contains(in.content, "except:")
}

func noEvalExec(in *input) bool {
	return !strings.Contains(in.content, "eval(") && !strings.Contains(in.content, "exec(")
}

func reasonableNesting(in *input) bool {
	maxDepth := 0

	for _, l := range in.lines {
		if strings.TrimSpace(l) == "" {
			continue
		}

		depth := (len(l) - len(strings.TrimLeft(l, " \t"))) / indentUnit
		if depth > maxDepth {
			maxDepth = depth
		}
	}

	return maxDepth <= maxNestingDepth
}

func hasExceptionHandling(in *input) bool {
	return strings.Contains(in.content, "try:") && strings.Contains(in.content, "except")
}

func fewMagicNumbers(in *input) bool {
	return len(magicNumRE.FindAllString(in.content, -1)) < magicNumberLimit
}
