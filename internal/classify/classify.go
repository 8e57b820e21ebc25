package classify

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Rule and fallback source names reported in Result.Rule.
const (
	RuleYMD      = "ymd"
	RuleDMY      = "dmy"
	RuleMDY      = "mdy"
	RuleCompact  = "compact"
	RulePartial  = "partial"
	SourceExif   = "exif"
	SourceMtime  = "mtime"
	DefaultFloor = 1990
)

// Result is a classification outcome. OK is false for Unclassified.
type Result struct {
	Year  int
	Month int
	Rule  string
	OK    bool
}

// Dir returns the "YYYY/MM" destination subdirectory.
func (r Result) Dir() string {
	return fmt.Sprintf("%04d/%02d", r.Year, r.Month)
}

func (r Result) String() string {
	if !r.OK {
		return "unclassified"
	}
	return r.Dir() + " (" + r.Rule + ")"
}

// Options configures a Classifier.
type Options struct {
	// DayFirst evaluates DD-MM-YYYY before MM-DD-YYYY.
	DayFirst bool
	// MinYear is the earliest accepted year. Zero means DefaultFloor.
	MinYear int
	// Now supplies the current time; the current year caps accepted dates.
	Now func() time.Time
}

// Classifier applies the ordered rule set.
type Classifier struct {
	rules   []rule
	minYear int
	now     func() time.Time
}

type rule struct {
	name    string
	pattern *regexp.Regexp
	// digitBefore/digitAfter reject matches glued to further digits.
	digitBefore bool
	digitAfter  bool
	extract     func(groups []string) (year, month int, ok bool)
}

var (
	ymdPattern      = regexp.MustCompile(`(\d{4})[-_]?(\d{2})[-_]?(\d{2})`)
	dayMonthPattern = regexp.MustCompile(`(\d{2})[-_/](\d{2})[-_/](\d{4})`)
	compactPattern  = regexp.MustCompile(`(\d{4})(\d{2})(\d{2})(?:_(\d{6}))?`)
	yearMonthPart   = regexp.MustCompile(`(\d{4})[-_](\d{2})`)
	monthYearPart   = regexp.MustCompile(`(\d{2})[-_](\d{4})`)
)

// New builds a Classifier with the rule order implied by opts.
func New(opts Options) *Classifier {
	minYear := opts.MinYear
	if minYear <= 0 {
		minYear = DefaultFloor
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	dmy := rule{name: RuleDMY, pattern: dayMonthPattern, extract: func(g []string) (int, int, bool) {
		if !isDay(g[1]) {
			return 0, 0, false
		}
		return atoi(g[3]), atoi(g[2]), true
	}}
	mdy := rule{name: RuleMDY, pattern: dayMonthPattern, extract: func(g []string) (int, int, bool) {
		if !isDay(g[2]) {
			return 0, 0, false
		}
		return atoi(g[3]), atoi(g[1]), true
	}}
	first, second := dmy, mdy
	if !opts.DayFirst {
		first, second = mdy, dmy
	}

	rules := []rule{
		{name: RuleYMD, pattern: ymdPattern, extract: func(g []string) (int, int, bool) {
			return atoi(g[1]), atoi(g[2]), true
		}},
		first,
		second,
		{name: RuleCompact, pattern: compactPattern, extract: func(g []string) (int, int, bool) {
			return atoi(g[1]), atoi(g[2]), true
		}},
		{name: RulePartial, pattern: yearMonthPart, extract: func(g []string) (int, int, bool) {
			return atoi(g[1]), atoi(g[2]), true
		}},
		{name: RulePartial, pattern: monthYearPart, extract: func(g []string) (int, int, bool) {
			return atoi(g[2]), atoi(g[1]), true
		}},
	}
	for i := range rules {
		rules[i].digitBefore = true
		// Year-first dates are often followed by a time or sequence number.
		rules[i].digitAfter = rules[i].name != RuleYMD && rules[i].name != RuleCompact
	}

	return &Classifier{rules: rules, minYear: minYear, now: now}
}

// Classify returns the first valid date found in name, trying every
// occurrence of each rule in priority order.
func (c *Classifier) Classify(name string) Result {
	normalized := norm.NFKC.String(name)
	for _, r := range c.rules {
		if res, ok := c.apply(r, normalized); ok {
			return res
		}
	}
	return Result{}
}

func (c *Classifier) apply(r rule, name string) (Result, bool) {
	for start := 0; start < len(name); {
		loc := r.pattern.FindStringSubmatchIndex(name[start:])
		if loc == nil {
			return Result{}, false
		}
		offset := start
		begin, end := offset+loc[0], offset+loc[1]
		start = begin + 1

		if r.digitBefore && begin > 0 && isDigit(name[begin-1]) {
			continue
		}
		if r.digitAfter && end < len(name) && isDigit(name[end]) {
			continue
		}
		groups := make([]string, len(loc)/2)
		for i := range groups {
			if s, e := loc[2*i], loc[2*i+1]; s >= 0 {
				groups[i] = name[offset+s : offset+e]
			}
		}
		year, month, ok := r.extract(groups)
		if ok && c.Valid(year, month) {
			return Result{Year: year, Month: month, Rule: r.name, OK: true}, true
		}
	}
	return Result{}, false
}

// FromTime classifies a fallback timestamp (exif or mtime) under the same
// validation as filename rules.
func (c *Classifier) FromTime(t time.Time, source string) Result {
	if t.IsZero() {
		return Result{}
	}
	year, month := t.Year(), int(t.Month())
	if !c.Valid(year, month) {
		return Result{}
	}
	return Result{Year: year, Month: month, Rule: source, OK: true}
}

// Valid reports whether year and month fall in the accepted range.
func (c *Classifier) Valid(year, month int) bool {
	return year >= c.minYear && year <= c.now().Year() && month >= 1 && month <= 12
}

func isDay(s string) bool {
	d := atoi(s)
	return d >= 1 && d <= 31
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return -1
	}
	return n
}
