package pages

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mbd888/careerhub/internal/brand"
)

// Field is one text input of a tool form.
type Field struct {
	Name  string
	Label string
}

// Tool is a free career tool. Running one needs a session.
type Tool struct {
	Slug    string
	Name    string
	Summary string
	Action  string
	Fields  []Field
	// Feature, when set, must be enabled for the tenant.
	Feature brand.Feature
	run     func(in map[string]string) *Result
}

// Path is the tool's logical page path.
func (t Tool) Path() string { return "/" + t.Slug }

// RunPath is the logical path the form posts to.
func (t Tool) RunPath() string { return "/" + t.Slug + "/run" }

// Available reports whether the tenant offers the tool.
func (t Tool) Available(cfg *brand.Config) bool {
	return t.Feature == "" || cfg.Has(t.Feature)
}

// Result is a tool's output.
type Result struct {
	Headline string
	Lines    []string
}

const maxInput = 20000

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

var tools = []Tool{
	{
		Slug:    "ats-checker",
		Name:    "ATS Checker",
		Summary: "See which keywords from a job advert an applicant tracking system will find in your CV.",
		Action:  "Check ATS Score",
		Fields:  []Field{{Name: "cv", Label: "Your CV"}, {Name: "job", Label: "Job advert"}},
		run:     runATSCheck,
	},
	{
		Slug:    "skills-generator",
		Name:    "Skills Generator",
		Summary: "Pull the skills a job advert asks for most often into a list for your CV.",
		Action:  "Find skills",
		Fields:  []Field{{Name: "job", Label: "Job advert"}},
		run:     runSkills,
	},
	{
		Slug:    "cover-letter",
		Name:    "Cover Letter Planner",
		Summary: "Get a paragraph-by-paragraph plan for a cover letter aimed at one advert.",
		Action:  "Plan my letter",
		Fields:  []Field{{Name: "job", Label: "Job advert"}},
		Feature: brand.FeatureCoverLetter,
		run:     runCoverLetter,
	},
	{
		Slug:    "linkedin-optimizer",
		Name:    "LinkedIn Headline Check",
		Summary: "Check your LinkedIn headline length and keyword use.",
		Action:  "Check headline",
		Fields:  []Field{{Name: "headline", Label: "Headline"}},
		Feature: brand.FeatureLinkedInTools,
		run:     runHeadline,
	},
}

func availableTools(cfg *brand.Config) []Tool {
	var out []Tool
	for _, t := range tools {
		if t.Available(cfg) {
			out = append(out, t)
		}
	}
	return out
}

var stopWords = map[string]struct{}{
	"about": {}, "also": {}, "and": {}, "are": {}, "based": {}, "been": {}, "both": {}, "but": {},
	"can": {}, "each": {}, "for": {}, "from": {}, "have": {}, "into": {}, "join": {}, "more": {},
	"must": {}, "other": {}, "our": {}, "role": {}, "should": {}, "that": {}, "the": {}, "their": {},
	"them": {}, "they": {}, "this": {}, "will": {}, "with": {}, "within": {}, "work": {}, "working": {},
	"would": {}, "years": {}, "you": {}, "your": {}, "team": {}, "what": {}, "when": {}, "where": {},
	"which": {}, "while": {}, "who": {}, "able": {}, "well": {}, "including": {},
}

// words splits text into lowercase terms of at least three characters,
// dropping stop words. Terms keep + and # so "c++" and "c#" survive.
func words(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '+' && r != '#'
	})
	out := fields[:0]
	for _, f := range fields {
		if len(f) < 3 {
			if f != "c#" && f != "go" {
				continue
			}
		}
		if _, stop := stopWords[f]; stop {
			continue
		}
		out = append(out, f)
	}
	return out
}

// rankedTerms returns distinct terms ordered by frequency, then first use.
func rankedTerms(text string) []string {
	counts := map[string]int{}
	first := map[string]int{}
	var order []string
	for i, w := range words(text) {
		if _, seen := counts[w]; !seen {
			first[w] = i
			order = append(order, w)
		}
		counts[w]++
	}
	sort.SliceStable(order, func(i, j int) bool {
		if counts[order[i]] != counts[order[j]] {
			return counts[order[i]] > counts[order[j]]
		}
		return first[order[i]] < first[order[j]]
	})
	return order
}

func limit(terms []string, n int) []string {
	if len(terms) > n {
		return terms[:n]
	}
	return terms
}

func runATSCheck(in map[string]string) *Result {
	keywords := limit(rankedTerms(in["job"]), 25)
	if len(keywords) == 0 {
		return &Result{Headline: "Paste a job advert to check against."}
	}
	have := map[string]struct{}{}
	for _, w := range words(in["cv"]) {
		have[w] = struct{}{}
	}
	var matched, missing []string
	for _, k := range keywords {
		if _, ok := have[k]; ok {
			matched = append(matched, k)
		} else {
			missing = append(missing, k)
		}
	}
	score := len(matched) * 100 / len(keywords)
	res := &Result{Headline: fmt.Sprintf("ATS match score: %d%%", score)}
	if len(matched) > 0 {
		res.Lines = append(res.Lines, "Found: "+strings.Join(matched, ", "))
	}
	if len(missing) > 0 {
		res.Lines = append(res.Lines, "Missing: "+strings.Join(limit(missing, 10), ", "))
	}
	return res
}

func runSkills(in map[string]string) *Result {
	terms := limit(rankedTerms(in["job"]), 10)
	if len(terms) == 0 {
		return &Result{Headline: "Paste a job advert to find its skills."}
	}
	return &Result{Headline: "Skills this advert asks for", Lines: terms}
}

func runCoverLetter(in map[string]string) *Result {
	terms := limit(rankedTerms(in["job"]), 6)
	if len(terms) == 0 {
		return &Result{Headline: "Paste a job advert to plan your letter."}
	}
	return &Result{
		Headline: "Your cover letter plan",
		Lines: []string{
			"Opening: name the role and where you saw it.",
			"Evidence: one example each for " + strings.Join(terms, ", ") + ".",
			"Fit: why this organisation, in two sentences.",
			"Close: say when you are available to talk.",
		},
	}
}

// linkedInHeadlineLimit is LinkedIn's headline character limit.
const linkedInHeadlineLimit = 220

func runHeadline(in map[string]string) *Result {
	headline := strings.TrimSpace(in["headline"])
	n := len([]rune(headline))
	if n == 0 {
		return &Result{Headline: "Paste your headline to check it."}
	}
	res := &Result{Headline: fmt.Sprintf("%d of %d characters used", n, linkedInHeadlineLimit)}
	if n > linkedInHeadlineLimit {
		res.Lines = append(res.Lines, "Too long: LinkedIn will cut it off.")
	}
	if terms := words(headline); len(terms) < 3 {
		res.Lines = append(res.Lines, "Add at least three searchable skills or job titles.")
	} else {
		res.Lines = append(res.Lines, "Searchable terms: "+strings.Join(limit(terms, 8), ", "))
	}
	return res
}
