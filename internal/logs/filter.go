package logs

import (
	"regexp"
	"strconv"
	"strings"
)

// JobFilter keeps only log entries attributed to one job. It understands both
// log formats: console entries ("Job #12" in the header plus indented field
// lines) and one-line JSON records carrying "job_id".
type JobFilter struct {
	console *regexp.Regexp
	json    *regexp.Regexp
	keep    bool
}

// NewJobFilter builds a filter for job id.
func NewJobFilter(id int64) *JobFilter {
	n := strconv.FormatInt(id, 10)
	return &JobFilter{
		console: regexp.MustCompile(`\bJob #` + n + `\b`),
		json:    regexp.MustCompile(`"job_id":"?` + n + `\b`),
	}
}

// Apply returns the lines belonging to the job. Continuation lines follow the
// decision made for their header, including across successive calls.
func (f *JobFilter) Apply(lines []string) []string {
	var out []string
	for _, line := range lines {
		if isContinuation(line) {
			if f.keep {
				out = append(out, line)
			}
			continue
		}
		f.keep = f.console.MatchString(line) || f.json.MatchString(line)
		if f.keep {
			out = append(out, line)
		}
	}
	return out
}

func isContinuation(line string) bool {
	return strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")
}
