package deadlines

import (
	"fmt"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// dateParser wraps olebedev/when's rule set, built once and reused — the
// library recommends constructing the rule-laden when.Parser a single time
// rather than per call.
var dateParser = newDateParser()

func newDateParser() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}

// ParseDueDate resolves natural-language input ("next friday", "in 3
// weeks", "2026-08-15") to an absolute instant relative to base, ahead of
// Ingestor.ManualSetDueDate.
func ParseDueDate(input string, base time.Time) (time.Time, error) {
	r, err := dateParser.Parse(input, base)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse due date %q: %w", input, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("parse due date %q: no match", input)
	}
	return r.Time, nil
}
