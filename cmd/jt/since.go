package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

var dateParser = func() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}()

// parseSince turns a --since value into a cutoff. ISO dates are tried first,
// then natural language ("yesterday", "last week", "3 days ago").
func parseSince(value string, now time.Time) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.ParseInLocation(layout, value, now.Location()); err == nil {
			return t, nil
		}
	}

	r, err := dateParser.Parse(value, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("cannot parse --since %q: %w", value, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("cannot parse --since %q", value)
	}
	return r.Time, nil
}
