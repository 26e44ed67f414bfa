package documents

import (
	"net/url"
	"strings"

	"github.com/construehq/construe/internal/tasks"
)

// Filters contains optional criteria for filtering task queries.
type Filters struct {
	State       *tasks.State
	ContentType *string
}

// FiltersFromQuery extracts task filters from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if s := values.Get("state"); s != "" {
		state := tasks.State(s)
		f.State = &state
	}

	if ct := values.Get("content_type"); ct != "" {
		f.ContentType = &ct
	}

	return f
}

// Apply returns the tasks matching the filter criteria and the optional
// search term, which matches against filenames.
func (f Filters) Apply(list []tasks.Task, search *string) []tasks.Task {
	matched := make([]tasks.Task, 0, len(list))
	for _, t := range list {
		if f.State != nil && t.State != *f.State {
			continue
		}
		if f.ContentType != nil && t.ContentType != *f.ContentType {
			continue
		}
		if search != nil && !strings.Contains(strings.ToLower(t.Filename), strings.ToLower(*search)) {
			continue
		}
		matched = append(matched, t)
	}
	return matched
}
