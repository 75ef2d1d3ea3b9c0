package dispatch

import (
	"regexp"
	"strings"

	"mosync/config"
)

// Kind selects which configured endpoint a payload goes to.
type Kind string

const (
	KindActive    Kind = StatusActive
	KindCompleted Kind = StatusCompleted
	KindList      Kind = "list"
)

// Endpoints resolves delivery URLs per kind with a shared fallback.
type Endpoints struct {
	Fallback  string
	Active    string
	Completed string
	List      string
}

func EndpointsFromConfig(c config.DeliveryConfig) Endpoints {
	return Endpoints{
		Fallback:  c.URL,
		Active:    c.ActiveURL,
		Completed: c.CompletedURL,
		List:      c.ListURL,
	}
}

var testSuffix = regexp.MustCompile(`/test.*$`)

// Resolve returns the URL for kind, or "" when nothing is configured.
// When only the shared URL is set it is adapted per kind: active posts go
// to <base>/manufacturing, completed posts to the bare base.
func (e Endpoints) Resolve(kind Kind) string {
	var specific string
	switch kind {
	case KindActive:
		specific = e.Active
	case KindCompleted:
		specific = e.Completed
	case KindList:
		specific = e.List
	}
	if !blank(specific) {
		return strings.TrimSpace(specific)
	}

	fallback := strings.TrimSpace(e.Fallback)
	if fallback == "" {
		return ""
	}
	switch kind {
	case KindActive:
		if strings.Contains(fallback, "/manufacturing") {
			return fallback
		}
		return strings.TrimRight(cleanBase(fallback), "/") + "/manufacturing"
	case KindCompleted:
		return strings.TrimRight(cleanBase(fallback), "/")
	default:
		return fallback
	}
}

func cleanBase(u string) string {
	if i := strings.IndexByte(u, '?'); i >= 0 {
		u = u[:i]
	}
	return testSuffix.ReplaceAllString(u, "")
}
