package issues

import (
	"context"
	"fmt"
	"strings"
)

// Kind selects how matches of an issue pattern are resolved.
type Kind string

const (
	KindCustom Kind = "custom"
	KindGitHub Kind = "github"
	KindJira   Kind = "jira"
)

// ParseKind validates a configured kind. The empty string means custom.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return KindCustom, nil
	case KindCustom, KindGitHub, KindJira:
		return k, nil
	default:
		return "", fmt.Errorf("%w: unknown issue kind %q (use: custom, github, jira)", ErrConfiguration, s)
	}
}

// IsTracker reports whether the kind is backed by an external tracker.
func (k Kind) IsTracker() bool {
	return k == KindGitHub || k == KindJira
}

// TrackerIssue is what a tracker knows about an issue id.
type TrackerIssue struct {
	Title string
	Link  string
}

// Tracker looks up issues in an external tracker. A nil issue with a nil
// error means the tracker does not know the id.
type Tracker interface {
	Lookup(ctx context.Context, id string) (*TrackerIssue, error)
}

// TrackerFunc adapts a function to Tracker.
type TrackerFunc func(ctx context.Context, id string) (*TrackerIssue, error)

func (f TrackerFunc) Lookup(ctx context.Context, id string) (*TrackerIssue, error) {
	return f(ctx, id)
}

// Trackers is the dispatch table from kind to tracker. A missing entry means
// the kind is not configured and its matches resolve as custom issues.
type Trackers map[Kind]Tracker
