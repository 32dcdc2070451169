package issues

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/joescharf/changelog/internal/models"
)

// IssuePattern recognizes references to one kind of issue in commit messages.
type IssuePattern struct {
	// Name is the bucket every match is filed under, e.g. "Bugs".
	Name    string
	Pattern *Pattern
	Kind    Kind
	// Link is a template expanded for custom issues.
	Link string
}

// ResolvedIssue is an issue found during a pass. ID is the matched text and
// is unique within the pass.
type ResolvedIssue struct {
	Name    string
	ID      string
	Title   string
	Link    string
	Labels  []string
	Commits []*models.GitCommit
	// NoIssue marks the bucket collecting commits that matched no pattern.
	NoIssue bool
}

func (r *ResolvedIssue) String() string {
	if r.NoIssue {
		return r.Name
	}
	return r.Name + ": " + r.ID
}

// addCommit appends c unless it is already the latest commit. Commits are
// scanned one at a time, so this keeps each commit at most once.
func (r *ResolvedIssue) addCommit(c *models.GitCommit) {
	if n := len(r.Commits); n > 0 && r.Commits[n-1] == c {
		return
	}
	r.Commits = append(r.Commits, c)
}

func (r *ResolvedIssue) addLabel(name string) {
	for _, l := range r.Labels {
		if l == name {
			return
		}
	}
	r.Labels = append(r.Labels, name)
}

// Diagnostic records a match that could not be resolved.
type Diagnostic struct {
	Commit string
	ID     string
	Kind   Kind
	Err    error
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("commit %s: ignored issue %q: %v", shortHash(d.Commit), d.ID, d.Err)
}

// Pass is the outcome of scanning one commit set.
type Pass struct {
	// Issues are sorted by bucket name, then id.
	Issues []*ResolvedIssue
	// Labels are in order of first occurrence.
	Labels []*ResolvedLabel
	// CommitLabels holds the labels of each scanned commit, index-aligned.
	CommitLabels [][]string
	Diagnostics  []Diagnostic
}

// Extractor scans commits for issue and label references.
type Extractor struct {
	IssuePatterns []IssuePattern
	LabelPatterns []LabelPattern
	Trackers      Trackers
	NoIssueName   string
	Logger        *slog.Logger
}

// pass holds the id-keyed state of one Extract call.
type pass struct {
	issues  *orderedMap[*ResolvedIssue]
	labels  *orderedMap[*ResolvedLabel]
	noIssue *ResolvedIssue
	result  *Pass
}

// Extract runs one pass over commits. Each distinct id is resolved at most
// once; a failed resolution is recorded in Diagnostics and retried on the
// id's next occurrence.
func (e *Extractor) Extract(ctx context.Context, commits []*models.GitCommit) *Pass {
	p := &pass{
		issues: newOrderedMap[*ResolvedIssue](),
		labels: newOrderedMap[*ResolvedLabel](),
		result: &Pass{CommitLabels: make([][]string, len(commits))},
	}

	for i, c := range commits {
		commitLabels := LabelsInMessage(c.Message, e.LabelPatterns)
		p.result.CommitLabels[i] = commitLabels
		for _, name := range commitLabels {
			if _, ok := p.labels.get(name); !ok {
				p.labels.put(name, &ResolvedLabel{Name: name})
			}
		}
		e.extractCommit(ctx, p, c, commitLabels)
	}

	resolved := p.issues.values()
	if p.noIssue != nil {
		resolved = append(resolved, p.noIssue)
	}
	sort.SliceStable(resolved, func(i, j int) bool {
		if resolved[i].Name != resolved[j].Name {
			return resolved[i].Name < resolved[j].Name
		}
		return resolved[i].ID < resolved[j].ID
	})
	p.result.Issues = resolved
	p.result.Labels = p.labels.values()
	return p.result
}

func (e *Extractor) extractCommit(ctx context.Context, p *pass, c *models.GitCommit, commitLabels []string) {
	mapped := false
	for _, ip := range e.IssuePatterns {
		for _, m := range ip.Pattern.FindAll(c.Message) {
			issue, ok := p.issues.get(m.Text)
			if !ok {
				resolved, err := e.resolve(ctx, ip, m)
				if err != nil {
					e.logger().Warn("ignoring issue", "id", m.Text, "kind", string(ip.Kind), "commit", shortHash(c.Hash), "error", err)
					p.result.Diagnostics = append(p.result.Diagnostics, Diagnostic{Commit: c.Hash, ID: m.Text, Kind: ip.Kind, Err: err})
					continue
				}
				issue = resolved
				p.issues.put(m.Text, issue)
			}
			issue.addCommit(c)
			mapped = true
			for _, name := range commitLabels {
				issue.addLabel(name)
				if label, ok := p.labels.get(name); ok {
					label.addIssue(issue)
				}
			}
		}
	}
	if !mapped {
		if p.noIssue == nil {
			p.noIssue = &ResolvedIssue{Name: e.NoIssueName, NoIssue: true}
		}
		p.noIssue.addCommit(c)
	}
}

// resolve builds the record for a first-seen id: from the pattern's tracker
// when it knows the id, otherwise from the match itself.
func (e *Extractor) resolve(ctx context.Context, ip IssuePattern, m Match) (*ResolvedIssue, error) {
	if ip.Kind.IsTracker() {
		if tracker := e.Trackers[ip.Kind]; tracker != nil {
			found, err := tracker.Lookup(ctx, m.Text)
			if err != nil {
				return nil, &IntegrationError{Kind: ip.Kind, ID: m.Text, Err: err}
			}
			if found != nil {
				return &ResolvedIssue{Name: ip.Name, ID: m.Text, Title: found.Title, Link: found.Link}, nil
			}
		}
	}
	return &ResolvedIssue{
		Name:  ip.Name,
		ID:    m.Text,
		Title: m.Text,
		Link:  m.Expand(ip.Link),
	}, nil
}

func (e *Extractor) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

func shortHash(h string) string {
	if len(h) > 7 {
		return h[:7]
	}
	return h
}
