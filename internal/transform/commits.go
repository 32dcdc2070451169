package transform

import (
	"github.com/joescharf/changelog/internal/models"
)

// ToCommits drops ignored commits and maps the rest to commit views, in
// input order.
func (t *Transformer) ToCommits(raw []*models.GitCommit) []*models.Commit {
	var out []*models.Commit
	for _, c := range raw {
		if t.ignored(c) {
			continue
		}
		out = append(out, t.toCommit(c))
	}
	return out
}

// ToAuthors groups commits by email and name in order of first appearance.
// Groups with no commits left after filtering are dropped.
func (t *Transformer) ToAuthors(raw []*models.GitCommit) []*models.Author {
	type key struct{ email, name string }
	groups := make(map[key][]*models.GitCommit)
	var order []key
	for _, c := range raw {
		k := key{c.AuthorEmail, c.AuthorName}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], c)
	}

	var out []*models.Author
	for _, k := range order {
		commits := t.ToCommits(groups[k])
		if len(commits) == 0 {
			continue
		}
		out = append(out, &models.Author{
			Name:    commits[0].AuthorName,
			Email:   commits[0].AuthorEmail,
			Commits: commits,
		})
	}
	return out
}

func (t *Transformer) ignored(c *models.GitCommit) bool {
	return t.settings.IgnoreCommits != nil && t.settings.IgnoreCommits.MatchString(c.Message)
}

func (t *Transformer) toCommit(c *models.GitCommit) *models.Commit {
	return &models.Commit{
		AuthorName:       c.AuthorName,
		AuthorEmail:      c.AuthorEmail,
		CommitTime:       t.formatTime(c),
		CommitTimeMillis: c.CommitTime.UnixMilli(),
		Message:          t.CleanMessage(c.Message),
		Hash:             c.Hash,
	}
}

// CleanMessage strips every issue pattern match from message when
// remove_issue_from_message is set.
func (t *Transformer) CleanMessage(message string) string {
	if !t.settings.RemoveIssueFromMessage {
		return message
	}
	for _, ip := range t.settings.IssuePatterns {
		message = ip.Pattern.RemoveAll(message)
	}
	return message
}

func (t *Transformer) formatTime(c *models.GitCommit) string {
	ts := c.CommitTime
	if t.settings.Location != nil {
		ts = ts.In(t.settings.Location)
	}
	return ts.Format(t.settings.DateFormat)
}
