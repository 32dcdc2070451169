package issues

import "github.com/joescharf/changelog/internal/models"

// LabelPattern turns matches in a commit message into label names.
type LabelPattern struct {
	// Name is a template, e.g. "${PATTERN_GROUP_1}".
	Name    string
	Pattern *Pattern
}

// ResolvedLabel is a label found during a pass and the issues it was seen with.
type ResolvedLabel struct {
	Name   string
	Issues []*ResolvedIssue
}

func (l *ResolvedLabel) addIssue(issue *ResolvedIssue) {
	for _, existing := range l.Issues {
		if existing == issue {
			return
		}
	}
	l.Issues = append(l.Issues, issue)
}

// LabelsInMessage returns the label names found in message, in pattern order
// and then match order, without duplicates.
func LabelsInMessage(message string, patterns []LabelPattern) []string {
	var names []string
	seen := make(map[string]bool)
	for _, lp := range patterns {
		for _, m := range lp.Pattern.FindAll(message) {
			name := m.Expand(lp.Name)
			if seen[name] {
				continue
			}
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

// ExtractLabels returns the labels of each commit, index-aligned with commits.
func ExtractLabels(commits []*models.GitCommit, patterns []LabelPattern) [][]string {
	out := make([][]string, len(commits))
	for i, c := range commits {
		out[i] = LabelsInMessage(c.Message, patterns)
	}
	return out
}
