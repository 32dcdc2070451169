package issues

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hashLabel() LabelPattern {
	return LabelPattern{Name: "${PATTERN_GROUP_1}", Pattern: MustCompile(`#(\w+)`)}
}

func TestLabelsInMessage(t *testing.T) {
	kind := LabelPattern{Name: "type:${PATTERN_GROUP_1}", Pattern: MustCompile(`^(feat|fix):`)}

	t.Run("pattern order then match order", func(t *testing.T) {
		got := LabelsInMessage("fix: #perf #ui", []LabelPattern{kind, hashLabel()})
		assert.Equal(t, []string{"type:fix", "perf", "ui"}, got)
	})

	t.Run("duplicates keep first position", func(t *testing.T) {
		got := LabelsInMessage("#ui #perf #ui", []LabelPattern{hashLabel()})
		assert.Equal(t, []string{"ui", "perf"}, got)
	})

	t.Run("no match", func(t *testing.T) {
		assert.Nil(t, LabelsInMessage("plain", []LabelPattern{hashLabel()}))
	})
}

func TestExtractLabels_AlignedWithCommits(t *testing.T) {
	cs := commits("#a", "none", "#b #a")
	got := ExtractLabels(cs, []LabelPattern{hashLabel()})
	require.Len(t, got, 3)
	assert.Equal(t, []string{"a"}, got[0])
	assert.Nil(t, got[1])
	assert.Equal(t, []string{"b", "a"}, got[2])
}

func TestExtract_LabelAssociatedWithIssue(t *testing.T) {
	e := &Extractor{
		IssuePatterns: []IssuePattern{bugPattern()},
		LabelPatterns: []LabelPattern{hashLabel()},
		NoIssueName:   "No issue",
	}

	p := e.Extract(context.Background(), commits("fixes #perf issue BUG-1"))

	bug := findIssue(t, p, "BUG-1")
	assert.Equal(t, []string{"perf"}, bug.Labels)

	require.Len(t, p.Labels, 1)
	assert.Equal(t, "perf", p.Labels[0].Name)
	assert.Equal(t, []*ResolvedIssue{bug}, p.Labels[0].Issues)
}

func TestExtract_LabelUnionAcrossCommits(t *testing.T) {
	e := &Extractor{
		IssuePatterns: []IssuePattern{bugPattern()},
		LabelPatterns: []LabelPattern{hashLabel()},
		NoIssueName:   "No issue",
	}

	cs := commits("#perf BUG-1", "#ui no issue", "#perf BUG-2", "BUG-1 #ui")
	p := e.Extract(context.Background(), cs)

	bug1 := findIssue(t, p, "BUG-1")
	bug2 := findIssue(t, p, "BUG-2")
	assert.Equal(t, []string{"perf", "ui"}, bug1.Labels)
	assert.Equal(t, []string{"perf"}, bug2.Labels)

	require.Len(t, p.Labels, 2)
	assert.Equal(t, "perf", p.Labels[0].Name, "first occurrence order")
	assert.Equal(t, []*ResolvedIssue{bug1, bug2}, p.Labels[0].Issues)
	assert.Equal(t, "ui", p.Labels[1].Name)
	assert.Equal(t, []*ResolvedIssue{bug1}, p.Labels[1].Issues)

	assert.Empty(t, noIssue(p).Labels, "labels are only associated with matched issues")
	assert.Equal(t, []string{"ui"}, p.CommitLabels[1])
}
