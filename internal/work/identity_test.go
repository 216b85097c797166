package work

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIDParseRoundTrip(t *testing.T) {
	id := NewID(KindPR, "autodevhq/autodev", 42)
	kind, repo, number, err := Parse(id)
	require.NoError(t, err)
	assert.Equal(t, KindPR, kind)
	assert.Equal(t, "autodevhq/autodev", repo)
	assert.Equal(t, 42, number)
}

func TestParseRejectsMalformedID(t *testing.T) {
	_, _, _, err := Parse("not-an-id")
	assert.Error(t, err)

	_, _, _, err = Parse("issue:repo:not-a-number")
	assert.Error(t, err)
}

func TestHasNamespacedLabel(t *testing.T) {
	assert.True(t, HasNamespacedLabel([]string{"bug", LabelWIP}))
	assert.False(t, HasNamespacedLabel([]string{"bug", "enhancement"}))
}

func TestIterationLabel(t *testing.T) {
	assert.Equal(t, "autodev:iteration/3", IterationLabel(3))
}

func TestSourceIssueNumberParsesLinkageKeywords(t *testing.T) {
	for _, body := range []string{
		"Closes #42",
		"this fixes #42 for good",
		"Resolves   #42\n\nDetails follow.",
	} {
		n, ok := SourceIssueNumber(body)
		assert.True(t, ok, body)
		assert.Equal(t, 42, n, body)
	}
}

func TestSourceIssueNumberIgnoresUnlinkedBodies(t *testing.T) {
	for _, body := range []string{"", "see #42", "closes nothing", "disclose #9"} {
		_, ok := SourceIssueNumber(body)
		assert.False(t, ok, body)
	}
}
