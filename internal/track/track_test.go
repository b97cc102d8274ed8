package track

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhraseMatcher(t *testing.T) {
	m := NewPhraseMatcher("Innovation  Challenge")

	assert.True(t, m.Match("Innovation Challenge"))
	assert.True(t, m.Match("startup innovation   challenge 2025"))
	assert.True(t, m.Match("  INNOVATION CHALLENGE (Teams)"))
	assert.False(t, m.Match("Hackathon"))
	assert.False(t, m.Match("Innovation"))
	assert.Equal(t, "%innovation%challenge%", m.Pattern())
}

func TestPhraseMatcherEscapesPattern(t *testing.T) {
	m := NewPhraseMatcher("100%_done")

	assert.Equal(t, `%100\%\_done%`, m.Pattern())
}

func TestRegexMatcher(t *testing.T) {
	m, err := NewRegexMatcher(`innovation\s+(challenge|cup)`)
	require.NoError(t, err)

	assert.True(t, m.Match("The Innovation Cup"))
	assert.True(t, m.Match("innovation challenge"))
	assert.False(t, m.Match("innovation day"))
	assert.Empty(t, m.Pattern())
}

func TestNew(t *testing.T) {
	m, err := New("", "innovation", "")
	require.NoError(t, err)
	assert.True(t, m.Match("Innovation Challenge"))

	_, err = New("phrase", " ", "")
	assert.Error(t, err)

	_, err = New("regex", "", "(")
	assert.Error(t, err)

	_, err = New("exact", "x", "")
	assert.Error(t, err)
}
