package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundScore(t *testing.T) {
	assert.Equal(t, 90.0, RoundScore(89.99999999999999))
	assert.Equal(t, 0.2, RoundScore(0.6/3))
	assert.Equal(t, 86.6667, RoundScore(260.0/3))
	assert.Equal(t, 0.0, RoundScore(0))
}
