package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVersionArg(t *testing.T) {
	n, err := parseVersionArg("3")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = parseVersionArg("-1")
	assert.EqualError(t, err, "number must not be negative, got -1")

	_, err = parseVersionArg("three")
	assert.Error(t, err)
}
