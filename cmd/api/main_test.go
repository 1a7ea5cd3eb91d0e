package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveLocation(t *testing.T) {
	loc, err := resolveLocation("")
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)

	loc, err = resolveLocation("Europe/Copenhagen")
	require.NoError(t, err)
	assert.Equal(t, "Europe/Copenhagen", loc.String())

	_, err = resolveLocation("Not/AZone")
	require.Error(t, err)
}
