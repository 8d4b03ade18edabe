package jobs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPeriodicRejectsInvalidSpec(t *testing.T) {
	_, err := NewPeriodic("exports-cleanup", "not a cron spec", func() {}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exports-cleanup")
}

func TestNewPeriodicRegistersEntry(t *testing.T) {
	c, err := NewPeriodic("exports-cleanup", "@every 1h", func() {}, nil)
	require.NoError(t, err)
	assert.Len(t, c.Entries(), 1)
}
