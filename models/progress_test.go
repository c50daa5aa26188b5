package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobProgressKeepsZeroCounts(t *testing.T) {
	data, err := json.Marshal(JobProgress{Status: JobStatusComplete, Percent: 100})
	require.NoError(t, err)

	var keys map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &keys))
	assert.Contains(t, keys, "processed")
	assert.Contains(t, keys, "imported")
	assert.Contains(t, keys, "deleted")
	assert.NotContains(t, keys, "total")
	assert.NotContains(t, keys, "reason")
}
