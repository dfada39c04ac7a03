package auditlog

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotOf(t *testing.T) {
	type sample struct {
		ID     int64  `json:"id"`
		Name   string `json:"name"`
		Hidden string `json:"-"`
	}

	s := SnapshotOf(sample{ID: 7, Name: "Ann", Hidden: "x"})
	require.NotNil(t, s)
	assert.Equal(t, json.Number("7"), s["id"])
	assert.Equal(t, "Ann", s["name"])
	assert.NotContains(t, s, "Hidden")

	assert.Nil(t, SnapshotOf(nil))
	assert.Nil(t, SnapshotOf([]int{1, 2}))

	in := Snapshot{"a": 1}
	assert.Equal(t, in, SnapshotOf(in))
}

func TestSnapshotOfKeepsLargeIDs(t *testing.T) {
	s := SnapshotOf(struct {
		ID int64 `json:"id"`
	}{ID: math.MaxInt64})
	require.NotNil(t, s)

	n, ok := s["id"].(json.Number)
	require.True(t, ok)
	id, err := n.Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), id)
}

func TestActionAndEntityValid(t *testing.T) {
	assert.True(t, ActionSoftDelete.Valid())
	assert.False(t, Action("PURGE").Valid())
	assert.True(t, EntityOrderItem.Valid())
	assert.False(t, EntityType("INVOICE").Valid())
}
