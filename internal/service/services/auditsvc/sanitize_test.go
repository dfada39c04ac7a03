package auditsvc

import (
	"encoding/json"
	"testing"

	"github.com/corray333/backend-labs/shop/internal/service/models/auditlog"
	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	in := auditlog.Snapshot{
		"id":       float64(1),
		"email":    "ann@example.com",
		"password": "hunter2",
		"token":    "abc",
		"secret":   "",
		"data": map[string]any{
			"key":  "k-123",
			"name": "Ann",
		},
	}

	out := Sanitize(in)

	assert.Equal(t, RedactionMarker, out["password"])
	assert.Equal(t, RedactionMarker, out["token"])
	assert.Equal(t, "", out["secret"])
	assert.Equal(t, "ann@example.com", out["email"])
	assert.Equal(t, float64(1), out["id"])

	data := out["data"].(map[string]any)
	assert.Equal(t, RedactionMarker, data["key"])
	assert.Equal(t, "Ann", data["name"])

	assert.Equal(t, "hunter2", in["password"])
	assert.Equal(t, "k-123", in["data"].(map[string]any)["key"])
}

func TestSanitizeLeavesCleanSnapshotEqual(t *testing.T) {
	in := auditlog.Snapshot{"name": "Lamp", "price": float64(10)}
	assert.Equal(t, in, Sanitize(in))
	assert.Nil(t, Sanitize(nil))
}

func TestSanitizeDoesNotAddMissingFields(t *testing.T) {
	out := Sanitize(auditlog.Snapshot{"name": "x"})
	assert.NotContains(t, out, "password")
	assert.Len(t, out, 1)
}

func TestSanitizeSkipsZeroNumbers(t *testing.T) {
	out := Sanitize(auditlog.Snapshot{"key": json.Number("0"), "token": json.Number("12")})

	assert.Equal(t, json.Number("0"), out["key"])
	assert.Equal(t, RedactionMarker, out["token"])
}
