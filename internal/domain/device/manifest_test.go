package device

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestManifest_MarshalKeepsInsertionOrder checks output ordering and raw content pass-through.
func TestManifest_MarshalKeepsInsertionOrder(t *testing.T) {
	t.Parallel()

	m := NewManifest()
	m.Add(&Profile{Type: "sla", Name: "resin1", Content: json.RawMessage(`{"laser": true}`)})
	m.Add(&Profile{Type: "fdm", Name: "ender3", Content: json.RawMessage(`{"bed":[220, 220]}`)})
	m.Add(&Profile{Type: "fdm", Name: "a<b>", Content: json.RawMessage(`"x&y"`)})

	data, err := m.MarshalJSON()
	require.NoError(t, err)
	require.Equal(t,
		`{"sla":{"resin1":{"laser":true}},"fdm":{"ender3":{"bed":[220,220]},"a<b>":"x&y"}}`,
		string(data))
	require.Equal(t, 3, m.Len())
}

// TestManifest_AddReplacesDuplicateInPlace keeps the first position with the last value.
func TestManifest_AddReplacesDuplicateInPlace(t *testing.T) {
	t.Parallel()

	m := NewManifest()
	m.Add(&Profile{Type: "fdm", Name: "foo", Content: json.RawMessage(`1`)})
	m.Add(&Profile{Type: "fdm", Name: "bar", Content: json.RawMessage(`2`)})
	m.Add(&Profile{Type: "fdm", Name: "foo", Content: json.RawMessage(`3`)})

	category := m.Category("fdm")
	require.NotNil(t, category)
	require.Len(t, category.Profiles, 2)
	require.Equal(t, "foo", category.Profiles[0].Name)
	require.JSONEq(t, `3`, string(m.Profile("fdm", "foo").Content))
	require.Nil(t, m.Profile("fdm", "missing"))
	require.Nil(t, m.Profile("cnc", "foo"))
}

// TestManifest_EmptyMarshalsToObject renders an empty manifest as {}.
func TestManifest_EmptyMarshalsToObject(t *testing.T) {
	t.Parallel()

	data, err := NewManifest().MarshalJSON()
	require.NoError(t, err)
	require.Equal(t, `{}`, string(data))
}
