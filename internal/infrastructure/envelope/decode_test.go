// ABOUTME: Tests for envelope decoding across the three frame shapes
// ABOUTME: Verifies shape equivalence, ordering, and tolerance of unknown frames
package envelope

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harper/nowplaying-relay/internal/testutil"
)

func TestDecode_ShapesAreEquivalent(t *testing.T) {
	np := `{"title":"Song","listeners":{"total":1}}`
	want := []any{map[string]any{
		"title":     "Song",
		"listeners": map[string]any{"total": float64(1)},
	}}

	frames := map[string]string{
		"legacy connect": `{"connect":{"data":[{"data":{"np":` + np + `}}]}}`,
		"subs connect":   `{"connect":{"subs":{"station:x":{"publications":[{"data":{"np":` + np + `}}]}}}}`,
		"pub":            `{"pub":{"data":{"np":` + np + `}}}`,
	}

	for name, frame := range frames {
		t.Run(name, func(t *testing.T) {
			got, err := Decode([]byte(frame))
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestDecode_MalformedJSON(t *testing.T) {
	got, err := Decode([]byte("not json"))
	assert.Empty(t, got)

	var de *DecodeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, ReasonMalformedJSON, de.Reason)
}

func TestDecode_UnrecognizedFrames(t *testing.T) {
	for _, frame := range []string{`{"foo":1}`, `{}`, `[]`, `"ping"`, `42`} {
		got, err := Decode([]byte(frame))
		assert.NoError(t, err, frame)
		assert.Empty(t, got, frame)
	}
}

func TestDecode_SubsWireOrder(t *testing.T) {
	frame := `{"connect":{"subs":{
		"station:zulu":{"publications":[{"data":{"np":"z1"}},{"data":{"np":"z2"}}]},
		"station:alpha":{"publications":[]},
		"station:mike":{"recoverable":true},
		"station:bravo":{"publications":[{"data":{"np":"b1"}}]}
	}}}`

	got, err := Decode([]byte(frame))
	require.NoError(t, err)
	assert.Equal(t, []any{"z1", "z2", "b1"}, got)
}

func TestDecode_RepeatedKeysUseLastValue(t *testing.T) {
	frame := `{"connect":{
		"subs":{"station:a":{"publications":[{"data":{"np":1}}]}},
		"subs":{"station:b":{"publications":[{"data":{"np":2}}]}}
	}}`

	got, err := Decode([]byte(frame))
	require.NoError(t, err)
	assert.Equal(t, []any{float64(2)}, got)

	frame = `{"connect":{"subs":{
		"station:a":{"publications":[{"data":{"np":1}}]},
		"station:b":{"publications":[{"data":{"np":2}}]},
		"station:a":{"publications":[{"data":{"np":3}}]}
	}}}`

	got, err = Decode([]byte(frame))
	require.NoError(t, err)
	assert.Equal(t, []any{float64(3), float64(2)}, got)
}

func TestDecode_LegacyOrderAndMissingNP(t *testing.T) {
	frame := `{"connect":{"data":[{"data":{"np":1}},{"data":{}},{"other":true},{"data":{"np":2}}]}}`

	got, err := Decode([]byte(frame))
	require.NoError(t, err)
	assert.Equal(t, []any{float64(1), nil, nil, float64(2)}, got)
}

func TestDecode_ConnectWithoutPublications(t *testing.T) {
	got, err := Decode([]byte(`{"connect":{"client":"abc","version":"5.0.0"}}`))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDecode_MalformedEnvelope(t *testing.T) {
	frames := []string{
		`{"connect":null}`,
		`{"connect":{"data":{"np":1}}}`,
		`{"connect":{"subs":[]}}`,
		`{"connect":{"subs":{"station:x":"nope"}}}`,
		`{"connect":{"subs":{"station:x":{"publications":{}}}}}`,
	}

	for _, frame := range frames {
		_, err := Decode([]byte(frame))

		var de *DecodeError
		require.True(t, errors.As(err, &de), frame)
		assert.Equal(t, ReasonMalformedEnvelope, de.Reason, frame)
	}
}

func TestDecode_Fixtures(t *testing.T) {
	valid := testutil.NowPlayingJSON
	invalid := testutil.InvalidNowPlaying(t)

	got, err := Decode([]byte(testutil.SubsConnectFrame("station:azuratest_radio", valid, invalid)))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, testutil.NowPlaying(t), got[0])
	assert.NotContains(t, got[1], "now_playing")

	got, err = Decode([]byte(testutil.LegacyConnectFrame(valid)))
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestObjectKeys(t *testing.T) {
	raw := []byte(`{"a":{"b":[1,{"x":2}],"c":{"k2":1,"k1":{"deep":[{}]},"k2":3}}}`)

	keys, err := objectKeys(raw, "a", "c")
	require.NoError(t, err)
	assert.Equal(t, []string{"k2", "k1"}, keys)

	keys, err = objectKeys(raw, "a", "missing")
	require.NoError(t, err)
	assert.Nil(t, keys)

	keys, err = objectKeys(raw, "a", "b")
	require.NoError(t, err)
	assert.Nil(t, keys)

	raw = []byte(`{"a":{"c":{"first":1}},"x":[],"a":{"c":{"second":2,"third":3}}}`)
	keys, err = objectKeys(raw, "a", "c")
	require.NoError(t, err)
	assert.Equal(t, []string{"second", "third"}, keys)
}
