package ot_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/otlabs/collabtext/ot"
)

func TestWrappedApplyInvertPreservesMeta(t *testing.T) {
	w := ot.Wrap(ot.New().Retain(1).Insert("x").Retain(1), ot.Meta{"clientId": "c1", "cursor": 2})
	out, err := w.Apply("ab")
	require.NoError(t, err)
	require.Equal(t, "axb", out)

	inv := w.Invert("ab")
	require.Equal(t, w.Meta["clientId"], inv.Meta["clientId"])
	back, err := inv.Apply(out)
	require.NoError(t, err)
	require.Equal(t, "ab", back)
}

func TestWrappedComposeMergesMetaRightBiased(t *testing.T) {
	a := ot.Wrap(ot.New().Retain(2), ot.Meta{"clientId": "c1", "cursor": 0})
	b := ot.Wrap(ot.New().Retain(2), ot.Meta{"cursor": 2, "selectionEnd": 2})

	c, err := ot.ComposeWrapped(a, b)
	require.NoError(t, err)
	require.Equal(t, "c1", c.Meta["clientId"])
	require.Equal(t, 2, c.Meta["cursor"])
	require.Equal(t, 2, c.Meta["selectionEnd"])
}

func TestWrappedTransformKeepsEachSideOwnMeta(t *testing.T) {
	a := ot.Wrap(ot.New().Insert("a").Retain(2), ot.Meta{"clientId": "a"})
	b := ot.Wrap(ot.New().Insert("b").Retain(2), ot.Meta{"clientId": "b"})

	aPrime, bPrime, err := ot.TransformWrapped(a, b)
	require.NoError(t, err)
	require.Equal(t, "a", aPrime.Meta["clientId"])
	require.Equal(t, "b", bPrime.Meta["clientId"])
}

func TestWrappedJSONRoundTrip(t *testing.T) {
	w := ot.Wrap(ot.New().Retain(1).Insert("x").Retain(1), ot.Meta{"clientId": "c1", "cursor": float64(2)})

	b, err := json.Marshal(w)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(b, &decoded))
	require.Contains(t, decoded, "operation")
	require.Contains(t, decoded, "meta")
	require.NotContains(t, decoded, "Op")
	require.NotContains(t, decoded, "Meta")

	var out ot.WrappedOperation
	require.NoError(t, json.Unmarshal(b, &out))
	require.Equal(t, w.Meta["clientId"], out.Meta["clientId"])
	require.Equal(t, w.Meta["cursor"], out.Meta["cursor"])

	applied, err := out.Apply("ab")
	require.NoError(t, err)
	require.Equal(t, "axb", applied)
}
