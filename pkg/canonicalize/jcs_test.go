package canonicalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJCSSortsKeys(t *testing.T) {
	out, err := JCS(map[string]any{"b": 2, "a": 1})
	require.NoError(t, err)
	assert.Equal(t, `{"a":1,"b":2}`, string(out))
}

func TestJCSDisablesHTMLEscaping(t *testing.T) {
	out, err := JCS(map[string]string{"cmd": "a<b>&c"})
	require.NoError(t, err)
	assert.Equal(t, `{"cmd":"a<b>&c"}`, string(out))
}

func TestCanonicalHashIsStable(t *testing.T) {
	type doc struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	h1, err := CanonicalHash(doc{Name: "vpc", Count: 3})
	require.NoError(t, err)
	h2, err := CanonicalHash(map[string]any{"count": 3, "name": "vpc"})
	require.NoError(t, err)
	assert.Equal(t, h1, h2, "struct and equivalent map must hash identically")
	assert.Contains(t, h1, "sha256:")
}

func TestCanonicalHashRejectsUnmarshalable(t *testing.T) {
	_, err := CanonicalHash(map[string]any{"fn": func() {}})
	assert.Error(t, err)
}
