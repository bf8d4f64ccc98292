package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeNumberPrefix(t *testing.T) {
	cases := map[string]string{
		"SC":     "SC",
		" kv ":   "KV",
		"LEDGER": "LE",
		"a":      "AX",
		"":       "XX",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeNumberPrefix(in), "input %q", in)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Len(t, cfg.DocNumberPrefix, 2)
	assert.False(t, cfg.IsProduction())
}
