package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequired(t *testing.T) {
	assert.Error(t, required(""))
	assert.Error(t, required("   "))
	assert.NoError(t, required("id1"))
}

func TestPromptCredentialsSkipsFormWhenPrefilled(t *testing.T) {
	prefill := Credentials{ClientID: "id1", ClientSecret: "secret1"}

	got, err := PromptCredentials("https://api.roaring.io", prefill)
	require.NoError(t, err)
	assert.Equal(t, prefill, got)
}
