package setting

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alorbach/sunostyle/pkg/settings"
)

func TestRun(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "settings.json")

	require.NoError(t, Run(ctx, &Config{Settings: path, Profile: settings.Image, Key: "subscription_key", Value: "secret-1234"}))
	require.NoError(t, Run(ctx, &Config{Settings: path, Profile: "general", Key: "channel_name", Value: "Night Covers"}))
	assert.Error(t, Run(ctx, &Config{Settings: path, Profile: "audio", Key: "endpoint", Value: "x"}))
	assert.Error(t, Run(ctx, &Config{Settings: path, Profile: settings.Text}))

	doc := settings.Load(path)
	assert.Equal(t, "secret-1234", doc.Profiles[settings.Image].SubscriptionKey)
	assert.Equal(t, "Night Covers", doc.General.ChannelName)

	var out bytes.Buffer
	require.NoError(t, Run(ctx, &Config{Settings: path, Show: true, Output: &out}))
	assert.Contains(t, out.String(), "*******1234")
	assert.NotContains(t, out.String(), "secret-1234")
}

func TestMask(t *testing.T) {
	assert.Equal(t, "", mask(""))
	assert.Equal(t, "***", mask("abc"))
	assert.Equal(t, "**cdef", mask("abcdef"))
}
