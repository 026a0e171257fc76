package export

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alorbach/sunostyle"
	"github.com/alorbach/sunostyle/pkg/settings"
	"github.com/alorbach/sunostyle/pkg/studio"
)

func TestRun(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.json")
	save := filepath.Join(dir, "exports")
	require.NoError(t, os.MkdirAll(save, 0755))

	doc := settings.Default()
	doc.General.DefaultSavePath = save
	// No text profile, hashtags fall back.
	doc.Profiles[settings.Text] = settings.Profile{}
	doc.SongDetails.AICoverName = "Hello - Adele - 1980s Synth - AI Cover"
	doc.SongDetails.SongName = "Hello"
	doc.SongDetails.Artist = "Adele"
	doc.SongDetails.Styles = "synth"
	doc.LastSelectedStyle = "Synthwave"
	require.True(t, settings.Save(path, doc))

	cfg := &Config{Config: sunostyle.Config{Settings: path, Prompts: filepath.Join(dir, "prompts")}, JSON: true}
	require.NoError(t, Run(context.Background(), cfg))

	base := studio.SafeBasename(doc.SongDetails.AICoverName)
	b, err := os.ReadFile(filepath.Join(save, base+".txt"))
	require.NoError(t, err)
	content := string(b)
	assert.True(t, strings.HasPrefix(content, strings.Repeat("=", 70)+"\nYOUTUBE TITLE\n"))
	assert.Contains(t, content, "Style Info: Synthwave")
	assert.Contains(t, content, "#")

	_, err = os.Stat(filepath.Join(save, base+".json"))
	assert.NoError(t, err)
}

func TestRunNeedsSong(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.True(t, settings.Save(path, settings.Default()))
	err := Run(context.Background(), &Config{Config: sunostyle.Config{Settings: path}})
	assert.ErrorIs(t, err, studio.ErrInput)
}
