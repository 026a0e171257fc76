package song

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alorbach/sunostyle"
	"github.com/alorbach/sunostyle/pkg/settings"
	"github.com/alorbach/sunostyle/pkg/storage"
	"github.com/alorbach/sunostyle/pkg/studio"
)

func TestSet(t *testing.T) {
	var s settings.SongDetails
	require.NoError(t, Set(&s, "song_name", "Hello"))
	require.NoError(t, Set(&s, "album_cover_include_artist", "false"))
	require.NoError(t, Set(&s, "singer_gender", "Male"))
	assert.Equal(t, "Hello", s.SongName)
	assert.False(t, s.AlbumCoverIncludeArtist)
	assert.Equal(t, "Male", s.SingerGender)

	assert.Error(t, Set(&s, "singer_gender", "Robot"))
	assert.Error(t, Set(&s, "album_cover_include_artist", "maybe"))
	assert.Error(t, Set(&s, "unknown", "x"))
}

func TestRun(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	base := filepath.Join(dir, "project")
	require.NoError(t, os.MkdirAll(base, 0755))

	path := filepath.Join(dir, "settings.json")
	doc := settings.Default()
	doc.General.BasePath = base
	require.True(t, settings.Save(path, doc))

	lyrics := filepath.Join(dir, "lyrics.txt")
	require.NoError(t, os.WriteFile(lyrics, []byte("la la la\n"), 0644))

	var out bytes.Buffer
	cfg := &Config{Config: sunostyle.Config{Settings: path}, Output: &out}
	require.NoError(t, Run(ctx, cfg, "set", []string{"song_name", "Hello"}))
	require.NoError(t, Run(ctx, cfg, "set", []string{"ai_cover_name", "Hello - Adele - 1980s Synth - AI Cover"}))
	require.NoError(t, Run(ctx, cfg, "set", []string{"lyrics", "@" + lyrics}))

	loaded := settings.Load(path)
	assert.Equal(t, "Hello", loaded.SongDetails.SongName)
	assert.Equal(t, "la la la", loaded.SongDetails.Lyrics)

	require.NoError(t, Run(ctx, cfg, "save", nil))
	_, err := os.Stat(filepath.Join(base, "AI-COVERS", "1980s", "Hello - Adele - 1980s Synth - AI Cover", "Hello - Adele - 1980s Synth - AI Cover.json"))
	require.NoError(t, err)

	require.NoError(t, Run(ctx, cfg, "scan", nil))
	assert.Contains(t, out.String(), "1980s")
	assert.Contains(t, out.String(), "Hello - Adele - 1980s Synth - AI Cover")

	out.Reset()
	require.NoError(t, Run(ctx, cfg, "show", nil))
	assert.Contains(t, out.String(), `"song_name": "Hello"`)

	assert.Error(t, Run(ctx, cfg, "set", []string{"song_name"}))
	assert.Error(t, Run(ctx, cfg, "dance", nil))
}

func newProject(t *testing.T) (string, string, *Config, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()
	base := filepath.Join(dir, "project")
	require.NoError(t, os.MkdirAll(base, 0755))
	path := filepath.Join(dir, "settings.json")
	doc := settings.Default()
	doc.General.BasePath = base
	require.True(t, settings.Save(path, doc))
	var out bytes.Buffer
	cfg := &Config{
		Config: sunostyle.Config{Settings: path, DBType: "sqlite", DBConn: filepath.Join(dir, "history.db")},
		Output: &out,
	}
	return base, path, cfg, &out
}

func TestDeleteAndDerive(t *testing.T) {
	ctx := context.Background()
	base, path, cfg, _ := newProject(t)
	root := filepath.Join(base, "AI-COVERS")

	donor := settings.SongDetails{AICoverName: "Zombie - Cranberries - 1990s Grunge - AI Cover", Styles: "grunge", MergedStyle: "merged grunge"}
	donorPath, err := studio.SaveSong(root, donor)
	require.NoError(t, err)

	cfg.Target = studio.TargetMergedStyle
	require.NoError(t, Run(ctx, cfg, "derive", []string{donorPath}))
	assert.Equal(t, "merged grunge", settings.Load(path).SongDetails.MergedStyle)

	cfg.Source, cfg.Target = "base", studio.TargetStyles
	require.NoError(t, Run(ctx, cfg, "derive", []string{donorPath}))
	assert.Equal(t, "grunge", settings.Load(path).SongDetails.Styles)

	cfg.Source = "lyrics"
	assert.Error(t, Run(ctx, cfg, "derive", []string{donorPath}))
	cfg.Source = ""

	require.NoError(t, Run(ctx, cfg, "set", []string{"ai_cover_name", donor.AICoverName}))
	require.NoError(t, Run(ctx, cfg, "save", nil))
	app, err := sunostyle.Open(ctx, &cfg.Config)
	require.NoError(t, err)
	_, err = app.Store.GetSongByName(ctx, donor.AICoverName)
	require.NoError(t, err)

	require.NoError(t, Run(ctx, cfg, "delete", []string{donorPath}))
	_, err = os.Stat(filepath.Dir(donorPath))
	assert.True(t, os.IsNotExist(err))
	assert.Equal(t, settings.Default().SongDetails, settings.Load(path).SongDetails)
	_, err = app.Store.GetSongByName(ctx, donor.AICoverName)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	assert.Error(t, Run(ctx, cfg, "delete", []string{donorPath}))
	assert.Error(t, Run(ctx, cfg, "delete", nil))
}

func TestAnalysis(t *testing.T) {
	ctx := context.Background()
	base, path, cfg, out := newProject(t)
	data := filepath.Join(base, "data")
	require.NoError(t, os.MkdirAll(data, 0755))
	export := `[
		{"input_metadata": {"title": "Hello", "artist": "Adele"}, "agent_usage_suggestions": {"suno_style_prompt": "soul ballad"}},
		{"input_metadata": {"title": "Zombie", "artist": "Cranberries"}, "style_analysis": {"prompt_string": "grunge, distorted"}}
	]`
	require.NoError(t, os.WriteFile(filepath.Join(data, "songs.json"), []byte(export), 0644))

	require.NoError(t, Run(ctx, cfg, "analysis", nil))
	assert.Contains(t, out.String(), filepath.Join(data, "songs.json"))

	out.Reset()
	require.NoError(t, Run(ctx, cfg, "analysis", []string{"songs.json"}))
	assert.Contains(t, out.String(), "Hello - Adele")
	assert.Contains(t, out.String(), "matches: 2/2")

	out.Reset()
	cfg.Source = studio.SourcePromptString
	require.NoError(t, Run(ctx, cfg, "analysis", []string{"songs.json", "grunge"}))
	assert.Contains(t, out.String(), "matches: 1/2")
	assert.NotContains(t, out.String(), "Hello - Adele")

	cfg.Pick = 1
	cfg.Target = studio.TargetMergedStyle
	require.NoError(t, Run(ctx, cfg, "analysis", []string{"songs.json", "grunge"}))
	assert.Equal(t, "grunge, distorted", settings.Load(path).SongDetails.MergedStyle)

	cfg.Pick = 2
	assert.Error(t, Run(ctx, cfg, "analysis", []string{"songs.json", "grunge"}))

	cfg.Pick = 1
	cfg.Source = studio.SourceSunoPrompt
	assert.Error(t, Run(ctx, cfg, "analysis", []string{"songs.json", "zombie"}), "no style text")

	cfg.Source = "lyrics"
	assert.Error(t, Run(ctx, cfg, "analysis", []string{"songs.json"}))
	assert.Error(t, Run(ctx, cfg, "analysis", []string{"missing.json"}))
}
