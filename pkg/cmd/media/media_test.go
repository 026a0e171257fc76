package media

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
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

var pngData = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0x0D, 0x49, 0x48, 0x44, 0x52}

const coverName = "Hello - Adele - 1980s Synth - AI Cover"

func setup(t *testing.T, handler http.HandlerFunc, edit func(*settings.Document)) (*Config, string) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	base := filepath.Join(dir, "project")
	require.NoError(t, os.MkdirAll(base, 0755))
	path := filepath.Join(dir, "settings.json")
	doc := settings.Default()
	doc.General.BasePath = base
	doc.Profiles[settings.Image] = settings.Profile{Endpoint: srv.URL, Deployment: "img", SubscriptionKey: "k", APIVersion: "2024-02-15-preview"}
	doc.Profiles[settings.Video] = settings.Profile{Endpoint: srv.URL + "/openai/v1/videos", SubscriptionKey: "k"}
	doc.SongDetails.AICoverName = coverName
	doc.SongDetails.AlbumCover = "a neon city"
	doc.SongDetails.VideoLoop = "a looping neon city"
	if edit != nil {
		edit(doc)
	}
	require.True(t, settings.Save(path, doc))
	return &Config{Config: sunostyle.Config{Settings: path}}, base
}

func TestImage(t *testing.T) {
	var prompts []string
	handler := func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		prompts = append(prompts, string(b))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"data":[{"b64_json":%q}]}`, base64.StdEncoding.EncodeToString(pngData))
	}
	cfg, base := setup(t, handler, nil)
	mirror := t.TempDir()
	cfg.FSType = "local"
	cfg.FSConn = mirror
	cfg.Extra = "no text"

	ctx := context.Background()
	require.NoError(t, RunImage(ctx, cfg))

	root := filepath.Join(base, "AI-COVERS")
	want := filepath.Join(studio.SongDir(root, coverName), coverName+".png")
	b, err := os.ReadFile(want)
	require.NoError(t, err)
	assert.Equal(t, pngData, b)
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], "a neon city no text")

	_, err = os.Stat(filepath.Join(mirror, "1980s", coverName, coverName+".png"))
	assert.NoError(t, err)

	song := settings.Load(cfg.Settings).SongDetails
	assert.Equal(t, want, song.AlbumCoverImagePath)
	assert.Equal(t, filepath.Dir(want), song.AlbumCoverImageDir)

	// A second render keeps the previous image.
	require.NoError(t, RunImage(ctx, cfg))
	entries, err := os.ReadDir(filepath.Dir(want))
	require.NoError(t, err)
	var backups int
	for _, e := range entries {
		if strings.Contains(e.Name(), "_backup_") {
			backups++
		}
	}
	assert.Equal(t, 1, backups)
}

func TestImageNeedsPrompt(t *testing.T) {
	var calls int
	cfg, _ := setup(t, func(w http.ResponseWriter, r *http.Request) { calls++ }, func(d *settings.Document) {
		d.SongDetails.AlbumCover = "Error: request failed"
	})
	err := RunImage(context.Background(), cfg)
	assert.ErrorIs(t, err, studio.ErrInput)
	assert.Equal(t, 0, calls)
}

func TestVideoBytes(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		fmt.Fprint(w, "raw")
	}
	cfg, base := setup(t, handler, nil)
	var opened []string
	prev := openFile
	openFile = func(p string) error { opened = append(opened, p); return nil }
	t.Cleanup(func() { openFile = prev })
	cfg.Open = true

	require.NoError(t, RunVideo(context.Background(), cfg))
	want := studio.VideoPath(filepath.Join(base, "AI-COVERS"), settings.SongDetails{AICoverName: coverName})
	b, err := os.ReadFile(want)
	require.NoError(t, err)
	assert.Equal(t, "raw", string(b))
	assert.Equal(t, []string{want}, opened)
}

func TestVideoURL(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"url":"https://cdn.example/v.mp4"}`)
	}
	cfg, _ := setup(t, handler, nil)
	var opened []string
	prev := openURL
	openURL = func(u string) error { opened = append(opened, u); return nil }
	t.Cleanup(func() { openURL = prev })
	cfg.Open = true

	require.NoError(t, RunVideo(context.Background(), cfg))
	assert.Equal(t, []string{"https://cdn.example/v.mp4"}, opened)
}

func TestPromptForAskExtra(t *testing.T) {
	tests := []struct {
		input string
		want  string
		err   error
	}{
		{input: "", err: ErrCancelled},
		{input: "\n", want: "a neon city"},
		{input: "more neon\n", want: "a neon city more neon"},
		{input: "  no text  ", want: "a neon city no text"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.input), func(t *testing.T) {
			cfg := &Config{
				Extra:    "ignored",
				AskExtra: true,
				Input:    strings.NewReader(tt.input),
			}
			got, err := promptFor(cfg, "a neon city", "album cover")
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
