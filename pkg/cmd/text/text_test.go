package text

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
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

type fixture struct {
	cfg      *Config
	settings string
	out      *bytes.Buffer
	prompts  []string
	reply    string
	status   int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{reply: "ok", status: http.StatusOK, out: &bytes.Buffer{}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &in)
		if n := len(in.Messages); n > 0 {
			f.prompts = append(f.prompts, in.Messages[n-1].Content)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.status)
		if f.status != http.StatusOK {
			fmt.Fprint(w, `{"error":{"code":"500","message":"boom"}}`)
			return
		}
		out, _ := json.Marshal(f.reply)
		fmt.Fprintf(w, `{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":%s},"finish_reason":"stop"}]}`, out)
	}))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	base := filepath.Join(dir, "project")
	require.NoError(t, os.MkdirAll(filepath.Join(base, "AI", "suno"), 0755))
	csv := "style,sample_artists,decade_range,mood\nSynthwave,\"Kavinsky, The Midnight\",1980s,Nostalgic\n"
	require.NoError(t, os.WriteFile(filepath.Join(base, "AI", "suno", "suno_sound_styles.csv"), []byte(csv), 0644))

	prompts := filepath.Join(dir, "prompts")
	require.NoError(t, os.MkdirAll(prompts, 0755))
	templates := map[string]string{
		"merge_styles":    "Merge {STYLES_TO_MERGE} with {ORIGINAL_STYLE}",
		"transform_style": "Transform {SONG_NAME} by {ARTIST}: {STYLE_KEYWORDS}",
		"ai_cover_name":   "Name {SONG_NAME} by {ARTIST}: {STYLE_KEYWORDS}",
	}
	for name, body := range templates {
		require.NoError(t, os.WriteFile(filepath.Join(prompts, name+".txt"), []byte(body), 0644))
	}

	f.settings = filepath.Join(dir, "settings.json")
	doc := settings.Default()
	doc.General.BasePath = base
	doc.Profiles[settings.Text] = settings.Profile{Endpoint: srv.URL, Deployment: "gpt", SubscriptionKey: "k", APIVersion: "2024-06-01"}
	doc.SongDetails.SongName = "Hello"
	doc.SongDetails.Artist = "Adele"
	doc.SongDetails.Styles = "dreamy, reverb"
	doc.LastSelectedStyle = "Synthwave"
	require.True(t, settings.Save(f.settings, doc))

	f.cfg = &Config{
		Config: sunostyle.Config{
			Settings: f.settings,
			Prompts:  prompts,
			DBType:   "sqlite",
			DBConn:   filepath.Join(dir, "history.db"),
		},
		Output: f.out,
	}
	return f
}

func (f *fixture) song(t *testing.T) settings.SongDetails {
	t.Helper()
	return settings.Load(f.settings).SongDetails
}

func TestMergeStoresResult(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.reply = "dreamy synthwave"

	require.NoError(t, RunMerge(ctx, f.cfg))
	assert.Equal(t, "dreamy synthwave", f.song(t).MergedStyle)
	require.Len(t, f.prompts, 1)
	assert.Equal(t, "Merge dreamy, reverb with Synthwave", f.prompts[0])
	assert.Contains(t, f.out.String(), "dreamy synthwave")

	store, err := storage.New("sqlite", f.cfg.DBConn, false)
	require.NoError(t, err)
	require.NoError(t, store.Start(ctx))
	gens, err := store.ListGenerations(ctx, 1, 10, "")
	require.NoError(t, err)
	require.Len(t, gens, 1)
	assert.Equal(t, settings.Text, gens[0].Capability)
	assert.Equal(t, storage.Succeeded, gens[0].State)
	assert.Equal(t, "dreamy synthwave", gens[0].Output)
}

func TestMergeFailureKeepsError(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.status = http.StatusInternalServerError

	require.Error(t, RunMerge(ctx, f.cfg))
	song := f.song(t)
	assert.True(t, studio.Failed(song.MergedStyle), song.MergedStyle)

	// The failed merge is ignored by the cover name flow.
	f.status = http.StatusOK
	f.reply = "  Hello - Adele - dreamy - AI Cover  "
	require.NoError(t, RunCoverName(ctx, f.cfg))
	assert.Equal(t, "Hello - Adele - dreamy - AI Cover", f.song(t).AICoverName)
	assert.Equal(t, "Name Hello by Adele: dreamy, reverb", f.prompts[len(f.prompts)-1])
}

func TestTransformMergesFirst(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.cfg.MergeOriginal = true
	f.reply = "viral"

	require.NoError(t, RunTransform(ctx, f.cfg))
	require.Len(t, f.prompts, 2)
	assert.Equal(t, "Transform Hello by Adele: viral", f.prompts[1])
	assert.Equal(t, "viral", f.song(t).MergedStyle)
}

func TestDryRun(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.cfg.DryRun = true
	f.reply = "merged"

	require.NoError(t, RunMerge(ctx, f.cfg))
	assert.Equal(t, "", f.song(t).MergedStyle)
	assert.Contains(t, f.out.String(), "merged")
}

func TestMissingTemplate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	err := RunAlbumCover(ctx, f.cfg)
	assert.ErrorIs(t, err, studio.ErrTemplate)
	assert.Empty(t, f.prompts)
}

func TestImproveKind(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.cfg.Kind = "poster"
	assert.Error(t, RunImprove(ctx, f.cfg))

	f.cfg.Kind = string(studio.AlbumCover)
	f.cfg.Changes = "more neon"
	assert.ErrorIs(t, RunImprove(ctx, f.cfg), studio.ErrInput)
	assert.Empty(t, f.prompts)
}
