package settings

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg", "config.json")

	doc := Load(path)
	assert.Equal(t, Default(), doc)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(b), "{\n    \"general\""), "expected 4-space indent, got %q", string(b[:20]))
}

func TestLoadCorruptReturnsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	doc := Load(path)
	assert.Equal(t, Default(), doc)
}

func TestDecodeLegacy(t *testing.T) {
	legacy := `{
		"endpoint": "https://legacy.openai.azure.com/",
		"model_name": "gpt-35",
		"deployment": "legacy-dep",
		"subscription_key": "secret",
		"api_version": "2023-05-15",
		"song_details": {"song_name": "Hello", "artist": "Adele", "singer_gender": "Male"},
		"last_selected_style": "Motown Soul"
	}`
	doc, err := Decode([]byte(legacy))
	require.NoError(t, err)

	assert.Equal(t, Profile{
		Endpoint:        "https://legacy.openai.azure.com/",
		ModelName:       "gpt-35",
		Deployment:      "legacy-dep",
		SubscriptionKey: "secret",
		APIVersion:      "2023-05-15",
	}, doc.Profiles[Text])
	assert.Equal(t, Default().Profiles[Image], doc.Profiles[Image])
	assert.Equal(t, Default().Profiles[Video], doc.Profiles[Video])
	assert.Equal(t, Default().General, doc.General)
	assert.Equal(t, "Hello", doc.SongDetails.SongName)
	assert.Equal(t, "Adele", doc.SongDetails.Artist)
	assert.Equal(t, "Male", doc.SongDetails.SingerGender)
	assert.Equal(t, "Motown Soul", doc.LastSelectedStyle)
}

func TestDecodeLegacyMissingCredentials(t *testing.T) {
	doc, err := Decode([]byte(`{"last_selected_style": "Jazz"}`))
	require.NoError(t, err)
	assert.Equal(t, Profile{}, doc.Profiles[Text])
	assert.False(t, doc.Profiles[Text].Usable())
	assert.Equal(t, "Jazz", doc.LastSelectedStyle)
}

func TestDecodeMergeKeepsValues(t *testing.T) {
	in := `{
		"general": {"title_appendix": "AI Cover"},
		"profiles": {"image_gen": {"endpoint": "https://img.example.com", "subscription_key": "k"}},
		"song_details": {"lyrics": "la la"}
	}`
	doc, err := Decode([]byte(in))
	require.NoError(t, err)

	def := Default()
	assert.Equal(t, "AI Cover", doc.General.TitleAppendix)
	assert.Equal(t, def.General.CSVFilePath, doc.General.CSVFilePath)
	assert.Equal(t, def.General.MakerLinks, doc.General.MakerLinks)

	img := doc.Profiles[Image]
	assert.Equal(t, "https://img.example.com", img.Endpoint)
	assert.Equal(t, "k", img.SubscriptionKey)
	assert.Equal(t, def.Profiles[Image].Deployment, img.Deployment)
	assert.Equal(t, def.Profiles[Image].APIVersion, img.APIVersion)
	assert.Equal(t, def.Profiles[Text], doc.Profiles[Text])

	assert.Equal(t, "la la", doc.SongDetails.Lyrics)
	assert.Equal(t, "Female", doc.SongDetails.SingerGender)
	assert.Equal(t, "", doc.LastSelectedStyle)
}

func TestDecodeEmptyValuesAreNotOverwritten(t *testing.T) {
	in := `{"profiles": {"text": {"endpoint": "", "deployment": "", "subscription_key": "", "model_name": "", "api_version": ""}}}`
	doc, err := Decode([]byte(in))
	require.NoError(t, err)
	assert.Equal(t, Profile{}, doc.Profiles[Text])
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	doc := Default()
	doc.SongDetails.SongName = "Running Up That Hill"
	doc.LastSelectedStyle = "Swing"
	require.True(t, Save(path, doc))

	got := Load(path)
	assert.Equal(t, doc.General, got.General)
	assert.Equal(t, doc.Profiles, got.Profiles)
	assert.Equal(t, doc.SongDetails, got.SongDetails)
	assert.Equal(t, doc.LastSelectedStyle, got.LastSelectedStyle)
}

func readRaw(t *testing.T, path string) map[string]any {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(b, &raw))
	return raw
}

func TestSaveKeepsUnknownKeys(t *testing.T) {
	legacy := `{
		"endpoint": "https://legacy.openai.azure.com/",
		"subscription_key": "secret",
		"song_details": {"song_name": "A", "custom_note": "keep me"},
		"window_geometry": "800x600"
	}`
	doc, err := Decode([]byte(legacy))
	require.NoError(t, err)
	assert.Equal(t, "A", doc.SongDetails.SongName)

	path := filepath.Join(t.TempDir(), "config.json")
	doc.SongDetails.Artist = "B"
	require.True(t, Save(path, doc))

	raw := readRaw(t, path)
	song := raw["song_details"].(map[string]any)
	assert.Equal(t, "keep me", song["custom_note"])
	assert.Equal(t, "A", song["song_name"])
	assert.Equal(t, "B", song["artist"])
	assert.Equal(t, "secret", raw["profiles"].(map[string]any)[Text].(map[string]any)["subscription_key"])

	got := Load(path)
	assert.Equal(t, "B", got.SongDetails.Artist)
	require.True(t, Save(path, got))
	assert.Equal(t, "keep me", readRaw(t, path)["song_details"].(map[string]any)["custom_note"])
}

func TestDecodeWrongTypes(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		check func(*testing.T, *Document)
	}{
		{
			name: "number lyrics",
			in:   `{"profiles": {"text": {"endpoint": "e", "deployment": "d", "subscription_key": "REAL"}}, "song_details": {"lyrics": 123}}`,
			check: func(t *testing.T, d *Document) {
				assert.Equal(t, "123", d.SongDetails.Lyrics)
				assert.Equal(t, "REAL", d.Profiles[Text].SubscriptionKey)
			},
		},
		{
			name: "string bool",
			in:   `{"profiles": {}, "song_details": {"album_cover_include_artist": "false", "artist": null}}`,
			check: func(t *testing.T, d *Document) {
				assert.False(t, d.SongDetails.AlbumCoverIncludeArtist)
				assert.Equal(t, "", d.SongDetails.Artist)
			},
		},
		{
			name: "invalid sections",
			in:   `{"profiles": {"text": {"subscription_key": "REAL"}, "custom": "x"}, "general": [1, 2], "last_selected_style": {"a": 1}}`,
			check: func(t *testing.T, d *Document) {
				assert.Equal(t, "REAL", d.Profiles[Text].SubscriptionKey)
				assert.Equal(t, Default().General, d.General)
				assert.Equal(t, "", d.LastSelectedStyle)
				assert.Equal(t, Default().Profiles[Text], d.Profiles["custom"])
			},
		},
		{
			name: "invalid profiles",
			in:   `{"profiles": "none", "last_selected_style": "Jazz"}`,
			check: func(t *testing.T, d *Document) {
				assert.Equal(t, Default().Profiles, d.Profiles)
				assert.Equal(t, "Jazz", d.LastSelectedStyle)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Decode([]byte(tt.in))
			require.NoError(t, err)
			tt.check(t, doc)
		})
	}
}

func TestServiceKeepsKeysOnUpdate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	in := `{"profiles": {"text": {"endpoint": "e", "deployment": "d", "subscription_key": "REAL"}}, "song_details": {"lyrics": 123, "extra": true}}`
	require.NoError(t, os.WriteFile(path, []byte(in), 0644))

	svc := NewService(path)
	require.True(t, svc.Update(func(d *Document) { d.SongDetails.SongName = "Hello" }))

	raw := readRaw(t, path)
	assert.Equal(t, "REAL", raw["profiles"].(map[string]any)[Text].(map[string]any)["subscription_key"])
	song := raw["song_details"].(map[string]any)
	assert.Equal(t, true, song["extra"])
	assert.Equal(t, "123", song["lyrics"])
	assert.Equal(t, "Hello", song["song_name"])
}

func TestSaveFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))
	assert.False(t, Save(filepath.Join(blocker, "config.json"), Default()))
}

func TestProfileUsable(t *testing.T) {
	tests := []struct {
		profile Profile
		want    bool
	}{
		{Profile{Endpoint: "e", Deployment: "d", SubscriptionKey: "k"}, true},
		{Profile{Endpoint: "e", Deployment: "d"}, false},
		{Profile{Endpoint: "e", SubscriptionKey: "k"}, false},
		{Profile{Deployment: "d", SubscriptionKey: "k"}, false},
	}
	for _, tt := range tests {
		if got := tt.profile.Usable(); got != tt.want {
			t.Errorf("Usable(%+v) = %v; want %v", tt.profile, got, tt.want)
		}
	}
}

func TestValidateLyrics(t *testing.T) {
	ok := SongDetails{Lyrics: strings.Repeat("ä", MaxLyrics)}
	assert.NoError(t, ok.Validate())
	tooLong := SongDetails{Lyrics: strings.Repeat("a", MaxLyrics+1)}
	assert.Error(t, tooLong.Validate())
}

func TestServiceUpdate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	svc := NewService(path)
	require.True(t, svc.Update(func(d *Document) {
		d.LastSelectedStyle = "Lo-Fi"
	}))
	require.NoError(t, svc.SetProfileValue(Text, "subscription_key", "abc"))
	assert.Error(t, svc.SetProfileValue(Text, "unknown", "x"))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(b, &raw))
	assert.Equal(t, "Lo-Fi", raw["last_selected_style"])

	other := NewService(path)
	p, ok := other.Profile(Text)
	require.True(t, ok)
	assert.Equal(t, "abc", p.SubscriptionKey)
}

func TestCatalogPath(t *testing.T) {
	root := t.TempDir()
	suno := filepath.Join(root, "AI", "suno")
	require.NoError(t, os.MkdirAll(suno, 0755))
	custom := filepath.Join(suno, "custom.csv")
	require.NoError(t, os.WriteFile(custom, []byte("style\n"), 0644))

	doc := Default()
	doc.General.CSVFilePath = "custom.csv"
	assert.Equal(t, custom, doc.CatalogPath(root))

	doc.General.CSVFilePath = custom
	assert.Equal(t, custom, doc.CatalogPath(root))

	doc.General.CSVFilePath = "missing.csv"
	assert.Equal(t, filepath.Join(suno, "suno_sound_styles.csv"), doc.CatalogPath(root))
}

func TestRoot(t *testing.T) {
	dir := t.TempDir()
	doc := Default()
	assert.Equal(t, "fallback", doc.Root("fallback"))
	doc.General.BasePath = dir
	assert.Equal(t, dir, doc.Root("fallback"))
	doc.General.BasePath = filepath.Join(dir, "missing")
	assert.Equal(t, "fallback", doc.Root("fallback"))
}

func TestDefaultRoot(t *testing.T) {
	exe, err := os.Executable()
	require.NoError(t, err)
	assert.Equal(t, filepath.Dir(filepath.Dir(exe)), DefaultRoot())

	doc := Default()
	assert.Equal(t, DefaultRoot(), doc.Root(DefaultRoot()))
}

func TestServiceSetGeneralValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	svc := NewService(path)
	require.NoError(t, svc.SetGeneralValue("channel_name", "Night Covers"))
	require.NoError(t, svc.SetGeneralValue("album_cover_format", "jpeg"))
	assert.Error(t, svc.SetGeneralValue("nope", "x"))

	doc := Load(path)
	assert.Equal(t, "Night Covers", doc.General.ChannelName)
	assert.Equal(t, "jpeg", doc.ImageFormat())
}
