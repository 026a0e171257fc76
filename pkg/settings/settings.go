package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"unicode/utf8"
)

// Profile names used by the generation capabilities.
const (
	Text  = "text"
	Image = "image_gen"
	Video = "video_gen"
)

// MaxLyrics is the maximum number of characters accepted for lyrics.
const MaxLyrics = 20000

type Profile struct {
	Endpoint        string `json:"endpoint"`
	ModelName       string `json:"model_name"`
	Deployment      string `json:"deployment"`
	SubscriptionKey string `json:"subscription_key"`
	APIVersion      string `json:"api_version"`
}

// Usable reports whether the profile has enough data to issue a call.
func (p Profile) Usable() bool {
	return p.Endpoint != "" && p.Deployment != "" && p.SubscriptionKey != ""
}

type General struct {
	BasePath             string `json:"base_path"`
	CSVFilePath          string `json:"csv_file_path"`
	StylesImportPath     string `json:"styles_import_path"`
	StylesImportBaseName string `json:"styles_import_base_name"`
	DefaultSavePath      string `json:"default_save_path"`
	TitleAppendix        string `json:"title_appendix"`
	MakerLinks           string `json:"maker_links"`
	AnalysisDataPath     string `json:"analysis_data_path"`
	AlbumCoverSize       string `json:"album_cover_size"`
	AlbumCoverFormat     string `json:"album_cover_format"`
	ChannelName          string `json:"channel_name"`
}

type SongDetails struct {
	AICoverName             string `json:"ai_cover_name"`
	SongName                string `json:"song_name"`
	Artist                  string `json:"artist"`
	SingerGender            string `json:"singer_gender"`
	Lyrics                  string `json:"lyrics"`
	Styles                  string `json:"styles"`
	MergedStyle             string `json:"merged_style"`
	AlbumCover              string `json:"album_cover"`
	VideoLoop               string `json:"video_loop"`
	AlbumCoverIncludeArtist bool   `json:"album_cover_include_artist"`
	AlbumCoverImagePath     string `json:"album_cover_image_path"`
	AlbumCoverImageDir      string `json:"album_cover_image_dir"`
}

// Validate checks the user editable limits of the song details.
func (s SongDetails) Validate() error {
	if n := utf8.RuneCountInString(s.Lyrics); n > MaxLyrics {
		return fmt.Errorf("settings: lyrics too long (%d > %d characters)", n, MaxLyrics)
	}
	return nil
}

// Document is the persisted configuration. Keys written by other tools are
// kept in raw and written back on save.
type Document struct {
	General           General            `json:"general"`
	Profiles          map[string]Profile `json:"profiles"`
	SongDetails       SongDetails        `json:"song_details"`
	LastSelectedStyle string             `json:"last_selected_style"`

	raw map[string]any
}

// Default returns the document used when nothing has been persisted yet.
func Default() *Document {
	const endpoint = "https://your-endpoint.cognitiveservices.azure.com/"
	const key = "<your-api-key>"
	return &Document{
		General: General{
			CSVFilePath:      "suno/suno_sound_styles.csv",
			StylesImportPath: "AI/suno",
			TitleAppendix:    "Cover",
			MakerLinks:       "• Subscribe: [Your Channel Link]",
			AnalysisDataPath: "data",
			AlbumCoverSize:   "1024x1024",
			AlbumCoverFormat: "png",
			ChannelName:      "Delta AI Covers",
		},
		Profiles: map[string]Profile{
			Text: {
				Endpoint:        endpoint,
				ModelName:       "gpt-4",
				Deployment:      "gpt-4",
				SubscriptionKey: key,
				APIVersion:      "2024-12-01-preview",
			},
			Image: {
				Endpoint:        endpoint,
				ModelName:       "dall-e-3",
				Deployment:      "dall-e-3",
				SubscriptionKey: key,
				APIVersion:      "2024-02-15-preview",
			},
			Video: {
				Endpoint:        endpoint,
				ModelName:       "imagevideo",
				Deployment:      "imagevideo",
				SubscriptionKey: key,
				APIVersion:      "2024-02-15-preview",
			},
		},
		SongDetails: SongDetails{
			SingerGender:            "Female",
			AlbumCoverIncludeArtist: true,
		},
	}
}

// DefaultPath returns the configuration path next to the executable.
func DefaultPath() string {
	name := "sunostyle_config.json"
	exe, err := os.Executable()
	if err != nil {
		return name
	}
	return filepath.Join(filepath.Dir(exe), name)
}

// DefaultRoot returns the parent of the executable directory, the project
// root of an install under <root>/bin.
func DefaultRoot() string {
	exe, err := os.Executable()
	if err != nil {
		if wd, err := os.Getwd(); err == nil {
			return wd
		}
		return "."
	}
	return filepath.Dir(filepath.Dir(exe))
}

// Load reads the document at path. A missing file is created with the
// defaults and a corrupt file is ignored; neither is reported as an error.
func Load(path string) *Document {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		doc := Default()
		if !Save(path, doc) {
			log.Printf("settings: couldn't create default config %s\n", path)
		}
		return doc
	}
	if err != nil {
		log.Printf("settings: couldn't read config %s: %v\n", path, err)
		return Default()
	}
	doc, err := Decode(b)
	if err != nil {
		log.Printf("settings: couldn't load config %s: %v\n", path, err)
		return Default()
	}
	return doc
}

// Decode parses a raw document, migrating the legacy flat format and
// filling every missing key with its default value. Values of the wrong type
// are converted when possible and defaulted otherwise.
func Decode(b []byte) (*Document, error) {
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("settings: couldn't unmarshal config: %w", err)
	}
	if raw == nil {
		raw = map[string]any{}
	}
	defaults, err := toMap(Default())
	if err != nil {
		return nil, err
	}
	if _, ok := raw["profiles"]; !ok {
		raw = migrateLegacy(raw, defaults)
	}
	merge(raw, defaults)
	normalize("", raw, defaults)

	profiles, ok := raw["profiles"].(map[string]any)
	if !ok {
		log.Println("settings: invalid value for profiles, using default")
		profiles = deepCopy(defaults["profiles"]).(map[string]any)
		raw["profiles"] = profiles
	}
	// Profiles added by hand follow the shape of the text profile.
	shape := defaults["profiles"].(map[string]any)[Text]
	for name, v := range profiles {
		profiles[name] = coerce("profiles."+name, v, shape)
	}

	js, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("settings: couldn't marshal merged config: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(js, &doc); err != nil {
		return nil, fmt.Errorf("settings: couldn't decode merged config: %w", err)
	}
	doc.raw = raw
	return &doc, nil
}

// Save writes the document as indented JSON and reports whether it succeeded.
func Save(path string, doc *Document) bool {
	m, err := toMap(doc)
	if err != nil {
		log.Printf("settings: couldn't marshal config: %v\n", err)
		return false
	}
	if doc.raw != nil {
		out := deepCopy(doc.raw).(map[string]any)
		overlay(out, m)
		m = out
	}
	js, err := json.MarshalIndent(m, "", "    ")
	if err != nil {
		log.Printf("settings: couldn't marshal config: %v\n", err)
		return false
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Printf("settings: couldn't create config dir %s: %v\n", dir, err)
			return false
		}
	}
	if err := os.WriteFile(path, js, 0644); err != nil {
		log.Printf("settings: couldn't save config %s: %v\n", path, err)
		return false
	}
	return true
}

var legacyKeys = []string{"endpoint", "model_name", "deployment", "subscription_key", "api_version"}

// migrateLegacy moves the single set of credentials of the flat format into
// the text profile, keeping the song details and the last selected style.
func migrateLegacy(old, defaults map[string]any) map[string]any {
	migrated := deepCopy(defaults).(map[string]any)
	text := map[string]any{}
	for _, k := range legacyKeys {
		v, _ := old[k].(string)
		text[k] = v
	}
	migrated["profiles"].(map[string]any)[Text] = text
	for _, k := range []string{"song_details", "last_selected_style"} {
		if v, ok := old[k]; ok {
			migrated[k] = v
		}
	}
	log.Println("settings: migrated legacy config to profiles")
	return migrated
}

// merge adds the keys of src missing in dst, recursing into nested objects.
// Present values are never overwritten.
func merge(dst, src map[string]any) {
	for k, sv := range src {
		dv, ok := dst[k]
		if !ok {
			dst[k] = deepCopy(sv)
			continue
		}
		dm, dok := dv.(map[string]any)
		sm, sok := sv.(map[string]any)
		if dok && sok {
			merge(dm, sm)
		}
	}
}

// overlay writes every key of src into dst, recursing into objects present
// in both. Keys only in dst are kept.
func overlay(dst, src map[string]any) {
	for k, sv := range src {
		dm, dok := dst[k].(map[string]any)
		sm, sok := sv.(map[string]any)
		if dok && sok {
			overlay(dm, sm)
			continue
		}
		dst[k] = deepCopy(sv)
	}
}

// normalize converts the values of dst known to defaults into the type of
// their default.
func normalize(prefix string, dst, defaults map[string]any) {
	for k, dv := range defaults {
		if k == "profiles" && prefix == "" {
			continue
		}
		if v, ok := dst[k]; ok {
			dst[k] = coerce(prefix+k, v, dv)
		}
	}
}

func coerce(key string, v, def any) any {
	switch d := def.(type) {
	case string:
		switch t := v.(type) {
		case string:
			return t
		case nil:
			return ""
		case float64:
			return strconv.FormatFloat(t, 'f', -1, 64)
		case bool:
			return strconv.FormatBool(t)
		}
	case bool:
		switch t := v.(type) {
		case bool:
			return t
		case float64:
			return t != 0
		case string:
			if b, err := strconv.ParseBool(t); err == nil {
				return b
			}
		}
	case map[string]any:
		if m, ok := v.(map[string]any); ok {
			normalize(key+".", m, d)
			return m
		}
	default:
		return v
	}
	log.Printf("settings: invalid value for %s, using default\n", key)
	return deepCopy(def)
}

func deepCopy(v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	c := make(map[string]any, len(m))
	for k, v := range m {
		c[k] = deepCopy(v)
	}
	return c
}

func toMap(doc *Document) (map[string]any, error) {
	js, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("settings: couldn't marshal document: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(js, &m); err != nil {
		return nil, fmt.Errorf("settings: couldn't unmarshal document: %w", err)
	}
	return m, nil
}
