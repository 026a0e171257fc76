package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Service owns the configuration document and flushes it to disk after
// every logical change.
type Service struct {
	path string
	doc  *Document
}

func NewService(path string) *Service {
	if path == "" {
		path = DefaultPath()
	}
	return &Service{path: path}
}

// Path returns the location of the persisted document.
func (s *Service) Path() string {
	return s.path
}

// Load reads the document from disk, replacing the one in memory.
func (s *Service) Load() *Document {
	s.doc = Load(s.path)
	return s.doc
}

// Get returns the document in memory, loading it on first use.
func (s *Service) Get() *Document {
	if s.doc == nil {
		return s.Load()
	}
	return s.doc
}

// Update applies fn to the document and persists the result.
func (s *Service) Update(fn func(*Document)) bool {
	fn(s.Get())
	return s.Persist()
}

// Persist writes the document in memory to disk.
func (s *Service) Persist() bool {
	return Save(s.path, s.Get())
}

// Profile returns the named profile and whether it exists.
func (s *Service) Profile(name string) (Profile, bool) {
	p, ok := s.Get().Profiles[name]
	return p, ok
}

// SetProfileValue updates a single field of the named profile.
func (s *Service) SetProfileValue(name, key, value string) error {
	doc := s.Get()
	if doc.Profiles == nil {
		doc.Profiles = map[string]Profile{}
	}
	p := doc.Profiles[name]
	switch key {
	case "endpoint":
		p.Endpoint = value
	case "model_name":
		p.ModelName = value
	case "deployment":
		p.Deployment = value
	case "subscription_key":
		p.SubscriptionKey = value
	case "api_version":
		p.APIVersion = value
	default:
		return fmt.Errorf("settings: unknown profile key %q", key)
	}
	doc.Profiles[name] = p
	if !s.Persist() {
		return fmt.Errorf("settings: couldn't persist profile %s", name)
	}
	return nil
}

// Root returns the project root: the configured base path when it is an
// existing directory, fallback otherwise.
func (d *Document) Root(fallback string) string {
	base := strings.TrimSpace(d.General.BasePath)
	if base != "" && isDir(base) {
		if abs, err := filepath.Abs(base); err == nil {
			return abs
		}
		return base
	}
	return fallback
}

// CatalogPath resolves the style catalog file. An absolute existing path is
// used as is, otherwise the name is looked up under AI/suno and the stock
// catalog is the last resort.
func (d *Document) CatalogPath(root string) string {
	name := d.General.CSVFilePath
	if filepath.IsAbs(name) && exists(name) {
		return name
	}
	candidate := filepath.Join(root, "AI", "suno", name)
	if name != "" && exists(candidate) {
		return candidate
	}
	return filepath.Join(root, "AI", "suno", "suno_sound_styles.csv")
}

// CoversRoot is the AI-COVERS directory of the project.
func (d *Document) CoversRoot(root string) string {
	return filepath.Join(root, "AI-COVERS")
}

// ImportDir is the directory listed when importing style files.
func (d *Document) ImportDir(root string) string {
	return relative(root, d.General.StylesImportPath, filepath.Join("AI", "suno"))
}

// AnalysisDir is the directory holding style analysis exports.
func (d *Document) AnalysisDir(root string) string {
	return relative(root, d.General.AnalysisDataPath, "data")
}

// SaveDir is the default directory for exported files.
func (d *Document) SaveDir(cwd string) string {
	p := d.General.DefaultSavePath
	if p != "" && isDir(p) {
		return p
	}
	return cwd
}

// AlbumCoverDir is where images are written when the cover name gives no
// song directory.
func (d *Document) AlbumCoverDir(root string) string {
	return filepath.Join(root, "album_covers")
}

// ImageFormat returns png or jpeg.
func (d *Document) ImageFormat() string {
	if strings.EqualFold(d.General.AlbumCoverFormat, "jpeg") || strings.EqualFold(d.General.AlbumCoverFormat, "jpg") {
		return "jpeg"
	}
	return "png"
}

// ImageSize returns the configured image size or the square default.
func (d *Document) ImageSize() string {
	if s := strings.TrimSpace(d.General.AlbumCoverSize); s != "" {
		return s
	}
	return "1024x1024"
}

func relative(root, p, def string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		p = def
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

func exists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

func isDir(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && fi.IsDir()
}

// SetGeneralValue updates a single field of the general section.
func (s *Service) SetGeneralValue(key, value string) error {
	g := &s.Get().General
	switch key {
	case "base_path":
		g.BasePath = value
	case "csv_file_path":
		g.CSVFilePath = value
	case "styles_import_path":
		g.StylesImportPath = value
	case "styles_import_base_name":
		g.StylesImportBaseName = value
	case "default_save_path":
		g.DefaultSavePath = value
	case "title_appendix":
		g.TitleAppendix = value
	case "maker_links":
		g.MakerLinks = value
	case "analysis_data_path":
		g.AnalysisDataPath = value
	case "album_cover_size":
		g.AlbumCoverSize = value
	case "album_cover_format":
		g.AlbumCoverFormat = value
	case "channel_name":
		g.ChannelName = value
	default:
		return fmt.Errorf("settings: unknown general key %q", key)
	}
	if !s.Persist() {
		return fmt.Errorf("settings: couldn't persist general settings")
	}
	return nil
}
