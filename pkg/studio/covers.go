package studio

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/alorbach/sunostyle/pkg/settings"
)

var ErrExists = errors.New("studio: target already exists")

// Cover is the parsed form of an AI cover name.
type Cover struct {
	Song      string
	Artist    string
	Decade    string
	Style     string
	FullStyle string
}

var (
	currentName  = regexp.MustCompile(`(?i)^(.+?)\s+-\s+(.+?)\s+-\s+(\d{4}s)\s+(.+?)\s+-\s+AI\s+Cover$`)
	previousName = regexp.MustCompile(`(?i)^(.+?)\s+"([^"]+)"\s+-\s+(\d{4}s)\s+(.+?)\s+-\s+AI\s+Cover$`)
	oldName      = regexp.MustCompile(`^(\d{4}s)\s+(.+?)\s+-\s+(.+?)\s+_([^_]+)_\s+(.+)$`)
	decadeStyle  = regexp.MustCompile(`(?i)^(\d{4}s)\s+(.+)$`)
	artistSong   = regexp.MustCompile(`^(.+?)\s+"([^"]+)"$`)
	anyDecade    = regexp.MustCompile(`(\d{4}s)`)
)

// ParseCoverName understands the current "Song - Artist - 1950s Style - AI
// Cover" format and the older ones. Unknown formats only yield the decade,
// if any.
func ParseCoverName(name string) Cover {
	name = strings.TrimSpace(name)
	if name == "" {
		return Cover{}
	}
	full := func(c Cover) Cover {
		c.FullStyle = c.Decade + " " + c.Style
		return c
	}
	trim := strings.TrimSpace

	if m := currentName.FindStringSubmatch(name); m != nil {
		return full(Cover{Song: trim(m[1]), Artist: trim(m[2]), Decade: trim(m[3]), Style: trim(m[4])})
	}
	parts := strings.Split(name, " - ")
	last := strings.ToUpper(trim(parts[len(parts)-1]))
	if len(parts) >= 4 && last == "AI COVER" {
		if m := decadeStyle.FindStringSubmatch(trim(parts[2])); m != nil {
			return full(Cover{Song: trim(parts[0]), Artist: trim(parts[1]), Decade: trim(m[1]), Style: trim(m[2])})
		}
	}
	if m := previousName.FindStringSubmatch(name); m != nil {
		return full(Cover{Artist: trim(m[1]), Song: trim(m[2]), Decade: trim(m[3]), Style: trim(m[4])})
	}
	if len(parts) >= 3 && last == "AI COVER" {
		as := artistSong.FindStringSubmatch(trim(parts[0]))
		ds := decadeStyle.FindStringSubmatch(trim(parts[1]))
		if as != nil && ds != nil {
			return full(Cover{Artist: trim(as[1]), Song: trim(as[2]), Decade: trim(ds[1]), Style: trim(ds[2])})
		}
	}
	if m := oldName.FindStringSubmatch(name); m != nil {
		return full(Cover{Decade: trim(m[1]), Style: trim(m[2]), Artist: trim(m[3]), Song: trim(m[4])})
	}
	if m := anyDecade.FindStringSubmatch(name); m != nil {
		return Cover{Decade: m[1]}
	}
	return Cover{}
}

var underscores = regexp.MustCompile(`_+`)

// SanitizeName makes a cover name usable as a directory name.
func SanitizeName(name string) string {
	if name == "" {
		return ""
	}
	s := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`<>:"/\|?*`, r) {
			return '_'
		}
		return r
	}, name)
	s = strings.Trim(s, " .")
	return underscores.ReplaceAllString(s, "_")
}

// SafeBasename makes a cover name usable as a file name.
func SafeBasename(name string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(`:/\*?"'<>|`, r) {
			return '_'
		}
		return r
	}, name)
}

// SongDir returns {root}/{decade}/{sanitized name} where root is the
// AI-COVERS directory.
func SongDir(root, name string) string {
	if name == "" {
		return ""
	}
	decade := ParseCoverName(name).Decade
	if decade == "" {
		decade = "Unknown"
	}
	return filepath.Join(root, decade, SanitizeName(name))
}

// SongJSONPath returns the song details file inside SongDir.
func SongJSONPath(root, name string) string {
	if name == "" {
		return ""
	}
	return filepath.Join(SongDir(root, name), SanitizeName(name)+".json")
}

// SaveSong writes the song details into its AI-COVERS directory, overwriting
// any previous file.
func SaveSong(root string, song settings.SongDetails) (string, error) {
	name := strings.TrimSpace(song.AICoverName)
	if name == "" {
		return "", fmt.Errorf("%w: ai cover name", ErrInput)
	}
	if err := os.MkdirAll(SongDir(root, name), 0755); err != nil {
		return "", fmt.Errorf("studio: couldn't create song directory: %w", err)
	}
	path := SongJSONPath(root, name)
	if err := writeSong(path, song); err != nil {
		return "", err
	}
	return path, nil
}

func writeSong(path string, song settings.SongDetails) error {
	js, err := json.MarshalIndent(song, "", "    ")
	if err != nil {
		return fmt.Errorf("studio: couldn't marshal song: %w", err)
	}
	if err := os.WriteFile(path, js, 0644); err != nil {
		return fmt.Errorf("studio: couldn't write song %s: %w", path, err)
	}
	return nil
}

// LoadSong reads a standalone song details file.
func LoadSong(path string) (settings.SongDetails, error) {
	song := settings.SongDetails{SingerGender: "Female"}
	b, err := os.ReadFile(path)
	if err != nil {
		return song, fmt.Errorf("studio: couldn't read song %s: %w", path, err)
	}
	if err := json.Unmarshal(b, &song); err != nil {
		return song, fmt.Errorf("studio: couldn't parse song %s: %w", path, err)
	}
	return song, nil
}

// Entry is a song found in the AI-COVERS tree.
type Entry struct {
	Dir         string
	JSONPath    string
	AICoverName string
	SongName    string
	Artist      string
	Decade      string
}

// ScanCovers lists the songs under root grouped by decade directory.
// Directories without a readable song file are skipped.
func ScanCovers(root string) ([]Entry, error) {
	decades, err := os.ReadDir(root)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("studio: couldn't read %s: %w", root, err)
	}
	var entries []Entry
	for _, d := range decades {
		if !d.IsDir() {
			continue
		}
		decadeDir := filepath.Join(root, d.Name())
		songs, err := os.ReadDir(decadeDir)
		if err != nil {
			continue
		}
		for _, s := range songs {
			if !s.IsDir() {
				continue
			}
			dir := filepath.Join(decadeDir, s.Name())
			path := songFile(dir)
			if path == "" {
				continue
			}
			song, err := LoadSong(path)
			if err != nil {
				continue
			}
			name := song.AICoverName
			if name == "" {
				name = s.Name()
			}
			entries = append(entries, Entry{
				Dir:         dir,
				JSONPath:    path,
				AICoverName: name,
				SongName:    song.SongName,
				Artist:      song.Artist,
				Decade:      d.Name(),
			})
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Decade != entries[j].Decade {
			return entries[i].Decade < entries[j].Decade
		}
		return entries[i].AICoverName < entries[j].AICoverName
	})
	return entries, nil
}

// songFile returns the first json file of dir, ignoring grok_ exports.
func songFile(dir string) string {
	files, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	for _, f := range files {
		n := f.Name()
		if f.IsDir() || !strings.HasSuffix(n, ".json") || strings.HasPrefix(n, "grok_") {
			continue
		}
		return filepath.Join(dir, n)
	}
	return ""
}

// RenameSong moves the song stored at path to the directory of newName,
// which may change its decade, and updates the stored name.
func RenameSong(root, path, newName string) (string, error) {
	newName = strings.TrimSpace(newName)
	if path == "" || newName == "" {
		return "", fmt.Errorf("%w: song path and new name", ErrInput)
	}
	oldDir := filepath.Dir(path)
	newDir := SongDir(root, newName)
	newJSON := SongJSONPath(root, newName)
	if newJSON != path {
		if _, err := os.Stat(newJSON); err == nil {
			return "", fmt.Errorf("%w: %s", ErrExists, newJSON)
		}
	}
	if oldDir != newDir {
		if err := os.MkdirAll(filepath.Dir(newDir), 0755); err != nil {
			return "", fmt.Errorf("studio: couldn't create %s: %w", filepath.Dir(newDir), err)
		}
		if err := os.Rename(oldDir, newDir); err != nil {
			return "", fmt.Errorf("studio: couldn't move %s to %s: %w", oldDir, newDir, err)
		}
	}
	moved := filepath.Join(newDir, filepath.Base(path))
	if moved != newJSON {
		if err := os.Rename(moved, newJSON); err != nil {
			return "", fmt.Errorf("studio: couldn't rename %s: %w", moved, err)
		}
	}
	song, err := LoadSong(newJSON)
	if err != nil {
		return "", err
	}
	song.AICoverName = newName
	if err := writeSong(newJSON, song); err != nil {
		return "", err
	}
	return newJSON, nil
}

// DeleteSong removes the directory of the song stored at path. The
// directory must be a song directory inside root.
func DeleteSong(root, path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("%w: song path", ErrInput)
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("studio: couldn't find song %s: %w", path, err)
	}
	dir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return "", fmt.Errorf("studio: couldn't resolve %s: %w", path, err)
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("studio: couldn't resolve %s: %w", root, err)
	}
	rel, err := filepath.Rel(absRoot, dir)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("studio: %s is not a song directory under %s", dir, root)
	}
	if err := os.RemoveAll(dir); err != nil {
		return "", fmt.Errorf("studio: couldn't delete %s: %w", dir, err)
	}
	return dir, nil
}

// Style fields of the song details a derived style can be written to.
const (
	TargetStyles      = "styles"
	TargetMergedStyle = "merged_style"
)

// DeriveStyle copies the merged style, or the base styles when source is
// "base", of from into the target field of song.
func DeriveStyle(song *settings.SongDetails, from settings.SongDetails, source, target string) error {
	var style string
	switch source {
	case "", "merged":
		style = from.MergedStyle
	case "base":
		style = from.Styles
	default:
		return fmt.Errorf("studio: unknown style source %q", source)
	}
	return SetStyle(song, target, style)
}

// SetStyle writes style into the styles or merged style field.
func SetStyle(song *settings.SongDetails, target, style string) error {
	switch target {
	case "", TargetStyles:
		song.Styles = style
	case TargetMergedStyle:
		song.MergedStyle = style
	default:
		return fmt.Errorf("studio: unknown style target %q", target)
	}
	return nil
}

// BackupIfExists copies path to {base}_backup_{timestamp}{ext} when it
// exists and returns the backup path.
func BackupIfExists(path string, now time.Time) (string, error) {
	src, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("studio: couldn't open %s: %w", path, err)
	}
	defer src.Close()
	info, err := src.Stat()
	if err != nil {
		return "", fmt.Errorf("studio: couldn't stat %s: %w", path, err)
	}

	ext := filepath.Ext(path)
	backup := fmt.Sprintf("%s_backup_%s%s", strings.TrimSuffix(path, ext), now.Format("20060102_150405"), ext)
	dst, err := os.OpenFile(backup, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode())
	if err != nil {
		return "", fmt.Errorf("studio: couldn't create backup %s: %w", backup, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return "", fmt.Errorf("studio: couldn't copy backup %s: %w", backup, err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("studio: couldn't close backup %s: %w", backup, err)
	}
	_ = os.Chtimes(backup, info.ModTime(), info.ModTime())
	return backup, nil
}

// ArtifactName is the base name of generated files for a song: the cover
// name, "Artist - Song" or the fallback.
func ArtifactName(song settings.SongDetails, fallback string) string {
	if name := strings.TrimSpace(song.AICoverName); name != "" {
		return name
	}
	artist := strings.TrimSpace(song.Artist)
	name := strings.TrimSpace(song.SongName)
	if artist == "" && name == "" {
		return fallback
	}
	return strings.Trim(artist+" - "+name, " -")
}

// ImagePath decides where the album cover image of a song is written: its
// AI-COVERS song directory, or dir when that can't be created.
func ImagePath(root, dir string, song settings.SongDetails, format string) string {
	name := ArtifactName(song, "album_cover")
	ext := ".png"
	if format == "jpeg" {
		ext = ".jpg"
	}
	if songDir := SongDir(root, name); songDir != "" {
		if err := os.MkdirAll(songDir, 0755); err == nil {
			dir = songDir
		}
	}
	return filepath.Join(dir, SafeBasename(name)+ext)
}

// VideoPath is where a rendered video loop of a song is written.
func VideoPath(root string, song settings.SongDetails) string {
	name := ArtifactName(song, "video")
	return filepath.Join(SongDir(root, name), SafeBasename(name)+".mp4")
}
