package prompt

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// Template names.
const (
	MergeStyles     = "merge_styles"
	TransformStyle  = "transform_style"
	AICoverName     = "ai_cover_name"
	AlbumCover      = "album_cover"
	VideoLoop       = "video_loop"
	YoutubeHashtags = "youtube_hashtags"
)

// DefaultDir returns AI/suno/prompts under the working directory.
func DefaultDir() string {
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}
	return filepath.Join(wd, "AI", "suno", "prompts")
}

// Loader reads named templates from a directory.
type Loader struct {
	Dir string
}

func NewLoader(dir string) *Loader {
	if dir == "" {
		dir = DefaultDir()
	}
	return &Loader{Dir: dir}
}

// Path returns the file that holds the named template.
func (l *Loader) Path(name string) string {
	return filepath.Join(l.Dir, name+".txt")
}

// Load returns the named template, or an empty string when it can't be read.
func (l *Loader) Load(name string) string {
	path := l.Path(name)
	b, err := os.ReadFile(path)
	if err != nil {
		log.Printf("prompt: warning: couldn't load template %s: %v\n", path, err)
		return ""
	}
	return string(b)
}

// Fill replaces every {KEY} in template with its value. Replacement is done
// in a single pass, values are never expanded again.
func Fill(template string, values map[string]string) string {
	if len(values) == 0 {
		return template
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(values)*2)
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("{%s}", k), values[k])
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

var placeholder = regexp.MustCompile(`\{([A-Z0-9_]+)\}`)

// Placeholders lists the distinct {KEY} names found in template.
func Placeholders(template string) []string {
	seen := map[string]bool{}
	var out []string
	for _, m := range placeholder.FindAllStringSubmatch(template, -1) {
		if seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		out = append(out, m[1])
	}
	return out
}
