package studio

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/alorbach/sunostyle/pkg/catalog"
	"github.com/alorbach/sunostyle/pkg/prompt"
	"github.com/alorbach/sunostyle/pkg/settings"
)

var (
	ErrInput    = errors.New("studio: missing input")
	ErrTemplate = errors.New("studio: couldn't load template")
)

const (
	albumCoverSystem = "You are an image prompt generator. Output ONLY the image prompt text, nothing else. No explanations, no labels, just the prompt itself."
	videoLoopSystem  = "You are a professional video prompt generator for music visualizers. Generate clean, artistic, SFW video prompts suitable for music content. CRITICAL: Adapt the prompt to comply with Azure AI Content Safety guidelines (https://ai.azure.com/doc/azure/ai-foundry/ai-services/content-safety-overview). Ensure the prompt avoids any content that could violate safety policies including violence, sexual content, hate speech, self-harm, or any harmful or inappropriate material. If the input contains potentially problematic elements, adapt them to safe, artistic alternatives suitable for music visualization. Output ONLY the final video prompt text with no explanations or extra labels."
)

// Texter is the text capability of the generation client.
type Texter interface {
	Text(ctx context.Context, p settings.Profile, prompt, system string) (string, error)
}

type Config struct {
	Client  Texter
	Prompts *prompt.Loader
	Profile settings.Profile
	General settings.General
	Debug   bool
}

// Studio runs the text generation flows for a song.
type Studio struct {
	client  Texter
	prompts *prompt.Loader
	profile settings.Profile
	general settings.General
	debug   bool
}

func New(cfg *Config) *Studio {
	prompts := cfg.Prompts
	if prompts == nil {
		prompts = prompt.NewLoader("")
	}
	return &Studio{
		client:  cfg.Client,
		prompts: prompts,
		profile: cfg.Profile,
		general: cfg.General,
		debug:   cfg.Debug,
	}
}

func (s *Studio) log(format string, args ...interface{}) {
	if s.debug {
		format += "\n"
		log.Printf(format, args...)
	}
}

func (s *Studio) template(name string) (string, error) {
	t := s.prompts.Load(name)
	if t == "" {
		return "", fmt.Errorf("%w: %s", ErrTemplate, name)
	}
	s.log("studio: loaded %s template", name)
	return t, nil
}

// fill substitutes the template values and warns about placeholders left
// without one.
func (s *Studio) fill(name, t string, values map[string]string) string {
	for _, k := range prompt.Placeholders(t) {
		if _, ok := values[k]; !ok {
			log.Printf("studio: %s template has no value for {%s}\n", name, k)
		}
	}
	return prompt.Fill(t, values)
}

func (s *Studio) ask(ctx context.Context, name, p, system string) (string, error) {
	s.log("studio: %s prompt:\n%s", name, p)
	out, err := s.client.Text(ctx, s.profile, p, system)
	if err != nil {
		return "", fmt.Errorf("studio: %s failed: %w", name, err)
	}
	return out, nil
}

func required(what string, values ...string) error {
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("%w: %s", ErrInput, what)
		}
	}
	return nil
}

// Failed reports whether a stored result is an error placeholder.
func Failed(s string) bool {
	return strings.HasPrefix(s, "Error:")
}

// Keywords returns the merged style, or the free text styles when there is
// no usable merge result.
func Keywords(song settings.SongDetails) string {
	merged := strings.TrimSpace(song.MergedStyle)
	if merged == "" || Failed(merged) {
		return strings.TrimSpace(song.Styles)
	}
	return merged
}

// MergeStyles combines styles with the selected catalog style.
func (s *Studio) MergeStyles(ctx context.Context, styles, original string) (string, error) {
	styles = strings.TrimSpace(styles)
	if err := required("enter styles to merge", styles); err != nil {
		return "", err
	}
	t, err := s.template(prompt.MergeStyles)
	if err != nil {
		return "", err
	}
	if original == "" {
		original = "None selected"
	}
	p := s.fill(prompt.MergeStyles, t, map[string]string{
		"STYLES_TO_MERGE": styles,
		"ORIGINAL_STYLE":  original,
	})
	return s.ask(ctx, prompt.MergeStyles, p, "")
}

// TransformStyle rewrites the styles of a song for viral potential. With
// mergeOriginal the selected catalog style is merged into the styles first.
func (s *Studio) TransformStyle(ctx context.Context, song settings.SongDetails, original string, mergeOriginal bool) (string, error) {
	name := strings.TrimSpace(song.SongName)
	artist := strings.TrimSpace(song.Artist)
	if err := required("enter song name and artist", name, artist); err != nil {
		return "", err
	}
	styles := strings.TrimSpace(song.Styles)
	if mergeOriginal {
		if original == "" && styles == "" {
			return "", fmt.Errorf("%w: select a style or enter styles to merge", ErrInput)
		}
		switch {
		case original != "" && styles != "":
			s.log("studio: step 1/2: merging styles")
			merged, err := s.MergeStyles(ctx, styles, original)
			if err != nil {
				return "", err
			}
			styles = merged
			s.log("studio: step 2/2: transforming")
		case original != "":
			styles = original
		}
	}
	if err := required("enter styles to transform", styles); err != nil {
		return "", err
	}
	t, err := s.template(prompt.TransformStyle)
	if err != nil {
		return "", err
	}
	p := s.fill(prompt.TransformStyle, t, map[string]string{
		"SONG_NAME":      name,
		"ARTIST":         artist,
		"STYLE_KEYWORDS": styles,
	})
	return s.ask(ctx, prompt.TransformStyle, p, "")
}

// CoverName generates the AI cover title of a song.
func (s *Studio) CoverName(ctx context.Context, song settings.SongDetails) (string, error) {
	name := strings.TrimSpace(song.SongName)
	artist := strings.TrimSpace(song.Artist)
	if err := required("enter song name and artist", name, artist); err != nil {
		return "", err
	}
	keywords := Keywords(song)
	if err := required("merge styles first or enter styles", keywords); err != nil {
		return "", err
	}
	t, err := s.template(prompt.AICoverName)
	if err != nil {
		return "", err
	}
	p := s.fill(prompt.AICoverName, t, map[string]string{
		"SONG_NAME":      name,
		"ARTIST":         artist,
		"STYLE_KEYWORDS": keywords,
	})
	out, err := s.ask(ctx, prompt.AICoverName, p, "")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// FilteredArtists returns the sample artists of a style without the ones
// that look like the original artist.
func FilteredArtists(style catalog.Style, artist string) []string {
	var artists []string
	for _, a := range strings.Split(style.Get(catalog.FieldArtists), ";") {
		if a = strings.TrimSpace(a); a != "" {
			artists = append(artists, a)
		}
	}
	original := strings.ToLower(strings.TrimSpace(artist))
	if original == "" {
		return artists
	}
	var filtered []string
	for _, a := range artists {
		lower := strings.ToLower(a)
		if lower == original || strings.Contains(lower, original) || strings.Contains(original, lower) {
			continue
		}
		filtered = append(filtered, a)
	}
	return filtered
}

// Typography picks a cover font style for a decade range.
func Typography(decades string) string {
	switch {
	case strings.Contains(decades, "1980s") || strings.Contains(decades, "1990s"):
		return "retro-futuristic fonts, bold typography"
	case strings.Contains(decades, "2000s") || strings.Contains(decades, "2010s"):
		return "modern sans-serif, clean and bold"
	default:
		return "classic, elegant typography"
	}
}

var artistLine = regexp.MustCompile(`\n3\.\s*Artist:.*?\n`)

func withIdeas(p, ideas string) string {
	ideas = strings.TrimSpace(ideas)
	if ideas == "" {
		return p
	}
	return p + "\n\n=== ADDITIONAL USER IDEAS (MUST INCORPORATE) ===\n" + ideas + "\n=== END USER IDEAS ===\n"
}

// AlbumCoverPrompt builds the image prompt of the album cover.
func (s *Studio) AlbumCoverPrompt(ctx context.Context, song settings.SongDetails, style catalog.Style, ideas string) (string, error) {
	name := strings.TrimSpace(song.SongName)
	artist := strings.TrimSpace(song.Artist)
	if err := required("enter song name and artist", name, artist); err != nil {
		return "", err
	}
	keywords := Keywords(song)
	if err := required("merge styles first or enter styles", keywords); err != nil {
		return "", err
	}
	if style == nil {
		return "", fmt.Errorf("%w: select a music style", ErrInput)
	}

	similar := FilteredArtists(style, artist)
	if len(similar) > 0 {
		keywords += ". Musical style similar to: " + strings.Join(similar, ", ")
	}
	mood := style.Get(catalog.FieldMood)
	decades := style.Get(catalog.FieldDecade)
	elements := fmt.Sprintf("%s singer, musical instruments, %s, %s atmosphere", song.SingerGender, style.Get(catalog.FieldInstrumentation), mood)
	if len(similar) > 0 {
		elements += ", musicians or band performing with the visual aesthetic of: " + strings.Join(similar, ", ")
	}

	t, err := s.template(prompt.AlbumCover)
	if err != nil {
		return "", err
	}
	coverName := strings.TrimSpace(song.AICoverName)
	if coverName == "" {
		appendix := s.general.TitleAppendix
		if appendix == "" {
			appendix = "Cover"
		}
		coverName = fmt.Sprintf("%s - %s - %s - %s", name, artist, keywords, appendix)
	}
	shownArtist := artist
	if !song.AlbumCoverIncludeArtist {
		shownArtist = ""
		t = artistLine.ReplaceAllString(t, "\n")
	}
	p := s.fill(prompt.AlbumCover, t, map[string]string{
		"SONG_TITLE":                name,
		"ORIGINAL_ARTIST":           shownArtist,
		"STYLE_DESCRIPTION":         keywords,
		"MOOD_DESCRIPTION":          mood,
		"VISUAL_TONE":               fmt.Sprintf("%s, %s era aesthetic", mood, decades),
		"SUGGESTED_VISUAL_ELEMENTS": elements,
		"TYPOGRAPHY_STYLE":          Typography(decades),
		"AI_COVER_NAME":             coverName,
	})
	return s.ask(ctx, prompt.AlbumCover, withIdeas(p, ideas), albumCoverSystem)
}

// Scene holds the descriptors of a video loop derived from a style.
type Scene struct {
	Style     string
	Mood      string
	Keywords  string
	Elements  string
	Camera    string
	Lighting  string
	Animation string
	Scene     string
}

// NewScene derives the video loop descriptors for a song and style.
func NewScene(song settings.SongDetails, style catalog.Style, similar []string) Scene {
	text := Keywords(song)
	if text == "" {
		text = style.Name()
	}
	if len(similar) > 0 {
		text += ". Musical style similar to: " + strings.Join(similar, ", ")
	}
	mood := style.Get(catalog.FieldMood)
	instruments := style.Get(catalog.FieldInstrumentation)
	decades := style.Get(catalog.FieldDecade)
	lowerMood := strings.ToLower(mood)
	lowerStyle := strings.ToLower(text)

	sc := Scene{Style: text, Mood: mood, Keywords: mood}
	if sc.Keywords == "" {
		sc.Keywords = "cinematic, atmospheric"
	}

	switch {
	case strings.Contains(lowerMood, "relaxed") || strings.Contains(lowerMood, "chill"):
		sc.Camera = "Static shot with shallow depth of field, gentle parallax from ambient elements"
	case strings.Contains(lowerMood, "energetic") || strings.Contains(lowerMood, "upbeat"):
		sc.Camera = "Dynamic tracking shot with smooth movement, slight dolly forward"
	default:
		sc.Camera = "Cinematic static shot with subtle movement, shallow depth of field"
	}

	switch {
	case strings.Contains(decades, "80s") || strings.Contains(lowerStyle, "retro"):
		sc.Lighting = "Retro neon color palette with warm tones and soft ambient illumination"
	case strings.Contains(lowerMood, "warm") || strings.Contains(lowerMood, "cozy"):
		sc.Lighting = "Warm color temperature with soft illumination and gentle ambient transitions"
	default:
		sc.Lighting = "Professional video lighting with balanced shadows and highlights for visual clarity"
	}

	sc.Elements = fmt.Sprintf("%s singer, %s, %s atmosphere", song.SingerGender, instruments, mood)

	switch {
	case strings.Contains(lowerStyle, "lo-fi") || strings.Contains(strings.ToLower(instruments), "vinyl"):
		sc.Animation = "Gentle analog texture overlay, subtle film grain, peaceful ambient motion"
	case strings.Contains(lowerStyle, "rock") || strings.Contains(lowerMood, "energetic"):
		sc.Animation = "Dynamic lighting shifts, occasional camera motion, energetic feel"
	default:
		sc.Animation = "Subtle atmospheric movement, soft transitions, cinematic effects"
	}

	sc.Scene = fmt.Sprintf("A professional music visualizer scene representing the %s aesthetic. Animate the album cover design elements with subtle motion and visual effects suitable for music visualization.", text)
	if len(similar) > 0 {
		sc.Scene += fmt.Sprintf(" The scene should feature musicians or a band performing, with a visual style inspired by: %s.", strings.Join(similar, ", "))
	}
	sc.Scene += fmt.Sprintf(" The %s singer should move slightly to the rhythm of the music, with subtle, natural gestures.", song.SingerGender)
	return sc
}

// VideoLoopPrompt builds the video prompt from the album cover prompt.
func (s *Studio) VideoLoopPrompt(ctx context.Context, song settings.SongDetails, style catalog.Style, ideas string) (string, error) {
	cover := strings.TrimSpace(song.AlbumCover)
	if cover == "" || Failed(cover) {
		return "", fmt.Errorf("%w: generate an album cover prompt first", ErrInput)
	}
	if style == nil {
		return "", fmt.Errorf("%w: select a music style", ErrInput)
	}
	sc := NewScene(song, style, FilteredArtists(style, song.Artist))

	t, err := s.template(prompt.VideoLoop)
	if err != nil {
		return "", err
	}
	p := s.fill(prompt.VideoLoop, t, map[string]string{
		"ALBUM_COVER_DESCRIPTION": cover,
		"STYLE_DESCRIPTION":       sc.Style,
		"MOOD_DESCRIPTION":        sc.Mood,
		"VIDEO_SCENE_DESCRIPTION": sc.Scene,
		"MOOD_KEYWORDS":           sc.Keywords,
		"VISUAL_ELEMENTS":         sc.Elements,
		"CAMERA_STYLE":            sc.Camera,
		"LIGHTING_DESCRIPTION":    sc.Lighting,
		"ANIMATION_DESCRIPTION":   sc.Animation,
	})
	return s.ask(ctx, prompt.VideoLoop, withIdeas(p, ideas), videoLoopSystem)
}

// Kind selects the prompt that Improve rewrites.
type Kind string

const (
	AlbumCover Kind = "album_cover"
	VideoLoop  Kind = "video_loop"
)

// Improve rewrites a generated prompt with the requested changes.
func (s *Studio) Improve(ctx context.Context, kind Kind, current, changes string) (string, error) {
	current = strings.TrimSpace(current)
	changes = strings.TrimSpace(changes)
	if current == "" || Failed(current) {
		return "", fmt.Errorf("%w: generate a %s prompt first", ErrInput, strings.ReplaceAll(string(kind), "_", " "))
	}
	if err := required("describe the requested changes", changes); err != nil {
		return "", err
	}
	var label, extra, system string
	switch kind {
	case AlbumCover:
		label = "album cover"
		system = "You are an expert at improving image generation prompts. Analyze the current prompt and requested changes, then generate an improved version that incorporates the changes while maintaining quality and coherence. Output ONLY the improved prompt text."
	case VideoLoop:
		label = "video loop"
		extra = " Ensure the prompt remains suitable for music visualization and complies with content safety guidelines."
		system = "You are an expert at improving video generation prompts for music visualizers. Analyze the current prompt and requested changes, then generate an improved version that incorporates the changes while maintaining quality, coherence, and compliance with content safety guidelines. Output ONLY the improved prompt text."
	default:
		return "", fmt.Errorf("studio: unknown prompt kind %q", kind)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Improve the following %s prompt based on these requested changes:\n\n", label)
	fmt.Fprintf(&b, "REQUESTED CHANGES: %s\n\n", changes)
	fmt.Fprintf(&b, "CURRENT PROMPT:\n%s\n\n", current)
	b.WriteString("Generate an improved version of the prompt that incorporates the requested changes while maintaining the core concept and style.")
	b.WriteString(extra)
	b.WriteString(" Output ONLY the improved prompt text, nothing else.")
	out, err := s.ask(ctx, "improve "+string(kind), b.String(), system)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// InjectExtra appends extra commands to a prompt before it is run. A nil
// extra means the user cancelled and ok is false. An empty extra keeps the
// prompt as is.
func InjectExtra(p string, extra *string) (string, bool) {
	if extra == nil {
		return "", false
	}
	if *extra == "" {
		return p, true
	}
	return p + " " + *extra, true
}
