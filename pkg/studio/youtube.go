package studio

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/alorbach/sunostyle/pkg/prompt"
	"github.com/alorbach/sunostyle/pkg/settings"
)

const maxHashtags = 500

const divider = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n"

func (s *Studio) channel() string {
	if s.general.ChannelName != "" {
		return s.general.ChannelName
	}
	return "Delta AI Covers"
}

// Hashtags asks for YouTube hashtags. It never fails: a missing template or
// a failed call yields the fallback hashtags.
func (s *Studio) Hashtags(ctx context.Context, song, artist, styleDescription, styleInfo string) string {
	styleName := styleDescription
	if styleName == "" {
		styleName = styleInfo
	}
	t := s.prompts.Load(prompt.YoutubeHashtags)
	if t == "" {
		log.Println("studio: youtube_hashtags template missing, using fallback hashtags")
		return s.FallbackHashtags(song, artist, styleName)
	}
	p := s.fill(prompt.YoutubeHashtags, t, map[string]string{
		"SONG_NAME":  song,
		"ARTIST":     artist,
		"STYLE_NAME": styleName,
	})
	out, err := s.ask(ctx, prompt.YoutubeHashtags, p, "")
	if err != nil {
		log.Printf("studio: hashtag generation failed, using fallback: %v\n", err)
		return s.FallbackHashtags(song, artist, styleName)
	}
	out = strings.ReplaceAll(out, "Hashtags:", "")
	out = strings.ReplaceAll(out, "hashtags:", "")
	out = strings.TrimSpace(out)
	if r := []rune(out); len(r) > maxHashtags {
		out = string(r[:maxHashtags-3]) + "..."
	}
	return out
}

// FallbackHashtags builds hashtags from the song, the artist and the first
// three words of the style.
func (s *Studio) FallbackHashtags(song, artist, styleName string) string {
	tags := []string{
		strings.ReplaceAll(song, " ", ""),
		strings.ReplaceAll(artist, " ", ""),
	}
	words := strings.Fields(styleName)
	if len(words) > 3 {
		words = words[:3]
	}
	tags = append(tags, words...)
	tags = append(tags, "AICover", "AIMusic", "MusicCover", strings.ReplaceAll(s.channel(), " ", ""))
	for i := range tags {
		tags[i] = "#" + tags[i]
	}
	out := []rune(strings.Join(tags, ", "))
	if len(out) > maxHashtags {
		out = out[:maxHashtags]
	}
	return string(out)
}

// Title is the YouTube title of a song.
func (s *Studio) Title(song, artist, styleName string) string {
	appendix := s.general.TitleAppendix
	if appendix == "" {
		appendix = "Cover"
	}
	return fmt.Sprintf("%s - %s - %s - %s", song, artist, styleName, appendix)
}

// YouTubeDescription renders the description text. It starts with a
// "TITLE: ..." line followed by an empty line.
func (s *Studio) YouTubeDescription(ctx context.Context, song, artist, styleDescription, styleInfo string) string {
	styleName := styleDescription
	if styleName == "" {
		styleName = styleInfo
	}
	if i := strings.Index(styleName, ","); i >= 0 {
		styleName = strings.TrimSpace(styleName[:i])
	}
	lower := strings.ToLower(styleName)
	channel := s.channel()

	var b strings.Builder
	fmt.Fprintf(&b, "TITLE: %s\n\n", s.Title(song, artist, styleName))

	fmt.Fprintf(&b, "🎵 AI Cover Song | %s Version\n", styleName)
	fmt.Fprintf(&b, "Listen to \"%s\" by %s transformed into a %s style through AI music generation.\n\n", song, artist, lower)

	fmt.Fprintf(&b, "Experience %s's hit song \"%s\" completely reimagined with %s elements. ", artist, song, lower)
	fmt.Fprintf(&b, "This AI-generated cover brings new life to the original with authentic %s instrumentation, ", lower)
	b.WriteString("atmospheric production, and a fresh musical perspective.\n\n")

	b.WriteString("🔄 What's Different in This Cover:\n")
	if styleDescription != "" && !Failed(styleDescription) {
		keywords := strings.Split(styleDescription, ",")
		if len(keywords) > 6 {
			keywords = keywords[:6]
		}
		for _, k := range keywords {
			fmt.Fprintf(&b, "✓ %s\n", strings.TrimSpace(k))
		}
	} else {
		fmt.Fprintf(&b, "✓ %s instrumentation and arrangement\n", styleName)
		b.WriteString("✓ Atmospheric production with authentic period sound\n")
		b.WriteString("✓ Reimagined harmonies and musical textures\n")
		b.WriteString("✓ Professional AI music generation\n")
	}
	b.WriteString("\n")

	b.WriteString("🎧 SUBSCRIBE for weekly AI covers and remixes!\n")
	b.WriteString("🔔 Turn on notifications to never miss a new cover!\n")
	b.WriteString("👍 Like this video if you enjoy AI music transformations!\n")
	b.WriteString("💬 Comment your song requests for future covers!\n\n")

	b.WriteString(divider)
	b.WriteString("📋 CREDITS & INFORMATION\n")
	b.WriteString(divider + "\n")
	fmt.Fprintf(&b, "Original Song: \"%s\" by %s\n", song, artist)
	fmt.Fprintf(&b, "AI Cover Style: %s\n", styleName)
	b.WriteString("Video Type: AI-Generated Music Cover\n")
	fmt.Fprintf(&b, "Channel: %s\n\n", channel)

	b.WriteString(divider)
	fmt.Fprintf(&b, "📺 ABOUT %s\n", strings.ToUpper(channel))
	b.WriteString(divider + "\n")
	fmt.Fprintf(&b, "%s transforms your favorite songs into completely new genres and styles using advanced AI music generation. ", channel)
	b.WriteString("From classic hits to modern pop, we create unique covers in styles like jazz, lo-fi, swing, and more. ")
	b.WriteString("Subscribe to discover how AI can reinvent music!\n\n")

	b.WriteString("🔗 LINKS\n")
	if links := strings.TrimSpace(s.general.MakerLinks); links != "" {
		b.WriteString(links + "\n")
	} else {
		b.WriteString("• Subscribe: [Your Channel Link]\n")
	}
	b.WriteString("\n")

	b.WriteString(divider)
	b.WriteString("⚠️ DISCLAIMER\n")
	b.WriteString(divider + "\n")
	b.WriteString("This is an AI-generated cover version of the original song. ")
	b.WriteString("All rights to the original composition belong to their respective owners. ")
	b.WriteString("This video is created for entertainment and artistic purposes only. ")
	b.WriteString("We do not claim ownership of the original song and fully support the original artists.\n\n")
	b.WriteString("Fair Use Disclaimer: This cover qualifies as fair use under copyright law as it is transformative, ")
	b.WriteString("uses minimal copyrighted material, has no commercial purpose, and promotes the original work.\n")

	b.WriteString(divider)
	b.WriteString("🎹 KEYWORDS FOR SEARCH\n")
	b.WriteString(divider + "\n")
	fmt.Fprintf(&b, "%s ai cover, %s ai cover, %s cover, ", song, artist, lower)
	fmt.Fprintf(&b, "ai music %s, %s remix, ai generated music, ", song, song)
	fmt.Fprintf(&b, "%s music, cover song ai, ai music generation\n\n", lower)

	b.WriteString(divider)
	b.WriteString("🏷️ HASHTAGS:\n")
	b.WriteString(divider + "\n")
	b.WriteString(s.Hashtags(ctx, song, artist, styleDescription, styleInfo))
	b.WriteString("\n\n")
	return b.String()
}

// Export is a rendered description document.
type Export struct {
	Title    string
	Basename string
	Content  string
}

// ExportDocument renders the YouTube title, the song details and the
// description into one text document. styleInfo is the name of the
// selected catalog style.
func (s *Studio) ExportDocument(ctx context.Context, song settings.SongDetails, styleInfo string) (*Export, error) {
	name := strings.TrimSpace(song.SongName)
	artist := strings.TrimSpace(song.Artist)
	if err := required("enter song name and artist", name, artist); err != nil {
		return nil, err
	}
	styles := strings.TrimSpace(song.Styles)
	merged := strings.TrimSpace(song.MergedStyle)
	description := styles
	if merged != "" && !Failed(merged) {
		description = merged
	}

	desc := s.YouTubeDescription(ctx, name, artist, description, styleInfo)
	var title string
	if strings.HasPrefix(desc, "TITLE:") {
		lines := strings.Split(desc, "\n")
		title = strings.TrimSpace(strings.TrimPrefix(lines[0], "TITLE:"))
		if len(lines) > 2 {
			desc = strings.Join(lines[2:], "\n")
		} else {
			desc = ""
		}
	}

	rule := strings.Repeat("=", 70) + "\n"
	var b strings.Builder
	b.WriteString(rule + "YOUTUBE TITLE\n" + rule + "\n")
	b.WriteString(title + "\n\n")
	b.WriteString(rule + "SONG DETAILS\n" + rule + "\n")
	fmt.Fprintf(&b, "AI Cover Name: %s\n", strings.TrimSpace(song.AICoverName))
	fmt.Fprintf(&b, "Song Name: %s\n", name)
	fmt.Fprintf(&b, "Artist: %s\n", artist)
	fmt.Fprintf(&b, "Style Info: %s\n", styleInfo)
	fmt.Fprintf(&b, "Styles Input: %s\n", styles)
	fmt.Fprintf(&b, "Merged Style: %s\n", merged)
	fmt.Fprintf(&b, "Lyrics: %s\n", strings.TrimSpace(song.Lyrics))
	fmt.Fprintf(&b, "Album Cover Prompt: %s\n", strings.TrimSpace(song.AlbumCover))
	fmt.Fprintf(&b, "Video Loop Prompt: %s\n", strings.TrimSpace(song.VideoLoop))
	b.WriteString("\n" + rule + "YOUTUBE DESCRIPTION\n" + rule + "\n")
	b.WriteString(desc)

	base := SafeBasename(strings.TrimSpace(song.AICoverName))
	if base == "" {
		base = strings.NewReplacer(" ", "_", ":", "_", "/", "_").Replace(title)
	}
	return &Export{Title: title, Basename: base, Content: b.String()}, nil
}
