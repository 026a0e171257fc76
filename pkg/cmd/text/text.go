package text

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/alorbach/sunostyle"
	"github.com/alorbach/sunostyle/pkg/catalog"
	"github.com/alorbach/sunostyle/pkg/settings"
	"github.com/alorbach/sunostyle/pkg/studio"
)

type Config struct {
	sunostyle.Config

	// MergeOriginal merges the selected style into the styles before
	// transforming them.
	MergeOriginal bool
	Ideas         string
	Changes       string
	Kind          string
	DryRun        bool
	Output        io.Writer
}

type flow struct {
	cfg   *Config
	app   *sunostyle.App
	song  settings.SongDetails
	style catalog.Style
	out   io.Writer
}

func open(ctx context.Context, cfg *Config) (*flow, error) {
	app, err := sunostyle.Open(ctx, &cfg.Config)
	if err != nil {
		return nil, err
	}
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	f := &flow{cfg: cfg, app: app, song: app.Song(), out: out}
	f.style, _ = app.SelectedStyle()
	return f, nil
}

func (f *flow) original() string {
	if f.style == nil {
		return ""
	}
	return f.style.Name()
}

// store prints the result and saves it into the song details unless this is
// a dry run.
func (f *flow) store(result string, apply func(*settings.SongDetails, string)) error {
	fmt.Fprintln(f.out, result)
	if f.cfg.DryRun {
		return nil
	}
	apply(&f.song, result)
	return f.app.SetSong(f.song)
}

// fail keeps the error text in the song field, the way failed merges are
// shown to the user, and returns the error.
func (f *flow) fail(err error, apply func(*settings.SongDetails, string)) error {
	if errors.Is(err, studio.ErrInput) || errors.Is(err, studio.ErrTemplate) || f.cfg.DryRun {
		return err
	}
	apply(&f.song, "Error: "+err.Error())
	if perr := f.app.SetSong(f.song); perr != nil {
		log.Printf("text: %v\n", perr)
	}
	return err
}

func setMerged(s *settings.SongDetails, v string)     { s.MergedStyle = v }
func setCoverName(s *settings.SongDetails, v string)  { s.AICoverName = v }
func setAlbumCover(s *settings.SongDetails, v string) { s.AlbumCover = v }
func setVideoLoop(s *settings.SongDetails, v string)  { s.VideoLoop = v }

// RunMerge merges the song styles with the selected catalog style.
func RunMerge(ctx context.Context, cfg *Config) error {
	f, err := open(ctx, cfg)
	if err != nil {
		return err
	}
	out, err := f.app.Studio().MergeStyles(ctx, f.song.Styles, f.original())
	if err != nil {
		return f.fail(err, setMerged)
	}
	return f.store(out, setMerged)
}

// RunTransform rewrites the song styles.
func RunTransform(ctx context.Context, cfg *Config) error {
	f, err := open(ctx, cfg)
	if err != nil {
		return err
	}
	out, err := f.app.Studio().TransformStyle(ctx, f.song, f.original(), cfg.MergeOriginal)
	if err != nil {
		return f.fail(err, setMerged)
	}
	return f.store(out, setMerged)
}

// RunCoverName generates the AI cover name.
func RunCoverName(ctx context.Context, cfg *Config) error {
	f, err := open(ctx, cfg)
	if err != nil {
		return err
	}
	out, err := f.app.Studio().CoverName(ctx, f.song)
	if err != nil {
		return err
	}
	return f.store(out, setCoverName)
}

// RunAlbumCover generates the album cover image prompt.
func RunAlbumCover(ctx context.Context, cfg *Config) error {
	f, err := open(ctx, cfg)
	if err != nil {
		return err
	}
	out, err := f.app.Studio().AlbumCoverPrompt(ctx, f.song, f.style, cfg.Ideas)
	if err != nil {
		return err
	}
	return f.store(strings.TrimSpace(out), setAlbumCover)
}

// RunVideoLoop generates the video loop prompt.
func RunVideoLoop(ctx context.Context, cfg *Config) error {
	f, err := open(ctx, cfg)
	if err != nil {
		return err
	}
	out, err := f.app.Studio().VideoLoopPrompt(ctx, f.song, f.style, cfg.Ideas)
	if err != nil {
		return err
	}
	return f.store(strings.TrimSpace(out), setVideoLoop)
}

// RunImprove rewrites the album cover or video loop prompt.
func RunImprove(ctx context.Context, cfg *Config) error {
	f, err := open(ctx, cfg)
	if err != nil {
		return err
	}
	var current string
	var apply func(*settings.SongDetails, string)
	kind := studio.Kind(cfg.Kind)
	switch kind {
	case studio.AlbumCover:
		current, apply = f.song.AlbumCover, setAlbumCover
	case studio.VideoLoop:
		current, apply = f.song.VideoLoop, setVideoLoop
	default:
		return fmt.Errorf("text: unknown prompt kind %q (album_cover or video_loop)", cfg.Kind)
	}
	out, err := f.app.Studio().Improve(ctx, kind, current, cfg.Changes)
	if err != nil {
		return err
	}
	return f.store(out, apply)
}
