package media

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/browser"

	"github.com/alorbach/sunostyle"
	"github.com/alorbach/sunostyle/pkg/azure"
	"github.com/alorbach/sunostyle/pkg/settings"
	"github.com/alorbach/sunostyle/pkg/studio"
)

type Config struct {
	sunostyle.Config

	Prompt  string
	Extra   string
	Output  string
	Quality string
	Size    string
	Seconds string
	Open    bool

	// AskExtra reads the extra commands from Input, end of input cancels.
	AskExtra bool
	Input    io.Reader
}

// ErrCancelled is returned when the extra commands prompt is closed.
var ErrCancelled = errors.New("media: cancelled")

// Swapped in tests.
var (
	openURL  = browser.OpenURL
	openFile = browser.OpenFile
)

// RunImage renders the album cover prompt into an image file.
func RunImage(ctx context.Context, cfg *Config) error {
	log.Println("image: started")
	defer log.Println("image: ended")

	app, err := sunostyle.Open(ctx, &cfg.Config)
	if err != nil {
		return err
	}
	doc := app.Doc()
	song := app.Song()

	p, err := promptFor(cfg, song.AlbumCover, "album cover")
	if err != nil {
		return err
	}
	format := doc.ImageFormat()
	size := cfg.Size
	if size == "" {
		size = doc.ImageSize()
	}

	start := time.Now()
	img, err := app.Client.Image(ctx, app.Profile(settings.Image), p, azure.ImageOptions{
		Size:    size,
		Quality: cfg.Quality,
		Format:  format,
	})
	if err != nil {
		app.Record(ctx, settings.Image, p, "", nil, err, start)
		return fmt.Errorf("image: %w", err)
	}

	path := cfg.Output
	if path == "" {
		path = studio.ImagePath(app.CoversRoot(), doc.AlbumCoverDir(app.Root()), song, format)
	}
	if err := write(path, img.Data); err != nil {
		app.Record(ctx, settings.Image, p, "", img.Trace, err, start)
		return fmt.Errorf("image: %w", err)
	}
	app.Record(ctx, settings.Image, p, path, img.Trace, nil, start)
	app.Mirror(ctx, path)
	log.Printf("image: saved %s (%s, %s)\n", path, img.MIME, img.APIVersion)

	song.AlbumCoverImagePath = path
	song.AlbumCoverImageDir = filepath.Dir(path)
	if err := app.SetSong(song); err != nil {
		return err
	}
	if err := app.Snapshot(ctx, song, studio.SongJSONPath(app.CoversRoot(), song.AICoverName)); err != nil {
		log.Printf("image: %v\n", err)
	}
	if cfg.Open {
		if err := openFile(path); err != nil {
			log.Printf("image: couldn't open %s: %v\n", path, err)
		}
	}
	return nil
}

// RunVideo renders the video loop prompt. Clips returned by URL are printed
// and optionally opened in the browser.
func RunVideo(ctx context.Context, cfg *Config) error {
	log.Println("video: started")
	defer log.Println("video: ended")

	app, err := sunostyle.Open(ctx, &cfg.Config)
	if err != nil {
		return err
	}
	song := app.Song()

	p, err := promptFor(cfg, song.VideoLoop, "video loop")
	if err != nil {
		return err
	}

	start := time.Now()
	v, err := app.Client.Video(ctx, app.Profile(settings.Video), p, azure.VideoOptions{
		Size:    cfg.Size,
		Seconds: cfg.Seconds,
	})
	if err != nil {
		app.Record(ctx, settings.Video, p, "", nil, err, start)
		return fmt.Errorf("video: %w", err)
	}

	if len(v.Data) == 0 {
		app.Record(ctx, settings.Video, p, v.URL, v.Trace, nil, start)
		fmt.Println(v.URL)
		if cfg.Open {
			if err := openURL(v.URL); err != nil {
				log.Printf("video: couldn't open %s: %v\n", v.URL, err)
			}
		}
		return nil
	}

	path := cfg.Output
	if path == "" {
		path = studio.VideoPath(app.CoversRoot(), song)
		if ext := azure.Extension(v.Data, ".mp4"); ext != ".mp4" {
			path = strings.TrimSuffix(path, ".mp4") + ext
		}
	}
	if err := write(path, v.Data); err != nil {
		app.Record(ctx, settings.Video, p, "", v.Trace, err, start)
		return fmt.Errorf("video: %w", err)
	}
	app.Record(ctx, settings.Video, p, path, v.Trace, nil, start)
	app.Mirror(ctx, path)
	if err := app.Attach(ctx, song.AICoverName, path); err != nil {
		log.Printf("video: %v\n", err)
	}
	log.Printf("video: saved %s (%s)\n", path, v.MIME)
	if cfg.Open {
		if err := openFile(path); err != nil {
			log.Printf("video: couldn't open %s: %v\n", path, err)
		}
	}
	return nil
}

// promptFor returns the explicit prompt or the stored one with the extra
// commands appended.
func promptFor(cfg *Config, stored, what string) (string, error) {
	p := strings.TrimSpace(cfg.Prompt)
	if p == "" {
		p = strings.TrimSpace(stored)
	}
	if p == "" || studio.Failed(p) {
		return "", fmt.Errorf("%w: generate the %s prompt first", studio.ErrInput, what)
	}
	extra := strings.TrimSpace(cfg.Extra)
	ptr := &extra
	if cfg.AskExtra {
		ptr = askExtra(cfg.Input, what)
	}
	p, ok := studio.InjectExtra(p, ptr)
	if !ok {
		return "", ErrCancelled
	}
	return p, nil
}

// askExtra reads one line of extra commands. An empty line keeps the prompt
// as is, end of input before any answer returns nil.
func askExtra(in io.Reader, what string) *string {
	if in == nil {
		in = os.Stdin
	}
	fmt.Fprintf(os.Stderr, "Extra commands for the %s prompt (enter keeps it, ctrl-d cancels): ", what)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return nil
	}
	extra := strings.TrimSpace(line)
	return &extra
}

// write saves data to path, backing up the previous file.
func write(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("couldn't create directory for %s: %w", path, err)
	}
	backup, err := studio.BackupIfExists(path, time.Now())
	if err != nil {
		return err
	}
	if backup != "" {
		log.Printf("media: previous file kept as %s\n", backup)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("couldn't write %s: %w", path, err)
	}
	return nil
}
