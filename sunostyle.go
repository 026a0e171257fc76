package sunostyle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/alorbach/sunostyle/pkg/azure"
	"github.com/alorbach/sunostyle/pkg/catalog"
	"github.com/alorbach/sunostyle/pkg/filestore"
	"github.com/alorbach/sunostyle/pkg/prompt"
	"github.com/alorbach/sunostyle/pkg/settings"
	"github.com/alorbach/sunostyle/pkg/storage"
	"github.com/alorbach/sunostyle/pkg/studio"
)

// Config holds the flags shared by every command.
type Config struct {
	Debug    bool
	Settings string
	Prompts  string

	DBType string
	DBConn string

	FSType string
	FSConn string

	PollInterval time.Duration
	PollTimeout  time.Duration
}

// App wires the settings document, the generation client and the optional
// history and artifact stores.
type App struct {
	Settings *settings.Service
	Client   *azure.Client
	Prompts  *prompt.Loader
	Store    *storage.Store
	Files    *filestore.Store

	root  string
	debug bool
}

// Open loads the settings and starts the configured stores.
func Open(ctx context.Context, cfg *Config) (*App, error) {
	svc := settings.NewService(cfg.Settings)
	doc := svc.Load()

	a := &App{
		Settings: svc,
		Client: azure.New(&azure.Config{
			Debug:        cfg.Debug,
			PollInterval: cfg.PollInterval,
			PollTimeout:  cfg.PollTimeout,
		}),
		Prompts: prompt.NewLoader(cfg.Prompts),
		root:    doc.Root(settings.DefaultRoot()),
		debug:   cfg.Debug,
	}

	if cfg.DBType != "" {
		store, err := storage.New(cfg.DBType, cfg.DBConn, cfg.Debug)
		if err != nil {
			return nil, fmt.Errorf("sunostyle: couldn't create orm store: %w", err)
		}
		if err := store.Start(ctx); err != nil {
			return nil, fmt.Errorf("sunostyle: couldn't start orm store: %w", err)
		}
		if err := store.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("sunostyle: couldn't migrate orm store: %w", err)
		}
		a.Store = store
	}

	if cfg.FSType != "" {
		files, err := filestore.New(cfg.FSType, cfg.FSConn, cfg.Debug)
		if err != nil {
			return nil, fmt.Errorf("sunostyle: couldn't create file store: %w", err)
		}
		a.Files = files
	}
	return a, nil
}

func (a *App) log(format string, args ...interface{}) {
	if a.debug {
		format += "\n"
		log.Printf(format, args...)
	}
}

// Doc returns the settings document.
func (a *App) Doc() *settings.Document {
	return a.Settings.Get()
}

// Root is the project directory holding AI/suno and AI-COVERS.
func (a *App) Root() string {
	return a.root
}

// CoversRoot is the AI-COVERS directory.
func (a *App) CoversRoot() string {
	return a.Doc().CoversRoot(a.root)
}

// Catalog loads the given catalog file, or the configured one when path is
// empty.
func (a *App) Catalog(path string) *catalog.Catalog {
	if path == "" {
		path = a.Doc().CatalogPath(a.root)
	}
	a.log("sunostyle: loading catalog %s", path)
	return catalog.Load(path)
}

// SelectedStyle returns the catalog row of the last selected style.
func (a *App) SelectedStyle() (catalog.Style, bool) {
	name := a.Doc().LastSelectedStyle
	if name == "" {
		return nil, false
	}
	return a.Catalog("").Find(name)
}

// Song returns the current song details.
func (a *App) Song() settings.SongDetails {
	return a.Doc().SongDetails
}

// SetSong validates and persists the song details.
func (a *App) SetSong(song settings.SongDetails) error {
	if err := song.Validate(); err != nil {
		return err
	}
	if !a.Settings.Update(func(d *settings.Document) { d.SongDetails = song }) {
		return errors.New("sunostyle: couldn't persist song details")
	}
	return nil
}

// Profile returns the named profile or an empty one.
func (a *App) Profile(name string) settings.Profile {
	p, _ := a.Settings.Profile(name)
	return p
}

// Studio returns the text flows bound to the text profile. Every call is
// recorded in the history store when one is configured.
func (a *App) Studio() *studio.Studio {
	doc := a.Doc()
	return studio.New(&studio.Config{
		Client:  &recorder{app: a},
		Prompts: a.Prompts,
		Profile: a.Profile(settings.Text),
		General: doc.General,
		Debug:   a.debug,
	})
}

type recorder struct {
	app *App
}

func (r *recorder) Text(ctx context.Context, p settings.Profile, text, system string) (string, error) {
	start := time.Now()
	out, err := r.app.Client.Text(ctx, p, text, system)
	r.app.Record(ctx, settings.Text, text, out, nil, err, start)
	return out, err
}

// Record stores a generation in the history. Failures to record are logged
// and never returned.
func (a *App) Record(ctx context.Context, capability, text, output string, trace *azure.Trace, cause error, start time.Time) {
	if a.Store == nil {
		return
	}
	g := &storage.Generation{
		ID:         ulid.Make().String(),
		Capability: capability,
		Profile:    capability,
		Song:       strings.TrimSpace(a.Song().AICoverName),
		Prompt:     text,
		State:      storage.Succeeded,
		Output:     output,
		Duration:   float32(time.Since(start).Seconds()),
	}
	if trace == nil {
		var aerr *azure.Error
		if errors.As(cause, &aerr) {
			trace = aerr.Trace
		}
	}
	if trace != nil {
		g.Trace = trace.String()
	}
	if cause != nil {
		g.State = storage.Failed
		g.Error = cause.Error()
	}
	if err := a.Store.SetGeneration(ctx, g); err != nil {
		log.Printf("sunostyle: couldn't record %s generation: %v\n", capability, err)
	}
}

// Mirror copies a written artifact to the file store when one is configured.
func (a *App) Mirror(ctx context.Context, path string) {
	if a.Files == nil {
		return
	}
	key := filestore.Key(a.CoversRoot(), path)
	if err := a.Files.Set(ctx, path, key); err != nil {
		log.Printf("sunostyle: couldn't mirror %s: %v\n", path, err)
		return
	}
	a.log("sunostyle: mirrored %s as %s", path, key)
}

// Snapshot stores the song details in the history store under their AI cover
// name.
func (a *App) Snapshot(ctx context.Context, song settings.SongDetails, path string) error {
	if a.Store == nil {
		return nil
	}
	name := strings.TrimSpace(song.AICoverName)
	if name == "" {
		return nil
	}
	cover := studio.ParseCoverName(name)
	v, err := a.Store.GetSongByName(ctx, name)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		v = &storage.Song{ID: ulid.Make().String(), Name: name}
	case err != nil:
		return fmt.Errorf("sunostyle: couldn't get song %q: %w", name, err)
	}
	v.SongName = song.SongName
	v.Artist = song.Artist
	v.Decade = cover.Decade
	v.Style = cover.FullStyle
	v.Path = path
	if song.AlbumCoverImagePath != "" {
		v.Image = song.AlbumCoverImagePath
	}
	js, err := songJSON(song)
	if err != nil {
		return err
	}
	v.Details = js
	if err := a.Store.SetSong(ctx, v); err != nil {
		return fmt.Errorf("sunostyle: couldn't store song %q: %w", name, err)
	}
	return nil
}

// Attach records the video written for a stored song.
func (a *App) Attach(ctx context.Context, name, video string) error {
	if a.Store == nil || strings.TrimSpace(name) == "" {
		return nil
	}
	v, err := a.Store.GetSongByName(ctx, strings.TrimSpace(name))
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("sunostyle: couldn't get song %q: %w", name, err)
	}
	v.Video = video
	if err := a.Store.SetSong(ctx, v); err != nil {
		return fmt.Errorf("sunostyle: couldn't store song %q: %w", name, err)
	}
	return nil
}

// Forget removes a stored song from the history store.
func (a *App) Forget(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if a.Store == nil || name == "" {
		return nil
	}
	v, err := a.Store.GetSongByName(ctx, name)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("sunostyle: couldn't get song %q: %w", name, err)
	}
	if err := a.Store.DeleteSong(ctx, v.ID); err != nil {
		return fmt.Errorf("sunostyle: couldn't delete song %q: %w", name, err)
	}
	return nil
}

func songJSON(song settings.SongDetails) (string, error) {
	b, err := json.Marshal(song)
	if err != nil {
		return "", fmt.Errorf("sunostyle: couldn't marshal song: %w", err)
	}
	return string(b), nil
}
