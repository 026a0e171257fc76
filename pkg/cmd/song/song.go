package song

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/alorbach/sunostyle"
	"github.com/alorbach/sunostyle/pkg/settings"
	"github.com/alorbach/sunostyle/pkg/studio"
)

type Config struct {
	sunostyle.Config

	Source string
	Target string
	Pick   int
	Output io.Writer
}

// Run executes a song details action.
//
//	show                 print the current song details
//	set <key> <value>    update one field, @path reads the value from a file
//	clear                reset the song details
//	save                 write the details under AI-COVERS
//	load <path>          load details from a song JSON file
//	scan                 list the songs under AI-COVERS
//	rename <path> <name> move a song to a new AI cover name
//	delete <path>        remove a song directory
//	derive <path>        copy the style of a saved song
//	analysis [file] [terms...]
//	                     search analyzer exports, -pick loads a style
func Run(ctx context.Context, cfg *Config, action string, args []string) error {
	app, err := sunostyle.Open(ctx, &cfg.Config)
	if err != nil {
		return err
	}
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	song := app.Song()
	root := app.CoversRoot()

	switch action {
	case "", "show":
		b, err := json.MarshalIndent(song, "", "    ")
		if err != nil {
			return fmt.Errorf("song: couldn't marshal song details: %w", err)
		}
		fmt.Fprintln(out, string(b))
		return nil
	case "set":
		if len(args) != 2 {
			return fmt.Errorf("song: set needs a key and a value")
		}
		value, err := readValue(args[1])
		if err != nil {
			return err
		}
		if err := Set(&song, args[0], value); err != nil {
			return err
		}
		return app.SetSong(song)
	case "clear":
		def := settings.Default().SongDetails
		return app.SetSong(def)
	case "save":
		path, err := studio.SaveSong(root, song)
		if err != nil {
			return fmt.Errorf("song: %w", err)
		}
		app.Mirror(ctx, path)
		if err := app.Snapshot(ctx, song, path); err != nil {
			log.Printf("song: %v\n", err)
		}
		log.Printf("song: saved %s\n", path)
		return nil
	case "load":
		if len(args) != 1 {
			return fmt.Errorf("song: load needs a path")
		}
		loaded, err := studio.LoadSong(args[0])
		if err != nil {
			return fmt.Errorf("song: %w", err)
		}
		if err := app.SetSong(loaded); err != nil {
			return err
		}
		log.Printf("song: loaded %s\n", args[0])
		return nil
	case "scan":
		entries, err := studio.ScanCovers(root)
		if err != nil {
			return fmt.Errorf("song: %w", err)
		}
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "DECADE\tSONG\tARTIST\tNAME\tPATH")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", e.Decade, e.SongName, e.Artist, e.AICoverName, e.JSONPath)
		}
		return w.Flush()
	case "rename":
		if len(args) != 2 {
			return fmt.Errorf("song: rename needs a path and a new name")
		}
		prev, err := studio.LoadSong(args[0])
		if err != nil {
			log.Printf("song: %v\n", err)
		}
		path, err := studio.RenameSong(root, args[0], args[1])
		if err != nil {
			return fmt.Errorf("song: %w", err)
		}
		log.Printf("song: renamed to %s\n", path)
		// Follow the rename when it's the current song
		if name := strings.TrimSpace(song.AICoverName); name != "" && name == strings.TrimSpace(prev.AICoverName) {
			song.AICoverName = args[1]
			return app.SetSong(song)
		}
		return nil
	case "delete":
		if len(args) != 1 {
			return fmt.Errorf("song: delete needs a path")
		}
		deleted, err := studio.LoadSong(args[0])
		if err != nil {
			log.Printf("song: %v\n", err)
		}
		dir, err := studio.DeleteSong(root, args[0])
		if err != nil {
			return fmt.Errorf("song: %w", err)
		}
		log.Printf("song: deleted %s\n", dir)
		name := strings.TrimSpace(deleted.AICoverName)
		if err := app.Forget(ctx, name); err != nil {
			log.Printf("song: %v\n", err)
		}
		if name != "" && name == strings.TrimSpace(song.AICoverName) {
			return app.SetSong(settings.Default().SongDetails)
		}
		return nil
	case "derive":
		if len(args) != 1 {
			return fmt.Errorf("song: derive needs a path")
		}
		from, err := studio.LoadSong(args[0])
		if err != nil {
			return fmt.Errorf("song: %w", err)
		}
		if err := studio.DeriveStyle(&song, from, cfg.Source, cfg.Target); err != nil {
			return fmt.Errorf("song: %w", err)
		}
		if err := app.SetSong(song); err != nil {
			return err
		}
		log.Printf("song: loaded style from %s\n", args[0])
		return nil
	case "analysis":
		return analysis(app, cfg, &song, out, args)
	default:
		return fmt.Errorf("song: unknown action %q", action)
	}
}

// analysis lists the analyzer exports when no file is given, the matching
// entries of a file otherwise, and loads the style of the picked entry.
func analysis(app *sunostyle.App, cfg *Config, song *settings.SongDetails, out io.Writer, args []string) error {
	dir := app.Doc().AnalysisDir(app.Root())
	if len(args) == 0 {
		files, err := studio.AnalysisFiles(dir)
		if err != nil {
			return fmt.Errorf("song: %w", err)
		}
		for _, f := range files {
			fmt.Fprintln(out, f)
		}
		return nil
	}
	path := args[0]
	if !filepath.IsAbs(path) {
		if _, err := os.Stat(path); err != nil {
			path = filepath.Join(dir, path)
		}
	}
	entries, err := studio.LoadAnalysis(path)
	if err != nil {
		return fmt.Errorf("song: %w", err)
	}
	if len(entries) == 0 {
		return fmt.Errorf("song: no analysis entries in %s", path)
	}
	source := cfg.Source
	if source == "" {
		source = studio.SourceSunoPrompt
	}
	switch source {
	case studio.SourceSunoPrompt, studio.SourcePromptString, studio.SourceTaxonomy:
	default:
		return fmt.Errorf("song: unknown analysis source %q", source)
	}
	matches := studio.SearchAnalysis(entries, strings.Join(args[1:], " "))

	if cfg.Pick <= 0 {
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "#\tNAME\tSTYLE")
		for i, e := range matches {
			fmt.Fprintf(w, "%d\t%s\t%s\n", i+1, e.Name(), e.Style(source))
		}
		fmt.Fprintf(w, "matches: %d/%d\n", len(matches), len(entries))
		return w.Flush()
	}
	if cfg.Pick > len(matches) {
		return fmt.Errorf("song: pick %d out of %d matches", cfg.Pick, len(matches))
	}
	picked := matches[cfg.Pick-1]
	style := strings.TrimSpace(picked.Style(source))
	if style == "" {
		return fmt.Errorf("song: no style text found for %s", picked.Name())
	}
	if err := studio.SetStyle(song, cfg.Target, style); err != nil {
		return fmt.Errorf("song: %w", err)
	}
	if err := app.SetSong(*song); err != nil {
		return err
	}
	log.Printf("song: loaded analysis style %s\n", picked.Name())
	return nil
}

// Set updates the song field named by its JSON key.
func Set(song *settings.SongDetails, key, value string) error {
	switch key {
	case "ai_cover_name":
		song.AICoverName = value
	case "song_name":
		song.SongName = value
	case "artist":
		song.Artist = value
	case "singer_gender":
		if value != "Female" && value != "Male" {
			return fmt.Errorf("song: singer gender must be Female or Male")
		}
		song.SingerGender = value
	case "lyrics":
		song.Lyrics = value
	case "styles":
		song.Styles = value
	case "merged_style":
		song.MergedStyle = value
	case "album_cover":
		song.AlbumCover = value
	case "video_loop":
		song.VideoLoop = value
	case "album_cover_include_artist":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("song: invalid bool %q: %w", value, err)
		}
		song.AlbumCoverIncludeArtist = b
	default:
		return fmt.Errorf("song: unknown key %q", key)
	}
	return nil
}

func readValue(v string) (string, error) {
	if !strings.HasPrefix(v, "@") {
		return v, nil
	}
	b, err := os.ReadFile(v[1:])
	if err != nil {
		return "", fmt.Errorf("song: couldn't read value file: %w", err)
	}
	return strings.TrimRight(string(b), "\r\n"), nil
}
