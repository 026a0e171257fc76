package export

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/alorbach/sunostyle"
)

type Config struct {
	sunostyle.Config

	Output string
	JSON   bool
}

// Run writes the YouTube description document of the current song.
func Run(ctx context.Context, cfg *Config) error {
	log.Println("export: started")
	defer log.Println("export: ended")

	app, err := sunostyle.Open(ctx, &cfg.Config)
	if err != nil {
		return err
	}
	song := app.Song()
	doc := app.Doc()

	exp, err := app.Studio().ExportDocument(ctx, song, doc.LastSelectedStyle)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}

	path := cfg.Output
	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			wd = "."
		}
		base := exp.Basename
		if base == "" {
			base = "youtube_description"
		}
		path = filepath.Join(doc.SaveDir(wd), base+".txt")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("export: couldn't create directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(exp.Content), 0644); err != nil {
		return fmt.Errorf("export: couldn't write %s: %w", path, err)
	}
	app.Mirror(ctx, path)
	log.Printf("export: saved %s\n", path)

	if cfg.JSON {
		js := strings.TrimSuffix(path, filepath.Ext(path)) + ".json"
		b, err := json.MarshalIndent(song, "", "    ")
		if err != nil {
			return fmt.Errorf("export: couldn't marshal song details: %w", err)
		}
		if err := os.WriteFile(js, b, 0644); err != nil {
			return fmt.Errorf("export: couldn't write %s: %w", js, err)
		}
		app.Mirror(ctx, js)
		log.Printf("export: saved %s\n", js)
	}
	return nil
}
