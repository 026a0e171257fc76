package history

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/alorbach/sunostyle/pkg/storage"
)

type Config struct {
	Debug  bool
	DBType string
	DBConn string

	ID         string
	Capability string
	Song       string
	State      string
	Page       int
	Limit      int
	Songs      bool
	Output     io.Writer
}

// Run prints the recorded generations, most recent first.
func Run(ctx context.Context, cfg *Config) error {
	if cfg.DBType == "" {
		return fmt.Errorf("history: db type is required")
	}
	store, err := storage.New(cfg.DBType, cfg.DBConn, cfg.Debug)
	if err != nil {
		return fmt.Errorf("history: couldn't create orm store: %w", err)
	}
	if err := store.Start(ctx); err != nil {
		return fmt.Errorf("history: couldn't start orm store: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("history: couldn't migrate orm store: %w", err)
	}
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	limit := cfg.Limit
	if limit <= 0 {
		limit = 20
	}

	if cfg.ID != "" {
		g, err := store.GetGeneration(ctx, cfg.ID)
		if err != nil {
			return fmt.Errorf("history: couldn't get generation %s: %w", cfg.ID, err)
		}
		b, err := json.MarshalIndent(g, "", "  ")
		if err != nil {
			return fmt.Errorf("history: couldn't marshal generation: %w", err)
		}
		fmt.Fprintln(out, string(b))
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if cfg.Songs {
		var filters []storage.Filter
		if cfg.Song != "" {
			filters = append(filters, storage.Where("name LIKE ?", "%"+cfg.Song+"%"))
		}
		songs, err := store.ListSongs(ctx, cfg.Page, limit, "updated_at desc", filters...)
		if err != nil {
			return fmt.Errorf("history: %w", err)
		}
		fmt.Fprintln(w, "NAME\tDECADE\tIMAGE\tVIDEO\tUPDATED")
		for _, s := range songs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", s.Name, s.Decade, s.Image, s.Video, s.UpdatedAt.Format(time.DateTime))
		}
		return w.Flush()
	}

	var filters []storage.Filter
	if cfg.Capability != "" {
		filters = append(filters, storage.Where("capability = ?", cfg.Capability))
	}
	if cfg.Song != "" {
		filters = append(filters, storage.Where("song LIKE ?", "%"+cfg.Song+"%"))
	}
	if cfg.State != "" {
		filters = append(filters, storage.Where("state = ?", cfg.State))
	}
	gens, err := store.ListGenerations(ctx, cfg.Page, limit, "created_at desc", filters...)
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}
	fmt.Fprintln(w, "ID\tCREATED\tCAPABILITY\tSTATE\tDURATION\tOUTPUT")
	for _, g := range gens {
		output := g.Output
		if g.State == storage.Failed {
			output = g.Error
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.1fs\t%s\n", g.ID, g.CreatedAt.Format(time.DateTime), g.Capability, g.State, g.Duration, short(output, 60))
	}
	return w.Flush()
}

func short(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
