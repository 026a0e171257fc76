package style

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/alorbach/sunostyle"
	"github.com/alorbach/sunostyle/pkg/catalog"
	"github.com/alorbach/sunostyle/pkg/settings"
	"github.com/alorbach/sunostyle/pkg/tui"
)

type Config struct {
	sunostyle.Config

	Catalog string
	Filter  catalog.Filter
	Sort    string
	Desc    bool
	Limit   int
	Import  bool
	Select  string
	Output  io.Writer
}

// Run prints the catalog styles that match the filter.
func Run(ctx context.Context, cfg *Config) error {
	app, err := sunostyle.Open(ctx, &cfg.Config)
	if err != nil {
		return err
	}
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	doc := app.Doc()

	if cfg.Import {
		dir := doc.ImportDir(app.Root())
		files, err := catalog.ImportFiles(dir, doc.General.StylesImportBaseName)
		if err != nil {
			return fmt.Errorf("style: %w", err)
		}
		for _, f := range files {
			fmt.Fprintln(out, f)
		}
		return nil
	}

	c := app.Catalog(cfg.Catalog)
	if cfg.Select != "" {
		s, ok := c.Find(cfg.Select)
		if !ok {
			return fmt.Errorf("style: style %q not found in %s", cfg.Select, c.Path)
		}
		return selectStyle(app.Settings, s)
	}

	v := catalog.NewView(c.Styles)
	v.SetFilter(cfg.Filter)
	if cfg.Sort != "" {
		v.SortBy(cfg.Sort)
		if cfg.Desc {
			v.SortBy(cfg.Sort)
		}
	}
	rows := v.Rows()
	if cfg.Limit > 0 && len(rows) > cfg.Limit {
		rows = rows[:cfg.Limit]
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STYLE\tDECADE\tTEMPO\tMOOD")
	for _, s := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.Name(), s.Get(catalog.FieldDecade), s.Get(catalog.FieldTempo), s.Get(catalog.FieldMood))
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("style: couldn't write styles: %w", err)
	}
	log.Printf("style: %d of %d styles\n", len(v.Rows()), c.Len())
	return nil
}

// RunBrowse opens the terminal browser and stores the chosen style.
func RunBrowse(ctx context.Context, cfg *Config) error {
	app, err := sunostyle.Open(ctx, &cfg.Config)
	if err != nil {
		return err
	}
	c := app.Catalog(cfg.Catalog)
	if c.Len() == 0 {
		return fmt.Errorf("style: no styles in %s", c.Path)
	}
	s, err := tui.Run(ctx, c.Styles, app.Doc().LastSelectedStyle)
	if errors.Is(err, tui.ErrCancelled) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := selectStyle(app.Settings, s); err != nil {
		return err
	}
	fmt.Println(details(s))
	return nil
}

func selectStyle(svc *settings.Service, s catalog.Style) error {
	if !svc.Update(func(d *settings.Document) { d.LastSelectedStyle = s.Name() }) {
		return fmt.Errorf("style: couldn't persist selected style")
	}
	log.Printf("style: selected %q\n", s.Name())
	return nil
}

func details(s catalog.Style) string {
	var lines []string
	for _, c := range catalog.Columns {
		if v := s.Get(c); v != "" {
			lines = append(lines, fmt.Sprintf("%s: %s", c, v))
		}
	}
	return strings.Join(lines, "\n")
}
