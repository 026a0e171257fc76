package cli

import (
	"context"
	"flag"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/peterbourgon/ff/ffyaml"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/alorbach/sunostyle"
	"github.com/alorbach/sunostyle/pkg/catalog"
	"github.com/alorbach/sunostyle/pkg/cmd/export"
	"github.com/alorbach/sunostyle/pkg/cmd/history"
	"github.com/alorbach/sunostyle/pkg/cmd/media"
	"github.com/alorbach/sunostyle/pkg/cmd/migrate"
	"github.com/alorbach/sunostyle/pkg/cmd/setting"
	"github.com/alorbach/sunostyle/pkg/cmd/song"
	"github.com/alorbach/sunostyle/pkg/cmd/style"
	"github.com/alorbach/sunostyle/pkg/cmd/text"
	"github.com/alorbach/sunostyle/pkg/settings"
)

func New(version, commit, date string) *ffcli.Command {
	fs := flag.NewFlagSet("sunostyle", flag.ExitOnError)

	return &ffcli.Command{
		ShortUsage: "sunostyle [flags] <subcommand>",
		FlagSet:    fs,
		Exec: func(context.Context, []string) error {
			return flag.ErrHelp
		},
		Subcommands: []*ffcli.Command{
			newVersionCommand(version, commit, date),
			newStylesCommand(),
			newBrowseCommand(),
			newSongCommand(),
			newTextCommand("merge", "merge the song styles with the selected style", text.RunMerge),
			newTransformCommand(),
			newTextCommand("cover-name", "generate the AI cover name", text.RunCoverName),
			newIdeasCommand("album-cover", "generate the album cover prompt", text.RunAlbumCover),
			newIdeasCommand("video-loop", "generate the video loop prompt", text.RunVideoLoop),
			newImproveCommand(),
			newImageCommand(),
			newVideoCommand(),
			newExportCommand(),
			newSettingCommand(),
			newMigrateCommand(),
			newHistoryCommand(),
		},
	}
}

func newVersionCommand(version, commit, date string) *ffcli.Command {
	return &ffcli.Command{
		Name:       "version",
		ShortUsage: "sunostyle version",
		ShortHelp:  "print version",
		Exec: func(ctx context.Context, args []string) error {
			v := version
			if v == "" {
				if buildInfo, ok := debug.ReadBuildInfo(); ok {
					v = buildInfo.Main.Version
				}
			}
			if v == "" {
				v = "dev"
			}
			versionFields := []string{v}
			if commit != "" {
				versionFields = append(versionFields, commit)
			}
			if date != "" {
				versionFields = append(versionFields, date)
			}
			fmt.Println(strings.Join(versionFields, " "))
			return nil
		},
	}
}

func options() []ff.Option {
	return []ff.Option{
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ffyaml.Parser),
		ff.WithEnvVarPrefix("SUNOSTYLE"),
	}
}

// appFlags registers the flags shared by the commands that use the settings
// document and the optional stores.
func appFlags(fs *flag.FlagSet, cfg *sunostyle.Config) {
	_ = fs.String("config", "", "config file (optional)")
	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	fs.StringVar(&cfg.Settings, "settings", settings.DefaultPath(), "settings json file")
	fs.StringVar(&cfg.Prompts, "prompts", "", "prompt templates directory (default AI/suno/prompts)")
	fs.StringVar(&cfg.DBType, "db-type", "", "history db type (sqlite, mysql, postgres), empty to disable")
	fs.StringVar(&cfg.DBConn, "db-conn", "", "path for sqlite, dsn for mysql or postgres")
	fs.StringVar(&cfg.FSType, "fs-type", "", "artifact mirror type (local, s3), empty to disable")
	fs.StringVar(&cfg.FSConn, "fs-conn", "", "directory for local, key:secret@bucket.region for s3")
	fs.DurationVar(&cfg.PollInterval, "poll-interval", 5*time.Second, "video job poll interval")
	fs.DurationVar(&cfg.PollTimeout, "poll-timeout", 300*time.Second, "video job poll timeout")
}

func newStylesCommand() *ffcli.Command {
	cmd := "styles"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)

	cfg := &style.Config{}
	appFlags(fs, &cfg.Config)
	fs.StringVar(&cfg.Catalog, "catalog", "", "catalog file (default from settings)")
	fs.StringVar(&cfg.Filter.Text, "filter", "", "match any field")
	fs.StringVar(&cfg.Filter.Style, "style", "", "match the style name")
	fs.StringVar(&cfg.Filter.Artists, "artists", "", "match the sample artists")
	fs.StringVar(&cfg.Filter.Decade, "decade", "", "match the decade range")
	fs.StringVar(&cfg.Filter.Tempo, "tempo", "", "match the tempo")
	fs.StringVar(&cfg.Sort, "sort", "", fmt.Sprintf("sort column (%s)", strings.Join(catalog.Columns, ", ")))
	fs.BoolVar(&cfg.Desc, "desc", false, "sort descending")
	fs.IntVar(&cfg.Limit, "limit", 0, "maximum number of styles to print")
	fs.BoolVar(&cfg.Import, "import", false, "list the importable catalog files")
	fs.StringVar(&cfg.Select, "select", "", "store the named style as the selected one")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("sunostyle %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  "list, filter and select catalog styles",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return style.Run(ctx, cfg)
		},
	}
}

func newBrowseCommand() *ffcli.Command {
	cmd := "browse"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)

	cfg := &style.Config{}
	appFlags(fs, &cfg.Config)

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("sunostyle %s [flags] [catalog]", cmd),
		Options:    options(),
		ShortHelp:  "browse the catalog in the terminal",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			if len(args) > 0 {
				cfg.Catalog = args[0]
			}
			return style.RunBrowse(ctx, cfg)
		},
	}
}

func newSongCommand() *ffcli.Command {
	cmd := "song"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)

	cfg := &song.Config{}
	appFlags(fs, &cfg.Config)
	fs.StringVar(&cfg.Source, "source", "", "style source: merged|base for derive, suno_style_prompt|prompt_string|taxonomy_compact for analysis")
	fs.StringVar(&cfg.Target, "target", "styles", "field receiving a loaded style (styles|merged_style)")
	fs.IntVar(&cfg.Pick, "pick", 0, "analysis entry to load, numbered as listed")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("sunostyle %s [flags] <show|set|clear|save|load|scan|rename|delete|derive|analysis> [args...]", cmd),
		Options:    options(),
		ShortHelp:  "edit, save and load the song details",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			var action string
			if len(args) > 0 {
				action, args = args[0], args[1:]
			}
			return song.Run(ctx, cfg, action, args)
		},
	}
}

func textFlags(fs *flag.FlagSet, cfg *text.Config) {
	appFlags(fs, &cfg.Config)
	fs.BoolVar(&cfg.DryRun, "dry-run", false, "print the result without storing it")
}

func newTextCommand(cmd, help string, run func(context.Context, *text.Config) error) *ffcli.Command {
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)

	cfg := &text.Config{}
	textFlags(fs, cfg)

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("sunostyle %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  help,
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return run(ctx, cfg)
		},
	}
}

func newTransformCommand() *ffcli.Command {
	cmd := "transform"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)

	cfg := &text.Config{}
	textFlags(fs, cfg)
	fs.BoolVar(&cfg.MergeOriginal, "merge", false, "merge the selected style before transforming")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("sunostyle %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  "transform the song styles",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return text.RunTransform(ctx, cfg)
		},
	}
}

func newIdeasCommand(cmd, help string, run func(context.Context, *text.Config) error) *ffcli.Command {
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)

	cfg := &text.Config{}
	textFlags(fs, cfg)
	fs.StringVar(&cfg.Ideas, "ideas", "", "additional ideas to incorporate")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("sunostyle %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  help,
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return run(ctx, cfg)
		},
	}
}

func newImproveCommand() *ffcli.Command {
	cmd := "improve"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)

	cfg := &text.Config{}
	textFlags(fs, cfg)
	fs.StringVar(&cfg.Kind, "kind", "album_cover", "prompt to improve (album_cover, video_loop)")
	fs.StringVar(&cfg.Changes, "changes", "", "requested changes")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("sunostyle %s [flags] [changes...]", cmd),
		Options:    options(),
		ShortHelp:  "improve the album cover or video loop prompt",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			if cfg.Changes == "" {
				cfg.Changes = strings.Join(args, " ")
			}
			return text.RunImprove(ctx, cfg)
		},
	}
}

func mediaFlags(fs *flag.FlagSet, cfg *media.Config) {
	appFlags(fs, &cfg.Config)
	fs.StringVar(&cfg.Prompt, "prompt", "", "prompt (default the stored one)")
	fs.StringVar(&cfg.Extra, "extra", "", "extra commands appended to the prompt")
	fs.BoolVar(&cfg.AskExtra, "extra-prompt", false, "ask for the extra commands on stdin, end of input cancels")
	fs.StringVar(&cfg.Output, "output", "", "output file (default under AI-COVERS)")
	fs.StringVar(&cfg.Size, "size", "", "output size")
	fs.BoolVar(&cfg.Open, "open", false, "open the result")
}

func newImageCommand() *ffcli.Command {
	cmd := "image"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)

	cfg := &media.Config{}
	mediaFlags(fs, cfg)
	fs.StringVar(&cfg.Quality, "quality", "medium", "image quality")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("sunostyle %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  "render the album cover image",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return media.RunImage(ctx, cfg)
		},
	}
}

func newVideoCommand() *ffcli.Command {
	cmd := "video"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)

	cfg := &media.Config{}
	mediaFlags(fs, cfg)
	fs.StringVar(&cfg.Seconds, "seconds", "4", "clip duration in seconds")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("sunostyle %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  "render the video loop",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return media.RunVideo(ctx, cfg)
		},
	}
}

func newExportCommand() *ffcli.Command {
	cmd := "export"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)

	cfg := &export.Config{}
	appFlags(fs, &cfg.Config)
	fs.StringVar(&cfg.Output, "output", "", "output file (default in the save path)")
	fs.BoolVar(&cfg.JSON, "json", false, "also write the song details json")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("sunostyle %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  "export the YouTube description",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return export.Run(ctx, cfg)
		},
	}
}

func newSettingCommand() *ffcli.Command {
	cmd := "setting"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &setting.Config{}
	fs.StringVar(&cfg.Settings, "settings", settings.DefaultPath(), "settings json file")
	fs.StringVar(&cfg.Profile, "profile", settings.Text, "profile (text, image_gen, video_gen, general)")
	fs.StringVar(&cfg.Key, "key", "", "key to set")
	fs.StringVar(&cfg.Value, "value", "", "value to set")
	fs.BoolVar(&cfg.Show, "show", false, "print the settings with masked keys")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("sunostyle %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  "show or update a setting",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return setting.Run(ctx, cfg)
		},
	}
}

func newMigrateCommand() *ffcli.Command {
	cmd := "migrate"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &migrate.Config{}
	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	fs.StringVar(&cfg.DBType, "db-type", "", "db type (sqlite, mysql, postgres)")
	fs.StringVar(&cfg.DBConn, "db-conn", "", "path for sqlite, dsn for mysql or postgres")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("sunostyle %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  "create or upgrade the history database",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return migrate.Run(ctx, cfg)
		},
	}
}

func newHistoryCommand() *ffcli.Command {
	cmd := "history"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &history.Config{}
	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	fs.StringVar(&cfg.DBType, "db-type", "", "db type (sqlite, mysql, postgres)")
	fs.StringVar(&cfg.DBConn, "db-conn", "", "path for sqlite, dsn for mysql or postgres")
	fs.StringVar(&cfg.ID, "id", "", "print a single generation")
	fs.StringVar(&cfg.Capability, "capability", "", "filter by capability (text, image_gen, video_gen)")
	fs.StringVar(&cfg.Song, "song", "", "filter by AI cover name")
	fs.StringVar(&cfg.State, "state", "", "filter by state (succeeded, failed)")
	fs.IntVar(&cfg.Page, "page", 1, "page number")
	fs.IntVar(&cfg.Limit, "limit", 20, "page size")
	fs.BoolVar(&cfg.Songs, "songs", false, "list stored songs instead of generations")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("sunostyle %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  "list recorded generations",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return history.Run(ctx, cfg)
		},
	}
}
