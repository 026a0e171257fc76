package setting

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alorbach/sunostyle/pkg/settings"
)

type Config struct {
	Settings string

	Profile string
	Key     string
	Value   string
	Show    bool
	Output  io.Writer
}

// Run updates one value of the settings document. The "general" profile
// targets the general section.
func Run(ctx context.Context, cfg *Config) error {
	svc := settings.NewService(cfg.Settings)
	svc.Load()

	if cfg.Show {
		out := cfg.Output
		if out == nil {
			out = os.Stdout
		}
		return show(out, svc.Get())
	}

	if cfg.Key == "" {
		return fmt.Errorf("setting: key is empty")
	}
	switch cfg.Profile {
	case "general":
		if err := svc.SetGeneralValue(cfg.Key, cfg.Value); err != nil {
			return fmt.Errorf("setting: %w", err)
		}
	case settings.Text, settings.Image, settings.Video:
		if err := svc.SetProfileValue(cfg.Profile, cfg.Key, cfg.Value); err != nil {
			return fmt.Errorf("setting: %w", err)
		}
	default:
		return fmt.Errorf("setting: unknown profile: %s", cfg.Profile)
	}
	return nil
}

// show prints the document with the subscription keys masked.
func show(out io.Writer, doc *settings.Document) error {
	masked := *doc
	masked.Profiles = map[string]settings.Profile{}
	for name, p := range doc.Profiles {
		p.SubscriptionKey = mask(p.SubscriptionKey)
		masked.Profiles[name] = p
	}
	b, err := json.MarshalIndent(masked, "", "    ")
	if err != nil {
		return fmt.Errorf("setting: couldn't marshal settings: %w", err)
	}
	fmt.Fprintln(out, string(b))
	return nil
}

func mask(key string) string {
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", len(key)-4) + key[len(key)-4:]
}
