package studio

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// Style sources of an analysis entry.
const (
	SourceSunoPrompt   = "suno_style_prompt"
	SourcePromptString = "prompt_string"
	SourceTaxonomy     = "taxonomy_compact"
)

// Analysis is one entry of a song style analyzer export.
type Analysis map[string]any

// LoadAnalysis reads an analyzer export: a list of entries, an object with a
// results list or a single entry. Objects that don't look like analyzer
// entries are skipped.
func LoadAnalysis(path string) ([]Analysis, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("studio: couldn't read analysis %s: %w", path, err)
	}
	var data any
	if err := json.Unmarshal(b, &data); err != nil {
		return nil, fmt.Errorf("studio: couldn't parse analysis %s: %w", path, err)
	}
	var items []any
	switch v := data.(type) {
	case []any:
		items = v
	case map[string]any:
		if results, ok := v["results"].([]any); ok {
			items = results
		} else {
			items = []any{v}
		}
	}
	var entries []Analysis
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		_, a := m["style_analysis"]
		_, u := m["agent_usage_suggestions"]
		_, i := m["input_metadata"]
		if a || u || i {
			entries = append(entries, Analysis(m))
		}
	}
	return entries, nil
}

// AnalysisFiles lists the json exports of dir.
func AnalysisFiles(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("studio: couldn't list %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}

// Name is "title - artist", the title alone or the task id.
func (a Analysis) Name() string {
	meta := objectValue(a["input_metadata"])
	title := textValue(meta["title"])
	artist := textValue(meta["artist"])
	if title != "" && artist != "" && !strings.EqualFold(artist, "unknown") {
		return title + " - " + artist
	}
	if title != "" {
		return title
	}
	if id := textValue(a["task_id"]); id != "" {
		return id
	}
	return "Unknown"
}

// Style returns the style text of the given source, the suno style prompt
// by default.
func (a Analysis) Style(source string) string {
	style := objectValue(a["style_analysis"])
	switch strings.ToLower(strings.TrimSpace(source)) {
	case SourcePromptString:
		return textValue(style["prompt_string"])
	case SourceTaxonomy:
		tax := objectValue(style["taxonomy"])
		primary := textValue(tax["primary_genre"])
		sub := textValue(tax["sub_genre"])
		mood := textValue(tax["mood"])
		var parts []string
		if primary != "" {
			parts = append(parts, primary)
		}
		if sub != "" && !strings.EqualFold(sub, primary) {
			parts = append(parts, sub)
		}
		if tags, ok := tax["fusion_tags"].([]any); ok {
			var ts []string
			for _, t := range tags {
				if s := textValue(t); s != "" {
					ts = append(ts, s)
				}
			}
			if len(ts) > 0 {
				parts = append(parts, strings.Join(ts, ", "))
			}
		}
		if mood != "" {
			parts = append(parts, mood)
		}
		return strings.Join(parts, ", ")
	default:
		return textValue(objectValue(a["agent_usage_suggestions"])["suno_style_prompt"])
	}
}

func (a Analysis) blob() string {
	parts := []string{
		a.Name(),
		a.Style(SourceSunoPrompt),
		a.Style(SourcePromptString),
		a.Style(SourceTaxonomy),
		textValue(objectValue(a["agent_usage_suggestions"])["negative_prompt"]),
	}
	var out []string
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.ToLower(strings.Join(out, " "))
}

var searchTerms = regexp.MustCompile(`[\s,]+`)

// SearchAnalysis returns the entries sorted by name that contain every term
// of query.
func SearchAnalysis(entries []Analysis, query string) []Analysis {
	sorted := make([]Analysis, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return strings.ToLower(sorted[i].Name()) < strings.ToLower(sorted[j].Name())
	})
	var words []string
	for _, t := range searchTerms.Split(strings.ToLower(strings.TrimSpace(query)), -1) {
		if t != "" {
			words = append(words, t)
		}
	}
	if len(words) == 0 {
		return sorted
	}
	var out []Analysis
	for _, e := range sorted {
		blob := e.blob()
		match := true
		for _, w := range words {
			if !strings.Contains(blob, w) {
				match = false
				break
			}
		}
		if match {
			out = append(out, e)
		}
	}
	return out
}

func objectValue(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func textValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}
