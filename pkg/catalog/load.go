package catalog

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/gocarina/gocsv"
	"gopkg.in/yaml.v3"
)

// Extensions accepted by Load.
var Extensions = []string{".csv", ".css", ".json", ".yaml", ".yml"}

// Load reads a style catalog. A missing or unreadable file yields an empty
// catalog and a log line.
func Load(path string) *Catalog {
	c := &Catalog{Path: path}
	b, err := os.ReadFile(path)
	if err != nil {
		log.Printf("catalog: couldn't read %s: %v\n", path, err)
		return c
	}
	styles, err := Parse(filepath.Ext(path), b)
	if err != nil {
		log.Printf("catalog: couldn't parse %s: %v\n", path, err)
		return c
	}
	c.Styles = styles
	return c
}

// Parse decodes catalog data according to the file extension.
func Parse(ext string, b []byte) ([]Style, error) {
	b = bytes.TrimPrefix(b, []byte("\xef\xbb\xbf"))
	switch strings.ToLower(ext) {
	case ".csv":
		return parseCSV(b)
	case ".css":
		return parseCSS(string(b)), nil
	case ".json":
		var rows []map[string]any
		if err := json.Unmarshal(b, &rows); err != nil {
			return nil, fmt.Errorf("catalog: couldn't unmarshal json: %w", err)
		}
		return toStyles(rows), nil
	case ".yaml", ".yml":
		var rows []map[string]any
		if err := yaml.Unmarshal(b, &rows); err != nil {
			return nil, fmt.Errorf("catalog: couldn't unmarshal yaml: %w", err)
		}
		return toStyles(rows), nil
	default:
		return nil, fmt.Errorf("catalog: unsupported format %q", ext)
	}
}

// parseCSV reads rows of any length: missing trailing columns are empty and
// extra cells are dropped.
func parseCSV(b []byte) ([]Style, error) {
	if len(bytes.TrimSpace(b)) == 0 {
		return nil, nil
	}
	r := csv.NewReader(bytes.NewReader(b))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	records, err := gocsv.NewSimpleDecoderFromCSVReader(r).GetCSVRows()
	if err != nil {
		return nil, fmt.Errorf("catalog: couldn't read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	header := records[0]
	styles := make([]Style, 0, len(records)-1)
	for _, record := range records[1:] {
		s := make(Style, len(header))
		for i, h := range header {
			if i < len(record) {
				s[h] = record[i]
			} else {
				s[h] = ""
			}
		}
		styles = append(styles, s)
	}
	return styles, nil
}

var (
	cssBlock = regexp.MustCompile(`([^{\s][^{]*?)\s*\{\s*([^}]*?)\s*\}`)
	cssTrim  = ".\"'"
)

// parseCSS reads "Name { prompt }" blocks. When the file has no blocks it
// falls back to "Name: prompt" lines, skipping # and // comments.
func parseCSS(text string) []Style {
	var styles []Style
	for _, m := range cssBlock.FindAllStringSubmatch(text, -1) {
		name := strings.Trim(strings.TrimSpace(m[1]), cssTrim)
		if name == "" {
			continue
		}
		styles = append(styles, Style{FieldStyle: name, FieldPrompt: strings.TrimSpace(m[2])})
	}
	if len(styles) > 0 {
		return styles
	}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//") {
			continue
		}
		name, prompt, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		name = strings.Trim(strings.TrimSpace(name), cssTrim)
		if name == "" {
			continue
		}
		styles = append(styles, Style{FieldStyle: name, FieldPrompt: strings.TrimSpace(prompt)})
	}
	return styles
}

func toStyles(rows []map[string]any) []Style {
	styles := make([]Style, 0, len(rows))
	for _, r := range rows {
		s := Style{}
		for k, v := range r {
			if v == nil {
				s[k] = ""
				continue
			}
			s[k] = fmt.Sprint(v)
		}
		styles = append(styles, s)
	}
	return styles
}

// ImportFiles lists the catalog files in dir whose names start with base.
func ImportFiles(dir, base string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("catalog: couldn't read dir %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if base != "" && !strings.HasPrefix(strings.ToLower(name), strings.ToLower(base)) {
			continue
		}
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".csv" && ext != ".css" {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	sort.Strings(files)
	return files, nil
}
