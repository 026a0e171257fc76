package studio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const analysisJSON = `[
	{
		"task_id": "t1",
		"input_metadata": {"title": "Hello", "artist": "Adele"},
		"style_analysis": {
			"prompt_string": "soul ballad, piano",
			"taxonomy": {"primary_genre": "Soul", "sub_genre": "soul", "mood": "melancholic", "fusion_tags": ["gospel", " ", "pop"]}
		},
		"agent_usage_suggestions": {"suno_style_prompt": " 1960s soul ballad ", "negative_prompt": "no autotune"}
	},
	{"task_id": "t2", "input_metadata": {"title": "Zombie", "artist": "Unknown"}},
	{"task_id": "t3", "style_analysis": {"prompt_string": "grunge"}},
	{"something": "else"},
	"text"
]`

func TestLoadAnalysis(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "analysis.json")
	require.NoError(t, os.WriteFile(path, []byte(analysisJSON), 0644))

	entries, err := LoadAnalysis(path)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "Hello - Adele", entries[0].Name())
	assert.Equal(t, "Zombie", entries[1].Name())
	assert.Equal(t, "t3", entries[2].Name())

	assert.Equal(t, "1960s soul ballad", entries[0].Style(""))
	assert.Equal(t, "1960s soul ballad", entries[0].Style(SourceSunoPrompt))
	assert.Equal(t, "soul ballad, piano", entries[0].Style(SourcePromptString))
	assert.Equal(t, "Soul, gospel, pop, melancholic", entries[0].Style(SourceTaxonomy))
	assert.Equal(t, "", entries[1].Style(SourceTaxonomy))

	wrapped := filepath.Join(dir, "wrapped.json")
	require.NoError(t, os.WriteFile(wrapped, []byte(`{"results": [{"input_metadata": {"title": "A"}}]}`), 0644))
	entries, err = LoadAnalysis(wrapped)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "A", entries[0].Name())

	single := filepath.Join(dir, "single.json")
	require.NoError(t, os.WriteFile(single, []byte(`{"task_id": "x", "style_analysis": {}}`), 0644))
	entries, err = LoadAnalysis(single)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	_, err = LoadAnalysis(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	files, err := AnalysisFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{path, single, wrapped}, files)
}

func TestSearchAnalysis(t *testing.T) {
	entries := []Analysis{
		{"input_metadata": map[string]any{"title": "Zombie"}, "style_analysis": map[string]any{"prompt_string": "grunge, distorted"}},
		{"input_metadata": map[string]any{"title": "hello"}, "agent_usage_suggestions": map[string]any{"negative_prompt": "no autotune"}},
		{"input_metadata": map[string]any{"title": "Africa"}, "style_analysis": map[string]any{"prompt_string": "soft rock"}},
	}
	all := SearchAnalysis(entries, "  ")
	require.Len(t, all, 3)
	assert.Equal(t, []string{"Africa", "hello", "Zombie"}, []string{all[0].Name(), all[1].Name(), all[2].Name()})

	got := SearchAnalysis(entries, "Grunge, zombie")
	require.Len(t, got, 1)
	assert.Equal(t, "Zombie", got[0].Name())

	got = SearchAnalysis(entries, "autotune")
	require.Len(t, got, 1)
	assert.Equal(t, "hello", got[0].Name())

	assert.Empty(t, SearchAnalysis(entries, "rock grunge"))
}
