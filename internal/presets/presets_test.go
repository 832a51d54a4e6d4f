package presets

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinCatalog(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	all := c.All()
	assert.Len(t, all, 13)
	assert.Equal(t, DefaultID, all[0].ID)

	def, ok := c.Get(DefaultID)
	require.True(t, ok)
	assert.Equal(t, "general", def.Category)
	assert.Contains(t, def.Prompt, "{{TRANSCRIPT}}")

	code, ok := c.Get("code-commands")
	require.True(t, ok)
	assert.Contains(t, code.Prompt, "```language")

	_, ok = c.Get("nope")
	assert.False(t, ok)

	listed := 0
	for _, cat := range c.Categories() {
		assert.NotEmpty(t, cat.Name)
		for _, id := range cat.Presets {
			p, ok := c.Get(id)
			require.True(t, ok, id)
			assert.Equal(t, cat.ID, p.Category)
		}
		listed += len(cat.Presets)
	}
	assert.Equal(t, 13, listed)
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"empty", "presets: []", "no presets"},
		{"unknown category", "categories: [{id: a}]\npresets: [{id: x, category: b, prompt: p}]", "unknown category"},
		{"duplicate", "categories: [{id: a}]\npresets: [{id: x, category: a, prompt: p}, {id: x, category: a, prompt: q}]", "duplicate preset"},
		{"empty prompt", "categories: [{id: a}]\npresets: [{id: x, category: a, prompt: ' '}]", "empty prompt"},
		{"bad yaml", "presets: [", "parse catalog"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestCategoriesAreCopies(t *testing.T) {
	c := MustLoad()
	cats := c.Categories()
	cats[0].Presets[0] = "mutated"
	assert.NotEqual(t, "mutated", c.Categories()[0].Presets[0])
}

func TestRender(t *testing.T) {
	got := Render("Video: {{TITLE}} by {{CHANNEL}} ({{DURATION}}) {{URL}}\n{{TRANSCRIPT}}", Vars{
		Title:    "Go in 100s",
		Duration: "2:05",
		URL:      "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
	})
	assert.Equal(t, "Video: Go in 100s by Unknown (2:05) https://www.youtube.com/watch?v=dQw4w9WgXcQ\n{{TRANSCRIPT}}", got)
	assert.False(t, strings.Contains(got, "{{TITLE}}"))
}
