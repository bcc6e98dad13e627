package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoader_Load_FileNotFound(t *testing.T) {
	cfg, err := NewLoader().Load("/nonexistent/path/targets.txt")
	assert.Nil(t, cfg)
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestLoader_Load_YAML(t *testing.T) {
	path := writeFile(t, "targets.yaml", `
targets:
  - https://example.org/
  - "  staging.example.org/app  "
options:
  headers: ["Authorization: Basic abc"]
  branches: [main, release]
  workers: 20
`)

	cfg, err := NewLoader().Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.org/", "staging.example.org/app"}, cfg.Targets)
	assert.Equal(t, []string{"Authorization: Basic abc"}, cfg.Options.Headers)
	assert.Equal(t, []string{"main", "release"}, cfg.Options.Branches)
	assert.Equal(t, 20, cfg.Options.Workers)
}

func TestLoader_Load_JSON(t *testing.T) {
	path := writeFile(t, "targets.json", `{"targets": ["a.example.org"], "options": {"output": "loot"}}`)

	cfg, err := NewLoader().Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.example.org"}, cfg.Targets)
	assert.Equal(t, "loot", cfg.Options.Output)
}

func TestLoader_Load_PlainText(t *testing.T) {
	path := writeFile(t, "targets.txt", "# scope\nexample.org\n\n  https://b.example.org/x/.git/  \n#skip\n")

	cfg, err := NewLoader().Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"example.org", "https://b.example.org/x/.git/"}, cfg.Targets)
}

func TestLoader_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
		ext  string
		err  error
	}{
		{"invalid yaml", "targets: [unclosed", ".yml", ErrInvalidFormat},
		{"invalid json", "{", ".json", ErrInvalidFormat},
		{"no targets", "options: {workers: 2}", ".yaml", ErrNoTargets},
		{"blank target", `{"targets": ["ok", "  "]}`, ".json", ErrEmptyTarget},
		{"only comments", "# nothing here\n", "", ErrNoTargets},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := NewLoader().LoadFromBytes([]byte(tt.data), tt.ext)
			assert.Nil(t, cfg)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestReadTargets(t *testing.T) {
	input := "example.org\n# comment\nhttps://c.example.org\n\nafter-blank.example.org\n"

	targets, err := ReadTargets(strings.NewReader(input), true)
	require.NoError(t, err)
	assert.Equal(t, []string{"example.org", "https://c.example.org"}, targets)

	targets, err = ReadTargets(strings.NewReader(input), false)
	require.NoError(t, err)
	assert.Len(t, targets, 3)

	targets, err = ReadTargets(strings.NewReader(""), true)
	require.NoError(t, err)
	assert.Empty(t, targets)
}
