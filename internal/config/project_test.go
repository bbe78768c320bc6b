package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
name: demo
strict: true
modules:
  - name: core
    metadata: ["lib/*.smd"]
  - name: app
    platform: jvm
    sources: ["src/**/*.decl.yaml"]
    dependencies: [core]
    friends: [core]
`

func TestParseProjectYAML(t *testing.T) {
	p, err := ParseProject([]byte(sampleYAML), "semcore.yaml")
	require.NoError(t, err)

	assert.Equal(t, "demo", p.Name)
	assert.True(t, p.Strict)
	assert.Equal(t, DefaultWorkers, p.Workers)
	assert.Equal(t, DefaultLogLevel, p.LogLevel)
	assert.True(t, p.BuiltinsEnabled())

	core, ok := p.Module("core")
	require.True(t, ok)
	assert.Equal(t, DefaultPlatform, core.Platform)
	assert.Equal(t, DefaultSource, core.SourceKind)

	order, err := p.ModuleOrder()
	require.NoError(t, err)
	require.Len(t, order, 2)
	assert.Equal(t, "core", order[0].Name)
	assert.Equal(t, "app", order[1].Name)
}

func TestParseProjectTOML(t *testing.T) {
	src := `
name = "demo"
workers = 2
builtins = false

[[modules]]
name = "core"
metadata = ["lib/*.smd"]
`
	p, err := ParseProject([]byte(src), "semcore.toml")
	require.NoError(t, err)
	assert.Equal(t, 2, p.Workers)
	assert.False(t, p.BuiltinsEnabled())
	assert.Equal(t, []string{"lib/*.smd"}, p.Modules[0].Metadata)
}

func TestProjectValidation(t *testing.T) {
	cases := map[string]string{
		"no modules":     "name: x\n",
		"unknown dep":    "modules: [{name: a, dependencies: [b]}]\n",
		"duplicate":      "modules: [{name: a}, {name: a}]\n",
		"self friend":    "modules: [{name: a, friends: [a]}]\n",
		"cycle":          "modules: [{name: a, dependencies: [b]}, {name: b, dependencies: [a]}]\n",
		"reserved":       "modules: [{name: \"<builtins>\"}]\n",
		"bad log level":  "log_level: loud\nmodules: [{name: a}]\n",
		"empty name":     "modules: [{platform: jvm}]\n",
		"negative count": "workers: -1\nmodules: [{name: a}]\n",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseProject([]byte(src), "semcore.yaml")
			assert.Error(t, err)
		})
	}
}

func TestFindAndLoadProject(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "semcore.yaml"), []byte(sampleYAML), 0o644))

	path, err := FindProject(nested)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "semcore.yaml"), path)

	p, err := LoadProject(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "lib"), p.Resolve("lib"))
	assert.Equal(t, "/abs", p.Resolve("/abs"))

	missing, err := FindProject(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, missing)
}
