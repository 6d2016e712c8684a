package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dev/internal/domain"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func configErr(t *testing.T, err error) *domain.ConfigError {
	t.Helper()
	var ce *domain.ConfigError
	require.True(t, errors.As(err, &ce), "expected ConfigError, got %v", err)
	return ce
}

func TestResolveSingleFile(t *testing.T) {
	home := t.TempDir()
	proj := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(home, "code"), 0o755))

	path := writeConfig(t, proj, `
# development environment
MOUNT=~/code:/home/me/code
PORT=9000:8000
DEFAULT_WORKDIR=/home/me/code
EDITOR=nvim
TERM=xterm-256color
`)

	cfg, err := NewResolverWithHome(home).Resolve(path)
	require.NoError(t, err)

	require.Len(t, cfg.Mounts, 1)
	assert.Equal(t, filepath.Join(home, "code"), cfg.Mounts[0].HostPath)
	assert.Equal(t, "/home/me/code", cfg.Mounts[0].ContainerPath)
	assert.False(t, cfg.Mounts[0].ReadOnly)

	require.Len(t, cfg.Ports, 1)
	assert.Equal(t, 9000, cfg.Ports[0].HostPort)
	assert.Equal(t, 8000, cfg.Ports[0].ContainerPort)

	assert.Equal(t, "/home/me/code", cfg.DefaultWorkdir)
	assert.Equal(t, []string{"EDITOR=nvim", "TERM=xterm-256color"}, cfg.EnvStrings())
}

func TestResolveReadOnlyMount(t *testing.T) {
	home := t.TempDir()
	proj := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(home, "ref"), 0o755))

	path := writeConfig(t, proj, "MOUNT=~/ref:/home/me/ref:ro\n")
	cfg, err := NewResolverWithHome(home).Resolve(path)
	require.NoError(t, err)
	require.Len(t, cfg.Mounts, 1)
	assert.True(t, cfg.Mounts[0].ReadOnly)
}

func TestResolveErrors(t *testing.T) {
	home := t.TempDir()

	tests := []struct {
		name    string
		content string
		kind    domain.ConfigErrorKind
		line    int
	}{
		{
			name:    "duplicate host port",
			content: "PORT=9000:8000\nPORT=9000:8081\n",
			kind:    domain.ConfigDuplicatePort,
			line:    2,
		},
		{
			name:    "port out of range",
			content: "PORT=99999:8000\n",
			kind:    domain.ConfigInvalidPort,
			line:    1,
		},
		{
			name:    "port zero",
			content: "PORT=0:8000\n",
			kind:    domain.ConfigInvalidPort,
			line:    1,
		},
		{
			name:    "port not a number",
			content: "PORT=abc:8000\n",
			kind:    domain.ConfigMalformedLine,
			line:    1,
		},
		{
			name:    "line without equals",
			content: "just some words\n",
			kind:    domain.ConfigMalformedLine,
			line:    1,
		},
		{
			name:    "empty key",
			content: "=value\n",
			kind:    domain.ConfigMalformedLine,
			line:    1,
		},
		{
			name:    "mount missing container path",
			content: "MOUNT=/tmp\n",
			kind:    domain.ConfigMalformedLine,
			line:    1,
		},
		{
			name:    "mount relative container path",
			content: "MOUNT=/tmp:code\n",
			kind:    domain.ConfigMalformedLine,
			line:    1,
		},
		{
			name:    "mount unknown option",
			content: "MOUNT=/tmp:/code:rw\n",
			kind:    domain.ConfigMalformedLine,
			line:    1,
		},
		{
			name:    "mount host path missing",
			content: "MOUNT=/does/not/exist:/code\n",
			kind:    domain.ConfigMalformedLine,
			line:    1,
		},
		{
			name:    "workdir relative",
			content: "DEFAULT_WORKDIR=code\n",
			kind:    domain.ConfigMalformedLine,
			line:    1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proj := t.TempDir()
			path := writeConfig(t, proj, tt.content)

			_, err := NewResolverWithHome(home).Resolve(path)
			ce := configErr(t, err)
			assert.Equal(t, tt.kind, ce.Kind)
			assert.Equal(t, path, ce.File)
			assert.Equal(t, tt.line, ce.Line)
		})
	}
}

func TestResolveMissingFile(t *testing.T) {
	home := t.TempDir()
	_, err := NewResolverWithHome(home).Resolve(
		filepath.Join(home, ".dev", FileName),
		filepath.Join(t.TempDir(), FileName),
	)
	ce := configErr(t, err)
	assert.Equal(t, domain.ConfigMissingFile, ce.Kind)
}

func TestResolveLayering(t *testing.T) {
	home := t.TempDir()
	userDir := filepath.Join(home, ".dev")
	require.NoError(t, os.MkdirAll(userDir, 0o755))
	projDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(home, "code"), 0o755))

	userFile := writeConfig(t, userDir, `
MOUNT=~/code:/home/me/code
PORT=9000:8000
PORT=5432:5432
DEFAULT_WORKDIR=/home/me
EDITOR=vim
PAGER=less
`)
	projFile := writeConfig(t, projDir, `
MOUNT=`+projDir+`:/home/me/code
PORT=9000:8080
DEFAULT_WORKDIR=/home/me/code
EDITOR=nvim
`)

	cfg, err := NewResolverWithHome(home).Resolve(userFile, projFile)
	require.NoError(t, err)

	// Same container path: project layer replaces the user mount.
	require.Len(t, cfg.Mounts, 1)
	assert.Equal(t, projDir, cfg.Mounts[0].HostPath)

	// Same host port replaced, unrelated port kept.
	require.Len(t, cfg.Ports, 2)
	assert.Equal(t, domain.PortSpec{HostPort: 9000, ContainerPort: 8080}, cfg.Ports[0])
	assert.Equal(t, domain.PortSpec{HostPort: 5432, ContainerPort: 5432}, cfg.Ports[1])

	assert.Equal(t, "/home/me/code", cfg.DefaultWorkdir)

	// Last-declared-wins for env, order of first declaration preserved.
	assert.Equal(t, []string{"EDITOR=nvim", "PAGER=less"}, cfg.EnvStrings())
}

func TestResolveDefaultsWhenOnlyUserFile(t *testing.T) {
	home := t.TempDir()
	proj := t.TempDir()
	path := writeConfig(t, proj, "EDITOR=nvim\n")

	cfg, err := NewResolverWithHome(home).Resolve(path)
	require.NoError(t, err)
	assert.Empty(t, cfg.Mounts)
	assert.Empty(t, cfg.Ports)
	assert.Equal(t, "/home/me", cfg.DefaultWorkdir)
}

func TestDefaultSearchPaths(t *testing.T) {
	r := NewResolverWithHome("/home/alice")
	paths := r.DefaultSearchPaths("/home/alice/work/proj")
	assert.Equal(t, []string{
		"/home/alice/.dev/dev.env",
		"/home/alice/work/proj/dev.env",
	}, paths)
}
