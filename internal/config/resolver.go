// Package config loads and merges the layered dev.env configuration.
//
// Sources are read in increasing precedence: built-in defaults, the shared
// user-level file under ~/.dev, then an optional project-local override.
// Scalars replace, mount and port lists append with replace-by-target
// semantics, environment variables are last-declared-wins.
//
// The grammar is line-oriented (one declaration per line):
//
//	MOUNT=<host_path>:<container_path>[:ro]
//	PORT=<host_port>:<container_port>
//	DEFAULT_WORKDIR=<absolute_container_path>
//	<KEY>=<value>        # anything else is an environment declaration
//
// Blank lines and full-line comments are ignored. A malformed line fails
// the whole resolution; there is no best-effort partial application.
package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"dev/internal/domain"
)

// Image naming for the development environment image built by `dev build`.
const (
	ImageName = "dev-env"
	ImageTag  = "latest"
)

// ImageRef returns the fully qualified tag of the dev image.
func ImageRef() string { return ImageName + ":" + ImageTag }

// FileName is the per-layer configuration file name.
const FileName = "dev.env"

// defaultWorkdir is used when no layer declares DEFAULT_WORKDIR.
const defaultWorkdir = "/home/me"

// Resolver reads and merges configuration layers. The home directory is
// injectable so tests can exercise tilde expansion without touching the
// invoking user's files.
type Resolver struct {
	home string
}

// NewResolver builds a resolver anchored at the invoking user's home.
func NewResolver() (*Resolver, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("determine home directory: %w", err)
	}
	return &Resolver{home: home}, nil
}

// NewResolverWithHome builds a resolver with an explicit home directory.
func NewResolverWithHome(home string) *Resolver {
	return &Resolver{home: home}
}

// DevDir returns the tool's shared directory (~/.dev), which holds the
// user-level dev.env and the image build context.
func (r *Resolver) DevDir() string {
	return filepath.Join(r.home, ".dev")
}

// DefaultSearchPaths returns the configuration layers for an invocation
// from dir, lowest precedence first.
func (r *Resolver) DefaultSearchPaths(dir string) []string {
	return []string{
		filepath.Join(r.DevDir(), FileName),
		filepath.Join(dir, FileName),
	}
}

// Resolve reads every existing file in searchPaths (lowest precedence
// first) and merges them over the built-in defaults. It fails with
// ConfigError(MissingFile) when none of the paths exist.
func (r *Resolver) Resolve(searchPaths ...string) (*domain.ResolvedConfig, error) {
	cfg := &domain.ResolvedConfig{DefaultWorkdir: defaultWorkdir}

	found := false
	for _, path := range searchPaths {
		f, err := os.Open(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, &domain.ConfigError{
				Kind:   domain.ConfigMissingFile,
				File:   path,
				Detail: err.Error(),
			}
		}
		found = true

		layer, err := r.parse(path, f)
		f.Close()
		if err != nil {
			return nil, err
		}
		merge(cfg, layer)
	}

	if !found {
		return nil, &domain.ConfigError{
			Kind:   domain.ConfigMissingFile,
			Detail: fmt.Sprintf("no configuration found in any of: %s", strings.Join(searchPaths, ", ")),
		}
	}
	return cfg, nil
}

// layer is one parsed file before merging.
type layer struct {
	mounts  []domain.MountSpec
	ports   []domain.PortSpec
	env     []domain.EnvVar
	workdir string
}

func (r *Resolver) parse(path string, f *os.File) (*layer, error) {
	l := &layer{}
	hostPorts := make(map[int]int) // host port -> line declared

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, malformed(path, lineNo, "expected KEY=value")
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" {
			return nil, malformed(path, lineNo, "empty key")
		}

		switch key {
		case "MOUNT":
			m, err := r.parseMount(path, lineNo, value)
			if err != nil {
				return nil, err
			}
			l.mounts = upsertMount(l.mounts, m)

		case "PORT":
			p, err := parsePort(path, lineNo, value)
			if err != nil {
				return nil, err
			}
			if prev, dup := hostPorts[p.HostPort]; dup {
				return nil, &domain.ConfigError{
					Kind:   domain.ConfigDuplicatePort,
					File:   path,
					Line:   lineNo,
					Detail: fmt.Sprintf("host port %d already declared on line %d", p.HostPort, prev),
				}
			}
			hostPorts[p.HostPort] = lineNo
			l.ports = append(l.ports, p)

		case "DEFAULT_WORKDIR":
			if !strings.HasPrefix(value, "/") {
				return nil, malformed(path, lineNo, "DEFAULT_WORKDIR must be an absolute container path")
			}
			l.workdir = value

		default:
			l.env = upsertEnv(l.env, domain.EnvVar{Key: key, Value: value})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, &domain.ConfigError{
			Kind:   domain.ConfigMalformedLine,
			File:   path,
			Detail: err.Error(),
		}
	}
	return l, nil
}

func (r *Resolver) parseMount(path string, lineNo int, value string) (domain.MountSpec, error) {
	parts := strings.Split(value, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return domain.MountSpec{}, malformed(path, lineNo, "MOUNT expects host_path:container_path[:ro]")
	}

	host := r.expandHome(parts[0])
	containerPath := parts[1]
	if host == "" || containerPath == "" {
		return domain.MountSpec{}, malformed(path, lineNo, "MOUNT paths must not be empty")
	}
	if !strings.HasPrefix(containerPath, "/") {
		return domain.MountSpec{}, malformed(path, lineNo, "container path must be absolute")
	}

	readOnly := false
	if len(parts) == 3 {
		if parts[2] != "ro" {
			return domain.MountSpec{}, malformed(path, lineNo, fmt.Sprintf("unknown mount option %q", parts[2]))
		}
		readOnly = true
	}

	if _, err := os.Stat(host); err != nil {
		return domain.MountSpec{}, malformed(path, lineNo, fmt.Sprintf("host path %q does not exist", host))
	}

	return domain.MountSpec{
		HostPath:      host,
		ContainerPath: containerPath,
		ReadOnly:      readOnly,
	}, nil
}

func parsePort(path string, lineNo int, value string) (domain.PortSpec, error) {
	hostStr, containerStr, ok := strings.Cut(value, ":")
	if !ok {
		return domain.PortSpec{}, malformed(path, lineNo, "PORT expects host_port:container_port")
	}

	host, err1 := strconv.Atoi(strings.TrimSpace(hostStr))
	container, err2 := strconv.Atoi(strings.TrimSpace(containerStr))
	if err1 != nil || err2 != nil {
		return domain.PortSpec{}, malformed(path, lineNo, "ports must be integers")
	}
	for _, p := range []int{host, container} {
		if p < 1 || p > 65535 {
			return domain.PortSpec{}, &domain.ConfigError{
				Kind:   domain.ConfigInvalidPort,
				File:   path,
				Line:   lineNo,
				Detail: fmt.Sprintf("port %d out of range 1-65535", p),
			}
		}
	}
	return domain.PortSpec{HostPort: host, ContainerPort: container}, nil
}

// expandHome resolves a leading ~ against the invoking user's home.
func (r *Resolver) expandHome(p string) string {
	if p == "~" {
		return r.home
	}
	if strings.HasPrefix(p, "~/") {
		return filepath.Join(r.home, p[2:])
	}
	return p
}

func malformed(path string, line int, detail string) *domain.ConfigError {
	return &domain.ConfigError{
		Kind:   domain.ConfigMalformedLine,
		File:   path,
		Line:   line,
		Detail: detail,
	}
}

// merge applies one layer on top of the accumulated config: scalars
// replace, mounts replace by container path, ports replace by host port,
// environment variables are last-declared-wins.
func merge(cfg *domain.ResolvedConfig, l *layer) {
	for _, m := range l.mounts {
		cfg.Mounts = upsertMount(cfg.Mounts, m)
	}
	for _, p := range l.ports {
		cfg.Ports = upsertPort(cfg.Ports, p)
	}
	for _, e := range l.env {
		cfg.Env = upsertEnv(cfg.Env, e)
	}
	if l.workdir != "" {
		cfg.DefaultWorkdir = l.workdir
	}
}

func upsertMount(mounts []domain.MountSpec, m domain.MountSpec) []domain.MountSpec {
	for i := range mounts {
		if mounts[i].ContainerPath == m.ContainerPath {
			mounts[i] = m
			return mounts
		}
	}
	return append(mounts, m)
}

func upsertPort(ports []domain.PortSpec, p domain.PortSpec) []domain.PortSpec {
	for i := range ports {
		if ports[i].HostPort == p.HostPort {
			ports[i] = p
			return ports
		}
	}
	return append(ports, p)
}

func upsertEnv(env []domain.EnvVar, e domain.EnvVar) []domain.EnvVar {
	for i := range env {
		if env[i].Key == e.Key {
			env[i] = e
			return env
		}
	}
	return append(env, e)
}
