// Package domain holds the data model shared by the dev orchestrator:
// resolved configuration, container identity and the live container view
// read back from the runtime.
package domain

import (
	"path/filepath"
	"strings"
	"time"
)

// MountSpec is a single host directory bind-mounted into the container.
// HostPath is fully expanded and verified to exist at resolution time.
type MountSpec struct {
	HostPath      string `yaml:"host_path"`
	ContainerPath string `yaml:"container_path"`
	ReadOnly      bool   `yaml:"read_only,omitempty"`
}

// PortSpec maps one host port to one container port. Both are 1-65535.
type PortSpec struct {
	HostPort      int `yaml:"host_port"`
	ContainerPort int `yaml:"container_port"`
}

// EnvVar is an environment declaration passed into the container.
type EnvVar struct {
	Key   string `yaml:"key"`
	Value string `yaml:"value"`
}

// ResolvedConfig is the merged result of all configuration layers. It is
// built fresh for every command invocation and never mutated afterwards.
type ResolvedConfig struct {
	Mounts         []MountSpec `yaml:"mounts"`
	Ports          []PortSpec  `yaml:"ports"`
	Env            []EnvVar    `yaml:"env"`
	DefaultWorkdir string      `yaml:"default_workdir"`
}

// WorkdirFor maps a host directory into the container filesystem. If hostDir
// lies inside one of the configured mounts, the corresponding container path
// is returned; otherwise the configured default workdir.
func (c *ResolvedConfig) WorkdirFor(hostDir string) string {
	hostDir = filepath.Clean(hostDir)
	for _, m := range c.Mounts {
		root := filepath.Clean(m.HostPath)
		if hostDir == root {
			return m.ContainerPath
		}
		if strings.HasPrefix(hostDir, root+string(filepath.Separator)) {
			rel, err := filepath.Rel(root, hostDir)
			if err != nil {
				continue
			}
			// Container paths are always slash-separated.
			return m.ContainerPath + "/" + filepath.ToSlash(rel)
		}
	}
	return c.DefaultWorkdir
}

// EnvStrings returns the environment in KEY=value form for the runtime.
func (c *ResolvedConfig) EnvStrings() []string {
	out := make([]string, 0, len(c.Env))
	for _, e := range c.Env {
		out = append(out, e.Key+"="+e.Value)
	}
	return out
}

// ContainerIdentity addresses exactly one managed container. Name is a pure
// function of SourcePath; two invocations from the same directory always
// resolve to the same container.
type ContainerIdentity struct {
	Name       string
	SourcePath string
}

// ContainerState is the coarse lifecycle state of a managed container.
type ContainerState string

const (
	StateAbsent  ContainerState = "absent"
	StateCreated ContainerState = "created"
	StateRunning ContainerState = "running"
	StateStopped ContainerState = "stopped"
)

// ContainerRecord is the live view of one container as reported by the
// runtime. It is refreshed on demand and never cached across commands.
type ContainerRecord struct {
	ID        string
	Name      string
	State     ContainerState
	Ports     []PortSpec
	CreatedAt time.Time
}

// Running reports whether the record is in the running state.
func (r ContainerRecord) Running() bool { return r.State == StateRunning }

// ShortID trims the runtime ID down to the familiar 12-character form.
func (r ContainerRecord) ShortID() string {
	if len(r.ID) > 12 {
		return r.ID[:12]
	}
	return r.ID
}

// ImageRecord describes one dev image known to the runtime.
type ImageRecord struct {
	ID      string
	RepoTag string
	Size    int64
}

// ShortID trims the image ID (including any "sha256:" prefix) to 12 chars.
func (i ImageRecord) ShortID() string {
	id := strings.TrimPrefix(i.ID, "sha256:")
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

// ExecSpec describes one exec session inside a running container.
type ExecSpec struct {
	Cmd     []string
	Workdir string
	// Interactive attaches the caller's stdin and, when stdin is a real
	// terminal, allocates a TTY with raw mode and resize propagation.
	Interactive bool
	Env         []string
}
