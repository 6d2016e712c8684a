// Package runtime is the Docker adapter for the container control plane.
// Every operation is synchronous and side-effecting; failures come back as
// typed domain.RuntimeError values and are never retried here. The
// session controller decides what is recoverable.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/archive"
	"github.com/docker/docker/pkg/jsonmessage"
	"github.com/docker/go-connections/nat"
	"golang.org/x/term"

	"dev/internal/domain"
	"dev/pkg/logger"
)

// Client wraps the Docker API client.
type Client struct {
	api *client.Client
}

// NewClient connects to the Docker daemon using the standard environment
// (DOCKER_HOST etc.) with API version negotiation.
func NewClient() (*Client, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	return &Client{api: cli}, nil
}

// NewClientWithAPI wraps an existing API client (for tests).
func NewClientWithAPI(cli *client.Client) *Client {
	return &Client{api: cli}
}

// Close releases the underlying transport.
func (c *Client) Close() error {
	return c.api.Close()
}

// Ping checks that the daemon is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.api.Ping(ctx); err != nil {
		return wrapErr("docker daemon", err)
	}
	return nil
}

// ImageExists reports whether an image with the given tag is present.
func (c *Client) ImageExists(ctx context.Context, tag string) (bool, error) {
	images, err := c.api.ImageList(ctx, image.ListOptions{
		Filters: filters.NewArgs(filters.Arg("reference", tag)),
	})
	if err != nil {
		return false, wrapErr(tag, err)
	}
	return len(images) > 0, nil
}

// BuildImage builds the image tag from contextDir, streaming build output
// to stderr. Builds run unbounded; they are explicitly user-initiated.
func (c *Client) BuildImage(ctx context.Context, tag, contextDir string, noCache bool) error {
	buildCtx, err := archive.TarWithOptions(contextDir, &archive.TarOptions{})
	if err != nil {
		return fmt.Errorf("tar build context %s: %w", contextDir, err)
	}
	defer buildCtx.Close()

	resp, err := c.api.ImageBuild(ctx, buildCtx, types.ImageBuildOptions{
		Tags:    []string{tag},
		NoCache: noCache,
		Remove:  true,
	})
	if err != nil {
		return wrapErr(tag, err)
	}
	defer resp.Body.Close()

	fd := os.Stderr.Fd()
	if err := jsonmessage.DisplayJSONMessagesStream(resp.Body, os.Stderr, fd, term.IsTerminal(int(fd)), nil); err != nil {
		return wrapErr(tag, err)
	}
	logger.Info("image built", "tag", tag)
	return nil
}

// CreateContainer creates the container for an identity with the resolved
// mounts, ports, environment and working directory. The container gets a
// TTY and an open stdin so interactive shells can attach later.
func (c *Client) CreateContainer(ctx context.Context, id domain.ContainerIdentity, imageRef string, cfg *domain.ResolvedConfig) error {
	exposedPorts := make(nat.PortSet)
	portBindings := make(nat.PortMap)
	for _, p := range cfg.Ports {
		containerPort := nat.Port(fmt.Sprintf("%d/tcp", p.ContainerPort))
		exposedPorts[containerPort] = struct{}{}
		portBindings[containerPort] = []nat.PortBinding{{
			HostIP:   "0.0.0.0",
			HostPort: strconv.Itoa(p.HostPort),
		}}
	}

	mounts := make([]mount.Mount, 0, len(cfg.Mounts))
	for _, m := range cfg.Mounts {
		mounts = append(mounts, mount.Mount{
			Type:     mount.TypeBind,
			Source:   m.HostPath,
			Target:   m.ContainerPath,
			ReadOnly: m.ReadOnly,
		})
	}

	containerConfig := &container.Config{
		Image:        imageRef,
		Env:          cfg.EnvStrings(),
		ExposedPorts: exposedPorts,
		WorkingDir:   cfg.DefaultWorkdir,
		Tty:          true,
		OpenStdin:    true,
		Labels: map[string]string{
			domain.LabelManaged: "true",
			domain.LabelSource:  id.SourcePath,
		},
	}
	hostConfig := &container.HostConfig{
		PortBindings: portBindings,
		Mounts:       mounts,
	}

	resp, err := c.api.ContainerCreate(ctx, containerConfig, hostConfig, nil, nil, id.Name)
	if err != nil {
		return wrapErr(id.Name, err)
	}
	logger.Info("container created", "name", id.Name, "id", shortID(resp.ID))
	return nil
}

// StartContainer starts a created or stopped container.
func (c *Client) StartContainer(ctx context.Context, name string) error {
	if err := c.api.ContainerStart(ctx, name, container.StartOptions{}); err != nil {
		return wrapErr(name, err)
	}
	logger.Info("container started", "name", name)
	return nil
}

// StopContainer sends a graceful stop and waits up to timeout before the
// daemon kills the container. The bound is enforced here rather than left
// to the daemon default, which varies between runtimes.
func (c *Client) StopContainer(ctx context.Context, name string, timeout time.Duration) error {
	seconds := int(timeout.Seconds())
	// Leave the daemon a little slack past the graceful window before the
	// API call itself is abandoned.
	ctx, cancel := context.WithTimeout(ctx, timeout+10*time.Second)
	defer cancel()

	if err := c.api.ContainerStop(ctx, name, container.StopOptions{Timeout: &seconds}); err != nil {
		return wrapErr(name, err)
	}
	logger.Info("container stopped", "name", name)
	return nil
}

// RemoveContainer removes a container.
func (c *Client) RemoveContainer(ctx context.Context, name string, force bool) error {
	if err := c.api.ContainerRemove(ctx, name, container.RemoveOptions{Force: force}); err != nil {
		return wrapErr(name, err)
	}
	logger.Info("container removed", "name", name)
	return nil
}

// InspectContainer returns the live view of one container, or a
// RuntimeError of kind not_found when it is absent.
func (c *Client) InspectContainer(ctx context.Context, name string) (*domain.ContainerRecord, error) {
	resp, err := c.api.ContainerInspect(ctx, name)
	if err != nil {
		return nil, wrapErr(name, err)
	}

	var ports []domain.PortSpec
	if resp.NetworkSettings != nil {
		for portSpec, bindings := range resp.NetworkSettings.Ports {
			for _, binding := range bindings {
				hostPort, err := strconv.Atoi(binding.HostPort)
				if err != nil {
					continue
				}
				ports = append(ports, domain.PortSpec{
					HostPort:      hostPort,
					ContainerPort: portSpec.Int(),
				})
			}
		}
	}

	created, _ := time.Parse(time.RFC3339Nano, resp.Created)
	return &domain.ContainerRecord{
		ID:        resp.ID,
		Name:      strings.TrimPrefix(resp.Name, "/"),
		State:     mapState(resp.State.Status),
		Ports:     ports,
		CreatedAt: created,
	}, nil
}

// ListContainers returns all managed containers whose name carries the
// given prefix, in any state. Docker's name filter matches substrings, so
// the prefix is re-checked on the returned names.
func (c *Client) ListContainers(ctx context.Context, namePrefix string) ([]domain.ContainerRecord, error) {
	containers, err := c.api.ContainerList(ctx, container.ListOptions{
		All: true,
		Filters: filters.NewArgs(
			filters.Arg("label", domain.LabelManaged+"=true"),
			filters.Arg("name", namePrefix),
		),
	})
	if err != nil {
		return nil, wrapErr(namePrefix, err)
	}

	var records []domain.ContainerRecord
	for _, ctr := range containers {
		name := ""
		if len(ctr.Names) > 0 {
			name = strings.TrimPrefix(ctr.Names[0], "/")
		}
		if !strings.HasPrefix(name, namePrefix) {
			continue
		}

		var ports []domain.PortSpec
		for _, p := range ctr.Ports {
			if p.PublicPort > 0 {
				ports = append(ports, domain.PortSpec{
					HostPort:      int(p.PublicPort),
					ContainerPort: int(p.PrivatePort),
				})
			}
		}

		records = append(records, domain.ContainerRecord{
			ID:        ctr.ID,
			Name:      name,
			State:     mapState(ctr.State),
			Ports:     ports,
			CreatedAt: time.Unix(ctr.Created, 0),
		})
	}
	return records, nil
}

// ActiveExecs returns the number of live exec sessions in the container.
func (c *Client) ActiveExecs(ctx context.Context, name string) (int, error) {
	resp, err := c.api.ContainerInspect(ctx, name)
	if err != nil {
		return 0, wrapErr(name, err)
	}
	return len(resp.ExecIDs), nil
}

// RemoveImage removes one image reference.
func (c *Client) RemoveImage(ctx context.Context, ref string, force bool) error {
	if _, err := c.api.ImageRemove(ctx, ref, image.RemoveOptions{Force: force}); err != nil {
		return wrapErr(ref, err)
	}
	logger.Info("image removed", "ref", ref)
	return nil
}

// ListImages returns the images whose repository matches refPattern, one
// record per tag.
func (c *Client) ListImages(ctx context.Context, refPattern string) ([]domain.ImageRecord, error) {
	images, err := c.api.ImageList(ctx, image.ListOptions{
		Filters: filters.NewArgs(filters.Arg("reference", refPattern)),
	})
	if err != nil {
		return nil, wrapErr(refPattern, err)
	}

	var records []domain.ImageRecord
	for _, img := range images {
		for _, tag := range img.RepoTags {
			if tag == "<none>:<none>" {
				continue
			}
			records = append(records, domain.ImageRecord{
				ID:      img.ID,
				RepoTag: tag,
				Size:    img.Size,
			})
		}
	}
	return records, nil
}

// PruneSystem removes unused runtime resources: stopped containers,
// unused images (all of them when allImages is set, otherwise dangling
// only), unused networks, and optionally volumes. Each step is best
// effort; failures are aggregated rather than aborting the rest.
func (c *Client) PruneSystem(ctx context.Context, allImages, volumes bool) error {
	var errs []error

	if report, err := c.api.ContainersPrune(ctx, filters.Args{}); err != nil {
		errs = append(errs, fmt.Errorf("prune containers: %w", wrapErr("containers", err)))
	} else {
		logger.Info("pruned containers", "count", len(report.ContainersDeleted))
	}

	imageFilters := filters.NewArgs(filters.Arg("dangling", strconv.FormatBool(!allImages)))
	if report, err := c.api.ImagesPrune(ctx, imageFilters); err != nil {
		errs = append(errs, fmt.Errorf("prune images: %w", wrapErr("images", err)))
	} else {
		logger.Info("pruned images", "count", len(report.ImagesDeleted), "reclaimed_bytes", report.SpaceReclaimed)
	}

	if report, err := c.api.NetworksPrune(ctx, filters.Args{}); err != nil {
		errs = append(errs, fmt.Errorf("prune networks: %w", wrapErr("networks", err)))
	} else {
		logger.Info("pruned networks", "count", len(report.NetworksDeleted))
	}

	if volumes {
		if report, err := c.api.VolumesPrune(ctx, filters.Args{}); err != nil {
			errs = append(errs, fmt.Errorf("prune volumes: %w", wrapErr("volumes", err)))
		} else {
			logger.Info("pruned volumes", "count", len(report.VolumesDeleted))
		}
	}

	return errors.Join(errs...)
}

// mapState maps Docker's container state string onto the coarse lifecycle
// states of the orchestrator.
func mapState(status string) domain.ContainerState {
	switch status {
	case "running", "restarting":
		return domain.StateRunning
	case "created":
		return domain.StateCreated
	case "paused", "exited", "dead", "removing":
		return domain.StateStopped
	default:
		return domain.StateAbsent
	}
}

// wrapErr maps a Docker API error onto the RuntimeError taxonomy.
func wrapErr(name string, err error) *domain.RuntimeError {
	kind := domain.RuntimeTransportFailure
	switch {
	case cerrdefs.IsNotFound(err):
		kind = domain.RuntimeNotFound
	case cerrdefs.IsConflict(err):
		kind = domain.RuntimeAlreadyExists
	case errors.Is(err, context.DeadlineExceeded):
		kind = domain.RuntimeTimeout
	}
	return &domain.RuntimeError{Kind: kind, Name: name, Cause: err}
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
