package session

import (
	"context"
	"time"

	"dev/internal/domain"
)

// Runtime is the container control plane the controller sequences. The
// Docker adapter in internal/runtime implements it; tests use a fake.
type Runtime interface {
	ImageExists(ctx context.Context, tag string) (bool, error)
	BuildImage(ctx context.Context, tag, contextDir string, noCache bool) error

	CreateContainer(ctx context.Context, id domain.ContainerIdentity, imageRef string, cfg *domain.ResolvedConfig) error
	StartContainer(ctx context.Context, name string) error
	StopContainer(ctx context.Context, name string, timeout time.Duration) error
	RemoveContainer(ctx context.Context, name string, force bool) error
	InspectContainer(ctx context.Context, name string) (*domain.ContainerRecord, error)
	ListContainers(ctx context.Context, namePrefix string) ([]domain.ContainerRecord, error)

	ExecInteractive(ctx context.Context, name string, spec domain.ExecSpec) (int, error)
	ActiveExecs(ctx context.Context, name string) (int, error)
	StreamLogs(ctx context.Context, name string, follow bool, tail int) error

	ListImages(ctx context.Context, refPattern string) ([]domain.ImageRecord, error)
	RemoveImage(ctx context.Context, ref string, force bool) error
	PruneSystem(ctx context.Context, allImages, volumes bool) error
}
