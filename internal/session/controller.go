// Package session sequences the container lifecycle behind every dev
// verb: enter, stop, delete, cleanup, logs and the prune family. It
// holds no state between invocations; the runtime is re-inspected at
// the start of every operation.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"dev/internal/config"
	"dev/internal/domain"
	"dev/internal/identity"
	"dev/pkg/bytesize"
	"dev/pkg/logger"
)

const defaultStopTimeout = 10 * time.Second

// Controller drives one dev invocation. It resolves the current state
// from the runtime, decides the transition the verb requires and
// applies it step by step, accepting that another invocation may race
// any individual step.
type Controller struct {
	rt  Runtime
	sel *Selector
	cfg *domain.ResolvedConfig
	id  domain.ContainerIdentity

	image       string
	stopTimeout time.Duration
	retryDelay  time.Duration
	out         io.Writer
}

// NewController wires a controller for the container identified by id.
func NewController(rt Runtime, sel *Selector, cfg *domain.ResolvedConfig, id domain.ContainerIdentity) *Controller {
	return &Controller{
		rt:          rt,
		sel:         sel,
		cfg:         cfg,
		id:          id,
		image:       config.ImageRef(),
		stopTimeout: defaultStopTimeout,
		retryDelay:  200 * time.Millisecond,
		out:         os.Stdout,
	}
}

// Build builds the dev image from the shared build context directory.
func (c *Controller) Build(ctx context.Context, contextDir string, noCache bool) error {
	logger.Info("building image", "tag", c.image, "context", contextDir)
	return c.rt.BuildImage(ctx, c.image, contextDir, noCache)
}

// Enter is the primary verb: it converges the directory's container to
// running, attaches an interactive shell, and on exit stops and removes
// the container unless another session is still attached.
func (c *Controller) Enter(ctx context.Context) (int, error) {
	rec, err := c.rt.InspectContainer(ctx, c.id.Name)
	switch {
	case domain.IsNotFound(err):
		if err := c.create(ctx); err != nil {
			return 0, err
		}
		if err := c.rt.StartContainer(ctx, c.id.Name); err != nil {
			return 0, err
		}
	case err != nil:
		return 0, err
	case rec.State == domain.StateRunning:
		// Attach to the existing session's container.
	default:
		if err := c.rt.StartContainer(ctx, c.id.Name); err != nil {
			return 0, err
		}
	}

	code, execErr := c.rt.ExecInteractive(ctx, c.id.Name, domain.ExecSpec{
		Cmd:         []string{"/bin/bash"},
		Workdir:     c.cfg.WorkdirFor(c.id.SourcePath),
		Interactive: true,
		Env:         []string{"DEV_SESSION=" + uuid.NewString()},
	})
	if execErr != nil {
		return 0, execErr
	}

	if err := c.teardownIfIdle(ctx); err != nil {
		logger.Warn("teardown after shell exit failed", "container", c.id.Name, "error", err)
	}
	return code, nil
}

// create provisions the container, verifying the image first so the
// user gets a build hint instead of a bare runtime failure. A
// concurrent create winning the race counts as success.
func (c *Controller) create(ctx context.Context) error {
	exists, err := c.rt.ImageExists(ctx, c.image)
	if err != nil {
		return err
	}
	if !exists {
		return &domain.RuntimeError{
			Kind:  domain.RuntimeNotFound,
			Name:  c.image,
			Cause: errors.New("image not built yet, run 'dev build' first"),
		}
	}

	err = c.rt.CreateContainer(ctx, c.id, c.image, c.cfg)
	if domain.IsAlreadyExists(err) {
		logger.Debug("container created by a concurrent invocation", "container", c.id.Name)
		return nil
	}
	return err
}

// teardownIfIdle stops and removes the container when the exiting shell
// was the last attached session. A session attaching between the check
// and the stop loses its container; the state machine tolerates that.
func (c *Controller) teardownIfIdle(ctx context.Context) error {
	active, err := c.rt.ActiveExecs(ctx, c.id.Name)
	if err != nil {
		if domain.IsNotFound(err) {
			return nil
		}
		return err
	}
	if active > 0 {
		logger.Debug("leaving container running", "container", c.id.Name, "active_sessions", active)
		return nil
	}

	if err := c.rt.StopContainer(ctx, c.id.Name, c.stopTimeout); err != nil && !domain.IsNotFound(err) {
		return err
	}
	if err := c.rt.RemoveContainer(ctx, c.id.Name, false); err != nil && !domain.IsNotFound(err) {
		return err
	}
	logger.Debug("container torn down", "container", c.id.Name)
	return nil
}

// Exec runs a command in the directory's container, which must already
// be running.
func (c *Controller) Exec(ctx context.Context, name string, cmd []string, interactive bool) (int, error) {
	if name == "" {
		name = c.id.Name
	}
	rec, err := c.rt.InspectContainer(ctx, name)
	if err != nil {
		if domain.IsNotFound(err) {
			return 0, &domain.PreconditionError{
				Kind: domain.PreconditionNotRunning,
				Name: name,
				Hint: "run 'dev' to start it",
			}
		}
		return 0, err
	}
	if !rec.Running() {
		return 0, &domain.PreconditionError{
			Kind: domain.PreconditionNotRunning,
			Name: name,
			Hint: "run 'dev' to start it",
		}
	}

	return c.rt.ExecInteractive(ctx, name, domain.ExecSpec{
		Cmd:         cmd,
		Workdir:     c.cfg.WorkdirFor(c.id.SourcePath),
		Interactive: interactive,
		Env:         c.cfg.EnvStrings(),
	})
}

// Stop halts a running container without removing it. With no explicit
// name it targets the running managed containers, prompting when more
// than one is up.
func (c *Controller) Stop(ctx context.Context, explicitName string) error {
	if explicitName != "" {
		rec, err := c.rt.InspectContainer(ctx, explicitName)
		if err != nil {
			if domain.IsNotFound(err) {
				return &domain.PreconditionError{
					Kind: domain.PreconditionNotRunning,
					Name: explicitName,
				}
			}
			return err
		}
		if !rec.Running() {
			// Already stopped: the desired state holds.
			return nil
		}
		return c.stopOne(ctx, rec.Name)
	}

	all, err := c.rt.ListContainers(ctx, identity.NamePrefix)
	if err != nil {
		return err
	}
	var running []domain.ContainerRecord
	for _, rec := range all {
		if rec.Running() {
			running = append(running, rec)
		}
	}
	if len(running) == 0 {
		return &domain.PreconditionError{
			Kind: domain.PreconditionNotRunning,
			Name: identity.NamePrefix + "*",
			Hint: "no managed container is running",
		}
	}

	rec, err := c.sel.Select(running, "")
	if err != nil {
		return err
	}
	return c.stopOne(ctx, rec.Name)
}

func (c *Controller) stopOne(ctx context.Context, name string) error {
	logger.Info("stopping container", "container", name)
	if err := c.rt.StopContainer(ctx, name, c.stopTimeout); err != nil && !domain.IsNotFound(err) {
		return err
	}
	fmt.Fprintf(c.out, "stopped %s\n", name)
	return nil
}

// Delete removes a container. Running containers are refused unless
// force is set, in which case they are stopped first.
func (c *Controller) Delete(ctx context.Context, name string, force bool) error {
	if name == "" {
		name = c.id.Name
	}
	rec, err := c.rt.InspectContainer(ctx, name)
	if err != nil {
		return err
	}
	if rec.Running() {
		if !force {
			return &domain.PreconditionError{
				Kind: domain.PreconditionStillRunning,
				Name: name,
				Hint: "stop it first or pass --force",
			}
		}
		if err := c.rt.StopContainer(ctx, name, c.stopTimeout); err != nil && !domain.IsNotFound(err) {
			return err
		}
	}
	if err := c.rt.RemoveContainer(ctx, name, force); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "deleted %s\n", name)
	return nil
}

// Cleanup stops and removes every managed container, best effort:
// one container failing does not abort the sweep.
func (c *Controller) Cleanup(ctx context.Context) error {
	all, err := c.rt.ListContainers(ctx, identity.NamePrefix)
	if err != nil {
		return err
	}
	if len(all) == 0 {
		fmt.Fprintln(c.out, "nothing to clean up")
		return nil
	}

	var errs []error
	for _, rec := range all {
		if rec.Running() {
			if err := c.rt.StopContainer(ctx, rec.Name, c.stopTimeout); err != nil && !domain.IsNotFound(err) {
				errs = append(errs, fmt.Errorf("%s: %w", rec.Name, err))
				continue
			}
		}
		if err := c.rt.RemoveContainer(ctx, rec.Name, true); err != nil && !domain.IsNotFound(err) {
			errs = append(errs, fmt.Errorf("%s: %w", rec.Name, err))
			continue
		}
		fmt.Fprintf(c.out, "removed %s\n", rec.Name)
	}
	return errors.Join(errs...)
}

// Status lists all managed containers. A transport failure is retried
// once after a short pause before being surfaced.
func (c *Controller) Status(ctx context.Context) ([]domain.ContainerRecord, error) {
	recs, err := c.rt.ListContainers(ctx, identity.NamePrefix)
	if domain.IsTransportFailure(err) {
		logger.Debug("status list failed, retrying once", "error", err)
		select {
		case <-time.After(c.retryDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		recs, err = c.rt.ListContainers(ctx, identity.NamePrefix)
	}
	if err != nil {
		return nil, err
	}
	return recs, nil
}

// Logs streams the container's output. Stopped containers are refused;
// their logs are gone with the next removal anyway.
func (c *Controller) Logs(ctx context.Context, name string, follow bool, tail int) error {
	if name == "" {
		name = c.id.Name
	}
	rec, err := c.rt.InspectContainer(ctx, name)
	if err != nil {
		return err
	}
	if rec.State == domain.StateStopped {
		return &domain.PreconditionError{
			Kind: domain.PreconditionNotRunning,
			Name: name,
			Hint: "container is stopped",
		}
	}
	return c.rt.StreamLogs(ctx, name, follow, tail)
}

// Prune reclaims unused runtime resources. Pruning all images or
// volumes is destructive beyond this tool's own footprint, so it asks
// for confirmation first.
func (c *Controller) Prune(ctx context.Context, allImages, volumes bool) error {
	if allImages || volumes {
		ok, err := c.sel.Confirm("This removes resources not created by dev. Continue?", false)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(c.out, "aborted")
			return nil
		}
	}
	if err := c.rt.PruneSystem(ctx, allImages, volumes); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "prune complete")
	return nil
}

// PruneImages removes every dev image. Without force each run asks for
// a single confirmation covering the whole set.
func (c *Controller) PruneImages(ctx context.Context, force bool) error {
	images, err := c.rt.ListImages(ctx, config.ImageName+"*")
	if err != nil {
		return err
	}
	if len(images) == 0 {
		fmt.Fprintln(c.out, "no dev images found")
		return nil
	}

	if !force {
		msg := fmt.Sprintf("Remove %d dev image(s)?", len(images))
		ok, err := c.sel.Confirm(msg, false)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(c.out, "aborted")
			return nil
		}
	}

	var errs []error
	for _, img := range images {
		if err := c.rt.RemoveImage(ctx, img.RepoTag, force); err != nil && !domain.IsNotFound(err) {
			errs = append(errs, fmt.Errorf("%s: %w", img.RepoTag, err))
			continue
		}
		fmt.Fprintf(c.out, "removed %s (%s, %s)\n", img.RepoTag, img.ShortID(), bytesize.Format(img.Size))
	}
	return errors.Join(errs...)
}
