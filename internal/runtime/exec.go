package runtime

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/pkg/stdcopy"
	"golang.org/x/term"

	"dev/internal/domain"
	"dev/pkg/logger"
)

// ExecInteractive runs a command in the container with the caller's
// standard streams attached, blocking until the remote process exits or
// ctx is cancelled. Cancellation tears down the local attachment only;
// the container itself is left untouched. Returns the remote exit code.
func (c *Client) ExecInteractive(ctx context.Context, name string, opts domain.ExecSpec) (int, error) {
	stdinFd := int(os.Stdin.Fd())
	tty := opts.Interactive && term.IsTerminal(stdinFd)

	execResp, err := c.api.ContainerExecCreate(ctx, name, container.ExecOptions{
		Cmd:          opts.Cmd,
		WorkingDir:   opts.Workdir,
		Env:          opts.Env,
		Tty:          tty,
		AttachStdin:  opts.Interactive,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return 0, wrapErr(name, err)
	}

	attach, err := c.api.ContainerExecAttach(ctx, execResp.ID, container.ExecStartOptions{Tty: tty})
	if err != nil {
		return 0, wrapErr(name, err)
	}
	defer attach.Close()

	if tty {
		oldState, err := term.MakeRaw(stdinFd)
		if err != nil {
			return 0, wrapErr(name, err)
		}
		defer term.Restore(stdinFd, oldState)

		resizeCtx, cancelResize := context.WithCancel(ctx)
		defer cancelResize()
		go c.propagateResize(resizeCtx, execResp.ID)
	}

	outDone := make(chan error, 1)
	go func() {
		var copyErr error
		if tty {
			_, copyErr = io.Copy(os.Stdout, attach.Reader)
		} else {
			_, copyErr = stdcopy.StdCopy(os.Stdout, os.Stderr, attach.Reader)
		}
		outDone <- copyErr
	}()

	if opts.Interactive {
		go func() {
			io.Copy(attach.Conn, os.Stdin)
			attach.CloseWrite()
		}()
	}

	select {
	case copyErr := <-outDone:
		if copyErr != nil && !errors.Is(copyErr, io.EOF) {
			return 0, wrapErr(name, copyErr)
		}
	case <-ctx.Done():
		attach.Close()
		return 0, ctx.Err()
	}

	inspect, err := c.api.ContainerExecInspect(context.WithoutCancel(ctx), execResp.ID)
	if err != nil {
		return 0, wrapErr(name, err)
	}
	logger.Debug("exec finished", "container", name, "exit_code", inspect.ExitCode)
	return inspect.ExitCode, nil
}

// propagateResize keeps the remote TTY sized to the local terminal.
func (c *Client) propagateResize(ctx context.Context, execID string) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGWINCH)
	defer signal.Stop(sigs)

	resize := func() {
		width, height, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil {
			return
		}
		c.api.ContainerExecResize(ctx, execID, container.ResizeOptions{
			Height: uint(height),
			Width:  uint(width),
		})
	}

	resize()
	for {
		select {
		case <-ctx.Done():
			return
		case <-sigs:
			resize()
		}
	}
}

// StreamLogs copies the container's log output to the caller's streams.
// In follow mode it runs until ctx is cancelled.
func (c *Client) StreamLogs(ctx context.Context, name string, follow bool, tail int) error {
	inspect, err := c.api.ContainerInspect(ctx, name)
	if err != nil {
		return wrapErr(name, err)
	}

	opts := container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     follow,
	}
	if tail > 0 {
		opts.Tail = strconv.Itoa(tail)
	}

	rc, err := c.api.ContainerLogs(ctx, name, opts)
	if err != nil {
		return wrapErr(name, err)
	}
	defer rc.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			rc.Close()
		case <-done:
		}
	}()

	// Containers created by this tool run with a TTY, in which case the
	// log stream is not multiplexed.
	if inspect.Config != nil && inspect.Config.Tty {
		_, err = io.Copy(os.Stdout, rc)
	} else {
		_, err = stdcopy.StdCopy(os.Stdout, os.Stderr, rc)
	}
	if err != nil && !errors.Is(err, io.EOF) && ctx.Err() == nil {
		return wrapErr(name, err)
	}
	return nil
}
