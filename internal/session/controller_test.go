package session

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dev/internal/domain"
)

// fakeRuntime is an in-memory Runtime backed by a map of records. Every
// mutation is also appended to calls so tests can assert sequencing.
type fakeRuntime struct {
	containers map[string]*domain.ContainerRecord
	images     []domain.ImageRecord
	imageBuilt bool
	createRace bool
	activeExec map[string]int
	calls      []string

	failWith map[string]error // method name -> forced error
	listErrs []error          // consumed by successive ListContainers calls
}

func newFakeRuntime() *fakeRuntime {
	return &fakeRuntime{
		containers: make(map[string]*domain.ContainerRecord),
		activeExec: make(map[string]int),
		imageBuilt: true,
		failWith:   make(map[string]error),
	}
}

func notFound(name string) error {
	return &domain.RuntimeError{Kind: domain.RuntimeNotFound, Name: name}
}

func (f *fakeRuntime) record(call string) { f.calls = append(f.calls, call) }

func (f *fakeRuntime) ImageExists(ctx context.Context, tag string) (bool, error) {
	f.record("ImageExists")
	return f.imageBuilt, f.failWith["ImageExists"]
}

func (f *fakeRuntime) BuildImage(ctx context.Context, tag, contextDir string, noCache bool) error {
	f.record("BuildImage")
	return f.failWith["BuildImage"]
}

func (f *fakeRuntime) CreateContainer(ctx context.Context, id domain.ContainerIdentity, imageRef string, cfg *domain.ResolvedConfig) error {
	f.record("CreateContainer")
	if err := f.failWith["CreateContainer"]; err != nil {
		return err
	}
	f.containers[id.Name] = &domain.ContainerRecord{
		ID:        "fake-" + id.Name,
		Name:      id.Name,
		State:     domain.StateCreated,
		CreatedAt: time.Now(),
	}
	if f.createRace {
		return &domain.RuntimeError{Kind: domain.RuntimeAlreadyExists, Name: id.Name}
	}
	return nil
}

func (f *fakeRuntime) StartContainer(ctx context.Context, name string) error {
	f.record("StartContainer")
	if err := f.failWith["StartContainer"]; err != nil {
		return err
	}
	rec, ok := f.containers[name]
	if !ok {
		return notFound(name)
	}
	rec.State = domain.StateRunning
	return nil
}

func (f *fakeRuntime) StopContainer(ctx context.Context, name string, timeout time.Duration) error {
	f.record("StopContainer")
	if err := f.failWith["StopContainer"]; err != nil {
		return err
	}
	rec, ok := f.containers[name]
	if !ok {
		return notFound(name)
	}
	rec.State = domain.StateStopped
	return nil
}

func (f *fakeRuntime) RemoveContainer(ctx context.Context, name string, force bool) error {
	f.record("RemoveContainer")
	if err := f.failWith["RemoveContainer"]; err != nil {
		return err
	}
	if _, ok := f.containers[name]; !ok {
		return notFound(name)
	}
	delete(f.containers, name)
	return nil
}

func (f *fakeRuntime) InspectContainer(ctx context.Context, name string) (*domain.ContainerRecord, error) {
	f.record("InspectContainer")
	if err := f.failWith["InspectContainer"]; err != nil {
		return nil, err
	}
	rec, ok := f.containers[name]
	if !ok {
		return nil, notFound(name)
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeRuntime) ListContainers(ctx context.Context, namePrefix string) ([]domain.ContainerRecord, error) {
	f.record("ListContainers")
	if len(f.listErrs) > 0 {
		err := f.listErrs[0]
		f.listErrs = f.listErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	var out []domain.ContainerRecord
	for _, rec := range f.containers {
		out = append(out, *rec)
	}
	return out, nil
}

func (f *fakeRuntime) ExecInteractive(ctx context.Context, name string, spec domain.ExecSpec) (int, error) {
	f.record("ExecInteractive")
	if err := f.failWith["ExecInteractive"]; err != nil {
		return 0, err
	}
	if rec, ok := f.containers[name]; !ok || rec.State != domain.StateRunning {
		return 0, notFound(name)
	}
	return 0, nil
}

func (f *fakeRuntime) ActiveExecs(ctx context.Context, name string) (int, error) {
	f.record("ActiveExecs")
	if _, ok := f.containers[name]; !ok {
		return 0, notFound(name)
	}
	return f.activeExec[name], nil
}

func (f *fakeRuntime) StreamLogs(ctx context.Context, name string, follow bool, tail int) error {
	f.record("StreamLogs")
	return f.failWith["StreamLogs"]
}

func (f *fakeRuntime) ListImages(ctx context.Context, refPattern string) ([]domain.ImageRecord, error) {
	f.record("ListImages")
	return f.images, f.failWith["ListImages"]
}

func (f *fakeRuntime) RemoveImage(ctx context.Context, ref string, force bool) error {
	f.record("RemoveImage")
	if err := f.failWith["RemoveImage"]; err != nil {
		return err
	}
	for i, img := range f.images {
		if img.RepoTag == ref {
			f.images = append(f.images[:i], f.images[i+1:]...)
			return nil
		}
	}
	return notFound(ref)
}

func (f *fakeRuntime) PruneSystem(ctx context.Context, allImages, volumes bool) error {
	f.record("PruneSystem")
	return f.failWith["PruneSystem"]
}

func alwaysConfirm(answer bool) *Selector {
	return &Selector{
		choose:  func(string, []string) (int, error) { return 0, nil },
		confirm: func(string, bool) (bool, error) { return answer, nil },
	}
}

func testController(rt *fakeRuntime) *Controller {
	cfg := &domain.ResolvedConfig{
		DefaultWorkdir: "/home/me",
		Mounts: []domain.MountSpec{
			{HostPath: "/home/me/code", ContainerPath: "/home/me/code"},
		},
	}
	ctl := NewController(rt, alwaysConfirm(true), cfg, domain.ContainerIdentity{
		Name:       "dev-abc123def456",
		SourcePath: "/home/me/code/project",
	})
	ctl.out = &bytes.Buffer{}
	ctl.retryDelay = time.Millisecond
	return ctl
}

func TestEnterCreatesStartsAndTearsDown(t *testing.T) {
	rt := newFakeRuntime()
	ctl := testController(rt)

	code, err := ctl.Enter(context.Background())

	require.NoError(t, err)
	assert.Zero(t, code)
	assert.Equal(t, []string{
		"InspectContainer", "ImageExists", "CreateContainer",
		"StartContainer", "ExecInteractive", "ActiveExecs",
		"StopContainer", "RemoveContainer",
	}, rt.calls)
	assert.Empty(t, rt.containers, "idle container must be removed after exit")
}

func TestEnterWithoutImageHintsAtBuild(t *testing.T) {
	rt := newFakeRuntime()
	rt.imageBuilt = false
	ctl := testController(rt)

	_, err := ctl.Enter(context.Background())

	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err))
	assert.Contains(t, err.Error(), "dev build")
}

func TestEnterAttachesToRunningContainer(t *testing.T) {
	rt := newFakeRuntime()
	rt.containers["dev-abc123def456"] = &domain.ContainerRecord{
		ID: "x", Name: "dev-abc123def456", State: domain.StateRunning,
	}
	ctl := testController(rt)

	_, err := ctl.Enter(context.Background())

	require.NoError(t, err)
	assert.NotContains(t, rt.calls, "CreateContainer")
	assert.NotContains(t, rt.calls, "StartContainer")
	assert.Contains(t, rt.calls, "ExecInteractive")
}

func TestEnterStartsStoppedContainer(t *testing.T) {
	rt := newFakeRuntime()
	rt.containers["dev-abc123def456"] = &domain.ContainerRecord{
		ID: "x", Name: "dev-abc123def456", State: domain.StateStopped,
	}
	ctl := testController(rt)

	_, err := ctl.Enter(context.Background())

	require.NoError(t, err)
	assert.NotContains(t, rt.calls, "CreateContainer")
	assert.Contains(t, rt.calls, "StartContainer")
}

func TestEnterAcceptsCreateRace(t *testing.T) {
	rt := newFakeRuntime()
	// A concurrent invocation wins the create between this one's inspect
	// and its create call: create reports AlreadyExists, but the
	// container is there.
	rt.createRace = true
	ctl := testController(rt)

	_, err := ctl.Enter(context.Background())

	require.NoError(t, err)
	assert.Contains(t, rt.calls, "StartContainer")
	assert.Contains(t, rt.calls, "ExecInteractive")
}

func TestEnterKeepsContainerWithOtherSessions(t *testing.T) {
	rt := newFakeRuntime()
	rt.containers["dev-abc123def456"] = &domain.ContainerRecord{
		ID: "x", Name: "dev-abc123def456", State: domain.StateRunning,
	}
	rt.activeExec["dev-abc123def456"] = 1
	ctl := testController(rt)

	_, err := ctl.Enter(context.Background())

	require.NoError(t, err)
	assert.NotContains(t, rt.calls, "StopContainer")
	assert.Contains(t, rt.containers, "dev-abc123def456")
}

func TestExecRefusesNonRunning(t *testing.T) {
	states := []domain.ContainerState{domain.StateCreated, domain.StateStopped}
	for _, state := range states {
		t.Run(string(state), func(t *testing.T) {
			rt := newFakeRuntime()
			rt.containers["dev-abc123def456"] = &domain.ContainerRecord{
				ID: "x", Name: "dev-abc123def456", State: state,
			}
			ctl := testController(rt)

			_, err := ctl.Exec(context.Background(), "", []string{"ls"}, false)

			var pre *domain.PreconditionError
			require.ErrorAs(t, err, &pre)
			assert.Equal(t, domain.PreconditionNotRunning, pre.Kind)
		})
	}
}

func TestExecAbsentContainer(t *testing.T) {
	rt := newFakeRuntime()
	ctl := testController(rt)

	_, err := ctl.Exec(context.Background(), "", []string{"ls"}, false)

	var pre *domain.PreconditionError
	require.ErrorAs(t, err, &pre)
	assert.Equal(t, domain.PreconditionNotRunning, pre.Kind)
}

func TestStopExplicitAbsent(t *testing.T) {
	rt := newFakeRuntime()
	ctl := testController(rt)

	err := ctl.Stop(context.Background(), "dev-nothere")

	var pre *domain.PreconditionError
	require.ErrorAs(t, err, &pre)
	assert.Equal(t, domain.PreconditionNotRunning, pre.Kind)
}

func TestStopExplicitAlreadyStoppedIsNoop(t *testing.T) {
	rt := newFakeRuntime()
	rt.containers["dev-aaa"] = &domain.ContainerRecord{
		ID: "x", Name: "dev-aaa", State: domain.StateStopped,
	}
	ctl := testController(rt)

	err := ctl.Stop(context.Background(), "dev-aaa")

	require.NoError(t, err)
	assert.NotContains(t, rt.calls, "StopContainer")
}

func TestStopNoRunningContainers(t *testing.T) {
	rt := newFakeRuntime()
	rt.containers["dev-aaa"] = &domain.ContainerRecord{
		ID: "x", Name: "dev-aaa", State: domain.StateStopped,
	}
	ctl := testController(rt)

	err := ctl.Stop(context.Background(), "")

	var pre *domain.PreconditionError
	require.ErrorAs(t, err, &pre)
	assert.Equal(t, domain.PreconditionNotRunning, pre.Kind)
}

func TestStopSingleRunningContainer(t *testing.T) {
	rt := newFakeRuntime()
	rt.containers["dev-aaa"] = &domain.ContainerRecord{
		ID: "x", Name: "dev-aaa", State: domain.StateRunning,
	}
	ctl := testController(rt)

	err := ctl.Stop(context.Background(), "")

	require.NoError(t, err)
	assert.Equal(t, domain.StateStopped, rt.containers["dev-aaa"].State)
}

func TestDeleteRunningWithoutForce(t *testing.T) {
	rt := newFakeRuntime()
	rt.containers["dev-abc123def456"] = &domain.ContainerRecord{
		ID: "x", Name: "dev-abc123def456", State: domain.StateRunning,
	}
	ctl := testController(rt)

	err := ctl.Delete(context.Background(), "", false)

	var pre *domain.PreconditionError
	require.ErrorAs(t, err, &pre)
	assert.Equal(t, domain.PreconditionStillRunning, pre.Kind)
	assert.Contains(t, rt.containers, "dev-abc123def456")
}

func TestDeleteRunningWithForce(t *testing.T) {
	rt := newFakeRuntime()
	rt.containers["dev-abc123def456"] = &domain.ContainerRecord{
		ID: "x", Name: "dev-abc123def456", State: domain.StateRunning,
	}
	ctl := testController(rt)

	err := ctl.Delete(context.Background(), "", true)

	require.NoError(t, err)
	assert.Empty(t, rt.containers)
	assert.Contains(t, rt.calls, "StopContainer")
}

func TestDeleteAbsentSurfacesNotFound(t *testing.T) {
	rt := newFakeRuntime()
	ctl := testController(rt)

	err := ctl.Delete(context.Background(), "dev-nothere", false)

	assert.True(t, domain.IsNotFound(err))
}

func TestCleanupRemovesEverythingBestEffort(t *testing.T) {
	rt := newFakeRuntime()
	rt.containers["dev-aaa"] = &domain.ContainerRecord{
		ID: "a", Name: "dev-aaa", State: domain.StateRunning,
	}
	rt.containers["dev-bbb"] = &domain.ContainerRecord{
		ID: "b", Name: "dev-bbb", State: domain.StateStopped,
	}
	ctl := testController(rt)

	err := ctl.Cleanup(context.Background())

	require.NoError(t, err)
	assert.Empty(t, rt.containers)
}

func TestCleanupAggregatesFailures(t *testing.T) {
	rt := newFakeRuntime()
	rt.containers["dev-aaa"] = &domain.ContainerRecord{
		ID: "a", Name: "dev-aaa", State: domain.StateStopped,
	}
	rt.failWith["RemoveContainer"] = &domain.RuntimeError{
		Kind:  domain.RuntimeTransportFailure,
		Name:  "dev-aaa",
		Cause: errors.New("daemon hiccup"),
	}
	ctl := testController(rt)

	err := ctl.Cleanup(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "dev-aaa")
}

func TestStatusRetriesTransportFailureOnce(t *testing.T) {
	rt := newFakeRuntime()
	rt.containers["dev-aaa"] = &domain.ContainerRecord{
		ID: "a", Name: "dev-aaa", State: domain.StateRunning,
	}
	rt.listErrs = []error{
		&domain.RuntimeError{Kind: domain.RuntimeTransportFailure, Name: "daemon"},
		nil,
	}
	ctl := testController(rt)

	recs, err := ctl.Status(context.Background())

	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestStatusGivesUpAfterSecondFailure(t *testing.T) {
	rt := newFakeRuntime()
	transport := &domain.RuntimeError{Kind: domain.RuntimeTransportFailure, Name: "daemon"}
	rt.listErrs = []error{transport, transport}
	ctl := testController(rt)

	_, err := ctl.Status(context.Background())

	assert.True(t, domain.IsTransportFailure(err))
}

func TestLogsRefusesStoppedContainer(t *testing.T) {
	rt := newFakeRuntime()
	rt.containers["dev-abc123def456"] = &domain.ContainerRecord{
		ID: "x", Name: "dev-abc123def456", State: domain.StateStopped,
	}
	ctl := testController(rt)

	err := ctl.Logs(context.Background(), "", false, 0)

	var pre *domain.PreconditionError
	require.ErrorAs(t, err, &pre)
	assert.Equal(t, domain.PreconditionNotRunning, pre.Kind)
}

func TestLogsStreamsRunningContainer(t *testing.T) {
	rt := newFakeRuntime()
	rt.containers["dev-abc123def456"] = &domain.ContainerRecord{
		ID: "x", Name: "dev-abc123def456", State: domain.StateRunning,
	}
	ctl := testController(rt)

	err := ctl.Logs(context.Background(), "", true, 50)

	require.NoError(t, err)
	assert.Contains(t, rt.calls, "StreamLogs")
}

func TestPruneAllAbortsWhenDeclined(t *testing.T) {
	rt := newFakeRuntime()
	ctl := testController(rt)
	ctl.sel = alwaysConfirm(false)

	err := ctl.Prune(context.Background(), true, false)

	require.NoError(t, err)
	assert.NotContains(t, rt.calls, "PruneSystem")
}

func TestPruneDefaultSkipsConfirmation(t *testing.T) {
	rt := newFakeRuntime()
	ctl := testController(rt)
	ctl.sel = alwaysConfirm(false) // would abort if asked

	err := ctl.Prune(context.Background(), false, false)

	require.NoError(t, err)
	assert.Contains(t, rt.calls, "PruneSystem")
}

func TestPruneImagesRemovesAll(t *testing.T) {
	rt := newFakeRuntime()
	rt.images = []domain.ImageRecord{
		{ID: "sha256:aaa", RepoTag: "dev-env:latest", Size: 100},
		{ID: "sha256:bbb", RepoTag: "dev-env:old", Size: 90},
	}
	ctl := testController(rt)

	err := ctl.PruneImages(context.Background(), true)

	require.NoError(t, err)
	assert.Empty(t, rt.images)
}

func TestPruneImagesNothingToDo(t *testing.T) {
	rt := newFakeRuntime()
	ctl := testController(rt)

	err := ctl.PruneImages(context.Background(), false)

	require.NoError(t, err)
	assert.NotContains(t, rt.calls, "RemoveImage")
}
