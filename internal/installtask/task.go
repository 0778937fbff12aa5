// Package installtask drives a single package through the
// download/extract/finalize pipeline and reports progress via signals.
package installtask

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"pacm/internal/archive"
	"pacm/internal/checksum"
	"pacm/internal/fsutil"
	"pacm/internal/pacmerr"
	"pacm/internal/pkgmodel"
	"pacm/internal/signal"
	"pacm/internal/transport"
)

// StateChange is the payload of the StateChange signal.
type StateChange struct {
	New pkgmodel.InstallState
	Old pkgmodel.InstallState
}

// Deps are the collaborators a Task needs; all are swappable for tests.
type Deps struct {
	Downloader       transport.Downloader
	ExtractorFor     func(fileName string) (archive.Extractor, error)
	ChecksumVerifier func(alg string) (checksum.Verifier, error)
	// Logger is nil-safe; a nil Logger falls back to a discard logger so
	// every call site can log unconditionally.
	Logger *zerolog.Logger
}

func (d Deps) withDefaults() Deps {
	if d.ExtractorFor == nil {
		d.ExtractorFor = archive.ForFile
	}
	if d.ChecksumVerifier == nil {
		d.ChecksumVerifier = func(alg string) (checksum.Verifier, error) {
			return checksum.New(checksum.Algorithm(alg))
		}
	}
	if d.Logger == nil {
		nop := zerolog.Nop()
		d.Logger = &nop
	}
	return d
}

// Task installs one package's resolved asset. It is not safe to Start a
// Task more than once; construct a new Task per attempt.
type Task struct {
	id     string
	local  *pkgmodel.LocalPackage
	remote *pkgmodel.RemotePackage
	asset  pkgmodel.Asset
	opts   pkgmodel.InstallOptions
	deps   Deps

	mu        sync.Mutex
	state     pkgmodel.InstallState
	progress  int
	completed bool

	progressSig *signal.Signal[int]
	stateSig    *signal.Signal[StateChange]
	completeSig *signal.Signal[struct{}]

	cancelled atomic.Bool
	cancel    context.CancelFunc
}

// New constructs a Task for the given already-resolved asset. It fails if
// the remote package or asset is invalid, or local is nil.
func New(id string, local *pkgmodel.LocalPackage, remote *pkgmodel.RemotePackage, asset pkgmodel.Asset, opts pkgmodel.InstallOptions, deps Deps) (*Task, error) {
	t := &Task{
		id:          id,
		local:       local,
		remote:      remote,
		asset:       asset,
		opts:        opts,
		deps:        deps.withDefaults(),
		state:       pkgmodel.InstallStateNone,
		progressSig: signal.New[int](),
		stateSig:    signal.New[StateChange](),
		completeSig: signal.New[struct{}](),
	}
	if !t.Valid() {
		return nil, pacmerr.New(pacmerr.InvalidPackage, id, "task inputs are invalid")
	}
	local.SetPendingAsset(asset)
	return t, nil
}

// Valid mirrors the source's task.valid(): a usable local package, a valid
// remote package, and a valid asset to install.
func (t *Task) Valid() bool {
	return t.local != nil && t.remote != nil && t.remote.Valid() && t.asset.Valid()
}

// ID returns the package id this task installs.
func (t *Task) ID() string { return t.id }

// Local returns the local package this task mutates.
func (t *Task) Local() *pkgmodel.LocalPackage { return t.local }

// State returns the task's current install state.
func (t *Task) State() pkgmodel.InstallState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Progress returns the last emitted progress value, 0-100.
func (t *Task) Progress() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.progress
}

// OnProgress subscribes to progress updates and returns a disposer.
func (t *Task) OnProgress(h func(int)) func() { return t.progressSig.Subscribe(h) }

// OnStateChange subscribes to state transitions and returns a disposer.
func (t *Task) OnStateChange(h func(StateChange)) func() { return t.stateSig.Subscribe(h) }

// OnComplete subscribes to the terminal completion signal and returns a
// disposer. The signal fires exactly once per task.
func (t *Task) OnComplete(h func()) func() {
	return t.completeSig.Subscribe(func(struct{}) { h() })
}

// IsComplete reports whether the task has already reached a terminal
// state. Useful for a caller that subscribes via OnComplete after the
// task may already have finished, since the signal only fires once.
func (t *Task) IsComplete() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.completed
}

// transition moves the task (and the backing LocalPackage) to newState,
// emitting StateChange. Illegal transitions are a programming error.
func (t *Task) transition(newState pkgmodel.InstallState) {
	t.mu.Lock()
	old := t.state
	if !legalTransition(old, newState) {
		t.mu.Unlock()
		panic(fmt.Sprintf("installtask: illegal transition %s -> %s", old, newState))
	}
	t.state = newState
	t.mu.Unlock()

	t.local.SetInstallState(newState)
	t.deps.Logger.Debug().
		Str("id", t.id).
		Str("version", t.asset.Version()).
		Str("from", string(old)).
		Str("to", string(newState)).
		Msg("installtask: state change")
	t.stateSig.Emit(StateChange{New: newState, Old: old})
}

func legalTransition(old, next pkgmodel.InstallState) bool {
	if old == next {
		return false
	}
	switch next {
	case pkgmodel.InstallStateCancelled, pkgmodel.InstallStateFailed:
		return true // any state may fail or be cancelled
	}
	switch old {
	case pkgmodel.InstallStateNone:
		return next == pkgmodel.InstallStateDownloading
	case pkgmodel.InstallStateDownloading:
		return next == pkgmodel.InstallStateExtracting
	case pkgmodel.InstallStateExtracting:
		return next == pkgmodel.InstallStateFinalizing
	case pkgmodel.InstallStateFinalizing:
		return next == pkgmodel.InstallStateInstalled
	default:
		return false
	}
}

func (t *Task) emitProgress(p int) {
	t.mu.Lock()
	if p < t.progress {
		p = t.progress
	}
	if p > 100 {
		p = 100
	}
	t.progress = p
	t.mu.Unlock()
	t.progressSig.Emit(p)
}

// setComplete is the single funnel reached from every terminal state. It
// emits Complete exactly once; the task is unusable afterward.
func (t *Task) setComplete() {
	t.mu.Lock()
	if t.completed {
		t.mu.Unlock()
		return
	}
	t.completed = true
	t.mu.Unlock()
	t.completeSig.Emit(struct{}{})
}

// Cancel aborts the task. It is idempotent and safe to call concurrently
// with Start from any goroutine.
func (t *Task) Cancel() {
	if !t.cancelled.CompareAndSwap(false, true) {
		return
	}
	t.mu.Lock()
	cancel := t.cancel
	t.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (t *Task) fail(kind pacmerr.Kind, msg string, cause error) error {
	err := pacmerr.Wrap(kind, t.id, msg, cause)
	t.local.AddError(err.Error())
	t.local.SetState(pkgmodel.StateFailed)
	t.deps.Logger.Error().
		Str("id", t.id).
		Str("version", t.asset.Version()).
		Str("kind", string(kind)).
		Err(err).
		Msg("installtask: failed")
	t.transition(pkgmodel.InstallStateFailed)
	if t.opts.ClearFailedCache {
		_ = fsutil.Unlink(t.archivePath())
	}
	t.setComplete()
	return err
}

func (t *Task) archivePath() string {
	return filepath.Join(t.opts.TempDir, t.asset.FileName())
}

func (t *Task) stagingDir() string {
	return filepath.Join(t.opts.TempDir, t.id)
}

// Start runs the full download/extract/finalize pipeline to completion,
// blocking the calling goroutine. Callers that want concurrency run
// multiple tasks each in their own goroutine.
func (t *Task) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.state != pkgmodel.InstallStateNone {
		t.mu.Unlock()
		return pacmerr.New(pacmerr.InvalidPackage, t.id, "task already started")
	}
	runCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.mu.Unlock()
	defer cancel()

	if t.cancelled.Load() {
		return t.doCancel()
	}

	t.deps.Logger.Info().Str("id", t.id).Str("version", t.asset.Version()).Msg("installtask: start")
	t.transition(pkgmodel.InstallStateDownloading)
	if err := t.download(runCtx); err != nil {
		if t.cancelled.Load() {
			return t.doCancel()
		}
		return err
	}

	if t.cancelled.Load() {
		return t.doCancel()
	}
	t.transition(pkgmodel.InstallStateExtracting)
	if err := t.extract(); err != nil {
		return err
	}

	if t.cancelled.Load() {
		return t.doCancel()
	}
	t.transition(pkgmodel.InstallStateFinalizing)
	return t.finalize()
}

func (t *Task) doCancel() error {
	t.transition(pkgmodel.InstallStateCancelled)
	t.setComplete()
	return pacmerr.New(pacmerr.DownloadFailed, t.id, "cancelled")
}

func (t *Task) download(ctx context.Context) error {
	if err := fsutil.EnsureDir(t.opts.TempDir); err != nil {
		return t.fail(pacmerr.DownloadFailed, "prepare temp dir", err)
	}
	url := t.asset.URL(0)
	if url == "" {
		return t.fail(pacmerr.DownloadFailed, "asset has no mirror", nil)
	}

	_, err := t.deps.Downloader.Download(ctx, url, t.archivePath(), transport.Auth{}, func(downloaded, total int64) {
		if total <= 0 {
			t.emitProgress(25)
			return
		}
		t.emitProgress(int(50 * downloaded / total))
	})
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return err
		}
		return t.fail(pacmerr.DownloadFailed, "download asset", err)
	}

	if t.asset.Checksum() != "" {
		verifier, verr := t.deps.ChecksumVerifier(t.opts.ChecksumAlgorithm)
		if verr != nil {
			return t.fail(pacmerr.ChecksumMismatch, "unsupported checksum algorithm", verr)
		}
		ok, verr := verifier.Verify(t.archivePath(), t.asset.Checksum())
		if verr != nil {
			return t.fail(pacmerr.ChecksumMismatch, "compute checksum", verr)
		}
		if !ok {
			return t.fail(pacmerr.ChecksumMismatch, "checksum does not match asset record", nil)
		}
	}
	t.deps.Logger.Debug().Str("id", t.id).Str("version", t.asset.Version()).Msg("installtask: download complete")
	t.emitProgress(50)
	return nil
}

func (t *Task) extract() error {
	extractor, err := t.deps.ExtractorFor(t.asset.FileName())
	if err != nil {
		return t.fail(pacmerr.ExtractFailed, "select extractor", err)
	}
	written, err := extractor.Extract(t.archivePath(), t.stagingDir())
	if err != nil {
		return t.fail(pacmerr.ExtractFailed, "extract archive", err)
	}
	for _, rel := range written {
		t.local.AddManifestFile(rel)
	}
	t.deps.Logger.Debug().Str("id", t.id).Str("version", t.asset.Version()).Int("files", len(written)).Msg("installtask: extract complete")
	t.emitProgress(90)
	return nil
}

func (t *Task) finalize() error {
	installDir := t.opts.InstallDir
	if installDir == "" {
		installDir = t.local.InstallDir()
	}
	err := FinalizeStaged(t.local, t.stagingDir(), installDir, t.asset)
	if err != nil {
		if isBusy(err) {
			t.local.AddError(pacmerr.Wrap(pacmerr.FinalizeBusy, t.id, "target file in use", err).Error())
			t.deps.Logger.Info().Str("id", t.id).Str("version", t.asset.Version()).Msg("installtask: finalize deferred, target busy")
			return pacmerr.Wrap(pacmerr.FinalizeBusy, t.id, "finalize deferred, target file in use", err)
		}
		return t.fail(pacmerr.FinalizeFailed, "finalize install", err)
	}

	t.transition(pkgmodel.InstallStateInstalled)
	t.deps.Logger.Info().Str("id", t.id).Str("version", t.asset.Version()).Msg("installtask: installed")
	t.emitProgress(100)
	t.setComplete()
	return nil
}

// FinalizeStaged moves every manifest file from stagingDir into
// installDir and marks local Installed with asset recorded. It has no
// dependency on a running Task or a remote package, so it also serves
// manager.FinalizeInstallations' restart-retry path, which only has the
// local manifest and its recorded pending asset to work with.
func FinalizeStaged(local *pkgmodel.LocalPackage, stagingDir, installDir string, asset pkgmodel.Asset) error {
	absDir, err := filepath.Abs(installDir)
	if err != nil {
		return fmt.Errorf("resolve install dir: %w", err)
	}
	installDir = absDir
	if err := fsutil.EnsureDir(installDir); err != nil {
		return fmt.Errorf("prepare install dir: %w", err)
	}

	for _, rel := range local.Manifest() {
		src := filepath.Join(stagingDir, rel)
		dst := filepath.Join(installDir, rel)
		if err := fsutil.Move(src, dst); err != nil {
			return err
		}
	}

	local.SetInstallDir(installDir)
	local.SetState(pkgmodel.StateInstalled)
	if err := local.SetInstalledAsset(asset); err != nil {
		return fmt.Errorf("record installed asset: %w", err)
	}
	_ = fsutil.RemoveTree(stagingDir)
	return nil
}

// IsBusy reports whether err indicates a finalize target was locked by
// another process, meaning the caller should leave the task pending
// rather than failing it.
func IsBusy(err error) bool { return isBusy(err) }

func isBusy(err error) bool {
	if os.IsPermission(err) {
		return true
	}
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return errors.Is(pathErr.Err, os.ErrPermission)
	}
	return false
}
