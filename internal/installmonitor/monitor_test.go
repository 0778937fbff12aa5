package installmonitor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"pacm/internal/archive"
	"pacm/internal/installtask"
	"pacm/internal/pkgmodel"
	"pacm/internal/transport"
	"pacm/pkg/types"
)

type fakeDownloader struct{ content []byte }

func (f fakeDownloader) Download(ctx context.Context, url, dest string, auth transport.Auth, progress transport.ProgressFunc) (int64, error) {
	if err := os.WriteFile(dest, f.content, 0o644); err != nil {
		return 0, err
	}
	return int64(len(f.content)), nil
}

type fakeExtractor struct{ name string }

func (f fakeExtractor) Extract(srcFile, destDir string) ([]string, error) {
	full := filepath.Join(destDir, f.name)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(full, []byte("x"), 0o644); err != nil {
		return nil, err
	}
	return []string{f.name}, nil
}

func newTask(t *testing.T, id string) *installtask.Task {
	t.Helper()
	remote := pkgmodel.NewRemotePackage(types.RemotePackageDoc{
		PackageDoc: types.PackageDoc{ID: id, Name: id, Type: "plugin"},
		Assets:     []types.Asset{{FileName: id + ".zip", Version: "1.0.0", Mirrors: []types.Mirror{{URL: "http://x/" + id}}}},
	})
	local := pkgmodel.NewLocalPackageFromRemote(remote)
	asset, err := remote.LatestAsset()
	if err != nil {
		t.Fatalf("LatestAsset: %v", err)
	}
	opts := pkgmodel.InstallOptions{
		TempDir:    filepath.Join(t.TempDir(), "tmp-"+id),
		InstallDir: filepath.Join(t.TempDir(), "install-"+id),
	}
	deps := installtask.Deps{
		Downloader:   fakeDownloader{content: []byte("bytes")},
		ExtractorFor: func(string) (archive.Extractor, error) { return fakeExtractor{name: "bin/" + id}, nil },
	}
	task, err := installtask.New(id, local, remote, asset, opts, deps)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return task
}

func TestMonitorAggregatesProgressAndCompletes(t *testing.T) {
	m := New()
	tasks := []*installtask.Task{newTask(t, "a"), newTask(t, "b"), newTask(t, "c")}
	for _, task := range tasks {
		if err := m.AddTask(task); err != nil {
			t.Fatalf("AddTask: %v", err)
		}
	}

	var progressValues []int
	m.OnProgress(func(p int) { progressValues = append(progressValues, p) })

	doneCh := make(chan []*pkgmodel.LocalPackage, 1)
	m.OnComplete(func(pkgs []*pkgmodel.LocalPackage) { doneCh <- pkgs })

	for _, task := range tasks {
		if err := task.Start(context.Background()); err != nil {
			t.Fatalf("Start: %v", err)
		}
	}

	select {
	case pkgs := <-doneCh:
		if len(pkgs) != 3 {
			t.Fatalf("expected 3 packages in Complete payload, got %d", len(pkgs))
		}
	default:
		t.Fatalf("expected Complete to have fired synchronously after the last task finished")
	}

	if !m.IsComplete() {
		t.Fatalf("expected monitor to report complete")
	}
	if len(progressValues) != 3 {
		t.Fatalf("expected 3 progress emissions, got %v", progressValues)
	}
	if progressValues[len(progressValues)-1] != 100 {
		t.Fatalf("expected final progress 100, got %d", progressValues[len(progressValues)-1])
	}
	for i := 1; i < len(progressValues); i++ {
		if progressValues[i] < progressValues[i-1] {
			t.Fatalf("expected monotonic progress, got %v", progressValues)
		}
	}
}

func TestMonitorRejectsInvalidTaskConstruction(t *testing.T) {
	remote := pkgmodel.NewRemotePackage(types.RemotePackageDoc{})
	local := pkgmodel.NewLocalPackage(types.LocalPackageDoc{})
	_, err := installtask.New("x", local, remote, pkgmodel.Asset{}, pkgmodel.InstallOptions{}, installtask.Deps{})
	if err == nil {
		t.Fatalf("expected task construction to reject an invalid remote/asset pair before it ever reaches a monitor")
	}
}

func TestMonitorTaskStateFanOut(t *testing.T) {
	m := New()
	task := newTask(t, "solo")
	if err := m.AddTask(task); err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	var seen []TaskEvent
	m.OnTaskStateChange(func(e TaskEvent) { seen = append(seen, e) })

	if err := task.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if len(seen) == 0 {
		t.Fatalf("expected fanned-out state change events")
	}
	for _, e := range seen {
		if e.ID != "solo" {
			t.Fatalf("expected id 'solo', got %q", e.ID)
		}
	}
}
