package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pacm/internal/installtask"
	"pacm/internal/manager"
	"pacm/internal/pkgmodel"
	"pacm/pkg/types"
)

// Service defines the methods required by the HTTP API layer. manager.Manager
// satisfies it directly; tests substitute a fake.
type Service interface {
	PackagePairs() []pkgmodel.PackagePair
	Status() types.StatusResponse
	InstallPackage(id string, opts pkgmodel.InstallOptions) (*installtask.Task, error)
	UpdatePackage(id string, opts pkgmodel.InstallOptions) (*installtask.Task, error)
	UninstallPackage(id string) error
	GetInstallTask(id string) (*installtask.Task, bool)
}

// NewMux builds the admin/status HTTP API router: request id, real ip,
// recoverer, compression, security headers, optional CORS, and the
// read/write façade over svc described by SPEC_FULL.md's HTTP surface.
func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(MetricsMiddleware)
	r.Use(RequestLogger)
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
		}))
	}

	r.Get("/packages", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, pairsToDocs(svc.PackagePairs()))
	})

	r.Get("/packages/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		for _, pair := range svc.PackagePairs() {
			if pair.ID() == id {
				writeJSON(w, http.StatusOK, pairToDoc(pair))
				return
			}
		}
		writeJSONError(w, http.StatusNotFound, manager.ErrNotFound(id).Error())
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Status())
	})

	r.Post("/install", func(w http.ResponseWriter, r *http.Request) {
		var req types.InstallRequest
		if !decodeJSONBody(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.ID) == "" {
			writeJSONError(w, http.StatusBadRequest, "id is required")
			return
		}
		opts := pkgmodel.InstallOptions{Version: req.Version, SDKVersion: req.SDKVersion}
		task, err := svc.InstallPackage(req.ID, opts)
		handleTaskResult(w, task, err)
	})

	r.Post("/uninstall/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := svc.UninstallPackage(id); err != nil {
			writeErrorWithStatus(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"id": id, "state": "uninstalled"})
	})

	r.Post("/update/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var req types.InstallRequest
		_ = decodeOptionalJSONBody(r, &req)
		opts := pkgmodel.InstallOptions{Version: req.Version, SDKVersion: req.SDKVersion}
		task, err := svc.UpdatePackage(id, opts)
		handleTaskResult(w, task, err)
	})

	r.Get("/tasks/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		task, ok := svc.GetInstallTask(id)
		if !ok {
			writeJSONError(w, http.StatusNotFound, manager.ErrNotFound(id).Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"id":       task.ID(),
			"state":    string(task.State()),
			"progress": task.Progress(),
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ready"))
	})

	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)

	return r
}

func handleTaskResult(w http.ResponseWriter, task *installtask.Task, err error) {
	if err != nil {
		writeErrorWithStatus(w, err)
		return
	}
	if task == nil {
		writeJSON(w, http.StatusOK, map[string]string{"state": "up-to-date"})
		return
	}
	runningTasks.Add(1)
	SetActiveTasks(int(runningTasks.Load()))
	go func() {
		defer func() {
			runningTasks.Add(-1)
			SetActiveTasks(int(runningTasks.Load()))
		}()
		start := time.Now()
		result := "installed"
		if err := task.Start(serverBaseCtx); err != nil {
			result = "failed"
		}
		ObserveInstallResult(result)
		ObserveTaskDuration(time.Since(start))
	}()
	writeJSON(w, http.StatusAccepted, map[string]string{"id": task.ID(), "state": "started"})
}

// runningTasks tracks install tasks started by this process's HTTP API, for
// the active_tasks gauge; the manager's own task map is the source of truth
// for correctness, this is purely a metrics mirror.
var runningTasks atomic.Int64

func writeErrorWithStatus(w http.ResponseWriter, err error) {
	switch {
	case manager.IsNotFound(err):
		writeJSONError(w, http.StatusNotFound, err.Error())
	case manager.IsConflictingLock(err), manager.IsUpToDate(err):
		writeJSONError(w, http.StatusConflict, err.Error())
	case manager.IsBusy(err):
		writeJSONError(w, http.StatusTooManyRequests, err.Error())
	case isHTTPError(err):
		he := err.(HTTPError)
		writeJSONError(w, he.StatusCode(), he.Error())
	default:
		writeJSONError(w, http.StatusInternalServerError, err.Error())
	}
}

func isHTTPError(err error) bool {
	_, ok := err.(HTTPError)
	return ok
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// decodeOptionalJSONBody decodes a possibly empty body; a missing or
// empty body leaves v at its zero value rather than erroring.
func decodeOptionalJSONBody(r *http.Request, v any) error {
	if r.ContentLength == 0 {
		return nil
	}
	return json.NewDecoder(r.Body).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func pairToDoc(pair pkgmodel.PackagePair) map[string]any {
	doc := map[string]any{"id": pair.ID(), "name": pair.Name()}
	if pair.Local != nil {
		doc["local"] = pair.Local.Doc()
	}
	if pair.Remote != nil {
		doc["remote"] = pair.Remote.Doc()
	}
	return doc
}

func pairsToDocs(pairs []pkgmodel.PackagePair) []map[string]any {
	out := make([]map[string]any, 0, len(pairs))
	for _, pair := range pairs {
		out = append(out, pairToDoc(pair))
	}
	return out
}
