package main

import (
	"net/http"
	"net/http/pprof"
	"os"
	"path"
	"path/filepath"

	_ "github.com/jeamon/classic-reads/docs"
	"github.com/julienschmidt/httprouter"
	httpswagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
)

// MiddlewareMap contains middlwares chain to
// use for public-facing and ops requests.
type MiddlewareMap struct {
	public func(httprouter.Handle) httprouter.Handle
	ops    func(httprouter.Handle) httprouter.Handle
}

// SetupRoutes injects the pages, ops and docs endpoints.
func (api *APIHandler) SetupRoutes(router *httprouter.Router, m *MiddlewareMap) *httprouter.Router {
	router.RedirectTrailingSlash = true
	router.HandleMethodNotAllowed = false
	api.SetupRequestRoutes(router, m)
	if api.config.OpsEndpointsEnable {
		api.SetupOpsRoutes(router, m)
	}
	router.GET("/swagger/*any", m.public(WrapHandler(httpswagger.WrapHandler)))
	router.NotFound = UnwrapHandle(m.public(api.NotFound(api.config.Server.StaticDir)))
	return router
}

// SetupRequestRoutes injects the book request pages.
func (api *APIHandler) SetupRequestRoutes(router *httprouter.Router, m *MiddlewareMap) *httprouter.Router {
	router.GET("/", m.public(api.Index))
	router.POST("/submit-request", m.public(api.RateLimitMiddleware(api.SubmitRequest)))
	router.GET("/view-requests", m.public(api.ViewRequests))
	return router
}

// SetupOpsRoutes injects internal operations related endpoints.
func (api *APIHandler) SetupOpsRoutes(router *httprouter.Router, m *MiddlewareMap) *httprouter.Router {
	router.GET("/status", m.ops(api.Status))
	router.GET("/ops/configs", m.ops(api.GetConfigs))
	router.GET("/ops/stats", m.ops(api.GetStatistics))
	router.GET("/ops/maintenance", m.ops(api.Maintenance))
	router.GET("/ops/debug/vars", m.ops(GetMemStats))
	router.GET("/ops/archive", m.ops(api.GetArchive))

	if api.config.ProfilerEnable {
		router.GET("/ops/debug/pprof/", m.ops(WrapHandler(http.HandlerFunc(pprof.Index))))
		router.GET("/ops/debug/pprof/profile", m.ops(WrapHandler(http.HandlerFunc(pprof.Profile))))
		router.GET("/ops/debug/pprof/trace", m.ops(WrapHandler(http.HandlerFunc(pprof.Trace))))
		router.GET("/ops/debug/pprof/symbol", m.ops(WrapHandler(http.HandlerFunc(pprof.Symbol))))
		router.GET("/ops/debug/pprof/cmdline", m.ops(WrapHandler(http.HandlerFunc(pprof.Cmdline))))
		for _, name := range []string{"heap", "allocs", "goroutine", "threadcreate", "block", "mutex"} {
			router.GET("/ops/debug/pprof/"+name, m.ops(WrapHandler(pprof.Handler(name))))
		}
	}
	return router
}

// WrapHandler adapts a standard handler to the router signature.
func WrapHandler(h http.Handler) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		h.ServeHTTP(w, r)
	}
}

// UnwrapHandle adapts a router handle to a standard handler.
func UnwrapHandle(h httprouter.Handle) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h(w, r, nil)
	})
}

// NotFound serves files from the static folder for GET and HEAD calls.
// Anything else, or a missing file, gets a json 404.
func (api *APIHandler) NotFound(staticDir string) httprouter.Handle {
	files := http.FileServer(http.Dir(staticDir))
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		if (r.Method == http.MethodGet || r.Method == http.MethodHead) && staticFileExists(staticDir, r.URL.Path) {
			files.ServeHTTP(w, r)
			return
		}
		requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
		errResp := NewAPIError(requestID, http.StatusNotFound, "resource not found.", EmptyData)
		if err := WriteErrorResponse(r.Context(), w, errResp); err != nil {
			api.logger.Error("failed to send not found response", zap.String("request.id", requestID), zap.Error(err))
		}
	}
}

func staticFileExists(dir, urlPath string) bool {
	if dir == "" {
		return false
	}
	name := filepath.Join(dir, filepath.FromSlash(path.Clean("/"+urlPath)))
	info, err := os.Stat(name)
	if err != nil {
		return false
	}
	if !info.IsDir() {
		return true
	}
	_, err = os.Stat(filepath.Join(name, "index.html"))
	return err == nil
}
