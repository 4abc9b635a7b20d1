package main

import (
	"expvar"
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

var EmptyData = struct{}{}

// export goroutines to be used by expvar handler.
var goroutines = expvar.NewInt("goroutines")

// Status gives a short liveness summary.
//
//	@Summary	Service liveness
//	@Tags		ops
//	@Produce	json
//	@Success	200	{object}	APIResponse
//	@Router		/status [get]
func (api *APIHandler) Status(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	resp := GenericResponse(
		requestID,
		http.StatusOK,
		fmt.Sprintf("up & running since %.0f mins", api.clock.Now().Sub(api.stats.started).Minutes()),
		nil,
		EmptyData,
	)
	if err := WriteResponse(r.Context(), w, resp); err != nil {
		api.logger.Error("failed to send status response", zap.String("request.id", requestID), zap.Error(err))
	}
}

// Maintenance enables or disables the maintenance mode. While enabled every
// public request is answered with 503 and the configured message.
// Enable the maintenance mode : /ops/maintenance?status=enable&msg=message-to-be-displayed-to-users
// Disable the maintenance mode: /ops/maintenance?status=disable
//
//	@Summary	Toggle maintenance mode
//	@Tags		ops
//	@Produce	json
//	@Param		status	query		string	true	"enable or disable"
//	@Param		msg		query		string	false	"message shown to users"
//	@Success	200		{object}	APIResponse
//	@Failure	400		{object}	APIError
//	@Router		/ops/maintenance [get]
func (api *APIHandler) Maintenance(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	logger := api.logger.With(zap.String("request.id", requestID))
	q := r.URL.Query()
	mstatus := q.Get("status")

	var resp *APIResponse
	switch mstatus {
	case "enable":
		api.mode.mu.Lock()
		api.mode.message = q.Get("msg")
		api.mode.started = api.clock.Now().UTC()
		api.mode.enabled.Store(true)
		data := map[string]string{
			"started": api.mode.started.Format(time.RFC1123),
			"message": api.mode.message,
		}
		api.mode.mu.Unlock()
		resp = GenericResponse(requestID, http.StatusOK, "maintenance mode enabled successfully.", nil, data)

	case "disable":
		api.mode.mu.Lock()
		api.mode.enabled.Store(false)
		api.mode.started = time.Time{}
		api.mode.message = ""
		api.mode.mu.Unlock()
		resp = GenericResponse(requestID, http.StatusOK, "maintenance mode disabled successfully.", nil, EmptyData)

	default:
		errResp := NewAPIError(requestID, http.StatusBadRequest, "status must be enable or disable.", EmptyData)
		if err := WriteErrorResponse(r.Context(), w, errResp); err != nil {
			logger.Error("failed to send maintenance error response", zap.Error(err))
		}
		return
	}

	logger.Info("maintenance mode changed", zap.String("request.maintenance", mstatus))
	if err := WriteResponse(r.Context(), w, resp); err != nil {
		logger.Error("failed to send maintenance response", zap.String("request.maintenance", mstatus), zap.Error(err))
	}
}

// GetMemStats returns memory statistics with number of goroutines in json.
func GetMemStats(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	goroutines.Set(int64(runtime.NumGoroutine()))
	expvar.Handler().ServeHTTP(w, r)
}

// GetStatistics provides useful details about the application to the internal ops users.
// The stats returns by this handler do not contain the ops request which triggered that.
// That is why we remove 1 from the called field value.
//
//	@Summary	Service statistics
//	@Tags		ops
//	@Produce	json
//	@Success	200	{object}	APIResponse
//	@Router		/ops/stats [get]
func (api *APIHandler) GetStatistics(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)

	api.mode.mu.RLock()
	maintenance := map[string]interface{}{
		"enabled": api.mode.enabled.Load(),
		"started": "",
		"message": api.mode.message,
	}
	if !api.mode.started.IsZero() {
		maintenance["started"] = api.mode.started.Format(time.RFC1123)
	}
	api.mode.mu.RUnlock()

	api.stats.mu.RLock()
	status := make(map[int]uint64, len(api.stats.status))
	for code, count := range api.stats.status {
		status[code] = count
	}
	api.stats.mu.RUnlock()

	called := atomic.LoadUint64(&api.stats.called)
	if called > 0 {
		called--
	}

	data := map[string]interface{}{
		"app.version":   api.stats.version,
		"app.container": api.stats.container,
		"app.platform":  api.stats.platform,
		"go.version":    api.stats.runtime,
		"called":        called,
		"started":       api.stats.started.Format(time.RFC1123),
		"uptime":        fmt.Sprintf("%.0f mins", api.clock.Now().Sub(api.stats.started).Minutes()),
		"maintenance":   maintenance,
		"status":        status,
	}
	if err := WriteResponse(r.Context(), w, GenericResponse(requestID, http.StatusOK, "statistics", nil, data)); err != nil {
		api.logger.Error("failed to send statistics response", zap.String("request.id", requestID), zap.Error(err))
	}
}

// GetConfigs serves current in-use configurations. Secrets are never exported.
//
//	@Summary	In-use configuration
//	@Tags		ops
//	@Produce	json
//	@Success	200	{object}	APIResponse
//	@Router		/ops/configs [get]
func (api *APIHandler) GetConfigs(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	if err := WriteResponse(r.Context(), w, GenericResponse(requestID, http.StatusOK, "configs", nil, api.config)); err != nil {
		api.logger.Error("failed to send settings response", zap.String("request.id", requestID), zap.Error(err))
	}
}

// GetArchive lists every archived request, newest first.
//
//	@Summary	Archived book requests
//	@Tags		ops
//	@Produce	json
//	@Success	200	{object}	APIResponse
//	@Failure	404	{object}	APIError
//	@Failure	500	{object}	APIError
//	@Router		/ops/archive [get]
func (api *APIHandler) GetArchive(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	logger := api.logger.With(zap.String("request.id", requestID))

	if api.archive == nil {
		errResp := NewAPIError(requestID, http.StatusNotFound, "archive is disabled.", EmptyData)
		if err := WriteErrorResponse(r.Context(), w, errResp); err != nil {
			logger.Error("failed to send archive error response", zap.Error(err))
		}
		return
	}

	views, err := api.archive.GetAll(r.Context())
	if err != nil {
		logger.Error("failed to retrieve archived requests", zap.Error(err))
		errResp := NewAPIError(requestID, http.StatusInternalServerError, "failed to retrieve archived requests.", EmptyData)
		if err = WriteErrorResponse(r.Context(), w, errResp); err != nil {
			logger.Error("failed to send archive error response", zap.Error(err))
		}
		return
	}

	total := len(views)
	if err = WriteResponse(r.Context(), w, GenericResponse(requestID, http.StatusOK, "archived requests", &total, views)); err != nil {
		logger.Error("failed to send archive response", zap.Error(err))
	}
}
