package main

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Statistics holds app stats for ops.
type Statistics struct {
	version   string
	container bool
	runtime   string
	platform  string
	called    uint64
	started   time.Time
	status    map[int]uint64
	mu        *sync.RWMutex
}

// Maintenance holds app maintenance mode infos.
type Maintenance struct {
	enabled atomic.Bool
	mu      sync.RWMutex
	message string
	started time.Time
}

// APIHandler defines the API handler.
type APIHandler struct {
	logger         *zap.Logger
	config         *Config
	stats          *Statistics
	mode           *Maintenance
	clock          Clocker
	idsHandler     UIDHandler
	views          Viewer
	requestService RequestServiceProvider
	archive        ArchiveStorage
	limiters       *ClientLimiters
}

// NewAPIHandler provides a new instance of APIHandler. The archive may be nil when disabled.
func NewAPIHandler(
	logger *zap.Logger,
	config *Config,
	stats *Statistics,
	clock Clocker,
	idsHandler UIDHandler,
	views Viewer,
	rs RequestServiceProvider,
	archive ArchiveStorage,
) *APIHandler {
	stats.status = make(map[int]uint64)
	stats.mu = &sync.RWMutex{}
	var limiters *ClientLimiters
	if config != nil {
		limiters = NewClientLimiters(config.Server.RateLimit, config.Server.RateBurst)
	}
	return &APIHandler{
		limiters:       limiters,
		logger:         logger,
		config:         config,
		stats:          stats,
		mode:           &Maintenance{},
		clock:          clock,
		idsHandler:     idsHandler,
		views:          views,
		requestService: rs,
		archive:        archive,
	}
}
