package server

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tartampluch/birthday-board/internal/config"
	"github.com/tartampluch/birthday-board/internal/engine"
	"github.com/tartampluch/birthday-board/internal/locale"
)

// cacheItem holds one published snapshot and every representation derived
// from it, rendered once at publish time.
type cacheItem struct {
	snapshot     *engine.Snapshot
	page         []byte
	api          []byte
	ics          []byte
	etag         string
	lastModified string // RFC1123 format required by HTTP headers
}

// BoardServer serves the birthday board, its JSON API and the iCalendar feed.
type BoardServer struct {
	// cache uses atomic.Pointer for lock-free reads: requests are frequent,
	// snapshots change once a day.
	cache atomic.Pointer[cacheItem]

	Listen     string
	translator *locale.Translator
	gatherer   prometheus.Gatherer
}

// NewBoardServer creates a server bound to listen. A nil gatherer disables
// the metrics endpoint.
func NewBoardServer(listen string, tr *locale.Translator, gatherer prometheus.Gatherer) *BoardServer {
	return &BoardServer{
		Listen:     listen,
		translator: tr,
		gatherer:   gatherer,
	}
}

// Handler builds the router.
func (s *BoardServer) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(logRequests)
	r.Use(readOnly)
	r.Use(middleware.GetHead)

	r.Get(config.RouteRoot, s.handleBoard)
	r.Get(config.RouteAPI, s.handleAPI)
	r.Get(config.RouteICS, s.handleCalendar)
	r.Get(config.RouteHealth, handleHealth)
	if s.gatherer != nil {
		r.Handle(config.RouteMetrics, promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// Start listens on s.Listen and blocks until the context is cancelled.
func (s *BoardServer) Start(ctx context.Context) error {
	if s.Listen == "" {
		return errors.New(config.ErrListenRequired)
	}

	ln, err := net.Listen("tcp", s.Listen)
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrServerStartup, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until the context is cancelled, then shuts
// down gracefully.
func (s *BoardServer) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	serverError := make(chan error, config.ChannelBufferSize)

	go func() {
		slog.Info(config.MsgServerListen,
			config.LogKeyComponent, config.CompServer,
			config.LogKeyListen, ln.Addr().String(),
		)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverError <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info(config.MsgServerStop, config.LogKeyComponent, config.CompServer)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("%s: %w", config.ErrServerShutdown, err)
		}
		return nil

	case err := <-serverError:
		return fmt.Errorf("%s: %w", config.ErrServerStartup, err)
	}
}

// Publish renders snap and atomically replaces the served content. If
// rendering fails the previous snapshot stays in place.
func (s *BoardServer) Publish(snap *engine.Snapshot) error {
	if snap == nil {
		return nil
	}

	page, err := renderBoard(s.translator, snap)
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrRenderBoard, err)
	}
	api, err := renderAPI(snap)
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrRenderBoard, err)
	}

	hash := sha256.Sum256(snap.ICS)
	etag := fmt.Sprintf(config.FormatETag, hex.EncodeToString(hash[:]))

	lastMod := time.Now().UTC().Format(http.TimeFormat)
	if prev := s.cache.Load(); prev != nil && prev.etag == etag {
		lastMod = prev.lastModified
	}

	// Any concurrent reader sees either the old or the new complete item.
	s.cache.Store(&cacheItem{
		snapshot:     snap,
		page:         page,
		api:          api,
		ics:          snap.ICS,
		etag:         etag,
		lastModified: lastMod,
	})

	slog.Debug(config.MsgSnapshotStored,
		config.LogKeyComponent, config.CompServer,
		config.LogKeySizeBytes, len(snap.ICS),
		config.LogKeyETag, etag,
	)
	return nil
}

// OnRefresh publishes successful refreshes. It matches worker.Listener; on
// failure the snapshot already served stays in place.
func (s *BoardServer) OnRefresh(snap *engine.Snapshot, err error) {
	if err != nil {
		return
	}
	if err := s.Publish(snap); err != nil {
		slog.Error(config.ErrRenderBoard,
			config.LogKeyComponent, config.CompServer,
			config.LogKeyError, err,
		)
	}
}

// Snapshot returns the snapshot currently served, or nil before the first
// Publish.
func (s *BoardServer) Snapshot() *engine.Snapshot {
	if item := s.cache.Load(); item != nil {
		return item.snapshot
	}
	return nil
}

// ready loads the current item, answering 503 when nothing is published yet.
func (s *BoardServer) ready(w http.ResponseWriter) *cacheItem {
	item := s.cache.Load()
	if item == nil {
		w.Header().Set(config.HeaderRetryAfter, config.RetryAfterSeconds)
		http.Error(w, config.HTTPMsgInitializing, http.StatusServiceUnavailable)
	}
	return item
}

func (s *BoardServer) handleBoard(w http.ResponseWriter, r *http.Request) {
	item := s.ready(w)
	if item == nil {
		return
	}
	w.Header().Set(config.HeaderContentType, config.MimeHTML)
	w.Header().Set(config.HeaderCacheControl, config.CacheControlPrivate)
	writeBody(w, r, item.page)
}

func (s *BoardServer) handleAPI(w http.ResponseWriter, r *http.Request) {
	item := s.ready(w)
	if item == nil {
		return
	}
	w.Header().Set(config.HeaderContentType, config.MimeJSON)
	w.Header().Set(config.HeaderXContentType, config.MimeNoSniff)
	w.Header().Set(config.HeaderCacheControl, config.CacheControlPrivate)
	writeBody(w, r, item.api)
}

// handleCalendar serves the feed with HTTP caching support.
func (s *BoardServer) handleCalendar(w http.ResponseWriter, r *http.Request) {
	item := s.ready(w)
	if item == nil {
		return
	}

	w.Header().Set(config.HeaderContentType, config.MimeTextCalendar)
	w.Header().Set(config.HeaderXContentType, config.MimeNoSniff)
	w.Header().Set(config.HeaderCacheControl, config.CacheControlPrivate)
	w.Header().Set(config.HeaderETag, item.etag)
	w.Header().Set(config.HeaderLastModified, item.lastModified)

	if match := r.Header.Get(config.HeaderIfNoneMatch); match == item.etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	if since := r.Header.Get(config.HeaderIfModifiedSince); since != "" {
		if clientTime, err := time.Parse(http.TimeFormat, since); err == nil {
			if serverTime, err := time.Parse(http.TimeFormat, item.lastModified); err == nil {
				if !serverTime.After(clientTime) {
					w.WriteHeader(http.StatusNotModified)
					return
				}
			}
		}
	}

	writeBody(w, r, item.ics)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set(config.HeaderContentType, config.MimeText)
	writeBody(w, r, []byte(config.HTTPMsgHealthy))
}

func writeBody(w http.ResponseWriter, r *http.Request, body []byte) {
	if r.Method != http.MethodGet {
		return
	}
	if _, err := io.Copy(w, bytes.NewReader(body)); err != nil {
		slog.Error(config.ErrWriteResp,
			config.LogKeyComponent, config.CompServer,
			config.LogKeyError, err,
		)
	}
}

// readOnly rejects every method but GET and HEAD.
func readOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set(config.HeaderAllow, config.AllowedMethods)
			http.Error(w, config.HTTPMsgMethodNotAll, http.StatusMethodNotAllowed)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		slog.Debug(config.MsgHTTPRequest,
			config.LogKeyComponent, config.CompServer,
			config.LogKeyMethod, r.Method,
			config.LogKeyPath, r.URL.Path,
			config.LogKeyStatus, ww.Status(),
			config.LogKeyBytes, ww.BytesWritten(),
			config.LogKeyRequestID, middleware.GetReqID(r.Context()),
			config.LogKeyDuration, time.Since(start).Milliseconds(),
		)
	})
}
