// Package server exposes the answering engine over HTTP: an authenticated
// JSON API for questions, history and feedback, plus health and metrics
// endpoints.
package server

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oraculo-ai/oraculo/internal/engine"
	"github.com/oraculo-ai/oraculo/internal/sources"
	"github.com/oraculo-ai/oraculo/internal/stats"
	"github.com/oraculo-ai/oraculo/internal/store"
	"github.com/oraculo-ai/oraculo/internal/telemetry"
)

// Options configures the HTTP server.
type Options struct {
	Listen    string
	JWTSecret []byte
}

// Server wires the engine and the persistence layer behind an echo router.
// Store, Stats and Metrics are optional; endpoints that need a missing
// dependency answer 503.
type Server struct {
	Engine  *engine.Engine
	Store   *store.Store
	Stats   stats.Store
	Metrics *telemetry.Metrics

	opts   Options
	echo   *echo.Echo
	logger *log.Logger
}

func New(eng *engine.Engine, opts Options) *Server {
	if opts.Listen == "" {
		opts.Listen = ":8080"
	}
	return &Server{
		Engine: eng,
		opts:   opts,
		logger: log.New(log.Writer(), "[HTTP] ", log.LstdFlags),
	}
}

// Router builds the echo instance with all routes registered.
func (s *Server) Router() *echo.Echo {
	if s.echo != nil {
		return s.echo
	}
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization},
	}))
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if m, ok := he.Message.(string); ok {
				msg = m
			}
		}
		s.logger.Printf("%d %s %s from %s: %s", code, c.Request().Method, c.Request().URL.Path, c.RealIP(), msg)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]string{"error": msg})
		}
	}

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.Metrics.Registry, promhttp.HandlerOpts{})))
	}

	api := e.Group("/api")
	auth := &AuthHandler{Store: s.Store, Secret: s.opts.JWTSecret}
	auth.Register(api.Group("/auth"))

	protected := api.Group("", AuthMiddleware(s.opts.JWTSecret))
	protected.POST("/ask", s.ask)
	protected.GET("/ask/sources", s.askSources)
	protected.GET("/history", s.history)
	protected.POST("/feedback", s.feedback)
	protected.GET("/statistics", s.statistics)

	s.echo = e
	return e
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	e := s.Router()
	s.logger.Printf("listening on %s", s.opts.Listen)
	err := e.Start(s.opts.Listen)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.echo == nil {
		return nil
	}
	return s.echo.Shutdown(ctx)
}

func (s *Server) ask(c echo.Context) error {
	var req AskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Question == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "question is required")
	}

	res, err := s.Engine.AnswerFrom(c.Request().Context(), req.Question, toSourceNames(req.Sources))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if res == nil {
		return echo.NewHTTPError(http.StatusNotFound, "no usable answer")
	}

	if s.Store != nil {
		exchange := store.Exchange{
			UserID:    userID(c),
			Question:  res.Question,
			Answer:    res.Text,
			Label:     res.Label,
			Quality:   res.Quality,
			LatencyMS: res.Latency.Milliseconds(),
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if _, err := s.Store.SaveExchange(ctx, exchange); err != nil {
				s.logger.Printf("save exchange failed: %v", err)
			}
		}()
	}

	return c.JSON(http.StatusOK, AskResponse{
		Question:  res.Question,
		Answer:    res.Text,
		Label:     res.Label,
		Sources:   toStrings(res.Sources),
		Strategy:  res.Strategy,
		Quality:   res.Quality,
		LatencyMS: res.Latency.Milliseconds(),
	})
}

// askSources is the diagnostic path: every provider queried with the raw
// question, no fusion.
func (s *Server) askSources(c echo.Context) error {
	question := c.QueryParam("q")
	if question == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query parameter q is required")
	}
	answers := s.Engine.AskEach(c.Request().Context(), question)
	out := make([]SourceAnswer, 0, len(answers))
	for name, text := range answers {
		out = append(out, SourceAnswer{Source: string(name), Answer: text})
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) history(c echo.Context) error {
	if s.Store == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "history store not configured")
	}
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be an integer")
		}
		limit = n
	}
	var (
		exchanges []store.Exchange
		err       error
	)
	if term := c.QueryParam("q"); term != "" {
		exchanges, err = s.Store.SearchHistory(c.Request().Context(), userID(c), term, limit)
	} else {
		exchanges, err = s.Store.History(c.Request().Context(), userID(c), limit)
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	out := make([]HistoryEntry, 0, len(exchanges))
	for _, e := range exchanges {
		out = append(out, HistoryEntry{
			ID:        e.ID,
			Question:  e.Question,
			Answer:    e.Answer,
			Label:     e.Label,
			Quality:   e.Quality,
			LatencyMS: e.LatencyMS,
			Helpful:   e.Helpful,
			CreatedAt: e.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) feedback(c echo.Context) error {
	if s.Store == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "history store not configured")
	}
	var req FeedbackRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.ExchangeID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "exchange_id is required")
	}
	err := s.Store.SetFeedback(c.Request().Context(), userID(c), req.ExchangeID, req.Helpful)
	if err == store.ErrNotFound {
		return echo.NewHTTPError(http.StatusNotFound, "exchange not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	s.recordFeedback(c, req)
	return c.NoContent(http.StatusOK)
}

// recordFeedback feeds a user's verdict back into the per-source stats so
// the adaptive selection learns from it. Best effort.
func (s *Server) recordFeedback(c echo.Context, req FeedbackRequest) {
	if s.Stats == nil {
		return
	}
	exchange, err := s.Store.ExchangeByID(c.Request().Context(), userID(c), req.ExchangeID)
	if err != nil {
		s.logger.Printf("feedback stats: exchange lookup failed: %v", err)
		return
	}
	quality := 0.0
	if req.Helpful {
		quality = 1.0
	}
	latency := time.Duration(exchange.LatencyMS) * time.Millisecond
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for _, raw := range strings.Split(exchange.Label, "+") {
			name := sources.Name(raw)
			if !sources.Valid(name) {
				continue
			}
			if err := s.Stats.Record(ctx, name, req.Helpful, latency, quality); err != nil {
				s.logger.Printf("feedback stats record for %s failed: %v", name, err)
			}
		}
	}()
}

// statistics aggregates the caller's history and, when a stats store is
// wired, the per-source reliability snapshot.
func (s *Server) statistics(c echo.Context) error {
	out := map[string]interface{}{}
	if s.Store != nil {
		userStats, err := s.Store.Statistics(c.Request().Context(), userID(c))
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		out["user"] = userStats
	}
	if s.Stats != nil {
		snapshot, err := s.Stats.Snapshot(c.Request().Context())
		if err != nil {
			s.logger.Printf("source stats snapshot failed: %v", err)
		} else {
			out["sources"] = snapshot
		}
	}
	if len(out) == 0 {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "no statistics backend configured")
	}
	return c.JSON(http.StatusOK, out)
}
