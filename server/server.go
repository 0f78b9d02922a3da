// Copyright 2026 The FriendMap Authors
// SPDX-License-Identifier: Apache-2.0

// Package server exposes the pipeline behind a small HTML form.
package server

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/friendmap/friendmap/leaflet"
	"github.com/friendmap/friendmap/pipeline"
	"github.com/friendmap/friendmap/social"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Runner executes one pipeline run.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Artifact, error)
}

// Options configuration for Server.
type Options struct {
	// RunTimeout bounds a single /map request; zero means no bound.
	RunTimeout time.Duration
}

type Server struct {
	runner     Runner
	runTimeout time.Duration
	logger     *zap.Logger
}

func New(runner Runner, opts *Options, logger *zap.Logger) *Server {
	if opts == nil {
		opts = &Options{}
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Server{
		runner:     runner,
		runTimeout: opts.RunTimeout,
		logger:     logger,
	}
}

// Handler returns the gin engine serving the form and the map.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(s.accessLog(), gin.Recovery())
	r.SetHTMLTemplate(template.Must(template.New("").ParseFS(templatesFS, "templates/*.html")))

	r.GET("/", s.mainPage)
	r.POST("/map", s.mapPage)

	return r
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()

		ctx.Next()

		s.logger.Info("request",
			zap.String("method", ctx.Request.Method),
			zap.String("path", ctx.Request.URL.Path),
			zap.Int("status", ctx.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client", ctx.ClientIP()),
		)
	}
}

func (s *Server) mainPage(ctx *gin.Context) {
	ctx.HTML(http.StatusOK, "index.html", gin.H{"DefaultCount": social.DefaultCount})
}

func (s *Server) failure(ctx *gin.Context, status int, reason string) {
	ctx.HTML(status, "failure.html", gin.H{"Reason": reason})
}

func (s *Server) mapPage(ctx *gin.Context) {
	username := strings.TrimSpace(ctx.PostForm("username"))
	token := strings.TrimSpace(ctx.PostForm("bearer_token"))
	friendsNum := strings.TrimSpace(ctx.PostForm("friends_num"))

	if username == "" || token == "" {
		s.failure(ctx, http.StatusBadRequest, "Both the account and the bearer token are required.")

		return
	}

	count := social.DefaultCount

	if friendsNum != "" {
		n, err := strconv.Atoi(friendsNum)
		if err != nil || n <= 0 {
			s.failure(ctx, http.StatusBadRequest, "The number of friends must be a positive whole number.")

			return
		}

		count = n
	}

	runCtx := ctx.Request.Context()

	if s.runTimeout > 0 {
		var cancel context.CancelFunc

		runCtx, cancel = context.WithTimeout(runCtx, s.runTimeout)
		defer cancel()
	}

	artifact, err := s.runner.Run(runCtx, pipeline.Request{
		Credential: token,
		Handle:     username,
		Count:      count,
		Mode:       leaflet.ModeRender,
	})
	if err != nil {
		var fetchErr *social.FetchError
		if errors.As(err, &fetchErr) {
			s.failure(ctx, http.StatusBadGateway, "Could not retrieve the friend list of @"+fetchErr.Handle+": "+fetchErr.Message+".")

			return
		}

		if errors.Is(err, context.DeadlineExceeded) {
			s.failure(ctx, http.StatusGatewayTimeout, "Building the map took too long, try with fewer friends.")

			return
		}

		s.logger.Error("building map", zap.Error(err))
		s.failure(ctx, http.StatusInternalServerError, "The map could not be built.")

		return
	}

	ctx.Data(http.StatusOK, "text/html; charset=utf-8", []byte(artifact.HTML))
}
