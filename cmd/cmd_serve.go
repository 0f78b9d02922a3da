// Copyright 2026 The FriendMap Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/friendmap/friendmap/geocode"
	"github.com/friendmap/friendmap/pipeline"
	"github.com/friendmap/friendmap/server"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type serveOptions struct {
	pipeline pipelineFlags

	Addr         string
	SharedPacing bool
	RunTimeout   time.Duration
}

var serveOpts = &serveOptions{}

// listenAddr resolves the address to bind, honouring PORT when --addr is left alone.
func listenAddr(cmd *cobra.Command) string {
	if !cmd.Flags().Changed("addr") {
		if port := os.Getenv(envPort); port != "" {
			return ":" + port
		}
	}

	return serveOpts.Addr
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Runs the web form that builds maps on request",
	Long: `Serves a form asking for an account, a bearer token and a number of friends,
and answers with the map document.

Every request is paced on its own. With --shared-pacing all requests share a
single pacer, so the geocoder never sees more than one request per
--min-delay from this process.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		opts := serveOpts.pipeline.options()
		if serveOpts.SharedPacing {
			opts.SharedPacer = geocode.NewPacer(opts.MinDelay)
		}

		if !verbose {
			gin.SetMode(gin.ReleaseMode)
		}

		handler := server.New(
			pipeline.New(opts, logger),
			&server.Options{RunTimeout: serveOpts.RunTimeout},
			logger,
		).Handler()

		addr := listenAddr(cmd)
		srv := &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		g, gctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			logger.Info("listening", zap.String("addr", addr), zap.Bool("shared_pacing", serveOpts.SharedPacing))
			fmt.Fprintf(cmd.ErrOrStderr(), "Open http://%s in your browser\n", addr)

			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serving: %w", err)
			}

			return nil
		})

		g.Go(func() error {
			<-gctx.Done()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			logger.Info("shutting down")

			return srv.Shutdown(shutdownCtx)
		})

		return g.Wait()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveOpts.pipeline.register(serveCmd)
	serveCmd.Flags().StringVar(
		&serveOpts.Addr,
		"addr",
		"localhost:8080",
		fmt.Sprintf("Address to listen on (env %s sets the port)", envPort),
	)
	serveCmd.Flags().BoolVar(
		&serveOpts.SharedPacing,
		"shared-pacing",
		false,
		"Share one geocoding pacer between all requests",
	)
	serveCmd.Flags().DurationVar(
		&serveOpts.RunTimeout,
		"run-timeout",
		15*time.Minute,
		"Maximum time spent building a single map, 0 for no limit",
	)
}
