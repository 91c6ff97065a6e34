// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// epaperframe runs one wake cycle of an e-paper picture frame: it waits for
// its configuration on the broker, shows the configured image when it
// changed and powers down until the next wake-up.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"github.com/GermanBionicSystems/epaperframe/config"
	"github.com/GermanBionicSystems/epaperframe/httpfetch"
	"github.com/GermanBionicSystems/epaperframe/logging"
	"github.com/GermanBionicSystems/epaperframe/metrics"
	"github.com/GermanBionicSystems/epaperframe/picframe"
	"github.com/GermanBionicSystems/epaperframe/rawframe"
)

var cli struct {
	Config     string `short:"c" help:"YAML configuration file." type:"path"`
	EnvFile    string `help:"Dotenv file loaded into the environment before it is read." type:"path"`
	Verbose    bool   `short:"v" help:"Log at debug level."`
	DumpConfig bool   `help:"Print the effective configuration and exit."`
}

func main() {
	kctx := kong.Parse(&cli,
		kong.Name("epaperframe"),
		kong.Description("E-paper picture frame controller."),
		kong.UsageOnError(),
	)
	kctx.FatalIfErrorf(mainImpl())
}

func mainImpl() error {
	cfg, err := config.Load(config.Options{File: cli.Config, EnvFile: cli.EnvFile})
	if err != nil {
		return err
	}
	if cli.Verbose {
		cfg.Log.Level = "debug"
	}
	if cli.DumpConfig {
		b, err := cfg.YAML()
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(b)
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := logging.New(&logging.Options{Name: "epaperframe", Level: cfg.Log.Level, JSON: cfg.Log.JSON})
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(ctx, &cfg, logger)
}

func run(ctx context.Context, cfg *config.Config, logger hclog.Logger) error {
	var res resources
	defer func() {
		if err := res.close(); err != nil {
			logger.Warn("shutdown", logging.KeyError, err)
		}
	}()

	panel, err := openDisplay(cfg, logger.Named("display"), &res)
	if err != nil {
		return err
	}
	ch, err := openChannel(cfg, logger.Named("channel"))
	if err != nil {
		return err
	}
	res.add("channel", ch.Close)

	recorder := metrics.NewRecorder(nil)
	fetcher := httpfetch.New(nil, &httpfetch.Opts{
		Timeout:   cfg.Fetch.Timeout,
		UserAgent: cfg.Fetch.Agent,
		MaxBytes:  cfg.Fetch.MaxBytes,
	}, logger.Named("fetch"))

	cycle := picframe.NewUpdateCycle(fetcher, panel.display, rawframe.NewDefault(), &picframe.CycleOptions{
		MinCheckInterval: picframe.MinCheckInterval,
		MaxRetries:       picframe.MaxRetries,
		AttemptTimeout:   cfg.Cycle.Timeout,
	}, logger.Named("cycle"))
	ctrl := picframe.NewController(cycle, ch, &releasingSleeper{res: &res, next: newSleeper(cfg, logger), log: logger}, logger.Named("controller"), &picframe.ControllerOptions{
		PollInterval: cfg.Cycle.Poll,
		Observer:     recorder,
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	if cfg.HTTP.Listen != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", recorder.Handler())
		if panel.handler != nil {
			mux.Handle("/frame", panel.handler)
		}
		srv := &http.Server{Addr: cfg.HTTP.Listen, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
		g.Go(func() error {
			logger.Info("serving", "addr", cfg.HTTP.Listen)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer scancel()
			return srv.Shutdown(sctx)
		})
	}

	g.Go(func() error {
		// The controller ends the wake cycle for everybody.
		defer cancel()
		if err := ch.Connect(gctx); err != nil {
			return err
		}
		err := ctrl.Run(gctx, ch.Events())
		if errors.Is(err, picframe.ErrAsleep) || errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	return g.Wait()
}
