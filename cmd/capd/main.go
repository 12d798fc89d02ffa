/*
DESCRIPTION
  capd is a daemon using the cap packages to capture BGRA frames from a
  configured source, transform them through a processor chain, and fan
  them out to RTSP and file outputs.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package main implements capd, a capture pipeline daemon.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ausocean/utils/logging"

	"github.com/ausocean/cap/config"
	"github.com/ausocean/cap/frame"
	"github.com/ausocean/cap/gundam"
	"github.com/ausocean/cap/scale"
	"github.com/ausocean/cap/session"
	"github.com/ausocean/cap/source"
	"github.com/ausocean/cap/stream"
)

// Current software version.
const version = "v0.1.0"

// Logging configuration.
const (
	logPath      = "/var/log/capd/capd.log"
	logMaxSize   = 500 // MB.
	logMaxBackup = 10
	logMaxAge    = 28 // Days.
	logVerbosity = logging.Info
	logSuppress  = true
)

// Used to indicate package in logging.
const pkg = "capd: "

func main() {
	showVersion := flag.Bool("version", false, "show version")
	cfgPath := flag.String("config", "", "path to variable file (watched for changes)")
	flag.Parse()
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	// Create lumberjack logger to handle logging to file.
	fileLog := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    logMaxSize,
		MaxBackups: logMaxBackup,
		MaxAge:     logMaxAge,
	}

	log := logging.New(logVerbosity, io.MultiWriter(fileLog, os.Stderr), logSuppress)
	log.Info("starting capd", "version", version)

	cfg := config.Config{Logger: log}
	if *cfgPath != "" {
		w, err := config.Watch(*cfgPath, &cfg, log, nil)
		if err != nil {
			log.Fatal(pkg+"could not load variable file", "error", err.Error())
		}
		defer w.Close()
	} else {
		err := cfg.Validate()
		if err != nil {
			log.Fatal(pkg+"config is bad", "error", err.Error())
		}
	}
	log.SetLevel(cfg.LogLevel)

	s, err := buildSession(cfg, log)
	if err != nil {
		log.Fatal(pkg+"could not build session", "error", err.Error())
	}

	// Assert the session's shutdown signal on SIGINT or SIGTERM; the
	// run loop drains its current frame and shuts components down.
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info(pkg + "signal received, shutting down")
		s.Shutdown()
	}()

	log.Debug(pkg + "running session")
	err = s.Run()
	if err != nil {
		log.Error(pkg+"session finished with error", "error", err.Error())
		os.Exit(1)
	}
	log.Info(pkg + "session finished")
}

// buildSession wires a session from the config: source, processors and
// streams. Stream dimensions are the chain's output size, derived here
// without initialising the processors.
func buildSession(cfg config.Config, l logging.Logger) (*session.Session, error) {
	in := frame.Size{W: cfg.Width, H: cfg.Height}
	b := session.NewBuilder(l)

	switch cfg.Input {
	case config.InputFile:
		l.Debug(pkg + "using file input")
		b.WithSource(source.NewFile(cfg.InputPath, in, cfg.FrameRate, l))
	case config.InputManual:
		l.Debug(pkg + "using manual input")
		b.WithSource(source.NewManual(in))
	default:
		return nil, fmt.Errorf("unrecognised input type: %v", cfg.Input)
	}

	out := in
	for _, p := range cfg.Processors {
		switch p {
		case config.ProcessorScaling:
			l.Debug(pkg+"using scaling processor", "preset", cfg.Preset)
			preset, err := scale.ParsePreset(cfg.Preset)
			if err != nil {
				return nil, err
			}
			b.WithScaling(preset)
			out = scale.BuildPlan(out, preset.Target(), scale.Aspect{Mode: scale.Preserve}).Out
		case config.ProcessorGundam:
			l.Debug(pkg + "using gundam processor")
			gcfg := gundam.DefaultConfig()
			gcfg.OverlapFrac = cfg.GundamOverlap
			b.WithGundam(gcfg)
			cols, rows := gundam.ChooseGrid(out.W, out.H)
			n := cols * rows
			if n > gcfg.MaxTiles {
				n = gcfg.MaxTiles
			}
			_, _, out = gundam.CompositeLayout(n, gcfg.TileSide)
		default:
			return nil, fmt.Errorf("unrecognised processor: %v", p)
		}
	}

	for _, o := range cfg.Outputs {
		switch o {
		case config.OutputRTSP:
			l.Debug(pkg + "using RTSP output")
			scfg := session.StreamConfig{
				Width:     out.W,
				Height:    out.H,
				FrameRate: cfg.FrameRate,
				Format:    session.FormatRTSP,
				Port:      uint16(cfg.RTSPPort),
				Mount:     cfg.RTSPMount,
			}
			b.WithStream(stream.NewRTSP(scfg, newRTSPPipeline(scfg, l), l))
		case config.OutputFile:
			l.Debug(pkg + "using file output")
			scfg := session.StreamConfig{
				Width:     out.W,
				Height:    out.H,
				FrameRate: cfg.FrameRate,
				Format:    session.FormatFile,
				Path:      cfg.OutputPath,
			}
			enc, err := newFileEncoder(scfg, l)
			if err != nil {
				return nil, fmt.Errorf("could not create file encoder: %w", err)
			}
			b.WithStream(stream.NewFile(scfg, enc, l))
		default:
			return nil, fmt.Errorf("unrecognised output type: %v", o)
		}
	}

	return b.Build()
}
