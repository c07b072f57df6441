package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/abihf/yuvstream"
	"github.com/abihf/yuvstream/capture"
	"github.com/abihf/yuvstream/config"
	"github.com/abihf/yuvstream/protocol"
	"github.com/abihf/yuvstream/utils/logging"
	"github.com/abihf/yuvstream/utils/thread"
	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/pkg/errors"
)

var (
	configPath = flag.String("config", "", "config file (default "+config.DefaultPath+")")
	device     = flag.String("device", "", "capture device, overrides the config file")
	listen     = flag.String("listen", "", "listen address, overrides the config file")
)

func main() {
	flag.Parse()

	conf, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(yuvstream.ExitUsage)
	}
	if *device != "" {
		conf.Device = *device
	}
	if *listen != "" {
		conf.Listen = *listen
	}
	logging.Init(conf.LogLevel)

	if err := conf.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(yuvstream.ExitUsage)
	}

	if err := serve(conf); err != nil {
		slog.Error("Sender stopped", "error", err)
		os.Exit(yuvstream.ExitStatus(err))
	}
}

func serve(conf *config.Config) error {
	if conf.PidFile != "" {
		if isAlreadyRun(conf.PidFile) {
			return errors.New("already run")
		}
		if err := writeLockFile(conf.PidFile); err != nil {
			return errors.Wrap(err, "Can not write pid file")
		}
		defer os.Remove(conf.PidFile)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if conf.CPU != nil {
		if err := thread.SetCPUAffinity(*conf.CPU); err != nil {
			slog.Warn("Capture thread not pinned", "error", err)
		}
	}

	src, err := capture.NewSource(&capture.Option{
		Device:   conf.Device,
		Width:    conf.Width,
		Height:   conf.Height,
		Buffers:  conf.Buffers,
		Timeout:  uint32(conf.FrameTimeout),
		Exposure: conf.ExposureValue(),
		Gain:     conf.Gain,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := src.Close(); err != nil {
			slog.Warn("Camera shutdown failed", "error", err)
		}
		slog.Info("Camera switched off")
	}()

	if src.FrameSize() != conf.FrameSize() {
		return errors.Errorf("source frames are %d bytes, configuration expects %d", src.FrameSize(), conf.FrameSize())
	}

	ln, err := protocol.Listen(ctx, conf.Listen)
	if err != nil {
		return err
	}
	defer ln.Close()

	daemon.SdNotify(false, daemon.SdNotifyReady)
	defer daemon.SdNotify(false, daemon.SdNotifyStopping)

	sender := &yuvstream.Sender{Source: src, FrameSize: conf.FrameSize()}
	err = sender.Serve(ctx, ln)
	if ctx.Err() != nil {
		slog.Info("Caught signal, shutting down")
	}
	return err
}

func isAlreadyRun(path string) bool {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return false
	}

	pidStr, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("Can not read pid file", "error", err)
		return false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(pidStr)))
	if err != nil {
		slog.Warn("Invalid existing pid file", "error", err)
		return false
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		slog.Warn("Can not find process", "pid", pid, "error", err)
		return false
	}

	return proc.Signal(syscall.Signal(0)) == nil
}

func writeLockFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	fmt.Fprintf(f, "%d", os.Getpid())
	return f.Close()
}
