package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/abihf/yuvstream"
	"github.com/abihf/yuvstream/config"
	"github.com/abihf/yuvstream/protocol"
	"github.com/abihf/yuvstream/sink"
	"github.com/abihf/yuvstream/utils/logging"
)

var (
	configPath = flag.String("config", "", "config file (default "+config.DefaultPath+")")
	outputDir  = flag.String("out", "", "directory for frame<n>.ppm, overrides the config file")
	warmup     = flag.Int("warmup", -1, "frames to discard first, overrides the config file")
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [flags] [address] [frames]\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	conf, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(yuvstream.ExitUsage)
	}
	if flag.NArg() > 0 {
		conf.Address = flag.Arg(0)
	}
	if flag.NArg() > 1 {
		n, err := strconv.Atoi(flag.Arg(1))
		if err != nil {
			usage()
			os.Exit(yuvstream.ExitUsage)
		}
		conf.Frames = n
	}
	if *outputDir != "" {
		conf.OutputDir = *outputDir
	}
	if *warmup >= 0 {
		conf.Warmup = warmup
	}
	logging.Init(conf.LogLevel)

	if err := conf.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(yuvstream.ExitUsage)
	}

	if err := receive(conf); err != nil {
		slog.Error("Receiver stopped", "error", err)
		os.Exit(yuvstream.ExitStatus(err))
	}
}

func receive(conf *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGTSTP)
	defer stop()

	out, err := sink.NewPPM(conf.OutputDir, conf.Width, conf.Height)
	if err != nil {
		return err
	}

	conn, err := protocol.Dial(ctx, conf.Address)
	if err != nil {
		return err
	}
	defer conn.Close()
	slog.Info("Connected", "addr", conf.Address, "frames", conf.Frames, "warmup", conf.WarmupFrames())

	rx := &yuvstream.Receiver{
		FrameSize: conf.FrameSize(),
		Warmup:    conf.WarmupFrames(),
		Total:     conf.Frames,
		Sink:      out,
	}
	n, err := rx.Receive(ctx, conn)
	if ctx.Err() != nil {
		slog.Info("Caught signal, leaving", "stored", n)
		return nil
	}
	if err != nil {
		return err
	}
	slog.Info("Done", "stored", n, "dir", conf.OutputDir)
	return nil
}
