package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/abihf/yuvstream"
	"github.com/abihf/yuvstream/capture"
	"github.com/abihf/yuvstream/config"
	"github.com/abihf/yuvstream/sink"
	"github.com/abihf/yuvstream/utils/logging"
)

var configPath = flag.String("config", "", "config file (default "+config.DefaultPath+")")

func main() {
	flag.Parse()

	conf, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(yuvstream.ExitUsage)
	}
	logging.Init(conf.LogLevel)
	if err := conf.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(yuvstream.ExitUsage)
	}

	if err := mainE(conf); err != nil {
		slog.Error("Snapshot failed", "error", err)
		os.Exit(yuvstream.ExitStatus(err))
	}
}

// mainE captures straight to disk, skipping the warm-up frames.
func mainE(conf *config.Config) error {
	out, err := sink.NewPPM(conf.OutputDir, conf.Width, conf.Height)
	if err != nil {
		return err
	}

	seen, stored := 0, 0
	err = capture.Capture(&capture.Option{
		Device:   conf.Device,
		Width:    conf.Width,
		Height:   conf.Height,
		Buffers:  conf.Buffers,
		Timeout:  uint32(conf.FrameTimeout),
		Exposure: conf.ExposureValue(),
		Gain:     conf.Gain,
	}, func(frame []byte) (bool, error) {
		seen++
		if seen <= conf.WarmupFrames() {
			return true, nil
		}
		stored++
		if err := out.WriteFrame(stored, frame); err != nil {
			return false, err
		}
		fmt.Printf("  - %s\n", out.Path(stored))
		return stored < conf.Frames, nil
	})
	return err
}
