package config

import (
	"encoding/json"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/abihf/yuvstream/protocol"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DefaultPath is read when no config file is given on the command line.
const DefaultPath = "/etc/yuvstream/config.json"

// Config is the session configuration. Both endpoints must load the same
// resolution, since the frame size never travels on the wire.
type Config struct {
	Device       string `json:"device" yaml:"device"`
	Width        int    `json:"width" yaml:"width"`
	Height       int    `json:"height" yaml:"height"`
	Buffers      int    `json:"buffers" yaml:"buffers"`
	FrameTimeout int    `json:"frame_timeout" yaml:"frame_timeout"` // seconds
	Exposure     *int   `json:"exposure" yaml:"exposure"`           // <= 0 keeps auto exposure
	Gain         int    `json:"gain" yaml:"gain"`                   // 0 leaves gain alone
	CPU          *int   `json:"cpu" yaml:"cpu"`

	Listen  string `json:"listen" yaml:"listen"`
	Address string `json:"address" yaml:"address"`

	Frames    int    `json:"frames" yaml:"frames"`
	Warmup    *int   `json:"warmup" yaml:"warmup"`
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	PidFile  string `json:"pid_file" yaml:"pid_file"`
	LogLevel string `json:"log_level" yaml:"log_level"`
}

// Load reads path (DefaultPath when empty), applies .env and environment
// overrides and fills in defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	conf, err := loadFromFile(path)
	if os.IsNotExist(errors.Cause(err)) {
		slog.Warn("Failed to load config file", "path", path, "error", err)
		err = nil
	}
	if err != nil {
		return nil, err
	}
	if conf == nil {
		conf = &Config{}
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to load .env file", "error", err)
	}
	conf.applyEnv()
	conf.applyDefaults()

	return conf, nil
}

func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := &Config{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, config)
	default:
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "can not parse %s", path)
	}

	return config, nil
}

func (c *Config) applyEnv() {
	override := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	override(&c.Device, "YUVSTREAM_DEVICE")
	override(&c.Listen, "YUVSTREAM_LISTEN")
	override(&c.Address, "YUVSTREAM_ADDRESS")
	override(&c.OutputDir, "YUVSTREAM_OUTPUT_DIR")
	override(&c.LogLevel, "YUVSTREAM_LOG_LEVEL")
}

func (c *Config) applyDefaults() {
	if c.Device == "" {
		c.Device = "/dev/video0"
	}
	if c.Width == 0 {
		c.Width = 640
	}
	if c.Height == 0 {
		c.Height = 480
	}
	if c.Buffers == 0 {
		c.Buffers = 6
	}
	if c.FrameTimeout == 0 {
		c.FrameTimeout = 2
	}
	if c.Exposure == nil {
		exposure := 250
		c.Exposure = &exposure
	}
	if c.Listen == "" {
		c.Listen = protocol.DefaultListenAddress()
	}
	if c.Address == "" {
		c.Address = net.JoinHostPort("127.0.0.1", strconv.Itoa(protocol.DefaultPort))
	}
	if c.Frames == 0 {
		c.Frames = 10
	}
	if c.Warmup == nil {
		warmup := 20
		c.Warmup = &warmup
	}
	if c.OutputDir == "" {
		c.OutputDir = "frames"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// WarmupFrames returns the number of frames the receiver discards.
func (c *Config) WarmupFrames() int {
	if c.Warmup == nil {
		return 0
	}
	return *c.Warmup
}

// ExposureValue returns the manual exposure to apply, 0 for auto.
func (c *Config) ExposureValue() int {
	if c.Exposure == nil || *c.Exposure < 0 {
		return 0
	}
	return *c.Exposure
}

func (c *Config) FrameSize() int {
	return protocol.FrameSize(c.Width, c.Height)
}

// Validate rejects configurations that could never produce whole frames.
func (c *Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return errors.Errorf("invalid resolution %dx%d", c.Width, c.Height)
	}
	// a YUYV group carries two pixels
	if c.Width%2 != 0 {
		return errors.Errorf("width must be even, got %d", c.Width)
	}
	if c.Buffers < 2 {
		return errors.Errorf("at least 2 capture buffers are required, got %d", c.Buffers)
	}
	if c.FrameTimeout < 1 {
		return errors.Errorf("frame_timeout must be at least 1 second, got %d", c.FrameTimeout)
	}
	if c.Frames < 1 {
		return errors.Errorf("frames must be positive, got %d", c.Frames)
	}
	if c.WarmupFrames() < 0 {
		return errors.Errorf("warmup must not be negative, got %d", c.WarmupFrames())
	}
	if c.CPU != nil && *c.CPU < 0 {
		return errors.Errorf("invalid cpu %d", *c.CPU)
	}
	return nil
}
