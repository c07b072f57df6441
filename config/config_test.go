package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	conf, err := Load(filepath.Join(t.TempDir(), "none.json"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if conf.Device != "/dev/video0" || conf.Width != 640 || conf.Height != 480 {
		t.Errorf("Unexpected defaults: %+v", conf)
	}
	if conf.Buffers != 6 || conf.FrameTimeout != 2 || conf.WarmupFrames() != 20 {
		t.Errorf("Unexpected defaults: %+v", conf)
	}
	if conf.Listen != ":9000" || conf.Address != "127.0.0.1:9000" {
		t.Errorf("Expected default port 9000, got listen %q address %q", conf.Listen, conf.Address)
	}
	if conf.ExposureValue() != 250 {
		t.Errorf("Expected default exposure 250, got %d", conf.ExposureValue())
	}
	if conf.FrameSize() != 640*480*3 {
		t.Errorf("Expected frame size %d, got %d", 640*480*3, conf.FrameSize())
	}
	if err := conf.Validate(); err != nil {
		t.Errorf("Defaults do not validate: %v", err)
	}
}

func TestLoadJSON(t *testing.T) {
	chdir(t, t.TempDir())
	path := filepath.Join(t.TempDir(), "config.json")
	os.WriteFile(path, []byte(`{"device":"/dev/video2","width":320,"height":240,"warmup":0,"frames":2}`), 0644)

	conf, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if conf.Device != "/dev/video2" || conf.Width != 320 || conf.Height != 240 {
		t.Errorf("Unexpected config: %+v", conf)
	}
	if conf.WarmupFrames() != 0 {
		t.Errorf("Expected explicit warmup 0 to survive defaults, got %d", conf.WarmupFrames())
	}
	if conf.Frames != 2 {
		t.Errorf("Expected 2 frames, got %d", conf.Frames)
	}
}

func TestLoadYAML(t *testing.T) {
	chdir(t, t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")
	os.WriteFile(path, []byte("listen: \":9100\"\nwarmup: 5\ncpu: 1\n"), 0644)

	conf, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if conf.Listen != ":9100" || conf.WarmupFrames() != 5 {
		t.Errorf("Unexpected config: %+v", conf)
	}
	if conf.CPU == nil || *conf.CPU != 1 {
		t.Errorf("Expected cpu 1, got %v", conf.CPU)
	}
}

func TestLoadInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	os.WriteFile(path, []byte("{"), 0644)

	if _, err := Load(path); err == nil {
		t.Error("Expected parse error")
	}
}

func TestEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("YUVSTREAM_ADDRESS", "10.0.0.5:9000")
	os.WriteFile(filepath.Join(dir, ".env"), []byte("YUVSTREAM_OUTPUT_DIR=/tmp/out\n"), 0644)
	t.Cleanup(func() { os.Unsetenv("YUVSTREAM_OUTPUT_DIR") })

	conf, err := Load(filepath.Join(dir, "none.json"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if conf.Address != "10.0.0.5:9000" {
		t.Errorf("Expected address from environment, got %q", conf.Address)
	}
	if conf.OutputDir != "/tmp/out" {
		t.Errorf("Expected output dir from .env, got %q", conf.OutputDir)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		c := &Config{}
		c.applyDefaults()
		return c
	}
	neg := -1

	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"odd width", func(c *Config) { c.Width = 641 }},
		{"zero height", func(c *Config) { c.Height = -1 }},
		{"single buffer", func(c *Config) { c.Buffers = 1 }},
		{"no frames", func(c *Config) { c.Frames = -3 }},
		{"negative warmup", func(c *Config) { c.Warmup = &neg }},
		{"negative timeout", func(c *Config) { c.FrameTimeout = -1 }},
		{"negative cpu", func(c *Config) { c.CPU = &neg }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.modify(c)
			if err := c.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestExplicitZeroExposureKeepsAuto(t *testing.T) {
	chdir(t, t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")
	os.WriteFile(path, []byte("exposure: 0\n"), 0644)

	conf, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if conf.ExposureValue() != 0 {
		t.Errorf("Expected auto exposure, got %d", conf.ExposureValue())
	}

	neg := -5
	conf.Exposure = &neg
	if conf.ExposureValue() != 0 {
		t.Errorf("Expected auto exposure for negative value, got %d", conf.ExposureValue())
	}
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
}
