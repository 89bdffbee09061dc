package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
)

type testOptions struct {
	Config        string
	Port          string `toml:"server.port" env:"SERVER_PORT"`
	DeviceID      string `toml:"server.device_id" env:"SERVER_DEVICE_ID"`
	JPEGQuality   int    `toml:"camera.jpeg_quality" env:"CAMERA_JPEG_QUALITY"`
	LEDEnabled    bool   `toml:"features.led_enabled" env:"FEATURES_LED_ENABLED"`
	PipeArguments []string
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigFromTOML(t *testing.T) {
	path := writeConfig(t, `
[server]
port = ":9000"

[camera]
jpeg_quality = 10

[features]
led_enabled = true
`)

	opts := &testOptions{Config: path, Port: ":8080", JPEGQuality: 12}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatal(err)
	}

	if opts.Port != ":9000" {
		t.Errorf("expected port :9000 from TOML, got %q", opts.Port)
	}
	if opts.JPEGQuality != 10 {
		t.Errorf("expected jpeg_quality 10 from TOML, got %d", opts.JPEGQuality)
	}
	if !opts.LEDEnabled {
		t.Error("expected led_enabled true from TOML")
	}
}

func TestEnvOverridesTOML(t *testing.T) {
	path := writeConfig(t, `
[server]
port = ":9000"
`)
	t.Setenv("ESPCAM_SERVER_PORT", ":7070")

	opts := &testOptions{Config: path}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatal(err)
	}

	if opts.Port != ":7070" {
		t.Errorf("expected env var to override TOML, got %q", opts.Port)
	}
}

func TestMissingConfigFileIsNotAnError(t *testing.T) {
	opts := &testOptions{Config: "/nonexistent/config.toml", Port: ":8080"}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("missing config file should not error: %v", err)
	}
	if opts.Port != ":8080" {
		t.Errorf("defaults should be preserved, got %q", opts.Port)
	}
}

func TestInvalidTOMLReturnsError(t *testing.T) {
	path := writeConfig(t, `not valid = = toml`)
	opts := &testOptions{Config: path}
	if err := LoadConfig(opts, nil); err == nil {
		t.Error("expected parse error for invalid TOML")
	}
}

func TestFieldNameToFlag(t *testing.T) {
	cases := map[string]string{
		"Port":          "port",
		"LoggingLevel":  "logging-level",
		"JPEGQuality":   "jpeg-quality",
		"DeviceID":      "device-id",
		"CameraFBCount": "camera-fb-count",
		"LoggingHTTP":   "logging-http",
	}
	for in, want := range cases {
		if got := fieldNameToFlag(in); got != want {
			t.Errorf("fieldNameToFlag(%q) = %q, want %q", in, got, want)
		}
	}
}

// A flag explicitly set on the command line must survive both the TOML file
// and the environment, including for acronym-bearing field names.
func TestChangedCLIFlagWins(t *testing.T) {
	path := writeConfig(t, `
[server]
port = ":9000"
device_id = "from-toml"
`)
	t.Setenv("ESPCAM_SERVER_DEVICE_ID", "from-env")

	cmd := &cobra.Command{}
	cmd.Flags().String("device-id", "", "")
	cmd.Flags().String("port", "", "")
	if err := cmd.Flags().Set("device-id", "from-cli"); err != nil {
		t.Fatal(err)
	}

	// humacli binds the flag value into the options before LoadConfig runs.
	opts := &testOptions{Config: path, DeviceID: "from-cli"}
	if err := LoadConfig(opts, cmd); err != nil {
		t.Fatal(err)
	}

	if opts.DeviceID != "from-cli" {
		t.Errorf("device id = %q, want the CLI value to win", opts.DeviceID)
	}
	if opts.Port != ":9000" {
		t.Errorf("port = %q, unchanged flags must still load from TOML", opts.Port)
	}
}
