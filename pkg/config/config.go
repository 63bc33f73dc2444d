// Package config holds rfbtermd's on-disk settings: a YAML file on disk
// supplies defaults, command-line flags override only the fields the user
// actually set.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Config is rfbtermd's full settings tree.
type Config struct {
	Server   Server   `yaml:"server"`
	Security Security `yaml:"security"`
	Terminal Terminal `yaml:"terminal"`
	Ngrok    Ngrok    `yaml:"ngrok"`
	Snapshot Snapshot `yaml:"snapshot"`
	Advanced Advanced `yaml:"advanced"`
}

// Server configures the RFB listener and optional status HTTP endpoint.
type Server struct {
	Listen       string `yaml:"listen"`
	Title        string `yaml:"title"`
	StatusListen string `yaml:"status_listen"`
}

// Security configures VNC authentication.
type Security struct {
	PasswordEnabled bool   `yaml:"password_enabled"`
	Password        string `yaml:"password"`
}

// Terminal configures the emulator geometry, framebuffer depth and shell.
// Codepage is stored in the config but not applied to the emulator.
type Terminal struct {
	Width   int    `yaml:"width"`
	Height  int    `yaml:"height"`
	Depth   int    `yaml:"depth"`
	Shell   string `yaml:"shell"`
	Codepage string `yaml:"codepage"`
}

// Ngrok configures the optional TCP tunnel exposing the RFB port.
type Ngrok struct {
	Enabled     bool   `yaml:"enabled"`
	AuthToken   string `yaml:"auth_token"`
	TokenStored bool   `yaml:"token_stored"`
}

// Snapshot configures terminal-state persistence to disk. AutoSaveSeconds
// is stored but not read; rfbtermd serve writes a snapshot shortly after
// each screen update.
type Snapshot struct {
	Path            string `yaml:"path"`
	AutoSaveSeconds int    `yaml:"auto_save_seconds"`
}

// Advanced holds rarely-changed operational knobs.
type Advanced struct {
	DebugMode bool `yaml:"debug_mode"`
}

// DefaultConfig returns rfbtermd's built-in defaults.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Server: Server{
			Listen:       ":5900",
			Title:        "rfbterm",
			StatusListen: "",
		},
		Security: Security{
			PasswordEnabled: false,
		},
		Terminal: Terminal{
			Width:    80,
			Height:   24,
			Depth:    32,
			Shell:    "",
			Codepage: "LAT1",
		},
		Ngrok: Ngrok{
			Enabled: false,
		},
		Snapshot: Snapshot{
			Path:            filepath.Join(homeDir, ".rfbterm", "term.snap"),
			AutoSaveSeconds: 0,
		},
		Advanced: Advanced{
			DebugMode: false,
		},
	}
}

// LoadConfig reads configuration from filename, writing out the default
// config if no file exists yet.
func LoadConfig(filename string) *Config {
	cfg := DefaultConfig()

	if filename == "" {
		return cfg
	}

	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		fmt.Printf("Warning: failed to create config directory: %v\n", err)
		return cfg
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		if !os.IsNotExist(err) {
			fmt.Printf("Warning: failed to read config file: %v\n", err)
		}
		if err := cfg.Save(filename); err != nil {
			fmt.Printf("Warning: failed to save default config: %v\n", err)
		}
		return cfg
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		fmt.Printf("Warning: failed to parse config file: %v\n", err)
		return DefaultConfig()
	}

	return cfg
}

// Save writes the configuration to filename as YAML.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0644)
}

// MergeFlags overrides Config fields with any flag the user actually set.
func (c *Config) MergeFlags(flags *pflag.FlagSet) {
	if flags.Changed("listen") {
		if val, err := flags.GetString("listen"); err == nil {
			c.Server.Listen = val
		}
	}
	if flags.Changed("title") {
		if val, err := flags.GetString("title"); err == nil {
			c.Server.Title = val
		}
	}
	if flags.Changed("status-listen") {
		if val, err := flags.GetString("status-listen"); err == nil {
			c.Server.StatusListen = val
		}
	}
	if flags.Changed("password") {
		if val, err := flags.GetString("password"); err == nil && val != "" {
			c.Security.Password = val
			c.Security.PasswordEnabled = true
		}
	}
	if flags.Changed("width") {
		if val, err := flags.GetInt("width"); err == nil {
			c.Terminal.Width = val
		}
	}
	if flags.Changed("height") {
		if val, err := flags.GetInt("height"); err == nil {
			c.Terminal.Height = val
		}
	}
	if flags.Changed("depth") {
		if val, err := flags.GetInt("depth"); err == nil {
			c.Terminal.Depth = val
		}
	}
	if flags.Changed("shell") {
		if val, err := flags.GetString("shell"); err == nil {
			c.Terminal.Shell = val
		}
	}
	if flags.Changed("codepage") {
		if val, err := flags.GetString("codepage"); err == nil {
			c.Terminal.Codepage = val
		}
	}
	if flags.Changed("ngrok") {
		if val, err := flags.GetBool("ngrok"); err == nil {
			c.Ngrok.Enabled = val
		}
	}
	if flags.Changed("ngrok-token") {
		if val, err := flags.GetString("ngrok-token"); err == nil && val != "" {
			c.Ngrok.AuthToken = val
			c.Ngrok.TokenStored = true
		}
	}
	if flags.Changed("snapshot-path") {
		if val, err := flags.GetString("snapshot-path"); err == nil {
			c.Snapshot.Path = val
		}
	}
	if flags.Changed("debug") {
		if val, err := flags.GetBool("debug"); err == nil {
			c.Advanced.DebugMode = val
		}
	}
}

// Print displays the current configuration to stdout.
func (c *Config) Print() {
	fmt.Println("rfbterm configuration:")
	fmt.Println("\nServer:")
	fmt.Printf("  Listen: %s\n", c.Server.Listen)
	fmt.Printf("  Title: %s\n", c.Server.Title)
	fmt.Printf("  Status Listen: %s\n", c.Server.StatusListen)
	fmt.Println("\nSecurity:")
	fmt.Printf("  Password Enabled: %t\n", c.Security.PasswordEnabled)
	fmt.Println("\nTerminal:")
	fmt.Printf("  Geometry: %dx%d\n", c.Terminal.Width, c.Terminal.Height)
	fmt.Printf("  Depth: %d\n", c.Terminal.Depth)
	fmt.Printf("  Codepage: %s\n", c.Terminal.Codepage)
	fmt.Println("\nNgrok:")
	fmt.Printf("  Enabled: %t\n", c.Ngrok.Enabled)
	fmt.Println("\nSnapshot:")
	fmt.Printf("  Path: %s\n", c.Snapshot.Path)
	fmt.Printf("  Auto Save Seconds: %d\n", c.Snapshot.AutoSaveSeconds)
}
