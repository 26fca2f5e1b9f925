// Package config loads and watches the weft configuration file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/pelletier/go-toml/v2"

	"github.com/weftmux/weft/internal/input"
	"github.com/weftmux/weft/internal/seamless"
)

// Config is the on-disk configuration.
type Config struct {
	// ReplyTimeoutMs is the seamless-navigation reply window in
	// milliseconds.
	ReplyTimeoutMs int      `toml:"reply_timeout_ms"`
	SaveLayout     bool     `toml:"save_layout"`
	Keybinds       Keybinds `toml:"keybinds"`
}

// Keybinds names the key for each action. Keys use the form
// "ctrl+left", "alt+h", "esc", "i".
type Keybinds struct {
	NavigateLeft  string `toml:"navigate_left"`
	NavigateRight string `toml:"navigate_right"`
	NavigateUp    string `toml:"navigate_up"`
	NavigateDown  string `toml:"navigate_down"`
	NormalMode    string `toml:"normal_mode"`
	InsertMode    string `toml:"insert_mode"`
	Quit          string `toml:"quit"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		ReplyTimeoutMs: 200,
		SaveLayout:     true,
		Keybinds: Keybinds{
			NavigateLeft:  "ctrl+left",
			NavigateRight: "ctrl+right",
			NavigateUp:    "ctrl+up",
			NavigateDown:  "ctrl+down",
			NormalMode:    "esc",
			InsertMode:    "i",
			Quit:          "ctrl+q",
		},
	}
}

// Path returns the config file location under the XDG config home.
func Path() (string, error) {
	path, err := xdg.ConfigFile("weft/config.toml")
	if err != nil {
		return "", fmt.Errorf("failed to resolve config path: %w", err)
	}
	return path, nil
}

// Load reads the user config, filling unset fields with defaults. A
// missing file yields the defaults without error.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads a config file from an explicit path.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.ReplyTimeoutMs <= 0 {
		cfg.ReplyTimeoutMs = DefaultConfig().ReplyTimeoutMs
	}
	return cfg, nil
}

// WriteDefault writes the default config to the user config path,
// creating parent directories. Overwrites an existing file.
func WriteDefault() (string, error) {
	path, err := Path()
	if err != nil {
		return "", err
	}
	data, err := toml.Marshal(DefaultConfig())
	if err != nil {
		return "", fmt.Errorf("failed to encode default config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write config: %w", err)
	}
	return path, nil
}

// ParseKey translates a key name like "ctrl+left" into bind-matching
// terms.
func ParseKey(name string) (input.Key, rune, input.Modifiers, error) {
	var mod input.Modifiers
	parts := strings.Split(strings.ToLower(strings.TrimSpace(name)), "+")
	for len(parts) > 1 {
		switch parts[0] {
		case "ctrl":
			mod |= input.ModCtrl
		case "alt":
			mod |= input.ModAlt
		case "shift":
			mod |= input.ModShift
		default:
			return input.KeyNone, 0, 0, fmt.Errorf("unknown modifier %q in %q", parts[0], name)
		}
		parts = parts[1:]
	}
	switch key := parts[0]; key {
	case "left":
		return input.KeyLeft, 0, mod, nil
	case "right":
		return input.KeyRight, 0, mod, nil
	case "up":
		return input.KeyUp, 0, mod, nil
	case "down":
		return input.KeyDown, 0, mod, nil
	case "enter":
		return input.KeyEnter, 0, mod, nil
	case "tab":
		return input.KeyTab, 0, mod, nil
	case "esc", "escape":
		return input.KeyEscape, 0, mod, nil
	case "backspace":
		return input.KeyBackspace, 0, mod, nil
	case "home":
		return input.KeyHome, 0, mod, nil
	case "end":
		return input.KeyEnd, 0, mod, nil
	case "pgup":
		return input.KeyPageUp, 0, mod, nil
	case "pgdn":
		return input.KeyPageDown, 0, mod, nil
	default:
		runes := []rune(key)
		if len(runes) != 1 {
			return input.KeyNone, 0, 0, fmt.Errorf("unknown key %q", name)
		}
		return input.KeyRune, runes[0], mod, nil
	}
}

// bindSpec pairs an action name with its handler wiring.
type bindSpec struct {
	name     string
	key      string
	mode     input.InputMode
	nextMode input.InputMode
	action   input.Action
}

// Binds builds the pipeline key-bind table from the configured key
// names. Keys that fail to parse are skipped and reported.
func (c *Config) Binds(quit input.Action) ([]input.KeyBind, []error) {
	navigate := func(dir seamless.NavigateDirection) input.Action {
		return func(p *input.Pipeline) { p.RequestNavigate(dir) }
	}
	specs := []bindSpec{
		{"navigate_left", c.Keybinds.NavigateLeft, input.ModeInsert, input.ModeInsert, navigate(seamless.DirLeft)},
		{"navigate_right", c.Keybinds.NavigateRight, input.ModeInsert, input.ModeInsert, navigate(seamless.DirRight)},
		{"navigate_up", c.Keybinds.NavigateUp, input.ModeInsert, input.ModeInsert, navigate(seamless.DirUp)},
		{"navigate_down", c.Keybinds.NavigateDown, input.ModeInsert, input.ModeInsert, navigate(seamless.DirDown)},
		{"normal_mode", c.Keybinds.NormalMode, input.ModeInsert, input.ModeNormal, nil},
		{"insert_mode", c.Keybinds.InsertMode, input.ModeNormal, input.ModeInsert, nil},
		{"quit", c.Keybinds.Quit, input.ModeNormal, input.ModeNormal, quit},
	}

	var (
		binds []input.KeyBind
		errs  []error
	)
	for _, s := range specs {
		if s.key == "" {
			continue
		}
		key, r, mod, err := ParseKey(s.key)
		if err != nil {
			errs = append(errs, fmt.Errorf("keybind %s: %w", s.name, err))
			continue
		}
		binds = append(binds, input.KeyBind{
			Mode:     s.mode,
			Key:      key,
			Rune:     r,
			Mod:      mod,
			Action:   s.action,
			NextMode: s.nextMode,
		})
	}
	return binds, errs
}
