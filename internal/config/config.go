package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/tidwall/sjson"
	"github.com/tloncorp/chatscroller/internal/scroller"
)

const (
	appName              = "chatscroller"
	defaultDataDirectory = ".chatscroller"
	defaultPageSize      = 50
)

var ErrUnknownField = errors.New("unknown config field")

type TUIOptions struct {
	CompactMode bool `json:"compact_mode,omitempty" jsonschema:"description=Hide author headers and day dividers"`
}

type Options struct {
	Debug         bool   `json:"debug,omitempty" jsonschema:"description=Enable debug logging"`
	ShowDevTools  bool   `json:"show_dev_tools,omitempty" jsonschema:"description=Show the scroller state overlay on start"`
	PageSize      int    `json:"page_size,omitempty" jsonschema:"description=Posts fetched per page,minimum=1,default=50"`
	DataDirectory string `json:"data_directory,omitempty" jsonschema:"description=Directory for the post store and logs,default=.chatscroller"` // Relative to the cwd
}

// Scroller overrides scroller tuning. Unset fields keep the base value they
// are applied to.
type Scroller struct {
	Overscan                *int     `json:"overscan,omitempty" jsonschema:"description=Items rendered beyond each viewport edge,minimum=0"`
	AtEndThreshold          *float64 `json:"at_end_threshold,omitempty" jsonschema:"description=Distance from an edge that counts as being at it,minimum=0"`
	ForceScrollCooldownMS   *int64   `json:"force_scroll_cooldown_ms,omitempty" jsonschema:"description=Milliseconds during which further forced scrolls are suppressed,minimum=0"`
	SettleDelayMS           *int64   `json:"settle_delay_ms,omitempty" jsonschema:"description=Milliseconds before scroll into view reports completion,minimum=0"`
	DirectionNoiseThreshold *float64 `json:"direction_noise_threshold,omitempty" jsonschema:"description=Travel required before the reading direction may change,minimum=0"`
	EstimateSize            *float64 `json:"estimate_size,omitempty" jsonschema:"description=Assumed size of unmeasured items,exclusiveMinimum=0"`
	MomentumSettleThreshold *float64 `json:"momentum_settle_threshold,omitempty" jsonschema:"description=Largest correction dropped while momentum scrolling,minimum=0"`
	LoaderPaddingTop        *float64 `json:"loader_padding_top,omitempty" jsonschema:"minimum=0"`
	LoaderPaddingBottom     *float64 `json:"loader_padding_bottom,omitempty" jsonschema:"minimum=0"`
}

// Apply overlays the configured fields on base.
func (s *Scroller) Apply(base scroller.Options) scroller.Options {
	if s == nil {
		return base
	}
	o := base
	if s.Overscan != nil {
		o.Overscan = *s.Overscan
	}
	if s.AtEndThreshold != nil {
		o.AtEndThreshold = *s.AtEndThreshold
	}
	if s.ForceScrollCooldownMS != nil {
		o.ForceScrollCooldown = time.Duration(*s.ForceScrollCooldownMS) * time.Millisecond
	}
	if s.SettleDelayMS != nil {
		o.SettleDelay = time.Duration(*s.SettleDelayMS) * time.Millisecond
	}
	if s.DirectionNoiseThreshold != nil {
		o.DirectionNoise = *s.DirectionNoiseThreshold
	}
	if s.EstimateSize != nil {
		o.EstimateSize = *s.EstimateSize
	}
	if s.MomentumSettleThreshold != nil {
		o.MomentumSettle = *s.MomentumSettleThreshold
	}
	if s.LoaderPaddingTop != nil {
		o.LoaderPadding.Top = *s.LoaderPaddingTop
	}
	if s.LoaderPaddingBottom != nil {
		o.LoaderPadding.Bottom = *s.LoaderPaddingBottom
	}
	return o
}

// Config holds the configuration for chatscroller.
type Config struct {
	Options  *Options    `json:"options,omitempty"`
	Scroller *Scroller   `json:"scroller,omitempty"`
	TUI      *TUIOptions `json:"tui,omitempty"`

	// Internal
	workingDir    string `json:"-"`
	dataConfigDir string `json:"-"`
}

func (c *Config) WorkingDir() string {
	return c.workingDir
}

func (c *Config) setDefaults(workingDir string) {
	c.workingDir = workingDir
	if c.Options == nil {
		c.Options = &Options{}
	}
	if c.Scroller == nil {
		c.Scroller = &Scroller{}
	}
	if c.TUI == nil {
		c.TUI = &TUIOptions{}
	}
	if c.Options.DataDirectory == "" {
		c.Options.DataDirectory = defaultDataDirectory
	}
	if !filepath.IsAbs(c.Options.DataDirectory) {
		c.Options.DataDirectory = filepath.Join(workingDir, c.Options.DataDirectory)
	}
	if c.Options.PageSize == 0 {
		c.Options.PageSize = defaultPageSize
	}
}

// Validate checks the configured values, including the scroller tuning as it
// would apply on top of the library defaults.
func (c *Config) Validate() error {
	var errs []error
	if c.Options != nil && c.Options.PageSize < 0 {
		errs = append(errs, fmt.Errorf("options.page_size must not be negative, got %d", c.Options.PageSize))
	}
	if err := c.Scroller.Apply(scroller.DefaultOptions()).Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

func (c *Config) SetCompactMode(enabled bool) error {
	if c.TUI == nil {
		c.TUI = &TUIOptions{}
	}
	c.TUI.CompactMode = enabled
	return c.SetConfigField("tui.compact_mode", enabled)
}

func (c *Config) SetShowDevTools(enabled bool) error {
	if c.Options == nil {
		c.Options = &Options{}
	}
	c.Options.ShowDevTools = enabled
	return c.SetConfigField("options.show_dev_tools", enabled)
}

// SetConfigField writes a single field to the user data config file.
func (c *Config) SetConfigField(key string, value any) error {
	return SetFileField(c.dataConfigDir, key, value)
}

// SetFileField writes a single field to the config file at path, creating it
// when needed.
func SetFileField(path, key string, value any) error {
	if !slices.Contains(Fields(), key) {
		return fmt.Errorf("%w: %s", ErrUnknownField, key)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			data = []byte("{}")
		} else {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	newValue, err := sjson.Set(string(data), key, value)
	if err != nil {
		return fmt.Errorf("failed to set config field %s: %w", key, err)
	}

	var candidate Config
	if err := json.Unmarshal([]byte(newValue), &candidate); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	if err := candidate.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(newValue), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
