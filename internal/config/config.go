package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

type Keymap struct {
	Normal map[string]string `toml:"normal"`
}

type ViewerOptions struct {
	ChunkAlignment   int     `toml:"chunk-alignment"`
	CacheCapacity    int     `toml:"cache-capacity"`
	CachePolicy      string  `toml:"cache-policy"`
	BufferAhead      int     `toml:"buffer-ahead"`
	BufferBehind     int     `toml:"buffer-behind"`
	RerenderMargin   int     `toml:"rerender-margin"`
	MaxVirtualHeight float64 `toml:"max-virtual-height"`
	LineHeight       int     `toml:"line-height"`
	Wrap             bool    `toml:"wrap"`
	TabWidth         int     `toml:"tab-width"`
	LineNumbers      bool    `toml:"line-numbers"`
	FrameInterval    string  `toml:"frame-interval"`
	Prefetch         bool    `toml:"prefetch"`
}

const defaultFrameInterval = 16 * time.Millisecond

// FrameDuration parses FrameInterval, falling back to 16ms when it is
// empty, malformed or not positive.
func (v ViewerOptions) FrameDuration() time.Duration {
	d, err := time.ParseDuration(v.FrameInterval)
	if err != nil || d <= 0 {
		return defaultFrameInterval
	}
	return d
}

type Theme struct {
	Theme                      string `toml:"theme"`
	Foreground                 string `toml:"foreground"`
	Background                 string `toml:"background"`
	StatuslineForeground       string `toml:"statusline-foreground"`
	StatuslineBackground       string `toml:"statusline-background"`
	CommandlineForeground      string `toml:"commandline-foreground"`
	CommandlineBackground      string `toml:"commandline-background"`
	LineNumberForeground       string `toml:"line-number-foreground"`
	LineNumberActiveForeground string `toml:"line-number-active-foreground"`
	EditLineForeground         string `toml:"edit-line-foreground"`
	EditLineBackground         string `toml:"edit-line-background"`
	SearchMatchForeground      string `toml:"search-foreground"`
	SearchMatchBackground      string `toml:"search-background"`
	ActiveMatchForeground      string `toml:"active-search-foreground"`
	ActiveMatchBackground      string `toml:"active-search-background"`
	ModifiedForeground         string `toml:"modified-foreground"`
	ErrorForeground            string `toml:"error-foreground"`
	ScrollIndicatorForeground  string `toml:"scroll-indicator-foreground"`
}

type Config struct {
	Viewer ViewerOptions `toml:"viewer"`
	Theme  Theme         `toml:"theme"`
	Keymap Keymap        `toml:"keymap"`
}

func Default() Config {
	return Config{
		Viewer: ViewerOptions{
			ChunkAlignment:   100,
			CacheCapacity:    8,
			CachePolicy:      "fifo",
			BufferAhead:      200,
			BufferBehind:     100,
			RerenderMargin:   50,
			MaxVirtualHeight: 10_000_000,
			LineHeight:       1,
			Wrap:             true,
			TabWidth:         4,
			LineNumbers:      true,
			FrameInterval:    "16ms",
			Prefetch:         true,
		},
		Theme: Theme{
			Theme:                      "",
			Foreground:                 "#B3B1AD",
			Background:                 "#0A0E14",
			StatuslineForeground:       "#B3B1AD",
			StatuslineBackground:       "#0F1419",
			CommandlineForeground:      "#B3B1AD",
			CommandlineBackground:      "#0F1419",
			LineNumberForeground:       "#3E4B59",
			LineNumberActiveForeground: "#B3B1AD",
			EditLineForeground:         "#B3B1AD",
			EditLineBackground:         "#27425A",
			SearchMatchForeground:      "#B3B1AD",
			SearchMatchBackground:      "#27425A",
			ActiveMatchForeground:      "#000000",
			ActiveMatchBackground:      "#FFD700",
			ModifiedForeground:         "#E6B450",
			ErrorForeground:            "#FF3333",
			ScrollIndicatorForeground:  "#3E4B59",
		},
		Keymap: Keymap{
			Normal: map[string]string{
				"j":      "scroll_down",
				"k":      "scroll_up",
				"down":   "scroll_down",
				"up":     "scroll_up",
				"ctrl+e": "scroll_down",
				"ctrl+y": "scroll_up",
				"ctrl+d": "half_page_down",
				"ctrl+u": "half_page_up",
				"pgdn":   "page_down",
				"pgup":   "page_up",
				"space":  "page_down",
				"g":      "file_start",
				"G":      "file_end",
				"home":   "file_start",
				"end":    "file_end",
				":":      "goto_line_prompt",
				"cmd+g":  "goto_line_prompt",

				// Search
				"/":     "search_forward",
				"n":     "search_next",
				"N":     "search_prev",
				"esc":   "clear_search",
				"cmd+f": "search_forward",
				"r":     "replace_prompt",

				// Editing
				"e":      "toggle_edit",
				"enter":  "edit_line",
				"u":      "undo",
				"U":      "redo",
				"ctrl+r": "redo",
				"cmd+s":  "save",
				"ctrl+s": "save",
				"R":      "refresh",

				// Formatting
				"F": "format_sentence_breaks",
				"B": "format_compress_blank_lines",
				"D": "format_remove_blank_lines",
				"P": "format_preview",

				// Bookmarks
				"m": "bookmark_add",
				"M": "bookmark_remove",
				"]": "bookmark_next",
				"[": "bookmark_prev",
				"'": "bookmark_list",

				// View
				"w":      "toggle_wrap",
				"ctrl+l": "toggle_line_numbers",
				"=":      "line_height_up",
				"-":      "line_height_down",

				"q":      "quit",
				"ctrl+c": "quit",
			},
		},
	}
}

// Load reads config.toml from ConfigDir.
func Load() (Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return Default(), err
	}
	return LoadFile(path)
}

// LoadFile merges the file at path over Default. A missing file is not an
// error.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	var userCfg Config
	md, err := toml.Decode(string(data), &userCfg)
	if err != nil {
		return cfg, err
	}

	mergeViewer(&cfg.Viewer, userCfg.Viewer, md)

	if userCfg.Theme.Theme != "" {
		cfg.Theme.Theme = userCfg.Theme.Theme
	}
	if cfg.Theme.Theme != "" {
		theme, err := LoadTheme(cfg.Theme.Theme)
		if err != nil {
			return cfg, err
		}
		mergeTheme(&cfg.Theme, theme)
	}
	mergeTheme(&cfg.Theme, userCfg.Theme)

	for k, v := range userCfg.Keymap.Normal {
		cfg.Keymap.Normal[k] = v
	}
	return cfg, nil
}

// mergeViewer copies the keys the user set. Values that cannot work keep
// their defaults.
func mergeViewer(dst *ViewerOptions, src ViewerOptions, md toml.MetaData) {
	set := func(key string) bool { return md.IsDefined("viewer", key) }

	if src.ChunkAlignment > 0 {
		dst.ChunkAlignment = src.ChunkAlignment
	}
	if src.CacheCapacity > 0 {
		dst.CacheCapacity = src.CacheCapacity
	}
	if src.CachePolicy == "fifo" || src.CachePolicy == "lru" {
		dst.CachePolicy = src.CachePolicy
	}
	if set("buffer-ahead") && src.BufferAhead >= 0 {
		dst.BufferAhead = src.BufferAhead
	}
	if set("buffer-behind") && src.BufferBehind >= 0 {
		dst.BufferBehind = src.BufferBehind
	}
	if set("rerender-margin") && src.RerenderMargin >= 0 {
		dst.RerenderMargin = src.RerenderMargin
	}
	if src.MaxVirtualHeight > 0 {
		dst.MaxVirtualHeight = src.MaxVirtualHeight
	}
	if src.LineHeight > 0 {
		dst.LineHeight = src.LineHeight
	}
	if src.TabWidth > 0 {
		dst.TabWidth = src.TabWidth
	}
	if src.FrameInterval != "" {
		if d, err := time.ParseDuration(src.FrameInterval); err == nil && d > 0 {
			dst.FrameInterval = src.FrameInterval
		}
	}
	if set("wrap") {
		dst.Wrap = src.Wrap
	}
	if set("line-numbers") {
		dst.LineNumbers = src.LineNumbers
	}
	if set("prefetch") {
		dst.Prefetch = src.Prefetch
	}
}

func mergeTheme(dst *Theme, src Theme) {
	if src.Foreground != "" {
		dst.Foreground = src.Foreground
	}
	if src.Background != "" {
		dst.Background = src.Background
	}
	if src.StatuslineForeground != "" {
		dst.StatuslineForeground = src.StatuslineForeground
	}
	if src.StatuslineBackground != "" {
		dst.StatuslineBackground = src.StatuslineBackground
	}
	if src.CommandlineForeground != "" {
		dst.CommandlineForeground = src.CommandlineForeground
	}
	if src.CommandlineBackground != "" {
		dst.CommandlineBackground = src.CommandlineBackground
	}
	if src.LineNumberForeground != "" {
		dst.LineNumberForeground = src.LineNumberForeground
	}
	if src.LineNumberActiveForeground != "" {
		dst.LineNumberActiveForeground = src.LineNumberActiveForeground
	}
	if src.EditLineForeground != "" {
		dst.EditLineForeground = src.EditLineForeground
	}
	if src.EditLineBackground != "" {
		dst.EditLineBackground = src.EditLineBackground
	}
	if src.SearchMatchForeground != "" {
		dst.SearchMatchForeground = src.SearchMatchForeground
	}
	if src.SearchMatchBackground != "" {
		dst.SearchMatchBackground = src.SearchMatchBackground
	}
	if src.ActiveMatchForeground != "" {
		dst.ActiveMatchForeground = src.ActiveMatchForeground
	}
	if src.ActiveMatchBackground != "" {
		dst.ActiveMatchBackground = src.ActiveMatchBackground
	}
	if src.ModifiedForeground != "" {
		dst.ModifiedForeground = src.ModifiedForeground
	}
	if src.ErrorForeground != "" {
		dst.ErrorForeground = src.ErrorForeground
	}
	if src.ScrollIndicatorForeground != "" {
		dst.ScrollIndicatorForeground = src.ScrollIndicatorForeground
	}
}

func ThemePath(name string) (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "theme", name+".toml"), nil
}

func LoadTheme(name string) (Theme, error) {
	path, err := ThemePath(name)
	if err != nil {
		return Theme{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Theme{}, err
	}
	var t Theme
	if _, err := toml.Decode(string(data), &t); err == nil {
		return t, nil
	}
	var wrap struct {
		Theme Theme `toml:"theme"`
	}
	if _, err := toml.Decode(string(data), &wrap); err != nil {
		return Theme{}, err
	}
	return wrap.Theme, nil
}

func ConfigDir() (string, error) {
	if v := os.Getenv("QVIEW_CONFIG_HOME"); v != "" {
		return filepath.Join(v), nil
	}
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "qview"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "qview"), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}
