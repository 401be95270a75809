package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// FileType overrides viewer settings for matching files. Nil fields keep
// the global value.
type FileType struct {
	Name      string   `toml:"name"`
	FileTypes []string `toml:"file-types"`
	Wrap      *bool    `toml:"wrap"`
	TabWidth  int      `toml:"tab-width"`
}

type FileTypes struct {
	FileTypes []FileType `toml:"filetype"`
}

func (f FileTypes) Match(path string) *FileType {
	base := filepath.Base(path)
	baseLower := strings.ToLower(base)
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(base), "."))
	for i := range f.FileTypes {
		ft := &f.FileTypes[i]
		for _, pattern := range ft.FileTypes {
			p := strings.ToLower(pattern)
			if p == ext || p == baseLower {
				return ft
			}
			if strings.HasPrefix(p, ".") && strings.TrimPrefix(p, ".") == ext {
				return ft
			}
		}
	}
	return nil
}

// Apply returns v with the overrides of the file type matching path.
func (f FileTypes) Apply(v ViewerOptions, path string) ViewerOptions {
	ft := f.Match(path)
	if ft == nil {
		return v
	}
	if ft.Wrap != nil {
		v.Wrap = *ft.Wrap
	}
	if ft.TabWidth > 0 {
		v.TabWidth = ft.TabWidth
	}
	return v
}

func LoadFileTypes() (FileTypes, error) {
	path, err := FileTypesPath()
	if err != nil {
		return FileTypes{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileTypes{}, nil
		}
		return FileTypes{}, err
	}

	var cfg FileTypes
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return FileTypes{}, err
	}
	return cfg, nil
}

func FileTypesPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "filetypes.toml"), nil
}
