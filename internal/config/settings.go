package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/unkn0wn-root/httpoutline/internal/errdef"
)

const (
	SettingsFormatTOML SettingsFormat = "toml"
	SettingsFormatJSON SettingsFormat = "json"
)

type Settings struct {
	Display DisplaySettings `json:"display" toml:"display" yaml:"display"`
	Refresh RefreshSettings `json:"refresh" toml:"refresh" yaml:"refresh"`
	Layout  LayoutSettings  `json:"layout"  toml:"layout"  yaml:"layout"`
	Index   IndexSettings   `json:"index"   toml:"index"   yaml:"index"`
}

type SettingsFormat string
type SettingsHandle struct {
	Path   string
	Format SettingsFormat
}

func DefaultSettings() Settings {
	return Settings{
		Display: DefaultDisplaySettings(),
		Refresh: DefaultRefreshSettings(),
		Layout:  DefaultLayoutSettings(),
		Index:   DefaultIndexSettings(),
	}
}

// Normalise fills unset fields with defaults and clamps ranges.
func (s Settings) Normalise() Settings {
	return Settings{
		Display: NormaliseDisplaySettings(s.Display),
		Refresh: NormaliseRefreshSettings(s.Refresh),
		Layout:  NormaliseLayoutSettings(s.Layout),
		Index:   NormaliseIndexSettings(s.Index),
	}
}

// LoadSettings tries settings.toml, then settings.json, then falls back
// to defaults. Parse errors fail immediately; a missing file moves on to
// the next format.
func LoadSettings() (Settings, SettingsHandle, error) {
	return LoadSettingsFrom(Dir())
}

func LoadSettingsFrom(dir string) (Settings, SettingsHandle, error) {
	candidates := []SettingsHandle{
		{Path: filepath.Join(dir, "settings.toml"), Format: SettingsFormatTOML},
		{Path: filepath.Join(dir, "settings.json"), Format: SettingsFormatJSON},
	}

	var accumulated error
	for _, candidate := range candidates {
		data, err := os.ReadFile(candidate.Path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			accumulated = errors.Join(
				accumulated,
				fmt.Errorf("read settings %q: %w", candidate.Path, err),
			)
			continue
		}

		settings, err := decodeSettings(data, candidate.Format)
		if err != nil {
			return Settings{}, SettingsHandle{}, errdef.Wrap(
				errdef.CodeConfig,
				err,
				"parse settings %q",
				candidate.Path,
			)
		}
		return settings.Normalise(), candidate, nil
	}

	if accumulated != nil {
		return Settings{}, SettingsHandle{}, errdef.Wrap(errdef.CodeConfig, accumulated, "load settings")
	}

	return DefaultSettings(), SettingsHandle{
		Path:   candidates[0].Path,
		Format: SettingsFormatTOML,
	}, nil
}

func decodeSettings(data []byte, format SettingsFormat) (Settings, error) {
	var settings Settings
	switch format {
	case SettingsFormatTOML:
		if err := toml.Unmarshal(data, &settings); err != nil {
			return Settings{}, err
		}
	case SettingsFormatJSON:
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&settings); err != nil {
			return Settings{}, err
		}
	default:
		return Settings{}, fmt.Errorf("unsupported settings format %q", format)
	}
	return settings, nil
}

func EncodeSettings(settings Settings, format SettingsFormat) ([]byte, error) {
	settings = settings.Normalise()
	switch format {
	case SettingsFormatTOML, "":
		return toml.Marshal(settings)
	case SettingsFormatJSON:
		buffer := &bytes.Buffer{}
		encoder := json.NewEncoder(buffer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(settings); err != nil {
			return nil, err
		}
		return buffer.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported settings format %q", format)
	}
}

func SaveSettings(settings Settings, handle SettingsHandle) error {
	path := handle.Path
	format := handle.Format
	if path == "" {
		path = filepath.Join(Dir(), "settings.toml")
	}
	if format == "" {
		format = SettingsFormatTOML
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errdef.Wrap(errdef.CodeFilesystem, err, "ensure settings directory")
	}

	data, err := EncodeSettings(settings, format)
	if err != nil {
		return errdef.Wrap(errdef.CodeConfig, err, "encode settings")
	}

	if err := writeFileAtomic(path, data, 0o644); err != nil {
		return errdef.Wrap(errdef.CodeFilesystem, err, "write settings %q", path)
	}
	return nil
}

// writeFileAtomic writes to a temp file in the same directory and renames
// it over path.
func writeFileAtomic(path string, data []byte, perm fs.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".httpoutline-settings-*.tmp")
	if err != nil {
		return err
	}

	tmpPath := tmp.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return errors.Join(err, tmp.Close())
	}
	if err := tmp.Chmod(perm); err != nil {
		return errors.Join(err, tmp.Close())
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}
