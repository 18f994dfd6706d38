package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// SourceSettings describes where the birthday table is read from.
type SourceSettings struct {
	// Mode is SourceModeLocal or SourceModeWeb.
	Mode string `yaml:"mode"`
	// Path is the local file read in SourceModeLocal.
	Path string `yaml:"path"`
	// URL is fetched in SourceModeWeb.
	URL string `yaml:"url"`
	// User enables HTTP Basic Auth; the password lives in the OS keyring.
	User string `yaml:"user"`
	// Format is FormatAuto, FormatTable or FormatVCard.
	Format string `yaml:"format"`
}

// Settings is the runtime configuration persisted as YAML.
type Settings struct {
	Source SourceSettings `yaml:"source"`

	// Listen is the HTTP listen address for the board and the feed.
	Listen string `yaml:"listen"`

	// RefreshCron is a cron spec evaluated in the reference zone.
	RefreshCron string `yaml:"refresh"`

	// Language selects the display translations.
	Language string `yaml:"language"`

	// ReminderTrigger is an ISO8601 duration (e.g. "-P1D") added as a VALARM
	// to every feed event. Empty disables reminders.
	ReminderTrigger string `yaml:"reminder,omitempty"`

	// CalendarName is published as X-WR-CALNAME.
	CalendarName string `yaml:"calendar_name"`
}

// DefaultSettings returns an in-memory default configuration.
func DefaultSettings() *Settings {
	return &Settings{
		Source: SourceSettings{
			Mode:   SourceModeLocal,
			Path:   DefaultSourcePath,
			Format: FormatAuto,
		},
		Listen:       DefaultListen,
		RefreshCron:  DefaultRefreshCron,
		Language:     DefaultLanguage,
		CalendarName: DefaultCalendarName,
	}
}

// Normalize fills in missing or unknown values with defaults so that
// partially-filled files still behave correctly.
func (s *Settings) Normalize() {
	switch s.Source.Mode {
	case SourceModeLocal, SourceModeWeb:
	default:
		s.Source.Mode = SourceModeLocal
	}
	switch s.Source.Format {
	case FormatAuto, FormatTable, FormatVCard:
	default:
		s.Source.Format = FormatAuto
	}
	if s.Source.Mode == SourceModeLocal && s.Source.Path == "" {
		s.Source.Path = DefaultSourcePath
	}
	if s.Listen == "" {
		s.Listen = DefaultListen
	}
	if s.RefreshCron == "" {
		s.RefreshCron = DefaultRefreshCron
	}
	if !isSupportedLanguage(s.Language) {
		s.Language = DefaultLanguage
	}
	if s.CalendarName == "" {
		s.CalendarName = DefaultCalendarName
	}
}

// ReminderDays extracts N from a "-PND" trigger. ok is false when the trigger
// is empty or uses any other duration form.
func ReminderDays(trigger string) (days int, ok bool) {
	body, found := strings.CutPrefix(trigger, "-P")
	if !found {
		return 0, false
	}
	body, found = strings.CutSuffix(body, "D")
	if !found {
		return 0, false
	}
	n, err := strconv.Atoi(body)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func isSupportedLanguage(lang string) bool {
	for _, l := range SupportedLanguages {
		if l == lang {
			return true
		}
	}
	return false
}

// DefaultSettingsPath returns the settings file location in the user config dir.
func DefaultSettingsPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("%s: %w", ErrConfigDir, err)
	}
	return filepath.Join(dir, AppID, ConfigFileName), nil
}

// LoadSettings reads settings from the YAML file at path.
//
// A missing file is a first run: the defaults are written with 0600
// permissions and returned. An existing file is decoded and normalized.
func LoadSettings(path string) (*Settings, error) {
	if path == "" {
		return nil, errors.New(ErrConfigPathEmpty)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s := DefaultSettings()
			if err := SaveSettings(path, s); err != nil {
				// Defaults are still usable; the caller decides.
				return s, err
			}
			slog.Info(MsgConfigCreated,
				LogKeyComponent, CompConfig,
				LogKeyPath, path)
			return s, nil
		}
		return nil, fmt.Errorf("%s: %w", ErrConfigRead, err)
	}

	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%s: %w", ErrConfigDecode, err)
	}
	s.Normalize()
	return &s, nil
}

// SaveSettings writes s to path atomically (temp file + rename) with 0600
// permissions, creating the parent directory if needed.
func SaveSettings(path string, s *Settings) error {
	if path == "" {
		return errors.New(ErrConfigPathEmpty)
	}
	if s == nil {
		return errors.New(ErrConfigNil)
	}
	s.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, DirPermUserRWX); err != nil {
		return fmt.Errorf("%s: %w", ErrConfigWrite, err)
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrConfigWrite, err)
	}

	tmp, err := os.CreateTemp(dir, ConfigTempGlob)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrConfigWrite, err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%s: %w", ErrConfigWrite, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%s: %w", ErrConfigWrite, err)
	}
	if err := os.Chmod(tmpName, FilePermUserRW); err != nil {
		return fmt.Errorf("%s: %w", ErrConfigWrite, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("%s: %w", ErrConfigWrite, err)
	}
	return nil
}
