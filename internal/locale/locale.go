// Package locale renders user-facing text for the board, the tray and the
// calendar feed.
package locale

import (
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/tartampluch/birthday-board/internal/config"
	"github.com/tartampluch/birthday-board/internal/engine"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

const (
	localeDir    = "locales"
	localePrefix = "active."
	localeSuffix = ".json"
)

// Translator resolves translation keys for one language.
type Translator struct {
	bundle    *i18n.Bundle
	localizer *i18n.Localizer
	lang      string
	languages []string
}

// New loads the embedded locales and selects the closest match to lang.
// Unknown or empty languages fall back to config.DefaultLanguage.
func New(lang string) *Translator {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	t := &Translator{bundle: bundle}

	entries, err := localeFS.ReadDir(localeDir)
	if err != nil {
		slog.Error(config.ErrLocalesAccess,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyError, err,
		)
	}

	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, localePrefix) || !strings.HasSuffix(name, localeSuffix) {
			slog.Debug(config.MsgLocaleSkip,
				config.LogKeyComponent, config.CompI18n,
				config.LogKeyFile, name,
			)
			continue
		}

		code := strings.TrimSuffix(strings.TrimPrefix(name, localePrefix), localeSuffix)
		if code == "" {
			slog.Warn(config.MsgLocaleBadName,
				config.LogKeyComponent, config.CompI18n,
				config.LogKeyFile, name,
			)
			continue
		}

		if _, err := bundle.LoadMessageFileFS(localeFS, localeDir+"/"+name); err != nil {
			slog.Error(config.ErrLocaleLoad,
				config.LogKeyComponent, config.CompI18n,
				config.LogKeyFile, name,
				config.LogKeyError, err,
			)
			continue
		}
		t.languages = append(t.languages, code)
		slog.Debug(config.MsgLocaleLoaded,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyLang, code,
			config.LogKeyFile, name,
		)
	}

	t.SetLanguage(lang)
	return t
}

// SetLanguage switches the active language.
func (t *Translator) SetLanguage(lang string) {
	t.lang = t.match(lang)
	t.localizer = i18n.NewLocalizer(t.bundle, t.lang)
}

// match maps a user preference such as "ja-JP" onto a loaded locale.
func (t *Translator) match(lang string) string {
	if lang == "" || len(t.languages) == 0 {
		return config.DefaultLanguage
	}

	// The default language comes first so that it wins when nothing matches.
	codes := []string{config.DefaultLanguage}
	for _, code := range t.languages {
		if code != config.DefaultLanguage {
			codes = append(codes, code)
		}
	}
	tags := make([]language.Tag, 0, len(codes))
	for _, code := range codes {
		tags = append(tags, language.Make(code))
	}

	_, idx, conf := language.NewMatcher(tags).Match(language.Make(lang))
	if conf == language.No {
		return config.DefaultLanguage
	}
	return codes[idx]
}

// Lang returns the active language code.
func (t *Translator) Lang() string {
	return t.lang
}

// Languages returns the codes of the loaded locales.
func (t *Translator) Languages() []string {
	return t.languages
}

// Msg translates a key without template data.
func (t *Translator) Msg(key string) string {
	return t.localize(&i18n.LocalizeConfig{MessageID: key})
}

// MsgWith translates a key, filling the message template with data.
func (t *Translator) MsgWith(key string, data map[string]any) string {
	return t.localize(&i18n.LocalizeConfig{MessageID: key, TemplateData: data})
}

// Plural translates a key whose wording depends on count.
func (t *Translator) Plural(key, field string, count int) string {
	return t.localize(&i18n.LocalizeConfig{
		MessageID:    key,
		TemplateData: map[string]any{field: count},
		PluralCount:  count,
	})
}

func (t *Translator) localize(lc *i18n.LocalizeConfig) string {
	if t == nil || t.localizer == nil {
		return lc.MessageID
	}
	msg, err := t.localizer.Localize(lc)
	if err != nil {
		slog.Debug(config.MsgTransMissing,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyKey, lc.MessageID,
			config.LogKeyError, err,
		)
		return lc.MessageID
	}
	return msg
}

// DateLine formats the reference date with its weekday, e.g.
// "2024年05月20日 星期一" in Chinese.
func (t *Translator) DateLine(now time.Time) string {
	return t.MsgWith(config.TKeyDateLine, map[string]any{
		"Year":    strconv.Itoa(now.Year()),
		"Month":   fmt.Sprintf("%02d", int(now.Month())),
		"Day":     fmt.Sprintf("%02d", now.Day()),
		"Weekday": t.Weekday(now.Weekday()),
	})
}

// Weekday returns the localized weekday name.
func (t *Translator) Weekday(d time.Weekday) string {
	return t.Msg(config.TKeyWeekdayPrefix + strconv.Itoa(int(d)))
}

// Category returns the display label for a record category.
func (t *Translator) Category(c engine.Category) string {
	switch c {
	case engine.CategoryPerformer:
		return t.Msg(config.TKeyCatPerformer)
	case engine.CategoryCharacter:
		return t.Msg(config.TKeyCatCharacter)
	default:
		return string(c)
	}
}

// DaysLater renders the distance of an upcoming occurrence.
func (t *Translator) DaysLater(days int) string {
	return t.Plural(config.TKeyDaysLater, "Days", days)
}

// NextIn renders the "next birthday in N days" message shown when nobody
// celebrates today.
func (t *Translator) NextIn(days int) string {
	return t.Plural(config.TKeyNextIn, "Days", days)
}

// HappyBirthday renders the greeting on a today card.
func (t *Translator) HappyBirthday(name string) string {
	return t.MsgWith(config.TKeyHappyBirthday, map[string]any{"Name": name})
}

// Summary renders a calendar event title. It matches the
// engine.CalendarOptions.FormatSummary signature.
func (t *Translator) Summary(rec engine.BirthdayRecord) string {
	return t.MsgWith(config.TKeyEvtSummary, map[string]any{"Name": rec.Name})
}

// TrayStatus renders the tray tooltip for the number of birthdays today.
func (t *Translator) TrayStatus(count int) string {
	if count == 0 {
		return t.Msg(config.TKeyTrayStatusZero)
	}
	return t.Plural(config.TKeyTrayStatus, "Count", count)
}
