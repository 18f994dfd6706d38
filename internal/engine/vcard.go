package engine

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/emersion/go-vcard"
	"github.com/tartampluch/birthday-board/internal/config"
)

// ParseVCards reads a vCard stream and converts every card carrying a BDAY
// into a record. Cards without BDAY are ignored; cards with an unreadable
// BDAY are reported as ParseErrors whose Line is the card's ordinal.
//
// The category comes from the first known tag in CATEGORIES and defaults to
// CategoryCharacter. OriginalText keeps the BDAY value as written.
func ParseVCards(r io.Reader) ([]BirthdayRecord, []*ParseError, error) {
	var (
		records []BirthdayRecord
		skipped []*ParseError
	)

	decoder := vcard.NewDecoder(r)
	for ordinal := 1; ; ordinal++ {
		card, err := decoder.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, ErrSourceTooLarge) {
			return nil, nil, err
		}
		if err != nil {
			// The decoder cannot resynchronise after a syntax error; keep
			// what was read so far.
			slog.Warn(config.MsgSkippedCard,
				config.LogKeyComponent, config.CompParser,
				config.LogKeyLine, ordinal,
				config.LogKeyError, err)
			skipped = append(skipped, &ParseError{
				Line: ordinal,
				Err:  fmt.Errorf("%s: %w", config.ErrVCardParse, err),
			})
			break
		}

		bday := card.Get(config.VCardBDAY)
		if bday == nil || bday.Value == "" {
			continue
		}

		month, day, err := parseVCardDate(bday.Value)
		if err != nil {
			slog.Debug(config.MsgSkippedDate,
				config.LogKeyComponent, config.CompParser,
				config.LogKeyValue, bday.Value)
			skipped = append(skipped, &ParseError{Line: ordinal, Text: bday.Value, Err: err})
			continue
		}

		records = append(records, BirthdayRecord{
			Name:         cardName(card),
			Month:        month,
			Day:          day,
			Category:     cardCategory(card),
			OriginalText: bday.Value,
		})
	}

	return records, skipped, nil
}

// cardName prefers FN (Formatted) over N (Structured).
func cardName(card vcard.Card) string {
	if fn := card.Get(config.VCardFN); fn != nil && strings.TrimSpace(fn.Value) != "" {
		return strings.TrimSpace(fn.Value)
	}
	if n := card.Get(config.VCardN); n != nil && strings.TrimSpace(n.Value) != "" {
		return strings.TrimSpace(n.Value)
	}
	return config.FallbackName
}

func cardCategory(card vcard.Card) Category {
	for _, value := range card.Values(config.VCardCategories) {
		for _, tag := range strings.Split(value, config.FieldSeparator) {
			if c := Category(strings.TrimSpace(tag)); c.Valid() {
				return c
			}
		}
	}
	return CategoryCharacter
}

// parseVCardDate handles full and truncated vCard BDAY formats and keeps only
// month and day.
func parseVCardDate(value string) (time.Month, int, error) {
	layouts := []string{
		config.DateFormatFullDash,
		config.DateFormatFullBasic,
		config.DateFormatRFC3339,
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Month(), t.Day(), nil
		}
	}

	// Truncated dates have no year; time.Parse would use year 0, which is a
	// leap year in the proleptic calendar, so --02-29 survives.
	for _, layout := range []string{config.DateFormatNoYearD, config.DateFormatNoYearB} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Month(), t.Day(), nil
		}
	}

	return 0, 0, fmt.Errorf("%w: %s: %q", ErrInvalidDate, config.ErrDateParse, value)
}
