package engine

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tartampluch/birthday-board/internal/config"
	"golang.org/x/text/unicode/norm"
)

// Parse failure classes. Every *ParseError wraps exactly one of them.
var (
	ErrMissingField = errors.New(config.ErrMissingField)
	ErrFieldCount   = errors.New(config.ErrFieldCount)
	ErrInvalidDate  = errors.New(config.ErrInvalidDate)
)

// monthDayPattern matches "<month>月<day>日" once whitespace is removed and
// full-width digits are folded by NFKC.
var monthDayPattern = regexp.MustCompile(`^(\d{1,2})` + config.MonthMarker + `(\d{1,2})` + config.DayMarker + `$`)

// ParseError reports a malformed source line.
type ParseError struct {
	// Line is the 1-based line number in the source, or 0 when unknown.
	Line int
	// Text is the raw line as read.
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf(config.FormatParseError, e.Line, e.Text, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseLine parses one "name,M月D日,category" line into a record.
// Fields are trimmed; the first three must be present and non-empty and any
// further columns are ignored. The category is kept as written, known or not.
func ParseLine(raw string) (BirthdayRecord, error) {
	fail := func(err error) (BirthdayRecord, error) {
		return BirthdayRecord{}, &ParseError{Text: raw, Err: err}
	}

	fields := strings.Split(raw, config.FieldSeparator)
	if len(fields) < config.FieldCount {
		return fail(fmt.Errorf("%w: got %d, want %d", ErrFieldCount, len(fields), config.FieldCount))
	}
	fields = fields[:config.FieldCount]
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
		if fields[i] == "" {
			return fail(fmt.Errorf("%w: field %d", ErrMissingField, i+1))
		}
	}
	name, dateText, tag := fields[0], fields[1], Category(fields[2])

	month, day, err := ParseMonthDay(dateText)
	if err != nil {
		return fail(err)
	}
	if !tag.Valid() {
		slog.Debug(config.MsgUnknownTag,
			config.LogKeyComponent, config.CompParser,
			config.LogKeyValue, string(tag))
	}

	return BirthdayRecord{
		Name:         name,
		Month:        month,
		Day:          day,
		Category:     tag,
		OriginalText: dateText,
	}, nil
}

// ParseMonthDay decomposes "<month>月<day>日" into a month and a day valid on
// a leap year. Full-width digits and inner whitespace are tolerated.
func ParseMonthDay(text string) (time.Month, int, error) {
	compact := strings.Join(strings.Fields(norm.NFKC.String(text)), "")

	m := monthDayPattern.FindStringSubmatch(compact)
	if m == nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidDate, text)
	}

	// The pattern guarantees one or two ASCII digits; Atoi cannot fail.
	month, _ := strconv.Atoi(m[1])
	day, _ := strconv.Atoi(m[2])

	if !ValidMonthDay(time.Month(month), day) {
		return 0, 0, fmt.Errorf("%w: %q out of range", ErrInvalidDate, text)
	}
	return time.Month(month), day, nil
}

// ParseTable reads a birthday table: a header line (ignored) followed by one
// record per line. Blank lines are skipped, including those before the
// header. Malformed lines are returned as
// ParseErrors carrying their line number; the caller decides whether to skip
// them or abort. The error result is reserved for read failures.
func ParseTable(r io.Reader) ([]BirthdayRecord, []*ParseError, error) {
	var (
		records []BirthdayRecord
		skipped []*ParseError
	)

	scanner := bufio.NewScanner(r)
	lineNo := 0
	header := false
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !header {
			header = true
			continue
		}

		rec, err := ParseLine(line)
		if err != nil {
			var pe *ParseError
			if errors.As(err, &pe) {
				pe.Line = lineNo
				skipped = append(skipped, pe)
				continue
			}
			return nil, nil, err
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", config.ErrSourceRead, err)
	}

	return records, skipped, nil
}
