package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/tartampluch/birthday-board/internal/config"
)

// SourceConfig contains all parameters required to load the birthday source.
type SourceConfig struct {
	Mode      string // config.SourceModeLocal or config.SourceModeWeb
	LocalPath string // Path to the table or .vcf file
	WebURL    string // HTTP(S) URL of the table or vCard file
	WebUser   string // HTTP Basic Auth Username
	WebPass   string // HTTP Basic Auth Password
	Format    string // config.FormatAuto, config.FormatTable or config.FormatVCard
}

// SourceFromSettings builds the source configuration from persisted settings
// and the password held in the keyring.
func SourceFromSettings(s config.SourceSettings, password string) SourceConfig {
	return SourceConfig{
		Mode:      s.Mode,
		LocalPath: s.Path,
		WebURL:    s.URL,
		WebUser:   s.User,
		WebPass:   password,
		Format:    s.Format,
	}
}

// Snapshot is the outcome of one refresh: the schedule computed for a single
// clock reading plus everything presentation layers need to render it.
type Snapshot struct {
	GeneratedAt time.Time
	Records     []BirthdayRecord
	Skipped     []*ParseError
	Result      Result
	ICS         []byte
}

// Board loads birthday sources and schedules them.
type Board struct {
	Clock    Clock         // Interface for time mocking.
	Fetcher  SourceFetcher // Interface for network abstraction.
	Calendar CalendarOptions
}

// decodeFunc parses a source stream into records and per-record failures.
type decodeFunc func(io.Reader) ([]BirthdayRecord, []*ParseError, error)

// Refresh executes the pipeline: acquire the source, parse it (skipping and
// logging malformed entries), read the clock once, schedule, and render the
// iCalendar feed.
func (b *Board) Refresh(ctx context.Context, cfg SourceConfig) (*Snapshot, error) {
	start := time.Now()
	log := slog.With(
		config.LogKeyComponent, config.CompEngine,
		config.LogKeyMode, cfg.Mode,
	)
	log.InfoContext(ctx, config.MsgRefreshStarted)

	decode, format, err := decoderFor(cfg)
	if err != nil {
		return nil, err
	}
	log = log.With(config.LogKeyFormat, format)

	reader, err := b.acquireStream(ctx, cfg)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%s: %w", config.ErrSourceOpen, err)
	}
	defer func() { _ = reader.Close() }()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	records, skipped, err := decode(reader)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	for _, pe := range skipped {
		log.Warn(config.MsgSkippedLine,
			config.LogKeyLine, pe.Line,
			config.LogKeyText, pe.Text,
			config.LogKeyError, pe.Err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := NowInReferenceZone(b.clock())
	result := Schedule(now, records)
	for _, occ := range result.Today {
		log.Info(config.MsgBdayToday,
			config.LogKeyName, occ.Record.Name,
			config.LogKeyDate, occ.Record.OriginalText)
	}

	ics, err := BuildCalendar(now, records, b.Calendar)
	if err != nil {
		return nil, err
	}

	log.Info(config.MsgScheduleDone,
		slog.Group(config.LogKeyStats,
			slog.Int(config.LogKeyRecords, len(records)),
			slog.Int(config.LogKeySkipped, len(skipped)),
			slog.Int(config.LogKeyToday, len(result.Today)),
		),
		config.LogKeyDuration, time.Since(start).Milliseconds(),
	)

	return &Snapshot{
		GeneratedAt: now,
		Records:     records,
		Skipped:     skipped,
		Result:      result,
		ICS:         ics,
	}, nil
}

func (b *Board) clock() Clock {
	if b.Clock == nil {
		return RealClock{}
	}
	return b.Clock
}

// acquireStream opens the appropriate data source based on configuration.
func (b *Board) acquireStream(ctx context.Context, cfg SourceConfig) (io.ReadCloser, error) {
	switch cfg.Mode {
	case config.SourceModeLocal:
		if cfg.LocalPath == "" {
			return nil, errors.New(config.ErrLocalPathEmpty)
		}
		return os.Open(cfg.LocalPath)
	case config.SourceModeWeb:
		if cfg.WebURL == "" {
			return nil, errors.New(config.ErrWebURLEmpty)
		}
		if b.Fetcher == nil {
			return nil, errors.New(config.ErrFetcherMissing)
		}
		return b.Fetcher.Fetch(ctx, cfg.WebURL, cfg.WebUser, cfg.WebPass)
	default:
		return nil, fmt.Errorf("%s: %q", config.ErrModeUnsupport, cfg.Mode)
	}
}

// decoderFor picks the parser. In auto mode a .vcf/.vcard extension selects
// vCard and anything else is read as a table.
func decoderFor(cfg SourceConfig) (decodeFunc, string, error) {
	format := cfg.Format
	if format == "" || format == config.FormatAuto {
		format = config.FormatTable
		if isVCardName(sourceName(cfg)) {
			format = config.FormatVCard
		}
	}

	switch format {
	case config.FormatTable:
		return ParseTable, format, nil
	case config.FormatVCard:
		return ParseVCards, format, nil
	default:
		return nil, "", fmt.Errorf("%s: %q", config.ErrFormatUnsupport, cfg.Format)
	}
}

func sourceName(cfg SourceConfig) string {
	if cfg.Mode == config.SourceModeWeb {
		if u, err := url.Parse(cfg.WebURL); err == nil {
			return u.Path
		}
		return cfg.WebURL
	}
	return cfg.LocalPath
}

func isVCardName(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	return ext == config.ExtVCF || ext == config.ExtVCard
}
