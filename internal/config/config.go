package config

import (
	"io/fs"
	"time"
)

// -----------------------------------------------------------------------------
// Build Information
// -----------------------------------------------------------------------------

// Build variables are injected via -ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// UserAgent identifies the HTTP client.
var UserAgent = "Birthday-Board/" + Version

// -----------------------------------------------------------------------------
// Application Constants
// -----------------------------------------------------------------------------

const (
	AppName        = "Birthday Board"
	AppCommand     = "birthday-board"
	AppID          = "com.github.tartampluch.birthday-board"
	KeyringService = "com.github.tartampluch.birthday-board"
	LogFileName    = "app.log"
	ConfigFileName = "config.yaml"
	ConfigTempGlob = ".birthday-board-config-*.tmp"
)

// -----------------------------------------------------------------------------
// Exit Codes
// -----------------------------------------------------------------------------

const (
	ExitCodeSuccess = 0
	ExitCodeError   = 1
)

// -----------------------------------------------------------------------------
// System & File Permissions
// -----------------------------------------------------------------------------

const (
	// FilePermUserRW represents -rw------- (Read/Write for owner only).
	// Used for logs and the settings file.
	FilePermUserRW fs.FileMode = 0600

	// DirPermUserRWX represents drwx------ (Read/Write/Exec for owner only).
	DirPermUserRWX fs.FileMode = 0700

	// ChannelBufferSize defines the standard buffer size for internal signaling channels.
	ChannelBufferSize = 1
)

// -----------------------------------------------------------------------------
// CLI Commands, Flags & Descriptions
// -----------------------------------------------------------------------------

const (
	FlagVersion = "version"
	FlagDebug   = "debug"
	FlagConfig  = "config"
	FlagOut     = "out"
	FlagLang    = "lang"

	FlagDescVersion = "Show application version and exit"
	FlagDescDebug   = "Enable debug logging to stdout"
	FlagDescConfig  = "Path to the YAML settings file"
	FlagDescOut     = "Write the iCalendar feed to this file instead of stdout"
	FlagDescLang    = "Override the display language (en, ja, zh)"

	CmdShort      = "Shows whose birthday is today and who is next (UTC+9)"
	CmdTodayUse   = "today"
	CmdTodayShort = "Print today's birthdays, or the next upcoming one"
	CmdListUse    = "list"
	CmdListShort  = "Print every birthday ordered by next occurrence"
	CmdICSUse     = "ics"
	CmdICSShort   = "Write the birthday iCalendar feed"
	CmdServeUse   = "serve"
	CmdServeShort = "Serve the birthday board, JSON API and iCalendar feed"
	CmdTrayUse    = "tray"
	CmdTrayShort  = "Run the desktop tray application"
	CmdPassUse    = "password"
	CmdPassShort  = "Store the web source password in the OS keyring (read from stdin)"

	AnnotationLogFile = "log_file"

	MsgVersionOutput = "%s version %s (%s/%s)\n"
	FormatListLine   = "%-24s %-10s %-10s %s\n"
	FormatTodayLine  = "* %s (%s) %s\n"
)

// -----------------------------------------------------------------------------
// Reference Zone & Record Format
// -----------------------------------------------------------------------------

const (
	// ReferenceZoneName labels the fixed offset every computation runs in.
	ReferenceZoneName = "UTC+9"

	// ReferenceZoneOffset is the reference zone offset east of UTC, in seconds.
	ReferenceZoneOffset = 9 * 60 * 60

	// DefaultLeapYear is the calendar year used to validate month/day pairs.
	// 2000 is a leap year, so Feb 29 projects onto a real date.
	DefaultLeapYear = 2000

	// HoursPerDay converts durations into whole calendar days. The reference
	// zone has no DST, so every day is exactly 24 hours long.
	HoursPerDay = 24

	FieldSeparator = ","
	FieldCount     = 3
	MonthMarker    = "月"
	DayMarker      = "日"
)

// -----------------------------------------------------------------------------
// Default Values & Business Logic
// -----------------------------------------------------------------------------

const (
	SourceModeWeb   = "web"
	SourceModeLocal = "local"

	FormatAuto  = "auto"
	FormatTable = "table"
	FormatVCard = "vcard"

	DefaultListen       = "127.0.0.1:18080"
	DefaultRefreshCron  = "0 0 * * *" // Midnight in the reference zone, when "today" changes.
	DefaultLanguage     = "en"
	DefaultSourcePath   = "birthday.txt"
	DefaultCalendarName = "Birthdays"
	UIDSalt             = "birthday-board-v1-" // Salt for deterministic UID generation
)

// SupportedLanguages defines the list of available UI languages (ISO 639-1).
var SupportedLanguages = []string{"en", "ja", "zh"}

// -----------------------------------------------------------------------------
// Standards: iCalendar & vCard
// -----------------------------------------------------------------------------

const (
	// iCal Properties
	ICalVersion   = "2.0"
	ICalProdid    = "-//Birthday Board//Engine//EN"
	ICalMethod    = "PUBLISH"
	ICalScale     = "GREGORIAN"
	ICalComponent = "VALARM"
	ICalAction    = "DISPLAY"
	ICalDomain    = "birthday-board"

	// iCal/vCard Fields
	PropUID         = "UID"
	PropSummary     = "SUMMARY"
	PropDTStart     = "DTSTART"
	PropDTStamp     = "DTSTAMP"
	PropRefresh     = "REFRESH-INTERVAL"
	PropAction      = "ACTION"
	PropDescription = "DESCRIPTION"
	PropTrigger     = "TRIGGER"
	PropCategories  = "CATEGORIES"
	PropVersion     = "VERSION"
	PropProdid      = "PRODID"
	PropXWRCalName  = "X-WR-CALNAME"
	PropCalScale    = "CALSCALE"
	PropMethod      = "METHOD"

	VCardBDAY       = "BDAY"
	VCardFN         = "FN"
	VCardN          = "N"
	VCardCategories = "CATEGORIES"

	DefaultICalRefresh = 1 * time.Hour

	// LastDayOfMonth is the RRULE BYMONTHDAY value for the final day of a month.
	// Leap-day records recur on it so non-leap years land on Feb 28.
	LastDayOfMonth = -1
)

// -----------------------------------------------------------------------------
// Data Formats, Limits & File Extensions
// -----------------------------------------------------------------------------

const (
	// Date layouts used for parsing vCard BDAY fields
	DateFormatFullDash  = "2006-01-02"
	DateFormatFullBasic = "20060102"
	DateFormatRFC3339   = time.RFC3339
	DateFormatNoYearD   = "--01-02"
	DateFormatNoYearB   = "--0102"

	// UID Generation
	FormatHashInput = "%s|%02d-%02d|%s"
	FormatUID       = "%s@%s"

	// File Extensions
	ExtVCF   = ".vcf"
	ExtVCard = ".vcard"
	ExtTXT   = ".txt"
	ExtCSV   = ".csv"
)

// -----------------------------------------------------------------------------
// Network & Timeouts
// -----------------------------------------------------------------------------

const (
	HTTPTimeout         = 30 * time.Second
	ShutdownTimeout     = 5 * time.Second
	ServerReadTimeout   = 10 * time.Second
	ServerWriteTimeout  = 30 * time.Second
	ServerIdleTimeout   = 60 * time.Second
	RetryAfterSeconds   = "10"
	AllowedMethods      = "GET, HEAD"
	MaxHTTPResponseSize = 16 * 1024 * 1024 // 16MB, far beyond a few hundred lines
	SchemeHTTP          = "http"
	SchemeHTTPS         = "https"

	RouteRoot    = "/"
	RouteAPI     = "/api/birthdays"
	RouteICS     = "/calendar.ics"
	RouteHealth  = "/health"
	RouteMetrics = "/metrics"
)

// -----------------------------------------------------------------------------
// HTTP Headers & MIME Types
// -----------------------------------------------------------------------------

const (
	HeaderContentType     = "Content-Type"
	HeaderCacheControl    = "Cache-Control"
	HeaderETag            = "ETag"
	HeaderLastModified    = "Last-Modified"
	HeaderRetryAfter      = "Retry-After"
	HeaderAllow           = "Allow"
	HeaderXContentType    = "X-Content-Type-Options"
	HeaderUserAgent       = "User-Agent"
	HeaderIfNoneMatch     = "If-None-Match"
	HeaderIfModifiedSince = "If-Modified-Since"

	MimeTextCalendar    = "text/calendar; charset=utf-8"
	MimeJSON            = "application/json; charset=utf-8"
	MimeHTML            = "text/html; charset=utf-8"
	MimeText            = "text/plain; charset=utf-8"
	MimeNoSniff         = "nosniff"
	CacheControlPrivate = "private, no-cache"

	// FormatETag expects a string argument.
	FormatETag = `"%s"`
)

// -----------------------------------------------------------------------------
// Error Messages (Technical/Logs)
// -----------------------------------------------------------------------------

const (
	ErrLocalPathEmpty   = "configuration error: local path is empty"
	ErrWebURLEmpty      = "configuration error: web URL is empty"
	ErrFetcherMissing   = "internal error: network fetcher is not initialized"
	ErrModeUnsupport    = "configuration error: unsupported source mode"
	ErrFormatUnsupport  = "configuration error: unsupported source format"
	ErrListenRequired   = "listen address is required"
	ErrCronSpec         = "invalid refresh schedule"
	ErrConfigPathEmpty  = "config path is empty"
	ErrConfigNil        = "config is nil"
	ErrConfigRead       = "failed to read settings"
	ErrConfigDecode     = "failed to decode settings"
	ErrConfigWrite      = "failed to write settings"
	ErrServerStartup    = "server startup failed"
	ErrServerShutdown   = "server shutdown failed"
	ErrInvalidURL       = "invalid URL structure"
	ErrProtocol         = "unsupported protocol scheme (http/https only)"
	ErrSourceOpen       = "failed to open birthday source"
	ErrSourceRead       = "failed to read birthday source"
	ErrVCardParse       = "failed to parse vCard stream"
	ErrICalEncode       = "failed to encode iCalendar data"
	ErrDateParse        = "unable to parse date"
	ErrLogFile          = "failed to open log file"
	ErrCacheDir         = "could not determine user cache dir"
	ErrConfigDir        = "could not determine user config dir"
	ErrCreateDir        = "could not create app cache dir"
	ErrAppFailed        = "application failed unexpectedly"
	ErrWriteResp        = "failed to write response body"
	ErrRenderBoard      = "failed to render board page"
	ErrLocalesAccess    = "failed to access embedded locales"
	ErrLocaleLoad       = "failed to load locale file"
	ErrTrayNotSupported = "system tray not supported on this platform/driver"
	ErrRefreshFailed    = "birthday refresh failed"
	ErrWriteOutput      = "failed to write output"
	ErrKeyringSave      = "failed to save credentials to keyring"
	ErrUserRequired     = "source user is not configured"
	ErrPasswordRead     = "failed to read password"
	ErrSourceTooLarge   = "birthday source exceeds size limit"

	// Parse failure classes (wrapped by engine sentinel errors).
	ErrMissingField  = "missing field"
	ErrFieldCount    = "unexpected number of fields"
	ErrInvalidDate   = "invalid birthday date"
	FormatParseError = "line %d: %q: %v"
)

// -----------------------------------------------------------------------------
// HTTP Server Responses
// -----------------------------------------------------------------------------

const (
	HTTPMsgInitializing = "Birthdays loading, please try again shortly."
	HTTPMsgMethodNotAll = "Method Not Allowed"
	HTTPMsgHealthy      = "ok"
)

// -----------------------------------------------------------------------------
// Fallbacks & Defaults
// -----------------------------------------------------------------------------

const (
	FallbackSummary   = "Birthday: %s"
	FallbackTrayError = "Birthday Board: Refresh Error"
	FallbackTrayLabel = "Birthday Board"
	FallbackName      = "Unknown"

	// StubVCalendar is the minimal valid iCalendar object used when no events are found.
	StubVCalendar = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:" + ICalProdid + "\r\nEND:VCALENDAR\r\n"

	TitleStartupError = "Startup Error"
	TitleSyncError    = "Refresh Error"

	MsgPortBusy       = "Address %s is busy or unavailable."
	MsgRefreshReq     = "Refresh requested"
	MsgRefreshStarted = "Refresh started"
	MsgRefreshDone    = "Refresh finished"
	MsgWorkerStart    = "Refresh worker started"
	MsgWorkerStop     = "Refresh worker stopping due to context cancellation"
	MsgAppStop        = "Application stopped gracefully"
	MsgCtxCancel      = "Context cancelled, shutting down UI"
	MsgSkippedLine    = "Skipping malformed birthday line"
	MsgSkippedCard    = "Skipping malformed vCard"
	MsgSkippedDate    = "Skipping invalid date format"
	MsgScheduleDone   = "Birthday schedule computed"
	MsgAppStarting    = "Starting application"
	MsgServerListen   = "HTTP server listening"
	MsgServerStop     = "Shutting down HTTP server..."
	MsgSnapshotStored = "Birthday snapshot updated"
	MsgHTTPRequest    = "HTTP request served"
	MsgLocaleSkip     = "Skipping non-locale file"
	MsgLocaleBadName  = "Skipping malformed locale filename"
	MsgLocaleLoaded   = "Locale loaded successfully"
	MsgTransMissing   = "Missing translation key"
	MsgPassFail       = "Password retrieval failed (might be empty)"
	MsgLogWarning     = "Warning: %s at %s: %v\n"
	MsgBdayToday      = "Birthday found today"
	MsgConfigCreated  = "Default settings written"
	MsgOpenBoardWin   = "Opening board window"
	MsgBoardSorted    = "Board table sorted"
	MsgOpenSettings   = "Opening settings window"
	MsgSettingsFocus  = "Settings window already open, requesting focus"
	MsgSettingsSaved  = "Settings saved"
	MsgPasswordStored = "Password stored in keyring"
	MsgFeedWritten    = "Calendar feed written"
	MsgUnknownTag     = "Keeping unknown category tag"
	MsgFetchStart     = "Downloading birthday source"
	MsgFetchBadStatus = "Server returned error status"
)

// -----------------------------------------------------------------------------
// Structured Logging Keys (slog)
// -----------------------------------------------------------------------------

const (
	LogKeyComponent = "component"
	LogKeyError     = "error"
	LogKeyURL       = "url"
	LogKeyStatus    = "status_code"
	LogKeyFile      = "file"
	LogKeyLang      = "lang"
	LogKeyKey       = "key"
	LogKeyListen    = "listen"
	LogKeyMode      = "mode"
	LogKeyFormat    = "format"
	LogKeySchedule  = "schedule"
	LogKeyUser      = "user"
	LogKeyLine      = "line"
	LogKeyText      = "text"
	LogKeyRecords   = "records"
	LogKeySkipped   = "skipped"
	LogKeyToday     = "birthdays_today"
	LogKeySizeBytes = "size_bytes"
	LogKeyETag      = "etag"
	LogKeyManual    = "manual"
	LogKeyValue     = "value"
	LogKeyStats     = "stats"
	LogKeyCount     = "count"
	LogKeyName      = "name"
	LogKeyDate      = "date"
	LogKeyNow       = "now"
	LogKeyPath      = "path"
	LogKeyDuration  = "duration_ms"
	LogKeyMethod    = "method"
	LogKeyRequestID = "request_id"
	LogKeyBytes     = "bytes"
	LogKeySortCol   = "sort_col"
	LogKeySortAsc   = "sort_asc"

	// Startup Info Keys
	LogKeyBuild   = "build"
	LogKeyApp     = "app"
	LogKeyCommand = "command"
	LogKeyVersion = "version"
	LogKeyCommit  = "commit"
	LogKeyBuilt   = "built"
	LogKeyGoVer   = "go_version"
	LogKeyEnv     = "env"
	LogKeyOS      = "os"
	LogKeyArch    = "arch"
	LogKeyPID     = "pid"
)

// -----------------------------------------------------------------------------
// Log Components
// -----------------------------------------------------------------------------

const (
	CompUI      = "ui"
	CompUISet   = "ui_settings"
	CompEngine  = "engine"
	CompParser  = "parser"
	CompServer  = "server"
	CompFetcher = "fetcher"
	CompWorker  = "worker"
	CompMain    = "main"
	CompI18n    = "i18n"
	CompConfig  = "config"
)

// -----------------------------------------------------------------------------
// Metrics
// -----------------------------------------------------------------------------

const (
	MetricsNamespace  = "birthday_board"
	MetricLabelResult = "result"
	MetricResultOK    = "ok"
	MetricResultError = "error"
)

// -----------------------------------------------------------------------------
// UI Board Window Constants
// -----------------------------------------------------------------------------

const (
	BoardWinWidth  = 560
	BoardWinHeight = 420

	// Table Column IDs
	ColIDName     = 0
	ColIDDate     = 1
	ColIDDays     = 2
	ColIDCategory = 3
	ColCount      = 4

	// Table Layout
	ColWidthName     = 220
	ColWidthDate     = 90
	ColWidthDays     = 120
	ColWidthCategory = 100

	TablePlaceholder  = "Cell Content"
	HeaderPlaceholder = "Header"
	SortIconAsc       = " ▲"
	SortIconDesc      = " ▼"
)

// -----------------------------------------------------------------------------
// UI Settings Window Constants
// -----------------------------------------------------------------------------

const (
	SettingsWinWidth    = 520
	LayoutColumnsDouble = 2
	PlaceholderURL      = "https://example.com/birthday.txt"
	PlaceholderListen   = DefaultListen
	PlaceholderCron     = DefaultRefreshCron

	// Reminders are configured in whole days before the birthday.
	FormatReminderDays  = "-P%dD"
	DefaultReminderDays = 1
)

// -----------------------------------------------------------------------------
// Translation Keys (I18n)
// -----------------------------------------------------------------------------

const (
	TKeyPageTitle      = "page_title"
	TKeyDateLine       = "date_line" // Requires Year, Month, Day, Weekday
	TKeyTodayHeading   = "today_heading"
	TKeyAllHeading     = "all_heading"
	TKeyHappyBirthday  = "happy_birthday" // Requires Name
	TKeyNoneToday      = "none_today"
	TKeyNextIn         = "next_in_days" // Requires Days
	TKeyDaysLater      = "days_later"   // Requires Days
	TKeyNoMore         = "no_more"
	TKeyTodayLabel     = "today_label"
	TKeyEmptyData      = "empty_data"
	TKeyCatPerformer   = "category_cv"
	TKeyCatCharacter   = "category_character"
	TKeyWeekdayPrefix  = "weekday_"      // Suffixed with 0 (Sunday) .. 6
	TKeyEvtSummary     = "event_summary" // Requires Name
	TKeyTrayStatus     = "tray_status"   // Requires Count > 0
	TKeyTrayStatusZero = "tray_status_zero"
	TKeyMenuRefresh    = "menu_refresh"
	TKeyMenuBoard      = "menu_board"
	TKeyWinBoard       = "win_board_title"
	TKeyNotifSuccess   = "notif_refresh_success"
	TKeyNotifError     = "notif_err_refresh" // Requires Error
	TKeyColName        = "col_name"
	TKeyColDate        = "col_date"
	TKeyColDays        = "col_days"
	TKeyColCategory    = "col_category"

	// Settings window
	TKeyMenuSettings = "menu_settings"
	TKeyWinSettings  = "win_settings_title"
	TKeyLblSource    = "lbl_source"
	TKeyModeWeb      = "mode_web"
	TKeyModeLocal    = "mode_local"
	TKeyLblURL       = "lbl_url"
	TKeyHelpURL      = "help_url"
	TKeyLblUser      = "lbl_user"
	TKeyLblPass      = "lbl_pass"
	TKeyBtnBrowse    = "btn_browse"
	TKeyLblFormat    = "lbl_format"
	TKeyFormatAuto   = "format_auto"
	TKeyFormatTable  = "format_table"
	TKeyFormatVCard  = "format_vcard"
	TKeyLblGeneral   = "lbl_general"
	TKeyLblLanguage  = "lbl_language"
	TKeyLblListen    = "lbl_listen"
	TKeyLblRefresh   = "lbl_refresh"
	TKeyHelpRestart  = "help_restart"
	TKeyLblNotif     = "lbl_notif"
	TKeyLblEnableRem = "lbl_enable_rem"
	TKeyLblDays      = "lbl_days_before"
	TKeyBtnSave      = "btn_save"
	TKeyBtnCancel    = "btn_cancel"
	TKeyLblFooter    = "lbl_footer" // Requires Version
	TKeyErrListen    = "err_listen"
	TKeyErrRefresh   = "err_refresh"
)
