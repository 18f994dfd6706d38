package server

import (
	"bytes"
	"embed"
	"encoding/json"
	"html/template"
	"time"

	"github.com/tartampluch/birthday-board/internal/config"
	"github.com/tartampluch/birthday-board/internal/engine"
	"github.com/tartampluch/birthday-board/internal/locale"
)

//go:embed templates/board.html
var templateFS embed.FS

var boardTemplate = template.Must(template.ParseFS(templateFS, "templates/board.html"))

type boardPage struct {
	Lang         string
	Title        string
	DateLine     string
	TodayHeading string
	AllHeading   string
	Today        []todayCard
	NoneToday    string
	NextIn       string
	Upcoming     []upcomingRow
	NoMore       string
	Empty        string
}

type todayCard struct {
	Greeting string
	Name     string
	Category string
	Date     string
}

type upcomingRow struct {
	Name     string
	Category string
	Date     string
	When     string
}

func renderBoard(tr *locale.Translator, snap *engine.Snapshot) ([]byte, error) {
	res := snap.Result
	page := boardPage{
		Lang:         tr.Lang(),
		Title:        tr.Msg(config.TKeyPageTitle),
		DateLine:     tr.DateLine(res.Now),
		TodayHeading: tr.Msg(config.TKeyTodayHeading),
		AllHeading:   tr.Msg(config.TKeyAllHeading),
		NoneToday:    tr.Msg(config.TKeyNoneToday),
		NoMore:       tr.Msg(config.TKeyNoMore),
	}

	for _, occ := range res.Today {
		page.Today = append(page.Today, todayCard{
			Greeting: tr.HappyBirthday(occ.Record.Name),
			Name:     occ.Record.Name,
			Category: tr.Category(occ.Record.Category),
			Date:     occ.Record.OriginalText,
		})
	}
	for _, occ := range res.Upcoming() {
		page.Upcoming = append(page.Upcoming, upcomingRow{
			Name:     occ.Record.Name,
			Category: tr.Category(occ.Record.Category),
			Date:     occ.Record.OriginalText,
			When:     tr.DaysLater(occ.DaysUntil),
		})
	}

	if next, ok := res.Next(); ok && len(res.Today) == 0 {
		page.NextIn = tr.NextIn(next.DaysUntil)
	}
	if len(res.Ordered) == 0 {
		page.Empty = tr.Msg(config.TKeyEmptyData)
	}

	var buf bytes.Buffer
	if err := boardTemplate.Execute(&buf, page); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// APIResponse is the JSON document served on config.RouteAPI.
type APIResponse struct {
	Date        string     `json:"date"`
	GeneratedAt time.Time  `json:"generated_at"`
	Today       []APIEntry `json:"today"`
	Upcoming    []APIEntry `json:"upcoming"`
	Skipped     int        `json:"skipped"`
}

// APIEntry describes one scheduled record.
type APIEntry struct {
	Name      string `json:"name"`
	Month     int    `json:"month"`
	Day       int    `json:"day"`
	Date      string `json:"date"`
	Category  string `json:"category"`
	Next      string `json:"next"`
	DaysUntil int    `json:"days_until"`
}

func renderAPI(snap *engine.Snapshot) ([]byte, error) {
	res := snap.Result
	doc := APIResponse{
		Date:        res.Now.Format(config.DateFormatFullDash),
		GeneratedAt: snap.GeneratedAt,
		Today:       toEntries(res.Today),
		Upcoming:    toEntries(res.Upcoming()),
		Skipped:     len(snap.Skipped),
	}
	return json.Marshal(doc)
}

func toEntries(occs []engine.Occurrence) []APIEntry {
	out := make([]APIEntry, 0, len(occs))
	for _, occ := range occs {
		out = append(out, APIEntry{
			Name:      occ.Record.Name,
			Month:     int(occ.Record.Month),
			Day:       occ.Record.Day,
			Date:      occ.Record.OriginalText,
			Category:  string(occ.Record.Category),
			Next:      occ.Next.Format(config.DateFormatFullDash),
			DaysUntil: occ.DaysUntil,
		})
	}
	return out
}
