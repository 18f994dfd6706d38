package ui

import (
	"log/slog"
	"sort"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"github.com/tartampluch/birthday-board/internal/config"
	"github.com/tartampluch/birthday-board/internal/engine"
	"github.com/tartampluch/birthday-board/internal/locale"
)

// boardView is the table state of the board window.
type boardView struct {
	tr      *locale.Translator
	rows    []engine.Occurrence
	sortCol int
	sortAsc bool

	header *widget.Label
	table  *widget.Table
}

// ShowBoardWindow displays every birthday ordered by next occurrence.
// If the window is already open it only requests focus.
func (app *BirthdayApp) ShowBoardWindow() {
	if app.boardWindow != nil {
		app.boardWindow.RequestFocus()
		return
	}

	w := app.App.NewWindow(app.Translator.Msg(config.TKeyWinBoard))
	w.Resize(fyne.NewSize(config.BoardWinWidth, config.BoardWinHeight))
	app.boardWindow = w

	bv := &boardView{
		tr:      app.Translator,
		sortCol: config.ColIDDays,
		sortAsc: true,
		header:  widget.NewLabel(""),
	}
	bv.table = bv.newTable()
	app.board = bv

	snap, _ := app.current()
	bv.reload(snap)

	slog.Info(config.MsgOpenBoardWin,
		config.LogKeyComponent, config.CompUI,
		config.LogKeyCount, len(bv.rows))

	w.SetContent(container.NewBorder(bv.header, nil, nil, nil, bv.table))
	w.SetOnClosed(func() {
		app.boardWindow = nil
		app.board = nil
	})
	w.Show()
}

// reload replaces the rows with a copy of the snapshot's ordering.
func (bv *boardView) reload(snap *engine.Snapshot) {
	bv.rows = nil
	bv.header.SetText(bv.tr.Msg(config.TKeyEmptyData))
	if snap != nil {
		bv.rows = append(bv.rows, snap.Result.Ordered...)
		if len(bv.rows) > 0 {
			bv.header.SetText(bv.tr.DateLine(snap.Result.Now))
		}
	}
	bv.resort()
}

func (bv *boardView) resort() {
	sortRows(bv.rows, bv.sortCol, bv.sortAsc)
	slog.Debug(config.MsgBoardSorted,
		config.LogKeyComponent, config.CompUI,
		config.LogKeySortCol, bv.sortCol,
		config.LogKeySortAsc, bv.sortAsc)
	if bv.table != nil {
		bv.table.Refresh()
	}
}

// toggleSort sorts by col, flipping the direction when col is already active.
func (bv *boardView) toggleSort(col int) {
	if bv.sortCol == col {
		bv.sortAsc = !bv.sortAsc
	} else {
		bv.sortCol = col
		bv.sortAsc = true
	}
	bv.resort()
}

func (bv *boardView) newTable() *widget.Table {
	table := widget.NewTable(
		func() (int, int) {
			return len(bv.rows), config.ColCount
		},
		func() fyne.CanvasObject {
			return widget.NewLabel(config.TablePlaceholder)
		},
		func(id widget.TableCellID, o fyne.CanvasObject) {
			label := o.(*widget.Label)
			if id.Row >= len(bv.rows) {
				return
			}
			label.SetText(cellText(bv.tr, bv.rows[id.Row], id.Col))
		},
	)

	table.ShowHeaderRow = true
	table.CreateHeader = func() fyne.CanvasObject {
		return widget.NewButton(config.HeaderPlaceholder, func() {})
	}
	table.UpdateHeader = func(id widget.TableCellID, o fyne.CanvasObject) {
		btn := o.(*widget.Button)
		btn.SetText(bv.headerText(id.Col))
		btn.OnTapped = func() {
			bv.toggleSort(id.Col)
		}
	}

	table.SetColumnWidth(config.ColIDName, config.ColWidthName)
	table.SetColumnWidth(config.ColIDDate, config.ColWidthDate)
	table.SetColumnWidth(config.ColIDDays, config.ColWidthDays)
	table.SetColumnWidth(config.ColIDCategory, config.ColWidthCategory)
	return table
}

// headerText returns the localized column title with the sort indicator.
func (bv *boardView) headerText(col int) string {
	var key string
	switch col {
	case config.ColIDName:
		key = config.TKeyColName
	case config.ColIDDate:
		key = config.TKeyColDate
	case config.ColIDDays:
		key = config.TKeyColDays
	default:
		key = config.TKeyColCategory
	}

	text := bv.tr.Msg(key)
	if col == bv.sortCol {
		if bv.sortAsc {
			text += config.SortIconAsc
		} else {
			text += config.SortIconDesc
		}
	}
	return text
}

// cellText renders one table cell.
func cellText(tr *locale.Translator, occ engine.Occurrence, col int) string {
	switch col {
	case config.ColIDName:
		return occ.Record.Name
	case config.ColIDDate:
		return occ.Record.OriginalText
	case config.ColIDDays:
		if occ.IsToday {
			return tr.Msg(config.TKeyTodayLabel)
		}
		return tr.DaysLater(occ.DaysUntil)
	case config.ColIDCategory:
		return tr.Category(occ.Record.Category)
	default:
		return ""
	}
}

// sortRows orders rows in place. Ties keep their current relative order, so
// sorting the scheduler's output by days preserves its tie-breaking.
func sortRows(rows []engine.Occurrence, col int, asc bool) {
	sort.SliceStable(rows, func(i, j int) bool {
		if !asc {
			i, j = j, i
		}
		a, b := rows[i], rows[j]
		switch col {
		case config.ColIDName:
			return strings.ToLower(a.Record.Name) < strings.ToLower(b.Record.Name)
		case config.ColIDDate:
			if a.Record.Month != b.Record.Month {
				return a.Record.Month < b.Record.Month
			}
			return a.Record.Day < b.Record.Day
		case config.ColIDCategory:
			return a.Record.Category < b.Record.Category
		default: // config.ColIDDays
			return a.DaysUntil < b.DaysUntil
		}
	})
}
