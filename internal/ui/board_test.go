package ui

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/birthday-board/internal/config"
	"github.com/tartampluch/birthday-board/internal/engine"
	"github.com/tartampluch/birthday-board/internal/locale"
)

func names(rows []engine.Occurrence) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Record.Name)
	}
	return out
}

func boardFixture() *engine.Snapshot {
	return snapshotAt(may20,
		rec("carol", time.December, 1, engine.CategoryCharacter),
		rec("Alice", time.May, 20, engine.CategoryPerformer),
		rec("bob", time.May, 23, engine.CategoryPerformer),
		rec("Dave", time.January, 5, engine.CategoryCharacter),
		rec("Eve", time.May, 23, engine.CategoryCharacter),
	)
}

func TestCellText(t *testing.T) {
	tr := locale.New("en")
	ordered := boardFixture().Result.Ordered
	require.Equal(t, []string{"Alice", "bob", "Eve", "carol", "Dave"}, names(ordered))

	today, later := ordered[0], ordered[1]

	tests := []struct {
		name string
		occ  engine.Occurrence
		col  int
		want string
	}{
		{"Name", today, config.ColIDName, "Alice"},
		{"Original date", today, config.ColIDDate, "5月20日"},
		{"Today", today, config.ColIDDays, "Today"},
		{"Days later", later, config.ColIDDays, "3 days later"},
		{"Category performer", today, config.ColIDCategory, "Voice actor"},
		{"Category character", ordered[2], config.ColIDCategory, "Character"},
		{"Unknown column", today, config.ColCount, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cellText(tr, tt.occ, tt.col))
		})
	}
}

func TestSortRows(t *testing.T) {
	tests := []struct {
		name string
		col  int
		asc  bool
		want []string
	}{
		{"Days ascending keeps scheduler ties", config.ColIDDays, true, []string{"Alice", "bob", "Eve", "carol", "Dave"}},
		{"Days descending", config.ColIDDays, false, []string{"Dave", "carol", "bob", "Eve", "Alice"}},
		{"Name is case-insensitive", config.ColIDName, true, []string{"Alice", "bob", "carol", "Dave", "Eve"}},
		{"Name descending", config.ColIDName, false, []string{"Eve", "Dave", "carol", "bob", "Alice"}},
		{"Calendar date", config.ColIDDate, true, []string{"Dave", "Alice", "bob", "Eve", "carol"}},
		{"Category", config.ColIDCategory, true, []string{"Eve", "carol", "Dave", "Alice", "bob"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := append([]engine.Occurrence(nil), boardFixture().Result.Ordered...)
			sortRows(rows, tt.col, tt.asc)
			assert.Equal(t, tt.want, names(rows))
		})
	}
}

func TestBoardWindow_ShowsLatestSnapshot(t *testing.T) {
	app, _ := setupTestApp(t)
	app.setupTrayMenu()
	app.applyRefresh(boardFixture(), nil)

	app.ShowBoardWindow()
	require.NotNil(t, app.boardWindow)
	require.NotNil(t, app.board)

	assert.Equal(t, []string{"Alice", "bob", "Eve", "carol", "Dave"}, names(app.board.rows))
	assert.Equal(t, "Monday, 2024-05-20", app.board.header.Text)
	assert.Equal(t, "When"+config.SortIconAsc, app.board.headerText(config.ColIDDays))
	assert.Equal(t, "Name", app.board.headerText(config.ColIDName))

	// A second request reuses the open window.
	w := app.boardWindow
	app.ShowBoardWindow()
	assert.Equal(t, w, app.boardWindow)

	// Later refreshes update the open window.
	app.applyRefresh(snapshotAt(may20, rec("Zed", time.May, 21, engine.CategoryCharacter)), nil)
	assert.Equal(t, []string{"Zed"}, names(app.board.rows))

	app.boardWindow.Close()
	assert.Nil(t, app.boardWindow)
	assert.Nil(t, app.board)
}

func TestBoardWindow_HeaderSortToggle(t *testing.T) {
	app, _ := setupTestApp(t)
	app.applyRefresh(boardFixture(), nil)
	app.ShowBoardWindow()
	bv := app.board

	bv.toggleSort(config.ColIDName)
	assert.Equal(t, []string{"Alice", "bob", "carol", "Dave", "Eve"}, names(bv.rows))
	assert.Equal(t, "Name"+config.SortIconAsc, bv.headerText(config.ColIDName))
	assert.Equal(t, "When", bv.headerText(config.ColIDDays))

	bv.toggleSort(config.ColIDName)
	assert.Equal(t, []string{"Eve", "Dave", "carol", "bob", "Alice"}, names(bv.rows))
	assert.Equal(t, "Name"+config.SortIconDesc, bv.headerText(config.ColIDName))

	// Sorting survives a refresh.
	app.applyRefresh(boardFixture(), nil)
	assert.Equal(t, []string{"Eve", "Dave", "carol", "bob", "Alice"}, names(bv.rows))
}

func TestBoardWindow_Empty(t *testing.T) {
	app, _ := setupTestApp(t)
	app.ShowBoardWindow()

	assert.Empty(t, app.board.rows)
	assert.Equal(t, "The birthday list is empty.", app.board.header.Text)
}
