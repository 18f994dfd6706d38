package ui

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
	"github.com/tartampluch/birthday-board/internal/config"
	"github.com/tartampluch/birthday-board/internal/engine"
	"github.com/tartampluch/birthday-board/internal/locale"
	"github.com/tartampluch/birthday-board/internal/server"
	"github.com/tartampluch/birthday-board/internal/worker"
)

// BirthdayApp encapsulates the tray UI state and the services it drives.
type BirthdayApp struct {
	App        fyne.App
	Ctx        context.Context
	Translator *locale.Translator
	Settings   *config.Store
	Worker     *worker.Worker
	Server     *server.BoardServer // Optional; nil runs the tray without HTTP.

	Tray desktop.App
	Menu *fyne.Menu

	TrayStatusItem   *fyne.MenuItem
	TrayRefreshItem  *fyne.MenuItem
	TrayBoardItem    *fyne.MenuItem
	TraySettingsItem *fyne.MenuItem

	SupportedLanguages []string

	// Latest refresh outcome, written from the UI goroutine.
	snapMu   sync.RWMutex
	snapshot *engine.Snapshot
	lastErr  error

	// manualPending is set by user-initiated refreshes so that only those
	// produce a notification.
	manualPending atomic.Bool

	board          *boardView
	boardWindow    fyne.Window
	settingsForm   *settingsWidgets
	settingsWindow fyne.Window
}

// NewBirthdayApp constructs the application and wires dependencies.
func NewBirthdayApp(a fyne.App, ctx context.Context, tr *locale.Translator, st *config.Store, w *worker.Worker, srv *server.BoardServer) *BirthdayApp {
	a.SetIcon(theme.InfoIcon())

	return &BirthdayApp{
		App:                a,
		Ctx:                ctx,
		Translator:         tr,
		Settings:           st,
		Worker:             w,
		Server:             srv,
		SupportedLanguages: config.SupportedLanguages,
	}
}

// Run launches the worker, the optional HTTP server and the main UI loop.
func (app *BirthdayApp) Run() {
	app.Worker.Subscribe(app.OnRefresh)

	if app.Server != nil {
		app.Worker.Subscribe(app.Server.OnRefresh)
		go func() {
			if err := app.Server.Start(app.Ctx); err != nil {
				slog.Error(config.ErrServerStartup,
					config.LogKeyError, err,
					config.LogKeyComponent, config.CompUI)

				app.App.SendNotification(fyne.NewNotification(
					config.TitleStartupError,
					fmt.Sprintf(config.MsgPortBusy, app.Server.Listen)))
			}
		}()
	}

	if desk, ok := app.App.(desktop.App); ok {
		app.Tray = desk
		app.Tray.SetSystemTrayIcon(app.App.Icon())
		app.setupTrayMenu()
	} else {
		slog.Warn(config.ErrTrayNotSupported,
			config.LogKeyComponent, config.CompUI)
	}

	go func() {
		_ = app.Worker.Run(app.Ctx)
	}()

	go func() {
		<-app.Ctx.Done()
		slog.Info(config.MsgCtxCancel, config.LogKeyComponent, config.CompUI)
		fyne.Do(app.App.Quit)
	}()

	app.App.Run()
}

// setupTrayMenu constructs the system tray menu.
func (app *BirthdayApp) setupTrayMenu() {
	// The status line doubles as a shortcut to the board window.
	app.TrayStatusItem = fyne.NewMenuItem(config.FallbackTrayLabel, func() {
		app.ShowBoardWindow()
	})

	app.TrayBoardItem = fyne.NewMenuItem(app.Translator.Msg(config.TKeyMenuBoard), func() {
		app.ShowBoardWindow()
	})

	app.TrayRefreshItem = fyne.NewMenuItem(app.Translator.Msg(config.TKeyMenuRefresh), func() {
		app.RequestRefresh()
	})

	app.TraySettingsItem = fyne.NewMenuItem(app.Translator.Msg(config.TKeyMenuSettings), func() {
		app.ShowSettingsWindow()
	})

	app.Menu = fyne.NewMenu(config.AppName,
		app.TrayStatusItem,
		fyne.NewMenuItemSeparator(),
		app.TrayBoardItem,
		app.TrayRefreshItem,
		app.TraySettingsItem,
	)

	if app.Tray != nil {
		app.Tray.SetSystemTrayMenu(app.Menu)
	}
}

// RefreshTrayMenu updates localized labels in the tray menu.
func (app *BirthdayApp) RefreshTrayMenu() {
	if app.Menu == nil {
		return
	}
	app.TrayBoardItem.Label = app.Translator.Msg(config.TKeyMenuBoard)
	app.TrayRefreshItem.Label = app.Translator.Msg(config.TKeyMenuRefresh)
	app.TraySettingsItem.Label = app.Translator.Msg(config.TKeyMenuSettings)

	snap, err := app.current()
	app.updateTrayStatus(snap, err)
}

// RequestRefresh asks the worker for an immediate refresh whose outcome is
// reported as a notification.
func (app *BirthdayApp) RequestRefresh() {
	slog.Info(config.MsgRefreshReq,
		config.LogKeyComponent, config.CompUI,
		config.LogKeyManual, true)

	app.manualPending.Store(true)
	if app.Worker != nil {
		app.Worker.Trigger()
	}
}

// OnRefresh receives worker results. It matches worker.Listener and hands the
// result over to the UI goroutine.
func (app *BirthdayApp) OnRefresh(snap *engine.Snapshot, err error) {
	fyne.Do(func() {
		app.applyRefresh(snap, err)
	})
}

// applyRefresh stores the outcome and updates every visible surface. It must
// run on the UI goroutine.
func (app *BirthdayApp) applyRefresh(snap *engine.Snapshot, err error) {
	app.snapMu.Lock()
	app.snapshot = snap
	app.lastErr = err
	app.snapMu.Unlock()

	app.updateTrayStatus(snap, err)

	if app.board != nil {
		app.board.reload(snap)
	}

	if !app.manualPending.CompareAndSwap(true, false) {
		return
	}
	if err != nil {
		app.App.SendNotification(fyne.NewNotification(config.TitleSyncError,
			app.Translator.MsgWith(config.TKeyNotifError, map[string]any{"Error": err.Error()})))
		return
	}
	app.App.SendNotification(fyne.NewNotification(config.AppName, app.Translator.Msg(config.TKeyNotifSuccess)))
}

// current returns the latest refresh outcome.
func (app *BirthdayApp) current() (*engine.Snapshot, error) {
	app.snapMu.RLock()
	defer app.snapMu.RUnlock()
	return app.snapshot, app.lastErr
}

// updateTrayStatus shows how many birthdays are today on the top menu item.
func (app *BirthdayApp) updateTrayStatus(snap *engine.Snapshot, err error) {
	if app.Menu == nil || app.TrayStatusItem == nil {
		return
	}

	switch {
	case err != nil:
		app.TrayStatusItem.Label = config.FallbackTrayError
	case snap == nil:
		app.TrayStatusItem.Label = config.FallbackTrayLabel
	default:
		app.TrayStatusItem.Label = app.Translator.TrayStatus(len(snap.Result.Today))
	}
	app.Menu.Refresh()
}
