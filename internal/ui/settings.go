package ui

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/robfig/cron/v3"
	"github.com/tartampluch/birthday-board/internal/config"
)

// settingsWidgets holds references to UI elements to simplify data retrieval during save.
type settingsWidgets struct {
	langSelect    *widget.Select
	modeSelect    *widget.Select
	formatSelect  *widget.Select
	urlEntry      *widget.Entry
	userEntry     *widget.Entry
	passEntry     *widget.Entry
	pathEntry     *widget.Entry
	listenEntry   *widget.Entry
	cronEntry     *widget.Entry
	checkReminder *widget.Check
	entryRemDays  *NumericalEntry
}

// ShowSettingsWindow displays the configuration dialog.
func (app *BirthdayApp) ShowSettingsWindow() {
	if app.settingsWindow != nil {
		slog.Debug(config.MsgSettingsFocus, config.LogKeyComponent, config.CompUISet)
		app.settingsWindow.RequestFocus()
		return
	}

	slog.Info(config.MsgOpenSettings, config.LogKeyComponent, config.CompUISet)
	w := app.App.NewWindow(app.Translator.Msg(config.TKeyWinSettings))
	app.settingsWindow = w

	current := app.Settings.Get()
	sw := app.newSettingsWidgets(current)
	app.settingsForm = sw

	var refreshLayout func()
	onLayoutChange := func() {
		if refreshLayout != nil {
			refreshLayout()
		}
	}

	sourceCard := app.buildSourceCard(w, sw, onLayoutChange)

	itemLang := widget.NewFormItem(app.Translator.Msg(config.TKeyLblLanguage), sw.langSelect)

	itemListen := widget.NewFormItem(app.Translator.Msg(config.TKeyLblListen), sw.listenEntry)
	itemListen.HintText = app.Translator.Msg(config.TKeyHelpRestart)

	itemCron := widget.NewFormItem(app.Translator.Msg(config.TKeyLblRefresh), sw.cronEntry)
	itemCron.HintText = app.Translator.Msg(config.TKeyHelpRestart)

	generalCard := widget.NewCard(app.Translator.Msg(config.TKeyLblGeneral), "",
		widget.NewForm(itemLang, itemListen, itemCron))

	notifCard := app.buildNotifCard(sw, onLayoutChange)

	btnSave := widget.NewButtonWithIcon(app.Translator.Msg(config.TKeyBtnSave), theme.DocumentSaveIcon(), func() {
		if err := app.saveSettings(sw); err != nil {
			dialog.ShowError(err, w)
			return
		}
		w.Close()
	})
	btnSave.Importance = widget.HighImportance
	btnCancel := widget.NewButtonWithIcon(app.Translator.Msg(config.TKeyBtnCancel), theme.CancelIcon(), func() { w.Close() })

	footerLabel := widget.NewLabel(app.Translator.MsgWith(config.TKeyLblFooter, map[string]any{"Version": config.Version}))
	footerLabel.Alignment = fyne.TextAlignCenter
	footerLabel.TextStyle = fyne.TextStyle{Italic: true}

	paddedContent := container.NewPadded(container.NewVBox(
		sourceCard,
		generalCard,
		notifCard,
		container.NewGridWithColumns(config.LayoutColumnsDouble, btnCancel, btnSave),
		footerLabel,
	))

	refreshLayout = func() {
		paddedContent.Refresh()
		minSize := paddedContent.MinSize()
		w.Resize(fyne.NewSize(config.SettingsWinWidth, minSize.Height))
	}

	w.SetContent(paddedContent)
	w.SetFixedSize(true)
	w.SetOnClosed(func() {
		app.settingsWindow = nil
		app.settingsForm = nil
	})

	refreshLayout()
	w.Show()
}

// newSettingsWidgets creates the editable widgets pre-filled from s.
func (app *BirthdayApp) newSettingsWidgets(s config.Settings) *settingsWidgets {
	sw := &settingsWidgets{}

	sw.langSelect = widget.NewSelect(app.SupportedLanguages, nil)
	sw.langSelect.SetSelected(s.Language)

	sw.modeSelect = widget.NewSelect([]string{
		app.Translator.Msg(config.TKeyModeWeb),
		app.Translator.Msg(config.TKeyModeLocal),
	}, nil)

	sw.formatSelect = widget.NewSelect([]string{
		app.Translator.Msg(config.TKeyFormatAuto),
		app.Translator.Msg(config.TKeyFormatTable),
		app.Translator.Msg(config.TKeyFormatVCard),
	}, nil)
	sw.formatSelect.SetSelected(app.formatLabel(s.Source.Format))

	sw.urlEntry = widget.NewEntry()
	sw.urlEntry.SetText(s.Source.URL)
	sw.urlEntry.PlaceHolder = config.PlaceholderURL

	sw.userEntry = widget.NewEntry()
	sw.userEntry.SetText(s.Source.User)

	sw.passEntry = widget.NewPasswordEntry()
	sw.passEntry.SetText(config.LookupPassword(s.Source.User))

	sw.pathEntry = widget.NewEntry()
	sw.pathEntry.SetText(s.Source.Path)

	sw.listenEntry = widget.NewEntry()
	sw.listenEntry.SetText(s.Listen)
	sw.listenEntry.PlaceHolder = config.PlaceholderListen
	sw.listenEntry.Validator = func(v string) error {
		if _, _, err := net.SplitHostPort(v); err != nil {
			return errors.New(app.Translator.Msg(config.TKeyErrListen))
		}
		return nil
	}

	sw.cronEntry = widget.NewEntry()
	sw.cronEntry.SetText(s.RefreshCron)
	sw.cronEntry.PlaceHolder = config.PlaceholderCron
	sw.cronEntry.Validator = func(v string) error {
		if _, err := cron.ParseStandard(v); err != nil {
			return errors.New(app.Translator.Msg(config.TKeyErrRefresh))
		}
		return nil
	}

	days, enabled := config.ReminderDays(s.ReminderTrigger)
	if !enabled {
		days = config.DefaultReminderDays
	}
	sw.checkReminder = widget.NewCheck(app.Translator.Msg(config.TKeyLblEnableRem), nil)
	sw.checkReminder.Checked = enabled

	sw.entryRemDays = NewNumericalEntry()
	sw.entryRemDays.SetText(strconv.Itoa(days))

	return sw
}

// buildSourceCard constructs the source selection UI.
func (app *BirthdayApp) buildSourceCard(w fyne.Window, sw *settingsWidgets, onLayoutChange func()) *widget.Card {
	browseBtn := widget.NewButton(app.Translator.Msg(config.TKeyBtnBrowse), func() {
		d := dialog.NewFileOpen(func(r fyne.URIReadCloser, err error) {
			if err == nil && r != nil {
				sw.pathEntry.SetText(r.URI().Path())
				_ = r.Close()
			}
		}, w)
		d.SetFilter(storage.NewExtensionFileFilter([]string{config.ExtTXT, config.ExtCSV, config.ExtVCF, config.ExtVCard}))
		d.Show()
	})

	itemURL := widget.NewFormItem(app.Translator.Msg(config.TKeyLblURL), sw.urlEntry)
	itemURL.HintText = app.Translator.Msg(config.TKeyHelpURL)

	itemUser := widget.NewFormItem(app.Translator.Msg(config.TKeyLblUser), sw.userEntry)
	itemPass := widget.NewFormItem(app.Translator.Msg(config.TKeyLblPass), sw.passEntry)

	webForm := widget.NewForm(itemURL, itemUser, itemPass)
	localForm := container.NewBorder(nil, nil, nil, browseBtn, sw.pathEntry)
	formatForm := widget.NewForm(widget.NewFormItem(app.Translator.Msg(config.TKeyLblFormat), sw.formatSelect))

	updateVis := func(label string) {
		if label == app.Translator.Msg(config.TKeyModeLocal) {
			webForm.Hide()
			localForm.Show()
		} else {
			webForm.Show()
			localForm.Hide()
		}
		if onLayoutChange != nil {
			onLayoutChange()
		}
	}
	sw.modeSelect.OnChanged = updateVis

	if app.Settings.Get().Source.Mode == config.SourceModeWeb {
		sw.modeSelect.SetSelected(app.Translator.Msg(config.TKeyModeWeb))
	} else {
		sw.modeSelect.SetSelected(app.Translator.Msg(config.TKeyModeLocal))
	}

	return widget.NewCard(app.Translator.Msg(config.TKeyLblSource), "",
		container.NewVBox(sw.modeSelect, webForm, localForm, formatForm))
}

// buildNotifCard constructs the calendar reminder UI.
func (app *BirthdayApp) buildNotifCard(sw *settingsWidgets, onLayoutChange func()) *widget.Card {
	row := container.NewBorder(nil, nil, nil, widget.NewLabel(app.Translator.Msg(config.TKeyLblDays)), sw.entryRemDays)

	sw.checkReminder.OnChanged = func(b bool) {
		if b {
			row.Show()
		} else {
			row.Hide()
		}
		if onLayoutChange != nil {
			onLayoutChange()
		}
	}

	if sw.checkReminder.Checked {
		row.Show()
	} else {
		row.Hide()
	}

	return widget.NewCard(app.Translator.Msg(config.TKeyLblNotif), "", container.NewVBox(sw.checkReminder, row))
}

// collectSettings maps the widget state back onto base.
func (app *BirthdayApp) collectSettings(sw *settingsWidgets, base config.Settings) config.Settings {
	s := base
	s.Language = sw.langSelect.Selected

	s.Source.Mode = config.SourceModeWeb
	if sw.modeSelect.Selected == app.Translator.Msg(config.TKeyModeLocal) {
		s.Source.Mode = config.SourceModeLocal
	}
	s.Source.Format = app.formatValue(sw.formatSelect.Selected)
	s.Source.URL = sw.urlEntry.Text
	s.Source.User = sw.userEntry.Text
	s.Source.Path = sw.pathEntry.Text

	s.Listen = sw.listenEntry.Text
	s.RefreshCron = sw.cronEntry.Text

	// An empty day count disables reminders even if the box is checked.
	s.ReminderTrigger = ""
	if sw.checkReminder.Checked {
		if days, ok := sw.entryRemDays.Value(); ok {
			s.ReminderTrigger = fmt.Sprintf(config.FormatReminderDays, days)
		}
	}
	return s
}

// saveSettings validates, persists and applies the form, then refreshes.
func (app *BirthdayApp) saveSettings(sw *settingsWidgets) error {
	if err := sw.listenEntry.Validate(); err != nil {
		return err
	}
	if err := sw.cronEntry.Validate(); err != nil {
		return err
	}

	s := app.collectSettings(sw, app.Settings.Get())
	if err := app.Settings.Save(s); err != nil {
		slog.Error(config.ErrConfigWrite,
			config.LogKeyError, err,
			config.LogKeyComponent, config.CompUISet)
		return err
	}
	slog.Info(config.MsgSettingsSaved,
		config.LogKeyComponent, config.CompUISet,
		config.LogKeyPath, app.Settings.Path())

	// The keyring is only written when a password is provided.
	if s.Source.User != "" && sw.passEntry.Text != "" {
		if err := config.StorePassword(s.Source.User, sw.passEntry.Text); err != nil {
			slog.Error(config.ErrKeyringSave,
				config.LogKeyError, err,
				config.LogKeyComponent, config.CompUISet)
		}
	}

	app.Translator.SetLanguage(app.Settings.Get().Language)
	app.RefreshTrayMenu()
	app.RequestRefresh()
	return nil
}

func (app *BirthdayApp) formatLabel(format string) string {
	switch format {
	case config.FormatTable:
		return app.Translator.Msg(config.TKeyFormatTable)
	case config.FormatVCard:
		return app.Translator.Msg(config.TKeyFormatVCard)
	default:
		return app.Translator.Msg(config.TKeyFormatAuto)
	}
}

func (app *BirthdayApp) formatValue(label string) string {
	switch label {
	case app.Translator.Msg(config.TKeyFormatTable):
		return config.FormatTable
	case app.Translator.Msg(config.TKeyFormatVCard):
		return config.FormatVCard
	default:
		return config.FormatAuto
	}
}
