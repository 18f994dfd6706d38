package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"fyne.io/fyne/v2/app"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/tartampluch/birthday-board/internal/config"
	"github.com/tartampluch/birthday-board/internal/engine"
	"github.com/tartampluch/birthday-board/internal/locale"
	"github.com/tartampluch/birthday-board/internal/metrics"
	"github.com/tartampluch/birthday-board/internal/server"
	"github.com/tartampluch/birthday-board/internal/ui"
	"github.com/tartampluch/birthday-board/internal/worker"
	"golang.org/x/sync/errgroup"
)

func (c *cli) newRootCmd() *cobra.Command {
	var showVersion bool

	root := &cobra.Command{
		Use:           config.AppCommand,
		Short:         config.CmdShort,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			c.logCloser = setupLogging(c.stderr, c.debug, c.logToFile && wantsLogFile(cmd))
			logStartupInfo(cmd.Name())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				printVersion(c.stdout)
				return nil
			}
			return cmd.Help()
		},
	}

	root.Flags().BoolVar(&showVersion, config.FlagVersion, false, config.FlagDescVersion)
	root.PersistentFlags().StringVar(&c.configPath, config.FlagConfig, "", config.FlagDescConfig)
	root.PersistentFlags().BoolVar(&c.debug, config.FlagDebug, false, config.FlagDescDebug)
	root.PersistentFlags().StringVar(&c.lang, config.FlagLang, "", config.FlagDescLang)

	root.AddCommand(c.todayCmd())
	root.AddCommand(c.listCmd())
	root.AddCommand(c.icsCmd())
	root.AddCommand(c.serveCmd())
	root.AddCommand(c.trayCmd())
	root.AddCommand(c.passwordCmd())
	return root
}

// longRunning marks commands that own the log file. It is truncated on open,
// so one-shot commands must not touch it while a server or tray is running.
var longRunning = map[string]string{config.AnnotationLogFile: "true"}

func wantsLogFile(cmd *cobra.Command) bool {
	_, ok := cmd.Annotations[config.AnnotationLogFile]
	return ok
}

// loadStore reads the settings file, applying the --lang override in memory.
func (c *cli) loadStore() (*config.Store, error) {
	path := c.configPath
	if path == "" {
		p, err := config.DefaultSettingsPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	s, err := config.LoadSettings(path)
	if err != nil {
		if s == nil {
			return nil, err
		}
		// First run with an unwritable config dir: the defaults still work.
		slog.Warn(config.ErrConfigWrite,
			config.LogKeyComponent, config.CompMain,
			config.LogKeyPath, path,
			config.LogKeyError, err)
	}
	if c.lang != "" {
		s.Language = c.lang
	}
	return config.NewStore(path, s), nil
}

// newBoard wires the pipeline for s. tr localizes event titles and must only
// be used from the refreshing goroutine.
func (c *cli) newBoard(s config.Settings, tr *locale.Translator) *engine.Board {
	clock := c.clock
	if clock == nil {
		clock = engine.RealClock{}
	}
	return &engine.Board{
		Clock:   clock,
		Fetcher: engine.NewHTTPFetcher(),
		Calendar: engine.CalendarOptions{
			Name:            s.CalendarName,
			ReminderTrigger: s.ReminderTrigger,
			FormatSummary:   tr.Summary,
		},
	}
}

// refreshOnce runs a single pass of the pipeline for the one-shot commands.
func (c *cli) refreshOnce(ctx context.Context) (*engine.Snapshot, *locale.Translator, error) {
	store, err := c.loadStore()
	if err != nil {
		return nil, nil, err
	}
	s := store.Get()
	tr := locale.New(s.Language)

	snap, err := c.newBoard(s, tr).Refresh(ctx, worker.SettingsSource(store)())
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", config.ErrRefreshFailed, err)
	}
	return snap, tr, nil
}

func (c *cli) todayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   config.CmdTodayUse,
		Short: config.CmdTodayShort,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, tr, err := c.refreshOnce(cmd.Context())
			if err != nil {
				return err
			}
			return writeToday(c.stdout, tr, snap.Result)
		},
	}
}

// writeToday prints the date line, then today's greetings or, when nobody
// celebrates, the distance to the next birthday.
func writeToday(w io.Writer, tr *locale.Translator, res engine.Result) error {
	var b strings.Builder
	fmt.Fprintln(&b, tr.DateLine(res.Now))

	switch {
	case len(res.Ordered) == 0:
		fmt.Fprintln(&b, tr.Msg(config.TKeyEmptyData))
	case len(res.Today) > 0:
		for _, occ := range res.Today {
			fmt.Fprintf(&b, config.FormatTodayLine,
				tr.HappyBirthday(occ.Record.Name),
				tr.Category(occ.Record.Category),
				occ.Record.OriginalText)
		}
	default:
		fmt.Fprintln(&b, tr.Msg(config.TKeyNoneToday))
		if next, ok := res.Next(); ok {
			fmt.Fprintln(&b, tr.NextIn(next.DaysUntil))
		}
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("%s: %w", config.ErrWriteOutput, err)
	}
	return nil
}

func (c *cli) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   config.CmdListUse,
		Short: config.CmdListShort,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, tr, err := c.refreshOnce(cmd.Context())
			if err != nil {
				return err
			}
			return writeList(c.stdout, tr, snap.Result)
		},
	}
}

// writeList prints every record, nearest first.
func writeList(w io.Writer, tr *locale.Translator, res engine.Result) error {
	var b strings.Builder
	if len(res.Ordered) == 0 {
		fmt.Fprintln(&b, tr.Msg(config.TKeyEmptyData))
	}
	for _, occ := range res.Ordered {
		when := tr.DaysLater(occ.DaysUntil)
		if occ.IsToday {
			when = tr.Msg(config.TKeyTodayLabel)
		}
		fmt.Fprintf(&b, config.FormatListLine,
			occ.Record.Name,
			occ.Record.OriginalText,
			tr.Category(occ.Record.Category),
			when)
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("%s: %w", config.ErrWriteOutput, err)
	}
	return nil
}

func (c *cli) icsCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   config.CmdICSUse,
		Short: config.CmdICSShort,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, _, err := c.refreshOnce(cmd.Context())
			if err != nil {
				return err
			}

			if out == "" {
				if _, err := c.stdout.Write(snap.ICS); err != nil {
					return fmt.Errorf("%s: %w", config.ErrWriteOutput, err)
				}
				return nil
			}
			if err := os.WriteFile(out, snap.ICS, config.FilePermUserRW); err != nil {
				return fmt.Errorf("%s: %w", config.ErrWriteOutput, err)
			}
			slog.Info(config.MsgFeedWritten,
				config.LogKeyComponent, config.CompMain,
				config.LogKeyPath, out,
				config.LogKeySizeBytes, len(snap.ICS))
			return nil
		},
	}

	cmd.Flags().StringVar(&out, config.FlagOut, "", config.FlagDescOut)
	return cmd
}

func (c *cli) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:         config.CmdServeUse,
		Short:       config.CmdServeShort,
		Args:        cobra.NoArgs,
		Annotations: longRunning,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := c.loadStore()
			if err != nil {
				return err
			}
			return c.serve(cmd.Context(), store)
		},
	}
}

// serve runs the HTTP server and the refresh worker until ctx is cancelled or
// either of them fails.
func (c *cli) serve(ctx context.Context, store *config.Store) error {
	s := store.Get()
	tr := locale.New(s.Language)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	srv := server.NewBoardServer(s.Listen, tr, reg)
	w, err := worker.New(c.newBoard(s, tr), worker.LocalizedSource(store, tr), s.RefreshCron, metrics.New(reg))
	if err != nil {
		return err
	}
	w.Subscribe(srv.OnRefresh)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(gctx)
	})
	g.Go(func() error {
		return w.Run(gctx)
	})
	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info(config.MsgAppStop, config.LogKeyComponent, config.CompMain)
	return nil
}

func (c *cli) trayCmd() *cobra.Command {
	return &cobra.Command{
		Use:         config.CmdTrayUse,
		Short:       config.CmdTrayShort,
		Args:        cobra.NoArgs,
		Annotations: longRunning,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := c.loadStore()
			if err != nil {
				return err
			}
			s := store.Get()

			// The feed and the web board render on the worker goroutine and
			// pick up language changes there; the tray has its own
			// translator on the UI goroutine.
			feedTr := locale.New(s.Language)
			reg := prometheus.NewRegistry()
			srv := server.NewBoardServer(s.Listen, feedTr, reg)
			w, err := worker.New(c.newBoard(s, feedTr), worker.LocalizedSource(store, feedTr), s.RefreshCron, metrics.New(reg))
			if err != nil {
				return err
			}

			a := app.NewWithID(config.AppID)
			gui := ui.NewBirthdayApp(a, cmd.Context(), locale.New(s.Language), store, w, srv)

			// Blocks until the application quits.
			gui.Run()

			slog.Info(config.MsgAppStop, config.LogKeyComponent, config.CompMain)
			return nil
		},
	}
}

func (c *cli) passwordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   config.CmdPassUse,
		Short: config.CmdPassShort,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := c.loadStore()
			if err != nil {
				return err
			}
			user := store.Get().Source.User
			if user == "" {
				return errors.New(config.ErrUserRequired)
			}

			password, err := readLine(c.stdin)
			if err != nil {
				return err
			}
			if err := config.StorePassword(user, password); err != nil {
				return err
			}

			slog.Info(config.MsgPasswordStored,
				config.LogKeyComponent, config.CompMain,
				config.LogKeyUser, user)
			return nil
		},
	}
}

// readLine returns the first line of r without its line ending.
func readLine(r io.Reader) (string, error) {
	sc := bufio.NewScanner(r)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return "", fmt.Errorf("%s: %w", config.ErrPasswordRead, err)
		}
		return "", errors.New(config.ErrPasswordRead)
	}
	return strings.TrimRight(sc.Text(), "\r"), nil
}
