package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"go.uber.org/zap"

	"github.com/nhle/work-schedule/internal/cache"
	"github.com/nhle/work-schedule/internal/credential"
	"github.com/nhle/work-schedule/internal/export"
	"github.com/nhle/work-schedule/internal/httpapi"
	"github.com/nhle/work-schedule/internal/model"
	"github.com/nhle/work-schedule/internal/report"
	"github.com/nhle/work-schedule/internal/schedule"
	"github.com/nhle/work-schedule/internal/theme"
)

func newFlagSet(name string) *flag.FlagSet {
	return flag.NewFlagSet(name, flag.ContinueOnError)
}

func runServe(ctx context.Context, cfg *model.AppConfig, args []string) error {
	fs := newFlagSet("serve")
	listen := fs.String("listen", "", "HTTP listen address (overrides config if set)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *listen != "" {
		cfg.Server.Listen = *listen
	}

	a, err := newApp(ctx, cfg, "workschedule", true)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.refs.Start(cfg.Directory.RefreshCron); err != nil {
		return err
	}
	defer a.refs.Stop()

	if credential.Configured(ctx, a.creds) {
		go func() {
			refreshCtx, cancel := context.WithTimeout(ctx, time.Minute)
			defer cancel()
			if _, err := a.refs.Refresh(refreshCtx); err != nil {
				a.logger.Warn("initial directory refresh incomplete", zap.Error(err))
			}
		}()
	}

	router := httpapi.NewRouter(a.logger)
	router.Register(httpapi.NewHandler(httpapi.Deps{
		Store:        a.remote,
		Cache:        a.schedules,
		Credentials:  serverCredentials(cfg),
		Directory:    a.directory,
		References:   a.refs,
		QBTime:       a.client,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		Logger:       a.logger,
	}))
	srv := httpapi.NewServer(cfg.Server.Listen, router)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("listening", zap.String("addr", cfg.Server.Listen))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runList(ctx context.Context, cfg *model.AppConfig, args []string) error {
	fs := newFlagSet("list")
	from := fs.String("from", "", "first date to show (YYYY-MM-DD)")
	to := fs.String("to", "", "last date to show (YYYY-MM-DD)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, "workschedule-cli", false)
	if err != nil {
		return err
	}
	defer a.Close()

	s := a.syncer(ctx)
	days := schedule.SortByDate(schedule.FilterRange(s.Days(), *from, *to))
	stats := schedule.Stats(s.Days())

	fmt.Println(theme.HeaderStyle.Render("Work Schedule") + "  " + theme.DBStatusLabel(string(s.Status().DB)))
	fmt.Println(theme.MutedStyle.Render(fmt.Sprintf("%d days, %d PMs, %d assignments, %d workers",
		stats.Days, stats.ProjectManagers, stats.Assignments, stats.Workers)))
	for _, d := range days {
		label := report.DateLabel(d.Date)
		if color, err := export.WeekColor(d.Date); err == nil {
			label = theme.WeekSwatch(color, label)
		}
		line := label + "  " + theme.MutedStyle.Render(d.ID)
		if d.SentToQB {
			line += "  " + theme.SentBadge.Render("Sent")
		}
		fmt.Println(line)
	}
	return nil
}

func runExportText(ctx context.Context, cfg *model.AppConfig, args []string) error {
	return runExport(ctx, cfg, append([]string{"-format", "text"}, args...))
}

func runExport(ctx context.Context, cfg *model.AppConfig, args []string) error {
	fs := newFlagSet("export")
	format := fs.String("format", "text", "report format: text, ics or xlsx")
	from := fs.String("from", "", "first date to include (YYYY-MM-DD)")
	to := fs.String("to", "", "last date to include (YYYY-MM-DD)")
	out := fs.String("out", "", "output file (default named after the date range, - for stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, "workschedule-cli", false)
	if err != nil {
		return err
	}
	defer a.Close()

	days := schedule.FilterRange(a.syncer(ctx).Days(), *from, *to)
	if len(days) == 0 {
		return errors.New("nothing to export: no days match the current filter")
	}

	var (
		data []byte
		name string
	)
	switch strings.ToLower(*format) {
	case "text", "txt":
		data, name = []byte(report.Text(days)), report.TextFilename(days)
	case "ics":
		text, err := report.ICS(days, time.Now())
		if err != nil {
			return err
		}
		data, name = []byte(text), report.ICSFilename(days)
	case "xlsx":
		if data, err = report.XLSX(days); err != nil {
			return err
		}
		name = report.XLSXFilename(days)
	default:
		return fmt.Errorf("unknown format %q", *format)
	}

	if *out == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if *out != "" {
		name = *out
	}
	if err := os.WriteFile(name, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	fmt.Println(theme.SuccessStyle.Render("wrote " + name))
	return nil
}

func runSend(ctx context.Context, cfg *model.AppConfig, args []string) error {
	fs := newFlagSet("send")
	dayID := fs.String("day", "", "id of the day to send")
	yes := fs.Bool("yes", false, "re-send without asking when the day was already sent")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dayID == "" {
		return errors.New("-day is required")
	}

	a, err := newApp(ctx, cfg, "workschedule-cli", false)
	if err != nil {
		return err
	}
	defer a.Close()

	if !credential.Configured(ctx, a.creds) {
		return errors.New("please connect to QuickBooks Time first: run `workschedule token set`")
	}

	s := a.syncer(ctx)
	dir, err := a.refs.Refresh(ctx)
	if err != nil && (len(dir.Jobs) == 0 || len(dir.Technicians) == 0) {
		return fmt.Errorf("loading QB Time directory: %w", err)
	}

	res, err := s.SendDay(ctx, *dayID, dir, confirmer(*yes))
	if err != nil {
		return err
	}
	if err := s.Flush(ctx); err != nil {
		a.logger.Warn("day sent but saving its status failed", zap.Error(err))
	}

	day, _ := schedule.Find(s.Days(), *dayID)
	fmt.Println(theme.SendSummary(day.Label(), res.Created, res.Failed))
	for _, e := range res.Errors {
		fmt.Println(theme.MutedStyle.Render(fmt.Sprintf("  %d %s %s", e.Status, e.Key, e.Message)))
	}
	return nil
}

func runCopy(ctx context.Context, cfg *model.AppConfig, args []string) error {
	fs := newFlagSet("copy")
	dayID := fs.String("day", "", "id of the day to copy")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, "workschedule-cli", false)
	if err != nil {
		return err
	}
	defer a.Close()

	s := a.syncer(ctx)
	var copied model.DailySchedule
	found := false
	if _, err := s.Apply(ctx, func(days []model.DailySchedule) []model.DailySchedule {
		days, copied, found = schedule.CopyDay(days, *dayID)
		return days
	}); err != nil {
		a.logger.Warn("local cache not updated", zap.Error(err))
	}
	if !found {
		return fmt.Errorf("schedule %q not found", *dayID)
	}
	if err := s.Flush(ctx); err != nil {
		return err
	}
	fmt.Println(theme.SuccessStyle.Render("copied to " + copied.ID))
	return nil
}

func runBackup(ctx context.Context, cfg *model.AppConfig, args []string) error {
	fs := newFlagSet("backup")
	out := fs.String("out", "", "backup file (default work-schedules-<date>.json)")
	compact := fs.Bool("compact", false, "write the compact single-line form")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, "workschedule-cli", false)
	if err != nil {
		return err
	}
	defer a.Close()

	name := *out
	if name == "" {
		name = cache.ExportFilename(time.Now())
	}
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := writeBackup(f, a.schedules, a.syncer(ctx).Days(), *compact); err != nil {
		return err
	}
	fmt.Println(theme.SuccessStyle.Render("wrote " + name))
	return nil
}

func runRestore(ctx context.Context, cfg *model.AppConfig, args []string) error {
	fs := newFlagSet("restore")
	in := fs.String("in", "", "backup file to restore")
	yes := fs.Bool("yes", false, "replace without asking")
	compact := fs.Bool("compact", false, "read the compact form written by backup -compact")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" {
		return errors.New("-in is required")
	}

	data, err := os.ReadFile(*in)
	if err != nil {
		return err
	}
	days, err := readBackup(data, *compact)
	if err != nil {
		return fmt.Errorf("reading %s: %w", *in, err)
	}

	a, err := newApp(ctx, cfg, "workschedule-cli", false)
	if err != nil {
		return err
	}
	defer a.Close()

	s := a.syncer(ctx)
	msg := fmt.Sprintf("Replace %d schedule entries with %d from %s?", len(s.Days()), len(days), *in)
	if !confirmer(*yes)(msg) {
		return nil
	}
	if _, err := s.Replace(ctx, days); err != nil {
		a.logger.Warn("local cache not updated", zap.Error(err))
	}
	if err := s.Flush(ctx); err != nil {
		return err
	}
	fmt.Println(theme.SuccessStyle.Render(fmt.Sprintf("restored %d days", len(days))))
	return nil
}

func runPrune(ctx context.Context, cfg *model.AppConfig, args []string) error {
	fs := newFlagSet("prune")
	keep := fs.Int("keep", 10, "number of newest days to keep")
	yes := fs.Bool("yes", false, "delete without asking")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, "workschedule-cli", false)
	if err != nil {
		return err
	}
	defer a.Close()

	s := a.syncer(ctx)
	removed, err := s.Prune(ctx, *keep, confirmer(*yes))
	if err != nil {
		a.logger.Warn("local cache not updated", zap.Error(err))
	}
	if err := s.Flush(ctx); err != nil {
		return err
	}
	fmt.Println(theme.MutedStyle.Render(fmt.Sprintf("removed %d days", removed)))
	return nil
}

func runToken(ctx context.Context, cfg *model.AppConfig, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: workschedule token set|delete|status")
	}

	switch args[0] {
	case "set":
		token := ""
		err := huh.NewInput().
			Title("QB Time API Token").
			Description("Stored in the system keyring").
			EchoMode(huh.EchoModePassword).
			Value(&token).
			Run()
		if err != nil {
			return err
		}
		token = strings.TrimSpace(token)
		if token == "" {
			return credential.ErrNotConnected
		}

		a, err := newApp(ctx, cfg, "workschedule-cli", false)
		if err != nil {
			return err
		}
		defer a.Close()

		user, err := a.directory.Connect(ctx, token)
		if err != nil {
			return err
		}
		if err := credential.Set(credential.TokenKey, token); err != nil {
			return err
		}
		who := "QB Time"
		if user != nil {
			who = user.Name
			if user.Company != "" {
				who += " (" + user.Company + ")"
			}
		}
		fmt.Println(theme.SuccessStyle.Render("✓ connected as " + who))
		if !cfg.QBTime.UseKeyring {
			if err := enableKeyring(configFile, cfg); err != nil {
				return err
			}
			fmt.Println(theme.MutedStyle.Render("qbtime.use_keyring enabled in " + configFile))
		}
		return nil

	case "delete":
		if err := credential.Delete(credential.TokenKey); err != nil {
			return err
		}
		fmt.Println(theme.MutedStyle.Render("token removed"))
		return nil

	case "status":
		if credential.Configured(ctx, serverCredentials(cfg)) {
			fmt.Println(theme.SuccessStyle.Render("token configured"))
		} else {
			fmt.Println(theme.WarnStyle.Render("no token configured"))
		}
		return nil

	default:
		return fmt.Errorf("unknown token command %q", args[0])
	}
}

// writeBackup writes days as an indented export, or as the compact
// backup string.
func writeBackup(w io.Writer, c *cache.ScheduleCache, days []model.DailySchedule, compact bool) error {
	if !compact {
		return c.Export(w, days)
	}
	backup, err := c.Backup(days)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, backup)
	return err
}

// readBackup parses a file written by writeBackup.
func readBackup(data []byte, compact bool) ([]model.DailySchedule, error) {
	if compact {
		return cache.Restore(string(data))
	}
	return cache.Import(bytes.NewReader(data))
}

// enableKeyring turns on qbtime.use_keyring and writes the config back
// so the server picks up the stored token.
func enableKeyring(path string, cfg *model.AppConfig) error {
	cfg.QBTime.UseKeyring = true
	if err := model.SaveConfig(path, cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	return nil
}

// cacheReport describes the local cache usage.
func cacheReport(info cache.Info) string {
	return fmt.Sprintf("%s of %s used (%.1f%%)",
		humanBytes(info.Used), humanBytes(cache.EstimatedLimit), info.Percentage)
}

func humanBytes(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

func runCache(ctx context.Context, cfg *model.AppConfig, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: workschedule cache info|clear [-yes]")
	}
	fs := newFlagSet("cache " + args[0])
	yes := fs.Bool("yes", false, "clear without asking")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, "workschedule-cli", false)
	if err != nil {
		return err
	}
	defer a.Close()

	switch args[0] {
	case "info":
		info := a.schedules.Info(ctx)
		line := cacheReport(info)
		if info.Percentage >= 80 {
			line = theme.WarnStyle.Render(line)
		}
		fmt.Println(line)
		return nil

	case "clear":
		if !confirmer(*yes)("Remove the local schedule cache? The remote store is not touched.") {
			return nil
		}
		if err := a.schedules.Clear(ctx); err != nil {
			return err
		}
		fmt.Println(theme.MutedStyle.Render("local cache cleared"))
		return nil

	default:
		return fmt.Errorf("unknown cache command %q", args[0])
	}
}
