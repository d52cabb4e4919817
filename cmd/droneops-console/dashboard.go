package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"droneops-console/internal/admin"
	"droneops-console/internal/console"
	"droneops-console/internal/logging"
	"droneops-console/internal/ops"
	"droneops-console/internal/tui"
)

// summaryWidth is the line width of the non-interactive summary.
const summaryWidth = 100

var (
	dashLogFile    string
	dashAdminAddr  string
	dashExportFile string
	dashPrintOnly  bool
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Run the operator console",
	Long: "dashboard starts the interactive console when stdout is a terminal. Otherwise it runs headless, " +
		"reading commands from stdin and printing a summary on every phase change.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		interactive := !dashPrintOnly && tui.IsInteractive(os.Stdout)

		logOut := cmd.ErrOrStderr()
		if interactive {
			logOut = io.Discard
		}
		if dashLogFile != "" {
			f, err := os.OpenFile(dashLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return fmt.Errorf("open log file: %w", err)
			}
			defer f.Close()
			logOut = f
		}
		log := newLogger(logOut)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		ctx = logging.NewContext(ctx, log)

		sk, err := newSinks(cfg, dashExportFile, log)
		if err != nil {
			return err
		}
		defer sk.close()
		sess, err := newSession(cfg, log, sk)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if dashPrintOnly {
			sess.Refresh(ctx)
			fmt.Fprintln(out, tui.Summary(sess.Machine.Snapshot(), sess.Dispatcher.Advisories(), summaryWidth))
			return nil
		}
		if interactive {
			return runInteractive(ctx, sess, log)
		}
		return runHeadless(ctx, sess, cmd.InOrStdin(), out, log)
	},
}

func init() {
	dashboardCmd.Flags().StringVar(&dashLogFile, "log-file", "", "Write logs to this file (discarded in the interactive view when unset)")
	dashboardCmd.Flags().StringVar(&dashAdminAddr, "admin-addr", "", "Serve the admin endpoint on this address (e.g. :8080)")
	dashboardCmd.Flags().StringVar(&dashExportFile, "export-file", "", "Export telemetry, timeline and assignments as JSONL")
	dashboardCmd.Flags().BoolVar(&dashPrintOnly, "print-only", false, "Print the console summary once and exit")
}

// startAdmin serves the admin endpoint until ctx is done. onStatus reports
// whether the endpoint is up.
func startAdmin(ctx context.Context, wg *sync.WaitGroup, sess *console.Session, submit admin.Submitter, onStatus func(bool), log *slog.Logger) {
	if dashAdminAddr == "" {
		return
	}
	srv := admin.NewServer(sess.Machine, sess.Engine, sess.Dispatcher, submit, log)
	wg.Add(1)
	go func() {
		defer wg.Done()
		onStatus(true)
		if err := srv.Start(ctx, dashAdminAddr); err != nil {
			log.Error("admin server failed", "addr", dashAdminAddr, "err", err)
			onStatus(false)
		}
	}()
}

func runInteractive(ctx context.Context, sess *console.Session, log *slog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	dash := tui.NewDashboard(ctx, sess)
	sess.Start(ctx, dash.Tick)
	defer sess.Stop()

	var wg sync.WaitGroup
	startAdmin(ctx, &wg, sess, func(in string) bool {
		if ctx.Err() != nil {
			return false
		}
		dash.Submit(in)
		return true
	}, dash.SetAdminStatus, log)

	err := dash.Run()
	cancel()
	wg.Wait()
	log.Info("console stopped", "phase", sess.Machine.Phase())
	return err
}

// runHeadless drives the session from an ops.Loop. Commands arrive on in
// (one per line) or through the admin endpoint.
func runHeadless(ctx context.Context, sess *console.Session, in io.Reader, out io.Writer, log *slog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	loop := ops.NewLoop(64)
	go loop.Run(ctx)

	last := sess.Machine.Phase()
	printSummary := func() {
		fmt.Fprintln(out, tui.Summary(sess.Machine.Snapshot(), sess.Dispatcher.Advisories(), summaryWidth))
	}
	phaseChanged := func() bool {
		p := sess.Machine.Phase()
		changed := p != last
		last = p
		return changed
	}
	run := func(input string) bool {
		return loop.Post(func() {
			res := sess.Command(ctx, input)
			fmt.Fprintln(out, res.Advisory.String())
			if phaseChanged() {
				printSummary()
			}
		})
	}

	loop.Call(func() {
		sess.Start(ctx, func(t ops.Tick) {
			loop.Post(func() {
				if sess.Tick(ctx, t) && phaseChanged() {
					printSummary()
				}
			})
		})
		printSummary()
	})

	var wg sync.WaitGroup
	startAdmin(ctx, &wg, sess, run, func(bool) {}, log)

	if in != nil {
		go func() {
			sc := bufio.NewScanner(in)
			for sc.Scan() {
				if line := sc.Text(); line != "" && !run(line) {
					return
				}
			}
		}()
	}

	<-ctx.Done()
	<-loop.Done()
	sess.Stop()
	wg.Wait()
	log.Info("console stopped", "phase", sess.Machine.Phase())
	return nil
}
