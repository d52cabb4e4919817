package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"droneops-console/internal/logging"
	"droneops-console/internal/tui"
)

var execExportFile string

var execCmd = &cobra.Command{
	Use:   "exec [phrases...]",
	Short: "Run commands against a fresh console and print the result",
	Long: "exec runs each phrase in order without timers, prints the advisory for each, then the console summary. " +
		"An argument of the form key:<k> presses a console key instead (key:1, key:2, key:3, key:space, key:esc).",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := newLogger(cmd.ErrOrStderr())
		ctx := logging.NewContext(cmd.Context(), log)

		sk, err := newSinks(cfg, execExportFile, log)
		if err != nil {
			return err
		}
		defer sk.close()
		sess, err := newSession(cfg, log, sk)
		if err != nil {
			return err
		}
		sess.Refresh(ctx)

		out := cmd.OutOrStdout()
		for _, arg := range args {
			if key, ok := strings.CutPrefix(arg, "key:"); ok {
				res, bound := sess.Key(ctx, key)
				if !bound {
					fmt.Fprintf(out, "> [%s]\nkey not active\n", key)
					continue
				}
				fmt.Fprintf(out, "> [%s]\n%s\n", key, res.Advisory.String())
				continue
			}
			res := sess.Command(ctx, arg)
			fmt.Fprintf(out, "> %s\n%s\n", arg, res.Advisory.String())
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, tui.Summary(sess.Machine.Snapshot(), nil, summaryWidth))
		return nil
	},
}

func init() {
	execCmd.Flags().StringVar(&execExportFile, "export-file", "", "Export timeline and assignments as JSONL")
}
