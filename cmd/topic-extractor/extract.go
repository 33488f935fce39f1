package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	extractDialogID int64
	extractFrom     int64
	extractTo       int64
	extractWorkers  int
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Run topic extraction",
	Long: `Runs topic extraction for one dialog (--dialog) or every stored dialog.
--from and --to limit messages by date in epoch seconds; when both are zero
or from is not before to, all messages are read.`,
	Args: cobra.NoArgs,
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().Int64Var(&extractDialogID, "dialog", 0, "dialog ID (default: all dialogs)")
	extractCmd.Flags().Int64Var(&extractFrom, "from", 0, "first message date, epoch seconds")
	extractCmd.Flags().Int64Var(&extractTo, "to", 0, "end of the date range (exclusive), epoch seconds")
	extractCmd.Flags().IntVar(&extractWorkers, "workers", 0, "dialogs processed in parallel, overrides workers")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("from") || cmd.Flags().Changed("to") {
		cfg.Range.From, cfg.Range.To = extractFrom, extractTo
	}
	if extractWorkers > 0 {
		cfg.Workers = extractWorkers
	}
	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	ex, st, cleanup, err := buildExtractor(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	if extractDialogID != 0 {
		d, err := lookupDialog(ctx, st, extractDialogID)
		if err != nil {
			return err
		}
		rep, err := ex.Extract(ctx, d)
		if err != nil {
			return err
		}
		_, err = rep.WriteTo(cmd.OutOrStdout())
		return err
	}

	outcomes, err := ex.ExtractAll(ctx)
	if err != nil {
		return err
	}

	var ok, skipped, failed int
	for _, o := range outcomes {
		switch {
		case o.Report != nil:
			ok++
			if _, err := o.Report.WriteTo(cmd.OutOrStdout()); err != nil {
				return err
			}
		case o.Skipped != nil:
			skipped++
			cmd.Printf("SKIPPED: %d %s: %v\n", o.Dialog.ID, o.Dialog.Name(), o.Skipped)
		default:
			failed++
			cmd.PrintErrf("FAILED: %d %s: %v\n", o.Dialog.ID, o.Dialog.Name(), o.Err)
		}
	}
	cmd.Printf("\nDialogs: %d extracted, %d skipped, %d failed\n", ok, skipped, failed)

	if failed > 0 {
		return fmt.Errorf("%d of %d dialogs failed", failed, len(outcomes))
	}
	return nil
}
