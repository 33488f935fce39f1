package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/comrados/crawlergram/internal/export"
)

var (
	importDialogID int64
	importTimezone string
)

var importCmd = &cobra.Command{
	Use:   "import <export>",
	Short: "Import a Telegram Desktop export into the message store",
	Long: `Imports a Telegram Desktop export: a result.json file (single chat or full
account export), a messages*.html page, or an export directory holding either.
HTML exports carry no chat ID; use --dialog to set one. Dates written without
a UTC offset are read in --tz, the local zone by default.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().Int64Var(&importDialogID, "dialog", 0, "dialog ID for HTML exports (default: derived from the chat title)")
	importCmd.Flags().StringVar(&importTimezone, "tz", "", "IANA time zone of the exporting machine (default: local)")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	im := &export.Importer{Store: st, Logger: logger, DialogID: importDialogID}
	if importTimezone != "" {
		loc, err := time.LoadLocation(importTimezone)
		if err != nil {
			return fmt.Errorf("time zone %q: %w", importTimezone, err)
		}
		im.Location = loc
	}
	sum, err := im.Import(ctx, args[0])
	if err != nil {
		return err
	}
	cmd.Printf("Imported %d dialogs, %d messages\n", sum.Dialogs, sum.Messages)
	return nil
}
