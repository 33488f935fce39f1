package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/comrados/crawlergram/pkg/topics/vocab"
)

var (
	vocabDialogID int64
	vocabOut      string
)

var vocabCmd = &cobra.Command{
	Use:   "vocab",
	Short: "Dump the vocabulary of a dialog",
	Long: `Runs the lexical pipeline and stemming for one dialog and writes its
vocabulary, one word per line in ascending order.`,
	Args: cobra.NoArgs,
	RunE: runVocab,
}

func init() {
	vocabCmd.Flags().Int64Var(&vocabDialogID, "dialog", 0, "dialog ID (required)")
	vocabCmd.Flags().StringVar(&vocabOut, "out", "", "output file (default: stdout)")
	rootCmd.AddCommand(vocabCmd)
}

func runVocab(cmd *cobra.Command, _ []string) error {
	if vocabDialogID == 0 {
		return errors.New("--dialog required")
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
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

	d, err := lookupDialog(ctx, st, vocabDialogID)
	if err != nil {
		return err
	}
	_, v, _, err := ex.Prepare(ctx, d)
	if err != nil {
		return err
	}

	if vocabOut != "" {
		if err := vocab.DumpFile(vocabOut, v); err != nil {
			return err
		}
		cmd.Printf("Wrote %d words to %s\n", v.Len(), vocabOut)
		return nil
	}
	return vocab.Dump(cmd.OutOrStdout(), v)
}
