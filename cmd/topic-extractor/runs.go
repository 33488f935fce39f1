package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/comrados/crawlergram/pkg/topics/analytics"
	"github.com/comrados/crawlergram/pkg/topics/runs"
)

var (
	runsDialogID   int64
	runsShowTopics bool
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List saved extraction runs of a dialog",
	Long: `Lists the runs saved with output.save_results, oldest first. --topics
renders each run's topics the way extract prints them.`,
	Args: cobra.NoArgs,
	RunE: runRuns,
}

func init() {
	runsCmd.Flags().Int64Var(&runsDialogID, "dialog", 0, "dialog ID (required)")
	runsCmd.Flags().BoolVar(&runsShowTopics, "topics", false, "print topics of every run")
	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, _ []string) error {
	if runsDialogID == 0 {
		return errors.New("--dialog required")
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	saved, err := st.GetRuns(ctx, runsDialogID)
	if err != nil {
		return err
	}
	if len(saved) == 0 {
		cmd.Println("No runs found.")
		return nil
	}

	for _, r := range saved {
		res, err := runs.Result(r)
		if err != nil {
			return err
		}
		cmd.Printf("%s\t%s\t%s %s\n", r.ID, r.CreatedAt.UTC().Format("2006-01-02 15:04:05"), r.Engine, res.Params)
		if runsShowTopics {
			if err := analytics.WriteTopics(cmd.OutOrStdout(), res); err != nil {
				return err
			}
		}
	}
	return nil
}
