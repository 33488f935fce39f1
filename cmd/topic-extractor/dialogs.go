package main

import (
	"github.com/spf13/cobra"
)

var dialogsCmd = &cobra.Command{
	Use:   "dialogs",
	Short: "List stored dialogs",
	Args:  cobra.NoArgs,
	RunE:  runDialogs,
}

func init() {
	rootCmd.AddCommand(dialogsCmd)
}

func runDialogs(cmd *cobra.Command, _ []string) error {
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

	dialogs, err := st.GetDialogs(ctx)
	if err != nil {
		return err
	}
	if len(dialogs) == 0 {
		cmd.Println("No dialogs found.")
		return nil
	}
	for _, d := range dialogs {
		msgs, err := st.ReadMessages(ctx, d)
		if err != nil {
			return err
		}
		cmd.Printf("%d\t%s\t%d messages\n", d.ID, d.Name(), len(msgs))
	}
	return nil
}
