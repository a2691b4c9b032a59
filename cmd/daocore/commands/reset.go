package commands

import (
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/satishbabariya/go-dao/internal/ui"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Drop the notes table",
	Long: `Drop the notes table so the next bench run seeds it again.

You are asked for confirmation unless --yes is given.`,
	Args: cobra.NoArgs,
	RunE: runReset,
}

var resetYes bool

func init() {
	resetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "skip the confirmation prompt")

	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) error {
	if !resetYes {
		confirmed := false
		prompt := &survey.Confirm{
			Message: fmt.Sprintf("Drop table %s from %s?", noteTable, cfg.DatabaseURL),
		}
		if err := survey.AskOne(prompt, &confirmed); err != nil {
			return err
		}
		if !confirmed {
			ui.PrintWarning("Reset cancelled")
			return nil
		}
	}

	ctx := cmd.Context()
	db, err := openDatabase(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	notes, err := newNoteDao(db)
	if err != nil {
		return err
	}
	if err := notes.DropTable(ctx, true); err != nil {
		return err
	}
	ui.PrintSuccess("Dropped table %s", noteTable)
	return nil
}
