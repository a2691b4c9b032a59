package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/go-dao/internal/ui"
	"github.com/satishbabariya/go-dao/query"
	"github.com/satishbabariya/go-dao/query/filter"
)

var queryCmd = &cobra.Command{
	Use:   "query [filter]",
	Short: "List notes matching a filter",
	Long: `List notes matching a filter expression, for example:

    daocore query 'text like "milk%" and (date > 1700000000000 or id = 3)'

Names refer to note properties (id, text, date). Without a filter every note
is listed, newest first.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runQuery,
}

var (
	queryLimit  int
	queryOffset int
	queryCount  bool
)

func init() {
	queryCmd.Flags().IntVarP(&queryLimit, "limit", "l", 20, "maximum number of notes")
	queryCmd.Flags().IntVar(&queryOffset, "offset", 0, "notes to skip")
	queryCmd.Flags().BoolVar(&queryCount, "count", false, "only print the number of matching notes")

	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
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

	b := query.NewBuilder(notes)
	if len(args) == 1 && strings.TrimSpace(args[0]) != "" {
		cond, err := filter.Compile(args[0], notes.Properties())
		if err != nil {
			return err
		}
		b.Where(cond)
	}

	if queryCount {
		n, err := b.Count(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(ui.Out, n)
		return nil
	}

	b.OrderDesc(NoteDate).Limit(queryLimit)
	if queryOffset > 0 {
		b.Offset(queryOffset)
	}
	found, err := b.List(ctx)
	if err != nil {
		return err
	}
	if len(found) == 0 {
		ui.PrintWarning("No notes found")
		return nil
	}

	rows := make([][]string, len(found))
	for i, n := range found {
		rows[i] = []string{
			fmt.Sprint(n.ID),
			n.Text,
			time.UnixMilli(n.Date).Format(time.RFC3339),
		}
	}
	return ui.PrintTable([]string{"ID", "Text", "Date"}, rows)
}
