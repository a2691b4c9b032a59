package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/satishbabariya/go-dao/dao"
)

// Note is the entity the CLI benchmarks and queries against.
type Note struct {
	ID   int64  `db:"_id"`
	Text string `db:"TEXT"`
	Date int64  `db:"DATE"`
}

var (
	NoteID   = dao.Property{Ordinal: 0, Name: "ID", Column: "_id", Type: "INTEGER", PrimaryKey: true, AutoIncrement: true}
	NoteText = dao.Property{Ordinal: 1, Name: "Text", Column: "TEXT", Type: "TEXT", NotNull: true}
	NoteDate = dao.Property{Ordinal: 2, Name: "Date", Column: "DATE", Type: "INTEGER"}
)

const noteTable = "NOTE"

func newNoteDao(db *dao.Database) (*dao.Dao[Note], error) {
	return dao.New(db, dao.Config[Note]{
		Table:      noteTable,
		Properties: []dao.Property{NoteID, NoteText, NoteDate},
		Values: func(n *Note) []any {
			return []any{n.ID, n.Text, n.Date}
		},
		Key:    func(n *Note) any { return n.ID },
		SetKey: func(n *Note, key int64) { n.ID = key },
	})
}

var noteWords = []string{"milk", "bread", "meeting", "invoice", "call", "trip", "gift", "repair"}

// seedNotes inserts count notes when the table is empty. It returns the
// number of rows present afterwards.
func seedNotes(ctx context.Context, notes *dao.Dao[Note], count int) (int64, error) {
	existing, err := notes.Count(ctx)
	if err != nil {
		return 0, err
	}
	if existing > 0 {
		return existing, nil
	}

	now := time.Now()
	batch := make([]*Note, count)
	for i := range batch {
		batch[i] = &Note{
			Text: fmt.Sprintf("%s #%d", noteWords[i%len(noteWords)], i),
			Date: now.Add(-time.Duration(i) * time.Minute).UnixMilli(),
		}
	}
	if err := notes.InsertAll(ctx, batch); err != nil {
		return 0, err
	}
	return int64(count), nil
}
