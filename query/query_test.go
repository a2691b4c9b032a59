package query

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/go-dao/dao"
)

type note struct {
	ID   int64  `db:"ID"`
	Text string `db:"TEXT"`
	Date int64  `db:"DATE"`
}

var (
	noteID   = dao.Property{Ordinal: 0, Name: "ID", Column: "ID", Type: "INTEGER", PrimaryKey: true, AutoIncrement: true}
	noteText = dao.Property{Ordinal: 1, Name: "Text", Column: "TEXT", Type: "TEXT"}
	noteDate = dao.Property{Ordinal: 2, Name: "Date", Column: "DATE", Type: "INTEGER"}
)

const selectNotes = `SELECT T."ID",T."TEXT",T."DATE" FROM "NOTE" T`

func newNoteDao(t *testing.T, driver string) (*dao.Dao[note], sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	db, err := dao.NewDatabase(sqlx.NewDb(mockDB, driver), "sqlite")
	require.NoError(t, err)

	d, err := dao.New(db, dao.Config[note]{
		Table:      "NOTE",
		Properties: []dao.Property{noteID, noteText, noteDate},
		Values:     func(n *note) []any { return []any{n.ID, n.Text, n.Date} },
		Key:        func(n *note) any { return n.ID },
		SetKey:     func(n *note, key int64) { n.ID = key },
	})
	require.NoError(t, err)
	return d, mock
}

func noteRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"ID", "TEXT", "DATE"})
}

func TestBuilder_SelectSQL(t *testing.T) {
	d, _ := newNoteDao(t, "sqlite3")

	q, err := NewBuilder(d).
		Where(Eq(noteText, "hello")).
		OrderAsc(noteDate).
		OrderDesc(noteID).
		Limit(10).
		Offset(20).
		Build()
	require.NoError(t, err)

	assert.Equal(t, selectNotes+` WHERE T."TEXT" = ? ORDER BY T."DATE" ASC,T."ID" DESC LIMIT ? OFFSET ?`, q.SQL())
	assert.Equal(t, []string{"hello", "10", "20"}, q.Parameters())
}

func TestBuilder_PostgresPlaceholders(t *testing.T) {
	d, _ := newNoteDao(t, "postgres")

	q, err := NewBuilder(d).Where(Eq(noteText, "a"), Gt(noteDate, 3)).Limit(5).Build()
	require.NoError(t, err)
	assert.Equal(t, selectNotes+` WHERE T."TEXT" = $1 AND T."DATE" > $2 LIMIT $3`, q.SQL())
}

func TestBuilder_CombinedConditions(t *testing.T) {
	d, _ := newNoteDao(t, "sqlite3")

	q, err := NewBuilder(d).
		Where(Or(Eq(noteText, "a"), And(Gt(noteDate, 1), Lt(noteDate, 5)))).
		Where(In(noteID, 1, 2, 3), IsNotNull(noteText)).
		WhereOr(Like(noteText, "%x%"), Between(noteDate, 7, 9), IsNull(noteDate)).
		Where(Raw(`T."DATE" <> ?`, 4)).
		Distinct().
		Build()
	require.NoError(t, err)

	want := `SELECT DISTINCT T."ID",T."TEXT",T."DATE" FROM "NOTE" T WHERE ` +
		`(T."TEXT" = ? OR (T."DATE" > ? AND T."DATE" < ?)) AND T."ID" IN (?,?,?) AND T."TEXT" IS NOT NULL AND ` +
		`(T."TEXT" LIKE ? OR T."DATE" BETWEEN ? AND ? OR T."DATE" IS NULL) AND T."DATE" <> ?`
	assert.Equal(t, want, q.SQL())
	assert.Equal(t, []string{"a", "1", "5", "1", "2", "3", "%x%", "7", "9", "4"}, q.Parameters())
}

func TestBuilder_Errors(t *testing.T) {
	d, _ := newNoteDao(t, "sqlite3")

	_, err := NewBuilder(d).Offset(5).Build()
	assert.ErrorIs(t, err, ErrOffsetWithoutLimit)

	_, err = NewBuilder(d).Where(In(noteID)).Build()
	assert.ErrorIs(t, err, ErrEmptyIn)

	_, err = NewBuilder(d).Where(NotIn(noteID)).BuildCount()
	assert.ErrorIs(t, err, ErrEmptyIn)

	_, err = NewBuilder(d).OrderAsc(noteDate).BuildDelete()
	assert.ErrorIs(t, err, ErrDeleteOrdering)
}

func TestQuery_ListReusesPreparedStatement(t *testing.T) {
	d, mock := newNoteDao(t, "sqlite3")
	sql := selectNotes + ` WHERE T."TEXT" = ?`
	mock.ExpectPrepare(sql)
	mock.ExpectQuery(sql).WithArgs("hello").
		WillReturnRows(noteRows().AddRow(int64(1), "hello", int64(5)))
	mock.ExpectQuery(sql).WithArgs("bye").
		WillReturnRows(noteRows().AddRow(int64(2), "bye", int64(6)).AddRow(int64(3), "bye", int64(7)))

	ctx := context.Background()
	q, err := NewBuilder(d).Where(Eq(noteText, "hello")).Build()
	require.NoError(t, err)

	first, err := q.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []note{{ID: 1, Text: "hello", Date: 5}}, first)

	again, err := q.ForCurrentGoroutine()
	require.NoError(t, err)
	assert.Same(t, q, again)
	require.NoError(t, again.SetParameter(0, "bye"))

	second, err := again.List(ctx)
	require.NoError(t, err)
	assert.Len(t, second, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuery_ForCurrentGoroutineResetsParameters(t *testing.T) {
	d, _ := newNoteDao(t, "sqlite3")

	q, err := NewBuilder(d).Where(Eq(noteText, "A"), Eq(noteDate, "B")).Build()
	require.NoError(t, err)
	require.NoError(t, q.SetParameter(0, "X"))
	require.NoError(t, q.SetParameter(1, "Y"))
	assert.Equal(t, []string{"X", "Y"}, q.Parameters())

	again, err := q.ForCurrentGoroutine()
	require.NoError(t, err)
	assert.Same(t, q, again)
	assert.Equal(t, []string{"A", "B"}, again.Parameters())
	assert.Equal(t, uint64(1), q.Stats().FastPath)
}

func TestQuery_OtherGoroutineGetsOwnInstance(t *testing.T) {
	d, _ := newNoteDao(t, "sqlite3")

	q, err := NewBuilder(d).Where(Eq(noteText, "A")).Build()
	require.NoError(t, err)
	require.NoError(t, q.SetParameter(0, "mine"))

	var (
		theirs      *Query[note]
		setErr      error
		listErr     error
		acquireErr  error
		theirParams []string
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		setErr = q.SetParameter(0, "stolen")
		_, listErr = q.List(context.Background())

		theirs, acquireErr = q.ForCurrentGoroutine()
		if acquireErr == nil {
			theirParams = append([]string(nil), theirs.Parameters()...)
		}
	}()
	<-done

	assert.ErrorIs(t, setErr, ErrWrongGoroutine)
	assert.ErrorIs(t, listErr, ErrWrongGoroutine)
	require.NoError(t, acquireErr)
	assert.NotSame(t, q, theirs)
	assert.Equal(t, []string{"A"}, theirParams)
	assert.Equal(t, []string{"mine"}, q.Parameters())
}

func TestQuery_LimitAndOffset(t *testing.T) {
	d, _ := newNoteDao(t, "sqlite3")

	q, err := NewBuilder(d).Where(Eq(noteText, "a")).Limit(10).Offset(5).Build()
	require.NoError(t, err)

	require.NoError(t, q.SetLimit(50))
	require.NoError(t, q.SetOffset(100))
	assert.Equal(t, []string{"a", "50", "100"}, q.Parameters())

	assert.ErrorIs(t, q.SetParameter(1, "x"), ErrIllegalParameter)
	assert.ErrorIs(t, q.SetParameter(2, "x"), ErrIllegalParameter)
	assert.ErrorIs(t, q.SetParameter(3, "x"), ErrIllegalParameter)
	assert.ErrorIs(t, q.SetParameter(-1, "x"), ErrIllegalParameter)

	plain, err := NewBuilder(d).Build()
	require.NoError(t, err)
	assert.ErrorIs(t, plain.SetLimit(1), ErrNoLimit)
	assert.ErrorIs(t, plain.SetOffset(1), ErrNoOffset)
}

func TestQuery_Unique(t *testing.T) {
	d, mock := newNoteDao(t, "sqlite3")
	sql := selectNotes + ` WHERE T."ID" = ?`
	mock.ExpectPrepare(sql)
	mock.ExpectQuery(sql).WithArgs("1").WillReturnRows(noteRows().AddRow(int64(1), "a", int64(1)))
	mock.ExpectQuery(sql).WithArgs("2").WillReturnRows(noteRows())
	mock.ExpectQuery(sql).WithArgs("3").WillReturnRows(noteRows())
	mock.ExpectQuery(sql).WithArgs("4").
		WillReturnRows(noteRows().AddRow(int64(4), "a", int64(1)).AddRow(int64(4), "b", int64(2)))

	ctx := context.Background()
	q, err := NewBuilder(d).Where(Eq(noteID, 1)).Build()
	require.NoError(t, err)

	found, err := q.Unique(ctx)
	require.NoError(t, err)
	assert.Equal(t, &note{ID: 1, Text: "a", Date: 1}, found)

	require.NoError(t, q.SetParameter(0, 2))
	missing, err := q.Unique(ctx)
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, q.SetParameter(0, 3))
	_, err = q.UniqueOrError(ctx)
	assert.ErrorIs(t, err, ErrNoEntity)

	require.NoError(t, q.SetParameter(0, 4))
	_, err = q.Unique(ctx)
	assert.ErrorIs(t, err, ErrNotUnique)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountQuery(t *testing.T) {
	d, mock := newNoteDao(t, "sqlite3")
	sql := `SELECT COUNT(*) FROM "NOTE" T WHERE T."DATE" > ?`
	mock.ExpectPrepare(sql)
	mock.ExpectQuery(sql).WithArgs("3").
		WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(int64(12)))

	q, err := NewBuilder(d).Where(Gt(noteDate, 3)).OrderAsc(noteDate).Limit(1).BuildCount()
	require.NoError(t, err)
	assert.Equal(t, sql, q.SQL())

	n, err := q.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(12), n)

	again, err := q.ForCurrentGoroutine()
	require.NoError(t, err)
	assert.Same(t, q, again)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteQuery(t *testing.T) {
	d, mock := newNoteDao(t, "sqlite3")
	sql := `DELETE FROM "NOTE" WHERE "NOTE"."TEXT" LIKE ?`
	mock.ExpectPrepare(sql)
	mock.ExpectExec(sql).WithArgs("%old%").WillReturnResult(sqlmock.NewResult(0, 4))

	q, err := NewBuilder(d).Where(Like(noteText, "%old%")).BuildDelete()
	require.NoError(t, err)
	assert.Equal(t, sql, q.SQL())

	n, err := q.ExecuteDelete(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuery_RunsThroughMiddleware(t *testing.T) {
	d, mock := newNoteDao(t, "sqlite3")
	sql := selectNotes + ` WHERE T."TEXT" = ?`
	mock.ExpectPrepare(sql)
	mock.ExpectQuery(sql).WithArgs("a").WillReturnRows(noteRows())

	var seen []string
	d.Database().Use(func(ctx context.Context, event *dao.QueryEvent, next func() error) error {
		seen = append(seen, event.Query)
		return next()
	})

	_, err := NewBuilder(d).Where(Eq(noteText, "a")).List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{sql}, seen)
}

func TestBuild_ClosedDatabaseFailsInFactory(t *testing.T) {
	d, mock := newNoteDao(t, "sqlite3")
	mock.ExpectClose()
	require.NoError(t, d.Database().Close())

	_, err := NewBuilder(d).Build()
	assert.ErrorIs(t, err, dao.ErrClosed)
}

func TestBuilder_NilValueRejected(t *testing.T) {
	d, _ := newNoteDao(t, "sqlite3")

	_, err := NewBuilder(d).Where(Eq(noteText, nil)).Build()
	assert.ErrorIs(t, err, ErrNilValue)

	_, err = NewBuilder(d).Where(In(noteID, 1, nil)).BuildCount()
	assert.ErrorIs(t, err, ErrNilValue)

	q, err := NewBuilder(d).Where(IsNull(noteText)).Build()
	require.NoError(t, err)
	assert.Equal(t, selectNotes+` WHERE T."TEXT" IS NULL`, q.SQL())
}

// listOnce builds and runs a query without keeping the instance.
func listOnce(t *testing.T, d *dao.Dao[note]) {
	t.Helper()
	_, err := NewBuilder(d).Where(Eq(noteText, "gone")).List(context.Background())
	require.NoError(t, err)
}

func TestQuery_ReclaimClosesPreparedStatement(t *testing.T) {
	d, mock := newNoteDao(t, "sqlite3")
	sql := selectNotes + ` WHERE T."TEXT" = ?`
	mock.ExpectPrepare(sql).WillBeClosed()
	mock.ExpectQuery(sql).WithArgs("gone").WillReturnRows(noteRows())

	listOnce(t, d)

	// Cleanups run on their own goroutine after the collection.
	var err error
	for i := 0; i < 50; i++ {
		runtime.GC()
		time.Sleep(10 * time.Millisecond)
		if err = mock.ExpectationsWereMet(); err == nil {
			break
		}
	}
	assert.NoError(t, err)
}
