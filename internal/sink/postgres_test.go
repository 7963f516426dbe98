package sink

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/moviegraph-crawler/internal/graph"
)

func expectSchema(mock pgxmock.PgxPoolIface, mode Mode) {
	mock.ExpectBegin()
	for _, stmt := range postgresDialect.schemaStatements(mode) {
		mock.ExpectExec(regexp.QuoteMeta(stmt)).WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	}
	mock.ExpectCommit()
}

func TestPostgresSinkWritesBatchInTransaction(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	expectSchema(mock, ModeFresh)
	s, err := NewPostgresSinkWithPool(context.Background(), mock, ModeFresh)
	require.NoError(t, err)

	born := time.Date(1937, time.July, 17, 0, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "People"`).
		WithArgs(1, "https://www.filmweb.pl/person/Stanislaw-Tym-1", "Stanisław Tym", born, nil, nil).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO "Roles" .* ON CONFLICT DO NOTHING`).
		WithArgs(1, 1, 2, nil).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectCommit()

	err = s.Write(context.Background(), []graph.Record{
		graph.Person{ID: 1, URL: "https://www.filmweb.pl/person/Stanislaw-Tym-1", FullName: str("Stanisław Tym"), BirthDate: &born},
		graph.Role{ID: 1, PersonProfessionID: 1, MovieID: 2},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSinkRollsBackOnError(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	expectSchema(mock, ModeAppend)
	s, err := NewPostgresSinkWithPool(context.Background(), mock, ModeAppend)
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "Professions"`).
		WithArgs(1, "aktor").
		WillReturnError(errors.New("unique violation"))
	mock.ExpectRollback()

	err = s.Write(context.Background(), []graph.Record{graph.Profession{ID: 1, Name: "aktor"}})
	require.ErrorContains(t, err, "unique violation")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSinkSchemaFailure(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("DROP TABLE").WillReturnError(errors.New("permission denied"))
	mock.ExpectRollback()

	_, err = NewPostgresSinkWithPool(context.Background(), mock, ModeFresh)
	require.ErrorContains(t, err, "permission denied")
	require.NoError(t, mock.ExpectationsWereMet())

	_, err = NewPostgresSink(context.Background(), PostgresConfig{}, ModeFresh)
	require.Error(t, err)
}
