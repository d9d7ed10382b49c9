package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"review_inbox/internal/shared"
)

func testConfig() shared.Config {
	return shared.Config{AliasPrefix: "avis-", InboundDomain: "reviews.example"}
}

func TestRun_CreateWithCustomAlias(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO establishments`).
		WithArgs(sqlmock.AnyArg(), "T1", "chez-paul", "Chez Paul", nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	var out bytes.Buffer
	err = run(context.Background(), db, testConfig(), "create",
		[]string{"-tenant", "T1", "-name", "Chez Paul", "-alias", "Chez-Paul"}, &out)
	require.NoError(t, err)

	var got map[string]string
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "chez-paul", got["alias"])
	assert.Equal(t, "chez-paul@reviews.example", got["address"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRun_Triage(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	cols := []string{"id", "tenant_id", "establishment_id", "source", "rating", "text", "author", "dedup_key", "raw_capture", "review_date", "created_at"}
	mock.ExpectQuery(`FROM reviews`).
		WithArgs("T1", "raw-fallback", 10).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("r1", "T1", "e1", "raw-fallback", nil, "[unparsed] New review", nil, "m1", "body here", nil, now))

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), db, testConfig(), "triage", []string{"-tenant", "T1", "-limit", "10"}, &out))

	var rows []triageRow
	require.NoError(t, json.Unmarshal(out.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "body here", rows[0].RawCapture)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRun_Validation(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	var out bytes.Buffer
	assert.Error(t, run(context.Background(), db, testConfig(), "create", []string{"-name", "x"}, &out))
	assert.Error(t, run(context.Background(), db, testConfig(), "triage", nil, &out))
	assert.Error(t, run(context.Background(), db, testConfig(), "nope", nil, &out))
}
