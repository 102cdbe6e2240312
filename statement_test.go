package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/thara-playground/lightdb/table"
)

func TestPrepareStatementSelect(t *testing.T) {
	stmt, result := PrepareStatement("select")
	require.Equal(t, PrepareSuccess, result)
	require.Equal(t, StatementSelect, stmt.Type)
}

func TestPrepareStatementInsert(t *testing.T) {
	stmt, result := PrepareStatement("insert 1 alice alice@example.com")
	require.Equal(t, PrepareSuccess, result)
	require.Equal(t, StatementInsert, stmt.Type)
	require.Equal(t, table.Row{ID: 1, Username: "alice", Email: "alice@example.com"}, stmt.RowToInsert)
}

func TestPrepareStatementInsertNegativeID(t *testing.T) {
	_, result := PrepareStatement("insert -1 alice alice@example.com")
	require.Equal(t, PrepareNegativeID, result)
}

func TestPrepareStatementInsertStringTooLong(t *testing.T) {
	longUsername := strings.Repeat("a", table.MaxUsernameLen+1)
	_, result := PrepareStatement("insert 1 " + longUsername + " alice@example.com")
	require.Equal(t, PrepareStringTooLong, result)
}

func TestPrepareStatementInsertSyntaxError(t *testing.T) {
	_, result := PrepareStatement("insert 1 alice")
	require.Equal(t, PrepareSyntaxError, result)
}

func TestPrepareStatementUnrecognized(t *testing.T) {
	_, result := PrepareStatement("frobnicate")
	require.Equal(t, PrepareUnrecognizedStatement, result)
}
