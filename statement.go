package main

import (
	"strconv"
	"strings"

	"github.com/thara-playground/lightdb/table"
)

type StatementType int

const (
	StatementInsert StatementType = iota
	StatementSelect
)

type Statement struct {
	Type        StatementType
	RowToInsert table.Row
}

type PrepareResult int

const (
	PrepareSuccess PrepareResult = iota
	PrepareUnrecognizedStatement
	PrepareSyntaxError
	PrepareNegativeID
	PrepareStringTooLong
)

// PrepareStatement parses one line of input into a Statement, or reports
// why it couldn't.
func PrepareStatement(input string) (Statement, PrepareResult) {
	if strings.HasPrefix(input, "insert") {
		return prepareInsert(input)
	}
	if input == "select" {
		return Statement{Type: StatementSelect}, PrepareSuccess
	}
	return Statement{}, PrepareUnrecognizedStatement
}

func prepareInsert(input string) (Statement, PrepareResult) {
	fields := strings.Fields(input)
	if len(fields) != 4 {
		return Statement{}, PrepareSyntaxError
	}

	id, err := strconv.Atoi(fields[1])
	if err != nil {
		return Statement{}, PrepareSyntaxError
	}
	if id < 0 {
		return Statement{}, PrepareNegativeID
	}

	username, email := fields[2], fields[3]
	if len(username) > table.MaxUsernameLen || len(email) > table.MaxEmailLen {
		return Statement{}, PrepareStringTooLong
	}

	return Statement{
		Type: StatementInsert,
		RowToInsert: table.Row{
			ID:       uint32(id),
			Username: username,
			Email:    email,
		},
	}, PrepareSuccess
}
