package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/thara-playground/lightdb/table"
)

type MetaCommandResult int

const (
	MetaCommandSuccess MetaCommandResult = iota
	MetaCommandUnrecognizedCommand
)

// REPL reads one line at a time, dispatches meta-commands and SQL-ish
// statements against a table, and prints the result.
type REPL struct {
	tree *table.BTree
	log  *logrus.Logger
	rl   *readline.Instance
}

func NewREPL(tree *table.BTree, log *logrus.Logger) (*REPL, error) {
	rl, err := readline.New("db > ")
	if err != nil {
		return nil, errors.Wrap(err, "repl: init readline")
	}
	return &REPL{tree: tree, log: log, rl: rl}, nil
}

func (r *REPL) Close() error {
	return r.rl.Close()
}

// Run loops until the input stream ends or the user issues `.exit`. Each
// session gets a correlation id purely for log lines; nothing in the
// storage format depends on it.
func (r *REPL) Run() error {
	sessionID := uuid.New()
	r.log.WithField("session", sessionID).Info("repl: session started")

	for {
		line, err := r.rl.Readline()
		if errors.Is(err, io.EOF) || errors.Is(err, readline.ErrInterrupt) {
			return errors.Wrap(r.tree.Pager.Close(), "repl: close pager")
		}
		if err != nil {
			return errors.Wrap(err, "repl: readline")
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, ".") {
			if r.doMetaCommand(line) == MetaCommandUnrecognizedCommand {
				fmt.Printf("Unrecognized command '%s'\n", line)
			}
			continue
		}

		stmt, result := PrepareStatement(line)
		switch result {
		case PrepareSuccess:
			r.executeStatement(stmt)
		case PrepareNegativeID:
			fmt.Println("ID must be positive.")
		case PrepareStringTooLong:
			fmt.Println("String is too long.")
		case PrepareSyntaxError:
			fmt.Println("Syntax error. Could not parse statement.")
		case PrepareUnrecognizedStatement:
			fmt.Printf("Unrecognized keyword at start of '%s'.\n", line)
		}
	}
}

func (r *REPL) doMetaCommand(line string) MetaCommandResult {
	switch line {
	case ".exit":
		if err := r.tree.Pager.Close(); err != nil {
			r.log.WithError(err).Fatal("repl: close pager")
		}
		os.Exit(0)
		return MetaCommandSuccess
	case ".constants":
		fmt.Println("Constants:")
		for _, c := range table.Constants() {
			fmt.Printf("%s: %d\n", c.Name, c.Value)
		}
		return MetaCommandSuccess
	case ".btree":
		fmt.Println("Tree:")
		if err := r.tree.Walk(printTreeEvent); err != nil {
			r.log.WithError(err).Error("repl: walk tree failed")
			os.Exit(1)
		}
		return MetaCommandSuccess
	}
	return MetaCommandUnrecognizedCommand
}

func printTreeEvent(e table.TreeEvent) {
	indent := strings.Repeat("  ", e.Indent)
	switch e.Kind {
	case "leaf":
		fmt.Printf("%s- leaf (size %d)\n", indent, e.Count)
	case "internal":
		fmt.Printf("%s- internal (size %d)\n", indent, e.Count)
	case "key":
		fmt.Printf("%s- %d\n", indent, e.Key)
	}
}

func (r *REPL) executeStatement(stmt Statement) {
	switch stmt.Type {
	case StatementInsert:
		r.executeInsert(stmt)
	case StatementSelect:
		r.executeSelect()
	}
}

func (r *REPL) executeInsert(stmt Statement) {
	row := stmt.RowToInsert
	if err := r.tree.Insert(row.ID, row); err != nil {
		if errors.Is(err, table.ErrDuplicateKey) {
			fmt.Println("Error: Duplicate key.")
			return
		}
		if errors.Is(err, table.ErrTableFull) {
			fmt.Println("Error: Table full.")
			return
		}
		r.log.WithError(err).Error("repl: insert failed")
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Executed.")
}

func (r *REPL) executeSelect() {
	cur, err := r.tree.Start()
	if err != nil {
		r.log.WithError(err).Error("repl: select failed")
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	for !cur.EndOfTable {
		buf, err := cur.Value()
		if err != nil {
			r.log.WithError(err).Error("repl: read row failed")
			os.Exit(1)
		}
		row, err := table.Deserialize(buf)
		if err != nil {
			r.log.WithError(err).Error("repl: deserialize row failed")
			os.Exit(1)
		}
		fmt.Printf("(%d, %s, %s)\n", row.ID, row.Username, row.Email)

		if err := cur.Advance(); err != nil {
			r.log.WithError(err).Error("repl: advance cursor failed")
			os.Exit(1)
		}
	}
	fmt.Println("Executed.")
}
