package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/mtln/seqstore"
	"github.com/mtln/seqstore/internal/fasta"
)

// shellCommands feeds the liner completer.
var shellCommands = []string{
	"get", "set", "del", "ls", "has", "commit", "dirty", "help", "quit", "exit",
}

// historyFile returns the path to the shell history file.
func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".seqstore_history")
}

// cmdShell runs an interactive session. Edits accumulate in the one open
// session and follow the autocommit setting on exit; "commit" flushes
// explicitly at any point.
func (a *app) cmdShell() error {
	session, err := a.open()
	if err != nil {
		return err
	}

	line := liner.NewLiner()

	defer func() { _ = line.Close() }()

	line.SetCtrlCAborts(true)
	line.SetCompleter(func(prefix string) []string {
		var out []string

		for _, cmd := range shellCommands {
			if strings.HasPrefix(cmd, prefix) {
				out = append(out, cmd)
			}
		}

		return out
	})

	if f, err := os.Open(historyFile()); err == nil {
		_, _ = line.ReadHistory(f)
		_ = f.Close()
	}

	fmt.Fprintf(a.stdout, "seqstore shell - %s (%s)\n", a.cfg.Path, a.cfg.Format)
	fmt.Fprintln(a.stdout, "Type 'help' for available commands.")

	for {
		input, err := line.Prompt("seqstore> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Fprintln(a.stdout)

				break
			}

			return closeSession(session, fmt.Errorf("reading input: %w", err))
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		line.AppendHistory(input)

		parts := strings.Fields(input)
		cmd, args := strings.ToLower(parts[0]), parts[1:]

		if cmd == "quit" || cmd == "exit" || cmd == "q" {
			break
		}

		err = a.shellExec(session, cmd, args)
		if err != nil {
			fmt.Fprintln(a.stderr, "error:", err)
		}
	}

	a.saveHistory(line)

	return session.Close()
}

func (a *app) shellExec(session *seqstore.Session, cmd string, args []string) error {
	switch cmd {
	case "help", "?":
		a.printShellHelp()

		return nil
	case "get":
		if len(args) != 1 {
			return errHeaderRequired
		}

		seq, err := session.Get(args[0])
		if err != nil {
			return err
		}

		return fasta.Write(a.stdout, fasta.Record{Header: args[0], Sequence: seq}, a.cfg.Wrap)
	case "set":
		if len(args) != 2 {
			return errors.New("usage: set <header> <sequence>")
		}

		return session.Set(args[0], args[1])
	case "del", "delete":
		if len(args) != 1 {
			return errHeaderRequired
		}

		return session.Delete(args[0])
	case "has":
		if len(args) != 1 {
			return errHeaderRequired
		}

		ok, err := session.Contains(args[0])
		if err != nil {
			return err
		}

		fmt.Fprintln(a.stdout, ok)

		return nil
	case "ls", "list":
		headers, err := session.Headers()
		if err != nil {
			return err
		}

		for _, header := range headers {
			fmt.Fprintln(a.stdout, header)
		}

		return nil
	case "commit":
		return session.Commit()
	case "dirty":
		fmt.Fprintln(a.stdout, session.Dirty())

		return nil
	default:
		return fmt.Errorf("unknown command %q (try 'help')", cmd)
	}
}

func (a *app) printShellHelp() {
	fmt.Fprintln(a.stdout, "Commands:")
	fmt.Fprintln(a.stdout, "  get <header>            Print one record as FASTA")
	fmt.Fprintln(a.stdout, "  set <header> <seq>      Insert or update a record")
	fmt.Fprintln(a.stdout, "  del <header>            Delete a record")
	fmt.Fprintln(a.stdout, "  has <header>            Membership test")
	fmt.Fprintln(a.stdout, "  ls                      List headers")
	fmt.Fprintln(a.stdout, "  commit                  Write pending edits now")
	fmt.Fprintln(a.stdout, "  dirty                   Show whether edits are pending")
	fmt.Fprintln(a.stdout, "  quit                    Exit (commits unless --no-autocommit)")
}

func (a *app) saveHistory(line *liner.State) {
	path := historyFile()
	if path == "" {
		return
	}

	f, err := os.Create(path) //nolint:gosec // path is under the user home
	if err != nil {
		return
	}

	defer func() { _ = f.Close() }()

	_, _ = line.WriteHistory(f)
}
