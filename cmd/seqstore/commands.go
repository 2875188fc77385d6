package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/mtln/seqstore/internal/fasta"
)

var errHeaderRequired = errors.New("header is required")

// closeSession folds the session close into the command result without
// masking an earlier error.
func closeSession(s interface{ Close() error }, err error) error {
	return errors.Join(err, s.Close())
}

func (a *app) cmdLs(args []string) error {
	flags := flag.NewFlagSet("ls", flag.ContinueOnError)
	flags.SetOutput(a.stderr)
	long := flags.BoolP("long", "l", false, "show sequence lengths")

	err := flags.Parse(args)
	if err != nil {
		return err
	}

	session, err := a.open()
	if err != nil {
		return err
	}

	if !*long {
		headers, err := session.Headers()
		if err != nil {
			return closeSession(session, err)
		}

		for _, header := range headers {
			fmt.Fprintln(a.stdout, header)
		}

		return session.Close()
	}

	for rec, err := range session.Items() {
		if err != nil {
			return closeSession(session, err)
		}

		fmt.Fprintf(a.stdout, "%-40s %d\n", rec.Header, len(rec.Sequence))
	}

	return session.Close()
}

func (a *app) cmdGet(args []string) error {
	if len(args) != 1 {
		return errHeaderRequired
	}

	session, err := a.open()
	if err != nil {
		return err
	}

	seq, err := session.Get(args[0])
	if err != nil {
		return closeSession(session, err)
	}

	err = fasta.Write(a.stdout, fasta.Record{Header: args[0], Sequence: seq}, a.cfg.Wrap)

	return closeSession(session, err)
}

func (a *app) cmdSet(args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return errors.New("usage: set <header> [sequence]")
	}

	var sequence string

	if len(args) == 2 {
		sequence = args[1]
	} else {
		data, err := io.ReadAll(a.stdin)
		if err != nil {
			return fmt.Errorf("reading sequence from stdin: %w", err)
		}

		sequence = strings.Join(strings.Fields(string(data)), "")
	}

	session, err := a.open()
	if err != nil {
		return err
	}

	err = session.Set(args[0], sequence)

	return closeSession(session, err)
}

func (a *app) cmdDel(args []string) error {
	if len(args) != 1 {
		return errHeaderRequired
	}

	session, err := a.open()
	if err != nil {
		return err
	}

	err = session.Delete(args[0])

	return closeSession(session, err)
}
