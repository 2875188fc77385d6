// seqstore is a command line front end for sequence storages.
//
// Usage:
//
//	seqstore [global flags] <command> [args]
//
// Commands:
//
//	ls                 List headers
//	get <header>       Print one record as FASTA
//	set <header> [seq] Insert or update a record (sequence from arg or stdin)
//	del <header>       Delete a record
//	shell              Interactive session (edits commit on exit)
//
// The storage is selected with --path and --format; there is no format
// auto-detection. Defaults come from .seqstore.json (JSONC) in the working
// directory or the user config directory.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/mtln/seqstore"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// app carries the resolved configuration and I/O streams for one
// invocation.
type app struct {
	cfg        Config
	autocommit bool
	logger     *slog.Logger
	stdin      io.Reader
	stdout     io.Writer
	stderr     io.Writer
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("seqstore", flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.SetInterspersed(false)

	var (
		configPath   = flags.String("config", "", "explicit config file")
		path         = flags.String("path", "", "storage path (file or directory)")
		format       = flags.String("format", "", "storage format: fasta, tar, folder")
		wrap         = flags.Int("wrap", 0, "fold sequence lines at this column on write")
		compression  = flags.String("compression", "", "tar compression: gz, bz2, xz, zst")
		glob         = flags.String("glob", "", "record file glob for folder storages")
		cacheSize    = flags.Int("cache-size", 0, "read cache bound (records)")
		noAutocommit = flags.Bool("no-autocommit", false, "discard edits instead of committing on exit")
		verbose      = flags.BoolP("verbose", "v", false, "debug logging to stderr")
	)

	err := flags.Parse(args)
	if err != nil {
		if err == flag.ErrHelp {
			printUsage(stdout, flags)

			return 0
		}

		return 1
	}

	rest := flags.Args()
	if len(rest) == 0 {
		printUsage(stdout, flags)

		return 0
	}

	logger := slog.New(slog.DiscardHandler)
	if *verbose {
		logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	workDir, err := os.Getwd()
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)

		return 1
	}

	cfg, err := LoadConfig(workDir, *configPath)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)

		return 1
	}

	// Flag overrides beat every config file. mergeConfig cannot tell an
	// unset flag from one explicitly set to its zero value, so each
	// changed flag wins unconditionally; --wrap 0 or --compression ""
	// must be able to clear a config file setting.
	if flags.Changed("path") {
		cfg.Path = *path
	}

	if flags.Changed("format") {
		cfg.Format = *format
	}

	if flags.Changed("wrap") {
		cfg.Wrap = *wrap
	}

	if flags.Changed("compression") {
		cfg.Compression = *compression
	}

	if flags.Changed("glob") {
		cfg.Glob = *glob
	}

	if flags.Changed("cache-size") {
		cfg.CacheSize = *cacheSize
	}

	err = validateConfig(cfg)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)

		return 1
	}

	a := &app{
		cfg:        cfg,
		autocommit: !*noAutocommit,
		logger:     logger,
		stdin:      stdin,
		stdout:     stdout,
		stderr:     stderr,
	}

	return a.dispatch(rest[0], rest[1:])
}

func (a *app) dispatch(name string, args []string) int {
	var err error

	switch name {
	case "ls":
		err = a.cmdLs(args)
	case "get":
		err = a.cmdGet(args)
	case "set":
		err = a.cmdSet(args)
	case "del", "delete":
		err = a.cmdDel(args)
	case "shell":
		err = a.cmdShell()
	case "help":
		printUsage(a.stdout, nil)
	default:
		fmt.Fprintf(a.stderr, "error: unknown command %q\n", name)

		return 1
	}

	if err != nil {
		fmt.Fprintln(a.stderr, "error:", err)

		return 1
	}

	return 0
}

// codec builds the storage codec selected by the configuration.
func (a *app) codec() (seqstore.Codec, error) {
	switch strings.ToLower(a.cfg.Format) {
	case "fasta":
		return seqstore.FastaCodec{Wrap: a.cfg.Wrap, Logger: a.logger}, nil
	case "tar":
		return seqstore.TarCodec{
			Compression: a.cfg.Compression,
			Wrap:        a.cfg.Wrap,
			Logger:      a.logger,
		}, nil
	case "folder":
		return seqstore.FolderCodec{Glob: a.cfg.Glob, Wrap: a.cfg.Wrap, Logger: a.logger}, nil
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownFormat, a.cfg.Format)
	}
}

// open starts the session every command runs inside.
func (a *app) open() (*seqstore.Session, error) {
	codec, err := a.codec()
	if err != nil {
		return nil, err
	}

	return seqstore.Open(a.cfg.Path, codec, seqstore.Options{
		CacheSize:  a.cfg.CacheSize,
		Autocommit: a.autocommit,
		Logger:     a.logger,
	})
}

func printUsage(w io.Writer, flags *flag.FlagSet) {
	fmt.Fprintln(w, "Usage: seqstore [flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  ls                   List headers (-l adds sequence lengths)")
	fmt.Fprintln(w, "  get <header>         Print one record as FASTA")
	fmt.Fprintln(w, "  set <header> [seq]   Insert or update a record (stdin when seq omitted)")
	fmt.Fprintln(w, "  del <header>         Delete a record")
	fmt.Fprintln(w, "  shell                Interactive session")
	fmt.Fprintln(w, "  help                 Show this help")

	if flags != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Flags:")

		var buf strings.Builder

		flags.SetOutput(&buf)
		flags.PrintDefaults()
		fmt.Fprint(w, buf.String())
	}
}
