/*
File Name:  main.go

Command-line entry point. Deliberately thin: it owns exactly the
pieces the core names as external collaborators — flag parsing,
recursive file-list assembly, "orig:new" rename parsing, and progress
printing — and calls straight into the transfer package for
everything else. Built on urfave/cli/v2, the retrieval pack's
consistent answer for a Go CLI.
*/

package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/genonullfree/teleporter/config"
	"github.com/genonullfree/teleporter/ledger"
	"github.com/genonullfree/teleporter/statusapi"
	"github.com/genonullfree/teleporter/transfer"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "teleporter",
		Usage: "point-to-point encrypted, delta-aware file transfer",
		Commands: []*cli.Command{
			listenCommand(),
			sendCommand(),
			scanCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func listenCommand() *cli.Command {
	return &cli.Command{
		Name:  "listen",
		Usage: "accept incoming file transfers",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Value: 9001, Usage: "port to listen on"},
			&cli.BoolFlag{Name: "must-encrypt", Aliases: []string{"m"}, Usage: "require encryption for incoming connections"},
			&cli.BoolFlag{Name: "allow-dangerous-filepath", Usage: "allow absolute and relative file paths for transfers (dangerous)"},
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "path to YAML config file"},
			&cli.StringFlag{Name: "ledger", Usage: "path to the audit ledger database (empty falls back to the config's LedgerPath)"},
			&cli.StringFlag{Name: "status-addr", Usage: "address for the read-only status API (empty disables it)"},
		},
		Action: runListen,
	}
}

func runListen(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}

	listenPort := cfg.ListenPort
	if c.IsSet("port") {
		listenPort = c.Int("port")
	}

	opts := transfer.ListenOptions{
		Port:                   firstNonZeroInt(listenPort, 9001),
		MustEncrypt:            c.Bool("must-encrypt") || cfg.MustEncrypt,
		AllowDangerousFilepath: c.Bool("allow-dangerous-filepath") || cfg.AllowDangerousFilepath,
	}

	if opts.AllowDangerousFilepath {
		log.Println("Warning: --allow-dangerous-filepath is ENABLED. This is a potentially dangerous option, use at your own risk!")
	}

	ledgerPath := firstNonEmpty(c.String("ledger"), cfg.LedgerPath)
	var store ledger.Store
	if ledgerPath != "" {
		store, err = ledger.NewPogrebStore(ledgerPath)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	progress := &cliProgress{}
	receiver := transfer.NewReceiver(opts, transfer.Filters{}, progress)
	receiver.Ledger = store

	listener := transfer.NewListener(receiver)
	ln, err := listener.Listen(opts.Port)
	if err != nil {
		return fmt.Errorf("cannot bind to port %d. Is teleporter already running? %w", opts.Port, err)
	}
	defer ln.Close()

	fmt.Printf("Teleporter Server listening for connections on 0.0.0.0:%d\n", opts.Port)

	statusAddr := firstNonEmpty(c.String("status-addr"), cfg.StatusAddr)
	if statusAddr != "" {
		server := statusapi.NewServer(statusAddr, receiver.List, store)
		go func() {
			if err := server.ListenAndServe(); err != nil {
				log.Printf("status API stopped: %v", err)
			}
		}()
	}

	return listener.Serve(ln)
}

func sendCommand() *cli.Command {
	return &cli.Command{
		Name:  "send",
		Usage: "send one or more files to a listening peer",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "input", Aliases: []string{"i"}, Required: true, Usage: "file(s) to send; supports orig:new rename syntax"},
			&cli.StringFlag{Name: "dest", Aliases: []string{"d"}, Value: "localhost", Usage: "destination host"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Value: 9001, Usage: "destination port"},
			&cli.BoolFlag{Name: "overwrite", Aliases: []string{"o"}, Usage: "overwrite remote file"},
			&cli.BoolFlag{Name: "recursive", Aliases: []string{"r"}, Usage: "recurse into directories"},
			&cli.BoolFlag{Name: "encrypt", Aliases: []string{"e"}, Usage: "encrypt using ECDH key-exchange"},
			&cli.BoolFlag{Name: "no-delta", Aliases: []string{"n"}, Usage: "disable delta transfer"},
			&cli.BoolFlag{Name: "keep-path", Aliases: []string{"k"}, Usage: "recreate directory path on remote server"},
			&cli.BoolFlag{Name: "backup", Aliases: []string{"b"}, Usage: "back up the destination file to .bak before overwriting"},
			&cli.BoolFlag{Name: "filename-append", Aliases: []string{"f"}, Usage: "append .1, .2, ... instead of overwriting on collision"},
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "path to YAML config file"},
			&cli.StringFlag{Name: "ledger", Usage: "path to the audit ledger database (empty falls back to the config's LedgerPath)"},
		},
		Action: runSend,
	}
}

func runSend(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}

	files, err := buildFileList(c.StringSlice("input"), c.Bool("recursive"))
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no input files found")
	}

	destPort := cfg.DestPort
	if c.IsSet("port") {
		destPort = c.Int("port")
	}

	opts := transfer.SendOptions{
		Dest:      c.String("dest"),
		Port:      firstNonZeroInt(destPort, 9001),
		Files:     files,
		Overwrite: c.Bool("overwrite"),
		Encrypt:   c.Bool("encrypt"),
		NoDelta:   c.Bool("no-delta"),
		KeepPath:  c.Bool("keep-path"),
		Backup:    c.Bool("backup"),
		Rename:    c.Bool("filename-append"),
	}

	ledgerPath := firstNonEmpty(c.String("ledger"), cfg.LedgerPath)
	var store ledger.Store
	if ledgerPath != "" {
		store, err = ledger.NewPogrebStore(ledgerPath)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	progress := &cliProgress{}
	sender := transfer.NewSender(transfer.Filters{}, progress)
	sender.Ledger = store

	return sender.SendBatch(opts)
}

func scanCommand() *cli.Command {
	return &cli.Command{
		Name:  "scan",
		Usage: "probe the local network for listening teleporter peers",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Value: 9001, Usage: "port to probe for"},
		},
		Action: func(c *cli.Context) error {
			return fmt.Errorf("scan: local-network interface enumeration is outside this tool's core transfer scope and is not implemented")
		},
	}
}

// buildFileList expands inputs into concrete FileSpecs, recursing into directories when
// requested and parsing "orig:new" rename syntax. Both concerns are explicitly named as
// external collaborators, not part of the transfer core.
func buildFileList(inputs []string, recursive bool) ([]transfer.FileSpec, error) {
	var specs []transfer.FileSpec

	for _, item := range inputs {
		localPath, remoteName := parseRename(item)

		info, err := os.Stat(localPath)
		if err != nil {
			log.Printf("skipping %s: %v", localPath, err)
			continue
		}

		if info.IsDir() {
			if !recursive {
				continue
			}
			found, err := scanDir(localPath)
			if err != nil {
				log.Printf("cannot read %s: %v", localPath, err)
				continue
			}
			specs = append(specs, found...)
			continue
		}

		specs = append(specs, transfer.FileSpec{LocalPath: localPath, RemoteName: remoteName})
	}

	return specs, nil
}

// parseRename splits "orig:new" syntax: "read from orig locally, store as new remotely".
// A plain path with no ':' (or one that exists verbatim, e.g. on a filesystem that allows
// colons in filenames) is not treated as a rename.
func parseRename(item string) (localPath, remoteName string) {
	if _, err := os.Stat(item); err == nil {
		return item, item
	}
	if idx := strings.Index(item, ":"); idx >= 0 {
		orig, new := item[:idx], item[idx+1:]
		if _, err := os.Stat(orig); err == nil {
			return orig, new
		}
	}
	return item, item
}

func scanDir(dir string) ([]transfer.FileSpec, error) {
	var specs []transfer.FileSpec

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		full := filepath.Join(dir, entry.Name())
		if entry.IsDir() {
			nested, err := scanDir(full)
			if err != nil {
				log.Printf("cannot read dir %s: %v", full, err)
				continue
			}
			specs = append(specs, nested...)
			continue
		}
		specs = append(specs, transfer.FileSpec{LocalPath: full, RemoteName: full})
	}

	return specs, nil
}

func firstNonZeroInt(values ...int) int {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
