// Copyright 2024 The cdefmt-go Authors.
// Use of this source code is governed by an Apache v2 license
// that can be found in the LICENSE file.

// cdefmtdump decodes deferred-formatting log frames against a target ELF.
//
// The decode command consumes length-prefixed frames (u64 length in the
// image's endianness, then the frame bytes) from stdin and prints one
// rendered line per frame:
//
//	target-app | cdefmtdump decode firmware.elf
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	cdefmt "github.com/cdefmt/cdefmt-go"
	"github.com/cdefmt/cdefmt-go/internal/calog"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
)

var (
	verbose  bool
	precache bool
)

var logger *slog.Logger

// slogSink bridges the decoder's diagnostic output into the CLI's slog
// handler.
type slogSink struct {
	l *slog.Logger
}

func (s slogSink) Log(level calog.Level, msg string) {
	switch level {
	case calog.LevelDebug:
		s.l.Debug(msg)
	case calog.LevelInfo:
		s.l.Info(msg)
	case calog.LevelWarn:
		s.l.Warn(msg)
	default:
		s.l.Error(msg)
	}
}

func openImage(path string) (*cdefmt.Image, error) {
	return cdefmt.Open(path, &cdefmt.Options{Logger: slogSink{l: logger}})
}

func runDecode(cmd *cobra.Command, args []string) error {
	img, err := openImage(args[0])
	if err != nil {
		return err
	}
	defer img.Close()

	decoder, err := cdefmt.NewDecoder(img)
	if err != nil {
		return err
	}

	if precache {
		start := time.Now()
		count, err := decoder.Precache()
		if err != nil {
			return err
		}
		logger.Info("pre-cached log sites", "count", count, "took", time.Since(start))
	}

	order := img.ByteOrder()
	lenBuf := make([]byte, 8)
	var frame []byte

	in := cmd.InOrStdin()
	out := cmd.OutOrStdout()
	for {
		if _, err := io.ReadFull(in, lenBuf); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		n := order.Uint64(lenBuf)
		if uint64(cap(frame)) < n {
			frame = make([]byte, n)
		}
		frame = frame[:n]
		if _, err := io.ReadFull(in, frame); err != nil {
			return err
		}

		log, err := decoder.Decode(frame)
		if err != nil {
			logger.Error("failed to decode frame", "err", err)
			continue
		}
		fmt.Fprintf(out, "%-7s > %s\n", log.Level(), log)
	}
}

func runSites(cmd *cobra.Command, args []string) error {
	img, err := openImage(args[0])
	if err != nil {
		return err
	}
	defer img.Close()

	decoder, err := cdefmt.NewDecoder(img)
	if err != nil {
		return err
	}

	sites, err := decoder.LogSites()
	out := cmd.OutOrStdout()
	for _, site := range sites {
		m := site.Metadata
		fmt.Fprintf(out, "%#08x %-7s %s:%d %q\n", m.ID, m.Level, m.File, m.Line, m.Fmt)
	}
	return err
}

func main() {
	rootCmd := &cobra.Command{
		Use:           "cdefmtdump",
		Short:         "A cdefmt log frame decoder",
		Long:          "Decodes cdefmt deferred-formatting log frames using the metadata and debug information of the emitting ELF image",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			logger = slog.New(tint.NewHandler(os.Stderr, &tint.Options{
				Level:      level,
				TimeFormat: time.TimeOnly,
			}))
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("cdefmtdump 0.1.0")
		},
	}

	decodeCmd := &cobra.Command{
		Use:   "decode <elf>",
		Short: "Decode length-prefixed frames from stdin",
		Args:  cobra.ExactArgs(1),
		RunE:  runDecode,
	}

	sitesCmd := &cobra.Command{
		Use:   "sites <elf>",
		Short: "List every log site in the image",
		Args:  cobra.ExactArgs(1),
		RunE:  runSites,
	}

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(sitesCmd)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	decodeCmd.Flags().BoolVarP(&precache, "precache", "p", true, "resolve every log site up front")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
