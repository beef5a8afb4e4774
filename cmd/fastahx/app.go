// Copyright 2024 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

const (
	// ExitCodeSuccess is successful error code.
	ExitCodeSuccess int = iota

	// ExitCodeFlagParseError is the exit code for a flag parsing error.
	ExitCodeFlagParseError

	// ExitCodeUnknownError is the exit code for an unknown error.
	ExitCodeUnknownError
)

// ErrFlagParse is a flag parsing error.
var ErrFlagParse = errors.New("parsing flags")

// ErrFastahxCLI is the base error for CLI-level failures, distinct from
// the fastahx package's own ErrFastahx.
var ErrFastahxCLI = errors.New("fastahx")

func init() {
	// See github.com/urfave/cli/issues/1809: without this, `fastahx --help
	// index` reports "command index not found" instead of showing help.
	cli.HelpFlag = &cli.BoolFlag{
		Name:               "d41d8cd98f00b204e980",
		DisableDefaultText: true,
	}
}

// check checks the error and panics if not nil.
func check(err error) {
	if err != nil {
		panic(err)
	}
}

// must checks the error and panics if not nil.
func must[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}

func newFastahxApp() *cli.App {
	return &cli.App{
		Name:  filepath.Base(os.Args[0]),
		Usage: "Index and query FASTA reference sequence files.",
		Description: strings.Join([]string{
			"fastahx(1) indexes FASTA files (plain, BGZF, or ZSTD-framed) and",
			"extracts subsequences by coordinate, the way samtools faidx does.",
		}, "\n"),
		Commands: []*cli.Command{
			newIndexCommand(),
			newFetchCommand(),
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:               "verbose",
				Usage:              "output progress and other informative messages; repeatable",
				Aliases:            []string{"v"},
				DisableDefaultText: true,
				Count:              new(int),
			},
			&cli.BoolFlag{
				Name:               "help",
				Usage:              "print this help text and exit",
				Aliases:            []string{"h"},
				DisableDefaultText: true,
			},
			&cli.BoolFlag{
				Name:               "version",
				Usage:              "print version information and exit",
				DisableDefaultText: true,
			},
		},
		Copyright:       "Google LLC",
		HideHelp:        true,
		HideHelpCommand: true,
		Before: func(c *cli.Context) error {
			logrus.SetLevel(verbosityToLevel(c.Int("verbose")))
			return nil
		},
		Action: func(c *cli.Context) error {
			if c.Bool("help") {
				check(cli.ShowAppHelp(c))
				return nil
			}
			if c.Bool("version") {
				return printVersion(c)
			}
			return cli.ShowAppHelp(c)
		},
		ExitErrHandler: func(c *cli.Context, err error) {
			if err == nil {
				return
			}

			_ = must(fmt.Fprintf(c.App.ErrWriter, "%s: %v\n", c.App.Name, err))
			if errors.Is(err, ErrFlagParse) {
				cli.OsExiter(ExitCodeFlagParseError)
				return
			}
			cli.OsExiter(ExitCodeUnknownError)
		},
	}
}

// verbosityToLevel maps a -v/--verbose repeat count to a logrus level, one
// step more verbose per repeat, the same scheme as the original CLI this
// is ported from (WARNING, minus 10 per -v, floored at DEBUG).
func verbosityToLevel(count int) logrus.Level {
	switch {
	case count <= 0:
		return logrus.WarnLevel
	case count == 1:
		return logrus.InfoLevel
	default:
		return logrus.DebugLevel
	}
}
