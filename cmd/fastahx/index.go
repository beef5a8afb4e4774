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
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/twrightsman/fastahx"
	"github.com/twrightsman/fastahx/compression"
)

type indexCmd struct {
	path            string
	indexPath       string
	indexCompressed string
	force           bool
}

func newIndexCommand() *cli.Command {
	return &cli.Command{
		Name:      "index",
		Usage:     "index FASTA files",
		ArgsUsage: "PATH",
		Flags: []cli.Flag{
			&cli.PathFlag{
				Name:    "index",
				Aliases: []string{"i"},
				Usage:   "path to write the FASTA index (default: PATH.fai)",
			},
			&cli.PathFlag{
				Name:    "index-compressed",
				Aliases: []string{"z"},
				Usage:   "path to write the compressed-block index (default: PATH.gzi)",
			},
			&cli.BoolFlag{
				Name:               "force",
				Aliases:            []string{"f"},
				Usage:              "overwrite indexes if they already exist",
				DisableDefaultText: true,
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("%w: index requires exactly one PATH argument", ErrFlagParse)
			}
			idx := indexCmd{
				path:            c.Args().First(),
				indexPath:       c.Path("index"),
				indexCompressed: c.Path("index-compressed"),
				force:           c.Bool("force"),
			}
			return idx.Run()
		},
	}
}

func (idx *indexCmd) Run() error {
	faiPath := idx.indexPath
	if faiPath == "" {
		faiPath = idx.path + ".fai"
	}
	if err := checkOverwrite(faiPath, idx.force); err != nil {
		return err
	}

	src, err := os.Open(idx.path)
	if err != nil {
		return fmt.Errorf("%w: opening %q: %w", ErrFastahxCLI, idx.path, err)
	}
	defer src.Close()

	kind, err := compression.Detect(src)
	if err != nil {
		return fmt.Errorf("%w: detecting compression of %q: %w", ErrFastahxCLI, idx.path, err)
	}

	var text io.Reader = src
	if kind != compression.None {
		dec, err := compression.LineIterator(src, kind)
		if err != nil {
			return err
		}
		defer dec.Close()
		text = dec
	}
	if err := buildFAIFile(text, faiPath); err != nil {
		return err
	}

	if kind == compression.GZIP {
		logrus.Warn("GZI indices can't be built for plain gzip files, skipping")
		return nil
	}
	if !kind.GZIBuildable() {
		return nil
	}

	gziPath := idx.indexCompressed
	if gziPath == "" {
		gziPath = idx.path + ".gzi"
	}
	if err := checkOverwrite(gziPath, idx.force); err != nil {
		return err
	}

	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("%w: seeking %q: %w", ErrFastahxCLI, idx.path, err)
	}
	return buildGZIFile(src, gziPath, kind)
}

func checkOverwrite(path string, force bool) error {
	if force {
		return nil
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %q already exists; use --force to overwrite", ErrFastahxCLI, path)
	}
	return nil
}

func buildFAIFile(src io.Reader, faiPath string) error {
	dst, err := os.OpenFile(faiPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("%w: opening %q: %w", ErrFastahxCLI, faiPath, err)
	}
	if err := fastahx.BuildFAI(src, dst); err != nil {
		dst.Close()
		return err
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("%w: closing %q: %w", ErrFastahxCLI, faiPath, err)
	}
	return nil
}

func buildGZIFile(src io.ReadSeeker, gziPath string, kind compression.Kind) error {
	dst, err := os.OpenFile(gziPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("%w: opening %q: %w", ErrFastahxCLI, gziPath, err)
	}
	if err := compression.BuildIndex(src, dst, kind); err != nil {
		dst.Close()
		return err
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("%w: closing %q: %w", ErrFastahxCLI, gziPath, err)
	}
	return nil
}
