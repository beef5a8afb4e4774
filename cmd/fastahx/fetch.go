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
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/twrightsman/fastahx"
)

type fetchCmd struct {
	path            string
	region          string
	indexPath       string
	indexCompressed string
}

func newFetchCommand() *cli.Command {
	return &cli.Command{
		Name:      "fetch",
		Usage:     "fetch sequences from FASTA files",
		ArgsUsage: "PATH REGION",
		Flags: []cli.Flag{
			&cli.PathFlag{
				Name:    "index",
				Aliases: []string{"i"},
				Usage:   "path to the FASTA index (.fai) (default: PATH.fai)",
			},
			&cli.PathFlag{
				Name:    "index-compressed",
				Aliases: []string{"z"},
				Usage:   "path to the compressed-block index (.gzi) (default: PATH.gzi)",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return fmt.Errorf("%w: fetch requires PATH and REGION arguments", ErrFlagParse)
			}
			f := fetchCmd{
				path:            c.Args().Get(0),
				region:          c.Args().Get(1),
				indexPath:       c.Path("index"),
				indexCompressed: c.Path("index-compressed"),
			}
			return f.Run(c)
		},
	}
}

// parseRegion parses a samtools-style "seqid:start-end" region, a 1-based
// closed interval, into a sequence id plus a 0-based half-open [start,
// end) range.
func parseRegion(region string) (seqid string, start, end int64, err error) {
	seqid, startStop, found := strings.Cut(region, ":")
	if !found {
		return "", 0, 0, fmt.Errorf("%w: region %q must be of the form seqid:start-end", ErrFlagParse, region)
	}

	startStr, endStr, found := strings.Cut(startStop, "-")
	if !found {
		return "", 0, 0, fmt.Errorf("%w: region %q must be of the form seqid:start-end", ErrFlagParse, region)
	}

	start1, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil {
		return "", 0, 0, fmt.Errorf("%w: region %q has a non-integer start: %w", ErrFlagParse, region, err)
	}
	end1, err := strconv.ParseInt(endStr, 10, 64)
	if err != nil {
		return "", 0, 0, fmt.Errorf("%w: region %q has a non-integer end: %w", ErrFlagParse, region, err)
	}

	return seqid, start1 - 1, end1, nil
}

func (f *fetchCmd) Run(c *cli.Context) error {
	seqid, start, end, err := parseRegion(f.region)
	if err != nil {
		return err
	}

	reference, err := fastahx.Open(f.path)
	if err != nil {
		return err
	}
	defer reference.Close()

	if f.indexPath != "" {
		faiFile, err := os.Open(f.indexPath)
		if err != nil {
			return fmt.Errorf("%w: opening %q: %w", ErrFastahxCLI, f.indexPath, err)
		}
		defer faiFile.Close()
		if err := reference.LoadFAI(faiFile); err != nil {
			return err
		}
	}
	if f.indexCompressed != "" {
		gziFile, err := os.Open(f.indexCompressed)
		if err != nil {
			return fmt.Errorf("%w: opening %q: %w", ErrFastahxCLI, f.indexCompressed, err)
		}
		defer gziFile.Close()
		if err := reference.LoadGZI(gziFile); err != nil {
			return err
		}
	}

	sequence, err := reference.Fetch(seqid, &start, &end, 1)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(c.App.Writer, sequence)
	if err != nil {
		return fmt.Errorf("%w: writing output: %w", ErrFastahxCLI, err)
	}
	return nil
}
