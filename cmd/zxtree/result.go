/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Mon Mar 26 13:40:52 2018 mstenber
 * Last modified: Mon Mar 26 15:58:13 2018 mstenber
 * Edit time:     36 min
 *
 */

package main

import (
	"fmt"
	"io"

	"github.com/polydawn/refmt"
	"github.com/polydawn/refmt/json"
	"github.com/polydawn/refmt/obj/atlas"
	"github.com/warpfork/go-errcat"

	. "github.com/fingon/go-zxtree/zxerr"
)

type ExitCode int

const (
	ExitSuccess      = ExitCode(0)
	ExitUsage        = ExitCode(1)
	ExitNotFound     = ExitCode(3)
	ExitUnauthorized = ExitCode(4)
	ExitCorrupt      = ExitCode(5)
	ExitContention   = ExitCode(6)
	ExitConflict     = ExitCode(7)
	ExitTODO         = ExitCode(254)
)

var exitCodes = map[Category]ExitCode{
	ErrUsage:                ExitUsage,
	ErrInvalidNodeName:      ExitUsage,
	ErrNotFound:             ExitNotFound,
	ErrIndexEntryNotFound:   ExitNotFound,
	ErrChildNotFound:        ExitNotFound,
	ErrUnauthorized:         ExitUnauthorized,
	ErrModeViolation:        ExitUnauthorized,
	ErrVersionCorruption:    ExitCorrupt,
	ErrVersionMismatch:      ExitCorrupt,
	ErrConfigLoad:           ExitCorrupt,
	ErrCodec:                ExitCorrupt,
	ErrLengthMismatch:       ExitCorrupt,
	ErrStreamContention:     ExitContention,
	ErrIndexEntryExists:     ExitConflict,
	ErrDuplicateChildName:   ExitConflict,
	ErrIllegalLeafOperation: ExitUsage,
}

func ExitCodeFor(err error) ExitCode {
	if err == nil {
		return ExitSuccess
	}
	if c, ok := errcat.Category(err).(Category); ok {
		if code, ok := exitCodes[c]; ok {
			return code
		}
	}
	return ExitTODO
}

type Result struct {
	Path        string `refmt:"path"`
	Type        string `refmt:"type,omitempty"`
	Value       string `refmt:"value,omitempty"`
	Size        int64  `refmt:"size,omitempty"`
	Owner       int64  `refmt:"owner,omitempty"`
	Group       int64  `refmt:"group,omitempty"`
	Permissions string `refmt:"permissions,omitempty"`
	ReadOnly    bool   `refmt:"readOnly,omitempty"`
	Created     int64  `refmt:"created,omitempty"`
	Written     int64  `refmt:"written,omitempty"`
}

type Error struct {
	Category string `refmt:"category"`
	Message  string `refmt:"message"`
}

type Output struct {
	Results []Result `refmt:"results"`
	Error   *Error   `refmt:"error,omitempty"`
}

var Atlas = atlas.MustBuild(
	atlas.BuildEntry(Output{}).StructMap().Autogenerate().Complete(),
	atlas.BuildEntry(Result{}).StructMap().Autogenerate().Complete(),
	atlas.BuildEntry(Error{}).StructMap().Autogenerate().Complete(),
)

func SerializeResults(format string, results []Result, resultErr error, stdout io.Writer, stderr io.Writer) {
	switch format {
	case FmtJson:
		out := Output{Results: results}
		if out.Results == nil {
			out.Results = []Result{}
		}
		if resultErr != nil {
			out.Error = &Error{Message: resultErr.Error()}
			if c, ok := errcat.Category(resultErr).(Category); ok {
				out.Error.Category = string(c)
			}
		}
		marshaller := refmt.NewMarshallerAtlased(json.EncodeOptions{}, stdout, Atlas)
		if err := marshaller.Marshal(&out); err != nil {
			panic(err)
		}
		fmt.Fprintln(stdout)
	case FmtDumb:
		for _, r := range results {
			fmt.Fprintln(stdout, dumbLine(r))
		}
		if resultErr != nil {
			fmt.Fprintln(stderr, resultErr)
		}
	default:
		panic(fmt.Errorf("zxtree: invalid format %s", format))
	}
}
