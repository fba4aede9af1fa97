// Package datafile reads and writes the line-oriented entry files:
//
//	<path>|<rank>|<last accessed, epoch seconds>
//
// one entry per line. Fields are split from the right, so a path may itself
// contain '|'.
package datafile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"

	"warpdir/internal/frecency"
	"warpdir/internal/model"
)

const fieldSep = "|"

var ErrEmptyLine = errors.New("empty line")

// Codec converts entries to and from one datafile dialect.
type Codec interface {
	Name() string
	Encode(w io.Writer, entries []model.Entry) error
	Decode(r io.Reader) ([]model.Entry, error)
}

// Zcd is the native format: ranks carry exactly one decimal place.
var Zcd Codec = lineCodec{name: "zcd", formatRank: func(r float64) string {
	return strconv.FormatFloat(r, 'f', 1, 64)
}}

// Z reads and writes the datafile used by z.sh. Ranks are written in their
// shortest form, which z.sh's awk parses as-is.
var Z Codec = lineCodec{name: "z", formatRank: func(r float64) string {
	return strconv.FormatFloat(r, 'f', -1, 64)
}}

// Lookup returns the line codec registered under name.
func Lookup(name string) (Codec, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "zcd":
		return Zcd, true
	case "z":
		return Z, true
	}
	return nil, false
}

type lineCodec struct {
	name       string
	formatRank func(float64) string
}

func (c lineCodec) Name() string { return c.name }

// Encode writes entries sorted descending by the entry comparator.
func (c lineCodec) Encode(w io.Writer, entries []model.Entry) error {
	sorted := model.CloneEntries(entries)
	slices.SortFunc(sorted, func(a, b model.Entry) int { return strings.Compare(a.Path, b.Path) })
	slices.SortStableFunc(sorted, func(a, b model.Entry) int { return frecency.Compare(b, a) })

	bw := bufio.NewWriter(w)
	for _, e := range sorted {
		if strings.ContainsAny(e.Path, "\n\r") {
			return fmt.Errorf("path %q contains a line break", e.Path)
		}
		_, err := fmt.Fprintf(bw, "%s|%s|%d\n", e.Path, c.formatRank(e.Rank), e.LastAccessed)
		if err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Decode parses every line or fails on the first bad one; nothing is
// returned from a partially valid file.
func (c lineCodec) Decode(r io.Reader) ([]model.Entry, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)

	var out []model.Entry
	line := 0
	for sc.Scan() {
		line++
		e, err := parseLine(sc.Text())
		if err != nil {
			return nil, &PersistenceError{Line: line, Err: err}
		}
		out = append(out, e)
	}
	if err := sc.Err(); err != nil {
		return nil, &PersistenceError{Line: line + 1, Err: err}
	}
	return out, nil
}

func parseLine(text string) (model.Entry, error) {
	if text == "" {
		return model.Entry{}, ErrEmptyLine
	}

	i := strings.LastIndex(text, fieldSep)
	if i < 0 {
		return model.Entry{}, fmt.Errorf("invalid entry %q", text)
	}
	epochStr := text[i+1:]
	rest := text[:i]

	j := strings.LastIndex(rest, fieldSep)
	if j < 0 {
		return model.Entry{}, fmt.Errorf("invalid entry %q", text)
	}
	rankStr := rest[j+1:]
	path := rest[:j]
	if path == "" {
		return model.Entry{}, fmt.Errorf("invalid entry %q: empty path", text)
	}

	rank, err := strconv.ParseFloat(rankStr, 64)
	if err != nil || math.IsNaN(rank) {
		return model.Entry{}, fmt.Errorf("invalid rank %q", rankStr)
	}
	epoch, err := strconv.ParseInt(epochStr, 10, 64)
	if err != nil {
		return model.Entry{}, fmt.Errorf("invalid last accessed %q", epochStr)
	}

	return model.Entry{
		Path:         path,
		Rank:         model.ClampRank(rank),
		LastAccessed: epoch,
		VisitCount:   1,
	}, nil
}
