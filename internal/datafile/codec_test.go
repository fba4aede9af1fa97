package datafile

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warpdir/internal/model"
)

const zSample = `/Users/dev/grepo_python/beancount|28|1626969287
/Users/dev/grepo_shell/awk-scripts|30|1626954435
/Users/dev/playground/action-time|11|1626960591
/Users/dev|1|1626960550
/usr/local/share|3.5|1627435829
`

func TestDecode_ZSample(t *testing.T) {
	entries, err := Z.Decode(strings.NewReader(zSample))
	require.NoError(t, err)
	require.Len(t, entries, 5)

	byPath := map[string]model.Entry{}
	for _, e := range entries {
		byPath[e.Path] = e
	}
	assert.Equal(t, 28.0, byPath["/Users/dev/grepo_python/beancount"].Rank)
	assert.Equal(t, int64(1627435829), byPath["/usr/local/share"].LastAccessed)
	assert.Equal(t, 3.5, byPath["/usr/local/share"].Rank)
	for _, e := range entries {
		assert.Equal(t, 1, e.VisitCount, e.Path)
	}
}

func TestEncode_SortedAndOneDecimal(t *testing.T) {
	entries := []model.Entry{
		{Path: "/low", Rank: 1.04, LastAccessed: 5},
		{Path: "/high", Rank: 99.96, LastAccessed: 7},
		{Path: "/mid", Rank: 10.25, LastAccessed: 6},
	}
	var buf bytes.Buffer
	require.NoError(t, Zcd.Encode(&buf, entries))

	assert.Equal(t, "/high|100.0|7\n/mid|10.2|6\n/low|1.0|5\n", buf.String())
}

func TestEncode_ZShortestRank(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Z.Encode(&buf, []model.Entry{{Path: "/a", Rank: 28, LastAccessed: 1}}))
	assert.Equal(t, "/a|28|1\n", buf.String())
}

func TestEncode_RejectsLineBreakInPath(t *testing.T) {
	var buf bytes.Buffer
	err := Zcd.Encode(&buf, []model.Entry{{Path: "/a\nb", Rank: 1, LastAccessed: 1}})
	assert.Error(t, err)
}

func TestRoundTrip(t *testing.T) {
	in := []model.Entry{
		{Path: "/srv/app", Rank: 12.34, LastAccessed: 1700000000, VisitCount: 3},
		{Path: "/weird|name", Rank: 1000, LastAccessed: 1700000001, VisitCount: 1},
		{Path: "/路径/文档", Rank: 0, LastAccessed: 1, VisitCount: 2},
	}
	var buf bytes.Buffer
	require.NoError(t, Zcd.Encode(&buf, in))

	out, err := Zcd.Decode(&buf)
	require.NoError(t, err)
	require.Len(t, out, len(in))

	got := map[string]float64{}
	for _, e := range out {
		got[e.Path] = e.Rank
	}
	for _, e := range in {
		assert.InDelta(t, math.Round(e.Rank*10)/10, got[e.Path], 1e-9, e.Path)
	}
}

func TestDecode_RejectsMalformed(t *testing.T) {
	cases := []struct {
		name string
		data string
		line int
	}{
		{"empty line", "/a|1.0|1\n\n/b|1.0|2\n", 2},
		{"missing fields", "/a|1.0|1\n/b|1.0\n", 2},
		{"bad rank", "/a|high|1\n", 1},
		{"nan rank", "/a|NaN|1\n", 1},
		{"bad epoch", "/a|1.0|yesterday\n", 1},
		{"empty path", "|1.0|1\n", 1},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			entries, err := Zcd.Decode(strings.NewReader(c.data))
			require.Error(t, err)
			assert.Nil(t, entries)

			var pe *PersistenceError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, c.line, pe.Line)
		})
	}

	_, err := Zcd.Decode(strings.NewReader("\n"))
	assert.ErrorIs(t, err, ErrEmptyLine)
}

func TestDecode_ClampsRank(t *testing.T) {
	entries, err := Zcd.Decode(strings.NewReader("/a|5000|1\n/b|-2|1\n"))
	require.NoError(t, err)
	assert.Equal(t, model.MaxRank, entries[0].Rank)
	assert.Equal(t, 0.0, entries[1].Rank)
}

func TestLookup(t *testing.T) {
	c, ok := Lookup("")
	require.True(t, ok)
	assert.Equal(t, "zcd", c.Name())

	c, ok = Lookup("Z")
	require.True(t, ok)
	assert.Equal(t, "z", c.Name())

	_, ok = Lookup("csv")
	assert.False(t, ok)
}

func TestReadWrite_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "warpdata")

	entries, err := Read(path, Zcd)
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NoError(t, Write(path, Zcd, []model.Entry{{Path: "/x", Rank: 2, LastAccessed: 3}}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/x|2.0|3\n", string(data))

	entries, err = Read(path, Zcd)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "/x", entries[0].Path)

	require.NoError(t, Remove(path))
	require.NoError(t, Remove(path))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestRead_MalformedFileCarriesPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "warpdata")
	require.NoError(t, os.WriteFile(path, []byte("/ok|1.0|1\nbroken\n"), 0o644))

	_, err := Read(path, Zcd)
	var pe *PersistenceError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, path, pe.Path)
	assert.Equal(t, 2, pe.Line)
	assert.Contains(t, err.Error(), path+":2")
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := ExpandHome("~")
	require.NoError(t, err)
	assert.Equal(t, home, got)

	got, err = ExpandHome("~/.config/warp")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config/warp"), got)

	got, err = ExpandHome("/etc/~x")
	require.NoError(t, err)
	assert.Equal(t, "/etc/~x", got)
}
