package csvstore

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testHeader = []string{"Timestamp", "Email", "Comments"}

func newTestTable(t *testing.T) *Table {
	t.Helper()

	table, err := New(filepath.Join(t.TempDir(), "data", "signups.csv"), testHeader)
	require.NoError(t, err)
	return table
}

func TestNew_RequiresPathAndHeader(t *testing.T) {
	_, err := New("  ", testHeader)
	assert.Error(t, err)

	_, err = New("file.csv", nil)
	assert.Error(t, err)
}

func TestTable_MissingFileReadsAsEmpty(t *testing.T) {
	table := newTestTable(t)

	exists, err := table.Exists()
	require.NoError(t, err)
	assert.False(t, exists)

	count, err := table.Count()
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	rows, err := table.Rows()
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestTable_InitWritesHeaderOnce(t *testing.T) {
	table := newTestTable(t)

	require.NoError(t, table.Init())
	require.NoError(t, table.Init())

	raw, err := os.ReadFile(table.Path())
	require.NoError(t, err)
	assert.Equal(t, "Timestamp,Email,Comments\n", string(raw))

	count, err := table.Count()
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestTable_EmptyFileCountsZero(t *testing.T) {
	table := newTestTable(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(table.Path()), 0o755))
	require.NoError(t, os.WriteFile(table.Path(), nil, 0o644))

	count, err := table.Count()
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestTable_ZeroByteFileGetsHeaderBeforeFirstRow(t *testing.T) {
	for name, prepare := range map[string]func(*Table) error{
		"init then append": func(table *Table) error { return table.Init() },
		"append only":      func(*Table) error { return nil },
	} {
		t.Run(name, func(t *testing.T) {
			table := newTestTable(t)
			require.NoError(t, os.MkdirAll(filepath.Dir(table.Path()), 0o755))
			require.NoError(t, os.WriteFile(table.Path(), nil, 0o644))
			require.NoError(t, prepare(table))

			first := []string{"2026-01-01T00:00:00.000Z", "a@x.com", ""}
			second := []string{"2026-01-01T00:00:01.000Z", "b@x.com", "hi"}
			require.NoError(t, table.Append(first))
			require.NoError(t, table.Append(second))

			rows, err := table.Rows()
			require.NoError(t, err)
			assert.Equal(t, [][]string{first, second}, rows)

			raw, err := os.ReadFile(table.Path())
			require.NoError(t, err)
			assert.True(t, bytes.HasPrefix(raw, []byte("Timestamp,Email,Comments\n")), string(raw))
		})
	}
}

func TestTable_AppendRoundTripsSpecialCharacters(t *testing.T) {
	table := newTestTable(t)
	require.NoError(t, table.Init())

	rows := [][]string{
		{"2025-01-01T00:00:00.000Z", "a@x.com", "plain"},
		{"2025-01-01T00:00:01.000Z", "b@x.com", `commas, "quotes" and
newlines`},
		{"2025-01-01T00:00:02.000Z", "c@x.com", "ünïcödé ✓ 日本語"},
	}
	for _, row := range rows {
		require.NoError(t, table.Append(row))
	}

	got, err := table.Rows()
	require.NoError(t, err)
	assert.Equal(t, rows, got)

	count, err := table.Count()
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestTable_AppendRecreatesMissingFile(t *testing.T) {
	table := newTestTable(t)

	require.NoError(t, table.Append([]string{"ts", "a@x.com", ""}))

	raw, err := os.ReadFile(table.Path())
	require.NoError(t, err)
	assert.Equal(t, "Timestamp,Email,Comments\nts,a@x.com,\n", string(raw))
}

func TestTable_AppendRejectsWrongWidth(t *testing.T) {
	table := newTestTable(t)

	assert.Error(t, table.Append([]string{"only-one"}))
}

func TestTable_ScanFollowsFileHeaderOrder(t *testing.T) {
	table := newTestTable(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(table.Path()), 0o755))
	require.NoError(t, os.WriteFile(table.Path(), []byte("Email,Timestamp,Comments\na@x.com,ts,hi\n"), 0o644))

	rows, err := table.Rows()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"ts", "a@x.com", "hi"}, rows[0])
}

func TestTable_ScanRejectsForeignHeader(t *testing.T) {
	table := newTestTable(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(table.Path()), 0o755))
	require.NoError(t, os.WriteFile(table.Path(), []byte("foo,bar\n1,2\n"), 0o644))

	_, err := table.Rows()
	assert.ErrorIs(t, err, ErrHeaderMismatch)
}

func TestTable_CopyToReturnsRawBytes(t *testing.T) {
	table := newTestTable(t)
	require.NoError(t, table.Append([]string{"ts", "a@x.com", "x,y"}))

	var buf bytes.Buffer
	n, err := table.CopyTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)
	assert.Equal(t, "Timestamp,Email,Comments\nts,a@x.com,\"x,y\"\n", buf.String())
}

func TestTable_ConcurrentAppendsKeepRowsIntact(t *testing.T) {
	table := newTestTable(t)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, table.Append([]string{"ts", "same@x.com", "line one\nline two"}))
		}()
	}
	wg.Wait()

	rows, err := table.Rows()
	require.NoError(t, err)
	assert.Len(t, rows, 50)
	for _, row := range rows {
		assert.Equal(t, "line one\nline two", row[2])
	}
}

func TestWriteAll_MatchesTableLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signups.csv")
	table, err := New(path, []string{"A", "B"})
	require.NoError(t, err)
	require.NoError(t, table.Append([]string{"x,1", "say \"hi\""}))

	var onDisk bytes.Buffer
	_, err = table.CopyTo(&onDisk)
	require.NoError(t, err)

	var written bytes.Buffer
	require.NoError(t, WriteAll(&written, []string{"A", "B"}, [][]string{{"x,1", "say \"hi\""}}))

	assert.Equal(t, onDisk.String(), written.String())
}
