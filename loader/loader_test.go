package loader

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/snappy"
	"github.com/hashicorp/go-msgpack/v2/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forever-free1/bidindex/storage"
)

const auctionHeader = "ArticleTitle,ArticleID,Department,CloseDate,WinningBid,InventoryID,VehicleID,ReceiptNumber,Fund\n"

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func collect(t *testing.T, src Source) ([]storage.Record, error) {
	t.Helper()
	var out []storage.Record
	err := src.Each(context.Background(), func(r storage.Record) error {
		out = append(out, r)
		return nil
	})
	return out, err
}

func TestCSV_DefaultColumns(t *testing.T) {
	path := writeFile(t, "bids.csv", auctionHeader+
		"Chair,98109,Parks,1/1/2017,$16.50,1,,R1,Enterprise\n"+
		"\"Desk, Oak\",98110,Library,1/2/2017,$1,200.00,2,,R2,General Fund\n"+
		"Lamp,98111,Library,1/3/2017,n/a,3,,R3,General Fund\n")

	src := Open(path)
	csvSrc, ok := src.(*CSVSource)
	require.True(t, ok)

	got, err := collect(t, src)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, storage.Record{ID: "98109", Title: "Chair", Fund: "Enterprise", Amount: 16.5}, got[0])
	assert.Equal(t, "Desk, Oak", got[1].Title)
	// 未加引号的逗号把金额拆成两列，只解析 "$1"
	assert.Equal(t, 1.0, got[1].Amount)
	assert.Equal(t, 0.0, got[2].Amount)

	assert.Equal(t, "ArticleTitle", csvSrc.Header()[0])
	assert.Equal(t, "Fund", csvSrc.Header()[8])
}

func TestCSV_CustomColumnsWithoutHeader(t *testing.T) {
	path := writeFile(t, "bids.csv", "7,Bike,#40,Parks\n")
	src := Open(path,
		WithHeader(false),
		WithStripChar('#'),
		WithColumns(Columns{ID: 0, Title: 1, Amount: 2, Fund: 3}),
	)

	got, err := collect(t, src)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, storage.Record{ID: "7", Title: "Bike", Fund: "Parks", Amount: 40}, got[0])
	assert.Nil(t, src.(*CSVSource).Header())
}

func TestCSV_HeaderOnly(t *testing.T) {
	got, err := collect(t, Open(writeFile(t, "empty.csv", auctionHeader)))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCSV_ShortRowStopsLoad(t *testing.T) {
	path := writeFile(t, "bids.csv", auctionHeader+
		"Chair,98109,Parks,1/1/2017,$16.50,1,,R1,Enterprise\n"+
		"Broken,98110\n"+
		"Lamp,98111,Library,1/3/2017,$3,3,,R3,General Fund\n")

	got, err := collect(t, Open(path))
	require.Error(t, err)

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 3, pe.Line)
	assert.True(t, errors.Is(err, ErrShortRow))
	// 出错之前的记录已经回调
	require.Len(t, got, 1)
	assert.Equal(t, "98109", got[0].ID)
}

func TestCSV_MissingFile(t *testing.T) {
	_, err := collect(t, Open(filepath.Join(t.TempDir(), "nope.csv")))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSourceUnavailable))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestCSV_CallbackErrorIsReturnedUnchanged(t *testing.T) {
	path := writeFile(t, "bids.csv", auctionHeader+
		"Chair,1,Parks,d,$1,1,,R1,F\n"+
		"Desk,2,Parks,d,$2,1,,R1,F\n")
	stop := errors.New("stop")

	calls := 0
	err := Open(path).Each(context.Background(), func(storage.Record) error {
		calls++
		return stop
	})
	assert.Same(t, stop, err)
	assert.Equal(t, 1, calls)
}

func TestCSV_ContextCancelled(t *testing.T) {
	path := writeFile(t, "bids.csv", auctionHeader+"Chair,1,Parks,d,$1,1,,R1,F\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Open(path).Each(ctx, func(storage.Record) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSnapshot_WriteThenLoad(t *testing.T) {
	records := []storage.Record{
		{ID: "98109", Title: "Chair", Fund: "Enterprise", Amount: 16.5},
		{ID: "12", Title: "Desk", Fund: "General Fund", Amount: 0},
	}
	path := filepath.Join(t.TempDir(), "bids.snap")
	require.NoError(t, WriteSnapshotFile(path, records))

	src := Open(path)
	_, ok := src.(*SnapshotSource)
	require.True(t, ok)

	got, err := collect(t, src)
	require.NoError(t, err)
	assert.Equal(t, records, got)
}

func TestSnapshot_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSnapshot(&buf, nil))
	path := writeFile(t, "empty.snap", buf.String())

	got, err := collect(t, Open(path))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSnapshot_BadHeader(t *testing.T) {
	var buf bytes.Buffer
	sw := snappy.NewBufferedWriter(&buf)
	enc := codec.NewEncoder(sw, &codec.MsgpackHandle{})
	require.NoError(t, enc.Encode(&snapshotHeader{Magic: "NOPE", Version: 1, Count: 0}))
	require.NoError(t, sw.Close())

	_, err := collect(t, Open(writeFile(t, "bad.snap", buf.String())))
	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 0, pe.Line)
	assert.True(t, errors.Is(err, ErrBadSnapshot))
}

func TestSnapshot_NotSnappy(t *testing.T) {
	_, err := collect(t, Open(writeFile(t, "garbage.snap", "this is not a snapshot")))
	assert.True(t, errors.Is(err, ErrBadSnapshot))
}

func TestSnapshot_CountLargerThanStream(t *testing.T) {
	var buf bytes.Buffer
	sw := snappy.NewBufferedWriter(&buf)
	enc := codec.NewEncoder(sw, &codec.MsgpackHandle{})
	require.NoError(t, enc.Encode(&snapshotHeader{Magic: snapshotMagic, Version: snapshotVersion, Count: 2}))
	require.NoError(t, enc.Encode(&storage.Record{ID: "1", Title: "only"}))
	require.NoError(t, sw.Close())

	got, err := collect(t, Open(writeFile(t, "short.snap", buf.String())))
	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 2, pe.Line)
	require.Len(t, got, 1)
	assert.Equal(t, "only", got[0].Title)
}
