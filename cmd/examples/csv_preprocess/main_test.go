package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yonas-y/dabstract/pkg/abstract"
	"github.com/yonas-y/dabstract/pkg/data"
	"github.com/yonas-y/dabstract/pkg/dataprep"
)

func loadTable(t *testing.T, content string) *abstract.DictSeq {
	t.Helper()
	path := filepath.Join(t.TempDir(), "table.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	table, err := data.LoadCSV(context.Background(), path, data.CSVOptions{})
	require.NoError(t, err)
	return table
}

func TestEncodeText(t *testing.T) {
	ctx := context.Background()
	table := loadTable(t, "age,city\n30,paris\n41,lyon\n")

	numeric, err := encodeText(ctx, table, dataprep.MethodLabel)
	require.NoError(t, err)
	assert.Equal(t, []string{"age", "city"}, numeric)

	city, err := table.Key("city")
	require.NoError(t, err)
	v, err := abstract.Get(ctx, city, 1)
	require.NoError(t, err)
	assert.Equal(t, 1.0, v)
}

func TestEncodeText_HeaderOnly(t *testing.T) {
	table := loadTable(t, "age,city\n")
	require.Equal(t, 0, table.Len())

	numeric, err := encodeText(context.Background(), table, dataprep.MethodLabel)
	require.NoError(t, err)
	assert.Empty(t, numeric)
}
