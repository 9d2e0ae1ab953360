package dataset

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamCSV_TrimsAndAllowsRaggedRows(t *testing.T) {
	rows, err := drain(StreamCSV(context.Background(), strings.NewReader("a , b\nc\n")))
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "b"}, {"c"}}, rows)
}

func TestStreamCSV_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := drain(StreamCSV(ctx, strings.NewReader("a\nb\n")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "context cancelled")
}

func TestDecodeJSONArray(t *testing.T) {
	type item struct {
		N int `json:"n"`
	}
	items, err := drain(DecodeJSONArray[item](context.Background(), strings.NewReader(`[{"n":1},{"n":2}]`)))
	require.NoError(t, err)
	assert.Equal(t, []item{{1}, {2}}, items)
}

func TestDecodeJSONArray_Empty(t *testing.T) {
	items, err := drain(DecodeJSONArray[map[string]any](context.Background(), strings.NewReader("")))
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestReadXLSX_Missing(t *testing.T) {
	_, err := ReadXLSX("/nonexistent/taxa.xlsx")
	assert.Error(t, err)
}
