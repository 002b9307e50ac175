package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract(t *testing.T) {
	data := map[string]any{
		"name": "Tee",
		"metadata": map[string]any{
			"dateDownloaded": "2021-03-01",
		},
		"images": []any{
			map[string]any{"alt": "no url"},
			map[string]any{"url": "https://img/1.jpg"},
			map[string]any{"url": "https://img/2.jpg"},
		},
		"json": map[string]any{
			"sizechart": map[string]any{
				"rows": []any{"a", "b"},
			},
		},
	}

	tests := []struct {
		name string
		path string
		want any
	}{
		{name: "top level key", path: "name", want: "Tee"},
		{name: "nested key", path: "metadata.dateDownloaded", want: "2021-03-01"},
		{name: "array index", path: "images[2].url", want: "https://img/2.jpg"},
		{name: "wildcard returns first match", path: "images[*].url", want: "https://img/1.jpg"},
		{name: "missing key", path: "brand.name", want: nil},
		{name: "index out of range", path: "images[9].url", want: nil},
		{name: "through a non map level", path: "name.first", want: nil},
		{name: "deep path", path: "json.sizechart.rows[1]", want: "b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Extract(data, tt.path))
		})
	}
}

func TestExtract_EmptyPathReturnsData(t *testing.T) {
	data := map[string]any{"a": 1}
	assert.Equal(t, data, Extract(data, ""))
}

func TestExtractString(t *testing.T) {
	data := map[string]any{
		"price": 19.5,
		"count": int64(3),
		"flag":  true,
		"tags":  []any{"a"},
	}

	t.Run("renders numbers without trailing zeros", func(t *testing.T) {
		got := ExtractString(data, "price")
		require.NotNil(t, got)
		assert.Equal(t, "19.5", *got)
	})

	t.Run("renders integers", func(t *testing.T) {
		got := ExtractString(data, "count")
		require.NotNil(t, got)
		assert.Equal(t, "3", *got)
	})

	t.Run("renders bools", func(t *testing.T) {
		got := ExtractString(data, "flag")
		require.NotNil(t, got)
		assert.Equal(t, "true", *got)
	})

	t.Run("renders lists as json", func(t *testing.T) {
		got := ExtractString(data, "tags")
		require.NotNil(t, got)
		assert.Equal(t, `["a"]`, *got)
	})

	t.Run("missing is nil", func(t *testing.T) {
		assert.Nil(t, ExtractString(data, "missing"))
	})
}

func TestExtractAll(t *testing.T) {
	data := map[string]any{
		"rows": []any{
			map[string]any{"row_header": "S"},
			map[string]any{"row_header": "M"},
			map[string]any{"other": "x"},
		},
	}

	assert.Equal(t, []any{"S", "M"}, ExtractAll(data, "rows[*].row_header"))
	assert.Empty(t, ExtractAll(data, "missing[*].row_header"))
}
