package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormatVariants(t *testing.T) {
	for input, want := range map[string]Format{
		"table":     FormatTable,
		"":          FormatTable,
		"json":      FormatJSON,
		"JSON":      FormatJSON,
		"yaml":      FormatYAML,
		"yml":       FormatYAML,
		"  table  ": FormatTable,
	} {
		got, err := ParseFormat(input)
		require.NoError(t, err, "input %q", input)
		assert.Equal(t, want, got, "input %q", input)
	}
}

func TestParseFormatRejectsUnknown(t *testing.T) {
	_, err := ParseFormat("xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xml")
}

func TestFormatStringer(t *testing.T) {
	for f, want := range map[Format]string{FormatTable: "table", FormatJSON: "json", FormatYAML: "yaml"} {
		assert.Equal(t, want, f.String())
	}
}

// dirRow stands in for the view types the CLI renders.
type dirRow struct {
	UUID string `json:"uuid" yaml:"uuid"`
	Path string `json:"path" yaml:"path"`
}

func TestPrintJSONIndented(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintJSON(&buf, dirRow{UUID: "dir-1", Path: "/srv/nvr/ext1"}))

	assert.Contains(t, buf.String(), `"uuid": "dir-1"`)
	assert.True(t, strings.HasSuffix(buf.String(), "\n"), "output should end with a newline")
}

func TestPrintYAMLFieldOrder(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintYAML(&buf, dirRow{UUID: "dir-1", Path: "/srv/nvr/ext1"}))

	assert.Equal(t, "uuid: dir-1\npath: /srv/nvr/ext1\n", buf.String())
}

func TestTableDataRows(t *testing.T) {
	td := NewTableData("UUID", "Path")
	td.AddRow("dir-1", "/srv/nvr/ext1")
	td.AddRow("dir-2", "/srv/nvr/ext2")

	assert.Equal(t, []string{"UUID", "Path"}, td.Headers())
	require.Len(t, td.Rows(), 2)
	assert.Equal(t, []string{"dir-2", "/srv/nvr/ext2"}, td.Rows()[1])
}

func TestPrintTableUppercasesHeaders(t *testing.T) {
	td := NewTableData("Name", "Value")
	td.AddRow("backend", "sqlite")

	var buf bytes.Buffer
	require.NoError(t, PrintTable(&buf, td))

	// Headers come out uppercased.
	assert.Contains(t, buf.String(), "NAME")
	assert.Contains(t, buf.String(), "sqlite")
}

func TestKeyValueTable(t *testing.T) {
	var buf bytes.Buffer
	err := KeyValueTable(&buf, [][2]string{
		{"UUID", "9de278e5-0b85-47a5-b3b8-e36c24a31a93"},
		{"Path", "/srv/media"},
	})
	require.NoError(t, err)

	for _, want := range []string{"UUID", "9de278e5-0b85-47a5-b3b8-e36c24a31a93", "/srv/media"} {
		assert.Contains(t, buf.String(), want)
	}
}

func TestPrint(t *testing.T) {
	rows := []dirRow{{UUID: "dir-1", Path: "/srv/nvr/ext1"}}
	td := NewTableData("UUID", "Path")
	td.AddRow("dir-1", "/srv/nvr/ext1")

	t.Run("json marshals the data", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Print(&buf, FormatJSON, rows, false, "", td))
		assert.Contains(t, buf.String(), `"uuid": "dir-1"`)
	})

	t.Run("yaml marshals the data", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Print(&buf, FormatYAML, rows, false, "", td))
		assert.Contains(t, buf.String(), "- uuid: dir-1")
	})

	t.Run("table renders rows", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Print(&buf, FormatTable, rows, false, "", td))
		assert.Contains(t, buf.String(), "/srv/nvr/ext1")
	})

	t.Run("empty table shows the message", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Print(&buf, FormatTable, nil, true, "No directories registered.", NewTableData("UUID")))
		assert.Equal(t, "No directories registered.\n", buf.String())
	})

	t.Run("empty json stays a list", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Print(&buf, FormatJSON, []dirRow{}, true, "No directories registered.", NewTableData("UUID")))
		assert.Equal(t, "[]\n", buf.String())
	})
}
