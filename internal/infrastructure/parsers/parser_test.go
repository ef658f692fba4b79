package parsers

import (
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForFormat(t *testing.T) {
	assert.IsType(t, &JSONParser{}, ForFormat("json"))
	assert.IsType(t, &JSONParser{}, ForFormat("JSON"))
	assert.IsType(t, &CSVParser{}, ForFormat("csv"))
	assert.Nil(t, ForFormat("yaml"))
}

func TestForFile(t *testing.T) {
	assert.IsType(t, &JSONParser{}, ForFile("strings.json"))
	assert.IsType(t, &CSVParser{}, ForFile("export.CSV"))
	assert.Nil(t, ForFile("strings.po"))
}

func TestJSONParser_ParseArray(t *testing.T) {
	input := `[
		{"key": "greeting.hello", "source_text": "Hello", "notes": "main menu"},
		{"key": "greeting.bye", "source_text": "Goodbye"}
	]`

	units, err := (&JSONParser{}).Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, units, 2)
	assert.Equal(t, "greeting.hello", units[0].Key)
	assert.Equal(t, "Hello", units[0].SourceText)
	assert.Equal(t, "main menu", units[0].Notes)
	assert.Equal(t, 1, units[0].LineNum)
	assert.Equal(t, "greeting.bye", units[1].Key)
}

func TestJSONParser_ParseArray_EmptyKey(t *testing.T) {
	input := `[{"key": "", "source_text": "Hello"}]`

	_, err := (&JSONParser{}).Parse(strings.NewReader(input))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty key")
}

func TestJSONParser_ParseFlatCatalog(t *testing.T) {
	input := `{"greeting.hello": "Hello", "greeting.bye": "Goodbye"}`

	units, err := (&JSONParser{}).Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, units, 2)

	sort.Slice(units, func(i, j int) bool { return units[i].Key < units[j].Key })
	assert.Equal(t, "greeting.bye", units[0].Key)
	assert.Equal(t, "Goodbye", units[0].SourceText)
	assert.Equal(t, "greeting.hello", units[1].Key)
	assert.Equal(t, "Hello", units[1].SourceText)
}

func TestJSONParser_ParseInvalid(t *testing.T) {
	_, err := (&JSONParser{}).Parse(strings.NewReader(`not json`))
	require.Error(t, err)
}

func TestCSVParser_Parse(t *testing.T) {
	input := "key,source_text,notes\n" +
		"greeting.hello,Hello,main menu\n" +
		"greeting.bye,Goodbye,\n"

	units, err := (&CSVParser{}).Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, units, 2)
	assert.Equal(t, "greeting.hello", units[0].Key)
	assert.Equal(t, "Hello", units[0].SourceText)
	assert.Equal(t, "main menu", units[0].Notes)
	assert.Equal(t, 2, units[0].LineNum)
	assert.Equal(t, "", units[1].Notes)
	assert.Equal(t, 3, units[1].LineNum)
}

func TestCSVParser_Parse_NotesColumnOptional(t *testing.T) {
	input := "key,source_text\ngreeting.hello,Hello\n"

	units, err := (&CSVParser{}).Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, "", units[0].Notes)
}

func TestCSVParser_Parse_MissingRequiredColumn(t *testing.T) {
	input := "key,notes\ngreeting.hello,main menu\n"

	_, err := (&CSVParser{}).Parse(strings.NewReader(input))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required column: source_text")
}

func TestCSVParser_Parse_EmptyKey(t *testing.T) {
	input := "key,source_text\n,Hello\n"

	_, err := (&CSVParser{}).Parse(strings.NewReader(input))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2: empty key")
}
