package ingest

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseCSV(t *testing.T) {
	t.Run("test quoted commas and escaped quotes", func(t *testing.T) {
		rows := ParseCSV("\"a,b\",\"c\"\"d\",e\nf,g,h")

		require.Equal(t, [][]string{{"a,b", `c"d`, "e"}, {"f", "g", "h"}}, rows)
	})

	t.Run("test newline inside quoted field", func(t *testing.T) {
		rows := ParseCSV("name,note\n\"Bob\",\"line1\nline2\"")

		require.Len(t, rows, 2)
		require.Equal(t, []string{"name", "note"}, rows[0])
		require.Equal(t, "Bob", rows[1][0])
		require.Equal(t, "line1\nline2", rows[1][1])
	})

	t.Run("test crlf line endings", func(t *testing.T) {
		rows := ParseCSV("a,b\r\nc,d\r\n")

		require.Equal(t, [][]string{{"a", "b"}, {"c", "d"}}, rows)
	})

	t.Run("test crlf inside quoted field keeps plain newline", func(t *testing.T) {
		rows := ParseCSV("x\r\n\"one\r\ntwo\"\r\n")

		require.Equal(t, [][]string{{"x"}, {"one\ntwo"}}, rows)
	})

	t.Run("test blank lines are skipped", func(t *testing.T) {
		rows := ParseCSV("a,b\n\n   \nc,d\n\n")

		require.Equal(t, [][]string{{"a", "b"}, {"c", "d"}}, rows)
	})

	t.Run("test blank line inside quotes is kept", func(t *testing.T) {
		rows := ParseCSV("\"p1\n\np2\",x")

		require.Equal(t, [][]string{{"p1\n\np2", "x"}}, rows)
	})

	t.Run("test cells are trimmed", func(t *testing.T) {
		rows := ParseCSV("  a  ,  \"b\"  ,c ")

		require.Equal(t, [][]string{{"a", "b", "c"}}, rows)
	})

	t.Run("test empty cells", func(t *testing.T) {
		rows := ParseCSV("a,,\"\",d")

		require.Equal(t, [][]string{{"a", "", "", "d"}}, rows)
	})

	t.Run("test ragged rows pass through", func(t *testing.T) {
		rows := ParseCSV("a,b,c\n1\n1,2,3,4")

		require.Equal(t, [][]string{{"a", "b", "c"}, {"1"}, {"1", "2", "3", "4"}}, rows)
	})

	t.Run("test unterminated quote flushes buffered row", func(t *testing.T) {
		rows := ParseCSV("a,b\n\"open,c\nmore")

		require.Len(t, rows, 2)
		require.Equal(t, []string{"a", "b"}, rows[0])
		require.Equal(t, []string{"\"open,c\nmore"}, rows[1])
	})

	t.Run("test empty input", func(t *testing.T) {
		require.Empty(t, ParseCSV(""))
		require.Empty(t, ParseCSV("\n\r\n  \n"))
	})
}

func TestSerialize(t *testing.T) {
	t.Run("test round trip", func(t *testing.T) {
		rows := [][]string{
			{"title", "note", "code"},
			{"a,b", `c"d`, "e"},
			{"multi\nline", " padded ", ""},
			{""},
		}

		require.Equal(t, rows, ParseCSV(Serialize(rows)))
	})

	t.Run("test plain cells stay unquoted", func(t *testing.T) {
		require.Equal(t, "a,b\nc,d", Serialize([][]string{{"a", "b"}, {"c", "d"}}))
	})

	t.Run("test quotes are doubled", func(t *testing.T) {
		require.Equal(t, `"say ""hi""",x`, Serialize([][]string{{`say "hi"`, "x"}}))
	})
}
