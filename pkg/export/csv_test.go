package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRenderCSV(t *testing.T) {
	table := Table{
		Columns: []string{"ci", "email"},
		Rows: [][]string{
			{"S1", "ana@uni.edu"},
			{"S2", ""},
		},
	}

	out, err := RenderCSV(table)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 3)
	require.Equal(t, "ci,email", lines[0])
	require.Equal(t, "S1,ana@uni.edu", lines[1])
	require.Equal(t, "S2,", lines[2])
}

func TestRenderCSVRejectsRaggedRows(t *testing.T) {
	_, err := RenderCSV(Table{Columns: []string{"ci"}, Rows: [][]string{{"S1", "extra"}}})
	require.Error(t, err)
}

func TestRenderCSVRequiresColumns(t *testing.T) {
	_, err := RenderCSV(Table{})
	require.Error(t, err)
}
