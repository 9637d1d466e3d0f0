package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCSVExporterRendersStableColumns(t *testing.T) {
	exporter := NewCSVExporter()
	out, err := exporter.Render(Dataset{
		Headers: []string{"id", "status", "department"},
		Rows: []map[string]string{
			{"id": "sub-1", "status": "pending", "department": "Engineering"},
			{"id": "sub-2", "status": "approved"},
		},
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 3)
	require.Equal(t, "id,status,department", lines[0])
	require.Equal(t, "sub-1,pending,Engineering", lines[1])
	// Missing cells render empty instead of failing the export.
	require.Equal(t, "sub-2,approved,", lines[2])
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	exporter := NewCSVExporter()
	_, err := exporter.Render(Dataset{})
	require.Error(t, err)
}
