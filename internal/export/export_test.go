// export_test.go - Tests for the CSV and msgpack export boundary
package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/pointtable/backend/internal/models"
)

func sampleTable() *models.GeneratedTable {
	return &models.GeneratedTable{
		Kind:    models.TableKindPLC,
		Columns: []string{"Tag", "Address", "Comment"},
		Rows: [][]string{
			{"PT-101_AI_0_0", "100", "Pressure transmitter"},
			{"XV-201_DO_0_0", "20000", "Valve, with comma"},
		},
	}
}

func TestWriteCSV(t *testing.T) {
	t.Run("header and rows", func(t *testing.T) {
		var buf bytes.Buffer
		if err := WriteCSV(&buf, sampleTable()); err != nil {
			t.Fatalf("WriteCSV failed: %v", err)
		}
		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		if len(lines) != 3 {
			t.Fatalf("lines = %d, want 3", len(lines))
		}
		if lines[0] != "Tag,Address,Comment" {
			t.Errorf("header = %q", lines[0])
		}
		if !strings.Contains(lines[2], `"Valve, with comma"`) {
			t.Errorf("comma cell not quoted: %q", lines[2])
		}
	})

	t.Run("deterministic output", func(t *testing.T) {
		var a, b bytes.Buffer
		if err := WriteCSV(&a, sampleTable()); err != nil {
			t.Fatalf("WriteCSV failed: %v", err)
		}
		if err := WriteCSV(&b, sampleTable()); err != nil {
			t.Fatalf("WriteCSV failed: %v", err)
		}
		if !bytes.Equal(a.Bytes(), b.Bytes()) {
			t.Error("two exports of the same table differ")
		}
	})

	t.Run("ragged row rejected", func(t *testing.T) {
		tbl := sampleTable()
		tbl.Rows[1] = []string{"only-one-cell"}
		var buf bytes.Buffer
		if err := WriteCSV(&buf, tbl); err == nil {
			t.Error("expected error for row not matching schema")
		}
	})
}

func TestMsgpackRoundTrip(t *testing.T) {
	tbl := sampleTable()
	data, err := EncodeMsgpack(tbl)
	if err != nil {
		t.Fatalf("EncodeMsgpack failed: %v", err)
	}

	got, err := DecodeMsgpack(data)
	if err != nil {
		t.Fatalf("DecodeMsgpack failed: %v", err)
	}
	if got.Kind != tbl.Kind || len(got.Rows) != len(tbl.Rows) {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if got.Rows[1][2] != "Valve, with comma" {
		t.Errorf("cell = %q", got.Rows[1][2])
	}
}

func TestFileName(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	project := models.ProjectInfo{ProjectNo: "P-2031/rev A"}
	got := FileName(project, models.TableKindHMIReal, at)
	if got != "P-2031_rev_A_hmi_real_20260314_093000.csv" {
		t.Errorf("FileName = %s", got)
	}

	got = FileName(models.ProjectInfo{}, models.TableKindPLC, at)
	if !strings.HasPrefix(got, "project_plc_") {
		t.Errorf("FileName = %s", got)
	}
}
