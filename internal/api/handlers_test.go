// handlers_test.go - HTTP handler tests
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pointtable/backend/internal/catalog"
	"github.com/pointtable/backend/internal/export"
	"github.com/pointtable/backend/internal/models"
	"github.com/pointtable/backend/internal/run"
	"github.com/pointtable/backend/internal/schema"
	"github.com/pointtable/backend/internal/storage"
	"github.com/pointtable/backend/internal/table"
	"github.com/pointtable/backend/internal/testutil"
	"github.com/pointtable/backend/internal/upload"
)

type testServer struct {
	echo   *echo.Echo
	runMgr *run.Manager
	jobs   *upload.Manager
	store  storage.Store
}

func newTestServer(t *testing.T, source EntrySource) *testServer {
	t.Helper()

	cat := catalog.NewDefault()
	tpls, err := table.NewTemplateRegistry()
	require.NoError(t, err)

	runMgr := run.NewManager(cat, tpls, nil)
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	jobs := upload.NewManager(store, nil)

	e := echo.New()
	SetupMiddleware(e)
	handlers := NewHandlers(&Dependencies{
		Registry:    schema.NewDefaultRegistry(),
		Catalog:     cat,
		RunMgr:      runMgr,
		ExportJobs:  jobs,
		ExportStore: store,
		EntrySource: source,
		MainEntryID: "entry-main",
		Version:     "test",
	})
	RegisterRoutes(e, handlers)
	RegisterWebSocketRoutes(e, handlers)

	return &testServer{echo: e, runMgr: runMgr, jobs: jobs, store: store}
}

func (ts *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	ts.echo.ServeHTTP(rec, req)
	return rec
}

func equipmentPayload() []map[string]any {
	return []map[string]any{
		{"equipment_id": "PT-101", "equipment_name": "Pressure transmitter",
			"station": "North", "ai_count": 2, "range_low": 0, "range_high": 16},
		{"equipment_id": "XV-201", "equipment_name": "Valve",
			"di_count": 2, "do_count": 1},
	}
}

func projectPayload() map[string]any {
	return map[string]any{"project_name": "Plant North", "project_no": "P-2031"}
}

func (ts *testServer) startRun(t *testing.T, kinds []models.TableKind) string {
	t.Helper()
	rec := ts.do(http.MethodPost, "/api/runs", map[string]any{
		"project": projectPayload(),
		"items":   equipmentPayload(),
		"kinds":   kinds,
	})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var started models.GenerationRun
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &started))
	require.NotEmpty(t, started.ID)

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		r, ok := ts.runMgr.GetRun(started.ID)
		require.True(t, ok)
		if r.Status == models.RunStatusComplete {
			return started.ID
		}
		require.NotEqual(t, models.RunStatusError, r.Status, r.Error)
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("run did not complete")
	return ""
}

func TestHandleHealth(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, body["catalogVersion"])
}

func TestHandleListFields(t *testing.T) {
	ts := newTestServer(t, nil)

	t.Run("equipment set by default", func(t *testing.T) {
		rec := ts.do(http.MethodGet, "/api/schema/fields", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Set    string                   `json:"set"`
			Fields []schema.FieldDefinition `json:"fields"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, schema.SetEquipment, body.Set)
		assert.NotEmpty(t, body.Fields)
	})

	t.Run("unknown set", func(t *testing.T) {
		rec := ts.do(http.MethodGet, "/api/schema/fields?set=bogus", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHandleListModels(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(http.MethodGet, "/api/catalog/models", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Version string                 `json:"version"`
		Models  []catalog.ChannelModel `json:"models"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Version)
	assert.Len(t, body.Models, 4)

	rec = ts.do(http.MethodGet, "/api/catalog/models?class=AI", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Models, 1)
	assert.Equal(t, models.SignalClassAI, body.Models[0].Class)

	rec = ts.do(http.MethodGet, "/api/catalog/models?class=XX", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleDecodeEquipment(t *testing.T) {
	ts := newTestServer(t, nil)

	t.Run("valid payload", func(t *testing.T) {
		rec := ts.do(http.MethodPost, "/api/equipment/decode", map[string]any{
			"project": projectPayload(),
			"items":   equipmentPayload(),
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var body decodedEquipmentResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "P-2031", body.Project.ProjectNo)
		require.Len(t, body.Items, 2)
		assert.Equal(t, 5, body.TotalPoints)
		assert.Equal(t, 2, body.Items[0].Counts[models.SignalClassAI])
	})

	t.Run("missing required field", func(t *testing.T) {
		rec := ts.do(http.MethodPost, "/api/equipment/decode", map[string]any{
			"items": []map[string]any{{"equipment_id": "PT-101"}},
		})
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

		var apiErr APIError
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
		assert.Equal(t, models.CodeSchemaMismatch, apiErr.Code)
	})

	t.Run("fractional point count", func(t *testing.T) {
		rec := ts.do(http.MethodPost, "/api/equipment/decode", map[string]any{
			"items": []map[string]any{{"equipment_name": "Pump", "ai_count": 1.5}},
		})
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

		var apiErr APIError
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
		assert.Equal(t, models.CodeInvalidRequirement, apiErr.Code)
	})

	t.Run("empty items", func(t *testing.T) {
		rec := ts.do(http.MethodPost, "/api/equipment/decode", map[string]any{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandleStartRun_Validation(t *testing.T) {
	ts := newTestServer(t, nil)

	t.Run("unknown table kind", func(t *testing.T) {
		rec := ts.do(http.MethodPost, "/api/runs", map[string]any{
			"items": equipmentPayload(),
			"kinds": []string{"excel"},
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("no items", func(t *testing.T) {
		rec := ts.do(http.MethodPost, "/api/runs", map[string]any{
			"kinds": []models.TableKind{models.TableKindPLC},
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("fractional count rejected at decode", func(t *testing.T) {
		rec := ts.do(http.MethodPost, "/api/runs", map[string]any{
			"items": []map[string]any{{"equipment_name": "Pump", "ai_count": 1.5}},
			"kinds": []models.TableKind{models.TableKindPLC},
		})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestRunLifecycleOverHTTP(t *testing.T) {
	ts := newTestServer(t, nil)
	runID := ts.startRun(t, []models.TableKind{models.TableKindPLC, models.TableKindFAT})

	t.Run("status", func(t *testing.T) {
		rec := ts.do(http.MethodGet, "/api/runs/"+runID+"/status", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var r models.GenerationRun
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &r))
		assert.Equal(t, models.RunStatusComplete, r.Status)
		assert.Equal(t, 5, r.AssignmentCount)
		assert.Equal(t, "P-2031", r.Project.ProjectNo)
	})

	t.Run("keepalive", func(t *testing.T) {
		rec := ts.do(http.MethodPost, "/api/runs/"+runID+"/keepalive", nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("assignments", func(t *testing.T) {
		rec := ts.do(http.MethodGet, "/api/runs/"+runID+"/assignments", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Count       int                        `json:"count"`
			Assignments []models.ChannelAssignment `json:"assignments"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, 5, body.Count)
		assert.Equal(t, "PT-101_AI_0_0", body.Assignments[0].Tag)
	})

	t.Run("assignments filtered by class", func(t *testing.T) {
		rec := ts.do(http.MethodGet, "/api/runs/"+runID+"/assignments?class=DO", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Count int `json:"count"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, 1, body.Count)
	})

	t.Run("table json", func(t *testing.T) {
		rec := ts.do(http.MethodGet, "/api/runs/"+runID+"/tables/plc", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var tbl models.GeneratedTable
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tbl))
		assert.Equal(t, models.TableKindPLC, tbl.Kind)
		// 5 base points plus 10 extension points per analog channel.
		assert.Equal(t, 25, tbl.RowCount())
	})

	t.Run("table msgpack", func(t *testing.T) {
		rec := ts.do(http.MethodGet, "/api/runs/"+runID+"/tables/fat/msgpack", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/x-msgpack", rec.Header().Get(echo.HeaderContentType))

		tbl, err := export.DecodeMsgpack(rec.Body.Bytes())
		require.NoError(t, err)
		assert.Equal(t, models.TableKindFAT, tbl.Kind)
		assert.Equal(t, 5, tbl.RowCount())
	})

	t.Run("table csv download", func(t *testing.T) {
		rec := ts.do(http.MethodGet, "/api/runs/"+runID+"/tables/plc/csv", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "P-2031_plc_")
		assert.Contains(t, rec.Body.String(), "PT-101_AI_0_0")
	})

	t.Run("ungenerated kind", func(t *testing.T) {
		rec := ts.do(http.MethodGet, "/api/runs/"+runID+"/tables/hmi_bool", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("unknown kind", func(t *testing.T) {
		rec := ts.do(http.MethodGet, "/api/runs/"+runID+"/tables/excel", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("delete", func(t *testing.T) {
		rec := ts.do(http.MethodDelete, "/api/runs/"+runID, nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = ts.do(http.MethodGet, "/api/runs/"+runID+"/status", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestRunNotFound(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(http.MethodGet, "/api/runs/missing/status", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var apiErr APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	assert.Equal(t, "NOT_FOUND", apiErr.Code)
}

func TestExportFlow(t *testing.T) {
	ts := newTestServer(t, nil)
	runID := ts.startRun(t, []models.TableKind{models.TableKindPLC})

	rec := ts.do(http.MethodPost, "/api/runs/"+runID+"/exports", map[string]any{"kind": "plc"})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var job upload.Job
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	require.NotEmpty(t, job.ID)

	var final upload.Job
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		rec := ts.do(http.MethodGet, "/api/exports/jobs/"+job.ID, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &final))
		if final.Status == upload.StatusComplete || final.Status == upload.StatusError {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	require.Equal(t, upload.StatusComplete, final.Status, final.Error)
	require.NotNil(t, final.Export)

	t.Run("recent exports", func(t *testing.T) {
		rec := ts.do(http.MethodGet, "/api/exports/recent", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Exports []models.ExportFile `json:"exports"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Len(t, body.Exports, 1)
		assert.Equal(t, final.Export.ID, body.Exports[0].ID)
	})

	t.Run("download", func(t *testing.T) {
		rec := ts.do(http.MethodGet, "/api/exports/"+final.Export.ID+"/download", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "PT-101_AI_0_0")
	})

	t.Run("delete", func(t *testing.T) {
		rec := ts.do(http.MethodDelete, "/api/exports/"+final.Export.ID, nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = ts.do(http.MethodGet, "/api/exports/"+final.Export.ID+"/download", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("unknown job", func(t *testing.T) {
		rec := ts.do(http.MethodGet, "/api/exports/jobs/missing", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestRecentExportsStorageFailure(t *testing.T) {
	cat := catalog.NewDefault()
	tpls, err := table.NewTemplateRegistry()
	require.NoError(t, err)

	mock := testutil.NewMockStorage()
	mock.ListErr = fmt.Errorf("disk unavailable")

	e := echo.New()
	SetupMiddleware(e)
	handlers := NewHandlers(&Dependencies{
		Registry:    schema.NewDefaultRegistry(),
		Catalog:     cat,
		RunMgr:      run.NewManager(cat, tpls, nil),
		ExportJobs:  upload.NewManager(mock, nil),
		ExportStore: mock,
		Version:     "test",
	})
	RegisterRoutes(e, handlers)
	ts := &testServer{echo: e}

	rec := ts.do(http.MethodGet, "/api/exports/recent", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var apiErr APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	assert.Equal(t, "INTERNAL_ERROR", apiErr.Code)
}

type fakeEntrySource struct {
	entryID string
	entries []map[string]any
	err     error
}

func (f *fakeEntrySource) ListEntries(ctx context.Context, entryID string, filter map[string]any) ([]map[string]any, error) {
	f.entryID = entryID
	return f.entries, f.err
}

func TestHandleFetchEquipment(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		ts := newTestServer(t, nil)
		rec := ts.do(http.MethodPost, "/api/equipment/fetch", map[string]any{})
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("fetch and decode", func(t *testing.T) {
		source := &fakeEntrySource{entries: equipmentPayload()}
		ts := newTestServer(t, source)

		rec := ts.do(http.MethodPost, "/api/equipment/fetch", map[string]any{})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "entry-main", source.entryID)

		var body decodedEquipmentResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Len(t, body.Items, 2)
		assert.Equal(t, 5, body.TotalPoints)
	})

	t.Run("explicit entry id", func(t *testing.T) {
		source := &fakeEntrySource{entries: equipmentPayload()}
		ts := newTestServer(t, source)

		rec := ts.do(http.MethodPost, "/api/equipment/fetch", map[string]any{"entryId": "entry-42"})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "entry-42", source.entryID)
	})

	t.Run("remote failure", func(t *testing.T) {
		ts := newTestServer(t, &fakeEntrySource{err: fmt.Errorf("boom")})
		rec := ts.do(http.MethodPost, "/api/equipment/fetch", map[string]any{})
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
