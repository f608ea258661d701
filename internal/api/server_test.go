package api

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tapsense-data/tapsense/internal/analysis"
	"github.com/tapsense-data/tapsense/internal/db"
	"github.com/tapsense-data/tapsense/internal/dsp"
	"github.com/tapsense-data/tapsense/internal/testutil"
	"github.com/tapsense-data/tapsense/internal/trigger"
)

// stubMeasurer returns a canned measurement without touching hardware.
type stubMeasurer struct {
	mode   trigger.TriggerMode
	result *trigger.Measurement
	err    error
	calls  int
}

func (s *stubMeasurer) ResolveMode() trigger.TriggerMode { return s.mode }

func (s *stubMeasurer) RunMeasurement(ctx context.Context) (*trigger.Measurement, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func fakeMeasurement() *trigger.Measurement {
	return &trigger.Measurement{
		Result: &analysis.Result{
			Features: dsp.FeatureSet{
				PowerDb:             -10.0,
				DominantFrequencyHz: 2004.5,
				SpectralFlatness:    1.0,
			},
			Classification: dsp.ClassificationResult{Status: dsp.StatusCrack, Confidence: 0.9},
			SampleCount:    441000,
			Complete:       true,
		},
		ResolvedMode:  trigger.ModeManual,
		EffectiveMode: trigger.ModeManual,
	}
}

func newTestServer(t *testing.T, m Measurer) (*Server, *db.DB) {
	t.Helper()
	database, err := db.NewDB(filepath.Join(t.TempDir(), "test.db"))
	testutil.AssertNoError(t, err)
	t.Cleanup(func() { database.Close() })
	return NewServer(database, m), database
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, &stubMeasurer{mode: trigger.ModeManual})

	rec := testutil.DoRequest(t, srv.ServeMux(), http.MethodGet, "/api/health", nil)
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	var payload map[string]interface{}
	testutil.DecodeJSON(t, rec, &payload)
	if payload["status"] != "ok" {
		t.Errorf("status = %v, want ok", payload["status"])
	}
	if payload["trigger_mode"] != "MANUAL" {
		t.Errorf("trigger_mode = %v, want MANUAL", payload["trigger_mode"])
	}
}

func TestHealthMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t, &stubMeasurer{mode: trigger.ModeManual})

	rec := testutil.DoRequest(t, srv.ServeMux(), http.MethodPost, "/api/health", nil)
	testutil.AssertStatusCode(t, rec.Code, http.StatusMethodNotAllowed)
}

func TestListMeasurementsEmpty(t *testing.T) {
	srv, _ := newTestServer(t, &stubMeasurer{mode: trigger.ModeManual})

	rec := testutil.DoRequest(t, srv.ServeMux(), http.MethodGet, "/api/measurements", nil)
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Errorf("empty list body = %q, want []", body)
	}
}

func TestListMeasurementsBadLimit(t *testing.T) {
	srv, _ := newTestServer(t, &stubMeasurer{mode: trigger.ModeManual})

	for _, limit := range []string{"abc", "0", "-3"} {
		rec := testutil.DoRequest(t, srv.ServeMux(), http.MethodGet, "/api/measurements?limit="+limit, nil)
		testutil.AssertStatusCode(t, rec.Code, http.StatusBadRequest)
	}
}

func TestMeasureRecordsAndReturnsMeasurement(t *testing.T) {
	stub := &stubMeasurer{mode: trigger.ModeManual, result: fakeMeasurement()}
	srv, database := newTestServer(t, stub)

	rec := testutil.DoRequest(t, srv.ServeMux(), http.MethodPost, "/api/measure", nil)
	testutil.AssertStatusCode(t, rec.Code, http.StatusCreated)
	if stub.calls != 1 {
		t.Fatalf("measurer calls = %d, want 1", stub.calls)
	}

	var m db.Measurement
	testutil.DecodeJSON(t, rec, &m)
	if m.ID == "" {
		t.Fatal("measurement response missing ID")
	}
	if m.Status != "CRACK" {
		t.Errorf("status = %q, want CRACK", m.Status)
	}

	stored, err := database.GetMeasurement(m.ID)
	testutil.AssertNoError(t, err)
	if stored.Confidence != 0.9 {
		t.Errorf("stored confidence = %v, want 0.9", stored.Confidence)
	}
}

func TestMeasureFailure(t *testing.T) {
	stub := &stubMeasurer{mode: trigger.ModeManual, err: errors.New("capture failed: device busy")}
	srv, database := newTestServer(t, stub)

	rec := testutil.DoRequest(t, srv.ServeMux(), http.MethodPost, "/api/measure", nil)
	testutil.AssertStatusCode(t, rec.Code, http.StatusInternalServerError)

	list, err := database.ListMeasurements(10)
	testutil.AssertNoError(t, err)
	if len(list) != 0 {
		t.Errorf("failed measurement must not be recorded, got %d rows", len(list))
	}
}

func TestMeasurementByID(t *testing.T) {
	stub := &stubMeasurer{mode: trigger.ModeManual, result: fakeMeasurement()}
	srv, database := newTestServer(t, stub)

	row := db.NewMeasurement(fakeMeasurement())
	testutil.AssertNoError(t, database.RecordMeasurement(row))

	rec := testutil.DoRequest(t, srv.ServeMux(), http.MethodGet, "/api/measurements/"+row.ID, nil)
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	var m db.Measurement
	testutil.DecodeJSON(t, rec, &m)
	if m.ID != row.ID {
		t.Errorf("ID = %q, want %q", m.ID, row.ID)
	}
}

func TestMeasurementByIDNotFound(t *testing.T) {
	srv, _ := newTestServer(t, &stubMeasurer{mode: trigger.ModeManual})

	rec := testutil.DoRequest(t, srv.ServeMux(), http.MethodGet, "/api/measurements/nope", nil)
	testutil.AssertStatusCode(t, rec.Code, http.StatusNotFound)
}

func TestDeleteMeasurement(t *testing.T) {
	srv, database := newTestServer(t, &stubMeasurer{mode: trigger.ModeManual})

	row := db.NewMeasurement(fakeMeasurement())
	testutil.AssertNoError(t, database.RecordMeasurement(row))

	rec := testutil.DoRequest(t, srv.ServeMux(), http.MethodDelete, "/api/measurements/"+row.ID, nil)
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	_, err := database.GetMeasurement(row.ID)
	if !errors.Is(err, db.ErrNotFound) {
		t.Errorf("after delete err = %v, want ErrNotFound", err)
	}

	rec = testutil.DoRequest(t, srv.ServeMux(), http.MethodDelete, "/api/measurements/"+row.ID, nil)
	testutil.AssertStatusCode(t, rec.Code, http.StatusNotFound)
}

func TestHistoryChartRendersHTML(t *testing.T) {
	srv, database := newTestServer(t, &stubMeasurer{mode: trigger.ModeManual})

	for i := 0; i < 3; i++ {
		testutil.AssertNoError(t, database.RecordMeasurement(db.NewMeasurement(fakeMeasurement())))
	}

	rec := testutil.DoRequest(t, srv.ServeMux(), http.MethodGet, "/charts/history", nil)
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q, want text/html", ct)
	}
	if !strings.Contains(rec.Body.String(), "Measurement History") {
		t.Error("chart body missing title")
	}
}
