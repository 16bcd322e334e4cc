package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/horkydorky/Earth-Pulse/common"
)

// runCLI executes the root command with a throwaway config file.
func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "config.yaml")}, args...))
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

type recordingServer struct {
	mu    sync.Mutex
	paths []string
}

func (s *recordingServer) record(r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paths = append(s.paths, r.URL.Path)
}

func (s *recordingServer) hits() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.paths...)
}

func newServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *recordingServer) {
	t.Helper()
	rec := &recordingServer{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.record(r)
		handler(w, r)
	}))
	t.Cleanup(ts.Close)
	return ts, rec
}

func TestVersionCmd(t *testing.T) {
	stdout, _, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "earthpulse dev (commit: none, built: unknown)\n", stdout)
}

func TestIndicatorCmd(t *testing.T) {
	var gotQuery string
	ts, rec := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		fmt.Fprint(w, `{"year":2015,"region":"everest_region","average_ndvi":0.62,"source":"modis"}`)
	})

	stdout, _, err := runCLI(t, "--base-url", ts.URL, "--region", "everest_region", "indicator", "ndvi", "2015")
	require.NoError(t, err)
	assert.Equal(t, []string{"/api/v1/environmental/ndvi/2015"}, rec.hits())
	assert.Equal(t, "region=everest_region", gotQuery)

	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, 0.62, out["average_ndvi"])
}

func TestIndicatorCmd_BadArgs(t *testing.T) {
	_, _, err := runCLI(t, "indicator", "rainfall", "2015")
	assert.ErrorContains(t, err, "unknown indicator")

	_, _, err = runCLI(t, "indicator", "ndvi", "last-year")
	assert.ErrorContains(t, err, "invalid year")
}

func TestIndicatorCmd_HTTPError(t *testing.T) {
	ts, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, _, err := runCLI(t, "--base-url", ts.URL, "summary", "2020")
	var httpErr *common.HTTPError
	require.True(t, errors.As(err, &httpErr), "got %v", err)
	assert.Equal(t, http.StatusServiceUnavailable, httpErr.StatusCode)
}

func TestDashboardCmd(t *testing.T) {
	ts, rec := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"year":2020,"region":"nepal_himalayas"}`)
	})

	stdout, _, err := runCLI(t, "--base-url", ts.URL, "dashboard", "2020")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"/api/v1/environmental/ndvi/2020",
		"/api/v1/environmental/glacier/2020",
		"/api/v1/environmental/urban/2020",
		"/api/v1/environmental/temperature/2020",
	}, rec.hits())

	var view struct {
		Indicators map[string]any `json:"indicators"`
		Cache      struct {
			Size int      `json:"size"`
			Keys []string `json:"keys"`
		} `json:"cache"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &view))
	assert.Len(t, view.Indicators, 4)
	assert.Equal(t, 4, view.Cache.Size)
	assert.Contains(t, view.Cache.Keys, "urban_2020_nepal_himalayas")
}

func TestCompareCmd_Flags(t *testing.T) {
	var gotQuery string
	ts, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		fmt.Fprint(w, `[]`)
	})

	_, _, err := runCLI(t, "--base-url", ts.URL, "compare", "glacier", "--start", "2005", "--end", "2015", "--intermediate")
	require.NoError(t, err)
	assert.Equal(t, "end_year=2015&include_intermediate=true&indicator=glacier&region=nepal_himalayas&start_year=2005", gotQuery)
}

func TestExportCmd_ToFile(t *testing.T) {
	const csvBody = "Year,ndvi_value\n2000,0.55\n"
	ts, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", "attachment; filename=environmental_data.csv")
		fmt.Fprint(w, csvBody)
	})
	out := filepath.Join(t.TempDir(), "export.csv")

	stdout, _, err := runCLI(t, "--base-url", ts.URL, "export", "--format", "csv", "--indicators", "ndvi", "--out", out)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, csvBody, string(data))

	var summary exportSummary
	require.NoError(t, json.Unmarshal([]byte(stdout), &summary))
	assert.Equal(t, "environmental_data.csv", summary.Filename)
	assert.Equal(t, len(csvBody), summary.Bytes)
}

func TestExportCmd_BadFormat(t *testing.T) {
	_, _, err := runCLI(t, "export", "--format", "pdf")
	assert.ErrorContains(t, err, "unknown export format")
}

func TestStatsFlag(t *testing.T) {
	ts, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"api_version":"v1"}`)
	})

	_, stderr, err := runCLI(t, "--base-url", ts.URL, "--stats", "info")
	require.NoError(t, err)
	assert.True(t, strings.Contains(stderr, "info (n=1)"), "stderr: %s", stderr)
}

func TestParseYear(t *testing.T) {
	tests := []struct {
		input string
		want  int
		err   bool
	}{
		{"2020", 2020, false},
		{"1999", 1999, false},
		{"0", 0, true},
		{"-5", 0, true},
		{"twenty", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := parseYear(tt.input)
		if tt.err {
			if err == nil {
				t.Errorf("parseYear(%q): expected error, got %v", tt.input, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseYear(%q): unexpected error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseYear(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestBaseURLOverrideIsValidated(t *testing.T) {
	tests := []struct {
		url     string
		wantErr string
	}{
		{"ftp://pulse.example.org", "scheme must be http or https"},
		{"http://", "missing host"},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			_, _, err := runCLI(t, "--base-url", tt.url, "info")
			assert.ErrorContains(t, err, "--base-url")
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestHealthCmd(t *testing.T) {
	ts, rec := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"healthy","timestamp":"2024-01-01T01:01:01","services":{"database":"mock"}}`)
	})

	stdout, _, err := runCLI(t, "--base-url", ts.URL, "health")
	require.NoError(t, err)
	assert.Equal(t, []string{"/health"}, rec.hits())

	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, "healthy", out["status"])
}

func TestReportCmd_Download(t *testing.T) {
	const pdf = "%PDF-1.4\n%%EOF\n"
	ts, rec := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/reports/generate":
			fmt.Fprint(w, `{"report_id":"ENV_REPORT_nepal_himalayas_2020","status":"completed",`+
				`"download_url":"/api/v1/reports/download/ENV_REPORT_nepal_himalayas_2020"}`)
		case "/api/v1/reports/download/ENV_REPORT_nepal_himalayas_2020":
			w.Header().Set("Content-Type", "application/pdf")
			w.Header().Set("Content-Disposition", "attachment; filename=ENV_REPORT_nepal_himalayas_2020.pdf")
			io.WriteString(w, pdf)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	out := filepath.Join(t.TempDir(), "report.pdf")

	stdout, _, err := runCLI(t, "--base-url", ts.URL, "report", "--year", "2020", "--download", "--out", out)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"/api/v1/reports/generate",
		"/api/v1/reports/download/ENV_REPORT_nepal_himalayas_2020",
	}, rec.hits())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, pdf, string(data))

	var summary downloadSummary
	require.NoError(t, json.Unmarshal([]byte(stdout), &summary))
	assert.Equal(t, "ENV_REPORT_nepal_himalayas_2020.pdf", summary.Filename)
	assert.Equal(t, out, summary.Path)
	assert.Equal(t, len(pdf), summary.Bytes)
}

func TestReportCmd_WithoutDownload(t *testing.T) {
	ts, rec := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"report_id":"r1","status":"completed","download_url":"/api/v1/reports/download/r1"}`)
	})

	stdout, _, err := runCLI(t, "--base-url", ts.URL, "report")
	require.NoError(t, err)
	assert.Equal(t, []string{"/api/v1/reports/generate"}, rec.hits())
	assert.Contains(t, stdout, `"download_url"`)
}
