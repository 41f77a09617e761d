package fetch_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/pithecene-io/agharvest/fetch"
	"github.com/pithecene-io/agharvest/metrics"
	"github.com/pithecene-io/agharvest/tabular"
)

const artifact = "Start Date: 2020-01-15\n" +
	"End Date: 2020-03-20\n" +
	"\n" +
	"time,mean_TRMM_3B42_precipitation\n" +
	"2020-01-15,0.12\n" +
	"2020-01-16,0.3\n"

// rewriteHost sends every request to the test server while keeping the
// original URL, so host matching sees the real host names.
type rewriteHost struct {
	target *url.URL
	mu     sync.Mutex
	seen   []string
}

func (r *rewriteHost) RoundTrip(req *http.Request) (*http.Response, error) {
	user, _, ok := req.BasicAuth()
	r.mu.Lock()
	entry := req.URL.Host + req.URL.Path
	if ok {
		entry += " auth=" + user
	}
	r.seen = append(r.seen, entry)
	r.mu.Unlock()

	out := req.Clone(req.Context())
	out.URL.Scheme = r.target.Scheme
	out.URL.Host = r.target.Host
	out.Host = req.URL.Host
	out.Header.Set("X-Original-Host", req.URL.Host)
	return http.DefaultTransport.RoundTrip(out)
}

func newAuthFlowServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/data.csv", func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("session"); err == nil && c.Value == "ok" {
			w.Write([]byte(artifact))
			return
		}
		http.Redirect(w, r, "http://urs.earthdata.nasa.gov/oauth", http.StatusFound)
	})
	mux.HandleFunc("/oauth", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "alice" || pass != "s3cret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "ok", Path: "/", Domain: "nasa.gov"})
		http.Redirect(w, r, "http://data.gesdisc.nasa.gov/data.csv", http.StatusFound)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestDownload_AuthOnlyToAuthHost(t *testing.T) {
	srv := newAuthFlowServer(t)
	target, _ := url.Parse(srv.URL)
	rt := &rewriteHost{target: target}
	m := metrics.NewCollector("giovanni", "", "", "run-1")

	d := fetch.NewDownloader(fetch.Credentials{Username: "alice", Password: "s3cret"},
		fetch.WithTransport(rt), fetch.WithMetrics(m))
	body, err := d.Download(t.Context(), "http://data.gesdisc.nasa.gov/data.csv")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if string(body) != artifact {
		t.Fatalf("body = %q", body)
	}

	want := []string{
		"data.gesdisc.nasa.gov/data.csv",
		"urs.earthdata.nasa.gov/oauth auth=alice",
		"data.gesdisc.nasa.gov/data.csv",
	}
	if diff := cmp.Diff(want, rt.seen); diff != "" {
		t.Errorf("requests mismatch (-want +got):\n%s", diff)
	}
	snap := m.Snapshot()
	if snap.BytesDownloaded != int64(len(artifact)) || snap.DownloadFailures != 0 {
		t.Errorf("metrics = %+v", snap)
	}
}

func TestDownload_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := fetch.NewDownloader(fetch.Credentials{}).Download(t.Context(), srv.URL+"/missing.csv")
	var se *fetch.StatusError
	if !errors.As(err, &se) || se.Code != http.StatusNotFound {
		t.Fatalf("err = %v, want StatusError 404", err)
	}
}

func TestSkipIndex(t *testing.T) {
	tests := []struct {
		signature string
		want      int
	}{
		{"time,", 3},
		{"End Date", 1},
		{"nope", -1},
		{"", -1},
	}
	for _, tt := range tests {
		t.Run(tt.signature, func(t *testing.T) {
			if got := fetch.SkipIndex([]byte(artifact), tt.signature); got != tt.want {
				t.Errorf("SkipIndex(%q) = %d, want %d", tt.signature, got, tt.want)
			}
		})
	}
}

func TestPrepare_Metadata(t *testing.T) {
	table, plan, err := fetch.Prepare([]byte(artifact), fetch.PrepareOptions{SkipRows: 3})
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	kv, err := plan.Metadata.KeyValues()
	if err != nil {
		t.Fatalf("KeyValues: %v", err)
	}
	if got, want := kv[tabular.KeyCSVMetadata], `{"Start Date":"2020-01-15","End Date":"2020-03-20"}`; got != want {
		t.Errorf("csv_metadata = %s, want %s", got, want)
	}
	if diff := cmp.Diff([]string{"time", "mean_TRMM_3B42_precipitation"}, table.Columns); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}
	if len(table.Rows) != 2 {
		t.Errorf("rows = %d, want 2", len(table.Rows))
	}
}

func TestPrepare_SkipSelection(t *testing.T) {
	tests := []struct {
		name string
		opts fetch.PrepareOptions
		skip int
	}{
		{"explicit wins", fetch.PrepareOptions{SkipRows: 3, SkipSignature: "End Date"}, 3},
		{"signature", fetch.PrepareOptions{SkipSignature: "time,"}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, plan, err := fetch.Prepare([]byte(artifact), tt.opts)
			if err != nil {
				t.Fatalf("Prepare: %v", err)
			}
			if plan.Skip != tt.skip {
				t.Errorf("Skip = %d, want %d", plan.Skip, tt.skip)
			}
		})
	}

	_, plan, err := fetch.Prepare([]byte("a,b\n1,2\n"), fetch.PrepareOptions{SkipSignature: "zzz"})
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if plan.Skip != -1 || len(plan.Metadata.Preamble) != 0 {
		t.Errorf("plan = %+v, want no skip and no preamble", plan)
	}
}

func TestPrepare_Rename(t *testing.T) {
	tests := []struct {
		name    string
		opts    fetch.PrepareOptions
		want    *tabular.Rename
		wantErr bool
	}{
		{"by index", fetch.PrepareOptions{SkipRows: 3, RenameTo: "precip", RenameIndex: 1},
			&tabular.Rename{Old: "mean_TRMM_3B42_precipitation", New: "precip"}, false},
		{"by old name", fetch.PrepareOptions{SkipRows: 3, RenameTo: "date", RenameFrom: "time"},
			&tabular.Rename{Old: "time", New: "date"}, false},
		{"index out of range", fetch.PrepareOptions{SkipRows: 3, RenameTo: "x", RenameIndex: 5}, nil, true},
		{"unknown old name", fetch.PrepareOptions{SkipRows: 3, RenameTo: "x", RenameFrom: "nope"}, nil, true},
		{"no rename", fetch.PrepareOptions{SkipRows: 3}, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, plan, err := fetch.Prepare([]byte(artifact), tt.opts)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Prepare: %v", err)
			}
			if diff := cmp.Diff(tt.want, plan.Rename); diff != "" {
				t.Errorf("rename mismatch (-want +got):\n%s", diff)
			}
			if tt.want != nil && table.Index(tt.want.New) < 0 {
				t.Errorf("column %q missing from %v", tt.want.New, table.Columns)
			}
		})
	}
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	table, plan, err := fetch.Prepare([]byte(artifact), fetch.PrepareOptions{
		SkipRows: 3, RenameTo: "precip", RenameIndex: fetch.DefaultRenameIndex,
	})
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	out := fetch.Outputs{
		CSVPath:     filepath.Join(dir, "out.csv"),
		CSVMetadata: true,
		ParquetPath: filepath.Join(dir, "out.parquet"),
	}
	if err := fetch.Save(table, plan, out); err != nil {
		t.Fatalf("Save: %v", err)
	}

	csv, err := os.ReadFile(out.CSVPath)
	if err != nil {
		t.Fatal(err)
	}
	if want := "time,precip\n2020-01-15,0.12\n2020-01-16,0.3\n"; string(csv) != want {
		t.Errorf("csv = %q, want %q", csv, want)
	}

	side, err := os.ReadFile(fetch.SidecarPath(out.CSVPath))
	if err != nil {
		t.Fatal(err)
	}
	wantSide := strings.Join([]string{
		"Start Date: 2020-01-15",
		"End Date: 2020-03-20",
		"",
		"time,mean_TRMM_3B42_precipitation",
		"gu_rename_old_col_name,mean_TRMM_3B42_precipitation",
		"gu_rename_new_col_name,precip",
	}, "\n") + "\n"
	if string(side) != wantSide {
		t.Errorf("sidecar = %q, want %q", side, wantSide)
	}

	pq, err := tabular.ReadParquet(out.ParquetPath)
	if err != nil {
		t.Fatalf("ReadParquet: %v", err)
	}
	if pq.Metadata[tabular.KeyGUMetadata] != `{"rename":{"old_col_name":"mean_TRMM_3B42_precipitation","new_col_name":"precip"}}` {
		t.Errorf("gu_metadata = %s", pq.Metadata[tabular.KeyGUMetadata])
	}
	if diff := cmp.Diff(out.Files(), []string{out.CSVPath, out.CSVPath + ".metadata", out.ParquetPath}); diff != "" {
		t.Errorf("Files mismatch (-want +got):\n%s", diff)
	}
}

func TestSave_NoOutputs(t *testing.T) {
	if err := fetch.Save(&tabular.Table{}, fetch.Plan{}, fetch.Outputs{}); err == nil {
		t.Fatal("expected error")
	}
}
