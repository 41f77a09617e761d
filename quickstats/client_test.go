package quickstats_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/pithecene-io/agharvest/quickstats"
	"github.com/pithecene-io/agharvest/tabular"
)

func newServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*quickstats.Client, *[]url.Values) {
	t.Helper()
	var queries []url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queries = append(queries, r.URL.Query())
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return quickstats.NewClient("k3y", quickstats.WithBaseURL(srv.URL+"/api")), &queries
}

func TestParseCondition(t *testing.T) {
	tests := []struct {
		token   string
		want    quickstats.Condition
		ok      bool
		wantErr bool
	}{
		{"year;__GE;2010", quickstats.Condition{Field: "year", Operator: quickstats.OpGE, Value: "2010"}, true, false},
		{"commodity_desc;;CORN", quickstats.Condition{Field: "commodity_desc", Value: "CORN"}, true, false},
		{"state_alpha;__ne;IA", quickstats.Condition{Field: "state_alpha", Operator: quickstats.OpNE, Value: "IA"}, true, false},
		{"year=2010", quickstats.Condition{}, false, false},
		{"a;b;c;d", quickstats.Condition{}, false, false},
		{"year;__BETWEEN;1", quickstats.Condition{}, false, true},
		{";;x", quickstats.Condition{}, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got, ok, err := quickstats.ParseCondition(tt.token)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if ok != tt.ok || got != tt.want {
				t.Errorf("ParseCondition(%q) = %+v, %v; want %+v, %v", tt.token, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestParameters(t *testing.T) {
	ps := quickstats.Parameters()
	if len(ps) != 37 {
		t.Fatalf("len(Parameters) = %d, want 37", len(ps))
	}
	if _, err := quickstats.ParseParameter("commodity_desc"); err != nil {
		t.Errorf("ParseParameter: %v", err)
	}
	if _, err := quickstats.ParseParameter("colour"); err == nil {
		t.Error("expected error for unknown parameter")
	}
}

func TestParamValues(t *testing.T) {
	c, queries := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/get_param_values/" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`{"commodity_desc":["CORN","SOYBEANS"]}`))
	})
	conds := []quickstats.Condition{{Field: "year", Operator: quickstats.OpGE, Value: "2010"}}
	got, err := c.ParamValues(t.Context(), "commodity_desc", conds)
	if err != nil {
		t.Fatalf("ParamValues: %v", err)
	}
	if diff := cmp.Diff([]string{"CORN", "SOYBEANS"}, got); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
	want := url.Values{"key": {"k3y"}, "param": {"commodity_desc"}, "year__GE": {"2010"}}
	if diff := cmp.Diff(want, (*queries)[0]); diff != "" {
		t.Errorf("query mismatch (-want +got):\n%s", diff)
	}
}

func TestCount(t *testing.T) {
	c, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"count": 4213}`))
	})
	n, err := c.Count(t.Context(), nil)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 4213 {
		t.Errorf("Count = %d, want 4213", n)
	}
}

func TestData(t *testing.T) {
	c, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[
			{"year": 2020, "state_alpha": "IA", "Value": "2,296,200"},
			{"year": 2021, "state_alpha": "NE", "Value": "1,900", "CV (%)": 1.5}
		]}`))
	})
	got, err := c.Data(t.Context(), nil)
	if err != nil {
		t.Fatalf("Data: %v", err)
	}
	want := &tabular.Table{
		Columns: []string{"year", "state_alpha", "Value", "CV (%)"},
		Rows: [][]any{
			{int64(2020), "IA", "2,296,200", nil},
			{int64(2021), "NE", "1,900", 1.5},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("table mismatch (-want +got):\n%s", diff)
	}
}

func TestAPIError(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"error envelope", http.StatusOK, `{"error":["exceeds limit=50000"]}`},
		{"bad request", http.StatusBadRequest, `{"error":["bad request - invalid query"]}`},
		{"server error", http.StatusInternalServerError, `oops`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			_, err := c.Count(t.Context(), nil)
			var apiErr *quickstats.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("err = %v, want APIError", err)
			}
			if apiErr.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, tt.status)
			}
		})
	}
}

func TestNoAPIKey(t *testing.T) {
	_, err := quickstats.NewClient("").Count(t.Context(), nil)
	if !errors.Is(err, quickstats.ErrNoAPIKey) {
		t.Fatalf("err = %v, want ErrNoAPIKey", err)
	}
}
