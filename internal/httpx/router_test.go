package httpx

import (
	"encoding/json"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/AngelCh415/fakestat/internal/metrics"
	"github.com/AngelCh415/fakestat/internal/models"
	"github.com/AngelCh415/fakestat/internal/preset"
	"github.com/AngelCh415/fakestat/internal/store"
)

type fixture struct {
	st  *store.MemoryStore
	srv http.Handler
}

func newFixture(t *testing.T, staticDir string) fixture {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := store.NewMemoryStore(store.WithRand(rand.New(rand.NewSource(1))))
	st.LoadSample()
	return fixture{
		st: st,
		srv: NewRouter(log, Deps{
			Store:     st,
			Stats:     metrics.NewService(st),
			Preset:    preset.NewGenerator(log, preset.WithRand(rand.New(rand.NewSource(2)))),
			StaticDir: staticDir,
		}),
	}
}

func (f fixture) do(method, path, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	rr := httptest.NewRecorder()
	f.srv.ServeHTTP(rr, httptest.NewRequest(method, path, r))
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func TestHealth(t *testing.T) {
	f := newFixture(t, "")
	if rr := f.do(http.MethodGet, "/healthz", ""); rr.Code != 200 || rr.Body.String() != "ok" {
		t.Fatalf("healthz = %d %q", rr.Code, rr.Body.String())
	}
	if rr := f.do(http.MethodGet, "/healthz", ""); rr.Header().Get("X-Request-ID") == "" {
		t.Fatal("missing X-Request-ID")
	}
}

func TestListAndSummary(t *testing.T) {
	f := newFixture(t, "")

	rr := f.do(http.MethodGet, "/api/stats?sort=name", "")
	if rr.Code != 200 {
		t.Fatalf("status = %d", rr.Code)
	}
	rows := decode[[]models.TrafficStat](t, rr)
	if len(rows) != 2 || rows[0].Name != "AAA" {
		t.Fatalf("rows = %+v", rows)
	}

	sum := decode[models.Summary](t, f.do(http.MethodGet, "/api/stats/summary", ""))
	if sum.Records != 2 || sum.SuccessfulLeads != 4 {
		t.Fatalf("summary = %+v", sum)
	}
}

func TestCreate(t *testing.T) {
	f := newFixture(t, "")

	rr := f.do(http.MethodPost, "/api/stats", `{"name":"X","successful_leads":8,"total_ftds":2}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d body = %s", rr.Code, rr.Body.String())
	}
	got := decode[models.TrafficStat](t, rr)
	if got.TotalLeads != 8 || got.ConversionRatio != 0.25 || got.Origin != nil {
		t.Fatalf("created = %+v", got)
	}
	if f.st.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", f.st.Len())
	}

	rr = f.do(http.MethodPost, "/api/stats", `{"name":"Y","successful_leads":8,"total_leads":10,"total_ftds":5}`)
	if got := decode[models.TrafficStat](t, rr); got.TotalLeads != 10 || got.ConversionRatio != 0.5 {
		t.Fatalf("explicit total_leads ignored: %+v", got)
	}

	rr = f.do(http.MethodPost, "/api/stats", `{"name":"Blank","origin":"  ","successful_leads":1}`)
	if got := decode[models.TrafficStat](t, rr); got.Origin != nil {
		t.Fatalf("blank origin stored as %q, want null", *got.Origin)
	}

	for _, body := range []string{``, `{`, `{"name":""}`, `{"name":"Z","total_ftds":-1}`, `{"name":"Z","conversion_ratio":1}`} {
		if rr := f.do(http.MethodPost, "/api/stats", body); rr.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, rr.Code)
		}
	}
}

func TestPatch(t *testing.T) {
	f := newFixture(t, "")

	rr := f.do(http.MethodPatch, "/api/stats/581", `{"successful_leads":10,"total_ftds":4,"origin":"fb"}`)
	if rr.Code != 200 {
		t.Fatalf("status = %d body = %s", rr.Code, rr.Body.String())
	}
	got := decode[models.TrafficStat](t, rr)
	if got.TotalLeads != 10 || got.ConversionRatio != 0.4 || got.Origin == nil || *got.Origin != "fb" || got.Name != "BBB" {
		t.Fatalf("patched = %+v", got)
	}

	got = decode[models.TrafficStat](t, f.do(http.MethodPatch, "/api/stats/581", `{"origin":null}`))
	if got.Origin != nil || got.TotalLeads != 10 {
		t.Fatalf("origin not cleared: %+v", got)
	}

	if rr := f.do(http.MethodPatch, "/api/stats/1", `{"name":"N"}`); rr.Code != 404 {
		t.Errorf("missing id: status = %d, want 404", rr.Code)
	}
	if rr := f.do(http.MethodPatch, "/api/stats/abc", `{"name":"N"}`); rr.Code != 400 {
		t.Errorf("bad id: status = %d, want 400", rr.Code)
	}
	if rr := f.do(http.MethodPatch, "/api/stats/581", `{"total_leads":-1}`); rr.Code != 400 {
		t.Errorf("negative: status = %d, want 400", rr.Code)
	}
}

func TestReassign(t *testing.T) {
	f := newFixture(t, "")

	rr := f.do(http.MethodPut, "/api/stats/581/id", `{"id":42}`)
	if rr.Code != 200 {
		t.Fatalf("status = %d body = %s", rr.Code, rr.Body.String())
	}
	if got := decode[models.TrafficStat](t, rr); got.ID != 42 || got.Name != "BBB" {
		t.Fatalf("reassigned = %+v", got)
	}

	cases := []struct {
		path, body string
		want       int
	}{
		{"/api/stats/42/id", `{"id":2891}`, http.StatusConflict},
		{"/api/stats/581/id", `{"id":7}`, http.StatusNotFound},
		{"/api/stats/42/id", `{}`, http.StatusBadRequest},
		{"/api/stats/42/id", `{"id":"x"}`, http.StatusBadRequest},
		{"/api/stats/42/id", `{"id":-5}`, http.StatusBadRequest},
		{"/api/stats/42/id", `{"id":42}`, http.StatusOK},
	}
	for _, c := range cases {
		if rr := f.do(http.MethodPut, c.path, c.body); rr.Code != c.want {
			t.Errorf("PUT %s %s: status = %d, want %d", c.path, c.body, rr.Code, c.want)
		}
	}
}

func TestDeleteAndClear(t *testing.T) {
	f := newFixture(t, "")

	if rr := f.do(http.MethodDelete, "/api/stats/581", ""); rr.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rr.Code)
	}
	if rr := f.do(http.MethodDelete, "/api/stats/581", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want 404", rr.Code)
	}
	if rr := f.do(http.MethodDelete, "/api/stats", ""); rr.Code != http.StatusNoContent || f.st.Len() != 0 {
		t.Fatalf("clear status = %d, len = %d", rr.Code, f.st.Len())
	}
}

func TestNoob(t *testing.T) {
	f := newFixture(t, "")
	rr := f.do(http.MethodPost, "/api/stats/noob", "")
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d", rr.Code)
	}
	got := decode[models.TrafficStat](t, rr)
	if got.TotalFTDs != 0 || got.SuccessfulLeads < 6 || got.SuccessfulLeads > 9 {
		t.Fatalf("noob = %+v", got)
	}
	if rows := f.st.List(); rows[len(rows)-1].ID != got.ID {
		t.Fatal("noob not appended last")
	}
}

func TestExportImport(t *testing.T) {
	f := newFixture(t, "")

	rr := f.do(http.MethodGet, "/api/export?compact=1", "")
	if rr.Code != 200 || strings.Contains(rr.Body.String(), "\n") {
		t.Fatalf("compact export = %d %q", rr.Code, rr.Body.String())
	}
	compact := rr.Body.String()

	if rr := f.do(http.MethodGet, "/api/export", ""); !strings.Contains(rr.Body.String(), "\n  {") {
		t.Fatalf("pretty export = %q", rr.Body.String())
	}

	if rr := f.do(http.MethodPost, "/api/import", `[{"id":1}]`); rr.Code != http.StatusBadRequest {
		t.Fatalf("bad import status = %d", rr.Code)
	}
	if f.st.Len() != 2 {
		t.Fatal("rejected import touched the store")
	}

	f.do(http.MethodDelete, "/api/stats", "")
	if rr := f.do(http.MethodPost, "/api/import", compact); rr.Code != http.StatusNoContent {
		t.Fatalf("import status = %d body = %s", rr.Code, rr.Body.String())
	}
	if rr := f.do(http.MethodGet, "/api/export?compact=true", ""); rr.Body.String() != compact {
		t.Fatalf("round trip mismatch:\n%s\n%s", rr.Body.String(), compact)
	}
}

func TestPreset(t *testing.T) {
	f := newFixture(t, "")

	rr := f.do(http.MethodPost, "/api/preset", `{"leads_min":10,"leads_max":10,"advertisers_count":3,"conversion_min":20,"conversion_max":20}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d body = %s", rr.Code, rr.Body.String())
	}
	sum := decode[preset.Summary](t, rr)
	if sum.Generated != 3 || f.st.Len() != 3 {
		t.Fatalf("summary = %+v, len = %d", sum, f.st.Len())
	}
	for _, s := range f.st.List() {
		if s.TotalFTDs != 2 || s.ConversionRatio != 0.2 {
			t.Fatalf("record = %+v", s)
		}
	}

	if rr := f.do(http.MethodPost, "/api/preset", ""); rr.Code != http.StatusCreated || f.st.Len() != 5 {
		t.Fatalf("default preset: status = %d len = %d", rr.Code, f.st.Len())
	}

	before := f.st.List()
	if rr := f.do(http.MethodPost, "/api/preset", `{"leads_min":50,"leads_max":10,"advertisers_count":3}`); rr.Code != http.StatusBadRequest {
		t.Fatalf("invalid preset status = %d", rr.Code)
	}
	if len(f.st.List()) != len(before) {
		t.Fatal("invalid preset touched the store")
	}

	if rr := f.do(http.MethodPost, "/api/preset", `{"leads_min":0,"leads_max":9223372036854775807,"advertisers_count":1}`); rr.Code != http.StatusBadRequest {
		t.Fatalf("overflowing leads range: status = %d, want 400", rr.Code)
	}
	if len(f.st.List()) != len(before) {
		t.Fatal("overflowing leads range touched the store")
	}
}

func TestBodyLimit(t *testing.T) {
	f := newFixture(t, "")
	big := `[` + strings.Repeat(" ", maxBodyBytes+1) + `]`
	if rr := f.do(http.MethodPost, "/api/import", big); rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestStaticFallback(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>app</html>"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log(1)"), 0o644); err != nil {
		t.Fatal(err)
	}
	f := newFixture(t, dir)

	if rr := f.do(http.MethodGet, "/app.js", ""); rr.Code != 200 || rr.Body.String() != "console.log(1)" {
		t.Fatalf("asset = %d %q", rr.Code, rr.Body.String())
	}
	if rr := f.do(http.MethodGet, "/some/route", ""); rr.Code != 200 || !strings.Contains(rr.Body.String(), "app") {
		t.Fatalf("fallback = %d %q", rr.Code, rr.Body.String())
	}

	noStatic := newFixture(t, "")
	if rr := noStatic.do(http.MethodGet, "/app.js", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("static disabled: status = %d", rr.Code)
	}
}
