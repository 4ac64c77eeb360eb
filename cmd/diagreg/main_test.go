package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/diagreg/diagreg/internal/config"
	"github.com/diagreg/diagreg/internal/domain/patient"
	"github.com/diagreg/diagreg/internal/pipeline"
	"github.com/diagreg/diagreg/internal/platform/db"
	"github.com/diagreg/diagreg/internal/platform/middleware"
	"github.com/diagreg/diagreg/internal/platform/telemetry"
)

// ---------------------------------------------------------------------------
// in-memory store behind the real server
// ---------------------------------------------------------------------------

type memRepo struct {
	mu    sync.Mutex
	items []patient.Record
}

func (m *memRepo) Create(_ context.Context, r *patient.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = uuid.New()
	r.CreatedAt = time.Now().UTC()
	r.UpdatedAt = r.CreatedAt
	m.items = append(m.items, *r)
	return nil
}

func (m *memRepo) GetByID(_ context.Context, id uuid.UUID) (*patient.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.items {
		if r.ID == id {
			return &r, nil
		}
	}
	return nil, patient.ErrNotFound
}

func (m *memRepo) Update(_ context.Context, r *patient.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == r.ID {
			r.CreatedAt = m.items[i].CreatedAt
			r.UpdatedAt = time.Now().UTC()
			m.items[i] = *r
			return nil
		}
	}
	return patient.ErrNotFound
}

func (m *memRepo) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == id {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return patient.ErrNotFound
}

func (m *memRepo) ListAll(_ context.Context) ([]patient.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]patient.Record{}, m.items...), nil
}

func testConfig() *config.Config {
	return &config.Config{
		BodyLimit:      "1M",
		CORSOrigins:    []string{"*"},
		RateLimitRPS:   1000,
		RateLimitBurst: 1000,
	}
}

// startServer runs the API over repo and returns the store URL for clients.
func startServer(t *testing.T, repo *memRepo) (string, *telemetry.TelemetryProvider) {
	t.Helper()
	t.Setenv("ENV", "test")
	t.Setenv("LOG_LEVEL", "error")

	tel := telemetry.NewTelemetryProvider(telemetry.TelemetryConfig{})
	e := newServer(testConfig(), zerolog.Nop(), tel, patient.NewService(repo, tel))
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv.URL, tel
}

func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func seed(repo *memRepo, name, date string, age int, outcome string) patient.Record {
	r := &patient.Record{NewRecord: patient.NewRecord{
		Name: name, EventDate: date, Age: age,
		Sex: patient.SexFemale, Biopsy: patient.BiopsyNo, Outcome: outcome,
	}}
	_ = repo.Create(context.Background(), r)
	return *r
}

// ---------------------------------------------------------------------------
// server
// ---------------------------------------------------------------------------

func TestServer_HealthAndRequestID(t *testing.T) {
	base, _ := startServer(t, &memRepo{})

	resp, err := http.Get(base + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get(middleware.RequestIDHeader) == "" {
		t.Error("expected a request id header")
	}
	if resp.Header.Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected security headers")
	}
}

func TestServer_MetricsCountMutations(t *testing.T) {
	repo := &memRepo{}
	base, _ := startServer(t, repo)

	_, _, err := run(t, "", "records", "add", "--store-url", base+"/api/v1",
		"--name", "Ana Pérez", "--age", "40", "--event-date", "2024-03-01")
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	resp, err := http.Get(base + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if !strings.Contains(string(body), `diagreg_record_mutations_total{operation="create"} 1`) {
		t.Errorf("expected create counter in metrics, got:\n%s", body)
	}
	if !strings.Contains(string(body), "diagreg_http_server_request_duration_seconds") {
		t.Error("expected request duration histogram in metrics")
	}
}

// ---------------------------------------------------------------------------
// records commands
// ---------------------------------------------------------------------------

func TestRecords_Lifecycle(t *testing.T) {
	repo := &memRepo{}
	base, _ := startServer(t, repo)
	store := base + "/api/v1"

	out, stderr, err := run(t, "", "records", "add", "--store-url", store,
		"--name", "Ana Pérez", "--age", "40", "--event-date", "2024-03-01", "--sex", "Femenino")
	if err != nil {
		t.Fatalf("add: %v (%s)", err, stderr)
	}
	id := strings.TrimSpace(out)
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("expected a record id, got %q", out)
	}
	if !strings.Contains(stderr, "Registro agregado con éxito.") {
		t.Errorf("expected success notification, got %q", stderr)
	}

	out, _, err = run(t, "", "records", "list", "--store-url", store)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "Ana Pérez") || !strings.Contains(out, "Página 1 de 1") {
		t.Errorf("unexpected list output:\n%s", out)
	}

	_, stderr, err = run(t, "", "records", "edit", id, "--store-url", store, "--outcome", "Alta médica")
	if err != nil {
		t.Fatalf("edit: %v (%s)", err, stderr)
	}
	if !strings.Contains(stderr, "Registro actualizado con éxito.") {
		t.Errorf("expected update notification, got %q", stderr)
	}

	out, _, err = run(t, "", "records", "show", id, "--store-url", store)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	for _, want := range []string{patient.SectionPatient, patient.SectionOutcome, "Alta médica", "Ana Pérez"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in detail view:\n%s", want, out)
		}
	}

	_, stderr, err = run(t, "", "records", "delete", id, "--store-url", store, "--force")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !strings.Contains(stderr, "Registro eliminado con éxito.") {
		t.Errorf("expected delete notification, got %q", stderr)
	}

	out, _, _ = run(t, "", "records", "list", "--store-url", store)
	if !strings.Contains(out, "No se encontraron registros.") {
		t.Errorf("expected empty list, got:\n%s", out)
	}
}

func TestRecordsAdd_InvalidNeverReachesStore(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("[]"))
	}))
	defer srv.Close()
	t.Setenv("ENV", "test")

	_, stderr, err := run(t, "", "records", "add", "--store-url", srv.URL, "--age", "40")
	var verr *patient.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, ok := verr.Fields["name"]; !ok {
		t.Errorf("expected name error, got %v", verr.Fields)
	}
	if !strings.Contains(stderr, "NOMBRE") {
		t.Errorf("expected field label in output, got %q", stderr)
	}
	if n := atomic.LoadInt32(&calls); n != 0 {
		t.Errorf("expected no store calls, got %d", n)
	}
}

func TestRecordsDelete_Declined(t *testing.T) {
	repo := &memRepo{}
	r := seed(repo, "Luis", "2024-01-10", 55, "")
	base, _ := startServer(t, repo)

	out, stderr, err := run(t, "n\n", "records", "delete", r.ID.String(), "--store-url", base+"/api/v1")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !strings.Contains(stderr, "¿Eliminar el registro de Luis") {
		t.Errorf("expected confirmation prompt, got %q", stderr)
	}
	if !strings.Contains(out, "Eliminación cancelada") {
		t.Errorf("expected cancellation message, got %q", out)
	}
	if items, _ := repo.ListAll(context.Background()); len(items) != 1 {
		t.Errorf("expected record kept, got %d records", len(items))
	}
}

func TestRecordsShow_NotFound(t *testing.T) {
	base, _ := startServer(t, &memRepo{})

	_, _, err := run(t, "", "records", "show", uuid.NewString(), "--store-url", base+"/api/v1")
	if !errors.Is(err, patient.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRecordsList_FiltersSortsAndPages(t *testing.T) {
	repo := &memRepo{}
	for i := 0; i < 23; i++ {
		seed(repo, "Paciente", "2024-02-01", 20+i, "")
	}
	seed(repo, "Fuera de rango", "2023-12-31", 90, "")
	base, _ := startServer(t, repo)
	store := base + "/api/v1"

	out, _, err := run(t, "", "records", "list", "--store-url", store,
		"--from", "2024-01-01", "--sort", "age", "--desc", "--page", "3", "--format", "json")
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	var resp struct {
		Data       []patient.Record `json:"data"`
		Total      int              `json:"total"`
		Page       int              `json:"page"`
		TotalPages int              `json:"total_pages"`
	}
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if resp.Total != 23 || resp.TotalPages != 3 || resp.Page != 3 {
		t.Errorf("unexpected page info %+v", resp)
	}
	if len(resp.Data) != 3 {
		t.Fatalf("expected 3 records on the last page, got %d", len(resp.Data))
	}
	if resp.Data[0].Age != 22 || resp.Data[2].Age != 20 {
		t.Errorf("expected descending ages 22..20, got %d..%d", resp.Data[0].Age, resp.Data[2].Age)
	}

	_, _, err = run(t, "", "records", "list", "--store-url", store, "--page", "4")
	if err == nil || !strings.Contains(err.Error(), "out of range") {
		t.Errorf("expected out of range error, got %v", err)
	}

	_, _, err = run(t, "", "records", "list", "--store-url", store, "--sort", "nope")
	if err == nil {
		t.Error("expected error for unknown sort field")
	}

	_, _, err = run(t, "", "records", "list", "--store-url", store, "--from", "01/02/2024")
	if !errors.Is(err, pipeline.ErrInvalidDate) {
		t.Errorf("expected invalid date error, got %v", err)
	}
}

func TestRecordsList_StoreDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	t.Setenv("ENV", "test")
	t.Setenv("LOG_LEVEL", "disabled")

	_, stderr, err := run(t, "", "records", "list", "--store-url", srv.URL)
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(stderr, "Error al cargar los registros.") {
		t.Errorf("expected load failure notification, got %q", stderr)
	}
}

// ---------------------------------------------------------------------------
// dashboard and export
// ---------------------------------------------------------------------------

func TestDashboard_JSON(t *testing.T) {
	repo := &memRepo{}
	seed(repo, "A", "2024-05-01", 25, "Alta")
	seed(repo, "B", "2024-05-02", 45, "Fallecido")
	seed(repo, "C", "2023-05-02", 75, "Alta")
	base, _ := startServer(t, repo)

	out, _, err := run(t, "", "dashboard", "--store-url", base+"/api/v1", "--from", "2024-01-01", "--format", "json")
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	var stats pipeline.Stats
	if err := json.Unmarshal([]byte(out), &stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.Total != 2 || stats.AvgAge != 35 {
		t.Errorf("expected 2 records averaging 35, got %d/%d", stats.Total, stats.AvgAge)
	}
}

func TestDashboard_Table(t *testing.T) {
	repo := &memRepo{}
	seed(repo, "A", "2024-05-01", 25, "Alta")
	base, _ := startServer(t, repo)

	out, _, err := run(t, "", "dashboard", "--store-url", base+"/api/v1")
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	for _, want := range []string{"Resumen", "Distribución por edad", "20-30", "█"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in dashboard:\n%s", want, out)
		}
	}
}

func TestExport_WritesFile(t *testing.T) {
	repo := &memRepo{}
	seed(repo, "Ana", "2024-05-01", 25, "Alta")
	seed(repo, "Beto", "2024-05-02", 45, "")
	base, _ := startServer(t, repo)
	dir := t.TempDir()

	out, stderr, err := run(t, "", "export", "--store-url", base+"/api/v1", "--dir", dir, "--search", "beto")
	if err != nil {
		t.Fatalf("export: %v (%s)", err, stderr)
	}
	path := strings.TrimSpace(out)
	if filepath.Dir(path) != dir || !strings.HasPrefix(filepath.Base(path), "registros_pacientes_") {
		t.Errorf("unexpected export path %q", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	content := string(data)
	if !strings.HasPrefix(content, "\ufeff") {
		t.Error("expected BOM")
	}
	if !strings.Contains(content, `"Beto"`) || strings.Contains(content, `"Ana"`) {
		t.Errorf("expected only the searched record, got:\n%s", content)
	}
	if !strings.Contains(stderr, "Registros exportados a") {
		t.Errorf("expected export notification, got %q", stderr)
	}
}

func TestExport_Empty(t *testing.T) {
	base, _ := startServer(t, &memRepo{})
	dir := t.TempDir()

	_, stderr, err := run(t, "", "export", "--store-url", base+"/api/v1", "--dir", dir)
	if !errors.Is(err, pipeline.ErrEmptyExport) {
		t.Fatalf("expected empty export error, got %v", err)
	}
	if !strings.Contains(stderr, "No hay registros para exportar.") {
		t.Errorf("expected empty export notification, got %q", stderr)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("expected no file, got %d", len(entries))
	}
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"s\n", true},
		{"Sí\n", true},
		{"y\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
		{"tal vez\n", false},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		got, err := confirm(strings.NewReader(tt.input), &out, "¿Seguro?")
		if err != nil {
			t.Fatalf("confirm(%q): %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("confirm(%q) = %v, want %v", tt.input, got, tt.want)
		}
		if !strings.Contains(out.String(), "¿Seguro? (s/N)") {
			t.Errorf("expected prompt, got %q", out.String())
		}
	}
}

func TestBar(t *testing.T) {
	if got := bar(0, 10); got != "" {
		t.Errorf("bar(0, 10) = %q, want empty", got)
	}
	if got := bar(10, 10); got != strings.Repeat("█", barWidth) {
		t.Errorf("bar(10, 10) = %q, want full width", got)
	}
	if got := bar(1, 1000); got != "█" {
		t.Errorf("bar(1, 1000) = %q, want one block", got)
	}
}

func TestPageFooter(t *testing.T) {
	v := pipeline.View{
		State:      pipeline.State{Page: 2},
		Items:      make([]patient.Record, 10),
		Total:      23,
		TotalPages: 3,
		Window:     []int{1, 2, 3},
	}
	got := pageFooter(v)
	if !strings.Contains(got, "Mostrando 11-20 de 23") {
		t.Errorf("unexpected range in %q", got)
	}
	if !strings.Contains(got, "1 [2] 3") {
		t.Errorf("expected bracketed current page in %q", got)
	}
}

func TestApplyFieldFlags_InvalidAge(t *testing.T) {
	cmd := recordsAddCmd()
	if err := cmd.Flags().Set("age", "cuarenta"); err != nil {
		t.Fatalf("set flag: %v", err)
	}

	n := patient.Draft(time.Now())
	err := applyFieldFlags(cmd.Flags(), &n)
	var verr *patient.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, ok := verr.Fields["age"]; !ok {
		t.Errorf("expected age error, got %v", verr.Fields)
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	migs, err := db.NewMigrator(nil, migrationSource(""), "").LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations: %v", err)
	}
	if len(migs) == 0 || migs[0].Name != "001_patient_record.sql" {
		t.Fatalf("expected embedded patient_record migration, got %+v", migs)
	}
	if !strings.Contains(migs[0].SQL, "CREATE TABLE IF NOT EXISTS patient_record") {
		t.Error("expected patient_record table definition")
	}
}

func TestServer_OpenAPI(t *testing.T) {
	base, _ := startServer(t, &memRepo{})

	resp, err := http.Get(base + "/api/v1/openapi.json")
	if err != nil {
		t.Fatalf("GET openapi.json: %v", err)
	}
	defer resp.Body.Close()

	var doc map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	paths, _ := doc["paths"].(map[string]interface{})
	if _, ok := paths["/patient-records/{id}"]; !ok {
		t.Errorf("expected record path in document, got %v", paths)
	}
}
