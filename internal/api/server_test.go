package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/todmy/stoneweight/internal/auth"
	"github.com/todmy/stoneweight/internal/storage"
	"github.com/todmy/stoneweight/pkg/models"
)

const testToken = "test-token"

// stubAuth accepts a single fixed token
type stubAuth struct {
	auth.Service
}

func (stubAuth) ValidateToken(token string) (*auth.Claims, error) {
	if token != testToken {
		return nil, auth.ErrInvalidToken
	}
	return &auth.Claims{UserID: "user-1", Username: "mercan"}, nil
}

type memStones struct {
	mu   sync.Mutex
	rows map[string]models.Stone
	fail error
}

func (m *memStones) List(ctx context.Context) ([]models.Stone, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	out := make([]models.Stone, 0, len(m.rows))
	for _, s := range m.rows {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memStones) GetByID(ctx context.Context, id string) (*models.Stone, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &s, nil
}

func (m *memStones) Create(ctx context.Context, stone *models.Stone) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if stone.ID == "" {
		stone.ID = uuid.New().String()
	}
	m.rows[stone.ID] = *stone
	return nil
}

func (m *memStones) Update(ctx context.Context, stone *models.Stone) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[stone.ID]; !ok {
		return storage.ErrNotFound
	}
	m.rows[stone.ID] = *stone
	return nil
}

func (m *memStones) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return storage.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

type memModels struct {
	mu   sync.Mutex
	rows map[string]models.Model
}

func (m *memModels) List(ctx context.Context) ([]models.Model, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Model, 0, len(m.rows))
	for _, v := range m.rows {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memModels) GetByID(ctx context.Context, id string) (*models.Model, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.rows[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &v, nil
}

func (m *memModels) Create(ctx context.Context, model *models.Model) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if model.ID == "" {
		model.ID = uuid.New().String()
	}
	m.rows[model.ID] = *model
	return nil
}

func (m *memModels) Update(ctx context.Context, model *models.Model) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[model.ID]; !ok {
		return storage.ErrNotFound
	}
	m.rows[model.ID] = *model
	return nil
}

func (m *memModels) SetImage(ctx context.Context, id, image string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.rows[id]
	if !ok {
		return storage.ErrNotFound
	}
	v.Image = image
	m.rows[id] = v
	return nil
}

func (m *memModels) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return storage.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

type memSets struct {
	mu   sync.Mutex
	rows map[string]models.StoneSet
}

func (m *memSets) List(ctx context.Context) ([]models.StoneSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.StoneSet, 0, len(m.rows))
	for _, v := range m.rows {
		out = append(out, v)
	}
	return out, nil
}

func (m *memSets) GetByID(ctx context.Context, id string) (*models.StoneSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.rows[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &v, nil
}

func (m *memSets) Create(ctx context.Context, set *models.StoneSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if set.ID == "" {
		set.ID = uuid.New().String()
	}
	m.rows[set.ID] = *set
	return nil
}

func (m *memSets) Update(ctx context.Context, set *models.StoneSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[set.ID]; !ok {
		return storage.ErrNotFound
	}
	m.rows[set.ID] = *set
	return nil
}

func (m *memSets) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return storage.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

type memCompany struct {
	settings *models.CompanySettings
}

func (m *memCompany) Get(ctx context.Context) (models.CompanySettings, error) {
	if m.settings == nil {
		return models.DefaultCompanySettings(), nil
	}
	return *m.settings, nil
}

func (m *memCompany) Update(ctx context.Context, settings *models.CompanySettings) error {
	settings.ID = models.CompanySettingsID
	if settings.CompanyName == "" {
		settings.CompanyName = models.DefaultCompanyName
	}
	copied := *settings
	m.settings = &copied
	return nil
}

// fakeImages records what was stored and deleted
type fakeImages struct {
	saved   []string
	deleted []string
	fail    bool
}

func (f *fakeImages) Resolve(value, owner string) (string, error) {
	if !strings.HasPrefix(value, "data:") {
		return value, nil
	}
	if f.fail {
		return "", errors.New("disk full")
	}
	url := "/uploads/" + owner + ".png"
	f.saved = append(f.saved, url)
	return url, nil
}

func (f *fakeImages) Delete(url string) error {
	f.deleted = append(f.deleted, url)
	return nil
}

type fakeImporter struct {
	got models.Snapshot
}

func (f *fakeImporter) Import(ctx context.Context, snap models.Snapshot) (storage.ImportStats, error) {
	f.got = snap
	return storage.ImportStats{Stones: len(snap.Stones), Models: len(snap.Models), StoneSets: len(snap.StoneSets)}, nil
}

type testEnv struct {
	server   *Server
	stones   *memStones
	models   *memModels
	sets     *memSets
	images   *fakeImages
	importer *fakeImporter
}

func newTestEnv() *testEnv {
	env := &testEnv{
		stones:   &memStones{rows: map[string]models.Stone{}},
		models:   &memModels{rows: map[string]models.Model{}},
		sets:     &memSets{rows: map[string]models.StoneSet{}},
		images:   &fakeImages{},
		importer: &fakeImporter{},
	}
	env.server = NewServer(Deps{
		Auth:      stubAuth{},
		Stones:    env.stones,
		Models:    env.models,
		StoneSets: env.sets,
		Company:   &memCompany{},
		Importer:  env.importer,
		Images:    env.images,
		Now:       func() time.Time { return time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC) },
	})
	return env
}

func (env *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Authorization", "Bearer "+testToken)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := newTestEnv()
	req := httptest.NewRequest(http.MethodGet, "/api/stones", nil)
	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestStones_CRUD(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, http.MethodPost, "/api/stones", map[string]interface{}{"name": " Zirkon 1.5 ", "countPerGram": 200})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created models.Stone
	decode(t, rec, &created)
	if created.ID == "" || created.Name != "Zirkon 1.5" {
		t.Fatalf("unexpected stone %+v", created)
	}

	rec = env.do(t, http.MethodPut, "/api/stones/"+created.ID, `{"name":"Zirkon","count_per_gram":"150"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := env.stones.rows[created.ID]; got.CountPerGram != 150 || got.Name != "Zirkon" {
		t.Errorf("stone not updated: %+v", got)
	}

	rec = env.do(t, http.MethodGet, "/api/stones", nil)
	var list []models.Stone
	decode(t, rec, &list)
	if len(list) != 1 {
		t.Fatalf("expected 1 stone, got %d", len(list))
	}

	rec = env.do(t, http.MethodDelete, "/api/stones/"+created.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete: expected 204, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodDelete, "/api/stones/"+created.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete: expected 404, got %d", rec.Code)
	}
}

func TestStones_Validation(t *testing.T) {
	env := newTestEnv()

	tests := []struct {
		name string
		body string
	}{
		{"missing name", `{"countPerGram":10}`},
		{"zero factor", `{"name":"Ruby","countPerGram":0}`},
		{"negative factor", `{"name":"Ruby","countPerGram":-3}`},
		{"broken json", `{"name":`},
		{"nan factor", `{"name":"Ruby","countPerGram":"NaN"}`},
		{"infinite factor", `{"name":"Ruby","countPerGram":"+Inf"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/stones", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
		})
	}
	if len(env.stones.rows) != 0 {
		t.Errorf("nothing should be stored, got %d stones", len(env.stones.rows))
	}

	rec := env.do(t, http.MethodGet, "/api/stones", nil)
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("expected an empty list, got %d %q", rec.Code, rec.Body.String())
	}
}

func TestStones_StorageFailure(t *testing.T) {
	env := newTestEnv()
	env.stones.fail = errors.New("connection reset")

	rec := env.do(t, http.MethodGet, "/api/stones", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}

func TestModels_CreateMergesLinesAndStoresImage(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, http.MethodPost, "/api/models", map[string]interface{}{
		"name":       "Ring A",
		"stock_code": "R-1",
		"stones": []map[string]interface{}{
			{"stoneId": "s1", "quantity": 2},
			{"stoneId": "s1", "quantity": 3},
		},
		"image": "data:image/png;base64,iVBORw0KGgo=",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var created models.Model
	decode(t, rec, &created)
	if created.StockCode != "R-1" {
		t.Errorf("stock code: got %q", created.StockCode)
	}
	if len(created.Stones) != 1 || created.Stones[0].Quantity != 5 {
		t.Errorf("expected merged line of 5, got %+v", created.Stones)
	}
	wantURL := "/uploads/" + created.ID + ".png"
	if created.Image != wantURL || env.models.rows[created.ID].Image != wantURL {
		t.Errorf("image not recorded: response %q stored %q", created.Image, env.models.rows[created.ID].Image)
	}
}

func TestModels_CreateKeepsModelWhenImageFails(t *testing.T) {
	env := newTestEnv()
	env.images.fail = true

	rec := env.do(t, http.MethodPost, "/api/models", map[string]interface{}{
		"name":  "Ring B",
		"image": "data:image/png;base64,AAAA",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var created models.Model
	decode(t, rec, &created)
	if created.Image != "" {
		t.Errorf("expected no image, got %q", created.Image)
	}
	if _, ok := env.models.rows[created.ID]; !ok {
		t.Error("model should be kept")
	}
}

func TestModels_UpdateImageSemantics(t *testing.T) {
	env := newTestEnv()
	env.models.rows["m1"] = models.Model{
		ID:     "m1",
		Name:   "Ring",
		Image:  "/uploads/old.png",
		Stones: []models.StoneQuantity{{StoneID: "s1", Quantity: 4}},
	}

	// absent image and stones keep both
	rec := env.do(t, http.MethodPut, "/api/models/m1", `{"name":"Ring 2"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	got := env.models.rows["m1"]
	if got.Image != "/uploads/old.png" || len(got.Stones) != 1 || got.Name != "Ring 2" {
		t.Errorf("unexpected model after keep: %+v", got)
	}

	// data url replaces the file
	rec = env.do(t, http.MethodPut, "/api/models/m1", `{"name":"Ring 2","image":"data:image/png;base64,AAAA"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := env.models.rows["m1"].Image; got != "/uploads/m1.png" {
		t.Errorf("expected new image, got %q", got)
	}
	if len(env.images.deleted) != 1 || env.images.deleted[0] != "/uploads/old.png" {
		t.Errorf("old image should be deleted, got %v", env.images.deleted)
	}

	// null clears
	rec = env.do(t, http.MethodPut, "/api/models/m1", `{"name":"Ring 2","image":null}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := env.models.rows["m1"].Image; got != "" {
		t.Errorf("expected cleared image, got %q", got)
	}
	if len(env.images.deleted) != 2 || env.images.deleted[1] != "/uploads/m1.png" {
		t.Errorf("cleared image should be deleted, got %v", env.images.deleted)
	}

	// plain url is kept as given
	rec = env.do(t, http.MethodPut, "/api/models/m1", `{"name":"Ring 2","image":"https://cdn.example.com/r.png"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := env.models.rows["m1"].Image; got != "https://cdn.example.com/r.png" {
		t.Errorf("expected url kept, got %q", got)
	}
}

func TestModels_UpdateUnknown(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, http.MethodPut, "/api/models/nope", `{"name":"X"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestModels_RejectsBadLines(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, http.MethodPost, "/api/models", `{"name":"X","stones":[{"stoneId":"s1","quantity":0}]}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestModels_DeleteRemovesImage(t *testing.T) {
	env := newTestEnv()
	env.models.rows["m1"] = models.Model{ID: "m1", Name: "Ring", Image: "/uploads/m1.png"}

	rec := env.do(t, http.MethodDelete, "/api/models/m1", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if len(env.images.deleted) != 1 || env.images.deleted[0] != "/uploads/m1.png" {
		t.Errorf("image should be deleted, got %v", env.images.deleted)
	}
}

func TestStoneSets_CreateAndUpdate(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, http.MethodPost, "/api/stone-sets", `{"name":"Halo","stones":[{"stoneId":"s1","quantity":12}]}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var set models.StoneSet
	decode(t, rec, &set)

	rec = env.do(t, http.MethodPut, "/api/stone-sets/"+set.ID, `{"name":"Halo","stones":[]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := env.sets.rows[set.ID]; len(got.Stones) != 0 {
		t.Errorf("expected lines cleared, got %+v", got.Stones)
	}

	rec = env.do(t, http.MethodPost, "/api/stone-sets", `{"name":"  "}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for blank name, got %d", rec.Code)
	}
}

func TestCompanySettings(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, http.MethodGet, "/api/company-settings", nil)
	var got models.CompanySettings
	decode(t, rec, &got)
	if got.CompanyName != models.DefaultCompanyName {
		t.Errorf("expected default name, got %q", got.CompanyName)
	}

	rec = env.do(t, http.MethodPut, "/api/company-settings", `{"companyName":"Taştaş","logo":"data:image/png;base64,AAAA"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	decode(t, rec, &got)
	if got.Logo != "/uploads/company-logo.png" || got.ID != models.CompanySettingsID {
		t.Errorf("unexpected settings %+v", got)
	}

	env.images.fail = true
	rec = env.do(t, http.MethodPut, "/api/company-settings", `{"companyName":"","logo":"data:image/png;base64,BBBB"}`)
	decode(t, rec, &got)
	if got.Logo != "data:image/png;base64,BBBB" {
		t.Errorf("failed logo should be kept as sent, got %q", got.Logo)
	}
	if got.CompanyName != models.DefaultCompanyName {
		t.Errorf("blank name should fall back, got %q", got.CompanyName)
	}
}

func seedCatalog(env *testEnv) {
	env.stones.rows["s1"] = models.Stone{ID: "s1", Name: "Zirkon", CountPerGram: 100}
	env.stones.rows["s2"] = models.Stone{ID: "s2", Name: "Ruby", CountPerGram: 50}
	env.models.rows["m1"] = models.Model{
		ID:   "m1",
		Name: "Ring",
		Stones: []models.StoneQuantity{
			{StoneID: "s1", Quantity: 10},
			{StoneID: "s2", Quantity: 5},
		},
	}
}

func TestCalculate(t *testing.T) {
	env := newTestEnv()
	seedCatalog(env)

	rec := env.do(t, http.MethodPost, "/api/calculate", `{"modelId":"m1","productionCount":2}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var result models.CalculationResult
	decode(t, rec, &result)
	// 10*2/100 + 5*2/50
	if result.TotalWeight < 0.3999 || result.TotalWeight > 0.4001 {
		t.Errorf("expected 0.4, got %v", result.TotalWeight)
	}
	if len(result.StoneDetails) != 2 {
		t.Errorf("expected 2 details, got %d", len(result.StoneDetails))
	}
}

func TestCalculate_NoResult(t *testing.T) {
	env := newTestEnv()
	seedCatalog(env)

	for _, body := range []string{
		`{"modelId":"m1","productionCount":0}`,
		`{"modelId":"missing","productionCount":3}`,
		`{}`,
	} {
		rec := env.do(t, http.MethodPost, "/api/calculate", body)
		if rec.Code != http.StatusNoContent {
			t.Errorf("%s: expected 204, got %d", body, rec.Code)
		}
	}
}

func TestHistory_Flow(t *testing.T) {
	env := newTestEnv()
	seedCatalog(env)

	rec := env.do(t, http.MethodPost, "/api/history", `{"modelId":"m1","productionCount":1}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var first models.HistoryItem
	decode(t, rec, &first)

	rec = env.do(t, http.MethodPost, "/api/history", map[string]interface{}{
		"result": models.CalculationResult{ModelName: "Manual", ProductionCount: 3, TotalWeight: 1.5},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/history/summary", nil)
	var summary struct {
		TotalWeight float64 `json:"totalWeight"`
		TotalCount  int     `json:"totalCount"`
	}
	decode(t, rec, &summary)
	if summary.TotalCount != 4 || summary.TotalWeight < 1.6999 || summary.TotalWeight > 1.7001 {
		t.Errorf("unexpected summary %+v", summary)
	}

	rec = env.do(t, http.MethodGet, "/api/history/receipt.pdf", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("receipt: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("Content-Type") != "application/pdf" || !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")) {
		t.Error("expected a pdf body")
	}

	rec = env.do(t, http.MethodDelete, "/api/history/"+first.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("remove: expected 204, got %d", rec.Code)
	}
	rec = env.do(t, http.MethodDelete, "/api/history/"+first.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("second remove: expected 204, got %d", rec.Code)
	}
	var remaining []models.HistoryItem
	decode(t, env.do(t, http.MethodGet, "/api/history", nil), &remaining)
	if len(remaining) != 1 || remaining[0].ModelName != "Manual" {
		t.Errorf("unexpected history after remove %+v", remaining)
	}

	rec = env.do(t, http.MethodDelete, "/api/history", nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("clear: expected 204, got %d", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/api/history/receipt.pdf", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("empty receipt: expected 404, got %d", rec.Code)
	}
}

func TestHistory_RejectsEmptyCommit(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, http.MethodPost, "/api/history", `{"modelId":"missing","productionCount":1}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestReceipt(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, http.MethodPost, "/api/receipt", `{"result":{"modelName":"Ring","productionCount":2,"totalWeight":0.4},"settings":{"widthMM":58,"heightMM":100}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte("/MediaBox [0 0 164.41 283.46]")) {
		t.Error("expected a 58x100mm page")
	}

	rec = env.do(t, http.MethodPost, "/api/receipt", `{"result":{"modelName":"Ring","productionCount":1,"totalWeight":0.2},"settings":{"fontFamily":"Courier New"}}`)
	if rec.Code != http.StatusOK {
		t.Errorf("courier receipt: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodPost, "/api/receipt", `{"settings":{}}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without result, got %d", rec.Code)
	}
}

func TestExport(t *testing.T) {
	env := newTestEnv()
	seedCatalog(env)

	rec := env.do(t, http.MethodGet, "/api/export", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), "stoneweight-2024-03-01.json") {
		t.Errorf("unexpected disposition %q", rec.Header().Get("Content-Disposition"))
	}
	var snap models.Snapshot
	decode(t, rec, &snap)
	if len(snap.Stones) != 2 || len(snap.Models) != 1 || snap.StoneSets == nil {
		t.Errorf("unexpected snapshot %+v", snap)
	}

	rec = env.do(t, http.MethodGet, "/api/export.xlsx", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("xlsx: expected 200, got %d", rec.Code)
	}
	// xlsx files are zip archives
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")) {
		t.Error("expected a zip body")
	}
}

func TestMigrate(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, http.MethodPost, "/api/migrate", `{"stones":[{"id":"s1","name":"Zirkon","count_per_gram":100}],"models":[{"id":"m1","name":"Ring"}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var stats storage.ImportStats
	decode(t, rec, &stats)
	if stats.Stones != 1 || stats.Models != 1 || stats.StoneSets != 0 {
		t.Errorf("unexpected stats %+v", stats)
	}
	if env.importer.got.Stones[0].CountPerGram != 100 {
		t.Errorf("snake_case factor not decoded: %+v", env.importer.got.Stones[0])
	}

	rec = env.do(t, http.MethodPost, "/api/migrate", `not json`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}
