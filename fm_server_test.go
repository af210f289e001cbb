// fm_server_test.go - Tests for the HTTP diagnostics and control surface

package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// serve pushes one request through the router without a listening socket.
func serve(s *FMServer, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decodeInto(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, w.Body.String())
	}
}

func newTestServer(t *testing.T) (*FMServer, *FMEngine) {
	t.Helper()
	engine := newTestEngine(t, "")
	return NewFMServer(engine, 0), engine
}

func TestServerHealth(t *testing.T) {
	s, _ := newTestServer(t)

	w := serve(s, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type %q", ct)
	}
	if !strings.Contains(w.Body.String(), "ok") {
		t.Errorf("body %q", w.Body.String())
	}
}

func TestServerStatus(t *testing.T) {
	s, _ := newTestServer(t)

	w := serve(s, http.MethodGet, "/status", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /status = %d", w.Code)
	}
	var st EngineStatus
	decodeInto(t, w, &st)
	if st.SampleRate != SAMPLE_RATE || st.Polyphony != DEFAULT_POLYPHONY {
		t.Errorf("status %+v", st)
	}
	if st.Algorithm != 8 || st.Patch != "init" {
		t.Errorf("fresh engine reports algorithm %d patch %q", st.Algorithm, st.Patch)
	}
}

func TestServerVoices(t *testing.T) {
	s, engine := newTestServer(t)
	engine.NoteOn(60, 1.0, 0)
	captureSamples(engine, CONTROL_BLOCK_SAMPLES)

	w := serve(s, http.MethodGet, "/voices", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /voices = %d", w.Code)
	}
	var voices []VoiceStatus
	decodeInto(t, w, &voices)
	if len(voices) != DEFAULT_POLYPHONY {
		t.Fatalf("%d voice registers, want %d", len(voices), DEFAULT_POLYPHONY)
	}
	if !voices[0].Active || voices[0].Note != 60 {
		t.Errorf("voice 0 = %+v, want active note 60", voices[0])
	}
}

func TestServerAlgorithmCatalog(t *testing.T) {
	s, _ := newTestServer(t)

	w := serve(s, http.MethodGet, "/algorithms", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /algorithms = %d", w.Code)
	}
	var algos []algorithmInfo
	decodeInto(t, w, &algos)
	if len(algos) != NUM_ALGORITHMS {
		t.Fatalf("%d algorithms, want %d", len(algos), NUM_ALGORITHMS)
	}
	for i, a := range algos {
		if a.ID != i+1 || a.Name == "" {
			t.Errorf("entry %d: id %d name %q", i, a.ID, a.Name)
		}
		if len(a.Carriers) == 0 || len(a.Order) != NUM_OPERATORS {
			t.Errorf("entry %d: carriers %v order %v", i, a.Carriers, a.Order)
		}
	}
}

func TestServerAlgorithmByID(t *testing.T) {
	s, _ := newTestServer(t)

	w := serve(s, http.MethodGet, "/algorithms/3", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /algorithms/3 = %d", w.Code)
	}
	var a algorithmInfo
	decodeInto(t, w, &a)
	if a.ID != 3 {
		t.Errorf("id %d, want 3", a.ID)
	}

	if w := serve(s, http.MethodGet, "/algorithms/99", ""); w.Code != http.StatusNotFound {
		t.Errorf("GET /algorithms/99 = %d, want 404", w.Code)
	}
	if w := serve(s, http.MethodGet, "/algorithms/abc", ""); w.Code != http.StatusBadRequest {
		t.Errorf("GET /algorithms/abc = %d, want 400", w.Code)
	}
}

func TestServerSetAlgorithm(t *testing.T) {
	s, engine := newTestServer(t)

	w := serve(s, http.MethodPut, "/algorithm", `{"id":5,"fadeMs":20}`)
	if w.Code != http.StatusOK {
		t.Fatalf("PUT /algorithm = %d (%s)", w.Code, w.Body.String())
	}
	captureSamples(engine, CONTROL_BLOCK_SAMPLES)
	if got := engine.Status().Algorithm; got != 5 {
		t.Errorf("engine algorithm %d, want 5", got)
	}

	if w := serve(s, http.MethodPut, "/algorithm", `{"id":0}`); w.Code != http.StatusNotFound {
		t.Errorf("PUT /algorithm id 0 = %d, want 404", w.Code)
	}
	if w := serve(s, http.MethodPut, "/algorithm", `{broken`); w.Code != http.StatusBadRequest {
		t.Errorf("PUT /algorithm bad body = %d, want 400", w.Code)
	}
}

func TestServerPatchEndpoints(t *testing.T) {
	s, engine := newTestServer(t)

	w := serve(s, http.MethodGet, "/patches", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /patches = %d", w.Code)
	}
	var names []string
	decodeInto(t, w, &names)
	found := map[string]bool{}
	for _, n := range names {
		found[n] = true
	}
	if !found["init"] || !found["epiano"] {
		t.Errorf("patch list %v missing builtins", names)
	}

	w = serve(s, http.MethodGet, "/patch", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /patch = %d", w.Code)
	}
	var cur Patch
	decodeInto(t, w, &cur)
	if cur.Name != "init" || cur.Algorithm != 8 {
		t.Errorf("current patch %q algorithm %d", cur.Name, cur.Algorithm)
	}

	w = serve(s, http.MethodPut, "/patch", `{"name":"bell"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("PUT /patch by name = %d (%s)", w.Code, w.Body.String())
	}
	if got := engine.Status().Patch; got != "bell" {
		t.Errorf("engine patch %q, want %q", got, "bell")
	}

	if w := serve(s, http.MethodPut, "/patch", `{"name":"zzz"}`); w.Code != http.StatusNotFound {
		t.Errorf("PUT /patch unknown name = %d, want 404", w.Code)
	}
}

func TestServerSetPatchDocument(t *testing.T) {
	s, engine := newTestServer(t)

	doc := `{
		"name": "custom",
		"algorithm": 3,
		"operators": [
			{"frequencyRatio": 1.0, "outputLevel": 1.0, "modulationIndex": 1.0},
			{"frequencyRatio": 2.0, "outputLevel": 0.5, "modulationIndex": 1.0},
			{"frequencyRatio": 1.0, "outputLevel": 0.0, "modulationIndex": 1.0},
			{"frequencyRatio": 1.0, "outputLevel": 0.0, "modulationIndex": 1.0}
		]
	}`
	w := serve(s, http.MethodPut, "/patch", doc)
	if w.Code != http.StatusOK {
		t.Fatalf("PUT /patch document = %d (%s)", w.Code, w.Body.String())
	}
	if got := engine.Status().Patch; got != "custom" {
		t.Errorf("engine patch %q, want %q", got, "custom")
	}
	captureSamples(engine, CONTROL_BLOCK_SAMPLES)
	if got := engine.Status().Algorithm; got != 3 {
		t.Errorf("engine algorithm %d, want 3", got)
	}
}

func TestServerNotes(t *testing.T) {
	s, engine := newTestServer(t)

	w := serve(s, http.MethodPost, "/notes/on", `{"name":"A4","velocity":0.9}`)
	if w.Code != http.StatusOK {
		t.Fatalf("POST /notes/on = %d (%s)", w.Code, w.Body.String())
	}
	var resp struct {
		Note int    `json:"note"`
		Name string `json:"name"`
	}
	decodeInto(t, w, &resp)
	if resp.Note != 69 || resp.Name != "A4" {
		t.Errorf("response %+v", resp)
	}
	captureSamples(engine, CONTROL_BLOCK_SAMPLES)
	if got := engine.Status().ActiveVoices; got != 1 {
		t.Fatalf("%d active voices, want 1", got)
	}

	// Velocity omitted defaults to a musically useful hit, not silence
	serve(s, http.MethodPost, "/notes/on", `{"note":60}`)
	captureSamples(engine, CONTROL_BLOCK_SAMPLES)
	for _, v := range engine.VoiceStates() {
		if v.Active && v.Note == 60 {
			if v.Velocity < 0.75 || v.Velocity > 0.85 {
				t.Errorf("default velocity %v, want about 0.8", v.Velocity)
			}
		}
	}

	w = serve(s, http.MethodPost, "/notes/off", `{"name":"A4"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("POST /notes/off = %d", w.Code)
	}
	captureSamples(engine, CONTROL_BLOCK_SAMPLES)
	for _, v := range engine.VoiceStates() {
		if v.Note == 69 && v.Active && v.Held {
			t.Error("note 69 still held after /notes/off")
		}
	}

	if w := serve(s, http.MethodPost, "/notes/on", `{"name":"Z9"}`); w.Code != http.StatusBadRequest {
		t.Errorf("POST /notes/on bad name = %d, want 400", w.Code)
	}
}

func TestServerAllOffAndPanic(t *testing.T) {
	s, engine := newTestServer(t)

	engine.NoteOn(60, 1.0, 0)
	engine.NoteOn(64, 1.0, 0)
	captureSamples(engine, CONTROL_BLOCK_SAMPLES)

	if w := serve(s, http.MethodPost, "/notes/alloff", ""); w.Code != http.StatusOK {
		t.Fatalf("POST /notes/alloff = %d", w.Code)
	}
	captureSamples(engine, RELEASE_WINDOW)
	if got := engine.Status().ActiveVoices; got != 0 {
		t.Errorf("%d voices active after release window", got)
	}

	engine.NoteOn(60, 1.0, 0)
	captureSamples(engine, CONTROL_BLOCK_SAMPLES)
	if w := serve(s, http.MethodPost, "/panic", ""); w.Code != http.StatusOK {
		t.Fatalf("POST /panic = %d", w.Code)
	}
	captureSamples(engine, CONTROL_BLOCK_SAMPLES)
	if got := engine.Status().ActiveVoices; got != 0 {
		t.Errorf("%d voices active after panic", got)
	}
}

func TestServerVolume(t *testing.T) {
	s, engine := newTestServer(t)

	w := serve(s, http.MethodPut, "/volume", `{"value":0.4}`)
	if w.Code != http.StatusOK {
		t.Fatalf("PUT /volume = %d", w.Code)
	}
	captureSamples(engine, CONTROL_BLOCK_SAMPLES)
	if got := engine.Status().MasterVolume; got != 0.4 {
		t.Errorf("master volume %v, want 0.4", got)
	}

	var resp map[string]float32
	w = serve(s, http.MethodPut, "/volume", `{"value":7}`)
	decodeInto(t, w, &resp)
	if resp["volume"] != 1 {
		t.Errorf("clamped echo %v, want 1", resp["volume"])
	}
}

func TestServerPolyphony(t *testing.T) {
	s, engine := newTestServer(t)

	w := serve(s, http.MethodPut, "/polyphony", `{"value":4}`)
	if w.Code != http.StatusOK {
		t.Fatalf("PUT /polyphony = %d", w.Code)
	}
	captureSamples(engine, CONTROL_BLOCK_SAMPLES)
	if got := engine.Status().Polyphony; got != 4 {
		t.Errorf("polyphony %d, want 4", got)
	}

	if w := serve(s, http.MethodPut, "/polyphony", `{"value":0}`); w.Code != http.StatusBadRequest {
		t.Errorf("PUT /polyphony 0 = %d, want 400", w.Code)
	}
	if w := serve(s, http.MethodPut, "/polyphony", `{"value":9999}`); w.Code != http.StatusBadRequest {
		t.Errorf("PUT /polyphony 9999 = %d, want 400", w.Code)
	}
}

func TestServerStealPolicy(t *testing.T) {
	s, engine := newTestServer(t)

	w := serve(s, http.MethodPut, "/steal", `{"policy":"newest"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("PUT /steal = %d", w.Code)
	}
	captureSamples(engine, CONTROL_BLOCK_SAMPLES)
	if got := engine.Status().StealPolicy; got != "newest" {
		t.Errorf("steal policy %q, want %q", got, "newest")
	}

	if w := serve(s, http.MethodPut, "/steal", `{"policy":"bogus"}`); w.Code != http.StatusBadRequest {
		t.Errorf("PUT /steal bogus = %d, want 400", w.Code)
	}
}

func TestServerReset(t *testing.T) {
	s, engine := newTestServer(t)

	engine.NoteOn(60, 1.0, 0)
	captureSamples(engine, CONTROL_BLOCK_SAMPLES)

	if w := serve(s, http.MethodPost, "/reset", ""); w.Code != http.StatusOK {
		t.Fatalf("POST /reset = %d", w.Code)
	}
	captureSamples(engine, CONTROL_BLOCK_SAMPLES)
	if got := engine.Status().ActiveVoices; got != 0 {
		t.Errorf("%d voices active after reset", got)
	}
}
