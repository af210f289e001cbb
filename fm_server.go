// fm_server.go - HTTP diagnostics and control server

/*
██████╗  █████╗ ██████╗ ████████╗██████╗  █████╗  ██████╗██╗  ██╗
██╔══██╗██╔══██╗██╔══██╗╚══██╔══╝██╔══██╗██╔══██╗██╔════╝██║ ██╔╝
██████╔╝███████║██║  ██║   ██║   ██████╔╝███████║██║     █████╔╝
██╔═══╝ ██╔══██║██║  ██║   ██║   ██╔══██╗██╔══██║██║     ██╔═██╗
██║     ██║  ██║██████╔╝   ██║   ██║  ██║██║  ██║╚██████╗██║  ██╗
╚═╝     ╚═╝  ╚═╝╚═════╝    ╚═╝   ╚═╝  ╚═╝╚═╝  ╚═╝ ╚═════╝╚═╝  ╚═╝

(c) 2024 - 2026 Daniel Tibaquira
https://github.com/danieltibaquira/padtrack-sub000
License: GPLv3 or later
*/

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// FMServer exposes engine diagnostics and control over HTTP. Every endpoint
// goes through the engine's control ring like any other caller; the server
// never touches render state directly.
type FMServer struct {
	engine *FMEngine
	port   int
	router *chi.Mux
	logger *slog.Logger
}

// NewFMServer creates the HTTP server for the given engine.
func NewFMServer(engine *FMEngine, port int) *FMServer {
	s := &FMServer{
		engine: engine,
		port:   port,
		router: chi.NewRouter(),
		logger: slog.New(slog.NewTextHandler(os.Stdout, nil)),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes
func (s *FMServer) setupRoutes() {
	r := s.router

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/status", s.handleStatus)
	r.Get("/voices", s.handleVoices)

	r.Get("/algorithms", s.handleAlgorithms)
	r.Get("/algorithms/{id}", s.handleAlgorithmByID)
	r.Put("/algorithm", s.handleSetAlgorithm)

	r.Get("/patches", s.handlePatches)
	r.Get("/patch", s.handleCurrentPatch)
	r.Put("/patch", s.handleSetPatch)

	r.Post("/notes/on", s.handleNoteOn)
	r.Post("/notes/off", s.handleNoteOff)
	r.Post("/notes/alloff", s.handleAllNotesOff)
	r.Post("/panic", s.handlePanic)

	r.Put("/volume", s.handleVolume)
	r.Put("/polyphony", s.handlePolyphony)
	r.Put("/steal", s.handleStealPolicy)
	r.Post("/reset", s.handleReset)
}

// Run starts the server and blocks until interrupted.
func (s *FMServer) Run() error {
	addr := fmt.Sprintf(":%d", s.port)

	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	done := make(chan struct{})
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh

		s.logger.Info("shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", slog.Any("error", err))
		}
		close(done)
	}()

	s.logger.Info("server starting", slog.Int("port", s.port))

	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}

	<-done
	return nil
}

func (s *FMServer) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", slog.Any("error", err))
	}
}

func (s *FMServer) respondError(w http.ResponseWriter, status int, msg string) {
	s.respondJSON(w, status, map[string]string{"error": msg})
}

func (s *FMServer) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("bad request body: %v", err))
		return false
	}
	return true
}

func (s *FMServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *FMServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.engine.Status())
}

func (s *FMServer) handleVoices(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.engine.VoiceStates())
}

// algorithmInfo is the JSON view of one catalog entry.
type algorithmInfo struct {
	ID            int          `json:"id"`
	Name          string       `json:"name"`
	Carriers      []int        `json:"carriers"`
	Order         []int        `json:"order"`
	Degraded      bool         `json:"degraded"`
	DroppedConns  int          `json:"droppedConnections"`
	Connections   []Connection `json:"connections"`
	FeedbackConns []Connection `json:"feedbackConnections"`
}

func describeAlgorithm(g *AlgorithmGraph) algorithmInfo {
	return algorithmInfo{
		ID:            g.id,
		Name:          g.name,
		Carriers:      g.carriers(),
		Order:         g.processingOrder[:],
		Degraded:      g.degradedOrder,
		DroppedConns:  g.droppedConnections,
		Connections:   g.connections,
		FeedbackConns: g.feedbackConnections,
	}
}

func (s *FMServer) handleAlgorithms(w http.ResponseWriter, r *http.Request) {
	out := make([]algorithmInfo, 0, NUM_ALGORITHMS)
	for _, g := range algorithmCatalog {
		out = append(out, describeAlgorithm(g))
	}
	s.respondJSON(w, http.StatusOK, out)
}

func (s *FMServer) handleAlgorithmByID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "algorithm id must be an integer")
		return
	}
	g, err := algorithmByID(id)
	if err != nil {
		s.respondError(w, http.StatusNotFound, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, describeAlgorithm(g))
}

func (s *FMServer) handleSetAlgorithm(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID     int     `json:"id"`
		FadeMs float32 `json:"fadeMs"`
	}
	if !s.decodeBody(w, r, &req) {
		return
	}
	if err := s.engine.SelectAlgorithm(req.ID, req.FadeMs); err != nil {
		s.respondError(w, http.StatusNotFound, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"algorithm": req.ID, "fadeMs": req.FadeMs})
}

func (s *FMServer) handlePatches(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, patchNames())
}

func (s *FMServer) handleCurrentPatch(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.engine.CurrentPatch())
}

// handleSetPatch accepts either {"name":"epiano"} to select a builtin patch
// or a full patch document.
func (s *FMServer) handleSetPatch(w http.ResponseWriter, r *http.Request) {
	var patch Patch
	if !s.decodeBody(w, r, &patch) {
		return
	}

	if patch.Algorithm == 0 && patch.Name != "" {
		if err := s.engine.SetPatchByName(patch.Name); err != nil {
			s.respondError(w, http.StatusNotFound, err.Error())
			return
		}
		s.respondJSON(w, http.StatusOK, s.engine.CurrentPatch())
		return
	}

	if err := s.engine.SetPatch(&patch); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, s.engine.CurrentPatch())
}

// noteRequest addresses a note by MIDI number or by pitch name ("C#4").
type noteRequest struct {
	Note     int     `json:"note"`
	Name     string  `json:"name"`
	Velocity float32 `json:"velocity"`
	Channel  int     `json:"channel"`
}

func (req *noteRequest) resolve() (int, error) {
	if req.Name != "" {
		return parseNoteName(req.Name)
	}
	return req.Note, nil
}

func (s *FMServer) handleNoteOn(w http.ResponseWriter, r *http.Request) {
	var req noteRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	note, err := req.resolve()
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	vel := req.Velocity
	if vel <= 0 {
		vel = 0.8
	}
	s.engine.NoteOn(note, vel, req.Channel)
	s.respondJSON(w, http.StatusOK, map[string]any{"note": note, "name": noteName(note)})
}

func (s *FMServer) handleNoteOff(w http.ResponseWriter, r *http.Request) {
	var req noteRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	note, err := req.resolve()
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.engine.NoteOff(note, req.Channel)
	s.respondJSON(w, http.StatusOK, map[string]any{"note": note, "name": noteName(note)})
}

func (s *FMServer) handleAllNotesOff(w http.ResponseWriter, r *http.Request) {
	s.engine.AllNotesOff()
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "released"})
}

func (s *FMServer) handlePanic(w http.ResponseWriter, r *http.Request) {
	s.engine.AllSoundOff()
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "silenced"})
}

func (s *FMServer) handleVolume(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Value float32 `json:"value"`
	}
	if !s.decodeBody(w, r, &req) {
		return
	}
	s.engine.SetMasterVolume(req.Value)
	s.respondJSON(w, http.StatusOK, map[string]float32{"volume": clamp32(req.Value, 0, 1)})
}

func (s *FMServer) handlePolyphony(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Value int `json:"value"`
	}
	if !s.decodeBody(w, r, &req) {
		return
	}
	if req.Value < 1 || req.Value > MAX_POLYPHONY {
		s.respondError(w, http.StatusBadRequest,
			fmt.Sprintf("polyphony must be 1-%d", MAX_POLYPHONY))
		return
	}
	s.engine.SetPolyphony(req.Value)
	s.respondJSON(w, http.StatusOK, map[string]int{"polyphony": req.Value})
}

func (s *FMServer) handleStealPolicy(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Policy string `json:"policy"`
	}
	if !s.decodeBody(w, r, &req) {
		return
	}
	policy, err := parseStealPolicy(req.Policy)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.engine.SetStealPolicy(policy)
	s.respondJSON(w, http.StatusOK, map[string]string{"policy": policy.String()})
}

func (s *FMServer) handleReset(w http.ResponseWriter, r *http.Request) {
	s.engine.Reset()
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}
