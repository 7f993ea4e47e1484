package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"schema-engine/internal/engine"
	"schema-engine/internal/migration"
	"schema-engine/internal/relationship"
	"schema-engine/internal/schema"
	"schema-engine/internal/store"
	"schema-engine/internal/validate"
)

// schemaTarget selects the schema a request runs against. An inline schema
// wins over a stored id; with neither, the active schema is used.
type schemaTarget struct {
	SchemaID string                   `json:"schemaId,omitempty"`
	Version  string                   `json:"version,omitempty"`
	Schema   *schema.SchemaDefinition `json:"schema,omitempty"`
}

type validateRequest struct {
	schemaTarget
	Values  schema.Values   `json:"values,omitempty"`
	Records []schema.Values `json:"records,omitempty"`
}

type validateResponse struct {
	validate.Result
	Results []validate.Result `json:"results,omitempty"`
}

type visibilityRequest struct {
	schemaTarget
	Values schema.Values `json:"values"`
}

type fieldState struct {
	FieldID  string `json:"fieldId"`
	Visible  bool   `json:"visible"`
	Required bool   `json:"required"`
}

type evaluateRequest struct {
	schemaTarget
	Values    schema.Values  `json:"values"`
	Constants map[string]any `json:"constants,omitempty"`
}

type evaluateResponse struct {
	Results map[string]relationship.Result `json:"results"`
	Values  schema.Values                  `json:"values"`
}

type sourcesRequest struct {
	schemaTarget
	TargetFieldID string `json:"targetFieldId"`
}

type sourcesResponse struct {
	TargetFieldID string                   `json:"targetFieldId"`
	Sources       []schema.FieldDefinition `json:"sources"`
}

type planRequest struct {
	schemaTarget
	FromSchemaID string                  `json:"fromSchemaId"`
	FromVersion  string                  `json:"fromVersion"`
	From         *schema.SchemaDefinition `json:"from,omitempty"`
	Overrides    *migration.OverrideFile  `json:"overrides,omitempty"`
	Records      []migration.Record       `json:"records,omitempty"`
}

type runRequest struct {
	Config  *migration.Config  `json:"config"`
	Records []migration.Record `json:"records"`
}

type activeRequest struct {
	SchemaID string `json:"schemaId"`
}

type putSchemaResponse struct {
	Ref      string                  `json:"ref"`
	Warnings any                     `json:"warnings,omitempty"`
	Schema   *schema.SchemaDefinition `json:"schema"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok"}

	if id, err := s.store.ActiveID(r.Context()); err == nil {
		status["active"] = id
	}

	respondJSON(w, http.StatusOK, status)
}

func (s *Server) handleListSchemas(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.ListSchemas(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, list)
}

// handlePutSchema stores a schema version after it loads cleanly. Rejected
// schemas come back as 422 with their diagnostics.
func (s *Server) handlePutSchema(w http.ResponseWriter, r *http.Request) {
	var def schema.SchemaDefinition
	if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	e, err := engine.Load(&def, engine.WithLogger(s.logger))
	if err != nil {
		respondLoadError(w, err)
		return
	}

	if err := s.store.SaveSchema(r.Context(), e.Schema()); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.forget(e.Ref())

	resp := putSchemaResponse{Ref: e.Ref(), Schema: e.Schema()}
	if diags := e.Diagnostics(); len(diags.Warnings) > 0 {
		resp.Warnings = diags.Warnings
	}

	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetSchema(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	def, err := s.lookup(r.Context(), id, r.URL.Query().Get("version"))
	if err != nil {
		respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, def)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.MigrationRuns(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetActive(w http.ResponseWriter, r *http.Request) {
	def, err := s.store.Active(r.Context())
	if err != nil {
		respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, def)
}

func (s *Server) handlePutActive(w http.ResponseWriter, r *http.Request) {
	var req activeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SchemaID == "" {
		respondError(w, http.StatusBadRequest, "schemaId is required")
		return
	}

	if err := s.store.SetActive(r.Context(), req.SchemaID); err != nil {
		respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, req)
}

// handleValidate validates one record (values) or a batch (records).
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	e, err := s.resolve(r.Context(), req.schemaTarget)
	if err != nil {
		respondResolveError(w, err)
		return
	}

	if req.Records != nil {
		results := e.ValidateAll(req.Records)
		resp := validateResponse{Result: validate.Result{IsValid: true, Errors: []validate.ValidationError{}}, Results: results}

		for _, res := range results {
			if !res.IsValid {
				resp.IsValid = false
			}
		}

		respondJSON(w, http.StatusOK, resp)

		return
	}

	respondJSON(w, http.StatusOK, validateResponse{Result: e.Validate(req.Values)})
}

func (s *Server) handleVisibility(w http.ResponseWriter, r *http.Request) {
	var req visibilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	e, err := s.resolve(r.Context(), req.schemaTarget)
	if err != nil {
		respondResolveError(w, err)
		return
	}

	fields := e.Schema().Fields
	states := make([]fieldState, 0, len(fields))

	for _, f := range fields {
		visible, _ := e.IsVisible(f.ID, req.Values)
		required, _ := e.IsRequired(f.ID, req.Values)
		states = append(states, fieldState{FieldID: f.ID, Visible: visible, Required: required})
	}

	respondJSON(w, http.StatusOK, states)
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	e, err := s.resolve(r.Context(), req.schemaTarget)
	if err != nil {
		respondResolveError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, evaluateResponse{
		Results: e.EvaluateRelationships(req.Values, req.Constants),
		Values:  e.Apply(req.Values, req.Constants),
	})
}

func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	var req sourcesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	e, err := s.resolve(r.Context(), req.schemaTarget)
	if err != nil {
		respondResolveError(w, err)
		return
	}

	if e.Schema().FieldByID(req.TargetFieldID) == nil {
		respondError(w, http.StatusNotFound, "unknown field "+req.TargetFieldID)
		return
	}

	respondJSON(w, http.StatusOK, sourcesResponse{
		TargetFieldID: req.TargetFieldID,
		Sources:       e.AvailableSources(req.TargetFieldID),
	})
}

// handlePlan builds a migration config into the target schema, applies
// optional overrides and counts affected records when they are supplied.
func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	e, err := s.resolve(r.Context(), req.schemaTarget)
	if err != nil {
		respondResolveError(w, err)
		return
	}

	from := req.From
	if from == nil {
		if req.FromSchemaID == "" || req.FromVersion == "" {
			respondError(w, http.StatusBadRequest, "fromSchemaId and fromVersion are required")
			return
		}

		if from, err = s.store.GetSchema(r.Context(), req.FromSchemaID, req.FromVersion); err != nil {
			respondStoreError(w, err)
			return
		}
	}

	cfg, err := e.PlanMigration(from, s.options)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.Overrides != nil {
		if err := migration.ApplyOverrides(cfg, req.Overrides); err != nil {
			respondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
	}

	if req.Records != nil {
		cfg.AffectedCallCount = migration.CountAffected(req.Records, e.Schema())
	}

	respondJSON(w, http.StatusOK, cfg)
}

// handleRun migrates records with a previously planned config and records
// the run. The target is the config's destination schema. Records touching
// unresolved fields fail individually and are listed in the report.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Config == nil {
		respondError(w, http.StatusBadRequest, "config is required")
		return
	}

	ctx := r.Context()
	gen := s.generation()

	def, err := s.store.GetSchema(ctx, req.Config.ToSchemaID, req.Config.ToVersion)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	e, err := s.engineFor(def, gen)
	if err != nil {
		respondLoadError(w, err)
		return
	}

	report := e.Migrate(req.Records, req.Config)

	if err := s.store.RecordMigrationRun(ctx, req.Config, &report); err != nil {
		s.logger.Error().Err(err).Str("run", report.RunID).Msg("recording migration run")
	}

	respondJSON(w, http.StatusOK, report)
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	response, _ := json.Marshal(payload)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if payload != nil {
		_, _ = w.Write(response)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func respondStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	respondError(w, http.StatusInternalServerError, err.Error())
}

func respondLoadError(w http.ResponseWriter, err error) {
	var loadErr *engine.LoadError
	if errors.As(err, &loadErr) {
		respondJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":       loadErr.Error(),
			"diagnostics": loadErr.Diagnostics,
		})

		return
	}

	respondError(w, http.StatusUnprocessableEntity, err.Error())
}

func respondResolveError(w http.ResponseWriter, err error) {
	if errors.Is(err, engine.ErrInvalidSchema) {
		respondLoadError(w, err)
		return
	}

	respondStoreError(w, err)
}
