package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/nodecore/node/internal/inbox"
	"github.com/nodecore/node/internal/job"
	"github.com/nodecore/node/internal/nodeerr"
	"github.com/nodecore/node/internal/sheet"
	"github.com/nodecore/node/internal/toolregistry"
	"github.com/nodecore/node/internal/toolrouter"
	"github.com/nodecore/node/internal/wire"
)

// errorBody is the v1/v2 shared failure shape (spec.md §6: "a typed success
// body or {code, error, message}").
type errorBody struct {
	Code    int    `json:"code"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// BearerAuthenticator re-derives a validated identity from a v2 bearer
// token (spec.md §6: "the server internally re-derives the equivalent
// validated identity").
type BearerAuthenticator interface {
	Authenticate(ctx context.Context, token string) (Validated, error)
}

// Server wires the C9 validation pipeline to the two HTTP route families.
// It depends directly on the job registry and inbox store (C5/C4) since
// those are the operations spec.md §6 enumerates for both API shapes.
type Server struct {
	validator *Validator
	bearer    BearerAuthenticator
	jobs      *job.Registry
	inboxes   *inbox.Store
	tools     *toolregistry.Registry
	router    *toolrouter.Router
	sheets    *sheet.Sheet
}

// NewServer constructs a Server. bearer may be nil until C10 registration
// wiring supplies a concrete BearerAuthenticator; v2 routes return
// Unauthorized until then. tools/router/sheets may be nil, in which case
// the corresponding /v2 routes respond Retryable until C6/C7/the Sheet
// collaborator are wired.
func NewServer(validator *Validator, bearer BearerAuthenticator, jobs *job.Registry, inboxes *inbox.Store, tools *toolregistry.Registry, router *toolrouter.Router, sheets *sheet.Sheet) *Server {
	return &Server{validator: validator, bearer: bearer, jobs: jobs, inboxes: inboxes, tools: tools, router: router, sheets: sheets}
}

// Routes builds the chi router serving both API shapes under /v1 and /v2,
// mirroring the teacher's "one mux, versioned sub-routers" composition.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Route("/v1", func(r chi.Router) {
		r.Post("/create-job", s.v1CreateJob)
		r.Post("/job-message", s.v1PostJobMessage)
		r.Post("/read-up-to-time", s.v1ReadUpToTime)
	})
	r.Route("/v2", func(r chi.Router) {
		r.Use(s.bearerMiddleware)
		r.Get("/health", s.v2Health)
		r.Get("/inboxes", s.v2ListInboxes)
		r.Get("/inboxes/{inboxName}/messages", s.v2ListMessages)
		r.Post("/jobs", s.v2CreateJob)
		r.Post("/jobs/{jobID}/messages", s.v2PostJobMessage)
		r.Get("/tools/search", s.v2SearchTools)
		r.Post("/tools/{routerKey}/execute", s.v2ExecuteTool)
		r.Get("/sheets/{sheetID}", s.v2GetSheet)
		r.Post("/sheets/{sheetID}/columns", s.v2AddSheetColumn)
		r.Post("/sheets/{sheetID}/rows", s.v2AddSheetRow)
		r.Post("/sheets/{sheetID}/cells", s.v2SetSheetCell)
	})
	return r
}

type validatedCtxKey struct{}

func withValidated(ctx context.Context, v Validated) context.Context {
	return context.WithValue(ctx, validatedCtxKey{}, v)
}

func validatedFrom(ctx context.Context) (Validated, bool) {
	v, ok := ctx.Value(validatedCtxKey{}).(Validated)
	return v, ok
}

// bearerMiddleware implements the v2 "bearer token → re-derived identity"
// contract (spec.md §6).
func (s *Server) bearerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.bearer == nil {
			writeError(w, nodeerr.New(nodeerr.Unauthorized, "bearer authentication is not configured"))
			return
		}
		token := bearerToken(r.Header.Get("authorization"))
		if token == "" {
			writeError(w, nodeerr.New(nodeerr.Unauthorized, "missing bearer token"))
			return
		}
		v, err := s.bearer.Authenticate(r.Context(), token)
		if err != nil {
			writeError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(withValidated(r.Context(), v)))
	})
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return ""
}

// decodeEnvelope reads and validates a v1 enveloped request body, expecting
// the given inner schema.
func (s *Server) decodeEnvelope(r *http.Request, schema wire.InnerSchema) (Validated, error) {
	var env wire.Envelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		return Validated{}, nodeerr.Wrap(nodeerr.BadRequest, "decode envelope", err)
	}
	return s.validator.Validate(r.Context(), env, schema)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("encode response body")
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch nodeerr.KindOf(err) {
	case nodeerr.BadRequest:
		status = http.StatusBadRequest
	case nodeerr.Forbidden:
		status = http.StatusForbidden
	case nodeerr.NotFound:
		status = http.StatusNotFound
	case nodeerr.Conflict:
		status = http.StatusConflict
	case nodeerr.Unauthorized:
		status = http.StatusUnauthorized
	case nodeerr.Retryable:
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, errorBody{Code: status, Error: string(nodeerr.KindOf(err)), Message: err.Error()})
}

type createJobRequest struct {
	JobID         string   `json:"job_id"`
	LLMProviderID string   `json:"llm_provider_id"`
	Scope         []string `json:"scope"`
	IsHidden      bool     `json:"is_hidden"`
	AssociatedUI  string   `json:"associated_ui"`
}

func (s *Server) v1CreateJob(w http.ResponseWriter, r *http.Request) {
	validated, err := s.decodeEnvelope(r, wire.SchemaJobCreation)
	if err != nil {
		writeError(w, err)
		return
	}
	var req createJobRequest
	if err := json.Unmarshal([]byte(validated.Body.MessageRawContent), &req); err != nil {
		writeError(w, nodeerr.Wrap(nodeerr.BadRequest, "decode job creation request", err))
		return
	}
	j, err := s.jobs.CreateJob(r.Context(), req.JobID, validated.SenderFullName, req.LLMProviderID, req.Scope, req.IsHidden, req.AssociatedUI, time.Now())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, j)
}

type jobMessageRequest struct {
	JobID   string `json:"job_id"`
	Content string `json:"content"`
}

func (s *Server) v1PostJobMessage(w http.ResponseWriter, r *http.Request) {
	validated, err := s.decodeEnvelope(r, wire.SchemaJobMessage)
	if err != nil {
		writeError(w, err)
		return
	}
	var req jobMessageRequest
	if err := json.Unmarshal([]byte(validated.Body.MessageRawContent), &req); err != nil {
		writeError(w, nodeerr.Wrap(nodeerr.BadRequest, "decode job message request", err))
		return
	}
	j, err := s.jobs.GetJob(r.Context(), req.JobID)
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := s.inboxes.InsertMessage(r.Context(), j.ConversationInbox, validated.SenderFullName, textEnvelope(req.Content), "", time.Now()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

type readUpToTimeRequest struct {
	InboxName string `json:"inbox_name"`
	UpTo      int64  `json:"up_to_unix_nano"`
}

func (s *Server) v1ReadUpToTime(w http.ResponseWriter, r *http.Request) {
	validated, err := s.decodeEnvelope(r, wire.SchemaAPIReadUpToTimeRequest)
	if err != nil {
		writeError(w, err)
		return
	}
	var req readUpToTimeRequest
	if err := json.Unmarshal([]byte(validated.Body.MessageRawContent), &req); err != nil {
		writeError(w, nodeerr.Wrap(nodeerr.BadRequest, "decode read-up-to-time request", err))
		return
	}
	if err := s.inboxes.MarkReadUpTo(r.Context(), req.InboxName, time.Unix(0, req.UpTo)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

func (s *Server) v2Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Status string `json:"status"`
	}{Status: "ok"})
}

func (s *Server) v2ListInboxes(w http.ResponseWriter, r *http.Request) {
	validated, _ := validatedFrom(r.Context())
	names, err := s.inboxes.ListProfileInboxes(r.Context(), validated.SenderFullName)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, names)
}

func (s *Server) v2ListMessages(w http.ResponseWriter, r *http.Request) {
	inboxName := chi.URLParam(r, "inboxName")
	branches, err := s.inboxes.LastMessages(r.Context(), inboxName, 50, "")
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, branches)
}

func (s *Server) v2CreateJob(w http.ResponseWriter, r *http.Request) {
	validated, _ := validatedFrom(r.Context())
	var req createJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, nodeerr.Wrap(nodeerr.BadRequest, "decode create-job request", err))
		return
	}
	j, err := s.jobs.CreateJob(r.Context(), req.JobID, validated.SenderFullName, req.LLMProviderID, req.Scope, req.IsHidden, req.AssociatedUI, time.Now())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, j)
}

func (s *Server) v2PostJobMessage(w http.ResponseWriter, r *http.Request) {
	validated, _ := validatedFrom(r.Context())
	jobID := chi.URLParam(r, "jobID")
	var req jobMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, nodeerr.Wrap(nodeerr.BadRequest, "decode job message request", err))
		return
	}
	j, err := s.jobs.GetJob(r.Context(), jobID)
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := s.inboxes.InsertMessage(r.Context(), j.ConversationInbox, validated.SenderFullName, textEnvelope(req.Content), "", time.Now()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

func textEnvelope(content string) wire.Envelope {
	return wire.Envelope{Body: []byte(content), InnerSchema: wire.SchemaTextContent}
}

// v2SearchTools implements combined_tool_search (spec.md §4.5) over HTTP:
// GET /v2/tools/search?query=...&limit=...&include_disabled=...&include_network=....
func (s *Server) v2SearchTools(w http.ResponseWriter, r *http.Request) {
	if s.tools == nil {
		writeError(w, nodeerr.New(nodeerr.Retryable, "tool registry is not configured"))
		return
	}
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit <= 0 {
		limit = 10
	}
	includeDisabled, _ := strconv.ParseBool(q.Get("include_disabled"))
	includeNetwork, _ := strconv.ParseBool(q.Get("include_network"))

	results, err := s.tools.Search(r.Context(), q.Get("query"), nil, limit, includeDisabled, includeNetwork)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

type executeToolRequest struct {
	JobID         string         `json:"job_id"`
	AgentID       string         `json:"agent_id"`
	Arguments     map[string]any `json:"arguments"`
	ReadableScope []string       `json:"readable_scope"`
}

// v2ExecuteTool runs one resolved, schema-validated tool call through the
// C7 router (spec.md §4.4), dispatching to whichever executor is
// registered for the tool's variant — including the C8 payment broker for
// network tools.
func (s *Server) v2ExecuteTool(w http.ResponseWriter, r *http.Request) {
	if s.router == nil {
		writeError(w, nodeerr.New(nodeerr.Retryable, "tool router is not configured"))
		return
	}
	validated, _ := validatedFrom(r.Context())
	routerKey := chi.URLParam(r, "routerKey")
	var req executeToolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, nodeerr.Wrap(nodeerr.BadRequest, "decode tool execution request", err))
		return
	}
	requester := validated.SenderFullName
	if requester == "" {
		requester = req.AgentID
	}
	result, err := s.router.Execute(r.Context(), routerKey, req.Arguments, toolrouter.ExecContext{
		JobID:         req.JobID,
		AgentID:       req.AgentID,
		RequesterName: requester,
		ReadableScope: req.ReadableScope,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Result string `json:"result"`
	}{Result: result})
}

type sheetColumnRequest struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Behavior string `json:"behavior"`
	Formula  string `json:"formula"`
}

// v2AddSheetColumn appends an ordered column to the Sheet collaborator
// (spec.md §3).
func (s *Server) v2AddSheetColumn(w http.ResponseWriter, r *http.Request) {
	if s.sheets == nil {
		writeError(w, nodeerr.New(nodeerr.Retryable, "sheet collaborator is not configured"))
		return
	}
	sheetID := chi.URLParam(r, "sheetID")
	var req sheetColumnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, nodeerr.Wrap(nodeerr.BadRequest, "decode add-column request", err))
		return
	}
	col := sheet.Column{ID: req.ID, Name: req.Name, Behavior: sheet.ColumnBehavior(req.Behavior), Formula: req.Formula}
	if err := s.sheets.AddColumn(r.Context(), sheetID, col); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

func (s *Server) v2AddSheetRow(w http.ResponseWriter, r *http.Request) {
	if s.sheets == nil {
		writeError(w, nodeerr.New(nodeerr.Retryable, "sheet collaborator is not configured"))
		return
	}
	sheetID := chi.URLParam(r, "sheetID")
	rowID, err := s.sheets.AddRow(r.Context(), sheetID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		RowID string `json:"row_id"`
	}{RowID: rowID})
}

type sheetCellRequest struct {
	RowID    string `json:"row_id"`
	ColumnID string `json:"column_id"`
	Value    string `json:"value"`
}

func (s *Server) v2SetSheetCell(w http.ResponseWriter, r *http.Request) {
	if s.sheets == nil {
		writeError(w, nodeerr.New(nodeerr.Retryable, "sheet collaborator is not configured"))
		return
	}
	sheetID := chi.URLParam(r, "sheetID")
	var req sheetCellRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, nodeerr.Wrap(nodeerr.BadRequest, "decode set-cell request", err))
		return
	}
	if err := s.sheets.SetCell(r.Context(), sheetID, req.RowID, req.ColumnID, req.Value); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

func (s *Server) v2GetSheet(w http.ResponseWriter, r *http.Request) {
	if s.sheets == nil {
		writeError(w, nodeerr.New(nodeerr.Retryable, "sheet collaborator is not configured"))
		return
	}
	sheetID := chi.URLParam(r, "sheetID")
	columns, err := s.sheets.Columns(r.Context(), sheetID)
	if err != nil {
		writeError(w, err)
		return
	}
	rows, err := s.sheets.Rows(r.Context(), sheetID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Columns []sheet.Column `json:"columns"`
		Rows    []string       `json:"rows"`
	}{Columns: columns, Rows: rows})
}
