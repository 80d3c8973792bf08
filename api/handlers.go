/*
handlers.go - HTTP API handlers for the leave engine

PURPOSE:
  Exposes request lifecycle, availability, directory and statistics over
  REST. Handlers parse and shape-check input, delegate to the leave
  package and serialize the result.

ENDPOINTS:
  Employees:
    GET    /api/employees                         List (?location_id=)
    POST   /api/employees                         Create
    GET    /api/employees/{id}                    Get
    PUT    /api/employees/{id}                    Update
    DELETE /api/employees/{id}                    Delete (409 with pending requests)
    GET    /api/employees/{id}/requests           List (?status=&type=&from=&to=)
    POST   /api/employees/{id}/requests           Submit
    POST   /api/employees/{id}/requests/validate  Dry-run validation
    GET    /api/employees/{id}/calendar           Month calendar (?month=)
    GET    /api/employees/{id}/pending-count      Pending requests

  Requests:
    GET    /api/requests                          List (?status=&type=&location_id=&from=&to=)
    GET    /api/requests/{id}                     Get
    PUT    /api/requests/{id}                     Edit (back to pending)
    DELETE /api/requests/{id}                     Delete
    POST   /api/requests/{id}/approve             Approve and debit
    POST   /api/requests/{id}/deny                Deny

  Availability:
    GET    /api/availability                      Per-day grid (?month=&location_id=)
    GET    /api/availability/shortages            Shortage report
    GET    /api/availability/today                Today's staffing

ERROR HANDLING:
  - 400: Validation errors, overlaps, duplicate names
  - 404: Record not found
  - 409: Contention after retries, delete blocked by dependents, taken ids
  - 500: Store and internal errors

SECURITY NOTE:
  No authentication. The approver and actor ids are taken from the request
  as given.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo data
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/warp/leave-engine/leave"
)

// ActorHeader carries the id of the user performing a delete.
const ActorHeader = "X-Actor-ID"

// Backend is the record store the API runs on.
type Backend interface {
	leave.TxStore
	Reset(ctx context.Context) error
}

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store      Backend
	Manager    *leave.Manager
	Aggregator *leave.Aggregator
	Directory  *leave.Directory
	Stats      *leave.Stats
	Logger     *slog.Logger

	now func() time.Time

	mu              sync.Mutex
	currentScenario string
}

// NewHandler wires the leave services over store. mgr is built by the
// caller so that it can carry the change sink and observer.
func NewHandler(store Backend, mgr *leave.Manager, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		Store:      store,
		Manager:    mgr,
		Aggregator: leave.NewAggregator(store),
		Directory:  leave.NewDirectory(store),
		Stats:      leave.NewStats(store),
		Logger:     logger,
		now:        time.Now,
	}
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns the roster, optionally for one location.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Directory.ListEmployees(r.Context(), leave.EmployeeFilter{
		LocationID: r.URL.Query().Get("location_id"),
		RoleID:     r.URL.Query().Get("role_id"),
	})
	if err != nil {
		writeDomainError(w, "Failed to list employees", err)
		return
	}

	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = toEmployeeDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetEmployee returns a single employee.
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	e, err := h.Directory.GetEmployee(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to get employee", err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(*e))
}

// CreateEmployee adds an employee to the roster.
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req EmployeeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	e, err := h.Directory.CreateEmployee(r.Context(), req.toEmployee())
	if err != nil {
		writeDomainError(w, "Failed to create employee", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEmployeeDTO(*e))
}

// UpdateEmployee overwrites an employee.
func (h *Handler) UpdateEmployee(w http.ResponseWriter, r *http.Request) {
	var req EmployeeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	emp := req.toEmployee()
	emp.ID = chi.URLParam(r, "id")
	e, err := h.Directory.UpdateEmployee(r.Context(), emp)
	if err != nil {
		writeDomainError(w, "Failed to update employee", err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(*e))
}

// DeleteEmployee removes an employee without pending requests.
func (h *Handler) DeleteEmployee(w http.ResponseWriter, r *http.Request) {
	if err := h.Directory.DeleteEmployee(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, "Failed to delete employee", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListEmployeeRequests returns one employee's requests.
func (h *Handler) ListEmployeeRequests(w http.ResponseWriter, r *http.Request) {
	q, ok := parseRequestFilters(w, r)
	if !ok {
		return
	}
	q.EmployeeID = chi.URLParam(r, "id")
	rs, err := h.Manager.List(r.Context(), q)
	if err != nil {
		writeDomainError(w, "Failed to list requests", err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTOs(rs))
}

// SubmitRequest creates a pending request for the employee.
func (h *Handler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	draft, ok := decodeDraft(w, r, nil)
	if !ok {
		return
	}
	created, err := h.Manager.Create(r.Context(), chi.URLParam(r, "id"), draft)
	if err != nil {
		writeDomainError(w, "Failed to submit request", err)
		return
	}
	writeJSON(w, http.StatusCreated, toRequestDTO(*created))
}

// ValidateRequest checks a draft without saving it. Rejections are a
// normal 200 response with valid=false.
func (h *Handler) ValidateRequest(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	draft, ok := decodeDraft(w, r, &req)
	if !ok {
		return
	}
	v := h.Manager.Validate(r.Context(), chi.URLParam(r, "id"), draft, req.ExcludeID)
	writeJSON(w, http.StatusOK, VerdictDTO{Valid: v.Valid, Reason: v.Reason, ConflictID: v.ConflictID})
}

// GetCalendar returns the employee's leave days in a month.
func (h *Handler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	month, ok := h.parseMonth(w, r)
	if !ok {
		return
	}
	events, err := h.Stats.CalendarEvents(r.Context(), chi.URLParam(r, "id"), month)
	if err != nil {
		writeDomainError(w, "Failed to build calendar", err)
		return
	}
	out := make(map[string]CalendarEventDTO, len(events))
	for d, ev := range events {
		out[d.String()] = CalendarEventDTO{
			RequestID: ev.RequestID,
			Type:      string(ev.Type),
			Status:    string(ev.Status),
			Hours:     ev.Hours,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// GetPendingCount returns how many pending requests the employee has.
func (h *Handler) GetPendingCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.Stats.PendingCountForEmployee(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to count requests", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"pending_count": n})
}

// =============================================================================
// REQUEST HANDLERS
// =============================================================================

// ListRequests returns requests across all employees.
func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	q, ok := parseRequestFilters(w, r)
	if !ok {
		return
	}
	rs, err := h.Manager.List(r.Context(), q)
	if err != nil {
		writeDomainError(w, "Failed to list requests", err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTOs(rs))
}

// GetRequest returns a single request.
func (h *Handler) GetRequest(w http.ResponseWriter, r *http.Request) {
	req, err := h.Manager.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to get request", err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(*req))
}

// EditRequest replaces a request's fields and resets it to pending.
func (h *Handler) EditRequest(w http.ResponseWriter, r *http.Request) {
	draft, ok := decodeDraft(w, r, nil)
	if !ok {
		return
	}
	updated, err := h.Manager.Edit(r.Context(), chi.URLParam(r, "id"), draft)
	if err != nil {
		writeDomainError(w, "Failed to edit request", err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(*updated))
}

// DeleteRequest removes a request.
func (h *Handler) DeleteRequest(w http.ResponseWriter, r *http.Request) {
	err := h.Manager.Delete(r.Context(), chi.URLParam(r, "id"), r.Header.Get(ActorHeader))
	if err != nil {
		writeDomainError(w, "Failed to delete request", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ApproveRequest approves a request and debits the employee's balance.
func (h *Handler) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	var req ProcessRequest
	if !decodeBody(w, r, &req) {
		return
	}
	approved, err := h.Manager.Approve(r.Context(), chi.URLParam(r, "id"), req.ApproverID)
	if err != nil {
		writeDomainError(w, "Failed to approve request", err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(*approved))
}

// DenyRequest denies a request.
func (h *Handler) DenyRequest(w http.ResponseWriter, r *http.Request) {
	var req ProcessRequest
	if !decodeBody(w, r, &req) {
		return
	}
	denied, err := h.Manager.Deny(r.Context(), chi.URLParam(r, "id"), req.ApproverID)
	if err != nil {
		writeDomainError(w, "Failed to deny request", err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(*denied))
}

// =============================================================================
// AVAILABILITY & STATS HANDLERS
// =============================================================================

// GetAvailability returns the per-day staffing grid for a month.
func (h *Handler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	month, ok := h.parseMonth(w, r)
	if !ok {
		return
	}
	days, err := h.Aggregator.Availability(r.Context(), month, r.URL.Query().Get("location_id"))
	if err != nil {
		writeDomainError(w, "Failed to compute availability", err)
		return
	}
	dtos := make([]DayAvailabilityDTO, len(days))
	for i, d := range days {
		dtos[i] = toDayDTO(d)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetShortages returns the month's shortage report.
func (h *Handler) GetShortages(w http.ResponseWriter, r *http.Request) {
	month, ok := h.parseMonth(w, r)
	if !ok {
		return
	}
	shortages, err := h.Aggregator.ShortageDays(r.Context(), month, r.URL.Query().Get("location_id"))
	if err != nil {
		writeDomainError(w, "Failed to compute shortages", err)
		return
	}
	dtos := make([]ShortageDTO, len(shortages))
	for i, s := range shortages {
		dtos[i] = ShortageDTO{
			DayAvailabilityDTO: toDayDTO(s.DayAvailability),
			EmployeesShort:     s.EmployeesShort,
			LocationName:       s.LocationName,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetToday returns today's staffing level.
func (h *Handler) GetToday(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Aggregator.WithClock(h.now).Today(r.Context(), r.URL.Query().Get("location_id"))
	if err != nil {
		writeDomainError(w, "Failed to compute today's availability", err)
		return
	}
	writeJSON(w, http.StatusOK, TodayDTO{
		DayAvailabilityDTO: toDayDTO(stats.DayAvailability),
		OnLeave:            stats.OnLeave,
	})
}

// GetStats returns dashboard counters.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	employees, err := h.Stats.EmployeeCount(ctx)
	if err != nil {
		writeDomainError(w, "Failed to count employees", err)
		return
	}
	pending, err := h.Stats.PendingCount(ctx)
	if err != nil {
		writeDomainError(w, "Failed to count requests", err)
		return
	}
	writeJSON(w, http.StatusOK, StatsDTO{EmployeeCount: employees, PendingCount: pending})
}

// =============================================================================
// REFERENCE DATA HANDLERS
// =============================================================================

// ListRoles returns all roles.
func (h *Handler) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.Directory.ListRoles(r.Context())
	if err != nil {
		writeDomainError(w, "Failed to list roles", err)
		return
	}
	dtos := make([]NamedDTO, len(roles))
	for i, role := range roles {
		dtos[i] = NamedDTO{ID: role.ID, Name: role.Name}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// SaveRole creates a role, or renames one when the path carries an id.
func (h *Handler) SaveRole(w http.ResponseWriter, r *http.Request) {
	var req NamedRequest
	if !decodeBody(w, r, &req) {
		return
	}
	id := chi.URLParam(r, "id")
	if id != "" {
		if err := h.mustExist(r.Context(), "role", id); err != nil {
			writeDomainError(w, "Failed to save role", err)
			return
		}
	}
	role, err := h.Directory.SaveRole(r.Context(), leave.Role{ID: id, Name: req.Name})
	if err != nil {
		writeDomainError(w, "Failed to save role", err)
		return
	}
	writeJSON(w, statusFor(id), NamedDTO{ID: role.ID, Name: role.Name})
}

// DeleteRole removes an unassigned role.
func (h *Handler) DeleteRole(w http.ResponseWriter, r *http.Request) {
	if err := h.Directory.DeleteRole(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, "Failed to delete role", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListLocations returns all locations.
func (h *Handler) ListLocations(w http.ResponseWriter, r *http.Request) {
	locations, err := h.Directory.ListLocations(r.Context())
	if err != nil {
		writeDomainError(w, "Failed to list locations", err)
		return
	}
	dtos := make([]NamedDTO, len(locations))
	for i, l := range locations {
		dtos[i] = NamedDTO{ID: l.ID, Name: l.Name}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// SaveLocation creates a location, or renames one when the path carries an id.
func (h *Handler) SaveLocation(w http.ResponseWriter, r *http.Request) {
	var req NamedRequest
	if !decodeBody(w, r, &req) {
		return
	}
	id := chi.URLParam(r, "id")
	if id != "" {
		if err := h.mustExist(r.Context(), "location", id); err != nil {
			writeDomainError(w, "Failed to save location", err)
			return
		}
	}
	loc, err := h.Directory.SaveLocation(r.Context(), leave.Location{ID: id, Name: req.Name})
	if err != nil {
		writeDomainError(w, "Failed to save location", err)
		return
	}
	writeJSON(w, statusFor(id), NamedDTO{ID: loc.ID, Name: loc.Name})
}

// DeleteLocation removes an unassigned location.
func (h *Handler) DeleteLocation(w http.ResponseWriter, r *http.Request) {
	if err := h.Directory.DeleteLocation(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, "Failed to delete location", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// mustExist returns NotFound for renames of unknown reference records.
func (h *Handler) mustExist(ctx context.Context, kind, id string) error {
	var (
		found bool
		err   error
	)
	switch kind {
	case "role":
		var role *leave.Role
		role, err = h.Store.GetRole(ctx, id)
		found = role != nil
	default:
		var loc *leave.Location
		loc, err = h.Store.GetLocation(ctx, id)
		found = loc != nil
	}
	if err != nil {
		return &leave.StoreError{Op: "get " + kind, Err: err}
	}
	if !found {
		return &leave.NotFoundError{Kind: kind, ID: id}
	}
	return nil
}

func statusFor(id string) int {
	if id == "" {
		return http.StatusCreated
	}
	return http.StatusOK
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps a leave error to its status code.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	status, code := classify(err)
	resp := ErrorResponse{Error: message, Code: code, Details: err.Error()}

	var ve *leave.ValidationError
	if errors.As(err, &ve) {
		resp.Details = []FieldError{{Field: ve.Field, Message: ve.Reason}}
	}
	if errors.Is(err, leave.ErrOverlap) {
		resp.Details = leave.OverlapReason
	}
	writeJSON(w, status, resp)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, leave.ErrOverlap):
		return http.StatusBadRequest, "overlap"
	case errors.Is(err, leave.ErrDuplicateName):
		return http.StatusBadRequest, "duplicate_name"
	case errors.Is(err, leave.ErrValidation):
		return http.StatusBadRequest, "validation"
	case errors.Is(err, leave.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, leave.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, leave.ErrInUse):
		return http.StatusConflict, "in_use"
	case errors.Is(err, leave.ErrAlreadyExists):
		return http.StatusConflict, "exists"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "timeout"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// decodeBody decodes and tag-validates a JSON body, writing a 400 on
// failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if fields := checkBody(dst); len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "Validation failed",
			Code:    "validation",
			Details: fields,
		})
		return false
	}
	return true
}

// decodeDraft decodes a SubmitRequest into a draft. When req is non-nil the
// decoded body is left there for the caller.
func decodeDraft(w http.ResponseWriter, r *http.Request, req *SubmitRequest) (leave.RequestDraft, bool) {
	if req == nil {
		req = &SubmitRequest{}
	}
	if !decodeBody(w, r, req) {
		return leave.RequestDraft{}, false
	}
	draft, err := req.toDraft()
	if err != nil {
		writeDomainError(w, "Invalid request", err)
		return leave.RequestDraft{}, false
	}
	return draft, true
}

func parseStatuses(w http.ResponseWriter, r *http.Request) ([]leave.Status, bool) {
	raw := r.URL.Query().Get("status")
	if raw == "" {
		return nil, true
	}
	var out []leave.Status
	for _, s := range strings.Split(raw, ",") {
		st := leave.Status(strings.TrimSpace(s))
		if !st.Valid() {
			writeError(w, http.StatusBadRequest, "Invalid status filter", errors.New("unknown status "+string(st)))
			return nil, false
		}
		out = append(out, st)
	}
	return out, true
}

// parseRequestFilters reads ?status=&type=&location_id=&from=&to=. Status
// and type take comma lists. A missing from or to falls back to
// 1900-01-01 or 9999-12-31.
func parseRequestFilters(w http.ResponseWriter, r *http.Request) (leave.RequestQuery, bool) {
	var q leave.RequestQuery
	statuses, ok := parseStatuses(w, r)
	if !ok {
		return q, false
	}
	q.Statuses = statuses

	values := r.URL.Query()
	if raw := values.Get("type"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			t := leave.RequestType(strings.TrimSpace(s))
			if !t.Valid() {
				writeError(w, http.StatusBadRequest, "Invalid type filter", errors.New("unknown type "+string(t)))
				return q, false
			}
			q.Types = append(q.Types, t)
		}
	}
	q.LocationID = values.Get("location_id")

	from, to := values.Get("from"), values.Get("to")
	if from == "" && to == "" {
		return q, true
	}
	window := leave.Range{Start: leave.NewDate(1900, time.January, 1), End: leave.NewDate(9999, time.December, 31)}
	for _, bound := range []struct {
		raw string
		dst *leave.Date
	}{{from, &window.Start}, {to, &window.End}} {
		if bound.raw == "" {
			continue
		}
		d, err := leave.ParseDate(bound.raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date filter", err)
			return q, false
		}
		*bound.dst = d
	}
	if !window.Valid() {
		writeError(w, http.StatusBadRequest, "Invalid date filter", errors.New("from is after to"))
		return q, false
	}
	q.Window = &window
	return q, true
}

// parseMonth reads ?month=YYYY-MM, defaulting to the current month.
func (h *Handler) parseMonth(w http.ResponseWriter, r *http.Request) (leave.Month, bool) {
	raw := r.URL.Query().Get("month")
	if raw == "" {
		return leave.DateOf(h.now()).MonthOf(), true
	}
	m, err := leave.ParseMonth(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month, expected YYYY-MM", err)
		return leave.Month{}, false
	}
	return m, true
}
