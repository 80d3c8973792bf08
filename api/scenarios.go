/*
scenarios.go - Demo scenarios and YAML seed datasets

PURPOSE:
  Populates a store with a roster, reference data and leave requests,
  either from a built-in scenario or from a YAML file.

AVAILABLE SCENARIOS:
  small-office:     Two locations, a handful of pending and approved requests
  holiday-crunch:   One location where overlapping approved leave causes
                    shortage days this month
  hours-and-sick:   Hourly leave and sick days waiting for approval

  Scenario dates are relative to the current month so that the dashboard
  always shows something.

YAML FORMAT:
  roles:     [{id, name}]
  locations: [{id, name}]
  employees: [{id, first_name, last_name, email, role, location,
               days_available, hours_available, annual_days, annual_hours}]
  requests:  [{id, employee, type, start, end, hours, status, notes,
               processed_by}]

SEEDING RULES:
  - Employees and reference data go through leave.Directory validation
  - Requests are shape-checked and overlap-checked like a submission, then
    stored with the status given in the file
  - Seeded approvals do NOT debit balances; the file states the balances
    as they are after those approvals

NOTE:
  Loading a scenario resets the store first. Only use in development/demo
  environments.

SEE ALSO:
  - handlers.go: Handler
  - cmd/leave/seed.go: CLI seeding
*/
package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/leave-engine/leave"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// DATASET
// =============================================================================

// Dataset is a seed file.
type Dataset struct {
	Roles     []SeedNamed    `yaml:"roles"`
	Locations []SeedNamed    `yaml:"locations"`
	Employees []SeedEmployee `yaml:"employees"`
	Requests  []SeedRequest  `yaml:"requests"`
}

// SeedNamed is a role or location entry.
type SeedNamed struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// SeedEmployee is a roster entry.
type SeedEmployee struct {
	ID             string          `yaml:"id"`
	FirstName      string          `yaml:"first_name"`
	LastName       string          `yaml:"last_name"`
	Email          string          `yaml:"email"`
	Role           string          `yaml:"role"`
	Location       string          `yaml:"location"`
	DaysAvailable  decimal.Decimal `yaml:"days_available"`
	HoursAvailable decimal.Decimal `yaml:"hours_available"`
	AnnualDays     decimal.Decimal `yaml:"annual_days"`
	AnnualHours    decimal.Decimal `yaml:"annual_hours"`
}

// SeedRequest is a leave request entry.
type SeedRequest struct {
	ID          string      `yaml:"id"`
	Employee    string      `yaml:"employee"`
	Type        string      `yaml:"type"`
	Start       leave.Date  `yaml:"start"`
	End         *leave.Date `yaml:"end"`
	Hours       *int        `yaml:"hours"`
	Status      string      `yaml:"status"`
	Notes       string      `yaml:"notes"`
	ProcessedBy string      `yaml:"processed_by"`
}

// ParseDataset decodes a YAML dataset. Unknown keys are rejected.
func ParseDataset(r io.Reader) (*Dataset, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var ds Dataset
	if err := dec.Decode(&ds); err != nil {
		if err == io.EOF {
			return &ds, nil
		}
		return nil, fmt.Errorf("parse dataset: %w", err)
	}
	return &ds, nil
}

// SeedResult counts what a load wrote.
type SeedResult struct {
	Roles     int
	Locations int
	Employees int
	Requests  int
}

// LoadDataset writes ds into store. now stamps created and processed times.
func LoadDataset(ctx context.Context, store leave.Store, ds *Dataset, now time.Time) (SeedResult, error) {
	var res SeedResult
	dir := leave.NewDirectory(store)
	validator := leave.NewValidator(store)

	for _, r := range ds.Roles {
		if _, err := dir.SaveRole(ctx, leave.Role{ID: r.ID, Name: r.Name}); err != nil {
			return res, fmt.Errorf("role %q: %w", r.Name, err)
		}
		res.Roles++
	}
	for _, l := range ds.Locations {
		if _, err := dir.SaveLocation(ctx, leave.Location{ID: l.ID, Name: l.Name}); err != nil {
			return res, fmt.Errorf("location %q: %w", l.Name, err)
		}
		res.Locations++
	}
	for _, e := range ds.Employees {
		_, err := dir.CreateEmployee(ctx, leave.Employee{
			ID:             e.ID,
			FirstName:      e.FirstName,
			LastName:       e.LastName,
			Email:          e.Email,
			RoleID:         e.Role,
			LocationID:     e.Location,
			DaysAvailable:  e.DaysAvailable,
			HoursAvailable: e.HoursAvailable,
			AnnualDays:     e.AnnualDays,
			AnnualHours:    e.AnnualHours,
			CreatedAt:      now.UTC(),
		})
		if err != nil {
			return res, fmt.Errorf("employee %q: %w", e.ID, err)
		}
		res.Employees++
	}

	for i, sr := range ds.Requests {
		req, err := seedRequest(sr, i, now)
		if err != nil {
			return res, err
		}
		e, err := store.GetEmployee(ctx, req.EmployeeID)
		if err != nil {
			return res, fmt.Errorf("request %q: %w", req.ID, err)
		}
		if e == nil {
			return res, fmt.Errorf("request %q: %w", req.ID, &leave.NotFoundError{Kind: "employee", ID: req.EmployeeID})
		}
		if req.Status != leave.StatusDenied {
			if err := validator.Check(ctx, req.EmployeeID, req.Range(), req.ID); err != nil {
				return res, fmt.Errorf("request %q: %w", req.ID, err)
			}
		}
		if err := store.SaveRequest(ctx, req); err != nil {
			return res, fmt.Errorf("request %q: %w", req.ID, err)
		}
		res.Requests++
	}
	return res, nil
}

func seedRequest(sr SeedRequest, index int, now time.Time) (leave.LeaveRequest, error) {
	id := sr.ID
	if id == "" {
		id = fmt.Sprintf("seed-%03d", index+1)
	}
	draft := leave.RequestDraft{
		Type:           leave.RequestType(sr.Type),
		StartDate:      sr.Start,
		EndDate:        sr.End,
		HoursRequested: sr.Hours,
		Notes:          sr.Notes,
	}
	if err := draft.Check(); err != nil {
		return leave.LeaveRequest{}, fmt.Errorf("request %q: %w", id, err)
	}
	status := leave.Status(sr.Status)
	if sr.Status == "" {
		status = leave.StatusPending
	}
	if !status.Valid() {
		return leave.LeaveRequest{}, fmt.Errorf("request %q: unknown status %q", id, sr.Status)
	}

	req := leave.LeaveRequest{
		ID:         id,
		EmployeeID: sr.Employee,
		Type:       draft.Type,
		StartDate:  draft.StartDate,
		Status:     status,
		Notes:      draft.Notes,
		// Later entries sort as newer.
		CreatedAt: now.UTC().Add(time.Duration(index) * time.Second),
	}
	if draft.Type.UsesHours() {
		req.HoursRequested = draft.HoursRequested
	} else {
		req.EndDate = draft.EndDate
	}
	if status != leave.StatusPending {
		processed := now.UTC()
		req.ProcessedBy = sr.ProcessedBy
		req.ProcessedAt = &processed
	}
	return req, nil
}

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

type scenario struct {
	ScenarioDTO
	build func(month leave.Month) *Dataset
}

var scenarios = []scenario{
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "small-office",
			Name:        "Small Office",
			Description: "Two locations with a mix of pending and approved leave",
		},
		build: smallOfficeDataset,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "holiday-crunch",
			Name:        "Holiday Crunch",
			Description: "Overlapping approved leave leaves one office short-staffed",
		},
		build: holidayCrunchDataset,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "hours-and-sick",
			Name:        "Hours & Sick Leave",
			Description: "Hourly leave and sick days waiting for approval",
		},
		build: hoursAndSickDataset,
	},
}

// Scenarios returns the built-in scenarios.
func Scenarios() []ScenarioDTO {
	out := make([]ScenarioDTO, len(scenarios))
	for i, s := range scenarios {
		out[i] = s.ScenarioDTO
	}
	return out
}

// ScenarioDataset builds the dataset of a built-in scenario for month.
func ScenarioDataset(id string, month leave.Month) (*Dataset, bool) {
	for _, s := range scenarios {
		if s.ID == id {
			return s.build(month), true
		}
	}
	return nil, false
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Scenarios())
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s.ScenarioDTO)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario resets the store and loads a built-in scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !decodeBody(w, r, &req) {
		return
	}
	ds, ok := ScenarioDataset(req.ScenarioID, leave.DateOf(h.now()).MonthOf())
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	ctx := r.Context()
	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""

	res, err := LoadDataset(ctx, h.Store, ds, h.now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}
	h.currentScenario = req.ScenarioID
	h.Logger.Info("scenario loaded",
		"scenario", req.ScenarioID, "employees", res.Employees, "requests", res.Requests)

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetDatabase clears every record.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// SCENARIO BUILDERS
// =============================================================================

func day(m leave.Month, n int) leave.Date { return m.First().AddDays(n - 1) }

func dayPtr(m leave.Month, n int) *leave.Date {
	d := day(m, n)
	return &d
}

func intPtr(n int) *int { return &n }

func employee(id, first, last, role, location string, days, hours int64) SeedEmployee {
	return SeedEmployee{
		ID:             id,
		FirstName:      first,
		LastName:       last,
		Email:          id + "@example.com",
		Role:           role,
		Location:       location,
		DaysAvailable:  decimal.NewFromInt(days),
		HoursAvailable: decimal.NewFromInt(hours),
		AnnualDays:     decimal.NewFromInt(25),
		AnnualHours:    decimal.NewFromInt(40),
	}
}

func smallOfficeDataset(m leave.Month) *Dataset {
	return &Dataset{
		Roles: []SeedNamed{
			{ID: "role-eng", Name: "Engineer"},
			{ID: "role-support", Name: "Support"},
		},
		Locations: []SeedNamed{
			{ID: "loc-berlin", Name: "Berlin"},
			{ID: "loc-lisbon", Name: "Lisbon"},
		},
		Employees: []SeedEmployee{
			employee("alice", "Alice", "Meyer", "role-eng", "loc-berlin", 20, 16),
			employee("bob", "Bob", "Schulz", "role-eng", "loc-berlin", 18, 8),
			employee("carla", "Carla", "Sousa", "role-support", "loc-lisbon", 22, 24),
			employee("diogo", "Diogo", "Costa", "role-support", "loc-lisbon", 15, 12),
		},
		Requests: []SeedRequest{
			{Employee: "alice", Type: "days_off", Start: day(m, 3), End: dayPtr(m, 5), Status: "approved", ProcessedBy: "manager"},
			{Employee: "bob", Type: "days_off", Start: day(m, 10), End: dayPtr(m, 12), Status: "pending", Notes: "Family visit"},
			{Employee: "carla", Type: "hours_off", Start: day(m, 8), Hours: intPtr(4), Status: "approved", ProcessedBy: "manager"},
			{Employee: "diogo", Type: "sick_leave", Start: day(m, 15), End: dayPtr(m, 16), Status: "pending"},
		},
	}
}

func holidayCrunchDataset(m leave.Month) *Dataset {
	ds := &Dataset{
		Locations: []SeedNamed{{ID: "loc-hq", Name: "HQ"}},
		Employees: []SeedEmployee{
			employee("erin", "Erin", "Walsh", "", "loc-hq", 25, 16),
			employee("frank", "Frank", "Oduya", "", "loc-hq", 25, 16),
			employee("gina", "Gina", "Rossi", "", "loc-hq", 25, 16),
			employee("hugo", "Hugo", "Lind", "", "loc-hq", 25, 16),
		},
	}
	// Three of four people off on days 20-22 put HQ at 25%.
	for _, id := range []string{"erin", "frank", "gina"} {
		ds.Requests = append(ds.Requests, SeedRequest{
			Employee: id, Type: "days_off", Start: day(m, 20), End: dayPtr(m, 22),
			Status: "approved", ProcessedBy: "manager",
		})
	}
	ds.Requests = append(ds.Requests, SeedRequest{
		Employee: "hugo", Type: "days_off", Start: day(m, 21), End: dayPtr(m, 21), Status: "pending",
	})
	return ds
}

func hoursAndSickDataset(m leave.Month) *Dataset {
	return &Dataset{
		Roles:     []SeedNamed{{ID: "role-ops", Name: "Operations"}},
		Locations: []SeedNamed{{ID: "loc-depot", Name: "Depot"}},
		Employees: []SeedEmployee{
			employee("ivan", "Ivan", "Petrov", "role-ops", "loc-depot", 12, 6),
			employee("jade", "Jade", "Nguyen", "role-ops", "loc-depot", 8, 3),
		},
		Requests: []SeedRequest{
			{Employee: "ivan", Type: "hours_off", Start: day(m, 6), Hours: intPtr(2), Status: "pending"},
			{Employee: "ivan", Type: "hours_off", Start: day(m, 7), Hours: intPtr(8), Status: "pending"},
			{Employee: "jade", Type: "sick_leave", Start: day(m, 2), End: dayPtr(m, 4), Status: "pending"},
			{Employee: "jade", Type: "hours_off", Start: day(m, 9), Hours: intPtr(5), Status: "denied", ProcessedBy: "manager"},
		},
	}
}
