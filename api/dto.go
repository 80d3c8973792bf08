/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Field names are
  snake_case; dates travel as "2006-01-02" strings and balances as decimal
  strings.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Request types carry go-playground/validator tags for shape checks. Field
  names in validation messages come from the json tag. Domain rules
  (overlap, balances, references) are left to the leave package.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/warp/leave-engine/leave"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// =============================================================================
// EMPLOYEES
// =============================================================================

// EmployeeDTO represents an employee in API responses.
type EmployeeDTO struct {
	ID             string          `json:"id"`
	FirstName      string          `json:"first_name"`
	LastName       string          `json:"last_name"`
	FullName       string          `json:"full_name"`
	Email          string          `json:"email"`
	RoleID         string          `json:"role_id,omitempty"`
	LocationID     string          `json:"location_id,omitempty"`
	DaysAvailable  decimal.Decimal `json:"days_available"`
	HoursAvailable decimal.Decimal `json:"hours_available"`
	AnnualDays     decimal.Decimal `json:"annual_days"`
	AnnualHours    decimal.Decimal `json:"annual_hours"`
	CreatedAt      string          `json:"created_at,omitempty"`
}

// EmployeeRequest is the body of employee create and update.
type EmployeeRequest struct {
	ID             string          `json:"id" validate:"omitempty,max=64"`
	FirstName      string          `json:"first_name" validate:"required,max=100"`
	LastName       string          `json:"last_name" validate:"required,max=100"`
	Email          string          `json:"email" validate:"required,email"`
	RoleID         string          `json:"role_id"`
	LocationID     string          `json:"location_id"`
	DaysAvailable  decimal.Decimal `json:"days_available"`
	HoursAvailable decimal.Decimal `json:"hours_available"`
	AnnualDays     decimal.Decimal `json:"annual_days"`
	AnnualHours    decimal.Decimal `json:"annual_hours"`
}

func (r EmployeeRequest) toEmployee() leave.Employee {
	return leave.Employee{
		ID:             r.ID,
		FirstName:      r.FirstName,
		LastName:       r.LastName,
		Email:          r.Email,
		RoleID:         r.RoleID,
		LocationID:     r.LocationID,
		DaysAvailable:  r.DaysAvailable,
		HoursAvailable: r.HoursAvailable,
		AnnualDays:     r.AnnualDays,
		AnnualHours:    r.AnnualHours,
	}
}

// =============================================================================
// LEAVE REQUESTS
// =============================================================================

// LeaveRequestDTO represents a leave request in API responses.
type LeaveRequestDTO struct {
	ID             string  `json:"id"`
	EmployeeID     string  `json:"employee_id"`
	Type           string  `json:"type"`
	StartDate      string  `json:"start_date"`
	EndDate        *string `json:"end_date"`
	HoursRequested *int    `json:"hours_requested"`
	Status         string  `json:"status"`
	Notes          string  `json:"notes,omitempty"`
	CreatedAt      string  `json:"created_at"`
	ProcessedBy    string  `json:"processed_by,omitempty"`
	ProcessedAt    *string `json:"processed_at,omitempty"`
}

// SubmitRequest is the body of request create, edit and validate.
type SubmitRequest struct {
	Type           string `json:"type" validate:"required,oneof=days_off hours_off sick_leave"`
	StartDate      string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate        string `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	HoursRequested *int   `json:"hours_requested" validate:"omitempty,min=1,max=8"`
	Notes          string `json:"notes" validate:"max=1000"`
	// ExcludeID is only read by the validate endpoint.
	ExcludeID string `json:"exclude_id"`
}

func (r SubmitRequest) toDraft() (leave.RequestDraft, error) {
	start, err := leave.ParseDate(r.StartDate)
	if err != nil {
		return leave.RequestDraft{}, &leave.ValidationError{Field: "start_date", Reason: err.Error()}
	}
	draft := leave.RequestDraft{
		Type:           leave.RequestType(r.Type),
		StartDate:      start,
		HoursRequested: r.HoursRequested,
		Notes:          r.Notes,
	}
	if r.EndDate != "" {
		end, err := leave.ParseDate(r.EndDate)
		if err != nil {
			return leave.RequestDraft{}, &leave.ValidationError{Field: "end_date", Reason: err.Error()}
		}
		draft.EndDate = &end
	}
	return draft, nil
}

// ProcessRequest is the body of approve and deny.
type ProcessRequest struct {
	ApproverID string `json:"approver_id" validate:"required"`
}

// VerdictDTO is the result of a dry-run validation.
type VerdictDTO struct {
	Valid      bool   `json:"valid"`
	Reason     string `json:"reason,omitempty"`
	ConflictID string `json:"conflict_id,omitempty"`
}

// CalendarEventDTO marks one day of an employee calendar.
type CalendarEventDTO struct {
	RequestID string `json:"request_id"`
	Type      string `json:"type"`
	Status    string `json:"status"`
	Hours     *int   `json:"hours,omitempty"`
}

// =============================================================================
// AVAILABILITY & STATS
// =============================================================================

// DayAvailabilityDTO is the staffing level on one day.
type DayAvailabilityDTO struct {
	Date           string `json:"date"`
	TotalEmployees int    `json:"total_employees"`
	AvailableStaff int    `json:"available_staff"`
	Percentage     int    `json:"percentage"`
}

// ShortageDTO is an understaffed day.
type ShortageDTO struct {
	DayAvailabilityDTO
	EmployeesShort int    `json:"employees_short"`
	LocationName   string `json:"location_name"`
}

// TodayDTO is today's staffing level.
type TodayDTO struct {
	DayAvailabilityDTO
	OnLeave int `json:"on_leave"`
}

// StatsDTO holds dashboard counters.
type StatsDTO struct {
	EmployeeCount int `json:"employee_count"`
	PendingCount  int `json:"pending_count"`
}

// =============================================================================
// REFERENCE DATA & SCENARIOS
// =============================================================================

// NamedDTO is a role or location.
type NamedDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// NamedRequest is the body of role and location create and update.
type NamedRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toEmployeeDTO(e leave.Employee) EmployeeDTO {
	dto := EmployeeDTO{
		ID:             e.ID,
		FirstName:      e.FirstName,
		LastName:       e.LastName,
		FullName:       e.FullName(),
		Email:          e.Email,
		RoleID:         e.RoleID,
		LocationID:     e.LocationID,
		DaysAvailable:  e.DaysAvailable,
		HoursAvailable: e.HoursAvailable,
		AnnualDays:     e.AnnualDays,
		AnnualHours:    e.AnnualHours,
	}
	if !e.CreatedAt.IsZero() {
		dto.CreatedAt = e.CreatedAt.Format(time.RFC3339)
	}
	return dto
}

func toRequestDTO(r leave.LeaveRequest) LeaveRequestDTO {
	dto := LeaveRequestDTO{
		ID:             r.ID,
		EmployeeID:     r.EmployeeID,
		Type:           string(r.Type),
		StartDate:      r.StartDate.String(),
		HoursRequested: r.HoursRequested,
		Status:         string(r.Status),
		Notes:          r.Notes,
		CreatedAt:      r.CreatedAt.Format(time.RFC3339),
		ProcessedBy:    r.ProcessedBy,
	}
	if r.EndDate != nil {
		s := r.EndDate.String()
		dto.EndDate = &s
	}
	if r.ProcessedAt != nil {
		s := r.ProcessedAt.Format(time.RFC3339)
		dto.ProcessedAt = &s
	}
	return dto
}

func toRequestDTOs(rs []leave.LeaveRequest) []LeaveRequestDTO {
	dtos := make([]LeaveRequestDTO, len(rs))
	for i, r := range rs {
		dtos[i] = toRequestDTO(r)
	}
	return dtos
}

func toDayDTO(d leave.DayAvailability) DayAvailabilityDTO {
	return DayAvailabilityDTO{
		Date:           d.Date.String(),
		TotalEmployees: d.TotalEmployees,
		AvailableStaff: d.AvailableStaff,
		Percentage:     d.Percentage,
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// FieldError is one rejected field in a validation response.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// checkBody runs tag validation on a decoded request body.
func checkBody(body any) []FieldError {
	err := validate.Struct(body)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Message: err.Error()}}
	}
	out := make([]FieldError, 0, len(verrs))
	for _, e := range verrs {
		out = append(out, FieldError{Field: e.Field(), Message: fieldMessage(e)})
	}
	return out
}

func fieldMessage(e validator.FieldError) string {
	name := formatFieldName(e.Field())
	switch e.Tag() {
	case "required":
		return name + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", name, e.Param())
	case "datetime":
		return name + " must be a date in YYYY-MM-DD format"
	case "min", "max":
		return fmt.Sprintf("%s must satisfy %s=%s", name, e.Tag(), e.Param())
	default:
		return name + " is invalid"
	}
}

// formatFieldName turns "start_date" into "Start Date".
func formatFieldName(s string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(s, "_", " "))
}
