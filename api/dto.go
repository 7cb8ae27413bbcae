/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

VALIDATION:
  Request types carry go-playground/validator struct tags; handlers run
  the validator before touching domain logic. Response DTOs are pure
  data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - ../schedule/present.go: Display row shape for schedule responses
*/
package api

import (
	"github.com/shopspring/decimal"

	"github.com/atelier/billing-engine/billing"
	"github.com/atelier/billing-engine/schedule"
)

// =============================================================================
// CLIENTS
// =============================================================================

// ClientDTO represents a client in API responses.
type ClientDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Notes     string `json:"notes,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// SaveClientRequest creates or updates a client.
type SaveClientRequest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"omitempty,email"`
	Phone string `json:"phone"`
	Notes string `json:"notes"`
}

// =============================================================================
// JOBS
// =============================================================================

// JobDTO represents a job in API responses.
type JobDTO struct {
	ID        string `json:"id"`
	ClientID  string `json:"client_id"`
	Title     string `json:"title"`
	Location  string `json:"location,omitempty"`
	Date      string `json:"date,omitempty"`
	Status    string `json:"status"`
	Notes     string `json:"notes,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// SaveJobRequest creates or updates a job.
type SaveJobRequest struct {
	ClientID string `json:"client_id" validate:"required"`
	Title    string `json:"title" validate:"required"`
	Location string `json:"location"`
	Date     string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Status   string `json:"status" validate:"omitempty,oneof=scheduled completed cancelled"`
	Notes    string `json:"notes"`
}

// =============================================================================
// INVOICES
// =============================================================================

// LineItemDTO is one invoice line in requests and responses.
type LineItemDTO struct {
	ID          string          `json:"id,omitempty"`
	Description string          `json:"description" validate:"required"`
	Quantity    decimal.Decimal `json:"quantity"`
	Rate        decimal.Decimal `json:"rate"`
	Amount      decimal.Decimal `json:"amount,omitempty"`
}

// InvoiceDTO represents an invoice with its derived total.
type InvoiceDTO struct {
	ID        string          `json:"id"`
	Number    string          `json:"number"`
	ClientID  string          `json:"client_id"`
	JobID     string          `json:"job_id,omitempty"`
	IssueDate string          `json:"issue_date,omitempty"`
	DueDate   string          `json:"due_date,omitempty"`
	Currency  string          `json:"currency"`
	Status    string          `json:"status"`
	Notes     string          `json:"notes,omitempty"`
	Total     decimal.Decimal `json:"total"`
	Items     []LineItemDTO   `json:"items"`

	Schedules []ScheduleDTO `json:"schedules"`
	Check     CheckDTO      `json:"check"`
}

// SaveInvoiceRequest creates or updates an invoice. Changing items moves
// the total, which reconciles the payment schedule server-side.
type SaveInvoiceRequest struct {
	Number    string        `json:"number" validate:"required"`
	ClientID  string        `json:"client_id" validate:"required"`
	JobID     string        `json:"job_id"`
	IssueDate string        `json:"issue_date" validate:"omitempty,datetime=2006-01-02"`
	DueDate   string        `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	Currency  string        `json:"currency" validate:"omitempty,len=3"`
	Status    string        `json:"status" validate:"omitempty,oneof=draft sent paid"`
	Notes     string        `json:"notes"`
	Items     []LineItemDTO `json:"items" validate:"required,min=1,dive"`
}

// =============================================================================
// SCHEDULES
// =============================================================================

// ScheduleDTO is one installment in API responses, raw values plus the
// formatted display row.
type ScheduleDTO struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	DueDate     string          `json:"due_date,omitempty"`
	Percentage  decimal.Decimal `json:"percentage"`
	Amount      decimal.Decimal `json:"amount"`
	Status      string          `json:"status"`
	PaymentDate string          `json:"payment_date,omitempty"`

	Display schedule.DisplayRow `json:"display"`
}

// CheckDTO is the 100% sum check attached to every schedule payload.
type CheckDTO struct {
	TotalPercentage decimal.Decimal `json:"total_percentage"`
	IsValid         bool            `json:"is_valid"`
	Difference      decimal.Decimal `json:"difference"`
	Warning         string          `json:"warning,omitempty"`
}

// ScheduleListResponse is the payload for every schedule mutation: the
// full list after the edit, the sum check, and any adjustment notice.
type ScheduleListResponse struct {
	Schedules []ScheduleDTO `json:"schedules"`
	Check     CheckDTO      `json:"check"`
	Notice    string        `json:"notice,omitempty"`
}

// AddScheduleRequest adds an installment. Exactly one of percentage or
// amount must be positive; the other is derived.
type AddScheduleRequest struct {
	DueDate    string          `json:"due_date" validate:"required,datetime=2006-01-02"`
	Percentage decimal.Decimal `json:"percentage"`
	Amount     decimal.Decimal `json:"amount"`
	Status     string          `json:"status" validate:"omitempty,oneof=unpaid paid write-off"`
}

// UpdateScheduleRequest applies one field edit to an installment.
type UpdateScheduleRequest struct {
	Field       string          `json:"field" validate:"required,oneof=amount percentage status due_date description"`
	NumberValue decimal.Decimal `json:"number_value"`
	StringValue string          `json:"string_value"`
	PaymentDate string          `json:"payment_date" validate:"omitempty,datetime=2006-01-02"`
}

// SetPaymentDateRequest records when an installment was actually paid.
type SetPaymentDateRequest struct {
	PaymentDate string `json:"payment_date" validate:"required,datetime=2006-01-02"`
}

// ValidationResponse reports invoice save validation.
type ValidationResponse struct {
	Valid      bool     `json:"valid"`
	Violations []string `json:"violations,omitempty"`
}

// GeneratePDFRequest invokes the export pipeline.
type GeneratePDFRequest struct {
	ForceRegenerate    bool `json:"force_regenerate"`
	DebugMode          bool `json:"debug_mode"`
	SkipSizeValidation bool `json:"skip_size_validation"`
	AllowLargeFiles    bool `json:"allow_large_files"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toClientDTO(c billing.Client) ClientDTO {
	dto := ClientDTO{
		ID:    c.ID,
		Name:  c.Name,
		Email: c.Email,
		Phone: c.Phone,
		Notes: c.Notes,
	}
	if !c.CreatedAt.IsZero() {
		dto.CreatedAt = c.CreatedAt.Format("2006-01-02")
	}
	return dto
}

func toJobDTO(j billing.Job) JobDTO {
	dto := JobDTO{
		ID:       j.ID,
		ClientID: j.ClientID,
		Title:    j.Title,
		Location: j.Location,
		Date:     j.Date,
		Status:   string(j.Status),
		Notes:    j.Notes,
	}
	if !j.CreatedAt.IsZero() {
		dto.CreatedAt = j.CreatedAt.Format("2006-01-02")
	}
	return dto
}

func toInvoiceDTO(inv billing.Invoice) InvoiceDTO {
	dto := InvoiceDTO{
		ID:        inv.ID,
		Number:    inv.Number,
		ClientID:  inv.ClientID,
		JobID:     inv.JobID,
		IssueDate: inv.IssueDate,
		DueDate:   inv.DueDate,
		Currency:  inv.Currency,
		Status:    string(inv.Status),
		Notes:     inv.Notes,
		Total:     inv.Total(),
		Items:     make([]LineItemDTO, 0, len(inv.Items)),
	}
	for _, item := range inv.Items {
		dto.Items = append(dto.Items, LineItemDTO{
			ID:          item.ID,
			Description: item.Description,
			Quantity:    item.Quantity,
			Rate:        item.Rate,
			Amount:      item.Amount(),
		})
	}
	dto.Schedules = toScheduleDTOs(inv.Schedules, inv.Currency)
	dto.Check = toCheckDTO(schedule.Check(inv.Schedules))
	return dto
}

func toScheduleDTOs(installments []schedule.Installment, currency string) []ScheduleDTO {
	sorted := schedule.SortForDisplay(installments)
	rows := schedule.DisplayRows(sorted, currency)

	dtos := make([]ScheduleDTO, 0, len(sorted))
	for i, ins := range sorted {
		dtos = append(dtos, ScheduleDTO{
			ID:          ins.ID,
			Description: ins.Description,
			DueDate:     ins.DueDate,
			Percentage:  ins.Percentage,
			Amount:      ins.Amount,
			Status:      string(ins.Status),
			PaymentDate: ins.PaymentDate,
			Display:     rows[i],
		})
	}
	return dtos
}

func toCheckDTO(check schedule.CheckResult) CheckDTO {
	return CheckDTO{
		TotalPercentage: check.TotalPercentage,
		IsValid:         check.IsValid,
		Difference:      check.Difference,
		Warning:         check.Warning(),
	}
}

func toScheduleListResponse(installments []schedule.Installment, currency string, check schedule.CheckResult, notice string) ScheduleListResponse {
	return ScheduleListResponse{
		Schedules: toScheduleDTOs(installments, currency),
		Check:     toCheckDTO(check),
		Notice:    notice,
	}
}
