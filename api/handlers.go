/*
handlers.go - HTTP API handlers for the billing system

PURPOSE:
  Exposes clients, jobs, invoices and payment schedules via REST API.
  Handles HTTP request/response, JSON serialization, and delegates to
  domain logic.

ENDPOINTS:
  Clients:
    GET    /api/clients                List all clients
    POST   /api/clients                Create client
    GET    /api/clients/{id}           Get client
    PUT    /api/clients/{id}           Update client
    DELETE /api/clients/{id}           Delete client

  Jobs:
    GET    /api/jobs                   List all jobs
    POST   /api/jobs                   Create job
    GET    /api/jobs/{id}              Get, PUT update, DELETE delete

  Invoices:
    GET    /api/invoices               List all invoices
    POST   /api/invoices               Create invoice (seeds default schedule)
    GET    /api/invoices/{id}          Get invoice with schedules and check
    PUT    /api/invoices/{id}          Update; item changes reconcile the schedule
    DELETE /api/invoices/{id}          Delete invoice

  Schedules (subresource of an invoice):
    GET    /api/invoices/{id}/schedules                    List with sum check
    POST   /api/invoices/{id}/schedules                    Add installment
    PUT    /api/invoices/{id}/schedules/{sid}              Apply one field edit
    DELETE /api/invoices/{id}/schedules/{sid}              Remove installment
    PUT    /api/invoices/{id}/schedules/{sid}/payment-date Record payment date

  Export:
    POST   /api/invoices/{id}/validate Save validation report
    POST   /api/invoices/{id}/pdf      Run the PDF export pipeline

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input (go-playground/validator)
  3. Call domain logic (editor, reconciler, pipeline)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Conflict (paid installment locked, overflow, negative remaining)
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/atelier/billing-engine/billing"
	"github.com/atelier/billing-engine/pdf"
	"github.com/atelier/billing-engine/schedule"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store billing.Store
	PDF   *pdf.Generator
	Log   logrus.FieldLogger

	validate *validator.Validate
	newID    func() string
	clock    func() time.Time
}

// NewHandler creates a new handler with the given dependencies.
func NewHandler(store billing.Store, gen *pdf.Generator, log logrus.FieldLogger) *Handler {
	return &Handler{
		Store:    store,
		PDF:      gen,
		Log:      log,
		validate: validator.New(),
		newID:    uuid.NewString,
		clock:    time.Now,
	}
}

// decodeAndValidate parses the body and runs struct validation. A false
// return means the error response is already written.
func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return false
	}
	return true
}

// =============================================================================
// CLIENT HANDLERS
// =============================================================================

// ListClients returns all clients.
func (h *Handler) ListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := h.Store.ListClients(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list clients", err)
		return
	}

	dtos := make([]ClientDTO, 0, len(clients))
	for _, c := range clients {
		dtos = append(dtos, toClientDTO(c))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateClient creates a client.
func (h *Handler) CreateClient(w http.ResponseWriter, r *http.Request) {
	var req SaveClientRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	c := billing.Client{
		ID:        h.newID(),
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Notes:     req.Notes,
		CreatedAt: h.clock().UTC(),
	}
	if err := h.Store.SaveClient(r.Context(), c); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create client", err)
		return
	}
	writeJSON(w, http.StatusCreated, toClientDTO(c))
}

// GetClient returns a single client.
func (h *Handler) GetClient(w http.ResponseWriter, r *http.Request) {
	c, err := h.Store.GetClient(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load client", err)
		return
	}
	if c == nil {
		writeError(w, http.StatusNotFound, "Client not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toClientDTO(*c))
}

// UpdateClient updates a client.
func (h *Handler) UpdateClient(w http.ResponseWriter, r *http.Request) {
	existing, err := h.Store.GetClient(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load client", err)
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "Client not found", nil)
		return
	}

	var req SaveClientRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	existing.Name = req.Name
	existing.Email = req.Email
	existing.Phone = req.Phone
	existing.Notes = req.Notes
	if err := h.Store.SaveClient(r.Context(), *existing); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update client", err)
		return
	}
	writeJSON(w, http.StatusOK, toClientDTO(*existing))
}

// DeleteClient deletes a client.
func (h *Handler) DeleteClient(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteClient(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete client", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// JOB HANDLERS
// =============================================================================

// ListJobs returns all jobs.
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.Store.ListJobs(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list jobs", err)
		return
	}

	dtos := make([]JobDTO, 0, len(jobs))
	for _, j := range jobs {
		dtos = append(dtos, toJobDTO(j))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateJob creates a job.
func (h *Handler) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req SaveJobRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	status := billing.JobStatus(req.Status)
	if req.Status == "" {
		status = billing.JobScheduled
	}
	j := billing.Job{
		ID:        h.newID(),
		ClientID:  req.ClientID,
		Title:     req.Title,
		Location:  req.Location,
		Date:      req.Date,
		Status:    status,
		Notes:     req.Notes,
		CreatedAt: h.clock().UTC(),
	}
	if err := h.Store.SaveJob(r.Context(), j); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create job", err)
		return
	}
	writeJSON(w, http.StatusCreated, toJobDTO(j))
}

// GetJob returns a single job.
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	j, err := h.Store.GetJob(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load job", err)
		return
	}
	if j == nil {
		writeError(w, http.StatusNotFound, "Job not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toJobDTO(*j))
}

// UpdateJob updates a job.
func (h *Handler) UpdateJob(w http.ResponseWriter, r *http.Request) {
	existing, err := h.Store.GetJob(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load job", err)
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "Job not found", nil)
		return
	}

	var req SaveJobRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	existing.ClientID = req.ClientID
	existing.Title = req.Title
	existing.Location = req.Location
	existing.Date = req.Date
	if req.Status != "" {
		existing.Status = billing.JobStatus(req.Status)
	}
	existing.Notes = req.Notes
	if err := h.Store.SaveJob(r.Context(), *existing); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update job", err)
		return
	}
	writeJSON(w, http.StatusOK, toJobDTO(*existing))
}

// DeleteJob deletes a job.
func (h *Handler) DeleteJob(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteJob(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete job", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// INVOICE HANDLERS
// =============================================================================

// ListInvoices returns all invoices with derived totals.
func (h *Handler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	invoices, err := h.Store.ListInvoices(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list invoices", err)
		return
	}

	dtos := make([]InvoiceDTO, 0, len(invoices))
	for _, inv := range invoices {
		dtos = append(dtos, toInvoiceDTO(inv))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateInvoice creates an invoice and seeds its default schedule.
func (h *Handler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	var req SaveInvoiceRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	inv := billing.Invoice{
		ID:        h.newID(),
		Currency:  "USD",
		Status:    billing.InvoiceDraft,
		CreatedAt: h.clock().UTC(),
	}
	h.applyInvoiceRequest(&inv, req)

	if err := inv.EnsureDefaultSchedule(); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to seed payment schedule", err)
		return
	}
	if err := inv.ValidateForSave(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if err := h.Store.SaveInvoice(r.Context(), inv); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create invoice", err)
		return
	}
	writeJSON(w, http.StatusCreated, toInvoiceDTO(inv))
}

// GetInvoice returns a single invoice with its schedules and sum check.
func (h *Handler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	inv, ok := h.loadInvoice(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceDTO(*inv))
}

// UpdateInvoice updates an invoice. When the line items move the total,
// the payment schedule is reconciled: paid installments keep their
// amounts, unpaid installments absorb the difference proportionally.
func (h *Handler) UpdateInvoice(w http.ResponseWriter, r *http.Request) {
	inv, ok := h.loadInvoice(w, r)
	if !ok {
		return
	}

	var req SaveInvoiceRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	ed := inv.Editor(true)
	h.applyInvoiceRequest(inv, req)

	res, err := ed.SetTotal(inv.Total())
	if err != nil {
		h.writeDomainError(w, "Failed to reconcile payment schedule", err)
		return
	}
	inv.ApplySchedules(res)

	if err := inv.ValidateForSave(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if err := h.Store.SaveInvoice(r.Context(), *inv); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update invoice", err)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceDTO(*inv))
}

// DeleteInvoice deletes an invoice with its items and schedules.
func (h *Handler) DeleteInvoice(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteInvoice(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete invoice", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// applyInvoiceRequest copies request fields onto the invoice, assigning
// IDs to new line items.
func (h *Handler) applyInvoiceRequest(inv *billing.Invoice, req SaveInvoiceRequest) {
	inv.Number = req.Number
	inv.ClientID = req.ClientID
	inv.JobID = req.JobID
	inv.IssueDate = req.IssueDate
	inv.DueDate = req.DueDate
	if req.Currency != "" {
		inv.Currency = req.Currency
	}
	if req.Status != "" {
		inv.Status = billing.InvoiceStatus(req.Status)
	}
	inv.Notes = req.Notes

	inv.Items = inv.Items[:0]
	for _, item := range req.Items {
		id := item.ID
		if id == "" {
			id = h.newID()
		}
		inv.Items = append(inv.Items, billing.LineItem{
			ID:          id,
			Description: item.Description,
			Quantity:    item.Quantity,
			Rate:        item.Rate,
		})
	}
	inv.UpdatedAt = h.clock().UTC()
}

// ValidateInvoice reports the save validation verdict without saving.
func (h *Handler) ValidateInvoice(w http.ResponseWriter, r *http.Request) {
	inv, ok := h.loadInvoice(w, r)
	if !ok {
		return
	}

	violations := inv.SaveViolations()
	writeJSON(w, http.StatusOK, ValidationResponse{
		Valid:      len(violations) == 0,
		Violations: violations,
	})
}

// =============================================================================
// SCHEDULE HANDLERS
// =============================================================================

// ListSchedules returns the invoice's schedule with the sum check.
func (h *Handler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	inv, ok := h.loadInvoice(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK,
		toScheduleListResponse(inv.Schedules, inv.Currency, schedule.Check(inv.Schedules), ""))
}

// AddSchedule adds an installment. Either percentage or amount may be
// given; overflow past 100% is absorbed by the most recent unpaid
// installment and reported in the notice.
func (h *Handler) AddSchedule(w http.ResponseWriter, r *http.Request) {
	var req AddScheduleRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	h.editSchedule(w, r, http.StatusCreated, func(ed *schedule.Editor) (schedule.Result, error) {
		return ed.Add(schedule.AddRequest{
			DueDate:    req.DueDate,
			Percentage: req.Percentage,
			Amount:     req.Amount,
			Status:     schedule.Status(req.Status),
		})
	})
}

// UpdateSchedule applies one field edit to an installment.
func (h *Handler) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	var req UpdateScheduleRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	cmd, err := toCommand(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid field edit", err)
		return
	}

	sid := chi.URLParam(r, "sid")
	h.editSchedule(w, r, http.StatusOK, func(ed *schedule.Editor) (schedule.Result, error) {
		return ed.Apply(sid, cmd)
	})
}

// RemoveSchedule removes an unpaid installment and renumbers the
// generated descriptions that remain.
func (h *Handler) RemoveSchedule(w http.ResponseWriter, r *http.Request) {
	sid := chi.URLParam(r, "sid")
	h.editSchedule(w, r, http.StatusOK, func(ed *schedule.Editor) (schedule.Result, error) {
		return ed.Remove(sid)
	})
}

// SetSchedulePaymentDate records when an installment was paid.
func (h *Handler) SetSchedulePaymentDate(w http.ResponseWriter, r *http.Request) {
	var req SetPaymentDateRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	sid := chi.URLParam(r, "sid")
	h.editSchedule(w, r, http.StatusOK, func(ed *schedule.Editor) (schedule.Result, error) {
		return ed.SetPaymentDate(sid, req.PaymentDate)
	})
}

// editSchedule runs one editor mutation against the invoice's schedule,
// persists the outcome, and writes the schedule list response.
func (h *Handler) editSchedule(w http.ResponseWriter, r *http.Request, okStatus int,
	mutate func(ed *schedule.Editor) (schedule.Result, error)) {

	inv, ok := h.loadInvoice(w, r)
	if !ok {
		return
	}

	ed := inv.Editor(true)
	res, err := mutate(ed)
	if err != nil {
		h.writeDomainError(w, "Failed to edit payment schedule", err)
		return
	}
	inv.ApplySchedules(res)

	if err := h.Store.SaveInvoice(r.Context(), *inv); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save payment schedule", err)
		return
	}
	writeJSON(w, okStatus,
		toScheduleListResponse(res.Installments, inv.Currency, res.Check, res.Notice))
}

// toCommand maps a field edit request onto an engine command.
func toCommand(req UpdateScheduleRequest) (schedule.Command, error) {
	switch req.Field {
	case "amount":
		return schedule.SetAmount{Value: req.NumberValue}, nil
	case "percentage":
		return schedule.SetPercentage{Value: req.NumberValue}, nil
	case "status":
		return schedule.SetStatus{
			Value:       schedule.Status(req.StringValue),
			PaymentDate: req.PaymentDate,
		}, nil
	case "due_date":
		return schedule.SetDueDate{Value: req.StringValue}, nil
	case "description":
		return schedule.SetDescription{Value: req.StringValue}, nil
	default:
		return nil, errors.New("unknown field: " + req.Field)
	}
}

// =============================================================================
// PDF EXPORT
// =============================================================================

// GeneratePDF runs the export pipeline and returns the document URL.
func (h *Handler) GeneratePDF(w http.ResponseWriter, r *http.Request) {
	inv, ok := h.loadInvoice(w, r)
	if !ok {
		return
	}

	var req GeneratePDFRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	resp, err := h.PDF.Generate(r.Context(), pdf.Request{
		InvoiceID:          inv.ID,
		ForceRegenerate:    req.ForceRegenerate,
		DebugMode:          req.DebugMode,
		SkipSizeValidation: req.SkipSizeValidation,
		AllowLargeFiles:    req.AllowLargeFiles,
	})
	if err != nil {
		payload := ErrorResponse{Error: "PDF generation failed", Details: err.Error()}
		if resp != nil && len(resp.DebugInfo) > 0 {
			writeJSON(w, http.StatusInternalServerError, struct {
				ErrorResponse
				DebugInfo []pdf.StageTiming `json:"debug_info"`
			}{payload, resp.DebugInfo})
			return
		}
		writeJSON(w, http.StatusInternalServerError, payload)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// HELPERS
// =============================================================================

// loadInvoice fetches the invoice in the URL, writing the error response
// on failure.
func (h *Handler) loadInvoice(w http.ResponseWriter, r *http.Request) (*billing.Invoice, bool) {
	inv, err := h.Store.GetInvoice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load invoice", err)
		return nil, false
	}
	if inv == nil {
		writeError(w, http.StatusNotFound, "Invoice not found", nil)
		return nil, false
	}
	return inv, true
}

// writeDomainError maps engine errors onto HTTP statuses. The engine's
// messages are user-facing and passed through verbatim.
func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case schedule.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error(), nil)
	case schedule.IsConflict(err):
		writeError(w, http.StatusConflict, err.Error(), nil)
	case schedule.IsClientError(err):
		writeError(w, http.StatusBadRequest, err.Error(), nil)
	default:
		h.Log.WithError(err).Error(message)
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

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
