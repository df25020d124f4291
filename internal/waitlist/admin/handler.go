// Package admin exposes the waitlist query and management surface over HTTP.
// Every response uses the same envelope; raw driver errors never reach the
// client.
package admin

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"eldercare-waitlist/internal/common/errors"
	"eldercare-waitlist/internal/common/logger"
	"eldercare-waitlist/internal/common/metrics"
	"eldercare-waitlist/internal/common/observability"
	"eldercare-waitlist/internal/models"
	"eldercare-waitlist/internal/waitlist/referral"
	"eldercare-waitlist/internal/waitlist/repository"
	"eldercare-waitlist/internal/waitlist/submission"
)

// Envelope is the uniform response shape for every admin operation.
type Envelope struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	RequestID string      `json:"requestId"`
}

// StatsProvider abstracts the stats read so the handler works the same with
// or without the Redis cache in front of the repository.
type StatsProvider interface {
	Stats(ctx context.Context) (*models.WaitlistStats, error)
}

type Handler struct {
	repo   *repository.Repository
	linker *referral.Linker
	svc    *submission.Service
	stats  StatsProvider
	obs    *observability.Observability
	logger logger.Logger
}

func NewHandler(
	repo *repository.Repository,
	linker *referral.Linker,
	svc *submission.Service,
	stats StatsProvider,
	obs *observability.Observability,
	log logger.Logger,
) *Handler {
	return &Handler{
		repo:   repo,
		linker: linker,
		svc:    svc,
		stats:  stats,
		obs:    obs,
		logger: log.WithFields(map[string]interface{}{"component": "admin-api"}),
	}
}

// Register wires the admin routes onto mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/waitlist", h.queryWaitlist)
	mux.HandleFunc("POST /api/waitlist", h.submit)
	mux.HandleFunc("PATCH /api/waitlist/{id}", h.updateEntry)
	mux.HandleFunc("DELETE /api/waitlist/{id}", h.deleteEntry)
	mux.HandleFunc("GET /api/referrals", h.listReferrals)
	mux.HandleFunc("POST /api/referrals", h.submitReferrals)
	mux.HandleFunc("PATCH /api/referrals/{id}", h.updateReferral)
	mux.HandleFunc("DELETE /api/referrals/{id}", h.deleteReferral)
}

// ParseQueryParams reads the waitlist listing parameters. Mode selectors are
// mutually exclusive; when several are present the first of email, location,
// parentLocation, stats wins and the rest are ignored.
func ParseQueryParams(values map[string][]string) models.QueryParams {
	get := func(key string) string {
		if vs, ok := values[key]; ok && len(vs) > 0 {
			return strings.TrimSpace(vs[0])
		}
		return ""
	}

	params := models.QueryParams{
		Email:          get("email"),
		Location:       get("location"),
		ParentLocation: get("parentLocation"),
	}
	if n, err := strconv.Atoi(get("limit")); err == nil {
		params.Limit = n
	}
	if n, err := strconv.Atoi(get("offset")); err == nil {
		params.Offset = n
	}
	if b, err := strconv.ParseBool(get("stats")); err == nil {
		params.Stats = b
	}
	return params
}

func (h *Handler) queryWaitlist(w http.ResponseWriter, r *http.Request) {
	op, done := h.begin(r, "waitlist-query")
	params := ParseQueryParams(r.URL.Query())

	var (
		data interface{}
		err  error
	)
	switch {
	case params.Email != "":
		data, err = h.repo.SearchByEmail(r.Context(), params.Email, params.Limit)
	case params.Location != "":
		data, err = h.repo.FilterByLocation(r.Context(), params.Location, params.Limit)
	case params.ParentLocation != "":
		data, err = h.repo.FilterByParentLocation(r.Context(), params.ParentLocation, params.Limit)
	case params.Stats:
		data, err = h.stats.Stats(r.Context())
	default:
		data, err = h.repo.List(r.Context(), params.Limit, params.Offset)
	}
	if err != nil {
		done(h.writeError(w, op, err))
		return
	}
	done(h.writeData(w, op, http.StatusOK, data))
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	op, done := h.begin(r, "waitlist-submit")

	raw := map[string]interface{}{}
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		done(h.writeValidation(w, op, "Invalid request body.", err.Error()))
		return
	}
	if verr := submission.CheckPayload(raw); verr != nil {
		done(h.writeValidation(w, op, verr.Message, verr.Details))
		return
	}

	var input models.SubmissionInput
	payload, _ := json.Marshal(raw)
	if err := json.Unmarshal(payload, &input); err != nil {
		done(h.writeValidation(w, op, "Invalid request body.", err.Error()))
		return
	}

	result := h.svc.Submit(r.Context(), &input)
	status := http.StatusOK
	if !result.Success {
		status = http.StatusBadRequest
		if result.Message == submission.MsgDatabaseError {
			status = http.StatusServiceUnavailable
		}
	}
	done(h.write(w, op, status, &Envelope{
		Success: result.Success,
		Message: result.Message,
		Data:    result,
		Error:   result.Error,
	}))
}

func (h *Handler) updateEntry(w http.ResponseWriter, r *http.Request) {
	op, done := h.begin(r, "waitlist-update")

	id, ok := pathID(r)
	if !ok {
		done(h.writeValidation(w, op, "Invalid id.", "id must be a positive integer"))
		return
	}

	var fields models.UpdateFields
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		done(h.writeValidation(w, op, "Invalid request body.", err.Error()))
		return
	}

	entry, err := h.repo.Update(r.Context(), id, fields)
	if err != nil {
		done(h.writeError(w, op, err))
		return
	}
	done(h.writeData(w, op, http.StatusOK, entry))
}

func (h *Handler) deleteEntry(w http.ResponseWriter, r *http.Request) {
	op, done := h.begin(r, "waitlist-delete")

	id, ok := pathID(r)
	if !ok {
		done(h.writeValidation(w, op, "Invalid id.", "id must be a positive integer"))
		return
	}

	removed, err := h.repo.Delete(r.Context(), id)
	if err != nil {
		done(h.writeError(w, op, err))
		return
	}
	if !removed {
		done(h.writeError(w, op, errors.NewNotFoundError("waitlist entry", id)))
		return
	}
	if cache, ok := h.stats.(interface{ Invalidate(context.Context) }); ok {
		cache.Invalidate(r.Context())
	}
	done(h.write(w, op, http.StatusOK, &Envelope{Success: true, Message: "Entry deleted."}))
}

func (h *Handler) listReferrals(w http.ResponseWriter, r *http.Request) {
	op, done := h.begin(r, "referrals-list")

	q := r.URL.Query()
	detailed, _ := strconv.ParseBool(q.Get("detailed"))

	referrerID, err := h.resolveReferrer(r, q.Get("referrerId"), q.Get("referrerEmail"))
	if err != nil {
		done(h.writeError(w, op, err))
		return
	}

	var data interface{}
	if detailed {
		data, err = h.linker.ListDetailedByReferrer(r.Context(), referrerID)
	} else {
		data, err = h.linker.ListByReferrer(r.Context(), referrerID)
	}
	if err != nil {
		done(h.writeError(w, op, err))
		return
	}
	done(h.writeData(w, op, http.StatusOK, data))
}

func (h *Handler) submitReferrals(w http.ResponseWriter, r *http.Request) {
	op, done := h.begin(r, "referrals-submit")

	var body struct {
		ReferrerEmail  string   `json:"referrerEmail"`
		ReferredEmails []string `json:"referredEmails"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		done(h.writeValidation(w, op, "Invalid request body.", err.Error()))
		return
	}

	result := h.svc.SubmitReferrals(r.Context(), body.ReferrerEmail, body.ReferredEmails)
	status := http.StatusOK
	if !result.Success {
		status = http.StatusBadRequest
		if result.Message == submission.MsgDatabaseError {
			status = http.StatusServiceUnavailable
		}
	}
	done(h.write(w, op, status, &Envelope{
		Success: result.Success,
		Message: result.Message,
		Data:    result,
	}))
}

func (h *Handler) updateReferral(w http.ResponseWriter, r *http.Request) {
	op, done := h.begin(r, "referrals-update")

	id, ok := pathID(r)
	if !ok {
		done(h.writeValidation(w, op, "Invalid id.", "id must be a positive integer"))
		return
	}

	var body struct {
		Status     string `json:"status"`
		Detailed   bool   `json:"detailed"`
		ReferredID *int64 `json:"referredId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		done(h.writeValidation(w, op, "Invalid request body.", err.Error()))
		return
	}

	var (
		data interface{}
		err  error
	)
	if body.Detailed {
		data, err = h.linker.UpdateDetailStatus(r.Context(), id, models.ReferralStatus(body.Status), body.ReferredID)
	} else {
		data, err = h.linker.UpdateStatus(r.Context(), id, models.ReferralStatus(body.Status))
	}
	if err != nil {
		done(h.writeError(w, op, err))
		return
	}
	done(h.writeData(w, op, http.StatusOK, data))
}

func (h *Handler) deleteReferral(w http.ResponseWriter, r *http.Request) {
	op, done := h.begin(r, "referrals-delete")

	id, ok := pathID(r)
	if !ok {
		done(h.writeValidation(w, op, "Invalid id.", "id must be a positive integer"))
		return
	}

	detailed, _ := strconv.ParseBool(r.URL.Query().Get("detailed"))
	var (
		removed bool
		err     error
	)
	if detailed {
		removed, err = h.linker.DeleteReferralDetail(r.Context(), id)
	} else {
		removed, err = h.linker.DeleteReferral(r.Context(), id)
	}
	if err != nil {
		done(h.writeError(w, op, err))
		return
	}
	if !removed {
		done(h.writeError(w, op, errors.NewNotFoundError("referral", id)))
		return
	}
	done(h.write(w, op, http.StatusOK, &Envelope{Success: true, Message: "Referral deleted."}))
}

func (h *Handler) resolveReferrer(r *http.Request, rawID, email string) (int64, error) {
	if rawID != "" {
		id, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil || id <= 0 {
			return 0, errors.NewValidationError("Invalid referrerId.", "referrerId must be a positive integer")
		}
		return id, nil
	}
	if email == "" {
		return 0, errors.NewValidationError("Missing referrer.", "referrerId or referrerEmail is required")
	}

	entry, err := h.repo.GetByEmail(r.Context(), email)
	if err != nil {
		return 0, err
	}
	if entry == nil {
		return 0, errors.NewValidationError(submission.MsgReferrerNotFound, "email: "+email)
	}
	return entry.ID, nil
}

// opContext identifies one in-flight admin operation for logging and
// response stamping.
type opContext struct {
	operation string
	requestID string
}

// begin stamps the request with an id and returns the completion callback
// that records duration and outcome for the operation.
func (h *Handler) begin(r *http.Request, operation string) (opContext, func(status string)) {
	start := time.Now()
	op := opContext{operation: operation, requestID: uuid.NewString()}
	r.Header.Set("X-Request-Id", op.requestID)
	return op, func(status string) {
		metrics.AdminQueryDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
		if h.obs != nil {
			h.obs.RecordOperation(r.Context(), operation, status)
			h.obs.RecordDuration(r.Context(), operation, time.Since(start))
		}
	}
}

func (h *Handler) writeData(w http.ResponseWriter, op opContext, status int, data interface{}) string {
	return h.write(w, op, status, &Envelope{Success: true, Data: data})
}

func (h *Handler) writeValidation(w http.ResponseWriter, op opContext, message, details string) string {
	return h.write(w, op, http.StatusBadRequest, &Envelope{
		Success: false,
		Message: message,
		Error:   details,
	})
}

// writeError maps the storage taxonomy onto HTTP statuses with user-safe
// messages. Anything unrecognized is treated as unavailability.
func (h *Handler) writeError(w http.ResponseWriter, op opContext, err error) string {
	var stdErr *errors.StandardError
	if stderrors.As(err, &stdErr) {
		status := http.StatusBadRequest
		if stdErr.Code == errors.ErrCodeNotFound {
			status = http.StatusNotFound
		}
		return h.write(w, op, status, &Envelope{
			Success: false,
			Message: stdErr.Message,
			Error:   stdErr.Details,
		})
	}

	status := http.StatusServiceUnavailable
	message := submission.MsgDatabaseError
	switch {
	case errors.IsNotFound(err):
		status = http.StatusNotFound
		message = "Not found."
	case stderrors.Is(err, repository.ErrFieldNotAllowed),
		stderrors.Is(err, referral.ErrInvalidStatus):
		status = http.StatusBadRequest
		message = "Invalid request."
	case errors.IsConstraintViolation(err):
		status = http.StatusConflict
		message = "Database integrity error."
	}

	h.logger.Error("admin operation failed", map[string]interface{}{
		"operation": op.operation,
		"requestId": op.requestID,
		"error":     err.Error(),
	})
	return h.write(w, op, status, &Envelope{
		Success: false,
		Message: message,
		Error:   err.Error(),
	})
}

func (h *Handler) write(w http.ResponseWriter, op opContext, status int, env *Envelope) string {
	env.RequestID = op.requestID
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		h.logger.Error("response encoding failed", map[string]interface{}{"error": err.Error()})
	}
	if env.Success {
		return "success"
	}
	return "error"
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil && id > 0
}
