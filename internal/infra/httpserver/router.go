package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	appadvisory "github.com/bryanwahyu/audit-gateway/internal/application/advisory"
	appaudit "github.com/bryanwahyu/audit-gateway/internal/application/audit"
	domain "github.com/bryanwahyu/audit-gateway/internal/domain/audit"
	"github.com/bryanwahyu/audit-gateway/internal/domain/risk"
	"github.com/bryanwahyu/audit-gateway/internal/infra/backend"
	"github.com/bryanwahyu/audit-gateway/internal/middleware"
	"github.com/bryanwahyu/audit-gateway/internal/notify"
)

type Router struct {
	auditSvc    *appaudit.Service
	advisorySvc *appadvisory.Service
	client      *backend.Client
	poller      *notify.Poller
}

// NewRouter wires the gateway's HTTP surface. advisorySvc and poller
// may be nil; the corresponding endpoints then answer 503 / empty.
func NewRouter(auditSvc *appaudit.Service, advisorySvc *appadvisory.Service, client *backend.Client, poller *notify.Poller) http.Handler {
	r := &Router{auditSvc: auditSvc, advisorySvc: advisorySvc, client: client, poller: poller}
	mux := chi.NewRouter()

	mux.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte("ok"))
	})

	mux.Route("/api", func(rt chi.Router) {
		rt.Post("/risk/score", r.wrap(r.handleRiskScore))

		rt.Post("/customer/questionnaire", r.wrap(r.handleQuestionnaire))
		rt.Get("/customer/audit-status/{customerID}", r.wrap(r.handleAuditStatus))

		rt.Post("/auditor/tasks", r.wrap(r.handleMergeTasks))
		rt.Get("/auditor/tasks/new", r.wrap(r.handleNewTasks))
		rt.Post("/auditor/route-preview", r.wrap(r.handleRoutePreview))
		rt.Post("/auditor/tasks/{auditID}/advisory", r.wrap(r.handleAdvisory))
		rt.Post("/auditor/result", r.wrap(r.handleSubmitResult))
		rt.Post("/auditor/release", r.wrap(r.handleRelease))
		rt.Delete("/auditor/cache/{level}", r.wrap(r.handleClearCache))
		rt.Get("/auditor/audit-history/{auditID}", r.wrap(r.handleHistory))
		rt.Get("/auditor/history/{auditorID}", r.wrap(r.handleAuditorHistory))
		rt.Get("/auditor/notifications", r.wrap(r.handleNotifications))

		rt.HandleFunc("/proxy", r.handleProxy)
		rt.HandleFunc("/proxy/*", r.handleProxy)
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// wrap translates handler errors into envelope responses. Backend
// unreachability is the only failure mapped to 503; everything else is
// either a client problem or a generic, retryable failure.
func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}

		var verr *appaudit.ValidationError
		if errors.As(err, &verr) {
			respondError(w, http.StatusBadRequest, "audit form is invalid", map[string]any{"errors": verr.Errors})
			return
		}
		var badReq *badRequestError
		if errors.As(err, &badReq) {
			respondError(w, http.StatusBadRequest, badReq.msg, nil)
			return
		}
		if errors.Is(err, domain.ErrBackendUnreachable) {
			respondError(w, http.StatusServiceUnavailable, "audit service is unavailable, please try again later", nil)
			return
		}
		var berr *backend.Error
		if errors.As(err, &berr) {
			status := berr.Status
			if status < 400 {
				status = http.StatusBadGateway
			}
			respondError(w, status, berr.Message, nil)
			return
		}

		log.WithError(err).WithField("path", req.URL.Path).Error("request failed")
		respondError(w, http.StatusInternalServerError, "request failed, please try again", nil)
	}
}

// badRequestError marks malformed input from the client.
type badRequestError struct{ msg string }

func (e *badRequestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &badRequestError{msg: fmt.Sprintf(format, args...)}
}

// POST /api/risk/score
// Body: questionnaire answers. Pure computation, no backend call.
func (r *Router) handleRiskScore(w http.ResponseWriter, req *http.Request) error {
	var answers risk.Answers
	if err := json.NewDecoder(req.Body).Decode(&answers); err != nil {
		return badRequest("invalid request body: %v", err)
	}

	score := risk.Score(answers)
	tier := risk.TierFromScore(score)
	respondOK(w, "ok", map[string]any{
		"score":      score,
		"tier":       tier,
		"label":      risk.TierLabel(tier),
		"badgeClass": risk.BadgeClass(tier),
	})
	return nil
}

// POST /api/customer/questionnaire
// Accepts the questionnaire plus the raw answers; the risk score and
// backend codes are filled in server-side when the client left them
// out.
func (r *Router) handleQuestionnaire(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		domain.Questionnaire
		Answers *risk.Answers `json:"answers,omitempty"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return badRequest("invalid request body: %v", err)
	}

	q := body.Questionnaire
	if body.Answers != nil {
		a := *body.Answers
		if q.RiskAssessment.Score == 0 {
			q.RiskAssessment.Score = risk.Score(a)
		}
		if q.RiskAssessment.AnnualIncome == 0 {
			q.RiskAssessment.AnnualIncome = risk.IncomeCode(a.Income)
		}
		if q.RiskAssessment.MaxLoss == 0 {
			q.RiskAssessment.MaxLoss = risk.MaxLossCode(a.MaxLoss)
		}
		if q.RiskAssessment.Experience == "" {
			q.RiskAssessment.Experience = risk.ExperienceText(a.Experience)
		}
	}

	id, err := r.client.SubmitQuestionnaire(req.Context(), q)
	if err != nil {
		return err
	}
	respondOK(w, "questionnaire submitted", id)
	return nil
}

// GET /api/customer/audit-status/{customerID}
func (r *Router) handleAuditStatus(w http.ResponseWriter, req *http.Request) error {
	customerID, err := strconv.ParseInt(chi.URLParam(req, "customerID"), 10, 64)
	if err != nil {
		return badRequest("invalid customer id")
	}
	status, err := r.client.AuditStatus(req.Context(), customerID)
	if err != nil {
		return err
	}
	respondOK(w, "ok", status)
	return nil
}

// POST /api/auditor/tasks
// Body: {"level": 0, "auditorId": 7}
// Returns the merged (cached + newly fetched) task view for the level.
func (r *Router) handleMergeTasks(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Level     int   `json:"level"`
		AuditorID int64 `json:"auditorId"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return badRequest("invalid request body: %v", err)
	}
	if err := middleware.ValidateLevel(body.Level); err != nil {
		return badRequest("%v", err)
	}

	res, err := r.auditSvc.MergeTasks(req.Context(), domain.Stage(body.Level), body.AuditorID)
	if err != nil {
		return err
	}
	middleware.IncrementMerges()

	msg := "no new tasks"
	if res.NewCount > 0 {
		msg = fmt.Sprintf("%d new tasks fetched", res.NewCount)
	}
	res.List.Tasks = maskTasks(res.List.Tasks)
	respondOK(w, msg, res.List)
	return nil
}

// GET /api/auditor/tasks/new?level=0&exclude=101,102
// Raw polling passthrough; does not touch the cache.
func (r *Router) handleNewTasks(w http.ResponseWriter, req *http.Request) error {
	level, err := strconv.Atoi(req.URL.Query().Get("level"))
	if err != nil {
		return badRequest("invalid level")
	}
	if err := middleware.ValidateLevel(level); err != nil {
		return badRequest("%v", err)
	}
	exclude, err := parseIDList(req.URL.Query().Get("exclude"))
	if err != nil {
		return badRequest("invalid exclude list: %v", err)
	}

	tasks, err := r.client.NewTasks(req.Context(), domain.Stage(level), exclude)
	if err != nil {
		return err
	}
	respondOK(w, "ok", maskTasks(tasks))
	return nil
}

// POST /api/auditor/route-preview
// Body: {"level": 1, "riskType": "moderate", "approved": true}
// Tells the confirm dialog where the case is expected to go next. The
// backend computes the real transition; this is display-only.
func (r *Router) handleRoutePreview(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Level    int    `json:"level"`
		RiskType string `json:"riskType"`
		Approved bool   `json:"approved"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return badRequest("invalid request body: %v", err)
	}
	if err := middleware.ValidateLevel(body.Level); err != nil {
		return badRequest("%v", err)
	}

	route := domain.ExpectedRoute(domain.Stage(body.Level), risk.Tier(body.RiskType), body.Approved)
	respondOK(w, route.Reason, route)
	return nil
}

// POST /api/auditor/tasks/{auditID}/advisory
// Body: the task snapshot to assess.
func (r *Router) handleAdvisory(w http.ResponseWriter, req *http.Request) error {
	if r.advisorySvc == nil {
		respondError(w, http.StatusServiceUnavailable, "AI advisory is not configured", nil)
		return nil
	}
	auditID, err := strconv.ParseInt(chi.URLParam(req, "auditID"), 10, 64)
	if err != nil {
		return badRequest("invalid audit id")
	}

	var task domain.Task
	if err := json.NewDecoder(req.Body).Decode(&task); err != nil {
		return badRequest("invalid request body: %v", err)
	}
	task.AuditID = domain.TaskID(auditID)

	note, err := r.advisorySvc.Advise(req.Context(), task)
	if err != nil {
		return fmt.Errorf("generating advisory for audit %d: %w", auditID, err)
	}
	respondOK(w, "ok", map[string]any{"auditId": task.AuditID, "aiAudit": note})
	return nil
}

// POST /api/auditor/result
func (r *Router) handleSubmitResult(w http.ResponseWriter, req *http.Request) error {
	var sub domain.Submission
	if err := json.NewDecoder(req.Body).Decode(&sub); err != nil {
		return badRequest("invalid request body: %v", err)
	}
	if err := middleware.ValidateLevel(int(sub.AuditorLevel)); err != nil {
		return badRequest("%v", err)
	}

	outcome, err := r.auditSvc.SubmitResult(req.Context(), sub)
	if err != nil {
		return err
	}
	middleware.IncrementDecisions()
	respondOK(w, domain.StatusLabel(outcome.WorkflowStatus), outcome)
	return nil
}

// POST /api/auditor/release
// Body: {"auditId": 102, "level": 1}
func (r *Router) handleRelease(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		AuditID int64 `json:"auditId"`
		Level   int   `json:"level"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return badRequest("invalid request body: %v", err)
	}
	if err := middleware.ValidateLevel(body.Level); err != nil {
		return badRequest("%v", err)
	}

	if err := r.auditSvc.ReleaseTask(req.Context(), domain.Stage(body.Level), domain.TaskID(body.AuditID)); err != nil {
		return err
	}
	respondOK(w, "task released", nil)
	return nil
}

// DELETE /api/auditor/cache/{level}
func (r *Router) handleClearCache(w http.ResponseWriter, req *http.Request) error {
	level, err := strconv.Atoi(chi.URLParam(req, "level"))
	if err != nil {
		return badRequest("invalid level")
	}
	if err := middleware.ValidateLevel(level); err != nil {
		return badRequest("%v", err)
	}

	if err := r.auditSvc.ClearCache(req.Context(), domain.Stage(level)); err != nil {
		return err
	}
	respondOK(w, "cache cleared", nil)
	return nil
}

// GET /api/auditor/audit-history/{auditID}?level=2
// Only opinions from stages before the caller's level are returned.
func (r *Router) handleHistory(w http.ResponseWriter, req *http.Request) error {
	auditID, err := strconv.ParseInt(chi.URLParam(req, "auditID"), 10, 64)
	if err != nil {
		return badRequest("invalid audit id")
	}
	level, err := strconv.Atoi(req.URL.Query().Get("level"))
	if err != nil {
		return badRequest("invalid level")
	}
	if err := middleware.ValidateLevel(level); err != nil {
		return badRequest("%v", err)
	}

	entries, err := r.auditSvc.History(req.Context(), domain.TaskID(auditID), domain.Stage(level))
	if err != nil {
		return err
	}
	respondOK(w, "ok", entries)
	return nil
}

// GET /api/auditor/history/{auditorID}
func (r *Router) handleAuditorHistory(w http.ResponseWriter, req *http.Request) error {
	auditorID, err := strconv.ParseInt(chi.URLParam(req, "auditorID"), 10, 64)
	if err != nil {
		return badRequest("invalid auditor id")
	}
	entries, err := r.client.AuditorHistory(req.Context(), auditorID)
	if err != nil {
		return err
	}
	respondOK(w, "ok", entries)
	return nil
}

// GET /api/auditor/notifications?level=0
func (r *Router) handleNotifications(w http.ResponseWriter, req *http.Request) error {
	level, err := strconv.Atoi(req.URL.Query().Get("level"))
	if err != nil {
		return badRequest("invalid level")
	}
	if err := middleware.ValidateLevel(level); err != nil {
		return badRequest("%v", err)
	}

	var pending []notify.Notification
	if r.poller != nil {
		pending = r.poller.Pending(domain.Stage(level))
	}
	respondOK(w, "ok", pending)
	return nil
}

// maskTasks hides customer phone digits before a task list leaves the
// gateway. The input stays untouched; it may be shared with the cache.
func maskTasks(tasks []domain.Task) []domain.Task {
	out := make([]domain.Task, len(tasks))
	for i, t := range tasks {
		t.Phone = domain.MaskPhone(t.Phone)
		out[i] = t
	}
	return out
}

func parseIDList(raw string) ([]domain.TaskID, error) {
	if raw == "" {
		return nil, nil
	}
	var ids []domain.TaskID
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, domain.TaskID(id))
	}
	return ids, nil
}
