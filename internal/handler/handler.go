package handler

import (
	"crypto/subtle"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"qrattend/internal/auth"
	"qrattend/internal/config"
	"qrattend/internal/events"
	"qrattend/internal/identity"
	"qrattend/internal/ledger"
	"qrattend/internal/ojt"
	"qrattend/internal/scan"
	"qrattend/internal/students"
)

// Handler holds the request handlers and their dependencies.
type Handler struct {
	cfg      config.App
	scans    *scan.Service
	students *students.Repository
	events   *events.Repository
	ojt      *ojt.Repository
}

// New creates a handler.
func New(cfg config.App, scans *scan.Service, st *students.Repository, ev *events.Repository, oj *ojt.Repository) *Handler {
	return &Handler{cfg: cfg, scans: scans, students: st, events: ev, ojt: oj}
}

// ---------- Auth ----------

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login authenticates the secretary and issues a session token.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	emailOK := subtle.ConstantTimeCompare([]byte(req.Email), []byte(h.cfg.SecretaryEmail)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(req.Password), []byte(h.cfg.SecretaryPass)) == 1
	if !emailOK || !passOK {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	tok, err := auth.Issue(req.Email, "secretary", h.cfg.JWTIssuer, h.cfg.JWTSigningKey, h.cfg.AccessTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": tok.Value, "expires_at": tok.ExpiresAt.Unix()})
}

// ---------- Scans ----------

type scanRequest struct {
	Code    string `json:"code" binding:"required"`
	EventID string `json:"event_id" binding:"required"`
	Mode    string `json:"mode" binding:"required"`
}

// Scan records one time-in or time-out from a decoded QR payload. Every
// scan gets exactly one visible outcome: the success payload or a typed
// error the operator can act on.
func (h *Handler) Scan(c *gin.Context) {
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	kind := ledger.Kind(req.Mode)
	if !kind.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mode must be entry or exit"})
		return
	}

	res, err := h.scans.Process(c.Request.Context(), req.Code, req.EventID, kind, time.Now().UTC())
	if err != nil {
		status, code := scanErrorStatus(err)
		c.JSON(status, gin.H{"error": code, "detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"student_name": res.StudentName,
		"email":        res.Email,
		"kind":         res.Kind,
		"at":           res.At,
		"record":       res.Record,
	})
}

func scanErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, identity.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, scan.ErrUnknownEvent):
		return http.StatusNotFound, "unknown_event"
	case errors.Is(err, identity.ErrAmbiguous):
		// Duplicate scan tokens: an administrative bug, not a retry case.
		log.Printf("handler: ambiguous scan token: %v", err)
		return http.StatusInternalServerError, "ambiguous_identity"
	case errors.Is(err, ledger.ErrPersistence):
		return http.StatusServiceUnavailable, "persistence_failure"
	default:
		return http.StatusBadRequest, "bad_request"
	}
}

// ---------- Students ----------

type studentRequest struct {
	Name    string  `json:"name" binding:"required"`
	Email   string  `json:"email" binding:"required,email"`
	Course  *string `json:"course"`
	Section *string `json:"section"`
}

// EnrollStudent registers a student and mints their QR scan token.
func (h *Handler) EnrollStudent(c *gin.Context) {
	var req studentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s, err := h.students.Enroll(c.Request.Context(), identity.Student{
		Name: req.Name, Email: req.Email, Course: req.Course, Section: req.Section,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, s)
}

// ListStudents returns all enrolled students.
func (h *Handler) ListStudents(c *gin.Context) {
	list, err := h.students.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"students": list})
}

// GetStudent returns one student by id.
func (h *Handler) GetStudent(c *gin.Context) {
	s, err := h.students.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if s == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "student not found"})
		return
	}
	c.JSON(http.StatusOK, s)
}

// UpdateStudent overwrites contact fields; the scan token never changes.
func (h *Handler) UpdateStudent(c *gin.Context) {
	var req studentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	err := h.students.Update(c.Request.Context(), identity.Student{
		ID: c.Param("id"), Name: req.Name, Email: req.Email, Course: req.Course, Section: req.Section,
	})
	if err != nil {
		status := http.StatusInternalServerError
		if isNoRows(err) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": true})
}

// DeleteStudent removes a student.
func (h *Handler) DeleteStudent(c *gin.Context) {
	if err := h.students.Delete(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// ---------- Events ----------

type eventRequest struct {
	Label    string    `json:"label" binding:"required"`
	Venue    *string   `json:"venue"`
	OccursOn time.Time `json:"occurs_on" binding:"required"`
	OpensAt  string    `json:"opens_at" binding:"required"`
	ClosesAt string    `json:"closes_at" binding:"required"`
}

// CreateEvent registers a new event.
func (h *Handler) CreateEvent(c *gin.Context) {
	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	evt, err := h.events.Create(c.Request.Context(), events.Event{
		Label: req.Label, Venue: req.Venue, OccursOn: req.OccursOn,
		OpensAt: req.OpensAt, ClosesAt: req.ClosesAt,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, evt)
}

// ListEvents returns all events.
func (h *Handler) ListEvents(c *gin.Context) {
	list, err := h.events.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": list})
}

// GetEvent returns one event by id.
func (h *Handler) GetEvent(c *gin.Context) {
	evt, err := h.events.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if evt == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
		return
	}
	c.JSON(http.StatusOK, evt)
}

// UpdateEvent overwrites an event's fields.
func (h *Handler) UpdateEvent(c *gin.Context) {
	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	err := h.events.Update(c.Request.Context(), events.Event{
		ID: c.Param("id"), Label: req.Label, Venue: req.Venue, OccursOn: req.OccursOn,
		OpensAt: req.OpensAt, ClosesAt: req.ClosesAt,
	})
	if err != nil {
		status := http.StatusInternalServerError
		if isNoRows(err) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": true})
}

// DeleteEvent removes an event and its attendance records.
func (h *Handler) DeleteEvent(c *gin.Context) {
	if err := h.events.Delete(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// EventAttendance returns the per-event attendance sheet.
func (h *Handler) EventAttendance(c *gin.Context) {
	rowsOut, err := h.events.ListAttendance(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"attendance": rowsOut})
}

// ---------- OJT ----------

type ojtLogRequest struct {
	StudentID string     `json:"student_id" binding:"required"`
	LogDate   time.Time  `json:"log_date" binding:"required"`
	TimeIn    *time.Time `json:"time_in"`
	TimeOut   *time.Time `json:"time_out"`
	Remarks   *string    `json:"remarks"`
}

// SaveOJTLog upserts a daily hour log.
func (h *Handler) SaveOJTLog(c *gin.Context) {
	var req ojtLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	l, err := h.ojt.SaveLog(c.Request.Context(), ojt.DailyLog{
		StudentID: req.StudentID, LogDate: req.LogDate,
		TimeIn: req.TimeIn, TimeOut: req.TimeOut, Remarks: req.Remarks,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, l)
}

// ListOJTLogs returns a student's daily logs plus their running total.
func (h *Handler) ListOJTLogs(c *gin.Context) {
	studentID := c.Query("student_id")
	if studentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "student_id required"})
		return
	}
	logs, err := h.ojt.ListLogs(c.Request.Context(), studentID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	total, err := h.ojt.TotalHours(c.Request.Context(), studentID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs, "total_hours": total})
}

type journalRequest struct {
	StudentID string    `json:"student_id" binding:"required"`
	WeekOf    time.Time `json:"week_of" binding:"required"`
	Body      string    `json:"body" binding:"required"`
}

// SaveJournal upserts the weekly journal for the ISO week of week_of.
func (h *Handler) SaveJournal(c *gin.Context) {
	var req journalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	j, err := h.ojt.SaveJournal(c.Request.Context(), req.StudentID, req.WeekOf, req.Body)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, j)
}

// ListJournals returns a student's weekly journals.
func (h *Handler) ListJournals(c *gin.Context) {
	studentID := c.Query("student_id")
	if studentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "student_id required"})
		return
	}
	list, err := h.ojt.ListJournals(c.Request.Context(), studentID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"journals": list})
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
