package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/billhound/docstage/constants"
	"github.com/billhound/docstage/internal/common"
	"github.com/billhound/docstage/internal/dateparse"
	"github.com/billhound/docstage/internal/entity"
	"github.com/billhound/docstage/internal/export"
	"github.com/billhound/docstage/internal/license"
	"github.com/billhound/docstage/internal/pdftext"
	"github.com/billhound/docstage/internal/repository"
	"github.com/billhound/docstage/internal/review"
)

// Wire envelope shared by every mutating endpoint. The message field is the
// vendor-facing summary; per-field detail rides in metadata.error.
type envelopeError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type envelopeMetadata struct {
	Error   *envelopeError `json:"error"`
	Message string         `json:"message"`
}

type envelope struct {
	Metadata envelopeMetadata `json:"metadata"`
	RecordID any              `json:"recordid"`
}

const (
	msgCreated = "Record Created Successfully"
	msgUpdated = "Record Updated Successfully"
	msgError   = "Script Error"
)

// HTTPServer exposes the capture workflow over JSON endpoints.
type HTTPServer struct {
	workflow  *Workflow
	files     repository.FileRepository
	exporter  *export.Service
	extractor *pdftext.Extractor
	health    func(context.Context) error
	logger    *slog.Logger

	dateFormat string
	license    *license.Client
	accountID  string
}

func NewHTTPServer(
	workflow *Workflow,
	files repository.FileRepository,
	exporter *export.Service,
	extractor *pdftext.Extractor,
	health func(context.Context) error,
	logger *slog.Logger,
) *HTTPServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPServer{
		workflow:  workflow,
		files:     files,
		exporter:  exporter,
		extractor: extractor,
		health:    health,
		logger:    logger,
	}
}

// SetDateFormat sets the site display format code used for dates in list
// projections. Unset means ISO.
func (s *HTTPServer) SetDateFormat(code string) {
	s.dateFormat = code
}

// UseLicense enables the per-account license check on submissions.
func (s *HTTPServer) UseLicense(client *license.Client, accountID string) {
	s.license = client
	s.accountID = accountID
}

// Handler builds the route table. Every route runs behind the recovery
// middleware so nothing unexpected escapes without an envelope.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/extractions", s.handleSubmit)
	mux.HandleFunc("GET /v1/worklist", s.handleWorklist)
	mux.HandleFunc("POST /v1/worklist/flag-duplicates", s.handleFlagDuplicates)
	mux.HandleFunc("POST /v1/documents/{id}/reject", s.handleReject)
	mux.HandleFunc("POST /v1/documents/{id}/promote", s.handlePromote)
	mux.HandleFunc("GET /v1/documents/{id}/file", s.handleFile)
	mux.HandleFunc("GET /v1/documents/{id}/fragments", s.handleFragments)
	mux.HandleFunc("GET /v1/export.xlsx", s.handleExport)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return s.requestIDMiddleware(s.recoverMiddleware(mux))
}

// requestIDMiddleware tags every request with an id so log lines from one
// submission can be correlated.
func (s *HTTPServer) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := r.Header.Get("X-Request-Id")
		if rid == "" {
			rid = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", rid)
		next.ServeHTTP(w, r.WithContext(common.WithRequestID(r.Context(), rid)))
	})
}

func (s *HTTPServer) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("http.panic", "path", r.URL.Path, "panic", rec)
				writeEnvelopeError(w, http.StatusInternalServerError,
					&envelopeError{Code: "UNEXPECTED_ERROR", Message: "unexpected error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *HTTPServer) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if s.license != nil {
		if _, err := s.license.Authorize(r.Context(), s.accountID); err != nil {
			s.writeError(w, err)
			return
		}
		r = r.WithContext(common.WithAccountID(r.Context(), s.accountID))
	}
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 32<<20))
	if err != nil {
		writeEnvelopeError(w, http.StatusBadRequest,
			&envelopeError{Code: "BAD_REQUEST", Message: "unreadable request body"})
		return
	}

	logger := common.RequestLogger(r.Context(), s.logger)
	res, err := s.workflow.Submit(r.Context(), raw)
	if err != nil {
		logger.Warn("http.submit_failed", "error", err)
		s.writeError(w, err)
		return
	}
	msg := msgUpdated
	if res.Created {
		msg = msgCreated
	}
	writeJSON(w, http.StatusOK, envelope{
		Metadata: envelopeMetadata{Message: msg},
		RecordID: res.Document.ID.String(),
	})
}

// worklistRow is the list-view projection of a staged document.
type worklistRow struct {
	ID              string     `json:"id"`
	FileName        string     `json:"fileName"`
	DocumentNumber  string     `json:"documentNumber"`
	TransactionDate *time.Time `json:"transactionDate,omitempty"`
	DisplayDate     string     `json:"displayDate,omitempty"`
	ProcessStatus   string     `json:"processStatus"`
	TotalAmount     string     `json:"totalAmount,omitempty"`
	TaxAmount       string     `json:"taxAmount,omitempty"`
	Memo            string     `json:"memo,omitempty"`
	ReviewNote      string     `json:"reviewNote,omitempty"`
	SystemAlert     string     `json:"systemAlert,omitempty"`
	LineCount       int        `json:"lineCount"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

func (s *HTTPServer) toWorklistRow(d *entity.StagingDocument) worklistRow {
	row := worklistRow{
		ID:              d.ID.String(),
		FileName:        d.FileName,
		DocumentNumber:  d.DocumentNumber,
		TransactionDate: d.TransactionDate,
		ProcessStatus:   string(d.ProcessStatus),
		Memo:            d.Memo,
		ReviewNote:      d.ReviewNote,
		SystemAlert:     d.SystemAlert,
		LineCount:       len(d.Lines),
		UpdatedAt:       d.UpdatedAt,
	}
	if d.TotalAmount != nil {
		row.TotalAmount = d.TotalAmount.StringFixed(2)
	}
	if d.TaxAmount != nil {
		row.TaxAmount = d.TaxAmount.StringFixed(2)
	}
	if d.TransactionDate != nil {
		row.DisplayDate = dateparse.Format(*d.TransactionDate, s.dateFormat)
	}
	return row
}

func (s *HTTPServer) handleWorklist(w http.ResponseWriter, r *http.Request) {
	recs, err := s.workflow.Worklist(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	rows := make([]worklistRow, 0, len(recs))
	for _, d := range recs {
		rows = append(rows, s.toWorklistRow(d))
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": rows})
}

func (s *HTTPServer) handleFlagDuplicates(w http.ResponseWriter, r *http.Request) {
	flagged, err := s.workflow.FlagDuplicates(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"flagged": flagged})
}

func (s *HTTPServer) handleReject(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	if err := s.workflow.Reject(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		Metadata: envelopeMetadata{Message: msgUpdated},
		RecordID: id.String(),
	})
}

func (s *HTTPServer) handlePromote(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	skip := r.URL.Query().Get("skipValidation") == "true"
	doc, err := s.workflow.Promote(r.Context(), id, skip)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		Metadata: envelopeMetadata{Message: msgUpdated},
		RecordID: doc.ID.String(),
	})
}

// handleFile serves the staged document's source file with the MIME type
// and render mode from the fixed file-type table, so the viewer can decide
// between inline rendering, a CSV table, and a not-supported notice.
func (s *HTTPServer) handleFile(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.loadDocument(w, r)
	if !ok {
		return
	}
	if doc.SourceFileID == nil {
		s.writeError(w, fmt.Errorf("%w: document has no source file", common.ErrNotFound))
		return
	}
	meta, err := s.files.GetByID(r.Context(), *doc.SourceFileID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	contents, err := s.files.Contents(r.Context(), *doc.SourceFileID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	ft := constants.LookupFileType(meta.FileExt)
	w.Header().Set("Content-Type", ft.MIME)
	w.Header().Set("X-Render-Mode", string(ft.Render))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(contents)
}

// handleFragments returns the positioned-text layer of a PDF source file
// for the split-screen review surface.
func (s *HTTPServer) handleFragments(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.loadDocument(w, r)
	if !ok {
		return
	}
	if doc.SourceFileID == nil {
		s.writeError(w, fmt.Errorf("%w: document has no source file", common.ErrNotFound))
		return
	}
	meta, err := s.files.GetByID(r.Context(), *doc.SourceFileID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if meta.FileExt != "pdf" {
		s.writeError(w, fmt.Errorf("%w: positioned text is only available for pdf files", common.ErrInvalidInput))
		return
	}
	contents, err := s.files.Contents(r.Context(), *doc.SourceFileID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	frags, err := s.extractor.Fragments(contents)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if frags == nil {
		frags = []review.Fragment{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"fragments": frags})
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	data, err := s.exporter.ExportWorklistXLSX(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="worklist.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			s.logger.Error("http.health.failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeEnvelopeError(w, http.StatusBadRequest,
			&envelopeError{Code: "INVALID_INPUT", Message: "id must be a UUID"})
		return uuid.Nil, false
	}
	return id, true
}

func (s *HTTPServer) loadDocument(w http.ResponseWriter, r *http.Request) (*entity.StagingDocument, bool) {
	id, ok := s.pathID(w, r)
	if !ok {
		return nil, false
	}
	doc, err := s.workflow.staging.GetByID(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return nil, false
	}
	return doc, true
}

func (s *HTTPServer) writeError(w http.ResponseWriter, err error) {
	status := common.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("http.request_failed", "error", err)
	}
	writeEnvelopeError(w, status, &envelopeError{Code: errorCode(err), Message: err.Error()})
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, common.ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, common.ErrValidation):
		return "VALIDATION_ERROR"
	case errors.Is(err, common.ErrInvalidInput):
		return "INVALID_INPUT"
	case errors.Is(err, common.ErrNotConfigured):
		return "NOT_CONFIGURED"
	case errors.Is(err, common.ErrUnauthorized):
		return "UNAUTHORIZED"
	default:
		return "UNEXPECTED_ERROR"
	}
}

func writeEnvelopeError(w http.ResponseWriter, status int, e *envelopeError) {
	writeJSON(w, status, envelope{
		Metadata: envelopeMetadata{Error: e, Message: msgError},
		RecordID: "",
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
