package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/billhound/docstage/constants"
	"github.com/billhound/docstage/internal/duplicates"
	"github.com/billhound/docstage/internal/entity"
	"github.com/billhound/docstage/internal/export"
	"github.com/billhound/docstage/internal/forms"
	"github.com/billhound/docstage/internal/license"
	"github.com/billhound/docstage/internal/mapper"
	"github.com/billhound/docstage/internal/pdftext"
	"github.com/billhound/docstage/internal/promotion"
	"github.com/billhound/docstage/internal/repository"
	"github.com/billhound/docstage/internal/resolver"
)

type fixture struct {
	staging   *repository.MemStagingRepository
	files     *repository.MemFileRepository
	directory *repository.MemDirectoryRepository
	workflow  *Workflow
	srv       *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	staging := repository.NewMemStagingRepository()
	files := repository.NewMemFileRepository()
	directory := repository.NewMemDirectoryRepository()
	directory.Vendors["Acme Supplies"] = uuid.New()
	directory.Subsidiaries["HQ"] = uuid.New()

	wf := NewWorkflow(
		staging, files,
		mapper.New(directory, nil),
		resolver.New(staging, files, nil),
		promotion.NewGate(forms.BillSchema(), nil),
		nil,
	)
	hs := NewHTTPServer(wf, files, export.NewService(staging, nil), pdftext.NewExtractor(nil), nil, nil)
	srv := httptest.NewServer(hs.Handler())
	t.Cleanup(srv.Close)
	return &fixture{staging: staging, files: files, directory: directory, workflow: wf, srv: srv}
}

func submissionBody(billNumber string, total float64) []byte {
	payload := map[string]any{
		"vendor_name":  "Acme Supplies",
		"Subsidiary":   "HQ",
		"BillNumber":   billNumber,
		"totaltax":     3.5,
		"total_amount": total,
		"items": []map[string]any{
			{"Description": "Widgets", "Line_amount": "40.00", "Unit_price": "20.00", "Quantity": "2"},
		},
		"originalfile": []map[string]any{
			{"filename": "invoice_42.pdf", "contents": base64.StdEncoding.EncodeToString([]byte("%PDF-1.4 fake"))},
		},
	}
	b, _ := json.Marshal(payload)
	return b
}

func postJSON(t *testing.T, url string, body []byte) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func metadataOf(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	md, ok := body["metadata"].(map[string]any)
	require.True(t, ok, "response has a metadata envelope")
	return md
}

func TestSubmitCoercesSymbolBearingAmounts(t *testing.T) {
	fx := newFixture(t)

	payload := map[string]any{
		"vendor_name":  "Acme Supplies",
		"BillNumber":   "INV-99",
		"totaltax":     "$3.50",
		"total_amount": "$1,234.56",
		"items": []map[string]any{
			{"Description": "Widgets", "Line_amount": "1234.56", "Quantity": "1"},
		},
		"originalfile": []map[string]any{
			{"filename": "invoice_99.pdf", "contents": base64.StdEncoding.EncodeToString([]byte("%PDF-1.4 fake"))},
		},
	}
	b, err := json.Marshal(payload)
	require.NoError(t, err)

	resp, body := postJSON(t, fx.srv.URL+"/v1/extractions", b)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	recordID, err := uuid.Parse(body["recordid"].(string))
	require.NoError(t, err)

	doc, err := fx.staging.GetByID(context.Background(), recordID)
	require.NoError(t, err)
	require.NotNil(t, doc.TotalAmount, "a symbol-bearing amount is coerced, not dropped")
	assert.Equal(t, "1238.06", doc.TotalAmount.StringFixed(2))
	require.NotNil(t, doc.TaxAmount)
	assert.Equal(t, "3.50", doc.TaxAmount.StringFixed(2))
}

func TestSubmitCreatesThenUpdatesInPlace(t *testing.T) {
	fx := newFixture(t)

	resp, body := postJSON(t, fx.srv.URL+"/v1/extractions", submissionBody("INV-42", 40))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	md := metadataOf(t, body)
	assert.Nil(t, md["error"])
	assert.Equal(t, "Record Created Successfully", md["message"])
	recordID, err := uuid.Parse(body["recordid"].(string))
	require.NoError(t, err)

	doc, err := fx.staging.GetByID(context.Background(), recordID)
	require.NoError(t, err)
	assert.Equal(t, "INV-42", doc.DocumentNumber)
	assert.Equal(t, constants.StatusProcessingComplete, doc.ProcessStatus)
	require.NotNil(t, doc.TotalAmount)
	assert.Equal(t, "43.50", doc.TotalAmount.StringFixed(2), "total is tax-inclusive")
	require.NotNil(t, doc.VendorID)
	require.Len(t, doc.Lines, 1)
	require.NotNil(t, doc.ExtractionFileID, "raw extraction JSON is attached alongside the source file")
	raw, err := fx.files.Contents(context.Background(), *doc.ExtractionFileID)
	require.NoError(t, err)
	assert.JSONEq(t, string(submissionBody("INV-42", 40)), string(raw))

	// Reviewer adds a memo between submissions; a resubmit must not erase it.
	doc.Memo = "hand-checked"
	require.NoError(t, fx.staging.Update(context.Background(), doc))

	resp, body = postJSON(t, fx.srv.URL+"/v1/extractions", submissionBody("INV-42", 60))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Record Updated Successfully", metadataOf(t, body)["message"])
	assert.Equal(t, recordID.String(), body["recordid"], "same filename resolves to the same record")

	updated, err := fx.staging.GetByID(context.Background(), recordID)
	require.NoError(t, err)
	assert.Equal(t, "63.50", updated.TotalAmount.StringFixed(2))
	assert.Equal(t, "hand-checked", updated.Memo, "untouched fields survive the update")
}

func TestSubmitRejectsGarbage(t *testing.T) {
	fx := newFixture(t)

	resp, body := postJSON(t, fx.srv.URL+"/v1/extractions", []byte(`{"items": "not-an-array"}`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	md := metadataOf(t, body)
	assert.Equal(t, "Script Error", md["message"])
	require.NotNil(t, md["error"])
	assert.Equal(t, "", body["recordid"])
}

func TestWorklistCarriesDuplicateAlerts(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	for _, name := range []string{"a.pdf", "b.pdf"} {
		_, err := fx.staging.Create(ctx, &entity.StagingDocument{
			FileName:       name,
			DocumentNumber: "INV-7",
			ProcessStatus:  constants.StatusProcessingComplete,
		})
		require.NoError(t, err)
	}

	resp, err := http.Get(fx.srv.URL + "/v1/worklist")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Documents []struct {
			FileName    string `json:"fileName"`
			SystemAlert string `json:"systemAlert"`
		} `json:"documents"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out.Documents, 2)
	for _, d := range out.Documents {
		assert.Equal(t, duplicates.AlertDuplicate, d.SystemAlert)
	}
}

func TestRejectClearsSurvivingSiblingAlert(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	a, err := fx.staging.Create(ctx, &entity.StagingDocument{
		FileName: "a.pdf", DocumentNumber: "INV-7", ProcessStatus: constants.StatusProcessingComplete,
	})
	require.NoError(t, err)
	b, err := fx.staging.Create(ctx, &entity.StagingDocument{
		FileName: "b.pdf", DocumentNumber: "INV-7", ProcessStatus: constants.StatusProcessingComplete,
	})
	require.NoError(t, err)

	_, err = fx.workflow.FlagDuplicates(ctx)
	require.NoError(t, err)
	flaggedB, err := fx.staging.GetByID(ctx, b.ID)
	require.NoError(t, err)
	require.Equal(t, duplicates.AlertDuplicate, flaggedB.SystemAlert)

	resp, body := postJSON(t, fx.srv.URL+"/v1/documents/"+a.ID.String()+"/reject", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Nil(t, metadataOf(t, body)["error"])

	rejected, err := fx.staging.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, rejected.Inactive)

	survivor, err := fx.staging.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Empty(t, survivor.SystemAlert, "rejecting one half of a duplicate pair un-flags the other")
}

func TestPromoteGateBlocksMissingCategory(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	doc, err := fx.staging.Create(ctx, &entity.StagingDocument{
		FileName:      "a.pdf",
		ProcessStatus: constants.StatusProcessingComplete,
		Lines: []entity.LineItem{
			{Description: "Widgets", Category: "Supplies"},
			{Description: "Shipping"},
		},
	})
	require.NoError(t, err)

	resp, body := postJSON(t, fx.srv.URL+"/v1/documents/"+doc.ID.String()+"/promote", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	md := metadataOf(t, body)
	require.NotNil(t, md["error"])
	errBody := md["error"].(map[string]any)
	assert.Equal(t, "VALIDATION_ERROR", errBody["code"])
	assert.Contains(t, errBody["message"], "line 2")

	unchanged, err := fx.staging.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.StatusProcessingComplete, unchanged.ProcessStatus)
}

func TestPromoteSucceedsAndExcludesFromWorklist(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	doc, err := fx.staging.Create(ctx, &entity.StagingDocument{
		FileName:      "a.pdf",
		ProcessStatus: constants.StatusProcessingComplete,
		Lines:         []entity.LineItem{{Description: "Widgets", Category: "Supplies"}},
	})
	require.NoError(t, err)

	resp, body := postJSON(t, fx.srv.URL+"/v1/documents/"+doc.ID.String()+"/promote", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Nil(t, metadataOf(t, body)["error"])

	promoted, err := fx.staging.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.StatusTransactionComplete, promoted.ProcessStatus)

	recs, err := fx.workflow.Worklist(ctx)
	require.NoError(t, err)
	assert.Empty(t, recs, "promoted documents leave the pending worklist")
}

func TestPromoteSkipValidationIsOneShot(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	doc, err := fx.staging.Create(ctx, &entity.StagingDocument{
		FileName:      "a.pdf",
		ProcessStatus: constants.StatusProcessingComplete,
		Lines:         []entity.LineItem{{Description: "Widgets"}},
	})
	require.NoError(t, err)

	resp, _ := postJSON(t, fx.srv.URL+"/v1/documents/"+doc.ID.String()+"/promote?skipValidation=true", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestFileEndpointServesRenderMetadata(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	sf, err := fx.files.Save(ctx, "invoice.csv", []byte("a,b\n1,2\n"))
	require.NoError(t, err)
	doc, err := fx.staging.Create(ctx, &entity.StagingDocument{
		FileName:      "invoice.csv",
		ProcessStatus: constants.StatusProcessingComplete,
		SourceFileID:  &sf.ID,
	})
	require.NoError(t, err)

	resp, err := http.Get(fx.srv.URL + "/v1/documents/" + doc.ID.String() + "/file")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv", resp.Header.Get("Content-Type"))
	assert.Equal(t, string(constants.RenderCSVTable), resp.Header.Get("X-Render-Mode"))
}

func TestExportEndpoint(t *testing.T) {
	fx := newFixture(t)

	resp, err := http.Get(fx.srv.URL + "/v1/export.xlsx")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "spreadsheetml")
}

func TestUnknownDocumentIs404Envelope(t *testing.T) {
	fx := newFixture(t)

	resp, body := postJSON(t, fx.srv.URL+"/v1/documents/"+uuid.NewString()+"/reject", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	md := metadataOf(t, body)
	assert.Equal(t, "Script Error", md["message"])
	assert.Equal(t, "NOT_FOUND", md["error"].(map[string]any)["code"])
}

func TestSubmitBlockedByInactiveLicense(t *testing.T) {
	fx := newFixture(t)

	licSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(entity.License{
			AccountID:      "ACME",
			LicenseStatus:  "Active",
			ExpiredLicense: true,
		})
	}))
	t.Cleanup(licSrv.Close)

	hs := NewHTTPServer(fx.workflow, fx.files, export.NewService(fx.staging, nil), pdftext.NewExtractor(nil), nil, nil)
	hs.UseLicense(license.NewClient(licSrv.URL, licSrv.Client(), nil), "ACME")
	srv := httptest.NewServer(hs.Handler())
	t.Cleanup(srv.Close)

	resp, body := postJSON(t, srv.URL+"/v1/extractions", submissionBody("INV-42", 40))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	md := metadataOf(t, body)
	assert.Equal(t, "UNAUTHORIZED", md["error"].(map[string]any)["code"])
}

func TestHealthEndpoint(t *testing.T) {
	healthy := false
	hs := NewHTTPServer(nil, nil, nil, nil, func(context.Context) error {
		if healthy {
			return nil
		}
		return fmt.Errorf("db down")
	}, nil)
	srv := httptest.NewServer(hs.Handler())
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	healthy = true
	resp, err = http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
