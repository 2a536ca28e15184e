package handlers

import (
	"bytes"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/HammerMeetNail/vytalcards/internal/models"
	"github.com/HammerMeetNail/vytalcards/internal/services"
	"github.com/HammerMeetNail/vytalcards/internal/testutil"
)

func newTestDraftHandler(t *testing.T, renderer services.CardRendererInterface) (*DraftHandler, *memRedis) {
	t.Helper()
	redis := newMemRedis()
	drafts := services.NewDraftService(redis, time.Hour)
	return NewDraftHandler(drafts, newTestOutput(renderer, redis)), redis
}

func createDraft(t *testing.T, h *DraftHandler, body any) services.Draft {
	t.Helper()
	req := testutil.NewTestRequestWithJSON(t, http.MethodPost, "/api/drafts", body)
	rr := httptest.NewRecorder()
	h.Create(rr, req)
	testutil.AssertStatusCode(t, rr, http.StatusCreated)
	return decodeBody[services.Draft](t, rr)
}

func draftRequest(method, id, suffix string, body *bytes.Buffer) *http.Request {
	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, "/api/drafts/"+id+suffix, nil)
	} else {
		req = httptest.NewRequest(method, "/api/drafts/"+id+suffix, body)
		req.Header.Set("Content-Type", "application/json")
	}
	req.SetPathValue("id", id)
	return req
}

func TestDraftHandler_CreateWithCategoryAndKind(t *testing.T) {
	h, _ := newTestDraftHandler(t, nil)
	draft := createDraft(t, h, map[string]string{"category": "organs", "kind": "recipient"})

	if draft.Card.Category != models.CategoryOrgans {
		t.Fatalf("expected organs, got %s", draft.Card.Category)
	}
	if draft.Card.Kind != models.KindRecipient {
		t.Fatalf("expected recipient, got %s", draft.Card.Kind)
	}
	if !draft.Valid {
		t.Fatalf("expected defaults to be valid, got errors %v", draft.Errors)
	}
}

func TestDraftHandler_CreateEmptyBodyUsesDefaultCategory(t *testing.T) {
	h, _ := newTestDraftHandler(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/drafts", nil)
	rr := httptest.NewRecorder()
	h.Create(rr, req)
	testutil.AssertStatusCode(t, rr, http.StatusCreated)

	draft := decodeBody[services.Draft](t, rr)
	if draft.Card.Category != models.DefaultCategory {
		t.Fatalf("expected %s, got %s", models.DefaultCategory, draft.Card.Category)
	}
}

func TestDraftHandler_CreateUnknownCategory(t *testing.T) {
	h, _ := newTestDraftHandler(t, nil)
	req := testutil.NewTestRequestWithJSON(t, http.MethodPost, "/api/drafts", map[string]string{"category": "plasma"})
	rr := httptest.NewRecorder()
	h.Create(rr, req)
	testutil.AssertStatusCode(t, rr, http.StatusBadRequest)
}

func TestDraftHandler_UpdateAndValidity(t *testing.T) {
	h, _ := newTestDraftHandler(t, nil)
	draft := createDraft(t, h, map[string]string{})
	id := draft.ID.String()

	rr := httptest.NewRecorder()
	h.Update(rr, draftRequest(http.MethodPatch, id, "", bytes.NewBufferString(`{"name":"  "}`)))
	testutil.AssertStatusCode(t, rr, http.StatusOK)

	updated := decodeBody[services.Draft](t, rr)
	if updated.Valid {
		t.Fatal("expected draft with blank name to be invalid")
	}
	if len(updated.Errors) != 1 || updated.Errors[0].Field != "name" {
		t.Fatalf("expected a single name error, got %v", updated.Errors)
	}

	rr = httptest.NewRecorder()
	h.Image(rr, draftRequest(http.MethodGet, id, "/image.png", nil))
	testutil.AssertStatusCode(t, rr, http.StatusUnprocessableEntity)
	resp := testutil.ParseJSONResponse(t, rr.Body.Bytes())
	if _, ok := resp["errors"].([]any); !ok {
		t.Fatalf("expected errors list, got %v", resp)
	}
}

func TestDraftHandler_UpdateRejectsBadEnum(t *testing.T) {
	h, _ := newTestDraftHandler(t, nil)
	draft := createDraft(t, h, map[string]string{})

	rr := httptest.NewRecorder()
	h.Update(rr, draftRequest(http.MethodPatch, draft.ID.String(), "", bytes.NewBufferString(`{"urgency":"extreme"}`)))
	testutil.AssertStatusCode(t, rr, http.StatusBadRequest)
	testutil.AssertJSONContains(t, rr.Body.Bytes(), "error", "Invalid urgency")
}

func TestDraftHandler_CategorySwitchCarriesIdentity(t *testing.T) {
	h, _ := newTestDraftHandler(t, nil)
	draft := createDraft(t, h, map[string]string{})
	id := draft.ID.String()

	rr := httptest.NewRecorder()
	h.Update(rr, draftRequest(http.MethodPatch, id, "", bytes.NewBufferString(`{"name":"Nimal Perera"}`)))
	testutil.AssertStatusCode(t, rr, http.StatusOK)

	rr = httptest.NewRecorder()
	h.Update(rr, draftRequest(http.MethodPatch, id, "", bytes.NewBufferString(`{"category":"fundraiser"}`)))
	testutil.AssertStatusCode(t, rr, http.StatusOK)

	switched := decodeBody[services.Draft](t, rr)
	if switched.Card.Name != "Nimal Perera" {
		t.Fatalf("expected name to carry over, got %q", switched.Card.Name)
	}
	if switched.Card.Blood != nil {
		t.Fatal("expected blood offering to be dropped")
	}
	if switched.Card.Fundraiser == nil {
		t.Fatal("expected fundraiser offering")
	}
}

func TestDraftHandler_InvalidAndMissingID(t *testing.T) {
	h, _ := newTestDraftHandler(t, nil)

	rr := httptest.NewRecorder()
	h.Get(rr, draftRequest(http.MethodGet, "not-a-uuid", "", nil))
	testutil.AssertStatusCode(t, rr, http.StatusBadRequest)

	rr = httptest.NewRecorder()
	h.Get(rr, draftRequest(http.MethodGet, testutil.RandomUUID().String(), "", nil))
	testutil.AssertStatusCode(t, rr, http.StatusNotFound)
}

func TestDraftHandler_ResetAndDelete(t *testing.T) {
	h, _ := newTestDraftHandler(t, nil)
	draft := createDraft(t, h, map[string]string{})
	id := draft.ID.String()

	rr := httptest.NewRecorder()
	h.Reset(rr, draftRequest(http.MethodPost, id, "/reset", bytes.NewBufferString(`{"category":"supplies"}`)))
	testutil.AssertStatusCode(t, rr, http.StatusOK)
	reset := decodeBody[services.Draft](t, rr)
	if reset.Card.Category != models.CategorySupplies || reset.Card.Supplies == nil {
		t.Fatalf("expected supplies defaults, got %+v", reset.Card)
	}

	rr = httptest.NewRecorder()
	h.Delete(rr, draftRequest(http.MethodDelete, id, "", nil))
	testutil.AssertStatusCode(t, rr, http.StatusNoContent)

	rr = httptest.NewRecorder()
	h.Get(rr, draftRequest(http.MethodGet, id, "", nil))
	testutil.AssertStatusCode(t, rr, http.StatusNotFound)
}

func TestDraftHandler_ImageETag(t *testing.T) {
	h, _ := newTestDraftHandler(t, nil)
	draft := createDraft(t, h, map[string]string{})
	id := draft.ID.String()

	rr := httptest.NewRecorder()
	h.Image(rr, draftRequest(http.MethodGet, id, "/image.png", nil))
	testutil.AssertStatusCode(t, rr, http.StatusOK)
	if ct := rr.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("expected image/png, got %q", ct)
	}
	img, err := png.Decode(bytes.NewReader(rr.Body.Bytes()))
	if err != nil {
		t.Fatalf("expected valid png: %v", err)
	}
	if b := img.Bounds(); b.Dx() != services.CardWidth || b.Dy() != services.CardHeight {
		t.Fatalf("unexpected size %v", b)
	}

	etag := rr.Header().Get("ETag")
	req := draftRequest(http.MethodGet, id, "/image.png", nil)
	req.Header.Set("If-None-Match", etag)
	rr = httptest.NewRecorder()
	h.Image(rr, req)
	testutil.AssertStatusCode(t, rr, http.StatusNotModified)
}

func TestDraftHandler_ImageThumbnailWidth(t *testing.T) {
	h, _ := newTestDraftHandler(t, nil)
	draft := createDraft(t, h, map[string]string{})

	req := draftRequest(http.MethodGet, draft.ID.String(), "/image.png?width=200", nil)
	rr := httptest.NewRecorder()
	h.Image(rr, req)
	testutil.AssertStatusCode(t, rr, http.StatusOK)
	img, err := png.Decode(bytes.NewReader(rr.Body.Bytes()))
	if err != nil {
		t.Fatalf("expected valid png: %v", err)
	}
	if img.Bounds().Dx() != 200 {
		t.Fatalf("expected width 200, got %d", img.Bounds().Dx())
	}

	req = draftRequest(http.MethodGet, draft.ID.String(), "/image.png?width=-1", nil)
	rr = httptest.NewRecorder()
	h.Image(rr, req)
	testutil.AssertStatusCode(t, rr, http.StatusBadRequest)
}

func TestDraftHandler_RenderUnavailableFallsBackToScreenshot(t *testing.T) {
	h, _ := newTestDraftHandler(t, failingRenderer{})
	draft := createDraft(t, h, map[string]string{})

	rr := httptest.NewRecorder()
	h.Image(rr, draftRequest(http.MethodGet, draft.ID.String(), "/image.png", nil))
	testutil.AssertStatusCode(t, rr, http.StatusServiceUnavailable)
	testutil.AssertJSONContains(t, rr.Body.Bytes(), "fallback", services.ScreenshotFallback)
}

func TestDraftHandler_Preview(t *testing.T) {
	h, _ := newTestDraftHandler(t, nil)
	draft := createDraft(t, h, map[string]string{})

	rr := httptest.NewRecorder()
	h.Preview(rr, draftRequest(http.MethodGet, draft.ID.String(), "/preview?mount_id=editor-preview", nil))
	testutil.AssertStatusCode(t, rr, http.StatusOK)
	body := rr.Body.String()
	if !strings.Contains(body, `id="editor-preview"`) {
		t.Fatalf("expected mount id in preview, got %s", body)
	}
	if !strings.Contains(body, draft.Card.Name) {
		t.Fatalf("expected name in preview")
	}
}

func TestDraftHandler_Share(t *testing.T) {
	h, _ := newTestDraftHandler(t, nil)
	draft := createDraft(t, h, map[string]string{})

	rr := httptest.NewRecorder()
	h.Share(rr, draftRequest(http.MethodGet, draft.ID.String(), "/share", nil))
	testutil.AssertStatusCode(t, rr, http.StatusOK)

	resp := decodeBody[ShareResponse](t, rr)
	if !strings.Contains(resp.Text, draft.Card.PrimaryPhone) {
		t.Fatalf("expected phone in share text: %s", resp.Text)
	}
	if !strings.HasPrefix(resp.MessengerURL, "https://wa.me/?text=") {
		t.Fatalf("unexpected messenger url %q", resp.MessengerURL)
	}
}

func TestDraftHandler_ExportThenDownloadOnce(t *testing.T) {
	redis := newMemRedis()
	output := newTestOutput(nil, redis)
	h := NewDraftHandler(services.NewDraftService(redis, time.Hour), output)
	draft := createDraft(t, h, map[string]string{"kind": "recipient"})

	rr := httptest.NewRecorder()
	h.Export(rr, draftRequest(http.MethodPost, draft.ID.String(), "/export", nil))
	testutil.AssertStatusCode(t, rr, http.StatusCreated)

	resp := decodeBody[ExportResponse](t, rr)
	if !strings.HasPrefix(resp.DownloadURL, "https://cards.example.org/d/") {
		t.Fatalf("unexpected download url %q", resp.DownloadURL)
	}
	if !strings.HasPrefix(resp.Filename, "vytal-request-card-") || !strings.HasSuffix(resp.Filename, ".png") {
		t.Fatalf("unexpected filename %q", resp.Filename)
	}
	if len(resp.Instructions.Steps) != 2 {
		t.Fatalf("expected two instruction steps, got %v", resp.Instructions.Steps)
	}

	token := strings.TrimPrefix(resp.DownloadURL, "https://cards.example.org/d/")
	dh := NewDownloadHandler(output.Downloads)

	req := httptest.NewRequest(http.MethodGet, "/d/"+token, nil)
	req.SetPathValue("token", token)
	rr = httptest.NewRecorder()
	dh.Serve(rr, req)
	testutil.AssertStatusCode(t, rr, http.StatusOK)
	if cd := rr.Header().Get("Content-Disposition"); !strings.HasPrefix(cd, "attachment") || !strings.Contains(cd, resp.Filename) {
		t.Fatalf("unexpected content disposition %q", cd)
	}
	if _, err := png.Decode(bytes.NewReader(rr.Body.Bytes())); err != nil {
		t.Fatalf("expected valid png: %v", err)
	}

	req = httptest.NewRequest(http.MethodGet, "/d/"+token, nil)
	req.SetPathValue("token", token)
	rr = httptest.NewRecorder()
	dh.Serve(rr, req)
	testutil.AssertStatusCode(t, rr, http.StatusGone)
}

func TestDraftHandler_ExportInvalidCard(t *testing.T) {
	h, redis := newTestDraftHandler(t, nil)
	draft := createDraft(t, h, map[string]string{})

	rr := httptest.NewRecorder()
	h.Update(rr, draftRequest(http.MethodPatch, draft.ID.String(), "", bytes.NewBufferString(`{"message":""}`)))
	testutil.AssertStatusCode(t, rr, http.StatusOK)

	rr = httptest.NewRecorder()
	h.Export(rr, draftRequest(http.MethodPost, draft.ID.String(), "/export", nil))
	testutil.AssertStatusCode(t, rr, http.StatusUnprocessableEntity)

	for key := range redis.values {
		if strings.HasPrefix(key, "download:") {
			t.Fatalf("expected no download handle for an invalid card, found %s", key)
		}
	}
}
