package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dermadoc/backend/internal/core/domain"
	"github.com/dermadoc/backend/internal/core/ports"
)

type fakeSubmitter struct {
	check       *domain.SkinCheck
	err         error
	gotFilename string
	gotBodyPart string
	gotContent  []byte
}

func (f *fakeSubmitter) Submit(_ context.Context, _, filename, bodyPart string, content []byte) (*domain.SkinCheck, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.gotFilename = filename
	f.gotBodyPart = bodyPart
	f.gotContent = content
	return f.check, nil
}

type fakeQueryService struct {
	check     *domain.SkinCheck
	checks    []domain.SkinCheck
	getErr    error
	deleteErr error
	exported  []byte
	gotStatus domain.CheckStatus
	deletedID string
}

func (f *fakeQueryService) Get(_ context.Context, _, _ string) (*domain.SkinCheck, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.check, nil
}

func (f *fakeQueryService) List(_ context.Context, _ string, status domain.CheckStatus) ([]domain.SkinCheck, error) {
	f.gotStatus = status
	return f.checks, nil
}

func (f *fakeQueryService) Delete(_ context.Context, _, checkID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletedID = checkID
	return nil
}

func (f *fakeQueryService) ExportXLSX(context.Context, string) ([]byte, error) {
	return f.exported, nil
}

type fakeAuthService struct {
	user *domain.User
}

func (f *fakeAuthService) Signup(_ context.Context, input ports.SignupInput) (*domain.User, string, error) {
	if !strings.Contains(input.Email, "@") {
		return nil, "", domain.WrapError(domain.ErrInvalidInput, "signup", errors.New("invalid email"))
	}
	return f.user, "signed-token", nil
}

func (f *fakeAuthService) Login(_ context.Context, _, password string) (*domain.User, string, error) {
	if password != "correct" {
		return nil, "", domain.WrapError(domain.ErrUnauthorized, "login", errors.New("wrong password"))
	}
	return f.user, "signed-token", nil
}

func (f *fakeAuthService) UserFromToken(_ context.Context, token string) (*domain.User, error) {
	if token != "good-token" {
		return nil, domain.WrapError(domain.ErrUnauthorized, "verify token", errors.New("invalid access token"))
	}
	return f.user, nil
}

type fakeChatService struct {
	reply string
}

func (f *fakeChatService) ChatSync(_ context.Context, _ []domain.ChatMessage, message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", domain.WrapError(domain.ErrInvalidInput, "chat", errors.New("message is required"))
	}
	return f.reply, nil
}

type fakeImageStore struct {
	absPath string
	absErr  error
}

func (f *fakeImageStore) SaveSkinCheck(context.Context, []byte, string, string) (string, error) {
	return "", errors.New("not implemented")
}

func (f *fakeImageStore) MoveToProcessed(context.Context, string) (string, bool, error) {
	return "", false, errors.New("not implemented")
}

func (f *fakeImageStore) Delete(context.Context, string) (bool, error) {
	return false, errors.New("not implemented")
}

func (f *fakeImageStore) AbsolutePath(context.Context, string) (string, error) {
	if f.absErr != nil {
		return "", f.absErr
	}
	return f.absPath, nil
}

type testRouterDeps struct {
	submitter *fakeSubmitter
	query     *fakeQueryService
	auth      *fakeAuthService
	chat      *fakeChatService
	store     *fakeImageStore
}

func newTestRouter() (*testRouterDeps, http.Handler) {
	deps := &testRouterDeps{
		submitter: &fakeSubmitter{check: &domain.SkinCheck{ID: "c1", UserID: "u1", Status: domain.StatusPending}},
		query:     &fakeQueryService{},
		auth:      &fakeAuthService{user: &domain.User{ID: "u1", Email: "alex@example.com"}},
		chat:      &fakeChatService{reply: "see a dermatologist"},
		store:     &fakeImageStore{},
	}
	router := NewRouter(RouterDeps{
		SubmitUC: deps.submitter,
		QueryUC:  deps.query,
		AuthUC:   deps.auth,
		ChatUC:   deps.chat,
		Store:    deps.store,
	})
	return deps, router.Handler()
}

func authedRequest(method, target string, body *bytes.Buffer) *http.Request {
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Authorization", "Bearer good-token")
	return req
}

func multipartUpload(t *testing.T, filename, bodyPart string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if bodyPart != "" {
		if err := writer.WriteField("body_part", bodyPart); err != nil {
			t.Fatalf("write body_part field: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &buf, writer.FormDataContentType()
}

func TestUploadReturnsAcceptedPendingCheck(t *testing.T) {
	deps, handler := newTestRouter()

	body, contentType := multipartUpload(t, "mole.jpg", "left arm", []byte{0xff, 0xd8, 0xff})
	req := authedRequest(http.MethodPost, "/api/skin-checks/upload", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", res.Code, res.Body.String())
	}
	var check domain.SkinCheck
	if err := json.NewDecoder(res.Body).Decode(&check); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if check.Status != domain.StatusPending {
		t.Fatalf("expected pending check, got %q", check.Status)
	}
	if deps.submitter.gotFilename != "mole.jpg" || deps.submitter.gotBodyPart != "left arm" {
		t.Fatalf("upload fields not forwarded: %q %q", deps.submitter.gotFilename, deps.submitter.gotBodyPart)
	}
}

func TestUploadRejectionMapsTo400(t *testing.T) {
	deps, handler := newTestRouter()
	deps.submitter.err = domain.WrapError(domain.ErrInvalidInput, "save image", errors.New("unsupported file extension"))

	body, contentType := multipartUpload(t, "notes.txt", "", []byte("text"))
	req := authedRequest(http.MethodPost, "/api/skin-checks/upload", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestUploadRequiresFileField(t *testing.T) {
	_, handler := newTestRouter()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	_ = writer.WriteField("body_part", "arm")
	_ = writer.Close()

	req := authedRequest(http.MethodPost, "/api/skin-checks/upload", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestProtectedRoutesRejectMissingToken(t *testing.T) {
	_, handler := newTestRouter()

	for _, target := range []string{
		"/api/skin-checks",
		"/api/skin-checks/c1",
		"/api/auth/me",
		"/api/chat/sync",
	} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)
		if res.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", target, res.Code)
		}
	}
}

func TestListChecksParsesStatusFilter(t *testing.T) {
	deps, handler := newTestRouter()
	deps.query.checks = []domain.SkinCheck{{ID: "c1", Status: domain.StatusProcessed}}

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, authedRequest(http.MethodGet, "/api/skin-checks?status=processed", nil))

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if deps.query.gotStatus != domain.StatusProcessed {
		t.Fatalf("status filter not forwarded, got %q", deps.query.gotStatus)
	}
}

func TestListChecksRejectsUnknownStatus(t *testing.T) {
	_, handler := newTestRouter()

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, authedRequest(http.MethodGet, "/api/skin-checks?status=bogus", nil))

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", res.Code)
	}
}

func TestGetCheckByIDMapsNotFound(t *testing.T) {
	deps, handler := newTestRouter()
	deps.query.getErr = domain.WrapError(domain.ErrNotFound, "get skin check", errors.New("no row"))

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, authedRequest(http.MethodGet, "/api/skin-checks/missing", nil))

	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestDeleteCheck(t *testing.T) {
	deps, handler := newTestRouter()

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, authedRequest(http.MethodDelete, "/api/skin-checks/c1", nil))

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if deps.query.deletedID != "c1" {
		t.Fatalf("delete not forwarded, got %q", deps.query.deletedID)
	}
}

func TestExportSetsSpreadsheetHeaders(t *testing.T) {
	deps, handler := newTestRouter()
	deps.query.exported = []byte("PK\x03\x04stub")

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, authedRequest(http.MethodGet, "/api/skin-checks/export", nil))

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if got := res.Header().Get("Content-Type"); !strings.Contains(got, "spreadsheetml") {
		t.Fatalf("unexpected content type %q", got)
	}
	if got := res.Header().Get("Content-Disposition"); !strings.Contains(got, "skin_checks.xlsx") {
		t.Fatalf("unexpected content disposition %q", got)
	}
}

func TestChatSyncAppendsTurnToHistory(t *testing.T) {
	_, handler := newTestRouter()

	payload, _ := json.Marshal(map[string]any{
		"message": "is this mole dangerous?",
		"conversation_history": []map[string]string{
			{"role": "user", "content": "hello"},
			{"role": "assistant", "content": "hi"},
		},
	})
	req := authedRequest(http.MethodPost, "/api/chat/sync", bytes.NewBuffer(payload))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	var resp struct {
		Response string               `json:"response"`
		History  []domain.ChatMessage `json:"conversation_history"`
	}
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Response != "see a dermatologist" {
		t.Fatalf("unexpected reply %q", resp.Response)
	}
	if len(resp.History) != 4 || resp.History[3].Role != domain.ChatRoleAssistant {
		t.Fatalf("history must carry the new turn, got %+v", resp.History)
	}
}

func TestStorageRefusesForeignOwner(t *testing.T) {
	_, handler := newTestRouter()

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, authedRequest(http.MethodGet, "/api/storage/skin_checks/other-user/processed/a.jpg", nil))

	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign path, got %d", res.Code)
	}
}

func TestStorageServesOwnFile(t *testing.T) {
	deps, handler := newTestRouter()

	path := filepath.Join(t.TempDir(), "a.jpg")
	if err := os.WriteFile(path, []byte{0xff, 0xd8, 0xff, 0x00}, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	deps.store.absPath = path

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, authedRequest(http.MethodGet, "/api/storage/skin_checks/u1/processed/a.jpg", nil))

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if res.Body.Len() != 4 {
		t.Fatalf("expected file bytes, got %d", res.Body.Len())
	}
}

func TestSignupAndLogin(t *testing.T) {
	_, handler := newTestRouter()

	payload, _ := json.Marshal(map[string]string{"name": "Alex", "email": "alex@example.com", "password": "hunter22"})
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/api/auth/signup", bytes.NewBuffer(payload)))
	if res.Code != http.StatusCreated {
		t.Fatalf("signup expected 201, got %d", res.Code)
	}
	var auth authResponse
	if err := json.NewDecoder(res.Body).Decode(&auth); err != nil {
		t.Fatalf("decode signup response: %v", err)
	}
	if auth.AccessToken == "" || auth.TokenType != "bearer" {
		t.Fatalf("unexpected auth payload %+v", auth)
	}

	payload, _ = json.Marshal(map[string]string{"email": "alex@example.com", "password": "wrong"})
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewBuffer(payload)))
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("bad login expected 401, got %d", res.Code)
	}
}

func TestHealthzIsPublic(t *testing.T) {
	_, handler := newTestRouter()

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
}
