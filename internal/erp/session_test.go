package erp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/septivank/attendance-sync-worker/internal/event"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeERP struct {
	loginStatus  int
	loginBody    string
	uploadStatus int
	uploadBody   string

	loginRequest  map[string]string
	uploadAuth    string
	uploadRequest map[string]json.RawMessage
	uploads       int
}

func (f *fakeERP) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	switch r.URL.Path {
	case "/api/login":
		_ = json.Unmarshal(body, &f.loginRequest)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.loginStatus)
		_, _ = io.WriteString(w, f.loginBody)
	case "/trpc/hr.attendance.upload_data":
		f.uploads++
		f.uploadAuth = r.Header.Get("Authorization")
		_ = json.Unmarshal(body, &f.uploadRequest)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.uploadStatus)
		_, _ = io.WriteString(w, f.uploadBody)
	default:
		http.NotFound(w, r)
	}
}

func newTestSession(t *testing.T, erp *fakeERP) (*Session, *observer.ObservedLogs) {
	t.Helper()
	server := httptest.NewServer(erp)
	t.Cleanup(server.Close)

	core, logs := observer.New(zapcore.DebugLevel)
	session := NewSession(SessionConfig{
		BaseURL:  server.URL,
		Email:    "ops@example.com",
		Password: "pw",
		Timeout:  5 * time.Second,
	}, zap.New(core))
	return session, logs
}

func TestLogin_InstallsBearerToken(t *testing.T) {
	erp := &fakeERP{
		loginStatus:  http.StatusOK,
		loginBody:    `{"accessToken": "abc123"}`,
		uploadStatus: http.StatusOK,
		uploadBody:   `{"result": {"inserted": 1}}`,
	}
	session, _ := newTestSession(t, erp)

	if session.Authenticated() {
		t.Fatal("Expected new session to be unauthenticated")
	}
	if err := session.Login(context.Background()); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if !session.Authenticated() {
		t.Error("Expected session to be authenticated")
	}
	if erp.loginRequest["email"] != "ops@example.com" || erp.loginRequest["password"] != "pw" {
		t.Errorf("Unexpected login body %v", erp.loginRequest)
	}

	if _, err := session.UploadEvents(context.Background(), nil, []event.Event{{Card: "A", Timestamp: 1000, OriginID: 1}}); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if erp.uploadAuth != "Bearer abc123" {
		t.Errorf("Expected bearer header, got %q", erp.uploadAuth)
	}
}

func TestLogin_ErrorMessageFromJSON(t *testing.T) {
	session, _ := newTestSession(t, &fakeERP{
		loginStatus: http.StatusUnauthorized,
		loginBody:   `{"message": "invalid credentials"}`,
	})

	err := session.Login(context.Background())
	var authErr *AuthenticationError
	if !errors.As(err, &authErr) {
		t.Fatalf("Expected AuthenticationError, got %v", err)
	}
	if authErr.Message != "invalid credentials" {
		t.Errorf("Expected message from body, got %q", authErr.Message)
	}
	if authErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", authErr.StatusCode)
	}
	if session.Authenticated() {
		t.Error("Expected session to stay unauthenticated")
	}
	if !IsAuthError(err) {
		t.Error("Expected IsAuthError to match")
	}
}

func TestLogin_ErrorMessageFromText(t *testing.T) {
	session, _ := newTestSession(t, &fakeERP{
		loginStatus: http.StatusBadGateway,
		loginBody:   "upstream unavailable",
	})

	err := session.Login(context.Background())
	var authErr *AuthenticationError
	if !errors.As(err, &authErr) || authErr.Message != "upstream unavailable" {
		t.Errorf("Expected raw body as message, got %v", err)
	}
}

func TestLogin_ErrorMessageFromStatus(t *testing.T) {
	session, _ := newTestSession(t, &fakeERP{loginStatus: http.StatusForbidden})

	err := session.Login(context.Background())
	var authErr *AuthenticationError
	if !errors.As(err, &authErr) || authErr.Message != "Forbidden" {
		t.Errorf("Expected status phrase as message, got %v", err)
	}
}

func TestLogin_JSONWithoutMessageUsesBody(t *testing.T) {
	session, _ := newTestSession(t, &fakeERP{
		loginStatus: http.StatusBadRequest,
		loginBody:   `{"error": "bad"}`,
	})

	err := session.Login(context.Background())
	var authErr *AuthenticationError
	if !errors.As(err, &authErr) || authErr.Message != `{"error": "bad"}` {
		t.Errorf("Expected raw body as message, got %v", err)
	}
}

func TestUploadEvents_EmptyMessageUsesBody(t *testing.T) {
	session, _ := newTestSession(t, &fakeERP{
		loginStatus:  http.StatusOK,
		loginBody:    `{"accessToken": "abc123"}`,
		uploadStatus: http.StatusInternalServerError,
		uploadBody:   `{"message": ""}`,
	})
	if err := session.Login(context.Background()); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	_, err := session.UploadEvents(context.Background(), nil, nil)
	var uploadErr *UploadError
	if !errors.As(err, &uploadErr) {
		t.Fatalf("Expected UploadError, got %v", err)
	}
	if uploadErr.Message != `{"message": ""}` {
		t.Errorf("Expected raw body for an empty message field, got %q", uploadErr.Message)
	}
}

func TestLogin_MissingToken(t *testing.T) {
	session, _ := newTestSession(t, &fakeERP{loginStatus: http.StatusOK, loginBody: `{}`})

	if err := session.Login(context.Background()); !IsAuthError(err) {
		t.Errorf("Expected AuthenticationError for missing token, got %v", err)
	}
}

func TestUploadEvents_WireFormat(t *testing.T) {
	erp := &fakeERP{
		loginStatus:  http.StatusOK,
		loginBody:    `{"accessToken": "t"}`,
		uploadStatus: http.StatusOK,
		uploadBody:   `{"result": {"data": {"inserted": 2}}}`,
	}
	session, _ := newTestSession(t, erp)
	if err := session.Login(context.Background()); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	result, err := session.UploadEvents(context.Background(),
		[]Employee{{FirstName: "Ada", LastName: "Lovelace", Card: "A"}},
		[]event.Event{{Card: "A", Timestamp: 1000, OriginID: 1}, {Card: "B", Timestamp: 1001, OriginID: 2}},
	)
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	if string(erp.uploadRequest["employees"]) != `[["Ada","Lovelace","A"]]` {
		t.Errorf("Unexpected employees %s", erp.uploadRequest["employees"])
	}
	if string(erp.uploadRequest["events"]) != `[["A",1000,1],["B",1001,2]]` {
		t.Errorf("Unexpected events %s", erp.uploadRequest["events"])
	}
	if _, ok := result["result"]; !ok {
		t.Errorf("Expected response returned verbatim, got %v", result)
	}
}

func TestUploadEvents_ErrorMessage(t *testing.T) {
	session, _ := newTestSession(t, &fakeERP{
		loginStatus:  http.StatusOK,
		loginBody:    `{"accessToken": "t"}`,
		uploadStatus: http.StatusBadRequest,
		uploadBody:   `{"message": "duplicate card"}`,
	})
	if err := session.Login(context.Background()); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	_, err := session.UploadEvents(context.Background(), nil, []event.Event{{Card: "A", Timestamp: 1000, OriginID: 1}})
	var uploadErr *UploadError
	if !errors.As(err, &uploadErr) {
		t.Fatalf("Expected UploadError, got %v", err)
	}
	if uploadErr.Message != "duplicate card" {
		t.Errorf("Expected message \"duplicate card\", got %q", uploadErr.Message)
	}
}

func TestUploadEvents_EmptyEmployeesStillSent(t *testing.T) {
	erp := &fakeERP{
		loginStatus:  http.StatusOK,
		loginBody:    `{"accessToken": "t"}`,
		uploadStatus: http.StatusOK,
		uploadBody:   `{}`,
	}
	session, logs := newTestSession(t, erp)
	if err := session.Login(context.Background()); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	_, err := session.UploadEvents(context.Background(), []Employee{}, []event.Event{{Card: "A", Timestamp: 1000, OriginID: 1}})
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	if erp.uploads != 1 {
		t.Errorf("Expected request to be sent, got %d uploads", erp.uploads)
	}
	if string(erp.uploadRequest["employees"]) != `[]` {
		t.Errorf("Expected empty employees array, got %s", erp.uploadRequest["employees"])
	}
	if logs.FilterLevelExact(zapcore.WarnLevel).FilterMessage("uploading batch without employees").Len() != 1 {
		t.Error("Expected a warning about the empty employee list")
	}
}

func TestUploadEvents_EmptyEventsStillSent(t *testing.T) {
	erp := &fakeERP{
		loginStatus:  http.StatusOK,
		loginBody:    `{"accessToken": "t"}`,
		uploadStatus: http.StatusOK,
		uploadBody:   `{}`,
	}
	session, logs := newTestSession(t, erp)
	if err := session.Login(context.Background()); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if _, err := session.UploadEvents(context.Background(), nil, nil); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if erp.uploads != 1 {
		t.Errorf("Expected request to be sent, got %d uploads", erp.uploads)
	}
	if string(erp.uploadRequest["events"]) != `[]` {
		t.Errorf("Expected empty events array, got %s", erp.uploadRequest["events"])
	}
	if logs.FilterLevelExact(zapcore.WarnLevel).Len() != 2 {
		t.Errorf("Expected two warnings, got %d", logs.FilterLevelExact(zapcore.WarnLevel).Len())
	}
}

func TestSummary(t *testing.T) {
	got := Summary(map[string]any{"ok": true})
	if got != "{\n  \"ok\": true\n}" {
		t.Errorf("Unexpected summary %q", got)
	}
}
