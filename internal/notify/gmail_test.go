package notify

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"strings"
	"testing"

	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"textalert/pkg/models"
)

func TestBuildRawMessage(t *testing.T) {
	body := strings.Repeat("NOTHING EXISTS ", 20)
	msg := ComposeMessage(testRef, body, testOpts)

	parsed, err := mail.ReadMessage(strings.NewReader(string(BuildRawMessage(msg))))
	if err != nil {
		t.Fatalf("ReadMessage failed: %v", err)
	}

	if got := parsed.Header.Get("From"); got != "alerts@example.com" {
		t.Errorf("From = %q", got)
	}
	if got := parsed.Header.Get("To"); got != "ops@example.com" {
		t.Errorf("To = %q", got)
	}
	if got := parsed.Header.Get("Subject"); got != msg.Subject {
		t.Errorf("Subject = %q, want %q", got, msg.Subject)
	}
	if got := parsed.Header.Get("Content-Type"); got != ContentTypePlain {
		t.Errorf("Content-Type = %q", got)
	}

	encoded, err := io.ReadAll(parsed.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	for _, line := range strings.Split(strings.TrimSpace(string(encoded)), "\r\n") {
		if len(line) > 76 {
			t.Errorf("body line longer than 76 characters: %d", len(line))
		}
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(strings.TrimSpace(string(encoded)), "\r\n", ""))
	if err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if string(decoded) != body {
		t.Errorf("body = %q, want %q", decoded, body)
	}
}

func TestBuildRawMessage_EncodesNonASCIISubject(t *testing.T) {
	ref := models.ObjectReference{Bucket: "b", Key: "résumé.png"}
	raw := string(BuildRawMessage(ComposeMessage(ref, "x", testOpts)))

	if strings.Contains(raw, "résumé") {
		t.Error("non-ASCII subject should be RFC 2047 encoded")
	}
	if !strings.Contains(raw, "=?UTF-8?q?") {
		t.Errorf("expected Q-encoded subject in:\n%s", raw)
	}
}

func TestGmail_Send(t *testing.T) {
	var gotPath string
	var gotMessage gmail.Message

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotMessage); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "msg-1"}`))
	}))
	defer srv.Close()

	service, err := gmail.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}

	msg := ComposeMessage(testRef, "NOTHING\nEXISTS\n", testOpts)
	if err := newGmailWithService(service, "").Send(context.Background(), msg); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if !strings.HasSuffix(gotPath, "/users/me/messages/send") {
		t.Errorf("path = %q", gotPath)
	}
	raw, err := base64.URLEncoding.DecodeString(gotMessage.Raw)
	if err != nil {
		t.Fatalf("decode raw: %v", err)
	}
	if string(raw) != string(BuildRawMessage(msg)) {
		t.Errorf("raw message mismatch:\n%s", raw)
	}
}

func TestGmail_SendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error": {"code": 403, "message": "insufficient scope"}}`))
	}))
	defer srv.Close()

	service, err := gmail.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}

	err = newGmailWithService(service, "alerts@example.com").Send(context.Background(), ComposeMessage(testRef, "x", testOpts))
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "insufficient scope") {
		t.Errorf("error = %v", err)
	}
}

func TestNewGmail_MissingCredentials(t *testing.T) {
	tests := []GmailConfig{
		{},
		{ClientID: "id", RefreshToken: "r"},
		{ClientID: "id", ClientSecret: "s"},
	}

	for _, cfg := range tests {
		if _, err := NewGmail(context.Background(), cfg); !errors.Is(err, ErrMissingCredentials) {
			t.Errorf("NewGmail(%+v) error = %v, want ErrMissingCredentials", cfg, err)
		}
	}
}

func TestNewGmail(t *testing.T) {
	g, err := NewGmail(context.Background(), GmailConfig{ClientID: "id", ClientSecret: "s", RefreshToken: "r"})
	if err != nil {
		t.Fatalf("NewGmail failed: %v", err)
	}
	if g.userID != DefaultUserID {
		t.Errorf("userID = %q, want %q", g.userID, DefaultUserID)
	}
}
