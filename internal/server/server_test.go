package server_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cosmicvault/locker/internal/accounts"
	"github.com/cosmicvault/locker/internal/config"
	"github.com/cosmicvault/locker/internal/events"
	"github.com/cosmicvault/locker/internal/server"
	"github.com/cosmicvault/locker/internal/services/vault"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	dir := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.Storage.DataDir = dir
	cfg.Storage.VaultDir = filepath.Join(dir, "vault")
	cfg.Storage.RecycleDir = filepath.Join(dir, "recycle")
	cfg.Storage.MetadataPath = filepath.Join(dir, "metadata.json")
	cfg.Storage.UsersPath = filepath.Join(dir, "users.json")
	// Generous limits so only the dedicated test hits 429.
	cfg.Server.LoginRatePerMin = 6000
	cfg.Server.LoginBurst = 100

	accts, err := accounts.NewStore(cfg.Storage.UsersPath, events.Discard())
	require.NoError(t, err)

	svc, err := vault.New(cfg, events.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })

	srv, err := server.New(&cfg.Server, accts, svc, events.Discard())
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postForm(t *testing.T, ts *httptest.Server, path, token string, form url.Values) (*http.Response, map[string]interface{}) {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, ts.URL+path, strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()

	var payload map[string]interface{}
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(body, &payload))
	} else {
		payload = map[string]interface{}{"_raw": string(body)}
	}

	return resp, payload
}

func signupAndLogin(t *testing.T, ts *httptest.Server, userID, password string) string {
	t.Helper()

	resp, _ := postForm(t, ts, "/api/signup", "", url.Values{
		"user_id":           {userID},
		"password":          {password},
		"security_question": {"First pet?"},
		"security_answer":   {"Rex"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, payload := postForm(t, ts, "/api/login", "", url.Values{
		"user_id":  {userID},
		"password": {password},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	token, _ := payload["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func uploadFile(t *testing.T, ts *httptest.Server, token, password, filename string, content []byte) (*http.Response, map[string]interface{}) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("password", password))
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/lock", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &payload))
	return resp, payload
}

func TestServer_Health(t *testing.T) {
	ts := newTestServer(t)

	resp, err := ts.Client().Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestServer_FullVaultFlow(t *testing.T) {
	ts := newTestServer(t)
	token := signupAndLogin(t, ts, "alice", "P1")

	content := []byte("quarterly numbers")
	resp, payload := uploadFile(t, ts, token, "P1", "report.pdf", content)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "alice_report.pdf.enc", payload["file_name"])

	// List shows the locked file.
	resp, payload = postForm(t, ts, "/api/files", token, url.Values{"password": {"P1"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []interface{}{"alice_report.pdf.enc"}, payload["files"])

	// Retrieve streams the plaintext back.
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/retrieve",
		strings.NewReader(url.Values{"password": {"P1"}, "file_name": {"alice_report.pdf.enc"}}.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+token)

	dlResp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer dlResp.Body.Close()

	require.Equal(t, http.StatusOK, dlResp.StatusCode)
	assert.Contains(t, dlResp.Header.Get("Content-Disposition"), "report.pdf")
	body, err := io.ReadAll(dlResp.Body)
	require.NoError(t, err)
	assert.Equal(t, content, body)

	// Delete moves it to the recycle bin.
	resp, _ = postForm(t, ts, "/api/delete", token, url.Values{
		"password": {"P1"}, "file_name": {"alice_report.pdf.enc"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, payload = postForm(t, ts, "/api/recycle", token, url.Values{"password": {"P1"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []interface{}{"alice_report.pdf.enc"}, payload["files"])

	resp, payload = postForm(t, ts, "/api/files", token, url.Values{"password": {"P1"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []interface{}{}, payload["files"])

	// Restore brings it back.
	resp, _ = postForm(t, ts, "/api/restore", token, url.Values{
		"password": {"P1"}, "file_name": {"alice_report.pdf.enc"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, payload = postForm(t, ts, "/api/files", token, url.Values{"password": {"P1"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []interface{}{"alice_report.pdf.enc"}, payload["files"])
}

func TestServer_RetrieveWrongVaultPassword(t *testing.T) {
	ts := newTestServer(t)
	token := signupAndLogin(t, ts, "alice", "P1")

	resp, _ := uploadFile(t, ts, token, "P1", "a.txt", []byte("data"))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// The account gate rejects the wrong password before the vault is
	// ever consulted.
	resp, payload := postForm(t, ts, "/api/retrieve", token, url.Values{
		"password": {"wrong"}, "file_name": {"alice_a.txt.enc"},
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "error", payload["status"])
}

func TestServer_ProtectedRoutesRequireSession(t *testing.T) {
	ts := newTestServer(t)

	paths := []string{"/api/lock", "/api/files", "/api/retrieve", "/api/delete", "/api/recycle", "/api/restore"}
	for _, path := range paths {
		resp, payload := postForm(t, ts, path, "", url.Values{"password": {"P1"}})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "path %s", path)
		assert.Equal(t, "Login required", payload["message"], "path %s", path)
	}

	// A malformed token is rejected too.
	resp, _ := postForm(t, ts, "/api/files", "not-a-jwt", url.Values{"password": {"P1"}})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestServer_OwnershipIsolation(t *testing.T) {
	ts := newTestServer(t)

	aliceToken := signupAndLogin(t, ts, "alice", "P1")
	bobToken := signupAndLogin(t, ts, "bob", "P2")

	resp, _ := uploadFile(t, ts, aliceToken, "P1", "secret.txt", []byte("alice only"))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, payload := postForm(t, ts, "/api/files", bobToken, url.Values{"password": {"P2"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []interface{}{}, payload["files"])

	resp, _ = postForm(t, ts, "/api/retrieve", bobToken, url.Values{
		"password": {"P2"}, "file_name": {"alice_secret.txt.enc"},
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = postForm(t, ts, "/api/delete", bobToken, url.Values{
		"password": {"P2"}, "file_name": {"alice_secret.txt.enc"},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_PasswordRecoveryFlow(t *testing.T) {
	ts := newTestServer(t)
	signupAndLogin(t, ts, "alice", "P1")

	resp, payload := postForm(t, ts, "/api/password/forgot", "", url.Values{
		"step": {"user_id"}, "user_id": {"alice"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "First pet?", payload["security_question"])

	resp, _ = postForm(t, ts, "/api/password/forgot", "", url.Values{
		"step": {"security_question"}, "user_id": {"alice"}, "security_answer": {"Fido"},
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, payload = postForm(t, ts, "/api/password/forgot", "", url.Values{
		"step": {"security_question"}, "user_id": {"alice"}, "security_answer": {"Rex"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "reset_password", payload["step"])

	resp, _ = postForm(t, ts, "/api/password/reset", "", url.Values{
		"user_id": {"alice"}, "new_password": {"P2"}, "confirm_password": {"P2"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Old password is dead, new one works.
	resp, _ = postForm(t, ts, "/api/login", "", url.Values{"user_id": {"alice"}, "password": {"P1"}})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp, _ = postForm(t, ts, "/api/login", "", url.Values{"user_id": {"alice"}, "password": {"P2"}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_LoginRateLimit(t *testing.T) {
	dir := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.Storage.DataDir = dir
	cfg.Storage.VaultDir = filepath.Join(dir, "vault")
	cfg.Storage.RecycleDir = filepath.Join(dir, "recycle")
	cfg.Storage.MetadataPath = filepath.Join(dir, "metadata.json")
	cfg.Storage.UsersPath = filepath.Join(dir, "users.json")
	cfg.Server.LoginRatePerMin = 1
	cfg.Server.LoginBurst = 2
	cfg.Server.SessionTTL = time.Minute

	accts, err := accounts.NewStore(cfg.Storage.UsersPath, events.Discard())
	require.NoError(t, err)
	svc, err := vault.New(cfg, events.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })

	srv, err := server.New(&cfg.Server, accts, svc, events.Discard())
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	form := url.Values{"user_id": {"ghost"}, "password": {"guess"}}
	var last int
	for i := 0; i < 5; i++ {
		resp, _ := postForm(t, ts, "/api/login", "", form)
		last = resp.StatusCode
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}

func TestServer_GetOnPostRoute(t *testing.T) {
	ts := newTestServer(t)

	resp, err := ts.Client().Get(ts.URL + "/api/login")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
