package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"events-tracker/internal/repository/sqlite"
	"events-tracker/internal/service"
	"events-tracker/internal/storage"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	userRepo := sqlite.NewUserRepository(db)
	require.NoError(t, userRepo.Init(ctx))
	eventRepo := sqlite.NewEventRepository(db)
	require.NoError(t, eventRepo.Init(ctx))
	blobs := storage.NewSQLiteStore(db)
	require.NoError(t, blobs.Init(ctx))

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	authSvc := service.NewAuthService(userRepo, "test-secret", time.Hour)
	eventSvc := service.NewEventService(eventRepo, blobs)

	router := gin.New()
	NewHandler(authSvc, eventSvc, logger).RegisterRoutes(router)
	return router
}

func do(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func jsonRequest(t *testing.T, method, path string, payload any) *http.Request {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func multipartRequest(t *testing.T, method, path string, fields map[string]string, imageType string, image []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if image != nil {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", `form-data; name="image"; filename="image.bin"`)
		header.Set("Content-Type", imageType)
		part, err := w.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func registerUser(t *testing.T, router *gin.Engine, username, email string) {
	t.Helper()
	w := do(router, jsonRequest(t, http.MethodPost, "/api/auth/register", map[string]string{
		"username": username,
		"email":    email,
		"password": "secret1",
	}))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func loginUser(t *testing.T, router *gin.Engine, username string) string {
	t.Helper()
	form := url.Values{"username": {username}, "password": {"secret1"}}
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := do(router, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "bearer", resp.TokenType)
	require.NotEmpty(t, resp.AccessToken)
	return resp.AccessToken
}

func createEvent(t *testing.T, router *gin.Engine, token string, fields map[string]string, imageType string, image []byte) EventResponse {
	t.Helper()
	req := multipartRequest(t, http.MethodPost, "/api/events", fields, imageType, image)
	req.Header.Set("Authorization", "Bearer "+token)
	w := do(router, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var event EventResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &event))
	return event
}

func detail(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Detail string `json:"detail"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Detail
}

func TestRegister(t *testing.T) {
	router := newTestRouter(t)

	w := do(router, jsonRequest(t, http.MethodPost, "/api/auth/register", map[string]string{
		"username":  "alice",
		"email":     "alice@example.com",
		"password":  "secret1",
		"full_name": "Alice A",
	}))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var user UserResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &user))
	assert.NotZero(t, user.ID)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "Alice A", user.FullName)
	assert.NotContains(t, w.Body.String(), "password")

	// same username, different email
	w = do(router, jsonRequest(t, http.MethodPost, "/api/auth/register", map[string]string{
		"username": "alice", "email": "alice2@example.com", "password": "secret1",
	}))
	assert.Equal(t, http.StatusConflict, w.Code)

	// same email, different username
	w = do(router, jsonRequest(t, http.MethodPost, "/api/auth/register", map[string]string{
		"username": "alice2", "email": "alice@example.com", "password": "secret1",
	}))
	assert.Equal(t, http.StatusConflict, w.Code)

	// malformed payloads fail before touching any store
	for _, payload := range []map[string]string{
		{"username": "bob", "email": "not-an-email", "password": "secret1"},
		{"username": "bob", "email": "bob@example.com", "password": "12345"},
		{"email": "bob@example.com", "password": "secret1"},
	} {
		w = do(router, jsonRequest(t, http.MethodPost, "/api/auth/register", payload))
		assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	}
}

func TestLogin_FailuresIndistinguishable(t *testing.T) {
	router := newTestRouter(t)
	registerUser(t, router, "alice", "alice@example.com")

	send := func(username, password string) *httptest.ResponseRecorder {
		form := url.Values{"username": {username}, "password": {password}}
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return do(router, req)
	}

	wrongPassword := send("alice", "wrong")
	unknownUser := send("nobody", "wrong")

	require.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	require.Equal(t, http.StatusUnauthorized, unknownUser.Code)
	assert.Equal(t, detail(t, wrongPassword), detail(t, unknownUser),
		"the response must not leak whether the username exists")
	assert.Equal(t, "Bearer", wrongPassword.Header().Get("WWW-Authenticate"))
}

func TestMe(t *testing.T) {
	router := newTestRouter(t)
	registerUser(t, router, "alice", "alice@example.com")
	token := loginUser(t, router, "alice")

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := do(router, req)
	require.Equal(t, http.StatusOK, w.Code)

	var user UserResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &user))
	assert.Equal(t, "alice", user.Username)

	// no token
	w = do(router, httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))

	// garbage token
	req = httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	w = do(router, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateEvent(t *testing.T) {
	router := newTestRouter(t)
	registerUser(t, router, "alice", "alice@example.com")
	token := loginUser(t, router, "alice")

	event := createEvent(t, router, token, map[string]string{
		"title":       "Jazz Night in the Plaza",
		"description": "An evening of live jazz",
		"date":        "2026-09-12T20:00:00Z",
		"location":    "Main Plaza",
		"category":    "Music",
	}, "", nil)

	assert.NotZero(t, event.ID)
	assert.Equal(t, "Music", event.Category)
	assert.Equal(t, "2026-09-12T20:00:00Z", event.Date)
	assert.Nil(t, event.ImageContentType)

	// category defaults when omitted
	event = createEvent(t, router, token, map[string]string{
		"title":    "Open Mic",
		"date":     "2026-09-13T19:00:00Z",
		"location": "Cafe Corner",
	}, "", nil)
	assert.Equal(t, "General", event.Category)
}

func TestCreateEvent_Failures(t *testing.T) {
	router := newTestRouter(t)
	registerUser(t, router, "alice", "alice@example.com")
	token := loginUser(t, router, "alice")

	valid := map[string]string{
		"title":    "Jazz Night",
		"date":     "2026-09-12T20:00:00Z",
		"location": "Main Plaza",
	}

	// unauthenticated
	w := do(router, multipartRequest(t, http.MethodPost, "/api/events", valid, "", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	send := func(fields map[string]string) *httptest.ResponseRecorder {
		req := multipartRequest(t, http.MethodPost, "/api/events", fields, "", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		return do(router, req)
	}

	for name, fields := range map[string]map[string]string{
		"missing title":    {"date": "2026-09-12T20:00:00Z", "location": "x"},
		"missing location": {"title": "t", "date": "2026-09-12T20:00:00Z"},
		"missing date":     {"title": "t", "location": "x"},
		"bad date":         {"title": "t", "date": "next friday", "location": "x"},
		"bad category":     {"title": "t", "date": "2026-09-12T20:00:00Z", "location": "x", "category": "music"},
	} {
		w := send(fields)
		assert.Equal(t, http.StatusBadRequest, w.Code, name)
	}
}

func TestImageRoundTrip(t *testing.T) {
	router := newTestRouter(t)
	registerUser(t, router, "alice", "alice@example.com")
	token := loginUser(t, router, "alice")

	payload := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 1, 2, 3, 4, 5}
	event := createEvent(t, router, token, map[string]string{
		"title":    "Poster Night",
		"date":     "2026-09-12T20:00:00Z",
		"location": "Gallery",
	}, "image/png", payload)

	require.NotNil(t, event.ImageContentType)
	assert.Equal(t, "image/png", *event.ImageContentType)

	w := do(router, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/events/%d/image", event.ID), nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, payload, w.Body.Bytes())

	// an event without an image has none to serve
	bare := createEvent(t, router, token, map[string]string{
		"title":    "No Poster",
		"date":     "2026-09-12T21:00:00Z",
		"location": "Gallery",
	}, "", nil)
	w = do(router, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/events/%d/image", bare.ID), nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListEvents(t *testing.T) {
	router := newTestRouter(t)
	registerUser(t, router, "alice", "alice@example.com")
	registerUser(t, router, "bob", "bob@example.com")
	aliceToken := loginUser(t, router, "alice")
	bobToken := loginUser(t, router, "bob")

	createEvent(t, router, aliceToken, map[string]string{
		"title": "Jazz Night in the Plaza", "date": "2026-09-12T20:00:00Z", "location": "Plaza", "category": "Music",
	}, "", nil)
	createEvent(t, router, aliceToken, map[string]string{
		"title": "Marathon", "date": "2026-09-14T08:00:00Z", "location": "Seafront", "category": "Sports",
	}, "", nil)
	createEvent(t, router, bobToken, map[string]string{
		"title": "Synth Workshop", "date": "2026-09-13T18:00:00Z", "location": "Studio", "category": "Music",
	}, "", nil)

	list := func(path string, token string) []EventResponse {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		w := do(router, req)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var events []EventResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &events))
		return events
	}

	all := list("/api/events", "")
	require.Len(t, all, 3)

	music := list("/api/events?category=Music", "")
	require.Len(t, music, 2)
	for _, e := range music {
		assert.Equal(t, "Music", e.Category)
	}

	// category match is case-sensitive
	assert.Empty(t, list("/api/events?category=music", ""))

	jazz := list("/api/events?search=jazz", "")
	require.Len(t, jazz, 1)
	assert.Equal(t, "Jazz Night in the Plaza", jazz[0].Title)

	mine := list("/api/events/my", aliceToken)
	require.Len(t, mine, 2)
	for _, e := range mine {
		assert.NotEqual(t, "Synth Workshop", e.Title)
	}

	mineMusic := list("/api/events/my?category=Music", aliceToken)
	require.Len(t, mineMusic, 1)
	assert.Equal(t, "Jazz Night in the Plaza", mineMusic[0].Title)

	// /my requires a principal
	w := do(router, httptest.NewRequest(http.MethodGet, "/api/events/my", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUpdateEvent(t *testing.T) {
	router := newTestRouter(t)
	registerUser(t, router, "alice", "alice@example.com")
	registerUser(t, router, "bob", "bob@example.com")
	aliceToken := loginUser(t, router, "alice")
	bobToken := loginUser(t, router, "bob")

	event := createEvent(t, router, aliceToken, map[string]string{
		"title":       "Jazz Night",
		"description": "old",
		"date":        "2026-09-12T20:00:00Z",
		"location":    "Old Place",
	}, "", nil)

	update := func(token string, fields map[string]string) *httptest.ResponseRecorder {
		req := multipartRequest(t, http.MethodPut, fmt.Sprintf("/api/events/%d", event.ID), fields, "", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		return do(router, req)
	}

	// a non-owner is rejected and the record stays untouched
	w := update(bobToken, map[string]string{"location": "Hijacked"})
	require.Equal(t, http.StatusForbidden, w.Code)

	w = do(router, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/events/%d", event.ID), nil))
	require.Equal(t, http.StatusOK, w.Code)
	var unchanged EventResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &unchanged))
	assert.Equal(t, "Old Place", unchanged.Location)
	assert.Equal(t, event.UpdatedAt, unchanged.UpdatedAt)

	// partial update: only location changes
	w = update(aliceToken, map[string]string{"location": "New Place"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated EventResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, "New Place", updated.Location)
	assert.Equal(t, "old", updated.Description)
	assert.Equal(t, "Jazz Night", updated.Title)

	// a present-but-empty date cannot zero a required field
	w = update(aliceToken, map[string]string{"date": ""})
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

	w = do(router, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/events/%d", event.ID), nil))
	require.Equal(t, http.StatusOK, w.Code)
	var afterBadDate EventResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &afterBadDate))
	assert.Equal(t, event.Date, afterBadDate.Date)

	// unknown id
	req := multipartRequest(t, http.MethodPut, "/api/events/424242", map[string]string{"title": "x"}, "", nil)
	req.Header.Set("Authorization", "Bearer "+aliceToken)
	assert.Equal(t, http.StatusNotFound, do(router, req).Code)

	// no token
	assert.Equal(t, http.StatusUnauthorized,
		do(router, multipartRequest(t, http.MethodPut, fmt.Sprintf("/api/events/%d", event.ID), map[string]string{"title": "x"}, "", nil)).Code)
}

func TestDeleteEvent(t *testing.T) {
	router := newTestRouter(t)
	registerUser(t, router, "alice", "alice@example.com")
	registerUser(t, router, "bob", "bob@example.com")
	aliceToken := loginUser(t, router, "alice")
	bobToken := loginUser(t, router, "bob")

	payload := []byte("fake image bytes")
	event := createEvent(t, router, aliceToken, map[string]string{
		"title": "Doomed Event", "date": "2026-09-12T20:00:00Z", "location": "Somewhere",
	}, "image/png", payload)

	del := func(token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/events/%d", event.ID), nil)
		req.Header.Set("Authorization", "Bearer "+token)
		return do(router, req)
	}

	assert.Equal(t, http.StatusForbidden, del(bobToken).Code)
	require.Equal(t, http.StatusNoContent, del(aliceToken).Code)

	// the event and its image are both gone
	w := do(router, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/events/%d", event.ID), nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = do(router, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/events/%d/image", event.ID), nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	assert.Equal(t, http.StatusNotFound, del(aliceToken).Code)
}

func TestGetEvent_NotFound(t *testing.T) {
	router := newTestRouter(t)

	w := do(router, httptest.NewRequest(http.MethodGet, "/api/events/424242", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(router, httptest.NewRequest(http.MethodGet, "/api/events/not-a-number", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t)
	w := do(router, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
