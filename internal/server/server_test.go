package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"postwall/internal/app"
	"postwall/internal/authtoken"
	"postwall/internal/domain"
	"postwall/internal/storage"
	"postwall/internal/store"
)

const testSecret = "test-secret"

type testEnv struct {
	server  *Server
	app     *app.App
	store   *store.MemoryStore
	objects *storage.MemoryObjectStore
	cookie  *http.Cookie
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st := store.NewMemoryStore()
	objects := storage.NewMemoryObjectStore()
	a := app.New(st, objects, app.Options{})
	verifier, err := authtoken.NewVerifier(authtoken.Config{Secret: testSecret})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	token, err := verifier.Sign("external-user", time.Minute)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return &testEnv{
		server:  New(Config{App: a, Verifier: verifier, CookieName: "auth_token"}),
		app:     a,
		store:   st,
		objects: objects,
		cookie:  &http.Cookie{Name: "auth_token", Value: token},
	}
}

func (e *testEnv) do(t *testing.T, method, target string, body any, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.AddCookie(e.cookie)
	}
	rec := httptest.NewRecorder()
	e.server.Router().ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) seedHiddenAndPublicPosts(t *testing.T) (hidden, public domain.Post) {
	t.Helper()
	ctx := context.Background()
	u, err := e.app.CreateUser(ctx, domain.User{Name: "alice", Email: "a@example.com"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	public, err = e.app.CreatePost(ctx, domain.Post{Content: "public", IsPublic: true, UserID: u.ID})
	if err != nil {
		t.Fatalf("create public post: %v", err)
	}
	hidden, err = e.app.CreatePost(ctx, domain.Post{Content: "hidden", IsPublic: false, UserID: u.ID})
	if err != nil {
		t.Fatalf("create hidden post: %v", err)
	}
	return hidden, public
}

func decodePage(t *testing.T, rec *httptest.ResponseRecorder) []app.PostView {
	t.Helper()
	var page []app.PostView
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode page: %v (%s)", err, rec.Body.String())
	}
	return page
}

func TestWallHidesPrivatePostsWithoutElevation(t *testing.T) {
	e := newTestEnv(t)
	_, public := e.seedHiddenAndPublicPosts(t)

	rec := e.do(t, http.MethodGet, "/posts", nil, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	page := decodePage(t, rec)
	if len(page) != 1 || page[0].ID != public.ID {
		t.Fatalf("expected only the public post, got %+v", page)
	}
}

func TestWallIncludesHiddenWithValidCookie(t *testing.T) {
	e := newTestEnv(t)
	e.seedHiddenAndPublicPosts(t)

	rec := e.do(t, http.MethodGet, "/posts?includeHiddenSources=true", nil, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if page := decodePage(t, rec); len(page) != 2 {
		t.Fatalf("expected both posts with elevation, got %d", len(page))
	}
}

// An invalid token downgrades silently; the request still succeeds and the
// hidden post stays hidden.
func TestInvalidTokenSilentlyDowngrades(t *testing.T) {
	e := newTestEnv(t)
	_, public := e.seedHiddenAndPublicPosts(t)

	req := httptest.NewRequest(http.MethodGet, "/posts?includeHiddenSources=true", nil)
	req.AddCookie(&http.Cookie{Name: "auth_token", Value: "garbage"})
	rec := httptest.NewRecorder()
	e.server.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("downgrade must not fail the request, status %d", rec.Code)
	}
	page := decodePage(t, rec)
	if len(page) != 1 || page[0].ID != public.ID {
		t.Fatalf("invalid token must see public posts only, got %+v", page)
	}
}

func TestMutationsRequireAuth(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodPost, "/posts", map[string]any{"content": "x", "userId": 1}, false)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without cookie, got %d", rec.Code)
	}
	rec = e.do(t, http.MethodDelete, "/posts/1", nil, false)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without cookie, got %d", rec.Code)
	}
}

func TestCreateAndFetchPost(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	u, err := e.app.CreateUser(ctx, domain.User{Name: "alice", Email: "a@example.com"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	rec := e.do(t, http.MethodPost, "/posts", map[string]any{"content": "hello wall", "userId": u.ID}, true)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status %d: %s", rec.Code, rec.Body.String())
	}
	var created domain.Post
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created: %v", err)
	}
	if created.ID == 0 || !created.IsPublic {
		t.Fatalf("unexpected created post: %+v", created)
	}

	rec = e.do(t, http.MethodGet, fmt.Sprintf("/posts/%d", created.ID), nil, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status %d: %s", rec.Code, rec.Body.String())
	}
	var view app.PostView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if view.Content != "hello wall" || view.User.ID != u.ID {
		t.Fatalf("unexpected view: %+v", view)
	}
}

func TestGetMissingPostIs404(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodGet, "/posts/999", nil, false)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestDuplicateAssignIs409(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	u, _ := e.app.CreateUser(ctx, domain.User{Name: "alice", Email: "a@example.com"})
	p, _ := e.app.CreatePost(ctx, domain.Post{Content: "x", IsPublic: true, UserID: u.ID})
	tag, _ := e.app.CreateTag(ctx, domain.KindCategory, domain.Tag{Name: "Cat", IsPublic: true, UserID: u.ID})

	target := fmt.Sprintf("/posts/%d/category/%d", p.ID, tag.ID)
	if rec := e.do(t, http.MethodPost, target, nil, true); rec.Code != http.StatusNoContent {
		t.Fatalf("first assign status %d: %s", rec.Code, rec.Body.String())
	}
	if rec := e.do(t, http.MethodPost, target, nil, true); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on duplicate assign, got %d", rec.Code)
	}
}

func TestTagCRUDAndPublicListing(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	u, _ := e.app.CreateUser(ctx, domain.User{Name: "alice", Email: "a@example.com"})

	rec := e.do(t, http.MethodPost, "/collections", map[string]any{"name": "Weekend Trips", "isPublic": true, "userId": u.ID}, true)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status %d: %s", rec.Code, rec.Body.String())
	}
	var created domain.Tag
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Slug != "weekend-trips" {
		t.Fatalf("slug not derived: %+v", created)
	}

	// Hidden collection is absent from the public listing.
	if _, err := e.app.CreateTag(ctx, domain.KindCollection, domain.Tag{Name: "Secret", UserID: u.ID}); err != nil {
		t.Fatalf("create hidden: %v", err)
	}
	rec = e.do(t, http.MethodGet, "/collections", nil, false)
	var listed []domain.Tag
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != created.ID {
		t.Fatalf("public listing wrong: %+v", listed)
	}
}

func TestTopicRelationsRoundTrip(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	u, _ := e.app.CreateUser(ctx, domain.User{Name: "alice", Email: "a@example.com"})
	cat, _ := e.app.CreateTag(ctx, domain.KindCategory, domain.Tag{Name: "Cat", IsPublic: true, UserID: u.ID})
	com, _ := e.app.CreateTag(ctx, domain.KindCommunity, domain.Tag{Name: "Com", IsPublic: true, UserID: u.ID})

	rec := e.do(t, http.MethodPost, "/topics", map[string]any{"name": "Mixed", "isPublic": true}, true)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create topic status %d: %s", rec.Code, rec.Body.String())
	}
	var topic domain.Topic
	if err := json.Unmarshal(rec.Body.Bytes(), &topic); err != nil {
		t.Fatalf("decode topic: %v", err)
	}

	body := map[string]any{"relations": []map[string]any{
		{"type": "category", "id": cat.ID},
		{"type": "community", "id": com.ID},
	}}
	rec = e.do(t, http.MethodPut, fmt.Sprintf("/topics/%d/relations", topic.ID), body, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("replace relations status %d: %s", rec.Code, rec.Body.String())
	}
	var view app.TopicView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if len(view.Relations.Categories) != 1 || len(view.Relations.Communities) != 1 {
		t.Fatalf("relations not applied: %+v", view.Relations)
	}

	// Empty list clears and succeeds.
	rec = e.do(t, http.MethodPut, fmt.Sprintf("/topics/%d/relations", topic.ID), map[string]any{"relations": []any{}}, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("clear relations status %d: %s", rec.Code, rec.Body.String())
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if len(view.Relations.Categories)+len(view.Relations.Communities) != 0 {
		t.Fatalf("relations not cleared: %+v", view.Relations)
	}
}

func TestTopicLookupBySlug(t *testing.T) {
	e := newTestEnv(t)
	topic, err := e.app.CreateTopic(context.Background(), domain.Topic{Name: "City Walks", IsPublic: true})
	if err != nil {
		t.Fatalf("create topic: %v", err)
	}

	rec := e.do(t, http.MethodGet, "/topics/slug/city-walks", nil, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var view app.TopicView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.ID != topic.ID {
		t.Fatalf("wrong topic: %+v", view)
	}

	if rec := e.do(t, http.MethodGet, "/topics/slug/missing", nil, false); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown slug, got %d", rec.Code)
	}
}

func TestMultipartUploadAndDownloadURLs(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	u, _ := e.app.CreateUser(ctx, domain.User{Name: "alice", Email: "a@example.com"})
	p, _ := e.app.CreatePost(ctx, domain.Post{Content: "x", IsPublic: true, UserID: u.ID})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("files", "photo.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte("png-bytes")); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/posts/%d/files", p.ID), &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.AddCookie(e.cookie)
	rec := httptest.NewRecorder()
	e.server.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("upload status %d: %s", rec.Code, rec.Body.String())
	}
	var views []app.FileView
	if err := json.Unmarshal(rec.Body.Bytes(), &views); err != nil {
		t.Fatalf("decode views: %v", err)
	}
	if len(views) != 1 || views[0].SignedURL == "" {
		t.Fatalf("unexpected upload result: %+v", views)
	}
	if !strings.Contains(views[0].FilePath, "photo.png") {
		t.Fatalf("original name lost in path: %q", views[0].FilePath)
	}

	// Listing returns the row with a fresh signed URL.
	rec = e.do(t, http.MethodGet, fmt.Sprintf("/posts/%d/files", p.ID), nil, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status %d: %s", rec.Code, rec.Body.String())
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &views); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(views) != 1 || views[0].SignedURL == "" {
		t.Fatalf("unexpected listing: %+v", views)
	}
}

func TestDeleteAbsentFileIsNoContent(t *testing.T) {
	e := newTestEnv(t)
	if rec := e.do(t, http.MethodDelete, "/files/12345", nil, true); rec.Code != http.StatusNoContent {
		t.Fatalf("idempotent delete expected 204, got %d", rec.Code)
	}
}

func TestCalendarEndpoint(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	u, err := e.app.CreateUser(ctx, domain.User{Name: "alice", Email: "a@example.com"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := e.app.CreatePost(ctx, domain.Post{Content: "public", IsPublic: true, UserID: u.ID}); err != nil {
		t.Fatalf("create public post: %v", err)
	}
	yesterday := time.Now().UTC().AddDate(0, 0, -1)
	if _, err := e.app.CreatePost(ctx, domain.Post{Content: "hidden", IsPublic: false, UserID: u.ID, CreatedAt: yesterday}); err != nil {
		t.Fatalf("create hidden post: %v", err)
	}

	rec := e.do(t, http.MethodGet, "/posts/calendar", nil, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("calendar status %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Dates []time.Time `json:"dates"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Dates) != 1 {
		t.Fatalf("public calendar should have 1 date, got %d", len(resp.Dates))
	}

	rec = e.do(t, http.MethodGet, "/posts/calendar?includeHiddenSources=true", nil, true)
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Dates) != 2 {
		t.Fatalf("elevated calendar should have 2 dates, got %d", len(resp.Dates))
	}
}

func TestQueryLimitClampsPageSize(t *testing.T) {
	cases := []struct {
		query string
		want  int
	}{
		{"", defaultPageSize},
		{"limit=0", defaultPageSize},
		{"limit=-3", defaultPageSize},
		{"limit=abc", defaultPageSize},
		{"limit=5", 5},
		{"limit=100", maxPageSize},
		{"limit=5000", maxPageSize},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/posts?"+tc.query, nil)
		if got := queryLimit(req); got != tc.want {
			t.Errorf("queryLimit(%q) = %d, want %d", tc.query, got, tc.want)
		}
	}
}

func TestWallZeroLimitStaysBounded(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	u, err := e.app.CreateUser(ctx, domain.User{Name: "bob", Email: "b@example.com"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	for i := 0; i < defaultPageSize+5; i++ {
		if _, err := e.app.CreatePost(ctx, domain.Post{Content: fmt.Sprintf("post %d", i), IsPublic: true, UserID: u.ID}); err != nil {
			t.Fatalf("create post %d: %v", i, err)
		}
	}

	rec := e.do(t, http.MethodGet, "/posts?limit=0", nil, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if page := decodePage(t, rec); len(page) != defaultPageSize {
		t.Fatalf("got %d posts, want the default page of %d", len(page), defaultPageSize)
	}
}

func TestHealthz(t *testing.T) {
	e := newTestEnv(t)
	if rec := e.do(t, http.MethodGet, "/healthz", nil, false); rec.Code != http.StatusOK {
		t.Fatalf("healthz status %d", rec.Code)
	}
}
