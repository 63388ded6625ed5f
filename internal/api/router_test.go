package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/shelfmark/library-api/internal/api/handler"
	"github.com/shelfmark/library-api/internal/core/domain"
	"github.com/shelfmark/library-api/internal/core/service"
	"github.com/shelfmark/library-api/internal/infrastructure/db/memory"
)

const testSecret = "test-secret"

type testServer struct {
	t *testing.T
	e *echo.Echo
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := memory.NewStore()
	if _, err := service.NewSeeder(store, zerolog.Nop()).Seed(context.Background()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	users := service.NewUserRepository(store)
	settings := service.NewSettingsService(store, zerolog.Nop())
	cal := service.FixedCalendar(domain.NewDate(2024, 1, 1))
	e := NewRouter(Deps{
		Auth:      service.NewAuthService(users, testSecret, time.Hour),
		Books:     service.NewBookService(store, nil, zerolog.Nop()),
		Users:     service.NewUserService(users, zerolog.Nop()),
		Settings:  settings,
		Lending:   service.NewLendingService(service.NewLedger(store), settings, nil, cal, zerolog.Nop()),
		Readiness: map[string]handler.Pinger{"store": store},
		JWTSecret: testSecret,
		Logger:    zerolog.Nop(),
	})
	return &testServer{t: t, e: e}
}

// do sends a request and decodes a JSON response into out when non-nil.
func (s *testServer) do(method, path, token, body string, out any) int {
	s.t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	if out != nil && rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			s.t.Fatalf("%s %s: invalid json %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec.Code
}

func (s *testServer) login(username, password string) (token, userID string) {
	s.t.Helper()
	var resp struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	body := `{"username":"` + username + `","password":"` + password + `"}`
	if code := s.do(http.MethodPost, "/auth/login", "", body, &resp); code != http.StatusOK {
		s.t.Fatalf("login %s: expected 200, got %d", username, code)
	}
	return resp.Token, resp.User.ID
}

type errBody struct {
	Error string `json:"error"`
}

func TestRouter_LendingFlow(t *testing.T) {
	s := newTestServer(t)
	admin, adminID := s.login("admin", "admin123")
	student, studentID := s.login("student", "student123")

	var books []domain.Book
	if code := s.do(http.MethodGet, "/books", student, "", &books); code != http.StatusOK || len(books) != 3 {
		t.Fatalf("expected 3 seeded books, got %d (%d)", len(books), code)
	}

	var eb errBody
	if code := s.do(http.MethodPost, "/books", student, `{"title":"x","author":"y","quantity":1}`, &eb); code != http.StatusForbidden {
		t.Fatalf("student create book: expected 403, got %d", code)
	}

	var book domain.Book
	code := s.do(http.MethodPost, "/books", admin, `{"title":"Dune","author":"Frank Herbert","quantity":1,"available":9}`, &book)
	if code != http.StatusCreated {
		t.Fatalf("create book: expected 201, got %d", code)
	}
	if book.Available != 1 {
		t.Fatalf("client-supplied available must be ignored, got %d", book.Available)
	}

	var loan struct {
		ID      string `json:"id"`
		UserID  string `json:"userId"`
		DueDate string `json:"dueDate"`
		Status  string `json:"status"`
	}
	if code := s.do(http.MethodPost, "/borrows", student, `{"bookId":"`+book.ID+`"}`, &loan); code != http.StatusCreated {
		t.Fatalf("borrow: expected 201, got %d", code)
	}
	if loan.UserID != studentID || loan.DueDate != "2024-01-15" || loan.Status != "active" {
		t.Fatalf("unexpected loan: %+v", loan)
	}

	eb = errBody{}
	if code := s.do(http.MethodPost, "/borrows", admin, `{"bookId":"`+book.ID+`","userId":"`+studentID+`"}`, &eb); code != http.StatusBadRequest {
		t.Fatalf("borrow last copy twice: expected 400, got %d", code)
	}
	if eb.Error == "" {
		t.Fatalf("expected error message")
	}

	if code := s.do(http.MethodDelete, "/books/"+book.ID, admin, "", nil); code != http.StatusConflict {
		t.Fatalf("delete on loan: expected 409, got %d", code)
	}

	var stats struct {
		ActiveBorrows int `json:"activeBorrows"`
		StudentCount  int `json:"studentCount"`
	}
	if code := s.do(http.MethodGet, "/analytics/stats", admin, "", &stats); code != http.StatusOK {
		t.Fatalf("stats: expected 200, got %d", code)
	}
	if stats.ActiveBorrows != 1 || stats.StudentCount != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if code := s.do(http.MethodGet, "/analytics/stats", student, "", nil); code != http.StatusOK {
		t.Fatalf("student stats: expected 200, got %d", code)
	}
	if code := s.do(http.MethodGet, "/analytics/overdue", student, "", nil); code != http.StatusForbidden {
		t.Fatalf("student overdue: expected 403, got %d", code)
	}

	var adminLoan struct {
		ID string `json:"id"`
	}
	if code := s.do(http.MethodPost, "/borrows", admin, `{"bookId":"`+books[0].ID+`","userId":"`+adminID+`"}`, &adminLoan); code != http.StatusCreated {
		t.Fatalf("admin borrow: expected 201, got %d", code)
	}
	if code := s.do(http.MethodPut, "/borrows/"+adminLoan.ID+"/return", student, "", nil); code != http.StatusForbidden {
		t.Fatalf("student returning another user's loan: expected 403, got %d", code)
	}
	if code := s.do(http.MethodPut, "/borrows/"+adminLoan.ID+"/return", admin, "", nil); code != http.StatusOK {
		t.Fatalf("admin return: expected 200, got %d", code)
	}

	if code := s.do(http.MethodPut, "/borrows/"+loan.ID+"/return", student, `{"fine":99}`, &loan); code != http.StatusOK {
		t.Fatalf("student returning own loan: expected 200, got %d", code)
	}
	if loan.Status != "returned" {
		t.Fatalf("expected returned status, got %s", loan.Status)
	}
	if code := s.do(http.MethodPut, "/borrows/"+loan.ID+"/return", admin, "", nil); code != http.StatusConflict {
		t.Fatalf("second return: expected 409, got %d", code)
	}

	if code := s.do(http.MethodDelete, "/books/"+book.ID, admin, "", nil); code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", code)
	}
	if code := s.do(http.MethodGet, "/books/"+book.ID, admin, "", nil); code != http.StatusNotFound {
		t.Fatalf("get deleted: expected 404, got %d", code)
	}
}

func TestRouter_AuthErrors(t *testing.T) {
	s := newTestServer(t)

	if code := s.do(http.MethodGet, "/books", "", "", nil); code != http.StatusUnauthorized {
		t.Fatalf("no token: expected 401, got %d", code)
	}
	if code := s.do(http.MethodGet, "/books", "garbage", "", nil); code != http.StatusUnauthorized {
		t.Fatalf("bad token: expected 401, got %d", code)
	}

	var eb errBody
	if code := s.do(http.MethodPost, "/auth/login", "", `{"username":"admin","password":"nope"}`, &eb); code != http.StatusUnauthorized {
		t.Fatalf("wrong password: expected 401, got %d", code)
	}
	if eb.Error != "invalid credentials" {
		t.Fatalf("unexpected error body: %+v", eb)
	}
	if code := s.do(http.MethodPost, "/auth/login", "", `{"username":"ghost","password":"nope"}`, nil); code != http.StatusUnauthorized {
		t.Fatalf("unknown user: expected 401, got %d", code)
	}
}

func TestRouter_RegisterAndUsers(t *testing.T) {
	s := newTestServer(t)
	admin, _ := s.login("admin", "admin123")

	if code := s.do(http.MethodPost, "/auth/register", "", `{"username":"newbie","password":"secret1"}`, nil); code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d", code)
	}
	newbie, _ := s.login("newbie", "secret1")

	if code := s.do(http.MethodPost, "/auth/register", "", `{"username":"NEWBIE","password":"secret1"}`, nil); code != http.StatusConflict {
		t.Fatalf("duplicate register: expected 409, got %d", code)
	}
	if code := s.do(http.MethodPost, "/users", admin, `{"username":"student","password":"secret1","role":"Admin"}`, nil); code != http.StatusConflict {
		t.Fatalf("duplicate across roles: expected 409, got %d", code)
	}
	if code := s.do(http.MethodPost, "/users", admin, `{"username":"x","password":"secret1","role":"Librarian"}`, nil); code != http.StatusBadRequest {
		t.Fatalf("bad role: expected 400, got %d", code)
	}
	if code := s.do(http.MethodGet, "/users", newbie, "", nil); code != http.StatusForbidden {
		t.Fatalf("student list users: expected 403, got %d", code)
	}

	var users []domain.User
	if code := s.do(http.MethodGet, "/users?q=newbie", admin, "", &users); code != http.StatusOK || len(users) != 1 {
		t.Fatalf("search users: got %d results (%d)", len(users), code)
	}
	if code := s.do(http.MethodGet, "/users/missing", admin, "", nil); code != http.StatusNotFound {
		t.Fatalf("missing user: expected 404, got %d", code)
	}
}

func TestRouter_Settings(t *testing.T) {
	s := newTestServer(t)
	admin, _ := s.login("admin", "admin123")
	student, _ := s.login("student", "student123")

	var got domain.Settings
	if code := s.do(http.MethodGet, "/settings", student, "", &got); code != http.StatusOK {
		t.Fatalf("get settings: expected 200, got %d", code)
	}
	if got.BorrowingPeriodDays != domain.DefaultBorrowingPeriodDays {
		t.Fatalf("expected default period, got %+v", got)
	}

	body := `{"lowStockThreshold":2,"borrowingPeriodDays":7,"finePerDay":0.5}`
	if code := s.do(http.MethodPut, "/settings", student, body, nil); code != http.StatusForbidden {
		t.Fatalf("student put settings: expected 403, got %d", code)
	}
	if code := s.do(http.MethodPut, "/settings", admin, body, &got); code != http.StatusOK {
		t.Fatalf("put settings: expected 200, got %d", code)
	}
	if got.BorrowingPeriodDays != 7 || got.FinePerDay.String() != "0.5" {
		t.Fatalf("unexpected settings: %+v", got)
	}

	if code := s.do(http.MethodPut, "/settings", admin, `{"lowStockThreshold":2,"borrowingPeriodDays":0,"finePerDay":1}`, nil); code != http.StatusBadRequest {
		t.Fatalf("invalid period: expected 400, got %d", code)
	}
	if code := s.do(http.MethodPut, "/settings", admin, `{"lowStockThreshold":2,"borrowingPeriodDays":3,"finePerDay":-1}`, nil); code != http.StatusBadRequest {
		t.Fatalf("negative fine: expected 400, got %d", code)
	}
	if code := s.do(http.MethodPut, "/settings", admin, `{"borrowingPeriodDays":3}`, nil); code != http.StatusBadRequest {
		t.Fatalf("missing fields: expected 400, got %d", code)
	}
}

func TestRouter_Health(t *testing.T) {
	s := newTestServer(t)

	if code := s.do(http.MethodGet, "/health", "", "", nil); code != http.StatusOK {
		t.Fatalf("liveness: expected 200, got %d", code)
	}
	var ready struct {
		Status string `json:"status"`
	}
	if code := s.do(http.MethodGet, "/health/ready", "", "", &ready); code != http.StatusOK || ready.Status != "ok" {
		t.Fatalf("readiness: expected ok, got %d %+v", code, ready)
	}
}
