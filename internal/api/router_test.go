package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/projecthub/portal/internal/api/middleware"
	"github.com/projecthub/portal/internal/core/domain"
	"github.com/projecthub/portal/internal/core/service"
	"github.com/projecthub/portal/internal/infrastructure/backend"
	"github.com/projecthub/portal/internal/testutil"
)

type recorder struct {
	mu     sync.Mutex
	events []domain.AuthEvent
}

func (r *recorder) Record(ev domain.AuthEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) count(typ domain.AuthEventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

type portal struct {
	t       *testing.T
	url     string
	client  *http.Client
	fake    *testutil.Backend
	audit   *recorder
	storage *testutil.MemoryStorage
}

func newPortal(t *testing.T) *portal {
	t.Helper()
	fake := testutil.NewBackend(t)
	client, err := backend.New(backend.Config{BaseURL: fake.URL, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("backend client: %v", err)
	}

	log := zerolog.Nop()
	audit := &recorder{}
	storage := testutil.NewMemoryStorage()
	sessions := service.NewSessionStore(storage, log)
	e := NewRouter(Dependencies{
		Sessions:  sessions,
		Auth:      service.NewAuthService(client, sessions, audit, log),
		Stats:     service.NewStatsService(client, log),
		Workspace: service.NewWorkspaceService(client, log),
		Audit:     audit,
		Cookie: middleware.SessionConfig{
			CookieName: "portal_session",
			Secret:     "test-secret",
			TTL:        time.Hour,
		},
		Log:        log,
		Registerer: prometheus.NewRegistry(),
	})
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &portal{
		t:       t,
		url:     srv.URL,
		fake:    fake,
		audit:   audit,
		storage: storage,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (p *portal) do(method, path, body string) (int, string, string) {
	p.t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, p.url+path, r)
	if err != nil {
		p.t.Fatalf("request: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := p.client.Do(req)
	if err != nil {
		p.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, resp.Header.Get("Location"), string(raw)
}

func (p *portal) expectRedirect(path, to string) {
	p.t.Helper()
	code, loc, _ := p.do(http.MethodGet, path, "")
	if code != http.StatusFound || loc != to {
		p.t.Fatalf("GET %s: got %d to %q, want 302 to %q", path, code, loc, to)
	}
}

func TestRouter_MemberFlow(t *testing.T) {
	p := newPortal(t)

	p.expectRedirect("/user/dashboard", domain.LoginRoute)

	code, _, body := p.do(http.MethodGet, "/", "")
	if code != http.StatusOK || !strings.Contains(body, `"view":"home"`) {
		t.Fatalf("home: %d %s", code, body)
	}

	code, _, body = p.do(http.MethodPost, "/login", `{"email":"bob@x.com","password":"pw"}`)
	if code != http.StatusOK {
		t.Fatalf("login: %d %s", code, body)
	}
	var login struct {
		RedirectTo string       `json:"redirect_to"`
		User       *domain.User `json:"user"`
	}
	if err := json.Unmarshal([]byte(body), &login); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if login.RedirectTo != domain.MemberDashboardRoute || login.User.Role != domain.RoleMember {
		t.Fatalf("unexpected login response: %+v", login)
	}

	code, _, body = p.do(http.MethodGet, "/user/dashboard", "")
	if code != http.StatusOK || !strings.Contains(body, `"view":"member_dashboard"`) {
		t.Fatalf("dashboard: %d %s", code, body)
	}

	p.expectRedirect("/admin/dashboard", domain.MemberDashboardRoute)
	p.expectRedirect("/manager/dashboard", domain.MemberDashboardRoute)
	p.expectRedirect("/", domain.MemberDashboardRoute)
	p.expectRedirect("/login", domain.MemberDashboardRoute)

	code, loc, _ := p.do(http.MethodPost, "/teams", `{"name":"Core"}`)
	if code != http.StatusFound || loc != domain.MemberDashboardRoute {
		t.Fatalf("member create team: %d to %q", code, loc)
	}

	code, _, body = p.do(http.MethodGet, "/tasks/missing", "")
	if code != http.StatusNotFound || !strings.Contains(body, `"redirect_to":"/tasks"`) {
		t.Fatalf("missing task: %d %s", code, body)
	}

	code, _, body = p.do(http.MethodPost, "/logout", "")
	if code != http.StatusOK || !strings.Contains(body, `"redirect_to":"/login"`) {
		t.Fatalf("logout: %d %s", code, body)
	}
	p.expectRedirect("/dashboard", domain.LoginRoute)

	if p.audit.count(domain.EventLoginSucceeded) != 1 || p.audit.count(domain.EventLogout) != 1 {
		t.Fatalf("unexpected audit trail: %+v", p.audit.events)
	}
	if p.audit.count(domain.EventGuardRedirect) == 0 {
		t.Fatal("guard redirects should be audited")
	}
}

func TestRouter_ManagerCreatesWork(t *testing.T) {
	p := newPortal(t)

	code, _, body := p.do(http.MethodPost, "/login", `{"email":"ann@x.com","password":"pw","secret_code":"manager"}`)
	if code != http.StatusOK || !strings.Contains(body, domain.ManagerDashboardRoute) {
		t.Fatalf("login: %d %s", code, body)
	}

	code, loc, _ := p.do(http.MethodPost, "/teams", `{"name":"Core"}`)
	if code != http.StatusFound || loc != domain.ManagerDashboardRoute {
		t.Fatalf("manager create team: got %d to %q, want 302 to %q", code, loc, domain.ManagerDashboardRoute)
	}

	code, _, body = p.do(http.MethodPost, "/projects", `{"name":"Portal","team_id":"t-1"}`)
	if code != http.StatusCreated {
		t.Fatalf("create project: %d %s", code, body)
	}

	task := p.fake.AddTask(domain.Task{Title: "Ship it"})
	code, _, body = p.do(http.MethodPut, "/tasks/"+task.ID, `{"status":"done"}`)
	if code != http.StatusOK || !strings.Contains(body, `"status":"done"`) {
		t.Fatalf("update task: %d %s", code, body)
	}

	code, _, body = p.do(http.MethodGet, "/manager/dashboard", "")
	if code != http.StatusOK || !strings.Contains(body, `"view":"manager_dashboard"`) {
		t.Fatalf("dashboard: %d %s", code, body)
	}
}

func TestRouter_AdminCreatesTeam(t *testing.T) {
	p := newPortal(t)

	if code, _, body := p.do(http.MethodPost, "/login", `{"email":"admin@example.com","password":"pw"}`); code != http.StatusOK {
		t.Fatalf("login: %d %s", code, body)
	}

	code, _, body := p.do(http.MethodPost, "/teams", `{"name":"Core"}`)
	if code != http.StatusCreated {
		t.Fatalf("create team: %d %s", code, body)
	}
	var team domain.Team
	if err := json.Unmarshal([]byte(body), &team); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if team.ID == "" || team.Name != "Core" {
		t.Fatalf("unexpected team: %+v", team)
	}
}

func TestRouter_StorageDownAnswersLoading(t *testing.T) {
	p := newPortal(t)
	p.storage.FailGets(errors.New("redis down"))

	for _, path := range []string{"/", "/login", "/dashboard", "/admin/dashboard"} {
		resp, err := p.client.Get(p.url + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		var body errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&body)
		resp.Body.Close()

		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Fatalf("GET %s: expected 503, got %d", path, resp.StatusCode)
		}
		if resp.Header.Get("Retry-After") != "1" || body.Error != "session is loading" {
			t.Fatalf("GET %s: retry-after=%q body=%+v", path, resp.Header.Get("Retry-After"), body)
		}
	}
	if n := p.audit.count(domain.EventGuardRedirect); n != 0 {
		t.Fatalf("loading must not be audited, got %d redirects", n)
	}
}

func TestRouter_LoginRejected(t *testing.T) {
	p := newPortal(t)

	if code, _, body := p.do(http.MethodPost, "/login", `{"email":"bob@x.com","password":"pw"}`); code != http.StatusOK {
		t.Fatalf("first login: %d %s", code, body)
	}
	if code, _, _ := p.do(http.MethodPost, "/logout", ""); code != http.StatusOK {
		t.Fatalf("logout: %d", code)
	}

	code, _, body := p.do(http.MethodPost, "/login", `{"email":"bob@x.com","password":"wrong"}`)
	if code != http.StatusUnauthorized || !strings.Contains(body, "Incorrect email or password") {
		t.Fatalf("wrong password: %d %s", code, body)
	}
	p.expectRedirect("/dashboard", domain.LoginRoute)

	code, _, _ = p.do(http.MethodPost, "/login", `{"email":"bob@x.com"}`)
	if code != http.StatusUnprocessableEntity {
		t.Fatalf("missing password: expected 422, got %d", code)
	}
}

func TestRouter_StatsFailureStillRenders(t *testing.T) {
	p := newPortal(t)
	if code, _, body := p.do(http.MethodPost, "/login", `{"email":"admin@example.com","password":"pw"}`); code != http.StatusOK {
		t.Fatalf("login: %d %s", code, body)
	}
	p.fake.Set(func(b *testutil.Backend) { b.FailStats = true })

	code, _, body := p.do(http.MethodGet, "/admin/dashboard", "")
	if code != http.StatusOK || !strings.Contains(body, "Failed to fetch statistics") {
		t.Fatalf("dashboard: %d %s", code, body)
	}
}
