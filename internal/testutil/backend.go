package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/projecthub/portal/internal/core/domain"
)

// AdminEmail always logs in as admin.
const AdminEmail = "admin@example.com"

// ManagerCode is the secret code that grants the manager role.
const ManagerCode = "manager"

const backendSecret = "fake-backend-secret"

type fakeUser struct {
	user         domain.User
	passwordHash []byte
}

// Backend is an in-process stand-in for the REST backend. It follows the
// backend's login contract: unknown emails are registered on first login,
// the admin email is always admin, the manager code grants manager, and
// every other login is a member. Tokens are HS256 JWTs with sub, email,
// role and exp.
type Backend struct {
	Server *httptest.Server
	// URL is the API base, e.g. http://127.0.0.1:1234/api/v1.
	URL string

	mu       sync.Mutex
	seq      int
	users    map[string]*fakeUser // by email
	byID     map[string]*fakeUser
	teams    []domain.Team
	projects []domain.Project
	tasks    []domain.Task
	comments []domain.Comment

	// TokenTTL is the lifetime of issued tokens; negative issues expired ones.
	TokenTTL time.Duration
	// FailMe makes /auth/me answer 500.
	FailMe bool
	// FailStats makes /stats/overview answer 500.
	FailStats bool
	// Overview, when set, is returned by /stats/overview as is.
	Overview *domain.StatsOverview
	// LoginDelay holds every login for the given duration.
	LoginDelay time.Duration
	// Logins counts POST /auth/login calls.
	Logins int
}

// NewBackend starts a fake backend and closes it when t finishes.
func NewBackend(t testing.TB) *Backend {
	t.Helper()

	b := &Backend{
		users:    make(map[string]*fakeUser),
		byID:     make(map[string]*fakeUser),
		TokenTTL: time.Hour,
	}

	e := echo.New()
	e.HideBanner = true
	api := e.Group("/api/v1")
	api.POST("/auth/login", b.login)
	api.GET("/auth/me", b.authed(b.me))
	api.GET("/stats/overview", b.authed(b.stats))
	api.GET("/teams/", b.authed(b.listTeams))
	api.POST("/teams/", b.authed(b.createTeam))
	api.GET("/projects/", b.authed(b.listProjects))
	api.POST("/projects/", b.authed(b.createProject))
	api.GET("/tasks/", b.authed(b.listTasks))
	api.PUT("/tasks/:id", b.authed(b.updateTask))
	api.GET("/comments/:task_id", b.authed(b.listComments))
	api.POST("/comments/", b.authed(b.createComment))

	b.Server = httptest.NewServer(e)
	b.URL = b.Server.URL + "/api/v1"
	t.Cleanup(b.Server.Close)
	return b
}

type detail struct {
	Detail string `json:"detail"`
}

func (b *Backend) nextID() string {
	b.seq++
	return fmt.Sprintf("00000000-0000-4000-8000-%012d", b.seq)
}

type loginBody struct {
	Email      string  `json:"email"`
	Password   string  `json:"password"`
	SecretCode *string `json:"secret_code"`
}

func (b *Backend) login(c echo.Context) error {
	var body loginBody
	if err := c.Bind(&body); err != nil || body.Email == "" || body.Password == "" {
		return c.JSON(http.StatusUnprocessableEntity, map[string]any{
			"detail": []map[string]string{{"msg": "field required"}},
		})
	}

	b.mu.Lock()
	b.Logins++
	delay := b.LoginDelay
	b.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	role := domain.RoleMember
	switch {
	case body.Email == AdminEmail:
		role = domain.RoleAdmin
	case body.SecretCode != nil && *body.SecretCode == ManagerCode:
		role = domain.RoleManager
	}

	u, ok := b.users[body.Email]
	if !ok {
		hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.MinCost)
		if err != nil {
			return err
		}
		u = &fakeUser{
			user: domain.User{
				ID:        b.nextID(),
				Username:  strings.SplitN(body.Email, "@", 2)[0],
				Email:     body.Email,
				CreatedAt: domain.NewTimestamp(time.Now()),
			},
			passwordHash: hash,
		}
		b.users[body.Email] = u
		b.byID[u.user.ID] = u
	} else if bcrypt.CompareHashAndPassword(u.passwordHash, []byte(body.Password)) != nil {
		return c.JSON(http.StatusUnauthorized, detail{Detail: "Incorrect email or password"})
	}
	u.user.Role = role

	token, err := b.issue(u.user)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"access_token": token, "token_type": "bearer"})
}

func (b *Backend) issue(u domain.User) (string, error) {
	claims := jwt.MapClaims{
		"sub":   u.ID,
		"email": u.Email,
		"role":  string(u.Role),
		"exp":   time.Now().Add(b.TokenTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(backendSecret))
}

// Token issues a token for an already registered email.
func (b *Backend) Token(email string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.users[email]
	if !ok {
		return "", fmt.Errorf("unknown user %s", email)
	}
	return b.issue(u.user)
}

func (b *Backend) authed(next func(echo.Context, *fakeUser) error) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw := strings.TrimPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
		claims := jwt.MapClaims{}
		tkn, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
			return []byte(backendSecret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !tkn.Valid {
			return c.JSON(http.StatusUnauthorized, detail{Detail: "Could not validate credentials"})
		}
		sub, _ := claims.GetSubject()

		b.mu.Lock()
		u, ok := b.byID[sub]
		b.mu.Unlock()
		if !ok {
			return c.JSON(http.StatusUnauthorized, detail{Detail: "User not found"})
		}
		return next(c, u)
	}
}

func (b *Backend) me(c echo.Context, u *fakeUser) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.FailMe {
		return c.JSON(http.StatusInternalServerError, detail{Detail: "profile unavailable"})
	}
	return c.JSON(http.StatusOK, u.user)
}

func (b *Backend) stats(c echo.Context, u *fakeUser) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.FailStats {
		return c.JSON(http.StatusInternalServerError, detail{Detail: "stats unavailable"})
	}
	if b.Overview != nil {
		return c.JSON(http.StatusOK, b.Overview)
	}

	var o domain.StatsOverview
	for _, p := range b.projects {
		o.Projects.Total++
		if p.Status == domain.ProjectCompleted {
			o.Projects.Completed++
		} else {
			o.Projects.Active++
		}
	}
	for _, t := range b.tasks {
		if u.user.Role == domain.RoleMember && t.AssignedTo != u.user.ID {
			continue
		}
		o.Tasks.Total++
		switch t.Status {
		case domain.TaskDone:
			o.Tasks.Done++
		case domain.TaskInProgress:
			o.Tasks.InProgress++
		default:
			o.Tasks.Todo++
		}
	}
	o.Teams = len(b.teams)
	o.Users = len(b.users)
	return c.JSON(http.StatusOK, o)
}

func (b *Backend) listTeams(c echo.Context, _ *fakeUser) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return c.JSON(http.StatusOK, append([]domain.Team{}, b.teams...))
}

func (b *Backend) createTeam(c echo.Context, u *fakeUser) error {
	var team domain.Team
	if err := c.Bind(&team); err != nil || team.Name == "" {
		return c.JSON(http.StatusUnprocessableEntity, detail{Detail: "name is required"})
	}
	if u.user.Role != domain.RoleAdmin {
		return c.JSON(http.StatusForbidden, detail{Detail: "Not enough permissions"})
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	team.ID = b.nextID()
	team.CreatedBy = u.user.ID
	team.CreatedAt = domain.NewTimestamp(time.Now())
	b.teams = append(b.teams, team)
	return c.JSON(http.StatusCreated, team)
}

func (b *Backend) listProjects(c echo.Context, _ *fakeUser) error {
	filter := c.QueryParam("status_filter")

	b.mu.Lock()
	defer b.mu.Unlock()
	out := []domain.Project{}
	for _, p := range b.projects {
		if filter == "" || string(p.Status) == filter {
			out = append(out, p)
		}
	}
	return c.JSON(http.StatusOK, out)
}

func (b *Backend) createProject(c echo.Context, u *fakeUser) error {
	var p domain.Project
	if err := c.Bind(&p); err != nil || p.Name == "" {
		return c.JSON(http.StatusUnprocessableEntity, detail{Detail: "name is required"})
	}
	if u.user.Role == domain.RoleMember {
		return c.JSON(http.StatusForbidden, detail{Detail: "Not enough permissions"})
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	p.ID = b.nextID()
	p.ManagerID = u.user.ID
	if p.Status == "" {
		p.Status = domain.ProjectActive
	}
	p.CreatedAt = domain.NewTimestamp(time.Now())
	b.projects = append(b.projects, p)
	return c.JSON(http.StatusCreated, p)
}

func (b *Backend) listTasks(c echo.Context, _ *fakeUser) error {
	filter := c.QueryParam("status_filter")

	b.mu.Lock()
	defer b.mu.Unlock()
	out := []domain.Task{}
	for _, t := range b.tasks {
		if filter == "" || string(t.Status) == filter {
			out = append(out, t)
		}
	}
	return c.JSON(http.StatusOK, out)
}

type taskPatch struct {
	Title  *string `json:"title"`
	Status *string `json:"status"`
}

func (b *Backend) updateTask(c echo.Context, _ *fakeUser) error {
	var patch taskPatch
	if err := c.Bind(&patch); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, detail{Detail: "invalid body"})
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.tasks {
		if b.tasks[i].ID != c.Param("id") {
			continue
		}
		if patch.Title != nil {
			b.tasks[i].Title = *patch.Title
		}
		if patch.Status != nil {
			b.tasks[i].Status = domain.TaskStatus(*patch.Status)
		}
		return c.JSON(http.StatusOK, b.tasks[i])
	}
	return c.JSON(http.StatusNotFound, detail{Detail: "Task not found"})
}

func (b *Backend) listComments(c echo.Context, _ *fakeUser) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []domain.Comment{}
	for _, cm := range b.comments {
		if cm.TaskID == c.Param("task_id") {
			out = append(out, cm)
		}
	}
	return c.JSON(http.StatusOK, out)
}

func (b *Backend) createComment(c echo.Context, u *fakeUser) error {
	var cm domain.Comment
	if err := c.Bind(&cm); err != nil || cm.Message == "" {
		return c.JSON(http.StatusUnprocessableEntity, detail{Detail: "message is required"})
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	cm.ID = b.nextID()
	cm.AuthorID = u.user.ID
	cm.AuthorName = u.user.Username
	cm.CreatedAt = domain.NewTimestamp(time.Now())
	b.comments = append(b.comments, cm)
	return c.JSON(http.StatusCreated, cm)
}

// AddTask seeds a task and returns it with its assigned ID.
func (b *Backend) AddTask(t domain.Task) domain.Task {
	b.mu.Lock()
	defer b.mu.Unlock()
	t.ID = b.nextID()
	if t.Status == "" {
		t.Status = domain.TaskTodo
	}
	b.tasks = append(b.tasks, t)
	return t
}

// AddProject seeds a project and returns it with its assigned ID.
func (b *Backend) AddProject(p domain.Project) domain.Project {
	b.mu.Lock()
	defer b.mu.Unlock()
	p.ID = b.nextID()
	if p.Status == "" {
		p.Status = domain.ProjectActive
	}
	b.projects = append(b.projects, p)
	return p
}

// Set runs fn with the backend locked, for changing the failure switches
// while requests are in flight.
func (b *Backend) Set(fn func(b *Backend)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(b)
}
