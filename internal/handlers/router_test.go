package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yukikurage/taskflow-api/internal/access"
	"github.com/yukikurage/taskflow-api/internal/database"
	apierrors "github.com/yukikurage/taskflow-api/internal/errors"
	"github.com/yukikurage/taskflow-api/internal/models"
	"github.com/yukikurage/taskflow-api/internal/notify"
	"github.com/yukikurage/taskflow-api/internal/repository"
	"github.com/yukikurage/taskflow-api/internal/services"
)

const testPassword = "supersecret"

func init() {
	gin.SetMode(gin.TestMode)
}

// sentMails records invitations instead of delivering them.
type sentMails struct {
	invitations []models.Invitation
}

func (m *sentMails) SendInvitation(inv *models.Invitation, _ *models.Organization, _ *models.User) error {
	m.invitations = append(m.invitations, *inv)
	return nil
}

// apiEnv is the whole API served from an in-memory database.
type apiEnv struct {
	t      *testing.T
	db     *gorm.DB
	router *gin.Engine
	svc    Services
	mails  *sentMails

	users   repository.UserRepository
	members repository.TeamMemberRepository
	roles   repository.RoleRepository
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	log := zap.NewNop()
	require.NoError(t, database.Migrate(db, log))

	userRepo := repository.NewUserRepository(db)
	orgRepo := repository.NewOrganizationRepository(db)
	memberRepo := repository.NewTeamMemberRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	projectRepo := repository.NewProjectRepository(db)

	resolver := access.NewResolver(orgRepo)
	authz := access.NewAuthorizer(memberRepo, log)
	mails := &sentMails{}

	svc := Services{
		Auth:          services.NewAuthService(userRepo, resolver),
		Organizations: services.NewOrganizationService(orgRepo),
		Team:          services.NewTeamService(memberRepo, roleRepo),
		Projects:      services.NewProjectService(projectRepo, memberRepo),
		Tasks:         services.NewTaskService(repository.NewTaskRepository(db), projectRepo, memberRepo, authz, nil, t.TempDir(), log),
		Reports:       services.NewReportService(repository.NewReportRepository(db), log),
		Chat:          services.NewChatService(repository.NewChatRepository(db), memberRepo, notify.NopNotifier{}, log),
		Calendar:      services.NewCalendarService(repository.NewCalendarRepository(db), memberRepo),
		Invitations:   services.NewInvitationService(repository.NewInvitationRepository(db), userRepo, memberRepo, roleRepo, mails, log),
		Resolver:      resolver,
		Authorizer:    authz,
	}

	return &apiEnv{
		t:       t,
		db:      db,
		router:  NewRouter(svc, cookie.NewStore([]byte("secret")), log),
		svc:     svc,
		mails:   mails,
		users:   userRepo,
		members: memberRepo,
		roles:   roleRepo,
	}
}

// client is a logged in browser session.
type client struct {
	env     *apiEnv
	user    *models.User
	cookies []*http.Cookie
}

// signup creates an account without logging in.
func (e *apiEnv) signup(email, name string) *models.User {
	e.t.Helper()
	user, err := e.svc.Auth.Signup(services.SignupInput{Email: email, Password: testPassword, Name: name})
	require.NoError(e.t, err)
	return user
}

// login signs in through the API and keeps the session cookie.
func (e *apiEnv) login(user *models.User) *client {
	e.t.Helper()
	anon := &client{env: e}
	w := anon.do(http.MethodPost, "/api/auth/login", map[string]string{"email": user.Email, "password": testPassword})
	require.Equal(e.t, http.StatusOK, w.Code, w.Body.String())
	return &client{env: e, user: user, cookies: w.Result().Cookies()}
}

// owner signs up a user, creates its organization and logs it in.
func (e *apiEnv) owner(email, orgName string) (*client, *models.Organization) {
	e.t.Helper()
	user := e.signup(email, "Owner of "+orgName)
	org, err := e.svc.Organizations.CreateOrganization(user, services.OrganizationInput{Name: &orgName})
	require.NoError(e.t, err)
	return e.login(user), org
}

// member signs up a user, adds it to org as a team member holding codes
// and logs it in.
func (e *apiEnv) member(org *models.Organization, email string, codes ...models.PermissionCode) (*client, *models.TeamMember) {
	e.t.Helper()
	user := e.signup(email, email)
	m := &models.TeamMember{OrganizationID: org.ID, Name: email, Email: email, UserID: &user.ID}
	if len(codes) > 0 {
		perms, err := e.roles.FindPermissionsByCodes(codes)
		require.NoError(e.t, err)
		title := &models.Title{OrganizationID: org.ID, Name: "title-" + email, Permissions: perms}
		require.NoError(e.t, e.roles.CreateTitle(title))
		m.TitleID = &title.ID
	}
	require.NoError(e.t, e.members.Create(m))
	return e.login(user), m
}

// ownerMember returns the team member created for the organization owner.
func (e *apiEnv) ownerMember(org *models.Organization, owner *client) *models.TeamMember {
	e.t.Helper()
	m, err := e.members.FindByEmail(org.ID, owner.user.Email)
	require.NoError(e.t, err)
	return m
}

func (cl *client) do(method, path string, body any) *httptest.ResponseRecorder {
	cl.env.t.Helper()

	var req *http.Request
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(cl.env.t, err)
		req = httptest.NewRequest(method, path, bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for _, c := range cl.cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	cl.env.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[apierrors.APIError](t, w).Code
}

func TestHealth(t *testing.T) {
	env := newAPIEnv(t)

	w := (&client{env: env}).do(http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, w)["status"])
}

func TestRouter_RequiresSession(t *testing.T) {
	env := newAPIEnv(t)
	anon := &client{env: env}

	for _, path := range []string{"/api/tasks", "/api/projects", "/api/organizations", "/api/auth/me", "/api/reports/configurations"} {
		w := anon.do(http.MethodGet, path, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
		assert.Equal(t, apierrors.ErrCodeUnauthorized, errorCode(t, w), path)
	}
}

func TestRouter_TenantRoutesNeedOrganization(t *testing.T) {
	env := newAPIEnv(t)
	loner := env.login(env.signup("loner@example.com", "Loner"))

	w := loner.do(http.MethodGet, "/api/tasks", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apierrors.ErrCodeNoOrganization, errorCode(t, w))

	// onboarding and organization setup stay reachable
	w = loner.do(http.MethodGet, "/api/onboarding/status", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = loner.do(http.MethodGet, "/api/organizations", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_PermissionGates(t *testing.T) {
	env := newAPIEnv(t)
	_, org := env.owner("owner@example.com", "Acme")
	plain, _ := env.member(org, "plain@example.com")

	cases := []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodPost, "/api/tasks", map[string]any{"title": "Nope"}},
		{http.MethodPost, "/api/projects", map[string]any{"name": "Nope"}},
		{http.MethodPost, "/api/team-members", map[string]any{"name": "X", "email": "x@example.com"}},
		{http.MethodPost, "/api/titles", map[string]any{"name": "Lead"}},
		{http.MethodPost, "/api/roles", map[string]any{"name": "Admin"}},
		{http.MethodGet, "/api/invitations", nil},
		{http.MethodPost, "/api/reports/overdue-tasks", nil},
		{http.MethodGet, "/api/reports/configurations", nil},
	}
	for _, tc := range cases {
		w := plain.do(tc.method, tc.path, tc.body)
		assert.Equal(t, http.StatusForbidden, w.Code, tc.method+" "+tc.path)
		assert.Equal(t, apierrors.ErrCodeForbidden, errorCode(t, w), tc.method+" "+tc.path)
	}

	// reads stay open to every member
	for _, path := range []string{"/api/team-members", "/api/titles", "/api/roles", "/api/permissions", "/api/tasks"} {
		w := plain.do(http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}
