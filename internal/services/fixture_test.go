package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yukikurage/taskflow-api/internal/access"
	"github.com/yukikurage/taskflow-api/internal/database"
	"github.com/yukikurage/taskflow-api/internal/models"
	"github.com/yukikurage/taskflow-api/internal/repository"
)

var testNow = time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)

// fixture is one organization owned by owner, with worker as a plain team
// member and outsider in a second organization.
type fixture struct {
	t   *testing.T
	db  *gorm.DB
	log *zap.Logger

	users    repository.UserRepository
	orgs     repository.OrganizationRepository
	members  repository.TeamMemberRepository
	roles    repository.RoleRepository
	projects repository.ProjectRepository
	tasks    repository.TaskRepository

	resolver *access.Resolver
	authz    *access.Authorizer

	org         *models.Organization
	owner       *models.User
	ownerMember *models.TeamMember
	worker      *models.User
	workerRow   *models.TeamMember

	otherOrg    *models.Organization
	outsider    *models.User
	outsiderRow *models.TeamMember
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, database.Migrate(db, zap.NewNop()))

	f := &fixture{
		t:        t,
		db:       db,
		log:      zap.NewNop(),
		users:    repository.NewUserRepository(db),
		orgs:     repository.NewOrganizationRepository(db),
		members:  repository.NewTeamMemberRepository(db),
		roles:    repository.NewRoleRepository(db),
		projects: repository.NewProjectRepository(db),
		tasks:    repository.NewTaskRepository(db),
	}
	f.resolver = access.NewResolver(f.orgs)
	f.authz = access.NewAuthorizer(f.members, f.log)

	f.owner = f.user("owner@example.com", "Olivia Owner")
	f.org, f.ownerMember = f.organization("Acme", f.owner)
	f.worker = f.user("worker@example.com", "Walter Worker")
	f.workerRow = f.member(f.org, f.worker)

	f.outsider = f.user("outsider@example.com", "Otto Outsider")
	f.otherOrg, f.outsiderRow = f.organization("Globex", f.outsider)
	return f
}

func (f *fixture) user(email, name string) *models.User {
	u := &models.User{Email: email, Name: name, PasswordHash: "x"}
	require.NoError(f.t, f.users.Create(u))
	return u
}

func (f *fixture) organization(name string, owner *models.User) (*models.Organization, *models.TeamMember) {
	org := &models.Organization{Name: name}
	m := &models.TeamMember{Name: owner.Name, Email: owner.Email}
	require.NoError(f.t, f.orgs.CreateWithOwner(org, owner, m))
	return org, m
}

func (f *fixture) member(org *models.Organization, u *models.User) *models.TeamMember {
	m := &models.TeamMember{OrganizationID: org.ID, Name: u.Name, Email: u.Email, UserID: &u.ID}
	require.NoError(f.t, f.members.Create(m))
	return m
}

// grant gives the member a title carrying codes.
func (f *fixture) grant(m *models.TeamMember, codes ...models.PermissionCode) {
	perms, err := f.roles.FindPermissionsByCodes(codes)
	require.NoError(f.t, err)
	title := &models.Title{OrganizationID: m.OrganizationID, Name: "title-" + m.Email, Permissions: perms}
	require.NoError(f.t, f.roles.CreateTitle(title))
	m.TitleID = &title.ID
	require.NoError(f.t, f.members.Update(m))
}

func (f *fixture) principal(u *models.User) *access.Principal {
	tenant, err := f.resolver.Resolve(u)
	require.NoError(f.t, err)
	return &access.Principal{User: u, Tenant: tenant, Viewer: f.authz.Viewer(u, tenant)}
}

func (f *fixture) project(org *models.Organization, name string, team ...models.TeamMember) *models.Project {
	p := &models.Project{Name: name, OrganizationID: org.ID, Status: models.ProjectStatusInProgress, TeamMembers: team}
	require.NoError(f.t, f.projects.Create(p))
	return p
}

// task stores a task directly, bypassing workflow checks.
func (f *fixture) task(org *models.Organization, creator *models.User, title string, mutate ...func(*models.Task)) *models.Task {
	task := &models.Task{
		Title:          title,
		Status:         models.TaskStatusPending,
		Priority:       models.TaskPriorityMedium,
		Visibility:     "team",
		OrganizationID: org.ID,
		CreatedByID:    creator.ID,
	}
	for _, m := range mutate {
		m(task)
	}
	require.NoError(f.t, f.tasks.Create(task, repository.TaskSets{}, nil))
	return task
}

func hoursOf(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func ptr[T any](v T) *T {
	return &v
}

func fixedClock() time.Time {
	return testNow
}

func repositorySets(assignees, watchers []uint64) repository.TaskSets {
	var sets repository.TaskSets
	if assignees != nil {
		sets.Assignees = &assignees
	}
	if watchers != nil {
		sets.Watchers = &watchers
	}
	return sets
}
