package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yukikurage/taskflow-api/internal/access"
	"github.com/yukikurage/taskflow-api/internal/database"
	"github.com/yukikurage/taskflow-api/internal/models"
	"github.com/yukikurage/taskflow-api/internal/utils"
)

type TaskRepositorySuite struct {
	suite.Suite
	db    *gorm.DB
	tasks TaskRepository

	org     *models.Organization
	creator *models.User
	alice   *models.TeamMember
	bob     *models.TeamMember
}

func TestTaskRepositorySuite(t *testing.T) {
	suite.Run(t, new(TaskRepositorySuite))
}

func (s *TaskRepositorySuite) SetupTest() {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	s.Require().NoError(err)
	sqlDB, err := db.DB()
	s.Require().NoError(err)
	sqlDB.SetMaxOpenConns(1)
	s.T().Cleanup(func() { sqlDB.Close() })
	s.Require().NoError(database.Migrate(db, zap.NewNop()))

	s.db = db
	s.tasks = NewTaskRepository(db)

	s.creator = &models.User{Email: "creator@example.com", PasswordHash: "x"}
	s.Require().NoError(db.Create(s.creator).Error)
	s.org = &models.Organization{Name: "Acme", OwnerID: s.creator.ID}
	s.Require().NoError(db.Create(s.org).Error)

	s.alice = &models.TeamMember{OrganizationID: s.org.ID, Name: "Alice", Email: "alice@example.com"}
	s.bob = &models.TeamMember{OrganizationID: s.org.ID, Name: "Bob", Email: "bob@example.com"}
	s.Require().NoError(db.Create(s.alice).Error)
	s.Require().NoError(db.Create(s.bob).Error)
}

func (s *TaskRepositorySuite) create(title string, sets TaskSets, mutate ...func(*models.Task)) *models.Task {
	task := &models.Task{
		Title:          title,
		Status:         models.TaskStatusPending,
		Priority:       models.TaskPriorityMedium,
		Visibility:     "team",
		OrganizationID: s.org.ID,
		CreatedByID:    s.creator.ID,
	}
	for _, m := range mutate {
		m(task)
	}
	s.Require().NoError(s.tasks.Create(task, sets, nil))
	return task
}

func ids(v ...uint64) *[]uint64 {
	return &v
}

func (s *TaskRepositorySuite) titles(v access.Viewer) []string {
	tenant := access.Tenant{Organization: s.org}
	tasks, total, err := s.tasks.List(TaskFilter{Scope: access.TaskScope(tenant, v)})
	s.Require().NoError(err)
	s.Require().Equal(int64(len(tasks)), total)
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.Title)
	}
	return out
}

func (s *TaskRepositorySuite) TestVisibilityMatrix() {
	other := &models.User{Email: "other@example.com", PasswordHash: "x"}
	s.Require().NoError(s.db.Create(other).Error)
	notMine := func(t *models.Task) { t.CreatedByID = other.ID }

	s.create("primary", TaskSets{}, notMine, func(t *models.Task) { t.AssignedToID = &s.alice.ID })
	s.create("co-assigned", TaskSets{Assignees: ids(s.alice.ID, s.bob.ID)}, notMine)
	s.create("watching", TaskSets{Watchers: ids(s.alice.ID)}, notMine)
	s.create("approving", TaskSets{Approvers: ids(s.alice.ID)}, notMine)
	s.create("everything", TaskSets{Assignees: ids(s.alice.ID), Watchers: ids(s.alice.ID)}, notMine,
		func(t *models.Task) { t.AssignedToID = &s.alice.ID })
	s.create("unrelated", TaskSets{Assignees: ids(s.bob.ID)}, notMine)
	s.create("own", TaskSets{})

	alice := access.Viewer{UserID: 9999, MemberIDs: []uint64{s.alice.ID}}
	s.ElementsMatch([]string{"primary", "co-assigned", "watching", "everything"}, s.titles(alice))

	creator := access.Viewer{UserID: s.creator.ID}
	s.ElementsMatch([]string{"own"}, s.titles(creator))

	s.Len(s.titles(access.Viewer{Unrestricted: true}), 7)
}

func (s *TaskRepositorySuite) TestScopeIsolatesOrganizations() {
	foreign := &models.Organization{Name: "Globex", OwnerID: s.creator.ID}
	s.Require().NoError(s.db.Create(foreign).Error)
	s.create("foreign", TaskSets{}, func(t *models.Task) { t.OrganizationID = foreign.ID })
	task := s.create("home", TaskSets{})

	s.Equal([]string{"home"}, s.titles(access.Viewer{Unrestricted: true}))

	scope := access.TaskScope(access.Tenant{Organization: foreign}, access.Viewer{Unrestricted: true})
	_, err := s.tasks.FindByID(task.ID, scope)
	s.ErrorIs(err, gorm.ErrRecordNotFound)

	none := access.TaskScope(access.Tenant{}, access.Viewer{Unrestricted: true})
	_, err = s.tasks.FindByID(task.ID, none)
	s.ErrorIs(err, gorm.ErrRecordNotFound)
}

func (s *TaskRepositorySuite) TestUpdateReplacesOnlyGivenSets() {
	task := s.create("sets", TaskSets{Assignees: ids(s.alice.ID), Watchers: ids(s.alice.ID, s.bob.ID)})
	dep := s.create("dependency", TaskSets{})

	task.Title = "sets renamed"
	s.Require().NoError(s.tasks.Update(task, TaskSets{
		Assignees:     ids(s.bob.ID),
		Prerequisites: ids(dep.ID),
	}, []models.TaskHistory{{Action: models.ActionUpdated, ActorID: s.creator.ID, Description: "Title changed"}}))

	got, err := s.tasks.FindByID(task.ID, nil, models.TaskRelations...)
	s.Require().NoError(err)
	s.Equal("sets renamed", got.Title)
	s.Require().Len(got.Assignees, 1)
	s.Equal(s.bob.ID, got.Assignees[0].ID)
	s.Len(got.Watchers, 2, "watchers untouched")
	s.Require().Len(got.Prerequisites, 1)
	s.Equal(dep.ID, got.Prerequisites[0].ID)

	s.Require().NoError(s.tasks.Update(got, TaskSets{Watchers: ids()}, nil))
	got, err = s.tasks.FindByID(task.ID, nil, "Watchers", "Assignees")
	s.Require().NoError(err)
	s.Empty(got.Watchers)
	s.Len(got.Assignees, 1)

	history, err := s.tasks.ListHistory(task.ID)
	s.Require().NoError(err)
	s.Require().Len(history, 1)
	s.Equal("Title changed", history[0].Description)
}

func (s *TaskRepositorySuite) TestDeleteClearsJoinRows() {
	dep := s.create("dependency", TaskSets{})
	task := s.create("dependent", TaskSets{Assignees: ids(s.alice.ID), Prerequisites: ids(dep.ID)})

	s.Require().NoError(s.tasks.Delete(dep.ID))

	got, err := s.tasks.FindByID(task.ID, nil, "Prerequisites", "Assignees")
	s.Require().NoError(err)
	s.Empty(got.Prerequisites)
	s.Len(got.Assignees, 1)

	_, err = s.tasks.FindByID(dep.ID, nil)
	s.ErrorIs(err, gorm.ErrRecordNotFound)
}

func (s *TaskRepositorySuite) TestListFilters() {
	s.create("Write docs", TaskSets{}, func(t *models.Task) { t.Priority = models.TaskPriorityHigh })
	s.create("Fix bug", TaskSets{}, func(t *models.Task) { t.Status = models.TaskStatusCompleted })
	s.create("Review docs", TaskSets{})

	tasks, total, err := s.tasks.List(TaskFilter{Search: "docs", Pagination: utils.PaginationParams{Page: 1, Limit: 1}})
	s.Require().NoError(err)
	s.Equal(int64(2), total)
	s.Len(tasks, 1)

	tasks, _, err = s.tasks.List(TaskFilter{Statuses: []models.TaskStatus{models.TaskStatusCompleted}})
	s.Require().NoError(err)
	s.Require().Len(tasks, 1)
	s.Equal("Fix bug", tasks[0].Title)

	tasks, _, err = s.tasks.List(TaskFilter{Priorities: []models.TaskPriority{models.TaskPriorityHigh}})
	s.Require().NoError(err)
	s.Require().Len(tasks, 1)
	s.Equal("Write docs", tasks[0].Title)
}

func TestCountUsersInOrganization(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, zap.NewNop()))
	members := NewTeamMemberRepository(db)

	owner := &models.User{Email: "o@example.com", PasswordHash: "x"}
	linked := &models.User{Email: "l@example.com", PasswordHash: "x"}
	member := &models.User{Email: "m@example.com", PasswordHash: "x"}
	stranger := &models.User{Email: "s@example.com", PasswordHash: "x"}
	for _, u := range []*models.User{owner, linked, member, stranger} {
		require.NoError(t, db.Create(u).Error)
	}
	org := &models.Organization{Name: "Acme", OwnerID: owner.ID}
	require.NoError(t, db.Create(org).Error)
	require.NoError(t, db.Model(linked).Update("organization_id", org.ID).Error)
	require.NoError(t, members.Create(&models.TeamMember{OrganizationID: org.ID, Name: "M", Email: member.Email, UserID: &member.ID}))

	n, err := members.CountUsersInOrganization(org.ID, []uint64{owner.ID, linked.ID, member.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	n, err = members.CountUsersInOrganization(org.ID, []uint64{owner.ID, stranger.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
