package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/Formula-SAE/bugreport/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bugBody(project uint) map[string]any {
	return map[string]any{
		"bug_type":        "bug",
		"bug_description": "Dashboard crashes on load",
		"project":         project,
		"bug_priority":    "high",
		"bug_severity":    "major",
		"status":          db.BUG_OPEN,
	}
}

func TestCreateBug(t *testing.T) {
	env := newTestEnv(t)

	alice := env.createUser("alice", false)
	bob := env.createUser("bob", false)
	outsider := env.createUser("outsider", false)
	project := env.createProject("Telemetry", alice, bob)
	token := env.token(alice)

	t.Run("creator is the requester", func(t *testing.T) {
		body := bugBody(project.ID)
		body["created_by"] = bob.ID
		body["assigned_to"] = bob.ID
		body["url_bug"] = ""

		rec := env.do(http.MethodPost, "/bugs/create", token, body)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		bug := decode[bugResponse](t, rec)
		assert.Equal(t, alice.ID, bug.CreatedBy)
		require.NotNil(t, bug.AssignedTo)
		assert.Equal(t, bob.ID, *bug.AssignedTo)
		assert.Nil(t, bug.URLBug)
		assert.True(t, bug.IsCurrentProject)
		assert.False(t, bug.ReportDate.IsZero())
	})

	t.Run("server fields are read only", func(t *testing.T) {
		body := bugBody(project.ID)
		body["report_date"] = "2020-01-01T00:00:00Z"
		body["is_current_project"] = false

		rec := env.do(http.MethodPost, "/bugs/create", token, body)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		resp := decode[map[string][]string](t, rec)
		assert.Equal(t, []string{"This field is read-only."}, resp["report_date"])
		assert.Equal(t, []string{"This field is read-only."}, resp["is_current_project"])
	})

	t.Run("assignee must be a member", func(t *testing.T) {
		body := bugBody(project.ID)
		body["assigned_to"] = outsider.ID

		rec := env.do(http.MethodPost, "/bugs/create", token, body)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, []string{"Assigned user must be a member of the project."}, decode[map[string][]string](t, rec)["assigned_to"])
	})

	t.Run("unknown project", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/bugs/create", token, bugBody(999))
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, []string{invalidPK(999)}, decode[map[string][]string](t, rec)["project"])
	})

	t.Run("invalid choices", func(t *testing.T) {
		body := bugBody(project.ID)
		body["bug_type"] = "feature"
		body["bug_severity"] = "blocker"
		body["url_bug"] = "not a url"

		rec := env.do(http.MethodPost, "/bugs/create", token, body)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		resp := decode[map[string][]string](t, rec)
		assert.Contains(t, resp, "bug_type")
		assert.Contains(t, resp, "bug_severity")
		assert.Equal(t, []string{"Enter a valid URL."}, resp["url_bug"])
	})

	t.Run("anonymous", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/bugs/create", "", bugBody(project.ID))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestListBugs(t *testing.T) {
	env := newTestEnv(t)

	admin := env.createUser("admin", true)
	alice := env.createUser("alice", false)
	bob := env.createUser("bob", false)
	project := env.createProject("Telemetry", alice, bob)

	open := env.createBug(project, bob, alice, db.BUG_OPEN)
	closed := env.createBug(project, bob, alice, db.BUG_CLOSED)
	env.createBug(project, alice, bob, db.BUG_OPEN)
	env.createBug(project, alice, nil, db.BUG_IN_PROGRESS)

	t.Run("admin lists everything", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/bugs", env.token(admin), nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decode[[]bugResponse](t, rec), 4)
	})

	t.Run("admin filters by status", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/bugs/status/open", env.token(admin), nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decode[[]bugResponse](t, rec), 2)

		rec = env.do(http.MethodGet, "/bugs/status/in_progress", env.token(admin), nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decode[[]bugResponse](t, rec), 1)
	})

	t.Run("unknown status", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/bugs/status/paused", env.token(admin), nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("regular user cannot list all", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/bugs", env.token(alice), nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("user lists assigned bugs", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/bugs/user", env.token(alice), nil)
		require.Equal(t, http.StatusOK, rec.Code)

		bugs := decode[[]bugResponse](t, rec)
		ids := make([]uint, 0, len(bugs))
		for _, b := range bugs {
			ids = append(ids, b.ID)
		}
		assert.ElementsMatch(t, []uint{open.ID, closed.ID}, ids)
	})

	t.Run("user filters assigned bugs by status", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/bugs/user/status/closed", env.token(alice), nil)
		require.Equal(t, http.StatusOK, rec.Code)

		bugs := decode[[]bugResponse](t, rec)
		require.Len(t, bugs, 1)
		assert.Equal(t, closed.ID, bugs[0].ID)
	})
}

func TestAdminBugDetail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	admin := env.createUser("admin", true)
	alice := env.createUser("alice", false)
	bob := env.createUser("bob", false)
	outsider := env.createUser("outsider", false)
	project := env.createProject("Telemetry", alice, bob)
	bug := env.createBug(project, alice, alice, db.BUG_OPEN)

	token := env.token(admin)
	path := "/bugs/admin/" + itoa(bug.ID)

	t.Run("get", func(t *testing.T) {
		rec := env.do(http.MethodGet, path, token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, bug.ID, decode[bugResponse](t, rec).ID)
	})

	t.Run("reassign to a member", func(t *testing.T) {
		rec := env.do(http.MethodPatch, path, token, map[string]any{"assigned_to": bob.ID, "bug_priority": "low"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		resp := decode[bugResponse](t, rec)
		require.NotNil(t, resp.AssignedTo)
		assert.Equal(t, bob.ID, *resp.AssignedTo)
		assert.Equal(t, "low", resp.BugPriority)
		assert.Equal(t, alice.ID, resp.CreatedBy)
	})

	t.Run("reassign to an outsider", func(t *testing.T) {
		rec := env.do(http.MethodPatch, path, token, map[string]any{"assigned_to": outsider.ID})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decode[map[string][]string](t, rec), "assigned_to")
	})

	t.Run("unassign", func(t *testing.T) {
		rec := env.do(http.MethodPut, path, token, map[string]any{"assigned_to": nil})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Nil(t, decode[bugResponse](t, rec).AssignedTo)
	})

	t.Run("regular user is forbidden", func(t *testing.T) {
		rec := env.do(http.MethodGet, path, env.token(alice), nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("delete is not allowed", func(t *testing.T) {
		rec := env.do(http.MethodDelete, path, token, nil)
		require.Equal(t, http.StatusMethodNotAllowed, rec.Code)

		_, err := env.db.GetBug(ctx, bug.ID)
		assert.NoError(t, err)
	})

	t.Run("missing bug", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/bugs/admin/999", token, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestAssignedBug(t *testing.T) {
	env := newTestEnv(t)

	alice := env.createUser("alice", false)
	bob := env.createUser("bob", false)
	project := env.createProject("Telemetry", alice, bob)
	bug := env.createBug(project, bob, alice, db.BUG_OPEN)
	path := "/bugs/user/" + itoa(bug.ID)

	t.Run("assignee reads the bug", func(t *testing.T) {
		rec := env.do(http.MethodGet, path, env.token(alice), nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, bug.ID, decode[bugResponse](t, rec).ID)
	})

	t.Run("others are told who is assigned", func(t *testing.T) {
		rec := env.do(http.MethodGet, path, env.token(bob), nil)
		require.Equal(t, http.StatusForbidden, rec.Code)

		resp := decode[assigneeForbiddenResponse](t, rec)
		assert.Equal(t, bug.ID, resp.BugID)
		require.NotNil(t, resp.AssignedTo)
		assert.Equal(t, alice.ID, resp.AssignedTo.ID)
		assert.Equal(t, "alice", resp.AssignedTo.Username)
	})

	t.Run("assignee changes the status", func(t *testing.T) {
		rec := env.do(http.MethodPatch, path, env.token(alice), map[string]any{"status": db.BUG_IN_PROGRESS})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, db.BUG_IN_PROGRESS, decode[bugResponse](t, rec).Status)
	})

	t.Run("assignee cannot change other fields", func(t *testing.T) {
		rec := env.do(http.MethodPatch, path, env.token(alice), map[string]any{"bug_priority": "low"})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decode[map[string][]string](t, rec), "bug_priority")
	})

	t.Run("invalid status", func(t *testing.T) {
		rec := env.do(http.MethodPatch, path, env.token(alice), map[string]any{"status": "done"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("non assignee cannot update", func(t *testing.T) {
		rec := env.do(http.MethodPatch, path, env.token(bob), map[string]any{"status": db.BUG_CLOSED})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("missing bug", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/bugs/user/999", env.token(alice), nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
