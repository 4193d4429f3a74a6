package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/Formula-SAE/bugreport/internal/auth"
	"github.com/Formula-SAE/bugreport/internal/db"
	"github.com/Formula-SAE/bugreport/internal/media"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testPassword = "password"

type testEnv struct {
	t      *testing.T
	db     *db.DB
	api    *API
	tokens *auth.JWTService
	hasher auth.BcryptHasher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	database := db.NewDB(db.CreateTestDB())
	tokens := auth.NewJWTService([]byte("test-secret"), 0, 0, database)
	hasher := auth.BcryptHasher{Cost: bcrypt.MinCost}

	store, err := media.NewDiskStore(t.TempDir())
	require.NoError(t, err)

	return &testEnv{
		t:      t,
		db:     database,
		api:    NewAPI(":0", mux.NewRouter(), database, hasher, tokens, store),
		tokens: tokens,
		hasher: hasher,
	}
}

func (e *testEnv) createUser(username string, staff bool) *db.User {
	e.t.Helper()

	password, err := auth.HashPassword(e.hasher, testPassword)
	require.NoError(e.t, err)

	user := &db.User{
		Username: username,
		Email:    username + "@example.com",
		Password: password,
		IsStaff:  staff,
	}
	require.NoError(e.t, e.db.CreateUser(context.Background(), user))
	return user
}

func (e *testEnv) createProject(name string, members ...*db.User) *db.Project {
	e.t.Helper()

	project := &db.Project{ProjectName: name, ProjectDuration: 10, Status: db.PROJECT_OPEN}
	for _, m := range members {
		project.Users = append(project.Users, *m)
	}
	require.NoError(e.t, e.db.CreateProject(context.Background(), project))
	return project
}

func (e *testEnv) createBug(project *db.Project, creator *db.User, assignee *db.User, status string) *db.Bug {
	e.t.Helper()

	bug := &db.Bug{
		BugType:        "bug",
		CreatedByID:    creator.ID,
		BugDescription: "Something broke",
		ProjectID:      project.ID,
		BugPriority:    "high",
		BugSeverity:    "major",
		Status:         status,
	}
	if assignee != nil {
		bug.AssignedToID = &assignee.ID
	}
	require.NoError(e.t, e.db.CreateBug(context.Background(), bug))
	return bug
}

func (e *testEnv) token(user *db.User) string {
	e.t.Helper()

	pair, err := e.tokens.IssuePair(user.ID)
	require.NoError(e.t, err)
	return pair.Access
}

// do sends a JSON request through the router. An empty token sends the
// request anonymously.
func (e *testEnv) do(method, path, token string, body any) *httptest.ResponseRecorder {
	e.t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return e.send(req, token)
}

func (e *testEnv) send(req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.api.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
