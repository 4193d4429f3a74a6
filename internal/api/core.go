package api

import (
	"context"
	"net/http"
	"time"

	"github.com/Formula-SAE/bugreport/internal/auth"
	"github.com/Formula-SAE/bugreport/internal/db"
	"github.com/Formula-SAE/bugreport/internal/media"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

type API struct {
	address string
	router  *mux.Router
	db      *db.DB
	server  *http.Server

	hasher   auth.PasswordHasher
	tokens   auth.TokenService
	media    media.Store
	validate *validator.Validate
}

func NewAPI(
	address string,
	router *mux.Router,
	db *db.DB,
	hasher auth.PasswordHasher,
	tokens auth.TokenService,
	store media.Store,
) *API {
	a := &API{
		address:  address,
		router:   router,
		db:       db,
		hasher:   hasher,
		tokens:   tokens,
		media:    store,
		validate: newValidator(),
	}
	a.server = &http.Server{
		Addr:              address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	a.initRoutes()

	return a
}

func (a *API) initRoutes() {
	r := a.router
	r.NotFoundHandler = http.HandlerFunc(handleNotFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(handleMethodNotAllowed)
	r.Use(logRequests, a.authenticate)

	// Accounts
	r.HandleFunc("/register", a.requireAdmin(a.handleRegister)).Methods(http.MethodPost)
	r.HandleFunc("/login", a.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/logout", a.requireAuth(a.handleLogout)).Methods(http.MethodPost)
	r.HandleFunc("/token/refresh", a.handleTokenRefresh).Methods(http.MethodPost)

	r.HandleFunc("/departments", a.requireAdmin(a.handleListLookups(a.departments()))).Methods(http.MethodGet)
	r.HandleFunc("/departments", a.requireAdmin(a.handleCreateLookup(a.departments()))).Methods(http.MethodPost)
	r.HandleFunc("/departments/{id:[0-9]+}", a.requireAdmin(a.handleGetLookup(a.departments()))).Methods(http.MethodGet)
	r.HandleFunc("/departments/{id:[0-9]+}", a.requireAdmin(a.handleUpdateLookup(a.departments()))).Methods(http.MethodPatch, http.MethodPut)
	r.HandleFunc("/departments/{id:[0-9]+}", a.requireAdmin(a.handleDeleteLookup(a.departments()))).Methods(http.MethodDelete)

	r.HandleFunc("/role", a.requireAdmin(a.handleListLookups(a.roles()))).Methods(http.MethodGet)
	r.HandleFunc("/role", a.requireAdmin(a.handleCreateLookup(a.roles()))).Methods(http.MethodPost)
	r.HandleFunc("/role/{id:[0-9]+}", a.requireAdmin(a.handleGetLookup(a.roles()))).Methods(http.MethodGet)
	r.HandleFunc("/role/{id:[0-9]+}", a.requireAdmin(a.handleUpdateLookup(a.roles()))).Methods(http.MethodPatch, http.MethodPut)
	r.HandleFunc("/role/{id:[0-9]+}", a.requireAdmin(a.handleDeleteLookup(a.roles()))).Methods(http.MethodDelete)

	r.HandleFunc("/users", a.requireAdmin(a.handleListUsers)).Methods(http.MethodGet)
	r.HandleFunc("/user/{id:[0-9]+}", a.requireAdmin(a.handleGetUser)).Methods(http.MethodGet)
	r.HandleFunc("/user/{id:[0-9]+}", a.requireAdmin(a.handleUpdateUser)).Methods(http.MethodPatch, http.MethodPut)
	r.HandleFunc("/user/{id:[0-9]+}", a.requireAdmin(a.handleDeleteUser)).Methods(http.MethodDelete)

	r.HandleFunc("/profile", a.requireAuth(a.handleGetProfile)).Methods(http.MethodGet)
	r.HandleFunc("/profile", a.requireAuth(a.handleUpdateProfile)).Methods(http.MethodPatch, http.MethodPut)
	r.HandleFunc("/profile", a.requireAuth(a.handleDeleteProfile)).Methods(http.MethodDelete)

	// Bugs
	r.HandleFunc("/bugs/create", a.requireAuth(a.handleCreateBug)).Methods(http.MethodPost)
	r.HandleFunc("/bugs", a.requireAdmin(a.handleListBugs)).Methods(http.MethodGet)
	r.HandleFunc("/bugs/status/{status:open|closed|in_progress}", a.requireAdmin(a.handleListBugs)).Methods(http.MethodGet)
	r.HandleFunc("/bugs/user", a.requireAuth(a.handleListUserBugs)).Methods(http.MethodGet)
	r.HandleFunc("/bugs/user/status/{status:open|closed|in_progress}", a.requireAuth(a.handleListUserBugs)).Methods(http.MethodGet)
	r.HandleFunc("/bugs/admin/{id:[0-9]+}", a.requireAdmin(a.handleGetBug)).Methods(http.MethodGet)
	r.HandleFunc("/bugs/admin/{id:[0-9]+}", a.requireAdmin(a.handleAdminUpdateBug)).Methods(http.MethodPatch, http.MethodPut)
	r.HandleFunc("/bugs/user/{id:[0-9]+}", a.requireAuth(a.handleGetAssignedBug)).Methods(http.MethodGet)
	r.HandleFunc("/bugs/user/{id:[0-9]+}", a.requireAuth(a.handleAssigneeUpdateBug)).Methods(http.MethodPatch, http.MethodPut)

	// Projects
	r.HandleFunc("/projects", a.requireAuth(a.handleListProjects)).Methods(http.MethodGet)
	r.HandleFunc("/projects", a.requireAdmin(a.handleCreateProject)).Methods(http.MethodPost)
	r.HandleFunc("/projects/create", a.requireAdmin(a.handleCreateProject)).Methods(http.MethodPost)
	r.HandleFunc("/projects/user", a.requireAuth(a.handleListMemberProjects)).Methods(http.MethodGet)
	r.HandleFunc("/projects/{id:[0-9]+}", a.requireAdmin(a.handleGetProject)).Methods(http.MethodGet)
	r.HandleFunc("/projects/{id:[0-9]+}", a.requireAdmin(a.handleUpdateProject)).Methods(http.MethodPatch, http.MethodPut)

	// Media
	r.HandleFunc("/uploads/{kind:profile_pics|bugs}", a.requireAuth(a.handleUpload)).Methods(http.MethodPost)
	r.HandleFunc("/media/{kind:profile_pics|bugs}/{name}", a.handleServeMedia).Methods(http.MethodGet)
}

func (a *API) Handler() http.Handler {
	return a.router
}

func (a *API) Start() error {
	return a.server.ListenAndServe()
}

func (a *API) Shutdown(ctx context.Context) error {
	return a.server.Shutdown(ctx)
}
