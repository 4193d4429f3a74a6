package api

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/Formula-SAE/bugreport/internal/access"
	"github.com/Formula-SAE/bugreport/internal/db"
)

type projectCreateRequest struct {
	ProjectName     *string `json:"project_name" validate:"required,min=3,max=255"`
	ProjectDuration *int    `json:"project_duration" validate:"required,gte=1"`
	Status          *string `json:"status" validate:"omitnil,oneof=open closed"`
	Users           []uint  `json:"users"`
}

type projectUpdateRequest struct {
	ProjectName     *string `json:"project_name" validate:"omitnil,min=3,max=255"`
	ProjectDuration *int    `json:"project_duration" validate:"omitnil,gte=1"`
	Status          *string `json:"status" validate:"omitnil,oneof=open closed"`
	Users           *[]uint `json:"users"`
}

func (a *API) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req := &projectCreateRequest{}
	if _, err := readJSON(r, req); err != nil {
		writeError(w, err)
		return
	}
	if req.ProjectName != nil {
		*req.ProjectName = strings.TrimSpace(*req.ProjectName)
	}

	errs := a.check(req)
	if req.ProjectName != nil && errs["project_name"] == nil {
		if err := a.checkProjectName(ctx, errs, *req.ProjectName, 0); err != nil {
			writeError(w, err)
			return
		}
	}
	members := a.resolveMembers(ctx, errs, req.Users)
	if errs.any() {
		writeError(w, validationError(errs))
		return
	}

	project := &db.Project{
		ProjectName:     *req.ProjectName,
		ProjectDuration: *req.ProjectDuration,
		Status:          db.PROJECT_OPEN,
		Users:           members,
	}
	if req.Status != nil {
		project.Status = *req.Status
	}

	if err := a.db.CreateProject(ctx, project); err != nil {
		log.Printf("[create-project] Failed to create project %q: %v", project.ProjectName, err)
		writeError(w, err)
		return
	}

	log.Printf("[create-project] Created project %d (%s) with %d members", project.ID, project.ProjectName, len(members))
	writeJSON(w, http.StatusCreated, serializeProject(project))
}

func (a *API) handleListProjects(w http.ResponseWriter, r *http.Request) {
	a.listProjects(w, r, access.ProjectScope(access.UserFrom(r.Context())))
}

func (a *API) handleListMemberProjects(w http.ResponseWriter, r *http.Request) {
	a.listProjects(w, r, access.ScopeByMembership{UserID: access.UserFrom(r.Context()).ID})
}

func (a *API) listProjects(w http.ResponseWriter, r *http.Request, scope access.Scope) {
	var (
		projects []db.Project
		err      error
	)

	switch s := scope.(type) {
	case access.ScopeAll:
		projects, err = a.db.ListProjects(r.Context())
	case access.ScopeByMembership:
		projects, err = a.db.ListProjectsForMember(r.Context(), s.UserID)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, serializeProjects(projects))
}

func (a *API) handleGetProject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	project, err := a.db.GetProject(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, serializeProject(project))
}

func (a *API) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	project, err := a.db.GetProject(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}

	req := &projectUpdateRequest{}
	if _, err := readJSON(r, req); err != nil {
		writeError(w, err)
		return
	}
	if req.ProjectName != nil {
		*req.ProjectName = strings.TrimSpace(*req.ProjectName)
	}

	errs := a.check(req)
	if req.ProjectName != nil && errs["project_name"] == nil {
		if err := a.checkProjectName(ctx, errs, *req.ProjectName, project.ID); err != nil {
			writeError(w, err)
			return
		}
	}

	var members []db.User
	if req.Users != nil {
		members = a.resolveMembers(ctx, errs, *req.Users)
	}
	if errs.any() {
		writeError(w, validationError(errs))
		return
	}

	if req.ProjectName != nil {
		project.ProjectName = *req.ProjectName
	}
	if req.ProjectDuration != nil {
		project.ProjectDuration = *req.ProjectDuration
	}
	if req.Status != nil {
		project.Status = *req.Status
	}

	if err := a.db.UpdateProject(ctx, project, members); err != nil {
		log.Printf("[update-project] Failed to update project %d: %v", project.ID, err)
		writeError(w, err)
		return
	}

	updated, err := a.db.GetProject(ctx, project.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, serializeProject(updated))
}

func (a *API) checkProjectName(ctx context.Context, errs fieldErrors, name string, exceptID uint) error {
	taken, err := a.db.ProjectNameTaken(ctx, name, exceptID)
	if err != nil {
		return err
	}
	if taken {
		errs.add("project_name", "project with this project name already exists.")
	}
	return nil
}

// resolveMembers loads the member ids, recording unknown ones in errs. The
// result is never nil so it always replaces the membership set.
func (a *API) resolveMembers(ctx context.Context, errs fieldErrors, ids []uint) []db.User {
	members := make([]db.User, 0, len(ids))

	seen := make(map[uint]bool, len(ids))
	unique := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}

	for _, id := range unique {
		user, err := a.db.GetUserByID(ctx, id)
		if err != nil {
			errs.add("users", invalidPK(id))
			continue
		}
		members = append(members, *user)
	}

	return members
}
