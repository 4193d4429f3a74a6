package api

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/Formula-SAE/bugreport/internal/access"
	"github.com/Formula-SAE/bugreport/internal/db"
	"github.com/gorilla/mux"
)

// Fields the server sets on its own.
var serverControlledBugFields = []string{"report_date", "updated_date", "is_current_project"}

type bugCreateRequest struct {
	BugType        string  `json:"bug_type" validate:"required,oneof=error mistake bug issue fault defect other"`
	AssignedTo     *uint   `json:"assigned_to"`
	BugDescription string  `json:"bug_description" validate:"required"`
	URLBug         *string `json:"url_bug" validate:"omitnil,url"`
	Image          *string `json:"image"`
	Project        *uint   `json:"project" validate:"required"`
	BugPriority    string  `json:"bug_priority" validate:"required,oneof=low medium high"`
	BugSeverity    string  `json:"bug_severity" validate:"required,oneof=critical major normal minor trivial enhancements"`
	Status         string  `json:"status" validate:"required,oneof=open closed in_progress"`
}

type bugUpdateRequest struct {
	BugType        *string    `json:"bug_type" validate:"omitnil,oneof=error mistake bug issue fault defect other"`
	AssignedTo     optionalID `json:"assigned_to"`
	BugDescription *string    `json:"bug_description" validate:"omitnil,min=1"`
	URLBug         *string    `json:"url_bug" validate:"omitnil,url"`
	Image          *string    `json:"image"`
	Project        *uint      `json:"project"`
	BugPriority    *string    `json:"bug_priority" validate:"omitnil,oneof=low medium high"`
	BugSeverity    *string    `json:"bug_severity" validate:"omitnil,oneof=critical major normal minor trivial enhancements"`
	Status         *string    `json:"status" validate:"omitnil,oneof=open closed in_progress"`
}

type bugStatusRequest struct {
	Status *string `json:"status" validate:"omitnil,oneof=open closed in_progress"`
}

type assigneeForbiddenResponse struct {
	Detail     string        `json:"detail"`
	BugID      uint          `json:"bug_id"`
	AssignedTo *assigneeInfo `json:"assigned_to"`
}

type assigneeInfo struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

func blankToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}

func (a *API) handleCreateBug(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	me := access.UserFrom(ctx)

	req := &bugCreateRequest{}
	keys, err := readJSON(r, req)
	if err != nil {
		writeError(w, err)
		return
	}
	req.URLBug = blankToNil(req.URLBug)

	errs := rejectKeys(keys, serverControlledBugFields...)
	for field, msgs := range a.check(req) {
		errs[field] = append(errs[field], msgs...)
	}
	if req.Project != nil {
		a.checkAssignment(ctx, errs, *req.Project, req.AssignedTo)
	}
	if errs.any() {
		log.Printf("[create-bug] Rejected bug from user %d: %v", me.ID, fieldNames(errs))
		writeError(w, validationError(errs))
		return
	}

	bug := &db.Bug{
		BugType:        req.BugType,
		CreatedByID:    me.ID,
		AssignedToID:   req.AssignedTo,
		BugDescription: req.BugDescription,
		URLBug:         req.URLBug,
		ProjectID:      *req.Project,
		BugPriority:    req.BugPriority,
		BugSeverity:    req.BugSeverity,
		Status:         req.Status,
	}
	if req.Image != nil {
		bug.Image = *req.Image
	}

	if err := a.db.CreateBug(ctx, bug); err != nil {
		log.Printf("[create-bug] Failed to create bug: %v", err)
		writeError(w, err)
		return
	}

	log.Printf("[create-bug] Bug %d created by user %d in project %d", bug.ID, me.ID, bug.ProjectID)
	writeJSON(w, http.StatusCreated, serializeBug(bug))
}

func (a *API) handleListBugs(w http.ResponseWriter, r *http.Request) {
	a.listBugs(w, r, db.BugFilter{Status: mux.Vars(r)["status"]})
}

func (a *API) handleListUserBugs(w http.ResponseWriter, r *http.Request) {
	me := access.UserFrom(r.Context())
	a.listBugs(w, r, db.BugFilter{AssignedToID: &me.ID, Status: mux.Vars(r)["status"]})
}

func (a *API) listBugs(w http.ResponseWriter, r *http.Request, filter db.BugFilter) {
	bugs, err := a.db.ListBugs(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, serializeBugs(bugs))
}

func (a *API) loadBug(r *http.Request) (*db.Bug, error) {
	id, err := pathID(r)
	if err != nil {
		return nil, err
	}
	return a.db.GetBug(r.Context(), id)
}

func (a *API) handleGetBug(w http.ResponseWriter, r *http.Request) {
	bug, err := a.loadBug(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, serializeBug(bug))
}

func (a *API) handleAdminUpdateBug(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	bug, err := a.loadBug(r)
	if err != nil {
		writeError(w, err)
		return
	}

	req := &bugUpdateRequest{}
	keys, err := readJSON(r, req)
	if err != nil {
		writeError(w, err)
		return
	}
	if req.URLBug != nil && strings.TrimSpace(*req.URLBug) == "" {
		req.URLBug = nil
		bug.URLBug = nil
	}

	errs := rejectKeys(keys, serverControlledBugFields...)
	for field, msgs := range a.check(req) {
		errs[field] = append(errs[field], msgs...)
	}

	projectID := bug.ProjectID
	if req.Project != nil {
		projectID = *req.Project
	}
	assignee := bug.AssignedToID
	if req.AssignedTo.Set {
		assignee = req.AssignedTo.Value
	}
	if req.Project != nil || req.AssignedTo.Set {
		a.checkAssignment(ctx, errs, projectID, assignee)
	}

	if errs.any() {
		writeError(w, validationError(errs))
		return
	}

	if req.BugType != nil {
		bug.BugType = *req.BugType
	}
	if req.BugDescription != nil {
		bug.BugDescription = *req.BugDescription
	}
	if req.URLBug != nil {
		bug.URLBug = req.URLBug
	}
	if req.Image != nil {
		bug.Image = *req.Image
	}
	if req.BugPriority != nil {
		bug.BugPriority = *req.BugPriority
	}
	if req.BugSeverity != nil {
		bug.BugSeverity = *req.BugSeverity
	}
	if req.Status != nil {
		bug.Status = *req.Status
	}
	bug.ProjectID = projectID
	bug.AssignedToID = assignee

	if err := a.db.SaveBug(ctx, bug); err != nil {
		log.Printf("[update-bug] Failed to update bug %d: %v", bug.ID, err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, serializeBug(bug))
}

// assignedBug loads the {id} bug and makes sure the requester may act on
// it as its assignee.
func (a *API) assignedBug(r *http.Request) (*db.Bug, error) {
	bug, err := a.loadBug(r)
	if err != nil {
		return nil, err
	}

	me := access.UserFrom(r.Context())
	if access.IsAssigneeOrAdmin(me, bug) {
		return bug, nil
	}

	resp := assigneeForbiddenResponse{
		Detail: "You are not assigned to this bug.",
		BugID:  bug.ID,
	}
	if bug.AssignedToID != nil {
		assignee, err := a.db.GetUserByID(r.Context(), *bug.AssignedToID)
		if err != nil && !db.IsNotFound(err) {
			return nil, err
		}
		if assignee != nil {
			resp.AssignedTo = &assigneeInfo{ID: assignee.ID, Username: assignee.Username}
		}
	}

	log.Printf("[assigned-bug] User %d is not the assignee of bug %d", me.ID, bug.ID)
	return nil, &apiError{status: http.StatusForbidden, body: resp}
}

func (a *API) handleGetAssignedBug(w http.ResponseWriter, r *http.Request) {
	bug, err := a.assignedBug(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, serializeBug(bug))
}

func (a *API) handleAssigneeUpdateBug(w http.ResponseWriter, r *http.Request) {
	bug, err := a.assignedBug(r)
	if err != nil {
		writeError(w, err)
		return
	}

	req := &bugStatusRequest{}
	keys, err := readJSON(r, req)
	if err != nil {
		writeError(w, err)
		return
	}

	errs := a.check(req)
	for key := range keys {
		if key != "status" {
			errs.add(key, "Only the status can be changed here.")
		}
	}
	if errs.any() {
		writeError(w, validationError(errs))
		return
	}

	if req.Status != nil {
		log.Printf("[assigned-bug] Bug %d status %s -> %s", bug.ID, bug.Status, *req.Status)
		bug.Status = *req.Status
	}

	if err := a.db.SaveBug(r.Context(), bug); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, serializeBug(bug))
}

// checkAssignment makes sure the project exists and that the assignee, if
// any, exists and is one of its members.
func (a *API) checkAssignment(ctx context.Context, errs fieldErrors, projectID uint, assigneeID *uint) {
	if _, err := a.db.GetProject(ctx, projectID); err != nil {
		errs.add("project", invalidPK(projectID))
		return
	}

	if assigneeID == nil {
		return
	}

	if _, err := a.db.GetUserByID(ctx, *assigneeID); err != nil {
		errs.add("assigned_to", invalidPK(*assigneeID))
		return
	}

	member, err := a.db.IsProjectMember(ctx, projectID, *assigneeID)
	if err != nil || !member {
		errs.add("assigned_to", "Assigned user must be a member of the project.")
	}
}
