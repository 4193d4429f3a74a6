package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/Formula-SAE/bugreport/internal/access"
	"github.com/Formula-SAE/bugreport/internal/auth"
	"github.com/Formula-SAE/bugreport/internal/db"
)

type registerRequest struct {
	Username   string `json:"username" validate:"required,max=150"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
	Department *uint  `json:"department" validate:"required"`
	Role       *uint  `json:"role" validate:"required"`
	ProfilePic string `json:"profile_pic"`
	IsStaff    bool   `json:"is_staff"`
}

type userUpdateRequest struct {
	Username   *string    `json:"username" validate:"omitnil,min=1,max=150"`
	Email      *string    `json:"email" validate:"omitnil,email"`
	Password   *string    `json:"password" validate:"omitnil,min=1"`
	Department optionalID `json:"department"`
	Role       optionalID `json:"role"`
	ProfilePic *string    `json:"profile_pic"`
	IsStaff    *bool      `json:"is_staff"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Refresh  string `json:"refresh"`
	Access   string `json:"access"`
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	IsStaff  bool   `json:"is_staff"`
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req := &registerRequest{}
	if _, err := readJSON(r, req); err != nil {
		writeError(w, err)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)

	errs := a.check(req)
	if req.Department != nil {
		a.checkDepartment(ctx, errs, *req.Department)
	}
	if req.Role != nil {
		a.checkRole(ctx, errs, *req.Role)
	}
	if err := a.checkUnique(ctx, errs, req.Username, req.Email, 0); err != nil {
		writeError(w, err)
		return
	}
	if errs.any() {
		writeError(w, validationError(errs))
		return
	}

	password, err := auth.HashPassword(a.hasher, req.Password)
	if err != nil {
		writeError(w, fmt.Errorf("hash password: %w", err))
		return
	}

	user := &db.User{
		Username:     req.Username,
		Email:        req.Email,
		Password:     password,
		DepartmentID: req.Department,
		RoleID:       req.Role,
		ProfilePic:   req.ProfilePic,
		IsStaff:      req.IsStaff,
	}
	if err := a.db.CreateUser(ctx, user); err != nil {
		log.Printf("[register] Failed to create user %s: %v", user.Username, err)
		writeError(w, err)
		return
	}

	log.Printf("[register] Created user %d (%s), staff=%t", user.ID, user.Username, user.IsStaff)
	writeJSON(w, http.StatusCreated, serializeUser(user))
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	req := &loginRequest{}
	if _, err := readJSON(r, req); err != nil {
		writeError(w, err)
		return
	}

	invalid := detailError(http.StatusUnauthorized, "Invalid credentials")

	if req.Email == "" || req.Password == "" {
		writeError(w, invalid)
		return
	}

	user, err := a.db.GetUserByEmail(r.Context(), req.Email)
	if db.IsNotFound(err) {
		writeError(w, invalid)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}

	if err := a.hasher.Compare([]byte(user.Password), []byte(req.Password)); err != nil {
		log.Printf("[login] Wrong password for user %d", user.ID)
		writeError(w, invalid)
		return
	}

	pair, err := a.tokens.IssuePair(user.ID)
	if err != nil {
		writeError(w, fmt.Errorf("issue tokens: %w", err))
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Refresh:  pair.Refresh,
		Access:   pair.Access,
		UserID:   user.ID,
		Username: user.Username,
		IsStaff:  user.IsStaff,
	})
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	unexpected := func(reason string) {
		writeError(w, detailError(http.StatusBadRequest, "An unexpected error occurred, "+reason))
	}

	body := map[string]json.RawMessage{}
	if _, err := readJSON(r, &body); err != nil {
		unexpected(err.Error())
		return
	}

	raw, ok := body["refresh"]
	if !ok {
		unexpected("'refresh'")
		return
	}

	var refresh string
	if err := json.Unmarshal(raw, &refresh); err != nil {
		unexpected(auth.ErrInvalidToken.Error())
		return
	}

	if err := a.tokens.BlacklistRefreshToken(r.Context(), refresh); err != nil {
		unexpected(err.Error())
		return
	}

	log.Printf("[logout] User %d logged out", access.UserFrom(r.Context()).ID)
	writeJSON(w, http.StatusResetContent, map[string]string{"msg": "Logout Successful"})
}

func (a *API) handleTokenRefresh(w http.ResponseWriter, r *http.Request) {
	req := &struct {
		Refresh string `json:"refresh"`
	}{}
	if _, err := readJSON(r, req); err != nil {
		writeError(w, err)
		return
	}
	if req.Refresh == "" {
		writeError(w, validationError(fieldErrors{"refresh": {"This field is required."}}))
		return
	}

	token, err := a.tokens.RefreshAccessToken(r.Context(), req.Refresh)
	if err != nil {
		writeError(w, detailError(http.StatusUnauthorized, err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"access": token})
}

// Users

func (a *API) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := a.db.ListUsers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, serializeUsers(users))
}

// targetUser loads the {id} user and applies the object permission.
func (a *API) targetUser(r *http.Request) (*db.User, error) {
	id, err := pathID(r)
	if err != nil {
		return nil, err
	}

	target, err := a.db.GetUserByID(r.Context(), id)
	if err != nil {
		return nil, err
	}

	if !access.IsSelfOrAdmin(access.UserFrom(r.Context()), target) {
		return nil, errPermissionDenied
	}
	return target, nil
}

func (a *API) handleGetUser(w http.ResponseWriter, r *http.Request) {
	target, err := a.targetUser(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, serializeUser(target))
}

func (a *API) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	target, err := a.targetUser(r)
	if err != nil {
		writeError(w, err)
		return
	}

	req := &userUpdateRequest{}
	if _, err := readJSON(r, req); err != nil {
		writeError(w, err)
		return
	}

	if err := a.updateUser(r.Context(), target, req); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, serializeUser(target))
}

func (a *API) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	target, err := a.targetUser(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := a.db.DeleteUser(r.Context(), target.ID); err != nil {
		writeError(w, err)
		return
	}

	log.Printf("[delete-user] User %d deleted by %d", target.ID, access.UserFrom(r.Context()).ID)
	w.WriteHeader(http.StatusNoContent)
}

// Profile

func (a *API) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, serializeUser(access.UserFrom(r.Context())))
}

func (a *API) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	me := access.UserFrom(r.Context())

	req := &userUpdateRequest{}
	if _, err := readJSON(r, req); err != nil {
		writeError(w, err)
		return
	}

	// Regular users cannot grant themselves staff, directly or through
	// the manager role.
	if !me.IsStaff {
		denied := fieldErrors{}
		if req.IsStaff != nil && *req.IsStaff {
			denied.add("is_staff", "You do not have permission to change this field.")
		}
		if req.Role.Set && !sameID(req.Role.Value, me.RoleID) {
			denied.add("role", "You do not have permission to change this field.")
		}
		if denied.any() {
			log.Printf("[profile] User %d tried to change %v", me.ID, fieldNames(denied))
			writeError(w, forbiddenFields(denied))
			return
		}
	}

	if err := a.updateUser(r.Context(), me, req); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, serializeUser(me))
}

func (a *API) handleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	me := access.UserFrom(r.Context())

	if err := a.db.DeleteUser(r.Context(), me.ID); err != nil {
		writeError(w, err)
		return
	}

	log.Printf("[profile] User %d deleted their account", me.ID)
	w.WriteHeader(http.StatusNoContent)
}

// updateUser validates req and applies it to user. Nothing is written when
// any field is invalid.
func (a *API) updateUser(ctx context.Context, user *db.User, req *userUpdateRequest) error {
	if req.Username != nil {
		*req.Username = strings.TrimSpace(*req.Username)
	}
	if req.Email != nil {
		*req.Email = strings.TrimSpace(*req.Email)
	}

	errs := a.check(req)
	if req.Department.Set && req.Department.Value != nil {
		a.checkDepartment(ctx, errs, *req.Department.Value)
	}
	if req.Role.Set && req.Role.Value != nil {
		a.checkRole(ctx, errs, *req.Role.Value)
	}

	username, email := "", ""
	if req.Username != nil {
		username = *req.Username
	}
	if req.Email != nil {
		email = *req.Email
	}
	if err := a.checkUnique(ctx, errs, username, email, user.ID); err != nil {
		return err
	}
	if errs.any() {
		return validationError(errs)
	}

	if req.Username != nil {
		user.Username = *req.Username
	}
	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.Password != nil {
		password, err := auth.HashPassword(a.hasher, *req.Password)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		user.Password = password
	}
	if req.Department.Set {
		user.DepartmentID = req.Department.Value
	}
	if req.Role.Set {
		user.RoleID = req.Role.Value
	}
	if req.ProfilePic != nil {
		user.ProfilePic = *req.ProfilePic
	}
	if req.IsStaff != nil {
		user.IsStaff = *req.IsStaff
	}

	return a.db.SaveUser(ctx, user)
}

func (a *API) checkDepartment(ctx context.Context, errs fieldErrors, id uint) {
	if _, err := a.db.GetDepartment(ctx, id); err != nil {
		errs.add("department", invalidPK(id))
	}
}

func (a *API) checkRole(ctx context.Context, errs fieldErrors, id uint) {
	if _, err := a.db.GetRole(ctx, id); err != nil {
		errs.add("role", invalidPK(id))
	}
}

// checkUnique records username and email collisions with users other than
// exceptID. Empty values are skipped.
func (a *API) checkUnique(ctx context.Context, errs fieldErrors, username, email string, exceptID uint) error {
	if username != "" {
		taken, err := a.db.UsernameTaken(ctx, username, exceptID)
		if err != nil {
			return err
		}
		if taken {
			errs.add("username", "A user with that username already exists.")
		}
	}

	if email != "" {
		taken, err := a.db.EmailTaken(ctx, email, exceptID)
		if err != nil {
			return err
		}
		if taken {
			errs.add("email", "user with this email already exists.")
		}
	}

	return nil
}

func fieldNames(errs fieldErrors) []string {
	names := make([]string, 0, len(errs))
	for name := range errs {
		names = append(names, name)
	}
	return names
}
