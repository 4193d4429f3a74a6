package api

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/Formula-SAE/bugreport/internal/db"
	"github.com/Formula-SAE/bugreport/internal/utils"
)

// lookupStore is the CRUD surface shared by departments and roles.
type lookupStore struct {
	name   string
	list   func(ctx context.Context) ([]lookupResponse, error)
	get    func(ctx context.Context, id uint) (lookupResponse, error)
	create func(ctx context.Context, name string) (lookupResponse, error)
	update func(ctx context.Context, id uint, name string) (lookupResponse, error)
	delete func(ctx context.Context, id uint) error
}

func (a *API) departments() lookupStore {
	return lookupStore{
		name: "department",
		list: func(ctx context.Context) ([]lookupResponse, error) {
			departments, err := a.db.ListDepartments(ctx)
			if err != nil {
				return nil, err
			}
			out := make([]lookupResponse, 0, len(departments))
			for _, d := range departments {
				out = append(out, lookupResponse{ID: d.ID, Name: d.Name})
			}
			return out, nil
		},
		get: func(ctx context.Context, id uint) (lookupResponse, error) {
			d, err := a.db.GetDepartment(ctx, id)
			if err != nil {
				return lookupResponse{}, err
			}
			return lookupResponse{ID: d.ID, Name: d.Name}, nil
		},
		create: func(ctx context.Context, name string) (lookupResponse, error) {
			d := &db.Department{Name: name}
			if err := a.db.CreateDepartment(ctx, d); err != nil {
				return lookupResponse{}, err
			}
			return lookupResponse{ID: d.ID, Name: d.Name}, nil
		},
		update: func(ctx context.Context, id uint, name string) (lookupResponse, error) {
			d, err := a.db.GetDepartment(ctx, id)
			if err != nil {
				return lookupResponse{}, err
			}
			d.Name = name
			if err := a.db.SaveDepartment(ctx, d); err != nil {
				return lookupResponse{}, err
			}
			return lookupResponse{ID: d.ID, Name: d.Name}, nil
		},
		delete: a.db.DeleteDepartment,
	}
}

func (a *API) roles() lookupStore {
	return lookupStore{
		name: "role",
		list: func(ctx context.Context) ([]lookupResponse, error) {
			roles, err := a.db.ListRoles(ctx)
			if err != nil {
				return nil, err
			}
			out := make([]lookupResponse, 0, len(roles))
			for _, r := range roles {
				out = append(out, lookupResponse{ID: r.ID, Name: r.Name})
			}
			return out, nil
		},
		get: func(ctx context.Context, id uint) (lookupResponse, error) {
			r, err := a.db.GetRole(ctx, id)
			if err != nil {
				return lookupResponse{}, err
			}
			return lookupResponse{ID: r.ID, Name: r.Name}, nil
		},
		create: func(ctx context.Context, name string) (lookupResponse, error) {
			r := &db.Role{Name: name}
			if err := a.db.CreateRole(ctx, r); err != nil {
				return lookupResponse{}, err
			}
			return lookupResponse{ID: r.ID, Name: r.Name}, nil
		},
		update: func(ctx context.Context, id uint, name string) (lookupResponse, error) {
			r, err := a.db.GetRole(ctx, id)
			if err != nil {
				return lookupResponse{}, err
			}
			r.Name = name
			if err := a.db.SaveRole(ctx, r); err != nil {
				return lookupResponse{}, err
			}
			return lookupResponse{ID: r.ID, Name: r.Name}, nil
		},
		delete: a.db.DeleteRole,
	}
}

type lookupRequest struct {
	Name *string `json:"name" validate:"required,max=255"`
}

func (a *API) readLookup(r *http.Request) (string, error) {
	req := &lookupRequest{}
	if _, err := readJSON(r, req); err != nil {
		return "", err
	}

	if errs := a.check(req); errs.any() {
		return "", validationError(errs)
	}
	if utils.IsBlank(*req.Name) {
		return "", validationError(fieldErrors{"name": {"This field may not be blank."}})
	}

	return strings.TrimSpace(*req.Name), nil
}

func (a *API) handleListLookups(store lookupStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := store.list(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func (a *API) handleCreateLookup(store lookupStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name, err := a.readLookup(r)
		if err != nil {
			writeError(w, err)
			return
		}

		item, err := store.create(r.Context(), name)
		if err != nil {
			log.Printf("[create-%s] Failed to create %q: %v", store.name, name, err)
			writeError(w, err)
			return
		}

		log.Printf("[create-%s] Created %s %d: %s", store.name, store.name, item.ID, item.Name)
		writeJSON(w, http.StatusCreated, item)
	}
}

func (a *API) handleGetLookup(store lookupStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			writeError(w, err)
			return
		}

		item, err := store.get(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, item)
	}
}

func (a *API) handleUpdateLookup(store lookupStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			writeError(w, err)
			return
		}

		if _, err := store.get(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}

		name, err := a.readLookup(r)
		if err != nil {
			writeError(w, err)
			return
		}

		item, err := store.update(r.Context(), id, name)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, item)
	}
}

func (a *API) handleDeleteLookup(store lookupStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			writeError(w, err)
			return
		}

		if err := store.delete(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}

		log.Printf("[delete-%s] Deleted %s %d", store.name, store.name, id)
		w.WriteHeader(http.StatusNoContent)
	}
}
