package api

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
)

const maxBodySize = 1 << 20

func getAuthorization(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")

	token := strings.Split(header, " ")
	if len(token) != 2 || token[0] != "Bearer" || token[1] == "" {
		return "", errors.New("invalid token")
	}

	return token[1], nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

// pathID reads the numeric {id} route variable.
func pathID(r *http.Request) (uint, error) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		return 0, errNotFound
	}
	return uint(id), nil
}

// readJSON decodes the request body into dst and also returns its top level
// keys, so handlers can tell an omitted field from a zero one.
func readJSON(r *http.Request, dst any) (map[string]json.RawMessage, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return nil, detailError(http.StatusBadRequest, "Could not read request body.")
	}

	keys := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &keys); err != nil {
		return nil, detailError(http.StatusBadRequest, "JSON parse error - "+err.Error())
	}

	if err := json.Unmarshal(body, dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return nil, validationError(fieldErrors{typeErr.Field: {"Incorrect type. Expected " + typeErr.Type.String() + "."}})
		}
		return nil, detailError(http.StatusBadRequest, "JSON parse error - "+err.Error())
	}

	return keys, nil
}

// rejectKeys reports each present key as a read-only field.
func rejectKeys(keys map[string]json.RawMessage, names ...string) fieldErrors {
	errs := fieldErrors{}
	for _, name := range names {
		if _, ok := keys[name]; ok {
			errs.add(name, "This field is read-only.")
		}
	}
	return errs
}

// optionalID is a nullable foreign key in a partial update. Set tells
// whether the field was present at all.
type optionalID struct {
	Set   bool
	Value *uint
}

func (o *optionalID) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		o.Value = nil
		return nil
	}

	var id uint
	if err := json.Unmarshal(b, &id); err != nil {
		return err
	}
	o.Value = &id
	return nil
}

func sameID(a, b *uint) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func invalidPK(id uint) string {
	return "Invalid pk \"" + strconv.FormatUint(uint64(id), 10) + "\" - object does not exist."
}
