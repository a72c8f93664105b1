package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"eventos-backend/internal/apperr"
	"eventos-backend/internal/middleware"
	"eventos-backend/internal/timeutil"
	"eventos-backend/pkg/utils"

	"github.com/gorilla/mux"
)

// pathID parses a numeric route variable, answering 400 when it is not one
func pathID(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)[name])
	if err != nil || id <= 0 {
		utils.Error(w, http.StatusBadRequest, "Invalid "+name)
		return 0, false
	}
	return id, true
}

// decode reads a JSON body. An empty body leaves dst untouched when optional is set.
func decode(w http.ResponseWriter, r *http.Request, dst interface{}, optional bool) bool {
	if optional && r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func includeInactive(r *http.Request) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get("incluir_inactivos"))
	return v
}

func queryInt(r *http.Request, name string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(name))
	return n
}

// queryDate parses an optional YYYY-MM-DD parameter in the business zone
func queryDate(r *http.Request, name string) (*time.Time, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil, nil
	}
	t, err := timeutil.ParseDate(v)
	if err != nil {
		return nil, apperr.Validationf("%s debe tener formato YYYY-MM-DD", name)
	}
	return &t, nil
}

// actingUser returns the authenticated user id, nil for anonymous calls
func actingUser(r *http.Request) *int {
	if id, ok := middleware.GetUserIDFromContext(r.Context()); ok {
		return &id
	}
	return nil
}
