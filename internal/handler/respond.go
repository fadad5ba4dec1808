package handler

import (
	"encoding/json"
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/taskpad/taskpad-go/internal/middleware"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func errorResponse(msg string) map[string]string {
	return map[string]string{"error": msg}
}

// authedUserID extracts the authenticated user id injected by the JWT
// middleware. A missing or malformed id means the gate was bypassed or the
// token subject is garbage; either way the caller is unauthorized.
func authedUserID(r *http.Request) (primitive.ObjectID, bool) {
	sub, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		return primitive.NilObjectID, false
	}
	id, err := primitive.ObjectIDFromHex(sub)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return id, true
}
