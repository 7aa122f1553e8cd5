package twin

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// requiredFields lists the fields a create request must carry per collection.
var requiredFields = map[string][]string{
	"students": {"firstName"},
	"courses":  {"title"},
	"users":    {"email"},
}

func (t *Twin) health(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (t *Twin) reset(w http.ResponseWriter, r *http.Request) {
	t.store.Reset()
	t.Logger.Info("state reset")
	JSON(w, http.StatusOK, map[string]any{"status": "reset"})
}

func decodeRecord(r *http.Request) (Record, error) {
	var rec Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		return nil, fmt.Errorf("invalid request body: %w", err)
	}
	if rec == nil {
		return nil, fmt.Errorf("request body must be a JSON object")
	}
	return rec, nil
}

func missingFields(collection string, rec Record) []string {
	var missing []string
	for _, f := range requiredFields[collection] {
		if v, ok := rec[f]; !ok || v == nil || v == "" {
			missing = append(missing, f)
		}
	}
	return missing
}

func (t *Twin) audit(r *http.Request, action, collection, id string) {
	t.store.LogAudit(AuditEntry{
		Action:     action,
		Collection: collection,
		ResourceID: id,
		RequestID:  chimw.GetReqID(r.Context()),
	})
}

// create handles POST /api/{collection}
func (t *Twin) create(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "collection")
	rec, err := decodeRecord(r)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if missing := missingFields(name, rec); len(missing) > 0 {
		Error(w, http.StatusUnprocessableEntity, "missing required fields: "+strings.Join(missing, ", "))
		return
	}

	created := t.store.Create(name, rec)
	t.audit(r, "create", name, created["id"].(string))
	JSON(w, http.StatusCreated, created)
}

// list handles GET /api/{collection}
func (t *Twin) list(w http.ResponseWriter, r *http.Request) {
	items := t.store.List(chi.URLParam(r, "collection"))
	JSON(w, http.StatusOK, map[string]any{"data": items, "count": len(items)})
}

// get handles GET /api/{collection}/{id}
func (t *Twin) get(w http.ResponseWriter, r *http.Request) {
	name, id := chi.URLParam(r, "collection"), chi.URLParam(r, "id")
	rec, ok := t.store.Get(name, id)
	if !ok {
		Error(w, http.StatusNotFound, fmt.Sprintf("no such %s: %s", name, id))
		return
	}
	JSON(w, http.StatusOK, rec)
}

// update handles PUT /api/{collection}/{id}
func (t *Twin) update(w http.ResponseWriter, r *http.Request) {
	name, id := chi.URLParam(r, "collection"), chi.URLParam(r, "id")
	fields, err := decodeRecord(r)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	rec, ok := t.store.Update(name, id, fields)
	if !ok {
		Error(w, http.StatusNotFound, fmt.Sprintf("no such %s: %s", name, id))
		return
	}
	t.audit(r, "update", name, id)
	JSON(w, http.StatusOK, rec)
}

// remove handles DELETE /api/{collection}/{id}
func (t *Twin) remove(w http.ResponseWriter, r *http.Request) {
	name, id := chi.URLParam(r, "collection"), chi.URLParam(r, "id")
	if !t.store.Delete(name, id) {
		Error(w, http.StatusNotFound, fmt.Sprintf("no such %s: %s", name, id))
		return
	}
	t.audit(r, "delete", name, id)
	w.WriteHeader(http.StatusNoContent)
}

// auditLog handles GET /api/audit/log
func (t *Twin) auditLog(w http.ResponseWriter, r *http.Request) {
	entries := t.store.Audit()
	JSON(w, http.StatusOK, map[string]any{"entries": entries, "count": len(entries)})
}

// accessRequest handles POST /api/security/zero-trust/access-request.
// Access is granted only with verified MFA from a trusted device.
func (t *Twin) accessRequest(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRecord(r)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	userID, _ := req["userId"].(string)
	resource, _ := req["resource"].(string)
	if userID == "" || resource == "" {
		Error(w, http.StatusUnprocessableEntity, "userId and resource are required")
		return
	}

	var reasons []string
	if !truthy(req["mfaVerified"]) {
		reasons = append(reasons, "mfa not verified")
	}
	if !truthy(req["deviceTrusted"]) {
		reasons = append(reasons, "device not trusted")
	}

	decision, status := "granted", http.StatusOK
	if len(reasons) > 0 {
		decision, status = "denied", http.StatusForbidden
	}
	entry := t.store.LogAudit(AuditEntry{
		Action:     "access-request",
		Collection: "security",
		ResourceID: resource,
		RequestID:  chimw.GetReqID(r.Context()),
		Decision:   decision,
	})

	JSON(w, status, map[string]any{
		"userId":   userID,
		"resource": resource,
		"decision": decision,
		"reasons":  reasons,
		"auditId":  entry.ID,
	})
}

// truthy accepts JSON booleans and the string forms table steps send.
func truthy(v any) bool {
	switch v := v.(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(v) {
		case "true", "yes", "1":
			return true
		}
	}
	return false
}
