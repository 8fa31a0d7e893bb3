package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"daftari.app/internal/auth"
	"daftari.app/internal/obs"
	"daftari.app/internal/store"
)

const partnersResource = "partners"

type partnerRequest struct {
	Name    string  `json:"name"`
	Kind    string  `json:"kind"`
	Phone   string  `json:"phone"`
	Email   string  `json:"email"`
	Address string  `json:"address"`
	Balance float64 `json:"balance"`
	Notes   string  `json:"notes"`
	Active  *bool   `json:"is_active"`
}

func (a *API) handlePartners(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.handlePartnersList(w, r)
	case http.MethodPost:
		a.handlePartnersCreate(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handlePartnersList(w http.ResponseWriter, r *http.Request) {
	identity, ok := a.requirePermission(w, r, partnersResource, auth.ActionRead)
	if !ok {
		return
	}
	q := r.URL.Query()
	page, err := parsePositiveInt(q.Get("page"), 1, 1, 100000)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "page must be a positive integer")
		return
	}
	limit, err := parsePositiveInt(q.Get("limit"), 20, 1, 100)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "limit must be between 1 and 100")
		return
	}
	filter := store.PartnerFilter{
		Kind:   strings.TrimSpace(q.Get("kind")),
		Search: strings.TrimSpace(q.Get("search")),
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
	if raw := q.Get("is_active"); raw != "" {
		active := raw == "true"
		filter.Active = &active
	}

	partners, total, err := a.partners.List(r.Context(), identity.StoreID, filter)
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	if partners == nil {
		partners = []store.Partner{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data": map[string]any{
			"partners": partners,
			"pagination": map[string]any{
				"page":       page,
				"limit":      limit,
				"total":      total,
				"totalPages": (total + limit - 1) / limit,
			},
		},
	})
}

func (a *API) handlePartnersCreate(w http.ResponseWriter, r *http.Request) {
	identity, ok := a.requirePermission(w, r, partnersResource, auth.ActionCreate)
	if !ok {
		return
	}
	var req partnerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, r, http.StatusBadRequest, "partner name is required")
		return
	}
	kind := strings.TrimSpace(req.Kind)
	if !validPartnerKind(kind) {
		writeError(w, r, http.StatusBadRequest, "kind must be customer, vendor or both")
		return
	}

	p := &store.Partner{
		StoreID: identity.StoreID,
		Name:    strings.TrimSpace(req.Name),
		Kind:    kind,
		Phone:   strings.TrimSpace(req.Phone),
		Email:   strings.TrimSpace(strings.ToLower(req.Email)),
		Address: strings.TrimSpace(req.Address),
		Balance: req.Balance,
		Notes:   req.Notes,
		Active:  true,
	}
	if req.Active != nil {
		p.Active = *req.Active
	}
	if err := a.partners.Create(r.Context(), p); err != nil {
		handleStoreError(w, r, err)
		return
	}
	a.audit.Record(r.Context(), identity, "create", "partner", p.ID, nil, p)
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "data": p})
}

func (a *API) handlePartnerByID(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/partners/"), "/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		a.handlePartnerGet(w, r, id)
	case http.MethodPut:
		a.handlePartnerUpdate(w, r, id)
	case http.MethodDelete:
		a.handlePartnerDelete(w, r, id)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) handlePartnerGet(w http.ResponseWriter, r *http.Request, id string) {
	identity, ok := a.requirePermission(w, r, partnersResource, auth.ActionRead)
	if !ok {
		return
	}
	p, err := a.partners.Get(r.Context(), identity.StoreID, id)
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": p})
}

func (a *API) handlePartnerUpdate(w http.ResponseWriter, r *http.Request, id string) {
	identity, ok := a.requirePermission(w, r, partnersResource, auth.ActionUpdate)
	if !ok {
		return
	}
	var req partnerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, r, http.StatusBadRequest, "partner name is required")
		return
	}
	kind := strings.TrimSpace(req.Kind)
	if !validPartnerKind(kind) {
		writeError(w, r, http.StatusBadRequest, "kind must be customer, vendor or both")
		return
	}

	old, err := a.partners.Get(r.Context(), identity.StoreID, id)
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	updated := *old
	updated.Name = strings.TrimSpace(req.Name)
	updated.Kind = kind
	updated.Phone = strings.TrimSpace(req.Phone)
	updated.Email = strings.TrimSpace(strings.ToLower(req.Email))
	updated.Address = strings.TrimSpace(req.Address)
	updated.Balance = req.Balance
	updated.Notes = req.Notes
	if req.Active != nil {
		updated.Active = *req.Active
	}
	if err := a.partners.Update(r.Context(), &updated); err != nil {
		handleStoreError(w, r, err)
		return
	}
	a.audit.Record(r.Context(), identity, "update", "partner", id, old, &updated)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": &updated})
}

func (a *API) handlePartnerDelete(w http.ResponseWriter, r *http.Request, id string) {
	identity, ok := a.requirePermission(w, r, partnersResource, auth.ActionDelete)
	if !ok {
		return
	}
	old, err := a.partners.Get(r.Context(), identity.StoreID, id)
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	if err := a.partners.Delete(r.Context(), identity.StoreID, id); err != nil {
		handleStoreError(w, r, err)
		return
	}
	a.audit.Record(r.Context(), identity, "delete", "partner", id, old, nil)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func validPartnerKind(kind string) bool {
	switch kind {
	case store.PartnerCustomer, store.PartnerVendor, store.PartnerBoth:
		return true
	}
	return false
}

// handleStoreError maps storage failures for tenant-scoped resources.
// Cross-tenant access deliberately reads as 404: the existence of another
// store's records is never revealed.
func handleStoreError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	obs.LogError("storage error", map[string]any{
		"request_id": RequestIDFromContext(r.Context()),
		"error":      err.Error(),
	})
	writeError(w, r, http.StatusInternalServerError, "internal error")
}

func parsePositiveInt(raw string, def, min, max int) (int, error) {
	if strings.TrimSpace(raw) == "" {
		return def, nil
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val < min || val > max {
		return 0, errors.New("out of range")
	}
	return val, nil
}
