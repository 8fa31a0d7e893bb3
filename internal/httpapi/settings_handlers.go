package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"daftari.app/internal/auth"
	"daftari.app/internal/store"
)

const settingsResource = "settings"

type settingsRequest struct {
	Currency       string `json:"currency"`
	Locale         string `json:"locale"`
	InvoicePrefix  string `json:"invoice_prefix"`
	LowStockAlerts bool   `json:"low_stock_alerts"`
}

func (a *API) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.handleSettingsGet(w, r)
	case http.MethodPut:
		a.handleSettingsPut(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut)
	}
}

func (a *API) handleSettingsGet(w http.ResponseWriter, r *http.Request) {
	identity, ok := a.requirePermission(w, r, settingsResource, auth.ActionRead)
	if !ok {
		return
	}
	settings, err := a.settings.Get(r.Context(), identity.StoreID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// A store without a settings row gets the defaults.
			settings = defaultSettings(identity.StoreID)
		} else {
			handleStoreError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": settings})
}

func (a *API) handleSettingsPut(w http.ResponseWriter, r *http.Request) {
	identity, ok := a.requirePermission(w, r, settingsResource, auth.ActionUpdate)
	if !ok {
		return
	}
	var req settingsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Currency) == "" {
		writeError(w, r, http.StatusBadRequest, "currency is required")
		return
	}

	old, err := a.settings.Get(r.Context(), identity.StoreID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		handleStoreError(w, r, err)
		return
	}
	updated := &store.Settings{
		StoreID:        identity.StoreID,
		Currency:       strings.ToUpper(strings.TrimSpace(req.Currency)),
		Locale:         strings.TrimSpace(req.Locale),
		InvoicePrefix:  strings.TrimSpace(req.InvoicePrefix),
		LowStockAlerts: req.LowStockAlerts,
	}
	if err := a.settings.Put(r.Context(), updated); err != nil {
		handleStoreError(w, r, err)
		return
	}
	a.audit.Record(r.Context(), identity, "update", "settings", identity.StoreID, old, updated)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": updated})
}

func defaultSettings(storeID string) *store.Settings {
	return &store.Settings{
		StoreID:        storeID,
		Currency:       "USD",
		Locale:         "ar",
		InvoicePrefix:  "INV",
		LowStockAlerts: true,
	}
}
