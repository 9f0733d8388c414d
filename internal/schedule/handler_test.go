package schedule

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"makerspace/internal/api"
	"makerspace/internal/settings"
)

type fakeLister struct {
	settings []settings.Setting
	err      error
}

func (f fakeLister) List(ctx context.Context) ([]settings.Setting, error) {
	return f.settings, f.err
}

func setupHandler(store *memoryStore, lister SettingsLister) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(NewPolicy(store, mst), lister)

	router := gin.New()
	router.GET("/admin/settings", h.GetSettings)
	router.PUT("/admin/settings/level3-schedule", h.UpdateLevel3Schedule)
	router.PUT("/admin/settings/level4-unavailable-hours", h.UpdateLevel4UnavailableHours)
	return router
}

func TestHandlerGetSettings(t *testing.T) {
	store := newMemoryStore()
	store.values[Level4UnavailableHoursKey] = `{"start":1,"end":5}`
	raw := []settings.Setting{{Key: Level4UnavailableHoursKey, Value: `{"start":1,"end":5}`, UpdatedAt: time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)}}
	router := setupHandler(store, fakeLister{settings: raw})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/settings", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var view SettingsView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, DefaultLevel3Schedule(), view.Level3Schedule)
	assert.Equal(t, HourRange{Start: 1, End: 5}, view.Level4UnavailableHours)
	require.Len(t, view.Raw, 1)
	assert.Equal(t, Level4UnavailableHoursKey, view.Raw[0].Key)
}

func TestHandlerGetSettingsListError(t *testing.T) {
	router := setupHandler(newMemoryStore(), fakeLister{err: errors.New("db down")})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/settings", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestHandlerUpdateLevel3Schedule(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantStored bool
	}{
		{"valid", `{"Monday":{"start":8,"end":18},"Friday":{"start":9,"end":12}}`, http.StatusOK, true},
		{"unknown day", `{"Someday":{"start":8,"end":18}}`, http.StatusBadRequest, false},
		{"inverted", `{"Monday":{"start":18,"end":8}}`, http.StatusBadRequest, false},
		{"empty", `{}`, http.StatusBadRequest, false},
		{"malformed", `{"Monday":`, http.StatusBadRequest, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemoryStore()
			router := setupHandler(store, fakeLister{})

			req := httptest.NewRequest(http.MethodPut, "/admin/settings/level3-schedule", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			_, stored := store.values[Level3ScheduleKey]
			assert.Equal(t, tt.wantStored, stored)
			if tt.wantStatus == http.StatusBadRequest {
				var resp api.ErrorResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.NotEmpty(t, resp.Error)
			}
		})
	}
}

func TestHandlerUpdateLevel4UnavailableHours(t *testing.T) {
	store := newMemoryStore()
	router := setupHandler(store, fakeLister{})

	put := func(body string) int {
		req := httptest.NewRequest(http.MethodPut, "/admin/settings/level4-unavailable-hours", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, put(`{"start":22,"end":2}`))
	assert.JSONEq(t, `{"start":22,"end":2}`, store.values[Level4UnavailableHoursKey])

	assert.Equal(t, http.StatusBadRequest, put(`{"start":24,"end":2}`))
	assert.Equal(t, http.StatusBadRequest, put(`{"start":1,"end":25}`))
	assert.JSONEq(t, `{"start":22,"end":2}`, store.values[Level4UnavailableHoursKey])
}
