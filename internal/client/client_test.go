package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ran-crm/crm/internal/auth"
	"github.com/ran-crm/crm/internal/dbtest"
	"github.com/ran-crm/crm/internal/models"
	"github.com/ran-crm/crm/internal/router"
	"github.com/ran-crm/crm/internal/services"
	"github.com/ran-crm/crm/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gdb := dbtest.Open(t)
	require.NoError(t, auth.Configure("client-test-secret", time.Hour))

	hash, err := auth.HashPassword("device-pass")
	require.NoError(t, err)
	require.NoError(t, gdb.Create(&models.User{Name: "Device", Email: "device@crm.local", PasswordHash: hash, Role: types.RoleUser}).Error)

	srv := httptest.NewServer(router.NewRouter(router.Options{AllowedOrigins: []string{"*"}}))
	t.Cleanup(srv.Close)

	return srv
}

func writeJSON(t *testing.T, path string, v any) {
	t.Helper()

	b, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
}

func TestCallUUIDIsStable(t *testing.T) {
	start := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	bangkok := time.FixedZone("ICT", 7*3600)

	a := CallUUID("0811111111", start)
	b := CallUUID(" 0811111111 ", start.In(bangkok))
	c := CallUUID("0811111111", start.Add(time.Second))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 36)
}

func TestLoginFailureIsAPIError(t *testing.T) {
	srv := newServer(t)

	_, err := New(srv.URL).Login(context.Background(), "device@crm.local", "wrong")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "Invalid credentials", apiErr.Message)
}

func TestSyncerPushesAndPulls(t *testing.T) {
	srv := newServer(t)
	dir := t.TempDir()

	start := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	writeJSON(t, filepath.Join(dir, "calls.json"), []CallRecord{
		{PhoneNumber: "0811111111", Direction: "incoming", StartTime: start, Duration: 30},
		{UUID: "device-42", PhoneNumber: "0822222222", Direction: "missed", StartTime: start.Add(time.Minute)},
		{PhoneNumber: "0833333333", Direction: "sideways", StartTime: start.Add(2 * time.Minute)},
	})
	writeJSON(t, filepath.Join(dir, "contacts.json"), []services.ContactInput{
		{Name: "Somchai", PhoneNumber: "0811111111"},
	})

	syncer := &Syncer{
		Client:       New(srv.URL),
		Email:        "device@crm.local",
		Password:     "device-pass",
		CallsFile:    filepath.Join(dir, "calls.json"),
		ContactsFile: filepath.Join(dir, "contacts.json"),
		StateFile:    filepath.Join(dir, "state.json"),
	}

	ctx := context.Background()

	first, err := syncer.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, first.ContactsInserted)
	assert.Equal(t, 2, first.CallsCreated)
	assert.Equal(t, 1, first.CallErrors)
	assert.Equal(t, 2, first.CallsPulled)
	assert.Equal(t, 1, first.ContactsPulled)

	state, err := LoadState(syncer.StateFile)
	require.NoError(t, err)
	require.NotNil(t, state.CallsSince)

	second, err := syncer.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, second.CallsCreated)
	assert.Equal(t, 2, second.CallsSkipped)
	assert.Equal(t, 1, second.ContactsExisting)
	assert.Equal(t, 0, second.CallsPulled)
	assert.Equal(t, 0, second.ContactsPulled)
}

func TestSyncerPullsCallsUploadedByAnotherDevice(t *testing.T) {
	srv := newServer(t)
	dir := t.TempDir()
	ctx := context.Background()

	reader := &Syncer{
		Client:    New(srv.URL),
		Email:     "device@crm.local",
		Password:  "device-pass",
		StateFile: filepath.Join(dir, "reader.json"),
	}

	first, err := reader.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, first.CallsPulled)

	time.Sleep(5 * time.Millisecond)

	writeJSON(t, filepath.Join(dir, "calls.json"), []CallRecord{
		{PhoneNumber: "0844444444", Direction: "outgoing", StartTime: time.Now().UTC().Add(-time.Hour), Duration: 12},
	})
	writer := &Syncer{
		Client:    New(srv.URL),
		Email:     "device@crm.local",
		Password:  "device-pass",
		CallsFile: filepath.Join(dir, "calls.json"),
		StateFile: filepath.Join(dir, "writer.json"),
	}

	pushed, err := writer.Sync(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, pushed.CallsCreated)

	second, err := reader.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, second.CallsPulled)

	third, err := reader.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, third.CallsPulled)
}

func TestPushCallsLeavesUUIDEmptyWithoutStartTime(t *testing.T) {
	var received struct {
		Calls []CallRecord `json:"calls"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"total":2,"created":2,"skipped":0,"errors":[],"results":[]}`))
	}))
	t.Cleanup(srv.Close)

	start := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

	result, err := New(srv.URL).PushCalls(context.Background(), []CallRecord{
		{PhoneNumber: "0811111111", Direction: "incoming"},
		{PhoneNumber: "0811111111", Direction: "missed", StartTime: start},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Created)

	require.Len(t, received.Calls, 2)
	assert.Empty(t, received.Calls[0].UUID)
	assert.Equal(t, CallUUID("0811111111", start), received.Calls[1].UUID)
}

func TestPullWithoutTokenIsUnauthorized(t *testing.T) {
	srv := newServer(t)

	_, _, err := New(srv.URL).PullCalls(context.Background(), nil)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
}
