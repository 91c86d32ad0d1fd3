package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func testContext(target string, params gin.Params) *gin.Context {
	gin.SetMode(gin.TestMode)

	ctx, _ := gin.CreateTestContext(httptest.NewRecorder())
	ctx.Request = httptest.NewRequest(http.MethodGet, target, nil)
	ctx.Params = params

	return ctx
}

func TestGetIDParam(t *testing.T) {
	id, err := GetIDParam(testContext("/", gin.Params{{Key: "id", Value: "12"}}), "id")
	require.NoError(t, err)
	assert.Equal(t, uint(12), id)

	for _, bad := range []string{"", "0", "-1", "abc", "99999999999"} {
		_, err := GetIDParam(testContext("/", gin.Params{{Key: "id", Value: bad}}), "id")
		assert.Error(t, err, bad)
	}
}

func TestGetLimit(t *testing.T) {
	limit, err := GetLimit(testContext("/calls", nil))
	require.NoError(t, err)
	assert.Equal(t, DefaultListLimit, limit)

	limit, err = GetLimit(testContext("/calls?limit=5000", nil))
	require.NoError(t, err)
	assert.Equal(t, MaxListLimit, limit)

	_, err = GetLimit(testContext("/calls?limit=-3", nil))
	assert.Error(t, err)
}

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

	got, err := ParseTimestamp("2024-03-01T09:30:00Z")
	require.NoError(t, err)
	assert.True(t, want.Equal(got))

	got, err = ParseTimestamp("2024-03-01T16:30:00+07:00")
	require.NoError(t, err)
	assert.True(t, want.Equal(got))

	got, err = ParseTimestamp("1709285400000")
	require.NoError(t, err)
	assert.True(t, want.Equal(got))

	_, err = ParseTimestamp("yesterday")
	assert.Error(t, err)
}

func TestGetSince(t *testing.T) {
	since, err := GetSince(testContext("/sync/calls", nil))
	require.NoError(t, err)
	assert.Nil(t, since)

	since, err = GetSince(testContext("/sync/calls?since=2024-03-01T00:00:00Z", nil))
	require.NoError(t, err)
	require.NotNil(t, since)
	assert.Equal(t, 2024, since.Year())

	_, err = GetSince(testContext("/sync/calls?since=later", nil))
	assert.Error(t, err)
}

func TestClassifyDBError(t *testing.T) {
	status, msg := ClassifyDBError(gorm.ErrRecordNotFound, "Contact")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Contact not found", msg)

	status, _ = ClassifyDBError(gorm.ErrDuplicatedKey, "User")
	assert.Equal(t, http.StatusConflict, status)

	status, msg = ClassifyDBError(gorm.ErrInvalidDB, "Call")
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "Internal server error", msg)
}
