package utils

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
)

// GetIDParam reads a positive numeric path parameter such as :id.
func GetIDParam(ctx *gin.Context, name string) (uint, error) {
	raw := ctx.Param(name)

	if raw == "" {
		return 0, fmt.Errorf("%s not found", name)
	}

	id, err := strconv.ParseUint(raw, 10, 32)

	if err != nil || id == 0 {
		return 0, fmt.Errorf("Invalid %s", name)
	}

	return uint(id), nil
}

// GetOptionalUintQuery returns nil when the query parameter is absent.
func GetOptionalUintQuery(ctx *gin.Context, name string) (*uint, error) {
	raw := strings.TrimSpace(ctx.Query(name))

	if raw == "" {
		return nil, nil
	}

	value, err := strconv.ParseUint(raw, 10, 32)

	if err != nil {
		return nil, fmt.Errorf("Invalid %s", name)
	}

	v := uint(value)
	return &v, nil
}

func GetLimit(ctx *gin.Context) (int, error) {
	raw := strings.TrimSpace(ctx.Query("limit"))

	if raw == "" {
		return DefaultListLimit, nil
	}

	limit, err := strconv.Atoi(raw)

	if err != nil || limit <= 0 {
		return 0, errors.New("Invalid limit")
	}

	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	return limit, nil
}

// ParseTimestamp accepts RFC 3339 strings or Unix epoch milliseconds, the two
// formats mobile clients send.
func ParseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)

	if raw == "" {
		return time.Time{}, errors.New("empty timestamp")
	}

	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}

	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("invalid timestamp %q", raw)
}

// GetSince reads the optional ?since= cursor used by incremental sync.
func GetSince(ctx *gin.Context) (*time.Time, error) {
	raw := ctx.Query("since")

	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	since, err := ParseTimestamp(raw)

	if err != nil {
		return nil, errors.New("Invalid since timestamp")
	}

	return &since, nil
}
