package services

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/ran-crm/crm/db"
	"github.com/ran-crm/crm/internal/events"
	"github.com/ran-crm/crm/internal/models"
	"github.com/ran-crm/crm/internal/types"
	"github.com/ran-crm/crm/internal/utils"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxUUIDLength = 128

// Timestamp decodes RFC 3339 strings and Unix epoch milliseconds (number or
// string).
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))

	if raw == "null" || raw == `""` {
		return nil
	}

	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = unquoted
	}

	parsed, err := utils.ParseTimestamp(raw)
	if err != nil {
		return err
	}

	t.Time = parsed
	return nil
}

type CallInput struct {
	UUID        string     `json:"uuid"`
	PhoneNumber string     `json:"phone_number"`
	Direction   string     `json:"direction"`
	StartTime   *Timestamp `json:"start_time"`
	Duration    int        `json:"duration"`
}

type CallFilter struct {
	UserID    *uint
	Direction string
	Since     *time.Time
	Limit     int
}

const (
	StatusCreated = "created"
	StatusSkipped = "skipped"
	StatusError   = "error"
)

type BulkItemError struct {
	Index       int    `json:"index"`
	UUID        string `json:"uuid,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	Error       string `json:"error"`
}

type BulkItemResult struct {
	Index  int    `json:"index"`
	Status string `json:"status"`
	CallID uint   `json:"call_id,omitempty"`
	UUID   string `json:"uuid,omitempty"`
	Error  string `json:"error,omitempty"`
}

type BulkResult struct {
	Total   int              `json:"total"`
	Created int              `json:"created"`
	Skipped int              `json:"skipped"`
	Errors  []BulkItemError  `json:"errors"`
	Results []BulkItemResult `json:"results"`
}

// NormalizeStartTime is the exact form start times are stored and compared in.
func NormalizeStartTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

func (in CallInput) normalize(now time.Time) (models.Call, error) {
	direction := strings.ToLower(strings.TrimSpace(in.Direction))
	if !types.IsValidDirection(direction) {
		return models.Call{}, ErrInvalidDirection
	}

	phone := strings.TrimSpace(in.PhoneNumber)
	if phone == "" {
		return models.Call{}, ErrMissingPhoneNumber
	}

	if in.Duration < 0 {
		return models.Call{}, ErrInvalidDuration
	}

	start := now
	if in.StartTime != nil && !in.StartTime.IsZero() {
		start = in.StartTime.Time
	}

	call := models.Call{
		PhoneNumber: phone,
		Direction:   direction,
		StartTime:   NormalizeStartTime(start),
		Duration:    in.Duration,
		Version:     1,
	}

	if id := strings.TrimSpace(in.UUID); id != "" {
		if len(id) > maxUUIDLength {
			return models.Call{}, ErrInvalidUUID
		}
		call.UUID = &id
	}

	return call, nil
}

// IngestCall stores one call. A repeat of a known uuid or (phone_number,
// start_time) pair returns the stored row together with ErrDuplicateCall.
func (s *Service) IngestCall(ctx context.Context, actor Actor, in CallInput) (*models.Call, error) {
	ctx, span := tracer.Start(ctx, "services.IngestCall")
	defer span.End()

	call, err := s.insertCall(ctx, actor, in)

	if err != nil {
		if !errors.Is(err, ErrDuplicateCall) {
			span.SetStatus(codes.Error, err.Error())
		}
		return call, err
	}

	events.Publish(ctx, events.Event{Type: events.CallCreated, ActorID: actor.ID, ResourceID: call.ID, Data: call})

	return call, nil
}

func (s *Service) insertCall(ctx context.Context, actor Actor, in CallInput) (*models.Call, error) {
	call, err := in.normalize(time.Now())
	if err != nil {
		return nil, err
	}

	call.UserID = actor.ID
	gdb := s.conn(ctx)

	contactID, err := contactIDForPhone(gdb, call.PhoneNumber)
	if err != nil {
		return nil, err
	}
	call.ContactID = contactID

	// both unique indexes back this; zero rows means one of them matched
	result := gdb.Clauses(clause.OnConflict{DoNothing: true}).Create(&call)

	if result.Error != nil && !db.IsDuplicateKey(result.Error) {
		return nil, result.Error
	}

	if result.Error != nil || result.RowsAffected == 0 {
		existing, err := findDuplicateCall(gdb, call)
		if err != nil {
			return nil, err
		}
		return existing, ErrDuplicateCall
	}

	return &call, nil
}

func contactIDForPhone(gdb *gorm.DB, phone string) (*uint, error) {
	var contacts []models.Contact

	if err := gdb.Select("id").Where("phone_number = ?", phone).Limit(1).Find(&contacts).Error; err != nil {
		return nil, err
	}

	if len(contacts) == 0 {
		return nil, nil
	}

	return &contacts[0].ID, nil
}

// findDuplicateCall may return nil when the conflicting row was deleted in
// the meantime.
func findDuplicateCall(gdb *gorm.DB, call models.Call) (*models.Call, error) {
	var found []models.Call

	if call.UUID != nil {
		if err := gdb.Where("uuid = ?", *call.UUID).Limit(1).Find(&found).Error; err != nil {
			return nil, err
		}
		if len(found) > 0 {
			return &found[0], nil
		}
	}

	err := gdb.Where("phone_number = ? AND start_time = ?", call.PhoneNumber, call.StartTime).
		Limit(1).
		Find(&found).Error
	if err != nil {
		return nil, err
	}

	if len(found) == 0 {
		return nil, nil
	}

	return &found[0], nil
}

// IngestCalls processes items in order. A bad item is reported in the result
// and never aborts the rest of the batch.
func (s *Service) IngestCalls(ctx context.Context, actor Actor, items []json.RawMessage) BulkResult {
	ctx, span := tracer.Start(ctx, "services.IngestCalls")
	defer span.End()

	result := BulkResult{
		Total:   len(items),
		Errors:  []BulkItemError{},
		Results: make([]BulkItemResult, 0, len(items)),
	}

	for i, raw := range items {
		var in CallInput

		if err := json.Unmarshal(raw, &in); err != nil {
			result.addError(i, in, ErrInvalidPayload.Error())
			continue
		}

		call, err := s.insertCall(ctx, actor, in)

		switch {
		case err == nil:
			result.Created++
			result.Results = append(result.Results, BulkItemResult{Index: i, Status: StatusCreated, CallID: call.ID, UUID: in.UUID})
		case errors.Is(err, ErrDuplicateCall):
			result.Skipped++
			item := BulkItemResult{Index: i, Status: StatusSkipped, UUID: in.UUID}
			if call != nil {
				item.CallID = call.ID
			}
			result.Results = append(result.Results, item)
		case IsValidation(err):
			result.addError(i, in, err.Error())
		default:
			log.Printf("[Sync] Failed to store call %d for user %d: %v", i, actor.ID, err)
			result.addError(i, in, "Internal server error")
		}
	}

	span.SetAttributes(
		attribute.Int("calls.total", result.Total),
		attribute.Int("calls.created", result.Created),
		attribute.Int("calls.skipped", result.Skipped),
		attribute.Int("calls.errors", len(result.Errors)),
	)

	if result.Created > 0 {
		events.Publish(ctx, events.Event{
			Type:    events.CallsSynced,
			ActorID: actor.ID,
			Data:    map[string]int{"created": result.Created, "skipped": result.Skipped, "errors": len(result.Errors)},
		})
	}

	return result
}

func (r *BulkResult) addError(index int, in CallInput, msg string) {
	r.Errors = append(r.Errors, BulkItemError{Index: index, UUID: in.UUID, PhoneNumber: in.PhoneNumber, Error: msg})
	r.Results = append(r.Results, BulkItemResult{Index: index, Status: StatusError, UUID: in.UUID, Error: msg})
}

// ListCalls returns the newest calls first.
func (s *Service) ListCalls(ctx context.Context, filter CallFilter) ([]models.Call, error) {
	q := s.conn(ctx).Model(&models.Call{})

	if filter.UserID != nil {
		q = q.Where("user_id = ?", *filter.UserID)
	}

	if filter.Direction != "" {
		direction := strings.ToLower(filter.Direction)
		if !types.IsValidDirection(direction) {
			return nil, ErrInvalidDirection
		}
		q = q.Where("direction = ?", direction)
	}

	if filter.Since != nil {
		q = q.Where("start_time > ?", filter.Since.UTC())
	}

	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	calls := []models.Call{}
	err := q.Order("start_time DESC, id DESC").Find(&calls).Error

	return calls, err
}

// CallsSince returns calls uploaded after since, in upload order. Filtering on
// upload time rather than start_time lets a device pull calls another device
// pushed late.
func (s *Service) CallsSince(ctx context.Context, since *time.Time) ([]models.Call, error) {
	q := s.conn(ctx).Model(&models.Call{})

	if since != nil {
		q = q.Where("created_at > ?", since.UTC())
	}

	calls := []models.Call{}
	err := q.Order("created_at ASC, id ASC").Find(&calls).Error

	return calls, err
}

// CallStats counts calls per direction, for one user when userID is set
func (s *Service) CallStats(ctx context.Context, userID *uint) (types.CallCounts, error) {
	var rows []struct {
		Direction string
		Count     int64
		Duration  int64
	}

	q := s.conn(ctx).Model(&models.Call{}).
		Select("direction, COUNT(*) AS count, COALESCE(SUM(duration), 0) AS duration")

	if userID != nil {
		q = q.Where("user_id = ?", *userID)
	}

	var counts types.CallCounts

	if err := q.Group("direction").Scan(&rows).Error; err != nil {
		return counts, err
	}

	for _, row := range rows {
		counts.Total += row.Count
		counts.TotalDuration += row.Duration

		switch row.Direction {
		case types.DirectionIncoming:
			counts.Incoming = row.Count
		case types.DirectionOutgoing:
			counts.Outgoing = row.Count
		case types.DirectionMissed:
			counts.Missed = row.Count
		}
	}

	return counts, nil
}

// DeleteCall removes a call owned by the actor, or any call for admins
func (s *Service) DeleteCall(ctx context.Context, actor Actor, id uint) error {
	gdb := s.conn(ctx)

	var call models.Call
	if err := gdb.First(&call, id).Error; err != nil {
		if db.IsNotFound(err) {
			return ErrNotFound
		}
		return err
	}

	if !actor.canModify(&call.UserID) {
		return ErrForbidden
	}

	if err := gdb.Delete(&call).Error; err != nil {
		return err
	}

	events.Publish(ctx, events.Event{Type: events.CallDeleted, ActorID: actor.ID, ResourceID: id})

	return nil
}
