package backup

import (
	"context"
	"encoding/json"
	"io"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/ran-crm/crm/internal/dbtest"
	"github.com/ran-crm/crm/internal/models"
	"github.com/ran-crm/crm/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type storedObject struct {
	body     []byte
	modified time.Time
}

type memoryStore struct {
	objects map[string]storedObject
	now     time.Time
}

func newMemoryStore(now time.Time) *memoryStore {
	return &memoryStore{objects: map[string]storedObject{}, now: now}
}

func (m *memoryStore) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	m.objects[*in.Key] = storedObject{body: body, modified: m.now}
	return &s3.PutObjectOutput{}, nil
}

func (m *memoryStore) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(m.objects, *in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func (m *memoryStore) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	keys := make([]string, 0, len(m.objects))
	for key := range m.objects {
		if strings.HasPrefix(key, aws.ToString(in.Prefix)) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	for _, key := range keys {
		modified := m.objects[key].modified
		out.Contents = append(out.Contents, s3types.Object{Key: aws.String(key), LastModified: &modified})
	}

	return out, nil
}

func TestRunUploadsSnapshotWithoutPasswordHashes(t *testing.T) {
	gdb := dbtest.Open(t)

	user := models.User{Name: "Agent", Email: "agent@crm.local", PasswordHash: "$2a$10$secret", Role: types.RoleUser}
	require.NoError(t, gdb.Create(&user).Error)
	require.NoError(t, gdb.Create(&models.Contact{Name: "Shop", PhoneNumber: "100", CreatedByUserID: &user.ID, Version: 1}).Error)
	require.NoError(t, gdb.Create(&models.Call{UserID: user.ID, PhoneNumber: "100", Direction: "incoming", StartTime: time.Now().UTC(), Version: 1}).Error)

	now := time.Date(2024, 3, 1, 3, 0, 0, 0, time.UTC)
	store := newMemoryStore(now)
	uploader := NewUploader(store, "crm-backups", 30)
	uploader.now = func() time.Time { return now }

	key, err := uploader.Run(context.Background(), gdb)
	require.NoError(t, err)
	assert.Equal(t, "crm/database/crm-db-2024-03-01T030000Z.json", key)

	stored, ok := store.objects[key]
	require.True(t, ok)
	assert.NotContains(t, string(stored.body), "$2a$10$secret")

	var snapshot Snapshot
	require.NoError(t, json.Unmarshal(stored.body, &snapshot))
	assert.Len(t, snapshot.Users, 1)
	assert.Len(t, snapshot.Contacts, 1)
	assert.Len(t, snapshot.Calls, 1)
}

func TestCleanOldRespectsRetention(t *testing.T) {
	now := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	store := newMemoryStore(now)

	store.objects["crm/database/old.json"] = storedObject{modified: now.AddDate(0, 0, -45)}
	store.objects["crm/database/recent.json"] = storedObject{modified: now.AddDate(0, 0, -2)}
	store.objects["other/untouched.json"] = storedObject{modified: now.AddDate(-1, 0, 0)}

	uploader := NewUploader(store, "crm-backups", 30)
	uploader.now = func() time.Time { return now }

	deleted, err := uploader.CleanOld(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	assert.NotContains(t, store.objects, "crm/database/old.json")
	assert.Contains(t, store.objects, "crm/database/recent.json")
	assert.Contains(t, store.objects, "other/untouched.json")
}
