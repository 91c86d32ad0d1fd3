// Package backup exports the CRM tables as a JSON snapshot and keeps a rolling
// set of them in an S3-compatible bucket.
package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/ran-crm/crm/internal/config"
	"github.com/ran-crm/crm/internal/models"
	"github.com/ran-crm/crm/internal/types"
	"gorm.io/gorm"
)

const (
	appName    = "crm"
	keyPrefix  = appName + "/database/"
	timeFormat = "2006-01-02T150405Z"
)

type Snapshot struct {
	CreatedAt time.Time            `json:"created_at"`
	Users     []types.UserResponse `json:"users"`
	Contacts  []models.Contact     `json:"contacts"`
	Calls     []models.Call        `json:"calls"`
	AuditLogs []models.AuditLog    `json:"audit_logs"`
}

// ObjectStore is the subset of *s3.Client the backup uses.
type ObjectStore interface {
	s3.ListObjectsV2APIClient
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type Uploader struct {
	Store         ObjectStore
	Bucket        string
	RetentionDays int

	now func() time.Time
}

// NewS3Client builds an S3 client from the BACKUP_* settings
func NewS3Client(ctx context.Context, cfg config.Config) (*s3.Client, error) {
	if !cfg.BackupConfigured() {
		return nil, fmt.Errorf("backup S3 credentials not configured (BACKUP_BUCKET_NAME, BACKUP_ACCESS_KEY_ID, BACKUP_SECRET_ACCESS_KEY)")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.BackupRegion),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.BackupAccessKeyID, cfg.BackupSecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.BackupEndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.BackupEndpointURL)
			o.UsePathStyle = true
		}
	}), nil
}

func NewUploader(store ObjectStore, bucket string, retentionDays int) *Uploader {
	return &Uploader{Store: store, Bucket: bucket, RetentionDays: retentionDays, now: time.Now}
}

// Export reads every table inside one read transaction.
func Export(ctx context.Context, gdb *gorm.DB) (*Snapshot, error) {
	snapshot := &Snapshot{CreatedAt: time.Now().UTC()}

	err := gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var users []models.User
		if err := tx.Order("id").Find(&users).Error; err != nil {
			return fmt.Errorf("export users: %w", err)
		}
		snapshot.Users = types.NewUserResponses(users)

		snapshot.Contacts = []models.Contact{}
		if err := tx.Order("id").Find(&snapshot.Contacts).Error; err != nil {
			return fmt.Errorf("export contacts: %w", err)
		}

		snapshot.Calls = []models.Call{}
		if err := tx.Order("id").Find(&snapshot.Calls).Error; err != nil {
			return fmt.Errorf("export calls: %w", err)
		}

		snapshot.AuditLogs = []models.AuditLog{}
		if err := tx.Order("id").Find(&snapshot.AuditLogs).Error; err != nil {
			return fmt.Errorf("export audit logs: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return snapshot, nil
}

// Run exports, uploads, and prunes old snapshots. Pruning failures are only
// logged.
func (u *Uploader) Run(ctx context.Context, gdb *gorm.DB) (string, error) {
	log.Printf("[Backup] Starting backup...")

	snapshot, err := Export(ctx, gdb)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(snapshot)
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}

	key := fmt.Sprintf("%s%s-db-%s.json", keyPrefix, appName, u.clock().UTC().Format(timeFormat))

	_, err = u.Store.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("upload to S3: %w", err)
	}

	log.Printf("[Backup] Uploaded to s3://%s/%s (%d users, %d contacts, %d calls)",
		u.Bucket, key, len(snapshot.Users), len(snapshot.Contacts), len(snapshot.Calls))

	if _, err := u.CleanOld(ctx); err != nil {
		log.Printf("[Backup] Warning: Failed to clean old backups: %v", err)
	}

	return key, nil
}

// CleanOld deletes snapshots older than the retention window and returns how
// many were removed.
func (u *Uploader) CleanOld(ctx context.Context) (int, error) {
	if u.RetentionDays <= 0 {
		return 0, nil
	}

	cutoff := u.clock().AddDate(0, 0, -u.RetentionDays)

	paginator := s3.NewListObjectsV2Paginator(u.Store, &s3.ListObjectsV2Input{
		Bucket: aws.String(u.Bucket),
		Prefix: aws.String(keyPrefix),
	})

	var toDelete []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return 0, fmt.Errorf("list objects: %w", err)
		}

		for _, obj := range page.Contents {
			if obj.Key != nil && obj.LastModified != nil && obj.LastModified.Before(cutoff) {
				toDelete = append(toDelete, *obj.Key)
			}
		}
	}

	deleted := 0
	for _, key := range toDelete {
		_, err := u.Store.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(u.Bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			log.Printf("[Backup] Warning: Failed to delete old backup %s: %v", key, err)
			continue
		}
		deleted++
		log.Printf("[Backup] Deleted old backup: %s", key)
	}

	return deleted, nil
}

func (u *Uploader) clock() time.Time {
	if u.now == nil {
		return time.Now()
	}
	return u.now()
}
