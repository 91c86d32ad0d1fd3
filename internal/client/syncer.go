package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ran-crm/crm/internal/services"
)

// SyncState is the cursor persisted between runs.
type SyncState struct {
	CallsSince    *time.Time `json:"calls_since,omitempty"`
	ContactsSince *time.Time `json:"contacts_since,omitempty"`
}

type SyncReport struct {
	CallsCreated     int `json:"calls_created"`
	CallsSkipped     int `json:"calls_skipped"`
	CallErrors       int `json:"call_errors"`
	ContactsInserted int `json:"contacts_inserted"`
	ContactsExisting int `json:"contacts_existing"`
	ContactErrors    int `json:"contact_errors"`
	CallsPulled      int `json:"calls_pulled"`
	ContactsPulled   int `json:"contacts_pulled"`
}

// Syncer pushes a device export and pulls what changed since the last run.
type Syncer struct {
	Client       *Client
	Email        string
	Password     string
	CallsFile    string
	ContactsFile string
	StateFile    string
}

// Sync pushes the configured files, then pulls changes since the saved cursors
func (s *Syncer) Sync(ctx context.Context) (SyncReport, error) {
	var report SyncReport

	if s.Client.token == "" {
		if _, err := s.Client.Login(ctx, s.Email, s.Password); err != nil {
			return report, fmt.Errorf("login: %w", err)
		}
	}

	state, err := LoadState(s.StateFile)
	if err != nil {
		return report, err
	}

	if s.ContactsFile != "" {
		var contacts []services.ContactInput
		if err := readJSONFile(s.ContactsFile, &contacts); err != nil {
			return report, err
		}

		results, err := s.Client.PushContacts(ctx, contacts)
		if err != nil {
			return report, fmt.Errorf("push contacts: %w", err)
		}

		for _, r := range results {
			switch r.Status {
			case services.SyncInserted:
				report.ContactsInserted++
			case services.SyncExists:
				report.ContactsExisting++
			default:
				report.ContactErrors++
				log.Printf("[Sync] contact %d rejected: %s", r.Index, r.Error)
			}
		}
	}

	if s.CallsFile != "" {
		var calls []CallRecord
		if err := readJSONFile(s.CallsFile, &calls); err != nil {
			return report, err
		}

		result, err := s.Client.PushCalls(ctx, calls)
		if err != nil {
			return report, fmt.Errorf("push calls: %w", err)
		}

		report.CallsCreated = result.Created
		report.CallsSkipped = result.Skipped
		report.CallErrors = len(result.Errors)

		for _, e := range result.Errors {
			log.Printf("[Sync] call %d (%s) rejected: %s", e.Index, e.PhoneNumber, e.Error)
		}
	}

	contacts, contactsCursor, err := s.Client.PullContacts(ctx, state.ContactsSince)
	if err != nil {
		return report, fmt.Errorf("pull contacts: %w", err)
	}
	report.ContactsPulled = len(contacts)

	calls, callsCursor, err := s.Client.PullCalls(ctx, state.CallsSince)
	if err != nil {
		return report, fmt.Errorf("pull calls: %w", err)
	}
	report.CallsPulled = len(calls)

	state.ContactsSince = &contactsCursor
	state.CallsSince = &callsCursor

	if err := SaveState(s.StateFile, state); err != nil {
		return report, err
	}

	return report, nil
}

// LoadState reads the cursor file; a missing file is an empty state
func LoadState(path string) (SyncState, error) {
	var state SyncState

	if path == "" {
		return state, nil
	}

	err := readJSONFile(path, &state)
	if errors.Is(err, os.ErrNotExist) {
		return SyncState{}, nil
	}

	return state, err
}

func SaveState(path string, state SyncState) error {
	if path == "" {
		return nil
	}

	b, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, b, 0o600)
}

func readJSONFile(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}
