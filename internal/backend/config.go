package backend

import (
	"fmt"

	"fintrack/internal/config"
	gsheet "fintrack/internal/sheets/google"
	"fintrack/internal/storage"
)

// EventsType names the broker ledger events travel over.
type EventsType string

const (
	EventsNone  EventsType = "none"
	EventsAMQP  EventsType = "amqp"
	EventsKafka EventsType = "kafka"
)

func (t EventsType) String() string {
	return string(t)
}

func (t EventsType) IsValid() bool {
	switch t {
	case EventsNone, EventsAMQP, EventsKafka:
		return true
	default:
		return false
	}
}

// CleanupFunc releases a resource opened by the factory.
type CleanupFunc func() error

// StorageConfig converts the application config to the repository config.
func StorageConfig(appConfig *config.Config) (storage.Config, error) {
	if appConfig == nil {
		return storage.Config{}, fmt.Errorf("app config is nil")
	}
	dialect, err := storage.ParseDialect(appConfig.DataBackend)
	if err != nil {
		return storage.Config{}, fmt.Errorf("invalid backend type in config: %w", err)
	}
	cfg := storage.Config{
		Dialect:     dialect,
		SQLitePath:  appConfig.SQLiteDBPath,
		PostgresDSN: appConfig.PostgresDSN,
	}
	switch dialect {
	case storage.SQLite:
		if cfg.SQLitePath == "" {
			return storage.Config{}, fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case storage.Postgres:
		if cfg.PostgresDSN == "" {
			return storage.Config{}, fmt.Errorf("postgres DSN is required for postgres backend")
		}
	}
	return cfg, nil
}

func eventsType(appConfig *config.Config) (EventsType, error) {
	t := EventsType(appConfig.EventsBackend)
	if t == "" {
		t = EventsNone
	}
	if !t.IsValid() {
		return "", fmt.Errorf("invalid events backend: %s", appConfig.EventsBackend)
	}
	return t, nil
}

// SheetsConfig extracts the journal export settings.
func SheetsConfig(appConfig *config.Config) gsheet.Config {
	return gsheet.Config{
		SpreadsheetID:      appConfig.GoogleSpreadsheetID,
		SheetName:          appConfig.GoogleSheetName,
		ServiceAccountFile: appConfig.GoogleServiceAccountFile,
		ServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
	}
}
