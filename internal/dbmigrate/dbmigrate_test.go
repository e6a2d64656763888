package dbmigrate

import (
	"context"
	"io/fs"
	"strings"
	"testing"

	"github.com/fdg312/nutricart/internal/config"
	"github.com/fdg312/nutricart/migrations"
)

func TestSelectDatabaseURL(t *testing.T) {
	tests := []struct {
		name          string
		cfg           config.Config
		requireDirect bool
		wantURL       string
		wantSource    string
		wantWarning   bool
		wantErr       bool
	}{
		{
			name:       "direct wins",
			cfg:        config.Config{DatabaseURLDirect: "postgres://direct", DatabaseURLRaw: "postgres://url", DatabaseURLPooled: "postgres://pooled"},
			wantURL:    "postgres://direct",
			wantSource: "DATABASE_URL_DIRECT",
		},
		{
			name:       "database url before pooled",
			cfg:        config.Config{DatabaseURLRaw: "postgres://url", DatabaseURLPooled: "postgres://pooled"},
			wantURL:    "postgres://url",
			wantSource: "DATABASE_URL",
		},
		{
			name:        "pooled warns",
			cfg:         config.Config{DatabaseURLPooled: "postgres://pooled"},
			wantURL:     "postgres://pooled",
			wantSource:  "DATABASE_URL_POOLED",
			wantWarning: true,
		},
		{
			name:          "require direct",
			cfg:           config.Config{DatabaseURLRaw: "postgres://url"},
			requireDirect: true,
			wantErr:       true,
		},
		{
			name:    "nothing configured",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url, source, warning, err := SelectDatabaseURL(&tt.cfg, tt.requireDirect)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if url != tt.wantURL || source != tt.wantSource {
				t.Fatalf("got %q from %s, want %q from %s", url, source, tt.wantURL, tt.wantSource)
			}
			if (warning != "") != tt.wantWarning {
				t.Fatalf("unexpected warning %q", warning)
			}
		})
	}
}

func TestRunRejectsBadInput(t *testing.T) {
	if err := Run(context.Background(), "up", ""); err == nil {
		t.Fatal("expected error for empty URL")
	}
	err := Run(context.Background(), "drop-everything", "postgres://localhost/db")
	if err == nil || !strings.Contains(err.Error(), "unknown migrate command") {
		t.Fatalf("expected unknown command error, got %v", err)
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	files, err := fs.Glob(migrations.FS, "*.sql")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(files) == 0 {
		t.Fatal("no migrations embedded")
	}
	data, _ := fs.ReadFile(migrations.FS, files[0])
	if !strings.Contains(string(data), "-- +goose Up") {
		t.Errorf("%s has no goose Up section", files[0])
	}
}
