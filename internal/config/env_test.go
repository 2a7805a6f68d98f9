package config

import (
	"errors"
	"testing"

	"github.com/edgesoc/ids2-supervisor/internal/apperrors"
)

func TestResolvePlaceholder(t *testing.T) {
	t.Parallel()

	t.Setenv("IDS2_TEST_SECRET", "s3cr3t")
	t.Setenv("IDS2_TEST_EMPTY", "")

	cases := []struct {
		name    string
		raw     string
		want    string
		wantErr error
	}{
		{"empty is optional", "", "", nil},
		{"resolves set variable", "ENV:IDS2_TEST_SECRET", "s3cr3t", nil},
		{"unset variable fails", "ENV:IDS2_DOES_NOT_EXIST", "", apperrors.ErrMissingSecret},
		{"empty variable fails", "ENV:IDS2_TEST_EMPTY", "", apperrors.ErrMissingSecret},
		{"literal value rejected", "not-a-placeholder", "", apperrors.ErrConfigInvalid},
		{"empty placeholder name rejected", "ENV:", "", apperrors.ErrConfigInvalid},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := resolvePlaceholder(c.raw, "TestField")
			if c.wantErr != nil {
				if !errors.Is(err, c.wantErr) {
					t.Fatalf("resolvePlaceholder(%q) error = %v, want wrapping %v", c.raw, err, c.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("resolvePlaceholder(%q) unexpected error: %v", c.raw, err)
			}
			if got != c.want {
				t.Errorf("resolvePlaceholder(%q) = %q, want %q", c.raw, got, c.want)
			}
		})
	}
}

func TestResolveSecretsWalksNestedStructs(t *testing.T) {
	t.Setenv("IDS2_OS_USER", "admin")
	t.Setenv("IDS2_OS_PASS", "hunter2")

	cfg := defaultConfig()
	cfg.Credentials.OpenSearchMasterUser = "ENV:IDS2_OS_USER"
	cfg.Credentials.OpenSearchMasterPass = "ENV:IDS2_OS_PASS"
	cfg.Git.AuthorName = "ENV:IDS2_OS_USER"

	if err := resolveSecrets(cfg); err != nil {
		t.Fatalf("resolveSecrets: %v", err)
	}
	if cfg.Credentials.OpenSearchMasterUser != "admin" {
		t.Errorf("OpenSearchMasterUser = %q, want admin", cfg.Credentials.OpenSearchMasterUser)
	}
	if cfg.Credentials.OpenSearchMasterPass != "hunter2" {
		t.Errorf("OpenSearchMasterPass = %q, want hunter2", cfg.Credentials.OpenSearchMasterPass)
	}
	if cfg.Git.AuthorName != "admin" {
		t.Errorf("Git.AuthorName = %q, want admin", cfg.Git.AuthorName)
	}
}

func TestResolveSecretsFailsClosedOnMissingVariable(t *testing.T) {
	cfg := defaultConfig()
	cfg.Credentials.OpenSearchMasterUser = "ENV:IDS2_DEFINITELY_UNSET_VAR"

	err := resolveSecrets(cfg)
	if !errors.Is(err, apperrors.ErrMissingSecret) {
		t.Fatalf("resolveSecrets error = %v, want wrapping ErrMissingSecret", err)
	}
}
