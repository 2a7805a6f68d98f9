package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/edgesoc/ids2-supervisor/internal/apperrors"
)

// envPlaceholderPrefix is the convention every field tagged `secret:"true"`
// must use: ENV:NAME, resolved against the process environment at load
// time. A secret field holding a bare literal, or an ENV: placeholder
// naming an empty/unset variable, fails the load.
const envPlaceholderPrefix = "ENV:"

// resolveSecrets walks cfg looking for string fields tagged `secret:"true"`
// and replaces each ENV:NAME placeholder with the named environment
// variable's value, in place.
func resolveSecrets(cfg *Config) error {
	return walkSecrets(reflect.ValueOf(cfg).Elem())
}

func walkSecrets(v reflect.Value) error {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		fv := v.Field(i)

		if fv.Kind() == reflect.Struct {
			if err := walkSecrets(fv); err != nil {
				return err
			}
			continue
		}

		if field.Tag.Get("secret") != "true" || fv.Kind() != reflect.String {
			continue
		}

		raw := fv.String()
		resolved, err := resolvePlaceholder(raw, field.Name)
		if err != nil {
			return err
		}
		fv.SetString(resolved)
	}
	return nil
}

// resolvePlaceholder requires raw to be of the form ENV:NAME and resolves
// NAME against the environment. An empty raw value is also accepted as
// "no secret configured" and passes through unchanged (some deployments
// legitimately omit optional credentials, e.g. OpenSearch fine-grained
// access control disabled).
func resolvePlaceholder(raw, fieldName string) (string, error) {
	if raw == "" {
		return "", nil
	}
	if !strings.HasPrefix(raw, envPlaceholderPrefix) {
		return "", fmt.Errorf("%w: field %s must use ENV:NAME, got literal value", apperrors.ErrConfigInvalid, fieldName)
	}
	name := strings.TrimPrefix(raw, envPlaceholderPrefix)
	if name == "" {
		return "", fmt.Errorf("%w: field %s has an empty ENV: placeholder", apperrors.ErrConfigInvalid, fieldName)
	}
	value := os.Getenv(name)
	if value == "" {
		return "", fmt.Errorf("%w: environment variable %s for field %s is unset or empty", apperrors.ErrMissingSecret, name, fieldName)
	}
	return value, nil
}
