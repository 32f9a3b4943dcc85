// Package preferences stores unit-wide scalar settings such as the UI language.
package preferences

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mashael7430-ux/MPADCS/pkg/auth"
	"github.com/mashael7430-ux/MPADCS/pkg/enums"
	pkgerrors "github.com/mashael7430-ux/MPADCS/pkg/errors"
	"github.com/mashael7430-ux/MPADCS/pkg/logger"
)

const (
	KeyLang     = "lang"
	LangEnglish = "en"
	LangArabic  = "ar"

	maxKeyLen   = 64
	maxValueLen = 4096
)

// defaults are returned for known keys that were never saved.
var defaults = map[string]json.RawMessage{
	KeyLang: json.RawMessage(`"en"`),
}

type Service struct {
	repo Repository
	logg *logger.Logger
}

func NewService(repo Repository, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("preferences repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{repo: repo, logg: logg}, nil
}

// Load returns the stored value, the default for a known key, or NOT_FOUND.
func (s *Service) Load(ctx context.Context, actor auth.Actor, key string) (json.RawMessage, error) {
	if err := actor.Require(enums.CapabilityView); err != nil {
		return nil, err
	}
	key, err := normalizeKey(key)
	if err != nil {
		return nil, err
	}
	value, ok, err := s.repo.Load(ctx, key)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load preference")
	}
	if ok {
		return value, nil
	}
	if def, known := defaults[key]; known {
		return def, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "preference not found").
		WithDetails(map[string]any{"key": key})
}

// Save validates and stores value. The lang key only accepts en or ar.
func (s *Service) Save(ctx context.Context, actor auth.Actor, key string, value json.RawMessage) error {
	if err := actor.Require(enums.CapabilityView); err != nil {
		return err
	}
	key, err := normalizeKey(key)
	if err != nil {
		return err
	}
	if len(value) == 0 || len(value) > maxValueLen || !json.Valid(value) {
		return pkgerrors.New(pkgerrors.CodeValidation, "preference value must be valid json").
			WithDetails(map[string]any{"key": key})
	}
	if key == KeyLang {
		var lang string
		if err := json.Unmarshal(value, &lang); err != nil || (lang != LangEnglish && lang != LangArabic) {
			return pkgerrors.New(pkgerrors.CodeValidation, "lang must be en or ar")
		}
	}
	if err := s.repo.Save(ctx, key, value); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save preference")
	}
	s.logg.Debug(s.logg.WithField(ctx, "key", key), "preference saved")
	return nil
}

func normalizeKey(key string) (string, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" || len(key) > maxKeyLen {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "preference key required")
	}
	return key, nil
}
