package tools

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/vitacare-orchestrator/internal/apperr"
	"github.com/hackgods/vitacare-orchestrator/internal/scheduling"
)

var (
	errInvalidID       = apperr.New(apperr.InvalidInput, "Invalid ID format provided.")
	errInvalidDateTime = apperr.New(apperr.InvalidInput, "Invalid date/time format.")
)

func stringArg(args map[string]any, name string, required bool) (string, error) {
	raw, ok := args[name]
	if !ok || raw == nil {
		if required {
			return "", apperr.New(apperr.InvalidInput, fmt.Sprintf("%s is required.", name))
		}
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", apperr.New(apperr.InvalidInput, fmt.Sprintf("%s must be a string.", name))
	}
	s = strings.TrimSpace(s)
	if s == "" && required {
		return "", apperr.New(apperr.InvalidInput, fmt.Sprintf("%s is required.", name))
	}
	return s, nil
}

func uuidArg(args map[string]any, name string) (uuid.UUID, error) {
	s, err := stringArg(args, name, true)
	if err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, errInvalidID
	}
	return id, nil
}

func optionalUUIDArg(args map[string]any, name string) (*uuid.UUID, error) {
	s, err := stringArg(args, name, false)
	if err != nil || s == "" {
		return nil, err
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, errInvalidID
	}
	return &id, nil
}

// timeArg reads the first present name. Zone-less values are read in loc.
func timeArg(args map[string]any, loc *time.Location, names ...string) (time.Time, error) {
	var s string
	for _, name := range names {
		v, err := stringArg(args, name, false)
		if err != nil {
			return time.Time{}, err
		}
		if v != "" {
			s = v
			break
		}
	}
	if s == "" {
		return time.Time{}, apperr.New(apperr.InvalidInput, fmt.Sprintf("%s is required.", names[0]))
	}
	t, err := scheduling.ParseDateTime(s, loc)
	if err != nil {
		return time.Time{}, errInvalidDateTime
	}
	return t, nil
}
