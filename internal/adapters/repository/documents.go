package repository

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/okian/teampulse/internal/domain/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary //nolint:gochecknoglobals // shared codec

// record is the common shape every stored document goes through.
type record interface {
	model.Scope | model.Member | model.TaskRecord | model.SubmissionRecord
}

func encode[T record](v T) ([]byte, error) {
	if err := validateRecord(v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return body, nil
}

func decode[T record](body []byte) (T, error) {
	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		return v, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	switch p := any(&v).(type) {
	case *model.TaskRecord:
		p.Normalize()
	case *model.Scope:
		p.Normalize()
	}
	if err := validateRecord(v); err != nil {
		return v, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return v, nil
}

func validateRecord(v any) error {
	switch r := v.(type) {
	case model.Scope:
		return r.Validate()
	case model.Member:
		return r.Validate()
	case model.TaskRecord:
		return r.Validate()
	case model.SubmissionRecord:
		return r.Validate()
	default:
		return fmt.Errorf("unsupported record %T", v)
	}
}
