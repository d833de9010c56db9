// Package rules fetches and caches the dynamic signing rule document.
//
// The rule document is a remotely hosted, periodically rotated JSON file
// describing how request signatures must be computed. It is a versioned
// external contract: unknown fields are ignored, missing required fields
// are a hard parse failure.
package rules

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrMissingField = errors.New("rules: missing required field")
	ErrInvalidIndex = errors.New("rules: negative checksum index")
)

// Rules is one immutable revision of the dynamic rule document.
// A refresh supersedes the value wholesale.
type Rules struct {
	AppToken         string `json:"app-token"`
	StaticParam      string `json:"static_param"`
	Prefix           string `json:"prefix"`
	Suffix           string `json:"suffix"`
	ChecksumConstant int    `json:"checksum_constant"`
	ChecksumIndexes  []int  `json:"checksum_indexes"`
}

// Parse decodes and validates one rule document.
func Parse(data []byte) (Rules, error) {
	var r Rules
	if err := json.Unmarshal(data, &r); err != nil {
		return Rules{}, fmt.Errorf("rules: parse failed: %w", err)
	}
	if err := r.Validate(); err != nil {
		return Rules{}, err
	}
	return r, nil
}

func (r Rules) Validate() error {
	if r.AppToken == "" {
		return fmt.Errorf("%w: app-token", ErrMissingField)
	}
	if r.StaticParam == "" {
		return fmt.Errorf("%w: static_param", ErrMissingField)
	}
	if r.Prefix == "" {
		return fmt.Errorf("%w: prefix", ErrMissingField)
	}
	if r.Suffix == "" {
		return fmt.Errorf("%w: suffix", ErrMissingField)
	}
	if len(r.ChecksumIndexes) == 0 {
		return fmt.Errorf("%w: checksum_indexes", ErrMissingField)
	}
	for _, idx := range r.ChecksumIndexes {
		if idx < 0 {
			return fmt.Errorf("%w: %d", ErrInvalidIndex, idx)
		}
	}
	return nil
}
