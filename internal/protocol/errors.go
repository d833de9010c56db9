package protocol

import "errors"

var (
	ErrNotJSON      = errors.New("protocol: frame is not valid JSON")
	ErrUnknownShape = errors.New("protocol: frame matches no known shape")
	ErrFieldShape   = errors.New("protocol: field has unexpected shape")
)
