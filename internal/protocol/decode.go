package protocol

import (
	"encoding/json"
	"fmt"
)

// Decode classifies one inbound text frame into the closed message set.
//
// Frames carry no discriminator field, so shapes are tried structurally in
// a fixed order: the liveness ack first, then each control shape, then the
// application tags. The first structural match wins; shapes can overlap,
// so the order is part of the contract.
func Decode(data []byte) (Message, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotJSON, err)
	}

	if raw, ok := fields["online"]; ok {
		var m Onlines
		if err := json.Unmarshal(raw, &m.Online); err != nil {
			return nil, fmt.Errorf("%w: online: %v", ErrFieldShape, err)
		}
		return m, nil
	}

	if raw, ok := fields["connected"]; ok {
		var m Connected
		if err := json.Unmarshal(raw, &m.Connected); err != nil {
			return nil, fmt.Errorf("%w: connected: %v", ErrFieldShape, err)
		}
		if v, ok := fields["v"]; ok {
			if err := json.Unmarshal(v, &m.Version); err != nil {
				return nil, fmt.Errorf("%w: v: %v", ErrFieldShape, err)
			}
		}
		return m, nil
	}

	if raw, ok := fields["error"]; ok {
		var m ErrorMessage
		if err := json.Unmarshal(raw, &m.Code); err != nil {
			return nil, fmt.Errorf("%w: error: %v", ErrFieldShape, err)
		}
		return m, nil
	}

	for _, tag := range appTags {
		if raw, ok := fields[tag]; ok {
			return AppMessage{Tag: tag, Payload: raw}, nil
		}
	}

	return nil, ErrUnknownShape
}
