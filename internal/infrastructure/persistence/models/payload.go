package models

import (
	"encoding/json"
	"fmt"

	"github.com/agrocredit/backend/internal/domain/shared"
)

func encodePayload[T any](p shared.Payload[T]) ([]byte, error) {
	if p.IsEmpty() {
		return nil, nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	return b, nil
}

func decodePayload[T any](b []byte) (shared.Payload[T], error) {
	var p shared.Payload[T]
	if len(b) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(b, &p); err != nil {
		return p, fmt.Errorf("failed to decode payload: %w", err)
	}
	return p, nil
}
