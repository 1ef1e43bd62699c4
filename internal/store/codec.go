package store

import (
	"encoding/json"
	"fmt"
	"time"

	"basegraph.app/intake/internal/model"
)

const envelopeVersion = 1

// envelope is the serialized form of a session. The payload is kept raw
// until the stage tag says which concrete type to decode it into.
type envelope struct {
	Version   int             `json:"v"`
	ID        int64           `json:"id"`
	Identity  model.Identity  `json:"identity"`
	Stage     model.Stage     `json:"stage"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func encodeSession(s *model.Session) ([]byte, error) {
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session: %w", err)
	}

	payload, err := json.Marshal(s.Payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	return json.Marshal(envelope{
		Version:   envelopeVersion,
		ID:        s.ID,
		Identity:  s.Identity,
		Stage:     s.Stage,
		Payload:   payload,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	})
}

// decodeSession never returns a session whose payload disagrees with its
// stage. Every failure wraps ErrSessionCorrupt.
func decodeSession(data []byte) (*model.Session, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionCorrupt, err)
	}
	if env.Version != envelopeVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrSessionCorrupt, env.Version)
	}

	payload, err := decodePayload(env.Stage, env.Payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionCorrupt, err)
	}

	s := &model.Session{
		ID:        env.ID,
		Identity:  env.Identity,
		Stage:     env.Stage,
		Payload:   payload,
		CreatedAt: env.CreatedAt,
		UpdatedAt: env.UpdatedAt,
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionCorrupt, err)
	}
	return s, nil
}

func decodePayload(stage model.Stage, raw json.RawMessage) (model.Payload, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, fmt.Errorf("stage %q has no payload", stage)
	}

	switch stage {
	case model.StageParsed:
		return unmarshalPayload[model.ParsedDraft](raw)
	case model.StageProjectSelection:
		return unmarshalPayload[model.ProjectSelection](raw)
	case model.StageIssueTypeSelection:
		return unmarshalPayload[model.IssueTypeSelection](raw)
	case model.StageFieldInput:
		return unmarshalPayload[model.FieldInput](raw)
	case model.StageDuplicateCheck:
		return unmarshalPayload[model.DuplicateCheck](raw)
	case model.StageReadyToCreate:
		return unmarshalPayload[model.ReadyToCreate](raw)
	case model.StageCreated:
		return unmarshalPayload[model.Created](raw)
	default:
		return nil, fmt.Errorf("unknown stage %q", stage)
	}
}

func unmarshalPayload[T model.Payload](raw json.RawMessage) (model.Payload, error) {
	var p T
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode %T: %w", p, err)
	}
	return p, nil
}
