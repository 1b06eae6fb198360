package domain

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

// Advice is the advisor's proposed trade for one cycle. It is an
// immutable input to validation; the amount stays a raw string until
// ParseAmount disambiguates its unit.
type Advice struct {
	Action string `json:"action"`
	Amount string `json:"amount"`
	Reason string `json:"reason"`
}

// ParseAdvice builds a validated Advice from a raw advisor response.
// Parsing is strict JSON only: the payload must be a well-formed object
// with exactly the expected keys. Free-form text around the object is
// limited to markdown code fences, which are stripped.
func ParseAdvice(raw string) (*Advice, error) {
	response := sanitizeAdvicePayload(raw)

	if !json.Valid([]byte(response)) {
		return nil, errors.New("invalid JSON structure")
	}

	dec := json.NewDecoder(strings.NewReader(response))
	dec.DisallowUnknownFields()

	var advice Advice
	if err := dec.Decode(&advice); err != nil {
		return nil, errors.Wrap(err, "JSON unmarshal error")
	}

	if err := advice.Validate(); err != nil {
		return nil, err
	}

	return &advice, nil
}

func sanitizeAdvicePayload(raw string) string {
	response := strings.TrimSpace(raw)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	return strings.TrimSpace(response)
}

// Validate validates the advice fields.
func (a *Advice) Validate() error {
	if a.Action == "" {
		return errors.New("action field is required")
	}
	if !isValidActionString(a.Action) {
		return errors.Errorf("invalid action: %s", a.Action)
	}
	if a.Reason == "" {
		return errors.New("reason field is required")
	}
	if a.Action != actionStringHold && strings.TrimSpace(a.Amount) == "" {
		return errors.Errorf("amount is required for action %s", a.Action)
	}
	return nil
}

// ToAction converts the advice action string to a typed Action.
func (a *Advice) ToAction() Action {
	action, _ := ActionFromString(a.Action)
	return action
}
