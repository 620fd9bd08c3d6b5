// Package extract turns raw upstream payloads into typed values. Nothing in
// here performs I/O or keeps state.
package extract

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

type Member struct {
	ID           int32
	Name         string
	Exp          int64
	Contribution int32
}

type Clan struct {
	Members uint8
	Wins    uint16
	Losses  uint16
	Draws   uint16
}

const (
	payload_roster  = "roster"
	payload_profile = "profile"
	payload_clan    = "clan"
)

func invalidJSON(payload, field string, err error) *ParseError {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		if field != "" {
			field = field + "." + typeErr.Field
		} else {
			field = typeErr.Field
		}
	}
	return &ParseError{
		Payload: payload,
		Field:   field,
		Err:     fmt.Errorf("%w: %v", ErrInvalidJSON, err),
	}
}

// numberOf reads an integer field, quoted numbers and other non-number
// tokens are rejected.
func numberOf(payload, field string, value json.RawMessage, bits int) (int64, error) {
	if isNull(value) {
		return 0, &ParseError{Payload: payload, Field: field, Err: ErrMissingField}
	}
	token := bytes.TrimSpace(value)
	if token[0] != '-' && (token[0] < '0' || token[0] > '9') {
		return 0, &ParseError{
			Payload: payload,
			Field:   field,
			Err:     fmt.Errorf("%w: expected an integer, got %s", ErrInvalidJSON, token),
		}
	}
	n, err := strconv.ParseInt(string(token), 10, bits)
	if err != nil {
		return 0, &ParseError{Payload: payload, Field: field, Err: err}
	}
	return n, nil
}
