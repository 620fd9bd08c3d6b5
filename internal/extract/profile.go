package extract

import (
	"encoding/json"
	"fmt"
)

// AccountNotFound is the status code the profile endpoint reports for ids
// that don't belong to any account.
const AccountNotFound = -702

type profilePayload struct {
	ErrID      json.RawMessage `json:"p_o_ErrID"`
	HeaderInfo []profileHeader `json:"dsProfileHeaderInfo"`
}

type profileHeader struct {
	Nick *string `json:"NICK"`
}

// ParseProfileName returns the account name in a profile header payload.
// ok is false without an error when the account doesn't exist.
func ParseProfileName(raw []byte) (name string, ok bool, err error) {
	var payload profilePayload
	err = json.Unmarshal(raw, &payload)
	if err != nil {
		return "", false, invalidJSON(payload_profile, "", err)
	}

	if !isNull(payload.ErrID) {
		code, err := numberOf(payload_profile, "p_o_ErrID", payload.ErrID, 64)
		if err != nil {
			return "", false, err
		}
		if code == AccountNotFound {
			return "", false, nil
		}
	}

	if len(payload.HeaderInfo) == 0 {
		return "", false, &ParseError{
			Payload: payload_profile,
			Field:   "dsProfileHeaderInfo",
			Err:     fmt.Errorf("%w: no header entries", ErrMissingField),
		}
	}
	if payload.HeaderInfo[0].Nick == nil {
		return "", false, &ParseError{
			Payload: payload_profile,
			Field:   "dsProfileHeaderInfo[0].NICK",
			Err:     ErrMissingField,
		}
	}
	return *payload.HeaderInfo[0].Nick, true, nil
}
