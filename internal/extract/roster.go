package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MarkerField is only present on records of accounts that currently hold a
// position in the clan, the roster endpoint also lists other account types.
const MarkerField = "position_title"

type rosterPayload struct {
	TotalCount json.RawMessage   `json:"Total_Count"`
	Members    []json.RawMessage `json:"members"`
}

type rosterMarker struct {
	PositionTitle json.RawMessage `json:"position_title"`
}

type rosterRecord struct {
	Name         *string         `json:"name"`
	USN          json.RawMessage `json:"USN"`
	XpPoint      json.RawMessage `json:"xp_point"`
	Contribution json.RawMessage `json:"contribution"`
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func isMember(raw json.RawMessage) bool {
	var marker rosterMarker
	// records that are not objects can't carry the marker
	if err := json.Unmarshal(raw, &marker); err != nil {
		return false
	}
	return !isNull(marker.PositionTitle)
}

// ParseRoster returns the current members in a roster listing along with the
// listing's total count. Records without the marker field are skipped, a
// marked record that lacks any required field fails the whole call.
func ParseRoster(raw []byte) ([]Member, int32, error) {
	var payload rosterPayload
	err := json.Unmarshal(raw, &payload)
	if err != nil {
		return nil, 0, invalidJSON(payload_roster, "", err)
	}

	total, err := numberOf(payload_roster, "Total_Count", payload.TotalCount, 32)
	if err != nil {
		return nil, 0, err
	}

	members := []Member{}
	for i, record := range payload.Members {
		if !isMember(record) {
			continue
		}
		member, err := parseRosterRecord(fmt.Sprintf("members[%d]", i), record)
		if err != nil {
			return nil, 0, err
		}
		members = append(members, member)
	}

	return members, int32(total), nil
}

func parseRosterRecord(path string, raw json.RawMessage) (Member, error) {
	var record rosterRecord
	err := json.Unmarshal(raw, &record)
	if err != nil {
		return Member{}, invalidJSON(payload_roster, path, err)
	}

	if record.Name == nil {
		return Member{}, &ParseError{Payload: payload_roster, Field: path + ".name", Err: ErrMissingField}
	}
	id, err := numberOf(payload_roster, path+".USN", record.USN, 32)
	if err != nil {
		return Member{}, err
	}
	exp, err := numberOf(payload_roster, path+".xp_point", record.XpPoint, 64)
	if err != nil {
		return Member{}, err
	}
	contribution, err := numberOf(payload_roster, path+".contribution", record.Contribution, 32)
	if err != nil {
		return Member{}, err
	}

	return Member{
		ID:           int32(id),
		Name:         *record.Name,
		Exp:          exp,
		Contribution: int32(contribution),
	}, nil
}
