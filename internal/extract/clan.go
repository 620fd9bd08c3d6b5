package extract

import (
	"errors"
	"regexp"
	"strconv"
)

var (
	winsRegex    = regexp.MustCompile(`<div class="match_details">(\d+)<br><span>Wins</span>`)
	lossesRegex  = regexp.MustCompile(`<div class="match_details">(\d+)<br><span>Losses</span>`)
	drawsRegex   = regexp.MustCompile(`<div class="match_details">(\d+)<br><span>Draws</span>`)
	membersRegex = regexp.MustCompile(`<div>(\d+).?Clan members`)
)

func matchUint(raw []byte, field string, pattern *regexp.Regexp, bits int) (uint64, error) {
	match := pattern.FindSubmatch(raw)
	if match == nil {
		return 0, &ParseError{Payload: payload_clan, Field: field, Err: ErrPatternNotFound}
	}
	n, err := strconv.ParseUint(string(match[1]), 10, bits)
	if err != nil {
		return 0, &ParseError{Payload: payload_clan, Field: field, Err: err}
	}
	return n, nil
}

// ParseClanStats reads the match record and member count from a clan page.
// Every value is matched on its own, the returned error joins one
// *ParseError per value that could not be read.
func ParseClanStats(raw []byte) (Clan, error) {
	var errlist []error

	wins, err := matchUint(raw, "wins", winsRegex, 16)
	if err != nil {
		errlist = append(errlist, err)
	}
	losses, err := matchUint(raw, "losses", lossesRegex, 16)
	if err != nil {
		errlist = append(errlist, err)
	}
	draws, err := matchUint(raw, "draws", drawsRegex, 16)
	if err != nil {
		errlist = append(errlist, err)
	}
	members, err := matchUint(raw, "members", membersRegex, 8)
	if err != nil {
		errlist = append(errlist, err)
	}

	if len(errlist) > 0 {
		return Clan{}, errors.Join(errlist...)
	}
	return Clan{
		Members: uint8(members),
		Wins:    uint16(wins),
		Losses:  uint16(losses),
		Draws:   uint16(draws),
	}, nil
}

// FailedFields lists the field of every *ParseError contained in err.
func FailedFields(err error) []string {
	if err == nil {
		return nil
	}
	var fields []string
	var parseErr *ParseError
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			fields = append(fields, FailedFields(e)...)
		}
		return fields
	}
	if errors.As(err, &parseErr) {
		fields = append(fields, parseErr.Field)
	}
	return fields
}
