package db

import "database/sql"

type Member struct {
	ID   int64
	Date string
	Exp  int64
	Cp   int64
}

type MemberName struct {
	ID      int64
	Name    string
	Date    string
	Updated string
}

type Clan struct {
	Date    string
	Wins    int64
	Losses  int64
	Draws   int64
	Members int64
}

type Membership struct {
	Nr   int64
	ID   int64
	From string
	To   sql.NullString
}

type MembershipCause struct {
	Nr     int64
	Kicked bool
	Cause  sql.NullString
}

type MemberTrial struct {
	ID   int64
	From string
	To   sql.NullString
}

type MemberOpen struct {
	Nr   int64
	ID   int64
	From string
	Name sql.NullString
}

type Log struct {
	Date string
	Msg  string
}
