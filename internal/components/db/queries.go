package db

import (
	"context"
	"database/sql"
)

const getOpenMemberships = `-- name: GetOpenMemberships :many
SELECT ` + "`nr`, `id`, `from`, `to`" + ` FROM ` + "`membership`" + `
WHERE ` + "`to`" + ` IS NULL
ORDER BY ` + "`id`, `nr`"

func (q *Queries) GetOpenMemberships(ctx context.Context) ([]Membership, error) {
	rows, err := q.db.QueryContext(ctx, getOpenMemberships)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Membership
	for rows.Next() {
		var i Membership
		if err := rows.Scan(&i.Nr, &i.ID, &i.From, &i.To); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getOpenTrials = `-- name: GetOpenTrials :many
SELECT ` + "`id`, `from`, `to`" + ` FROM ` + "`member_trial`" + `
WHERE ` + "`to`" + ` IS NULL
ORDER BY ` + "`id`, `from`"

func (q *Queries) GetOpenTrials(ctx context.Context) ([]MemberTrial, error) {
	rows, err := q.db.QueryContext(ctx, getOpenTrials)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MemberTrial
	for rows.Next() {
		var i MemberTrial
		if err := rows.Scan(&i.ID, &i.From, &i.To); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getMembership = `-- name: GetMembership :one
SELECT ` + "`nr`, `id`, `from`, `to`" + ` FROM ` + "`membership`" + `
WHERE ` + "`nr`" + ` = ?`

func (q *Queries) GetMembership(ctx context.Context, nr int64) (Membership, error) {
	row := q.db.QueryRowContext(ctx, getMembership, nr)
	var i Membership
	err := row.Scan(&i.Nr, &i.ID, &i.From, &i.To)
	return i, err
}

const createMembership = `-- name: CreateMembership :execlastid
INSERT INTO ` + "`membership` (`id`, `from`)" + ` VALUES (?, ?)`

type CreateMembershipParams struct {
	ID   int64
	From string
}

func (q *Queries) CreateMembership(ctx context.Context, arg CreateMembershipParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, createMembership, arg.ID, arg.From)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

const closeMembership = `-- name: CloseMembership :execrows
UPDATE ` + "`membership`" + ` SET ` + "`to`" + ` = ?
WHERE ` + "`nr`" + ` = ? AND ` + "`to`" + ` IS NULL`

type CloseMembershipParams struct {
	To string
	Nr int64
}

func (q *Queries) CloseMembership(ctx context.Context, arg CloseMembershipParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, closeMembership, arg.To, arg.Nr)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const createMembershipCause = `-- name: CreateMembershipCause :exec
INSERT INTO ` + "`membership_cause` (`nr`, `kicked`, `cause`)" + ` VALUES (?, ?, ?)`

type CreateMembershipCauseParams struct {
	Nr     int64
	Kicked bool
	Cause  sql.NullString
}

func (q *Queries) CreateMembershipCause(ctx context.Context, arg CreateMembershipCauseParams) error {
	_, err := q.db.ExecContext(ctx, createMembershipCause, arg.Nr, arg.Kicked, arg.Cause)
	return err
}

const upsertMembershipCause = `-- name: UpsertMembershipCause :exec
INSERT INTO ` + "`membership_cause` (`nr`, `kicked`, `cause`)" + ` VALUES (?, ?, ?)
ON CONFLICT (` + "`nr`" + `) DO UPDATE SET
    ` + "`kicked`" + ` = excluded.` + "`kicked`" + `,
    ` + "`cause`" + ` = excluded.` + "`cause`"

type UpsertMembershipCauseParams struct {
	Nr     int64
	Kicked bool
	Cause  sql.NullString
}

func (q *Queries) UpsertMembershipCause(ctx context.Context, arg UpsertMembershipCauseParams) error {
	_, err := q.db.ExecContext(ctx, upsertMembershipCause, arg.Nr, arg.Kicked, arg.Cause)
	return err
}

const createTrial = `-- name: CreateTrial :exec
INSERT INTO ` + "`member_trial` (`id`, `from`)" + ` VALUES (?, ?)`

type CreateTrialParams struct {
	ID   int64
	From string
}

func (q *Queries) CreateTrial(ctx context.Context, arg CreateTrialParams) error {
	_, err := q.db.ExecContext(ctx, createTrial, arg.ID, arg.From)
	return err
}

const closeTrial = `-- name: CloseTrial :execrows
UPDATE ` + "`member_trial`" + ` SET ` + "`to`" + ` = ?
WHERE ` + "`id`" + ` = ? AND ` + "`to`" + ` IS NULL`

type CloseTrialParams struct {
	To string
	ID int64
}

func (q *Queries) CloseTrial(ctx context.Context, arg CloseTrialParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, closeTrial, arg.To, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const upsertMemberStat = `-- name: UpsertMemberStat :exec
INSERT INTO ` + "`member` (`id`, `date`, `exp`, `cp`)" + ` VALUES (?, ?, ?, ?)
ON CONFLICT (` + "`id`, `date`" + `) DO UPDATE SET
    ` + "`exp`" + ` = excluded.` + "`exp`" + `,
    ` + "`cp`" + ` = excluded.` + "`cp`"

type UpsertMemberStatParams struct {
	ID   int64
	Date string
	Exp  int64
	Cp   int64
}

func (q *Queries) UpsertMemberStat(ctx context.Context, arg UpsertMemberStatParams) error {
	_, err := q.db.ExecContext(ctx, upsertMemberStat, arg.ID, arg.Date, arg.Exp, arg.Cp)
	return err
}

const upsertMemberName = `-- name: UpsertMemberName :exec
INSERT INTO ` + "`member_names` (`id`, `name`, `date`, `updated`)" + ` VALUES (?, ?, ?, ?)
ON CONFLICT (` + "`id`, `name`" + `) DO UPDATE SET
    ` + "`updated`" + ` = excluded.` + "`updated`"

type UpsertMemberNameParams struct {
	ID   int64
	Name string
	Date string
}

func (q *Queries) UpsertMemberName(ctx context.Context, arg UpsertMemberNameParams) error {
	_, err := q.db.ExecContext(ctx, upsertMemberName, arg.ID, arg.Name, arg.Date, arg.Date)
	return err
}

const upsertClanStat = `-- name: UpsertClanStat :exec
INSERT INTO ` + "`clan` (`date`, `wins`, `losses`, `draws`, `members`)" + ` VALUES (?, ?, ?, ?, ?)
ON CONFLICT (` + "`date`" + `) DO UPDATE SET
    ` + "`wins`" + ` = excluded.` + "`wins`" + `,
    ` + "`losses`" + ` = excluded.` + "`losses`" + `,
    ` + "`draws`" + ` = excluded.` + "`draws`" + `,
    ` + "`members`" + ` = excluded.` + "`members`"

type UpsertClanStatParams struct {
	Date    string
	Wins    int64
	Losses  int64
	Draws   int64
	Members int64
}

func (q *Queries) UpsertClanStat(ctx context.Context, arg UpsertClanStatParams) error {
	_, err := q.db.ExecContext(ctx, upsertClanStat, arg.Date, arg.Wins, arg.Losses, arg.Draws, arg.Members)
	return err
}

const getSetting = `-- name: GetSetting :one
SELECT ` + "`value`" + ` FROM ` + "`settings`" + ` WHERE ` + "`key`" + ` = ?`

func (q *Queries) GetSetting(ctx context.Context, key string) (string, error) {
	row := q.db.QueryRowContext(ctx, getSetting, key)
	var value string
	err := row.Scan(&value)
	return value, err
}

const setSetting = `-- name: SetSetting :exec
INSERT INTO ` + "`settings` (`key`, `value`)" + ` VALUES (?, ?)
ON CONFLICT (` + "`key`" + `) DO UPDATE SET ` + "`value`" + ` = excluded.` + "`value`"

type SetSettingParams struct {
	Key   string
	Value string
}

func (q *Queries) SetSetting(ctx context.Context, arg SetSettingParams) error {
	_, err := q.db.ExecContext(ctx, setSetting, arg.Key, arg.Value)
	return err
}

const deleteSetting = `-- name: DeleteSetting :exec
DELETE FROM ` + "`settings`" + ` WHERE ` + "`key`" + ` = ?`

func (q *Queries) DeleteSetting(ctx context.Context, key string) error {
	_, err := q.db.ExecContext(ctx, deleteSetting, key)
	return err
}

const insertLog = `-- name: InsertLog :exec
INSERT INTO ` + "`log` (`date`, `msg`)" + ` VALUES (?, ?)`

type InsertLogParams struct {
	Date string
	Msg  string
}

func (q *Queries) InsertLog(ctx context.Context, arg InsertLogParams) error {
	_, err := q.db.ExecContext(ctx, insertLog, arg.Date, arg.Msg)
	return err
}

const getLogs = `-- name: GetLogs :many
SELECT ` + "`date`, `msg`" + ` FROM ` + "`log`" + `
ORDER BY ` + "`rowid`" + ` DESC
LIMIT ?`

func (q *Queries) GetLogs(ctx context.Context, limit int64) ([]Log, error) {
	rows, err := q.db.QueryContext(ctx, getLogs, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Log
	for rows.Next() {
		var i Log
		if err := rows.Scan(&i.Date, &i.Msg); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getMemberships = `-- name: GetMemberships :many
SELECT m.` + "`nr`" + `, m.` + "`id`" + `, m.` + "`from`" + `, m.` + "`to`" + `, c.` + "`kicked`" + `, c.` + "`cause`" + `
FROM ` + "`membership`" + ` m
LEFT JOIN ` + "`membership_cause`" + ` c ON c.` + "`nr`" + ` = m.` + "`nr`" + `
WHERE m.` + "`id`" + ` = ?
ORDER BY m.` + "`from`" + `, m.` + "`nr`"

type GetMembershipsRow struct {
	Nr     int64
	ID     int64
	From   string
	To     sql.NullString
	Kicked sql.NullBool
	Cause  sql.NullString
}

func (q *Queries) GetMemberships(ctx context.Context, id int64) ([]GetMembershipsRow, error) {
	rows, err := q.db.QueryContext(ctx, getMemberships, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []GetMembershipsRow
	for rows.Next() {
		var i GetMembershipsRow
		if err := rows.Scan(&i.Nr, &i.ID, &i.From, &i.To, &i.Kicked, &i.Cause); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getMembershipChanges = `-- name: GetMembershipChanges :many
SELECT m.` + "`nr`" + `, m.` + "`id`" + `, m.` + "`from`" + `, m.` + "`to`" + `, c.` + "`kicked`" + `, c.` + "`cause`" + `,
    (
        SELECT n.` + "`name`" + ` FROM ` + "`member_names`" + ` n
        WHERE n.` + "`id`" + ` = m.` + "`id`" + `
        ORDER BY n.` + "`updated`" + ` DESC
        LIMIT 1
    ) AS ` + "`name`" + `
FROM ` + "`membership`" + ` m
LEFT JOIN ` + "`membership_cause`" + ` c ON c.` + "`nr`" + ` = m.` + "`nr`" + `
WHERE m.` + "`from`" + ` >= ?1 OR m.` + "`to`" + ` >= ?1
ORDER BY COALESCE(m.` + "`to`" + `, m.` + "`from`" + `), m.` + "`nr`"

type GetMembershipChangesRow struct {
	Nr     int64
	ID     int64
	From   string
	To     sql.NullString
	Kicked sql.NullBool
	Cause  sql.NullString
	Name   sql.NullString
}

func (q *Queries) GetMembershipChanges(ctx context.Context, since string) ([]GetMembershipChangesRow, error) {
	rows, err := q.db.QueryContext(ctx, getMembershipChanges, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []GetMembershipChangesRow
	for rows.Next() {
		var i GetMembershipChangesRow
		if err := rows.Scan(&i.Nr, &i.ID, &i.From, &i.To, &i.Kicked, &i.Cause, &i.Name); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getOpenMembers = `-- name: GetOpenMembers :many
SELECT ` + "`nr`, `id`, `from`, `name`" + ` FROM ` + "`member_open`" + `
ORDER BY ` + "`id`"

func (q *Queries) GetOpenMembers(ctx context.Context) ([]MemberOpen, error) {
	rows, err := q.db.QueryContext(ctx, getOpenMembers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MemberOpen
	for rows.Next() {
		var i MemberOpen
		if err := rows.Scan(&i.Nr, &i.ID, &i.From, &i.Name); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getTrials = `-- name: GetTrials :many
SELECT ` + "`id`, `from`, `to`" + ` FROM ` + "`member_trial`" + `
WHERE ` + "`id`" + ` = ?
ORDER BY ` + "`from`"

func (q *Queries) GetTrials(ctx context.Context, id int64) ([]MemberTrial, error) {
	rows, err := q.db.QueryContext(ctx, getTrials, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MemberTrial
	for rows.Next() {
		var i MemberTrial
		if err := rows.Scan(&i.ID, &i.From, &i.To); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getMemberStats = `-- name: GetMemberStats :many
SELECT ` + "`id`, `date`, `exp`, `cp`" + ` FROM ` + "`member`" + `
WHERE ` + "`date`" + ` = ?
ORDER BY ` + "`id`"

func (q *Queries) GetMemberStats(ctx context.Context, date string) ([]Member, error) {
	rows, err := q.db.QueryContext(ctx, getMemberStats, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Member
	for rows.Next() {
		var i Member
		if err := rows.Scan(&i.ID, &i.Date, &i.Exp, &i.Cp); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getClanStat = `-- name: GetClanStat :one
SELECT ` + "`date`, `wins`, `losses`, `draws`, `members`" + ` FROM ` + "`clan`" + `
WHERE ` + "`date`" + ` = ?`

func (q *Queries) GetClanStat(ctx context.Context, date string) (Clan, error) {
	row := q.db.QueryRowContext(ctx, getClanStat, date)
	var i Clan
	err := row.Scan(&i.Date, &i.Wins, &i.Losses, &i.Draws, &i.Members)
	return i, err
}

const getMultipleOpenMemberships = `-- name: GetMultipleOpenMemberships :many
SELECT ` + "`id`" + ` FROM ` + "`membership`" + `
WHERE ` + "`to`" + ` IS NULL
GROUP BY ` + "`id`" + `
HAVING COUNT(*) > 1
ORDER BY ` + "`id`"

func (q *Queries) GetMultipleOpenMemberships(ctx context.Context) ([]int64, error) {
	rows, err := q.db.QueryContext(ctx, getMultipleOpenMemberships)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		items = append(items, id)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getCauseMismatches = `-- name: GetCauseMismatches :many
SELECT m.` + "`nr`" + ` FROM ` + "`membership`" + ` m
LEFT JOIN ` + "`membership_cause`" + ` c ON c.` + "`nr`" + ` = m.` + "`nr`" + `
WHERE (m.` + "`to`" + ` IS NULL AND c.` + "`nr`" + ` IS NOT NULL)
    OR (m.` + "`to`" + ` IS NOT NULL AND c.` + "`nr`" + ` IS NULL)
ORDER BY m.` + "`nr`"

// GetCauseMismatches lists periods that are open with a cause or closed without one.
func (q *Queries) GetCauseMismatches(ctx context.Context) ([]int64, error) {
	rows, err := q.db.QueryContext(ctx, getCauseMismatches)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []int64
	for rows.Next() {
		var nr int64
		if err := rows.Scan(&nr); err != nil {
			return nil, err
		}
		items = append(items, nr)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getMemberNames = `-- name: GetMemberNames :many
SELECT ` + "`id`, `name`, `date`, `updated`" + ` FROM ` + "`member_names`" + `
ORDER BY ` + "`id`, `updated`" + ` DESC`

func (q *Queries) GetMemberNames(ctx context.Context) ([]MemberName, error) {
	rows, err := q.db.QueryContext(ctx, getMemberNames)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MemberName
	for rows.Next() {
		var i MemberName
		if err := rows.Scan(&i.ID, &i.Name, &i.Date, &i.Updated); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
