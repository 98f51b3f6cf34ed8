package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/signflow/internal/canon"
	"github.com/roach88/signflow/internal/identity"
	"github.com/roach88/signflow/internal/model"
	"github.com/roach88/signflow/internal/remote"
)

// ErrNotFound is returned when the agreement id is unknown. It is the
// remote.ErrNotFound sentinel, so callers can match either.
var ErrNotFound = remote.ErrNotFound

// ErrInvalid is returned when a payload violates a storage constraint.
var ErrInvalid = errors.New("store: invalid payload")

var _ remote.Service = (*Store)(nil)

// Summary is one row of ListAgreements.
type Summary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	PageCount int    `json:"page_count"`
	Signers   int    `json:"signers"`
	Fields    int    `json:"fields"`
}

// CreateAgreement inserts an empty agreement and returns its id.
func (s *Store) CreateAgreement(ctx context.Context, title string, pages int) (string, error) {
	if pages < 1 {
		return "", fmt.Errorf("%w: page count %d", ErrInvalid, pages)
	}
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate agreement id: %w", err)
	}

	now := s.timestamp()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO agreements (id, title, page_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, id.String(), strings.TrimSpace(title), pages, now, now)
	if err != nil {
		return "", fmt.Errorf("write agreement: %w", err)
	}
	return id.String(), nil
}

// GetAgreement reads the full agreement. Signers come back ordered by step
// and fields in the order they were last synced.
func (s *Store) GetAgreement(ctx context.Context, id string) (*remote.Agreement, error) {
	var (
		a                   remote.Agreement
		endDate, signBefore sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, page_count, end_date, sign_before, sequence
		FROM agreements
		WHERE id = ?
	`, id).Scan(&a.Metadata.ID, &a.Metadata.Title, &a.PageCount, &endDate, &signBefore, &a.Metadata.Dates.Sequence)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read agreement: %w", err)
	}
	if a.Metadata.Dates.EndDate, err = parseTime(endDate); err != nil {
		return nil, fmt.Errorf("read agreement end_date: %w", err)
	}
	if a.Metadata.Dates.SignBefore, err = parseTime(signBefore); err != nil {
		return nil, fmt.Errorf("read agreement sign_before: %w", err)
	}

	if a.Signers, err = s.readSigners(ctx, s.db, id); err != nil {
		return nil, err
	}
	if a.InputFields, err = s.readFields(ctx, s.db, id); err != nil {
		return nil, err
	}
	return &a, nil
}

// ListAgreements returns every agreement ordered by creation time.
func (s *Store) ListAgreements(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.id, a.title, a.page_count,
			(SELECT COUNT(*) FROM signers WHERE agreement_id = a.id),
			(SELECT COUNT(*) FROM fields WHERE agreement_id = a.id)
		FROM agreements a
		ORDER BY a.created_at ASC, a.id ASC COLLATE BINARY
	`)
	if err != nil {
		return nil, fmt.Errorf("list agreements: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sm Summary
		if err := rows.Scan(&sm.ID, &sm.Title, &sm.PageCount, &sm.Signers, &sm.Fields); err != nil {
			return nil, fmt.Errorf("scan agreement: %w", err)
		}
		out = append(out, sm)
	}
	return out, rows.Err()
}

// SyncSigners replaces the signer collection. Steps are taken from payload
// order. It returns the server id of every signer in the payload.
func (s *Store) SyncSigners(ctx context.Context, id string, signers []model.Signer) (identity.IDMap, error) {
	rows := make([]model.Signer, len(signers))
	for i, sg := range signers {
		if sg.UID == "" {
			return nil, fmt.Errorf("%w: signer %d has no uid", ErrInvalid, i+1)
		}
		role, err := model.ParseRole(string(sg.Role))
		if err != nil {
			return nil, fmt.Errorf("%w: signer %s: %v", ErrInvalid, sg.UID, err)
		}
		sg = model.Normalize(sg)
		sg.Role = role
		sg.Step = i + 1
		sg.ServerID = 0
		rows[i] = sg
	}

	hash, err := canon.Hash(canon.DomainSigners, rows)
	if err != nil {
		return nil, err
	}

	var ids identity.IDMap
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		stored, _, err := agreementHashes(ctx, tx, id, "signers_hash")
		if err != nil {
			return err
		}
		if stored == hash {
			ids, err = readIDs(ctx, tx, "signers", id, uidsOf(rows, identity.SignerKey))
			return err
		}

		ids = make(identity.IDMap, len(rows))
		for _, sg := range rows {
			var sid model.ServerID
			err := tx.QueryRowContext(ctx, `
				INSERT INTO signers (agreement_id, uid, step, role, color_tag, name, email, reminder_days)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT (agreement_id, uid) DO UPDATE SET
					step = excluded.step,
					role = excluded.role,
					color_tag = excluded.color_tag,
					name = excluded.name,
					email = excluded.email,
					reminder_days = excluded.reminder_days
				RETURNING id
			`, id, string(sg.UID), sg.Step, string(sg.Role), sg.ColorTag, sg.Name, sg.Email, sg.Reminder.IntervalDays).Scan(&sid)
			if err != nil {
				return fmt.Errorf("write signer %s: %w", sg.UID, err)
			}
			ids[sg.UID] = sid
		}

		if err := deleteMissing(ctx, tx, "signers", id, uidsOf(rows, identity.SignerKey)); err != nil {
			return err
		}
		return s.touch(ctx, tx, id, "signers_hash", hash)
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// SyncInputFields replaces the field collection. Every field must sit on a
// page of the agreement.
func (s *Store) SyncInputFields(ctx context.Context, id string, fields []model.FieldPlacement) (identity.IDMap, error) {
	rows := make([]model.FieldPlacement, len(fields))
	for i, f := range fields {
		if f.UID == "" {
			return nil, fmt.Errorf("%w: field %d has no uid", ErrInvalid, i+1)
		}
		ft, err := model.ParseFieldType(string(f.Type))
		if err != nil {
			return nil, fmt.Errorf("%w: field %s: %v", ErrInvalid, f.UID, err)
		}
		f.Type = ft
		f.ServerID = 0
		rows[i] = f
	}

	hash, err := canon.Hash(canon.DomainFields, rows)
	if err != nil {
		return nil, err
	}

	var ids identity.IDMap
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		stored, pages, err := agreementHashes(ctx, tx, id, "fields_hash")
		if err != nil {
			return err
		}
		for _, f := range rows {
			if f.Page < 1 || f.Page > pages {
				return fmt.Errorf("%w: field %s on page %d of %d", ErrInvalid, f.UID, f.Page, pages)
			}
		}
		if stored == hash {
			ids, err = readIDs(ctx, tx, "fields", id, uidsOf(rows, identity.FieldKey))
			return err
		}

		ids = make(identity.IDMap, len(rows))
		for i, f := range rows {
			var fid model.ServerID
			err := tx.QueryRowContext(ctx, `
				INSERT INTO fields (agreement_id, uid, signer_uid, field_type, page, x, y, color_tag, position)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT (agreement_id, uid) DO UPDATE SET
					signer_uid = excluded.signer_uid,
					field_type = excluded.field_type,
					page = excluded.page,
					x = excluded.x,
					y = excluded.y,
					color_tag = excluded.color_tag,
					position = excluded.position
				RETURNING id
			`, id, string(f.UID), string(f.SignerRef), string(f.Type), f.Page, f.X, f.Y, f.ColorTag, i).Scan(&fid)
			if err != nil {
				return fmt.Errorf("write field %s: %w", f.UID, err)
			}
			ids[f.UID] = fid
		}

		if err := deleteMissing(ctx, tx, "fields", id, uidsOf(rows, identity.FieldKey)); err != nil {
			return err
		}
		return s.touch(ctx, tx, id, "fields_hash", hash)
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// UpdateAgreementTitle sets the title.
func (s *Store) UpdateAgreementTitle(ctx context.Context, id string, title string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE agreements SET title = ?, updated_at = ? WHERE id = ?
	`, title, s.timestamp(), id)
	if err != nil {
		return fmt.Errorf("write title: %w", err)
	}
	return expectRow(res)
}

// UpdateAgreementDateSequence sets the deadlines and the sequential flag.
func (s *Store) UpdateAgreementDateSequence(ctx context.Context, id string, dates model.DateSequence) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE agreements SET end_date = ?, sign_before = ?, sequence = ?, updated_at = ? WHERE id = ?
	`, formatTime(dates.EndDate), formatTime(dates.SignBefore), dates.Sequence, s.timestamp(), id)
	if err != nil {
		return fmt.Errorf("write dates: %w", err)
	}
	return expectRow(res)
}

// queryer is the read side shared by *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Store) readSigners(ctx context.Context, q queryer, id string) ([]model.Signer, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, uid, step, role, color_tag, name, email, reminder_days
		FROM signers
		WHERE agreement_id = ?
		ORDER BY step ASC, id ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("read signers: %w", err)
	}
	defer rows.Close()

	out := []model.Signer{}
	for rows.Next() {
		var sg model.Signer
		if err := rows.Scan(&sg.ServerID, &sg.UID, &sg.Step, &sg.Role, &sg.ColorTag, &sg.Name, &sg.Email, &sg.Reminder.IntervalDays); err != nil {
			return nil, fmt.Errorf("scan signer: %w", err)
		}
		out = append(out, sg)
	}
	return out, rows.Err()
}

func (s *Store) readFields(ctx context.Context, q queryer, id string) ([]model.FieldPlacement, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, uid, signer_uid, field_type, page, x, y, color_tag
		FROM fields
		WHERE agreement_id = ?
		ORDER BY position ASC, id ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("read fields: %w", err)
	}
	defer rows.Close()

	out := []model.FieldPlacement{}
	for rows.Next() {
		var f model.FieldPlacement
		if err := rows.Scan(&f.ServerID, &f.UID, &f.SignerRef, &f.Type, &f.Page, &f.X, &f.Y, &f.ColorTag); err != nil {
			return nil, fmt.Errorf("scan field: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// touch records the hash of the accepted payload.
func (s *Store) touch(ctx context.Context, tx *sql.Tx, id, column, hash string) error {
	// column is one of two constants, never caller input.
	_, err := tx.ExecContext(ctx,
		fmt.Sprintf("UPDATE agreements SET %s = ?, updated_at = ? WHERE id = ?", column),
		hash, s.timestamp(), id)
	if err != nil {
		return fmt.Errorf("write %s: %w", column, err)
	}
	return nil
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}

// agreementHashes returns the stored hash column and the page count.
func agreementHashes(ctx context.Context, tx *sql.Tx, id, column string) (string, int, error) {
	var (
		hash  string
		pages int
	)
	err := tx.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s, page_count FROM agreements WHERE id = ?", column), id,
	).Scan(&hash, &pages)
	if errors.Is(err, sql.ErrNoRows) {
		return "", 0, ErrNotFound
	}
	if err != nil {
		return "", 0, fmt.Errorf("read agreement: %w", err)
	}
	return hash, pages, nil
}

func readIDs(ctx context.Context, tx *sql.Tx, table, id string, uids []model.UID) (identity.IDMap, error) {
	rows, err := tx.QueryContext(ctx,
		fmt.Sprintf("SELECT uid, id FROM %s WHERE agreement_id = ?", table), id)
	if err != nil {
		return nil, fmt.Errorf("read %s ids: %w", table, err)
	}
	defer rows.Close()

	want := make(map[model.UID]bool, len(uids))
	for _, uid := range uids {
		want[uid] = true
	}
	ids := make(identity.IDMap, len(uids))
	for rows.Next() {
		var (
			uid model.UID
			sid model.ServerID
		)
		if err := rows.Scan(&uid, &sid); err != nil {
			return nil, fmt.Errorf("scan %s id: %w", table, err)
		}
		if want[uid] {
			ids[uid] = sid
		}
	}
	return ids, rows.Err()
}

func deleteMissing(ctx context.Context, tx *sql.Tx, table, id string, keep []model.UID) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE agreement_id = ?", table)
	args := []any{id}
	if len(keep) > 0 {
		query += " AND uid NOT IN (?" + strings.Repeat(", ?", len(keep)-1) + ")"
		for _, uid := range keep {
			args = append(args, string(uid))
		}
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete stale %s: %w", table, err)
	}
	return nil
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func uidsOf[T any](items []T, key func(T) (model.UID, model.ServerID)) []model.UID {
	out := make([]model.UID, 0, len(items))
	for _, it := range items {
		uid, _ := key(it)
		out = append(out, uid)
	}
	return out
}

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
