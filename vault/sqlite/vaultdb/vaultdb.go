// Package vaultdb provides access to the in-memory vault database schema:
// secrets and their labels, legacy password records, the secret audit log,
// and the built-in secret template catalogue.
//
// This package does not perform any cryptographic operations; callers are
// responsible for encrypting values before insertion and decrypting values
// read back out.
package vaultdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	cmdutil "github.com/ladzaretti/vlt-cli/util"
	"github.com/ladzaretti/vlt-cli/vault/types"
	"github.com/ladzaretti/vlt-cli/vaulterrors"
)

var (
	// ErrNoLabelsProvided indicates that no labels were provided as an argument.
	ErrNoLabelsProvided = errors.New("no labels provided")

	// ErrNoIDsProvided indicates that no ids were provided as an argument.
	ErrNoIDsProvided = errors.New("no IDs provided")
)

// VaultDB provides access to the vault's database.
// It handles storage and retrieval of vault secrets.
//
// This type does not perform cryptographic operations.
type VaultDB struct {
	db types.CoreDB
}

func New(db types.DBTX) *VaultDB {
	return &VaultDB{
		db: db,
	}
}

// WithTx returns a new VaultDB using the given transaction.
func (*VaultDB) WithTx(tx *sql.Tx) *VaultDB {
	return &VaultDB{
		db: tx,
	}
}

// wrapConstraintErr maps a SQLite UNIQUE constraint violation to
// [vaulterrors.ErrDuplicateID], leaving every other error untouched.
func wrapConstraintErr(err error) error {
	if err == nil {
		return nil
	}

	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return vaulterrors.ErrDuplicateID
	}

	return err
}

//nolint:gosec
const insertSecret = `
	INSERT INTO
		secrets (name, nonce, ciphertext)
	VALUES
		(?, ?, ?)
`

func (s *VaultDB) InsertNewSecret(ctx context.Context, name string, nonce []byte, ciphertext []byte) (int, error) {
	res, err := s.db.ExecContext(ctx, insertSecret, name, nonce, ciphertext)
	if err != nil {
		return 0, wrapConstraintErr(err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	return int(id), nil
}

//nolint:gosec
const insertSecretWithID = `
	INSERT INTO
		secrets (id, name, nonce, ciphertext)
	VALUES
		(?, ?, ?, ?)
`

// InsertNewSecretWithID inserts a secret using a caller-supplied id,
// used when restoring secrets from a backup or export.
func (s *VaultDB) InsertNewSecretWithID(ctx context.Context, id int, name string, nonce []byte, ciphertext []byte) (int, error) {
	if _, err := s.db.ExecContext(ctx, insertSecretWithID, id, name, nonce, ciphertext); err != nil {
		return 0, wrapConstraintErr(err)
	}

	return id, nil
}

//nolint:gosec
const insertTypedSecret = `
	INSERT INTO
		secrets (name, description, type, nonce, ciphertext, metadata, expires_at)
	VALUES
		(?, ?, ?, ?, ?, ?, ?)
`

// InsertNewTypedSecret inserts a secret carrying its type discriminator,
// free-text description, JSON-encoded metadata, and optional expiry.
func (s *VaultDB) InsertNewTypedSecret(ctx context.Context, name, description, secretType string, nonce, ciphertext []byte, metadata string, expiresAt *string) (int, error) {
	res, err := s.db.ExecContext(ctx, insertTypedSecret, name, description, secretType, nonce, ciphertext, metadata, expiresAt)
	if err != nil {
		return 0, wrapConstraintErr(err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	return int(id), nil
}

const updateSecret = `
	UPDATE secrets
	SET
		nonce = ?,
		ciphertext = ?,
		updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
	WHERE
		id = ?
`

func (s *VaultDB) UpdateSecret(ctx context.Context, id int, nonce []byte, ciphertext []byte) (n int64, retErr error) {
	res, err := s.db.ExecContext(ctx, updateSecret, nonce, ciphertext, id)
	if err != nil {
		return 0, err
	}

	n, err = res.RowsAffected()
	if err != nil {
		return 0, err
	}

	return n, nil
}

const updateName = `
	UPDATE secrets
	SET
		name = $1,
		updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
	WHERE
		id = $2
`

func (s *VaultDB) UpdateName(ctx context.Context, id int, name string) (n int64, retErr error) {
	res, err := s.db.ExecContext(ctx, updateName, name, id)
	if err != nil {
		return 0, err
	}

	n, err = res.RowsAffected()
	if err != nil {
		return 0, err
	}

	return n, nil
}

const updateFavorite = `
	UPDATE secrets
	SET
		favorite = $1,
		updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
	WHERE
		id = $2
`

// SetFavorite updates only the favorite flag of a secret, leaving its
// description/metadata/expiry columns untouched.
func (s *VaultDB) SetFavorite(ctx context.Context, id int, favorite bool) (int64, error) {
	res, err := s.db.ExecContext(ctx, updateFavorite, favorite, id)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

const updateSecretFields = `
	UPDATE secrets
	SET
		description = $1,
		metadata = $2,
		expires_at = $3,
		favorite = $4,
		updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
	WHERE
		id = $5
`

// UpdateSecretFields updates the descriptive/metadata columns of a secret,
// without touching its encrypted value.
func (s *VaultDB) UpdateSecretFields(ctx context.Context, id int, description, metadata string, expiresAt *string, favorite bool) (int64, error) {
	res, err := s.db.ExecContext(ctx, updateSecretFields, description, metadata, expiresAt, favorite, id)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

//nolint:gosec
const selectSecret = `
	SELECT
		nonce, ciphertext
	FROM
		secrets
	WHERE
		id = ?
`

// Secret returns the secret ciphertext and nonce associated with the given secret id.
func (s *VaultDB) Secret(ctx context.Context, id int) (nonce []byte, ciphertext []byte, err error) {
	err = s.db.QueryRowContext(ctx, selectSecret, id).Scan(&nonce, &ciphertext)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, vaulterrors.ErrEntryNotFound
		}

		return nonce, ciphertext, err
	}

	return nonce, ciphertext, err
}

const touchLastAccessed = `
	UPDATE secrets SET last_accessed = strftime('%Y-%m-%dT%H:%M:%fZ', 'now') WHERE id = ?
`

// ShowSecret returns the nonce and ciphertext for id, and marks it as accessed.
func (s *VaultDB) ShowSecret(ctx context.Context, id int) (nonce []byte, ciphertext []byte, err error) {
	if err := s.db.QueryRowContext(ctx, selectSecret, id).Scan(&nonce, &ciphertext); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, vaulterrors.ErrEntryNotFound
		}

		return nil, nil, err
	}

	if _, err := s.db.ExecContext(ctx, touchLastAccessed, id); err != nil {
		return nil, nil, err
	}

	return nonce, ciphertext, nil
}

const insertLabel = `
	INSERT INTO
		labels (name, secret_id)
	VALUES
		($1, $2) ON CONFLICT (name, secret_id) DO NOTHING
`

func (s *VaultDB) InsertLabel(ctx context.Context, name string, secretID int) (int64, error) {
	res, err := s.db.ExecContext(ctx, insertLabel, name, secretID)
	if err != nil {
		return 0, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	return id, nil
}

const deleteLabel = `
	DELETE FROM labels
	WHERE
		name = $1
		AND secret_id = $2
`

func (s *VaultDB) DeleteLabel(ctx context.Context, name string, secretID int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, deleteLabel, name, secretID)
	if err != nil {
		return 0, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	return id, nil
}

// secretWithLabelRow represents a row resulting from a join
// between the secrets and labels tables.
type secretWithLabelRow struct {
	id         int
	name       string
	nonce      []byte
	ciphertext []byte
	favorite   bool
	createdAt  string
	updatedAt  string
	label      sql.NullString
}

// SecretWithLabels represents a secret with some of its associated labels.
type SecretWithLabels struct {
	Name       string
	Nonce      []byte
	Ciphertext []byte
	Value      []byte
	Favorite   bool
	CreatedAt  string
	UpdatedAt  string
	Labels     []string
}

// secretColumns is the column list shared by every query that feeds
// [VaultDB.secretsJoinLabels]; keeping it in one place keeps the row scan in
// [reduce] in sync with what each query selects.
const secretColumns = `s.id, s.name AS secret_name, s.favorite, s.created_at, s.updated_at`

// SecretsWithLabels returns all secrets along with all labels associated with each.
func (s *VaultDB) SecretsWithLabels(ctx context.Context) (map[int]SecretWithLabels, error) {
	return s.secretsByColumn(ctx, "", "LEFT JOIN")
}

// SecretsByName returns secrets that match the provided name pattern,
// along with all labels associated with it.
//
// If no pattern is provided, it returns all secrets along with all their labels.
func (s *VaultDB) SecretsByName(ctx context.Context, namePattern string) (map[int]SecretWithLabels, error) {
	return s.secretsByColumn(ctx, "secret_name", "LEFT JOIN", namePattern)
}

// SecretsByLabels returns secrets that match any of the provided label patterns,
// along with all labels associated with each secret that matches the labelPatterns.
//
// If no patterns are provided, an [vaulterrors.ErrMissingLabels] error is returned.
func (s *VaultDB) SecretsByLabels(ctx context.Context, labelPatterns ...string) (map[int]SecretWithLabels, error) {
	if len(labelPatterns) == 0 {
		return nil, vaulterrors.ErrMissingLabels
	}

	return s.secretsByColumn(ctx, "label", "INNER JOIN", labelPatterns...)
}

// secretsByColumn returns secrets with labels that
// match a where clause with all glob patterns for the given col.
//
// If no patterns are provided, no where clause is generated.
func (s *VaultDB) secretsByColumn(ctx context.Context, col string, join string, patterns ...string) (map[int]SecretWithLabels, error) {
	query := fmt.Sprintf(`
	SELECT
		%s,
		l.name AS label
	FROM
		secrets s
		%s labels l ON s.id = l.secret_id
	%s
	`, secretColumns, join, whereGlobOrClause(col, patterns...))

	return s.secretsJoinLabels(ctx, query, cmdutil.ToAnySlice(patterns)...)
}

// Filters describes a combination of search criteria for [VaultDB.FilterSecrets].
//
// Every non-zero field narrows the result set further: a populated Filters
// value matches secrets satisfying ALL of its set fields (logical AND), while
// Labels and Wildcard each match ANY of their own patterns (logical OR)
// before being combined with the rest.
type Filters struct {
	// Wildcard matches either the secret name or any of its labels.
	Wildcard string

	// Name matches the secret name as a GLOB pattern.
	Name string

	// Labels matches any of the secret's labels as GLOB patterns.
	Labels []string

	// Type matches the secret's type discriminator exactly, when set.
	Type string

	// Environment matches the "environment" field stored in the secret's
	// plaintext metadata JSON, when set.
	Environment string

	// Favorite, when non-nil, restricts the result to secrets whose
	// favorite flag equals *Favorite.
	Favorite *bool

	// ExpiringWithinDays, when non-nil, restricts the result to secrets
	// that have not yet expired but will within the given number of days.
	ExpiringWithinDays *int
}

// FilterSecrets returns secrets matching the given combination of filters.
//
// An empty Filters value returns every secret.
func (s *VaultDB) FilterSecrets(ctx context.Context, f Filters) (map[int]SecretWithLabels, error) {
	var (
		conditions []string
		args       []any
	)

	if f.Wildcard != "" {
		conditions = append(conditions, `(s.name GLOB ? OR EXISTS (
			SELECT 1 FROM labels wl WHERE wl.secret_id = s.id AND wl.name GLOB ?
		))`)
		args = append(args, f.Wildcard, f.Wildcard)
	}

	if f.Name != "" {
		conditions = append(conditions, "s.name GLOB ?")
		args = append(args, f.Name)
	}

	if len(f.Labels) > 0 {
		clauses := make([]string, len(f.Labels))
		for i, pattern := range f.Labels {
			clauses[i] = "ll.name GLOB ?"
			args = append(args, pattern)
		}

		conditions = append(conditions, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM labels ll WHERE ll.secret_id = s.id AND (%s))",
			strings.Join(clauses, " OR "),
		))
	}

	if f.Type != "" {
		conditions = append(conditions, "s.type = ?")
		args = append(args, f.Type)
	}

	if f.Environment != "" {
		conditions = append(conditions, "json_extract(s.metadata, '$.environment') = ?")
		args = append(args, f.Environment)
	}

	if f.Favorite != nil {
		conditions = append(conditions, "s.favorite = ?")
		args = append(args, *f.Favorite)
	}

	if f.ExpiringWithinDays != nil {
		conditions = append(conditions, fmt.Sprintf(`(
			s.expires_at IS NOT NULL
			AND s.expires_at > strftime('%%Y-%%m-%%dT%%H:%%M:%%fZ', 'now')
			AND s.expires_at <= strftime('%%Y-%%m-%%dT%%H:%%M:%%fZ', 'now', '+%d days')
		)`, *f.ExpiringWithinDays))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
	SELECT
		%s,
		l.name AS label
	FROM
		secrets s
		LEFT JOIN labels l ON s.id = l.secret_id
	%s
	`, secretColumns, where)

	return s.secretsJoinLabels(ctx, query, args...)
}

// SecretsByIDs returns a map of secrets and their labels for the given IDs.
//
// If the IDs slice is empty, the function returns [ErrNoIDsProvided].
func (s *VaultDB) SecretsByIDs(ctx context.Context, ids []int) (map[int]SecretWithLabels, error) {
	if len(ids) == 0 {
		return nil, ErrNoIDsProvided
	}

	placeholders := make([]string, len(ids))
	for i := range ids {
		placeholders[i] = "?"
	}

	query := fmt.Sprintf(`
	SELECT
		%s,
		l.name AS label
	FROM
		secrets s
		LEFT JOIN labels l ON s.id = l.secret_id
	WHERE
		s.id IN (%s)
	`, secretColumns, strings.Join(placeholders, ","))

	return s.secretsJoinLabels(ctx, query, cmdutil.ToAnySlice(ids)...)
}

// SecretsByLabelsAndName returns secrets with labels that match any of the
// provided label and name glob patterns.
//
// If no label patterns are provided, it returns [ErrNoLabelsProvided].
func (s *VaultDB) SecretsByLabelsAndName(ctx context.Context, name string, labels ...string) (map[int]SecretWithLabels, error) {
	if len(labels) == 0 {
		return nil, ErrNoLabelsProvided
	}

	query := fmt.Sprintf(`
	SELECT
		%s,
		l.name AS label
	FROM
		secrets s
		JOIN labels l ON s.id = l.secret_id
	`, secretColumns) + whereGlobOrClause("label", labels...) +
		"AND secret_name GLOB ?"

	args := append(cmdutil.ToAnySlice(labels), name)

	return s.secretsJoinLabels(ctx, query, args...)
}

// secretsJoinLabels executes a query to join secrets with their labels.
//
// The query must select columns in the order produced by [secretColumns]
// followed by a final label column.
func (s *VaultDB) secretsJoinLabels(ctx context.Context, query string, args ...any) (map[int]SecretWithLabels, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }() //nolint:wsl

	var secrets []secretWithLabelRow
	for rows.Next() {
		var secret secretWithLabelRow
		if err := rows.Scan(&secret.id, &secret.name, &secret.favorite, &secret.createdAt, &secret.updatedAt, &secret.label); err != nil {
			return nil, err
		}

		secrets = append(secrets, secret)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return reduce(secrets), nil
}

// ExportSecrets exports all secret-related data stored in the database.
func (s *VaultDB) ExportSecrets(ctx context.Context) (map[int]SecretWithLabels, error) {
	query := fmt.Sprintf(`
	SELECT
		%s,
		s.nonce,
		s.ciphertext,
		l.name AS label
	FROM
		secrets s
		LEFT JOIN labels l ON s.id = l.secret_id;
	`, secretColumns)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }() //nolint:wsl

	var secrets []secretWithLabelRow
	for rows.Next() {
		var secret secretWithLabelRow
		if err := rows.Scan(&secret.id, &secret.name, &secret.favorite, &secret.createdAt, &secret.updatedAt,
			&secret.nonce, &secret.ciphertext, &secret.label); err != nil {
			return nil, err
		}

		secrets = append(secrets, secret)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return reduce(secrets), nil
}

// DeleteSecretsByIDs deletes secrets by their IDs, along with their labels.
//
// If the IDs slice is empty, the function returns [ErrNoIDsProvided].
func (s *VaultDB) DeleteSecretsByIDs(ctx context.Context, ids []int) (int64, error) {
	if len(ids) == 0 {
		return 0, ErrNoIDsProvided
	}

	placeholders := make([]string, len(ids))
	for i := range ids {
		placeholders[i] = "?"
	}

	query := `
	DELETE
	FROM
		secrets
	WHERE
		id IN (` + strings.Join(placeholders, ",") + ")"

	res, err := s.db.ExecContext(ctx, query, cmdutil.ToAnySlice(ids)...)
	if err != nil {
		return 0, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return n, err
	}

	return n, nil
}

// whereGlobOrClause generates a WHERE GLOB OR clause
// for the given column and patterns.
func whereGlobOrClause(col string, patterns ...string) string {
	if len(patterns) == 0 {
		return ""
	}

	clauses := make([]string, len(patterns))
	for i := range clauses {
		clauses[i] = col + " GLOB ?"
	}

	return "WHERE " + strings.Join(clauses, " OR ")
}

func reduce(secrets []secretWithLabelRow) map[int]SecretWithLabels {
	m := make(map[int]SecretWithLabels)

	for _, secret := range secrets {
		v, ok := m[secret.id]
		if !ok {
			v = SecretWithLabels{
				Name:      secret.name,
				Favorite:  secret.favorite,
				CreatedAt: secret.createdAt,
				UpdatedAt: secret.updatedAt,
				Labels:    []string{},
			}
		}

		if secret.label.Valid {
			v.Labels = append(v.Labels, secret.label.String)
		}

		if len(v.Ciphertext) == 0 {
			v.Ciphertext = secret.ciphertext
			v.Nonce = secret.nonce
		}

		m[secret.id] = v
	}

	return m
}

const vacuumVault = `VACUUM;`

// Vacuum performs a VACUUM operation on the vault database.
func (s *VaultDB) Vacuum(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, vacuumVault)
	return err
}

// Stats summarizes the contents of the secrets table.
type Stats struct {
	Total           int
	ByType          map[string]int
	Expired         int
	ExpiringInMonth int
}

const statsByType = `SELECT type, COUNT(*) FROM secrets GROUP BY type`

// statsExpiry buckets secrets by expiry: already expired, and expiring
// within the next 30 days (the window a user should be warned about).
const statsExpiry = `
	SELECT
		COUNT(*) FILTER (WHERE expires_at IS NOT NULL AND expires_at <= strftime('%Y-%m-%dT%H:%M:%fZ', 'now')),
		COUNT(*) FILTER (WHERE expires_at IS NOT NULL AND expires_at > strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
			AND expires_at <= strftime('%Y-%m-%dT%H:%M:%fZ', 'now', '+30 days'))
	FROM secrets
`

// SecretStats computes aggregate statistics over the secrets table.
func (s *VaultDB) SecretStats(ctx context.Context) (Stats, error) {
	stats := Stats{ByType: map[string]int{}}

	rows, err := s.db.QueryContext(ctx, statsByType)
	if err != nil {
		return stats, err
	}
	defer func() { _ = rows.Close() }() //nolint:wsl

	for rows.Next() {
		var (
			typ   string
			count int
		)

		if err := rows.Scan(&typ, &count); err != nil {
			return stats, err
		}

		stats.ByType[typ] = count
		stats.Total += count
	}

	if err := rows.Err(); err != nil {
		return stats, err
	}

	if err := s.db.QueryRowContext(ctx, statsExpiry).Scan(&stats.Expired, &stats.ExpiringInMonth); err != nil {
		return stats, err
	}

	return stats, nil
}
