package vaultdb

import "context"

// Template is a row of the secret_templates seed table.
type Template struct {
	Name        string
	Description string
	SecretType  string
	Fields      string // JSON-encoded []secret template fields
	Tags        string // JSON array
}

const listTemplates = `
	SELECT name, description, secret_type, fields, tags
	FROM secret_templates
	ORDER BY name
`

// ListTemplates returns the built-in secret template catalogue.
func (s *VaultDB) ListTemplates(ctx context.Context) ([]Template, error) {
	rows, err := s.db.QueryContext(ctx, listTemplates)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }() //nolint:wsl

	var templates []Template

	for rows.Next() {
		var t Template
		if err := rows.Scan(&t.Name, &t.Description, &t.SecretType, &t.Fields, &t.Tags); err != nil {
			return nil, err
		}

		templates = append(templates, t)
	}

	return templates, rows.Err()
}

const getTemplate = `
	SELECT name, description, secret_type, fields, tags
	FROM secret_templates
	WHERE name = ?
`

// GetTemplate returns a single named template.
func (s *VaultDB) GetTemplate(ctx context.Context, name string) (Template, error) {
	var t Template

	row := s.db.QueryRowContext(ctx, getTemplate, name)
	err := row.Scan(&t.Name, &t.Description, &t.SecretType, &t.Fields, &t.Tags)

	return t, err
}
