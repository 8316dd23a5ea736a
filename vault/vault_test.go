package vault_test

import (
	"path/filepath"
	"testing"

	"github.com/ladzaretti/vlt-cli/vault"
)

func TestVault_New(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".vlt.temp")

	v, err := vault.New(t.Context(), path, []byte("password"))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := v.InsertNewSecret(t.Context(), "name", []byte("secret"), []string{"label1", "label2"}); err != nil {
		t.Fatal(err)
	}

	m, err := v.ExportSecrets(t.Context())
	if err != nil {
		t.Fatal(err)
	}

	if err := v.Close(); err != nil {
		t.Fatal(err)
	}

	v, err = vault.Open(t.Context(), path, vault.WithPassword([]byte("password")))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = v.Close() }()

	m2, err := v.ExportSecrets(t.Context())
	if err != nil {
		t.Fatal(err)
	}

	if got, want := len(m2), len(m); got != want {
		t.Errorf("got %d secrets after reopen, want %d", got, want)
	}
}
