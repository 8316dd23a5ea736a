package main_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/ladzaretti/vlt-cli/vault"
)

// https://github.com/spf13/cobra/issues/1419
// https://github.com/cli/cli/blob/c0c28622bd62b273b32838dfdfa7d5ffc739eeeb/command/pr_test.go#L55-L67
func TestMain(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".vlt.test")

	vlt, err := vault.New(context.Background(), path, []byte("password"))
	if err != nil {
		t.Fatal(err)
	}

	defer func() { _ = vlt.Close() }()

	if _, err := vlt.InsertNewSecret(t.Context(), "name", []byte("secret"), []string{"label1", "label2"}); err != nil {
		t.Fatal(err)
	}

	m, err := vlt.ExportSecrets(t.Context())
	if err != nil {
		t.Fatal(err)
	}

	fmt.Printf("%v", m)
}
