package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mvankampen/bunqsplit/pkg/bunq"
)

func writeRuleFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeRuleFile(t, `
payees:
  - destination: alice@example.com
    share: 50%
  - destination: "NL91ABNA0417164300,Jane Doe"
    share: "10.00"
includes:
  - NL20INGB0001234567
excludes:
  - NL65BUNQ9900000188
period:
  start: 2024-01-01
  days: 31
`)

	file, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	entries, err := file.Entries()
	if err != nil {
		t.Fatalf("Entries() returned error: %v", err)
	}

	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Destination.Type != bunq.PointerTypeEmail {
		t.Errorf("first destination type = %q, expected EMAIL", entries[0].Destination.Type)
	}
	if !entries[0].Share.Percentage() {
		t.Error("first share should be a percentage")
	}
	if entries[1].Destination.Type != bunq.PointerTypeIBAN || entries[1].Destination.Name != "Jane Doe" {
		t.Errorf("second destination = %+v, expected IBAN with name", entries[1].Destination)
	}

	if len(file.Includes) != 1 || len(file.Excludes) != 1 {
		t.Errorf("filters = %v / %v, expected one include and one exclude", file.Includes, file.Excludes)
	}
	if file.Period == nil || file.Period.Start != "2024-01-01" || file.Period.Days != 31 {
		t.Errorf("period = %+v, expected start 2024-01-01 and 31 days", file.Period)
	}
}

func TestLoadInvalidShare(t *testing.T) {
	path := writeRuleFile(t, `
payees:
  - destination: alice@example.com
    share: 150%
`)

	file, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if _, err := file.Entries(); err == nil {
		t.Error("expected error for out-of-range percentage")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
