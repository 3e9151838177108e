package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCommissionsMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_commissions.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no commissions migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS partner_commissions",
		"CREATE UNIQUE INDEX ux_partner_commissions_conversion",
		"WHERE reversal_of_id IS NULL",
		"DROP TABLE IF EXISTS partner_commissions",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}
