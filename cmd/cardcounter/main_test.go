package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cardcounter/internal/ledger"
)

type cliTestEnv struct {
	store      *ledger.Store
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	configPath := filepath.Join(base, "config.toml")
	content := fmt.Sprintf(`[paths]
data_dir = %q
log_dir = %q
template_dir = %q
screenshot_dir = %q
`,
		filepath.Join(base, "data"),
		filepath.Join(base, "logs"),
		filepath.Join(base, "templates"),
		filepath.Join(base, "screenshots"),
	)
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	for _, dir := range []string{"data", "templates", "screenshots"} {
		if err := os.MkdirAll(filepath.Join(base, dir), 0o755); err != nil {
			t.Fatalf("create %s dir: %v", dir, err)
		}
	}

	store, err := ledger.Open(filepath.Join(base, "data", "cardcounter.db"))
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return &cliTestEnv{store: store, configPath: configPath, baseDir: base}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func seedAccountWithCards(t *testing.T, env *cliTestEnv) *ledger.Account {
	t.Helper()
	ctx := context.Background()

	account, err := env.store.EnsureAccount(ctx, "20251206235802")
	if err != nil {
		t.Fatalf("EnsureAccount: %v", err)
	}
	if err := env.store.SetShinedust(ctx, account.ID, 8000); err != nil {
		t.Fatalf("SetShinedust: %v", err)
	}

	pikachu := ledger.Card{SetCode: "A1", Number: "094", Name: "Pikachu", Rarity: "C"}
	obs := []ledger.CardObservation{
		{Card: pikachu, Position: 0, Confidence: 0.97},
		{Card: pikachu, Position: 1, Confidence: 0.95},
		{Card: ledger.Card{SetCode: "A1", Number: "004", Name: "Venusaur"}, Position: 2, Confidence: 0.93},
	}
	_, err = env.store.RecordScreenshot(ctx, ledger.Screenshot{
		Fingerprint:      "fp-seed-1",
		OriginalFilename: "20251206235802_Genetic_Apex.png",
		CleanFilename:    "Genetic_Apex.png",
		AccountID:        account.ID,
		PackType:         "Genetic Apex",
		Status:           ledger.StatusMatched,
	}, obs)
	if err != nil {
		t.Fatalf("RecordScreenshot: %v", err)
	}
	return account
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	out, _, err := runCLI(t, []string{"config", "init"}, target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, "Wrote sample configuration") {
		t.Fatalf("unexpected init output: %q", out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init"}, target); err == nil {
		t.Fatal("expected error re-initializing without --force")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--force"}, target); err != nil {
		t.Fatalf("config init --force: %v", err)
	}
}

func TestConfigShowListsSettings(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	for _, want := range []string{"paths.data_dir", "processing.confidence_threshold", "logging.level"} {
		if !strings.Contains(out, want) {
			t.Fatalf("config show missing %q:\n%s", want, out)
		}
	}
}

func TestCLIStatsAndAccounts(t *testing.T) {
	env := setupCLITestEnv(t)
	seedAccountWithCards(t, env)

	out, _, err := runCLI(t, []string{"stats"}, env.configPath)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if !strings.Contains(out, "Accounts") || !strings.Contains(out, "Shinedust") {
		t.Fatalf("unexpected stats output: %q", out)
	}
	if !strings.Contains(out, "8,000") {
		t.Fatalf("stats missing shinedust total: %q", out)
	}

	out, _, err = runCLI(t, []string{"accounts"}, env.configPath)
	if err != nil {
		t.Fatalf("accounts: %v", err)
	}
	if !strings.Contains(out, "20251206235802") {
		t.Fatalf("accounts missing seeded account: %q", out)
	}

	out, _, err = runCLI(t, []string{"accounts", "show", "20251206235802"}, env.configPath)
	if err != nil {
		t.Fatalf("accounts show: %v", err)
	}
	if !strings.Contains(out, "Pikachu") || !strings.Contains(out, "Venusaur") {
		t.Fatalf("accounts show missing holdings: %q", out)
	}
}

func TestCLIRemoveCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	account := seedAccountWithCards(t, env)
	ctx := context.Background()

	out, _, err := runCLI(t, []string{"remove", account.Name, "Pikachu", "--tier", "4000"}, env.configPath)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if !strings.Contains(out, "Removed one Pikachu") {
		t.Fatalf("unexpected remove output: %q", out)
	}

	card, err := env.store.CardByName(ctx, "Pikachu")
	if err != nil {
		t.Fatalf("CardByName: %v", err)
	}
	count, err := env.store.HoldingCount(ctx, account.ID, card.ID)
	if err != nil {
		t.Fatalf("HoldingCount: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 Pikachu after removal, got %d", count)
	}

	if _, _, err := runCLI(t, []string{"remove", account.Name, "Pikachu", "--tier", "9999"}, env.configPath); err == nil {
		t.Fatal("expected error for invalid tier")
	}

	// Balance is now 4000, so a 10000 removal must fail without --force.
	_, _, err = runCLI(t, []string{"remove", account.Name, "Pikachu", "--tier", "10000"}, env.configPath)
	if err == nil {
		t.Fatal("expected insufficient balance error")
	}
	if !strings.Contains(err.Error(), "--force") {
		t.Fatalf("expected force hint in error, got %v", err)
	}

	if _, _, err := runCLI(t, []string{"remove", account.Name, "Pikachu", "--tier", "10000", "--force"}, env.configPath); err != nil {
		t.Fatalf("remove --force: %v", err)
	}
	updated, err := env.store.AccountByName(ctx, account.Name)
	if err != nil {
		t.Fatalf("AccountByName: %v", err)
	}
	if updated.Shinedust != 0 {
		t.Fatalf("expected drained balance, got %d", updated.Shinedust)
	}
}

func TestCLIBackupCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	seedAccountWithCards(t, env)

	dest := filepath.Join(t.TempDir(), "backup.db")
	out, _, err := runCLI(t, []string{"backup", dest}, env.configPath)
	if err != nil {
		t.Fatalf("backup: %v", err)
	}
	if !strings.Contains(out, dest) {
		t.Fatalf("unexpected backup output: %q", out)
	}
	info, err := os.Stat(dest)
	if err != nil {
		t.Fatalf("expected backup at %s: %v", dest, err)
	}
	if info.Size() == 0 {
		t.Fatal("backup file is empty")
	}
}
