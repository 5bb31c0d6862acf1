package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/managedsolutions7/k2weighingfe-sub000/internal/services/api/apitest"
	"github.com/managedsolutions7/k2weighingfe-sub000/internal/weighment"
)

type console struct {
	t   *testing.T
	dir string
}

func newConsole(t *testing.T) *console {
	t.Helper()
	srv := httptest.NewServer(apitest.NewServer())
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("K2_API_BASE_URL", srv.URL+"/api")
	t.Setenv("K2_DATA_DIR", filepath.Join(dir, "data"))
	t.Setenv("K2_RECEIPT_DIR", filepath.Join(dir, "receipts"))
	t.Setenv("K2_METRICS_FILE", filepath.Join(dir, "k2.prom"))
	return &console{t: t, dir: dir}
}

// exec runs one k2ctl invocation and returns stdout, stderr and the exit code.
func (c *console) exec(args ...string) (string, string, int) {
	c.t.Helper()
	var out, errOut bytes.Buffer
	code := run(context.Background(), args, strings.NewReader(""), &out, &errOut)
	return out.String(), errOut.String(), code
}

func (c *console) mustExec(args ...string) string {
	c.t.Helper()
	out, errOut, code := c.exec(args...)
	if code != 0 {
		c.t.Fatalf("k2ctl %s exited %d: %s", strings.Join(args, " "), code, errOut)
	}
	return out
}

func TestOperatorSession(t *testing.T) {
	c := newConsole(t)

	c.mustExec("login", "--email", "operator@k2.test", "--password", "secret")
	if out := c.mustExec("whoami"); !strings.Contains(out, "role: operator") {
		t.Errorf("whoami output: %q", out)
	}

	out := c.mustExec("entries", "create", "--type", "purchase", "--vendor", "Shakti Agro",
		"--vehicle", "MH12AB1234", "--driver", "Ramesh", "--weight", "18000", "--material", "rice husk")
	if !strings.Contains(out, "ENT-00001") {
		t.Fatalf("create output: %q", out)
	}

	out = c.mustExec("entries", "list")
	if !strings.Contains(out, "ENT-00001") || !strings.Contains(out, "Record exit") {
		t.Errorf("list output: %q", out)
	}

	out = c.mustExec("entries", "exit", "ENT-00001", "--weight", "8000", "--moisture", "2", "--dust", "1")
	if !strings.Contains(out, "Exit recorded for ENT-00001") {
		t.Errorf("exit output: %q", out)
	}

	_, errOut, code := c.exec("entries", "exit", "ENT-00001", "--weight", "7000")
	if code != 1 || !strings.Contains(errOut, weighment.MsgExitRecorded) {
		t.Errorf("second exit: code %d, stderr %q", code, errOut)
	}

	out = c.mustExec("entries", "journal")
	if strings.Count(out, "\n") != 2 {
		t.Errorf("journal should hold one record: %q", out)
	}

	c.mustExec("entries", "receipt", "ENT-00001")
	if _, err := os.Stat(filepath.Join(c.dir, "receipts", "receipt-ent-00001.pdf")); err != nil {
		t.Errorf("receipt not written: %v", err)
	}
	c.mustExec("entries", "slip", "ENT-00001", "--plant", "Pune Plant")
	if _, err := os.Stat(filepath.Join(c.dir, "receipts", "slip-ent-00001.pdf")); err != nil {
		t.Errorf("slip not written: %v", err)
	}

	out = c.mustExec("entries", "export", "--out", "report.xlsx")
	if !strings.Contains(out, "1 entries (1 purchases, 0 sales, 0 open, 0 flagged)") {
		t.Errorf("export output: %q", out)
	}
	if _, err := os.Stat(filepath.Join(c.dir, "report.xlsx")); err != nil {
		t.Errorf("workbook not written: %v", err)
	}

	metrics, err := os.ReadFile(filepath.Join(c.dir, "k2.prom"))
	if err != nil {
		t.Fatalf("metrics file: %v", err)
	}
	if !strings.Contains(string(metrics), "k2_api_requests_total") {
		t.Error("metrics file has no request counter")
	}

	c.mustExec("logout")
	_, errOut, code = c.exec("entries", "list")
	if code != 1 || !strings.Contains(errOut, "not signed in") {
		t.Errorf("list after logout: code %d, stderr %q", code, errOut)
	}
}

func TestCreateReportsEveryFieldError(t *testing.T) {
	c := newConsole(t)
	c.mustExec("login", "--email", "operator@k2.test", "--password", "secret")

	_, errOut, code := c.exec("entries", "create", "--type", "purchase", "--weight=-5")
	if code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	for _, field := range []string{"vendor", "vehicle", "driverName", "entryWeight", "materialType"} {
		if !strings.Contains(errOut, field+":") {
			t.Errorf("missing %s error in %q", field, errOut)
		}
	}
}

func TestSupervisorIsReadOnly(t *testing.T) {
	c := newConsole(t)
	c.mustExec("login", "--email", "supervisor@k2.test", "--password", "secret")

	_, errOut, code := c.exec("entries", "create", "--type", "sale", "--vendor", "v1",
		"--vehicle", "vh1", "--driver", "Ramesh", "--weight", "9000")
	if code != 1 || !strings.Contains(errOut, weighment.ErrForbidden.Error()) {
		t.Errorf("code %d, stderr %q", code, errOut)
	}
}

func TestOptionsSearch(t *testing.T) {
	c := newConsole(t)
	t.Setenv("K2_SEARCH_DEBOUNCE", "1ms")
	c.mustExec("login", "--email", "operator@k2.test", "--password", "secret")

	out := c.mustExec("options", "vehicles", "--search", "gj05")
	if !strings.Contains(out, "vh2") || strings.Contains(out, "vh1") {
		t.Errorf("search output: %q", out)
	}
	out = c.mustExec("options")
	if !strings.Contains(out, "Pune Plant") || !strings.Contains(out, "Groundnut Shell") {
		t.Errorf("options output: %q", out)
	}
}

func TestStandaloneCommands(t *testing.T) {
	t.Chdir(t.TempDir())
	var out, errOut bytes.Buffer

	if code := run(context.Background(), []string{"quality", "--moisture", "3", "--dust", "2"}, nil, &out, &errOut); code != 0 {
		t.Fatalf("quality exited %d: %s", code, errOut.String())
	}
	if !strings.Contains(out.String(), "impurity 5.00%") {
		t.Errorf("quality output: %q", out.String())
	}

	out.Reset()
	if code := run(context.Background(), []string{"version"}, nil, &out, &errOut); code != 0 {
		t.Fatalf("version exited %d", code)
	}
	if !strings.HasPrefix(out.String(), "k2ctl/") {
		t.Errorf("version output: %q", out.String())
	}

	if code := run(context.Background(), []string{"bogus"}, nil, &out, &errOut); code != 2 {
		t.Errorf("unknown command exited %d, want 2", code)
	}
}
