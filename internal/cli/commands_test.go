package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/seamline/internal/config"
	"github.com/roach88/seamline/internal/gate"
	"github.com/roach88/seamline/internal/model"
	"github.com/roach88/seamline/internal/projection"
)

const testFixture = `orders:
  - order: {id: PO-1, order_no: NO-1, style_no: ST-001, order_quantity: 20}
    nodes:
      - {id: n1, name: 裁剪, sequence_index: 0, sub_processes: 1}
      - {id: n2, name: 质检, sequence_index: 1, sub_processes: 1}
    bundles:
      - {id: b1, bundle_no: 1, quantity: 10}
      - {id: b2, bundle_no: 2, quantity: 10}
`

// isolate runs the test in an empty working directory with no seamline
// environment overrides.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	for _, key := range []string{
		config.EnvDatabase, config.EnvRedisURL, config.EnvPollInterval,
		config.EnvConcurrency, config.EnvTemplates, config.EnvFetchRate,
	} {
		t.Setenv(key, "")
	}
	return dir
}

func runCLI(t *testing.T, args ...string) (stdout, stderr string, code int) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = Execute(args, &out, &errOut)
	return out.String(), errOut.String(), code
}

// loadFixture isolates the test and loads testFixture into seamline.db.
func loadFixture(t *testing.T) {
	t.Helper()
	isolate(t)
	require.NoError(t, os.WriteFile("fixture.yaml", []byte(testFixture), 0o644))
	stdout, stderr, code := runCLI(t, "load", "fixture.yaml")
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Equal(t, "Loaded 1 orders, 2 nodes, 2 bundles, 0 arrivals\n", stdout)
}

func decodeData[T any](t *testing.T, stdout string) T {
	t.Helper()
	var resp struct {
		Status string `json:"status"`
		Data   T      `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp), stdout)
	require.Equal(t, "ok", resp.Status)
	return resp.Data
}

func decodeError(t *testing.T, stdout string) CLIError {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp), stdout)
	require.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	return *resp.Error
}

func scanArgs(requestID, bundle, stage string, qty string) []string {
	return []string{"scan", "--order", "PO-1", "--bundle", bundle, "--stage", stage,
		"--qty", qty, "--at", "2026-03-01T08:00:00Z", "--request-id", requestID}
}

func TestInit_CreatesDatabase(t *testing.T) {
	dir := isolate(t)

	stdout, stderr, code := runCLI(t, "init", "--db", "prod.db")
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, stdout, "Database ready: prod.db")
	assert.FileExists(t, filepath.Join(dir, "prod.db"))
}

func TestInit_WriteConfig(t *testing.T) {
	isolate(t)

	_, stderr, code := runCLI(t, "init", "--write-config")
	require.Equal(t, ExitSuccess, code, stderr)

	cfg, err := config.Load(config.DefaultFile)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)

	_, stderr, code = runCLI(t, "init", "--write-config")
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr, "already exists")
}

func TestLoad_InvalidFixture(t *testing.T) {
	isolate(t)
	require.NoError(t, os.WriteFile("bad.yaml", []byte("orders:\n  - order: {order_no: X}\n"), 0o644))

	_, stderr, code := runCLI(t, "load", "bad.yaml")
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr, "orders[0].order.id is required")
}

func TestParseFixture_UnknownField(t *testing.T) {
	_, err := ParseFixture([]byte("orders:\n  - order: {id: PO-1}\n    extra: 1\n"))
	require.Error(t, err)
}

func TestParseFixture_Empty(t *testing.T) {
	fx, err := ParseFixture(nil)
	require.NoError(t, err)
	assert.Empty(t, fx.Orders)
}

func TestScan_RetryIsAppliedOnce(t *testing.T) {
	loadFixture(t)

	stdout, stderr, code := runCLI(t, scanArgs("r1", "b1", "裁剪", "10")...)
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, stdout, "scan: accepted")

	stdout, stderr, code = runCLI(t, scanArgs("r1", "b1", "裁剪", "10")...)
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, stdout, "scan: already applied")

	stdout, stderr, code = runCLI(t, "--format", "json", "progress", "PO-1")
	require.Equal(t, ExitSuccess, code, stderr)
	progress := decodeData[[]projection.Progress](t, stdout)
	require.Len(t, progress, 1)
	require.NotEmpty(t, progress[0].Nodes)
	assert.Equal(t, "裁剪", progress[0].Nodes[0].Node)
	assert.Equal(t, 10, progress[0].Nodes[0].CompletedQty)
}

func TestScan_RejectsInvalidTime(t *testing.T) {
	isolate(t)
	_, stderr, code := runCLI(t, "scan", "--order", "PO-1", "--stage", "裁剪", "--at", "yesterday")
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr, "invalid --at")
}

func TestScan_UnknownBundle(t *testing.T) {
	loadFixture(t)

	stdout, _, code := runCLI(t, append([]string{"--format", "json"}, scanArgs("r9", "b9", "裁剪", "1")...)...)
	assert.Equal(t, ExitFailure, code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, stdout).Code)
}

func TestProgress_TextBoard(t *testing.T) {
	loadFixture(t)
	_, _, code := runCLI(t, scanArgs("r1", "b1", "裁剪", "10")...)
	require.Equal(t, ExitSuccess, code)

	stdout, stderr, code := runCLI(t, "progress", "PO-1", "--no-save")
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, stdout, "PO-1")
	assert.Contains(t, stdout, "裁剪")
	assert.Contains(t, stdout, "质检")
}

func TestProgress_UnknownOrder(t *testing.T) {
	loadFixture(t)

	_, stderr, code := runCLI(t, "progress", "PO-404")
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stderr, "order PO-404")
}

func TestRepairFlow_CloseGate(t *testing.T) {
	loadFixture(t)

	_, stderr, code := runCLI(t, "inspect", "--order", "PO-1", "--bundle", "b1",
		"--inspected", "10", "--unqualified", "2", "--defect", "跳线", "--handling", "返修")
	require.Equal(t, ExitSuccess, code, stderr)

	// Below threshold: 8 of the required 18.
	stdout, _, code := runCLI(t, "--format", "json", "close", "PO-1")
	assert.Equal(t, ExitFailure, code)
	cliErr := decodeError(t, stdout)
	assert.Equal(t, "GATE_VIOLATION", cliErr.Code)
	assert.Equal(t, map[string]any{"required": 18.0, "actual": 8.0, "missing": 10.0}, cliErr.Details)

	// Repair without a remark is refused by the flag parser.
	_, _, code = runCLI(t, "repair", "--order", "PO-1", "--bundle", "b1", "--qty", "2")
	assert.Equal(t, ExitCommandError, code)

	// Over the remaining pool.
	stdout, _, code = runCLI(t, "--format", "json", "repair", "--order", "PO-1", "--bundle", "b1", "--qty", "3", "--remark", "返修完成")
	assert.Equal(t, ExitFailure, code)
	assert.Equal(t, "VALIDATION", decodeError(t, stdout).Code)

	_, stderr, code = runCLI(t, "repair", "--order", "PO-1", "--bundle", "b1", "--qty", "2", "--remark", "返修完成")
	require.Equal(t, ExitSuccess, code, stderr)

	_, stderr, code = runCLI(t, "inspect-batch", "--order", "PO-1", "--bundle", "b2", "--warehouse", "W1")
	require.Equal(t, ExitSuccess, code, stderr)

	stdout, stderr, code = runCLI(t, "--format", "json", "close", "PO-1", "--remark", "全部入库")
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Equal(t, model.Accepted, decodeData[model.Receipt](t, stdout).Status)

	stdout, stderr, code = runCLI(t, "close", "PO-1")
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, stdout, "close: already applied")

	stdout, _, code = runCLI(t, append([]string{"--format", "json"}, scanArgs("r2", "b2", "质检", "10")...)...)
	assert.Equal(t, ExitFailure, code)
	assert.Equal(t, "CONFLICT", decodeError(t, stdout).Code)

	stdout, stderr, code = runCLI(t, "--format", "json", "progress", "PO-1")
	require.Equal(t, ExitSuccess, code, stderr)
	progress := decodeData[[]projection.Progress](t, stdout)
	require.Len(t, progress, 1)
	assert.Equal(t, model.OrderCompleted, progress[0].Status)
	assert.Equal(t, 100, progress[0].Percent)
	assert.Equal(t, gate.ReasonAlreadyClosed, progress[0].Close.Reason)
}

func TestInspectBatch_BlockedBundleRejected(t *testing.T) {
	loadFixture(t)

	_, stderr, code := runCLI(t, "inspect", "--order", "PO-1", "--bundle", "b1",
		"--inspected", "10", "--unqualified", "1", "--defect", "污渍", "--handling", "返修")
	require.Equal(t, ExitSuccess, code, stderr)

	stdout, _, code := runCLI(t, "--format", "json", "inspect-batch", "--order", "PO-1", "--bundle", "b1", "--bundle", "b2")
	assert.Equal(t, ExitFailure, code)
	assert.Equal(t, "VALIDATION", decodeError(t, stdout).Code)
}

func TestParseBatchItems(t *testing.T) {
	items, err := parseBatchItems([]string{"b1", "b2:35", " b3 : 4 "})
	require.NoError(t, err)
	assert.Equal(t, []model.BatchItem{
		{BundleID: "b1"},
		{BundleID: "b2", Quantity: 35},
		{BundleID: "b3", Quantity: 4},
	}, items)

	for _, bad := range []string{":3", "b1:x", "b1:-2"} {
		_, err := parseBatchItems([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestWatch_Once(t *testing.T) {
	loadFixture(t)
	_, _, code := runCLI(t, scanArgs("r1", "b1", "裁剪", "10")...)
	require.Equal(t, ExitSuccess, code)

	stdout, stderr, code := runCLI(t, "--format", "json", "watch", "--once")
	require.Equal(t, ExitSuccess, code, stderr)
	progress := decodeData[[]projection.Progress](t, stdout)
	require.Len(t, progress, 1)
	assert.Equal(t, "PO-1", progress[0].OrderID)

	stdout, stderr, code = runCLI(t, "watch", "--once")
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, stdout, "PO-1")
}

func TestWatch_OnceNoOrders(t *testing.T) {
	isolate(t)

	stdout, stderr, code := runCLI(t, "watch", "--once")
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Equal(t, "No open orders.\n", stdout)
}

func TestTestCommand_HarnessScenarios(t *testing.T) {
	scenarios, err := filepath.Abs(filepath.Join("..", "harness", "testdata", "scenarios"))
	require.NoError(t, err)
	isolate(t)

	stdout, stderr, code := runCLI(t, "test", scenarios)
	require.Equal(t, ExitSuccess, code, stdout+stderr)
	assert.Contains(t, stdout, "✓ sewing_partial")
	assert.Contains(t, stdout, "✓ All scenarios passed")

	stdout, _, code = runCLI(t, "--format", "json", "test", scenarios, "--filter", "repair*")
	require.Equal(t, ExitSuccess, code)
	result := decodeData[TestResult](t, stdout)
	assert.Equal(t, 1, result.Total)
	assert.Equal(t, "repair_and_close", result.Scenarios[0].Name)
}

func TestTestCommand_UpdateWritesGolden(t *testing.T) {
	scenarios, err := filepath.Abs(filepath.Join("..", "harness", "testdata", "scenarios"))
	require.NoError(t, err)
	want, err := os.ReadFile(filepath.Join(scenarios, "..", "golden", "sewing_partial.golden"))
	require.NoError(t, err)
	dir := isolate(t)
	golden := filepath.Join(dir, "golden")

	_, stderr, code := runCLI(t, "test", scenarios, "--filter", "sewing*", "--golden", golden, "--update")
	require.Equal(t, ExitSuccess, code, stderr)

	got, err := os.ReadFile(filepath.Join(golden, "sewing_partial.golden"))
	require.NoError(t, err)
	assert.Equal(t, string(want), string(got))
}

func TestTestCommand_GoldenMismatch(t *testing.T) {
	scenarios, err := filepath.Abs(filepath.Join("..", "harness", "testdata", "scenarios"))
	require.NoError(t, err)
	dir := isolate(t)
	golden := filepath.Join(dir, "golden")
	require.NoError(t, os.MkdirAll(golden, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(golden, "sewing_partial.golden"), []byte("{}"), 0o644))

	stdout, stderr, code := runCLI(t, "test", scenarios, "--filter", "sewing*", "--golden", golden)
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stdout, "golden file mismatch")
	assert.Empty(t, stderr)
}

func TestTestCommand_MissingDir(t *testing.T) {
	isolate(t)
	_, stderr, code := runCLI(t, "test", "nowhere")
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr, "scenarios directory not found")
}
