package observability

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type alertFile struct {
	Groups []struct {
		Name  string `yaml:"name"`
		Rules []struct {
			Alert       string            `yaml:"alert"`
			Expr        string            `yaml:"expr"`
			For         string            `yaml:"for"`
			Labels      map[string]string `yaml:"labels"`
			Annotations map[string]string `yaml:"annotations"`
		} `yaml:"rules"`
	} `yaml:"groups"`
}

var metricName = regexp.MustCompile(`ledger_[a-z_]+`)

func loadLedgerAlerts(t *testing.T) alertFile {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join("..", "..", "deploy", "prometheus", "alerts", "ledger.yml"))
	require.NoError(t, err)
	var spec alertFile
	require.NoError(t, yaml.Unmarshal(raw, &spec))
	return spec
}

func TestLedgerAlertRules(t *testing.T) {
	spec := loadLedgerAlerts(t)
	require.Len(t, spec.Groups, 1)
	group := spec.Groups[0]
	assert.Equal(t, "ledger", group.Name)

	want := map[string]string{
		"HighErrorRate":           "critical",
		"VoucherFailureSpike":     "warning",
		"BalanceSheetImbalance":   "warning",
		"LedgerIntegrityMismatch": "critical",
	}
	require.Len(t, group.Rules, len(want))
	for _, rule := range group.Rules {
		severity, ok := want[rule.Alert]
		require.True(t, ok, "unexpected alert %s", rule.Alert)
		assert.Equal(t, severity, rule.Labels["severity"], rule.Alert)
		assert.NotEmpty(t, rule.Expr, rule.Alert)
		assert.NotEmpty(t, rule.For, rule.Alert)
		assert.NotEmpty(t, rule.Annotations["summary"], rule.Alert)
		assert.Regexp(t, `^docs/runbook-ledger\.md#[a-z-]+$`, rule.Annotations["runbook"], rule.Alert)
	}
}

// Every metric an alert queries must be one the service exports.
func TestAlertExpressionsUseExportedMetrics(t *testing.T) {
	m := NewMetrics()
	m.VoucherPosted("RECEIPT")
	m.VoucherFailed("internal")
	m.BalanceSheetImbalance()
	m.Jobs().AddMismatches(1)
	m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	families, err := m.registry.Gather()
	require.NoError(t, err)
	exported := map[string]bool{}
	for _, mf := range families {
		exported[mf.GetName()] = true
	}

	for _, rule := range loadLedgerAlerts(t).Groups[0].Rules {
		for _, name := range metricName.FindAllString(rule.Expr, -1) {
			assert.True(t, exported[name], "%s queries unknown metric %s", rule.Alert, name)
		}
	}
}
