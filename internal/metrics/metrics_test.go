package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// findMetricFamily は指定名のメトリクスファミリーを返す。見つからない場合はnil。
func findMetricFamily(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

// labelsOf はメトリクスのラベルをmapに変換する。
func labelsOf(m *dto.Metric) map[string]string {
	labels := make(map[string]string, len(m.GetLabel()))
	for _, lp := range m.GetLabel() {
		labels[lp.GetName()] = lp.GetValue()
	}
	return labels
}

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	if c := NewCollector(reg); c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

// TestRecordHTTPRequest_IncrementsCounterWithLabels はHTTPリクエストカウンタがラベル付きで増加することを検証する。
func TestRecordHTTPRequest_IncrementsCounterWithLabels(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPRequest(http.MethodGet, "/api/users", 200, 10*time.Millisecond)
	c.RecordHTTPRequest(http.MethodGet, "/api/users", 200, 20*time.Millisecond)
	c.RecordHTTPRequest(http.MethodPost, "/api/users", 409, 5*time.Millisecond)

	mf := findMetricFamily(t, reg, "userman_http_requests_total")
	if mf == nil {
		t.Fatal("userman_http_requests_total metric not found")
	}
	if len(mf.GetMetric()) != 2 {
		t.Fatalf("expected 2 label combinations, got %d", len(mf.GetMetric()))
	}

	for _, m := range mf.GetMetric() {
		labels := labelsOf(m)
		val := m.GetCounter().GetValue()
		switch labels["method"] {
		case http.MethodGet:
			if labels["status"] != "200" || val != 2 {
				t.Errorf("GET series = %v (%v), want status=200 value=2", labels, val)
			}
		case http.MethodPost:
			if labels["status"] != "409" || val != 1 {
				t.Errorf("POST series = %v (%v), want status=409 value=1", labels, val)
			}
		default:
			t.Errorf("unexpected series: %v", labels)
		}
		if labels["route"] != "/api/users" {
			t.Errorf("route = %q, want %q", labels["route"], "/api/users")
		}
	}
}

// TestRecordHTTPRequest_ObservesHistogram はレイテンシのヒストグラムに値が記録されることを検証する。
func TestRecordHTTPRequest_ObservesHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPRequest(http.MethodGet, "/api/users/{id}", 200, 100*time.Millisecond)
	c.RecordHTTPRequest(http.MethodGet, "/api/users/{id}", 404, 2*time.Second)

	mf := findMetricFamily(t, reg, "userman_http_request_duration_seconds")
	if mf == nil {
		t.Fatal("userman_http_request_duration_seconds metric not found")
	}
	h := mf.GetMetric()[0].GetHistogram()
	if h.GetSampleCount() != 2 {
		t.Errorf("sample_count = %d, want 2", h.GetSampleCount())
	}
	// 合計は0.1 + 2.0 = 2.1秒
	if h.GetSampleSum() < 2.0 || h.GetSampleSum() > 2.2 {
		t.Errorf("sample_sum = %v, want ~2.1", h.GetSampleSum())
	}
}

// TestRecordUserOperation_IncrementsCounter はユーザー操作カウンタが増加することを検証する。
func TestRecordUserOperation_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordUserOperation("create", "success")
	c.RecordUserOperation("create", "success")
	c.RecordUserOperation("create", "conflict")

	mf := findMetricFamily(t, reg, "userman_user_operations_total")
	if mf == nil {
		t.Fatal("userman_user_operations_total metric not found")
	}

	got := map[string]float64{}
	for _, m := range mf.GetMetric() {
		labels := labelsOf(m)
		got[labels["operation"]+"/"+labels["outcome"]] = m.GetCounter().GetValue()
	}
	if got["create/success"] != 2 {
		t.Errorf("create/success = %v, want 2", got["create/success"])
	}
	if got["create/conflict"] != 1 {
		t.Errorf("create/conflict = %v, want 1", got["create/conflict"])
	}
}

// TestMetricsHandler_ReturnsPrometheusFormat は/metricsエンドポイントがPrometheus形式で返すことを検証する。
func TestMetricsHandler_ReturnsPrometheusFormat(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPRequest(http.MethodDelete, "/api/users/{id}", 204, time.Millisecond)
	c.RecordUserOperation("delete", "success")

	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	body, _ := io.ReadAll(resp.Body)
	for _, metric := range []string{
		"userman_http_requests_total",
		"userman_http_request_duration_seconds",
		"userman_user_operations_total",
	} {
		if !strings.Contains(string(body), metric) {
			t.Errorf("response body does not contain %q", metric)
		}
	}
}

// TestCollector_ImplementsMetricsCollectorInterface はCollectorがMetricsCollectorインターフェースを実装することを検証する。
func TestCollector_ImplementsMetricsCollectorInterface(t *testing.T) {
	reg := prometheus.NewRegistry()
	var _ MetricsCollector = NewCollector(reg)
}

// TestMultipleCollectors_IndependentRegistries は異なるレジストリで独立に動作することを検証する。
func TestMultipleCollectors_IndependentRegistries(t *testing.T) {
	reg1 := prometheus.NewRegistry()
	reg2 := prometheus.NewRegistry()
	c1 := NewCollector(reg1)
	c2 := NewCollector(reg2)

	c1.RecordUserOperation("get", "success")
	c2.RecordUserOperation("get", "success")
	c2.RecordUserOperation("get", "success")

	val1 := findMetricFamily(t, reg1, "userman_user_operations_total").GetMetric()[0].GetCounter().GetValue()
	val2 := findMetricFamily(t, reg2, "userman_user_operations_total").GetMetric()[0].GetCounter().GetValue()

	if val1 != 1 {
		t.Errorf("reg1 user_operations = %v, want 1", val1)
	}
	if val2 != 2 {
		t.Errorf("reg2 user_operations = %v, want 2", val2)
	}
}
