package airquality

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/kestrelhq/kestrel/core/model"
)

func newTestService(t *testing.T, body string) (*Service, *int64) {
	t.Helper()
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		if r.URL.Path != "/json" || r.URL.Query().Get("show") != "42" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)

	svc, err := New(Config{SensorID: 42, BaseURL: srv.URL}, nil, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, &hits
}

const reading = `{"results": [{
	"DEVICE_LOCATIONTYPE": "outside",
	"PM2_5Value": "170.0",
	"humidity": "40",
	"temp_f": "73"
}]}`

func TestAnswersBySubject(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"what is the air quality index", "The air quality index outside is 101."},
		{"whats the air quality", "The air quality outside is poor."},
		{"what is the humidity", "The humidity outside is 40 percent."},
		{"whats the temperature", "The temperature outside is 73 degrees fahrenheit."},
	}
	for _, tc := range cases {
		svc, _ := newTestService(t, reading)
		h := svc.Evaluate(model.Tokenize(tc.text))
		if h == nil {
			t.Fatalf("%q: expected a handler", tc.text)
		}
		res, err := h.Handle()
		if err != nil {
			t.Fatalf("%q: handle: %v", tc.text, err)
		}
		if res.Text != tc.want {
			t.Errorf("%q: text = %q, want %q", tc.text, res.Text, tc.want)
		}
		if res.Exclusive {
			t.Errorf("%q: sensor answers must not be exclusive", tc.text)
		}
	}
}

func TestEvaluateRejectsOtherQuestions(t *testing.T) {
	svc, _ := newTestService(t, reading)
	for _, text := range []string{"", "what is the time", "humidity", "tell me the humidity"} {
		if h := svc.Evaluate(model.Tokenize(text)); h != nil {
			t.Errorf("%q: expected no handler", text)
		}
	}
}

func TestFetchUsesCache(t *testing.T) {
	svc, hits := newTestService(t, reading)
	for i := 0; i < 3; i++ {
		h := svc.Evaluate(model.Tokenize("whats the humidity"))
		if h == nil {
			t.Fatal("expected a handler")
		}
		if _, err := h.Handle(); err != nil {
			t.Fatalf("handle: %v", err)
		}
	}
	if got := atomic.LoadInt64(hits); got != 1 {
		t.Fatalf("sensor queried %d times, want 1", got)
	}
}

func TestHandleReportsSensorFailure(t *testing.T) {
	svc, _ := newTestService(t, `{"results": []}`)
	h := svc.Evaluate(model.Tokenize("whats the temperature"))
	if h == nil {
		t.Fatal("expected a handler")
	}
	if _, err := h.Handle(); err == nil {
		t.Fatal("expected an error for an empty sensor response")
	}
}

func TestNewRequiresSensorID(t *testing.T) {
	if _, err := New(Config{}, nil, nil); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestDescribeAQI(t *testing.T) {
	cases := []struct {
		aqi  float64
		want string
	}{
		{10, "okay"},
		{75, "acceptable"},
		{120, "poor"},
		{180, "bad"},
		{220, "hazardous"},
		{400, "extremely hazardous"},
	}
	for _, tc := range cases {
		if got := describeAQI(tc.aqi); got != tc.want {
			t.Errorf("describeAQI(%v) = %q, want %q", tc.aqi, got, tc.want)
		}
	}
}
