// Package airquality answers questions about an air sensor station: air
// quality index, humidity and temperature. The station exposes a JSON
// endpoint; responses are cached briefly so that repeated questions don't
// hammer it.
package airquality

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/kestrelhq/kestrel/core/component"
	"github.com/kestrelhq/kestrel/core/logger"
	"github.com/kestrelhq/kestrel/core/model"
	"github.com/kestrelhq/kestrel/core/service"
)

// Config identifies the sensor station.
type Config struct {
	// SensorID is the station's device ID. Required.
	SensorID int `json:"sensor_id"`
	// BaseURL overrides the sensor API endpoint, mainly for tests.
	BaseURL string `json:"base_url"`
	// CacheTTLSeconds bounds how often the station is queried.
	CacheTTLSeconds int `json:"cache_ttl_seconds"`
	Belief          float64 `json:"belief"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://www.purpleair.com"
	}
	if c.CacheTTLSeconds == 0 {
		c.CacheTTLSeconds = 60
	}
	if c.Belief == 0 {
		c.Belief = 1
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.SensorID == 0 {
		return fmt.Errorf("sensor_id is required")
	}
	return nil
}

type kind int

const (
	kindAQIRaw kind = iota
	kindAQI
	kindHumidity
	kindTemperature
)

var subjects = []struct {
	phrase []string
	kind   kind
}{
	{[]string{"air", "quality", "index"}, kindAQIRaw},
	{[]string{"air", "quality"}, kindAQI},
	{[]string{"humidity"}, kindHumidity},
	{[]string{"temperature"}, kindTemperature},
}

var prefixes = [][]string{
	{"what", "is", "the"},
	{"whats", "the"},
}

// Service answers sensor questions.
type Service struct {
	*component.Base
	cfg    Config
	log    logger.Logger
	client *http.Client

	mu        sync.Mutex
	cached    map[string]any
	fetchedAt time.Time
}

// New builds the air quality service.
func New(cfg Config, notifier component.Notifier, log logger.Logger) (*Service, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop{}
	}
	return &Service{
		Base:   component.NewBase("airquality", notifier),
		cfg:    cfg,
		log:    log,
		client: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// Evaluate claims utterances like "what is the air quality" or "whats the
// humidity".
func (s *Service) Evaluate(tokens []model.Token) service.Handler {
	words := model.Words(tokens)
	for _, subject := range subjects {
		for _, prefix := range prefixes {
			phrase := append(append([]string{}, prefix...), subject.phrase...)
			if !hasPrefix(words, phrase) {
				continue
			}
			k := subject.kind
			return service.NewFuncHandler(s, tokens, s.cfg.Belief, func() (*service.Result, error) {
				return s.answer(k)
			})
		}
	}
	return nil
}

func (s *Service) answer(k kind) (*service.Result, error) {
	s.Notify(model.StatusWorking)
	defer s.Notify(model.StatusIdle)

	data, err := s.fetch()
	if err != nil {
		return nil, err
	}
	where, _ := data["DEVICE_LOCATIONTYPE"].(string)

	var text string
	switch k {
	case kindAQIRaw:
		if v, ok := toFloat(data["PM2_5Value"]); ok {
			text = fmt.Sprintf("The air quality index %s is %d.", where, int(aqiFromPM25(v)))
		} else {
			text = fmt.Sprintf("The air quality %s is unknown.", where)
		}
	case kindAQI:
		if v, ok := toFloat(data["PM2_5Value"]); ok {
			text = fmt.Sprintf("The air quality %s is %s.", where, describeAQI(aqiFromPM25(v)))
		} else {
			text = fmt.Sprintf("The air quality %s is unknown.", where)
		}
	case kindHumidity:
		if v, ok := toFloat(data["humidity"]); ok {
			text = fmt.Sprintf("The humidity %s is %v percent.", where, v)
		} else {
			text = fmt.Sprintf("The humidity %s is unknown.", where)
		}
	case kindTemperature:
		if v, ok := toFloat(data["temp_f"]); ok {
			text = fmt.Sprintf("The temperature %s is %v degrees fahrenheit.", where, v)
		} else {
			text = fmt.Sprintf("The temperature %s is unknown.", where)
		}
	}
	return &service.Result{Text: text}, nil
}

// fetch returns the station's latest reading, reusing the cached one while
// it is fresh.
func (s *Service) fetch() (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ttl := time.Duration(s.cfg.CacheTTLSeconds) * time.Second
	if s.cached != nil && time.Since(s.fetchedAt) < ttl {
		return s.cached, nil
	}

	url := fmt.Sprintf("%s/json?show=%d", s.cfg.BaseURL, s.cfg.SensorID)
	resp, err := s.client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("query sensor: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sensor returned %s", resp.Status)
	}

	var raw struct {
		Results []map[string]any `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode sensor response: %w", err)
	}
	if len(raw.Results) == 0 {
		return nil, fmt.Errorf("sensor returned no results")
	}
	s.log.Debugf("sensor %d: %v", s.cfg.SensorID, raw.Results[0])
	s.cached = raw.Results[0]
	s.fetchedAt = time.Now()
	return s.cached, nil
}

// aqiFromPM25 is a rough approximation of the AQI from the PM2.5 reading.
func aqiFromPM25(v float64) float64 { return v * v / 285 }

func describeAQI(aqi float64) string {
	switch {
	case aqi < 50:
		return "okay"
	case aqi < 100:
		return "acceptable"
	case aqi < 150:
		return "poor"
	case aqi < 200:
		return "bad"
	case aqi < 250:
		return "hazardous"
	default:
		return "extremely hazardous"
	}
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func hasPrefix(words, phrase []string) bool {
	if len(words) < len(phrase) {
		return false
	}
	for i, w := range phrase {
		if words[i] != w {
			return false
		}
	}
	return true
}
