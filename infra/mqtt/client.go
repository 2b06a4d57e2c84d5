// Package mqtt provides the MQTT-backed input and output components using
// the Eclipse Paho client.
package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Broker         string `json:"broker"`
	ClientID       string `json:"client_id"`
	Username       string `json:"username"`
	Password       string `json:"password"`
	UseTLS         bool   `json:"use_tls"`
	ClientCert     string `json:"client_cert"`
	ClientKey      string `json:"client_key"`
	CABundle       string `json:"ca_bundle"`
	QoS            byte   `json:"qos"`
	UtteranceTopic string `json:"utterance_topic"`
	ResponseTopic  string `json:"response_topic"`
	ConnectTimeout int    `json:"connect_timeout_seconds"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.ClientID == "" {
		c.ClientID = "kestrel-" + uuid.NewString()[:8]
	}
	if c.UtteranceTopic == "" {
		c.UtteranceTopic = "kestrel/utterances"
	}
	if c.ResponseTopic == "" {
		c.ResponseTopic = "kestrel/responses"
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 10
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.Broker == "" {
		return fmt.Errorf("broker is required")
	}
	return nil
}

// pahoClient is the slice of the Paho API the components use; tests swap in
// a fake through newPahoClient.
type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

var newPahoClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// newClientOptions builds Paho client options from Config.
func newClientOptions(cfg Config, suffix string) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID + suffix)
	opts.AutoReconnect = true
	opts.ConnectTimeout = time.Duration(cfg.ConnectTimeout) * time.Second
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	if cfg.UseTLS {
		tlsCfg := &tls.Config{MinVersion: tls.VersionTLS12}
		if cfg.CABundle != "" {
			pem, err := os.ReadFile(cfg.CABundle)
			if err != nil {
				return nil, fmt.Errorf("read ca bundle: %w", err)
			}
			pool := x509.NewCertPool()
			if !pool.AppendCertsFromPEM(pem) {
				return nil, fmt.Errorf("invalid ca bundle %s", cfg.CABundle)
			}
			tlsCfg.RootCAs = pool
		}
		if cfg.ClientCert != "" && cfg.ClientKey != "" {
			cert, err := tls.LoadX509KeyPair(cfg.ClientCert, cfg.ClientKey)
			if err != nil {
				return nil, fmt.Errorf("load client cert: %w", err)
			}
			tlsCfg.Certificates = []tls.Certificate{cert}
		}
		opts.SetTLSConfig(tlsCfg)
	}
	return opts, nil
}

// connect builds and connects a client, failing on the first error.
func connect(cfg Config, suffix string) (pahoClient, error) {
	opts, err := newClientOptions(cfg, suffix)
	if err != nil {
		return nil, err
	}
	cli := newPahoClient(opts)
	if token := cli.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return cli, nil
}
