package mqtt

import (
	"encoding/json"
	"sync"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kestrelhq/kestrel/core/component"
	"github.com/kestrelhq/kestrel/core/logger"
	"github.com/kestrelhq/kestrel/core/model"
)

// Input receives utterances over MQTT. Messages are decoded and buffered off
// the polling goroutine; Read never blocks.
type Input struct {
	*component.Base
	cfg Config
	log logger.Logger

	cli     pahoClient
	mu      sync.Mutex
	pending [][]model.Token
}

// NewInput builds the input. The broker connection is made in Start.
func NewInput(cfg Config, notifier component.Notifier, log logger.Logger) (*Input, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop{}
	}
	return &Input{
		Base: component.NewBase("mqtt-input", notifier),
		cfg:  cfg,
		log:  log,
	}, nil
}

// Start connects to the broker and subscribes to the utterance topic.
func (in *Input) Start() error {
	cli, err := connect(in.cfg, "-in")
	if err != nil {
		return err
	}
	if token := cli.Subscribe(in.cfg.UtteranceTopic, in.cfg.QoS, in.onMessage); token.Wait() && token.Error() != nil {
		cli.Disconnect(250)
		return token.Error()
	}
	in.cli = cli
	in.Notify(model.StatusIdle)
	return nil
}

// Stop disconnects from the broker.
func (in *Input) Stop() error {
	if in.cli != nil && in.cli.IsConnected() {
		in.cli.Disconnect(250)
	}
	return nil
}

// Read pops one pending batch, or returns nil when nothing arrived.
func (in *Input) Read() []model.Token {
	in.mu.Lock()
	defer in.mu.Unlock()
	if len(in.pending) == 0 {
		return nil
	}
	batch := in.pending[0]
	in.pending = in.pending[1:]
	if len(in.pending) == 0 {
		in.Notify(model.StatusIdle)
	}
	return batch
}

func (in *Input) onMessage(_ paho.Client, msg paho.Message) {
	tokens := decodeUtterance(msg.Payload())
	if len(tokens) == 0 {
		in.log.Debugf("empty utterance on %s", msg.Topic())
		return
	}
	in.mu.Lock()
	in.pending = append(in.pending, tokens)
	in.mu.Unlock()
	in.Notify(model.StatusActive)
}

// utterance is the JSON payload shape. Either pre-tokenized tokens or plain
// text; a payload that is not JSON at all is treated as plain text.
type utterance struct {
	Text   string        `json:"text"`
	Tokens []model.Token `json:"tokens"`
}

func decodeUtterance(payload []byte) []model.Token {
	var u utterance
	if err := json.Unmarshal(payload, &u); err == nil {
		if len(u.Tokens) > 0 {
			return u.Tokens
		}
		if u.Text != "" {
			return model.Tokenize(u.Text)
		}
		return nil
	}
	return model.Tokenize(string(payload))
}
