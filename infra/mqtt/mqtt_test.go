package mqtt

import (
	"errors"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

type fakeToken struct{ err error }

func (t fakeToken) Wait() bool                     { return true }
func (t fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t fakeToken) Error() error { return t.err }

type published struct {
	topic   string
	qos     byte
	payload interface{}
}

type fakeClient struct {
	connected    bool
	connectErr   error
	subscribeErr error
	handler      paho.MessageHandler
	subscribed   string
	puts         []published
}

func (c *fakeClient) IsConnected() bool { return c.connected }

func (c *fakeClient) Connect() paho.Token {
	if c.connectErr == nil {
		c.connected = true
	}
	return fakeToken{err: c.connectErr}
}

func (c *fakeClient) Disconnect(uint) { c.connected = false }

func (c *fakeClient) Publish(topic string, qos byte, _ bool, payload interface{}) paho.Token {
	c.puts = append(c.puts, published{topic: topic, qos: qos, payload: payload})
	return fakeToken{}
}

func (c *fakeClient) Subscribe(topic string, _ byte, callback paho.MessageHandler) paho.Token {
	if c.subscribeErr != nil {
		return fakeToken{err: c.subscribeErr}
	}
	c.subscribed = topic
	c.handler = callback
	return fakeToken{}
}

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 0 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 0 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

func withFakeClient(t *testing.T, cli *fakeClient) {
	t.Helper()
	orig := newPahoClient
	newPahoClient = func(*paho.ClientOptions) pahoClient { return cli }
	t.Cleanup(func() { newPahoClient = orig })
}

func TestInputDecodesUtterances(t *testing.T) {
	cli := &fakeClient{}
	withFakeClient(t, cli)

	in, err := NewInput(Config{Broker: "tcp://localhost:1883"}, nil, nil)
	if err != nil {
		t.Fatalf("new input: %v", err)
	}
	if err := in.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer func() { _ = in.Stop() }()
	if cli.subscribed != "kestrel/utterances" {
		t.Fatalf("subscribed to %q", cli.subscribed)
	}

	cases := []struct {
		payload string
		want    []string
	}{
		{`{"text": "hey kestrel hello"}`, []string{"hey", "kestrel", "hello"}},
		{`{"tokens": [{"element": "hey"}, {"element": "kestrel"}]}`, []string{"hey", "kestrel"}},
		{`plain text utterance`, []string{"plain", "text", "utterance"}},
	}
	for _, tc := range cases {
		cli.handler(nil, fakeMessage{topic: "kestrel/utterances", payload: []byte(tc.payload)})
		batch := in.Read()
		if len(batch) != len(tc.want) {
			t.Fatalf("payload %q: got %d tokens want %d", tc.payload, len(batch), len(tc.want))
		}
		for i, w := range tc.want {
			if batch[i].Element != w {
				t.Errorf("payload %q: token %d = %q want %q", tc.payload, i, batch[i].Element, w)
			}
		}
	}
}

func TestInputDropsEmptyUtterances(t *testing.T) {
	cli := &fakeClient{}
	withFakeClient(t, cli)

	in, err := NewInput(Config{Broker: "tcp://localhost:1883"}, nil, nil)
	if err != nil {
		t.Fatalf("new input: %v", err)
	}
	if err := in.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer func() { _ = in.Stop() }()

	cli.handler(nil, fakeMessage{payload: []byte(`{"text": "   "}`)})
	if batch := in.Read(); batch != nil {
		t.Fatalf("expected nothing queued, got %v", batch)
	}
}

func TestInputStartFailures(t *testing.T) {
	cli := &fakeClient{connectErr: errors.New("broker down")}
	withFakeClient(t, cli)
	in, err := NewInput(Config{Broker: "tcp://localhost:1883"}, nil, nil)
	if err != nil {
		t.Fatalf("new input: %v", err)
	}
	if err := in.Start(); err == nil {
		t.Fatal("expected connect error")
	}

	cli = &fakeClient{subscribeErr: errors.New("denied")}
	withFakeClient(t, cli)
	if err := in.Start(); err == nil {
		t.Fatal("expected subscribe error")
	}
	if cli.connected {
		t.Fatal("client must disconnect after a failed subscribe")
	}
}

func TestNewInputRequiresBroker(t *testing.T) {
	if _, err := NewInput(Config{}, nil, nil); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestOutputPublishesResponses(t *testing.T) {
	cli := &fakeClient{}
	withFakeClient(t, cli)

	out, err := NewOutput(Config{Broker: "tcp://localhost:1883", QoS: 1}, nil, nil)
	if err != nil {
		t.Fatalf("new output: %v", err)
	}
	if err := out.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer func() { _ = out.Stop() }()

	if err := out.Write("It's 3:04 PM."); err != nil {
		t.Fatalf("write: %v", err)
	}
	if len(cli.puts) != 1 {
		t.Fatalf("expected one publish, got %d", len(cli.puts))
	}
	p := cli.puts[0]
	if p.topic != "kestrel/responses" || p.qos != 1 || p.payload != "It's 3:04 PM." {
		t.Fatalf("unexpected publish: %+v", p)
	}
}
