package mqtt

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/nerrad567/gray-logic-irrigation/internal/infrastructure/config"
)

// testConfig returns an MQTT configuration that needs no broker to build.
func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Enabled: true,
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "irrigation-test",
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
			MaxAttempts:  1,
		},
	}
}

// =============================================================================
// Topic Tests
// =============================================================================

func TestTopicBuilders(t *testing.T) {
	topics := Topics{}
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"ValveCommand", topics.ValveCommand("5"), "irrigation/command/valve/5"},
		{"StationEvent", topics.StationEvent("5"), "irrigation/event/5"},
		{"StationState", topics.StationState("north-beds"), "irrigation/state/north-beds"},
		{"SystemStatus", topics.SystemStatus(), "irrigation/system/status"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %q, want %q", tt.name, tt.got, tt.want)
			}
		})
	}
}

// =============================================================================
// Option Tests
// =============================================================================

func TestBuildClientOptions(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*config.MQTTConfig)
		wantURL    string
		wantUser   string
		wantTLSSet bool
	}{
		{"plain tcp", func(*config.MQTTConfig) {}, "tcp://127.0.0.1:1883", "", false},
		{"tls", func(c *config.MQTTConfig) { c.Broker.TLS = true; c.Broker.Port = 8883 }, "ssl://127.0.0.1:8883", "", true},
		{"auth", func(c *config.MQTTConfig) { c.Auth.Username = "relay"; c.Auth.Password = "secret" }, "tcp://127.0.0.1:1883", "relay", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			opts := buildClientOptions(cfg)

			if len(opts.Servers) != 1 || opts.Servers[0].String() != tt.wantURL {
				t.Errorf("Servers = %v, want [%s]", opts.Servers, tt.wantURL)
			}
			if opts.ClientID != "irrigation-test" {
				t.Errorf("ClientID = %q", opts.ClientID)
			}
			if opts.Username != tt.wantUser {
				t.Errorf("Username = %q, want %q", opts.Username, tt.wantUser)
			}
			if (opts.TLSConfig != nil && opts.TLSConfig.MinVersion == tlsMinVersion) != tt.wantTLSSet {
				t.Errorf("TLS configured = %v, want %v", opts.TLSConfig != nil, tt.wantTLSSet)
			}
			if !opts.AutoReconnect || opts.ConnectRetry {
				t.Errorf("AutoReconnect = %v ConnectRetry = %v, want true/false", opts.AutoReconnect, opts.ConnectRetry)
			}
			if !opts.CleanSession {
				t.Error("CleanSession = false, want true")
			}
		})
	}
}

func TestConfigureLWT(t *testing.T) {
	opts := buildClientOptions(testConfig())
	configureLWT(opts, "irrigation-test")

	if !opts.WillEnabled || !opts.WillRetained || opts.WillQos != 1 {
		t.Errorf("will enabled=%v retained=%v qos=%d", opts.WillEnabled, opts.WillRetained, opts.WillQos)
	}
	if opts.WillTopic != "irrigation/system/status" {
		t.Errorf("WillTopic = %q", opts.WillTopic)
	}
	payload := string(opts.WillPayload)
	for _, want := range []string{`"status":"offline"`, `"client_id":"irrigation-test"`, `"reason":"unexpected_disconnect"`} {
		if !strings.Contains(payload, want) {
			t.Errorf("WillPayload %s missing %s", payload, want)
		}
	}
}

func TestStatusPayloads(t *testing.T) {
	if p := buildOnlinePayload("c1"); !strings.Contains(p, `"status":"online"`) || !strings.Contains(p, `"client_id":"c1"`) {
		t.Errorf("online payload = %s", p)
	}
	if p := buildOfflinePayload("c1"); !strings.Contains(p, `"reason":"graceful_shutdown"`) {
		t.Errorf("offline payload = %s", p)
	}
}

// =============================================================================
// Client Tests (no broker)
// =============================================================================

func TestConnect_BrokerRefused(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.Port = 1 // nothing listens here

	_, err := Connect(context.Background(), cfg)
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestConnect_Cancelled(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.Port = 1
	cfg.Reconnect.MaxAttempts = 100

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := Connect(ctx, cfg); !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestPublish_Validation(t *testing.T) {
	c := &Client{cfg: testConfig()}

	tests := []struct {
		name    string
		topic   string
		payload []byte
		qos     byte
		wantErr error
	}{
		{"empty topic", "", []byte("x"), 1, ErrInvalidTopic},
		{"invalid qos", "irrigation/event/5", []byte("x"), 3, ErrInvalidQoS},
		{"oversized payload", "irrigation/event/5", make([]byte, maxPayloadSize+1), 1, ErrPublishFailed},
		{"not connected", "irrigation/event/5", []byte("x"), 1, ErrNotConnected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := c.Publish(tt.topic, tt.payload, tt.qos, false); !errors.Is(err, tt.wantErr) {
				t.Errorf("Publish() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestHealthCheck_NotConnected(t *testing.T) {
	c := &Client{cfg: testConfig()}

	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.HealthCheck(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck() error = %v, want context.Canceled", err)
	}
}

func TestCloseWithoutConnection(t *testing.T) {
	c := &Client{}
	if err := c.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestConnectBackOff_Attempts(t *testing.T) {
	tests := []struct {
		maxAttempts int
		wantCalls   int
	}{
		{0, 1},
		{1, 1},
		{3, 3},
	}
	for _, tt := range tests {
		rc := config.MQTTReconnectConfig{MaxAttempts: tt.maxAttempts}
		b := connectBackOff(context.Background(), rc)
		b.Reset()

		// Count the retries the policy allows without sleeping.
		calls := 1
		for b.NextBackOff() >= 0 {
			calls++
		}
		if calls != tt.wantCalls {
			t.Errorf("MaxAttempts=%d allows %d calls, want %d", tt.maxAttempts, calls, tt.wantCalls)
		}
	}
}
