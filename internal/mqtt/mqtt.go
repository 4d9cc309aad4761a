// FilePath: internal/mqtt/mqtt.go
package mqtt

import (
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	nuts "github.com/vaudience/go-nuts"
)

// Client wraps the paho client with the few operations the hub needs.
type Client struct {
	client mqtt.Client
}

// Connect dials the broker and blocks until the connection is up or the
// attempt times out. Reconnects are handled by paho afterwards.
func Connect(brokerURL, clientID string) (*Client, error) {
	url := strings.TrimSpace(brokerURL)
	if strings.HasPrefix(url, "mqtt://") {
		url = "tcp://" + strings.TrimPrefix(url, "mqtt://")
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(url)
	if strings.TrimSpace(clientID) == "" {
		clientID = "envhub-" + time.Now().Format("150405.000")
	}
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		nuts.L.Warnf("[MQTT] Connection lost: %v", err)
	}
	opts.OnConnect = func(_ mqtt.Client) {
		nuts.L.Infof("[MQTT] Connected to %s", url)
	}

	c := mqtt.NewClient(opts)
	tok := c.Connect()
	if ok := tok.WaitTimeout(15 * time.Second); !ok {
		return nil, tok.Error()
	}
	if err := tok.Error(); err != nil {
		return nil, err
	}
	return &Client{client: c}, nil
}

// Subscribe registers a handler at QoS 1. The bus is at-least-once; the
// handler must tolerate duplicates.
func (c *Client) Subscribe(topic string, handler func(payload []byte)) error {
	tok := c.client.Subscribe(topic, 1, func(_ mqtt.Client, msg mqtt.Message) {
		handler(msg.Payload())
	})
	tok.Wait()
	return tok.Error()
}

// Publish sends one message at QoS 1 and waits for the broker's ack.
func (c *Client) Publish(topic string, payload []byte) error {
	tok := c.client.Publish(topic, 1, false, payload)
	tok.Wait()
	return tok.Error()
}

func (c *Client) Close() {
	if c == nil || c.client == nil {
		return
	}
	c.client.Disconnect(1000)
}
