// Package mqttpub publishes normalized price series to an MQTT broker.
package mqttpub

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/angas/spotprice-go/types"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const publishTimeout = 10 * time.Second

type Publisher struct {
	client mqtt.Client
	logger *slog.Logger
	topic  string
}

func New(broker string, port int16, username, password, topic string) *Publisher {
	logger := slog.Default().With("module", "mqtt")
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", broker, port))
	opts.SetClientID("spotprice")
	opts.SetUsername(username)
	opts.SetPassword(password)
	opts.SetAutoReconnect(true)
	opts.OnConnect = func(client mqtt.Client) {
		logger.Info("MQTT connected")
	}
	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		logger.Warn("MQTT connection lost", slog.Any("error", err))
	}

	mqtt.CRITICAL = newMqttLogger(logger, slog.LevelError)
	mqtt.ERROR = newMqttLogger(logger, slog.LevelError)
	mqtt.WARN = newMqttLogger(logger, slog.LevelWarn)

	return &Publisher{
		client: mqtt.NewClient(opts),
		logger: logger,
		topic:  topic,
	}
}

func (p *Publisher) Connect() error {
	p.logger.Debug("connecting MQTT client")
	if token := p.client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	return nil
}

func (p *Publisher) Disconnect() {
	p.client.Disconnect(250)
}

// Publish sends the series retained, so late subscribers get the latest prices.
func (p *Publisher) Publish(series types.PriceSeries) error {
	topic := Topic(p.topic, series.AreaCode)
	payload, err := Payload(series)
	if err != nil {
		return err
	}

	token := p.client.Publish(topic, 1, true, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publishing to %s timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publishing to %s: %w", topic, err)
	}

	p.logger.Debug("published prices", slog.String("topic", topic), slog.Int("points", len(series.Points)))
	return nil
}

func Topic(base, area string) string {
	return fmt.Sprintf("%s/%s", base, area)
}

type message struct {
	types.PriceSeries
	Resolution  string    `json:"resolution"`
	PublishedAt time.Time `json:"publishedAt"`
}

// Payload encodes the series as JSON, resolution as ISO 8601 duration.
func Payload(series types.PriceSeries) ([]byte, error) {
	buf, err := json.Marshal(message{
		PriceSeries: series,
		Resolution:  isoMinutes(series.Resolution),
		PublishedAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("encoding prices: %w", err)
	}
	return buf, nil
}

func isoMinutes(d time.Duration) string {
	return fmt.Sprintf("PT%dM", int(d/time.Minute))
}
