package broadcast

import (
	"encoding/json"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"
)

// Publisher pushes reconciled state and alerts onto the broker topic the
// dashboard relay subscribes to. Publishing is fire-and-forget at QoS 0;
// a dropped update is replaced by the next sample anyway.
type Publisher struct {
	client mqtt.Client
	topic  string
}

func NewPublisher(broker, topic string) (*Publisher, error) {
	opts := mqtt.NewClientOptions().AddBroker(broker).SetAutoReconnect(true)
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return &Publisher{client: client, topic: topic}, nil
}

func (p *Publisher) PublishUpdate(v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("update marshal failed")
		return
	}
	p.client.Publish(p.topic, 0, false, payload)
}

func (p *Publisher) Close() {
	p.client.Disconnect(250)
}
