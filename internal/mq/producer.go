package mq

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/nsqio/go-nsq"
)

// Producer publishes JSON events to a single NSQ topic.
type Producer struct {
	p     *nsq.Producer
	topic string
}

// NewProducer connects to nsqd at addr and verifies it with a ping.
func NewProducer(addr, topic string) (*Producer, error) {
	cfg := nsq.NewConfig()
	p, err := nsq.NewProducer(addr, cfg)
	if err != nil {
		return nil, fmt.Errorf("nsq producer: %w", err)
	}
	p.SetLogger(log.Default(), nsq.LogLevelWarning)
	if err := p.Ping(); err != nil {
		p.Stop()
		return nil, fmt.Errorf("nsq ping %s: %w", addr, err)
	}
	return &Producer{p: p, topic: topic}, nil
}

// PublishJSON marshals v and publishes it to the configured topic.
func (p *Producer) PublishJSON(v interface{}) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return p.p.Publish(p.topic, body)
}

// Stop flushes and closes the connection.
func (p *Producer) Stop() {
	if p != nil && p.p != nil {
		p.p.Stop()
	}
}
