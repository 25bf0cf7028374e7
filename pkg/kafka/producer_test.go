package kafka

import (
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProducer(t *testing.T) {
	p, err := NewProducer(Config{Brokers: []string{"kafka-1:9092", "kafka-2:9092"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, p.brokers)
	assert.Empty(t, p.writers)
	assert.Nil(t, p.transport.SASL)
	assert.Nil(t, p.transport.TLS)
}

func TestNewProducerRejectsUnknownMechanism(t *testing.T) {
	_, err := NewProducer(Config{SASLEnabled: true, SASLMechanism: "GSSAPI"})
	assert.Error(t, err)
}

func TestProducerReusesWriterPerTopic(t *testing.T) {
	p, err := NewProducer(Config{Brokers: []string{"localhost:9092"}, TLS: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })

	w1 := p.writer("sacco.lending.events")
	w2 := p.writer("sacco.lending.events")
	w3 := p.writer("other")

	assert.Same(t, w1, w2)
	assert.NotSame(t, w1, w3)
	assert.NotNil(t, p.transport.TLS)
}

func TestMessageConversionRoundTrip(t *testing.T) {
	msg := Message{
		Key:     []byte("loan-1"),
		Value:   []byte(`{"amount":"100.00"}`),
		Headers: map[string]string{"event-type": "PaymentPosted"},
	}

	km := toKafkaMessage(msg)
	require.Len(t, km.Headers, 1)
	assert.Equal(t, kafkago.Header{Key: "event-type", Value: []byte("PaymentPosted")}, km.Headers[0])

	back := fromKafkaMessage(km)
	assert.Equal(t, msg, back)
}
