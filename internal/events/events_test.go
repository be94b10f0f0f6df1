package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKafkaPublisher_SendsKeyedJSON(t *testing.T) {
	producer := mocks.NewSyncProducer(t, mocks.NewTestConfig())
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var ev Event
		if err := json.Unmarshal(val, &ev); err != nil {
			return err
		}
		if ev.Type != BillCreated || ev.BillID != "b1" {
			return errors.New("unexpected event payload")
		}
		if !ev.TotalAmount.Equal(decimal.RequireFromString("525.00")) {
			return errors.New("unexpected total")
		}
		return nil
	})

	pub := NewKafkaPublisherWithProducer(producer, "bills", nil)
	err := pub.Publish(context.Background(), Event{
		Type:        BillCreated,
		BillID:      "b1",
		HouseholdID: "h1",
		TotalAmount: decimal.RequireFromString("525.00"),
		OccurredAt:  time.Now(),
	})
	require.NoError(t, err)
	require.NoError(t, pub.Close())
}

func TestKafkaPublisher_PropagatesSendError(t *testing.T) {
	producer := mocks.NewSyncProducer(t, mocks.NewTestConfig())
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	pub := NewKafkaPublisherWithProducer(producer, "bills", nil)
	err := pub.Publish(context.Background(), Event{Type: BillPaid, BillID: "b1", HouseholdID: "h1"})
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, pub.Close())
}

func TestNewKafkaPublisher_RequiresBrokersAndTopic(t *testing.T) {
	_, err := NewKafkaPublisher(KafkaConfig{Topic: "bills"}, nil)
	assert.Error(t, err)
	_, err = NewKafkaPublisher(KafkaConfig{Brokers: []string{"localhost:9092"}}, nil)
	assert.Error(t, err)
}

func TestParseRequiredAcks(t *testing.T) {
	acks, err := parseRequiredAcks("leader")
	require.NoError(t, err)
	assert.Equal(t, sarama.WaitForLocal, acks)

	_, err = parseRequiredAcks("sometimes")
	assert.Error(t, err)
}
