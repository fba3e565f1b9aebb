package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/tolelom/tolstake/events"
)

type RedisPublisherTestSuite struct {
	suite.Suite
	mr     *miniredis.Miniredis
	client *redis.Client
	pub    *RedisPublisher
	ctx    context.Context
}

func (s *RedisPublisherTestSuite) SetupTest() {
	mr, err := miniredis.Run()
	s.Require().NoError(err)
	s.mr = mr
	s.client = redis.NewClient(&redis.Options{Addr: s.mr.Addr()})
	s.ctx = context.Background()

	pub, err := NewRedis(s.ctx, &Config{RedisClient: s.client, Channel: "tolstake:events"})
	s.Require().NoError(err)
	s.pub = pub
}

func (s *RedisPublisherTestSuite) TearDownTest() {
	s.client.Close()
	s.mr.Close()
}

func TestRedisPublisherTestSuite(t *testing.T) {
	suite.Run(t, new(RedisPublisherTestSuite))
}

func (s *RedisPublisherTestSuite) TestNewRedisValidatesConfig() {
	_, err := NewRedis(s.ctx, nil)
	s.Error(err)
	_, err = NewRedis(s.ctx, &Config{})
	s.Error(err)
	_, err = NewRedis(s.ctx, &Config{RedisClient: s.client})
	s.Error(err)
}

func (s *RedisPublisherTestSuite) TestAttachForwardsEmittedEvents() {
	sub := s.client.Subscribe(s.ctx, "tolstake:events")
	defer sub.Close()
	_, err := sub.Receive(s.ctx)
	s.Require().NoError(err)

	emitter := events.NewEmitter()
	s.pub.Attach(emitter)
	emitter.Emit(events.Event{
		Type:     events.EventDeposit,
		TxID:     "tx1",
		Sequence: 3,
		Data:     map[string]any{"player": "p1", "amount": uint64(20_000_000)},
	})

	ctx, cancel := context.WithTimeout(s.ctx, 2*time.Second)
	defer cancel()
	msg, err := sub.ReceiveMessage(ctx)
	s.Require().NoError(err)

	var got events.Event
	s.Require().NoError(json.Unmarshal([]byte(msg.Payload), &got))
	s.Equal(events.EventDeposit, got.Type)
	s.Equal("tx1", got.TxID)
	s.Equal(int64(3), got.Sequence)
	s.Equal("p1", got.Data["player"])
}

func (s *RedisPublisherTestSuite) TestPublishFailsWhenServerGone() {
	s.mr.Close()
	err := s.pub.Publish(s.ctx, events.Event{Type: events.EventPayout})
	s.Error(err)
}
