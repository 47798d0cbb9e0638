package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"job-marketplace-backend/internal/domain"
	"job-marketplace-backend/pkg/logger"

	"github.com/cespare/xxhash/v2"
	"github.com/redis/go-redis/v9"
)

const (
	fieldTopic  = "topic"
	fieldEvent  = "event"
	deadSuffix  = ":dead"
	defaultRead = 2 * time.Second
)

// ChannelConfig describes the streams a service publishes to or consumes.
type ChannelConfig struct {
	Stream             string
	Group              string
	Consumer           string
	Partitions         int
	ConsumerPartitions []int // empty means every partition
	MaxDeliveries      int
	ClaimIdle          time.Duration
	RetryBackoff       time.Duration
	ReadBlock          time.Duration
	BatchSize          int64
}

// EventChannel implements the event publisher and subscriber on Redis
// Streams. A job id always hashes to the same partition stream, and each
// partition is read by one consumer, so events for one job are handled in
// publish order.
type EventChannel struct {
	client *redis.Client
	cfg    ChannelConfig
}

var (
	_ domain.EventPublisher  = (*EventChannel)(nil)
	_ domain.EventSubscriber = (*EventChannel)(nil)
)

func NewEventChannel(client *redis.Client, cfg ChannelConfig) (*EventChannel, error) {
	if cfg.Stream == "" {
		return nil, errors.New("event channel: stream name required")
	}
	if cfg.Partitions < 1 {
		cfg.Partitions = 1
	}
	for _, p := range cfg.ConsumerPartitions {
		if p < 0 || p >= cfg.Partitions {
			return nil, fmt.Errorf("event channel: partition %d outside 0..%d", p, cfg.Partitions-1)
		}
	}
	if cfg.MaxDeliveries < 1 {
		cfg.MaxDeliveries = 10
	}
	if cfg.ClaimIdle <= 0 {
		cfg.ClaimIdle = time.Minute
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 2 * time.Second
	}
	if cfg.ReadBlock <= 0 {
		cfg.ReadBlock = defaultRead
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 16
	}
	return &EventChannel{client: client, cfg: cfg}, nil
}

// StreamFor returns the partition stream that carries events for jobID.
func (c *EventChannel) StreamFor(jobID string) string {
	if c.cfg.Partitions == 1 {
		return c.cfg.Stream
	}
	p := xxhash.Sum64String(jobID) % uint64(c.cfg.Partitions)
	return c.partitionStream(int(p))
}

func (c *EventChannel) partitionStream(p int) string {
	if c.cfg.Partitions == 1 {
		return c.cfg.Stream
	}
	return c.cfg.Stream + ":" + strconv.Itoa(p)
}

func (c *EventChannel) ownedStreams() []string {
	if len(c.cfg.ConsumerPartitions) == 0 {
		streams := make([]string, c.cfg.Partitions)
		for p := range streams {
			streams[p] = c.partitionStream(p)
		}
		return streams
	}
	streams := make([]string, 0, len(c.cfg.ConsumerPartitions))
	for _, p := range c.cfg.ConsumerPartitions {
		streams = append(streams, c.partitionStream(p))
	}
	return streams
}

// Publish appends evt to its partition stream. It returns once Redis has
// accepted the entry.
func (c *EventChannel) Publish(ctx context.Context, evt *domain.Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = c.client.XAdd(ctx, &redis.XAddArgs{
		Stream: c.StreamFor(evt.JobID),
		Values: map[string]interface{}{
			fieldTopic: string(evt.Type),
			fieldEvent: data,
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrChannelUnavailable, err)
	}
	return nil
}

// Subscribe consumes every owned partition until ctx is done. An entry is
// acknowledged only after handler returns nil.
func (c *EventChannel) Subscribe(ctx context.Context, handler domain.EventHandler) error {
	streams := c.ownedStreams()
	for _, stream := range streams {
		if err := c.ensureGroup(ctx, stream); err != nil {
			return err
		}
	}

	logger.Log.Info("Event channel subscribed",
		"streams", strings.Join(streams, ","), "group", c.cfg.Group, "consumer", c.cfg.Consumer)

	var wg sync.WaitGroup
	for _, stream := range streams {
		pc := &partitionConsumer{
			ch:       c,
			stream:   stream,
			handler:  handler,
			attempts: make(map[string]int),
			lastErr:  make(map[string]string),
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			pc.run(ctx)
		}()
	}
	wg.Wait()
	return nil
}

func (c *EventChannel) ensureGroup(ctx context.Context, stream string) error {
	// "0" lets a new group pick up entries published before it existed.
	err := c.client.XGroupCreateMkStream(ctx, stream, c.cfg.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group on %s: %w", stream, err)
	}
	return nil
}

// ReplayDeadLetters moves up to limit dead letters of every partition back onto
// their stream. It returns how many entries were moved.
func (c *EventChannel) ReplayDeadLetters(ctx context.Context, limit int) (int, error) {
	moved := 0
	for p := 0; p < c.cfg.Partitions && moved < limit; p++ {
		stream := c.partitionStream(p)
		dead := stream + deadSuffix
		msgs, err := c.client.XRangeN(ctx, dead, "-", "+", int64(limit-moved)).Result()
		if err != nil {
			return moved, fmt.Errorf("read dead letters from %s: %w", dead, err)
		}
		for _, msg := range msgs {
			_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.XAdd(ctx, &redis.XAddArgs{
					Stream: stream,
					Values: map[string]interface{}{
						fieldTopic: msg.Values[fieldTopic],
						fieldEvent: msg.Values[fieldEvent],
					},
				})
				pipe.XDel(ctx, dead, msg.ID)
				return nil
			})
			if err != nil {
				return moved, fmt.Errorf("replay dead letter %s: %w", msg.ID, err)
			}
			moved++
		}
	}
	return moved, nil
}

// partitionConsumer owns the read loop for one stream.
type partitionConsumer struct {
	ch        *EventChannel
	stream    string
	handler   domain.EventHandler
	attempts  map[string]int
	lastErr   map[string]string
	lastClaim time.Time
}

func (pc *partitionConsumer) run(ctx context.Context) {
	cfg := pc.ch.cfg
	for ctx.Err() == nil {
		// Own pending entries go first: they precede anything unread.
		drained, err := pc.drainPending(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Log.Error("Redis pending read error", "stream", pc.stream, "error", err)
			sleep(ctx, time.Second)
			continue
		}
		if !drained {
			sleep(ctx, cfg.RetryBackoff)
			continue
		}

		if time.Since(pc.lastClaim) >= cfg.ClaimIdle {
			pc.claimStale(ctx)
			pc.lastClaim = time.Now()
			continue
		}

		streams, err := pc.ch.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    cfg.Group,
			Consumer: cfg.Consumer,
			Streams:  []string{pc.stream, ">"},
			Count:    cfg.BatchSize,
			Block:    cfg.ReadBlock,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			logger.Log.Error("Redis read error", "stream", pc.stream, "error", err)
			sleep(ctx, time.Second)
			continue
		}
		for _, s := range streams {
			for _, msg := range s.Messages {
				// Later entries wait in the pending list behind a failure.
				if !pc.deliver(ctx, msg, 0) {
					break
				}
			}
		}
	}
}

// drainPending redelivers this consumer's unacknowledged entries in stream
// order, batch after batch, until none are left. It reports false when an
// entry is still failing.
func (pc *partitionConsumer) drainPending(ctx context.Context) (bool, error) {
	cfg := pc.ch.cfg
	for {
		pending, err := pc.ch.client.XPendingExt(ctx, &redis.XPendingExtArgs{
			Stream:   pc.stream,
			Group:    cfg.Group,
			Start:    "-",
			End:      "+",
			Count:    cfg.BatchSize,
			Consumer: cfg.Consumer,
		}).Result()
		if err != nil {
			return false, err
		}
		if len(pending) == 0 {
			return true, nil
		}
		prior := make(map[string]int, len(pending))
		for _, p := range pending {
			prior[p.ID] = int(p.RetryCount)
		}

		streams, err := pc.ch.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    cfg.Group,
			Consumer: cfg.Consumer,
			Streams:  []string{pc.stream, "0"},
			Count:    cfg.BatchSize,
			Block:    -1,
		}).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return false, err
		}
		delivered := 0
		for _, s := range streams {
			for _, msg := range s.Messages {
				if !pc.deliver(ctx, msg, prior[msg.ID]) {
					return false, nil
				}
				delivered++
			}
		}
		// Acked entries leave the pending list, so the next "0" read starts
		// at the following batch. An empty read means nothing is left to see.
		if delivered == 0 {
			return true, nil
		}
	}
}

// deliver hands one entry to the handler. It returns false when the entry
// stays pending.
func (pc *partitionConsumer) deliver(ctx context.Context, msg redis.XMessage, deliveries int) bool {
	cfg := pc.ch.cfg
	// Entries trimmed from the stream come back without a body.
	if len(msg.Values) == 0 {
		return pc.ack(ctx, msg.ID)
	}

	prior := pc.attempts[msg.ID]
	if deliveries > prior {
		prior = deliveries
	}
	if prior >= cfg.MaxDeliveries {
		reason := pc.lastErr[msg.ID]
		if reason == "" {
			reason = fmt.Sprintf("exceeded %d deliveries", cfg.MaxDeliveries)
		}
		return pc.deadLetter(ctx, msg, reason)
	}

	pc.attempts[msg.ID] = prior + 1
	evt, err := decodeEntry(msg)
	if err == nil {
		err = pc.handler(ctx, evt)
	}
	if err != nil {
		pc.lastErr[msg.ID] = err.Error()
		logger.Log.Warn("Event handling failed, will retry",
			"stream", pc.stream, "msgID", msg.ID, "attempt", prior+1, "error", err)
		return false
	}
	return pc.ack(ctx, msg.ID)
}

func (pc *partitionConsumer) ack(ctx context.Context, id string) bool {
	if err := pc.ch.client.XAck(ctx, pc.stream, pc.ch.cfg.Group, id).Err(); err != nil {
		logger.Log.Error("Failed to ack event", "stream", pc.stream, "msgID", id, "error", err)
		return false
	}
	pc.forget(id)
	return true
}

func (pc *partitionConsumer) deadLetter(ctx context.Context, msg redis.XMessage, reason string) bool {
	_, err := pc.ch.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: pc.stream + deadSuffix,
			Values: map[string]interface{}{
				fieldTopic:    msg.Values[fieldTopic],
				fieldEvent:    msg.Values[fieldEvent],
				"reason":      reason,
				"original_id": msg.ID,
				"failed_at":   time.Now().UTC().Format(time.RFC3339),
			},
		})
		pipe.XAck(ctx, pc.stream, pc.ch.cfg.Group, msg.ID)
		return nil
	})
	if err != nil {
		logger.Log.Error("Failed to dead-letter event", "stream", pc.stream, "msgID", msg.ID, "error", err)
		return false
	}
	logger.Log.Error("Event moved to dead letters",
		"stream", pc.stream, "msgID", msg.ID, "topic", msg.Values[fieldTopic], "reason", reason)
	pc.forget(msg.ID)
	return true
}

func (pc *partitionConsumer) forget(id string) {
	delete(pc.attempts, id)
	delete(pc.lastErr, id)
}

// claimStale takes over entries left pending by consumers that stopped
// without acknowledging them. They are handled by the next drainPending.
func (pc *partitionConsumer) claimStale(ctx context.Context) {
	cfg := pc.ch.cfg
	start := "0-0"
	for {
		messages, next, err := pc.ch.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   pc.stream,
			Group:    cfg.Group,
			MinIdle:  cfg.ClaimIdle,
			Start:    start,
			Count:    cfg.BatchSize,
			Consumer: cfg.Consumer,
		}).Result()
		if err != nil {
			if ctx.Err() == nil {
				logger.Log.Error("Stale entry claim failed", "stream", pc.stream, "error", err)
			}
			return
		}
		if len(messages) > 0 {
			logger.Log.Info("Claimed stale events", "stream", pc.stream, "count", len(messages))
		}
		if next == "0-0" || next == "" {
			return
		}
		start = next
	}
}

func decodeEntry(msg redis.XMessage) (domain.Event, error) {
	var evt domain.Event
	raw, ok := msg.Values[fieldEvent].(string)
	if !ok {
		return evt, fmt.Errorf("%w: entry %s has no event field", domain.ErrMalformedEvent, msg.ID)
	}
	if err := json.Unmarshal([]byte(raw), &evt); err != nil {
		return evt, fmt.Errorf("%w: %v", domain.ErrMalformedEvent, err)
	}
	return evt, nil
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
