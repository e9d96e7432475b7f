package kafkaconsumer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/IBM/sarama"
)

type messageProcessor func(context.Context, *sarama.ConsumerMessage) error

// groupHandler feeds claimed messages to process one at a time and commits
// each offset only once the purge it triggered has succeeded.
type groupHandler struct {
	process messageProcessor
	log     *slog.Logger
}

func (h *groupHandler) logger() *slog.Logger {
	if h.log == nil {
		return slog.Default()
	}
	return h.log
}

func (h *groupHandler) Setup(sess sarama.ConsumerGroupSession) error {
	h.logger().InfoContext(sess.Context(), "invalidation partitions assigned",
		"member", sess.MemberID(), "generation", sess.GenerationID(), "claims", sess.Claims())
	return nil
}

func (h *groupHandler) Cleanup(sess sarama.ConsumerGroupSession) error {
	h.logger().DebugContext(sess.Context(), "invalidation partitions released", "member", sess.MemberID())
	return nil
}

func (h *groupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	ctx := sess.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			// tombstones carry no event
			if len(msg.Value) == 0 {
				sess.MarkMessage(msg, "")
				continue
			}
			if err := h.process(ctx, msg); err != nil {
				// leaving the offset unmarked makes the next session redeliver it
				return fmt.Errorf("invalidation %s[%d]@%d: %w", msg.Topic, msg.Partition, msg.Offset, err)
			}
			sess.MarkMessage(msg, "")
		}
	}
}
