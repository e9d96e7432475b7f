package kafkaconsumer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/go-cmp/cmp"

	"github.com/mohammed-shakir/cartalex/internal/catalog"
	"github.com/mohammed-shakir/cartalex/internal/invalidation"
)

type fakePurger struct {
	failFirst atomic.Bool
	mu        sync.Mutex
	calls     [][]string
}

func (f *fakePurger) Purge(_ context.Context, tags ...string) (int, error) {
	f.mu.Lock()
	f.calls = append(f.calls, tags)
	f.mu.Unlock()
	if f.failFirst.Load() {
		f.failFirst.Store(false)
		return 0, errors.New("boom")
	}
	return len(tags), nil
}

func (f *fakePurger) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type sess struct {
	ctx    context.Context
	mu     sync.Mutex
	marked []int64
}

func (s *sess) Claims() map[string][]int32 { return nil }
func (s *sess) MemberID() string           { return "" }
func (s *sess) GenerationID() int32        { return 0 }
func (s *sess) MarkMessage(m *sarama.ConsumerMessage, _ string) {
	s.mu.Lock()
	s.marked = append(s.marked, m.Offset)
	s.mu.Unlock()
}
func (s *sess) ResetOffset(_ string, _ int32, _ int64, _ string) {}
func (s *sess) MarkOffset(_ string, _ int32, _ int64, _ string)  {}
func (s *sess) Context() context.Context                         { return s.ctx }
func (s *sess) Errors() <-chan error                             { return nil }
func (s *sess) Commit()                                          {}

type claim struct {
	part int32
	msgs chan *sarama.ConsumerMessage
}

func (c *claim) Topic() string                            { return "cartalex-invalidation" }
func (c *claim) Partition() int32                         { return c.part }
func (c *claim) InitialOffset() int64                     { return 0 }
func (c *claim) HighWaterMarkOffset() int64               { return 0 }
func (c *claim) Messages() <-chan *sarama.ConsumerMessage { return c.msgs }

var tsBase = time.Date(2025, 10, 26, 12, 0, 0, 0, time.UTC)

func eventBytes(table string, id int64, ts time.Time) []byte {
	ev := invalidation.Event{Version: 1, Op: "update", Table: table, TS: ts, ID: &id}
	b, _ := json.Marshal(ev)
	return b
}

func newConsumerForTest(p Purger) *Consumer {
	cfg := Config{Brokers: []string{"x"}, Topic: "cartalex-invalidation", GroupID: "g"}
	return New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), catalog.Sites(), p)
}

func msg(off int64, v []byte) *sarama.ConsumerMessage {
	return &sarama.ConsumerMessage{Topic: "cartalex-invalidation", Partition: 0, Offset: off, Value: v}
}

func TestProcessOne_PurgesDependentTags(t *testing.T) {
	p := &fakePurger{}
	c := newConsumerForTest(p)

	if err := c.ProcessOne(context.Background(), msg(1, eventBytes("periodes", 3, tsBase))); err != nil {
		t.Fatalf("ProcessOne: %v", err)
	}
	want := [][]string{{"candidates/vestiges", catalog.TagDetails, "values/periodes", "values/vestiges"}}
	if diff := cmp.Diff(want, p.calls); diff != "" {
		t.Fatalf("purged tags (-want +got):\n%s", diff)
	}
}

func TestProcessOne_SkipsPoisonAndDuplicates(t *testing.T) {
	p := &fakePurger{}
	c := newConsumerForTest(p)
	ctx := context.Background()

	for i, v := range [][]byte{
		[]byte("{not json"),
		eventBytes("users", 1, tsBase),
		eventBytes("vestiges", 1, tsBase),
		eventBytes("vestiges", 1, tsBase),                  // redelivery
		eventBytes("vestiges", 1, tsBase.Add(-time.Minute)), // stale
	} {
		if err := c.ProcessOne(ctx, msg(int64(i), v)); err != nil {
			t.Fatalf("message %d: %v", i, err)
		}
	}
	if p.count() != 1 {
		t.Fatalf("purge ran %d times, want 1", p.count())
	}
}

func TestSinglePartition_OrderAndCommitAfterWork(t *testing.T) {
	p := &fakePurger{}
	c := newConsumerForTest(p)

	g := &groupHandler{process: c.ProcessOne}
	s := &sess{ctx: t.Context()}
	ch := make(chan *sarama.ConsumerMessage, 2)
	ch <- msg(10, eventBytes("vestiges", 1, tsBase))
	ch <- msg(11, eventBytes("vestiges", 2, tsBase))
	close(ch)

	if err := g.ConsumeClaim(s, &claim{part: 0, msgs: ch}); err != nil {
		t.Fatalf("ConsumeClaim: %v", err)
	}
	if diff := cmp.Diff([]int64{10, 11}, s.marked); diff != "" {
		t.Fatalf("marked offsets (-want +got):\n%s", diff)
	}
}

func TestConsumeClaim_MarksTombstonesWithoutPurge(t *testing.T) {
	p := &fakePurger{}
	c := newConsumerForTest(p)
	g := &groupHandler{process: c.ProcessOne}
	s := &sess{ctx: t.Context()}

	ch := make(chan *sarama.ConsumerMessage, 1)
	ch <- msg(3, nil)
	close(ch)
	if err := g.ConsumeClaim(s, &claim{msgs: ch}); err != nil {
		t.Fatal(err)
	}
	if p.count() != 0 || len(s.marked) != 1 {
		t.Fatalf("purges=%d marked=%v", p.count(), s.marked)
	}
}

func TestConsumeClaim_FailedPurgeLeavesOffsetUnmarked(t *testing.T) {
	p := &fakePurger{}
	p.failFirst.Store(true)
	c := newConsumerForTest(p)
	g := &groupHandler{process: c.ProcessOne}
	s := &sess{ctx: t.Context()}

	ch := make(chan *sarama.ConsumerMessage, 1)
	ch <- msg(8, eventBytes("periodes", 1, tsBase))
	close(ch)
	if err := g.ConsumeClaim(s, &claim{msgs: ch}); err == nil {
		t.Fatal("want error from failed purge")
	}
	if len(s.marked) != 0 {
		t.Fatalf("offset marked despite failure: %v", s.marked)
	}
}

func TestRetry_CommitOnceAfterSuccess(t *testing.T) {
	p := &fakePurger{}
	p.failFirst.Store(true)
	c := newConsumerForTest(p)
	ctx := context.Background()

	m := msg(5, eventBytes("personnes", 1, tsBase))
	if err := c.ProcessOne(ctx, m); err == nil {
		t.Fatalf("expected error on first attempt")
	}

	s := &sess{ctx: ctx}
	g := &groupHandler{process: c.ProcessOne}
	ch := make(chan *sarama.ConsumerMessage, 1)
	ch <- m
	close(ch)
	if err := g.ConsumeClaim(s, &claim{part: 0, msgs: ch}); err != nil {
		t.Fatalf("ConsumeClaim second attempt: %v", err)
	}
	if len(s.marked) != 1 || s.marked[0] != 5 {
		t.Fatalf("offset was not marked after success; marked=%v", s.marked)
	}
	if p.count() != 2 {
		t.Fatalf("failed purge must be retried, calls=%d", p.count())
	}
}

func TestMultiPartition_Parallel(t *testing.T) {
	p := &fakePurger{}
	c := newConsumerForTest(p)
	g := &groupHandler{process: c.ProcessOne}
	s := &sess{ctx: t.Context()}

	p0 := make(chan *sarama.ConsumerMessage, 2)
	p1 := make(chan *sarama.ConsumerMessage, 2)
	p0 <- msg(1, eventBytes("vestiges", 1, tsBase))
	p0 <- msg(2, eventBytes("vestiges", 2, tsBase))
	p1 <- msg(1, eventBytes("decouvertes", 1, tsBase))
	p1 <- msg(2, eventBytes("decouvertes", 2, tsBase))
	close(p0)
	close(p1)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); _ = g.ConsumeClaim(s, &claim{part: 0, msgs: p0}) }()
	go func() { defer wg.Done(); _ = g.ConsumeClaim(s, &claim{part: 1, msgs: p1}) }()
	wg.Wait()

	if len(s.marked) != 4 {
		t.Fatalf("expected 4 marks total; got %v", s.marked)
	}
}

func TestStart_RequiresDependencies(t *testing.T) {
	c := New(Config{}, nil, nil, nil)
	if err := c.Start(context.Background()); err == nil {
		t.Fatal("expected error without catalog and purger")
	}
}
