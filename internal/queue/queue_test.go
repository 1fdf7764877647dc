package queue

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestPublishWithoutSubscribers(t *testing.T) {
	q := NewInMemoryQueue()
	if err := q.Publish(TopicCampaignSent, CampaignSentEvent{CampaignID: "c1"}); err == nil {
		t.Fatal("expected error when nobody is subscribed")
	}
}

func TestInMemoryQueueRetriesUntilSuccess(t *testing.T) {
	q := NewInMemoryQueue()
	q.Backoff = time.Millisecond

	var calls int32
	q.Subscribe("t", func(payload any) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("not yet")
		}
		return nil
	})

	if err := q.Publish("t", 1); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return atomic.LoadInt32(&calls) == 3 })
}

func TestInMemoryQueueGivesUp(t *testing.T) {
	q := NewInMemoryQueue()
	q.Backoff = time.Millisecond

	var calls int32
	q.Subscribe("t", func(payload any) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("always")
	})
	q.Publish("t", 1)

	waitFor(t, func() bool { return atomic.LoadInt32(&calls) == 4 })
	time.Sleep(20 * time.Millisecond)
	if got := atomic.LoadInt32(&calls); got != 4 {
		t.Fatalf("expected 1 attempt + 3 retries, got %d", got)
	}
}

func TestAuditSubscriberDecodesEvents(t *testing.T) {
	q := NewInMemoryQueue()
	got := make(chan CampaignSentEvent, 2)
	if err := StartCampaignAuditSubscriber(q, func(ev CampaignSentEvent) error {
		got <- ev
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	q.Publish(TopicCampaignSent, &CampaignSentEvent{CampaignID: "c1", Recipients: 2})
	q.Publish(TopicCampaignSent, []byte(`{"campaignId":"c2","recipients":5}`))

	seen := map[string]int{}
	for i := 0; i < 2; i++ {
		select {
		case ev := <-got:
			seen[ev.CampaignID] = ev.Recipients
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for event")
		}
	}
	if seen["c1"] != 2 || seen["c2"] != 5 {
		t.Fatalf("unexpected events: %v", seen)
	}
}

func TestDecodeCampaignSentRejectsGarbage(t *testing.T) {
	for _, payload := range []any{[]byte("not json"), []byte(`{}`), 42, (*CampaignSentEvent)(nil)} {
		if _, err := DecodeCampaignSent(payload); err == nil {
			t.Errorf("expected error for %#v", payload)
		}
	}
}
