package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/ipriyanshu25/fluentcrm-backend/internal/errors"
	"github.com/ipriyanshu25/fluentcrm-backend/internal/logger"
	"github.com/ipriyanshu25/fluentcrm-backend/internal/model"
	"github.com/ipriyanshu25/fluentcrm-backend/internal/queue"
	"github.com/ipriyanshu25/fluentcrm-backend/internal/service"
)

// MockCampaignRepo stores campaigns in memory
type MockCampaignRepo struct {
	mu        sync.Mutex
	campaigns map[string]*model.Campaign
	failures  int
	lookups   int
}

func (m *MockCampaignRepo) GetCampaign(_ context.Context, id string) (*model.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++
	if m.failures > 0 {
		m.failures--
		return nil, errors.New("connection reset")
	}
	c, ok := m.campaigns[id]
	if !ok {
		return nil, appErrors.NewCampaignNotFound(id)
	}
	return c, nil
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func startWorker(t *testing.T, repo *MockCampaignRepo) (*queue.InMemoryQueue, *syncBuffer) {
	t.Helper()
	out := &syncBuffer{}
	w := service.NewAuditWorker(repo, logger.New(out, logger.INFO, true))
	q := queue.NewInMemoryQueue()
	q.Backoff = time.Millisecond
	require.NoError(t, queue.StartCampaignAuditSubscriber(q, processWith(context.Background(), w)))
	return q, out
}

func TestWorkerAuditsBrokerEvent(t *testing.T) {
	repo := &MockCampaignRepo{campaigns: map[string]*model.Campaign{
		"c1": {CampaignID: "c1", ActivityID: "L1", ActivityName: "Q1", MarketerID: "m1", Subject: "Spring", FromAddress: "mia@acme.io"},
	}}
	q, out := startWorker(t, repo)

	body, err := json.Marshal(queue.CampaignSentEvent{CampaignID: "c1", ActivityID: "L1", Recipients: 2})
	require.NoError(t, err)
	require.NoError(t, q.Publish(queue.TopicCampaignSent, body))

	assert.Eventually(t, func() bool {
		return bytes.Contains([]byte(out.String()), []byte(`"campaign_id":"c1"`))
	}, time.Second, 5*time.Millisecond)
	assert.Contains(t, out.String(), `"recipients":"2"`)
	assert.NotContains(t, out.String(), "mia@acme.io")
}

func TestWorkerRetriesLookupFailures(t *testing.T) {
	repo := &MockCampaignRepo{
		campaigns: map[string]*model.Campaign{"c1": {CampaignID: "c1"}},
		failures:  2,
	}
	q, out := startWorker(t, repo)

	require.NoError(t, q.Publish(queue.TopicCampaignSent, queue.CampaignSentEvent{CampaignID: "c1"}))

	assert.Eventually(t, func() bool {
		return bytes.Contains([]byte(out.String()), []byte("campaign delivered to transport"))
	}, time.Second, 5*time.Millisecond)
	repo.mu.Lock()
	defer repo.mu.Unlock()
	assert.Equal(t, 3, repo.lookups)
}

func TestWorkerAcknowledgesUnknownCampaign(t *testing.T) {
	repo := &MockCampaignRepo{campaigns: map[string]*model.Campaign{}}
	q, out := startWorker(t, repo)

	require.NoError(t, q.Publish(queue.TopicCampaignSent, queue.CampaignSentEvent{CampaignID: "gone"}))

	assert.Eventually(t, func() bool {
		return bytes.Contains([]byte(out.String()), []byte("unknown campaign"))
	}, time.Second, 5*time.Millisecond)
	repo.mu.Lock()
	defer repo.mu.Unlock()
	assert.Equal(t, 1, repo.lookups)
}
