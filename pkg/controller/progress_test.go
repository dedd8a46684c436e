package controller

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bsi-grundschutz/auditpilot/pkg/models"
	"github.com/bsi-grundschutz/auditpilot/pkg/stages"
)

func TestManagerDeliversEventsToSubscribedListener(t *testing.T) {
	manager := NewManager()
	publisher := NewPublisher(manager)

	listener, unsubscribe := manager.Subscribe()
	defer unsubscribe()

	publisher.PublishStarted(models.StageName("doc-finder"))

	select {
	case evt := <-listener.Events():
		require.Equal(t, models.StageName("doc-finder"), evt.Stage)
		require.Equal(t, "started", evt.Phase)
		require.Nil(t, evt.Status)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestManagerFansOutToEveryListener(t *testing.T) {
	manager := NewManager()
	publisher := NewPublisher(manager)

	l1, unsub1 := manager.Subscribe()
	defer unsub1()
	l2, unsub2 := manager.Subscribe()
	defer unsub2()

	status := models.StageStatus{Stage: models.StageName("report-assembler"), Status: "completed"}
	publisher.PublishFinished(status)

	for _, l := range []*Listener{l1, l2} {
		select {
		case evt := <-l.Events():
			require.Equal(t, "completed", evt.Phase)
			require.NotNil(t, evt.Status)
			require.Equal(t, status.Stage, evt.Status.Stage)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestUnsubscribeStopsDeliveryAndClosesChannel(t *testing.T) {
	manager := NewManager()
	publisher := NewPublisher(manager)

	listener, unsubscribe := manager.Subscribe()
	unsubscribe()

	publisher.PublishStarted(models.StageName("ground-truth-mapper"))

	_, ok := <-listener.Events()
	require.False(t, ok, "channel must be closed after unsubscribe")
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	manager := NewManager()
	_, unsubscribe := manager.Subscribe()

	unsubscribe()
	require.NotPanics(t, func() { unsubscribe() })
}

func TestPublishOnNilPublisherIsNoOp(t *testing.T) {
	var p *Publisher
	require.NotPanics(t, func() {
		p.PublishStarted(models.StageName("doc-finder"))
		p.PublishFinished(models.StageStatus{Stage: models.StageName("doc-finder"), Status: "completed"})
	})
}

func TestControllerSubscribeObservesRunStageLifecycle(t *testing.T) {
	r := &fakeRunner{
		name:      models.StageName("alpha"),
		outputKey: "results/alpha.json",
		generate: func(ctx context.Context, rc *stages.RunContext) (*models.ChapterResult, error) {
			return contentResult(models.StageName("alpha"), `{"ok":true}`), nil
		},
	}
	c, _ := newTestController(t, r)

	listener, unsubscribe := c.Subscribe()
	defer unsubscribe()

	go func() {
		_, _ = c.RunAll(context.Background(), false)
	}()

	var phases []string
	for i := 0; i < 2; i++ {
		select {
		case evt := <-listener.Events():
			phases = append(phases, evt.Phase)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for lifecycle event")
		}
	}
	require.Equal(t, []string{"started", "completed"}, phases)
}
