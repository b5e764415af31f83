package alerting

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	xerrors "TrendMint/internal/errors"
)

type fakeDingTalkSender struct {
	contents []string
	err      error
}

func (s *fakeDingTalkSender) Send(_ context.Context, content string) error {
	s.contents = append(s.contents, content)
	return s.err
}

type fakeSlackSender struct {
	channels []string
}

func (s *fakeSlackSender) Send(_ context.Context, channel, content string) error {
	s.channels = append(s.channels, channel)
	return nil
}

func testEvent() Event {
	return Event{
		Code:       xerrors.CodeDeployFailure,
		Message:    "部署超时",
		Severity:   xerrors.SeverityCritical,
		LaunchID:   "launch-1",
		Trend:      "AI agents",
		Attempts:   2,
		MaxRetries: 3,
		Metadata:   map[string]string{"stage": "terminal"},
		OccurredAt: time.Now(),
	}
}

func TestFanoutBroadcastsToAllChannels(t *testing.T) {
	ding := &fakeDingTalkSender{}
	slack := &fakeSlackSender{}
	dispatcher := NewFanout(
		&DingTalkNotifier{Sender: ding},
		&SlackNotifier{Sender: slack, ChannelID: "alerts"},
		&LogNotifier{},
	)

	if err := dispatcher.Notify(context.Background(), testEvent()); err != nil {
		t.Fatalf("Notify 失败: %v", err)
	}
	if len(ding.contents) != 1 {
		t.Fatalf("钉钉渠道应收到 1 条消息, 实际 %d", len(ding.contents))
	}
	if !strings.Contains(ding.contents[0], "launch-1") {
		t.Fatalf("消息缺少发射任务 ID: %s", ding.contents[0])
	}
	if len(slack.channels) != 1 || slack.channels[0] != "alerts" {
		t.Fatalf("Slack 渠道未收到消息: %v", slack.channels)
	}
}

func TestFanoutCollectsChannelErrors(t *testing.T) {
	sendErr := errors.New("webhook unreachable")
	dispatcher := NewFanout(
		&DingTalkNotifier{Sender: &fakeDingTalkSender{err: sendErr}},
		&LogNotifier{},
	)

	err := dispatcher.Notify(context.Background(), testEvent())
	if err == nil {
		t.Fatal("渠道失败时应返回错误")
	}
	if !errors.Is(err, sendErr) {
		t.Fatalf("错误链应包含底层错误, 实际 %v", err)
	}
}

func TestUnconfiguredNotifierSkipsQuietly(t *testing.T) {
	dispatcher := NewFanout(&SlackNotifier{}, &EmailNotifier{})
	if err := dispatcher.Notify(context.Background(), testEvent()); err != nil {
		t.Fatalf("未配置的渠道应跳过而非报错: %v", err)
	}
}
