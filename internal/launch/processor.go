package launch

import (
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"time"

	xerrors "TrendMint/internal/errors"
	"TrendMint/internal/observability/alerting"
	"TrendMint/pkg/logger"
)

// Executor 定义了处理器执行发射所需的能力。
// trend 为空时由执行方自行挑选未使用的热点。
type Executor interface {
	Execute(ctx context.Context, trend string) (*Record, error)
}

// Processor 负责从队列消费发射任务并交给执行器。
type Processor struct {
	executor    Executor
	store       Store
	consumer    Consumer
	producer    Producer
	workerCount int
	logger      *slog.Logger
	recovery    RecoveryHandler
	alerter     alerting.Dispatcher
}

// ProcessorOption 定义可选配置。
type ProcessorOption func(*Processor)

// WithProcessorLogger 指定日志输出。
func WithProcessorLogger(logger *slog.Logger) ProcessorOption {
	return func(p *Processor) {
		p.logger = logger
	}
}

// WithWorkerCount 设置消费协程数量。
func WithWorkerCount(workers int) ProcessorOption {
	return func(p *Processor) {
		if workers > 0 {
			p.workerCount = workers
		}
	}
}

// WithRecoveryHandler 配置失败补偿策略。
func WithRecoveryHandler(handler RecoveryHandler) ProcessorOption {
	return func(p *Processor) {
		p.recovery = handler
	}
}

// WithAlertDispatcher 配置告警派发器。
func WithAlertDispatcher(dispatcher alerting.Dispatcher) ProcessorOption {
	return func(p *Processor) {
		p.alerter = dispatcher
	}
}

// NewProcessor 构造 Processor。
func NewProcessor(executor Executor, store Store, consumer Consumer, producer Producer, opts ...ProcessorOption) *Processor {
	p := &Processor{
		executor:    executor,
		store:       store,
		consumer:    consumer,
		producer:    producer,
		workerCount: 1,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	if p.workerCount <= 0 {
		p.workerCount = 1
	}
	return p
}

// Start 启动发射处理循环。
func (p *Processor) Start(ctx context.Context) error {
	if p.consumer == nil {
		return xerrors.New(xerrors.CodeInitializationFailure, "未配置发射消费者")
	}
	return p.consumer.Consume(ctx, p.workerCount, p.handle)
}

func (p *Processor) handle(ctx context.Context, launchID string) error {
	if p.store == nil || p.executor == nil {
		return xerrors.New(xerrors.CodeInitializationFailure, "处理器未初始化")
	}
	launch, err := p.store.Claim(ctx, launchID)
	if err != nil {
		if stdErrors.Is(err, ErrLaunchNotFound) || stdErrors.Is(err, ErrLaunchCompleted) || stdErrors.Is(err, ErrLaunchExhausted) {
			p.logDebug("跳过发射任务", slog.String("launch_id", launchID), slog.String("reason", err.Error()))
			return nil
		}
		logger.L().Error("领取发射任务失败", slog.Any("error", err), slog.String("launch_id", launchID))
		p.emitAlert(ctx, &Launch{ID: launchID}, CodeLaunchProcessing, err, "claim")
		return err
	}

	result, execErr := p.executor.Execute(ctx, launch.Trend)
	if execErr != nil {
		return p.handleExecutionFailure(ctx, launch, execErr)
	}

	var record Record
	if result != nil {
		record = *result
	}
	if err := p.store.MarkSucceeded(ctx, launch.ID, record); err != nil {
		logger.L().Error("标记发射成功状态失败", slog.Any("error", err), slog.String("launch_id", launch.ID))
		if storeErr := p.store.MarkFailed(ctx, launch.ID, CodeLaunchProcessing, err.Error(), false); storeErr != nil {
			logger.L().Error("回写失败状态出错", slog.Any("error", storeErr), slog.String("launch_id", launch.ID))
			return storeErr
		}
		if pubErr := p.producer.Publish(ctx, launch.ID); pubErr != nil {
			return xerrors.Wrap(CodeLaunchPublish, pubErr, fmt.Sprintf("发射任务 %s 在标记成功失败后重投失败", launch.ID))
		}
		logger.Audit().Warn("发射任务标记成功失败后重试",
			slog.String("launch_id", launch.ID),
			slog.String("trend", launch.Trend),
			slog.String("error", err.Error()),
		)
		return nil
	}
	logger.Audit().Info("发射任务执行成功",
		slog.String("launch_id", launch.ID),
		slog.String("ticker", record.Ticker),
		slog.String("mint_address", record.MintAddress),
		slog.String("source_trend", record.SourceTrend),
	)
	return nil
}

func (p *Processor) handleExecutionFailure(ctx context.Context, launch *Launch, execErr error) error {
	code := xerrors.CodeOf(execErr)
	if code == xerrors.CodeUnknown {
		code = CodeLaunchProcessing
	}
	retryable := xerrors.RetryableError(execErr)
	terminal := launch.Attempts >= launch.MaxRetries || !retryable

	if !retryable && p.recovery != nil {
		if fallback, recErr := p.recovery.Recover(ctx, launch, execErr); recErr != nil {
			wrapped := xerrors.Wrap(CodeLaunchCompensate, recErr, "发射补偿失败")
			logger.L().Error("执行补偿逻辑失败",
				slog.Any("error", wrapped),
				slog.String("launch_id", launch.ID))
			p.emitAlert(ctx, launch, CodeLaunchCompensate, wrapped, "compensate")
		} else if fallback != nil {
			if err := p.store.MarkSucceeded(ctx, launch.ID, *fallback); err != nil {
				logger.L().Error("记录降级结果失败", slog.Any("error", err), slog.String("launch_id", launch.ID))
				if storeErr := p.store.MarkFailed(ctx, launch.ID, code, err.Error(), false); storeErr != nil {
					logger.L().Error("降级失败后的回写失败状态出错", slog.Any("error", storeErr), slog.String("launch_id", launch.ID))
					return storeErr
				}
				if pubErr := p.producer.Publish(ctx, launch.ID); pubErr != nil {
					return xerrors.Wrap(CodeLaunchPublish, pubErr, fmt.Sprintf("发射任务 %s 在降级失败后重投失败", launch.ID))
				}
				return nil
			}
			logger.Audit().Warn("发射任务降级完成",
				slog.String("launch_id", launch.ID),
				slog.String("trend", launch.Trend),
			)
			p.emitAlert(ctx, launch, code, execErr, "degraded")
			return nil
		}
	}

	if storeErr := p.store.MarkFailed(ctx, launch.ID, code, execErr.Error(), terminal); storeErr != nil {
		logger.L().Error("标记发射失败状态出错", slog.Any("error", storeErr), slog.String("launch_id", launch.ID))
		return storeErr
	}
	logger.Audit().Warn("发射任务执行失败",
		slog.String("launch_id", launch.ID),
		slog.String("trend", launch.Trend),
		slog.Bool("terminal", terminal),
		slog.String("error", execErr.Error()),
		slog.String("error_code", string(code)),
		slog.Int("attempts", launch.Attempts),
		slog.Int("max_retries", launch.MaxRetries),
	)

	stage := "retry"
	if terminal {
		stage = "terminal"
	} else if !retryable {
		stage = "non_retryable"
	}
	p.emitAlert(ctx, launch, code, execErr, stage)

	if retryable && !terminal {
		if pubErr := p.producer.Publish(ctx, launch.ID); pubErr != nil {
			return xerrors.Wrap(CodeLaunchPublish, pubErr, fmt.Sprintf("发射任务 %s 重投失败", launch.ID))
		}
		p.logDebug("发射任务已重新排队", slog.String("launch_id", launch.ID), slog.Int("attempts", launch.Attempts))
	}
	return nil
}

func (p *Processor) logDebug(msg string, attrs ...slog.Attr) {
	if p.logger != nil {
		args := make([]any, len(attrs))
		for i, attr := range attrs {
			args[i] = attr
		}
		p.logger.Debug(msg, args...)
	}
}

func (p *Processor) emitAlert(ctx context.Context, launch *Launch, code xerrors.Code, cause error, stage string) {
	if p == nil || p.alerter == nil || launch == nil {
		return
	}
	attrs := xerrors.AttributesOf(code)
	message := attrs.Message
	if cause != nil {
		message = cause.Error()
	}
	metadata := map[string]string{
		"stage": stage,
	}
	if cause != nil {
		metadata["cause"] = cause.Error()
	}
	event := alerting.Event{
		Code:       code,
		Message:    message,
		Severity:   attrs.Severity,
		LaunchID:   launch.ID,
		Trend:      launch.Trend,
		Attempts:   launch.Attempts,
		MaxRetries: launch.MaxRetries,
		Metadata:   metadata,
		OccurredAt: time.Now(),
	}
	if err := p.alerter.Notify(ctx, event); err != nil {
		logger.L().Error("告警通知失败",
			slog.Any("error", err),
			slog.String("launch_id", launch.ID),
			slog.String("stage", stage),
		)
	}
}
