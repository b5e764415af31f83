package runtime

import (
	"context"

	"TrendMint/pkg/logger"
)

// Evaluator 在一次交互完成后对结果进行评估。
type Evaluator interface {
	Name() string
	Evaluate(ctx context.Context, state State, reply string) error
}

// ActionProcessor 在一次交互完成后执行后续动作。
type ActionProcessor interface {
	Name() string
	Process(ctx context.Context, state State, reply string) error
}

// Dispatcher 串行调度已注册的评估器和动作处理器。
// 单个评估器失败只记录日志, 不影响其余评估器和交互结果。
type Dispatcher struct {
	evaluators []Evaluator
	processors []ActionProcessor
}

// NewDispatcher 创建调度器。
func NewDispatcher(evaluators []Evaluator, processors []ActionProcessor) *Dispatcher {
	return &Dispatcher{evaluators: evaluators, processors: processors}
}

// Dispatch 依次运行所有评估器和动作处理器。
func (d *Dispatcher) Dispatch(ctx context.Context, state State, reply string) {
	if d == nil {
		return
	}
	log := logger.Named("runtime.dispatch")
	for _, ev := range d.evaluators {
		if ev == nil {
			continue
		}
		if err := ev.Evaluate(ctx, state, reply); err != nil {
			log.Warn("评估器执行失败", "evaluator", ev.Name(), "error", err)
		}
	}
	for _, proc := range d.processors {
		if proc == nil {
			continue
		}
		if err := proc.Process(ctx, state, reply); err != nil {
			log.Warn("动作处理器执行失败", "processor", proc.Name(), "error", err)
		}
	}
}
