package launch

import "context"

// RecoveryHandler 定义了发射任务失败时的补偿策略。
type RecoveryHandler interface {
	// Recover 尝试根据失败原因进行补偿或降级。
	// 返回的 Record 将作为降级结果写入任务；若返回 nil 则继续按照失败流程处理。
	Recover(ctx context.Context, launch *Launch, cause error) (*Record, error)
}
