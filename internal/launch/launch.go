// Package launch 是代币发射流水线: 发射请求先落库再入队, 由消费侧的处理器
// 驱动生成器完成上链, 瞬时失败在重试预算内重新投递。热点扫描器按固定周期
// 发现未用话题并提交发射请求, 构成热点代币工作流的常驻入口。
package launch

import (
	stdErrors "errors"

	xerrors "TrendMint/internal/errors"
)

// Status 表示发射任务在生命周期中的状态。
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Record 保存一次成功发射的结果。
type Record struct {
	Name        string `json:"name"`
	Ticker      string `json:"ticker"`
	Description string `json:"description"`
	SourceTrend string `json:"source_trend"`
	MintAddress string `json:"mint_address"`
	TxHash      string `json:"tx_hash,omitempty"`
	MetadataURI string `json:"metadata_uri,omitempty"`
	LaunchedAt  int64  `json:"launched_at"`
}

// IsZero 判断记录是否为空。
func (r *Record) IsZero() bool {
	if r == nil {
		return true
	}
	return r.Name == "" && r.Ticker == "" && r.MintAddress == "" && r.TxHash == ""
}

// Launch 描述排队执行的代币发射任务。Trend 为空表示让处理器自行扫描热点。
type Launch struct {
	ID         string  `json:"id"`
	Trend      string  `json:"trend,omitempty"`
	Status     Status  `json:"status"`
	Attempts   int     `json:"attempts"`
	MaxRetries int     `json:"max_retries"`
	LastError  string  `json:"last_error,omitempty"`
	ErrorCode  string  `json:"error_code,omitempty"`
	Result     *Record `json:"result,omitempty"`
	CreatedAt  int64   `json:"created_at"`
	UpdatedAt  int64   `json:"updated_at"`
}

var (
	// ErrLaunchNotFound 表示指定的发射任务不存在。
	ErrLaunchNotFound = xerrors.New(CodeLaunchNotFound, "launch not found")
	// ErrLaunchConflict 表示任务在当前状态下无法进行所请求的操作。
	ErrLaunchConflict = xerrors.New(CodeLaunchConflict, "launch conflict", xerrors.WithSeverity(xerrors.SeverityWarning))
	// ErrLaunchCompleted 表示任务已经成功完成。
	ErrLaunchCompleted = xerrors.New(CodeLaunchCompleted, "launch already completed", xerrors.WithSeverity(xerrors.SeverityInfo))
	// ErrLaunchExhausted 表示任务的重试次数已经耗尽。
	ErrLaunchExhausted = xerrors.New(CodeLaunchExhausted, "launch retries exhausted", xerrors.WithSeverity(xerrors.SeverityCritical))
)

const (
	CodeLaunchNotFound   xerrors.Code = "LAUNCH_NOT_FOUND"
	CodeLaunchConflict   xerrors.Code = "LAUNCH_CONFLICT"
	CodeLaunchCompleted  xerrors.Code = "LAUNCH_COMPLETED"
	CodeLaunchExhausted  xerrors.Code = "LAUNCH_RETRIES_EXHAUSTED"
	CodeLaunchValidation xerrors.Code = "LAUNCH_VALIDATION_FAILED"
	CodeLaunchPublish    xerrors.Code = "LAUNCH_PUBLISH_FAILED"
	CodeLaunchProcessing xerrors.Code = "LAUNCH_PROCESSING_FAILED"
	CodeLaunchNoTrend    xerrors.Code = "LAUNCH_NO_UNUSED_TREND"
	CodeLaunchCompensate xerrors.Code = "LAUNCH_COMPENSATE_FAILED"
)

func init() {
	xerrors.Register(CodeLaunchNotFound, xerrors.Attributes{
		Message:   "launch not found",
		Severity:  xerrors.SeverityInfo,
		Retryable: false,
		Alert:     false,
	})
	xerrors.Register(CodeLaunchConflict, xerrors.Attributes{
		Message:   "launch conflict",
		Severity:  xerrors.SeverityWarning,
		Retryable: false,
		Alert:     false,
	})
	xerrors.Register(CodeLaunchCompleted, xerrors.Attributes{
		Message:   "launch already completed",
		Severity:  xerrors.SeverityInfo,
		Retryable: false,
		Alert:     false,
	})
	xerrors.Register(CodeLaunchExhausted, xerrors.Attributes{
		Message:   "launch retries exhausted",
		Severity:  xerrors.SeverityCritical,
		Retryable: false,
		Alert:     true,
	})
	xerrors.Register(CodeLaunchValidation, xerrors.Attributes{
		Message:   "launch validation failed",
		Severity:  xerrors.SeverityInfo,
		Retryable: false,
		Alert:     false,
	})
	xerrors.Register(CodeLaunchPublish, xerrors.Attributes{
		Message:   "failed to publish launch",
		Severity:  xerrors.SeverityCritical,
		Retryable: true,
		Alert:     true,
	})
	xerrors.Register(CodeLaunchProcessing, xerrors.Attributes{
		Message:   "launch execution failed",
		Severity:  xerrors.SeverityWarning,
		Retryable: true,
		Alert:     true,
	})
	xerrors.Register(CodeLaunchNoTrend, xerrors.Attributes{
		Message:   "no unused trend available",
		Severity:  xerrors.SeverityInfo,
		Retryable: false,
		Alert:     false,
	})
	xerrors.Register(CodeLaunchCompensate, xerrors.Attributes{
		Message:   "launch compensation failed",
		Severity:  xerrors.SeverityCritical,
		Retryable: false,
		Alert:     true,
	})
}

// IsValidStatus 检查给定的任务状态是否为支持的枚举值。
func IsValidStatus(status Status) bool {
	switch status {
	case StatusPending, StatusRunning, StatusSucceeded, StatusFailed:
		return true
	default:
		return false
	}
}

func cloneLaunch(launch *Launch) *Launch {
	clone := *launch
	if launch.Result != nil {
		resultCopy := *launch.Result
		clone.Result = &resultCopy
	}
	return &clone
}

// isSkippable 判断 Claim 返回的错误是否属于可以直接跳过的情况。
func isSkippable(err error) bool {
	return stdErrors.Is(err, ErrLaunchNotFound) ||
		stdErrors.Is(err, ErrLaunchCompleted) ||
		stdErrors.Is(err, ErrLaunchExhausted)
}
