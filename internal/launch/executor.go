package launch

import (
	"context"
	stdErrors "errors"

	xerrors "TrendMint/internal/errors"
	"TrendMint/internal/minter"
)

// MinterExecutor 将代币生成器接入发射处理器。
type MinterExecutor struct {
	generator *minter.Generator
}

// NewMinterExecutor 构造 MinterExecutor。
func NewMinterExecutor(generator *minter.Generator) (*MinterExecutor, error) {
	if generator == nil {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "generator 不能为空")
	}
	return &MinterExecutor{generator: generator}, nil
}

// Execute 执行一次代币发射并返回落库记录。
func (e *MinterExecutor) Execute(ctx context.Context, trend string) (*Record, error) {
	launched, err := e.generator.LaunchTrend(ctx, trend)
	if err != nil {
		switch {
		case stdErrors.Is(err, minter.ErrNoUnusedTrend):
			return nil, xerrors.Wrap(CodeLaunchNoTrend, err, "没有可用的热点")
		case stdErrors.Is(err, minter.ErrInvalidConcept):
			return nil, xerrors.Wrap(CodeLaunchValidation, err, "代币概念校验失败")
		default:
			return nil, err
		}
	}
	return &Record{
		Name:        launched.Concept.Name,
		Ticker:      launched.Concept.Ticker,
		Description: launched.Concept.Description,
		SourceTrend: launched.Concept.SourceTrend,
		MintAddress: launched.MintAddress,
		TxHash:      launched.TxHash,
		MetadataURI: launched.MetadataURI,
		LaunchedAt:  launched.LaunchedAt,
	}, nil
}

var _ Executor = (*MinterExecutor)(nil)
