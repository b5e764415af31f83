package minter

import (
	"strings"

	xerrors "TrendMint/internal/errors"
)

const (
	maxNameLength   = 32
	minTickerLength = 3
	maxTickerLength = 5
)

// Concept 是大模型围绕热点话题构思出的代币概念。
type Concept struct {
	Name        string `json:"name"`
	Ticker      string `json:"ticker"`
	Description string `json:"description"`
	ImagePrompt string `json:"imagePrompt"`
	SourceTrend string `json:"sourceTrend,omitempty"`
}

// Validate 校验字段约束并把代币符号归一化为大写。
// 约束: 符号为 3-5 个纯字母, 名称不超过 32 个字符。
func (c *Concept) Validate() error {
	if c == nil {
		return xerrors.New(xerrors.CodeInvalidArgument, "代币概念为空")
	}

	name := strings.TrimSpace(c.Name)
	if name == "" {
		return xerrors.New(xerrors.CodeValidationFailure, "代币名称不能为空")
	}
	if len([]rune(name)) > maxNameLength {
		return xerrors.New(xerrors.CodeValidationFailure, "代币名称超过 32 个字符",
			xerrors.WithMetadata("name", name))
	}

	ticker := strings.TrimSpace(c.Ticker)
	if len(ticker) < minTickerLength || len(ticker) > maxTickerLength {
		return xerrors.New(xerrors.CodeValidationFailure, "代币符号长度必须在 3 到 5 之间",
			xerrors.WithMetadata("ticker", ticker))
	}
	for _, r := range ticker {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return xerrors.New(xerrors.CodeValidationFailure, "代币符号只能包含字母",
				xerrors.WithMetadata("ticker", ticker))
		}
	}

	c.Name = name
	c.Ticker = strings.ToUpper(ticker)
	return nil
}

// Launched 记录一次成功的代币发射。
type Launched struct {
	Concept     Concept `json:"concept"`
	MintAddress string  `json:"mint_address"`
	TxHash      string  `json:"tx_hash,omitempty"`
	MetadataURI string  `json:"metadata_uri,omitempty"`
	LaunchedAt  int64   `json:"launched_at"`
}
