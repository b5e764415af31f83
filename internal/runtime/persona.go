package runtime

import (
	"math/rand"
	"strings"

	xerrors "TrendMint/internal/errors"
)

// Persona 描述智能体的对外人格, 来自配置。
type Persona struct {
	ID     string
	Name   string
	Handle string
	Bio    string
	Style  []string
	Topics []string
}

// Validate 检查人设配置是否满足工作流的前置条件。
func (p Persona) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return xerrors.New(xerrors.CodeInvalidArgument, "智能体 ID 不能为空")
	}
	if strings.TrimSpace(p.Handle) == "" {
		return xerrors.New(xerrors.CodeInvalidArgument, "智能体账号句柄不能为空")
	}
	return nil
}

// RandomTopic 从话题列表中均匀随机选取一个。空列表属于配置错误。
func (p Persona) RandomTopic(rng *rand.Rand) (string, error) {
	if len(p.Topics) == 0 {
		return "", xerrors.New(xerrors.CodeInvalidArgument, "话题列表不能为空")
	}
	return p.Topics[rng.Intn(len(p.Topics))], nil
}

// IsSelf 判断给定账号是否就是智能体自己, 句柄比较忽略大小写和 @ 前缀。
func (p Persona) IsSelf(handle string) bool {
	clean := strings.TrimPrefix(strings.TrimSpace(handle), "@")
	return clean != "" && strings.EqualFold(clean, strings.TrimPrefix(p.Handle, "@"))
}
