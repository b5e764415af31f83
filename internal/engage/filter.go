package engage

import (
	"strings"
	"sync"

	xerrors "TrendMint/internal/errors"
	"TrendMint/internal/runtime"
	"TrendMint/internal/social"
)

// 单轮内的无候选信号, 由调用方记录日志后跳过本轮。
var (
	// ErrNoMatch 表示模型返回的标识无法对应到任何候选帖子。
	ErrNoMatch = xerrors.New(xerrors.CodeNotFound, "没有匹配的候选帖子")
	// ErrAmbiguousMatch 表示模型返回的标识同时匹配多个候选帖子。
	ErrAmbiguousMatch = xerrors.New(xerrors.CodeConflict, "候选帖子匹配存在歧义")
)

// ExcludeOwnThreads 剔除回复链里已经出现过智能体自己发言的帖子,
// 避免重复加入同一个会话。其余帖子原样保留。
func ExcludeOwnThreads(posts []social.Post, persona runtime.Persona) []social.Post {
	kept := make([]social.Post, 0, len(posts))
	for _, post := range posts {
		if threadContainsSelf(post, persona) {
			continue
		}
		kept = append(kept, post)
	}
	return kept
}

func threadContainsSelf(post social.Post, persona runtime.Persona) bool {
	if persona.IsSelf(post.Author) {
		return true
	}
	for _, reply := range post.Thread {
		if persona.IsSelf(reply.Author) {
			return true
		}
	}
	return false
}

// MatchPost 用双向子串包含把模型返回的标识解析回候选帖子, 容忍输出里的
// 格式噪声。匹配到多个候选时判为歧义并拒绝, 不做任何猜测。
func MatchPost(response string, candidates []social.Post) (*social.Post, error) {
	needle := strings.TrimSpace(response)
	if needle == "" {
		return nil, ErrNoMatch
	}

	var matched *social.Post
	for i := range candidates {
		id := strings.TrimSpace(candidates[i].ID)
		if id == "" {
			continue
		}
		if !strings.Contains(needle, id) && !strings.Contains(id, needle) {
			continue
		}
		if matched != nil && matched.ID != id {
			return nil, ErrAmbiguousMatch
		}
		if matched == nil {
			matched = &candidates[i]
		}
	}
	if matched == nil {
		return nil, ErrNoMatch
	}
	return matched, nil
}

// respondedSet 记录本进程生命周期内已经回复过的帖子, 重启后清空。
type respondedSet struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

func newRespondedSet() *respondedSet {
	return &respondedSet{ids: make(map[string]struct{})}
}

func (r *respondedSet) Has(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.ids[id]
	return ok
}

func (r *respondedSet) Add(id string) {
	r.mu.Lock()
	r.ids[id] = struct{}{}
	r.mu.Unlock()
}

func (r *respondedSet) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ids)
}
