package runtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"TrendMint/internal/cache"
	xerrors "TrendMint/internal/errors"
)

// ConversationID 根据帖子的会话标识和智能体标识派生稳定的会话身份,
// 同一会话在任何进程里都会得到同一个 ID。
func ConversationID(postConversationID, agentID string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(postConversationID+"-"+agentID))
}

// Connection 记录智能体与某位作者建立过的联系。
type Connection struct {
	UserID    string `json:"user_id"`
	Handle    string `json:"handle"`
	CreatedAt int64  `json:"created_at"`
}

// Memory 是一条持久化的交互记录, 按会话分组存入缓存。
type Memory struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`
	AuthorID       string `json:"author_id"`
	PostID         string `json:"post_id"`
	Text           string `json:"text"`
	CreatedAt      int64  `json:"created_at"`
}

// MemoryStore 把会话记忆和连接记录持久化到共享缓存。
type MemoryStore struct {
	store cache.Store
}

// NewMemoryStore 创建记忆存储。
func NewMemoryStore(store cache.Store) *MemoryStore {
	return &MemoryStore{store: store}
}

// EnsureConnection 确保作者的连接记录存在, 已存在时不做任何修改。
func (m *MemoryStore) EnsureConnection(ctx context.Context, userID, handle string) error {
	if m == nil || m.store == nil {
		return xerrors.New(xerrors.CodeInitializationFailure, "未配置缓存存储")
	}
	key := cache.ConnectionKey(userID)

	var existing Connection
	found, err := m.store.GetJSON(ctx, key, &existing)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeCacheFailure, err, "读取连接记录失败")
	}
	if found {
		return nil
	}

	conn := Connection{
		UserID:    userID,
		Handle:    handle,
		CreatedAt: time.Now().Unix(),
	}
	if err := m.store.SetJSON(ctx, key, conn); err != nil {
		return xerrors.Wrap(xerrors.CodeCacheFailure, err, "写入连接记录失败")
	}
	return nil
}

// CreateMemory 追加一条会话记忆。列表追加是原子操作, 并发写不会互相覆盖。
func (m *MemoryStore) CreateMemory(ctx context.Context, mem Memory) error {
	if m == nil || m.store == nil {
		return xerrors.New(xerrors.CodeInitializationFailure, "未配置缓存存储")
	}
	if mem.ID == "" {
		mem.ID = uuid.NewString()
	}
	if mem.CreatedAt == 0 {
		mem.CreatedAt = time.Now().Unix()
	}
	if err := m.store.AppendJSON(ctx, cache.MemoryKey(mem.ConversationID), mem); err != nil {
		return xerrors.Wrap(xerrors.CodeCacheFailure, err, "写入会话记忆失败")
	}
	return nil
}

// ListMemories 读取某个会话的全部记忆。
func (m *MemoryStore) ListMemories(ctx context.Context, conversationID string) ([]Memory, error) {
	if m == nil || m.store == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "未配置缓存存储")
	}
	raws, err := m.store.ListJSON(ctx, cache.MemoryKey(conversationID))
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeCacheFailure, err, "读取会话记忆失败")
	}
	memories := make([]Memory, 0, len(raws))
	for _, raw := range raws {
		var mem Memory
		if err := json.Unmarshal(raw, &mem); err != nil {
			continue
		}
		memories = append(memories, mem)
	}
	return memories, nil
}
