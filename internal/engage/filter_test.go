package engage

import (
	"errors"
	"testing"

	"TrendMint/internal/runtime"
	"TrendMint/internal/social"
)

func TestExcludeOwnThreads(t *testing.T) {
	persona := runtime.Persona{ID: "agent", Handle: "trendbot"}

	posts := []social.Post{
		{ID: "1", Author: "alice"},
		{ID: "2", Author: "bob", Thread: []social.Post{
			{ID: "2a", Author: "carol"},
			{ID: "2b", Author: "TrendBot"},
		}},
		{ID: "3", Author: "trendbot"},
		{ID: "4", Author: "dave", Thread: []social.Post{{ID: "4a", Author: "erin"}}},
	}

	kept := ExcludeOwnThreads(posts, persona)
	if len(kept) != 2 || kept[0].ID != "1" || kept[1].ID != "4" {
		t.Fatalf("过滤结果不对: %+v", kept)
	}
}

func TestMatchPostSubstring(t *testing.T) {
	candidates := []social.Post{
		{ID: "12345"},
		{ID: "67890"},
	}

	// 模型输出夹带噪声时靠子串包含解析。
	post, err := MatchPost("12345 is the best", candidates)
	if err != nil {
		t.Fatalf("MatchPost 失败: %v", err)
	}
	if post.ID != "12345" {
		t.Fatalf("匹配到错误的候选: %s", post.ID)
	}

	// 反向包含: 模型只输出了 ID 的一部分。
	post, err = MatchPost("678", candidates)
	if err != nil {
		t.Fatalf("MatchPost 失败: %v", err)
	}
	if post.ID != "67890" {
		t.Fatalf("匹配到错误的候选: %s", post.ID)
	}
}

func TestMatchPostNoMatch(t *testing.T) {
	candidates := []social.Post{{ID: "12345"}}
	if _, err := MatchPost("99999", candidates); !errors.Is(err, ErrNoMatch) {
		t.Fatalf("期望 ErrNoMatch, 实际 %v", err)
	}
	if _, err := MatchPost("   ", candidates); !errors.Is(err, ErrNoMatch) {
		t.Fatalf("空响应应当判为无匹配, 实际 %v", err)
	}
}

func TestMatchPostAmbiguous(t *testing.T) {
	// "123" 是 "1234" 的前缀, 同一响应同时命中两个候选时必须拒绝。
	candidates := []social.Post{{ID: "123"}, {ID: "1234"}}
	if _, err := MatchPost("1234", candidates); !errors.Is(err, ErrAmbiguousMatch) {
		t.Fatalf("期望 ErrAmbiguousMatch, 实际 %v", err)
	}
}

func TestMatchPostDuplicateCandidateNotAmbiguous(t *testing.T) {
	// 同一个帖子在池里出现两次不算歧义。
	candidates := []social.Post{{ID: "555"}, {ID: "555"}}
	post, err := MatchPost("555", candidates)
	if err != nil {
		t.Fatalf("重复候选不应判为歧义: %v", err)
	}
	if post.ID != "555" {
		t.Fatalf("意外的匹配结果: %s", post.ID)
	}
}
