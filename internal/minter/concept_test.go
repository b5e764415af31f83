package minter

import (
	"strings"
	"testing"
)

func TestConceptValidate(t *testing.T) {
	cases := []struct {
		name    string
		concept Concept
		wantErr bool
		ticker  string
	}{
		{name: "合法大写", concept: Concept{Name: "Good", Ticker: "ABC"}, ticker: "ABC"},
		{name: "小写归一化", concept: Concept{Name: "Good", Ticker: "xyz"}, ticker: "XYZ"},
		{name: "混合大小写五位", concept: Concept{Name: "Good", Ticker: "AbCdE"}, ticker: "ABCDE"},
		{name: "符号过短", concept: Concept{Name: "Good", Ticker: "AB"}, wantErr: true},
		{name: "符号过长", concept: Concept{Name: "Good", Ticker: "TOOLONG"}, wantErr: true},
		{name: "符号含数字", concept: Concept{Name: "Good", Ticker: "AB3"}, wantErr: true},
		{name: "符号含连字符", concept: Concept{Name: "Good", Ticker: "A-B"}, wantErr: true},
		{name: "名称为空", concept: Concept{Name: "  ", Ticker: "ABC"}, wantErr: true},
		{name: "名称超长", concept: Concept{Name: strings.Repeat("a", 33), Ticker: "ABC"}, wantErr: true},
		{name: "名称恰好 32", concept: Concept{Name: strings.Repeat("a", 32), Ticker: "ABC"}, ticker: "ABC"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := tc.concept
			err := c.Validate()
			if tc.wantErr {
				if err == nil {
					t.Fatalf("期望校验失败: %+v", tc.concept)
				}
				return
			}
			if err != nil {
				t.Fatalf("校验失败: %v", err)
			}
			if c.Ticker != tc.ticker {
				t.Fatalf("符号归一化结果 %s, 期望 %s", c.Ticker, tc.ticker)
			}
		})
	}
}
