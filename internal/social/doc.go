// Package social 定义了社交平台采集与发帖能力的统一接口。趋势、搜索、
// 时间线与回复发布都通过这里的 Client 抽象消费；具体实现见 httpapi 子包。
package social
