// Package engage 实现搜索回复工作流: 在 60 到 120 分钟的随机间隔上唤醒,
// 围绕一个话题抓取搜索结果和主页时间线, 过滤掉智能体已经参与过的会话,
// 让小档模型挑出最值得回复的帖子, 结合会话上下文和图片描述生成回复并发布,
// 最后持久化这次交互。单轮内的任何失败只会跳过本轮, 循环按计划继续。
package engage
