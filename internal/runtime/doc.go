// Package runtime 提供智能体运行时的基础能力: 人设与话题配置、设置项查询、
// 会话身份与连接管理、记忆持久化, 以及把时间线和推文上下文合成回复提示词的
// 状态合成器。两个工作流共享这一层, 但各自只消费其中的一小部分。
package runtime
