// Package minter 实现热点代币生成工作流: 扫描社交平台热点话题, 跳过已经
// 用过的话题, 让大模型围绕话题构思一个代币概念, 校验字段约束, 通过链上
// 客户端部署 ERC-20 合约, 最后记录并可选地公告发射结果。
package minter
