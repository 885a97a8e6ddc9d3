// Package vidrec 是一个短视频推荐服务（Video Recommender）。
//
// 设计要点：
// - Pipeline-first: 每种算法是一条固定的 Node 链（Recall → Filter → ReRank）
// - Labels-first: 推荐理由（reason）以 Label 形式全链路透传，支持 explain / 观测
// - Snapshot-first: 双塔/混合模型离线整体重建、原子发布；在线读无锁
package vidrec

import "github.com/rushteam/vidrec/pipeline"

// 轻量 facade：便于用户直接 import "vidrec" 使用核心抽象。
type Pipeline = pipeline.Pipeline
type Node = pipeline.Node
type Kind = pipeline.Kind

const (
	KindRecall      = pipeline.KindRecall
	KindFilter      = pipeline.KindFilter
	KindReRank      = pipeline.KindReRank
	KindPostProcess = pipeline.KindPostProcess
)
