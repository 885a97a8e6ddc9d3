// Package content 构建视频内容的 TF-IDF 向量索引。
// 索引是视频文本/标签的纯函数，与交互数据无关；每次模型刷新整体重建。
package content

import (
	"math"
	"strings"
	"unicode"

	"github.com/rushteam/vidrec/core"
)

// Vector 是稀疏的 term -> 权重 向量（TF-IDF 加权，所有分量非负）。
type Vector map[string]float64

// Index 是一批视频的内容向量索引。
// 给定相同的视频集合，Build 的结果完全确定（词表按首次出现顺序编号）。
type Index struct {
	// Vocab 按首次出现顺序排列的词表
	Vocab []string

	// Vectors 每个视频的 TF-IDF 向量
	Vectors map[int64]Vector

	// LabelTerms 每个视频的标签词集合，用于区分"标签重合"与"文本重合"的归因
	LabelTerms map[int64]map[string]struct{}
}

// Build 对一批视频构建 TF-IDF 索引。
// 分词：小写化后按非字母数字切分；text 与 labels 合并为一个词袋。
// IDF 采用平滑形式 ln((1+N)/(1+df)) + 1，保证权重恒为正。
func Build(videos []*core.Video) *Index {
	idx := &Index{
		Vectors:    make(map[int64]Vector, len(videos)),
		LabelTerms: make(map[int64]map[string]struct{}, len(videos)),
	}

	// 1. 分词 + 词频统计
	seen := make(map[string]struct{})
	df := make(map[string]int)
	tfs := make(map[int64]map[string]float64, len(videos))

	for _, v := range videos {
		terms := Tokenize(v.Text)
		labelSet := make(map[string]struct{})
		for _, lbl := range v.Labels {
			for _, t := range Tokenize(lbl) {
				terms = append(terms, t)
				labelSet[t] = struct{}{}
			}
		}

		tf := make(map[string]float64, len(terms))
		for _, t := range terms {
			tf[t]++
			if _, ok := seen[t]; !ok {
				seen[t] = struct{}{}
				idx.Vocab = append(idx.Vocab, t)
			}
		}
		for t := range tf {
			df[t]++
		}
		tfs[v.ID] = tf
		idx.LabelTerms[v.ID] = labelSet
	}

	// 2. TF-IDF 加权
	n := float64(len(videos))
	for _, v := range videos {
		vec := make(Vector, len(tfs[v.ID]))
		for t, tf := range tfs[v.ID] {
			idf := math.Log((1+n)/(1+float64(df[t]))) + 1
			vec[t] = tf * idf
		}
		idx.Vectors[v.ID] = vec
	}
	return idx
}

// VectorOf 返回视频的内容向量，不存在返回 nil。
func (idx *Index) VectorOf(videoID int64) Vector {
	if idx == nil {
		return nil
	}
	return idx.Vectors[videoID]
}

// SharesLabelTerm 返回两个视频是否存在重合的标签词。
func (idx *Index) SharesLabelTerm(a, b int64) bool {
	if idx == nil {
		return false
	}
	la, lb := idx.LabelTerms[a], idx.LabelTerms[b]
	if len(la) == 0 || len(lb) == 0 {
		return false
	}
	if len(lb) < len(la) {
		la, lb = lb, la
	}
	for t := range la {
		if _, ok := lb[t]; ok {
			return true
		}
	}
	return false
}

// Tokenize 小写化后按非字母数字切分。
func Tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Cosine 计算两个稀疏向量的余弦相似度。任一向量零范数时定义为 0（避免除零）。
func Cosine(a, b Vector) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	// 只需遍历较小的向量求点积
	small, large := a, b
	if len(large) < len(small) {
		small, large = large, small
	}

	var dot float64
	for t, va := range small {
		if vb, ok := large[t]; ok {
			dot += va * vb
		}
	}
	if dot == 0 {
		return 0
	}

	normA := a.Norm()
	normB := b.Norm()
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (normA * normB)
}

// Norm 返回向量的 L2 范数。
func (v Vector) Norm() float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// AddScaled 把 other × w 累加到 v 上（用户向量 = 交互视频向量的加权和）。
func (v Vector) AddScaled(other Vector, w float64) {
	if w == 0 {
		return
	}
	for t, x := range other {
		v[t] += x * w
	}
}

// Normalized 返回 L2 归一化后的副本；零向量返回空向量。
func (v Vector) Normalized() Vector {
	norm := v.Norm()
	out := make(Vector, len(v))
	if norm == 0 {
		return out
	}
	for t, x := range v {
		out[t] = x / norm
	}
	return out
}
