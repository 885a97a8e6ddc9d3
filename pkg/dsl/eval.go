package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/vidrec/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvOnce sync.Once
)

// initCELEnv 初始化 CEL 环境，定义变量和函数
func initCELEnv() (*cel.Env, error) {
	env, err := cel.NewEnv(
		// 定义变量类型
		cel.Variable("item", cel.DynType),
		cel.Variable("label", cel.DynType),
		cel.Variable("rctx", cel.DynType),
	)
	return env, err
}

// getCELEnv 获取或创建 CEL 环境
func getCELEnv() (*cel.Env, error) {
	var err error
	celEnvOnce.Do(func() {
		celEnv, err = initCELEnv()
	})
	return celEnv, err
}

// Eval 是候选规则 DSL 解释器，使用 CEL (Common Expression Language) 实现。
// 运营侧可以用表达式描述候选的保留/剔除规则，无需改代码。
//
// 表达式语法（CEL 标准语法）：
//   - 基础：label.reason == "Exploration" / label.recall_source != "bandit"
//   - 数值：item.score > 0.7 / item.score >= 0.5
//   - 逻辑：label.recall_source == "hybrid" && item.score > 0.8
//   - 存在性：label.reason != null
//   - 包含：label.reason.contains("Exploration")
type Eval struct {
	item *core.Item
	rctx *core.RecommendContext
	env  *cel.Env
}

// NewEval 创建一个新的 DSL 解释器。
func NewEval(item *core.Item, rctx *core.RecommendContext) *Eval {
	env, _ := getCELEnv()
	return &Eval{
		item: item,
		rctx: rctx,
		env:  env,
	}
}

// Evaluate 解析并执行 DSL 表达式，返回布尔结果。
// 空表达式视为 true（不约束）。
//
// 注意：has(label.key) 可以用 label.key != null 替代
func (e *Eval) Evaluate(expr string) (bool, error) {
	if expr == "" {
		return true, nil
	}

	// 编译表达式
	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return false, fmt.Errorf("compile error: %v", issues.Err())
	}

	// 创建程序
	prg, err := e.env.Program(ast)
	if err != nil {
		return false, fmt.Errorf("program error: %v", err)
	}

	// 执行表达式
	out, _, err := prg.Eval(e.buildInput())
	if err != nil {
		// 对于不存在的 key，CEL 会返回错误
		// 用户应该使用 label.key != null 来检查存在性，而不是直接访问
		return false, fmt.Errorf("eval error: %v", err)
	}

	// 转换为布尔值
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression must return boolean, got %T", out.Value())
	}

	return result, nil
}

// buildInput 构建 CEL 表达式的输入数据
func (e *Eval) buildInput() map[string]interface{} {
	// 构建 label map
	labels := make(map[string]interface{})
	for k, v := range e.item.Labels {
		labels[k] = map[string]interface{}{
			"value":  v.Value,
			"source": v.Source,
		}
	}

	// 构建 item map
	item := map[string]interface{}{
		"id":     e.item.ID,
		"score":  e.item.Score,
		"labels": labels,
	}

	// 构建 rctx map
	rctx := map[string]interface{}{
		"user_id":   e.rctx.UserID,
		"algorithm": e.rctx.Algorithm,
		"params":    e.rctx.Params,
	}

	// label 作为顶层访问器：label.recall_source 直接取 value
	// 注意：CEL 访问不存在的 key 会报错，所以用户应使用 label.key != null 检查存在性
	labelAccessor := make(map[string]interface{})
	for k, v := range labels {
		labelAccessor[k] = v.(map[string]interface{})["value"]
	}

	return map[string]interface{}{
		"item":  item,
		"label": labelAccessor,
		"rctx":  rctx,
	}
}
