package framework

import (
	"context"
	"fmt"
)

// StepFunc 单步处理函数
type StepFunc func(ctx context.Context) error

// Step 函数链中的一步
type Step struct {
	Name string
	Fn   StepFunc
}

// PreProcessor 函数链处理器
type PreProcessor struct {
	steps []Step
}

// NewPreProcessor 创建函数链处理器
func NewPreProcessor(steps ...Step) *PreProcessor {
	return &PreProcessor{steps: steps}
}

// Run 按顺序执行，任一步返回 error 则立即停止
// 返回的错误保留原始错误链，调用方可用 errors.Is / errors.As 判断
func (p *PreProcessor) Run(ctx context.Context) error {
	for _, step := range p.steps {
		if err := step.Fn(ctx); err != nil {
			return fmt.Errorf("%s failed: %w", step.Name, err)
		}
	}
	return nil
}
