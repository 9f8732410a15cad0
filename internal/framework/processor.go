package framework

import (
	"context"
	"sync"
	"time"

	"github.com/bitleak/lmstfy/client"

	"pos/orderqueue/pkg/lmstfyx"
	"pos/orderqueue/pkg/logger"
)

// Processor 处理器：接收消息，调用业务处理函数，根据结果 ACK
type Processor struct {
	cfg        *ProcessorConfig
	proc       lmstfyx.Proc // 业务处理函数（注入的 GetProcess）
	source     MessageSource
	logger     Logger
	shutdownCh chan struct{} // 专门的退出信号通道
	once       sync.Once
	wg         sync.WaitGroup
}

// NewProcessor 创建处理器
func NewProcessor(cfg *ProcessorConfig, proc lmstfyx.Proc, source MessageSource, logger Logger) *Processor {
	return &Processor{
		cfg:        cfg,
		proc:       proc,
		source:     source,
		logger:     logger,
		shutdownCh: make(chan struct{}),
	}
}

// Start 启动处理协程
func (p *Processor) Start(ctx context.Context, inputChan <-chan *Message) error {
	p.logger.Infof(ctx, "[Processor] Starting with %d workers", p.cfg.Concurrency)

	for i := 0; i < p.cfg.Concurrency; i++ {
		p.wg.Add(1)
		go p.loop(ctx, i, inputChan)
	}

	return nil
}

// SignalShutdown 通知 Processor 准备退出（进入 Drain 模式）
func (p *Processor) SignalShutdown() {
	p.once.Do(func() {
		p.logger.Infof(context.Background(), "[Processor] Shutdown signal received")
		close(p.shutdownCh)
	})
}

// Wait 等待所有处理协程退出
func (p *Processor) Wait() {
	p.wg.Wait()
	p.logger.Infof(context.Background(), "[Processor] All workers exited")
}

// loop 处理循环（单个 Worker）
func (p *Processor) loop(ctx context.Context, workerID int, inputChan <-chan *Message) {
	defer p.wg.Done()
	ctx = logger.WithWorkerID(ctx, workerID)
	p.logger.Infof(ctx, "[Processor-%d] Started", workerID)

	for {
		select {
		case msg := <-inputChan:
			p.process(ctx, msg, workerID)

		// Drain 模式：处理完剩余消息再退出
		case <-p.shutdownCh:
			p.logger.Infof(ctx, "[Processor-%d] Entering DRAIN mode", workerID)
			count := 0
			for {
				select {
				case msg := <-inputChan:
					p.process(ctx, msg, workerID)
					count++
				default:
					p.logger.Infof(ctx, "[Processor-%d] Drained %d messages, exiting", workerID, count)
					return
				}
			}
		}
	}
}

// process 处理单个消息
func (p *Processor) process(ctx context.Context, msg *Message, workerID int) {
	if msg == nil {
		return
	}

	startTime := time.Now()

	procCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	p.logger.Debugf(procCtx, "[Processor-%d] Processing message: %s", workerID, msg.ID)

	job := &client.Job{
		ID:    msg.ID,
		Queue: msg.Queue,
		Data:  msg.Data,
	}

	resp := p.proc(procCtx, job)
	if resp == nil {
		resp = &lmstfyx.JobResp{Action: lmstfyx.JobRespStatusRelease}
	}

	switch resp.Action {
	case lmstfyx.JobRespStatusSuccess:
		p.ack(ctx, msg, workerID)
	case lmstfyx.JobRespStatusBury:
		// 客户端没有 bury 接口，记录后 ACK，避免毒消息反复投递
		p.logger.Errorf(ctx, "[Processor-%d] Burying message: %s", workerID, msg.ID)
		p.ack(ctx, msg, workerID)
	case lmstfyx.JobRespStatusRelease:
		// 不 ACK，TTR 到期后由 lmstfy 重新投递
		p.logger.Warnf(ctx, "[Processor-%d] Releasing message for redelivery: %s", workerID, msg.ID)
	}

	p.logger.Infof(ctx, "[Processor-%d] Message processed: %s, action: %s, duration: %v",
		workerID, msg.ID, resp.Action, time.Since(startTime))
}

func (p *Processor) ack(ctx context.Context, msg *Message, workerID int) {
	if err := p.source.Ack(msg.Queue, msg.ID); err != nil {
		p.logger.Errorf(ctx, "[Processor-%d] Ack failed: %s, %v", workerID, msg.ID, err)
	}
}
