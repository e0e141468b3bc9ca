package scheduler

import (
	"log"
	"sync"
	"time"

	"github.com/habitribe/internal/service"
)

// DailyScheduler 周期性触发每日物化批处理。
// 物化本身是幂等的，因此触发间隔可以远小于一天：同一天内的重复触发
// 不会重复建档，还能在前一次部分失败后自动补齐当天缺口。
// 服务停机期间错过的日期不会回溯补建。
type DailyScheduler struct {
	Entries       *service.EntryService
	CheckInterval time.Duration

	mu      sync.Mutex
	stop    chan struct{}
	wg      sync.WaitGroup
	lastErr error
	running bool
}

// NewDailyScheduler 构造调度器，默认每小时触发一次
func NewDailyScheduler(entries *service.EntryService) *DailyScheduler {
	return &DailyScheduler{
		Entries:       entries,
		CheckInterval: time.Hour,
	}
}

// Start 启动后台循环，启动时立即执行一次
func (ds *DailyScheduler) Start() {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	if ds.running {
		return
	}

	ds.stop = make(chan struct{})
	ds.running = true
	ds.wg.Add(1)

	go ds.run()

	log.Printf("[scheduler] started, interval=%v", ds.CheckInterval)
}

// Stop 停止后台循环并等待本轮执行结束
func (ds *DailyScheduler) Stop() {
	ds.mu.Lock()
	if !ds.running {
		ds.mu.Unlock()
		return
	}
	ds.running = false
	close(ds.stop)
	ds.mu.Unlock()

	ds.wg.Wait()
	log.Println("[scheduler] stopped")
}

// LastError 返回最近一次执行的错误，供健康检查暴露
func (ds *DailyScheduler) LastError() error {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	return ds.lastErr
}

func (ds *DailyScheduler) run() {
	defer ds.wg.Done()

	ticker := time.NewTicker(ds.CheckInterval)
	defer ticker.Stop()

	ds.runOnce()

	for {
		select {
		case <-ds.stop:
			return
		case <-ticker.C:
			ds.runOnce()
		}
	}
}

// runOnce 执行一次批处理，失败记录日志并保留错误，不吞掉
func (ds *DailyScheduler) runOnce() {
	err := ds.Entries.RunDailyMaterialization()

	ds.mu.Lock()
	ds.lastErr = err
	ds.mu.Unlock()

	if err != nil {
		log.Printf("[scheduler] daily materialization failed: %v", err)
	}
}
