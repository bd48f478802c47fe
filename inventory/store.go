package inventory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"equipment_loan_tool/logger"
	"equipment_loan_tool/models"

	"github.com/panjf2000/ants/v2"
)

// Store 内存台账背后的远端持久化；OpenLoan / CloseLoan 同时写借用记录和物资
type Store interface {
	ListMaterials(ctx context.Context) ([]models.Material, error)
	CreateMaterial(ctx context.Context, m models.Material) error
	UpdateMaterial(ctx context.Context, m models.Material) error
	DeleteMaterial(ctx context.Context, id string) error

	ListLoans(ctx context.Context) ([]models.Loan, error)
	CreateLoan(ctx context.Context, l models.Loan) error
	UpdateLoan(ctx context.Context, l models.Loan) error
	DeleteLoan(ctx context.Context, id string) error

	OpenLoan(ctx context.Context, l models.Loan, m models.Material) error
	// CloseLoan 的 m 为 nil 表示物资已不存在，只写借用记录
	CloseLoan(ctx context.Context, l models.Loan, m *models.Material) error
}

// Mirror 把本地修改异步写到 Store，失败只记日志，本地状态为准。
// 写入按调用顺序排队，由池里的单个任务依次执行，同一条记录不会乱序。
// nil *Mirror 不做任何事；pool 为 nil 时在当前 goroutine 同步写入。
type Mirror struct {
	store   Store
	pool    *ants.Pool
	timeout time.Duration

	mu       sync.Mutex
	idle     *sync.Cond
	queue    []mirrorTask
	draining bool
}

type mirrorTask struct {
	ctx context.Context
	op  string
	fn  func(ctx context.Context, s Store) error
}

func NewMirror(store Store, pool *ants.Pool, timeout time.Duration) *Mirror {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	m := &Mirror{store: store, pool: pool, timeout: timeout}
	m.idle = sync.NewCond(&m.mu)
	return m
}

func (m *Mirror) Store() Store {
	if m == nil {
		return nil
	}
	return m.store
}

func (m *Mirror) run(ctx context.Context, op string, fn func(ctx context.Context, s Store) error) {
	if m == nil || m.store == nil {
		return
	}
	// 请求结束后仍需完成写入，保留 trace 信息但去掉取消
	t := mirrorTask{ctx: context.WithoutCancel(ctx), op: op, fn: fn}
	if m.pool == nil {
		m.exec(t)
		return
	}

	m.mu.Lock()
	m.queue = append(m.queue, t)
	if m.draining {
		m.mu.Unlock()
		return
	}
	m.draining = true
	m.mu.Unlock()

	if err := m.pool.Submit(m.drain); err != nil {
		m.mu.Lock()
		dropped := len(m.queue)
		m.queue = nil
		m.draining = false
		m.idle.Broadcast()
		m.mu.Unlock()
		logger.Errorf(t.ctx, "mirror submit err: %+v, dropped %d writes", err, dropped)
	}
}

// drain 逐个执行队列，队列空了才退出
func (m *Mirror) drain() {
	for {
		m.mu.Lock()
		if len(m.queue) == 0 {
			m.draining = false
			m.idle.Broadcast()
			m.mu.Unlock()
			return
		}
		t := m.queue[0]
		m.queue[0] = mirrorTask{}
		m.queue = m.queue[1:]
		m.mu.Unlock()

		m.exec(t)
	}
}

func (m *Mirror) exec(t mirrorTask) {
	c, cancel := context.WithTimeout(t.ctx, m.timeout)
	defer cancel()
	if err := t.fn(c, m.store); err != nil {
		logger.Errorf(t.ctx, "mirror %s err: %+v", t.op, err)
	}
}

// Wait 阻塞到已排队的写入全部执行完
func (m *Mirror) Wait() {
	if m == nil {
		return
	}
	m.mu.Lock()
	for m.draining {
		m.idle.Wait()
	}
	m.mu.Unlock()
}

func (m *Mirror) createMaterial(ctx context.Context, mat models.Material) {
	m.run(ctx, "create material "+mat.ID, func(c context.Context, s Store) error {
		return s.CreateMaterial(c, mat)
	})
}

func (m *Mirror) updateMaterial(ctx context.Context, mat models.Material) {
	m.run(ctx, "update material "+mat.ID, func(c context.Context, s Store) error {
		return s.UpdateMaterial(c, mat)
	})
}

func (m *Mirror) deleteMaterial(ctx context.Context, id string) {
	m.run(ctx, "delete material "+id, func(c context.Context, s Store) error {
		return s.DeleteMaterial(c, id)
	})
}

func (m *Mirror) createLoan(ctx context.Context, l models.Loan) {
	m.run(ctx, "create loan "+l.ID, func(c context.Context, s Store) error {
		return s.CreateLoan(c, l)
	})
}

func (m *Mirror) updateLoan(ctx context.Context, l models.Loan) {
	m.run(ctx, "update loan "+l.ID, func(c context.Context, s Store) error {
		return s.UpdateLoan(c, l)
	})
}

func (m *Mirror) deleteLoan(ctx context.Context, id string) {
	m.run(ctx, "delete loan "+id, func(c context.Context, s Store) error {
		return s.DeleteLoan(c, id)
	})
}

func (m *Mirror) openLoan(ctx context.Context, l models.Loan, mat models.Material) {
	m.run(ctx, "open loan "+l.ID, func(c context.Context, s Store) error {
		return s.OpenLoan(c, l, mat)
	})
}

func (m *Mirror) closeLoan(ctx context.Context, l models.Loan, mat *models.Material) {
	m.run(ctx, "close loan "+l.ID, func(c context.Context, s Store) error {
		return s.CloseLoan(c, l, mat)
	})
}

// Hydrate 启动时用 Store 的数据覆盖本地状态，只调用一次
func (m *Mirror) Hydrate(ctx context.Context, reg *Registry, led *Ledger) error {
	if m == nil || m.store == nil {
		return nil
	}
	mats, err := m.store.ListMaterials(ctx)
	if err != nil {
		return fmt.Errorf("list materials: %w", err)
	}
	loans, err := m.store.ListLoans(ctx)
	if err != nil {
		return fmt.Errorf("list loans: %w", err)
	}
	reg.Load(mats)
	led.Load(loans)
	logger.Infof(ctx, "hydrated %d materials and %d loans", len(mats), len(loans))
	return nil
}
