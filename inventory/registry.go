package inventory

import (
	"context"
	"sync"
	"time"

	"equipment_loan_tool/models"

	"github.com/google/uuid"
)

// Registry 物资台账，按插入顺序保存
type Registry struct {
	mu     sync.RWMutex
	items  []models.Material
	mirror *Mirror
	hub    *Hub
	now    func() time.Time
}

func NewRegistry(mirror *Mirror, hub *Hub) *Registry {
	return &Registry{mirror: mirror, hub: hub, now: time.Now}
}

func (r *Registry) indexOf(id string) int {
	for i := range r.items {
		if r.items[i].ID == id {
			return i
		}
	}
	return -1
}

// Load 整体替换，用于启动时从远端加载
func (r *Registry) Load(ms []models.Material) {
	items := make([]models.Material, 0, len(ms))
	for _, m := range ms {
		items = append(items, m.Clone())
	}
	r.mu.Lock()
	r.items = items
	r.mu.Unlock()
}

// Add 分配新 id 并追加，不做校验
func (r *Registry) Add(ctx context.Context, m models.Material) models.Material {
	m = m.Clone()
	m.ID = uuid.NewString()
	now := r.now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now

	// 持锁入队，远端写入顺序与本地一致
	r.mu.Lock()
	r.items = append(r.items, m)
	r.mirror.createMaterial(ctx, m.Clone())
	r.mu.Unlock()

	r.hub.Publish(MaterialCreated, m.ID)
	return m.Clone()
}

// Update 浅合并 patch；id 不存在时什么都不做
func (r *Registry) Update(ctx context.Context, id string, patch models.MaterialPatch) (models.Material, bool) {
	m, err := r.Modify(ctx, id, func(m *models.Material) error {
		patch.Apply(m)
		return nil
	})
	return m, err == nil
}

// Modify 在写锁内读改写一条物资，fn 看到的是最新值；fn 返回错误时不做任何改动
func (r *Registry) Modify(ctx context.Context, id string, fn func(m *models.Material) error) (models.Material, error) {
	return r.mutate(id, fn, func(m models.Material) {
		r.mirror.updateMaterial(ctx, m)
	})
}

// mutate 修改成功后在锁内调用 write 写远端；write 可为 nil
func (r *Registry) mutate(id string, fn func(m *models.Material) error, write func(m models.Material)) (models.Material, error) {
	r.mu.Lock()
	i := r.indexOf(id)
	if i < 0 {
		r.mu.Unlock()
		return models.Material{}, ErrMaterialNotFound
	}
	m := r.items[i].Clone()
	if err := fn(&m); err != nil {
		r.mu.Unlock()
		return models.Material{}, err
	}
	m.ID = id
	m.UpdatedAt = r.now().UTC()
	r.items[i] = m
	if write != nil {
		write(m.Clone())
	}
	r.mu.Unlock()

	r.hub.Publish(MaterialUpdated, id)
	return m.Clone(), nil
}

// Delete 删除物资，相关借用记录保持不变
func (r *Registry) Delete(ctx context.Context, id string) bool {
	r.mu.Lock()
	i := r.indexOf(id)
	if i < 0 {
		r.mu.Unlock()
		return false
	}
	r.items = append(r.items[:i], r.items[i+1:]...)
	r.mirror.deleteMaterial(ctx, id)
	r.mu.Unlock()

	r.hub.Publish(MaterialDeleted, id)
	return true
}

func (r *Registry) Get(id string) (models.Material, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i := r.indexOf(id); i >= 0 {
		return r.items[i].Clone(), true
	}
	return models.Material{}, false
}

// List 按插入顺序返回副本
func (r *Registry) List() []models.Material {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Material, 0, len(r.items))
	for _, m := range r.items {
		out = append(out, m.Clone())
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}
