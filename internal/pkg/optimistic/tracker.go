// Package optimistic 实现乐观更新: 先改本地状态, 再发请求, 失败回滚
//
// 每个实体键维护单调递增的序号. 只有最新一次变更的响应可以回滚或确认本地状态,
// 较旧的响应直接丢弃, 避免乱序返回覆盖更新的本地状态.
package optimistic

import (
	"context"
	"sync"

	"forum_client/pkg/metrics"
)

// Outcome 一次变更的最终结果
type Outcome int

const (
	Confirmed  Outcome = iota // 请求成功且仍是最新
	RolledBack                // 请求失败且仍是最新, 已回滚
	Discarded                 // 已有更新的变更, 响应被丢弃
)

func (o Outcome) String() string {
	switch o {
	case Confirmed:
		return metrics.OutcomeConfirmed
	case RolledBack:
		return metrics.OutcomeRolledBack
	default:
		return metrics.OutcomeDiscarded
	}
}

// Mutation 描述一次乐观变更
// Apply/rollback/Confirm 在 Tracker 锁内执行, 不能再调用同一个 Tracker
type Mutation struct {
	// Key 实体键, 例如 topic:42:vote
	Key string
	// Kind 指标标签
	Kind string
	// Apply 同步修改本地状态, 返回基于快照的回滚函数
	Apply func() (rollback func())
	// Send 发出网络请求
	Send func(ctx context.Context) error
	// Confirm 请求成功后与服务端结果对齐, 可为 nil
	Confirm func()
}

// Tracker 记录每个实体键的最新序号
type Tracker struct {
	mu      sync.Mutex
	latest  map[string]uint64
	metrics *metrics.MetricsCollector
}

// NewTracker 创建 Tracker, m 可以为 nil
func NewTracker(m *metrics.MetricsCollector) *Tracker {
	return &Tracker{
		latest:  make(map[string]uint64),
		metrics: m,
	}
}

// Begin 为 key 分配新序号
func (t *Tracker) Begin(key string) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.latest[key]++
	return t.latest[key]
}

// IsLatest 判断 seq 是否仍是 key 的最新序号
func (t *Tracker) IsLatest(key string, seq uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.latest[key] == seq
}

// Run 执行一次乐观变更
// 返回的 error 总是 Send 的错误, 即使结果被丢弃
func (t *Tracker) Run(ctx context.Context, m Mutation) (Outcome, error) {
	// apply 与序号分配必须在同一临界区, 保证序号顺序与本地状态顺序一致
	t.mu.Lock()
	rollback := m.Apply()
	t.latest[m.Key]++
	seq := t.latest[m.Key]
	t.mu.Unlock()
	t.metrics.RecordOptimistic(m.Kind, metrics.OutcomeApplied)

	err := m.Send(ctx)

	outcome := t.settle(m, seq, err, rollback)
	t.metrics.RecordOptimistic(m.Kind, outcome.String())
	return outcome, err
}

func (t *Tracker) settle(m Mutation, seq uint64, err error, rollback func()) Outcome {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.latest[m.Key] != seq {
		return Discarded
	}
	if err != nil {
		if rollback != nil {
			rollback()
		}
		return RolledBack
	}
	if m.Confirm != nil {
		m.Confirm()
	}
	return Confirmed
}
