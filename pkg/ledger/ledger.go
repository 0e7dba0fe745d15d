package ledger

import (
	"fmt"
	"slices"
	"sync"

	"github.com/shouni/gemini-image-studio/pkg/domain"
)

// 操作ごとのトークン消費量
const (
	CostPerImage    = 50
	CostAutoEnhance = 100
	CostManualEdit  = 50
)

// Snapshot はある時点の残高です。
type Snapshot struct {
	Total     int
	Used      int
	Available int
}

// Ledger はセッション単位のトークン残高を管理します。
// 操作の前に引き落とし、失敗したら払い戻します。
type Ledger struct {
	mu        sync.Mutex
	total     int
	used      int
	listeners []func(Snapshot)
}

// New は総量と使用済み量から Ledger を作成します。
func New(total, used int) (*Ledger, error) {
	if total <= 0 {
		return nil, fmt.Errorf("トークン総量は正の値である必要があります: %d", total)
	}
	if used < 0 || used > total {
		return nil, fmt.Errorf("使用済みトークンが範囲外です: used=%d total=%d", used, total)
	}
	return &Ledger{total: total, used: used}, nil
}

// OnChange は残高が変わるたびに呼ばれる関数を登録します。
// リスナーはロックを解放した後に呼ばれます。
func (l *Ledger) OnChange(fn func(Snapshot)) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listeners = append(l.listeners, fn)
}

// Snapshot は現在の残高を返します。
func (l *Ledger) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

func (l *Ledger) snapshotLocked() Snapshot {
	return Snapshot{Total: l.total, Used: l.used, Available: l.total - l.used}
}

// CanAfford は cost を引き落とせるかを返します。残高は変わりません。
func (l *Ledger) CanAfford(cost int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return cost >= 0 && cost <= l.total-l.used
}

// Reserve は cost を先に引き落とします。残高が足りなければ何も変更せず
// domain.ErrInsufficientTokens を返します。
func (l *Ledger) Reserve(cost int) (*Reservation, error) {
	if cost < 0 {
		return nil, fmt.Errorf("%w: 負のコストは予約できません: %d", domain.ErrValidation, cost)
	}
	l.mu.Lock()
	available := l.total - l.used
	if cost > available {
		l.mu.Unlock()
		return nil, fmt.Errorf("%w: 必要=%d 残り=%d", domain.ErrInsufficientTokens, cost, available)
	}
	l.used += cost
	snap, listeners := l.snapshotLocked(), l.listenersLocked()
	l.mu.Unlock()

	notify(listeners, snap)
	return &Reservation{ledger: l, cost: cost}, nil
}

// Refund は cost を払い戻します。使用済み量は 0 未満になりません。
func (l *Ledger) Refund(cost int) {
	if cost <= 0 {
		return
	}
	l.mu.Lock()
	l.used -= cost
	if l.used < 0 {
		l.used = 0
	}
	snap, listeners := l.snapshotLocked(), l.listenersLocked()
	l.mu.Unlock()

	notify(listeners, snap)
}

func (l *Ledger) listenersLocked() []func(Snapshot) {
	return slices.Clone(l.listeners)
}

func notify(listeners []func(Snapshot), snap Snapshot) {
	for _, fn := range listeners {
		fn(snap)
	}
}

// Reservation は一度だけ確定できる引き落としです。
// 二度目以降の Commit / Refund / Settle は何もしません。
type Reservation struct {
	ledger *Ledger
	cost   int
	once   sync.Once
}

// Cost は予約した量を返します。
func (r *Reservation) Cost() int {
	return r.cost
}

// Commit は予約をそのまま確定します。
func (r *Reservation) Commit() {
	r.once.Do(func() {})
}

// Refund は予約を全額払い戻します。
func (r *Reservation) Refund() {
	r.Settle(0)
}

// Settle は actual だけを消費として残し、差額を払い戻します。
// actual は 0 から予約量の範囲に丸められます。
func (r *Reservation) Settle(actual int) {
	r.once.Do(func() {
		if actual < 0 {
			actual = 0
		}
		if actual > r.cost {
			actual = r.cost
		}
		r.ledger.Refund(r.cost - actual)
	})
}
