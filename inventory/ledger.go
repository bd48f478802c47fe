package inventory

import (
	"context"
	"sync"
	"time"

	"equipment_loan_tool/models"

	"github.com/google/uuid"
)

// Ledger 借用台账，按插入顺序保存
type Ledger struct {
	mu     sync.RWMutex
	loans  []models.Loan
	mirror *Mirror
	hub    *Hub
	now    func() time.Time
}

func NewLedger(mirror *Mirror, hub *Hub) *Ledger {
	return &Ledger{mirror: mirror, hub: hub, now: time.Now}
}

// SetClock 替换“今天”的来源，测试用
func (l *Ledger) SetClock(now func() time.Time) { l.now = now }

func (l *Ledger) Today() string { return models.FormatDate(l.now()) }

func (l *Ledger) indexOf(id string) int {
	for i := range l.loans {
		if l.loans[i].ID == id {
			return i
		}
	}
	return -1
}

func (l *Ledger) Load(ls []models.Loan) {
	loans := make([]models.Loan, 0, len(ls))
	for _, ln := range ls {
		loans = append(loans, ln.Clone())
	}
	l.mu.Lock()
	l.loans = loans
	l.mu.Unlock()
}

// Create 分配 id 并追加，不改物资；借出记账走 Desk.Lend
func (l *Ledger) Create(ctx context.Context, in models.Loan) (models.Loan, error) {
	loan, err := l.prepare(in)
	if err != nil {
		return models.Loan{}, err
	}
	return l.insert(loan, func(ln models.Loan) { l.mirror.createLoan(ctx, ln) }), nil
}

// insert 追加已准备好的借用记录，write 在锁内调用，可为 nil
func (l *Ledger) insert(loan models.Loan, write func(ln models.Loan)) models.Loan {
	l.mu.Lock()
	l.loans = append(l.loans, loan.Clone())
	if write != nil {
		write(loan.Clone())
	}
	l.mu.Unlock()

	l.hub.Publish(LoanCreated, loan.ID)
	return loan.Clone()
}

// prepare 填充 id / 日期默认值
func (l *Ledger) prepare(in models.Loan) (models.Loan, error) {
	loan := in.Clone()
	loan.ID = uuid.NewString()
	if loan.LoanDate == "" {
		loan.LoanDate = l.Today()
	}
	if _, err := models.ParseDate(loan.LoanDate); err != nil {
		return models.Loan{}, ErrInvalidDate
	}
	if loan.ExpectedReturnDate == "" {
		d, err := models.AddDays(loan.LoanDate, models.DefaultLoanDays)
		if err != nil {
			return models.Loan{}, ErrInvalidDate
		}
		loan.ExpectedReturnDate = d
	} else if _, err := models.ParseDate(loan.ExpectedReturnDate); err != nil {
		return models.Loan{}, ErrInvalidDate
	}
	now := l.now().UTC()
	loan.CreatedAt = now
	loan.UpdatedAt = now
	return loan, nil
}

func (l *Ledger) Get(id string) (models.Loan, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if i := l.indexOf(id); i >= 0 {
		return l.loans[i].Clone(), true
	}
	return models.Loan{}, false
}

func (l *Ledger) List() []models.Loan {
	return l.where(func(models.Loan) bool { return true })
}

// Active 未归还
func (l *Ledger) Active() []models.Loan {
	return l.where(models.Loan.IsActive)
}

// Overdue 未归还且预计归还日早于今天
func (l *Ledger) Overdue() []models.Loan {
	today := l.Today()
	return l.where(func(ln models.Loan) bool { return ln.IsOverdue(today) })
}

func (l *Ledger) Returned() []models.Loan {
	return l.where(func(ln models.Loan) bool { return !ln.IsActive() })
}

func (l *Ledger) ForMaterial(materialID string) []models.Loan {
	return l.where(func(ln models.Loan) bool { return ln.MaterialID == materialID })
}

func (l *Ledger) where(keep func(models.Loan) bool) []models.Loan {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]models.Loan, 0, len(l.loans))
	for _, ln := range l.loans {
		if keep(ln) {
			out = append(out, ln.Clone())
		}
	}
	return out
}

func (l *Ledger) Delete(ctx context.Context, id string) bool {
	l.mu.Lock()
	i := l.indexOf(id)
	if i < 0 {
		l.mu.Unlock()
		return false
	}
	l.loans = append(l.loans[:i], l.loans[i+1:]...)
	l.mirror.deleteLoan(ctx, id)
	l.mu.Unlock()

	l.hub.Publish(LoanDeleted, id)
	return true
}

// MaterialUpdater 把归还结果写回物资
type MaterialUpdater func(materialID string, patch models.MaterialPatch)

// ReturnMaterial 以今天和给定状况结束借用，再通过 update 回写物资：
// 状况、借出件数减去本次数量（不低于 0）、状态改为 available。
// 借用不存在返回 ErrLoanNotFound；已归还返回 ErrLoanAlreadyReturned，不会重复扣减；
// snapshot 里找不到物资时借用仍然结束，返回 ErrMaterialNotFound。
func (l *Ledger) ReturnMaterial(ctx context.Context, loanID string, cond models.MaterialCondition, snapshot []models.Material, update MaterialUpdater) error {
	loan, err := l.close(loanID, cond, func(ln models.Loan) { l.mirror.updateLoan(ctx, ln) })
	if err != nil {
		return err
	}
	return applyReturn(loan, cond, snapshot, update)
}

// close 标记归还，write 在锁内调用，可为 nil
func (l *Ledger) close(loanID string, cond models.MaterialCondition, write func(ln models.Loan)) (models.Loan, error) {
	l.mu.Lock()
	i := l.indexOf(loanID)
	if i < 0 {
		l.mu.Unlock()
		return models.Loan{}, ErrLoanNotFound
	}
	// 幂等：已归还直接返回
	if !l.loans[i].IsActive() {
		l.mu.Unlock()
		return models.Loan{}, ErrLoanAlreadyReturned
	}
	today := l.Today()
	c := cond
	l.loans[i].ActualReturnDate = &today
	l.loans[i].ConditionAtReturn = &c
	l.loans[i].UpdatedAt = l.now().UTC()
	loan := l.loans[i].Clone()
	if write != nil {
		write(loan.Clone())
	}
	l.mu.Unlock()

	l.hub.Publish(LoanReturned, loanID)
	return loan, nil
}

func applyReturn(loan models.Loan, cond models.MaterialCondition, snapshot []models.Material, update MaterialUpdater) error {
	for i := range snapshot {
		if snapshot[i].ID == loan.MaterialID {
			update(snapshot[i].ID, returnPatch(snapshot[i], loan, cond))
			return nil
		}
	}
	return ErrMaterialNotFound
}

// returnPatch 归还时物资的改动
func returnPatch(mat models.Material, loan models.Loan, cond models.MaterialCondition) models.MaterialPatch {
	loaned := mat.LoanedQuantity - loan.Quantity
	if loaned < 0 {
		loaned = 0
	}
	status := models.StatusAvailable
	return models.MaterialPatch{
		Condition:      &cond,
		LoanedQuantity: &loaned,
		Status:         &status,
	}
}
