package inventory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"equipment_loan_tool/models"
)

type fakeStore struct {
	mu    sync.Mutex
	calls []string
	fail  error

	materials []models.Material
	loans     []models.Loan
	closed    []*models.Material
}

func (f *fakeStore) record(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op)
	return f.fail
}

func (f *fakeStore) ListMaterials(context.Context) ([]models.Material, error) {
	return f.materials, f.record("ListMaterials")
}
func (f *fakeStore) CreateMaterial(context.Context, models.Material) error {
	return f.record("CreateMaterial")
}
func (f *fakeStore) UpdateMaterial(context.Context, models.Material) error {
	return f.record("UpdateMaterial")
}
func (f *fakeStore) DeleteMaterial(context.Context, string) error { return f.record("DeleteMaterial") }
func (f *fakeStore) ListLoans(context.Context) ([]models.Loan, error) {
	return f.loans, f.record("ListLoans")
}
func (f *fakeStore) CreateLoan(context.Context, models.Loan) error { return f.record("CreateLoan") }
func (f *fakeStore) UpdateLoan(context.Context, models.Loan) error { return f.record("UpdateLoan") }
func (f *fakeStore) DeleteLoan(context.Context, string) error      { return f.record("DeleteLoan") }
func (f *fakeStore) OpenLoan(context.Context, models.Loan, models.Material) error {
	return f.record("OpenLoan")
}
func (f *fakeStore) CloseLoan(_ context.Context, _ models.Loan, m *models.Material) error {
	f.mu.Lock()
	f.closed = append(f.closed, m)
	f.mu.Unlock()
	return f.record("CloseLoan")
}

func (f *fakeStore) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.calls...)
}

var ctx = context.Background()

func fixedDay(y int, m time.Month, d int) func() time.Time {
	return func() time.Time { return time.Date(y, m, d, 10, 0, 0, 0, time.UTC) }
}

func newFixture(t *testing.T, policy ReturnPolicy) (*Desk, *fakeStore) {
	t.Helper()
	fs := &fakeStore{}
	mirror := NewMirror(fs, nil, time.Second)
	hub := NewHub()
	reg := NewRegistry(mirror, hub)
	led := NewLedger(mirror, hub)
	led.SetClock(fixedDay(2025, time.June, 15))
	return NewDesk(reg, led, mirror, policy), fs
}

func material(name, category string, qty int) models.Material {
	return models.Material{
		Name:      name,
		Category:  category,
		Location:  "Limoges",
		Status:    models.StatusAvailable,
		Condition: models.ConditionGood,
		Quantity:  qty,
	}
}

func TestRegistryAddAssignsUniqueIDs(t *testing.T) {
	reg := NewRegistry(nil, nil)
	a := reg.Add(ctx, material("A", "Eau Libre", 1))
	b := reg.Add(ctx, material("B", "Eau Libre", 1))
	if a.ID == "" || b.ID == "" || a.ID == b.ID {
		t.Fatalf("ids not unique: %q %q", a.ID, b.ID)
	}
	list := reg.List()
	if len(list) != 2 || list[0].Name != "A" || list[1].Name != "B" {
		t.Fatalf("unexpected order: %+v", list)
	}
}

func TestRegistryUpdate(t *testing.T) {
	reg := NewRegistry(nil, nil)
	m := reg.Add(ctx, material("Bouées", "Eau Libre", 6))

	loc := "Bordeaux"
	got, ok := reg.Update(ctx, m.ID, models.MaterialPatch{Location: &loc})
	if !ok {
		t.Fatalf("Update() ok = false")
	}
	if got.Location != "Bordeaux" || got.Name != "Bouées" || got.Quantity != 6 {
		t.Fatalf("shallow merge failed: %+v", got)
	}

	before := reg.List()
	if _, ok := reg.Update(ctx, "missing", models.MaterialPatch{Location: &loc}); ok {
		t.Fatalf("Update(missing) ok = true")
	}
	after := reg.List()
	if len(before) != len(after) || before[0].Location != after[0].Location {
		t.Fatalf("update of missing id changed state")
	}
}

func TestRegistryDelete(t *testing.T) {
	reg := NewRegistry(nil, nil)
	a := reg.Add(ctx, material("A", "Autre", 1))
	reg.Add(ctx, material("B", "Autre", 1))
	if !reg.Delete(ctx, a.ID) {
		t.Fatalf("Delete() = false")
	}
	if _, ok := reg.Get(a.ID); ok {
		t.Fatalf("material still present after delete")
	}
	if reg.Delete(ctx, a.ID) {
		t.Fatalf("second Delete() = true")
	}
	if reg.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", reg.Len())
	}
}

func TestRegistryFilter(t *testing.T) {
	reg := NewRegistry(nil, nil)
	chrono := material("Chrono à Bande", "Eau Libre", 1)
	pc := material("PC Bureau", "Informatique", 1)
	pc.Brand = "ASUS"
	pc.Location = "Bordeaux"
	talkies := material("Talkies Walkies", "Eau Libre", 12)
	reg.Add(ctx, chrono)
	reg.Add(ctx, pc)
	reg.Add(ctx, talkies)

	tests := []struct {
		name     string
		category string
		term     string
		want     []string
	}{
		{"all no term", models.CategoryAll, "", []string{"Chrono à Bande", "PC Bureau", "Talkies Walkies"}},
		{"category only", "Eau Libre", "", []string{"Chrono à Bande", "Talkies Walkies"}},
		{"brand case insensitive", models.CategoryAll, "asus", []string{"PC Bureau"}},
		{"location", models.CategoryAll, "LIMO", []string{"Chrono à Bande", "Talkies Walkies"}},
		{"category and term", "Eau Libre", "talk", []string{"Talkies Walkies"}},
		{"no match", "Informatique", "talk", nil},
		{"unknown category", "Water Polo", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := reg.Filter(tt.category, tt.term)
			if len(got) != len(tt.want) {
				t.Fatalf("Filter() returned %d items, want %d", len(got), len(tt.want))
			}
			for i, m := range got {
				if m.Name != tt.want[i] {
					t.Errorf("item %d = %q, want %q", i, m.Name, tt.want[i])
				}
			}
		})
	}
}

func TestRegistryStats(t *testing.T) {
	reg := NewRegistry(nil, nil)
	a := material("A", "Autre", 6)
	a.LoanedQuantity = 2
	b := material("B", "Autre", 12)
	b.LoanedQuantity = 12
	reg.Add(ctx, a)
	reg.Add(ctx, b)

	s := reg.Stats()
	if s.Total != 18 || s.Loaned != 14 || s.Available != 4 {
		t.Fatalf("Stats() = %+v", s)
	}
}

func TestLedgerCreateDefaults(t *testing.T) {
	led := NewLedger(nil, nil)
	led.SetClock(fixedDay(2025, time.June, 15))

	l, err := led.Create(ctx, models.Loan{MaterialID: "m1", Quantity: 1, BorrowerName: "Club"})
	if err != nil {
		t.Fatalf("Create() err = %v", err)
	}
	if l.ID == "" {
		t.Fatalf("id not assigned")
	}
	if l.LoanDate != "2025-06-15" || l.ExpectedReturnDate != "2025-07-15" {
		t.Fatalf("dates = %s / %s", l.LoanDate, l.ExpectedReturnDate)
	}

	if _, err := led.Create(ctx, models.Loan{MaterialID: "m1", Quantity: 1, LoanDate: "15/06/2025"}); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("bad date err = %v", err)
	}
}

func TestLedgerActiveAndOverdue(t *testing.T) {
	led := NewLedger(nil, nil)
	led.SetClock(fixedDay(2025, time.June, 15))
	past := "2025-06-10"
	led.Load([]models.Loan{
		{ID: "L1", MaterialID: "m", Quantity: 1, LoanDate: "2025-06-01", ExpectedReturnDate: "2025-06-10"},
		{ID: "L2", MaterialID: "m", Quantity: 1, LoanDate: "2025-06-01", ExpectedReturnDate: "2025-06-20"},
		{ID: "L3", MaterialID: "m", Quantity: 1, LoanDate: "2025-06-01", ExpectedReturnDate: "2025-06-01", ActualReturnDate: &past},
		{ID: "L4", MaterialID: "m", Quantity: 1, LoanDate: "2025-06-01", ExpectedReturnDate: "2025-06-15"},
	})

	active := led.Active()
	if len(active) != 3 {
		t.Fatalf("Active() = %d loans, want 3", len(active))
	}
	overdue := led.Overdue()
	if len(overdue) != 1 || overdue[0].ID != "L1" {
		t.Fatalf("Overdue() = %+v, want only L1", overdue)
	}
	if got := led.Returned(); len(got) != 1 || got[0].ID != "L3" {
		t.Fatalf("Returned() = %+v", got)
	}
}

func TestReturnMaterialWorkflow(t *testing.T) {
	led := NewLedger(nil, nil)
	led.SetClock(fixedDay(2025, time.June, 15))
	led.Load([]models.Loan{{ID: "L1", MaterialID: "m1", Quantity: 4, LoanDate: "2025-06-01", ExpectedReturnDate: "2025-07-01", ConditionAtLoan: models.ConditionGood}})
	snapshot := []models.Material{{ID: "m1", Quantity: 6, LoanedQuantity: 6, Status: models.StatusLoaned, Condition: models.ConditionGood}}

	var gotID string
	var gotPatch models.MaterialPatch
	calls := 0
	update := func(id string, p models.MaterialPatch) {
		calls++
		gotID, gotPatch = id, p
	}

	if err := led.ReturnMaterial(ctx, "L1", models.ConditionPoor, snapshot, update); err != nil {
		t.Fatalf("ReturnMaterial() err = %v", err)
	}
	if calls != 1 || gotID != "m1" {
		t.Fatalf("update called %d times for %q", calls, gotID)
	}
	if *gotPatch.LoanedQuantity != 2 || *gotPatch.Status != models.StatusAvailable || *gotPatch.Condition != models.ConditionPoor {
		t.Fatalf("unexpected patch: loaned=%d status=%s cond=%s", *gotPatch.LoanedQuantity, *gotPatch.Status, *gotPatch.Condition)
	}
	l, _ := led.Get("L1")
	if l.ActualReturnDate == nil || *l.ActualReturnDate != "2025-06-15" || *l.ConditionAtReturn != models.ConditionPoor {
		t.Fatalf("loan not closed: %+v", l)
	}

	// 第二次归还不得再次扣减
	if err := led.ReturnMaterial(ctx, "L1", models.ConditionPoor, snapshot, update); !errors.Is(err, ErrLoanAlreadyReturned) {
		t.Fatalf("second return err = %v", err)
	}
	if calls != 1 {
		t.Fatalf("update called again on second return")
	}
}

func TestReturnMaterialEdgeCases(t *testing.T) {
	led := NewLedger(nil, nil)
	led.SetClock(fixedDay(2025, time.June, 15))
	led.Load([]models.Loan{
		{ID: "L1", MaterialID: "gone", Quantity: 1, LoanDate: "2025-06-01", ExpectedReturnDate: "2025-07-01"},
		{ID: "L2", MaterialID: "m1", Quantity: 5, LoanDate: "2025-06-01", ExpectedReturnDate: "2025-07-01"},
	})
	snapshot := []models.Material{{ID: "m1", Quantity: 6, LoanedQuantity: 2}}

	called := false
	noop := func(string, models.MaterialPatch) { called = true }

	if err := led.ReturnMaterial(ctx, "nope", models.ConditionGood, snapshot, noop); !errors.Is(err, ErrLoanNotFound) {
		t.Fatalf("unknown loan err = %v", err)
	}
	if called || len(led.Active()) != 2 {
		t.Fatalf("unknown loan changed state")
	}

	if err := led.ReturnMaterial(ctx, "L1", models.ConditionGood, snapshot, noop); !errors.Is(err, ErrMaterialNotFound) {
		t.Fatalf("missing material err = %v", err)
	}
	if called {
		t.Fatalf("update called for missing material")
	}
	if l, _ := led.Get("L1"); l.IsActive() {
		t.Fatalf("loan should be closed even when material is missing")
	}

	var loaned int
	err := led.ReturnMaterial(ctx, "L2", models.ConditionGood, snapshot, func(_ string, p models.MaterialPatch) {
		loaned = *p.LoanedQuantity
	})
	if err != nil || loaned != 0 {
		t.Fatalf("loanedQuantity = %d (err %v), want floor at 0", loaned, err)
	}
}

func TestDeskLendAndReturn(t *testing.T) {
	desk, fs := newFixture(t, ReturnAlwaysAvailable)
	m1 := desk.Registry().Add(ctx, material("Bouées Directionnelles", "Eau Libre", 6))

	loan, mat, err := desk.Lend(ctx, models.Loan{MaterialID: m1.ID, Quantity: 6, BorrowerName: "Club Limoges"})
	if err != nil {
		t.Fatalf("Lend() err = %v", err)
	}
	if mat.LoanedQuantity != 6 || mat.Status != models.StatusLoaned {
		t.Fatalf("after lend: loaned=%d status=%s", mat.LoanedQuantity, mat.Status)
	}
	if loan.ConditionAtLoan != models.ConditionGood || loan.ExpectedReturnDate != "2025-07-15" {
		t.Fatalf("loan snapshot = %+v", loan)
	}

	if _, _, err := desk.Lend(ctx, models.Loan{MaterialID: m1.ID, Quantity: 1}); !errors.Is(err, ErrInsufficientQuantity) {
		t.Fatalf("over-lend err = %v", err)
	}

	_, updated, err := desk.Return(ctx, loan.ID, models.ConditionExcellent)
	if err != nil {
		t.Fatalf("Return() err = %v", err)
	}
	if updated == nil || updated.LoanedQuantity != 0 || updated.Status != models.StatusAvailable || updated.Condition != models.ConditionExcellent {
		t.Fatalf("after return: %+v", updated)
	}

	if _, _, err := desk.Return(ctx, loan.ID, models.ConditionPoor); !errors.Is(err, ErrLoanAlreadyReturned) {
		t.Fatalf("double return err = %v", err)
	}
	got, _ := desk.Registry().Get(m1.ID)
	if got.LoanedQuantity != 0 || got.Condition != models.ConditionExcellent {
		t.Fatalf("double return changed material: %+v", got)
	}

	want := []string{"CreateMaterial", "OpenLoan", "CloseLoan"}
	calls := fs.Calls()
	if len(calls) != len(want) {
		t.Fatalf("store calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("store calls = %v, want %v", calls, want)
		}
	}
}

func TestDeskLendPartialKeepsAvailable(t *testing.T) {
	desk, _ := newFixture(t, ReturnAlwaysAvailable)
	m := desk.Registry().Add(ctx, material("Talkies Walkies", "Eau Libre", 12))

	_, mat, err := desk.Lend(ctx, models.Loan{MaterialID: m.ID, Quantity: 5})
	if err != nil {
		t.Fatalf("Lend() err = %v", err)
	}
	if mat.LoanedQuantity != 5 || mat.Status != models.StatusAvailable {
		t.Fatalf("after partial lend: %+v", mat)
	}
	if d := desk.Dashboard(); d.Total != 12 || d.Loaned != 5 || d.Available != 7 || d.ActiveLoans != 1 {
		t.Fatalf("Dashboard() = %+v", d)
	}
}

func TestDeskLendRejects(t *testing.T) {
	desk, _ := newFixture(t, ReturnAlwaysAvailable)
	lost := material("Chrono", "Eau Libre", 1)
	lost.Status = models.StatusLost
	m := desk.Registry().Add(ctx, lost)

	tests := []struct {
		name string
		in   models.Loan
		want error
	}{
		{"zero quantity", models.Loan{MaterialID: m.ID, Quantity: 0}, ErrInvalidQuantity},
		{"unknown material", models.Loan{MaterialID: "nope", Quantity: 1}, ErrMaterialNotFound},
		{"lost material", models.Loan{MaterialID: m.ID, Quantity: 1}, ErrMaterialUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := desk.Lend(ctx, tt.in); !errors.Is(err, tt.want) {
				t.Fatalf("Lend() err = %v, want %v", err, tt.want)
			}
		})
	}
	if n := len(desk.Ledger().List()); n != 0 {
		t.Fatalf("rejected lends created %d loans", n)
	}
}

func TestDeskReturnStatusPolicy(t *testing.T) {
	tests := []struct {
		name   string
		policy ReturnPolicy
		want   models.MaterialStatus
	}{
		{"always available", ReturnAlwaysAvailable, models.StatusAvailable},
		{"derive", ReturnDerive, models.StatusLoaned},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desk, _ := newFixture(t, tt.policy)
			m := desk.Registry().Add(ctx, material("Bouées", "Eau Libre", 6))
			first, _, _ := desk.Lend(ctx, models.Loan{MaterialID: m.ID, Quantity: 3})
			desk.Lend(ctx, models.Loan{MaterialID: m.ID, Quantity: 3})

			// 三件报损，库存缩减为 3
			qty := 3
			desk.Registry().Update(ctx, m.ID, models.MaterialPatch{Quantity: &qty})

			_, mat, err := desk.Return(ctx, first.ID, models.ConditionGood)
			if err != nil {
				t.Fatalf("Return() err = %v", err)
			}
			if mat.LoanedQuantity != 3 || mat.Status != tt.want {
				t.Fatalf("after return: loaned=%d status=%s, want status %s", mat.LoanedQuantity, mat.Status, tt.want)
			}
		})
	}
}

func TestDeskReturnMissingMaterial(t *testing.T) {
	desk, fs := newFixture(t, ReturnAlwaysAvailable)
	m := desk.Registry().Add(ctx, material("PC", "Informatique", 1))
	loan, _, _ := desk.Lend(ctx, models.Loan{MaterialID: m.ID, Quantity: 1})
	desk.Registry().Delete(ctx, m.ID)

	closed, updated, err := desk.Return(ctx, loan.ID, models.ConditionGood)
	if err != nil {
		t.Fatalf("Return() err = %v", err)
	}
	if updated != nil || closed.IsActive() {
		t.Fatalf("expected closed loan without material update")
	}
	if len(fs.closed) != 1 || fs.closed[0] != nil {
		t.Fatalf("CloseLoan should be mirrored without material")
	}
}

func TestMirrorSwallowsStoreErrors(t *testing.T) {
	fs := &fakeStore{fail: errors.New("boom")}
	reg := NewRegistry(NewMirror(fs, nil, time.Second), nil)
	m := reg.Add(ctx, material("A", "Autre", 1))
	if _, ok := reg.Get(m.ID); !ok {
		t.Fatalf("local add should survive a failing store")
	}
	if calls := fs.Calls(); len(calls) != 1 || calls[0] != "CreateMaterial" {
		t.Fatalf("store calls = %v", calls)
	}
}

func TestMirrorHydrate(t *testing.T) {
	fs := &fakeStore{
		materials: []models.Material{{ID: "1", Name: "Chrono", Quantity: 1}},
		loans:     []models.Loan{{ID: "L1", MaterialID: "1", Quantity: 1}},
	}
	mirror := NewMirror(fs, nil, time.Second)
	reg := NewRegistry(mirror, nil)
	led := NewLedger(mirror, nil)
	if err := mirror.Hydrate(ctx, reg, led); err != nil {
		t.Fatalf("Hydrate() err = %v", err)
	}
	if reg.Len() != 1 || len(led.List()) != 1 {
		t.Fatalf("hydrate loaded %d materials, %d loans", reg.Len(), len(led.List()))
	}

	var nilMirror *Mirror
	if err := nilMirror.Hydrate(ctx, reg, led); err != nil {
		t.Fatalf("nil mirror Hydrate() err = %v", err)
	}
}

func TestHubPublishesChanges(t *testing.T) {
	hub := NewHub()
	var got []EventType
	hub.Subscribe(func(e Event) { got = append(got, e.Type) })
	reg := NewRegistry(nil, hub)
	m := reg.Add(ctx, material("A", "Autre", 1))
	name := "B"
	reg.Update(ctx, m.ID, models.MaterialPatch{Name: &name})
	reg.Delete(ctx, m.ID)

	want := []EventType{MaterialCreated, MaterialUpdated, MaterialDeleted}
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events = %v, want %v", got, want)
		}
	}
}

func TestSeed(t *testing.T) {
	reg := NewRegistry(nil, nil)
	if n := Seed(ctx, reg); n != 4 {
		t.Fatalf("Seed() = %d, want 4", n)
	}
	if n := Seed(ctx, reg); n != 0 {
		t.Fatalf("second Seed() = %d, want 0", n)
	}
	if s := reg.Stats(); s.Total != 20 {
		t.Fatalf("seeded units = %d, want 20", s.Total)
	}
}
