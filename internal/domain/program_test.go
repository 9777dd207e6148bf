package domain

import (
	"errors"
	"testing"
)

func twoWeekProgram() *Program {
	return &Program{
		Name: "Base Builder",
		Weeks: []ProgramWeek{
			{Days: []ProgramDay{{Name: "A"}, {Name: "B"}, {Name: "C"}}},
			{Days: []ProgramDay{{Name: "D"}, {Name: "E"}}},
		},
	}
}

func TestWeekStructureNext_WalksEveryDayInOrder(t *testing.T) {
	ws := twoWeekProgram().WeekStructure()

	want := []Position{{0, 1}, {0, 2}, {1, 0}, {1, 1}}
	pos := Position{0, 0}
	for i, w := range want {
		next, ok := ws.Next(pos)
		if !ok {
			t.Fatalf("step %d: Next(%+v) reported end of program", i, pos)
		}
		if next != w {
			t.Fatalf("step %d: Next(%+v) = %+v, want %+v", i, pos, next, w)
		}
		pos = next
	}

	last, ok := ws.Next(pos)
	if ok {
		t.Fatalf("Next(%+v) = %+v, want end of program", pos, last)
	}
	if last != pos {
		t.Errorf("end position = %+v, want frozen at %+v", last, pos)
	}
}

func TestWeekStructureNext_SingleDayWeeks(t *testing.T) {
	ws := WeekStructure{DaysPerWeek: []int{1, 1, 1}}

	next, ok := ws.Next(Position{0, 0})
	if !ok || next != (Position{1, 0}) {
		t.Fatalf("Next = %+v/%v, want {1 0}/true", next, ok)
	}
	if _, ok := ws.Next(Position{2, 0}); ok {
		t.Fatal("expected no position after the last single-day week")
	}
}

func TestWeekStructure_OrdinalAndTotals(t *testing.T) {
	ws := twoWeekProgram().WeekStructure()

	if got := ws.TotalDays(); got != 5 {
		t.Errorf("TotalDays = %d, want 5", got)
	}
	if got := ws.Ordinal(Position{1, 1}); got != 4 {
		t.Errorf("Ordinal({1 1}) = %d, want 4", got)
	}
	if !ws.Contains(Position{0, 2}) {
		t.Error("expected {0 2} to be inside the program")
	}
	if ws.Contains(Position{1, 2}) {
		t.Error("expected {1 2} to be outside the program")
	}
}

func TestProgramValidate(t *testing.T) {
	p := &Program{Name: "Empty"}
	if err := p.Validate(); !errors.Is(err, ErrProgramHasNoWeeks) {
		t.Errorf("Validate() = %v, want ErrProgramHasNoWeeks", err)
	}

	p.Weeks = []ProgramWeek{{Days: []ProgramDay{{Name: "A"}}}, {}}
	if err := p.Validate(); !errors.Is(err, ErrWeekHasNoDays) {
		t.Errorf("Validate() = %v, want ErrWeekHasNoDays", err)
	}

	if err := twoWeekProgram().Validate(); err != nil {
		t.Errorf("Validate() on valid program = %v", err)
	}
}

func TestProgramDayAt(t *testing.T) {
	p := twoWeekProgram()
	p.NormalizeWeekNumbers()

	if p.Weeks[1].Number != 2 {
		t.Errorf("Weeks[1].Number = %d, want 2", p.Weeks[1].Number)
	}
	if d := p.DayAt(Position{1, 0}); d == nil || d.Name != "D" {
		t.Errorf("DayAt({1 0}) = %+v, want day D", d)
	}
	if d := p.DayAt(Position{2, 0}); d != nil {
		t.Errorf("DayAt({2 0}) = %+v, want nil", d)
	}
}
