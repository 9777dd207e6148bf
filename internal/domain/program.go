package domain

import (
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrProgramHasNoWeeks = errors.New("program must have at least one week")
	ErrWeekHasNoDays     = errors.New("every program week must have at least one day")
)

// Program is a multi-week training template built by a trainer. Weeks and
// days are stored in order; their slice positions are the 0-based indices
// used by ProgramAssignment.
type Program struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TrainerID   primitive.ObjectID `bson:"trainerId" json:"trainerId"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Weeks       []ProgramWeek      `bson:"weeks" json:"weeks"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// ProgramWeek groups the days of one training week. Number is a 1-based
// label for display only.
type ProgramWeek struct {
	Number int          `bson:"number" json:"number"`
	Days   []ProgramDay `bson:"days" json:"days"`
}

type ProgramDay struct {
	Name      string            `bson:"name" json:"name"` // e.g. "Upper Body A"
	Notes     string            `bson:"notes,omitempty" json:"notes,omitempty"`
	Exercises []ProgramExercise `bson:"exercises,omitempty" json:"exercises,omitempty"`
}

// ProgramExercise is one prescribed exercise inside a program day.
type ProgramExercise struct {
	ExerciseID primitive.ObjectID `bson:"exerciseId" json:"exerciseId"`
	Sets       *int               `bson:"sets,omitempty" json:"sets,omitempty"`
	Reps       string             `bson:"reps,omitempty" json:"reps,omitempty"` // "8-12", "AMRAP"
	Rest       string             `bson:"rest,omitempty" json:"rest,omitempty"`
	Tempo      string             `bson:"tempo,omitempty" json:"tempo,omitempty"`
	Weight     string             `bson:"weight,omitempty" json:"weight,omitempty"`
	Notes      string             `bson:"notes,omitempty" json:"notes,omitempty"`
}

// Validate checks the structural rules every stored program must satisfy.
func (p *Program) Validate() error {
	if len(p.Weeks) == 0 {
		return ErrProgramHasNoWeeks
	}
	for i, w := range p.Weeks {
		if len(w.Days) == 0 {
			return fmt.Errorf("week %d: %w", i, ErrWeekHasNoDays)
		}
	}
	return nil
}

// NormalizeWeekNumbers sets Number to the 1-based position of each week.
func (p *Program) NormalizeWeekNumbers() {
	for i := range p.Weeks {
		p.Weeks[i].Number = i + 1
	}
}

// DayAt returns the day at a position, or nil if the position is outside the program.
func (p *Program) DayAt(pos Position) *ProgramDay {
	if pos.WeekIndex < 0 || pos.WeekIndex >= len(p.Weeks) {
		return nil
	}
	days := p.Weeks[pos.WeekIndex].Days
	if pos.DayIndex < 0 || pos.DayIndex >= len(days) {
		return nil
	}
	return &days[pos.DayIndex]
}

// WeekStructure returns the read-only shape of the program.
func (p *Program) WeekStructure() WeekStructure {
	counts := make([]int, len(p.Weeks))
	for i, w := range p.Weeks {
		counts[i] = len(w.Days)
	}
	return WeekStructure{ProgramID: p.ID, DaysPerWeek: counts}
}

// TotalDays is the number of trainable days across all weeks.
func (p *Program) TotalDays() int {
	return p.WeekStructure().TotalDays()
}

// Position addresses one day of a program. Both indices are 0-based.
type Position struct {
	WeekIndex int `json:"weekIndex"`
	DayIndex  int `json:"dayIndex"`
}

// WeekStructure is the ordered day count of every week in a program.
type WeekStructure struct {
	ProgramID   primitive.ObjectID `json:"programId"`
	DaysPerWeek []int              `json:"daysPerWeek"`
}

// Next returns the position following pos. ok is false when pos is the
// last day of the last week.
func (ws WeekStructure) Next(pos Position) (next Position, ok bool) {
	if pos.WeekIndex < len(ws.DaysPerWeek) && pos.DayIndex+1 < ws.DaysPerWeek[pos.WeekIndex] {
		return Position{WeekIndex: pos.WeekIndex, DayIndex: pos.DayIndex + 1}, true
	}
	if pos.WeekIndex+1 < len(ws.DaysPerWeek) {
		return Position{WeekIndex: pos.WeekIndex + 1, DayIndex: 0}, true
	}
	return pos, false
}

// Contains reports whether pos addresses an existing day.
func (ws WeekStructure) Contains(pos Position) bool {
	return pos.WeekIndex >= 0 && pos.WeekIndex < len(ws.DaysPerWeek) &&
		pos.DayIndex >= 0 && pos.DayIndex < ws.DaysPerWeek[pos.WeekIndex]
}

func (ws WeekStructure) TotalDays() int {
	total := 0
	for _, n := range ws.DaysPerWeek {
		total += n
	}
	return total
}

// Ordinal is the 0-based sequence number of pos across the whole program.
func (ws WeekStructure) Ordinal(pos Position) int {
	n := 0
	for w := 0; w < pos.WeekIndex && w < len(ws.DaysPerWeek); w++ {
		n += ws.DaysPerWeek[w]
	}
	return n + pos.DayIndex
}
