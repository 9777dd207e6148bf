// Package seed loads program templates from YAML files and stores them for a
// trainer.
package seed

import (
	"bytes"
	"coachline/fitness-api/internal/domain"
	"coachline/fitness-api/internal/service"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var ErrUnknownExercise = errors.New("template references an exercise that is not defined")

// File is one YAML document: the exercises its programs use and the
// programs themselves.
type File struct {
	Exercises []ExerciseTemplate `yaml:"exercises"`
	Programs  []ProgramTemplate  `yaml:"programs"`
}

type ExerciseTemplate struct {
	Name             string `yaml:"name"`
	Description      string `yaml:"description"`
	MuscleGroup      string `yaml:"muscle_group"`
	ExecutionTechnic string `yaml:"technique"`
	Applicability    string `yaml:"applicability"`
	Difficulty       string `yaml:"difficulty"`
	VideoURL         string `yaml:"video_url"`
}

type ProgramTemplate struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Weeks       []WeekTemplate `yaml:"weeks"`
}

type WeekTemplate struct {
	Days []DayTemplate `yaml:"days"`
}

type DayTemplate struct {
	Name      string             `yaml:"name"`
	Notes     string             `yaml:"notes"`
	Exercises []PrescriptionLine `yaml:"exercises"`
}

// PrescriptionLine names an exercise from the same file and how to perform it.
type PrescriptionLine struct {
	Exercise string `yaml:"exercise"`
	Sets     *int   `yaml:"sets"`
	Reps     string `yaml:"reps"`
	Rest     string `yaml:"rest"`
	Tempo    string `yaml:"tempo"`
	Weight   string `yaml:"weight"`
	Notes    string `yaml:"notes"`
}

// LoadDir reads every *.yaml file in dir, in name order.
func LoadDir(dir string) ([]File, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, fmt.Errorf("template directory not found: %s", dir)
	}

	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("error finding YAML files: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no YAML files found in %s", dir)
	}
	sort.Strings(paths)

	files := make([]File, 0, len(paths))
	for _, path := range paths {
		f, err := LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("error loading %s: %w", path, err)
		}
		files = append(files, *f)
	}
	return files, nil
}

func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a template document and rejects unknown keys.
func Parse(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, err
	}
	return &f, nil
}

// ToProgram builds a domain program, resolving exercise names through ids.
// Names are matched case-insensitively.
func (t ProgramTemplate) ToProgram(ids map[string]primitive.ObjectID) (*domain.Program, error) {
	program := &domain.Program{
		Name:        t.Name,
		Description: t.Description,
		Weeks:       make([]domain.ProgramWeek, len(t.Weeks)),
	}
	for w, week := range t.Weeks {
		days := make([]domain.ProgramDay, len(week.Days))
		for d, day := range week.Days {
			days[d] = domain.ProgramDay{Name: day.Name, Notes: day.Notes}
			for _, line := range day.Exercises {
				id, ok := ids[exerciseKey(line.Exercise)]
				if !ok {
					return nil, fmt.Errorf("%s week %d day %d: %w: %q", t.Name, w, d, ErrUnknownExercise, line.Exercise)
				}
				days[d].Exercises = append(days[d].Exercises, domain.ProgramExercise{
					ExerciseID: id,
					Sets:       line.Sets,
					Reps:       line.Reps,
					Rest:       line.Rest,
					Tempo:      line.Tempo,
					Weight:     line.Weight,
					Notes:      line.Notes,
				})
			}
		}
		program.Weeks[w] = domain.ProgramWeek{Days: days}
	}
	program.NormalizeWeekNumbers()
	return program, program.Validate()
}

func exerciseKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Seeder writes templates into a trainer's library. Exercises and programs
// that already exist by name are reused, so seeding twice is harmless.
type Seeder struct {
	exercises service.ExerciseService
	trainers  service.TrainerService
	logger    *zap.Logger
}

func NewSeeder(exercises service.ExerciseService, trainers service.TrainerService, logger *zap.Logger) *Seeder {
	return &Seeder{exercises: exercises, trainers: trainers, logger: logger}
}

// Result counts what Apply created.
type Result struct {
	ExercisesCreated int
	ProgramsCreated  int
	ProgramsSkipped  int
}

func (s *Seeder) Apply(ctx context.Context, trainerID primitive.ObjectID, files []File) (Result, error) {
	var res Result

	existing, err := s.exercises.GetExercisesByTrainer(ctx, trainerID)
	if err != nil {
		return res, err
	}
	ids := make(map[string]primitive.ObjectID, len(existing))
	for _, e := range existing {
		ids[exerciseKey(e.Name)] = e.ID
	}

	programs, err := s.trainers.ListPrograms(ctx, trainerID)
	if err != nil {
		return res, err
	}
	haveProgram := make(map[string]bool, len(programs))
	for _, p := range programs {
		haveProgram[p.Name] = true
	}

	for _, f := range files {
		for _, et := range f.Exercises {
			if _, ok := ids[exerciseKey(et.Name)]; ok {
				continue
			}
			created, err := s.exercises.CreateExercise(ctx, trainerID, service.ExerciseInput{
				Name:             et.Name,
				Description:      et.Description,
				MuscleGroup:      et.MuscleGroup,
				ExecutionTechnic: et.ExecutionTechnic,
				Applicability:    et.Applicability,
				Difficulty:       et.Difficulty,
				VideoURL:         et.VideoURL,
			})
			if err != nil {
				return res, fmt.Errorf("create exercise %q: %w", et.Name, err)
			}
			ids[exerciseKey(et.Name)] = created.ID
			res.ExercisesCreated++
		}

		for _, pt := range f.Programs {
			if haveProgram[pt.Name] {
				s.logger.Info("Program already exists, skipping", zap.String("program", pt.Name))
				res.ProgramsSkipped++
				continue
			}
			program, err := pt.ToProgram(ids)
			if err != nil {
				return res, err
			}
			if _, err := s.trainers.CreateProgram(ctx, trainerID, program); err != nil {
				return res, fmt.Errorf("create program %q: %w", pt.Name, err)
			}
			haveProgram[pt.Name] = true
			res.ProgramsCreated++
		}
	}
	return res, nil
}
