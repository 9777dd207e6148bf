package service

import (
	"coachline/fitness-api/internal/domain"
	"coachline/fitness-api/internal/repository"
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memStore is an in-memory stand-in for MongoDB. It enforces the same unique
// constraints as the real indexes: one active assignment per client and one
// completion per (assignment, week, day).
type memStore struct {
	mu          sync.Mutex
	seq         int
	users       map[primitive.ObjectID]domain.User
	exercises   map[primitive.ObjectID]domain.Exercise
	programs    map[primitive.ObjectID]domain.Program
	assignments map[primitive.ObjectID]domain.ProgramAssignment
	completions map[primitive.ObjectID]domain.ProgramDayCompletion
	uploads     map[primitive.ObjectID]domain.Upload

	// test hooks
	activeReadBarrier *sync.WaitGroup // every active lookup waits for the others
	existsAlwaysFalse bool            // simulates losing the check-then-insert race
	insertErr         error
	advanceErr        error
	structureReads    int
}

func newMemStore() *memStore {
	return &memStore{
		users:       map[primitive.ObjectID]domain.User{},
		exercises:   map[primitive.ObjectID]domain.Exercise{},
		programs:    map[primitive.ObjectID]domain.Program{},
		assignments: map[primitive.ObjectID]domain.ProgramAssignment{},
		completions: map[primitive.ObjectID]domain.ProgramDayCompletion{},
		uploads:     map[primitive.ObjectID]domain.Upload{},
	}
}

// tick returns strictly increasing timestamps so "latest" is deterministic.
func (m *memStore) tick() time.Time {
	m.seq++
	return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(m.seq) * time.Second)
}

func (m *memStore) Users() repository.UserRepository                    { return memUsers{m} }
func (m *memStore) Exercises() repository.ExerciseRepository            { return memExercises{m} }
func (m *memStore) Programs() repository.ProgramRepository              { return memPrograms{m} }
func (m *memStore) Assignments() repository.ProgramAssignmentRepository { return memAssignments{m} }
func (m *memStore) Completions() repository.DayCompletionRepository     { return memCompletions{m} }
func (m *memStore) Uploads() repository.UploadRepository                { return memUploads{m} }

// get returns a copy of the stored assignment.
func (m *memStore) get(id primitive.ObjectID) *domain.ProgramAssignment {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.assignments[id]
	return &a
}

func (m *memStore) completionCount(assignmentID primitive.ObjectID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.completions {
		if c.ProgramAssignmentID == assignmentID {
			n++
		}
	}
	return n
}

// --- users ---

type memUsers struct{ m *memStore }

func (r memUsers) Create(_ context.Context, user *domain.User) (primitive.ObjectID, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, u := range r.m.users {
		if u.Email == user.Email {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
	}
	user.ID = primitive.NewObjectID()
	user.CreatedAt = r.m.tick()
	user.UpdatedAt = user.CreatedAt
	r.m.users[user.ID] = *user
	return user.ID, nil
}

func (r memUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, u := range r.m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r memUsers) GetByID(_ context.Context, id primitive.ObjectID) (*domain.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r memUsers) AddClientIDToTrainer(_ context.Context, trainerID, clientID primitive.ObjectID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	t, ok := r.m.users[trainerID]
	if !ok || t.Role != domain.RoleTrainer {
		return repository.ErrNotFound
	}
	for _, id := range t.ClientIDs {
		if id == clientID {
			return nil
		}
	}
	t.ClientIDs = append(t.ClientIDs, clientID)
	r.m.users[trainerID] = t
	return nil
}

func (r memUsers) GetClientsByTrainerID(_ context.Context, trainerID primitive.ObjectID) ([]domain.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	t, ok := r.m.users[trainerID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clients := []domain.User{}
	for _, id := range t.ClientIDs {
		if c, ok := r.m.users[id]; ok {
			clients = append(clients, c)
		}
	}
	return clients, nil
}

func (r memUsers) SetTrainerForClient(_ context.Context, clientID, trainerID primitive.ObjectID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c, ok := r.m.users[clientID]
	if !ok || c.Role != domain.RoleClient {
		return repository.ErrNotFound
	}
	c.TrainerID = &trainerID
	r.m.users[clientID] = c
	return nil
}

// --- exercises ---

type memExercises struct{ m *memStore }

func (r memExercises) Create(_ context.Context, e *domain.Exercise) (primitive.ObjectID, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	e.ID = primitive.NewObjectID()
	e.CreatedAt = r.m.tick()
	e.UpdatedAt = e.CreatedAt
	r.m.exercises[e.ID] = *e
	return e.ID, nil
}

func (r memExercises) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Exercise, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	e, ok := r.m.exercises[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &e, nil
}

func (r memExercises) GetByTrainerID(_ context.Context, trainerID primitive.ObjectID) ([]domain.Exercise, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := []domain.Exercise{}
	for _, e := range r.m.exercises {
		if e.TrainerID == trainerID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r memExercises) CountOwned(_ context.Context, trainerID primitive.ObjectID, ids []primitive.ObjectID) (int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	seen := map[primitive.ObjectID]bool{}
	for _, id := range ids {
		if e, ok := r.m.exercises[id]; ok && e.TrainerID == trainerID {
			seen[id] = true
		}
	}
	return len(seen), nil
}

func (r memExercises) Update(_ context.Context, e *domain.Exercise) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	old, ok := r.m.exercises[e.ID]
	if !ok || old.TrainerID != e.TrainerID {
		return repository.ErrNotFound
	}
	e.UpdatedAt = r.m.tick()
	r.m.exercises[e.ID] = *e
	return nil
}

func (r memExercises) Delete(_ context.Context, id, trainerID primitive.ObjectID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	e, ok := r.m.exercises[id]
	if !ok || e.TrainerID != trainerID {
		return repository.ErrNotFound
	}
	delete(r.m.exercises, id)
	return nil
}

// --- programs ---

type memPrograms struct{ m *memStore }

func (r memPrograms) Create(_ context.Context, p *domain.Program) (primitive.ObjectID, error) {
	if err := p.Validate(); err != nil {
		return primitive.NilObjectID, err
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p.NormalizeWeekNumbers()
	p.ID = primitive.NewObjectID()
	p.CreatedAt = r.m.tick()
	p.UpdatedAt = p.CreatedAt
	r.m.programs[p.ID] = *p
	return p.ID, nil
}

func (r memPrograms) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Program, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p, ok := r.m.programs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r memPrograms) ListByTrainerID(_ context.Context, trainerID primitive.ObjectID) ([]domain.Program, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := []domain.Program{}
	for _, p := range r.m.programs {
		if p.TrainerID == trainerID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r memPrograms) GetWeekStructure(_ context.Context, id primitive.ObjectID) (*domain.WeekStructure, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.structureReads++
	p, ok := r.m.programs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	ws := p.WeekStructure()
	return &ws, nil
}

// --- program assignments ---

type memAssignments struct{ m *memStore }

func (r memAssignments) Create(_ context.Context, a *domain.ProgramAssignment) (primitive.ObjectID, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, existing := range r.m.assignments {
		if existing.ClientID == a.ClientID && existing.Status == domain.AssignmentActive {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
	}
	a.ID = primitive.NewObjectID()
	a.AssignedAt = r.m.tick()
	a.UpdatedAt = a.AssignedAt
	a.Status = domain.AssignmentActive
	a.CurrentWeekIndex, a.CurrentDayIndex, a.IsCompleted = 0, 0, false
	r.m.assignments[a.ID] = *a
	return a.ID, nil
}

// forceInsert stores a as-is, bypassing the one-active rule.
func (m *memStore) forceInsert(a domain.ProgramAssignment) primitive.ObjectID {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = primitive.NewObjectID()
	a.AssignedAt = m.tick()
	m.assignments[a.ID] = a
	return a.ID
}

func (r memAssignments) GetByID(_ context.Context, id primitive.ObjectID) (*domain.ProgramAssignment, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	a, ok := r.m.assignments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (r memAssignments) GetActiveByClientID(_ context.Context, clientID primitive.ObjectID) (*domain.ProgramAssignment, error) {
	r.m.mu.Lock()
	var found []domain.ProgramAssignment
	for _, a := range r.m.assignments {
		if a.ClientID == clientID && a.Status == domain.AssignmentActive {
			found = append(found, a)
		}
	}
	barrier := r.m.activeReadBarrier
	r.m.mu.Unlock()

	if barrier != nil {
		barrier.Done()
		barrier.Wait()
	}

	switch len(found) {
	case 0:
		return nil, repository.ErrNotFound
	case 1:
		return &found[0], nil
	default:
		return nil, repository.ErrMultipleActive
	}
}

func (r memAssignments) GetLatestByClientID(_ context.Context, clientID primitive.ObjectID) (*domain.ProgramAssignment, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var latest *domain.ProgramAssignment
	for _, a := range r.m.assignments {
		if a.ClientID != clientID {
			continue
		}
		if latest == nil || a.AssignedAt.After(latest.AssignedAt) {
			a := a
			latest = &a
		}
	}
	if latest == nil {
		return nil, repository.ErrNotFound
	}
	return latest, nil
}

func (r memAssignments) ListByClientID(_ context.Context, clientID primitive.ObjectID) ([]domain.ProgramAssignment, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := []domain.ProgramAssignment{}
	for _, a := range r.m.assignments {
		if a.ClientID == clientID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AssignedAt.After(out[j].AssignedAt) })
	return out, nil
}

func (r memAssignments) AdvancePosition(_ context.Context, id primitive.ObjectID, from, to domain.Position) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.advanceErr != nil {
		return r.m.advanceErr
	}
	a, ok := r.m.assignments[id]
	if !ok {
		return repository.ErrNotFound
	}
	if a.Status != domain.AssignmentActive || a.IsCompleted || a.Position() != from {
		return repository.ErrConflict
	}
	a.CurrentWeekIndex, a.CurrentDayIndex = to.WeekIndex, to.DayIndex
	a.UpdatedAt = r.m.tick()
	r.m.assignments[id] = a
	return nil
}

func (r memAssignments) MarkCompleted(_ context.Context, id primitive.ObjectID, at domain.Position) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.advanceErr != nil {
		return r.m.advanceErr
	}
	a, ok := r.m.assignments[id]
	if !ok {
		return repository.ErrNotFound
	}
	if a.Status != domain.AssignmentActive || a.IsCompleted || a.Position() != at {
		return repository.ErrConflict
	}
	now := r.m.tick()
	a.IsCompleted = true
	a.Status = domain.AssignmentCompleted
	a.CompletedAt = &now
	a.UpdatedAt = now
	r.m.assignments[id] = a
	return nil
}

func (r memAssignments) Cancel(_ context.Context, id primitive.ObjectID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	a, ok := r.m.assignments[id]
	if !ok {
		return repository.ErrNotFound
	}
	if a.Status != domain.AssignmentActive {
		return repository.ErrConflict
	}
	now := r.m.tick()
	a.Status = domain.AssignmentCancelled
	a.CancelledAt = &now
	a.UpdatedAt = now
	r.m.assignments[id] = a
	return nil
}

// --- day completions ---

type memCompletions struct{ m *memStore }

func (r memCompletions) Exists(_ context.Context, assignmentID primitive.ObjectID, pos domain.Position) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.existsAlwaysFalse {
		return false, nil
	}
	for _, c := range r.m.completions {
		if c.ProgramAssignmentID == assignmentID && c.Position() == pos {
			return true, nil
		}
	}
	return false, nil
}

func (r memCompletions) InsertIfAbsent(_ context.Context, c *domain.ProgramDayCompletion) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.insertErr != nil {
		return false, r.m.insertErr
	}
	for _, existing := range r.m.completions {
		if existing.ProgramAssignmentID == c.ProgramAssignmentID && existing.Position() == c.Position() {
			return false, nil
		}
	}
	c.ID = primitive.NewObjectID()
	if c.CompletedAt.IsZero() {
		c.CompletedAt = r.m.tick()
	}
	r.m.completions[c.ID] = *c
	return true, nil
}

func (r memCompletions) GetByID(_ context.Context, id primitive.ObjectID) (*domain.ProgramDayCompletion, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c, ok := r.m.completions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (r memCompletions) ListByAssignmentID(_ context.Context, assignmentID primitive.ObjectID) ([]domain.ProgramDayCompletion, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := []domain.ProgramDayCompletion{}
	for _, c := range r.m.completions {
		if c.ProgramAssignmentID == assignmentID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].WeekIndex != out[j].WeekIndex {
			return out[i].WeekIndex < out[j].WeekIndex
		}
		return out[i].DayIndex < out[j].DayIndex
	})
	return out, nil
}

func (r memCompletions) SetUpload(_ context.Context, id, uploadID primitive.ObjectID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c, ok := r.m.completions[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.UploadID = &uploadID
	r.m.completions[id] = c
	return nil
}

// --- uploads ---

type memUploads struct{ m *memStore }

func (r memUploads) Create(_ context.Context, u *domain.Upload) (primitive.ObjectID, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, existing := range r.m.uploads {
		if existing.DayCompletionID == u.DayCompletionID {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
	}
	u.ID = primitive.NewObjectID()
	u.UploadedAt = r.m.tick()
	r.m.uploads[u.ID] = *u
	return u.ID, nil
}

func (r memUploads) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Upload, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.uploads[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r memUploads) GetByDayCompletionID(_ context.Context, completionID primitive.ObjectID) (*domain.Upload, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, u := range r.m.uploads {
		if u.DayCompletionID == completionID {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

// --- collaborators ---

type recordingPublisher struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, routingKey string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, routingKey)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.keys...)
}

type fakeStorage struct {
	deleted []string
}

func (s *fakeStorage) GeneratePresignedUploadURL(_ context.Context, objectKey, contentType string, _ time.Duration) (string, error) {
	return "https://storage.test/put/" + objectKey + "?ct=" + contentType, nil
}

func (s *fakeStorage) GeneratePresignedDownloadURL(_ context.Context, objectKey string, _ time.Duration) (string, error) {
	return "https://storage.test/get/" + objectKey, nil
}

func (s *fakeStorage) DeleteObject(_ context.Context, objectKey string) error {
	s.deleted = append(s.deleted, objectKey)
	return nil
}
