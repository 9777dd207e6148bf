package api

import (
	"coachline/fitness-api/internal/domain"
	"coachline/fitness-api/internal/service"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type fakeProgression struct {
	result service.AdvanceResult
	calls  []service.AdvanceRequest
}

func (f *fakeProgression) Advance(_ context.Context, req service.AdvanceRequest) service.AdvanceResult {
	f.calls = append(f.calls, req)
	return f.result
}

// fakeRoster answers EnsureManagesClient; every other TrainerService
// method panics through the nil embedded interface.
type fakeRoster struct {
	service.TrainerService
	managed map[primitive.ObjectID]primitive.ObjectID // client -> trainer
}

func (f *fakeRoster) EnsureManagesClient(_ context.Context, trainerID, clientID primitive.ObjectID) error {
	owner, ok := f.managed[clientID]
	if !ok {
		return service.ErrClientNotFound
	}
	if owner != trainerID {
		return service.ErrClientNotManaged
	}
	return nil
}

func progressionRouter(progression *fakeProgression, roster *fakeRoster) *gin.Engine {
	h := NewProgressionHandler(progression, roster, zap.NewNop())
	r := gin.New()
	auth := AuthMiddleware(testSecret)
	r.POST("/trainer/progress/complete", auth, RoleMiddleware(domain.RoleTrainer), h.TrainerCompleteDay)
	r.POST("/client/progress/complete", auth, RoleMiddleware(domain.RoleClient), h.ClientCompleteDay)
	return r
}

func decodeAdvance(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode %s: %v", body, err)
	}
	return out
}

func TestWriteAdvanceResult(t *testing.T) {
	assignmentID := primitive.NewObjectID()
	tests := []struct {
		name       string
		result     service.AdvanceResult
		wantStatus int
		check      func(t *testing.T, body map[string]any)
	}{
		{
			name:       "no active assignment",
			result:     &service.Failure{Reason: service.ReasonNoActiveAssignment, Message: "no active program assignment"},
			wantStatus: http.StatusNotFound,
			check: func(t *testing.T, body map[string]any) {
				if body["status"] != "error" || body["error"] != "no_active_assignment" {
					t.Errorf("body = %v", body)
				}
			},
		},
		{
			name:       "internal failure hides details",
			result:     &service.Failure{Reason: service.ReasonInternal, Message: "insert: connection reset", Err: errors.New("boom")},
			wantStatus: http.StatusInternalServerError,
			check: func(t *testing.T, body map[string]any) {
				if body["message"] != "failed to advance program" {
					t.Errorf("message = %v, want generic text", body["message"])
				}
			},
		},
		{
			name:       "multiple active",
			result:     &service.Failure{Reason: service.ReasonMultipleActive, Message: "2 active assignments"},
			wantStatus: http.StatusInternalServerError,
			check: func(t *testing.T, body map[string]any) {
				if body["error"] != "internal" || body["message"] != "failed to advance program" {
					t.Errorf("body = %v, want the reason collapsed to internal", body)
				}
			},
		},
		{
			name:       "day already completed",
			result:     &service.DayAlreadyCompleted{ProgramAssignmentID: assignmentID, Current: domain.Position{WeekIndex: 0, DayIndex: 1}, Message: "already"},
			wantStatus: http.StatusConflict,
			check: func(t *testing.T, body map[string]any) {
				if body["status"] != "already_completed" || body["currentDayIndex"] != float64(1) {
					t.Errorf("body = %v", body)
				}
				if _, ok := body["isCompleted"]; ok {
					t.Error("isCompleted should be omitted")
				}
			},
		},
		{
			name:       "program completed",
			result:     &service.ProgramCompleted{ProgramAssignmentID: assignmentID, Current: domain.Position{WeekIndex: 1, DayIndex: 1}, Message: "done"},
			wantStatus: http.StatusConflict,
			check: func(t *testing.T, body map[string]any) {
				if body["status"] != "completed" || body["isCompleted"] != true {
					t.Errorf("body = %v", body)
				}
			},
		},
		{
			name: "advanced",
			result: &service.Advanced{
				ProgramAssignmentID: assignmentID,
				ProgramID:           primitive.NewObjectID(),
				ProgramName:         "Base Builder",
				Completed:           domain.Position{WeekIndex: 0, DayIndex: 2},
				Current:             domain.Position{WeekIndex: 1, DayIndex: 0},
				CompletionID:        primitive.NewObjectID(),
			},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				if body["status"] != "advanced" || body["programAssignmentId"] != assignmentID.Hex() {
					t.Errorf("body = %v", body)
				}
				// Zero indices must still be present.
				if body["currentDayIndex"] != float64(0) || body["completedWeekIndex"] != float64(0) {
					t.Errorf("indices = %v", body)
				}
				if body["isCompleted"] != false {
					t.Errorf("isCompleted = %v, want false", body["isCompleted"])
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clientID := primitive.NewObjectID()
			r := progressionRouter(&fakeProgression{result: tt.result}, &fakeRoster{})
			w := serve(r, http.MethodPost, "/client/progress/complete", signToken(t, clientID, domain.RoleClient, time.Hour), "")

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.check != nil {
				tt.check(t, decodeAdvance(t, w.Body.Bytes()))
			}
		})
	}
}

func TestClientCompleteDay_UsesCallerAsClientAndActor(t *testing.T) {
	clientID := primitive.NewObjectID()
	progression := &fakeProgression{result: &service.Advanced{}}
	r := progressionRouter(progression, &fakeRoster{})

	w := serve(r, http.MethodPost, "/client/progress/complete", signToken(t, clientID, domain.RoleClient, time.Hour), `{"notes":"felt strong"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if len(progression.calls) != 1 {
		t.Fatalf("Advance called %d times", len(progression.calls))
	}
	got := progression.calls[0]
	if got.ClientID != clientID || got.CompletedBy != clientID || got.CompletedByRole != domain.RoleClient || got.Notes != "felt strong" {
		t.Errorf("request = %+v", got)
	}

	if w := serve(r, http.MethodPost, "/client/progress/complete", signToken(t, clientID, domain.RoleClient, time.Hour), `{"notes":`); w.Code != http.StatusBadRequest {
		t.Errorf("malformed body: status = %d, want 400", w.Code)
	}
}

func TestTrainerCompleteDay(t *testing.T) {
	trainerID, clientID, strangerID := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	roster := &fakeRoster{managed: map[primitive.ObjectID]primitive.ObjectID{
		clientID:   trainerID,
		strangerID: primitive.NewObjectID(),
	}}
	progression := &fakeProgression{result: &service.Advanced{}}
	r := progressionRouter(progression, roster)
	token := signToken(t, trainerID, domain.RoleTrainer, time.Hour)

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"missing clientId", `{}`, http.StatusBadRequest},
		{"bad clientId", `{"clientId":"nope"}`, http.StatusBadRequest},
		{"unknown client", `{"clientId":"` + primitive.NewObjectID().Hex() + `"}`, http.StatusNotFound},
		{"another trainer's client", `{"clientId":"` + strangerID.Hex() + `"}`, http.StatusForbidden},
		{"own client", `{"clientId":"` + clientID.Hex() + `"}`, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := serve(r, http.MethodPost, "/trainer/progress/complete", token, tt.body); w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}

	if len(progression.calls) != 1 {
		t.Fatalf("Advance called %d times, want only for the managed client", len(progression.calls))
	}
	got := progression.calls[0]
	if got.ClientID != clientID || got.CompletedBy != trainerID || got.CompletedByRole != domain.RoleTrainer {
		t.Errorf("request = %+v", got)
	}

	clientToken := signToken(t, clientID, domain.RoleClient, time.Hour)
	if w := serve(r, http.MethodPost, "/trainer/progress/complete", clientToken, `{"clientId":"`+clientID.Hex()+`"}`); w.Code != http.StatusForbidden {
		t.Errorf("client on trainer route: status = %d, want 403", w.Code)
	}
}
