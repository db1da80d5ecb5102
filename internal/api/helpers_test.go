package api

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"rdFolio/internal/api/middleware"
	"rdFolio/internal/database"
	"rdFolio/internal/portfolio"
)

type fakeBackend struct {
	experiences []portfolio.Experience
	skills      []portfolio.Skill
	education   []portfolio.Education
	projects    []portfolio.Project
	skillsErr   error
}

func (f *fakeBackend) FetchExperiences(context.Context) ([]portfolio.Experience, error) {
	return f.experiences, nil
}

func (f *fakeBackend) FetchSkills(context.Context) ([]portfolio.Skill, error) {
	if f.skillsErr != nil {
		return nil, f.skillsErr
	}
	return f.skills, nil
}

func (f *fakeBackend) FetchEducation(context.Context) ([]portfolio.Education, error) {
	return f.education, nil
}

func (f *fakeBackend) FetchProjects(context.Context) ([]portfolio.Project, error) {
	return f.projects, nil
}

type fakeQueue struct {
	mu    sync.Mutex
	tasks []*asynq.Task
	err   error
}

func (q *fakeQueue) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return nil, q.err
	}
	q.tasks = append(q.tasks, task)
	return &asynq.TaskInfo{ID: "task-" + task.Type(), Type: task.Type()}, nil
}

type fakeCounter struct {
	mu      sync.Mutex
	counts  map[string]int64
	expires map[string]time.Duration
	err     error
}

func newFakeCounter() *fakeCounter {
	return &fakeCounter{
		counts:  map[string]int64{},
		expires: map[string]time.Duration{},
	}
}

func (f *fakeCounter) Incr(ctx context.Context, key string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	cmd := redis.NewIntCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	f.counts[key]++
	cmd.SetVal(f.counts[key])
	return cmd
}

func (f *fakeCounter) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expires[key] = expiration
	cmd := redis.NewBoolCmd(ctx)
	cmd.SetVal(true)
	return cmd
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestEngine(h Handlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.CorrelationIDMiddleware())
	RegisterRoutes(r, h)
	return r
}
