package jobs

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobStatus is the lifecycle state reported by /status.
type JobStatus string

const (
	StatusRunning JobStatus = "running"
	StatusDone    JobStatus = "done"
	StatusError   JobStatus = "error"
)

// JobResult describes the workbook an export produced. Output is the
// server-side path and never leaves the process.
type JobResult struct {
	Mode     string `json:"mode"`
	Rows     int    `json:"rows"`
	Sheet    string `json:"sheet"`
	Output   string `json:"-"`
	Filename string `json:"filename"`
}

// Job tracks one background export. Only ID is safe to read directly;
// everything else goes through Snapshot.
type Job struct {
	ID string

	mu       sync.RWMutex
	status   JobStatus
	logs     []string
	progress int // 0-100
	result   *JobResult
	err      string
	created  time.Time
}

// Snapshot is a copy of a job's state that is safe to hand to encoders.
type Snapshot struct {
	ID        string     `json:"id"`
	Status    JobStatus  `json:"status"`
	Logs      []string   `json:"logs"`
	Progress  int        `json:"progress"`
	Result    *JobResult `json:"result,omitempty"`
	Error     string     `json:"error,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func NewJob() *Job {
	return &Job{
		ID:      uuid.New().String(),
		status:  StatusRunning,
		logs:    []string{},
		created: time.Now(),
	}
}

// appendLog must be called with mu held.
func (j *Job) appendLog(msg string) {
	j.logs = append(j.logs, fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), msg))
}

func (j *Job) Log(msg string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.appendLog(msg)
}

// SetProgress matches calculator.ProgressCallback. An empty msg only moves
// the percentage.
func (j *Job) SetProgress(current, total int, msg string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if total > 0 {
		j.progress = current * 100 / total
	}
	if msg != "" {
		j.appendLog(msg)
	}
}

func (j *Job) Fail(msg string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status = StatusError
	j.err = msg
	j.logs = append(j.logs, "[ERROR] "+msg)
}

func (j *Job) Finish(res *JobResult) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status = StatusDone
	j.result = res
	j.progress = 100
	j.appendLog("Export finished.")
}

func (j *Job) Snapshot() Snapshot {
	j.mu.RLock()
	defer j.mu.RUnlock()
	s := Snapshot{
		ID:        j.ID,
		Status:    j.status,
		Logs:      append([]string(nil), j.logs...),
		Progress:  j.progress,
		Error:     j.err,
		CreatedAt: j.created,
	}
	if s.Logs == nil {
		s.Logs = []string{}
	}
	if j.result != nil {
		r := *j.result
		s.Result = &r
	}
	return s
}

// Store keeps jobs in memory for the lifetime of the process.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

func NewStore() *Store {
	return &Store{jobs: make(map[string]*Job)}
}

func (s *Store) Get(id string) *Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jobs[id]
}

// Start registers a new job and runs fn in its own goroutine. A panic inside
// fn marks the job as failed.
func (s *Store) Start(fn func(*Job) (*JobResult, error)) *Job {
	job := NewJob()
	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				job.Fail(fmt.Sprintf("Panic: %v", r))
			}
		}()
		res, err := fn(job)
		if err != nil {
			job.Fail(err.Error())
			return
		}
		job.Finish(res)
	}()
	return job
}
