package search

import (
	"iter"

	"github.com/sirupsen/logrus"

	"github.com/Kelvintronic/inhabited/internal/core/types"
	"github.com/Kelvintronic/inhabited/pkg/logger"
)

// Rejected - очередь заданий переполнена.
const Rejected = -1

// Config ограничивает работу планировщика.
type Config struct {
	PathsPerFrame  int     `toml:"paths_per_frame"`
	MaxPendingJobs int     `toml:"max_pending_jobs"`
	MaxPathCost    float64 `toml:"max_path_cost"`
}

func DefaultConfig() Config {
	return Config{
		PathsPerFrame:  100,
		MaxPendingJobs: 500,
		MaxPathCost:    30,
	}
}

// Scheduler выполняет задания по одному и тратит не больше
// PathsPerFrame извлечений из фронта за Tick. Работает в горутине
// симуляции вместе с вызывающими и карту не меняет.
type Scheduler struct {
	cfg  Config
	grid Map

	pending  []*Job
	current  *Search
	finished []*Job

	log *logrus.Entry
}

func NewScheduler(cfg Config) *Scheduler {
	def := DefaultConfig()
	if cfg.PathsPerFrame <= 0 {
		cfg.PathsPerFrame = def.PathsPerFrame
	}
	if cfg.MaxPendingJobs <= 0 {
		cfg.MaxPendingJobs = def.MaxPendingJobs
	}
	if cfg.MaxPathCost <= 0 {
		cfg.MaxPathCost = def.MaxPathCost
	}
	return &Scheduler{cfg: cfg}
}

func (s *Scheduler) logEntry() *logrus.Entry {
	if s.log == nil {
		s.log = logger.WithComponent("search")
	}
	return s.log
}

// Initialise сбрасывает все задания и привязывает планировщик к новой карте.
func (s *Scheduler) Initialise(grid Map) {
	s.Stop()
	s.grid = grid
	if grid != nil {
		s.logEntry().WithFields(logrus.Fields{
			"width":  grid.Width(),
			"height": grid.Height(),
		}).Debug("Path search bound to map")
	}
}

// Stop чистит очереди и отвязывает карту. Выброшенные задания
// отменяются, владельцы перестают их ждать.
func (s *Scheduler) Stop() {
	for _, j := range s.pending {
		j.Cancel()
	}
	if s.current != nil {
		s.current.job.Cancel()
	}
	s.pending = nil
	s.current = nil
	s.finished = nil
	s.grid = nil
}

// AddJob ставит задание в очередь и возвращает её длину. Если в очереди
// уже больше MaxPendingJobs - Rejected.
func (s *Scheduler) AddJob(job *Job) int {
	if len(s.pending) > s.cfg.MaxPendingJobs {
		s.logEntry().WithField("job", job.String()).Warn("Path search queue full, job rejected")
		return Rejected
	}
	job.state = JobPending
	s.pending = append(s.pending, job)
	return len(s.pending)
}

// FindSolution начинает возобновляемый поиск по привязанной карте.
// Свои поиски двигает Tick, вызывающий может шагать поиском сам.
func (s *Scheduler) FindSolution(job *Job) *Search {
	return newSearch(job, s.grid, s.cfg.MaxPathCost)
}

// OutgoingArcs - дуги из node на привязанной карте.
func (s *Scheduler) OutgoingArcs(node types.VectorInt) iter.Seq[Arc] {
	return outgoingArcs(s.grid, node)
}

// Tick тратит бюджет одного кадра. Задания идут строго по порядку
// постановки, остаток бюджета переходит следующему.
func (s *Scheduler) Tick() {
	if s.grid == nil {
		return
	}
	budget := s.cfg.PathsPerFrame
	for budget > 0 {
		if s.current == nil {
			if len(s.pending) == 0 {
				return
			}
			job := s.pending[0]
			s.pending[0] = nil
			s.pending = s.pending[1:]
			if job.cancelled {
				continue
			}
			s.current = s.FindSolution(job)
		}

		budget -= s.current.Step(budget)
		if !s.current.Done() {
			return
		}

		job := s.current.job
		s.current = nil
		if job.cancelled {
			continue
		}
		s.finished = append(s.finished, job)
		s.logEntry().WithFields(logrus.Fields{
			"job":      job.String(),
			"solution": job.HasSolution(),
			"cost":     job.SolutionCost(),
		}).Trace("Path search finished")
	}
}

// QueuedJobCount - ждущие задания плюс текущее.
func (s *Scheduler) QueuedJobCount() int {
	n := len(s.pending)
	if s.current != nil {
		n++
	}
	return n
}

func (s *Scheduler) FinishedJobCount() int { return len(s.finished) }

// DrainFinished отдаёт список завершённых и очищает его.
func (s *Scheduler) DrainFinished() []*Job {
	out := s.finished
	s.finished = nil
	return out
}

// Stats - срез состояния для отладочного HTTP.
type Stats struct {
	Queued   int  `json:"queued"`
	Finished int  `json:"finished"`
	Running  bool `json:"running"`
	Bound    bool `json:"bound"`
}

func (s *Scheduler) Stats() Stats {
	return Stats{
		Queued:   len(s.pending),
		Finished: len(s.finished),
		Running:  s.current != nil,
		Bound:    s.grid != nil,
	}
}
