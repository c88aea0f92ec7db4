package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Kelvintronic/inhabited/internal/domain"
	"github.com/Kelvintronic/inhabited/internal/infrastructure/storage"
	"github.com/Kelvintronic/inhabited/internal/network"
	"github.com/Kelvintronic/inhabited/internal/systems/search"
	"github.com/Kelvintronic/inhabited/pkg/api"
	"github.com/Kelvintronic/inhabited/pkg/dungeon"
	"github.com/Kelvintronic/inhabited/pkg/logger"
)

const (
	// snapshotEvery - как часто (в тиках) обновляется снимок для /debug.
	snapshotEvery = 15
	// topScores - сколько строк отдаёт /debug/scores.
	topScores = 20
	// resultQueue - итоги карт, ждущие записи в базу.
	resultQueue = 16
)

// PlayerView - игрок в отладочном снимке.
type PlayerView struct {
	api.PlayerState
	Name string `json:"name"`
	Slot int    `json:"slot"`
}

// DebugSnapshot - копия состояния мира для HTTP. Собирается в горутине
// симуляции и дальше только читается.
type DebugSnapshot struct {
	Tick              uint16            `json:"tick"`
	Ticks             uint32            `json:"ticks"`
	Map               uint16            `json:"map"`
	MapName           string            `json:"mapName"`
	Rows              []string          `json:"rows"`
	Players           []PlayerView      `json:"players"`
	Objects           []api.ObjectState `json:"objects"`
	Search            search.Stats      `json:"search"`
	SearchesDone      uint64            `json:"searchesDone"`
	PlacementFailures int               `json:"placementFailures"`
	Network           network.Stats     `json:"network"`
}

// Service связывает транспорт, симуляцию и хранилища. Run крутит
// кадры: забрать события из Hub, отдать их симуляции, выполнить
// накопившиеся тики.
type Service struct {
	cfg   Config
	hub   *network.Hub
	sim   *Simulation
	timer *LogicTimer
	ticks uint32

	replays *storage.ReplayService
	session *domain.ReplaySession

	scores  *storage.ScoreStore
	results chan LevelResult
	wg      sync.WaitGroup

	snapMu   sync.RWMutex
	snapshot DebugSnapshot

	log *logrus.Entry
}

// NewService загружает уровни, открывает хранилища и собирает симуляцию.
func NewService(cfg Config, hub *network.Hub) (*Service, error) {
	levels, err := LoadLevels(cfg.Levels)
	if err != nil {
		return nil, err
	}
	sim, err := NewSimulation(cfg, levels, hub)
	if err != nil {
		return nil, err
	}

	s := &Service{
		cfg: cfg,
		hub: hub,
		sim: sim,
		log: logger.WithComponent("service"),
	}
	s.timer = NewLogicTimer(cfg.Simulation.TickRate, s.step)

	if cfg.Storage.RecordReplays {
		if s.replays, err = storage.NewReplayService(cfg.Storage.ReplayDir); err != nil {
			return nil, err
		}
		s.session = &domain.ReplaySession{
			ID:        uuid.NewString(),
			Seed:      sim.Seed(),
			Timestamp: time.Now().Unix(),
			StartMap:  sim.Map(),
		}
	}

	if cfg.Storage.ScoreDB != "" {
		if s.scores, err = storage.OpenScoreStore(cfg.Storage.ScoreDB); err != nil {
			return nil, fmt.Errorf("open scores: %w", err)
		}
		s.results = make(chan LevelResult, resultQueue)
		sim.SetLevelListener(s.queueResult)
	}

	s.publish()
	return s, nil
}

// LoadLevels - встроенный набор или файл из конфига.
func LoadLevels(cfg LevelsConfig) (*dungeon.LevelSet, error) {
	if cfg.Path == "" {
		return dungeon.Default()
	}
	return dungeon.Load(cfg.Path)
}

func (s *Service) Simulation() *Simulation { return s.sim }

// Run блокируется до отмены ctx. После выхода запись партии сохранена,
// база очков закрыта.
func (s *Service) Run(ctx context.Context) error {
	if s.scores != nil {
		s.wg.Add(1)
		go s.writeScores()
	}

	frame := time.NewTicker(s.timer.Step() / 2)
	defer frame.Stop()
	s.timer.Start(time.Now())

	s.log.WithFields(logrus.Fields{"tick_rate": s.cfg.Simulation.TickRate, "map": s.sim.Map()}).Info("Game loop started")
	for {
		select {
		case <-ctx.Done():
			return s.shutdown()
		case now := <-frame.C:
			s.Frame(now)
		}
	}
}

// Frame - один проход цикла. Вынесен отдельно, чтобы тесты могли
// крутить время вручную.
func (s *Service) Frame(now time.Time) {
	for _, e := range s.hub.Poll() {
		s.record(e)
		s.sim.HandleEvent(e)
	}
	s.timer.Update(now)
}

func (s *Service) step() {
	s.sim.LogicUpdate()
	s.ticks++
	if s.ticks%snapshotEvery == 0 {
		s.publish()
	}
}

func (s *Service) record(e network.Event) {
	if s.session == nil {
		return
	}
	rec := domain.ReplayRecord{Tick: s.ticks, Peer: e.Peer}
	switch e.Kind {
	case network.EventConnected:
		rec.Event = domain.ReplayConnected
	case network.EventDisconnected:
		rec.Event = domain.ReplayDisconnected
	case network.EventPacket:
		header, err := api.PeekHeader(e.Frame)
		if err != nil {
			return
		}
		rec.Event = domain.ReplayPacket
		rec.Channel = uint8(network.ChannelForType(header.Type))
		rec.Frame = append([]byte(nil), e.Frame...)
	}
	s.session.Records = append(s.session.Records, rec)
}

func (s *Service) queueResult(res LevelResult) {
	select {
	case s.results <- res:
	default:
		s.log.WithField("map", res.Map).Warn("Score queue full, level result dropped")
	}
}

// writeScores пишет итоги карт вне горутины симуляции.
func (s *Service) writeScores() {
	defer s.wg.Done()
	for res := range s.results {
		rows := make([]storage.ScoreRow, 0, len(res.Players))
		now := time.Now()
		for _, p := range res.Players {
			rows = append(rows, storage.ScoreRow{
				Map:        res.Map,
				PlayerID:   p.ID,
				Name:       p.Name,
				Score:      p.Score,
				Cash:       p.Cash,
				RecordedAt: now,
			})
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.scores.RecordLevel(ctx, rows); err != nil {
			s.log.WithError(err).WithField("map", res.Map).Error("Failed to record scores")
		}
		cancel()
	}
}

// TopScores - лучшие результаты для /debug/scores. Без базы - пусто.
func (s *Service) TopScores(ctx context.Context) ([]storage.ScoreRow, error) {
	if s.scores == nil {
		return nil, nil
	}
	return s.scores.Top(ctx, topScores)
}

func (s *Service) shutdown() error {
	s.log.Info("Game loop stopping")
	var firstErr error

	if s.results != nil {
		s.sim.SetLevelListener(nil)
		close(s.results)
		s.wg.Wait()
		if err := s.scores.Close(); err != nil {
			firstErr = err
		}
	}

	if s.session != nil && len(s.session.Records) > 0 {
		path, err := s.replays.Save(s.session)
		if err != nil {
			s.log.WithError(err).Error("Failed to save replay")
			if firstErr == nil {
				firstErr = err
			}
		} else {
			s.log.WithFields(logrus.Fields{"path": path, "records": len(s.session.Records)}).Info("Replay saved")
		}
	}
	return firstErr
}

// publish снимает копию состояния. Вызывается только из горутины симуляции.
func (s *Service) publish() {
	snap := DebugSnapshot{
		Tick:              s.sim.Tick(),
		Ticks:             s.ticks,
		Map:               s.sim.Map(),
		Objects:           s.sim.Objects().States(),
		Search:            s.sim.Objects().SearchStats(),
		SearchesDone:      s.sim.Objects().SearchesDone(),
		PlacementFailures: s.sim.PlacementFailures(),
		Network:           s.hub.Stats(),
	}
	if level := s.sim.Level(); level != nil {
		snap.MapName = level.Name
	}
	snap.Rows = dungeon.Render(s.sim.Objects().Grid())
	for _, p := range s.sim.Players().Players() {
		snap.Players = append(snap.Players, PlayerView{
			PlayerState: p.State(p.LastProcessedCommand()),
			Name:        p.Name,
			Slot:        p.Slot(),
		})
	}

	s.snapMu.Lock()
	s.snapshot = snap
	s.snapMu.Unlock()
}

// Snapshot - последний опубликованный снимок. Безопасен из любых горутин.
func (s *Service) Snapshot() DebugSnapshot {
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()
	return s.snapshot
}
