package engine

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Kelvintronic/inhabited/internal/domain"
	"github.com/Kelvintronic/inhabited/internal/network"
	"github.com/Kelvintronic/inhabited/pkg/api"
	"github.com/Kelvintronic/inhabited/pkg/logger"
)

// discardSender считает исходящие пакеты проигрывания и выбрасывает их.
type discardSender struct {
	sent int
}

func (d *discardSender) SendToAll(api.Packet, network.Channel) { d.sent++ }

func (d *discardSender) SendToPeer(byte, api.Packet, network.Channel) error {
	d.sent++
	return nil
}

// Playback прогоняет записанную партию через новую симуляцию тик за
// тиком и возвращает её в конечном состоянии.
func Playback(ctx context.Context, cfg Config, session *domain.ReplaySession) (*Simulation, error) {
	cfg.Simulation.Seed = session.Seed
	cfg.Simulation.StartMap = int(session.StartMap)

	levels, err := LoadLevels(cfg.Levels)
	if err != nil {
		return nil, err
	}
	out := &discardSender{}
	sim, err := NewSimulation(cfg, levels, out)
	if err != nil {
		return nil, fmt.Errorf("playback: %w", err)
	}

	log := logger.WithComponent("playback").WithField("session", session.ID)
	log.WithField("records", len(session.Records)).Info("Playback started")

	var ticks uint32
	next := 0
	for next < len(session.Records) {
		if ticks%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return sim, err
			}
		}
		for next < len(session.Records) && session.Records[next].Tick <= ticks {
			sim.HandleEvent(replayEvent(session.Records[next]))
			next++
		}
		sim.LogicUpdate()
		ticks++
	}

	log.WithFields(logrus.Fields{
		"ticks":   ticks,
		"map":     sim.Map(),
		"players": sim.Players().Count(),
		"objects": sim.Objects().Count(),
		"sent":    out.sent,
	}).Info("Playback finished")
	return sim, nil
}

// cancelCheckEvery - как часто проигрывание проверяет отмену.
const cancelCheckEvery = 1024

func replayEvent(r domain.ReplayRecord) network.Event {
	e := network.Event{Peer: r.Peer, Frame: r.Frame}
	switch r.Event {
	case domain.ReplayConnected:
		e.Kind = network.EventConnected
	case domain.ReplayDisconnected:
		e.Kind = network.EventDisconnected
	default:
		e.Kind = network.EventPacket
	}
	return e
}
