package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/Kelvintronic/inhabited/internal/agent"
	"github.com/Kelvintronic/inhabited/internal/engine"
	"github.com/Kelvintronic/inhabited/pkg/logger"
)

func init() {
	logger.Init()
}

// wsTransport - клиентский Transport поверх websocket. Пишет только
// горутина бота.
type wsTransport struct {
	conn *websocket.Conn
}

func (t wsTransport) Send(frame []byte) error {
	return t.conn.WriteMessage(websocket.BinaryMessage, frame)
}

func main() {
	url := flag.String("url", "ws://localhost:10515/ws?key=dandelion0.1", "server websocket url with connection key")
	name := flag.String("name", "bot", "player name")
	levelsPath := flag.String("levels", "", "level set file (empty - built-in levels)")
	seed := flag.Uint64("seed", 0, "bot random seed (0 - from time)")
	flag.Parse()

	log := logger.WithComponent("bot").WithFields(logrus.Fields{"url": *url, "name": *name})

	levels, err := engine.LoadLevels(engine.LevelsConfig{Path: *levelsPath})
	if err != nil {
		log.WithError(err).Fatal("Failed to load levels")
	}

	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		log.WithError(err).Fatal("Dial failed")
	}
	defer conn.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// читающая горутина только складывает кадры, разбирает их бот
	inbox := make(chan []byte, 256)
	go func() {
		defer close(inbox)
		for {
			_, frame, err := conn.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.WithError(err).Warn("Read failed")
				}
				return
			}
			select {
			case inbox <- frame:
			case <-ctx.Done():
				return
			}
		}
	}()

	cfg := agent.DefaultConfig()
	cfg.Seed = *seed
	bot := agent.NewBot(*name, levels, wsTransport{conn: conn}, cfg)
	if err := bot.Run(ctx, inbox); err != nil {
		log.WithError(err).Fatal("Bot failed")
	}

	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
