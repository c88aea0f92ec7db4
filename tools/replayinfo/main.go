package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/Kelvintronic/inhabited/internal/core/types"
	"github.com/Kelvintronic/inhabited/internal/domain"
	"github.com/Kelvintronic/inhabited/internal/infrastructure/storage"
	"github.com/Kelvintronic/inhabited/pkg/api"
)

func main() {
	if len(os.Args) < 2 {
		printHelp()
		return
	}

	switch os.Args[1] {
	case "info":
		if len(os.Args) < 3 {
			fmt.Println("Usage: replayinfo info <file>")
			return
		}
		s, err := storage.LoadReplay(os.Args[2])
		if err != nil {
			fmt.Printf("Invalid replay: %v\n", err)
			os.Exit(1)
		}
		printInfo(s)
	case "frames":
		if len(os.Args) < 3 {
			fmt.Println("Usage: replayinfo frames <file> [peer]")
			return
		}
		s, err := storage.LoadReplay(os.Args[2])
		if err != nil {
			fmt.Printf("Invalid replay: %v\n", err)
			os.Exit(1)
		}
		peer := -1
		if len(os.Args) > 3 {
			if peer, err = strconv.Atoi(os.Args[3]); err != nil {
				fmt.Printf("Invalid peer: %v\n", err)
				return
			}
		}
		printFrames(s, peer)
	case "format":
		if len(os.Args) < 3 {
			fmt.Println("Usage: replayinfo format <unix_timestamp>")
			return
		}
		ts, err := strconv.ParseInt(os.Args[2], 10, 64)
		if err != nil {
			fmt.Printf("Invalid timestamp: %v\n", err)
			return
		}
		fmt.Println(time.Unix(ts, 0).Format(time.RFC3339))
	default:
		printHelp()
	}
}

func printInfo(s *domain.ReplaySession) {
	peers := make(map[byte]struct{})
	var packets int
	for _, r := range s.Records {
		peers[r.Peer] = struct{}{}
		if r.Event == domain.ReplayPacket {
			packets++
		}
	}
	fmt.Printf("session:  %s\n", s.ID)
	fmt.Printf("recorded: %s\n", time.Unix(s.Timestamp, 0).Format(time.RFC3339))
	fmt.Printf("seed:     %d\n", s.Seed)
	fmt.Printf("map:      %d\n", s.StartMap)
	fmt.Printf("ticks:    %d (%s)\n", s.Ticks(), time.Duration(s.Ticks())*time.Second/types.LogicFPS)
	fmt.Printf("records:  %d, packets %d, peers %d\n", len(s.Records), packets, len(peers))
}

// printFrames выводит входящие события, peer < 0 - всех пиров.
func printFrames(s *domain.ReplaySession, peer int) {
	for _, r := range s.Records {
		if peer >= 0 && int(r.Peer) != peer {
			continue
		}
		switch r.Event {
		case domain.ReplayConnected:
			fmt.Printf("%6d peer %d connected\n", r.Tick, r.Peer)
		case domain.ReplayDisconnected:
			fmt.Printf("%6d peer %d disconnected\n", r.Tick, r.Peer)
		default:
			h, err := api.PeekHeader(r.Frame)
			if err != nil {
				fmt.Printf("%6d peer %d bad frame: %v\n", r.Tick, r.Peer, err)
				continue
			}
			fmt.Printf("%6d peer %d %s/%d %d bytes\n", r.Tick, r.Peer, h.Type, h.Kind, len(r.Frame))
		}
	}
}

func printHelp() {
	fmt.Println(`Replay Utility - просмотр записей партий
Commands:
  info <file>            - заголовок записи: зерно, карта, длительность
  frames <file> [peer]   - входящие события по тикам
  format <timestamp>     - преобразовать Unix время в читаемый формат`)
}
