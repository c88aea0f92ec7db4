package storage

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"github.com/Kelvintronic/inhabited/internal/domain"
)

func (s *ReplayService) Load(path string) (*domain.ReplaySession, error) {
	return LoadReplay(path)
}

// LoadReplay читает файл записи без ReplayService (режим проигрывания).
func LoadReplay(path string) (*domain.ReplaySession, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	return readBinary(bufio.NewReader(dec))
}

func readBinary(r io.Reader) (*domain.ReplaySession, error) {
	// 1. Заголовок целиком
	var header ReplayFileHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	if string(header.Magic[:]) != MagicHeader {
		return nil, fmt.Errorf("magic %q: %w", header.Magic[:], ErrBadMagic)
	}
	if header.Version != Version1 {
		return nil, fmt.Errorf("version %d (expected %d): %w", header.Version, Version1, ErrVersion)
	}

	session := &domain.ReplaySession{
		Seed:      header.Seed,
		Timestamp: header.Timestamp,
		StartMap:  header.StartMap,
		Records:   make([]domain.ReplayRecord, 0, header.RecordCount),
	}
	if id := uuid.UUID(header.ID); id != uuid.Nil {
		session.ID = id.String()
	}

	// 2. Записи
	for i := uint32(0); i < header.RecordCount; i++ {
		var rh RecordHeader
		if err := binary.Read(r, binary.LittleEndian, &rh); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		rec := domain.ReplayRecord{
			Tick:    rh.Tick,
			Peer:    rh.Peer,
			Event:   domain.ReplayEvent(rh.Event),
			Channel: rh.Channel,
		}
		if rh.FrameLen > 0 {
			rec.Frame = make([]byte, rh.FrameLen)
			if _, err := io.ReadFull(r, rec.Frame); err != nil {
				return nil, fmt.Errorf("record %d frame: %w", i, err)
			}
		}
		session.Records = append(session.Records, rec)
	}

	return session, nil
}
