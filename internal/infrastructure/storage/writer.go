package storage

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"github.com/Kelvintronic/inhabited/internal/domain"
)

const (
	MagicHeader string = `INRP` // 4 байта
	Version1    uint32 = 1

	// ReplayExt - расширение файлов записи.
	ReplayExt = ".inrp.zst"
)

var (
	ErrBadMagic = errors.New("replay: bad magic")
	ErrVersion  = errors.New("replay: unsupported version")
)

// ReplayFileHeader - это точное представление заголовка файла в памяти.
// binary.Write пишет его целиком: тут нет слайсов и строк.
type ReplayFileHeader struct {
	Magic       [4]byte  // 4 байта
	Version     uint32   // 4 байта
	ID          [16]byte // uuid сессии
	Seed        uint64   // 8 байт
	Timestamp   int64    // 8 байт
	StartMap    uint16   // 2 байта
	RecordCount uint32   // 4 байта
}

// RecordHeader - заголовок каждой записи.
type RecordHeader struct {
	Tick     uint32 // 4
	Peer     uint8  // 1
	Event    uint8  // 1
	Channel  uint8  // 1
	FrameLen uint16 // 2
}

type ReplayService struct {
	SaveDir string
}

func NewReplayService(dir string) (*ReplayService, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("replay dir %s: %w", dir, err)
	}
	return &ReplayService{SaveDir: dir}, nil
}

// Save пишет сессию в <id>.inrp.zst и возвращает путь к файлу.
func (s *ReplayService) Save(session *domain.ReplaySession) (string, error) {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	path := filepath.Join(s.SaveDir, session.ID+ReplayExt)

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return "", err
	}
	bw := bufio.NewWriter(enc)
	if err := writeBinary(bw, session); err != nil {
		enc.Close()
		return "", err
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return path, f.Sync()
}

func writeBinary(w io.Writer, s *domain.ReplaySession) error {
	// 1. Глобальный заголовок
	header := ReplayFileHeader{
		Version:     Version1,
		Seed:        s.Seed,
		Timestamp:   s.Timestamp,
		StartMap:    s.StartMap,
		RecordCount: uint32(len(s.Records)),
	}
	copy(header.Magic[:], MagicHeader)
	if id, err := uuid.Parse(s.ID); err == nil {
		header.ID = id
	}

	if err := binary.Write(w, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	// 2. Записи
	for i, rec := range s.Records {
		if len(rec.Frame) > 65535 {
			return fmt.Errorf("record %d: frame too long: %d", i, len(rec.Frame))
		}
		rh := RecordHeader{
			Tick:     rec.Tick,
			Peer:     rec.Peer,
			Event:    uint8(rec.Event),
			Channel:  rec.Channel,
			FrameLen: uint16(len(rec.Frame)),
		}
		if err := binary.Write(w, binary.LittleEndian, &rh); err != nil {
			return err
		}
		if len(rec.Frame) > 0 {
			if _, err := w.Write(rec.Frame); err != nil {
				return err
			}
		}
	}
	return nil
}
