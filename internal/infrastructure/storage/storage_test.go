package storage

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"path/filepath"
	"testing"

	"github.com/Kelvintronic/inhabited/internal/domain"
)

func sampleSession() *domain.ReplaySession {
	return &domain.ReplaySession{
		ID:        "6f1c2a4e-9d0b-4c55-8f53-2a8f8f2f6b11",
		Seed:      1234,
		Timestamp: 1700000000,
		StartMap:  2,
		Records: []domain.ReplayRecord{
			{Tick: 0, Peer: 1, Event: domain.ReplayConnected},
			{Tick: 0, Peer: 1, Event: domain.ReplayPacket, Channel: 0, Frame: []byte{6, 1, 3, 0, 'a', 'n', 'n'}},
			{Tick: 7, Peer: 1, Event: domain.ReplayPacket, Channel: 1, Frame: []byte{0, 1, 0}},
			{Tick: 40, Peer: 1, Event: domain.ReplayDisconnected},
		},
	}
}

func TestReplaySaveLoad(t *testing.T) {
	svc, err := NewReplayService(filepath.Join(t.TempDir(), "replays"))
	if err != nil {
		t.Fatalf("NewReplayService: %v", err)
	}
	in := sampleSession()

	path, err := svc.Save(in)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if filepath.Base(path) != in.ID+ReplayExt {
		t.Errorf("file name = %s", filepath.Base(path))
	}

	out, err := svc.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if out.ID != in.ID || out.Seed != in.Seed || out.StartMap != in.StartMap || out.Timestamp != in.Timestamp {
		t.Errorf("header = %+v", out)
	}
	if len(out.Records) != len(in.Records) {
		t.Fatalf("records = %d, want %d", len(out.Records), len(in.Records))
	}
	for i := range in.Records {
		a, b := in.Records[i], out.Records[i]
		if a.Tick != b.Tick || a.Peer != b.Peer || a.Event != b.Event || a.Channel != b.Channel || !bytes.Equal(a.Frame, b.Frame) {
			t.Errorf("record %d = %+v, want %+v", i, b, a)
		}
	}
	if out.Ticks() != 40 {
		t.Errorf("Ticks() = %d", out.Ticks())
	}
}

func TestReplaySaveAssignsID(t *testing.T) {
	svc, err := NewReplayService(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	s := &domain.ReplaySession{}
	if _, err := svc.Save(s); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if s.ID == "" {
		t.Error("Save() left the session without id")
	}
}

func TestReadBinaryRejects(t *testing.T) {
	var good bytes.Buffer
	if err := writeBinary(&good, sampleSession()); err != nil {
		t.Fatal(err)
	}

	badMagic := append([]byte(nil), good.Bytes()...)
	copy(badMagic, "CDRP")

	badVersion := append([]byte(nil), good.Bytes()...)
	binary.LittleEndian.PutUint32(badVersion[4:], 9)

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"bad magic", badMagic, ErrBadMagic},
		{"bad version", badVersion, ErrVersion},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := readBinary(bytes.NewReader(tt.data))
			if !errors.Is(err, tt.want) {
				t.Errorf("readBinary() error = %v, want %v", err, tt.want)
			}
		})
	}

	t.Run("truncated", func(t *testing.T) {
		data := good.Bytes()[:good.Len()-2]
		if _, err := readBinary(bytes.NewReader(data)); err == nil {
			t.Error("truncated replay accepted")
		}
	})
}

func TestScoreStore(t *testing.T) {
	ctx := context.Background()
	store, err := OpenScoreStore(filepath.Join(t.TempDir(), "scores.db"))
	if err != nil {
		t.Fatalf("OpenScoreStore: %v", err)
	}
	defer store.Close()

	if err := store.RecordLevel(ctx, nil); err != nil {
		t.Fatalf("RecordLevel(nil): %v", err)
	}
	err = store.RecordLevel(ctx, []ScoreRow{
		{Map: 1, PlayerID: 1, Name: "ann", Score: 30, Cash: 2},
		{Map: 1, PlayerID: 2, Name: "bob", Score: 120, Cash: 0},
	})
	if err != nil {
		t.Fatalf("RecordLevel: %v", err)
	}
	if err := store.RecordLevel(ctx, []ScoreRow{{Map: 2, PlayerID: 1, Name: "ann", Score: 50}}); err != nil {
		t.Fatalf("RecordLevel: %v", err)
	}

	top, err := store.Top(ctx, 2)
	if err != nil {
		t.Fatalf("Top: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("Top(2) = %d rows", len(top))
	}
	if top[0].Name != "bob" || top[0].Score != 120 || top[1].Score != 50 || top[1].Map != 2 {
		t.Errorf("Top(2) = %+v", top)
	}
	if top[0].RecordedAt.IsZero() {
		t.Error("RecordedAt not stored")
	}
}

func TestOpenScoreStoreEmptyPath(t *testing.T) {
	if _, err := OpenScoreStore(""); !errors.Is(err, ErrEmptyPath) {
		t.Errorf("OpenScoreStore(\"\") error = %v", err)
	}
}
