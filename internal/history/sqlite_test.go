package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stbridge/media-bridge-core/internal/capability"
	"github.com/stbridge/media-bridge-core/internal/infrastructure/database"
	"github.com/stbridge/media-bridge-core/internal/player"
)

func openTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "history.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	repo, err := NewSQLiteRepository(db.DB)
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	return repo
}

func testSnapshot(deviceID string, volume int) player.State {
	now := time.Now().UTC()
	return player.State{
		DeviceID: deviceID,
		Fields: map[player.FieldName]player.Field{
			player.FieldPower:    player.ConfirmedField("on", now),
			player.FieldPlayback: player.ConfirmedField(capability.PlaybackPlaying, now),
			player.FieldVolume:   player.ConfirmedField(volume, now),
			player.FieldSource:   player.ConfirmedField("wifi", now),
		},
	}
}

func TestRecordAndHistory(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	for i, vol := range []int{10, 20, 30} {
		if err := repo.Record(ctx, testSnapshot("device-1", vol), SourcePoll); err != nil {
			t.Fatalf("Record(%d) error = %v", i, err)
		}
	}
	if err := repo.Record(ctx, testSnapshot("device-2", 99), SourcePush); err != nil {
		t.Fatalf("Record(other) error = %v", err)
	}

	entries, err := repo.History(ctx, "device-1", 10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("len(entries) = %d, want 3", len(entries))
	}

	// Newest first.
	if v, _ := entries[0].State.Field(player.FieldVolume).Int(); v != 30 {
		t.Errorf("newest volume = %d, want 30", v)
	}
	if entries[0].Derived != capability.PlaybackPlaying {
		t.Errorf("derived = %q, want playing", entries[0].Derived)
	}
	if entries[0].Source != SourcePoll {
		t.Errorf("source = %q, want poll", entries[0].Source)
	}
	for _, e := range entries {
		if e.DeviceID != "device-1" {
			t.Errorf("entry for %q leaked into device-1 history", e.DeviceID)
		}
	}
}

func TestHistory_LimitClamped(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := repo.Record(ctx, testSnapshot("device-1", i), SourceCommand); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	entries, err := repo.History(ctx, "device-1", 2)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("len(entries) = %d, want 2", len(entries))
	}
}

func TestRecord_RequiresDeviceID(t *testing.T) {
	repo := openTestRepo(t)

	err := repo.Record(context.Background(), player.State{}, SourcePoll)
	if err == nil {
		t.Error("Record() with empty device id should fail")
	}
}

func TestPrune(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	if err := repo.Record(ctx, testSnapshot("device-1", 10), SourcePoll); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	// Nothing is older than an hour yet.
	n, err := repo.Prune(ctx, time.Hour)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if n != 0 {
		t.Errorf("pruned = %d, want 0", n)
	}

	if _, err := repo.Prune(ctx, 0); err == nil {
		t.Error("Prune(0) should fail")
	}
}
