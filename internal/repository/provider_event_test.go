package repository

import (
	"context"
	"testing"
	"time"

	"nfpickle-donations/internal/model"

	"gorm.io/datatypes"
)

func eventFixture(id string) *model.ProviderEvent {
	return &model.ProviderEvent{
		EventID:     id,
		EventType:   "payment_intent.succeeded",
		PayloadJSON: datatypes.JSON(`{"id":"` + id + `"}`),
		ReceivedAt:  time.Now(),
	}
}

func TestRecordDeduplicatesByEventID(t *testing.T) {
	db := newTestDB(t)
	repo := NewProviderEventRepository(db)
	ctx := context.Background()

	seen, processed, err := repo.Record(ctx, eventFixture("evt_1"))
	if err != nil {
		t.Fatalf("first Record() error = %v", err)
	}
	if seen || processed {
		t.Errorf("first Record() = seen %v processed %v, want false/false", seen, processed)
	}

	seen, processed, err = repo.Record(ctx, eventFixture("evt_1"))
	if err != nil {
		t.Fatalf("second Record() error = %v", err)
	}
	if !seen {
		t.Error("second Record() seen = false, want true")
	}
	if processed {
		t.Error("second Record() processed = true, want false before MarkProcessed")
	}

	if err := repo.MarkProcessed(ctx, "evt_1"); err != nil {
		t.Fatalf("MarkProcessed() error = %v", err)
	}

	seen, processed, err = repo.Record(ctx, eventFixture("evt_1"))
	if err != nil {
		t.Fatalf("third Record() error = %v", err)
	}
	if !seen || !processed {
		t.Errorf("third Record() = seen %v processed %v, want true/true", seen, processed)
	}
}

func TestMarkFailedKeepsEventRetryable(t *testing.T) {
	db := newTestDB(t)
	repo := NewProviderEventRepository(db)
	ctx := context.Background()

	if _, _, err := repo.Record(ctx, eventFixture("evt_1")); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := repo.MarkFailed(ctx, "evt_1", "store unavailable"); err != nil {
		t.Fatalf("MarkFailed() error = %v", err)
	}

	seen, processed, err := repo.Record(ctx, eventFixture("evt_1"))
	if err != nil {
		t.Fatalf("Record() after failure error = %v", err)
	}
	if !seen {
		t.Error("seen = false, want true")
	}
	if processed {
		t.Error("processed = true, want false so the provider retry re-applies")
	}

	var stored model.ProviderEvent
	if err := db.Where("event_id = ?", "evt_1").First(&stored).Error; err != nil {
		t.Fatalf("load event: %v", err)
	}
	if stored.ProcessError == nil || *stored.ProcessError != "store unavailable" {
		t.Errorf("process error = %v, want recorded message", stored.ProcessError)
	}
}
