package handlers

import (
	"context"
	"testing"
	"time"

	"entregacerta.com.br/backend/models"
)

func TestConsume_AtMostOnce(t *testing.T) {
	db := newTestDB(t)
	ns := NewNotificationService(db)

	ns.Publish("driver-1", "Nova Carga", "NF 100 adicionada.", models.NotificationInfo)
	ns.Publish("driver-1", "Nova Carga", "NF 200 adicionada.", models.NotificationInfo)

	first, err := ns.Consume("driver-1")
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("first consume = %d entries, expected 2", len(first))
	}

	second, err := ns.Consume("driver-1")
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if len(second) != 0 {
		t.Errorf("second consume = %d entries, each entry is delivered exactly once", len(second))
	}
}

func TestConsume_OnlyOwnMailbox(t *testing.T) {
	db := newTestDB(t)
	ns := NewNotificationService(db)

	ns.Publish("driver-1", "Nova Carga", "NF 100 adicionada.", models.NotificationInfo)
	ns.Publish(models.AdminRecipient, "Falha na Entrega", "NF 200 retornou.", models.NotificationWarning)

	got, err := ns.Consume("driver-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("driver consume = %d entries, expected 1", len(got))
	}
	if got[0].Title != "Nova Carga" {
		t.Errorf("wrong entry delivered: %+v", got[0])
	}

	admin, err := ns.Consume(models.AdminRecipient)
	if err != nil {
		t.Fatal(err)
	}
	if len(admin) != 1 || admin[0].Title != "Falha na Entrega" {
		t.Errorf("admin mailbox = %+v", admin)
	}
}

func TestConsume_OldestFirst(t *testing.T) {
	db := newTestDB(t)
	ns := NewNotificationService(db)

	base := time.Now().Add(-time.Hour)
	for i, title := range []string{"primeira", "segunda", "terceira"} {
		n := models.AppNotification{
			RecipientID: "driver-1",
			Title:       title,
			Message:     "m",
			Kind:        models.NotificationInfo,
			Timestamp:   base.Add(time.Duration(i) * time.Minute),
		}
		if err := db.Create(&n).Error; err != nil {
			t.Fatal(err)
		}
	}

	got, err := ns.Consume("driver-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d entries", len(got))
	}
	for i, want := range []string{"primeira", "segunda", "terceira"} {
		if got[i].Title != want {
			t.Errorf("position %d = %q, expected %q", i, got[i].Title, want)
		}
	}
}

func TestConsume_NewEntriesAfterDrain(t *testing.T) {
	db := newTestDB(t)
	ns := NewNotificationService(db)

	ns.Publish("driver-1", "a", "m", models.NotificationInfo)
	if _, err := ns.Consume("driver-1"); err != nil {
		t.Fatal(err)
	}

	ns.Publish("driver-1", "b", "m", models.NotificationInfo)
	got, err := ns.Consume("driver-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Title != "b" {
		t.Errorf("got %+v, expected only the entry published after the drain", got)
	}
}

func TestUnreadCount(t *testing.T) {
	db := newTestDB(t)
	ns := NewNotificationService(db)

	ns.Publish("driver-1", "a", "m", models.NotificationInfo)
	ns.Publish("driver-1", "b", "m", models.NotificationInfo)

	count, err := ns.UnreadCount("driver-1")
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("unread = %d", count)
	}

	if _, err := ns.Consume("driver-1"); err != nil {
		t.Fatal(err)
	}
	count, _ = ns.UnreadCount("driver-1")
	if count != 0 {
		t.Errorf("unread after consume = %d", count)
	}
}

func TestSweep_PurgesOnlyOldConsumedEntries(t *testing.T) {
	db := newTestDB(t)
	ns := NewNotificationService(db)

	old := time.Now().Add(-48 * time.Hour)
	entries := []models.AppNotification{
		{RecipientID: "d1", Title: "velha lida", Message: "m", Read: true, Timestamp: old},
		{RecipientID: "d1", Title: "velha não lida", Message: "m", Read: false, Timestamp: old},
		{RecipientID: "d1", Title: "recente lida", Message: "m", Read: true, Timestamp: time.Now()},
	}
	for i := range entries {
		if err := db.Create(&entries[i]).Error; err != nil {
			t.Fatal(err)
		}
	}

	sweeper := NewRetentionSweeper(db, time.Minute, 24*time.Hour)
	sweeper.Sweep()

	var remaining []models.AppNotification
	db.Find(&remaining)
	if len(remaining) != 2 {
		t.Fatalf("remaining = %d, expected 2", len(remaining))
	}
	for _, n := range remaining {
		if n.Title == "velha lida" {
			t.Error("old consumed entry survived the sweep")
		}
	}

	// The unread one must still be deliverable.
	got, err := ns.Consume("d1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Title != "velha não lida" {
		t.Errorf("consume after sweep = %+v", got)
	}
}

func TestSweeperRun_StopsOnCancel(t *testing.T) {
	db := newTestDB(t)
	sweeper := NewRetentionSweeper(db, 10*time.Millisecond, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancellation")
	}
}
