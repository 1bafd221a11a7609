package core

import (
	"sync"
	"testing"
	"time"
)

func TestNewBoard_KeepsOnlyCSV(t *testing.T) {
	b := NewBoard("card-1", "run-1", []Artifact{
		{Name: "a.csv"},
		{Name: "weights.bin"},
		{Name: "b", Path: "/out/b.CSV"},
	})

	if len(b.Artifacts) != 2 {
		t.Fatalf("len(Artifacts) = %d, want 2", len(b.Artifacts))
	}
	if _, ok := b.Artifact("weights.bin"); ok {
		t.Error("non-CSV artifact should not be on the board")
	}
	if _, ok := b.Artifact("b"); !ok {
		t.Error("artifact with .CSV path should be on the board")
	}
}

func TestBoard_PutReplacesByName(t *testing.T) {
	b := NewBoard("card-1", "run-1", nil)
	a := Artifact{Name: "a.csv", URI: "/tmp/a.csv"}
	other := Artifact{Name: "b.csv"}

	b.Put(errorRecord(a, "Cannot access local file: /tmp/a.csv. boom"))
	b.Put(successRecord(other, ParseCSV([]byte("x\n1"))))
	b.Put(successRecord(a, ParseCSV([]byte("a,b\n1,2"))))

	snap := b.Snapshot()
	if len(snap.Records) != 2 {
		t.Fatalf("len(Records) = %d, want 2", len(snap.Records))
	}

	// Replaced record moves to the end.
	if snap.Records[0].Name != "b.csv" || snap.Records[1].Name != "a.csv" {
		t.Errorf("order = [%s %s], want [b.csv a.csv]", snap.Records[0].Name, snap.Records[1].Name)
	}

	rec, ok := b.Record("a.csv")
	if !ok {
		t.Fatal("record a.csv missing")
	}
	if rec.Error != "" {
		t.Errorf("Error = %q, want cleared", rec.Error)
	}
	if len(rec.Rows) != 1 || rec.Rows[0].Get("b") != "2" {
		t.Errorf("unexpected rows: %+v", rec.Rows)
	}
}

func TestBoard_Loading(t *testing.T) {
	b := NewBoard("card-1", "run-1", nil)

	if b.AnyLoading() {
		t.Fatal("new board should not be loading")
	}

	b.SetLoading("a.csv", true)
	if !b.IsLoading("a.csv") || !b.AnyLoading() {
		t.Error("a.csv should be loading")
	}
	if b.IsLoading("b.csv") {
		t.Error("b.csv should not be loading")
	}

	b.SetLoading("a.csv", false)
	if b.AnyLoading() {
		t.Error("loading should be cleared")
	}
}

func TestBoard_SnapshotIsCopy(t *testing.T) {
	b := NewBoard("card-1", "run-1", nil)
	b.SetLoading("a.csv", true)
	b.Put(errorRecord(Artifact{Name: "a.csv"}, "x"))

	snap := b.Snapshot()
	snap.Loading["other"] = true
	snap.Records[0].Name = "mutated"

	if b.IsLoading("other") {
		t.Error("snapshot loading map aliases board state")
	}
	if _, ok := b.Record("a.csv"); !ok {
		t.Error("snapshot records alias board state")
	}
}

func TestBoard_NotifiesOnChange(t *testing.T) {
	b := NewBoard("card-1", "run-1", nil)
	ch := b.Notifier().Subscribe()
	defer b.Notifier().Unsubscribe(ch)

	b.Put(errorRecord(Artifact{Name: "a.csv"}, "x"))

	select {
	case <-ch:
	case <-time.After(100 * time.Millisecond):
		t.Error("expected a ping after Put")
	}
}

func TestBoard_ConcurrentPuts(t *testing.T) {
	b := NewBoard("card-1", "run-1", nil)
	names := []string{"a.csv", "b.csv", "c.csv", "d.csv"}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		for _, n := range names {
			wg.Add(1)
			go func(name string) {
				defer wg.Done()
				b.SetLoading(name, true)
				b.Put(successRecord(Artifact{Name: name}, ParseCSV([]byte("a\n1"))))
				b.SetLoading(name, false)
			}(n)
		}
	}
	wg.Wait()

	snap := b.Snapshot()
	if len(snap.Records) != len(names) {
		t.Errorf("len(Records) = %d, want %d (one per name)", len(snap.Records), len(names))
	}
	if b.AnyLoading() {
		t.Error("no artifact should be left loading")
	}
}
