package storage

import (
	"testing"
)

func TestJournalAppendAndRead(t *testing.T) {
	dir := t.TempDir()

	j, err := OpenJournal(dir)
	if err != nil {
		t.Fatalf("OpenJournal: %v", err)
	}

	done := make(chan struct{})
	go func() {
		j.Run()
		close(done)
	}()

	j.Append(Record{Facility: "source", Action: "new", Index: 0})
	j.Append(Record{Facility: "source-output", Action: "remove", Index: 3})
	j.Close()
	<-done

	records, err := ReadJournal(dir, j.UID())
	if err != nil {
		t.Fatalf("ReadJournal: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].Facility != "source" || records[0].Action != "new" {
		t.Fatalf("records[0]=%+v, want source/new", records[0])
	}
	if records[1].Index != 3 {
		t.Fatalf("records[1].Index=%d, want 3", records[1].Index)
	}
	if records[0].Timestamp == "" {
		t.Fatal("record written without a timestamp")
	}
}

func TestListJournals(t *testing.T) {
	dir := t.TempDir()

	first, err := OpenJournal(dir)
	if err != nil {
		t.Fatalf("OpenJournal: %v", err)
	}
	done := make(chan struct{})
	go func() {
		first.Run()
		close(done)
	}()
	first.Append(Record{Facility: "source", Action: "new", Index: 1})
	first.Close()
	<-done

	list := ListJournals(dir)
	if len(list) != 1 {
		t.Fatalf("got %d journals, want 1", len(list))
	}
	if list[0].UID != first.UID() {
		t.Fatalf("UID=%q, want %q", list[0].UID, first.UID())
	}
}

func TestReadJournalRejectsUnsafeUID(t *testing.T) {
	if _, err := ReadJournal(t.TempDir(), "../escape"); err == nil {
		t.Fatal("expected an error for a path-escaping uid")
	}
	if _, err := ReadJournal("", "abc"); err == nil {
		t.Fatal("expected an error for an empty base dir")
	}
}
