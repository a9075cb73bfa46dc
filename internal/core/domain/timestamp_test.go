package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	for _, in := range []string{
		"2024-05-01T10:00:00Z",
		"2024-05-01T12:00:00+02:00",
		"2024-05-01T10:00:00",
		"2024-05-01 10:00:00",
	} {
		ts, err := ParseTimestamp(in)
		if err != nil {
			t.Fatalf("%s: %v", in, err)
		}
		if !ts.Equal(want) {
			t.Errorf("%s parsed as %v, want %v", in, ts.Time, want)
		}
	}

	if ts, err := ParseTimestamp("2024-05-01"); err != nil || ts.Day() != 1 {
		t.Fatalf("date-only: %v %v", ts, err)
	}
	if _, err := ParseTimestamp("yesterday"); err == nil {
		t.Fatal("expected error")
	}
}

func TestTimestampNull(t *testing.T) {
	var task Task
	if err := json.Unmarshal([]byte(`{"id":"t1","due_date":null}`), &task); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !task.DueDate.IsZero() {
		t.Fatalf("null should decode to zero, got %v", task.DueDate)
	}

	out, err := json.Marshal(task.DueDate)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != "null" {
		t.Fatalf("zero should encode as null, got %s", out)
	}
}

func TestFindTask(t *testing.T) {
	tasks := []Task{{ID: "a"}, {ID: "b"}}
	got, err := FindTask(tasks, "b")
	if err != nil || got.ID != "b" {
		t.Fatalf("FindTask = %+v, %v", got, err)
	}
	got.ID = "changed"
	if tasks[1].ID != "b" {
		t.Fatal("FindTask must return a copy")
	}

	_, err = FindTask(tasks, "c")
	nf, ok := err.(*NotFoundError)
	if !ok || nf.Error() != "task c not found" {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}
