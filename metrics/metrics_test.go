package metrics

import (
	"encoding/json"
	"sync"
	"testing"
	"time"
)

func TestSnapshot(t *testing.T) {
	c := NewCollector()
	c.TaskReceived()
	c.TaskReceived()
	c.TaskCompleted(100 * time.Millisecond)
	c.TaskRetried()
	c.TaskDead()

	snap := c.Snapshot(5)
	if snap.TasksReceived != 2 {
		t.Errorf("TasksReceived = %d, want 2", snap.TasksReceived)
	}
	if snap.TasksCompleted != 1 {
		t.Errorf("TasksCompleted = %d, want 1", snap.TasksCompleted)
	}
	if snap.TaskRetries != 1 {
		t.Errorf("TaskRetries = %d, want 1", snap.TaskRetries)
	}
	if snap.TasksDead != 1 {
		t.Errorf("TasksDead = %d, want 1", snap.TasksDead)
	}
	if snap.ProcessingTime != 100*time.Millisecond {
		t.Errorf("ProcessingTime = %s, want 100ms", snap.ProcessingTime)
	}
	if snap.QueueDepth != 5 {
		t.Errorf("QueueDepth = %d, want 5", snap.QueueDepth)
	}
}

func TestConcurrentUpdates(t *testing.T) {
	c := NewCollector()

	const goroutines, each = 8, 100
	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < each; j++ {
				c.TaskReceived()
				c.TaskCompleted(time.Millisecond)
			}
		}()
	}
	wg.Wait()

	snap := c.Snapshot(0)
	if want := int64(goroutines * each); snap.TasksReceived != want {
		t.Errorf("TasksReceived = %d, want %d", snap.TasksReceived, want)
	}
	if want := time.Duration(goroutines*each) * time.Millisecond; snap.ProcessingTime != want {
		t.Errorf("ProcessingTime = %s, want %s", snap.ProcessingTime, want)
	}
}

func TestSnapshotSerializes(t *testing.T) {
	c := NewCollector()
	c.TaskReceived()

	data, err := json.Marshal(c.Snapshot(1))
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if decoded["tasks_received"].(float64) != 1 {
		t.Errorf("tasks_received = %v, want 1", decoded["tasks_received"])
	}
}
