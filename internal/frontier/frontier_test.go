package frontier

import (
	"testing"
)

func TestPopOrderBFS(t *testing.T) {
	f := New(BFS)
	f.Push(Entry{URL: "A", Depth: 0})
	f.Push(Entry{URL: "B", Depth: 1})
	f.Push(Entry{URL: "C", Depth: 1})

	e, ok := f.Pop()
	if !ok || e.URL != "A" {
		t.Errorf("BFS first pop = %q, want A", e.URL)
	}
	e, _ = f.Pop()
	if e.URL != "B" {
		t.Errorf("BFS second pop = %q, want B", e.URL)
	}
}

func TestPopOrderDFS(t *testing.T) {
	f := New(DFS)
	f.Push(Entry{URL: "A", Depth: 0})
	f.Push(Entry{URL: "B", Depth: 1})
	f.Push(Entry{URL: "C", Depth: 1})

	e, ok := f.Pop()
	if !ok || e.URL != "C" {
		t.Errorf("DFS first pop = %q, want C", e.URL)
	}
	e, _ = f.Pop()
	if e.URL != "B" {
		t.Errorf("DFS second pop = %q, want B", e.URL)
	}
}

func TestPushDeduplicates(t *testing.T) {
	f := New(BFS)
	if !f.Push(Entry{URL: "A"}) {
		t.Error("first push should be accepted")
	}
	if f.Push(Entry{URL: "A", Depth: 3}) {
		t.Error("duplicate push should be rejected")
	}
	if f.Len() != 1 {
		t.Errorf("Len() = %d, want 1", f.Len())
	}
}

func TestReEnqueueAfterPop(t *testing.T) {
	// The frontier itself allows re-queueing after a pop; the scheduler's
	// visited set is what prevents re-testing.
	f := New(BFS)
	f.Push(Entry{URL: "A"})
	f.Pop()
	if !f.Push(Entry{URL: "A"}) {
		t.Error("push after pop should be accepted")
	}
}

func TestPopEmpty(t *testing.T) {
	f := New(DFS)
	if _, ok := f.Pop(); ok {
		t.Error("Pop() on empty frontier should report false")
	}
}

func TestContains(t *testing.T) {
	f := New(BFS)
	f.Push(Entry{URL: "A"})
	if !f.Contains("A") {
		t.Error("Contains(A) should be true while queued")
	}
	f.Pop()
	if f.Contains("A") {
		t.Error("Contains(A) should be false after pop")
	}
}

func TestParseStrategy(t *testing.T) {
	if ParseStrategy("dfs") != DFS {
		t.Error(`ParseStrategy("dfs") should be DFS`)
	}
	if ParseStrategy("bfs") != BFS {
		t.Error(`ParseStrategy("bfs") should be BFS`)
	}
	if ParseStrategy("") != BFS {
		t.Error("unknown strategy should default to BFS")
	}
}
