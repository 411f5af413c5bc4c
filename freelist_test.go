package segheap

import "testing"

func TestClassOfBoundaries(t *testing.T) {
	cases := []struct {
		size uintptr
		want int
	}{
		{32, 0}, {63, 0},
		{64, 1}, {95, 1},
		{96, 2}, {127, 2},
		{128, 3}, {159, 3},
		{160, 4}, {191, 4},
		{192, 5}, {255, 5},
		{256, 6}, {511, 6},
		{512, 7},
		{65536, 14}, {1 << 20, 14},
	}
	for _, c := range cases {
		if got := classOf(c.size); got != c.want {
			t.Errorf("classOf(%d) = %d, want %d", c.size, got, c.want)
		}
	}
}

func TestClassOfOpenEndedLastClass(t *testing.T) {
	lo, hi := classRange(numClasses - 1)
	if lo != 65536 || hi != 0 {
		t.Fatalf("classRange(last) = (%d, %d), want (65536, 0)", lo, hi)
	}
}

func TestInsertRemoveFIFO(t *testing.T) {
	m := make(mem, 1024)
	var s segList
	m.writeBlock(16, 32, false, true)
	m.writeBlock(64, 32, false, true)
	m.writeBlock(112, 32, false, true)

	s.insert(m, 16)
	s.insert(m, 64)
	s.insert(m, 112)

	// FIFO: most recently inserted is head.
	idx := classOf(32)
	if s.heads[idx] != 112 {
		t.Fatalf("head = %d, want 112 (most recently freed)", s.heads[idx])
	}

	got := []uintptr{}
	for b := s.heads[idx]; b != 0; b = m.freeNext(b) {
		got = append(got, b)
	}
	want := []uintptr{112, 64, 16}
	if len(got) != len(want) {
		t.Fatalf("list length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("list[%d] = %d, want %d", i, got[i], want[i])
		}
	}

	// Remove the middle element and check the splice.
	s.remove(m, 64)
	if m.freeNext(112) != 16 {
		t.Fatalf("after removing middle element, 112.next = %d, want 16", m.freeNext(112))
	}
	if m.freePrev(16) != 112 {
		t.Fatalf("after removing middle element, 16.prev = %d, want 112", m.freePrev(16))
	}

	s.remove(m, 112)
	if s.heads[idx] != 16 {
		t.Fatalf("after removing head, head = %d, want 16", s.heads[idx])
	}
	if m.freePrev(16) != 0 {
		t.Fatalf("new head must have nil prev, got %d", m.freePrev(16))
	}

	s.remove(m, 16)
	if s.heads[idx] != 0 {
		t.Fatalf("list should be empty, head = %d", s.heads[idx])
	}
}

func TestFindFitScansUpwardClasses(t *testing.T) {
	m := make(mem, 1024)
	var s segList
	m.writeBlock(16, 96, false, true) // class 2: [96,128)
	s.insert(m, 16)

	// 80 falls in class 1, which is empty, so the scan moves up to class 2
	// and finds the 96-byte block there.
	if b, ok := s.findFit(m, 80); !ok || b != 16 {
		t.Fatalf("findFit(80) = (%d, %v), want (16, true)", b, ok)
	}
	if _, ok := s.findFit(m, 128); ok {
		t.Fatal("findFit(128) should fail: no block that large exists")
	}
}

func TestAcyclicDetectsLoop(t *testing.T) {
	m := make(mem, 1024)
	var s segList
	m.writeBlock(16, 32, false, true)
	m.writeBlock(64, 32, false, true)
	s.heads[0] = 16
	m.setFreeNext(16, 64)
	m.setFreeNext(64, 16) // manually close the loop

	if s.acyclic(m, 0) {
		t.Fatal("expected acyclic() to detect the manual cycle")
	}
}

func TestAcyclicAcceptsNormalList(t *testing.T) {
	m := make(mem, 1024)
	var s segList
	m.writeBlock(16, 32, false, true)
	s.insert(m, 16)
	if !s.acyclic(m, 0) {
		t.Fatal("single-element list must be acyclic")
	}
}
