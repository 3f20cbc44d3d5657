package bitmap

import (
	"bytes"
	"testing"
)

// TestNullBitmapTracksAppendedValues sets one bit per row, interleaving nulls
// and non-nulls, and checks that Get - the read behind vbuf's IsNull -
// reflects exactly the positions that were marked null, nothing else.
func TestNullBitmapTracksAppendedValues(t *testing.T) {
	nulls := NewBitmap(5)
	nullAt := map[int]bool{1: true, 3: true}
	for i := 0; i < 5; i++ {
		nulls.Set(i, nullAt[i])
	}
	for i := 0; i < 5; i++ {
		if got := nulls.Get(i); got != nullAt[i] {
			t.Errorf("position %d: Get() = %v, want %v", i, got, nullAt[i])
		}
	}
	if nulls.Count() != 2 {
		t.Errorf("Count() = %d, want 2 null positions", nulls.Count())
	}
}

// TestBitmapGetPastDeclaredCapacityGrowsRatherThanPanics checks that Get,
// like Set, grows the bitmap instead of panicking when asked for a bit past
// the capacity NewBitmap was given.
func TestBitmapGetPastDeclaredCapacityGrowsRatherThanPanics(t *testing.T) {
	bm := NewBitmap(3)
	if bm.Get(100) {
		t.Fatal("expected an unset bit far past capacity to read as false")
	}
	if bm.Cap() < 101 {
		t.Errorf("expected Get to have grown Cap() to cover position 100, got %d", bm.Cap())
	}
}

func TestBitmapSetGrowsCapacityAcrossWordBoundary(t *testing.T) {
	bm := NewBitmap(1)
	bm.Set(130, true)
	if !bm.Get(130) {
		t.Fatal("expected bit 130 to be set after growth")
	}
	if bm.Get(129) {
		t.Fatal("growth should not set neighboring bits")
	}
	if bm.Cap() < 131 {
		t.Errorf("Cap() = %d, want at least 131", bm.Cap())
	}
}

func TestBitmapFromBoolsMatchesSourceSlice(t *testing.T) {
	src := []bool{true, false, false, true, true, false, true}
	bm := NewBitmapFromBools(src)
	if bm.Cap() != len(src) {
		t.Fatalf("Cap() = %d, want %d", bm.Cap(), len(src))
	}
	for i, want := range src {
		if got := bm.Get(i); got != want {
			t.Errorf("position %d: got %v, want %v", i, got, want)
		}
	}
}

// TestFilterPredicatesCombineWithAnd checks And on two row-selection bitmaps:
// only the rows set in both survive.
func TestFilterPredicatesCombineWithAnd(t *testing.T) {
	ageOver30 := NewBitmapFromBools([]bool{true, true, false, true, false})
	inBerlin := NewBitmapFromBools([]bool{true, false, false, true, true})

	survivors := ageOver30.Clone()
	survivors.And(inBerlin)

	want := []bool{true, false, false, true, false}
	for i, w := range want {
		if got := survivors.Get(i); got != w {
			t.Errorf("row %d: And() result = %v, want %v", i, got, w)
		}
	}
}

func TestAndWithNilClearsEverySetBit(t *testing.T) {
	bm := NewBitmapFromBools([]bool{true, true, true})
	bm.And(nil)
	if bm.Count() != 0 {
		t.Fatalf("expected And(nil) to clear all bits, got Count()=%d", bm.Count())
	}
}

// TestUnmatchedJoinRowsSurviveAndNot checks AndNot on a full bitmap: start
// from "every row", clear the ones that matched, and exactly the unmatched
// positions are left.
func TestUnmatchedJoinRowsSurviveAndNot(t *testing.T) {
	allLeftRows := NewBitmapFull(6)
	matched := NewBitmapFromBools([]bool{true, false, true, false, true, false})

	allLeftRows.AndNot(matched)

	wantUnmatched := []int{1, 3, 5}
	var got []int
	allLeftRows.Iter(func(pos int) { got = append(got, pos) })
	if len(got) != len(wantUnmatched) {
		t.Fatalf("unmatched positions = %v, want %v", got, wantUnmatched)
	}
	for i, pos := range wantUnmatched {
		if got[i] != pos {
			t.Errorf("unmatched[%d] = %d, want %d", i, got[i], pos)
		}
	}
}

func TestOrCombinesTwoPredicateSelections(t *testing.T) {
	inBerlin := NewBitmapFromBools([]bool{true, false, false, false})
	inParis := NewBitmapFromBools([]bool{false, false, true, false})

	either := Or(inBerlin, inParis)
	want := []bool{true, false, true, false}
	for i, w := range want {
		if got := either.Get(i); got != w {
			t.Errorf("position %d: Or() = %v, want %v", i, got, w)
		}
	}
	// inputs must be left untouched
	if inBerlin.Get(2) || inParis.Get(0) {
		t.Fatal("Or() mutated one of its inputs")
	}
}

func TestOrWithOneNilReturnsCloneOfOther(t *testing.T) {
	bm := NewBitmapFromBools([]bool{true, false, true})
	if got := Or(bm, nil); got == bm || !got.Get(0) || got.Get(1) || !got.Get(2) {
		t.Fatal("Or(bm, nil) should return an independent clone of bm")
	}
	if got := Or(nil, bm); got == bm || !got.Get(2) {
		t.Fatal("Or(nil, bm) should return an independent clone of bm")
	}
	if Or(nil, nil) != nil {
		t.Fatal("Or(nil, nil) should return nil")
	}
}

func TestAndNotWithNilIsNoOp(t *testing.T) {
	bm := NewBitmapFromBools([]bool{true, true})
	bm.AndNot(nil)
	if !bm.Get(0) || !bm.Get(1) {
		t.Fatal("AndNot(nil) must leave the receiver unchanged")
	}
}

func TestMismatchedLengthBooleanOpsPanic(t *testing.T) {
	cases := []struct {
		name  string
		apply func(a, b *Bitmap)
		want  string
	}{
		{"And", func(a, b *Bitmap) { a.And(b) }, "bitmap: cannot And bitmaps of differing length"},
		{"AndNot", func(a, b *Bitmap) { a.AndNot(b) }, "bitmap: cannot AndNot bitmaps of differing length"},
		{"Or", func(a, b *Bitmap) { a.Or(b) }, "bitmap: cannot Or bitmaps of differing length"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			defer func() {
				r := recover()
				if r == nil {
					t.Fatal("expected a panic for mismatched lengths")
				}
				if r != tc.want {
					t.Errorf("panic message = %q, want %q", r, tc.want)
				}
			}()
			a := NewBitmap(10)
			b := NewBitmap(20)
			tc.apply(a, b)
		})
	}
}

// TestLimitKeepsOnlyFirstNSelectedRows checks that KeepFirstN caps a
// selection bitmap at its first N set bits.
func TestLimitKeepsOnlyFirstNSelectedRows(t *testing.T) {
	selected := NewBitmapFromBools([]bool{true, false, true, true, false, true})
	selected.KeepFirstN(2)

	var kept []int
	selected.Iter(func(pos int) { kept = append(kept, pos) })
	want := []int{0, 2}
	if len(kept) != len(want) {
		t.Fatalf("kept positions = %v, want %v", kept, want)
	}
	for i := range want {
		if kept[i] != want[i] {
			t.Errorf("kept[%d] = %d, want %d", i, kept[i], want[i])
		}
	}
}

func TestLimitRequestingMoreThanAvailableKeepsAll(t *testing.T) {
	selected := NewBitmapFromBools([]bool{true, true, false})
	selected.KeepFirstN(10)
	if selected.Count() != 2 {
		t.Fatalf("expected all 2 set bits to survive a limit exceeding the count, got %d", selected.Count())
	}
}

func TestLimitWithZeroClearsSelection(t *testing.T) {
	selected := NewBitmapFromBools([]bool{true, true, true})
	selected.KeepFirstN(0)
	if selected.Count() != 0 {
		t.Fatalf("expected KeepFirstN(0) to clear every bit, got Count()=%d", selected.Count())
	}
}

func TestLimitAcrossWordBoundary(t *testing.T) {
	bits := make([]bool, 140)
	for i := range bits {
		bits[i] = true
	}
	selected := NewBitmapFromBools(bits)
	selected.KeepFirstN(65)
	if selected.Count() != 65 {
		t.Fatalf("Count() = %d, want 65", selected.Count())
	}
	var last int
	selected.Iter(func(pos int) { last = pos })
	if last != 64 {
		t.Fatalf("expected the 65th kept bit to be at position 64, got %d", last)
	}
}

func TestNegativeKeepFirstNPanics(t *testing.T) {
	defer func() {
		r := recover()
		if r != "bitmap: negative KeepFirstN count" {
			t.Fatalf("panic = %v, want %q", r, "bitmap: negative KeepFirstN count")
		}
	}()
	NewBitmap(4).KeepFirstN(-1)
}

// TestIterVisitsSetBitsInAscendingOrder checks that Iter walks the set bits
// in ascending order without materializing a []int first.
func TestIterVisitsSetBitsInAscendingOrder(t *testing.T) {
	bm := NewBitmapFromBools([]bool{false, true, false, true, true, false, false, true})
	var visited []int
	bm.Iter(func(pos int) { visited = append(visited, pos) })
	want := []int{1, 3, 4, 7}
	if len(visited) != len(want) {
		t.Fatalf("visited = %v, want %v", visited, want)
	}
	for i := range want {
		if visited[i] != want[i] {
			t.Errorf("visited[%d] = %d, want %d", i, visited[i], want[i])
		}
	}
}

func TestIterOnEmptyBitmapCallsNothing(t *testing.T) {
	bm := NewBitmap(64)
	calls := 0
	bm.Iter(func(int) { calls++ })
	if calls != 0 {
		t.Fatalf("expected 0 calls on an all-clear bitmap, got %d", calls)
	}
}

func TestIterStopsAtDeclaredCapacityNotWordBoundary(t *testing.T) {
	// cap 5 means only one word backs it, but that word can carry set bits
	// at positions >= 5 left over from growth; Iter must not report them.
	bm := NewBitmap(5)
	bm.data[0] = ^uint64(0) // force every bit in the backing word on
	var visited []int
	bm.Iter(func(pos int) { visited = append(visited, pos) })
	want := []int{0, 1, 2, 3, 4}
	if len(visited) != len(want) {
		t.Fatalf("visited = %v, want %v", visited, want)
	}
}

func TestNewBitmapFullStartsAllSetThenInvertClearsAll(t *testing.T) {
	bm := NewBitmapFull(70)
	if bm.Count() != 70 {
		t.Fatalf("NewBitmapFull(70).Count() = %d, want 70", bm.Count())
	}
	bm.Invert()
	if bm.Count() != 0 {
		t.Fatalf("Invert() of a full bitmap should clear it, got Count()=%d", bm.Count())
	}
}

func TestInvertRespectsCapacityTail(t *testing.T) {
	bm := NewBitmap(5)
	bm.Invert() // all-unset -> all-set, but only within cap
	if bm.Count() != 5 {
		t.Fatalf("Count() = %d, want 5 (padding bits beyond cap must stay masked)", bm.Count())
	}
}

// TestConcatenatingChunksAppendsNullBitmaps checks that Append stitches two
// null-tracking bitmaps end to end.
func TestConcatenatingChunksAppendsNullBitmaps(t *testing.T) {
	firstChunkNulls := NewBitmapFromBools([]bool{false, true, false})
	secondChunkNulls := NewBitmapFromBools([]bool{true, false})

	firstChunkNulls.Append(secondChunkNulls)

	if firstChunkNulls.Cap() != 5 {
		t.Fatalf("Cap() = %d, want 5", firstChunkNulls.Cap())
	}
	want := []bool{false, true, false, true, false}
	for i, w := range want {
		if got := firstChunkNulls.Get(i); got != w {
			t.Errorf("position %d: got %v, want %v", i, got, w)
		}
	}
}

func TestAppendNilLeavesReceiverUnchanged(t *testing.T) {
	bm := NewBitmapFromBools([]bool{true, false})
	bm.Append(nil)
	if bm.Cap() != 2 || !bm.Get(0) || bm.Get(1) {
		t.Fatal("Append(nil) must be a no-op")
	}
}

func TestCloneIsIndependentOfSource(t *testing.T) {
	src := NewBitmapFromBools([]bool{true, false, true})
	clone := src.Clone()
	clone.Set(1, true)
	if src.Get(1) {
		t.Fatal("mutating a clone must not affect the source bitmap")
	}
	if !clone.Get(0) || !clone.Get(1) || !clone.Get(2) {
		t.Fatal("clone should retain the source's original bits plus the mutation")
	}
}

func TestPackageCloneIsNilSafe(t *testing.T) {
	if Clone(nil) != nil {
		t.Fatal("Clone(nil) should return nil")
	}
	src := NewBitmapFromBools([]bool{true})
	if got := Clone(src); got == src {
		t.Fatal("Clone should return a distinct bitmap")
	}
}

// TestSerializeRoundTripsNullBitmap models how chunk/binary.go persists a
// ColumnBuffer's null bitmap: Serialize to a buffer, then
// DeserializeBitmapFromReader must reconstruct an equivalent bitmap.
func TestSerializeRoundTripsNullBitmap(t *testing.T) {
	original := NewBitmapFromBools([]bool{true, false, true, true, false, false, true, true, false, true})

	var buf bytes.Buffer
	n, err := Serialize(&buf, original)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if n != buf.Len() {
		t.Errorf("Serialize reported %d bytes written, buffer holds %d", n, buf.Len())
	}

	restored, err := DeserializeBitmapFromReader(&buf)
	if err != nil {
		t.Fatalf("DeserializeBitmapFromReader: %v", err)
	}
	if restored.Cap() != original.Cap() {
		t.Fatalf("restored Cap() = %d, want %d", restored.Cap(), original.Cap())
	}
	for i := 0; i < original.Cap(); i++ {
		if restored.Get(i) != original.Get(i) {
			t.Errorf("position %d: restored=%v, original=%v", i, restored.Get(i), original.Get(i))
		}
	}
}

func TestSerializeNilRoundTripsToNil(t *testing.T) {
	var buf bytes.Buffer
	if _, err := Serialize(&buf, nil); err != nil {
		t.Fatalf("Serialize(nil): %v", err)
	}
	restored, err := DeserializeBitmapFromReader(&buf)
	if err != nil {
		t.Fatalf("DeserializeBitmapFromReader: %v", err)
	}
	if restored != nil {
		t.Fatalf("expected a nil bitmap to round-trip to nil, got %v", restored)
	}
}

func TestNewBitmapFromBitsAdoptsWithoutCopying(t *testing.T) {
	words := []uint64{0b1011}
	bm := NewBitmapFromBits(words, 4)
	if bm.Cap() != 4 {
		t.Fatalf("Cap() = %d, want 4", bm.Cap())
	}
	if !bm.Get(0) || bm.Get(2) || !bm.Get(3) {
		t.Fatal("NewBitmapFromBits decoded the wrong bits")
	}
	words[0] = 0 // mutating the adopted slice must be visible through bm
	if bm.Get(0) {
		t.Fatal("expected NewBitmapFromBits to adopt its argument without copying")
	}
}
