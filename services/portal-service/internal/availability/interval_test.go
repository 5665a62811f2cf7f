package availability

import (
	"math/rand"
	"reflect"
	"testing"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   []Interval
		want []Interval
	}{
		{name: "empty", in: nil, want: nil},
		{name: "drops invalid", in: []Interval{{Start: 60, End: 60}, {Start: 90, End: 30}}, want: nil},
		{
			name: "sorts and merges overlaps",
			in:   []Interval{{Start: 600, End: 720}, {Start: 540, End: 620}, {Start: 800, End: 900}},
			want: []Interval{{Start: 540, End: 720}, {Start: 800, End: 900}},
		},
		{
			name: "merges touching",
			in:   []Interval{{Start: 540, End: 600}, {Start: 600, End: 660}},
			want: []Interval{{Start: 540, End: 660}},
		},
		{
			name: "keeps contained",
			in:   []Interval{{Start: 540, End: 1020}, {Start: 600, End: 660}},
			want: []Interval{{Start: 540, End: 1020}},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Normalize(tc.in)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestSubtract(t *testing.T) {
	base := []Interval{{Start: 540, End: 1020}}
	cases := []struct {
		name string
		rems []Interval
		want []Interval
	}{
		{name: "split", rems: []Interval{{Start: 720, End: 780}}, want: []Interval{{Start: 540, End: 720}, {Start: 780, End: 1020}}},
		{name: "trim start", rems: []Interval{{Start: 480, End: 600}}, want: []Interval{{Start: 600, End: 1020}}},
		{name: "trim end", rems: []Interval{{Start: 960, End: 1100}}, want: []Interval{{Start: 540, End: 960}}},
		{name: "full containment", rems: []Interval{{Start: 500, End: 1100}}, want: nil},
		{name: "no overlap", rems: []Interval{{Start: 1020, End: 1080}}, want: []Interval{{Start: 540, End: 1020}}},
		{
			name: "sequential removals",
			rems: []Interval{{Start: 600, End: 660}, {Start: 900, End: 960}},
			want: []Interval{{Start: 540, End: 600}, {Start: 660, End: 900}, {Start: 960, End: 1020}},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Subtract(base, tc.rems)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func randomIntervals(r *rand.Rand, n int) []Interval {
	out := make([]Interval, 0, n)
	for i := 0; i < n; i++ {
		start := r.Intn(MinutesPerDay)
		out = append(out, Interval{Start: start, End: start + r.Intn(240) - 20})
	}
	return out
}

func TestIntervalAlgebraProperties(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		x := randomIntervals(r, r.Intn(8))
		n := Normalize(x)
		if !reflect.DeepEqual(Normalize(n), n) {
			t.Fatalf("normalize not idempotent for %v", x)
		}
		for j := 1; j < len(n); j++ {
			if n[j-1].End > n[j].Start {
				t.Fatalf("overlapping output %v", n)
			}
		}

		rems := randomIntervals(r, r.Intn(4))
		out := Subtract(Union(n, randomIntervals(r, 2)), rems)
		for _, iv := range out {
			if iv.End <= iv.Start {
				t.Fatalf("empty interval in %v", out)
			}
			for _, rm := range rems {
				if rm.End > rm.Start && iv.Overlaps(rm) {
					t.Fatalf("result %v intersects removal %v", iv, rm)
				}
			}
		}
	}
}
