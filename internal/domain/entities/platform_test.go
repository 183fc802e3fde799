package entities

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func libc(major, series uint64) *LibcVersion {
	return &LibcVersion{Major: major, Series: series}
}

func TestLibcVersion_Less(t *testing.T) {
	tests := []struct {
		a, b LibcVersion
		want bool
	}{
		{a: LibcVersion{2, 17}, b: LibcVersion{2, 31}, want: true},
		{a: LibcVersion{2, 31}, b: LibcVersion{2, 17}, want: false},
		{a: LibcVersion{2, 31}, b: LibcVersion{2, 31}, want: false},
		{a: LibcVersion{1, 99}, b: LibcVersion{2, 0}, want: true},
		{a: LibcVersion{3, 0}, b: LibcVersion{2, 99}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.a.String()+"<"+tt.b.String(), func(t *testing.T) {
			if got := tt.a.Less(tt.b); got != tt.want {
				t.Errorf("%v.Less(%v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestRuntimeConditions_Merge(t *testing.T) {
	tests := []struct {
		name string
		a, b RuntimeConditions
		want RuntimeConditions
	}{
		{
			name: "both unset",
			want: RuntimeConditions{},
		},
		{
			name: "unset then set",
			b:    RuntimeConditions{MinGlibcVersion: libc(2, 28)},
			want: RuntimeConditions{MinGlibcVersion: libc(2, 28)},
		},
		{
			name: "set then unset",
			a:    RuntimeConditions{MinMuslVersion: libc(1, 2)},
			want: RuntimeConditions{MinMuslVersion: libc(1, 2)},
		},
		{
			name: "older then newer",
			a:    RuntimeConditions{MinGlibcVersion: libc(2, 17)},
			b:    RuntimeConditions{MinGlibcVersion: libc(2, 31)},
			want: RuntimeConditions{MinGlibcVersion: libc(2, 31)},
		},
		{
			name: "newer then older",
			a:    RuntimeConditions{MinGlibcVersion: libc(2, 31)},
			b:    RuntimeConditions{MinGlibcVersion: libc(2, 17)},
			want: RuntimeConditions{MinGlibcVersion: libc(2, 31)},
		},
		{
			name: "major version wins over series",
			a:    RuntimeConditions{MinGlibcVersion: libc(3, 0)},
			b:    RuntimeConditions{MinGlibcVersion: libc(2, 99)},
			want: RuntimeConditions{MinGlibcVersion: libc(3, 0)},
		},
		{
			name: "same version",
			a:    RuntimeConditions{MinGlibcVersion: libc(2, 31)},
			b:    RuntimeConditions{MinGlibcVersion: libc(2, 31)},
			want: RuntimeConditions{MinGlibcVersion: libc(2, 31)},
		},
		{
			name: "rosetta2 is or-ed",
			a:    RuntimeConditions{Rosetta2: true},
			b:    RuntimeConditions{MinGlibcVersion: libc(2, 31)},
			want: RuntimeConditions{MinGlibcVersion: libc(2, 31), Rosetta2: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.a.Merge(tt.b)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Merge() mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(got, tt.b.Merge(tt.a)); diff != "" {
				t.Errorf("Merge() is not commutative (-ab +ba):\n%s", diff)
			}
			if diff := cmp.Diff(tt.a, tt.a.Merge(tt.a)); diff != "" {
				t.Errorf("Merge() with itself changed the conditions (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRuntimeConditions_MergeCopies(t *testing.T) {
	a := RuntimeConditions{MinGlibcVersion: libc(2, 31)}
	merged := a.Merge(RuntimeConditions{})
	merged.MinGlibcVersion.Series = 99
	if a.MinGlibcVersion.Series != 31 {
		t.Errorf("Merge() result aliases its input")
	}
}
