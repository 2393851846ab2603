package meta

import (
	"bytes"
	"fmt"
	"math"
	"regexp"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestPersistLoad(t *testing.T) {
	t.Parallel()
	tests := []int32{math.MinInt32, -1, 0, 1, 5, 1 << 20, math.MaxInt32}
	for _, test := range tests {
		test := test
		t.Run(fmt.Sprintf("%d", test), func(t *testing.T) {
			got, err := Load(Persist(test))
			if err != nil || got != test {
				t.Errorf("got %d, %v, want %d", got, err, test)
			}
		})
	}
}

func TestPersistBytes(t *testing.T) {
	t.Parallel()
	want := []byte{0x01, 0x00, 0x05, 0x00, 0x00, 0x00, 0x00, 0x00}
	if diff := cmp.Diff(want, Persist(5)); diff != "" {
		t.Errorf("got diff:\n%s", diff)
	}
	want = []byte{0x01, 0x00, 0xFF, 0xFF, 0xFF, 0xFF, 0x00, 0x00}
	if diff := cmp.Diff(want, Persist(-1)); diff != "" {
		t.Errorf("got diff:\n%s", diff)
	}
}

func TestLoadError(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		blob []byte
		err  string
	}{
		{name: "empty", blob: nil, err: "short"},
		{name: "bad prolog", blob: []byte{0x02, 0x00, 0, 0, 0, 0, 0, 0}, err: "prolog"},
		{name: "short", blob: []byte{0x01, 0x00, 0x05}, err: "short"},
		{name: "trailing", blob: []byte{0x01, 0x00, 0, 0, 0, 0, 0, 0, 0}, err: "1 trailing bytes"},
		{name: "named args", blob: []byte{0x01, 0x00, 0, 0, 0, 0, 1, 0}, err: "named arguments"},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			_, err := Load(test.blob)
			if err == nil || !regexp.MustCompile(test.err).MatchString(err.Error()) {
				t.Errorf("got %v, expected matching %s", err, test.err)
			}
		})
	}
}

func TestWriteReadInt(t *testing.T) {
	t.Parallel()
	tests := []int{math.MinInt32, -1, 0, 1, 10, 50, math.MaxInt32}
	for _, test := range tests {
		test := test
		t.Run(fmt.Sprintf("%v", test), func(t *testing.T) {
			var buf bytes.Buffer
			writeInt(&buf, test)
			got := readInt(&buf)
			if got != test {
				t.Errorf("got %v, want %v", got, test)
			}
		})
	}
}

func TestWriteIntTooBig(t *testing.T) {
	t.Parallel()
	defer func() {
		if err := recover(); err == nil {
			t.Errorf("expected panic, got nil")
		}
	}()
	writeInt(&bytes.Buffer{}, math.MaxInt32+1)
}

func TestReadNotMetadata(t *testing.T) {
	t.Parallel()
	tests := [][]byte{
		nil,
		[]byte("hello, world"),
		append([]byte{3, 0, 0, 0}, "orp"...),
	}
	for _, test := range tests {
		if _, err := Read(bytes.NewReader(test)); err == nil {
			t.Errorf("Read(%q) succeeded, expected an error", test)
		}
	}
}
