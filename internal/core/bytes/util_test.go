package bytes

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestWriterReader_Fields(t *testing.T) {
	w := NewWriter()
	w.Uint8(0xAB)
	w.Bool(true)
	w.Uint16(0x1234)
	w.Uint32(0xDEADBEEF)
	w.Uint64(1 << 40)
	w.Int32(-5)
	w.Int64(-1)
	w.String("player")
	w.Blob([]byte{1, 2, 3})
	w.Strings([]string{"a", "", "ccc"})
	w.Uint32s([]uint32{7, 8, 9})
	if w.Err() != nil {
		t.Fatalf("unexpected writer error: %v", w.Err())
	}

	r := NewReader(w.Bytes())
	u8, _ := r.Uint8()
	b, _ := r.Bool()
	u16, _ := r.Uint16()
	u32, _ := r.Uint32()
	u64, _ := r.Uint64()
	i32, _ := r.Int32()
	i64, _ := r.Int64()
	s, _ := r.String()
	blob, _ := r.Blob()
	list, _ := r.Strings()
	nums, err := r.Uint32s()
	if err != nil {
		t.Fatalf("unexpected reader error: %v", err)
	}

	if u8 != 0xAB || !b || u16 != 0x1234 || u32 != 0xDEADBEEF || u64 != 1<<40 || i32 != -5 || i64 != -1 {
		t.Errorf("scalar fields did not round trip: %v %v %v %v %v %v %v", u8, b, u16, u32, u64, i32, i64)
	}
	if s != "player" {
		t.Errorf("String() want = player, got = %s", s)
	}
	if diff := cmp.Diff([]byte{1, 2, 3}, blob); diff != "" {
		t.Errorf("Blob() diff:\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a", "", "ccc"}, list); diff != "" {
		t.Errorf("Strings() diff:\n%s", diff)
	}
	if diff := cmp.Diff([]uint32{7, 8, 9}, nums); diff != "" {
		t.Errorf("Uint32s() diff:\n%s", diff)
	}
	if r.Remaining() != 0 {
		t.Errorf("expected payload to be fully consumed, %d bytes left", r.Remaining())
	}
}

func TestWriterReader_MaxLength(t *testing.T) {
	atMax := strings.Repeat("x", MaxLength)

	w := NewWriter()
	w.String(atMax)
	if w.Err() != nil {
		t.Fatalf("a string of exactly MaxLength should be accepted: %v", w.Err())
	}
	got, err := NewReader(w.Bytes()).String()
	if err != nil {
		t.Fatalf("String() returned an unexpected error: %v", err)
	}
	if got != atMax {
		t.Errorf("string of MaxLength did not round trip (len %d)", len(got))
	}

	w = NewWriter()
	w.String(atMax + "x")
	if !errors.Is(w.Err(), ErrTooLong) {
		t.Errorf("expected ErrTooLong writing an over-long string, got %v", w.Err())
	}
}

func TestReader_Errors(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		read    func(r *Reader) error
		wantErr error
	}{
		{
			name:    "declared string length above maximum",
			data:    []byte{0x01, 0x04}, // 1025
			read:    func(r *Reader) error { _, err := r.String(); return err },
			wantErr: ErrTooLong,
		},
		{
			name:    "declared list length above maximum",
			data:    []byte{0xFF, 0xFF},
			read:    func(r *Reader) error { _, err := r.Strings(); return err },
			wantErr: ErrTooLong,
		},
		{
			name:    "string shorter than declared",
			data:    []byte{0x05, 0x00, 'a', 'b'},
			read:    func(r *Reader) error { _, err := r.String(); return err },
			wantErr: ErrShortBuffer,
		},
		{
			name:    "uint32 list shorter than declared",
			data:    []byte{0x02, 0x00, 1, 0, 0, 0},
			read:    func(r *Reader) error { _, err := r.Uint32s(); return err },
			wantErr: ErrShortBuffer,
		},
		{
			name:    "truncated scalar",
			data:    []byte{0x01},
			read:    func(r *Reader) error { _, err := r.Uint32(); return err },
			wantErr: ErrShortBuffer,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.read(NewReader(tt.data)); !errors.Is(err, tt.wantErr) {
				t.Errorf("want error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestStripPadding(t *testing.T) {
	tests := []struct {
		name string
		b    []byte
		want []byte
	}{
		{
			name: "does not alter strings without padding",
			b:    []byte("username"),
			want: []byte("username"),
		},
		{
			name: "removes trailing padding",
			b:    []byte{117, 115, 101, 114, 110, 97, 109, 101, 0, 0, 0, 0},
			want: []byte("username"),
		},
		{
			name: "removes all padding",
			b:    []byte{0, 0, 0, 0, 0},
			want: []byte{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripPadding(tt.b); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("StripPadding() = %v, want %v", got, tt.want)
			}
		})
	}
}
