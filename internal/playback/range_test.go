package playback

import "testing"

func TestParseByteRange(t *testing.T) {
	tests := []struct {
		name      string
		header    string
		size      int64
		wantStart int64
		wantEnd   int64
		wantNil   bool
		wantErr   error
	}{
		{"empty header", "", 1000, 0, 0, true, nil},
		{"full range", "bytes=0-999", 1000, 0, 999, false, nil},
		{"open end", "bytes=500-", 1000, 500, 999, false, nil},
		{"suffix range", "bytes=-500", 1000, 500, 999, false, nil},
		{"single byte", "bytes=0-0", 1000, 0, 0, false, nil},
		{"end clamped to size", "bytes=0-2000", 1000, 0, 999, false, nil},
		{"suffix larger than file", "bytes=-2000", 500, 0, 499, false, nil},
		{"multi range takes first", "bytes=0-99, 200-299", 1000, 0, 99, false, nil},

		{"start at size", "bytes=1000-", 1000, 0, 0, false, ErrUnsatisfiable},
		{"fully beyond size", "bytes=1500-2000", 1000, 0, 0, false, ErrUnsatisfiable},
		{"inverted", "bytes=200-100", 1000, 0, 0, false, ErrUnsatisfiable},
		{"missing unit", "0-100", 1000, 0, 0, false, ErrInvalidRange},
		{"wrong unit", "chars=0-100", 1000, 0, 0, false, ErrInvalidRange},
		{"garbage start", "bytes=abc-100", 1000, 0, 0, false, ErrInvalidRange},
		{"garbage end", "bytes=0-abc", 1000, 0, 0, false, ErrInvalidRange},
		{"zero suffix", "bytes=-0", 1000, 0, 0, false, ErrInvalidRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseByteRange(tt.header, tt.size)

			if tt.wantErr != nil {
				if err != tt.wantErr {
					t.Errorf("ParseByteRange() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Errorf("ParseByteRange() unexpected error: %v", err)
				return
			}
			if tt.wantNil {
				if got != nil {
					t.Errorf("ParseByteRange() = %v, want nil", got)
				}
				return
			}
			if got == nil {
				t.Error("ParseByteRange() = nil, want range")
				return
			}
			if got.Start != tt.wantStart || got.End != tt.wantEnd {
				t.Errorf("ParseByteRange() = {%d, %d}, want {%d, %d}",
					got.Start, got.End, tt.wantStart, tt.wantEnd)
			}
		})
	}
}

func TestByteRangeLength(t *testing.T) {
	if got := (ByteRange{Start: 5, End: 9}).Length(); got != 5 {
		t.Errorf("Length() = %d, want 5", got)
	}
	if got := (ByteRange{Start: 0, End: 0}).Length(); got != 1 {
		t.Errorf("Length() = %d, want 1", got)
	}
}

func TestByteRangeContentRange(t *testing.T) {
	r := ByteRange{Start: 5, End: 9}
	if got := r.ContentRange(20); got != "bytes 5-9/20" {
		t.Errorf("ContentRange(20) = %q, want \"bytes 5-9/20\"", got)
	}
}
