package bytesize

import (
	"testing"
)

func TestParseByteSize(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    ByteSize
		wantErr bool
	}{
		{"plain zero", "0", 0, false},
		{"plain number", "350", 350, false},
		{"bytes suffix", "350B", 350, false},

		{"kibibytes", "1Ki", 1024, false},
		{"kibibytes long", "1KiB", 1024, false},
		{"mebibytes", "4Mi", 4 * 1024 * 1024, false},
		{"gibibytes", "1Gi", 1024 * 1024 * 1024, false},
		{"tebibytes", "1Ti", 1024 * 1024 * 1024 * 1024, false},

		{"kilobytes", "1K", 1000, false},
		{"megabytes", "100MB", 100 * 1000 * 1000, false},
		{"gigabytes", "2G", 2 * 1000 * 1000 * 1000, false},

		{"lowercase unit", "1gi", 1024 * 1024 * 1024, false},
		{"uppercase unit", "1GI", 1024 * 1024 * 1024, false},

		{"leading space", "  1Ki", 1024, false},
		{"trailing space", "1Ki  ", 1024, false},
		{"space before unit", "1 Ki", 1024, false},

		{"fractional mebibytes", "1.5Mi", ByteSize(1.5 * 1024 * 1024), false},
		{"fractional gibibytes", "0.5Gi", ByteSize(0.5 * 1024 * 1024 * 1024), false},

		{"empty", "", 0, true},
		{"whitespace only", "   ", 0, true},
		{"unknown unit", "1Xi", 0, true},
		{"negative", "-1Ki", 0, true},
		{"unit only", "Ki", 0, true},
		{"garbage", "abc", 0, true},
		{"double dot", "1.2.3Ki", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseByteSize(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseByteSize(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseByteSize(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestByteSizeUnmarshalText(t *testing.T) {
	var b ByteSize
	if err := b.UnmarshalText([]byte("1Ki")); err != nil {
		t.Fatalf("UnmarshalText: %v", err)
	}
	if b != 1024 {
		t.Errorf("UnmarshalText(1Ki) = %d, want 1024", b)
	}

	if err := b.UnmarshalText([]byte("invalid")); err == nil {
		t.Error("UnmarshalText(invalid) expected error")
	}
}

func TestByteSizeString(t *testing.T) {
	tests := []struct {
		input ByteSize
		want  string
	}{
		{350, "350B"},
		{2 * KiB, "2.00KiB"},
		{100 * MiB, "100.00MiB"},
		{1 * GiB, "1.00GiB"},
		{2 * TiB, "2.00TiB"},
		{ByteSize(1.5 * float64(GiB)), "1.50GiB"},
	}

	for _, tt := range tests {
		if got := tt.input.String(); got != tt.want {
			t.Errorf("ByteSize(%d).String() = %q, want %q", tt.input, got, tt.want)
		}
	}
}
