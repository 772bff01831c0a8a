package crawler

import (
	"errors"
	"testing"

	"golang.org/x/text/encoding/charmap"
)

func TestDecode(t *testing.T) {
	t.Parallel()

	t.Run("decodes windows-1251", func(t *testing.T) {
		t.Parallel()

		raw, err := charmap.Windows1251.NewEncoder().Bytes([]byte("Привет"))
		if err != nil {
			t.Fatalf("failed to encode fixture: %v", err)
		}

		got, err := Decode(raw, "windows-1251")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "Привет" {
			t.Errorf("expected Привет, got %q", got)
		}
	})

	t.Run("accepts aliases and quotes", func(t *testing.T) {
		t.Parallel()

		got, err := Decode([]byte{0xE9}, `"latin1"`)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "é" {
			t.Errorf("expected é, got %q", got)
		}
	})

	t.Run("utf-8 passes through", func(t *testing.T) {
		t.Parallel()

		got, err := Decode([]byte("héllo"), "UTF-8")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "héllo" {
			t.Errorf("expected héllo, got %q", got)
		}
	})

	t.Run("unknown charset fails", func(t *testing.T) {
		t.Parallel()

		_, err := Decode([]byte("x"), "klingon-8")
		if !errors.Is(err, ErrUnsupportedCharset) {
			t.Errorf("expected ErrUnsupportedCharset, got %v", err)
		}
	})
}

func TestCharsetParam(t *testing.T) {
	t.Parallel()

	tests := []struct {
		contentType string
		want        string
	}{
		{contentType: "text/html; charset=utf-8", want: "utf-8"},
		{contentType: `text/html; charset="ISO-8859-1"`, want: "ISO-8859-1"},
		{contentType: "text/plain", want: ""},
		{contentType: "text/html charset=koi8-r", want: "koi8-r"},
		{contentType: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			t.Parallel()

			if got := charsetParam(tt.contentType); got != tt.want {
				t.Errorf("charsetParam(%q) = %q, want %q", tt.contentType, got, tt.want)
			}
		})
	}
}
