package instrument

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func newTestLogger(buf *bytes.Buffer, fields ...string) *slog.Logger {
	return slog.New(&contextHandler{
		Handler:     &maskHandler{Handler: slog.NewJSONHandler(buf, nil), keys: MaskKeys(fields)},
		serviceName: "gopasscode",
	})
}

func TestMaskHandler(t *testing.T) {
	t.Parallel()

	// Arrange
	var buf bytes.Buffer
	logger := newTestLogger(&buf, "code", " Fallback_Code ")

	// Act
	logger.Info("issued",
		"code", "123456",
		"payload", `{"identifier":"a@b.co","fallback_code":"654321"}`,
		"body", map[string]any{"data": map[string]any{"code": "111111"}},
		slog.Group("req", slog.String("code", "222222")),
	)

	// Assert
	out := buf.String()
	for _, secret := range []string{"123456", "654321", "111111", "222222"} {
		if strings.Contains(out, secret) {
			t.Fatalf("log line leaks %q: %s", secret, out)
		}
	}
	if !strings.Contains(out, "a@b.co") {
		t.Fatalf("log line lost unmasked data: %s", out)
	}
}

func TestContextHandler_CorrelationID(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := newTestLogger(&buf)
	ctx := SetCorrelationID(context.Background(), "cid-1")

	logger.InfoContext(ctx, "hello")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if line["_cID"] != "cid-1" {
		t.Fatalf("_cID = %v, want cid-1", line["_cID"])
	}
	if line["service"] != "gopasscode" {
		t.Fatalf("service = %v", line["service"])
	}
}

func TestGetCorrelationID_Empty(t *testing.T) {
	t.Parallel()

	if got := GetCorrelationID(context.Background()); got != "" {
		t.Fatalf("GetCorrelationID() = %q, want empty", got)
	}
}

func TestConfig_MaskFieldsAlwaysCoverSecrets(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  Config
		want []string
	}{
		{name: "nothing configured", cfg: Config{}, want: []string{"code", "fallback_code", "hash_secret"}},
		{name: "extra field", cfg: Config{MaskFields: []string{"candidate"}}, want: []string{"code", "fallback_code", "hash_secret", "candidate"}},
		{name: "duplicate secret", cfg: Config{MaskFields: []string{"code", "password"}}, want: []string{"code", "fallback_code", "hash_secret", "password"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := tt.cfg.maskFields()
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Fatalf("maskFields() = %v, want %v", got, tt.want)
			}
		})
	}
}
