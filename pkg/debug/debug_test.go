package debug

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseCategories(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  map[string]bool
	}{
		{"empty", "", map[string]bool{}},
		{"single", "gate", map[string]bool{"gate": true}},
		{"multiple", "gate,storage", map[string]bool{"gate": true, "storage": true}},
		{"all", "all", map[string]bool{"all": true}},
		{"with spaces", " gate , storage ", map[string]bool{"gate": true, "storage": true}},
		{"uppercase normalized", "GATE,Storage", map[string]bool{"gate": true, "storage": true}},
		{"empty segments", "gate,,storage", map[string]bool{"gate": true, "storage": true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseCategories(tt.input)
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("got[%q] = %v, want %v", k, got[k], v)
				}
			}
			if len(got) != len(tt.want) {
				t.Errorf("len(got) = %d, want %d", len(got), len(tt.want))
			}
		})
	}
}

func TestEnabled(t *testing.T) {
	orig := categories
	defer func() { categories = orig }()

	categories = parseCategories("gate,storage")

	if !Enabled("gate") {
		t.Error("gate should be enabled")
	}
	if !Enabled("storage") {
		t.Error("storage should be enabled")
	}
	if Enabled("ratelimit") {
		t.Error("ratelimit should not be enabled")
	}
	if Enabled("all") {
		t.Error("all should not be enabled (not in categories)")
	}
}

func TestEnabled_All(t *testing.T) {
	orig := categories
	defer func() { categories = orig }()

	categories = parseCategories("all")

	for _, cat := range []string{"auth", "gate", "anything"} {
		if !Enabled(cat) {
			t.Errorf("%s should be enabled via 'all'", cat)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"TRACE", LevelTrace},
		{"trace", LevelTrace},
		{"DEBUG", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"WARNING", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"unknown", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestInit_EnvOverridesConfig(t *testing.T) {
	orig := categories
	origLogger := slog.Default()
	defer func() {
		categories = orig
		slog.SetDefault(origLogger)
	}()

	t.Setenv("MEMBERPORTAL_DEBUG", "ratelimit")
	t.Setenv("MEMBERPORTAL_LOG_LEVEL", "")
	Init("gate", "debug", "text")

	if !Enabled("ratelimit") || Enabled("gate") {
		t.Errorf("categories = %v, want [ratelimit]", Categories())
	}
	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("config level DEBUG was not applied")
	}
}

func TestNewHandler_Formats(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, slog.LevelInfo, "json"))
	logger.Info("hello", "k", "v")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("json handler output %q is not JSON: %v", buf.String(), err)
	}
	if rec["msg"] != "hello" || rec["k"] != "v" {
		t.Errorf("record = %v", rec)
	}

	buf.Reset()
	logger = slog.New(NewHandler(&buf, slog.LevelInfo, ""))
	logger.Info("hello", "k", "v")
	if !strings.Contains(buf.String(), "msg=hello") {
		t.Errorf("text handler output = %q, want msg=hello", buf.String())
	}
}

func TestCategoriesSorted(t *testing.T) {
	orig := categories
	defer func() { categories = orig }()

	categories = parseCategories("storage,auth,gate")
	got := strings.Join(Categories(), ",")
	if got != "auth,gate,storage" {
		t.Errorf("Categories() = %q, want %q", got, "auth,gate,storage")
	}
}

func TestLog_DisabledCategory(t *testing.T) {
	orig := categories
	defer func() { categories = orig }()

	categories = parseCategories("")

	// Should not panic or produce output.
	Log("gate", "test message", "key", "value")
	Trace("gate", "trace message", "key", "value")
}
