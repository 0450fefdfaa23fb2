package core

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestNewPluginManager(t *testing.T) {
	pm := NewPluginManager()
	if pm == nil {
		t.Fatal("NewPluginManager returned nil")
	}
	if pm.plugins == nil {
		t.Fatal("plugins slice not initialized")
	}
}

func TestRegisterPlugin(t *testing.T) {
	pm := NewPluginManager()

	pm.RegisterPlugin(NewMockPlugin("plugin1", 10))
	pm.RegisterPlugin(NewMockPlugin("plugin2", 5))
	pm.RegisterPlugin(NewMockPlugin("plugin3", 15))
	pm.RegisterPlugin(nil)

	plugins := pm.Plugins()
	if len(plugins) != 3 {
		t.Fatalf("Expected 3 plugins, got %d", len(plugins))
	}

	for i, want := range []int{5, 10, 15} {
		if plugins[i].Priority() != want {
			t.Errorf("Expected plugin %d priority %d, got %d", i, want, plugins[i].Priority())
		}
	}
}

func TestRegisterPluginKeepsOrderForEqualPriority(t *testing.T) {
	pm := NewPluginManager()

	for _, name := range []string{"c", "a", "b"} {
		pm.RegisterPlugin(NewMockPlugin(name, DefaultPriority))
	}
	pm.RegisterPlugin(NewMockPlugin("first", 1))

	var names []string
	for _, p := range pm.Plugins() {
		names = append(names, p.Name())
	}

	if got := strings.Join(names, ","); got != "first,c,a,b" {
		t.Errorf("Expected order first,c,a,b, got %s", got)
	}
}

func TestListPlugins(t *testing.T) {
	pm := NewPluginManager()
	if pm.ListPlugins() != nil {
		t.Error("Expected nil list for empty manager")
	}

	pm.RegisterPlugin(NewMockPlugin("plugin1", 10))
	pm.RegisterPlugin(NewMockPlugin("plugin2", 5))

	list := pm.ListPlugins()
	if len(list) != 2 {
		t.Fatalf("Expected 2 plugins in list, got %d", len(list))
	}

	expected1 := "plugin2 (priority: 5)"
	expected2 := "plugin1 (priority: 10)"

	if list[0] != expected1 || list[1] != expected2 {
		t.Errorf("Plugin list format incorrect. Got: %v", list)
	}
}

func TestRunCallsEveryPluginOnce(t *testing.T) {
	pm := NewPluginManager()

	var order []string
	for _, name := range []string{"one", "two"} {
		name := name
		pm.RegisterPlugin(NewMockPlugin(name, DefaultPriority).WithProcessFunc(func(files Files, smith *Smith) error {
			order = append(order, name)
			files[name+".txt"] = NewFile([]byte(name))
			return nil
		}))
	}

	files := Files{}
	if err := pm.Run(context.Background(), files, nil); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if strings.Join(order, ",") != "one,two" {
		t.Errorf("Unexpected order: %v", order)
	}
	if len(files) != 2 {
		t.Errorf("Expected 2 files, got %d", len(files))
	}
}

func TestRunStopsAtFirstError(t *testing.T) {
	pm := NewPluginManager()
	failing := NewMockPlugin("failing", 1).WithProcessFunc(func(files Files, smith *Smith) error {
		files["partial.txt"] = NewFile(nil)
		return errors.New("boom")
	})
	after := NewMockPlugin("after", 2)
	pm.RegisterPlugin(failing)
	pm.RegisterPlugin(after)

	files := Files{}
	err := pm.Run(context.Background(), files, nil)
	if err == nil {
		t.Fatal("Expected error")
	}

	var perr *PluginError
	if !errors.As(err, &perr) || perr.Plugin != "failing" {
		t.Errorf("Expected PluginError for plugin failing, got %v", err)
	}
	if err.Error() != "failing error: boom" {
		t.Errorf("Unexpected message: %s", err.Error())
	}
	if after.GetCallCount() != 0 {
		t.Error("Plugin after the failing one should not run")
	}
	if _, ok := files["partial.txt"]; !ok {
		t.Error("Changes before the failure must be kept")
	}
}

func TestRunRecoversPanics(t *testing.T) {
	pm := NewPluginManager()
	pm.RegisterPlugin(PluginFunc("panicky", func(files Files, smith *Smith) error {
		panic("kaboom")
	}))

	err := pm.Run(context.Background(), Files{}, nil)
	if !errors.Is(err, ErrPluginFailed) {
		t.Fatalf("Expected ErrPluginFailed, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "panicky error: ") {
		t.Errorf("Unexpected message: %s", err.Error())
	}
}

func TestRunHonorsCancelledContext(t *testing.T) {
	pm := NewPluginManager()
	plugin := NewMockPlugin("never", DefaultPriority)
	pm.RegisterPlugin(plugin)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := pm.Run(ctx, Files{}, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if plugin.GetCallCount() != 0 {
		t.Error("Plugin should not run after cancellation")
	}
}

func TestPluginErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *PluginError
		want string
	}{
		{"without file", NewPluginError("p", "", errors.New("bad")), "p error: bad"},
		{"with file", NewPluginError("p", "a.html", errors.New("bad")), "p error: a.html: bad"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}
